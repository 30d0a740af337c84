// Package vector provides embedding generation and the session-scoped
// ephemeral vector store backing the embedding match strategy. Rows live only
// for the duration of one match call: they are inserted under a request-unique
// session key and deleted by that key before the call returns, so concurrent
// simulations never observe each other's vectors.
package vector

import (
	"context"
)

// ClueRecord is one clue's rendered matchable text plus its embedding,
// staged for a session-scoped insert.
type ClueRecord struct {
	ClueID    string    `json:"clue_id"`
	NPCID     string    `json:"npc_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// Match is one similarity-search hit within a session.
type Match struct {
	ClueID  string  `json:"clue_id"`
	Content string  `json:"content"`
	Score   float32 `json:"score"` // cosine similarity
}

// SessionStore is the ephemeral vector store contract. Every method scopes to
// a session key; implementations must guarantee that DeleteSession removes all
// rows for the key regardless of how the session ended.
type SessionStore interface {
	// InsertSession stores clue records under the given session key.
	InsertSession(ctx context.Context, sessionKey string, records []ClueRecord) error

	// SearchSession performs top-K cosine similarity search over the
	// session's rows.
	SearchSession(ctx context.Context, sessionKey string, queryVector []float32, topK int) ([]Match, error)

	// DeleteSession removes every row stored under the session key.
	DeleteSession(ctx context.Context, sessionKey string) error

	// CountSession reports how many rows remain for the session key.
	CountSession(ctx context.Context, sessionKey string) (int64, error)

	// Close releases resources and closes connections.
	Close() error
}
