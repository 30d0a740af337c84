package npc

import (
	"context"
	"sync"

	"github.com/Storyloom-Labs/intrigue/internal/script"
)

// DefaultHistoryWindow bounds how many prior turns feed the chat model.
const DefaultHistoryWindow = 20

// HistoryStore provides ordered dialogue history per session. Implementations
// return turns oldest-first.
type HistoryStore interface {
	// Turns returns up to limit of the most recent turns for a session,
	// oldest-first. A limit of 0 or less means no limit.
	Turns(ctx context.Context, sessionID string, limit int) ([]script.DialogueTurn, error)

	// Record appends one turn to a session's history.
	Record(ctx context.Context, turn script.DialogueTurn) error
}

// MemoryHistory is an in-memory HistoryStore keeping a bounded number of
// turns per session. Safe for concurrent use.
type MemoryHistory struct {
	mu            sync.Mutex
	maxPerSession int
	sessions      map[string][]script.DialogueTurn
}

// NewMemoryHistory creates a history store retaining at most maxPerSession
// turns per session; 0 or less means unbounded.
func NewMemoryHistory(maxPerSession int) *MemoryHistory {
	return &MemoryHistory{
		maxPerSession: maxPerSession,
		sessions:      make(map[string][]script.DialogueTurn),
	}
}

// Turns returns up to limit of the session's most recent turns, oldest-first.
func (h *MemoryHistory) Turns(ctx context.Context, sessionID string, limit int) ([]script.DialogueTurn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	turns := h.sessions[sessionID]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}

	out := make([]script.DialogueTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// Record appends a turn, evicting the oldest when the session is full.
func (h *MemoryHistory) Record(ctx context.Context, turn script.DialogueTurn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	turns := append(h.sessions[turn.SessionID], turn)
	if h.maxPerSession > 0 && len(turns) > h.maxPerSession {
		turns = turns[len(turns)-h.maxPerSession:]
	}
	h.sessions[turn.SessionID] = turns
	return nil
}
