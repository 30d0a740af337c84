package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process SessionStore for tests and offline runs. It
// implements the same session-key isolation contract as the Milvus store with
// exact cosine similarity instead of an ANN index.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]ClueRecord
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]ClueRecord)}
}

// InsertSession stores clue records under the session key.
func (s *MemoryStore) InsertSession(ctx context.Context, sessionKey string, records []ClueRecord) error {
	if len(records) == 0 {
		return ErrEmptyRecords
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sessionKey] = append(s.rows[sessionKey], records...)
	return nil
}

// SearchSession returns the session's top-K rows by cosine similarity.
func (s *MemoryStore) SearchSession(ctx context.Context, sessionKey string, queryVector []float32, topK int) ([]Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []Match
	for _, r := range s.rows[sessionKey] {
		matches = append(matches, Match{
			ClueID:  r.ClueID,
			Content: r.Content,
			Score:   cosine(queryVector, r.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteSession removes every row stored under the session key.
func (s *MemoryStore) DeleteSession(ctx context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, sessionKey)
	return nil
}

// CountSession reports how many rows remain for the session key.
func (s *MemoryStore) CountSession(ctx context.Context, sessionKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows[sessionKey])), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
