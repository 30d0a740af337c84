package match

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Storyloom-Labs/intrigue/internal/llm"
	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/Storyloom-Labs/intrigue/internal/template"
	"github.com/Storyloom-Labs/intrigue/internal/vector"
)

// EmbeddingStrategy scores clues by cosine similarity between the player
// message and each clue's rendered matchable text. Clue vectors live in the
// session store only for the duration of one Match call, keyed by a
// request-unique session key, and are deleted on every exit path. Any
// provider or store failure degrades to the keyword strategy.
type EmbeddingStrategy struct {
	registry *llm.Registry
	store    vector.SessionStore
	fallback *KeywordStrategy

	// newEmbedder builds an embedder from a resolved config; overridable in
	// tests.
	newEmbedder func(llm.ModelConfig) (vector.Embedder, error)

	// newSessionKey generates the request-unique key isolating this match's
	// ephemeral rows.
	newSessionKey func() string
}

// NewEmbeddingStrategy creates the embedding matcher over the given config
// registry and session store.
func NewEmbeddingStrategy(registry *llm.Registry, store vector.SessionStore) *EmbeddingStrategy {
	return &EmbeddingStrategy{
		registry: registry,
		store:    store,
		fallback: NewKeywordStrategy(),
		newEmbedder: func(cfg llm.ModelConfig) (vector.Embedder, error) {
			return vector.NewOpenAIEmbedder(cfg)
		},
		newSessionKey: uuid.NewString,
	}
}

// Match embeds the message and the clues' rendered texts under an ephemeral
// session and converts similarity search hits into scored results.
func (s *EmbeddingStrategy) Match(ctx context.Context, clues []script.Clue, req *Request) ([]Result, *StrategyDebug, error) {
	debug := &StrategyDebug{Strategy: StrategyEmbedding}

	cfg, err := s.registry.Resolve(req.ModelConfigID, llm.ModelTypeEmbedding)
	if err != nil {
		return s.degrade(ctx, clues, req, debug, fmt.Sprintf("no embedding configuration: %v", err))
	}

	embedder, err := s.newEmbedder(*cfg)
	if err != nil {
		return s.degrade(ctx, clues, req, debug, fmt.Sprintf("embedder unavailable: %v", err))
	}

	if len(clues) == 0 {
		return nil, debug, nil
	}

	// Render each clue's matchable text, capturing content and segment
	// traces for the audit trail.
	debug.RenderedContent = make(map[string]string, len(clues))
	texts := make([]string, 0, len(clues)+1)
	texts = append(texts, req.PlayerMessage)
	for i := range clues {
		content := s.renderClue(&clues[i], req, debug)
		debug.RenderedContent[clues[i].ID] = content
		texts = append(texts, content)
	}

	sessionKey := s.newSessionKey()

	// The session's rows must vanish on every exit path, including
	// cancellation, so cleanup runs under a context detached from the
	// request's.
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := s.store.DeleteSession(cleanupCtx, sessionKey); err != nil {
			log.Printf("[Embedding Strategy] Failed to clean up session %s: %v", sessionKey, err)
		}
	}()

	records, err := embedder.Embed(ctx, texts)
	if err != nil {
		return s.degrade(ctx, clues, req, debug, fmt.Sprintf("embedding failed: %v", err))
	}
	if len(records) != len(texts) {
		return s.degrade(ctx, clues, req, debug,
			fmt.Sprintf("embedding returned %d records for %d texts", len(records), len(texts)))
	}

	clueRecords := make([]vector.ClueRecord, len(clues))
	for i := range clues {
		clueRecords[i] = vector.ClueRecord{
			ClueID:    clues[i].ID,
			NPCID:     clues[i].NPCID,
			Content:   records[i+1].Text,
			Embedding: records[i+1].Embedding,
		}
	}

	if err := s.store.InsertSession(ctx, sessionKey, clueRecords); err != nil {
		return s.degrade(ctx, clues, req, debug, fmt.Sprintf("vector insert failed: %v", err))
	}

	matches, err := s.store.SearchSession(ctx, sessionKey, records[0].Embedding, len(clues))
	if err != nil {
		return s.degrade(ctx, clues, req, debug, fmt.Sprintf("similarity search failed: %v", err))
	}

	byID := make(map[string]*script.Clue, len(clues))
	for i := range clues {
		byID[clues[i].ID] = &clues[i]
	}

	var results []Result
	for _, m := range matches {
		clue, ok := byID[m.ClueID]
		if !ok {
			continue
		}
		similarity := clamp01(float64(m.Score))
		results = append(results, Result{
			Clue:       *clue,
			Score:      similarity,
			Similarity: &similarity,
			Reasons:    []string{fmt.Sprintf("semantic similarity %.2f", similarity)},
		})
	}

	sortByScore(results)
	return results, debug, nil
}

// renderClue produces one clue's matchable text: the authored template when
// present, otherwise semantic summary, detail, then name.
func (s *EmbeddingStrategy) renderClue(clue *script.Clue, req *Request, debug *StrategyDebug) string {
	if req.MatchTemplate == nil {
		return clue.MatchableText()
	}

	rendered := template.Render(req.MatchTemplate.Content, renderContext(clue, req))
	if debug.RenderedSegments == nil {
		debug.RenderedSegments = make(map[string][]template.Segment)
	}
	debug.RenderedSegments[clue.ID] = rendered.Segments
	for _, w := range rendered.Warnings {
		debug.Notes = append(debug.Notes, fmt.Sprintf("clue %s template: %s", clue.ID, w))
	}
	return rendered.Content
}

// degrade logs the failure and reruns the match with the keyword strategy,
// folding the fallback's findings into this strategy's debug.
func (s *EmbeddingStrategy) degrade(ctx context.Context, clues []script.Clue, req *Request, debug *StrategyDebug, reason string) ([]Result, *StrategyDebug, error) {
	log.Printf("[Embedding Strategy] Falling back to keyword matching: %s", reason)
	debug.FallbackTo = StrategyKeyword
	debug.Notes = append(debug.Notes, reason)

	results, fallbackDebug, err := s.fallback.Match(ctx, clues, req)
	if fallbackDebug != nil {
		debug.Notes = append(debug.Notes, fallbackDebug.Notes...)
	}
	return results, debug, err
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
