// Package match scores eligible clues against a player message. It defines
// the strategy contract, the three interchangeable implementations (keyword,
// embedding, LLM-judged), and the trigger decision policy that converts
// scores into revealed clues. Strategies only score; is_triggered is set
// exclusively by the trigger policy.
package match

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/Storyloom-Labs/intrigue/internal/template"
)

// StrategyType selects the matching algorithm at the call site.
type StrategyType string

const (
	StrategyKeyword   StrategyType = "keyword"
	StrategyEmbedding StrategyType = "embedding"
	StrategyLLM       StrategyType = "llm"
)

// Request is the immutable per-request bundle every strategy consumes. It is
// created once per simulate call and discarded with the response.
type Request struct {
	PlayerMessage string
	UnlockedIDs   map[string]bool

	NPCID    string
	ScriptID string

	Strategy      StrategyType
	ModelConfigID string

	// MatchTemplate, when set, renders each clue's matchable text (embedding
	// strategy) or the matching-strategy prompt block (LLM strategy).
	MatchTemplate *script.PromptTemplate

	// Threshold overrides the default trigger threshold when non-nil.
	Threshold *float64

	// ReturnAllScores makes the LLM strategy emit one result per eligible
	// clue instead of only the clues the model named.
	ReturnAllScores bool

	// SessionID scopes dialogue history; the embedding strategy derives its
	// own request-unique session key and does not reuse this.
	SessionID string

	// Rendering context for custom templates.
	NPC    *script.NPC
	Script *script.Script
}

// NormalizedMessage returns the case-normalized player message strategies
// match against.
func (r *Request) NormalizedMessage() string {
	return strings.ToLower(r.PlayerMessage)
}

// Result is one clue's score against the player message. IsTriggered stays
// false until the trigger policy runs.
type Result struct {
	Clue            script.Clue `json:"clue"`
	Score           float64     `json:"score"`
	Reasons         []string    `json:"reasons,omitempty"`
	MatchedKeywords []string    `json:"matched_keywords,omitempty"`
	Similarity      *float64    `json:"similarity,omitempty"`
	IsTriggered     bool        `json:"is_triggered"`
}

// StrategyDebug captures what a strategy actually did: fallbacks taken,
// rendered content, and full prompt segment traces for auditability.
type StrategyDebug struct {
	Strategy StrategyType `json:"strategy"`

	// FallbackTo names the strategy execution degraded to, if any.
	FallbackTo StrategyType `json:"fallback_to,omitempty"`

	Notes []string `json:"notes,omitempty"`

	// RenderedContent and RenderedSegments record each clue's matchable text
	// as produced for the embedding strategy, keyed by clue id.
	RenderedContent  map[string]string             `json:"rendered_content,omitempty"`
	RenderedSegments map[string][]template.Segment `json:"rendered_segments,omitempty"`

	// SystemPrompt and PromptSegments record the LLM strategy's system
	// prompt and its literal/variable trace.
	SystemPrompt   string             `json:"system_prompt,omitempty"`
	PromptSegments []template.Segment `json:"prompt_segments,omitempty"`

	// RawResponse is the LLM strategy's unparsed model output.
	RawResponse string `json:"raw_response,omitempty"`
}

// Strategy is the matching contract. Implementations score the eligible clues
// against the request and must never mutate IsTriggered.
type Strategy interface {
	Match(ctx context.Context, clues []script.Clue, req *Request) ([]Result, *StrategyDebug, error)
}

// sortByScore orders results by descending score, stable for equal scores.
func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}

// renderContext assembles the template context exposed to authored matching
// templates. The roots here are the external contract for template authors.
func renderContext(clue *script.Clue, req *Request) map[string]any {
	unlocked := make([]string, 0, len(req.UnlockedIDs))
	for id := range req.UnlockedIDs {
		unlocked = append(unlocked, id)
	}
	sort.Strings(unlocked)

	ctx := map[string]any{
		"player_input":   req.PlayerMessage,
		"now":            time.Now().Format(time.RFC3339),
		"unlocked_clues": unlocked,
	}
	if clue != nil {
		ctx["clue"] = *clue
	}
	if req.NPC != nil {
		ctx["npc"] = *req.NPC
	}
	if req.Script != nil {
		ctx["script"] = *req.Script
	}
	return ctx
}

// AllowedTemplateRoots is the allow-list for ValidateVariables on authored
// matching and reply templates.
var AllowedTemplateRoots = []string{"clue", "npc", "script", "player_input", "now", "unlocked_clues"}
