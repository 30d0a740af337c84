package match

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Storyloom-Labs/intrigue/internal/llm"
	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/Storyloom-Labs/intrigue/internal/template"
)

// defaultMatchingInstruction is the generic matching-strategy block used when
// the request carries no authored template.
const defaultMatchingInstruction = "Judge how strongly the player's message relates to each clue. " +
	"Consider direct mentions, paraphrases, and questions probing the clue's topic. " +
	"Score 0.0 for unrelated clues and 1.0 for explicit, unambiguous references."

// llmMatchesDoc is the structured response shape requested from the model.
type llmMatchesDoc struct {
	Matches []struct {
		ID     string  `json:"id"`
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	} `json:"matches"`
}

// LLMStrategy delegates scoring to a chat model acting as a holistic judge:
// one call sees every eligible clue and the message together. Configuration
// absence degrades to keyword matching; call and parse failures return zero
// results without falling back, so a silent provider outage reads as "nothing
// matched" rather than producing keyword-quality surprises mid-conversation.
type LLMStrategy struct {
	registry *llm.Registry
	fallback *KeywordStrategy

	// newClient builds a chat client from a resolved config; overridable in
	// tests.
	newClient func(llm.ModelConfig) (llm.LLM, error)
}

// NewLLMStrategy creates the LLM-judged matcher over the given registry.
func NewLLMStrategy(registry *llm.Registry) *LLMStrategy {
	return &LLMStrategy{
		registry: registry,
		fallback: NewKeywordStrategy(),
		newClient: func(cfg llm.ModelConfig) (llm.LLM, error) {
			return llm.NewOpenAILLM(cfg)
		},
	}
}

// Match builds one system prompt over all eligible clues, requests structured
// JSON scores, and converts the validated response into results.
func (s *LLMStrategy) Match(ctx context.Context, clues []script.Clue, req *Request) ([]Result, *StrategyDebug, error) {
	debug := &StrategyDebug{Strategy: StrategyLLM}

	cfg, err := s.registry.Resolve(req.ModelConfigID, llm.ModelTypeChat)
	if err != nil {
		return s.degrade(ctx, clues, req, debug, fmt.Sprintf("no chat configuration: %v", err))
	}

	client, err := s.newClient(*cfg)
	if err != nil {
		return s.degrade(ctx, clues, req, debug, fmt.Sprintf("chat client unavailable: %v", err))
	}

	if len(clues) == 0 {
		return nil, debug, nil
	}

	prompt, segments := s.buildSystemPrompt(clues, req, debug)
	debug.SystemPrompt = prompt
	debug.PromptSegments = segments

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt},
		{Role: llm.RoleUser, Content: req.PlayerMessage},
	}

	result, err := client.ChatJSON(ctx, messages, matchesSchema())
	if err != nil {
		log.Printf("[LLM Strategy] Model call failed, returning no matches: %v", err)
		debug.Notes = append(debug.Notes, fmt.Sprintf("model call failed: %v", err))
		return nil, debug, nil
	}
	debug.RawResponse = result.Text

	var doc llmMatchesDoc
	if err := llm.DecodeJSON(result.Text, &doc); err != nil {
		log.Printf("[LLM Strategy] Unparseable response, returning no matches: %v", err)
		debug.Notes = append(debug.Notes, fmt.Sprintf("unparseable response: %v", err))
		return nil, debug, nil
	}

	byID := make(map[string]*script.Clue, len(clues))
	for i := range clues {
		byID[clues[i].ID] = &clues[i]
	}

	scored := make(map[string]Result, len(doc.Matches))
	for _, m := range doc.Matches {
		clue, ok := byID[m.ID]
		if !ok {
			debug.Notes = append(debug.Notes,
				fmt.Sprintf("model referenced unknown clue id %q", m.ID))
			continue
		}
		reason := m.Reason
		if reason == "" {
			reason = "matched by model"
		}
		scored[m.ID] = Result{
			Clue:    *clue,
			Score:   clamp01(m.Score),
			Reasons: []string{reason},
		}
	}

	var results []Result
	if req.ReturnAllScores {
		for i := range clues {
			if r, ok := scored[clues[i].ID]; ok {
				results = append(results, r)
				continue
			}
			results = append(results, Result{
				Clue:    clues[i],
				Score:   0,
				Reasons: []string{"not matched"},
			})
		}
	} else {
		for i := range clues {
			if r, ok := scored[clues[i].ID]; ok && r.Score > 0 {
				results = append(results, r)
			}
		}
	}

	sortByScore(results)
	return results, debug, nil
}

// buildSystemPrompt assembles the judge prompt as an ordered segment trace:
// scaffolding is literal template text, clue fields and the custom matching
// block are variable content.
func (s *LLMStrategy) buildSystemPrompt(clues []script.Clue, req *Request, debug *StrategyDebug) (string, []template.Segment) {
	var b strings.Builder
	var segments []template.Segment

	literal := func(text string) {
		b.WriteString(text)
		segments = append(segments, template.Segment{Type: template.SegmentTemplate, Text: text})
	}
	variable := func(path, text string) {
		b.WriteString(text)
		segments = append(segments, template.Segment{
			Type:     template.SegmentVariable,
			Text:     text,
			Variable: path,
			Resolved: true,
		})
	}

	literal("You are the clue-matching judge of a narrative game. " +
		"The player just sent a message to an NPC; decide which of the NPC's hidden clues the message relates to.\n\n" +
		"# Eligible Clues\n\n")

	for i := range clues {
		c := &clues[i]
		literal("- id: ")
		variable("clue.id", c.ID)
		literal("\n  name: ")
		variable("clue.name", c.Name)
		if len(c.TriggerKeywords) > 0 {
			literal("\n  keywords: ")
			variable("clue.trigger_keywords", strings.Join(c.TriggerKeywords, ", "))
		}
		if c.TriggerSemanticSummary != "" {
			literal("\n  summary: ")
			variable("clue.trigger_semantic_summary", c.TriggerSemanticSummary)
		}
		literal("\n")
	}

	literal("\n# Matching Strategy\n\n")
	if req.MatchTemplate != nil {
		rendered := template.Render(req.MatchTemplate.Content, renderContext(nil, req))
		segments = append(segments, rendered.Segments...)
		b.WriteString(rendered.Content)
		for _, w := range rendered.Warnings {
			debug.Notes = append(debug.Notes, fmt.Sprintf("matching template: %s", w))
		}
	} else {
		literal(defaultMatchingInstruction)
	}

	literal("\n\n# Output Format\n\n" +
		"Respond with JSON of the shape {\"matches\":[{\"id\":\"<clue id>\",\"score\":<0.0-1.0>,\"reason\":\"<short explanation>\"}]}.\n")
	if req.ReturnAllScores {
		literal("Score every eligible clue, including clues that do not match (score 0).\n")
	} else {
		literal("Include only clues the message meaningfully relates to.\n")
	}

	return b.String(), segments
}

// degrade reruns the match with the keyword strategy. Reserved for
// configuration absence; provider failures intentionally do not reach here.
func (s *LLMStrategy) degrade(ctx context.Context, clues []script.Clue, req *Request, debug *StrategyDebug, reason string) ([]Result, *StrategyDebug, error) {
	log.Printf("[LLM Strategy] Falling back to keyword matching: %s", reason)
	debug.FallbackTo = StrategyKeyword
	debug.Notes = append(debug.Notes, reason)

	results, fallbackDebug, err := s.fallback.Match(ctx, clues, req)
	if fallbackDebug != nil {
		debug.Notes = append(debug.Notes, fallbackDebug.Notes...)
	}
	return results, debug, err
}

func matchesSchema() llm.ResponseSchema {
	return llm.ResponseSchema{
		Name: "clue_matches",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"matches": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":     map[string]any{"type": "string"},
							"score":  map[string]any{"type": "number"},
							"reason": map[string]any{"type": "string"},
						},
						"required":             []string{"id", "score", "reason"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"matches"},
			"additionalProperties": false,
		},
	}
}
