// Package simulator composes the matching pipeline: eligibility filter,
// strategy scoring, trigger policy, and the optional NPC reply.
package simulator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Storyloom-Labs/intrigue/internal/cluegraph"
	"github.com/Storyloom-Labs/intrigue/internal/llm"
	"github.com/Storyloom-Labs/intrigue/internal/match"
	"github.com/Storyloom-Labs/intrigue/internal/npc"
	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/Storyloom-Labs/intrigue/internal/vector"
)

// Request is one simulation call: the content under test plus the player's
// message and matching parameters.
type Request struct {
	Clues  []script.Clue
	NPC    *script.NPC
	Script *script.Script

	PlayerMessage string
	UnlockedIDs   map[string]bool

	Strategy      match.StrategyType
	ModelConfigID string
	MatchTemplate *script.PromptTemplate

	Threshold       *float64
	ReturnAllScores bool

	// SessionID scopes dialogue history for the optional reply.
	SessionID string

	// Reply requests an NPC response on top of the clue decision.
	Reply              bool
	ClueTemplate       *script.PromptTemplate
	NoClueTemplate     *script.PromptTemplate
	ReplyModelConfigID string
}

// Debug is the simulation's audit trail.
type Debug struct {
	TotalClues    int                   `json:"total_clues"`
	EligibleClues int                   `json:"eligible_clues"`
	ExcludedClues int                   `json:"excluded_clues"`
	Exclusions    []cluegraph.Exclusion `json:"exclusions,omitempty"`

	Threshold float64              `json:"threshold"`
	Strategy  *match.StrategyDebug `json:"strategy,omitempty"`
}

// Result is everything one simulate call produced.
type Result struct {
	MatchedClues   []match.Result `json:"matched_clues"`
	TriggeredClues []match.Result `json:"triggered_clues"`

	// NPCResponse is nil when no reply was requested or reply generation
	// degraded.
	NPCResponse *npc.Reply `json:"npc_response,omitempty"`

	Debug Debug      `json:"debug"`
	Usage *llm.Usage `json:"usage,omitempty"`
}

// replier abstracts the NPC responder so reply generation is swappable in
// tests.
type replier interface {
	Respond(ctx context.Context, req *npc.Request) *npc.Reply
}

// Simulator runs the pipeline over a model registry, a session-scoped vector
// store, and a dialogue history store.
type Simulator struct {
	registry  *llm.Registry
	history   npc.HistoryStore
	responder replier

	keyword   match.Strategy
	embedding match.Strategy
	llm       match.Strategy
}

// New creates a simulator. store backs the embedding strategy's ephemeral
// vectors; history backs NPC replies and may be nil.
func New(registry *llm.Registry, store vector.SessionStore, history npc.HistoryStore) *Simulator {
	return &Simulator{
		registry:  registry,
		history:   history,
		responder: npc.NewResponder(registry, history),
		keyword:   match.NewKeywordStrategy(),
		embedding: match.NewEmbeddingStrategy(registry, store),
		llm:       match.NewLLMStrategy(registry),
	}
}

// Simulate runs one player message through the pipeline. The only hard error
// is an explicitly requested model configuration that cannot resolve; every
// provider failure degrades inside the strategies.
func (s *Simulator) Simulate(ctx context.Context, req *Request) (*Result, error) {
	graph := cluegraph.New(req.Clues)
	eligible, exclusions := graph.Eligible(req.UnlockedIDs)

	matchReq := &match.Request{
		PlayerMessage:   req.PlayerMessage,
		UnlockedIDs:     req.UnlockedIDs,
		Strategy:        req.Strategy,
		ModelConfigID:   req.ModelConfigID,
		MatchTemplate:   req.MatchTemplate,
		Threshold:       req.Threshold,
		ReturnAllScores: req.ReturnAllScores,
		SessionID:       req.SessionID,
		NPC:             req.NPC,
		Script:          req.Script,
	}
	if req.NPC != nil {
		matchReq.NPCID = req.NPC.ID
	}
	if req.Script != nil {
		matchReq.ScriptID = req.Script.ID
	}

	strategy, strategyType, err := s.resolveStrategy(req)
	if err != nil {
		return nil, err
	}

	results, strategyDebug, err := strategy.Match(ctx, eligible, matchReq)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", strategyType, err)
	}

	// A degraded strategy produced keyword scores, so the trigger policy
	// follows the strategy that actually ran.
	effective := strategyType
	if strategyDebug != nil && strategyDebug.FallbackTo != "" {
		effective = strategyDebug.FallbackTo
	}

	threshold := match.ResolveThreshold(matchReq)
	results = match.ApplyTriggerPolicy(results, threshold, effective)
	triggered := match.Triggered(results)

	result := &Result{
		MatchedClues:   results,
		TriggeredClues: triggered,
		Debug: Debug{
			TotalClues:    len(req.Clues),
			EligibleClues: len(eligible),
			ExcludedClues: len(exclusions),
			Exclusions:    exclusions,
			Threshold:     threshold,
			Strategy:      strategyDebug,
		},
	}

	if req.Reply {
		s.reply(ctx, req, triggered, result)
	}

	return result, nil
}

// resolveStrategy maps the requested strategy to an implementation. An
// explicitly requested model configuration must resolve; absence of a default
// is left to the strategy's own fallback.
func (s *Simulator) resolveStrategy(req *Request) (match.Strategy, match.StrategyType, error) {
	switch req.Strategy {
	case match.StrategyEmbedding:
		if req.ModelConfigID != "" {
			if _, err := s.registry.Resolve(req.ModelConfigID, llm.ModelTypeEmbedding); err != nil {
				return nil, "", err
			}
		}
		return s.embedding, match.StrategyEmbedding, nil
	case match.StrategyLLM:
		if req.ModelConfigID != "" {
			if _, err := s.registry.Resolve(req.ModelConfigID, llm.ModelTypeChat); err != nil {
				return nil, "", err
			}
		}
		return s.llm, match.StrategyLLM, nil
	case match.StrategyKeyword, "":
		return s.keyword, match.StrategyKeyword, nil
	default:
		log.Printf("[Simulator] Unknown strategy %q, using keyword", req.Strategy)
		return s.keyword, match.StrategyKeyword, nil
	}
}

// reply drafts the NPC response and records the turn. Reply failures never
// fail the simulation.
func (s *Simulator) reply(ctx context.Context, req *Request, triggered []match.Result, result *Result) {
	clues := make([]script.Clue, len(triggered))
	for i := range triggered {
		clues[i] = triggered[i].Clue
	}

	reply := s.responder.Respond(ctx, &npc.Request{
		SessionID:      req.SessionID,
		PlayerMessage:  req.PlayerMessage,
		NPC:            req.NPC,
		Script:         req.Script,
		TriggeredClues: clues,
		ClueTemplate:   req.ClueTemplate,
		NoClueTemplate: req.NoClueTemplate,
		ModelConfigID:  req.ReplyModelConfigID,
	})
	if reply == nil {
		return
	}

	result.NPCResponse = reply
	result.Usage = &reply.Usage

	if s.history != nil && req.SessionID != "" {
		err := s.history.Record(ctx, script.DialogueTurn{
			SessionID:     req.SessionID,
			PlayerMessage: req.PlayerMessage,
			NPCResponse:   reply.Text,
			CreatedAt:     time.Now(),
		})
		if err != nil {
			log.Printf("[Simulator] Failed to record dialogue turn for session %s: %v", req.SessionID, err)
		}
	}
}
