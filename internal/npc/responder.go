// Package npc drafts in-character replies from triggered clues. A reply is
// best-effort: any failure along the path yields a nil reply and the
// simulation proceeds with clue data alone.
package npc

import (
	"context"
	"fmt"
	"log"

	"github.com/Storyloom-Labs/intrigue/internal/llm"
	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/Storyloom-Labs/intrigue/internal/template"
)

// Request carries everything one reply needs.
type Request struct {
	SessionID     string
	PlayerMessage string

	NPC    *script.NPC
	Script *script.Script

	// TriggeredClues are the clues selected for revelation this turn.
	TriggeredClues []script.Clue

	// ClueTemplate and NoClueTemplate are the authored system-prompt
	// templates; either may be nil.
	ClueTemplate   *script.PromptTemplate
	NoClueTemplate *script.PromptTemplate

	// ModelConfigID selects a chat configuration; empty means the default.
	ModelConfigID string
}

// Reply is one generated NPC response with its prompt audit trail.
type Reply struct {
	Text  string
	Model string
	Usage llm.Usage

	SystemPrompt   string
	PromptSegments []template.Segment

	// MessageSegments traces the final user turn: the reveal instruction and
	// the raw player message as separate segments.
	MessageSegments []template.Segment
}

// Responder generates NPC replies over a model registry and a dialogue
// history store.
type Responder struct {
	registry *llm.Registry
	history  HistoryStore

	// HistoryWindow bounds how many prior turns are replayed to the model.
	HistoryWindow int

	// newClient builds a chat client from a resolved config; overridable in
	// tests.
	newClient func(llm.ModelConfig) (llm.LLM, error)
}

// NewResponder creates a responder. history may be nil, in which case replies
// see no prior turns.
func NewResponder(registry *llm.Registry, history HistoryStore) *Responder {
	return &Responder{
		registry:      registry,
		history:       history,
		HistoryWindow: DefaultHistoryWindow,
		newClient: func(cfg llm.ModelConfig) (llm.LLM, error) {
			return llm.NewOpenAILLM(cfg)
		},
	}
}

// Respond drafts the NPC's reply. It returns nil when anything along the
// path fails; the failure is logged, never propagated.
func (r *Responder) Respond(ctx context.Context, req *Request) *Reply {
	cfg, err := r.registry.Resolve(req.ModelConfigID, llm.ModelTypeChat)
	if err != nil {
		log.Printf("[NPC Responder] No chat configuration, skipping reply: %v", err)
		return nil
	}

	client, err := r.newClient(*cfg)
	if err != nil {
		log.Printf("[NPC Responder] Chat client unavailable, skipping reply: %v", err)
		return nil
	}

	guides := clueGuides(req.TriggeredClues)
	hasClue := len(guides) > 0

	systemPrompt, promptSegments, warnings := r.buildSystemPrompt(req, guides, hasClue)
	for _, w := range warnings {
		log.Printf("[NPC Responder] Reply template: %s", w)
	}

	userTurn, messageSegments := buildUserTurn(req.PlayerMessage, guides, hasClue)

	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}
	messages = append(messages, r.historyMessages(ctx, req.SessionID)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userTurn})

	result, err := client.Chat(ctx, messages)
	if err != nil {
		log.Printf("[NPC Responder] Model call failed, skipping reply: %v", err)
		return nil
	}
	if result.Text == "" {
		log.Printf("[NPC Responder] Model returned an empty reply, skipping")
		return nil
	}

	return &Reply{
		Text:            result.Text,
		Model:           result.Model,
		Usage:           result.Usage,
		SystemPrompt:    systemPrompt,
		PromptSegments:  promptSegments,
		MessageSegments: messageSegments,
	}
}

// buildSystemPrompt chooses and renders the persona template. The clue
// template wins when there is something to reveal; with nothing to reveal the
// no-clue template wins, falling back to the clue template when it is the
// only one configured, and to a minimal persona line when neither exists.
func (r *Responder) buildSystemPrompt(req *Request, guides []string, hasClue bool) (string, []template.Segment, []string) {
	var tmpl *script.PromptTemplate
	switch {
	case hasClue && req.ClueTemplate != nil:
		tmpl = req.ClueTemplate
	case req.NoClueTemplate != nil:
		tmpl = req.NoClueTemplate
	case req.ClueTemplate != nil:
		tmpl = req.ClueTemplate
	}

	if tmpl == nil {
		name := "the character"
		if req.NPC != nil && req.NPC.Name != "" {
			name = req.NPC.Name
		}
		prompt := fmt.Sprintf("You are %s. Stay in character and answer the player in one or two sentences.", name)
		return prompt, []template.Segment{{Type: template.SegmentTemplate, Text: prompt}}, nil
	}

	rendered := template.Render(tmpl.Content, replyContext(req, guides, hasClue))
	return rendered.Content, rendered.Segments, rendered.Warnings
}

// replyContext exposes npc, script, clue_guides, and has_clue to reply
// templates.
func replyContext(req *Request, guides []string, hasClue bool) map[string]any {
	ctx := map[string]any{
		"clue_guides": guides,
		"has_clue":    hasClue,
	}
	if req.NPC != nil {
		ctx["npc"] = *req.NPC
	}
	if req.Script != nil {
		ctx["script"] = *req.Script
	}
	return ctx
}

// buildUserTurn assembles the final user message: a reveal or hold
// instruction, then the raw player message, each its own trace segment.
func buildUserTurn(playerMessage string, guides []string, hasClue bool) (string, []template.Segment) {
	var instruction string
	if hasClue {
		instruction = "Naturally reveal part of the following in your reply. Never use the word \"clue\" or mention internal ids.\n"
		for _, g := range guides {
			instruction += "- " + g + "\n"
		}
	} else {
		instruction = "You have no new information to share this turn. Respond in character without revealing anything.\n"
	}

	segments := []template.Segment{
		{Type: template.SegmentTemplate, Text: instruction},
		{Type: template.SegmentVariable, Text: playerMessage, Variable: "player_input", Resolved: true},
	}
	return instruction + "\n" + playerMessage, segments
}

// historyMessages replays the session's recent turns as alternating
// user/assistant messages, oldest-first. History failures cost the context
// window, not the reply.
func (r *Responder) historyMessages(ctx context.Context, sessionID string) []llm.Message {
	if r.history == nil || sessionID == "" {
		return nil
	}

	turns, err := r.history.Turns(ctx, sessionID, r.HistoryWindow)
	if err != nil {
		log.Printf("[NPC Responder] Failed to load history for session %s: %v", sessionID, err)
		return nil
	}

	messages := make([]llm.Message, 0, len(turns)*2)
	for _, t := range turns {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: t.PlayerMessage},
			llm.Message{Role: llm.RoleAssistant, Content: t.NPCResponse},
		)
	}
	return messages
}

func clueGuides(clues []script.Clue) []string {
	var guides []string
	for i := range clues {
		if clues[i].DetailForNPC != "" {
			guides = append(guides, clues[i].DetailForNPC)
		}
	}
	return guides
}
