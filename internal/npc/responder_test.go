package npc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Storyloom-Labs/intrigue/internal/llm"
	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/Storyloom-Labs/intrigue/internal/template"
)

func chatRegistry() *llm.Registry {
	return llm.NewRegistry(llm.ModelConfig{
		ID: "chat-1", Type: llm.ModelTypeChat, Model: "mock-chat", IsDefault: true,
	})
}

func newTestResponder(mock *llm.MockLLM, history HistoryStore) *Responder {
	r := NewResponder(chatRegistry(), history)
	r.newClient = func(llm.ModelConfig) (llm.LLM, error) { return mock, nil }
	return r
}

func triggered(details ...string) []script.Clue {
	clues := make([]script.Clue, len(details))
	for i, d := range details {
		clues[i] = script.Clue{ID: "c" + d, Name: "clue", DetailForNPC: d}
	}
	return clues
}

func clueTemplate() *script.PromptTemplate {
	return &script.PromptTemplate{
		ID:   "tpl-clue",
		Kind: "reply_clue",
		Content: "You are {{npc.name}}, {{npc.title}}. Reveal naturally:\n{{clue_guides|list}}",
	}
}

func noClueTemplate() *script.PromptTemplate {
	return &script.PromptTemplate{
		ID:      "tpl-noclue",
		Kind:    "reply_no_clue",
		Content: "You are {{npc.name}}. You have nothing new to share.",
	}
}

func baseRequest() *Request {
	return &Request{
		SessionID:     "sess-1",
		PlayerMessage: "what do you know about the knife?",
		NPC:           &script.NPC{ID: "npc-1", Name: "Mrs. Hudson", Title: "the housekeeper"},
		Script:        &script.Script{ID: "script-1", Name: "The Manor"},
	}
}

func TestRespondWithTriggeredClues(t *testing.T) {
	mock := llm.NewMockLLM("I did see a knife near the sink, now that you mention it.")
	mock.Usage = llm.Usage{PromptTokens: 120, CompletionTokens: 18, TotalTokens: 138, LatencyMS: 42}
	r := newTestResponder(mock, nil)

	req := baseRequest()
	req.TriggeredClues = triggered("I saw a knife by the sink")
	req.ClueTemplate = clueTemplate()
	req.NoClueTemplate = noClueTemplate()

	reply := r.Respond(context.Background(), req)
	if reply == nil {
		t.Fatal("expected a reply")
	}
	if reply.Text != mock.Response {
		t.Errorf("unexpected reply text: %q", reply.Text)
	}
	if reply.Usage.TotalTokens != 138 || reply.Usage.LatencyMS != 42 {
		t.Errorf("usage metrics must be captured, got %+v", reply.Usage)
	}

	// The clue template wins when there is something to reveal.
	if !strings.Contains(reply.SystemPrompt, "Mrs. Hudson, the housekeeper") {
		t.Errorf("system prompt missing persona fields:\n%s", reply.SystemPrompt)
	}
	if !strings.Contains(reply.SystemPrompt, "1. I saw a knife by the sink") {
		t.Errorf("system prompt missing clue guides:\n%s", reply.SystemPrompt)
	}

	// Final user turn: instruction then raw message, traced separately.
	last := mock.LastMessages[len(mock.LastMessages)-1]
	if last.Role != llm.RoleUser {
		t.Fatalf("last message must be the user turn, got %s", last.Role)
	}
	if !strings.Contains(last.Content, "reveal part of the following") &&
		!strings.Contains(last.Content, "Naturally reveal") {
		t.Errorf("user turn missing reveal instruction: %q", last.Content)
	}
	if !strings.HasSuffix(last.Content, req.PlayerMessage) {
		t.Errorf("user turn must end with the raw player message: %q", last.Content)
	}
	if len(reply.MessageSegments) != 2 {
		t.Fatalf("expected 2 message segments, got %d", len(reply.MessageSegments))
	}
	if reply.MessageSegments[1].Variable != "player_input" || reply.MessageSegments[1].Text != req.PlayerMessage {
		t.Errorf("second segment must trace the raw message, got %+v", reply.MessageSegments[1])
	}
}

func TestRespondTemplateChoice(t *testing.T) {
	tests := []struct {
		name       string
		clues      []script.Clue
		clueTpl    *script.PromptTemplate
		noClueTpl  *script.PromptTemplate
		wantPrompt string
	}{
		{
			name:       "no clues uses no-clue template",
			clueTpl:    clueTemplate(),
			noClueTpl:  noClueTemplate(),
			wantPrompt: "nothing new to share",
		},
		{
			name:       "no clues falls back to clue template when alone",
			clues:      nil,
			clueTpl:    clueTemplate(),
			wantPrompt: "Reveal naturally",
		},
		{
			name:       "clues but only no-clue template configured",
			clues:      triggered("a guide"),
			noClueTpl:  noClueTemplate(),
			wantPrompt: "nothing new to share",
		},
		{
			name:       "no templates uses persona line",
			wantPrompt: "You are Mrs. Hudson. Stay in character",
		},
		{
			name:       "clue without npc guidance counts as no clue",
			clues:      []script.Clue{{ID: "c1", Name: "clue"}},
			clueTpl:    clueTemplate(),
			noClueTpl:  noClueTemplate(),
			wantPrompt: "nothing new to share",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockLLM("a reply")
			r := newTestResponder(mock, nil)

			req := baseRequest()
			req.TriggeredClues = tt.clues
			req.ClueTemplate = tt.clueTpl
			req.NoClueTemplate = tt.noClueTpl

			reply := r.Respond(context.Background(), req)
			if reply == nil {
				t.Fatal("expected a reply")
			}
			if !strings.Contains(reply.SystemPrompt, tt.wantPrompt) {
				t.Errorf("system prompt missing %q:\n%s", tt.wantPrompt, reply.SystemPrompt)
			}
		})
	}
}

func TestRespondInterleavesHistory(t *testing.T) {
	history := NewMemoryHistory(0)
	base := time.Now()
	for i, pair := range [][2]string{
		{"hello", "good evening"},
		{"who are you", "the housekeeper"},
	} {
		_ = history.Record(context.Background(), script.DialogueTurn{
			SessionID:     "sess-1",
			PlayerMessage: pair[0],
			NPCResponse:   pair[1],
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		})
	}

	mock := llm.NewMockLLM("a reply")
	r := newTestResponder(mock, history)

	req := baseRequest()
	if r.Respond(context.Background(), req) == nil {
		t.Fatal("expected a reply")
	}

	// system, 2x(user+assistant), new user turn.
	if len(mock.LastMessages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(mock.LastMessages))
	}
	wantRoles := []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	for i, want := range wantRoles {
		if mock.LastMessages[i].Role != want {
			t.Errorf("message %d: expected role %s, got %s", i, want, mock.LastMessages[i].Role)
		}
	}
	if mock.LastMessages[1].Content != "hello" || mock.LastMessages[4].Content != "the housekeeper" {
		t.Errorf("history must replay oldest-first, got %+v", mock.LastMessages[1:5])
	}
}

func TestRespondHistoryWindowBounds(t *testing.T) {
	history := NewMemoryHistory(0)
	for i := 0; i < 30; i++ {
		_ = history.Record(context.Background(), script.DialogueTurn{
			SessionID:     "sess-1",
			PlayerMessage: "ping",
			NPCResponse:   "pong",
		})
	}

	mock := llm.NewMockLLM("a reply")
	r := newTestResponder(mock, history)
	r.HistoryWindow = 3

	if r.Respond(context.Background(), baseRequest()) == nil {
		t.Fatal("expected a reply")
	}
	// system + 3 turns * 2 + new user turn.
	if len(mock.LastMessages) != 8 {
		t.Errorf("expected 8 messages under a 3-turn window, got %d", len(mock.LastMessages))
	}
}

func TestRespondDegradesToNil(t *testing.T) {
	t.Run("model failure", func(t *testing.T) {
		r := newTestResponder(llm.NewMockLLMWithError(errors.New("timeout")), nil)
		if reply := r.Respond(context.Background(), baseRequest()); reply != nil {
			t.Errorf("model failure must yield nil reply, got %+v", reply)
		}
	})

	t.Run("no chat config", func(t *testing.T) {
		r := NewResponder(llm.NewRegistry(), nil)
		if reply := r.Respond(context.Background(), baseRequest()); reply != nil {
			t.Errorf("missing config must yield nil reply, got %+v", reply)
		}
	})

	t.Run("empty model output", func(t *testing.T) {
		r := newTestResponder(llm.NewMockLLM(""), nil)
		if reply := r.Respond(context.Background(), baseRequest()); reply != nil {
			t.Errorf("empty output must yield nil reply, got %+v", reply)
		}
	})
}

func TestRespondNoClueInstruction(t *testing.T) {
	mock := llm.NewMockLLM("a reply")
	r := newTestResponder(mock, nil)

	reply := r.Respond(context.Background(), baseRequest())
	if reply == nil {
		t.Fatal("expected a reply")
	}
	last := mock.LastMessages[len(mock.LastMessages)-1]
	if !strings.Contains(last.Content, "no new information") {
		t.Errorf("expected hold instruction in user turn: %q", last.Content)
	}
}

func TestRespondPromptSegmentsTraced(t *testing.T) {
	mock := llm.NewMockLLM("a reply")
	r := newTestResponder(mock, nil)

	req := baseRequest()
	req.TriggeredClues = triggered("a guide")
	req.ClueTemplate = clueTemplate()

	reply := r.Respond(context.Background(), req)
	if reply == nil {
		t.Fatal("expected a reply")
	}

	var sawVariable bool
	for _, s := range reply.PromptSegments {
		if s.Type == template.SegmentVariable && s.Variable == "npc.name" {
			sawVariable = true
		}
	}
	if !sawVariable {
		t.Errorf("expected npc.name variable segment in prompt trace, got %+v", reply.PromptSegments)
	}
}
