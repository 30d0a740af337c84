package script

import (
	"errors"
	"strings"
	"testing"
)

const sampleBundle = `{
  "script": {"id": "script-1", "name": "The Manor", "truth": {"culprit": "butler"}},
  "npc": {"id": "npc-1", "name": "Mrs. Hudson", "title": "the housekeeper"},
  "clues": [
    {"id": "knife", "name": "The Kitchen Knife", "type": "text",
     "trigger_keywords": ["knife", "blood"], "detail": "found under the sink"},
    {"id": "letter", "name": "The Farewell Letter", "type": "text",
     "prereq_clue_ids": ["knife"]}
  ],
  "templates": [
    {"id": "tpl-1", "kind": "matching", "content": "{{clue.name}}"},
    {"id": "tpl-2", "kind": "reply_clue", "content": "You are {{npc.name}}."}
  ]
}`

func TestReadBundle(t *testing.T) {
	b, err := ReadBundle(strings.NewReader(sampleBundle))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Script.ID != "script-1" || b.NPC.Name != "Mrs. Hudson" {
		t.Errorf("unexpected script/npc: %+v %+v", b.Script, b.NPC)
	}
	if len(b.Clues) != 2 {
		t.Fatalf("expected 2 clues, got %d", len(b.Clues))
	}
	if b.Script.Truth["culprit"] != "butler" {
		t.Errorf("truth object must survive decoding, got %v", b.Script.Truth)
	}

	// Implicit owning ids are filled from the bundle.
	for _, c := range b.Clues {
		if c.ScriptID != "script-1" || c.NPCID != "npc-1" {
			t.Errorf("clue %s missing owning ids: script=%q npc=%q", c.ID, c.ScriptID, c.NPCID)
		}
	}
}

func TestReadBundleErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"no script section", `{"npc": {"id": "n"}, "clues": [{"id": "c"}]}`, ErrMissingScript},
		{"no clues", `{"script": {"id": "s"}, "clues": []}`, ErrEmptyBundle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBundle(strings.NewReader(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := ReadBundle(strings.NewReader("not json")); err == nil {
		t.Error("expected a decode error")
	}
}

func TestBundleTemplateLookup(t *testing.T) {
	b, err := ReadBundle(strings.NewReader(sampleBundle))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tpl := b.Template("tpl-2"); tpl == nil || tpl.Kind != "reply_clue" {
		t.Errorf("unexpected template by id: %+v", tpl)
	}
	if tpl := b.Template("missing"); tpl != nil {
		t.Errorf("expected nil for unknown id, got %+v", tpl)
	}
	if tpl := b.TemplateByKind("matching"); tpl == nil || tpl.ID != "tpl-1" {
		t.Errorf("unexpected template by kind: %+v", tpl)
	}
	if tpl := b.TemplateByKind("reply_no_clue"); tpl != nil {
		t.Errorf("expected nil for absent kind, got %+v", tpl)
	}
}

func TestMatchableText(t *testing.T) {
	c := Clue{Name: "The Knife"}
	if got := c.MatchableText(); got != "The Knife" {
		t.Errorf("expected name fallback, got %q", got)
	}

	c.Detail = "found under the sink"
	if got := c.MatchableText(); got != "found under the sink" {
		t.Errorf("expected detail over name, got %q", got)
	}

	c.TriggerSemanticSummary = "a bloodstained knife"
	if got := c.MatchableText(); got != "a bloodstained knife" {
		t.Errorf("expected summary first, got %q", got)
	}
}
