package template

import (
	"reflect"
	"strings"
	"testing"
)

func TestRenderNoVariables(t *testing.T) {
	tmpl := "You are a suspicious butler. Answer in character."

	got := Render(tmpl, map[string]any{"clue": map[string]any{"name": "Knife"}})

	if got.Content != tmpl {
		t.Errorf("expected content unchanged, got %q", got.Content)
	}
	if len(got.Unresolved) != 0 {
		t.Errorf("expected no unresolved variables, got %v", got.Unresolved)
	}
	if len(got.Segments) != 1 || got.Segments[0].Type != SegmentTemplate {
		t.Errorf("expected a single template segment, got %+v", got.Segments)
	}
}

func TestRenderSimplePath(t *testing.T) {
	got := Render("{{clue.name}}", map[string]any{
		"clue": map[string]any{"name": "Knife"},
	})

	if got.Content != "Knife" {
		t.Errorf("expected %q, got %q", "Knife", got.Content)
	}
	if len(got.Unresolved) != 0 {
		t.Errorf("expected no unresolved variables, got %v", got.Unresolved)
	}
}

func TestRenderMissingPath(t *testing.T) {
	got := Render("{{clue.missing}}", map[string]any{
		"clue": map[string]any{"name": "Knife"},
	})

	if got.Content != "" {
		t.Errorf("expected empty content, got %q", got.Content)
	}
	if !reflect.DeepEqual(got.Unresolved, []string{"clue.missing"}) {
		t.Errorf("expected unresolved [clue.missing], got %v", got.Unresolved)
	}
	if len(got.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", got.Warnings)
	}
}

func TestRenderStructContext(t *testing.T) {
	type npc struct {
		Name       string `json:"name"`
		Background string `json:"background"`
	}

	got := Render("{{npc.name}} ({{npc.background}})", map[string]any{
		"npc": &npc{Name: "Ms. Vane", Background: "former surgeon"},
	})

	if got.Content != "Ms. Vane (former surgeon)" {
		t.Errorf("unexpected content: %q", got.Content)
	}
}

func TestRenderListFormats(t *testing.T) {
	ctx := map[string]any{
		"clue": map[string]any{
			"trigger_keywords": []string{"knife", "blood"},
		},
	}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"default numbered", "{{clue.trigger_keywords}}", "1. knife\n2. blood"},
		{"list", "{{clue.trigger_keywords|list}}", "1. knife\n2. blood"},
		{"comma", "{{clue.trigger_keywords|comma}}", "knife, blood"},
		{"bullet", "{{clue.trigger_keywords|bullet}}", "• knife\n• blood"},
		{"dash", "{{clue.trigger_keywords|dash}}", "- knife\n- blood"},
		{"newline", "{{clue.trigger_keywords|newline}}", "knife\nblood"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.tmpl, ctx)
			if got.Content != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.Content)
			}
		})
	}
}

func TestRenderMapValue(t *testing.T) {
	got := Render("{{script.truth}}", map[string]any{
		"script": map[string]any{
			"truth": map[string]any{"weapon": "knife", "culprit": "butler"},
		},
	})

	// Pairs are joined sorted for deterministic output.
	if got.Content != "culprit: butler, weapon: knife" {
		t.Errorf("unexpected map rendering: %q", got.Content)
	}
}

func TestRenderSegmentTrace(t *testing.T) {
	got := Render("Clue: {{clue.name}} ({{clue.gone}})", map[string]any{
		"clue": map[string]any{"name": "Knife"},
	})

	want := []Segment{
		{Type: SegmentTemplate, Text: "Clue: "},
		{Type: SegmentVariable, Text: "Knife", Variable: "clue.name", Resolved: true},
		{Type: SegmentTemplate, Text: " ("},
		{Type: SegmentVariable, Text: "", Variable: "clue.gone", Resolved: false},
		{Type: SegmentTemplate, Text: ")"},
	}

	if !reflect.DeepEqual(got.Segments, want) {
		t.Errorf("segment trace mismatch:\ngot  %+v\nwant %+v", got.Segments, want)
	}
	if got.Content != "Clue: Knife ()" {
		t.Errorf("unexpected content: %q", got.Content)
	}
}

func TestRenderMalformedPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"unterminated", "hello {{clue.name", "hello {{clue.name"},
		{"empty", "x{{}}y", "x{{}}y"},
		{"bad identifier", "{{clue..name}}", "{{clue..name}}"},
		{"unknown format", "{{clue.name|table}}", "{{clue.name|table}}"},
		{"leading digit", "{{2fast}}", "{{2fast}}"},
	}

	ctx := map[string]any{"clue": map[string]any{"name": "Knife"}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.tmpl, ctx)
			if got.Content != tt.want {
				t.Errorf("expected literal pass-through %q, got %q", tt.want, got.Content)
			}
			if len(got.Unresolved) != 0 {
				t.Errorf("malformed placeholders must not count as unresolved, got %v", got.Unresolved)
			}
		})
	}
}

func TestExtractVariables(t *testing.T) {
	tmpl := "{{npc.name}} knows {{clue.name}}; again {{npc.name}} and {{broken"

	got := ExtractVariables(tmpl)
	want := []string{"clue.name", "npc.name"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestValidateVariables(t *testing.T) {
	allowed := []string{"clue", "npc", "script", "player_input", "now", "unlocked_clues"}

	ok, errs := ValidateVariables("{{clue.name}} at {{now}}", allowed)
	if !ok || len(errs) != 0 {
		t.Errorf("expected valid template, got errors %v", errs)
	}

	ok, errs = ValidateVariables("{{secret.weapon}} and {{clue.name}}", allowed)
	if ok {
		t.Error("expected validation failure for unknown root")
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "secret") {
		t.Errorf("expected one error naming the bad root, got %v", errs)
	}
}

func TestRenderScalarTypes(t *testing.T) {
	got := Render("{{count}} clues, has_clue={{has_clue}}, ratio={{ratio}}", map[string]any{
		"count":    3,
		"has_clue": true,
		"ratio":    0.5,
	})

	if got.Content != "3 clues, has_clue=true, ratio=0.5" {
		t.Errorf("unexpected scalar rendering: %q", got.Content)
	}
}
