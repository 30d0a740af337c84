package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrEmptyBundle   = errors.New("script bundle has no clues")
	ErrMissingScript = errors.New("script bundle has no script section")
)

// Bundle is the JSON document the CLI consumes: one script, its NPC, the full
// clue set, and any authored templates. In a deployed system this data comes
// from the content-management layer instead.
type Bundle struct {
	Script    Script           `json:"script"`
	NPC       NPC              `json:"npc"`
	Clues     []Clue           `json:"clues"`
	Templates []PromptTemplate `json:"templates,omitempty"`
}

// LoadBundle reads and validates a script bundle from a JSON file.
func LoadBundle(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script bundle: %w", err)
	}
	defer f.Close()

	return ReadBundle(f)
}

// ReadBundle decodes a script bundle from a reader.
func ReadBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	dec := json.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode script bundle: %w", err)
	}

	if b.Script.ID == "" {
		return nil, ErrMissingScript
	}
	if len(b.Clues) == 0 {
		return nil, ErrEmptyBundle
	}

	// Fill owning ids left implicit in hand-written bundles.
	for i := range b.Clues {
		if b.Clues[i].ScriptID == "" {
			b.Clues[i].ScriptID = b.Script.ID
		}
		if b.Clues[i].NPCID == "" {
			b.Clues[i].NPCID = b.NPC.ID
		}
	}

	return &b, nil
}

// Template returns the template with the given id, or nil if absent.
func (b *Bundle) Template(id string) *PromptTemplate {
	for i := range b.Templates {
		if b.Templates[i].ID == id {
			return &b.Templates[i]
		}
	}
	return nil
}

// TemplateByKind returns the first template of the given kind, or nil.
func (b *Bundle) TemplateByKind(kind string) *PromptTemplate {
	for i := range b.Templates {
		if b.Templates[i].Kind == kind {
			return &b.Templates[i]
		}
	}
	return nil
}
