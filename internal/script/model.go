// Package script defines the content model consumed by the matching engine:
// scripts, NPCs, clues, and dialogue history. The content itself is owned by
// the surrounding content-management layer; everything here is read-only input.
package script

import (
	"time"
)

// ClueType identifies how a clue's detail is presented once revealed.
type ClueType string

const (
	ClueTypeText  ClueType = "text"
	ClueTypeImage ClueType = "image"
)

// Clue is a unit of hidden story information tied to one NPC. It becomes
// eligible for matching once every prerequisite clue has been unlocked.
type Clue struct {
	ID       string   `json:"id"`
	NPCID    string   `json:"npc_id"`
	ScriptID string   `json:"script_id"`
	Name     string   `json:"name"`
	Type     ClueType `json:"type"`

	// Detail is the ground truth shown to the player once revealed.
	Detail string `json:"detail"`

	// DetailForNPC is how the NPC should phrase the clue in dialogue.
	DetailForNPC string `json:"detail_for_npc"`

	// TriggerKeywords drive the keyword strategy; order is preserved.
	TriggerKeywords []string `json:"trigger_keywords"`

	// TriggerSemanticSummary is free text used by the embedding and LLM
	// strategies when no matching template overrides it.
	TriggerSemanticSummary string `json:"trigger_semantic_summary"`

	// PrereqClueIDs lists clues that must already be unlocked. A clue must
	// never list itself here; cross-clue edges must form a DAG per script.
	PrereqClueIDs []string `json:"prereq_clue_ids"`
}

// MatchableText returns the text used for semantic matching when no template
// is configured: semantic summary, then detail, then name.
func (c *Clue) MatchableText() string {
	if c.TriggerSemanticSummary != "" {
		return c.TriggerSemanticSummary
	}
	if c.Detail != "" {
		return c.Detail
	}
	return c.Name
}

// NPC holds the descriptive fields exposed to templates. The engine never
// interprets them; they exist only as rendering context.
type NPC struct {
	ID          string `json:"id"`
	ScriptID    string `json:"script_id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Background  string `json:"background,omitempty"`
	Personality string `json:"personality,omitempty"`
}

// Script is the top-level story container.
type Script struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Intro string `json:"intro,omitempty"`

	// Truth is the hidden ground-truth object of the story, exposed to
	// templates for NPCs that are allowed to reference it.
	Truth map[string]any `json:"truth,omitempty"`
}

// DialogueTurn is one (player message, npc response) pair in a session's
// history, ordered oldest-first when retrieved.
type DialogueTurn struct {
	SessionID     string    `json:"session_id"`
	PlayerMessage string    `json:"player_message"`
	NPCResponse   string    `json:"npc_response"`
	CreatedAt     time.Time `json:"created_at"`
}

// PromptTemplate is an authored template referenced by id from a match
// request: matching templates feed the embedding/LLM strategies, reply
// templates feed the NPC response generator.
type PromptTemplate struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"` // "matching", "reply_clue", "reply_no_clue"
	Content string `json:"content"`
}
