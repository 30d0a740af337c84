package cluegraph

import (
	"fmt"
)

// Policy holds the tunable bounds for validation warnings. The numbers are
// product guidance, not hard law, so they live in a config rather than in the
// checks themselves.
type Policy struct {
	// MinRoots is the root-clue count below which players may struggle to
	// find an entry point into the script.
	MinRoots int

	// SoftMaxRoots is the root-clue count above which the opening turn risks
	// information overload.
	SoftMaxRoots int

	// HardMaxRoots is the root-clue count above which consolidation is
	// recommended.
	HardMaxRoots int
}

// DefaultPolicy returns the standard warning bounds.
func DefaultPolicy() Policy {
	return Policy{
		MinRoots:     3,
		SoftMaxRoots: 8,
		HardMaxRoots: 10,
	}
}

// Report bundles every validation finding for a script's clue graph. Findings
// are structured data for the caller to act on, never errors. A script is
// valid iff it has zero cycles and zero dead clues; orphans, self-references
// and warnings are advisory.
type Report struct {
	Valid bool `json:"valid"`

	Cycles      [][]string `json:"cycles,omitempty"`
	DeadClues   []string   `json:"dead_clues,omitempty"`
	OrphanClues []string   `json:"orphan_clues,omitempty"`
	SelfPrereqs []string   `json:"self_prereqs,omitempty"`
	RootClues   []string   `json:"root_clues,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`

	ClueCount int `json:"clue_count"`
}

// Validate runs every structural check with the default policy.
func (g *Graph) Validate() Report {
	return g.ValidateWithPolicy(DefaultPolicy())
}

// ValidateWithPolicy runs cycle, dead-clue, orphan and self-reference
// detection plus root-count warnings under the given bounds.
func (g *Graph) ValidateWithPolicy(policy Policy) Report {
	roots := g.RootClues()

	report := Report{
		Cycles:      g.DetectCycles(),
		DeadClues:   g.DeadClues(roots),
		OrphanClues: g.OrphanClues(),
		SelfPrereqs: g.SelfPrereqs(),
		RootClues:   roots,
		ClueCount:   len(g.clues),
	}

	if len(roots) < policy.MinRoots {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"only %d root clue(s): players may struggle to start", len(roots)))
	}
	if len(roots) > policy.SoftMaxRoots {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%d root clues risks information overload in the opening turns", len(roots)))
	}
	if len(roots) > policy.HardMaxRoots {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%d root clues: consider consolidating related starting clues", len(roots)))
	}

	report.Valid = len(report.Cycles) == 0 && len(report.DeadClues) == 0
	return report
}
