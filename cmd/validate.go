package cmd

import (
	"fmt"
	"strings"

	"github.com/Storyloom-Labs/intrigue/internal/cluegraph"
	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [script.json]",
	Short: "Validate a script's clue dependency graph",
	Long: `Validate a script bundle's clue graph and report structural findings.

Findings include:
- Cycles in the prerequisite edges
- Dead clues (unreachable from any root clue)
- Orphan clues (no prerequisites and nothing depends on them)
- Self-referencing prerequisites
- Root clue count warnings

Examples:
  intrigue validate mystery.json
  intrigue validate mystery.json --min-roots 2`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var (
	minRoots     int
	softMaxRoots int
	hardMaxRoots int
)

func init() {
	rootCmd.AddCommand(validateCmd)
	defaults := cluegraph.DefaultPolicy()
	validateCmd.Flags().IntVar(&minRoots, "min-roots", defaults.MinRoots, "Warn when fewer root clues than this")
	validateCmd.Flags().IntVar(&softMaxRoots, "soft-max-roots", defaults.SoftMaxRoots, "Warn when more root clues than this")
	validateCmd.Flags().IntVar(&hardMaxRoots, "hard-max-roots", defaults.HardMaxRoots, "Strongly warn when more root clues than this")
}

func runValidate(cmd *cobra.Command, args []string) error {
	bundle, err := script.LoadBundle(args[0])
	if err != nil {
		return fmt.Errorf("failed to load script bundle: %w", err)
	}

	graph := cluegraph.New(bundle.Clues)
	report := graph.ValidateWithPolicy(cluegraph.Policy{
		MinRoots:     minRoots,
		SoftMaxRoots: softMaxRoots,
		HardMaxRoots: hardMaxRoots,
	})

	printReport(bundle, report)

	if !report.Valid {
		return fmt.Errorf("script %q has an invalid clue graph", bundle.Script.Name)
	}
	return nil
}

func printReport(bundle *script.Bundle, report cluegraph.Report) {
	// LipGloss signature purple/pink palette
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink/magenta
		labelColor   = lipgloss.Color("#BD93F9") // Purple
		valueColor   = lipgloss.Color("#E9E9F4") // Light purple/white
		borderColor  = lipgloss.Color("#6272A4") // Muted purple
		errorColor   = lipgloss.Color("#FF5555") // Red
		warnColor    = lipgloss.Color("#F1FA8C") // Yellow
		successColor = lipgloss.Color("#50FA7B") // Green
	)

	const (
		labelWidth = 18
		valueWidth = 52
	)

	headerStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)
	labelStyle := lipgloss.NewStyle().
		Foreground(labelColor).
		Padding(0, 1).
		Width(labelWidth)
	valueStyle := lipgloss.NewStyle().
		Foreground(valueColor).
		Padding(0, 1).
		Width(valueWidth)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	errorStyle := lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(warnColor)
	successStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)

	fmt.Println()
	fmt.Println(headerStyle.Render(fmt.Sprintf("Clue graph: %s", bundle.Script.Name)))
	fmt.Println(borderStyle.Render(strings.Repeat("─", labelWidth+valueWidth+2)))

	row := func(label, value string) {
		fmt.Println(labelStyle.Render(label) + borderStyle.Render("│") + valueStyle.Render(value))
	}

	row("Clues", fmt.Sprintf("%d", report.ClueCount))
	row("Root clues", joinOrNone(report.RootClues))
	row("Orphan clues", joinOrNone(report.OrphanClues))
	row("Self-prereqs", joinOrNone(report.SelfPrereqs))
	row("Dead clues", joinOrNone(report.DeadClues))

	if len(report.Cycles) == 0 {
		row("Cycles", "none")
	} else {
		for i, cycle := range report.Cycles {
			row(fmt.Sprintf("Cycle %d", i+1), strings.Join(cycle, " → "))
		}
	}

	fmt.Println()
	for _, w := range report.Warnings {
		fmt.Println(warnStyle.Render("⚠ " + w))
	}

	if report.Valid {
		fmt.Println(successStyle.Render("✓ Graph is valid"))
	} else {
		fmt.Println(errorStyle.Render("✗ Graph is invalid"))
	}
	fmt.Println()
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
