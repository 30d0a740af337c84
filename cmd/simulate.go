package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Storyloom-Labs/intrigue/internal/llm"
	"github.com/Storyloom-Labs/intrigue/internal/match"
	"github.com/Storyloom-Labs/intrigue/internal/npc"
	"github.com/Storyloom-Labs/intrigue/internal/script"
	"github.com/Storyloom-Labs/intrigue/internal/simulator"
	"github.com/Storyloom-Labs/intrigue/internal/vector"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	strategyName string
	threshold    float64
	unlockedList string
	withReply    bool
	verbose      bool
	chatModel    string
	embedModel   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [script.json] [message]",
	Short: "Run one player message through the matching pipeline",
	Long: `Simulate one turn of dialogue: filter the script's clues by prerequisites,
score the eligible ones against the player's message, apply the trigger
policy, and optionally draft the NPC's reply.

The keyword strategy works offline. The embedding and llm strategies need:
  OPENAI_API_KEY     - OpenAI API key for embeddings and chat
  MILVUS_ADDRESS     - Milvus server address (embedding strategy only;
                       falls back to an in-memory store when unset)

Examples:
  intrigue simulate mystery.json "I found a bloody knife"
  intrigue simulate mystery.json "what about the letter?" --strategy llm --reply
  intrigue simulate mystery.json "the garden" --unlocked knife,letter --verbose`,
	Args: cobra.ExactArgs(2),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&strategyName, "strategy", "keyword", "Matching strategy: keyword, embedding, or llm")
	simulateCmd.Flags().Float64Var(&threshold, "threshold", match.DefaultThreshold, "Trigger threshold in [0,1]")
	simulateCmd.Flags().StringVar(&unlockedList, "unlocked", "", "Comma-separated ids of already unlocked clues")
	simulateCmd.Flags().BoolVar(&withReply, "reply", false, "Draft the NPC's reply for the triggered clues")
	simulateCmd.Flags().BoolVar(&verbose, "verbose", false, "Show exclusions, scores, and prompt debug")
	simulateCmd.Flags().StringVar(&chatModel, "chat-model", "gpt-4o", "Chat model for the llm strategy and replies")
	simulateCmd.Flags().StringVar(&embedModel, "embed-model", "text-embedding-3-large", "Embedding model for the embedding strategy")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	bundle, err := script.LoadBundle(args[0])
	if err != nil {
		return fmt.Errorf("failed to load script bundle: %w", err)
	}
	message := args[1]
	ctx := context.Background()

	registry := buildRegistry()
	store, cleanup, err := buildStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sim := simulator.New(registry, store, npc.NewMemoryHistory(0))

	unlocked := make(map[string]bool)
	for _, id := range strings.Split(unlockedList, ",") {
		if id = strings.TrimSpace(id); id != "" {
			unlocked[id] = true
		}
	}

	req := &simulator.Request{
		Clues:          bundle.Clues,
		NPC:            &bundle.NPC,
		Script:         &bundle.Script,
		PlayerMessage:  message,
		UnlockedIDs:    unlocked,
		Strategy:       match.StrategyType(strategyName),
		Threshold:      &threshold,
		Reply:          withReply,
		ClueTemplate:   bundle.TemplateByKind("reply_clue"),
		NoClueTemplate: bundle.TemplateByKind("reply_no_clue"),
		MatchTemplate:  bundle.TemplateByKind("matching"),
	}

	result, err := sim.Simulate(ctx, req)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	printResult(message, result)
	return nil
}

// buildRegistry assembles model configurations from the environment. Without
// an API key the registry stays empty and the strategies degrade to keyword
// matching.
func buildRegistry() *llm.Registry {
	registry := llm.NewRegistry()
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return registry
	}

	registry.Add(
		llm.ModelConfig{
			ID:          "default-chat",
			Name:        "Default chat model",
			Type:        llm.ModelTypeChat,
			APIKey:      apiKey,
			Model:       chatModel,
			Temperature: 0.7,
			MaxTokens:   2000,
			IsDefault:   true,
		},
		llm.ModelConfig{
			ID:        "default-embedding",
			Name:      "Default embedding model",
			Type:      llm.ModelTypeEmbedding,
			APIKey:    apiKey,
			Model:     embedModel,
			Dimension: 3072,
			IsDefault: true,
		},
	)
	return registry
}

// buildStore connects to Milvus when an address is configured, otherwise
// serves the embedding strategy from memory.
func buildStore(ctx context.Context) (vector.SessionStore, func(), error) {
	if os.Getenv("MILVUS_ADDRESS") == "" {
		store := vector.NewMemoryStore()
		return store, func() {}, nil
	}

	store, err := vector.NewMilvusStore(ctx, vector.DefaultMilvusConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

func printResult(message string, result *simulator.Result) {
	var (
		headerColor  = lipgloss.Color("#F780FF") // Bright pink
		messageColor = lipgloss.Color("#8BE9FD") // Cyan
		clueColor    = lipgloss.Color("#BD93F9") // Purple
		textColor    = lipgloss.Color("#E9E9F4") // Light purple/white
		mutedColor   = lipgloss.Color("#6272A4") // Muted purple
		successColor = lipgloss.Color("#50FA7B") // Green
	)

	headerStyle := lipgloss.NewStyle().Foreground(headerColor).Bold(true)
	messageStyle := lipgloss.NewStyle().Foreground(messageColor).Italic(true)
	clueStyle := lipgloss.NewStyle().Foreground(clueColor).Bold(true)
	textStyle := lipgloss.NewStyle().Foreground(textColor)
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
	successStyle := lipgloss.NewStyle().Foreground(successColor)

	fmt.Println()
	fmt.Println(headerStyle.Render("Player:"))
	fmt.Println(messageStyle.Render(message))
	fmt.Println()

	d := result.Debug
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d clues, %d eligible, %d excluded, threshold %.2f",
		d.TotalClues, d.EligibleClues, d.ExcludedClues, d.Threshold)))

	if verbose {
		for _, ex := range d.Exclusions {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("  excluded %s: missing %s",
				ex.ClueID, strings.Join(ex.MissingPrereqIDs, ", "))))
		}
		if d.Strategy != nil {
			if d.Strategy.FallbackTo != "" {
				fmt.Println(mutedStyle.Render(fmt.Sprintf("  fell back to %s", d.Strategy.FallbackTo)))
			}
			for _, note := range d.Strategy.Notes {
				fmt.Println(mutedStyle.Render("  " + note))
			}
			if d.Strategy.SystemPrompt != "" {
				fmt.Println(mutedStyle.Render("  system prompt:"))
				for _, line := range strings.Split(d.Strategy.SystemPrompt, "\n") {
					fmt.Println(mutedStyle.Render("    " + line))
				}
			}
		}
	}
	fmt.Println()

	if len(result.MatchedClues) == 0 {
		fmt.Println(textStyle.Render("No clues matched."))
	} else {
		fmt.Println(headerStyle.Render("Matches:"))
		for _, r := range result.MatchedClues {
			marker := "  "
			if r.IsTriggered {
				marker = successStyle.Render("✓ ")
			}
			line := fmt.Sprintf("%s%s %s", marker, clueStyle.Render(r.Clue.Name),
				textStyle.Render(fmt.Sprintf("(%.2f)", r.Score)))
			fmt.Println(line)
			if verbose {
				for _, reason := range r.Reasons {
					fmt.Println(mutedStyle.Render("    " + reason))
				}
			}
		}
	}

	if result.NPCResponse != nil {
		fmt.Println()
		fmt.Println(headerStyle.Render("NPC:"))
		fmt.Println(textStyle.Render(result.NPCResponse.Text))
		if verbose {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("(%d tokens, %dms)",
				result.NPCResponse.Usage.TotalTokens, result.NPCResponse.Usage.LatencyMS)))
		}
	}
	fmt.Println()
}
