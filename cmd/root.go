package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "intrigue",
	Short: "Intrigue - Clue matching engine for narrative games",
	Long: `Intrigue decides which hidden story clues a player's message should reveal.

It validates a script's clue dependency graph, scores eligible clues against
the message with a pluggable strategy (keyword, embedding, or LLM-judged),
and can draft the NPC's in-character reply.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
