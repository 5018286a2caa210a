package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "otvet",
	Short: "Personal assistant that answers questions, searching the web when needed",
	Long: `otvet is a conversational assistant backed by Claude. It decides per query
whether fresh information from the web is required, fetches it through
Perplexity, and keeps every exchange in a local SQLite history.

Run "otvet serve" to expose the HTTP API and MCP transport, or "otvet chat"
for an interactive session in the terminal.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(testModeCmd)
	rootCmd.AddCommand(scenariosCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
