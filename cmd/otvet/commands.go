package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ameleshko/otvet/internal/agent"
	"github.com/ameleshko/otvet/internal/config"
)

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved chat history",
}

type chatItem struct {
	ID              string `json:"id"`
	Query           string `json:"query"`
	Response        string `json:"response"`
	SearchPerformed bool   `json:"search_performed"`
	TestMode        bool   `json:"test_mode"`
	Timestamp       string `json:"timestamp"`
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent chats",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var chats []chatItem
		if err := decodeJSON(resp, &chats); err != nil {
			return err
		}

		if len(chats) == 0 {
			fmt.Println("No chats found.")
			return nil
		}

		for _, c := range chats {
			marker := " "
			if c.SearchPerformed {
				marker = colorize(colorYellow, "s")
			}
			fmt.Printf("%s %s  %s  %s\n",
				marker,
				colorize(colorCyan, shortID(c.ID)),
				c.Timestamp,
				truncateText(c.Query, 80),
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/history/"+args[0])
		if err != nil {
			return err
		}

		var chat chatItem
		if err := decodeJSON(resp, &chat); err != nil {
			return err
		}

		printStatus("ID", "%s", chat.ID)
		printStatus("Time", "%s", chat.Timestamp)
		printStatus("Search", "%t", chat.SearchPerformed)
		if chat.TestMode {
			printStatus("Test mode", "true")
		}
		fmt.Printf("\n%s\n%s\n", colorize(colorBold, "Запрос:"), chat.Query)
		fmt.Printf("\n%s\n%s\n", colorize(colorBold, "Ответ:"), chat.Response)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a chat from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/history/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted chat %s", args[0])
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of chats to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateText(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// --- test-mode ---

var testModeCmd = &cobra.Command{
	Use:   "test-mode [on|off]",
	Short: "Show or toggle server test mode",
	Long: `Without arguments, shows whether the running server is in test mode.
With "on" or "off", switches the server default for subsequent queries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			resp, err := client.get(cmd.Context(), "/test_mode")
			if err != nil {
				return err
			}
			var state struct {
				TestMode bool `json:"test_mode"`
			}
			if err := decodeJSON(resp, &state); err != nil {
				return err
			}
			printStatus("Test mode", "%t", state.TestMode)
			return nil
		}

		var enabled bool
		switch args[0] {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return fmt.Errorf("argument must be \"on\" or \"off\", got %q", args[0])
		}

		resp, err := client.post(cmd.Context(), "/test_mode", map[string]any{"enabled": enabled})
		if err != nil {
			return err
		}
		var state struct {
			TestMode bool `json:"test_mode"`
		}
		if err := decodeJSON(resp, &state); err != nil {
			return err
		}
		printSuccess("Test mode set to %t", state.TestMode)
		return nil
	},
}

// --- scenarios ---

// testScenarios exercises the pipeline end to end: factual questions, queries
// that need fresh data, multi-topic and malformed input, and a query in
// English.
var testScenarios = []string{
	"Кто такой Александр Пушкин?",
	"Какой сейчас курс доллара к рублю?",
	"Какая погода сегодня в Москве?",
	"Расскажи о курсе биткоина и последних новостях SpaceX",
	"Какие технологии будут популярны в 2026 году?",
	"Какая капитализация у компании Apple?",
	"Составь подробный список всех запусков ракет за последний месяц с техническими характеристиками каждой миссии",
	"какие   самые  популярные   языки  программирования   в  2025  году???",
	"What is the current stock price of Google?",
	"расскажи про",
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Run built-in test scenarios through the agent",
	Long: `Run the built-in query scenarios through the in-process agent in test
mode, without calling external APIs. Useful for checking the pipeline after
configuration changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetInt("scenario")
		return runScenarios(cmd.Context(), only)
	},
}

func init() {
	scenariosCmd.Flags().Int("scenario", 0, "run only the scenario with this number (1-based)")
}

func runScenarios(ctx context.Context, only int) error {
	os.Setenv("OTVET_AGENT_TEST_MODE", "true")
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ag := buildAgent(cfg)
	opts := agent.Options{TestMode: true}

	if only < 0 || only > len(testScenarios) {
		return fmt.Errorf("scenario number must be between 1 and %d", len(testScenarios))
	}

	failed := 0
	for i, query := range testScenarios {
		n := i + 1
		if only != 0 && n != only {
			continue
		}

		printStep("Сценарий %d: %s", n, truncateText(query, 60))
		exchange, err := ag.Ask(ctx, query, opts)
		if err != nil {
			printError("Сценарий %d: %v", n, err)
			failed++
			continue
		}
		printAnswer(exchange.Response)
	}

	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	printSuccess("All scenarios completed")
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the platform config store.

Valid keys:
  ` + joinKeys(),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func joinKeys() string {
	out := ""
	for i, k := range config.ValidKeys() {
		if i > 0 {
			out += "\n  "
		}
		out += k
	}
	return out
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
