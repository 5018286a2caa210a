package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ameleshko/otvet/internal/agent"
	"github.com/ameleshko/otvet/internal/config"
	"github.com/ameleshko/otvet/internal/storage"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat session in the terminal",
	Long: `Start an interactive chat session. The agent runs in-process, so the
server does not need to be running. Exchanges are saved to the same local
history the server uses.

Type "выход", "exit", "quit" or "q" to leave the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		testFlag, _ := cmd.Flags().GetBool("test")
		return runChat(testFlag)
	},
}

func init() {
	chatCmd.Flags().Bool("test", false, "answer with canned responses, without calling external APIs")
}

var exitWords = []string{"выход", "exit", "quit", "q"}

func isExitWord(input string) bool {
	lower := strings.ToLower(input)
	for _, w := range exitWords {
		if lower == w {
			return true
		}
	}
	return false
}

func runChat(testFlag bool) error {
	if testFlag {
		// Loading config honors this override, so a chat session can start
		// without any API keys configured.
		os.Setenv("OTVET_AGENT_TEST_MODE", "true")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	ag := buildAgent(cfg)
	opts := agent.Options{TestMode: cfg.Agent.TestMode}

	printRule()
	fmt.Println("otvet: персональный ассистент")
	printRule()
	fmt.Println("Введите 'выход' для завершения программы.")
	if opts.TestMode {
		printWarning("test mode: ответы не обращаются к внешним API")
	}
	fmt.Println()

	// The scanner blocks on stdin, so SIGINT is handled out of band.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		fmt.Println("\nДо свидания!")
		os.Exit(0)
	}()

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("Ваш запрос: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if isExitWord(input) {
			fmt.Println("До свидания!")
			return nil
		}

		printStep("Обрабатываю ваш запрос...")
		exchange, err := ag.Ask(ctx, input, opts)
		if err != nil {
			printError("%v", err)
			continue
		}
		if exchange.SearchPerformed {
			printStep("Использована актуальная информация из поиска")
		}
		printAnswer(exchange.Response)

		rec := storage.ChatRecord{
			ID:              uuid.New().String(),
			UserInput:       input,
			Response:        exchange.Response,
			SearchPerformed: exchange.SearchPerformed,
			TestMode:        opts.TestMode,
		}
		if err := store.SaveChat(rec); err != nil {
			printWarning("could not save chat: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Println("\nДо свидания!")
	return nil
}
