package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ameleshko/otvet/internal/agent"
	"github.com/ameleshko/otvet/internal/api"
	"github.com/ameleshko/otvet/internal/composer"
	"github.com/ameleshko/otvet/internal/config"
	"github.com/ameleshko/otvet/internal/llm"
	"github.com/ameleshko/otvet/internal/search"
	"github.com/ameleshko/otvet/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the otvet server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running otvet server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show otvet system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "otvet.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch {
	case strings.EqualFold(level, "debug"):
		logLevel = slog.LevelDebug
	case strings.EqualFold(level, "warn"):
		logLevel = slog.LevelWarn
	case strings.EqualFold(level, "error"):
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// buildAgent assembles the query pipeline from config. The search client is
// omitted when no Perplexity key is configured, in which case every answer
// comes from the model's own knowledge.
func buildAgent(cfg config.Config) *agent.Agent {
	llmClient := llm.NewClientWithBaseURL(cfg.Claude.APIKey, cfg.Claude.Model, cfg.Claude.BaseURL)

	var searcher agent.Searcher
	if cfg.Search.APIKey != "" {
		searcher = search.NewClientWithBaseURL(cfg.Search.APIKey, cfg.Search.Model, cfg.Search.FallbackModel, cfg.Search.BaseURL)
	} else {
		slog.Warn("no Perplexity API key configured, web search disabled")
	}

	policy := agent.PolicyByName(cfg.Agent.SearchPolicy, llmClient)
	comp := composer.New(cfg.Search.Model)
	return agent.New(policy, searcher, llmClient, comp, "")
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "otvet version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	setupLogging(cfg.Log.Level)

	// Refuse to start a second instance. The health probe catches a live
	// server even when a stale PID file is left behind.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("otvet is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("otvet is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	testMode := &atomic.Bool{}
	testMode.Store(cfg.Agent.TestMode)
	if cfg.Agent.TestMode {
		slog.Info("test mode enabled, external APIs will not be called")
	}

	appHandler := api.NewAppHandler(api.AppDeps{
		Agent:    ag,
		Store:    store,
		TestMode: testMode,
		Token:    cfg.Server.Token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Agent:    ag,
		Store:    store,
		TestMode: testMode.Load,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "otvet listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("MCP server started (stdio transport)")
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("otvet is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop otvet (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to otvet (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Claude model", "%s", cfg.Claude.Model)
	printStatus("Search model", "%s", cfg.Search.Model)
	printStatus("Search policy", "%s", cfg.Agent.SearchPolicy)
	if cfg.Search.APIKey == "" {
		printStatus("Web search", "disabled (no API key)")
	}

	if running {
		if tmResp, err := apiGet(client, serverURL+"/test_mode", cfg.Server.Token); err == nil {
			var tm struct {
				TestMode bool `json:"test_mode"`
			}
			if json.NewDecoder(tmResp.Body).Decode(&tm) == nil {
				printStatus("Test mode", "%t", tm.TestMode)
			}
			tmResp.Body.Close()
		}
		if histResp, err := apiGet(client, serverURL+"/history?limit=100", cfg.Server.Token); err == nil {
			var chats []json.RawMessage
			if json.NewDecoder(histResp.Body).Decode(&chats) == nil {
				printStatus("Chats", "%s", countLabel(len(chats), 100))
			}
			histResp.Body.Close()
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}

func apiGet(client *http.Client, url, token string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return client.Do(req)
}
