package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Server  ServerConfig
	Claude  ClaudeConfig
	Search  SearchConfig
	Agent   AgentConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type ClaudeConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type SearchConfig struct {
	APIKey        string
	Model         string
	FallbackModel string
	BaseURL       string
}

type AgentConfig struct {
	SearchPolicy string // heuristic, always, or model
	TestMode     bool
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 5001,
		},
		Claude: ClaudeConfig{
			Model:   "claude-3-haiku-20240307",
			BaseURL: "https://api.anthropic.com",
		},
		Search: SearchConfig{
			Model:         "sonar",
			FallbackModel: "sonar-pro",
			BaseURL:       "https://api.perplexity.ai",
		},
		Agent: AgentConfig{
			SearchPolicy: "heuristic",
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.otvet.app) and secrets
// fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/otvet/config.json
// and secrets must be provided via environment variables.
//
// Environment variables (OTVET_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret storage access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for API keys still empty.
	if cfg.Claude.APIKey == "" {
		if key, err := kc.Get("otvet", "claude_api_key"); err == nil && key != "" {
			cfg.Claude.APIKey = key
		}
	}
	if cfg.Search.APIKey == "" {
		if key, err := kc.Get("otvet", "perplexity_api_key"); err == nil && key != "" {
			cfg.Search.APIKey = key
		}
	}

	// Test mode answers from canned responses, so missing credentials only
	// block a real run.
	if cfg.Claude.APIKey == "" && !cfg.Agent.TestMode {
		msg := "missing required config: Claude API key. " +
			"Set it via environment variable OTVET_CLAUDE_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
