package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "OTVET_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "OTVET_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "claude.api_key", typ: kString, env: "OTVET_CLAUDE_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Claude.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Claude.APIKey },
	},
	{
		key: "claude.model", typ: kString, env: "OTVET_CLAUDE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Claude.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Claude.Model },
	},
	{
		key: "claude.base_url", typ: kString, env: "OTVET_CLAUDE_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Claude.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Claude.BaseURL },
	},
	{
		key: "search.api_key", typ: kString, env: "OTVET_PERPLEXITY_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Search.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.APIKey },
	},
	{
		key: "search.model", typ: kString, env: "OTVET_SEARCH_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Search.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.Model },
	},
	{
		key: "search.fallback_model", typ: kString, env: "OTVET_SEARCH_FALLBACK_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Search.FallbackModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.FallbackModel },
	},
	{
		key: "search.base_url", typ: kString, env: "OTVET_SEARCH_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Search.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.BaseURL },
	},
	{
		key: "agent.search_policy", typ: kString, env: "OTVET_AGENT_SEARCH_POLICY",
		apply:   func(cfg *Config, v any) { cfg.Agent.SearchPolicy = v.(string) },
		extract: func(cfg Config) any { return cfg.Agent.SearchPolicy },
	},
	{
		key: "agent.test_mode", typ: kBool, env: "OTVET_AGENT_TEST_MODE",
		apply:   func(cfg *Config, v any) { cfg.Agent.TestMode = v.(bool) },
		extract: func(cfg Config) any { return cfg.Agent.TestMode },
	},
	{
		key: "storage.data_dir", typ: kString, env: "OTVET_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "OTVET_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
