package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	// DatabaseURL is a lib/pq connection string.
	DatabaseURL string `json:"database_url"`

	RequestTimeoutSec int `json:"request_timeout_sec"`
	MaxAttempts       int `json:"max_attempts"`
	Concurrency       int `json:"concurrency"`

	// Provider selects the quote source: "ftmarkets" or "yahoofinance".
	Provider              string `json:"provider"`
	ProviderBaseURL       string `json:"provider_base_url"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	UserAgent             string `json:"user_agent"`

	// PartialPerformance switches the performance refresh from strict
	// all-or-nothing to best-effort per horizon.
	PartialPerformance bool `json:"partial_performance"`
}

func Default() Config {
	return Config{
		DatabaseURL:       "host=localhost port=5432 user=postgres dbname=portfolio sslmode=disable",
		RequestTimeoutSec: 10,
		MaxAttempts:       3,
		Concurrency:       4,
		Provider:          "ftmarkets",
		UserAgent:         "portfoliotracker/1.0",
	}
}

// Load reads JSON config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select
// fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.RequestTimeoutSec = x
		}
	}
	if v := os.Getenv("MAX_ATTEMPTS"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.MaxAttempts = x
		}
	}
	if v := os.Getenv("CONCURRENCY"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x > 0 {
			cfg.Concurrency = x
		}
	}
	if v := os.Getenv("QUOTE_PROVIDER"); v != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("QUOTE_PROVIDER_BASE_URL"); v != "" {
		cfg.ProviderBaseURL = v
	}
	if v := os.Getenv("MIN_REQUEST_INTERVAL_SEC"); v != "" {
		var x int
		fmt.Sscanf(v, "%d", &x)
		if x >= 0 {
			cfg.MinRequestIntervalSec = x
		}
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("PARTIAL_PERFORMANCE"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.PartialPerformance = true
		case "0", "false", "no", "n":
			cfg.PartialPerformance = false
		}
	}
}
