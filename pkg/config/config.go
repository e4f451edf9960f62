// Package config loads runtime configuration from the environment.
//
// All options are plain environment variables (optionally seeded from .env
// files). There is no config file tree: the engine registry and scoring
// weights are compile-time tables, and everything an operator tunes at deploy
// time fits in the variables below.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration for the sift server.
type Config struct {
	// AnthropicAPIKey authenticates the intent classifier. Required.
	AnthropicAPIKey string

	// RedisURL locates the cache/stats store, e.g. "redis://localhost:6379/0".
	RedisURL string

	// SearXNGURL is the base URL of the local meta-search backend.
	SearXNGURL string

	// CrossEncoderURL is the base URL of the cross-encoder inference sidecar.
	// Empty disables semantic re-ranking; the pipeline then always takes the
	// metadata-only degradation path.
	CrossEncoderURL string

	// CacheTTLHours is the lifetime of cached search responses.
	CacheTTLHours int

	// MaxResults is the default result limit when the caller omits one.
	MaxResults int

	// Port is the HTTP listen port.
	Port int

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// Environment selects the log format: "production" emits JSON,
	// "development" emits human-readable text.
	Environment string

	// RankingConfig optionally points at a YAML file overriding the built-in
	// authority / engine-trust / tracking-param tables. The file is watched
	// and hot-reloaded.
	RankingConfig string

	// RerankWorkers bounds concurrent cross-encoder calls. Defaults to the
	// number of CPUs.
	RerankWorkers int
}

// LoadEnvFiles loads .env.local and .env into the process environment when
// present. Missing files are not an error.
func LoadEnvFiles() error {
	envFiles := []string{".env.local", ".env"}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return nil
}

// Load reads the configuration from the environment and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SearXNGURL:      getEnv("SEARXNG_URL", "http://localhost:8888"),
		CrossEncoderURL: os.Getenv("CROSS_ENCODER_URL"),
		CacheTTLHours:   24,
		MaxResults:      8,
		Port:            7777,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		RankingConfig:   os.Getenv("RANKING_CONFIG"),
		RerankWorkers:   runtime.NumCPU(),
	}

	var err error
	if cfg.CacheTTLHours, err = intEnv("CACHE_TTL_HOURS", cfg.CacheTTLHours); err != nil {
		return nil, err
	}
	if cfg.MaxResults, err = intEnv("MAX_RESULTS", cfg.MaxResults); err != nil {
		return nil, err
	}
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if cfg.RerankWorkers, err = intEnv("RERANK_WORKERS", cfg.RerankWorkers); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks option values and required fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AnthropicAPIKey) == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.CacheTTLHours < 1 {
		return fmt.Errorf("CACHE_TTL_HOURS must be >= 1, got %d", c.CacheTTLHours)
	}
	if c.MaxResults < 1 || c.MaxResults > 20 {
		return fmt.Errorf("MAX_RESULTS must be in [1,20], got %d", c.MaxResults)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port, got %d", c.Port)
	}
	if c.RerankWorkers < 1 {
		return fmt.Errorf("RERANK_WORKERS must be >= 1, got %d", c.RerankWorkers)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
