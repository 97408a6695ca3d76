// Package config provides application configuration loaded from the
// environment. Adapter credentials are read here once and injected at
// construction time; no other package reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	MetricsPort int

	// Search provider
	SerperAPIKey   string
	SerperEndpoint string
	SearchLimit    int

	// Scrape provider
	FirecrawlAPIKey   string
	FirecrawlEndpoint string
	MaxCrawlPages     int
	CrawlPollInterval time.Duration
	CrawlPollBudget   time.Duration

	// LLM provider
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	// Result sink
	WebhookURL     string
	StorageBackend string // "sqlite", "postgres" or "json"
	SQLitePath     string
	PostgresDSN    string
	JSONPath       string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnvInt("METRICS_PORT", 9090),

		SerperAPIKey:   getEnv("SERPER_API_KEY", ""),
		SerperEndpoint: getEnv("SERPER_ENDPOINT", "https://google.serper.dev/search"),
		SearchLimit:    getEnvInt("SEARCH_LIMIT", 5),

		FirecrawlAPIKey:   getEnv("FIRECRAWL_API_KEY", ""),
		FirecrawlEndpoint: getEnv("FIRECRAWL_ENDPOINT", "https://api.firecrawl.dev/v1"),
		MaxCrawlPages:     getEnvInt("MAX_CRAWL_PAGES", 15),
		CrawlPollInterval: getEnvDuration("CRAWL_POLL_INTERVAL", 2*time.Second),
		CrawlPollBudget:   getEnvDuration("CRAWL_POLL_BUDGET", 90*time.Second),

		LLMAPIKey:  getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL: getEnv("LLM_BASE_URL", ""),
		LLMModel:   getEnv("LLM_MODEL", "gpt-4o"),

		WebhookURL:     getEnv("N8N_WEBHOOK_URL", ""),
		StorageBackend: getEnv("STORAGE_BACKEND", "sqlite"),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/dossier.db"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		JSONPath:       getEnv("JSON_PATH", "./data/records.json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration consistency. Missing provider keys are not
// fatal here: adapters degrade to their fallback tiers without them, and the
// startup preflight logs what is unavailable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be > 0")
	}
	if c.MaxCrawlPages <= 0 {
		return fmt.Errorf("MAX_CRAWL_PAGES must be > 0")
	}
	switch c.StorageBackend {
	case "sqlite", "postgres", "json":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of sqlite, postgres, json; got %q", c.StorageBackend)
	}
	if c.StorageBackend == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
