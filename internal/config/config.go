// Package config loads runtime settings from the environment (optionally a
// .env file) and the curated source lists from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"

	DefaultSourcesConfigPath = "configs/sources.yaml"
)

type Config struct {
	// Classifier settings
	ClassifierProvider    string // gemini | openai | none
	ClassifierModel       string
	GeminiAPIKey          string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	MaxClassifierRequests int // daily budget, 0 = unlimited
	ClassifierBatchCap    int
	ClassifierTimeout     time.Duration
	RetryAttempts         int
	RetryDelay            time.Duration

	// Source settings
	NewsAPIKey        string
	SourcesConfigPath string
	RecencyWindow     time.Duration
	FetchConcurrency  int
	RunDeadline       time.Duration
	EnoughCandidates  int // 0 disables early stop
	EnrichLimit       int // pages fetched for missing descriptions, 0 disables

	// Selection settings
	TechItemsCount   int
	SportsItemsCount int
	BoostClamp       float64 // 0 disables clamping

	// Storage settings
	DatabaseURL string
	StoreFile   string

	// App settings
	Debug                bool
	EnableHTTPMonitoring bool
	MonitoringPort       string

	Sources Sources
}

// Load reads .env (when present), the environment and the sources file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Default values
		MaxClassifierRequests: 50,
		ClassifierBatchCap:    80,
		ClassifierTimeout:     90 * time.Second,
		RetryAttempts:         2,
		RetryDelay:            2 * time.Second,
		SourcesConfigPath:     DefaultSourcesConfigPath,
		RecencyWindow:         168 * time.Hour,
		FetchConcurrency:      4,
		RunDeadline:           5 * time.Minute,
		EnrichLimit:           20,
		TechItemsCount:        30,
		SportsItemsCount:      30,
		StoreFile:             "news_articles.json",
		MonitoringPort:        "8080",
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	cfg.NewsAPIKey = os.Getenv("NEWSAPI_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.ClassifierModel = getEnvOrDefault("CLASSIFIER_MODEL", cfg.ClassifierModel)
	cfg.ClassifierProvider = strings.ToLower(getEnvOrDefault("CLASSIFIER_PROVIDER", cfg.defaultProvider()))
	cfg.StoreFile = getEnvOrDefault("STORE_FILE", cfg.StoreFile)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	sourcesPath, explicit := os.LookupEnv("SOURCES_CONFIG")
	if explicit {
		cfg.SourcesConfigPath = sourcesPath
	}

	cfg.RecencyWindow = time.Duration(getEnvIntOrDefault("RECENCY_WINDOW_HOURS", 168)) * time.Hour
	cfg.TechItemsCount = getEnvIntOrDefault("TECH_ITEMS_COUNT", cfg.TechItemsCount)
	cfg.SportsItemsCount = getEnvIntOrDefault("SPORTS_ITEMS_COUNT", cfg.SportsItemsCount)
	cfg.ClassifierBatchCap = getEnvIntOrDefault("CLASSIFIER_BATCH_CAP", cfg.ClassifierBatchCap)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.EnoughCandidates = getEnvIntOrDefault("ENOUGH_CANDIDATES", cfg.EnoughCandidates)
	cfg.EnrichLimit = getEnvIntOrDefault("ENRICH_LIMIT", cfg.EnrichLimit)
	cfg.RetryAttempts = getEnvIntOrDefault("CLASSIFIER_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.MaxClassifierRequests = getEnvIntOrDefault("MAX_CLASSIFIER_REQUESTS", cfg.MaxClassifierRequests)
	cfg.ClassifierTimeout = getEnvDurationOrDefault("CLASSIFIER_TIMEOUT", cfg.ClassifierTimeout)
	cfg.RetryDelay = getEnvDurationOrDefault("CLASSIFIER_RETRY_DELAY", cfg.RetryDelay)
	cfg.RunDeadline = getEnvDurationOrDefault("RUN_DEADLINE", cfg.RunDeadline)

	if v := os.Getenv("BOOST_CLAMP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.BoostClamp = f
		}
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		cfg.EnableHTTPMonitoring = true
	}

	src, err := LoadSources(cfg.SourcesConfigPath)
	switch {
	case err == nil:
		cfg.Sources = src
	case errors.Is(err, os.ErrNotExist) && !explicit:
		cfg.Sources = DefaultSources()
	default:
		return nil, err
	}
	cfg.applyCounts()

	return cfg, cfg.Validate()
}

// defaultProvider picks the first classifier with a key.
func (c *Config) defaultProvider() string {
	switch {
	case c.GeminiAPIKey != "":
		return ProviderGemini
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI
	default:
		return ProviderNone
	}
}

// applyCounts lets TECH_ITEMS_COUNT / SPORTS_ITEMS_COUNT override the feeds
// named tech and sports.
func (c *Config) applyCounts() {
	for i := range c.Sources.Feeds {
		switch c.Sources.Feeds[i].Name {
		case "tech":
			c.Sources.Feeds[i].Count = c.TechItemsCount
		case "sports":
			c.Sources.Feeds[i].Count = c.SportsItemsCount
		}
	}
}

// LoadSources reads a YAML sources file. Sections left out of the file keep
// their defaults.
func LoadSources(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("failed to read sources config %s: %w", path, err)
	}
	var src Sources
	if err := yaml.Unmarshal(data, &src); err != nil {
		return Sources{}, fmt.Errorf("failed to parse sources config %s: %w", path, err)
	}
	return src.withDefaults(DefaultSources()), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s") or plain seconds ("90").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func (c *Config) Validate() error {
	switch c.ClassifierProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for CLASSIFIER_PROVIDER=gemini")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for CLASSIFIER_PROVIDER=openai")
		}
	case ProviderNone:
	default:
		return fmt.Errorf("CLASSIFIER_PROVIDER must be gemini, openai or none, got %q", c.ClassifierProvider)
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("RECENCY_WINDOW_HOURS must be positive")
	}
	if c.TechItemsCount <= 0 || c.SportsItemsCount <= 0 {
		return fmt.Errorf("item counts must be positive")
	}
	if c.ClassifierBatchCap <= 0 {
		return fmt.Errorf("CLASSIFIER_BATCH_CAP must be positive")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}
	if c.EnoughCandidates < 0 {
		return fmt.Errorf("ENOUGH_CANDIDATES must not be negative")
	}
	if c.EnrichLimit < 0 {
		return fmt.Errorf("ENRICH_LIMIT must not be negative")
	}
	if c.DatabaseURL == "" && c.StoreFile == "" {
		return fmt.Errorf("DATABASE_URL or STORE_FILE is required")
	}
	if err := c.Sources.Validate(); err != nil {
		return fmt.Errorf("sources config: %w", err)
	}
	for _, f := range c.Pipeline().Feeds {
		if err := f.Constraint.Validate(); err != nil {
			return fmt.Errorf("feed %q: %w", f.Name, err)
		}
	}
	return nil
}
