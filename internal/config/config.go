package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the Flare engine.
type Config struct {
	RefreshInterval   time.Duration
	BoardIntervals    map[string]time.Duration // per-board override, keyed by board name
	Concurrency       int
	DBPath            string
	TrackingRetention time.Duration
	CleanupRetention  time.Duration
	NotifyWindow      time.Duration
	RateLimitMinDelay time.Duration
	Filters           FilterConfig
	Notification      NotificationConfig
	AI                AIConfig
}

// FilterConfig holds the fetch-time filter parameters. Both fields are
// comma-separated keyword lists.
type FilterConfig struct {
	Title    string `yaml:"title"`
	Location string `yaml:"location"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// AIConfig controls the optional AI-assisted extraction fallback.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // OpenAI model identifier, e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	RefreshInterval   string             `yaml:"refresh_interval"`
	BoardIntervals    map[string]string  `yaml:"board_intervals"`
	Concurrency       int                `yaml:"concurrency"`
	DBPath            string             `yaml:"db_path"`
	TrackingRetention string             `yaml:"tracking_retention"`
	CleanupRetention  string             `yaml:"cleanup_retention"`
	NotifyWindow      string             `yaml:"notify_window"`
	RateLimitMinDelay string             `yaml:"rate_limit_min_delay"`
	Filters           FilterConfig       `yaml:"filters"`
	Notification      NotificationConfig `yaml:"notification"`
	AI                rawAIConfig        `yaml:"ai"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// Load reads and parses the YAML config file at path, expands environment
// variables, applies defaults, validates, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		RefreshInterval:   30 * time.Minute,
		Concurrency:       3,
		DBPath:            "flare.db",
		TrackingRetention: 30 * 24 * time.Hour,
		CleanupRetention:  7 * 24 * time.Hour,
		NotifyWindow:      2 * time.Hour,
		RateLimitMinDelay: 2 * time.Second,
		Filters:           raw.Filters,
		Notification:      raw.Notification,
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: raw.AI.BaseURL,
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: 30 * time.Second,
		},
	}

	if raw.Concurrency > 0 {
		cfg.Concurrency = raw.Concurrency
	}
	if raw.DBPath != "" {
		cfg.DBPath = raw.DBPath
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}

	durations := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{raw.RefreshInterval, &cfg.RefreshInterval, "refresh_interval"},
		{raw.TrackingRetention, &cfg.TrackingRetention, "tracking_retention"},
		{raw.CleanupRetention, &cfg.CleanupRetention, "cleanup_retention"},
		{raw.NotifyWindow, &cfg.NotifyWindow, "notify_window"},
		{raw.RateLimitMinDelay, &cfg.RateLimitMinDelay, "rate_limit_min_delay"},
		{raw.AI.Timeout, &cfg.AI.Timeout, "ai.timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}

	if len(raw.BoardIntervals) > 0 {
		cfg.BoardIntervals = make(map[string]time.Duration, len(raw.BoardIntervals))
		for name, rawInterval := range raw.BoardIntervals {
			d, err := time.ParseDuration(rawInterval)
			if err != nil {
				return nil, fmt.Errorf("parse board_intervals[%q]: %w", name, err)
			}
			cfg.BoardIntervals[name] = d
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %v", cfg.RefreshInterval)
	}
	if cfg.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required for slack")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}
	if cfg.AI.Enabled {
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai is enabled")
		}
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai is enabled")
		}
	}
	return nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		RefreshInterval:   30 * time.Minute,
		Concurrency:       3,
		DBPath:            "flare.db",
		TrackingRetention: 30 * 24 * time.Hour,
		CleanupRetention:  7 * 24 * time.Hour,
		NotifyWindow:      2 * time.Hour,
		RateLimitMinDelay: 2 * time.Second,
		Notification:      NotificationConfig{Type: "log"},
		AI:                AIConfig{BaseURL: defaultOpenAIBaseURL, Timeout: 30 * time.Second},
	}
}
