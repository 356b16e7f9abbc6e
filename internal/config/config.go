package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// TimeZone decides where "today" starts for daily snapshots
	TimeZone string

	// Database configuration
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseURL    string

	// Engine fetcher configuration
	Fetcher          string // "fake", "openai" or "ollama"
	FetchTimeout     time.Duration
	FakeFetchLatency time.Duration
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	OpenAIModel      string
	OllamaBaseURL    string
	OllamaModel      string

	// Polling configuration
	PollConcurrency    int
	PollSchedule       string // cron expression with seconds, empty disables
	ScheduledBrands    []string
	OverviewWindowDays int

	// Engine registry seed file (YAML)
	EnginesFile string

	// Poll archive configuration
	ArchiveBackend   string // "none", "file" or "azure"
	ArchiveDir       string
	StorageAccount   string
	StorageContainer string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Debug:    getBoolEnv("DEBUG", false),
		TimeZone: getEnv("TIMEZONE", "UTC"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getEnv("DATABASE_URL", "data"),

		Fetcher:          getEnv("FETCHER", "fake"),
		FetchTimeout:     getDurationEnv("FETCH_TIMEOUT", 30*time.Second),
		FakeFetchLatency: getDurationEnv("FAKE_FETCH_LATENCY", 500*time.Millisecond),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llama3"),

		PollConcurrency:    getIntEnv("POLL_CONCURRENCY", 1),
		PollSchedule:       getEnv("POLL_SCHEDULE", ""),
		ScheduledBrands:    getSliceEnv("SCHEDULED_BRANDS", nil),
		OverviewWindowDays: getIntEnv("OVERVIEW_WINDOW_DAYS", 30),

		EnginesFile: getEnv("ENGINES_FILE", ""),

		ArchiveBackend:   getEnv("ARCHIVE_BACKEND", "none"),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "poll_archive"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "visibility-polls"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("DATABASE_DRIVER must be 'sqlite' or 'postgres'")
	}

	switch c.Fetcher {
	case "fake":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when FETCHER is 'openai'")
		}
	case "ollama":
		if c.OllamaBaseURL == "" {
			return fmt.Errorf("OLLAMA_BASE_URL is required when FETCHER is 'ollama'")
		}
	default:
		return fmt.Errorf("FETCHER must be 'fake', 'openai' or 'ollama'")
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	if c.PollConcurrency < 1 {
		return fmt.Errorf("POLL_CONCURRENCY must be at least 1")
	}

	if c.OverviewWindowDays < 1 {
		return fmt.Errorf("OVERVIEW_WINDOW_DAYS must be at least 1")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.TimeZone, err)
	}

	switch c.ArchiveBackend {
	case "none", "file":
	case "azure":
		if c.StorageAccount == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT is required when ARCHIVE_BACKEND is 'azure'")
		}
	default:
		return fmt.Errorf("ARCHIVE_BACKEND must be 'none', 'file' or 'azure'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Location returns the time zone used to truncate snapshot days.
// validate has already checked the name, so failures fall back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotificationsEnabled reports whether any digest channel is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
