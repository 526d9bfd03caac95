package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for local development.
const (
	DefaultTimezone      = "America/New_York"
	DefaultWorkStartHour = 9
	DefaultWorkEndHour   = 18
	DefaultModel         = "gpt-4o"
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultDBPath        = "planner.db"
)

// Config holds the planner's runtime configuration.
type Config struct {
	// Timezone is the IANA timezone name used for all scheduling math.
	Timezone string

	// WorkStartHour and WorkEndHour bound the default working window.
	WorkStartHour int
	WorkEndHour   int

	// OpenAIAPIKey authenticates requests to the chat completion API.
	OpenAIAPIKey string

	// OpenAIBaseURL is the API base URL, overridable for compatible gateways.
	OpenAIBaseURL string

	// Model is the chat completion model identifier.
	Model string

	// DBPath is the path to the SQLite database file.
	DBPath string

	// GoogleTokenPath points at a stored OAuth token file.
	GoogleTokenPath string

	// GoogleTokenJSON holds a base64-encoded OAuth token, taking precedence
	// over GoogleTokenPath when set.
	GoogleTokenJSON string

	// LogLevel sets the slog level: "debug", "info", "warn", "error".
	LogLevel string

	// LogFormat selects the slog handler: "text" or "json".
	LogFormat string
}

// Load reads configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Timezone:        getEnvOrDefault("TIMEZONE", DefaultTimezone),
		WorkStartHour:   getEnvIntOrDefault("WORK_START_HOUR", DefaultWorkStartHour),
		WorkEndHour:     getEnvIntOrDefault("WORK_END_HOUR", DefaultWorkEndHour),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getEnvOrDefault("OPENAI_BASE_URL", DefaultBaseURL),
		Model:           getEnvOrDefault("OPENAI_MODEL", DefaultModel),
		DBPath:          getEnvOrDefault("PLANNER_DB_PATH", DefaultDBPath),
		GoogleTokenPath: os.Getenv("GOOGLE_TOKEN_PATH"),
		GoogleTokenJSON: os.Getenv("GOOGLE_TOKEN_JSON"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.WorkStartHour < 0 || c.WorkStartHour > 23 {
		return fmt.Errorf("work start hour must be between 0 and 23, got %d", c.WorkStartHour)
	}
	if c.WorkEndHour < 1 || c.WorkEndHour > 24 {
		return fmt.Errorf("work end hour must be between 1 and 24, got %d", c.WorkEndHour)
	}
	if c.WorkStartHour >= c.WorkEndHour {
		return fmt.Errorf("work start hour %d must be before work end hour %d", c.WorkStartHour, c.WorkEndHour)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvOrDefault returns the value of an environment variable or a default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the integer value of an environment variable or a default value.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
