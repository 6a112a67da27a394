package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	BotToken    string
	PollTimeout int // long-poll timeout in seconds

	// Database
	SQLiteDBPath string

	// Currency rates
	RateAPIBaseURL string
	RateTimeout    time.Duration

	// Reports
	ChartPath string
}

func Load() *Config {
	return &Config{
		BotToken:    getEnv("BOT_TOKEN", ""),
		PollTimeout: getEnvInt("POLL_TIMEOUT", 60),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finance.db"),

		RateAPIBaseURL: getEnv("RATE_API_BASE_URL", "https://open.er-api.com/v6/latest"),
		RateTimeout:    getEnvDuration("RATE_TIMEOUT", 10*time.Second),

		ChartPath: getEnv("CHART_PATH", "report.png"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// The bot token is the one hard requirement: without it the process
	// cannot talk to Telegram at all.
	if c.BotToken == "" {
		errors = append(errors, "BOT_TOKEN is required")
	}

	if c.PollTimeout < 1 || c.PollTimeout > 600 {
		errors = append(errors, fmt.Sprintf("invalid poll timeout %d: must be between 1 and 600 seconds", c.PollTimeout))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if parsedURL, err := url.Parse(c.RateAPIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rate API URL '%s': %v", c.RateAPIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid rate API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	if c.RateTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate timeout %v: must be at least 1 second", c.RateTimeout))
	} else if c.RateTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate timeout %v: must be at most 1 minute", c.RateTimeout))
	}

	if c.ChartPath == "" {
		errors = append(errors, "chart output path cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
