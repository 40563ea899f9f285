package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tutorledger/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Backend selection
	DataBackend string

	// Rates
	RateFeedURL     string
	RateFeedTimeout time.Duration
	RateTTL         time.Duration
	RateRefresh     time.Duration

	// Display
	DisplayCurrency string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Calendar (optional; empty ID disables lesson suggestions)
	GoogleCalendarID string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tutorledger.db"),
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),

		RateFeedURL:     getEnv("RATE_FEED_URL", "https://open.er-api.com/v6/latest/USD"),
		RateFeedTimeout: getEnvDuration("RATE_FEED_TIMEOUT", 10*time.Second),
		RateTTL:         getEnvDuration("RATE_TTL", 24*time.Hour),
		RateRefresh:     getEnvDuration("RATE_REFRESH_INTERVAL", 12*time.Hour),

		DisplayCurrency: getEnv("DISPLAY_CURRENCY", string(core.Reference)),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tutorledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleCalendarID: getEnv("GOOGLE_CALENDAR_ID", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
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
	}

	if c.RateFeedURL != "" {
		if parsedURL, err := url.Parse(c.RateFeedURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate feed URL '%s': %v", c.RateFeedURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid rate feed URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	if c.RateTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate TTL %v: must be at least 1 minute", c.RateTTL))
	}
	if c.RateRefresh < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate refresh interval %v: must be at least 1 minute", c.RateRefresh))
	} else if c.RateRefresh > c.RateTTL {
		errors = append(errors, fmt.Sprintf("rate refresh interval %v must not exceed rate TTL %v", c.RateRefresh, c.RateTTL))
	}

	if !core.Currency(c.DisplayCurrency).Known() {
		errors = append(errors, fmt.Sprintf("unknown display currency '%s': must be one of %v", c.DisplayCurrency, core.KnownCurrencies))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Display returns the configured display currency.
func (c *Config) Display() core.Currency {
	return core.Currency(c.DisplayCurrency)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
