package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diogoviieira/register-track-bot/internal/core"
)

type Config struct {
	// Chat gateway
	Port               string
	RateLimitPerMinute int
	TrustedProxies     []string

	// Record store
	DataBackend  string
	SQLiteDBPath string

	// AMQP, publishing is disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Vocabulary and input limits
	CatalogPath       string
	MaxAmount         int
	MaxDescriptionLen int
	MaxSubcategoryLen int
	DateLayout        string
	Timezone          string

	// Sessions
	SessionIdleTimeout     time.Duration
	SessionCleanupInterval time.Duration
	MaxSessions            int

	LogLevel string

	// Google Sheets mirror, used by the worker when a spreadsheet is set
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/trackbot.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "trackbot"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_entries"),

		CatalogPath:       getEnv("CATALOG_PATH", ""),
		MaxAmount:         getEnvInt("MAX_AMOUNT", core.DefaultMaxAmount),
		MaxDescriptionLen: getEnvInt("MAX_DESCRIPTION_LEN", core.DefaultMaxDescriptionLen),
		MaxSubcategoryLen: getEnvInt("MAX_SUBCATEGORY_LEN", core.DefaultMaxSubcategoryLen),
		DateLayout:        getEnv("DATE_LAYOUT", core.DefaultDateLayout),
		Timezone:          getEnv("TIMEZONE", "Europe/Lisbon"),

		SessionIdleTimeout:     getEnvDuration("SESSION_IDLE_TIMEOUT", 15*time.Minute),
		SessionCleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Minute),
		MaxSessions:            getEnvInt("MAX_SESSIONS", 10000),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 message per minute", c.RateLimitPerMinute))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	// Validate data backend
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

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if c.SQLiteDBPath != ":memory:" {
			// Check if directory exists or can be created
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

	// Validate AMQP URL if provided
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

	if c.CatalogPath != "" {
		if _, err := os.Stat(c.CatalogPath); err != nil {
			errors = append(errors, fmt.Sprintf("catalog file '%s' is not readable: %v", c.CatalogPath, err))
		}
	}

	// Validate input limits
	if c.MaxAmount < 1 {
		errors = append(errors, fmt.Sprintf("invalid max amount %d: must be at least 1", c.MaxAmount))
	}
	if c.MaxDescriptionLen < 1 {
		errors = append(errors, fmt.Sprintf("invalid max description length %d: must be at least 1", c.MaxDescriptionLen))
	}
	if c.MaxSubcategoryLen < 1 {
		errors = append(errors, fmt.Sprintf("invalid max subcategory length %d: must be at least 1", c.MaxSubcategoryLen))
	}
	if err := checkDateLayout(c.DateLayout); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	// Validate sessions
	if c.SessionIdleTimeout < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session idle timeout %v: must be at least 1 minute", c.SessionIdleTimeout))
	} else if c.SessionIdleTimeout > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session idle timeout %v: must be at most 24 hours", c.SessionIdleTimeout))
	}
	if c.SessionCleanupInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid session cleanup interval %v: must be at least 1 second", c.SessionCleanupInterval))
	}
	if c.MaxSessions < 0 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be 0 (unbounded) or more", c.MaxSessions))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Limits returns the input limits for the validation layer.
func (c *Config) Limits() core.Limits {
	return core.Limits{
		MaxAmount:         decimal.NewFromInt(int64(c.MaxAmount)),
		MaxDescriptionLen: c.MaxDescriptionLen,
		MaxSubcategoryLen: c.MaxSubcategoryLen,
	}
}

// Location resolves Timezone, falling back to UTC. Validate reports bad names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Catalog loads the category vocabulary, the embedded one unless CatalogPath is set.
func (c *Config) Catalog() (*core.Catalog, error) {
	return core.LoadCatalog(c.CatalogPath)
}

// checkDateLayout requires a layout with day, month and year that reads back
// the date it writes.
func checkDateLayout(layout string) error {
	ref := time.Date(2025, time.November, 5, 0, 0, 0, 0, time.UTC)
	parsed, err := time.Parse(layout, ref.Format(layout))
	if err != nil || !parsed.Equal(ref) {
		return fmt.Errorf("invalid date layout '%s': must contain day, month and year", layout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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
