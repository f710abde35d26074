package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Data source
	DataBackend     string
	DataDir         string
	SQLiteDBPath    string
	SourceCacheTTL  time.Duration
	SourceCacheSize int

	// AMQP (optional for the API, required by the worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string
	GoogleDefaultUserID string

	// Forecasting
	SequenceBackend     string
	ModelConfigFile     string
	InsightsConcurrency int

	LogLevel string
}

var (
	validBackends         = []string{"memory", "sheets", "sqlite"}
	validSequenceBackends = []string{"lstm", "none"}
	validLogLevels        = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "./data")
	cfg := &Config{
		Port:               getEnv("PORT", "8000"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:     getEnv("DATA_BACKEND", "memory"),
		DataDir:         dataDir,
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", filepath.Join(dataDir, "spendcast.db")),
		SourceCacheTTL:  getEnvDuration("SOURCE_CACHE_TTL", 5*time.Minute),
		SourceCacheSize: getEnvInt("SOURCE_CACHE_SIZE", 256),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendcast"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "forecast_requests"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_TRANSACTIONS_SHEET_NAME", "Transactions"),
		GoogleDefaultUserID: getEnv("GOOGLE_DEFAULT_USER_ID", ""),

		SequenceBackend:     strings.ToLower(getEnv("SEQUENCE_BACKEND", "lstm")),
		ModelConfigFile:     getEnv("MODEL_CONFIG_FILE", ""),
		InsightsConcurrency: getEnvInt("INSIGHTS_CONCURRENCY", 4),

		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// TransactionsFile is the CSV the memory backend is seeded from.
func (c *Config) TransactionsFile() string {
	return filepath.Join(c.DataDir, "transactions.csv")
}

// JobsEnabled reports whether asynchronous forecasts can be published.
func (c *Config) JobsEnabled() bool {
	return c.AMQPURL != ""
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
	}

	if c.SourceCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid source cache size %d: must not be negative", c.SourceCacheSize))
	}
	if c.SourceCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid source cache TTL %v: must not be negative", c.SourceCacheTTL))
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

	if !slices.Contains(validSequenceBackends, c.SequenceBackend) {
		errors = append(errors, fmt.Sprintf("invalid sequence backend '%s': must be one of %v", c.SequenceBackend, validSequenceBackends))
	}

	if c.ModelConfigFile != "" {
		if _, err := os.Stat(c.ModelConfigFile); err != nil {
			errors = append(errors, fmt.Sprintf("model config file is not readable: %v", err))
		}
	}

	if c.InsightsConcurrency < 1 || c.InsightsConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid insights concurrency %d: must be between 1 and 64", c.InsightsConcurrency))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
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
