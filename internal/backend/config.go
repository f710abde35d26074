package backend

import (
	"errors"
	"fmt"
	"time"

	"spendcast/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	// ForecastStore opens the SQLite database for forecast records even
	// when transactions come from another backend.
	ForecastStore bool

	// Google Sheets specific
	GoogleSpreadsheetID string
	GoogleSheetName     string
	GoogleDefaultUserID string

	// Memory backend specific
	TransactionsFile string

	// Source cache, disabled when CacheTTL is zero
	CacheTTL  time.Duration
	CacheSize int

	// Forecasting
	SequenceBackend string
	Model           config.ModelConfig
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, model config.ModelConfig) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:                backendType,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		ForecastStore:       appConfig.JobsEnabled(),
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
		GoogleDefaultUserID: appConfig.GoogleDefaultUserID,
		TransactionsFile:    appConfig.TransactionsFile(),
		CacheTTL:            appConfig.SourceCacheTTL,
		CacheSize:           appConfig.SourceCacheSize,
		SequenceBackend:     appConfig.SequenceBackend,
		Model:               model,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for sheets backend")
		}
	case MemoryBackend:
		if c.TransactionsFile == "" {
			return errors.New("transactions file is required for memory backend")
		}
	}

	if c.ForecastStore && c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required to store forecasts")
	}

	switch c.SequenceBackend {
	case "", "none", "lstm":
	default:
		return fmt.Errorf("invalid sequence backend: %s", c.SequenceBackend)
	}
	return nil
}
