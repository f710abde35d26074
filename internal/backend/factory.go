package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendcast/internal/cache"
	"spendcast/internal/config"
	"spendcast/internal/core"
	"spendcast/internal/forecast"
	"spendcast/internal/lstm"
	"spendcast/internal/source"
	"spendcast/internal/source/google"
	"spendcast/internal/source/memory"
	"spendcast/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := NewRegistry(cfg.SequenceBackend, cfg.Model)
	if err != nil {
		return nil, err
	}

	b := &Backend{Registry: registry}
	var cleanups []CleanupFunc

	var repo *storage.SQLiteRepository
	if cfg.Type == SQLiteBackend || cfg.ForecastStore {
		repo, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		b.Store = repo
		b.Ping = repo.Ping
		cleanups = append(cleanups, repo.Close)
		f.logger.Info("Initialized SQLite repository", "db_path", cfg.SQLiteDBPath)
	}

	var src source.TransactionSource
	var writer source.TransactionWriter
	switch cfg.Type {
	case SQLiteBackend:
		src, writer = repo, repo
	case SheetsBackend:
		cli, err := google.New(ctx, google.Options{
			SpreadsheetID: cfg.GoogleSpreadsheetID,
			SheetName:     cfg.GoogleSheetName,
			DefaultUserID: cfg.GoogleDefaultUserID,
			Logger:        f.logger,
		})
		if err != nil {
			runCleanups(cleanups)
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		src, writer = cli, cli
		f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	case MemoryBackend:
		store, err := memory.NewFromFile(cfg.TransactionsFile)
		if err != nil {
			runCleanups(cleanups)
			return nil, fmt.Errorf("failed to load memory backend: %w", err)
		}
		src, writer = store, store
		f.logger.Info("Initialized memory backend", "file", cfg.TransactionsFile, "transactions", len(store.All()))
	}

	// The memory store is already in process; only remote sources are cached.
	if cfg.Type != MemoryBackend && cfg.CacheTTL > 0 && cfg.CacheSize > 0 {
		lru := cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
		manager := cache.NewManager(f.logger)
		manager.Register(lru)
		manager.StartCleanup(cfg.CacheTTL)
		cleanups = append(cleanups, func() error {
			manager.Stop()
			return nil
		})

		cached := source.NewCached(src, writer, lru, f.logger)
		src, writer = cached, cached
		f.logger.Info("Source cache enabled", "ttl", cfg.CacheTTL, "size", cfg.CacheSize)
	}

	b.Source, b.Writer = src, writer
	b.Cleanup = func() error { return runCleanups(cleanups) }
	return b, nil
}

// runCleanups releases resources in reverse order of acquisition
func runCleanups(cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRegistry builds the predictor registry. "lstm" wires the pure Go
// network; "none" or "" leaves the lstm kind registered but unavailable.
func NewRegistry(sequenceBackend string, model config.ModelConfig) (*forecast.Registry, error) {
	opts := []forecast.Option{forecast.WithLookback(model.Lookback)}

	switch sequenceBackend {
	case "", "none":
		return forecast.NewRegistry(nil, opts...), nil
	case "lstm":
		backend, err := lstm.NewBackend(LSTMConfig(model.LSTM))
		if err != nil {
			return nil, fmt.Errorf("invalid lstm configuration: %w", err)
		}
		return forecast.NewRegistry(backend, opts...), nil
	default:
		return nil, fmt.Errorf("unknown sequence backend: %s", sequenceBackend)
	}
}

// LSTMConfig maps the [lstm] table onto the network config. Optimizer
// constants not exposed in the file keep their defaults.
func LSTMConfig(c config.LSTMConfig) lstm.Config {
	out := lstm.DefaultConfig()
	out.Units = c.Units
	out.DenseUnits = c.DenseUnits
	out.Dropout = c.Dropout
	out.Epochs = c.Epochs
	out.BatchSize = c.BatchSize
	out.ValidationSplit = c.ValidationSplit
	out.LearningRate = c.LearningRate
	out.ClipNorm = c.ClipNorm
	out.Seed = c.Seed
	return out
}
