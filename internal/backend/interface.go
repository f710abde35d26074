package backend

import (
	"context"

	"spendcast/internal/forecast"
	"spendcast/internal/services"
	"spendcast/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Backend bundles the data collaborators a binary needs to run forecasts
type Backend struct {
	Source source.TransactionSource
	Writer source.TransactionWriter
	// Store holds forecast records. Nil unless a SQLite database is open.
	Store services.ForecastStore
	// Ping checks the backing store for readiness. Nil when there is nothing to check.
	Ping     func(context.Context) error
	Registry *forecast.Registry
	Cleanup  CleanupFunc
}

// Close runs the cleanup function, if any
func (b *Backend) Close() error {
	if b.Cleanup == nil {
		return nil
	}
	return b.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
