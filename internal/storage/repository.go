package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"spendcast/internal/core"
	"spendcast/internal/log"
	"spendcast/internal/source"
)

// ErrNotFound is returned when a forecast id does not exist.
var ErrNotFound = errors.New("not found")

// Fixed width so that lexical order is chronological.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var (
	_ source.TransactionSource = (*SQLiteRepository)(nil)
	_ source.TransactionWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTransactions implements source.TransactionSource.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, q source.Query) ([]core.Transaction, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = source.DefaultLimit
	}
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		UserID:   q.UserID,
		Category: q.Category,
		Type:     string(q.Type),
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(time.RFC3339, row.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: parse date %q: %w", row.ID, row.OccurredAt, err)
		}
		out = append(out, core.Transaction{
			ID:          row.ID,
			UserID:      row.UserID,
			Description: row.Description,
			Amount:      row.Amount,
			Date:        date,
			Category:    row.Category,
			Type:        core.TransactionType(row.Type),
		})
	}
	return out, nil
}

// AppendTransaction implements source.TransactionWriter.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		UserID:      t.UserID,
		Description: t.Description,
		Amount:      t.Amount,
		OccurredAt:  t.Date.Format(time.RFC3339),
		Category:    t.Category,
		Type:        string(t.Type),
		CreatedAt:   r.now().UTC().Format(timestampLayout),
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		log.FieldComponent, log.ComponentStorage,
		"id", row.ID,
		log.FieldUserID, row.UserID,
		log.FieldCategory, row.Category,
		"amount", row.Amount.String())

	return strconv.FormatInt(row.ID, 10), nil
}

// CreateForecast stores a new record; CreatedAt defaults to now.
func (r *SQLiteRepository) CreateForecast(ctx context.Context, rec core.ForecastRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	if rec.Status == "" {
		rec.Status = core.ForecastPending
	}
	err := r.queries.CreateForecast(ctx, CreateForecastParams{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Category:  rec.Category,
		ModelType: rec.ModelType,
		DaysAhead: int64(rec.DaysAhead),
		Status:    string(rec.Status),
		CreatedAt: rec.CreatedAt.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("create forecast %s: %w", rec.ID, err)
	}
	return nil
}

// CompleteForecast marks a record completed and stores its JSON result.
func (r *SQLiteRepository) CompleteForecast(ctx context.Context, id string, result json.RawMessage) error {
	return r.finish(ctx, id, core.ForecastCompleted, sql.NullString{String: string(result), Valid: true}, "")
}

// FailForecast marks a record failed with a message.
func (r *SQLiteRepository) FailForecast(ctx context.Context, id string, msg string) error {
	return r.finish(ctx, id, core.ForecastFailed, sql.NullString{}, msg)
}

func (r *SQLiteRepository) finish(ctx context.Context, id string, status core.ForecastStatus, result sql.NullString, msg string) error {
	n, err := r.queries.FinishForecast(ctx, FinishForecastParams{
		Status:      string(status),
		Result:      result,
		Error:       msg,
		CompletedAt: r.now().UTC().Format(timestampLayout),
		ID:          id,
	})
	if err != nil {
		return fmt.Errorf("update forecast %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("forecast %s: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Forecast finished",
		log.FieldComponent, log.ComponentStorage,
		log.FieldForecastID, id,
		"status", status)
	return nil
}

func (r *SQLiteRepository) GetForecast(ctx context.Context, id string) (core.ForecastRecord, error) {
	row, err := r.queries.GetForecast(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ForecastRecord{}, fmt.Errorf("forecast %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.ForecastRecord{}, fmt.Errorf("get forecast %s: %w", id, err)
	}
	return toRecord(row)
}

// ListForecasts returns the most recent records of a user, newest first.
func (r *SQLiteRepository) ListForecasts(ctx context.Context, userID string, limit int) ([]core.ForecastRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.queries.ListForecastsByUser(ctx, ListForecastsByUserParams{UserID: userID, Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	out := make([]core.ForecastRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRecord(row Forecast) (core.ForecastRecord, error) {
	created, err := time.Parse(timestampLayout, row.CreatedAt)
	if err != nil {
		return core.ForecastRecord{}, fmt.Errorf("forecast %s: parse created_at: %w", row.ID, err)
	}
	rec := core.ForecastRecord{
		ID:        row.ID,
		UserID:    row.UserID,
		Category:  row.Category,
		ModelType: row.ModelType,
		DaysAhead: int(row.DaysAhead),
		Status:    core.ForecastStatus(row.Status),
		Error:     row.Error,
		CreatedAt: created,
	}
	if row.Result.Valid {
		rec.Result = json.RawMessage(row.Result.String)
	}
	if row.CompletedAt.Valid {
		done, err := time.Parse(timestampLayout, row.CompletedAt.String)
		if err != nil {
			return core.ForecastRecord{}, fmt.Errorf("forecast %s: parse completed_at: %w", row.ID, err)
		}
		rec.CompletedAt = &done
	}
	return rec, nil
}
