package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/core"
	"spendcast/internal/source"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	rome := time.FixedZone("CET", 3600)

	inputs := []core.Transaction{
		{UserID: "u1", Description: "Dinner", Amount: decimal.RequireFromString("23.40"), Date: time.Date(2024, 1, 3, 20, 0, 0, 0, rome), Category: "food", Type: core.Expense},
		{UserID: "u1", Description: "Breakfast", Amount: decimal.RequireFromString("0.10"), Date: time.Date(2024, 1, 1, 0, 30, 0, 0, rome), Category: "food", Type: core.Expense},
		{UserID: "u1", Description: "Salary", Amount: decimal.NewFromInt(1800), Date: time.Date(2024, 1, 2, 9, 0, 0, 0, rome), Category: "salary", Type: core.Income},
		{UserID: "u2", Description: "Taxi", Amount: decimal.NewFromInt(15), Date: time.Date(2024, 1, 2, 9, 0, 0, 0, rome), Category: "transport", Type: core.Expense},
	}
	for _, tx := range inputs {
		if _, err := repo.AppendTransaction(ctx, tx); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := repo.ListTransactions(ctx, source.ExpensesOf("u1", ""))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(got))
	}
	if got[0].Description != "Breakfast" || got[0].ID == 0 {
		t.Fatalf("expected ascending dates with ids, got %+v", got[0])
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("0.10")) {
		t.Fatalf("amount not exact: %s", got[0].Amount)
	}
	// the calendar day of the original offset is preserved
	if y, m, d := got[0].Date.Date(); y != 2024 || m != 1 || d != 1 {
		t.Fatalf("calendar day changed: %v", got[0].Date)
	}

	food, _ := repo.ListTransactions(ctx, source.ExpensesOf("u1", "salary"))
	if len(food) != 0 {
		t.Fatalf("income must not be listed as expense")
	}
	all, _ := repo.ListTransactions(ctx, source.Query{UserID: "u1", Limit: 2})
	if len(all) != 2 {
		t.Fatalf("limit not applied: %d", len(all))
	}

	if _, err := repo.AppendTransaction(ctx, core.Transaction{UserID: "u1"}); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestForecastLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	for i, id := range []string{"a", "b", "c"} {
		rec := core.ForecastRecord{
			ID:        id,
			UserID:    "u1",
			ModelType: "linear",
			DaysAhead: 7,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateForecast(ctx, rec); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	result := json.RawMessage(`{"trend":"stable"}`)
	if err := repo.CompleteForecast(ctx, "a", result); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := repo.FailForecast(ctx, "b", "insufficient data"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := repo.FailForecast(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	a, err := repo.GetForecast(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Status != core.ForecastCompleted || string(a.Result) != string(result) || a.CompletedAt == nil {
		t.Fatalf("unexpected record %+v", a)
	}
	b, _ := repo.GetForecast(ctx, "b")
	if b.Status != core.ForecastFailed || b.Error != "insufficient data" || b.Result != nil {
		t.Fatalf("unexpected failed record %+v", b)
	}
	c, _ := repo.GetForecast(ctx, "c")
	if c.Status != core.ForecastPending || c.CompletedAt != nil {
		t.Fatalf("unexpected pending record %+v", c)
	}
	if _, err := repo.GetForecast(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := repo.ListForecasts(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("expected newest first, got %+v", list)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}
