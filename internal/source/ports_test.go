package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"spendcast/internal/cache"
	"spendcast/internal/core"
)

func txOn(user, category string, typ core.TransactionType, day int) core.Transaction {
	return core.Transaction{
		UserID:      user,
		Description: "x",
		Amount:      decimal.NewFromInt(int64(day + 1)),
		Date:        time.Date(2024, 1, 1+day, 0, 0, 0, 0, time.UTC),
		Category:    category,
		Type:        typ,
	}
}

func TestApply(t *testing.T) {
	txs := []core.Transaction{
		txOn("u1", "food", core.Expense, 3),
		txOn("u1", "food", core.Income, 1),
		txOn("u2", "food", core.Expense, 0),
		txOn("u1", "rent", core.Expense, 2),
		txOn("u1", "food", core.Expense, 1),
	}

	got := Apply(ExpensesOf("u1", ""), txs)
	if len(got) != 3 {
		t.Fatalf("expected 3 expenses for u1, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.Before(got[i-1].Date) {
			t.Fatalf("records not sorted by date")
		}
	}

	got = Apply(ExpensesOf("u1", "food"), txs)
	if len(got) != 2 || got[0].Date.Day() != 2 {
		t.Fatalf("unexpected food listing %+v", got)
	}

	got = Apply(Query{UserID: "u1", Limit: 2}, txs)
	if len(got) != 2 {
		t.Fatalf("limit not applied, got %d", len(got))
	}
}

func TestApplyDefaultLimit(t *testing.T) {
	txs := make([]core.Transaction, DefaultLimit+5)
	for i := range txs {
		txs[i] = txOn("u1", "food", core.Expense, 0)
	}
	if got := Apply(Query{UserID: "u1"}, txs); len(got) != DefaultLimit {
		t.Fatalf("expected %d records, got %d", DefaultLimit, len(got))
	}
}

type countingSource struct {
	calls int
	txs   []core.Transaction
}

func (s *countingSource) ListTransactions(_ context.Context, q Query) ([]core.Transaction, error) {
	s.calls++
	return Apply(q, s.txs), nil
}

func (s *countingSource) AppendTransaction(_ context.Context, t core.Transaction) (string, error) {
	s.txs = append(s.txs, t)
	return "ref", nil
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	inner := &countingSource{txs: []core.Transaction{txOn("u1", "food", core.Expense, 0)}}
	c := NewCached(inner, inner, cache.NewLRUCache[[]core.Transaction](16, time.Minute), nil)

	for i := 0; i < 3; i++ {
		txs, err := c.ListTransactions(ctx, ExpensesOf("u1", ""))
		if err != nil || len(txs) != 1 {
			t.Fatalf("list: %v %v", txs, err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", inner.calls)
	}

	if _, err := c.AppendTransaction(ctx, txOn("u1", "food", core.Expense, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	txs, _ := c.ListTransactions(ctx, ExpensesOf("u1", ""))
	if len(txs) != 2 || inner.calls != 2 {
		t.Fatalf("write should invalidate the listing: %d records, %d calls", len(txs), inner.calls)
	}
}

func TestCachedReadOnly(t *testing.T) {
	c := NewCached(&countingSource{}, nil, cache.NewLRUCache[[]core.Transaction](1, time.Minute), nil)
	if _, err := c.AppendTransaction(context.Background(), core.Transaction{}); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

// gatedSource blocks each listing until release is closed, after signalling
// on started.
type gatedSource struct {
	countingSource
	started chan struct{}
	release chan struct{}
}

func (s *gatedSource) ListTransactions(ctx context.Context, q Query) ([]core.Transaction, error) {
	txs, err := s.countingSource.ListTransactions(ctx, q)
	s.started <- struct{}{}
	<-s.release
	return txs, err
}

func TestCachedListingRacingWriteIsNotStored(t *testing.T) {
	ctx := context.Background()
	inner := &gatedSource{
		countingSource: countingSource{txs: []core.Transaction{txOn("u1", "food", core.Expense, 0)}},
		started:        make(chan struct{}, 1),
		release:        make(chan struct{}),
	}
	c := NewCached(inner, &inner.countingSource, cache.NewLRUCache[[]core.Transaction](16, time.Minute), nil)

	done := make(chan []core.Transaction)
	go func() {
		txs, _ := c.ListTransactions(ctx, ExpensesOf("u1", ""))
		done <- txs
	}()
	<-inner.started

	if _, err := c.AppendTransaction(ctx, txOn("u1", "food", core.Expense, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	close(inner.release)
	if stale := <-done; len(stale) != 1 {
		t.Fatalf("in-flight listing = %d records, want 1", len(stale))
	}

	txs, err := c.ListTransactions(ctx, ExpensesOf("u1", ""))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 || inner.calls != 2 {
		t.Fatalf("stale listing was cached: %d records, %d upstream calls", len(txs), inner.calls)
	}
}
