// Package source defines where transactions come from.
package source

import (
	"context"
	"sort"

	"spendcast/internal/core"
)

// DefaultLimit caps how many records a single query returns.
const DefaultLimit = 1000

// Query selects a user's transactions. An empty Category matches all
// categories and an empty Type matches all types.
type Query struct {
	UserID   string
	Category string
	Type     core.TransactionType
	Limit    int
}

// ExpensesOf is the query used by every forecast: the user's expenses,
// optionally narrowed to one category.
func ExpensesOf(userID, category string) Query {
	return Query{UserID: userID, Category: category, Type: core.Expense, Limit: DefaultLimit}
}

// Ports for outbound adapters.
type (
	TransactionSource interface {
		// ListTransactions returns matching records sorted by date ascending.
		ListTransactions(ctx context.Context, q Query) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (ref string, err error)
	}
)

// Matches reports whether t is selected by q, ignoring the limit.
func (q Query) Matches(t core.Transaction) bool {
	if q.UserID != "" && t.UserID != q.UserID {
		return false
	}
	if q.Category != "" && t.Category != q.Category {
		return false
	}
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	return true
}

// Apply filters, sorts by date ascending and truncates txs according to q.
// Backends that cannot push the query down use it on their full listing.
func Apply(q Query, txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
