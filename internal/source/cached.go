package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"spendcast/internal/cache"
	"spendcast/internal/core"
)

// Cached decorates a source with a listing cache. Writes made through it
// invalidate every cached listing of the written user.
type Cached struct {
	src    TransactionSource
	writer TransactionWriter
	cache  cache.Cache[[]core.Transaction]
	logger *slog.Logger

	// gens counts writes per user; a listing fetched across a write is not stored
	mu   sync.Mutex
	gens map[string]uint64
}

// NewCached wraps src. writer may be nil for read-only sources.
func NewCached(src TransactionSource, writer TransactionWriter, c cache.Cache[[]core.Transaction], logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{src: src, writer: writer, cache: c, logger: logger, gens: make(map[string]uint64)}
}

func cacheKey(q Query) string {
	return fmt.Sprintf("%s|%s|%s|%d", q.UserID, q.Type, q.Category, q.Limit)
}

func (c *Cached) ListTransactions(ctx context.Context, q Query) ([]core.Transaction, error) {
	key := cacheKey(q)
	if txs, ok := c.cache.Get(key); ok {
		c.logger.DebugContext(ctx, "Transaction listing served from cache", "key", key, "count", len(txs))
		return append([]core.Transaction(nil), txs...), nil
	}
	gen := c.generation(q.UserID)
	txs, err := c.src.ListTransactions(ctx, q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[q.UserID] == gen {
		c.cache.Set(key, append([]core.Transaction(nil), txs...))
	} else {
		c.logger.DebugContext(ctx, "Skipped caching listing superseded by a write", "key", key)
	}
	return txs, nil
}

func (c *Cached) AppendTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if c.writer == nil {
		return "", ErrReadOnly
	}
	ref, err := c.writer.AppendTransaction(ctx, t)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.gens[t.UserID]++
	n := c.cache.DeletePrefix(t.UserID + "|")
	c.mu.Unlock()
	if n > 0 {
		c.logger.DebugContext(ctx, "Invalidated cached listings", "user_id", t.UserID, "count", n)
	}
	return ref, nil
}

func (c *Cached) generation(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID]
}
