package services

import (
	"context"
	"fmt"

	"spendcast/internal/core"
	"spendcast/internal/source"
)

// AddTransaction validates t and appends it through the configured writer.
func (s *PredictionService) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if s.writer == nil {
		return "", source.ErrReadOnly
	}
	if t.Type == "" {
		t.Type = core.Expense
	}
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	ref, err := s.writer.AppendTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("append transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction recorded",
		"ref", ref,
		"user_id", t.UserID,
		"category", t.Category,
		"type", t.Type)
	return ref, nil
}

// ListTransactions returns the user's records of every type, oldest first.
func (s *PredictionService) ListTransactions(ctx context.Context, userID, category string) ([]core.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	txs, err := s.source.ListTransactions(ctx, source.Query{
		UserID:   userID,
		Category: category,
		Limit:    source.DefaultLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", userID, err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}
