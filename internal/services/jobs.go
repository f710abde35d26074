package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"spendcast/internal/amqp"
	"spendcast/internal/core"
	"spendcast/internal/storage"
)

// EnqueueForecast stores a pending forecast record and publishes the job for
// the worker. If publishing fails the record is marked failed.
func (s *PredictionService) EnqueueForecast(ctx context.Context, req PredictRequest) (core.ForecastRecord, error) {
	if s.store == nil || s.publisher == nil {
		return core.ForecastRecord{}, ErrJobsUnavailable
	}
	if _, err := req.normalize(); err != nil {
		return core.ForecastRecord{}, err
	}

	rec := core.ForecastRecord{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Category:  req.Category,
		ModelType: req.ModelType,
		DaysAhead: req.DaysAhead,
		Status:    core.ForecastPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateForecast(ctx, rec); err != nil {
		return core.ForecastRecord{}, fmt.Errorf("store pending forecast: %w", err)
	}

	msg := amqp.NewForecastRequestMessage(rec.ID, rec.UserID, rec.Category, rec.ModelType, rec.DaysAhead)
	if err := s.publisher.PublishForecastRequest(ctx, msg); err != nil {
		if ferr := s.store.FailForecast(ctx, rec.ID, "enqueue: "+err.Error()); ferr != nil {
			s.logger.ErrorContext(ctx, "Failed to mark forecast as failed", "id", rec.ID, "error", ferr)
		}
		return core.ForecastRecord{}, fmt.Errorf("publish forecast job: %w", err)
	}

	s.logger.InfoContext(ctx, "Forecast job enqueued",
		"id", rec.ID,
		"user_id", rec.UserID,
		"model_type", rec.ModelType,
		"days_ahead", rec.DaysAhead)

	return rec, nil
}

// GetJob returns a stored forecast record.
func (s *PredictionService) GetJob(ctx context.Context, id string) (core.ForecastRecord, error) {
	if s.store == nil {
		return core.ForecastRecord{}, ErrJobsUnavailable
	}
	if _, err := uuid.Parse(id); err != nil {
		return core.ForecastRecord{}, fmt.Errorf("%w: malformed forecast id %q", ErrInvalidRequest, id)
	}
	rec, err := s.store.GetForecast(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.ForecastRecord{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return rec, err
}

// History lists the user's most recent stored forecasts, newest first.
func (s *PredictionService) History(ctx context.Context, userID string, limit int) ([]core.ForecastRecord, error) {
	if s.store == nil {
		return nil, ErrJobsUnavailable
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	recs, err := s.store.ListForecasts(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	if recs == nil {
		recs = []core.ForecastRecord{}
	}
	return recs, nil
}
