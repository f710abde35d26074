package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"spendcast/internal/amqp"
	"spendcast/internal/core"
	"spendcast/internal/log"
	"spendcast/internal/services"
	"spendcast/internal/storage"
)

type (
	// Forecaster computes a forecast. Implemented by services.PredictionService.
	Forecaster interface {
		Predict(ctx context.Context, req services.PredictRequest) (services.PredictionResponse, error)
	}

	// ResultStore records the outcome of a forecast job.
	ResultStore interface {
		CreateForecast(ctx context.Context, rec core.ForecastRecord) error
		CompleteForecast(ctx context.Context, id string, result json.RawMessage) error
		FailForecast(ctx context.Context, id, msg string) error
	}
)

// ForecastWorker runs queued forecast jobs and stores their results
type ForecastWorker struct {
	forecaster Forecaster
	store      ResultStore
	logger     *slog.Logger
}

func NewForecastWorker(forecaster Forecaster, store ResultStore, logger *slog.Logger) *ForecastWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastWorker{
		forecaster: forecaster,
		store:      store,
		logger:     logger,
	}
}

// HandleForecastRequest processes a single forecast job. Prediction failures
// are stored as failed records and acknowledged; only storage failures are
// returned, so the message is requeued.
func (w *ForecastWorker) HandleForecastRequest(ctx context.Context, msg *amqp.ForecastRequestMessage) error {
	w.logger.InfoContext(ctx, "Running forecast job",
		log.FieldForecastID, msg.ID,
		log.FieldUserID, msg.UserID,
		log.FieldCategory, msg.Category,
		log.FieldModelType, msg.ModelType,
		log.FieldDaysAhead, msg.DaysAhead)

	resp, err := w.forecaster.Predict(ctx, services.PredictRequest{
		UserID:    msg.UserID,
		Category:  msg.Category,
		DaysAhead: msg.DaysAhead,
		ModelType: msg.ModelType,
	})
	if err != nil {
		w.logger.WarnContext(ctx, "Forecast job failed", log.FieldForecastID, msg.ID, log.FieldError, err)
		return w.finish(ctx, msg, func() error {
			return w.store.FailForecast(ctx, msg.ID, err.Error())
		})
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return w.finish(ctx, msg, func() error {
			return w.store.FailForecast(ctx, msg.ID, fmt.Sprintf("encode result: %v", err))
		})
	}

	if err := w.finish(ctx, msg, func() error {
		return w.store.CompleteForecast(ctx, msg.ID, body)
	}); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Forecast job completed",
		log.FieldForecastID, msg.ID,
		log.FieldTotalPredicted, resp.TotalPredicted,
		log.FieldTrend, resp.Trend)
	return nil
}

// finish applies update, creating the pending record first when the job was
// published without one.
func (w *ForecastWorker) finish(ctx context.Context, msg *amqp.ForecastRequestMessage, update func() error) error {
	err := update()
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Forecast record missing, creating it", log.FieldForecastID, msg.ID)
		rec := core.ForecastRecord{
			ID:        msg.ID,
			UserID:    msg.UserID,
			Category:  msg.Category,
			ModelType: msg.ModelType,
			DaysAhead: msg.DaysAhead,
			Status:    core.ForecastPending,
			CreatedAt: msg.Timestamp,
		}
		if err := w.store.CreateForecast(ctx, rec); err != nil {
			return fmt.Errorf("create forecast record: %w", err)
		}
		err = update()
	}
	if err != nil {
		return fmt.Errorf("store forecast %s: %w", msg.ID, err)
	}
	return nil
}
