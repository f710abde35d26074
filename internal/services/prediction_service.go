package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendcast/internal/amqp"
	"spendcast/internal/core"
	"spendcast/internal/forecast"
	"spendcast/internal/source"
)

const (
	DefaultDaysAhead          = 30
	MaxDaysAhead              = 365
	DefaultInsightConcurrency = 4
	DefaultHistoryLimit       = 20

	// lstm comparison needs at least one full window plus a target
	minCompareTransactions = 8
)

var (
	ErrNoTransactions  = errors.New("no transaction data found for this user")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrJobsUnavailable = errors.New("asynchronous forecasts are not configured")
	ErrJobNotFound     = errors.New("forecast not found")
)

type (
	// ForecastStore persists forecast records. Implemented by storage.SQLiteRepository.
	ForecastStore interface {
		CreateForecast(ctx context.Context, rec core.ForecastRecord) error
		CompleteForecast(ctx context.Context, id string, result json.RawMessage) error
		FailForecast(ctx context.Context, id, msg string) error
		GetForecast(ctx context.Context, id string) (core.ForecastRecord, error)
		ListForecasts(ctx context.Context, userID string, limit int) ([]core.ForecastRecord, error)
	}

	// JobPublisher hands forecast jobs to the worker. Implemented by amqp.Client.
	JobPublisher interface {
		PublishForecastRequest(ctx context.Context, msg *amqp.ForecastRequestMessage) error
	}
)

// Config wires a PredictionService. Only Source and Registry are required.
type Config struct {
	Source              source.TransactionSource
	Writer              source.TransactionWriter
	Registry            *forecast.Registry
	Store               ForecastStore
	Publisher           JobPublisher
	InsightsConcurrency int
	Now                 func() time.Time
	Logger              *slog.Logger
}

// PredictionService runs forecasts over a transaction source. It holds no
// model state: every call builds fresh predictors from the registry.
type PredictionService struct {
	source      source.TransactionSource
	writer      source.TransactionWriter
	registry    *forecast.Registry
	store       ForecastStore
	publisher   JobPublisher
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

func NewPredictionService(cfg Config) *PredictionService {
	s := &PredictionService{
		source:      cfg.Source,
		writer:      cfg.Writer,
		registry:    cfg.Registry,
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		concurrency: cfg.InsightsConcurrency,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	if s.registry == nil {
		s.registry = forecast.NewRegistry(nil)
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultInsightConcurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// PredictRequest selects what to forecast. Zero DaysAhead means the default
// horizon and an empty ModelType means linear.
type PredictRequest struct {
	UserID    string `json:"user_id"`
	Category  string `json:"category,omitempty"`
	DaysAhead int    `json:"days_ahead"`
	ModelType string `json:"model_type"`
}

func (r *PredictRequest) normalize() (forecast.Kind, error) {
	if r.UserID == "" {
		return "", fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if r.DaysAhead == 0 {
		r.DaysAhead = DefaultDaysAhead
	}
	if err := validateDays(r.DaysAhead); err != nil {
		return "", err
	}
	kind, err := forecast.ParseKind(r.ModelType)
	if err != nil {
		return "", err
	}
	r.ModelType = string(kind)
	return kind, nil
}

func validateDays(days int) error {
	if days < 1 || days > MaxDaysAhead {
		return fmt.Errorf("%w: days_ahead must be between 1 and %d, got %d", ErrInvalidRequest, MaxDaysAhead, days)
	}
	return nil
}

// PredictionResponse is a forecast result labelled with what was asked for.
type PredictionResponse struct {
	UserID    string `json:"user_id"`
	Category  string `json:"category,omitempty"`
	ModelType string `json:"model_type"`
	forecast.Result
	CreatedAt time.Time `json:"created_at"`
}

// Predict forecasts the user's daily expenses, optionally for one category.
func (s *PredictionService) Predict(ctx context.Context, req PredictRequest) (PredictionResponse, error) {
	kind, err := req.normalize()
	if err != nil {
		return PredictionResponse{}, err
	}

	txs, err := s.expenses(ctx, req.UserID, req.Category)
	if err != nil {
		return PredictionResponse{}, err
	}

	p, err := s.registry.New(kind)
	if err != nil {
		return PredictionResponse{}, err
	}

	res, err := p.Predict(txs, req.DaysAhead)
	if err != nil {
		return PredictionResponse{}, fmt.Errorf("%s prediction: %w", kind, err)
	}

	s.logger.DebugContext(ctx, "Prediction completed",
		"user_id", req.UserID,
		"category", req.Category,
		"model_type", kind,
		"transactions", len(txs),
		"total_predicted", res.TotalPredicted,
		"trend", res.Trend)

	return PredictionResponse{
		UserID:    req.UserID,
		Category:  req.Category,
		ModelType: string(kind),
		Result:    res,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Category is Predict narrowed to a single category.
func (s *PredictionService) Category(ctx context.Context, userID, category string, daysAhead int, modelType string) (PredictionResponse, error) {
	if category == "" {
		return PredictionResponse{}, fmt.Errorf("%w: category is required", ErrInvalidRequest)
	}
	return s.Predict(ctx, PredictRequest{
		UserID:    userID,
		Category:  category,
		DaysAhead: daysAhead,
		ModelType: modelType,
	})
}

// Models reports every registered model kind and whether it can be used.
func (s *PredictionService) Models() map[string]bool {
	out := make(map[string]bool)
	for _, k := range s.registry.Kinds() {
		out[string(k)] = s.registry.Available(k)
	}
	return out
}

func (s *PredictionService) expenses(ctx context.Context, userID, category string) ([]core.Transaction, error) {
	txs, err := s.source.ListTransactions(ctx, source.ExpensesOf(userID, category))
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", userID, err)
	}
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}
	return txs, nil
}
