package core

import (
	"encoding/json"
	"time"
)

const (
	ForecastPending   ForecastStatus = "pending"
	ForecastCompleted ForecastStatus = "completed"
	ForecastFailed    ForecastStatus = "failed"
)

type ForecastStatus string

// ForecastRecord is a stored forecast request and its outcome. Only the
// result is persisted, never the fitted model.
type ForecastRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Category    string          `json:"category,omitempty"`
	ModelType   string          `json:"model_type"`
	DaysAhead   int             `json:"days_ahead"`
	Status      ForecastStatus  `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
