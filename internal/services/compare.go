package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"spendcast/internal/forecast"
)

// ModelSummary is the headline of one model's forecast.
type ModelSummary struct {
	TotalPredicted   float64        `json:"total_predicted"`
	AvgDailySpending float64        `json:"avg_daily_spending"`
	Trend            forecast.Trend `json:"trend"`
	AccuracyScore    float64        `json:"accuracy_score"`
}

func summarize(r forecast.Result) *ModelSummary {
	return &ModelSummary{
		TotalPredicted:   r.TotalPredicted,
		AvgDailySpending: r.AvgDailySpending,
		Trend:            r.Trend,
		AccuracyScore:    r.AccuracyScore,
	}
}

// CompareResponse holds the linear forecast and, when it could run, the lstm
// one. Exactly one of LSTM, LSTMError and LSTMNote is set.
type CompareResponse struct {
	UserID           string        `json:"user_id"`
	DaysAhead        int           `json:"days_ahead"`
	LinearRegression *ModelSummary `json:"linear_regression"`
	LSTM             *ModelSummary `json:"lstm,omitempty"`
	LSTMError        string        `json:"lstm_error,omitempty"`
	LSTMNote         string        `json:"lstm_note,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Compare runs the linear and lstm models side by side over all of the
// user's expenses. A linear failure fails the call; an lstm failure is
// reported in the response.
func (s *PredictionService) Compare(ctx context.Context, userID string, daysAhead int) (CompareResponse, error) {
	if userID == "" {
		return CompareResponse{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if daysAhead == 0 {
		daysAhead = DefaultDaysAhead
	}
	if err := validateDays(daysAhead); err != nil {
		return CompareResponse{}, err
	}

	txs, err := s.expenses(ctx, userID, "")
	if err != nil {
		return CompareResponse{}, err
	}

	resp := CompareResponse{
		UserID:    userID,
		DaysAhead: daysAhead,
		CreatedAt: s.now().UTC(),
	}

	runLSTM := s.registry.Available(forecast.KindLSTM) && len(txs) >= minCompareTransactions
	if !runLSTM {
		resp.LSTMNote = fmt.Sprintf("Not available (requires a sequence backend and at least %d transactions)", minCompareTransactions)
	}

	var g errgroup.Group
	g.Go(func() error {
		p, err := s.registry.New(forecast.KindLinear)
		if err != nil {
			return err
		}
		res, err := p.Predict(txs, daysAhead)
		if err != nil {
			return fmt.Errorf("linear prediction: %w", err)
		}
		resp.LinearRegression = summarize(res)
		return nil
	})
	if runLSTM {
		g.Go(func() error {
			p, err := s.registry.New(forecast.KindLSTM)
			if err == nil {
				var res forecast.Result
				if res, err = p.Predict(txs, daysAhead); err == nil {
					resp.LSTM = summarize(res)
					return nil
				}
			}
			resp.LSTMError = err.Error()
			s.logger.WarnContext(ctx, "LSTM comparison failed", "user_id", userID, "error", err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CompareResponse{}, err
	}

	s.logger.InfoContext(ctx, "Model comparison completed",
		"user_id", userID,
		"transactions", len(txs),
		"lstm_ran", resp.LSTM != nil)

	return resp, nil
}
