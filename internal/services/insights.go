package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spendcast/internal/core"
	"spendcast/internal/forecast"
)

// CategoryInsight summarises the linear forecast of one category.
type CategoryInsight struct {
	Category       string         `json:"category"`
	Transactions   int            `json:"transactions"`
	CurrentAvg     float64        `json:"current_avg"`
	PredictedAvg   float64        `json:"predicted_avg"`
	TotalPredicted float64        `json:"total_predicted"`
	Trend          forecast.Trend `json:"trend"`
	Recommendation string         `json:"recommendation"`
}

type InsightsResponse struct {
	UserID                 string            `json:"user_id"`
	DaysAhead              int               `json:"days_ahead"`
	TotalPredictedSpending float64           `json:"total_predicted_spending"`
	OverallTrend           forecast.Trend    `json:"overall_trend"`
	Categories             []CategoryInsight `json:"categories"`
	CreatedAt              time.Time         `json:"created_at"`
}

// Insights runs a fresh linear forecast for every category with at least
// two expenses. Categories whose forecast fails are left out.
func (s *PredictionService) Insights(ctx context.Context, userID string, daysAhead int) (InsightsResponse, error) {
	if userID == "" {
		return InsightsResponse{}, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if daysAhead == 0 {
		daysAhead = DefaultDaysAhead
	}
	if err := validateDays(daysAhead); err != nil {
		return InsightsResponse{}, err
	}

	txs, err := s.expenses(ctx, userID, "")
	if err != nil {
		return InsightsResponse{}, err
	}

	var (
		mu       sync.Mutex
		insights []CategoryInsight
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, cat := range core.Categories(txs) {
		if cat.Count < 2 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			insight, err := s.categoryInsight(txs, cat, daysAhead)
			if err != nil {
				s.logger.WarnContext(gctx, "Skipping category in insights",
					"user_id", userID,
					"category", cat.Name,
					"error", err)
				return nil
			}
			mu.Lock()
			insights = append(insights, insight)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return InsightsResponse{}, err
	}

	sort.Slice(insights, func(i, j int) bool { return insights[i].Category < insights[j].Category })

	resp := InsightsResponse{
		UserID:       userID,
		DaysAhead:    daysAhead,
		OverallTrend: overallTrend(insights),
		Categories:   insights,
		CreatedAt:    s.now().UTC(),
	}
	if resp.Categories == nil {
		resp.Categories = []CategoryInsight{}
	}
	for _, in := range insights {
		resp.TotalPredictedSpending += in.TotalPredicted
	}

	s.logger.InfoContext(ctx, "Insights computed",
		"user_id", userID,
		"categories", len(insights),
		"total_predicted", resp.TotalPredictedSpending,
		"overall_trend", resp.OverallTrend)

	return resp, nil
}

func (s *PredictionService) categoryInsight(txs []core.Transaction, cat core.CategoryAmount, daysAhead int) (CategoryInsight, error) {
	p, err := s.registry.New(forecast.KindLinear)
	if err != nil {
		return CategoryInsight{}, err
	}
	res, err := p.Predict(core.FilterCategory(txs, cat.Name), daysAhead)
	if err != nil {
		return CategoryInsight{}, err
	}
	current := cat.Total / float64(cat.Count)
	return CategoryInsight{
		Category:       cat.Name,
		Transactions:   cat.Count,
		CurrentAvg:     current,
		PredictedAvg:   res.AvgDailySpending,
		TotalPredicted: res.TotalPredicted,
		Trend:          res.Trend,
		Recommendation: Recommendation(res.Trend, res.AvgDailySpending, current),
	}, nil
}

// overallTrend is the majority of increasing against decreasing categories;
// a tie is stable.
func overallTrend(insights []CategoryInsight) forecast.Trend {
	var up, down int
	for _, in := range insights {
		switch in.Trend {
		case forecast.TrendIncreasing:
			up++
		case forecast.TrendDecreasing:
			down++
		}
	}
	switch {
	case up > down:
		return forecast.TrendIncreasing
	case down > up:
		return forecast.TrendDecreasing
	default:
		return forecast.TrendStable
	}
}

// Recommendation turns a category trend into advice. The percentage compares
// the predicted daily average with the current mean expense.
func Recommendation(trend forecast.Trend, predictedAvg, currentAvg float64) string {
	switch trend {
	case forecast.TrendIncreasing:
		pct := 0.0
		if currentAvg > 0 {
			pct = (predictedAvg - currentAvg) / currentAvg * 100
		}
		return fmt.Sprintf("Spending in this category is rising (~%.1f%%). Consider setting a limit.", pct)
	case forecast.TrendDecreasing:
		pct := 0.0
		if currentAvg > 0 {
			pct = (currentAvg - predictedAvg) / currentAvg * 100
		}
		return fmt.Sprintf("Great, spending is going down (~%.1f%%). Keep it up!", pct)
	default:
		return "Spending is stable. Keep it under control!"
	}
}
