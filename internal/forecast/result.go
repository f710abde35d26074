package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"spendcast/internal/core"
)

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"

	// z-score of a two sided 95% interval
	confidenceZ = 1.96
	dateLayout  = "2006-01-02"
)

type Trend string

// Point is a single forecasted day.
type Point struct {
	Date            time.Time
	PredictedAmount float64
	ConfidenceLower float64
	ConfidenceUpper float64
}

type pointJSON struct {
	Date            string  `json:"date"`
	PredictedAmount float64 `json:"predicted_amount"`
	ConfidenceLower float64 `json:"confidence_lower"`
	ConfidenceUpper float64 `json:"confidence_upper"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{
		Date:            p.Date.Format(dateLayout),
		PredictedAmount: p.PredictedAmount,
		ConfidenceLower: p.ConfidenceLower,
		ConfidenceUpper: p.ConfidenceUpper,
	})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d, err := time.Parse(dateLayout, raw.Date)
	if err != nil {
		return fmt.Errorf("parse prediction date: %w", err)
	}
	*p = Point{
		Date:            d,
		PredictedAmount: raw.PredictedAmount,
		ConfidenceLower: raw.ConfidenceLower,
		ConfidenceUpper: raw.ConfidenceUpper,
	}
	return nil
}

// Result is the common output of every predictor.
type Result struct {
	Predictions      []Point `json:"predictions"`
	TotalPredicted   float64 `json:"total_predicted"`
	AvgDailySpending float64 `json:"avg_daily_spending"`
	Trend            Trend   `json:"trend"`
	AccuracyScore    float64 `json:"accuracy_score"`
}

// Empty is the forecast returned when there is no history at all: daysAhead
// zero points starting the day after now.
func Empty(now time.Time, daysAhead int) Result {
	today := core.Day(now)
	points := make([]Point, daysAhead)
	for i := range points {
		points[i] = Point{Date: today.AddDate(0, 0, i+1)}
	}
	return Result{
		Predictions: points,
		Trend:       TrendStable,
	}
}

// newResult assembles a Result from raw predictions, applying the
// non-negativity clamp and a symmetric confidence band of width 1.96·std.
func newResult(dates []time.Time, preds []float64, std float64, trend Trend, accuracy float64) Result {
	points := make([]Point, len(preds))
	for i, p := range preds {
		p = math.Max(0, p)
		preds[i] = p
		points[i] = Point{
			Date:            dates[i],
			PredictedAmount: p,
			ConfidenceLower: math.Max(0, p-confidenceZ*std),
			ConfidenceUpper: p + confidenceZ*std,
		}
	}
	total := floats.Sum(preds)
	avg := 0.0
	if len(preds) > 0 {
		avg = total / float64(len(preds))
	}
	return Result{
		Predictions:      points,
		TotalPredicted:   total,
		AvgDailySpending: avg,
		Trend:            trend,
		AccuracyScore:    accuracy,
	}
}

// slopeTrend classifies the least squares slope of values against their
// index. Thresholds are absolute currency units per day.
func slopeTrend(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}
	idx := make([]float64, len(values))
	for i := range idx {
		idx[i] = float64(i)
	}
	_, slope := stat.LinearRegression(idx, values, nil, false)
	switch {
	case slope > 0.1:
		return TrendIncreasing
	case slope < -0.1:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// halvesTrend compares the mean of the second half of values with the first.
func halvesTrend(values []float64) Trend {
	if len(values) < 2 {
		return TrendStable
	}
	mid := len(values) / 2
	first := stat.Mean(values[:mid], nil)
	second := stat.Mean(values[mid:], nil)
	switch {
	case second > first*1.1:
		return TrendIncreasing
	case second < first*0.9:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// popStd is the population standard deviation (divisor n).
func popStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std
}
