package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"spendcast/internal/core"
	"spendcast/internal/series"
)

// Linear fits an ordinary least squares line of daily total against the day
// offset from the first observed day. Gaps in the history are tolerated.
type Linear struct {
	now func() time.Time

	trained bool
	// feature scaler
	mean, scale float64
	// fitted line in scaled space
	intercept, coef float64
}

func NewLinear(opts ...Option) *Linear {
	o := buildOptions(opts)
	return &Linear{now: o.now}
}

func (l *Linear) Trained() bool { return l.trained }

// Train fits the model. At least two distinct days are required.
func (l *Linear) Train(txs []core.Transaction) (Diagnostics, error) {
	s := series.Daily(txs)
	if len(s) < 2 {
		return nil, fmt.Errorf("%w: linear model needs at least 2 days of history, got %d", ErrInsufficientData, len(s))
	}
	x := toFloat(s.Offsets())
	y := s.Amounts()

	mean, std := stat.PopMeanStdDev(x, nil)
	if std == 0 {
		std = 1
	}
	xs := standardize(x, mean, std)
	alpha, beta := stat.LinearRegression(xs, y, nil, false)

	l.mean, l.scale = mean, std
	l.intercept, l.coef = alpha, beta
	l.trained = true

	return Diagnostics{
		"r2_score":    l.rSquared(xs, y),
		"intercept":   alpha,
		"coefficient": beta,
	}, nil
}

// Predict forecasts daysAhead days after the last observed day.
func (l *Linear) Predict(txs []core.Transaction, daysAhead int) (Result, error) {
	if daysAhead < 1 {
		return Result{}, ErrInvalidHorizon
	}
	s := series.Daily(txs)
	if len(s) == 0 {
		return Empty(l.now(), daysAhead), nil
	}
	if !l.trained {
		if _, err := l.Train(txs); err != nil {
			return Result{}, err
		}
	}

	offsets := s.Offsets()
	last := offsets[len(offsets)-1]
	first := s.First()

	preds := make([]float64, daysAhead)
	dates := make([]time.Time, daysAhead)
	for i := range preds {
		off := last + i + 1
		preds[i] = math.Max(0, l.at(float64(off)))
		dates[i] = first.AddDate(0, 0, off)
	}

	x := toFloat(offsets)
	y := s.Amounts()
	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - l.at(x[i])
	}

	accuracy := 0.0
	if len(y) >= 2 {
		accuracy = l.rSquared(standardize(x, l.mean, l.scale), y)
	}
	return newResult(dates, preds, popStd(residuals), slopeTrend(preds), accuracy), nil
}

// at evaluates the fitted line at a raw day offset.
func (l *Linear) at(offset float64) float64 {
	return l.intercept + l.coef*(offset-l.mean)/l.scale
}

// rSquared is the coefficient of determination on scaled features. A constant
// target scores 1 when fitted exactly and 0 otherwise.
func (l *Linear) rSquared(xs, y []float64) float64 {
	if _, v := stat.PopMeanVariance(y, nil); v == 0 {
		for i := range y {
			if math.Abs(y[i]-(l.intercept+l.coef*xs[i])) > 1e-9 {
				return 0
			}
		}
		return 1
	}
	return stat.RSquared(xs, y, nil, l.intercept, l.coef)
}

func standardize(x []float64, mean, scale float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / scale
	}
	return out
}

func toFloat(v []int) []float64 {
	out := make([]float64, len(v))
	for i, n := range v {
		out[i] = float64(n)
	}
	return out
}
