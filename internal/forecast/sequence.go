package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"spendcast/internal/core"
	"spendcast/internal/series"
)

// DefaultLookback is the number of past days a sequence model reads to
// predict the next one.
const DefaultLookback = 7

// SequenceBackend builds trainable sequence models. A nil backend means the
// numeric capability is absent.
type SequenceBackend interface {
	NewModel(lookback int) (SequenceModel, error)
}

// SequenceModel maps a window of normalized daily totals to the next value.
type SequenceModel interface {
	Fit(windows [][]float64, targets []float64) (FitReport, error)
	Predict(window []float64) float64
}

// FitReport summarizes the last epoch of a Fit call.
type FitReport struct {
	Loss    float64
	MAE     float64
	ValLoss float64
	HasVal  bool
	Epochs  int
}

// Sequence forecasts with a recurrent model over a densified series
// normalized to [0, 1].
type Sequence struct {
	backend  SequenceBackend
	lookback int
	now      func() time.Time

	trained bool
	model   SequenceModel
	// min-max scaler
	min, scale float64
}

func NewSequence(backend SequenceBackend, opts ...Option) *Sequence {
	o := buildOptions(opts)
	return &Sequence{backend: backend, lookback: o.lookback, now: o.now}
}

func (s *Sequence) Trained() bool { return s.trained }

func (s *Sequence) Lookback() int { return s.lookback }

// Train fits the model on every sliding window of the densified history.
// At least lookback+1 days are needed to form one example.
func (s *Sequence) Train(txs []core.Transaction) (Diagnostics, error) {
	if s.backend == nil {
		return nil, ErrCapabilityUnavailable
	}
	amounts := series.Daily(txs).Densify().Amounts()
	if len(amounts) < s.lookback+1 {
		return nil, fmt.Errorf("%w: sequence model needs at least %d days of history, got %d",
			ErrInsufficientData, s.lookback+1, len(amounts))
	}

	lo, hi := amounts[0], amounts[0]
	for _, v := range amounts {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	scale := hi - lo
	if scale == 0 {
		scale = 1
	}
	s.min, s.scale = lo, scale
	scaled := s.transform(amounts)

	windows := make([][]float64, 0, len(scaled)-s.lookback)
	targets := make([]float64, 0, len(scaled)-s.lookback)
	for i := s.lookback; i < len(scaled); i++ {
		windows = append(windows, scaled[i-s.lookback:i])
		targets = append(targets, scaled[i])
	}

	model, err := s.backend.NewModel(s.lookback)
	if err != nil {
		return nil, fmt.Errorf("build sequence model: %w", err)
	}
	report, err := model.Fit(windows, targets)
	if err != nil {
		return nil, fmt.Errorf("fit sequence model: %w", err)
	}
	s.model = model
	s.trained = true

	diag := Diagnostics{
		"loss":           report.Loss,
		"mae":            report.MAE,
		"epochs_trained": float64(report.Epochs),
	}
	if report.HasVal {
		diag["val_loss"] = report.ValLoss
	}
	return diag, nil
}

// Predict rolls the model forward daysAhead steps from the last lookback
// days, feeding each prediction back into the window.
func (s *Sequence) Predict(txs []core.Transaction, daysAhead int) (Result, error) {
	if s.backend == nil {
		return Result{}, ErrCapabilityUnavailable
	}
	if daysAhead < 1 {
		return Result{}, ErrInvalidHorizon
	}
	ds := series.Daily(txs).Densify()
	if len(ds) == 0 || len(ds) < s.lookback {
		return Empty(s.now(), daysAhead), nil
	}
	if !s.trained {
		if _, err := s.Train(txs); err != nil {
			return Result{}, err
		}
	}

	amounts := ds.Amounts()
	window := s.transform(amounts[len(amounts)-s.lookback:])
	preds := make([]float64, daysAhead)
	for i := range preds {
		next := s.model.Predict(window)
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return Result{}, fmt.Errorf("step %d: %w", i+1, ErrNonFinite)
		}
		preds[i] = next
		window = append(window[1:], next)
	}
	for i, v := range preds {
		preds[i] = math.Max(0, v*s.scale+s.min)
	}

	// variability of the most recent half of the history
	recent := amounts[len(amounts)/2:]
	std := popStd(recent)
	mean := stat.Mean(amounts, nil)
	// stability heuristic, not a probability
	accuracy := math.Max(0, 1-math.Min(1, std/(mean+1e-8)))

	last := ds.Last()
	dates := make([]time.Time, daysAhead)
	for i := range dates {
		dates[i] = last.AddDate(0, 0, i+1)
	}
	return newResult(dates, preds, std, halvesTrend(preds), accuracy), nil
}

func (s *Sequence) transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.min) / s.scale
	}
	return out
}
