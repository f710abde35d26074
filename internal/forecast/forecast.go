// Package forecast implements the daily spending predictors and the registry
// that selects between them.
//
// Every predictor follows the same two-step contract: Train fits the model on
// a snapshot of transactions and Predict extrapolates it, training first when
// the predictor has not been fitted yet. Predictors keep mutable fit state and
// must not be shared between requests; use Registry.New to get a fresh one.
package forecast

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"spendcast/internal/core"
)

var (
	// ErrInsufficientData is returned when the history is too short to fit.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrCapabilityUnavailable is returned by sequence predictors without a numeric backend.
	ErrCapabilityUnavailable = errors.New("sequence backend unavailable")
	ErrUnknownModel          = errors.New("unknown model type")
	ErrInvalidHorizon        = errors.New("days ahead must be positive")
	// ErrNonFinite is returned when a model yields NaN or an infinite value.
	ErrNonFinite = errors.New("model produced a non-finite forecast")
)

const (
	KindLinear Kind = "linear"
	KindLSTM   Kind = "lstm"
)

// Kind names a predictor implementation.
type Kind string

// ParseKind maps a user supplied model name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindLinear, KindLSTM:
		return k, nil
	case "":
		return KindLinear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// Diagnostics are the fit statistics reported by Train.
type Diagnostics map[string]float64

// Predictor is the capability set shared by every model.
type Predictor interface {
	Train(txs []core.Transaction) (Diagnostics, error)
	Predict(txs []core.Transaction, daysAhead int) (Result, error)
	Trained() bool
}

type options struct {
	now      func() time.Time
	lookback int
}

// Option configures a predictor.
type Option func(*options)

// WithClock sets the clock used to date the empty forecast.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLookback sets the sequence window length. Values below 1 are ignored.
func WithLookback(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.lookback = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, lookback: DefaultLookback}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
