// Package lstm is a small pure Go implementation of a stacked LSTM regressor
// used as the numeric backend of the sequence predictor.
package lstm

import (
	"errors"
	"fmt"
)

// Config holds the network shape and training schedule.
type Config struct {
	Units           int     // units per LSTM layer
	DenseUnits      int     // width of the hidden dense layer
	Dropout         float64 // rate applied after each LSTM layer while training
	Epochs          int
	BatchSize       int
	ValidationSplit float64 // trailing fraction of examples held out
	LearningRate    float64
	Beta1           float64
	Beta2           float64
	Epsilon         float64
	ClipNorm        float64 // global gradient norm cap, 0 disables
	Seed            int64
}

// DefaultConfig mirrors the reference architecture: two 50 unit layers,
// dropout 0.2, Dense(25), 50 epochs of Adam with batch size 8.
func DefaultConfig() Config {
	return Config{
		Units:           50,
		DenseUnits:      25,
		Dropout:         0.2,
		Epochs:          50,
		BatchSize:       8,
		ValidationSplit: 0.2,
		LearningRate:    1e-3,
		Beta1:           0.9,
		Beta2:           0.999,
		Epsilon:         1e-7,
		ClipNorm:        1.0,
		Seed:            42,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Units < 1 {
		errs = append(errs, fmt.Errorf("units must be positive, got %d", c.Units))
	}
	if c.DenseUnits < 1 {
		errs = append(errs, fmt.Errorf("dense units must be positive, got %d", c.DenseUnits))
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		errs = append(errs, fmt.Errorf("dropout must be in [0, 1), got %v", c.Dropout))
	}
	if c.Epochs < 1 {
		errs = append(errs, fmt.Errorf("epochs must be positive, got %d", c.Epochs))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.ValidationSplit < 0 || c.ValidationSplit >= 1 {
		errs = append(errs, fmt.Errorf("validation split must be in [0, 1), got %v", c.ValidationSplit))
	}
	if c.LearningRate <= 0 {
		errs = append(errs, fmt.Errorf("learning rate must be positive, got %v", c.LearningRate))
	}
	if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
		errs = append(errs, fmt.Errorf("adam betas must be in [0, 1), got %v/%v", c.Beta1, c.Beta2))
	}
	if c.Epsilon <= 0 {
		errs = append(errs, fmt.Errorf("epsilon must be positive, got %v", c.Epsilon))
	}
	if c.ClipNorm < 0 {
		errs = append(errs, fmt.Errorf("clip norm must not be negative, got %v", c.ClipNorm))
	}
	return errors.Join(errs...)
}
