package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ModelConfig holds forecasting hyper-parameters read from MODEL_CONFIG_FILE.
type ModelConfig struct {
	Lookback int        `toml:"lookback"`
	LSTM     LSTMConfig `toml:"lstm"`
}

// LSTMConfig is the [lstm] table.
type LSTMConfig struct {
	Units           int     `toml:"units"`
	DenseUnits      int     `toml:"dense_units"`
	Dropout         float64 `toml:"dropout"`
	Epochs          int     `toml:"epochs"`
	BatchSize       int     `toml:"batch_size"`
	ValidationSplit float64 `toml:"validation_split"`
	LearningRate    float64 `toml:"learning_rate"`
	ClipNorm        float64 `toml:"clip_norm"`
	Seed            int64   `toml:"seed"`
}

// DefaultModelConfig returns the built-in hyper-parameters.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Lookback: 7,
		LSTM: LSTMConfig{
			Units:           50,
			DenseUnits:      25,
			Dropout:         0.2,
			Epochs:          50,
			BatchSize:       8,
			ValidationSplit: 0.2,
			LearningRate:    1e-3,
			ClipNorm:        1.0,
			Seed:            42,
		},
	}
}

// LoadModelConfig reads path over the defaults. An empty path returns the
// defaults. Unknown keys are rejected so typos do not go unnoticed.
func LoadModelConfig(path string) (ModelConfig, error) {
	cfg := DefaultModelConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading model config: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing model config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("model config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if cfg.Lookback < 1 {
		return cfg, fmt.Errorf("model config %s: lookback must be positive, got %d", path, cfg.Lookback)
	}
	return cfg, nil
}
