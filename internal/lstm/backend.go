package lstm

import "spendcast/internal/forecast"

// Backend builds a fresh Network per sequence predictor.
type Backend struct {
	cfg Config
}

func NewBackend(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Backend{cfg: cfg}, nil
}

func (b *Backend) Config() Config { return b.cfg }

func (b *Backend) NewModel(lookback int) (forecast.SequenceModel, error) {
	return NewNetwork(b.cfg, lookback)
}
