package forecast

import (
	"fmt"
	"sort"
)

// Factory builds a fresh, untrained predictor.
type Factory func() Predictor

type entry struct {
	factory   Factory
	available bool
}

// Registry maps model kinds to predictor factories. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	entries map[Kind]entry
}

// NewRegistry registers the linear predictor and the sequence predictor
// backed by seq. When seq is nil the lstm kind is still known but reported as
// unavailable.
func NewRegistry(seq SequenceBackend, opts ...Option) *Registry {
	r := &Registry{entries: make(map[Kind]entry)}
	r.Register(KindLinear, true, func() Predictor { return NewLinear(opts...) })
	r.Register(KindLSTM, seq != nil, func() Predictor { return NewSequence(seq, opts...) })
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(kind Kind, available bool, f Factory) {
	r.entries[kind] = entry{factory: f, available: available}
}

// New returns a fresh predictor of the requested kind.
func (r *Registry) New(kind Kind) (Predictor, error) {
	e, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, kind)
	}
	if !e.available {
		return nil, fmt.Errorf("%s: %w", kind, ErrCapabilityUnavailable)
	}
	return e.factory(), nil
}

// Available reports whether kind is registered and usable.
func (r *Registry) Available(kind Kind) bool {
	e, ok := r.entries[kind]
	return ok && e.available
}

// Kinds lists the registered kinds, available or not, sorted by name.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
