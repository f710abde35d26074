package lstm

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"spendcast/internal/forecast"
)

// ErrDiverged is returned when training produces a non-finite loss.
var ErrDiverged = errors.New("training diverged")

// Network is LSTM -> Dropout -> LSTM -> Dropout -> Dense(ReLU) -> Dense(1).
// It is not safe for concurrent use.
type Network struct {
	cfg      Config
	lookback int
	rng      *rand.Rand

	l1, l2 *lstmLayer
	hidden *denseLayer
	out    *denseLayer
	params []*param
	step   int // Adam update count
}

// NewNetwork builds a network with weights drawn from a PRNG seeded by
// cfg.Seed, so equal configs yield equal networks.
func NewNetwork(cfg Config, lookback int) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lookback < 1 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookback)
	}
	seed := uint64(cfg.Seed)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	n := &Network{
		cfg:      cfg,
		lookback: lookback,
		rng:      rng,
		l1:       newLSTMLayer(rng, 1, cfg.Units),
		l2:       newLSTMLayer(rng, cfg.Units, cfg.Units),
		hidden:   newDenseLayer(rng, cfg.Units, cfg.DenseUnits, true),
		out:      newDenseLayer(rng, cfg.DenseUnits, 1, false),
	}
	n.params = append(n.params, n.l1.params()...)
	n.params = append(n.params, n.l2.params()...)
	n.params = append(n.params, n.hidden.params()...)
	n.params = append(n.params, n.out.params()...)
	return n, nil
}

// trace keeps every intermediate of one forward pass.
type trace struct {
	s1        []step
	mask1     [][]float64
	in2       [][]float64
	s2        []step
	mask2     []float64
	last      []float64
	hiddenPre []float64
	hiddenAct []float64
	y         float64
}

func (n *Network) forward(window []float64, training bool) *trace {
	xs := make([][]float64, len(window))
	for t, v := range window {
		xs[t] = []float64{v}
	}
	tr := &trace{s1: n.l1.forward(xs)}

	tr.in2 = make([][]float64, len(tr.s1))
	if training {
		tr.mask1 = make([][]float64, len(tr.s1))
	}
	for t, st := range tr.s1 {
		if !training {
			tr.in2[t] = st.h
			continue
		}
		tr.mask1[t] = n.dropoutMask(len(st.h))
		tr.in2[t] = make([]float64, len(st.h))
		floats.MulTo(tr.in2[t], st.h, tr.mask1[t])
	}

	tr.s2 = n.l2.forward(tr.in2)
	h2 := tr.s2[len(tr.s2)-1].h
	tr.last = h2
	if training {
		tr.mask2 = n.dropoutMask(len(h2))
		tr.last = make([]float64, len(h2))
		floats.MulTo(tr.last, h2, tr.mask2)
	}

	tr.hiddenPre, tr.hiddenAct = n.hidden.forward(tr.last)
	_, y := n.out.forward(tr.hiddenAct)
	tr.y = y[0]
	return tr
}

// backward accumulates gradients of the loss given dL/dy.
func (n *Network) backward(tr *trace, dy float64) {
	dHidden := n.out.backward(tr.hiddenAct, []float64{tr.y}, []float64{dy})
	dLast := n.hidden.backward(tr.last, tr.hiddenPre, dHidden)
	if tr.mask2 != nil {
		floats.Mul(dLast, tr.mask2)
	}
	dhs2 := make([][]float64, len(tr.s2))
	dhs2[len(dhs2)-1] = dLast
	dIn2 := n.l2.backward(tr.s2, dhs2)
	if tr.mask1 != nil {
		for t := range dIn2 {
			floats.Mul(dIn2[t], tr.mask1[t])
		}
	}
	n.l1.backward(tr.s1, dIn2)
}

// dropoutMask draws an inverted dropout mask: kept units are scaled by
// 1/(1-rate) so inference needs no rescaling.
func (n *Network) dropoutMask(size int) []float64 {
	mask := make([]float64, size)
	keep := 1 - n.cfg.Dropout
	for i := range mask {
		if n.cfg.Dropout == 0 || n.rng.Float64() >= n.cfg.Dropout {
			mask[i] = 1 / keep
		}
	}
	return mask
}

// Predict runs inference on one window.
func (n *Network) Predict(window []float64) float64 {
	return n.forward(window, false).y
}

// Fit trains on windows in their given order. The trailing ValidationSplit
// fraction of examples is held out and scored after every epoch.
func (n *Network) Fit(windows [][]float64, targets []float64) (forecast.FitReport, error) {
	if len(windows) == 0 {
		return forecast.FitReport{}, errors.New("no training examples")
	}
	if len(windows) != len(targets) {
		return forecast.FitReport{}, fmt.Errorf("got %d windows but %d targets", len(windows), len(targets))
	}
	for i, w := range windows {
		if len(w) != n.lookback {
			return forecast.FitReport{}, fmt.Errorf("window %d has length %d, want %d", i, len(w), n.lookback)
		}
	}

	nVal := holdout(len(windows), n.cfg.ValidationSplit)
	nTrain := len(windows) - nVal
	trainX, trainY := windows[:nTrain], targets[:nTrain]
	valX, valY := windows[nTrain:], targets[nTrain:]

	var rep forecast.FitReport
	for epoch := 0; epoch < n.cfg.Epochs; epoch++ {
		var sumSq, sumAbs float64
		for start := 0; start < nTrain; start += n.cfg.BatchSize {
			end := min(start+n.cfg.BatchSize, nTrain)
			size := float64(end - start)
			n.zeroGrad()
			for i := start; i < end; i++ {
				tr := n.forward(trainX[i], true)
				diff := tr.y - trainY[i]
				sumSq += diff * diff
				sumAbs += math.Abs(diff)
				n.backward(tr, 2*diff/size)
			}
			n.clip()
			n.update()
		}
		rep.Loss = sumSq / float64(nTrain)
		rep.MAE = sumAbs / float64(nTrain)
		if !finite(rep.Loss) || !n.weightsFinite() {
			return rep, fmt.Errorf("epoch %d: %w", epoch+1, ErrDiverged)
		}
		if nVal > 0 {
			rep.ValLoss = n.evaluate(valX, valY)
			rep.HasVal = true
		}
		rep.Epochs = epoch + 1
	}
	return rep, nil
}

// holdout returns how many trailing examples validate, sized the way keras
// sizes validation_split. At least one example is always left to train on.
func holdout(n int, split float64) int {
	v := n - int(float64(n)*(1-split))
	if v >= n {
		v = n - 1
	}
	return v
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func (n *Network) weightsFinite() bool {
	for _, p := range n.params {
		for _, w := range p.w {
			if !finite(w) {
				return false
			}
		}
	}
	return true
}

// evaluate returns the mean squared error without dropout.
func (n *Network) evaluate(xs [][]float64, ys []float64) float64 {
	var sum float64
	for i, x := range xs {
		d := n.Predict(x) - ys[i]
		sum += d * d
	}
	return sum / float64(len(xs))
}

func (n *Network) zeroGrad() {
	for _, p := range n.params {
		clear(p.g)
	}
}

// clip rescales all gradients together when their global L2 norm exceeds
// ClipNorm.
func (n *Network) clip() {
	if n.cfg.ClipNorm == 0 {
		return
	}
	var sq float64
	for _, p := range n.params {
		sq += floats.Dot(p.g, p.g)
	}
	norm := math.Sqrt(sq)
	if norm <= n.cfg.ClipNorm {
		return
	}
	scale := n.cfg.ClipNorm / norm
	for _, p := range n.params {
		floats.Scale(scale, p.g)
	}
}

// update applies one Adam step with bias correction folded into the
// learning rate.
func (n *Network) update() {
	n.step++
	c := n.cfg
	t := float64(n.step)
	lr := c.LearningRate * math.Sqrt(1-math.Pow(c.Beta2, t)) / (1 - math.Pow(c.Beta1, t))
	for _, p := range n.params {
		for i, g := range p.g {
			p.m[i] = c.Beta1*p.m[i] + (1-c.Beta1)*g
			p.v[i] = c.Beta2*p.v[i] + (1-c.Beta2)*g*g
			p.w[i] -= lr * p.m[i] / (math.Sqrt(p.v[i]) + c.Epsilon)
		}
	}
}
