package lstm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// param is a flat weight tensor with its gradient and Adam moments.
type param struct {
	w, g, m, v []float64
}

func newParam(n int) *param {
	return &param{
		w: make([]float64, n),
		g: make([]float64, n),
		m: make([]float64, n),
		v: make([]float64, n),
	}
}

// glorot fills p with Glorot uniform values.
func (p *param) glorot(rng *rand.Rand, fanIn, fanOut int) {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	for i := range p.w {
		p.w[i] = (2*rng.Float64() - 1) * limit
	}
}

// orthogonal fills a rows x cols recurrent kernel (rows = 4*units gate rows,
// cols = units) with the columns of a random orthogonal matrix.
func (p *param) orthogonal(rng *rand.Rand, rows, cols int) {
	a := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}
	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)
	for j := 0; j < cols; j++ {
		sign := 1.0
		if r.At(j, j) < 0 {
			sign = -1
		}
		for i := 0; i < rows; i++ {
			p.w[i*cols+j] = sign * q.At(i, j)
		}
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// relu passes NaN through so divergence reaches the loss.
func relu(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x
}

func reluGrad(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// lstmLayer uses ReLU for the candidate and output activations and sigmoid
// gates. Gate rows are ordered input, forget, candidate, output.
type lstmLayer struct {
	in, units int
	wx        *param // 4*units x in
	wh        *param // 4*units x units
	b         *param // 4*units
}

func newLSTMLayer(rng *rand.Rand, in, units int) *lstmLayer {
	l := &lstmLayer{
		in:    in,
		units: units,
		wx:    newParam(4 * units * in),
		wh:    newParam(4 * units * units),
		b:     newParam(4 * units),
	}
	l.wx.glorot(rng, in, 4*units)
	l.wh.orthogonal(rng, 4*units, units)
	for u := 0; u < units; u++ {
		l.b.w[units+u] = 1 // forget bias
	}
	return l
}

func (l *lstmLayer) params() []*param { return []*param{l.wx, l.wh, l.b} }

// step is the state of one timestep kept for backpropagation.
type step struct {
	x, hPrev, cPrev []float64
	i, f, g, o      []float64
	zg              []float64 // candidate pre-activation
	c, h            []float64
}

func (l *lstmLayer) forward(xs [][]float64) []step {
	H := l.units
	h := make([]float64, H)
	c := make([]float64, H)
	z := make([]float64, 4*H)
	steps := make([]step, len(xs))
	for t, x := range xs {
		for k := range z {
			z[k] = l.b.w[k] +
				floats.Dot(l.wx.w[k*l.in:(k+1)*l.in], x) +
				floats.Dot(l.wh.w[k*H:(k+1)*H], h)
		}
		st := step{
			x: x, hPrev: h, cPrev: c,
			i: make([]float64, H), f: make([]float64, H),
			g: make([]float64, H), o: make([]float64, H),
			zg: make([]float64, H),
			c:  make([]float64, H), h: make([]float64, H),
		}
		for u := 0; u < H; u++ {
			st.i[u] = sigmoid(z[u])
			st.f[u] = sigmoid(z[H+u])
			st.zg[u] = z[2*H+u]
			st.g[u] = relu(st.zg[u])
			st.o[u] = sigmoid(z[3*H+u])
			st.c[u] = st.f[u]*c[u] + st.i[u]*st.g[u]
			st.h[u] = st.o[u] * relu(st.c[u])
		}
		steps[t] = st
		h, c = st.h, st.c
	}
	return steps
}

// backward accumulates parameter gradients given the loss gradient with
// respect to each output h (nil entries are zero) and returns the gradient
// with respect to each input.
func (l *lstmLayer) backward(steps []step, dhs [][]float64) [][]float64 {
	H := l.units
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	dz := make([]float64, 4*H)
	dxs := make([][]float64, len(steps))
	for t := len(steps) - 1; t >= 0; t-- {
		st := steps[t]
		dh := make([]float64, H)
		copy(dh, dhNext)
		if dhs[t] != nil {
			floats.Add(dh, dhs[t])
		}
		dcPrev := make([]float64, H)
		for u := 0; u < H; u++ {
			do := dh[u] * relu(st.c[u])
			dc := dh[u]*st.o[u]*reluGrad(st.c[u]) + dcNext[u]
			dz[u] = dc * st.g[u] * st.i[u] * (1 - st.i[u])
			dz[H+u] = dc * st.cPrev[u] * st.f[u] * (1 - st.f[u])
			dz[2*H+u] = dc * st.i[u] * reluGrad(st.zg[u])
			dz[3*H+u] = do * st.o[u] * (1 - st.o[u])
			dcPrev[u] = dc * st.f[u]
		}
		dx := make([]float64, l.in)
		dhPrev := make([]float64, H)
		for k, d := range dz {
			if d == 0 {
				continue
			}
			floats.AddScaled(l.wx.g[k*l.in:(k+1)*l.in], d, st.x)
			floats.AddScaled(l.wh.g[k*H:(k+1)*H], d, st.hPrev)
			l.b.g[k] += d
			floats.AddScaled(dx, d, l.wx.w[k*l.in:(k+1)*l.in])
			floats.AddScaled(dhPrev, d, l.wh.w[k*H:(k+1)*H])
		}
		dxs[t] = dx
		dhNext, dcNext = dhPrev, dcPrev
	}
	return dxs
}

// denseLayer is a fully connected layer with optional ReLU.
type denseLayer struct {
	in, out int
	relu    bool
	w       *param // out x in
	b       *param
}

func newDenseLayer(rng *rand.Rand, in, out int, withReLU bool) *denseLayer {
	d := &denseLayer{in: in, out: out, relu: withReLU, w: newParam(out * in), b: newParam(out)}
	d.w.glorot(rng, in, out)
	return d
}

func (d *denseLayer) params() []*param { return []*param{d.w, d.b} }

// forward returns the pre-activation and the activation.
func (d *denseLayer) forward(x []float64) (pre, act []float64) {
	pre = make([]float64, d.out)
	act = make([]float64, d.out)
	for k := range pre {
		pre[k] = d.b.w[k] + floats.Dot(d.w.w[k*d.in:(k+1)*d.in], x)
		act[k] = pre[k]
		if d.relu {
			act[k] = relu(pre[k])
		}
	}
	return pre, act
}

func (d *denseLayer) backward(x, pre, dout []float64) []float64 {
	dx := make([]float64, d.in)
	for k, g := range dout {
		if d.relu {
			g *= reluGrad(pre[k])
		}
		if g == 0 {
			continue
		}
		floats.AddScaled(d.w.g[k*d.in:(k+1)*d.in], g, x)
		d.b.g[k] += g
		floats.AddScaled(dx, g, d.w.w[k*d.in:(k+1)*d.in])
	}
	return dx
}
