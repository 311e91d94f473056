package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	QHiddenUnits1 = 128
	QHiddenUnits2 = 64
)

var (
	ErrInputSize  = errors.New("nn: input size mismatch")
	ErrOutputSize = errors.New("nn: output gradient size mismatch")
	ErrParamShape = errors.New("nn: parameter shape mismatch")
)

type LayerSpec struct {
	Units      int
	Activation string
}

type layer struct {
	weights *mat.Dense    // units x inputs
	bias    *mat.VecDense // units
	act     Activation
}

// Network is a fully connected feed-forward network. It only computes; the
// caller decides when and how its parameters change.
type Network struct {
	inputs int
	layers []layer
}

// NewQNetwork builds the action-value network: two relu hidden layers and a
// linear output with one unit per action.
func NewQNetwork(rng *rand.Rand, inputs, actions int) (*Network, error) {
	return NewNetwork(rng, inputs,
		LayerSpec{Units: QHiddenUnits1, Activation: "relu"},
		LayerSpec{Units: QHiddenUnits2, Activation: "relu"},
		LayerSpec{Units: actions, Activation: "identity"},
	)
}

// NewNetwork draws every weight and bias from U(-1/sqrt(fanIn), 1/sqrt(fanIn)).
func NewNetwork(rng *rand.Rand, inputs int, specs ...LayerSpec) (*Network, error) {
	if rng == nil {
		return nil, errors.New("nn: random source is required")
	}
	if inputs <= 0 {
		return nil, fmt.Errorf("nn: inputs must be positive, got %d", inputs)
	}
	if len(specs) == 0 {
		return nil, errors.New("nn: at least one layer is required")
	}

	n := &Network{inputs: inputs, layers: make([]layer, 0, len(specs))}
	fanIn := inputs
	for i, spec := range specs {
		if spec.Units <= 0 {
			return nil, fmt.Errorf("nn: layer %d units must be positive, got %d", i, spec.Units)
		}
		act, err := GetActivation(spec.Activation)
		if err != nil {
			return nil, fmt.Errorf("nn: layer %d: %w", i, err)
		}

		bound := 1 / math.Sqrt(float64(fanIn))
		w := make([]float64, spec.Units*fanIn)
		for j := range w {
			w[j] = uniform(rng, bound)
		}
		b := make([]float64, spec.Units)
		for j := range b {
			b[j] = uniform(rng, bound)
		}

		n.layers = append(n.layers, layer{
			weights: mat.NewDense(spec.Units, fanIn, w),
			bias:    mat.NewVecDense(spec.Units, b),
			act:     act,
		})
		fanIn = spec.Units
	}
	return n, nil
}

func uniform(rng *rand.Rand, bound float64) float64 {
	return (rng.Float64()*2 - 1) * bound
}

func (n *Network) Inputs() int {
	return n.inputs
}

func (n *Network) Outputs() int {
	units, _ := n.layers[len(n.layers)-1].weights.Dims()
	return units
}

// Forward evaluates the network without recording anything for backprop.
func (n *Network) Forward(x []float64) ([]float64, error) {
	trace, err := n.ForwardTrace(x)
	if err != nil {
		return nil, err
	}
	return trace.Output(), nil
}

// Trace keeps per-layer inputs and pre-activations of one forward pass.
type Trace struct {
	inputs []*mat.VecDense
	pre    []*mat.VecDense
	output *mat.VecDense
}

func (t *Trace) Output() []float64 {
	out := make([]float64, t.output.Len())
	copy(out, t.output.RawVector().Data)
	return out
}

func (n *Network) ForwardTrace(x []float64) (*Trace, error) {
	if len(x) != n.inputs {
		return nil, fmt.Errorf("%w: got %d want %d", ErrInputSize, len(x), n.inputs)
	}

	in := make([]float64, len(x))
	copy(in, x)
	a := mat.NewVecDense(len(in), in)

	trace := &Trace{
		inputs: make([]*mat.VecDense, 0, len(n.layers)),
		pre:    make([]*mat.VecDense, 0, len(n.layers)),
	}
	for _, l := range n.layers {
		units, _ := l.weights.Dims()
		z := mat.NewVecDense(units, nil)
		z.MulVec(l.weights, a)
		z.AddVec(z, l.bias)

		out := mat.NewVecDense(units, nil)
		for i := 0; i < units; i++ {
			out.SetVec(i, l.act.Func(z.AtVec(i)))
		}

		trace.inputs = append(trace.inputs, a)
		trace.pre = append(trace.pre, z)
		a = out
	}
	trace.output = a
	return trace, nil
}

// Gradients holds dL/dθ laid out like the network parameters.
type Gradients struct {
	weights []*mat.Dense
	biases  []*mat.VecDense
}

// Flat returns gradient views in the same order as Network.Params.
func (g Gradients) Flat() [][]float64 {
	out := make([][]float64, 0, 2*len(g.weights))
	for i := range g.weights {
		out = append(out, g.weights[i].RawMatrix().Data, g.biases[i].RawVector().Data)
	}
	return out
}

// Backward propagates dL/d(output) through a recorded trace. The returned
// gradients are freshly allocated, so nothing accumulates across calls.
func (n *Network) Backward(trace *Trace, outGrad []float64) (Gradients, error) {
	if trace == nil || len(trace.pre) != len(n.layers) {
		return Gradients{}, errors.New("nn: trace does not belong to this network")
	}
	if len(outGrad) != n.Outputs() {
		return Gradients{}, fmt.Errorf("%w: got %d want %d", ErrOutputSize, len(outGrad), n.Outputs())
	}

	grads := Gradients{
		weights: make([]*mat.Dense, len(n.layers)),
		biases:  make([]*mat.VecDense, len(n.layers)),
	}

	upstream := make([]float64, len(outGrad))
	copy(upstream, outGrad)
	delta := mat.NewVecDense(len(upstream), upstream)

	for i := len(n.layers) - 1; i >= 0; i-- {
		l := n.layers[i]
		units, fanIn := l.weights.Dims()

		dz := mat.NewVecDense(units, nil)
		for j := 0; j < units; j++ {
			dz.SetVec(j, delta.AtVec(j)*l.act.Deriv(trace.pre[i].AtVec(j)))
		}

		dw := mat.NewDense(units, fanIn, nil)
		dw.Outer(1, dz, trace.inputs[i])
		grads.weights[i] = dw
		grads.biases[i] = dz

		if i > 0 {
			next := mat.NewVecDense(fanIn, nil)
			next.MulVec(l.weights.T(), dz)
			delta = next
		}
	}
	return grads, nil
}

// Params returns live views of every parameter: weights then bias, per
// layer. Writing through them changes the network.
func (n *Network) Params() [][]float64 {
	out := make([][]float64, 0, 2*len(n.layers))
	for _, l := range n.layers {
		out = append(out, l.weights.RawMatrix().Data, l.bias.RawVector().Data)
	}
	return out
}

// ParamCount is the total number of scalar parameters.
func (n *Network) ParamCount() int {
	total := 0
	for _, p := range n.Params() {
		total += len(p)
	}
	return total
}

type Snapshot [][]float64

func (n *Network) Snapshot() Snapshot {
	params := n.Params()
	snap := make(Snapshot, len(params))
	for i, p := range params {
		snap[i] = append([]float64(nil), p...)
	}
	return snap
}

// Restore overwrites the parameters with a snapshot of the same shape.
func (n *Network) Restore(snap Snapshot) error {
	params := n.Params()
	if len(snap) != len(params) {
		return fmt.Errorf("%w: got %d blocks want %d", ErrParamShape, len(snap), len(params))
	}
	for i := range params {
		if len(snap[i]) != len(params[i]) {
			return fmt.Errorf("%w: block %d has %d values want %d", ErrParamShape, i, len(snap[i]), len(params[i]))
		}
	}
	for i := range params {
		copy(params[i], snap[i])
	}
	return nil
}

// Finite reports whether every parameter is a finite number.
func (n *Network) Finite() bool {
	for _, p := range n.Params() {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
