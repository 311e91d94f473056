// Package optim holds gradient-based optimizers that update parameter blocks
// in place.
package optim

import (
	"errors"
	"fmt"
	"math"
)

var ErrShapeMismatch = errors.New("optim: gradient shape does not match parameters")

// Adam implements the Adam optimizer with bias correction.
//
// Update rule, per scalar parameter:
//
//	m = β1·m + (1-β1)·g
//	v = β2·v + (1-β2)·g²
//	m̂ = m / (1 - β1^t)
//	v̂ = v / (1 - β2^t)
//	w = w - lr · m̂ / (√v̂ + ε)
//
// Zero gradients still decay m and v.
type Adam struct {
	lr           float64
	beta1, beta2 float64
	eps          float64
	m, v         [][]float64
	step         int
}

// NewAdam creates an Adam optimizer with the given learning rate.
// Uses standard defaults: β1=0.9, β2=0.999, ε=1e-8.
func NewAdam(lr float64) *Adam {
	return &Adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-8,
	}
}

func (a *Adam) Steps() int {
	return a.step
}

// Step applies one update to params using grads. Both must have the same
// block layout; moment buffers are sized on the first call.
func (a *Adam) Step(params, grads [][]float64) error {
	if len(params) != len(grads) {
		return fmt.Errorf("%w: %d parameter blocks, %d gradient blocks", ErrShapeMismatch, len(params), len(grads))
	}
	for i := range params {
		if len(params[i]) != len(grads[i]) {
			return fmt.Errorf("%w: block %d has %d parameters, %d gradients", ErrShapeMismatch, i, len(params[i]), len(grads[i]))
		}
	}
	if a.m == nil {
		a.m = zerosLike(params)
		a.v = zerosLike(params)
	} else if !sameShape(a.m, params) {
		return fmt.Errorf("%w: optimizer was initialized for a different layout", ErrShapeMismatch)
	}

	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))

	for b := range params {
		m, v, p, g := a.m[b], a.v[b], params[b], grads[b]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]

			mHat := m[i] / c1
			vHat := v[i] / c2
			p[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
	return nil
}

// State is a deep copy of the optimizer's moments and step count.
type State struct {
	M, V [][]float64
	Step int
}

func (a *Adam) State() State {
	return State{M: deepCopy(a.m), V: deepCopy(a.v), Step: a.step}
}

func (a *Adam) SetState(s State) {
	a.m = deepCopy(s.M)
	a.v = deepCopy(s.V)
	a.step = s.Step
}

func zerosLike(blocks [][]float64) [][]float64 {
	out := make([][]float64, len(blocks))
	for i, b := range blocks {
		out[i] = make([]float64, len(b))
	}
	return out
}

func sameShape(a, b [][]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
	}
	return true
}

func deepCopy(blocks [][]float64) [][]float64 {
	if blocks == nil {
		return nil
	}
	out := make([][]float64, len(blocks))
	for i, b := range blocks {
		out[i] = append([]float64(nil), b...)
	}
	return out
}
