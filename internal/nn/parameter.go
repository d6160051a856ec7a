package nn

import (
	"fmt"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Parameter is a named trainable array.
//
// Optimizers update the array in place, so a Parameter keeps the same
// value pointer for its whole life.
type Parameter struct {
	name  string
	value *tensor.Array[float32]
}

// NewParameter creates a parameter.
func NewParameter(name string, value *tensor.Array[float32]) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name (e.g. "layers.0.weight").
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter array.
func (p *Parameter) Value() *tensor.Array[float32] {
	return p.value
}

// Load copies v into the parameter. Shapes must match.
func (p *Parameter) Load(v *tensor.Array[float32]) error {
	if !v.Shape().Equal(p.value.Shape()) {
		return fmt.Errorf("%w: parameter %s has shape %v, got %v", tensor.ErrShape, p.name, p.value.Shape(), v.Shape())
	}
	copy(p.value.Data(), v.Data())
	return nil
}

func (p *Parameter) bind(tape *autodiff.Tape) *autodiff.Var {
	if tape == nil {
		return autodiff.Const(p.value)
	}
	return tape.Watch(p.value)
}

// Values returns the arrays behind params, in order.
func Values(params []*Parameter) []*tensor.Array[float32] {
	out := make([]*tensor.Array[float32], len(params))
	for i, p := range params {
		out[i] = p.value
	}
	return out
}

// Grads returns the gradient of each parameter, in order. Parameters that
// did not contribute get zeros.
func Grads(g *autodiff.Gradients, params []*Parameter) []*tensor.Array[float32] {
	out := make([]*tensor.Array[float32], len(params))
	for i, p := range params {
		out[i] = g.Wrt(p.value)
	}
	return out
}

func prefixed(prefix string, params []*Parameter) []*Parameter {
	for _, p := range params {
		p.name = prefix + "." + p.name
	}
	return params
}
