package nn

import (
	"fmt"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W + b.
//
// W has shape [in_features, out_features] and b has shape [out_features].
// Inputs are [batch, in_features] or a single [in_features] vector.
// Weights use Xavier initialization and biases start at zero.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter // nil when the layer has no bias
}

// NewLinear creates a Linear layer with weights drawn from key.
func NewLinear(key random.Key, inFeatures, outFeatures int, useBias bool) *Linear {
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", Xavier(key, inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures})),
	}
	if useBias {
		l.bias = NewParameter("bias", tensor.Zeros[float32](tensor.Shape{outFeatures}))
	}
	return l
}

// Forward computes x @ W + b.
//
// It panics with an error wrapping tensor.ErrShape when x does not have
// in_features columns.
func (l *Linear) Forward(tape *autodiff.Tape, x *autodiff.Var) *autodiff.Var {
	shape := x.Shape()
	vector := len(shape) == 1
	if vector {
		x = autodiff.Reshape(x, tensor.Shape{1, shape[0]})
		shape = x.Shape()
	}
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Errorf("%w: Linear expects [batch, %d], got %v", tensor.ErrShape, l.inFeatures, x.Shape()))
	}

	out := autodiff.MatMul(x, l.weight.bind(tape))
	if l.bias != nil {
		out = autodiff.Add(out, l.bias.bind(tape))
	}
	if vector {
		out = autodiff.Reshape(out, tensor.Shape{l.outFeatures})
	}
	return out
}

// Parameters returns [weight, bias], or [weight] without bias.
func (l *Linear) Parameters() []*Parameter {
	if l.bias != nil {
		return []*Parameter{l.weight, l.bias}
	}
	return []*Parameter{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter, or nil.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
