package nn

import (
	"fmt"

	"github.com/born-ml/nodekit/internal/autodiff"
)

// Sequential chains layers, feeding each output into the next layer.
//
// Parameters of layer i are renamed to "layers.i.<name>", so a Sequential
// takes ownership of the layers it is built from.
type Sequential struct {
	layers []Layer
}

// NewSequential creates a Sequential from layers.
func NewSequential(layers ...Layer) *Sequential {
	for i, l := range layers {
		prefixed(fmt.Sprintf("layers.%d", i), l.Parameters())
	}
	return &Sequential{layers: layers}
}

// Forward runs every layer in order.
func (s *Sequential) Forward(tape *autodiff.Tape, x *autodiff.Var) *autodiff.Var {
	for _, l := range s.layers {
		x = l.Forward(tape, x)
	}
	return x
}

// Parameters returns the parameters of all layers in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range s.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// Layers returns the layers.
func (s *Sequential) Layers() []Layer {
	return s.layers
}
