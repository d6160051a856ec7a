// Package nn implements neural network modules on top of autodiff.
//
// Modules own their parameters as plain float32 arrays. A forward pass
// takes the tape to record on: parameters are watched on that tape so
// their gradients can be read back with Gradients.Wrt after Backward.
// Passing a nil tape runs the module without recording anything.
//
//	model, _ := nn.NewMLP(key, nn.MLPConfig{In: 784, Out: 10, Width: 64, Depth: 2})
//	tape := autodiff.NewTape()
//	logits := model.Forward(tape, autodiff.Const(x))
//	loss := autodiff.SoftmaxCrossEntropy(logits, labels)
//	grads, _ := tape.Backward(loss)
//	updates := nn.Grads(grads, model.Parameters())
package nn

import (
	"github.com/born-ml/nodekit/internal/autodiff"
)

// Module is anything that owns trainable parameters.
type Module interface {
	// Parameters returns all trainable parameters, including those of
	// nested modules, in a stable order.
	Parameters() []*Parameter
}

// Layer is a Module with a forward pass.
type Layer interface {
	Module

	// Forward computes the output for x, recording on tape when it is
	// non-nil.
	Forward(tape *autodiff.Tape, x *autodiff.Var) *autodiff.Var
}

// Count returns the total number of scalar parameters in m.
func Count(m Module) int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.Value().Size()
	}
	return n
}
