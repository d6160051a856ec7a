package autodiff

import (
	"errors"
	"fmt"

	"github.com/born-ml/nodekit/internal/tensor"
)

// ErrNotScalar is returned when Backward is asked to start from a
// non-scalar output.
var ErrNotScalar = errors.New("autodiff: backward requires a scalar output")

// Array is the value type flowing through the graph.
type Array = tensor.Array[float32]

// Var is a node in the computation graph: a value plus, when it depends on
// a watched leaf, the tape that produced it.
type Var struct {
	value *Array
	tape  *Tape
	track bool
}

// Value returns the forward value. Callers must not mutate it.
func (v *Var) Value() *Array {
	return v.value
}

// Shape returns the shape of the value.
func (v *Var) Shape() tensor.Shape {
	return v.value.Shape()
}

// Tracked reports whether gradients flow back through v.
func (v *Var) Tracked() bool {
	return v.track
}

// Const wraps a value that never receives gradients.
func Const(a *Array) *Var {
	return &Var{value: a}
}

// Operation is a recorded differentiable step.
type Operation interface {
	// Inputs returns the operands in positional order.
	Inputs() []*Var

	// Output returns the produced node.
	Output() *Var

	// Backward maps the output gradient to one gradient per input
	// (nil for inputs that need none).
	Backward(grad *Array) []*Array
}

// Tape records operations during the forward pass and replays them in
// reverse to compute gradients.
//
// Usage:
//
//	tape := autodiff.NewTape()
//	w := tape.Watch(weights)
//	loss := autodiff.Mean(autodiff.Square(autodiff.MatMul(x, w)))
//	grads, err := tape.Backward(loss)
//	dw := grads.Wrt(weights)
type Tape struct {
	ops     []Operation
	watched map[*Array]*Var
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{
		ops:     make([]Operation, 0, 64),
		watched: make(map[*Array]*Var),
	}
}

// Watch returns the leaf node for a. Watching the same array twice returns
// the same node so that its gradient contributions accumulate.
func (t *Tape) Watch(a *Array) *Var {
	if v, ok := t.watched[a]; ok {
		return v
	}
	v := &Var{value: a, tape: t, track: true}
	t.watched[a] = v
	return v
}

// Const wraps a value on this tape without tracking it.
func (t *Tape) Const(a *Array) *Var {
	return &Var{value: a, tape: t}
}

// NumOps returns the number of recorded operations.
func (t *Tape) NumOps() int {
	return len(t.ops)
}

// Reset clears recorded operations and watched leaves.
func (t *Tape) Reset() {
	t.ops = t.ops[:0]
	clear(t.watched)
}

func (t *Tape) record(op Operation) {
	t.ops = append(t.ops, op)
}

// Gradients holds the result of a backward pass.
type Gradients struct {
	byVar map[*Var]*Array
	tape  *Tape
}

// Of returns the gradient with respect to v, or zeros if v did not
// contribute to the output.
func (g *Gradients) Of(v *Var) *Array {
	if grad, ok := g.byVar[v]; ok {
		return grad
	}
	return tensor.Zeros[float32](v.value.Shape())
}

// Wrt returns the gradient with respect to a watched array.
func (g *Gradients) Wrt(a *Array) *Array {
	if v, ok := g.tape.watched[a]; ok {
		return g.Of(v)
	}
	return tensor.Zeros[float32](a.Shape())
}

// Backward computes d(output)/d(leaf) for every watched leaf.
//
// Gradients of nodes used more than once are summed.
func (t *Tape) Backward(output *Var) (*Gradients, error) {
	if output.value.Size() != 1 {
		return nil, fmt.Errorf("%w: got shape %v", ErrNotScalar, output.value.Shape())
	}
	grads := &Gradients{byVar: make(map[*Var]*Array), tape: t}
	if !output.track {
		return grads, nil
	}
	if output.tape != t {
		return nil, errors.New("autodiff: output was recorded on a different tape")
	}

	grads.byVar[output] = tensor.Ones[float32](output.value.Shape())
	for i := len(t.ops) - 1; i >= 0; i-- {
		op := t.ops[i]
		g, ok := grads.byVar[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.Backward(g)
		for j, in := range op.Inputs() {
			if j >= len(inputGrads) || inputGrads[j] == nil || !in.track {
				continue
			}
			if existing, ok := grads.byVar[in]; ok {
				sum, err := tensor.Add(existing, inputGrads[j])
				if err != nil {
					return nil, fmt.Errorf("accumulate gradient: %w", err)
				}
				grads.byVar[in] = sum
			} else {
				grads.byVar[in] = inputGrads[j]
			}
		}
	}
	return grads, nil
}
