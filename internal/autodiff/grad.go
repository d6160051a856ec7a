package autodiff

import (
	"errors"
	"fmt"

	"github.com/born-ml/nodekit/internal/tensor"
)

// Func is a scalar-valued function of watched parameters.
type Func func(tape *Tape, params []*Var) *Var

// ValueAndGrad evaluates fn on params and returns its scalar value together
// with one gradient per parameter, in the same order.
//
// Shape errors raised while building the graph are returned as errors.
func ValueAndGrad(fn Func, params []*Array) (value float32, grads []*Array, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok || !errors.Is(perr, tensor.ErrShape) {
				panic(r)
			}
			err = fmt.Errorf("autodiff: %w", perr)
		}
	}()

	tape := NewTape()
	vars := make([]*Var, len(params))
	for i, p := range params {
		vars[i] = tape.Watch(p)
	}

	out := fn(tape, vars)
	g, err := tape.Backward(out)
	if err != nil {
		return 0, nil, err
	}

	grads = make([]*Array, len(params))
	for i, v := range vars {
		grads[i] = g.Of(v)
	}
	return out.value.Data()[0], grads, nil
}
