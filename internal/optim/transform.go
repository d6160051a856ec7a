// Package optim implements composable gradient transformations.
//
// Optimizers are built from small stateless-looking pieces: each
// GradientTransformation maps gradients to updates and threads its own
// State explicitly. Chain composes them, and ApplyUpdates adds the final
// updates to the parameters.
//
// Example usage:
//
//	opt := optim.Chain(
//	    optim.ClipByGlobalNorm(1.0),
//	    optim.Adam(optim.AdamConfig{LR: 3e-3}),
//	)
//	state := opt.Init(params)
//	for step := range steps {
//	    loss, grads, err := autodiff.ValueAndGrad(lossFn, params)
//	    updates, state, err = opt.Update(grads, state, params)
//	    err = optim.ApplyUpdates(params, updates)
//	}
package optim

import (
	"errors"
	"fmt"
	"math"

	"github.com/born-ml/nodekit/internal/tensor"
)

// ErrMismatch is returned when gradients, state and parameters disagree in
// count or shape.
var ErrMismatch = errors.New("optim: gradients and parameters mismatch")

// Array is the parameter and gradient type.
type Array = tensor.Array[float32]

// State is the opaque per-transformation optimizer state.
type State any

// GradientTransformation turns gradients into parameter updates.
type GradientTransformation interface {
	// Init builds the initial state for params.
	Init(params []*Array) State

	// Update maps grads to updates, returning the next state. params may be
	// nil for transformations that do not read them.
	Update(grads []*Array, state State, params []*Array) ([]*Array, State, error)
}

// transformFuncs adapts a pair of functions to GradientTransformation.
type transformFuncs struct {
	init   func(params []*Array) State
	update func(grads []*Array, state State, params []*Array) ([]*Array, State, error)
}

func (t transformFuncs) Init(params []*Array) State { return t.init(params) }

func (t transformFuncs) Update(grads []*Array, state State, params []*Array) ([]*Array, State, error) {
	return t.update(grads, state, params)
}

type emptyState struct{}

type countState struct {
	count int
}

func zerosLike(params []*Array) []*Array {
	out := make([]*Array, len(params))
	for i, p := range params {
		out[i] = tensor.Zeros[float32](p.Shape())
	}
	return out
}

func checkShapes(grads, other []*Array, what string) error {
	if len(grads) != len(other) {
		return fmt.Errorf("%w: %d gradients, %d %s", ErrMismatch, len(grads), len(other), what)
	}
	for i := range grads {
		if !grads[i].Shape().Equal(other[i].Shape()) {
			return fmt.Errorf("%w: gradient %d has shape %v, %s has %v",
				ErrMismatch, i, grads[i].Shape(), what, other[i].Shape())
		}
	}
	return nil
}

func stateAs[S any](state State) (S, error) {
	s, ok := state.(S)
	if !ok {
		var zero S
		return zero, fmt.Errorf("%w: unexpected state %T", ErrMismatch, state)
	}
	return s, nil
}

func mapArrays(in []*Array, f func(i int, x float32) float32) []*Array {
	out := make([]*Array, len(in))
	for k, a := range in {
		out[k] = tensor.Zeros[float32](a.Shape())
		od := out[k].Data()
		for i, x := range a.Data() {
			od[i] = f(i, x)
		}
	}
	return out
}

// Scale multiplies updates by a constant factor.
func Scale(factor float32) GradientTransformation {
	return transformFuncs{
		init: func([]*Array) State { return emptyState{} },
		update: func(grads []*Array, state State, _ []*Array) ([]*Array, State, error) {
			return mapArrays(grads, func(_ int, x float32) float32 { return x * factor }), state, nil
		},
	}
}

// ScaleBySchedule multiplies updates by schedule(step).
func ScaleBySchedule(schedule Schedule) GradientTransformation {
	return transformFuncs{
		init: func([]*Array) State { return countState{} },
		update: func(grads []*Array, state State, _ []*Array) ([]*Array, State, error) {
			s, err := stateAs[countState](state)
			if err != nil {
				return nil, nil, err
			}
			factor := schedule(s.count)
			updates := mapArrays(grads, func(_ int, x float32) float32 { return x * factor })
			return updates, countState{count: s.count + 1}, nil
		},
	}
}

// scaleByLearningRate negates and scales by the learning rate, turning a
// descent direction into an update.
func scaleByLearningRate(lr Schedule) GradientTransformation {
	return ScaleBySchedule(func(step int) float32 { return -lr(step) })
}

// GlobalNorm returns the L2 norm of all arrays taken together.
func GlobalNorm(arrays []*Array) float64 {
	var sq float64
	for _, a := range arrays {
		for _, x := range a.Data() {
			sq += float64(x) * float64(x)
		}
	}
	return math.Sqrt(sq)
}

// ClipByGlobalNorm rescales updates so their global norm is at most maxNorm.
func ClipByGlobalNorm(maxNorm float64) GradientTransformation {
	return transformFuncs{
		init: func([]*Array) State { return emptyState{} },
		update: func(grads []*Array, state State, _ []*Array) ([]*Array, State, error) {
			norm := GlobalNorm(grads)
			if norm <= maxNorm || norm == 0 {
				return grads, state, nil
			}
			factor := float32(maxNorm / norm)
			return mapArrays(grads, func(_ int, x float32) float32 { return x * factor }), state, nil
		},
	}
}

// AddDecayedWeights adds weightDecay * param to each update.
func AddDecayedWeights(weightDecay float32) GradientTransformation {
	return transformFuncs{
		init: func([]*Array) State { return emptyState{} },
		update: func(grads []*Array, state State, params []*Array) ([]*Array, State, error) {
			if err := checkShapes(grads, params, "params"); err != nil {
				return nil, nil, err
			}
			out := make([]*Array, len(grads))
			for k, g := range grads {
				out[k] = tensor.Zeros[float32](g.Shape())
				od, pd := out[k].Data(), params[k].Data()
				for i, x := range g.Data() {
					od[i] = x + weightDecay*pd[i]
				}
			}
			return out, state, nil
		},
	}
}

type chainState []State

// Chain applies transformations in order, feeding each one's updates to
// the next.
func Chain(transforms ...GradientTransformation) GradientTransformation {
	return transformFuncs{
		init: func(params []*Array) State {
			states := make(chainState, len(transforms))
			for i, t := range transforms {
				states[i] = t.Init(params)
			}
			return states
		},
		update: func(grads []*Array, state State, params []*Array) ([]*Array, State, error) {
			states, err := stateAs[chainState](state)
			if err != nil {
				return nil, nil, err
			}
			if len(states) != len(transforms) {
				return nil, nil, fmt.Errorf("%w: chain of %d with %d states", ErrMismatch, len(transforms), len(states))
			}
			next := make(chainState, len(transforms))
			updates := grads
			for i, t := range transforms {
				updates, next[i], err = t.Update(updates, states[i], params)
				if err != nil {
					return nil, nil, fmt.Errorf("chain[%d]: %w", i, err)
				}
			}
			return updates, next, nil
		},
	}
}

// ApplyUpdates adds updates to params in place.
func ApplyUpdates(params, updates []*Array) error {
	if err := checkShapes(updates, params, "params"); err != nil {
		return err
	}
	for i, p := range params {
		if err := tensor.AddInPlace(p, updates[i]); err != nil {
			return err
		}
	}
	return nil
}
