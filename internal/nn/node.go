package nn

import (
	"context"
	"fmt"
	"math"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/ode"
)

// NeuralODEConfig configures a NeuralODE.
type NeuralODEConfig struct {
	Solver ode.Solver // Default: ode.RK4
	T0, T1 float64    // Integration interval (default: [0, 1])
	Steps  int        // Number of fixed steps (default: 10)
}

// NeuralODE integrates dy/dt = field(y) from T0 to T1.
//
// Steps have a fixed size, and every solver stage is recorded on the tape,
// so gradients are exact for the discretised solve.
type NeuralODE struct {
	field Layer
	cfg   NeuralODEConfig
}

// NewNeuralODE wraps field as an ODE block. Parameters of field are
// renamed to "field.<name>".
func NewNeuralODE(field Layer, cfg NeuralODEConfig) (*NeuralODE, error) {
	if cfg.Solver.Name == "" {
		cfg.Solver = ode.RK4
	}
	if cfg.T0 == 0 && cfg.T1 == 0 {
		cfg.T1 = 1
	}
	if cfg.Steps == 0 {
		cfg.Steps = 10
	}
	if cfg.Steps < 0 || cfg.T0 == cfg.T1 {
		return nil, fmt.Errorf("%w: neural ODE over [%g, %g] with %d steps", ErrConfig, cfg.T0, cfg.T1, cfg.Steps)
	}
	prefixed("field", field.Parameters())
	return &NeuralODE{field: field, cfg: cfg}, nil
}

func (n *NeuralODE) term(tape *autodiff.Tape) ode.Term[*autodiff.Var] {
	return func(_ float64, y *autodiff.Var) *autodiff.Var {
		return n.field.Forward(tape, y)
	}
}

func (n *NeuralODE) options(saveAt ode.SaveAt) ode.Options {
	return ode.Options{SaveAt: saveAt, MaxSteps: n.cfg.Steps + len(saveAt.Ts) + 1}
}

func (n *NeuralODE) dt() float64 {
	return math.Abs(n.cfg.T1-n.cfg.T0) / float64(n.cfg.Steps)
}

// Solve integrates y0 and returns the state at T1.
func (n *NeuralODE) Solve(ctx context.Context, tape *autodiff.Tape, y0 *autodiff.Var) (*autodiff.Var, error) {
	sol, err := ode.Solve(ctx, ode.Vars{}, n.term(tape), n.cfg.Solver, n.cfg.T0, n.cfg.T1, n.dt(), y0, n.options(ode.SaveAt{}))
	if err != nil {
		return nil, fmt.Errorf("neural ode: %w", err)
	}
	return sol.Final(), nil
}

// Trajectory integrates y0 and returns the states at ts.
func (n *NeuralODE) Trajectory(ctx context.Context, tape *autodiff.Tape, y0 *autodiff.Var, ts []float64) (*ode.Solution[*autodiff.Var], error) {
	sol, err := ode.Solve(ctx, ode.Vars{}, n.term(tape), n.cfg.Solver, n.cfg.T0, n.cfg.T1, n.dt(), y0, n.options(ode.SaveAt{Ts: ts}))
	if err != nil {
		return nil, fmt.Errorf("neural ode: %w", err)
	}
	return sol, nil
}

// Forward implements Layer. A fixed-step solve only fails on programming
// errors, so Forward panics instead of returning them.
func (n *NeuralODE) Forward(tape *autodiff.Tape, y0 *autodiff.Var) *autodiff.Var {
	y, err := n.Solve(context.Background(), tape, y0)
	if err != nil {
		panic(err)
	}
	return y
}

// Parameters returns the parameters of the vector field.
func (n *NeuralODE) Parameters() []*Parameter {
	return n.field.Parameters()
}

// Field returns the vector field layer.
func (n *NeuralODE) Field() Layer {
	return n.field
}
