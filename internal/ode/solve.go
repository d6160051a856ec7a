package ode

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMaxSteps is returned when the step budget is exhausted before t1.
	ErrMaxSteps = errors.New("ode: maximum number of steps reached")

	// ErrDtMin is returned when a step at the minimum size is rejected.
	ErrDtMin = errors.New("ode: step size fell below the minimum")

	// ErrConfig is wrapped by errors caused by invalid solve arguments.
	ErrConfig = errors.New("ode: invalid configuration")
)

// Term is the vector field dy/dt = f(t, y).
type Term[Y any] func(t float64, y Y) Y

// SaveAt selects which states are returned.
//
// With the zero value only the final state is saved.
type SaveAt struct {
	T0    bool      // Save the initial state
	T1    bool      // Save the final state
	Ts    []float64 // Save at these times; steps are clipped to hit them exactly
	Steps bool      // Save after every accepted step
}

func (s SaveAt) isZero() bool {
	return !s.T0 && !s.T1 && len(s.Ts) == 0 && !s.Steps
}

// Options configures a solve.
type Options struct {
	SaveAt     SaveAt
	Controller Controller // Default: ConstantStepSize
	MaxSteps   int        // Step budget including rejected steps (default: 4096)
}

// Result describes how a solve terminated.
type Result int

// Solve outcomes.
const (
	Successful Result = iota
	MaxStepsReached
	DtMinReached
)

func (r Result) String() string {
	switch r {
	case Successful:
		return "successful"
	case MaxStepsReached:
		return "max_steps_reached"
	case DtMinReached:
		return "dt_min_reached"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Stats counts work done by a solve.
type Stats struct {
	NumSteps    int // Attempted steps
	NumAccepted int
	NumRejected int
	NumEvals    int // Vector field evaluations
}

// Solution holds the saved states.
type Solution[Y any] struct {
	Ts     []float64
	Ys     []Y
	Stats  Stats
	Result Result
}

// Final returns the last saved state, or the zero Y when a failed solve
// saved nothing.
func (s *Solution[Y]) Final() Y {
	if len(s.Ys) == 0 {
		var zero Y
		return zero
	}
	return s.Ys[len(s.Ys)-1]
}

func (s *Solution[Y]) save(t float64, y Y) {
	s.Ts = append(s.Ts, t)
	s.Ys = append(s.Ys, y)
}

type integrator[Y any] struct {
	space  Space[Y]
	term   Term[Y]
	solver Solver
	stats  *Stats
}

// step advances y by h (signed) and returns the new state and, for
// adaptive solvers, the local error estimate.
func (in *integrator[Y]) step(t float64, y Y, h float64) (Y, Y, bool) {
	k := make([]Y, in.solver.Stages())
	for i := range k {
		yi := y
		for j, a := range in.solver.A[i] {
			if a != 0 {
				yi = in.space.Add(yi, in.space.Scale(k[j], h*a))
			}
		}
		k[i] = in.term(t+in.solver.C[i]*h, yi)
		in.stats.NumEvals++
	}

	y1 := y
	for i, b := range in.solver.B {
		if b != 0 {
			y1 = in.space.Add(y1, in.space.Scale(k[i], h*b))
		}
	}

	var yErr Y
	if in.solver.BErr == nil {
		return y1, yErr, false
	}
	first := true
	for i, e := range in.solver.BErr {
		if e == 0 {
			continue
		}
		term := in.space.Scale(k[i], h*e)
		if first {
			yErr, first = term, false
		} else {
			yErr = in.space.Add(yErr, term)
		}
	}
	return y1, yErr, true
}

// initialStep follows Hairer, Norsett & Wanner (II.4) for choosing dt0.
func (in *integrator[Y]) initialStep(t0 float64, y0 Y, dir float64, c PIDController) float64 {
	f0 := in.term(t0, y0)
	in.stats.NumEvals++
	d0 := in.space.ErrorRatio(y0, y0, y0, c.RTol, c.ATol)
	d1 := in.space.ErrorRatio(f0, y0, y0, c.RTol, c.ATol)

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	y1 := in.space.Add(y0, in.space.Scale(f0, dir*h0))
	f1 := in.term(t0+dir*h0, y1)
	in.stats.NumEvals++
	d2 := in.space.ErrorRatio(in.space.Add(f1, in.space.Scale(f0, -1)), y0, y0, c.RTol, c.ATol) / h0

	var h1 float64
	if max(d1, d2) <= 1e-15 {
		h1 = max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/max(d1, d2), 1/float64(in.solver.Order+1))
	}
	return min(100*h0, h1)
}

// Solve integrates term from t0 to t1 starting at y0.
//
// dt0 is the first step size; its sign is ignored and the direction comes
// from t1 - t0, so reverse-time solves work. With a PIDController, dt0 == 0
// selects the first step automatically.
//
// When the step budget runs out or the step size collapses, Solve returns
// the partial solution together with ErrMaxSteps or ErrDtMin.
func Solve[Y any](ctx context.Context, space Space[Y], term Term[Y], solver Solver,
	t0, t1, dt0 float64, y0 Y, opts Options) (*Solution[Y], error) {
	if opts.MaxSteps == 0 {
		opts.MaxSteps = 4096
	}
	if opts.Controller == nil {
		opts.Controller = ConstantStepSize{}
	}
	if opts.SaveAt.isZero() {
		opts.SaveAt.T1 = true
	}

	dir := 1.0
	if t1 < t0 {
		dir = -1
	}
	if err := checkSaveTimes(opts.SaveAt.Ts, t0, t1, dir); err != nil {
		return nil, err
	}

	var pid PIDController
	adaptive := opts.Controller.adaptive()
	if adaptive {
		if !solver.Adaptive() {
			return nil, fmt.Errorf("%w: solver %s has no error estimate for adaptive stepping", ErrConfig, solver.Name)
		}
		switch c := opts.Controller.(type) {
		case PIDController:
			pid = c.withDefaults()
		case *PIDController:
			pid = c.withDefaults()
		}
	}

	sol := &Solution[Y]{}
	in := &integrator[Y]{space: space, term: term, solver: solver, stats: &sol.Stats}

	dt := math.Abs(dt0)
	if dt == 0 {
		if !adaptive {
			return nil, fmt.Errorf("%w: dt0 must be non-zero for constant step sizes", ErrConfig)
		}
		dt = in.initialStep(t0, y0, dir, pid)
	}
	if adaptive {
		dt = pid.clampDt(dt)
	}

	t, y := t0, y0
	saveIdx := 0
	if opts.SaveAt.T0 {
		sol.save(t0, y0)
	}
	for saveIdx < len(opts.SaveAt.Ts) && opts.SaveAt.Ts[saveIdx] == t0 {
		sol.save(t0, y0)
		saveIdx++
	}

	prevRatio := 0.0
	for t != t1 {
		if err := ctx.Err(); err != nil {
			return sol, err
		}
		if sol.Stats.NumSteps >= opts.MaxSteps {
			sol.Result = MaxStepsReached
			return sol, fmt.Errorf("%w: %d steps, t=%g", ErrMaxSteps, sol.Stats.NumSteps, t)
		}

		target := t1
		if saveIdx < len(opts.SaveAt.Ts) {
			target = opts.SaveAt.Ts[saveIdx]
		}
		h := dt
		clipped := false
		// Snap onto the target instead of leaving a sliver from rounding.
		if remaining := math.Abs(target - t); h >= remaining || remaining-h <= 1e-9*h {
			h, clipped = remaining, true
		}

		y1, yErr, hasErr := in.step(t, y, dir*h)
		sol.Stats.NumSteps++

		if adaptive && hasErr {
			ratio := space.ErrorRatio(yErr, y, y1, pid.RTol, pid.ATol)
			if math.IsNaN(ratio) {
				ratio = math.Inf(1)
			}
			accepted := ratio <= 1
			factor := pid.factor(ratio, prevRatio, solver.Order, accepted)
			if !accepted {
				sol.Stats.NumRejected++
				if pid.DtMin > 0 && h <= pid.DtMin {
					sol.Result = DtMinReached
					return sol, fmt.Errorf("%w: dt=%g at t=%g", ErrDtMin, h, t)
				}
				dt = pid.clampDt(h * factor)
				continue
			}
			prevRatio = ratio
			if clipped {
				dt = pid.clampDt(max(dt, h*factor))
			} else {
				dt = pid.clampDt(h * factor)
			}
		}

		sol.Stats.NumAccepted++
		if clipped {
			t = target
		} else {
			t += dir * h
		}
		y = y1

		if opts.SaveAt.Steps {
			sol.save(t, y)
		}
		for saveIdx < len(opts.SaveAt.Ts) && opts.SaveAt.Ts[saveIdx] == t {
			sol.save(t, y)
			saveIdx++
		}
	}

	// A zero-length interval takes no steps; still report where it ended.
	if (opts.SaveAt.T1 && !(opts.SaveAt.Steps && len(sol.Ts) > 0 && sol.Ts[len(sol.Ts)-1] == t1)) || len(sol.Ys) == 0 {
		sol.save(t1, y)
	}
	return sol, nil
}

func checkSaveTimes(ts []float64, t0, t1, dir float64) error {
	prev := t0
	for i, s := range ts {
		if (s-t0)*dir < 0 || (t1-s)*dir < 0 {
			return fmt.Errorf("%w: save time %g outside [%g, %g]", ErrConfig, s, t0, t1)
		}
		if i > 0 && (s-prev)*dir < 0 {
			return fmt.Errorf("%w: save times must be ordered in the direction of integration", ErrConfig)
		}
		prev = s
	}
	return nil
}
