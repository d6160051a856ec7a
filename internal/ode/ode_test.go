package ode_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/ode"
	"github.com/born-ml/nodekit/internal/tensor"
)

func decay(_ float64, y []float64) []float64 {
	return []float64{-y[0]}
}

func solveDecay(t *testing.T, solver ode.Solver, dt float64, opts ode.Options) *ode.Solution[[]float64] {
	t.Helper()
	sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, solver, 0, 1, dt, []float64{1}, opts)
	require.NoError(t, err)
	return sol
}

func TestTableaux(t *testing.T) {
	for name, s := range ode.Solvers {
		t.Run(name, func(t *testing.T) {
			require.Len(t, s.A, s.Stages())
			require.Len(t, s.B, s.Stages())
			for i, row := range s.A {
				var sum float64
				for _, a := range row {
					sum += a
				}
				assert.InDelta(t, s.C[i], sum, 1e-12, "row %d", i)
			}
			var bsum float64
			for _, b := range s.B {
				bsum += b
			}
			assert.InDelta(t, 1, bsum, 1e-12)
			if s.Adaptive() {
				require.Len(t, s.BErr, s.Stages())
				var esum float64
				for _, e := range s.BErr {
					esum += e
				}
				assert.InDelta(t, 0, esum, 1e-12)
			}
		})
	}
}

func TestSolve_FixedStep(t *testing.T) {
	tests := []struct {
		solver ode.Solver
		tol    float64
	}{
		{ode.Euler, 5e-3},
		{ode.Midpoint, 5e-5},
		{ode.Heun, 5e-5},
		{ode.Ralston, 5e-5},
		{ode.Bosh3, 1e-6},
		{ode.RK4, 1e-9},
		{ode.Dopri5, 1e-11},
		{ode.Tsit5, 1e-10},
	}
	for _, tt := range tests {
		t.Run(tt.solver.Name, func(t *testing.T) {
			sol := solveDecay(t, tt.solver, 0.01, ode.Options{})
			require.Len(t, sol.Ys, 1)
			assert.Equal(t, 1.0, sol.Ts[0])
			assert.InDelta(t, math.Exp(-1), sol.Final()[0], tt.tol)
			assert.Equal(t, ode.Successful, sol.Result)
			assert.Equal(t, 100, sol.Stats.NumAccepted)
			assert.Equal(t, 100*tt.solver.Stages(), sol.Stats.NumEvals)
		})
	}
}

func TestSolve_RK4Convergence(t *testing.T) {
	errAt := func(dt float64) float64 {
		return math.Abs(solveDecay(t, ode.RK4, dt, ode.Options{}).Final()[0] - math.Exp(-1))
	}
	ratio := errAt(0.1) / errAt(0.05)
	assert.InDelta(t, 16, ratio, 1.5)
}

func TestSolve_Adaptive(t *testing.T) {
	for _, solver := range []ode.Solver{ode.Dopri5, ode.Tsit5, ode.Bosh3} {
		t.Run(solver.Name, func(t *testing.T) {
			ctrl := ode.PIDController{RTol: 1e-7, ATol: 1e-9}
			sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, solver, 0, 5, 0, []float64{1},
				ode.Options{Controller: ctrl, MaxSteps: 100000})
			require.NoError(t, err)
			assert.InDelta(t, math.Exp(-5), sol.Final()[0], 1e-5)
			assert.Positive(t, sol.Stats.NumAccepted)
			assert.Equal(t, sol.Stats.NumSteps, sol.Stats.NumAccepted+sol.Stats.NumRejected)
		})
	}
}

func TestSolve_AdaptiveTolerance(t *testing.T) {
	steps := func(rtol float64) int {
		sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, ode.Dopri5, 0, 5, 0.1, []float64{1},
			ode.Options{Controller: ode.PIDController{RTol: rtol, ATol: rtol}})
		require.NoError(t, err)
		return sol.Stats.NumAccepted
	}
	assert.Less(t, steps(1e-3), steps(1e-9))
}

func TestSolve_SaveAt(t *testing.T) {
	ts := []float64{0, 0.25, 0.5, 1}
	sol := solveDecay(t, ode.RK4, 0.1, ode.Options{SaveAt: ode.SaveAt{Ts: ts}})
	assert.Equal(t, ts, sol.Ts)
	for i, tt := range ts {
		assert.InDelta(t, math.Exp(-tt), sol.Ys[i][0], 1e-6)
	}

	all := solveDecay(t, ode.Euler, 0.25, ode.Options{SaveAt: ode.SaveAt{T0: true, T1: true, Steps: true}})
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, all.Ts)
	assert.Equal(t, []float64{1}, all.Ys[0])
}

func TestSolve_EmptyInterval(t *testing.T) {
	sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, ode.RK4, 2, 2, 0.1, []float64{3},
		ode.Options{SaveAt: ode.SaveAt{Steps: true}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, sol.Ts)
	assert.Equal(t, []float64{3}, sol.Final())
	assert.Zero(t, sol.Stats.NumSteps)

	var empty ode.Solution[[]float64]
	assert.Nil(t, empty.Final())
}

func TestSolve_SaveAtWithAdaptive(t *testing.T) {
	ts := []float64{0.1, 0.7, 2, 3}
	sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, ode.Tsit5, 0, 3, 0, []float64{1},
		ode.Options{SaveAt: ode.SaveAt{Ts: ts}, Controller: ode.PIDController{RTol: 1e-8, ATol: 1e-10}})
	require.NoError(t, err)
	assert.Equal(t, ts, sol.Ts)
	for i, tt := range ts {
		assert.InDelta(t, math.Exp(-tt), sol.Ys[i][0], 1e-6)
	}
}

func TestSolve_ReverseTime(t *testing.T) {
	sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, ode.RK4, 1, 0, 0.01,
		[]float64{math.Exp(-1)}, ode.Options{SaveAt: ode.SaveAt{Ts: []float64{0.5, 0}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0}, sol.Ts)
	assert.InDelta(t, math.Exp(-0.5), sol.Ys[0][0], 1e-8)
	assert.InDelta(t, 1, sol.Ys[1][0], 1e-8)
}

func TestSolve_MaxSteps(t *testing.T) {
	sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, ode.Euler, 0, 1, 0.01, []float64{1},
		ode.Options{MaxSteps: 5, SaveAt: ode.SaveAt{Steps: true}})
	require.ErrorIs(t, err, ode.ErrMaxSteps)
	require.NotNil(t, sol)
	assert.Equal(t, ode.MaxStepsReached, sol.Result)
	assert.Equal(t, 5, sol.Stats.NumSteps)
	assert.Len(t, sol.Ts, 5)
}

func TestSolve_DtMin(t *testing.T) {
	ctrl := ode.PIDController{RTol: 1e-14, ATol: 1e-14, DtMin: 0.5, DtMax: 0.5}
	sol, err := ode.Solve(context.Background(), ode.Float64s{}, decay, ode.Dopri5, 0, 5, 0.5, []float64{1},
		ode.Options{Controller: ctrl})
	require.ErrorIs(t, err, ode.ErrDtMin)
	assert.Equal(t, ode.DtMinReached, sol.Result)
	assert.Equal(t, 1, sol.Stats.NumRejected)
}

func TestSolve_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ode.Solve(ctx, ode.Float64s{}, decay, ode.RK4, 0, 1, 0.1, []float64{1}, ode.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSolve_InvalidConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		solver ode.Solver
		dt0    float64
		opts   ode.Options
	}{
		{"adaptive without estimate", ode.RK4, 0.1, ode.Options{Controller: ode.PIDController{}}},
		{"zero constant step", ode.RK4, 0, ode.Options{}},
		{"save time out of range", ode.RK4, 0.1, ode.Options{SaveAt: ode.SaveAt{Ts: []float64{2}}}},
		{"save times unordered", ode.RK4, 0.1, ode.Options{SaveAt: ode.SaveAt{Ts: []float64{0.5, 0.2}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ode.Solve(ctx, ode.Float64s{}, decay, tt.solver, 0, 1, tt.dt0, []float64{1}, tt.opts)
			require.ErrorIs(t, err, ode.ErrConfig)
		})
	}
}

func TestSolve_HarmonicOscillatorArrays(t *testing.T) {
	y0, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{2})
	require.NoError(t, err)
	field := func(_ float64, y *tensor.Array[float32]) *tensor.Array[float32] {
		d := y.Data()
		out, _ := tensor.FromSlice([]float32{d[1], -d[0]}, tensor.Shape{2})
		return out
	}
	sol, err := ode.Solve(context.Background(), ode.Arrays{}, field, ode.RK4, 0, 2*math.Pi, 0.01, y0, ode.Options{})
	require.NoError(t, err)
	assert.InDelta(t, 1, sol.Final().At(0), 1e-4)
	assert.InDelta(t, 0, sol.Final().At(1), 1e-4)
}

func TestSolve_DifferentiableThroughVars(t *testing.T) {
	start := tensor.Full[float32](tensor.Shape{3}, 1)
	tape := autodiff.NewTape()
	y0 := tape.Watch(start)
	field := func(_ float64, y *autodiff.Var) *autodiff.Var {
		return autodiff.Neg(y)
	}
	sol, err := ode.Solve(context.Background(), ode.Vars{}, field, ode.RK4, 0, 1, 0.1, y0, ode.Options{})
	require.NoError(t, err)

	grads, err := tape.Backward(autodiff.Sum(sol.Final()))
	require.NoError(t, err)
	for _, g := range grads.Wrt(start).Data() {
		assert.InDelta(t, math.Exp(-1), float64(g), 1e-4)
	}
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "successful", ode.Successful.String())
	assert.Equal(t, "max_steps_reached", ode.MaxStepsReached.String())
	assert.Equal(t, "dt_min_reached", ode.DtMinReached.String())
}
