// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ode solves ordinary differential equations with explicit
// Runge-Kutta methods.
//
// Solve is generic over the state type through a Space. Float64s handles
// []float64 states, Arrays handles float32 arrays and Vars handles autodiff
// values, so gradients flow through every solver stage:
//
//	sol, err := ode.Solve(ctx, ode.Float64s{},
//	    func(t float64, y []float64) []float64 { return []float64{-y[0]} },
//	    ode.Tsit5, 0, 1, 0, []float64{1},
//	    ode.Options{Controller: ode.PIDController{RTol: 1e-6, ATol: 1e-8}})
//	y1 := sol.Final() // ~ [e^-1]
package ode

import (
	"context"

	"github.com/born-ml/nodekit/internal/ode"
)

// Errors.
var (
	ErrMaxSteps = ode.ErrMaxSteps
	ErrDtMin    = ode.ErrDtMin
	ErrConfig   = ode.ErrConfig
)

// Space supplies the vector operations Solve needs on states of type Y.
type Space[Y any] = ode.Space[Y]

// State spaces.
type (
	Float64s = ode.Float64s
	Arrays   = ode.Arrays
	Vars     = ode.Vars
)

// Term is the right-hand side dy/dt = f(t, y).
type Term[Y any] = ode.Term[Y]

// Solver is an explicit Runge-Kutta method given by its Butcher tableau.
type Solver = ode.Solver

// Solvers.
var (
	Euler    = ode.Euler
	Heun     = ode.Heun
	Midpoint = ode.Midpoint
	Ralston  = ode.Ralston
	RK4      = ode.RK4
	Bosh3    = ode.Bosh3
	Dopri5   = ode.Dopri5
	Tsit5    = ode.Tsit5

	// Solvers lists every built-in solver by name.
	Solvers = ode.Solvers
)

// Controller chooses step sizes.
type Controller = ode.Controller

// Step-size controllers.
type (
	ConstantStepSize = ode.ConstantStepSize
	PIDController    = ode.PIDController
)

// SaveAt selects the times at which the solution is recorded.
type SaveAt = ode.SaveAt

// Options configures Solve.
type Options = ode.Options

// Result describes how a solve terminated.
type Result = ode.Result

// Solve outcomes.
const (
	Successful      = ode.Successful
	MaxStepsReached = ode.MaxStepsReached
	DtMinReached    = ode.DtMinReached
)

// Stats counts solver work.
type Stats = ode.Stats

// Solution holds the saved times and states.
type Solution[Y any] = ode.Solution[Y]

// Solve integrates term from t0 to t1 starting at y0.
func Solve[Y any](ctx context.Context, space Space[Y], term Term[Y], solver Solver,
	t0, t1, dt0 float64, y0 Y, opts Options) (*Solution[Y], error) {
	return ode.Solve(ctx, space, term, solver, t0, t1, dt0, y0, opts)
}
