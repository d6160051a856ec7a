// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network modules.
//
// # Overview
//
// Modules own named Parameters. A Layer maps a Var to a Var on a tape, so
// any loss built from layers can be differentiated with autodiff:
//
//   - Linear: affine layer with Xavier initialization
//   - MLP: stack of Linear layers with activations
//   - Sequential: arbitrary chain of layers
//   - NeuralODE: integrates a vector-field layer with an ODE solver
//
// # Basic Usage
//
//	key := random.NewKey(0)
//	field, _ := nn.NewMLP(key, nn.MLPConfig{In: 2, Out: 2, Width: 16, Depth: 2, Activation: "tanh"})
//	block, _ := nn.NewNeuralODE(field, nn.NeuralODEConfig{Solver: ode.Tsit5, Steps: 8})
//
//	params := nn.Values(block.Parameters())
//	loss, grads, err := autodiff.ValueAndGrad(func(tape *autodiff.Tape, _ []*autodiff.Var) *autodiff.Var {
//	    y := block.Forward(tape, tape.Const(y0))
//	    return autodiff.Mean(autodiff.Square(autodiff.Sub(y, tape.Const(target))))
//	}, params)
//
// Save and Load store parameters as SafeTensors files.
package nn
