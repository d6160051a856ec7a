// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// Operations on Vars are recorded on a Tape; Backward walks the tape in
// reverse and accumulates gradients. ValueAndGrad wraps the common case:
//
//	loss, grads, err := autodiff.ValueAndGrad(func(tape *autodiff.Tape, p []*autodiff.Var) *autodiff.Var {
//	    logits := autodiff.Add(autodiff.MatMul(tape.Const(x), p[0]), p[1])
//	    return autodiff.SoftmaxCrossEntropy(logits, labels)
//	}, []*tensor.Array[float32]{w, b})
package autodiff

import (
	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/tensor"
)

// ErrNotScalar is returned when Backward is called on a non-scalar output.
var ErrNotScalar = autodiff.ErrNotScalar

// Array is the float32 array type differentiated by this package.
type Array = autodiff.Array

// Var is a value recorded on a tape.
type Var = autodiff.Var

// Tape records operations for automatic differentiation.
type Tape = autodiff.Tape

// Gradients maps tape values to their gradients.
type Gradients = autodiff.Gradients

// Func is a scalar-valued function of watched parameters.
type Func = autodiff.Func

// NewTape creates an empty tape.
func NewTape() *Tape { return autodiff.NewTape() }

// Const wraps a as an untracked value.
func Const(a *Array) *Var { return autodiff.Const(a) }

// ValueAndGrad evaluates fn and returns its value and the gradient of each
// parameter.
func ValueAndGrad(fn Func, params []*Array) (float32, []*Array, error) {
	return autodiff.ValueAndGrad(fn, params)
}

// Arithmetic

// Add returns a + b.
func Add(a, b *Var) *Var { return autodiff.Add(a, b) }

// Sub returns a - b.
func Sub(a, b *Var) *Var { return autodiff.Sub(a, b) }

// Mul returns a * b.
func Mul(a, b *Var) *Var { return autodiff.Mul(a, b) }

// Div returns a / b.
func Div(a, b *Var) *Var { return autodiff.Div(a, b) }

// Neg returns -a.
func Neg(a *Var) *Var { return autodiff.Neg(a) }

// Scale returns s * a.
func Scale(a *Var, s float32) *Var { return autodiff.Scale(a, s) }

// MatMul multiplies two matrices.
func MatMul(a, b *Var) *Var { return autodiff.MatMul(a, b) }

// Nonlinearities

// Tanh returns tanh(a).
func Tanh(a *Var) *Var { return autodiff.Tanh(a) }

// ReLU returns max(a, 0).
func ReLU(a *Var) *Var { return autodiff.ReLU(a) }

// Sigmoid returns 1 / (1 + e^-a).
func Sigmoid(a *Var) *Var { return autodiff.Sigmoid(a) }

// Softplus returns log(1 + e^a).
func Softplus(a *Var) *Var { return autodiff.Softplus(a) }

// Exp returns e^a.
func Exp(a *Var) *Var { return autodiff.Exp(a) }

// Log returns the natural logarithm of a.
func Log(a *Var) *Var { return autodiff.Log(a) }

// Square returns a * a.
func Square(a *Var) *Var { return autodiff.Square(a) }

// Reductions and losses

// Sum adds every element of a.
func Sum(a *Var) *Var { return autodiff.Sum(a) }

// Mean averages every element of a.
func Mean(a *Var) *Var { return autodiff.Mean(a) }

// Reshape returns a with a new shape.
func Reshape(a *Var, shape tensor.Shape) *Var { return autodiff.Reshape(a, shape) }

// LogSoftmax normalizes the last axis of x into log-probabilities.
func LogSoftmax(x *Var) *Var { return autodiff.LogSoftmax(x) }

// SoftmaxCrossEntropy returns the mean cross-entropy of logits against
// integer labels.
func SoftmaxCrossEntropy(logits *Var, labels []int) *Var {
	return autodiff.SoftmaxCrossEntropy(logits, labels)
}

// Accuracy returns the fraction of rows whose arg-max matches the label.
func Accuracy(logits *Array, labels []int) (float64, error) { return autodiff.Accuracy(logits, labels) }
