// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/nodekit/internal/tensor"

// ErrShape is wrapped by every shape mismatch error.
var ErrShape = tensor.ErrShape

// Shape lists the length of each dimension.
type Shape = tensor.Shape

// DType constrains the supported element types.
type DType = tensor.DType

// Float constrains the floating-point element types.
type Float = tensor.Float

// DataType identifies an element type at runtime.
type DataType = tensor.DataType

// Data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
)

// Array is a dense, contiguous, row-major n-dimensional array.
type Array[T DType] = tensor.Array[T]

// TypeOf returns the DataType of T.
func TypeOf[T DType]() DataType { return tensor.TypeOf[T]() }

// Creation

// Zeros returns an array of zeros.
func Zeros[T DType](shape Shape) *Array[T] { return tensor.Zeros[T](shape) }

// Ones returns an array of ones.
func Ones[T DType](shape Shape) *Array[T] { return tensor.Ones[T](shape) }

// Full returns an array filled with value.
func Full[T DType](shape Shape, value T) *Array[T] { return tensor.Full(shape, value) }

// Scalar returns a rank-0 array.
func Scalar[T DType](value T) *Array[T] { return tensor.Scalar(value) }

// FromSlice wraps data as an array of the given shape.
//
// Example:
//
//	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
func FromSlice[T DType](data []T, shape Shape) (*Array[T], error) {
	return tensor.FromSlice(data, shape)
}

// Arange returns 0, 1, ..., n-1.
func Arange[T DType](n int) *Array[T] { return tensor.Arange[T](n) }

// Cast converts an array to element type U.
func Cast[U, T DType](a *Array[T]) *Array[U] { return tensor.Cast[U](a) }

// Shape manipulation

// Reshape returns a with a new shape. One dimension may be -1.
func Reshape[T DType](a *Array[T], shape Shape) (*Array[T], error) { return tensor.Reshape(a, shape) }

// Transpose permutes the axes of a. No permutation reverses them.
func Transpose[T DType](a *Array[T], perm ...int) (*Array[T], error) {
	return tensor.Transpose(a, perm...)
}

// BroadcastTo expands a to shape.
func BroadcastTo[T DType](a *Array[T], shape Shape) (*Array[T], error) {
	return tensor.BroadcastTo(a, shape)
}

// Take gathers entries of a along axis 0.
func Take[T DType](a *Array[T], indices []int) (*Array[T], error) { return tensor.Take(a, indices) }

// Slice returns rows [lo, hi) of a along axis 0.
func Slice[T DType](a *Array[T], lo, hi int) (*Array[T], error) { return tensor.Slice(a, lo, hi) }

// Concat joins arrays along axis 0.
func Concat[T DType](arrays ...*Array[T]) (*Array[T], error) { return tensor.Concat(arrays...) }

// Element-wise operations

// Add returns a + b with broadcasting.
func Add[T DType](a, b *Array[T]) (*Array[T], error) { return tensor.Add(a, b) }

// Sub returns a - b with broadcasting.
func Sub[T DType](a, b *Array[T]) (*Array[T], error) { return tensor.Sub(a, b) }

// Mul returns a * b with broadcasting.
func Mul[T DType](a, b *Array[T]) (*Array[T], error) { return tensor.Mul(a, b) }

// Div returns a / b with broadcasting.
func Div[T DType](a, b *Array[T]) (*Array[T], error) { return tensor.Div(a, b) }

// Maximum returns the element-wise maximum with broadcasting.
func Maximum[T DType](a, b *Array[T]) (*Array[T], error) { return tensor.Maximum(a, b) }

// Minimum returns the element-wise minimum with broadcasting.
func Minimum[T DType](a, b *Array[T]) (*Array[T], error) { return tensor.Minimum(a, b) }

// Map applies f to every element.
func Map[T DType](a *Array[T], f func(T) T) *Array[T] { return tensor.Map(a, f) }

// Neg returns -a.
func Neg[T DType](a *Array[T]) *Array[T] { return tensor.Neg(a) }

// Abs returns |a|.
func Abs[T DType](a *Array[T]) *Array[T] { return tensor.Abs(a) }

// Exp returns e^a.
func Exp[T Float](a *Array[T]) *Array[T] { return tensor.Exp(a) }

// Log returns the natural logarithm of a.
func Log[T Float](a *Array[T]) *Array[T] { return tensor.Log(a) }

// Tanh returns tanh(a).
func Tanh[T Float](a *Array[T]) *Array[T] { return tensor.Tanh(a) }

// Sqrt returns the square root of a.
func Sqrt[T Float](a *Array[T]) *Array[T] { return tensor.Sqrt(a) }

// Reductions

// Sum reduces a over axes (all axes when none are given).
func Sum[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return tensor.Sum(a, keepDims, axes...)
}

// Mean averages a over axes.
func Mean[T Float](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return tensor.Mean(a, keepDims, axes...)
}

// Max reduces a over axes with max.
func Max[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return tensor.Max(a, keepDims, axes...)
}

// Min reduces a over axes with min.
func Min[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return tensor.Min(a, keepDims, axes...)
}

// Prod multiplies a over axes.
func Prod[T DType](a *Array[T], keepDims bool, axes ...int) (*Array[T], error) {
	return tensor.Prod(a, keepDims, axes...)
}

// ArgMax returns the index of the largest entry along axis.
func ArgMax[T DType](a *Array[T], axis int) (*Array[int64], error) { return tensor.ArgMax(a, axis) }

// Linear algebra

// MatMul multiplies two float32 matrices.
func MatMul(a, b *Array[float32]) (*Array[float32], error) { return tensor.MatMul(a, b) }

// AllClose reports whether a and b are equal within tolerances.
func AllClose[T Float](a, b *Array[T], rtol, atol float64) bool {
	return tensor.AllClose(a, b, rtol, atol)
}
