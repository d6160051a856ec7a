// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides dense n-dimensional arrays.
//
// Arrays are contiguous and row-major, with element types float32,
// float64, int32, int64 and uint8. Binary operations follow NumPy
// broadcasting rules; shape mismatches are reported as errors wrapping
// ErrShape.
//
// # Basic Usage
//
//	import "github.com/born-ml/nodekit/tensor"
//
//	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	b := tensor.Ones[float32](tensor.Shape{3})
//	y, _ := tensor.Add(x, b)          // [2, 3], b broadcast over rows
//	s, _ := tensor.Sum(y, false, 1)   // [2]
//	w := tensor.Full[float32](tensor.Shape{3, 4}, 0.5)
//	z, _ := tensor.MatMul(x, w)       // [2, 4]
//
// MatMul runs on gonum's BLAS implementation.
package tensor
