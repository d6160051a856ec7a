// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package rearrange reorders, reduces and repeats array axes with
// einops-style patterns:
//
//	y, err := rearrange.Rearrange(x, "b (h w) -> b h w", rearrange.Sizes{"h": 28})
//	m, err := rearrange.Reduce(x, "b h w -> h w", rearrange.Mean, nil)
package rearrange

import (
	"github.com/born-ml/nodekit/internal/rearrange"
	"github.com/born-ml/nodekit/internal/tensor"
)

// ErrPattern is wrapped by every pattern error.
var ErrPattern = rearrange.ErrPattern

// Sizes supplies lengths for axes that cannot be inferred.
type Sizes = rearrange.Sizes

// Reduction names the fold used by Reduce.
type Reduction = rearrange.Reduction

// Reductions.
const (
	Sum  = rearrange.Sum
	Mean = rearrange.Mean
	Max  = rearrange.Max
	Min  = rearrange.Min
	Prod = rearrange.Prod
)

// Rearrange reorders and regroups axes.
func Rearrange[T tensor.DType](x *tensor.Array[T], pattern string, sizes Sizes) (*tensor.Array[T], error) {
	return rearrange.Rearrange(x, pattern, sizes)
}

// Reduce folds the axes missing from the right-hand side with op.
func Reduce[T tensor.DType](x *tensor.Array[T], pattern string, op Reduction, sizes Sizes) (*tensor.Array[T], error) {
	return rearrange.Reduce(x, pattern, op, sizes)
}

// Repeat adds the axes that appear only on the right-hand side.
func Repeat[T tensor.DType](x *tensor.Array[T], pattern string, sizes Sizes) (*tensor.Array[T], error) {
	return rearrange.Repeat(x, pattern, sizes)
}
