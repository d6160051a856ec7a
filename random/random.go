// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package random provides splittable, counter-based pseudo-random keys.
//
// A Key is a Threefry-2x32 key. The same key always yields the same
// numbers, so independent streams come from splitting keys rather than
// from shared generator state:
//
//	key := random.NewKey(0)
//	initKey, dataKey := random.Split2(key)
//	w := random.Normal(initKey, tensor.Shape{784, 64})
//	perm := random.Permutation(dataKey, 60000)
package random

import (
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Key is a Threefry-2x32 PRNG key.
type Key = random.Key

// NewKey derives a key from a 64-bit seed.
func NewKey(seed int64) Key { return random.NewKey(seed) }

// Split derives n independent keys from k.
func Split(k Key, n int) []Key { return random.Split(k, n) }

// Split2 derives two independent keys from k.
func Split2(k Key) (Key, Key) { return random.Split2(k) }

// FoldIn mixes data into k.
func FoldIn(k Key, data uint32) Key { return random.FoldIn(k, data) }

// Bits returns n random 32-bit words.
func Bits(k Key, n int) []uint32 { return random.Bits(k, n) }

// Uniform samples from [lo, hi).
func Uniform(k Key, shape tensor.Shape, lo, hi float32) *tensor.Array[float32] {
	return random.Uniform(k, shape, lo, hi)
}

// Normal samples from the standard normal distribution.
func Normal(k Key, shape tensor.Shape) *tensor.Array[float32] { return random.Normal(k, shape) }

// Bernoulli samples ones with probability p.
func Bernoulli(k Key, shape tensor.Shape, p float32) *tensor.Array[uint8] {
	return random.Bernoulli(k, shape, p)
}

// RandInt samples integers from [lo, hi).
func RandInt(k Key, shape tensor.Shape, lo, hi int) (*tensor.Array[int64], error) {
	return random.RandInt(k, shape, lo, hi)
}

// Permutation returns a random permutation of [0, n).
func Permutation(k Key, n int) []int { return random.Permutation(k, n) }
