// Package random provides counter-based, splittable pseudo-random keys.
//
// Randomness is explicit: every sampler takes a Key and the same key always
// produces the same values. Independent streams are obtained with Split or
// FoldIn instead of mutating a global generator.
package random

import (
	"fmt"
	"math"

	"github.com/born-ml/nodekit/internal/tensor"
)

// Key is a Threefry-2x32 key.
type Key [2]uint32

// NewKey derives a key from a 64-bit seed (high word first).
func NewKey(seed int64) Key {
	u := uint64(seed)
	return Key{uint32(u >> 32), uint32(u)}
}

// String formats the key as its two words.
func (k Key) String() string {
	return fmt.Sprintf("Key[%d %d]", k[0], k[1])
}

// Split derives n independent keys from k.
func Split(k Key, n int) []Key {
	words := threefryCounts(k, iota32(2*n))
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = Key{words[2*i], words[2*i+1]}
	}
	return keys
}

// Split2 is shorthand for splitting into exactly two keys.
func Split2(k Key) (Key, Key) {
	ks := Split(k, 2)
	return ks[0], ks[1]
}

// FoldIn mixes data into k, yielding a key for a labelled sub-stream such as
// a step number.
func FoldIn(k Key, data uint32) Key {
	a, b := threefry2x32(k, 0, data)
	return Key{a, b}
}

// Bits returns n pseudo-random 32-bit words.
func Bits(k Key, n int) []uint32 {
	return threefryCounts(k, iota32(n))
}

// unitFloat32 maps the high 23 bits of w into [0, 1).
func unitFloat32(w uint32) float32 {
	return math.Float32frombits(w>>9|0x3F800000) - 1
}

// Uniform samples float32 values in [lo, hi).
func Uniform(k Key, shape tensor.Shape, lo, hi float32) *tensor.Array[float32] {
	out := tensor.Zeros[float32](shape)
	data := out.Data()
	for i, w := range Bits(k, len(data)) {
		v := lo + unitFloat32(w)*(hi-lo)
		data[i] = max(lo, v)
	}
	return out
}

// Normal samples standard normal float32 values by inverting the error
// function on uniforms drawn from the open interval (-1, 1).
func Normal(k Key, shape tensor.Shape) *tensor.Array[float32] {
	lo := math.Nextafter32(-1, 0)
	u := Uniform(k, shape, lo, 1)
	return tensor.Map(u, func(x float32) float32 {
		return float32(math.Sqrt2 * math.Erfinv(float64(x)))
	})
}

// Bernoulli samples booleans (as uint8 0/1) that are 1 with probability p.
func Bernoulli(k Key, shape tensor.Shape, p float32) *tensor.Array[uint8] {
	u := Uniform(k, shape, 0, 1)
	out := tensor.Zeros[uint8](shape)
	for i, v := range u.Data() {
		if v < p {
			out.Data()[i] = 1
		}
	}
	return out
}

// RandInt samples integers uniformly from [lo, hi).
func RandInt(k Key, shape tensor.Shape, lo, hi int) (*tensor.Array[int64], error) {
	if hi <= lo {
		return nil, fmt.Errorf("random: empty range [%d, %d)", lo, hi)
	}
	span := uint64(hi - lo)
	out := tensor.Zeros[int64](shape)
	data := out.Data()
	// Two words per draw keep modulo bias below 2^-32 for any int range.
	words := Bits(k, 2*len(data))
	for i := range data {
		w := uint64(words[2*i])<<32 | uint64(words[2*i+1])
		data[i] = int64(lo) + int64(w%span)
	}
	return out, nil
}

// Permutation returns a uniformly random permutation of [0, n).
func Permutation(k Key, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if n < 2 {
		return perm
	}
	words := Bits(k, 2*n)
	for i := n - 1; i > 0; i-- {
		w := uint64(words[2*i])<<32 | uint64(words[2*i+1])
		j := int(w % uint64(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}
