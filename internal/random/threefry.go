package random

import "math/bits"

var threefryRotations = [2][4]int{
	{13, 15, 26, 6},
	{17, 29, 16, 24},
}

// threefry2x32 encrypts one counter pair under key with 20 rounds.
func threefry2x32(key [2]uint32, x0, x1 uint32) (uint32, uint32) {
	ks := [3]uint32{key[0], key[1], key[0] ^ key[1] ^ 0x1BD11BDA}

	x0 += ks[0]
	x1 += ks[1]
	for i := 0; i < 5; i++ {
		for _, r := range threefryRotations[i%2] {
			x0 += x1
			x1 = bits.RotateLeft32(x1, r)
			x1 ^= x0
		}
		x0 += ks[(i+1)%3]
		x1 += ks[(i+2)%3] + uint32(i+1)
	}
	return x0, x1
}

// threefryCounts hashes count words. The counts are split into two halves
// that form the (x0, x1) pairs, and the outputs are concatenated in the same
// layout, so odd lengths are padded with a zero word and trimmed.
func threefryCounts(key [2]uint32, counts []uint32) []uint32 {
	n := len(counts)
	padded := counts
	if n%2 == 1 {
		padded = make([]uint32, n+1)
		copy(padded, counts)
	}
	half := len(padded) / 2
	out := make([]uint32, len(padded))
	for i := 0; i < half; i++ {
		out[i], out[half+i] = threefry2x32(key, padded[i], padded[half+i])
	}
	return out[:n]
}

func iota32(n int) []uint32 {
	c := make([]uint32, n)
	for i := range c {
		c[i] = uint32(i)
	}
	return c
}
