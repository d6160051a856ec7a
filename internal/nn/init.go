package nn

import (
	"math"

	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Values are drawn from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))),
// which keeps activation variance roughly constant across layers.
func Xavier(key random.Key, fanIn, fanOut int, shape tensor.Shape) *tensor.Array[float32] {
	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	return random.Uniform(key, shape, -bound, bound)
}

// LeCunUniform draws from U(-1/sqrt(fan_in), 1/sqrt(fan_in)).
func LeCunUniform(key random.Key, fanIn int, shape tensor.Shape) *tensor.Array[float32] {
	bound := float32(1 / math.Sqrt(float64(fanIn)))
	return random.Uniform(key, shape, -bound, bound)
}
