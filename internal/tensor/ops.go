package tensor

import (
	"math"

	"github.com/born-ml/nodekit/internal/parallel"
)

var kernelConfig = parallel.DefaultConfig()

// binary applies f elementwise with NumPy broadcasting.
func binary[T DType](a, b *Array[T], f func(x, y T) T) (*Array[T], error) {
	if a.shape.Equal(b.shape) {
		out := &Array[T]{data: make([]T, len(a.data)), shape: a.shape.Clone()}
		parallel.Range(len(out.data), kernelConfig, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				out.data[i] = f(a.data[i], b.data[i])
			}
		})
		return out, nil
	}

	shape, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		return nil, err
	}
	out := Zeros[T](shape)
	if len(out.data) == 0 {
		return out, nil
	}

	as := broadcastStrides(a.shape, shape)
	bs := broadcastStrides(b.shape, shape)
	idx := make([]int, len(shape))
	ai, bi := 0, 0
	for k := range out.data {
		out.data[k] = f(a.data[ai], b.data[bi])
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			ai += as[d]
			bi += bs[d]
			if idx[d] < shape[d] {
				break
			}
			ai -= as[d] * shape[d]
			bi -= bs[d] * shape[d]
			idx[d] = 0
		}
	}
	return out, nil
}

// Add returns a + b with broadcasting.
func Add[T DType](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b, func(x, y T) T { return x + y })
}

// Sub returns a - b with broadcasting.
func Sub[T DType](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b, func(x, y T) T { return x - y })
}

// Mul returns a * b with broadcasting.
func Mul[T DType](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b, func(x, y T) T { return x * y })
}

// Div returns a / b with broadcasting.
func Div[T DType](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b, func(x, y T) T { return x / y })
}

// Maximum returns the elementwise maximum with broadcasting.
func Maximum[T DType](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b, func(x, y T) T { return max(x, y) })
}

// Minimum returns the elementwise minimum with broadcasting.
func Minimum[T DType](a, b *Array[T]) (*Array[T], error) {
	return binary(a, b, func(x, y T) T { return min(x, y) })
}

// Map applies f to every element and returns a new array.
func Map[T DType](a *Array[T], f func(T) T) *Array[T] {
	out := &Array[T]{data: make([]T, len(a.data)), shape: a.shape.Clone()}
	parallel.Range(len(out.data), kernelConfig, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out.data[i] = f(a.data[i])
		}
	})
	return out
}

// Scale multiplies every element by s.
func Scale[T DType](a *Array[T], s T) *Array[T] {
	return Map(a, func(x T) T { return x * s })
}

// AddScalar adds s to every element.
func AddScalar[T DType](a *Array[T], s T) *Array[T] {
	return Map(a, func(x T) T { return x + s })
}

// Neg negates every element.
func Neg[T DType](a *Array[T]) *Array[T] {
	return Map(a, func(x T) T { return -x })
}

// Abs returns |a|.
func Abs[T DType](a *Array[T]) *Array[T] {
	return Map(a, func(x T) T {
		if x < 0 {
			return -x
		}
		return x
	})
}

func mapFloat[T Float](a *Array[T], f func(float64) float64) *Array[T] {
	return Map(a, func(x T) T { return T(f(float64(x))) })
}

// Exp returns e^a.
func Exp[T Float](a *Array[T]) *Array[T] { return mapFloat(a, math.Exp) }

// Log returns the natural logarithm.
func Log[T Float](a *Array[T]) *Array[T] { return mapFloat(a, math.Log) }

// Tanh returns the hyperbolic tangent.
func Tanh[T Float](a *Array[T]) *Array[T] { return mapFloat(a, math.Tanh) }

// Sqrt returns the square root.
func Sqrt[T Float](a *Array[T]) *Array[T] { return mapFloat(a, math.Sqrt) }

// AddInPlace accumulates b into a. Shapes must match exactly.
func AddInPlace[T DType](a, b *Array[T]) error {
	if !a.shape.Equal(b.shape) {
		return shapeMismatch("AddInPlace", a.shape, b.shape)
	}
	for i, v := range b.data {
		a.data[i] += v
	}
	return nil
}

// Dot returns the sum of a*b over all elements. Shapes must match exactly.
func Dot[T Float](a, b *Array[T]) (float64, error) {
	if !a.shape.Equal(b.shape) {
		return 0, shapeMismatch("Dot", a.shape, b.shape)
	}
	var s float64
	for i, v := range a.data {
		s += float64(v) * float64(b.data[i])
	}
	return s, nil
}

// AllClose reports whether |a-b| <= atol + rtol*|b| everywhere.
func AllClose[T Float](a, b *Array[T], rtol, atol float64) bool {
	if !a.shape.Equal(b.shape) {
		return false
	}
	for i, v := range a.data {
		x, y := float64(v), float64(b.data[i])
		if math.Abs(x-y) > atol+rtol*math.Abs(y) {
			return false
		}
	}
	return true
}
