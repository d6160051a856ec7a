package ode

import (
	"math"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Space supplies the vector-space operations the solvers need on a state
// type Y.
type Space[Y any] interface {
	// Add returns a + b.
	Add(a, b Y) Y

	// Scale returns a * s.
	Scale(a Y, s float64) Y

	// ErrorRatio returns the RMS over elements of
	// err_i / (atol + rtol * max(|y0_i|, |y1_i|)). Steps with a ratio of at
	// most one are accepted.
	ErrorRatio(err, y0, y1 Y, rtol, atol float64) float64
}

func rmsRatio(n int, at func(i int) (e, a, b float64), rtol, atol float64) float64 {
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		e, a, b := at(i)
		scale := atol + rtol*max(math.Abs(a), math.Abs(b))
		r := e / scale
		sum += r * r
	}
	return math.Sqrt(sum / float64(n))
}

// Float64s is the Space of plain []float64 vectors.
type Float64s struct{}

func (Float64s) Add(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

func (Float64s) Scale(a []float64, s float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] * s
	}
	return out
}

func (Float64s) ErrorRatio(err, y0, y1 []float64, rtol, atol float64) float64 {
	return rmsRatio(len(err), func(i int) (float64, float64, float64) {
		return err[i], y0[i], y1[i]
	}, rtol, atol)
}

// Arrays is the Space of float32 tensors. Operands must share a shape.
type Arrays struct{}

func (Arrays) Add(a, b *tensor.Array[float32]) *tensor.Array[float32] {
	out, err := tensor.Add(a, b)
	if err != nil {
		panic(err)
	}
	return out
}

func (Arrays) Scale(a *tensor.Array[float32], s float64) *tensor.Array[float32] {
	return tensor.Scale(a, float32(s))
}

func (Arrays) ErrorRatio(err, y0, y1 *tensor.Array[float32], rtol, atol float64) float64 {
	e, a, b := err.Data(), y0.Data(), y1.Data()
	return rmsRatio(len(e), func(i int) (float64, float64, float64) {
		return float64(e[i]), float64(a[i]), float64(b[i])
	}, rtol, atol)
}

// Vars is the Space of autodiff values, so a solve can be differentiated
// by backpropagating through every solver stage.
type Vars struct{}

func (Vars) Add(a, b *autodiff.Var) *autodiff.Var {
	return autodiff.Add(a, b)
}

func (Vars) Scale(a *autodiff.Var, s float64) *autodiff.Var {
	return autodiff.Scale(a, float32(s))
}

func (Vars) ErrorRatio(err, y0, y1 *autodiff.Var, rtol, atol float64) float64 {
	return Arrays{}.ErrorRatio(err.Value(), y0.Value(), y1.Value(), rtol, atol)
}
