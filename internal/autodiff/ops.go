package autodiff

import (
	"errors"
	"math"

	"github.com/born-ml/nodekit/internal/tensor"
)

// funcOp is an Operation whose backward pass is a closure over the forward
// values it needs.
type funcOp struct {
	inputs   []*Var
	output   *Var
	backward func(g *Array) []*Array
}

func (o *funcOp) Inputs() []*Var             { return o.inputs }
func (o *funcOp) Output() *Var               { return o.output }
func (o *funcOp) Backward(g *Array) []*Array { return o.backward(g) }

// must unwraps tensor results inside graph construction. Shape errors are
// programming errors here; ValueAndGrad converts them back into errors.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func tapeOf(inputs []*Var) *Tape {
	var tape *Tape
	for _, in := range inputs {
		if in.tape == nil {
			continue
		}
		if tape != nil && in.tape != tape && in.track {
			panic(errors.New("autodiff: operands recorded on different tapes"))
		}
		if tape == nil || in.track {
			tape = in.tape
		}
	}
	return tape
}

// emit wraps value as the output of an operation over inputs and records
// it when any input is tracked.
func emit(value *Array, backward func(g *Array) []*Array, inputs ...*Var) *Var {
	tape := tapeOf(inputs)
	track := false
	for _, in := range inputs {
		if in.track {
			track = true
			break
		}
	}
	out := &Var{value: value, tape: tape, track: track}
	if track && tape != nil {
		tape.record(&funcOp{inputs: inputs, output: out, backward: backward})
	}
	return out
}

func sumTo(g *Array, v *Var) *Array {
	return must(tensor.SumTo(g, v.value.Shape()))
}

// Add returns a + b with broadcasting.
func Add(a, b *Var) *Var {
	value := must(tensor.Add(a.value, b.value))
	return emit(value, func(g *Array) []*Array {
		return []*Array{sumTo(g, a), sumTo(g, b)}
	}, a, b)
}

// Sub returns a - b with broadcasting.
func Sub(a, b *Var) *Var {
	value := must(tensor.Sub(a.value, b.value))
	return emit(value, func(g *Array) []*Array {
		return []*Array{sumTo(g, a), sumTo(tensor.Neg(g), b)}
	}, a, b)
}

// Mul returns a * b with broadcasting.
func Mul(a, b *Var) *Var {
	value := must(tensor.Mul(a.value, b.value))
	return emit(value, func(g *Array) []*Array {
		ga := must(tensor.Mul(g, b.value))
		gb := must(tensor.Mul(g, a.value))
		return []*Array{sumTo(ga, a), sumTo(gb, b)}
	}, a, b)
}

// Div returns a / b with broadcasting.
func Div(a, b *Var) *Var {
	value := must(tensor.Div(a.value, b.value))
	return emit(value, func(g *Array) []*Array {
		ga := must(tensor.Div(g, b.value))
		// d(a/b)/db = -a/b^2 = -out/b
		gb := tensor.Neg(must(tensor.Div(must(tensor.Mul(g, value)), b.value)))
		return []*Array{sumTo(ga, a), sumTo(gb, b)}
	}, a, b)
}

// Neg returns -a.
func Neg(a *Var) *Var {
	return emit(tensor.Neg(a.value), func(g *Array) []*Array {
		return []*Array{tensor.Neg(g)}
	}, a)
}

// Scale returns a * s.
func Scale(a *Var, s float32) *Var {
	return emit(tensor.Scale(a.value, s), func(g *Array) []*Array {
		return []*Array{tensor.Scale(g, s)}
	}, a)
}

// AddScalar returns a + s.
func AddScalar(a *Var, s float32) *Var {
	return emit(tensor.AddScalar(a.value, s), func(g *Array) []*Array {
		return []*Array{g}
	}, a)
}

// MatMul returns a @ b for 2-D operands.
func MatMul(a, b *Var) *Var {
	value := must(tensor.MatMul(a.value, b.value))
	return emit(value, func(g *Array) []*Array {
		return []*Array{
			must(tensor.Gemm(g, b.value, false, true)),
			must(tensor.Gemm(a.value, g, true, false)),
		}
	}, a, b)
}

// unary records an elementwise op whose derivative is expressed through
// the input x and output y.
func unary(a *Var, f func(x float32) float32, df func(x, y float32) float32) *Var {
	value := tensor.Map(a.value, f)
	return emit(value, func(g *Array) []*Array {
		in, out := a.value.Data(), value.Data()
		grad := tensor.Zeros[float32](a.value.Shape())
		gd := grad.Data()
		for i, gi := range g.Data() {
			gd[i] = gi * df(in[i], out[i])
		}
		return []*Array{grad}
	}, a)
}

// Tanh returns tanh(a).
func Tanh(a *Var) *Var {
	return unary(a,
		func(x float32) float32 { return float32(math.Tanh(float64(x))) },
		func(_, y float32) float32 { return 1 - y*y })
}

// ReLU returns max(a, 0).
func ReLU(a *Var) *Var {
	return unary(a,
		func(x float32) float32 { return max(x, 0) },
		func(x, _ float32) float32 {
			if x > 0 {
				return 1
			}
			return 0
		})
}

func sigmoid(x float32) float32 {
	if x >= 0 {
		return float32(1 / (1 + math.Exp(-float64(x))))
	}
	e := math.Exp(float64(x))
	return float32(e / (1 + e))
}

// Sigmoid returns 1 / (1 + e^-a).
func Sigmoid(a *Var) *Var {
	return unary(a, sigmoid, func(_, y float32) float32 { return y * (1 - y) })
}

// Softplus returns log(1 + e^a), computed without overflow.
func Softplus(a *Var) *Var {
	return unary(a,
		func(x float32) float32 {
			v := float64(x)
			return float32(max(v, 0) + math.Log1p(math.Exp(-math.Abs(v))))
		},
		func(x, _ float32) float32 { return sigmoid(x) })
}

// Exp returns e^a.
func Exp(a *Var) *Var {
	return unary(a,
		func(x float32) float32 { return float32(math.Exp(float64(x))) },
		func(_, y float32) float32 { return y })
}

// Log returns the natural logarithm of a.
func Log(a *Var) *Var {
	return unary(a,
		func(x float32) float32 { return float32(math.Log(float64(x))) },
		func(x, _ float32) float32 { return 1 / x })
}

// Square returns a^2.
func Square(a *Var) *Var {
	return unary(a,
		func(x float32) float32 { return x * x },
		func(x, _ float32) float32 { return 2 * x })
}

// Sum reduces a to a scalar by summation.
func Sum(a *Var) *Var {
	value := must(tensor.Sum(a.value, false))
	return emit(value, func(g *Array) []*Array {
		return []*Array{tensor.Full(a.value.Shape(), g.Item())}
	}, a)
}

// Mean reduces a to its scalar mean.
func Mean(a *Var) *Var {
	n := float32(max(a.value.Size(), 1))
	return Scale(Sum(a), 1/n)
}

// SumAxis sums over one axis, keeping it with size 1.
func SumAxis(a *Var, axis int) *Var {
	value := must(tensor.Sum(a.value, true, axis))
	return emit(value, func(g *Array) []*Array {
		return []*Array{must(tensor.BroadcastTo(g, a.value.Shape()))}
	}, a)
}

// Reshape changes the shape of a without changing its elements.
func Reshape(a *Var, shape tensor.Shape) *Var {
	value := must(tensor.Reshape(a.value.Clone(), shape))
	return emit(value, func(g *Array) []*Array {
		return []*Array{must(tensor.Reshape(g, a.value.Shape()))}
	}, a)
}
