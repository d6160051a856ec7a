package autodiff_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

func arr(t *testing.T, data []float32, shape ...int) *tensor.Array[float32] {
	t.Helper()
	a, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return a
}

// numericGrad estimates d fn / d params[k] by central differences.
func numericGrad(t *testing.T, fn autodiff.Func, params []*tensor.Array[float32], k int) []float64 {
	t.Helper()
	const eps = 1e-3
	eval := func() float64 {
		v, _, err := autodiff.ValueAndGrad(fn, params)
		require.NoError(t, err)
		return float64(v)
	}
	data := params[k].Data()
	out := make([]float64, len(data))
	for i := range data {
		orig := data[i]
		data[i] = orig + eps
		up := eval()
		data[i] = orig - eps
		down := eval()
		data[i] = orig
		out[i] = (up - down) / (2 * eps)
	}
	return out
}

func checkGrads(t *testing.T, fn autodiff.Func, params []*tensor.Array[float32]) {
	t.Helper()
	_, grads, err := autodiff.ValueAndGrad(fn, params)
	require.NoError(t, err)
	for k := range params {
		want := numericGrad(t, fn, params, k)
		for i, g := range grads[k].Data() {
			assert.InDelta(t, want[i], float64(g), 2e-2, "param %d element %d", k, i)
		}
	}
}

func TestBackward_AddMul(t *testing.T) {
	tape := autodiff.NewTape()
	a := arr(t, []float32{2, 3}, 2)
	b := arr(t, []float32{5, 7}, 2)
	va, vb := tape.Watch(a), tape.Watch(b)

	// sum(a*b + a)
	out := autodiff.Sum(autodiff.Add(autodiff.Mul(va, vb), va))
	grads, err := tape.Backward(out)
	require.NoError(t, err)

	assert.Equal(t, []float32{6, 8}, grads.Wrt(a).Data())
	assert.Equal(t, []float32{2, 3}, grads.Wrt(b).Data())
	assert.Equal(t, float32(2*5+3*7+2+3), out.Value().Item())
}

func TestBackward_FanOutAccumulates(t *testing.T) {
	tape := autodiff.NewTape()
	x := arr(t, []float32{3}, 1)
	v := tape.Watch(x)
	out := autodiff.Sum(autodiff.Mul(v, v))
	grads, err := tape.Backward(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{6}, grads.Wrt(x).Data())
}

func TestBackward_NonScalar(t *testing.T) {
	tape := autodiff.NewTape()
	v := tape.Watch(tensor.Ones[float32](tensor.Shape{3}))
	_, err := tape.Backward(autodiff.Tanh(v))
	require.ErrorIs(t, err, autodiff.ErrNotScalar)
}

func TestBackward_UntrackedIsZero(t *testing.T) {
	tape := autodiff.NewTape()
	x := tensor.Ones[float32](tensor.Shape{2})
	w := tensor.Ones[float32](tensor.Shape{2})
	tape.Watch(w)
	out := autodiff.Sum(tape.Const(x))
	grads, err := tape.Backward(out)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, grads.Wrt(w).Data())
	assert.Equal(t, 0, tape.NumOps())
}

func TestGradCheck_Broadcasting(t *testing.T) {
	x := arr(t, []float32{0.5, -1, 2, 0.1, 0.3, -0.7}, 2, 3)
	b := arr(t, []float32{0.2, -0.4, 0.9}, 3)
	fn := func(_ *autodiff.Tape, p []*autodiff.Var) *autodiff.Var {
		s := autodiff.Sub(p[0], p[1])
		d := autodiff.Div(s, autodiff.AddScalar(autodiff.Square(p[1]), 1))
		return autodiff.Mean(autodiff.Mul(d, autodiff.Tanh(p[0])))
	}
	checkGrads(t, fn, []*tensor.Array[float32]{x, b})
}

func TestGradCheck_MLP(t *testing.T) {
	k1, k2 := random.Split2(random.NewKey(0))
	x := random.Normal(k1, tensor.Shape{4, 3})
	w := random.Normal(k2, tensor.Shape{3, 2})
	bias := arr(t, []float32{0.1, -0.2}, 2)
	labels := []int{0, 1, 1, 0}

	fn := func(tape *autodiff.Tape, p []*autodiff.Var) *autodiff.Var {
		h := autodiff.Add(autodiff.MatMul(tape.Const(x), p[0]), p[1])
		return autodiff.SoftmaxCrossEntropy(autodiff.Softplus(h), labels)
	}
	checkGrads(t, fn, []*tensor.Array[float32]{w, bias})
}

func TestGradCheck_Activations(t *testing.T) {
	x := arr(t, []float32{0.3, -1.2, 2.1, 0.7}, 2, 2)
	fn := func(_ *autodiff.Tape, p []*autodiff.Var) *autodiff.Var {
		a := autodiff.Sigmoid(p[0])
		b := autodiff.Exp(autodiff.Scale(p[0], 0.5))
		c := autodiff.Log(autodiff.AddScalar(autodiff.Square(p[0]), 1))
		r := autodiff.Reshape(autodiff.Add(autodiff.Add(a, b), c), tensor.Shape{4})
		return autodiff.Sum(autodiff.Mul(r, autodiff.Neg(r)))
	}
	checkGrads(t, fn, []*tensor.Array[float32]{x})
}

func TestGradCheck_LogSoftmaxSumAxis(t *testing.T) {
	x := arr(t, []float32{1, 2, 3, -1, 0, 4}, 2, 3)
	fn := func(_ *autodiff.Tape, p []*autodiff.Var) *autodiff.Var {
		ls := autodiff.LogSoftmax(p[0])
		return autodiff.Sum(autodiff.Square(autodiff.SumAxis(ls, 1)))
	}
	checkGrads(t, fn, []*tensor.Array[float32]{x})
}

func TestSoftmaxCrossEntropy_Value(t *testing.T) {
	logits := arr(t, []float32{0, 0, 0, 0}, 2, 2)
	loss := autodiff.SoftmaxCrossEntropy(autodiff.Const(logits), []int{0, 1})
	assert.InDelta(t, math.Ln2, float64(loss.Value().Item()), 1e-6)
}

func TestValueAndGrad_ShapeErrorReturned(t *testing.T) {
	a := tensor.Ones[float32](tensor.Shape{2, 3})
	b := tensor.Ones[float32](tensor.Shape{4, 5})
	_, _, err := autodiff.ValueAndGrad(func(_ *autodiff.Tape, p []*autodiff.Var) *autodiff.Var {
		return autodiff.Sum(autodiff.MatMul(p[0], p[1]))
	}, []*tensor.Array[float32]{a, b})
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestAccuracy(t *testing.T) {
	logits := arr(t, []float32{0.9, 0.1, 0.2, 0.8, 0.6, 0.4}, 3, 2)
	acc, err := autodiff.Accuracy(logits, []int{0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, acc, 1e-9)
}
