package nn_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nodekit/internal/autodiff"
	"github.com/born-ml/nodekit/internal/nn"
	"github.com/born-ml/nodekit/internal/ode"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

func names(params []*nn.Parameter) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Name()
	}
	return out
}

func TestLinear(t *testing.T) {
	l := nn.NewLinear(random.NewKey(0), 3, 2, true)
	assert.Equal(t, 3, l.InFeatures())
	assert.Equal(t, 2, l.OutFeatures())
	assert.Equal(t, tensor.Shape{3, 2}, l.Weight().Value().Shape())
	assert.Equal(t, []float32{0, 0}, l.Bias().Value().Data())
	assert.Equal(t, []string{"weight", "bias"}, names(l.Parameters()))

	bound := float32(math.Sqrt(6.0 / 5))
	for _, w := range l.Weight().Value().Data() {
		assert.LessOrEqual(t, w, bound)
		assert.GreaterOrEqual(t, w, -bound)
	}

	copy(l.Weight().Value().Data(), []float32{1, 2, 3, 4, 5, 6})
	copy(l.Bias().Value().Data(), []float32{0.5, -0.5})
	x, err := tensor.FromSlice([]float32{1, 1, 1, 0, 1, 0}, tensor.Shape{2, 3})
	require.NoError(t, err)

	y := l.Forward(nil, autodiff.Const(x))
	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float32{9.5, 11.5, 3.5, 3.5}, y.Value().Data())

	v, err := tensor.FromSlice([]float32{1, 0, 0}, tensor.Shape{3})
	require.NoError(t, err)
	single := l.Forward(nil, autodiff.Const(v))
	assert.Equal(t, tensor.Shape{2}, single.Shape())
	assert.Equal(t, []float32{1.5, 1.5}, single.Value().Data())
}

func TestLinear_ShapeMismatchPanics(t *testing.T) {
	l := nn.NewLinear(random.NewKey(0), 3, 2, false)
	assert.Len(t, l.Parameters(), 1)
	assert.Panics(t, func() {
		l.Forward(nil, autodiff.Const(tensor.Zeros[float32](tensor.Shape{2, 4})))
	})

	_, _, err := autodiff.ValueAndGrad(func(tape *autodiff.Tape, _ []*autodiff.Var) *autodiff.Var {
		return autodiff.Sum(l.Forward(tape, tape.Const(tensor.Zeros[float32](tensor.Shape{2, 4}))))
	}, nil)
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestLinear_Gradients(t *testing.T) {
	l := nn.NewLinear(random.NewKey(1), 2, 1, true)
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)

	tape := autodiff.NewTape()
	loss := autodiff.Sum(l.Forward(tape, tape.Const(x)))
	grads, err := tape.Backward(loss)
	require.NoError(t, err)

	g := nn.Grads(grads, l.Parameters())
	// d/dW sum(xW + b) = column sums of x; d/db = batch size.
	assert.Equal(t, []float32{4, 6}, g[0].Data())
	assert.Equal(t, []float32{2}, g[1].Data())
}

func TestMLP(t *testing.T) {
	m, err := nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 4, Out: 3, Width: 8, Depth: 2, Activation: "tanh"})
	require.NoError(t, err)
	assert.Len(t, m.Layers(), 3)
	assert.Equal(t, []string{
		"layers.0.weight", "layers.0.bias",
		"layers.1.weight", "layers.1.bias",
		"layers.2.weight", "layers.2.bias",
	}, names(m.Parameters()))
	assert.Equal(t, 4*8+8+8*8+8+8*3+3, nn.Count(m))

	out := m.Forward(nil, autodiff.Const(tensor.Ones[float32](tensor.Shape{5, 4})))
	assert.Equal(t, tensor.Shape{5, 3}, out.Shape())

	same, err := nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 4, Out: 3, Width: 8, Depth: 2, Activation: "tanh"})
	require.NoError(t, err)
	assert.Equal(t, m.Layers()[1].Weight().Value().Data(), same.Layers()[1].Weight().Value().Data())

	linear, err := nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 4, Out: 3})
	require.NoError(t, err)
	assert.Len(t, linear.Layers(), 1)
}

func TestMLP_FinalActivation(t *testing.T) {
	m, err := nn.NewMLP(random.NewKey(3), nn.MLPConfig{In: 2, Out: 4, Width: 4, Depth: 1, FinalActivation: "sigmoid"})
	require.NoError(t, err)
	out := m.Forward(nil, autodiff.Const(tensor.Full[float32](tensor.Shape{1, 2}, 0.1)))
	for _, v := range out.Value().Data() {
		assert.Greater(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestMLP_InvalidConfig(t *testing.T) {
	_, err := nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 0, Out: 3})
	require.ErrorIs(t, err, nn.ErrConfig)
	_, err = nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 2, Out: 3, Depth: 1})
	require.ErrorIs(t, err, nn.ErrConfig)
	_, err = nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 2, Out: 3, Activation: "gelu"})
	require.ErrorIs(t, err, nn.ErrUnknownActivation)
}

func TestActivations(t *testing.T) {
	x, err := tensor.FromSlice([]float32{-1, 0, 2}, tensor.Shape{3})
	require.NoError(t, err)
	in := autodiff.Const(x)

	relu, err := nn.ActivationByName("relu")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 2}, relu.Forward(nil, in).Value().Data())
	assert.Nil(t, relu.Parameters())

	id, err := nn.ActivationByName("")
	require.NoError(t, err)
	assert.Equal(t, "identity", id.Name())
	assert.Same(t, in, id.Apply(in))

	assert.InDelta(t, math.Tanh(2), float64(nn.Tanh.Apply(in).Value().At(2)), 1e-6)
	assert.InDelta(t, math.Log1p(math.Exp(-1)), float64(nn.Softplus.Apply(in).Value().At(0)), 1e-6)
}

func TestSequential(t *testing.T) {
	keys := random.Split(random.NewKey(2), 2)
	s := nn.NewSequential(
		nn.NewLinear(keys[0], 4, 6, true),
		nn.ReLU,
		nn.NewLinear(keys[1], 6, 2, true),
	)
	assert.Len(t, s.Layers(), 3)
	assert.Equal(t, []string{"layers.0.weight", "layers.0.bias", "layers.2.weight", "layers.2.bias"}, names(s.Parameters()))

	out := s.Forward(nil, autodiff.Const(tensor.Ones[float32](tensor.Shape{3, 4})))
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
}

func TestNeuralODE_LinearField(t *testing.T) {
	// dy/dt = y W with W = -I integrates to y(1) = y0 * exp(-1).
	field := nn.NewLinear(random.NewKey(0), 2, 2, false)
	copy(field.Weight().Value().Data(), []float32{-1, 0, 0, -1})

	node, err := nn.NewNeuralODE(field, nn.NeuralODEConfig{Steps: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"field.weight"}, names(node.Parameters()))

	y0, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2})
	require.NoError(t, err)
	y := node.Forward(nil, autodiff.Const(y0))
	assert.InDelta(t, math.Exp(-1), float64(y.Value().At(0, 0)), 1e-5)
	assert.InDelta(t, 2*math.Exp(-1), float64(y.Value().At(0, 1)), 1e-5)

	traj, err := node.Trajectory(context.Background(), nil, autodiff.Const(y0), []float64{0, 0.5, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, traj.Ts)
	assert.InDelta(t, math.Exp(-0.5), float64(traj.Ys[1].Value().At(0, 0)), 1e-5)
}

func TestNeuralODE_Gradients(t *testing.T) {
	// y(1) = y0 exp(w) for the scalar field dy/dt = w y, so
	// d y(1) / d w = y0 exp(w).
	field := nn.NewLinear(random.NewKey(0), 1, 1, false)
	field.Weight().Value().Data()[0] = 0.5

	node, err := nn.NewNeuralODE(field, nn.NeuralODEConfig{Solver: ode.Tsit5, Steps: 10})
	require.NoError(t, err)

	y0 := tensor.Full[float32](tensor.Shape{1, 1}, 2)
	value, grads, err := autodiff.ValueAndGrad(func(tape *autodiff.Tape, _ []*autodiff.Var) *autodiff.Var {
		return autodiff.Sum(node.Forward(tape, tape.Const(y0)))
	}, nn.Values(node.Parameters()))
	require.NoError(t, err)
	assert.InDelta(t, 2*math.Exp(0.5), float64(value), 1e-4)
	assert.InDelta(t, 2*math.Exp(0.5), float64(grads[0].Item()), 1e-3)
}

func TestNeuralODE_InvalidConfig(t *testing.T) {
	field := nn.NewLinear(random.NewKey(0), 1, 1, false)
	_, err := nn.NewNeuralODE(field, nn.NeuralODEConfig{T0: 1, T1: 1})
	require.ErrorIs(t, err, nn.ErrConfig)
	_, err = nn.NewNeuralODE(field, nn.NeuralODEConfig{Steps: -1})
	require.ErrorIs(t, err, nn.ErrConfig)
}

func TestSaveLoad(t *testing.T) {
	cfg := nn.MLPConfig{In: 3, Out: 2, Width: 4, Depth: 1}
	m, err := nn.NewMLP(random.NewKey(7), cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "mlp.safetensors")
	require.NoError(t, nn.Save(path, m, map[string]string{"epoch": "3"}))

	other, err := nn.NewMLP(random.NewKey(8), cfg)
	require.NoError(t, err)
	require.NotEqual(t, m.Layers()[0].Weight().Value().Data(), other.Layers()[0].Weight().Value().Data())

	meta, err := nn.Load(path, other)
	require.NoError(t, err)
	assert.Equal(t, "3", meta["epoch"])
	for i, p := range m.Parameters() {
		assert.Equal(t, p.Value().Data(), other.Parameters()[i].Value().Data(), p.Name())
	}

	wrong, err := nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 3, Out: 2, Width: 5, Depth: 1})
	require.NoError(t, err)
	_, err = nn.Load(path, wrong)
	require.ErrorIs(t, err, tensor.ErrShape)

	deeper, err := nn.NewMLP(random.NewKey(0), nn.MLPConfig{In: 3, Out: 2, Width: 4, Depth: 2})
	require.NoError(t, err)
	_, err = nn.Load(path, deeper)
	require.Error(t, err)
}
