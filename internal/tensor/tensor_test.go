package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nodekit/internal/tensor"
)

func mustFrom[T tensor.DType](t *testing.T, data []T, shape ...int) *tensor.Array[T] {
	t.Helper()
	a, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return a
}

func TestFromSlice_CountMismatch(t *testing.T) {
	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2})
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "(60000, 28, 28)", tensor.Shape{60000, 28, 28}.String())
	assert.Equal(t, "(10000,)", tensor.Shape{10000}.String())
	assert.Equal(t, "()", tensor.Shape{}.String())
}

func TestAdd_Broadcast(t *testing.T) {
	a := mustFrom(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := mustFrom(t, []float32{10, 20, 30}, 3)

	got, err := tensor.Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, got.Data())
}

func TestMul_BroadcastColumn(t *testing.T) {
	a := mustFrom(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := mustFrom(t, []float32{2, 3}, 2, 1)

	got, err := tensor.Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 12, 15, 18}, got.Data())
}

func TestAdd_Incompatible(t *testing.T) {
	a := tensor.Zeros[float32](tensor.Shape{2, 3})
	b := tensor.Zeros[float32](tensor.Shape{4})
	_, err := tensor.Add(a, b)
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestSum_Axes(t *testing.T) {
	a := mustFrom(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)

	rows, err := tensor.Sum(a, false, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2}, rows.Shape())
	assert.Equal(t, []float64{6, 15}, rows.Data())

	cols, err := tensor.Sum(a, true, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3}, cols.Shape())
	assert.Equal(t, []float64{5, 7, 9}, cols.Data())

	all, err := tensor.Sum(a, false)
	require.NoError(t, err)
	assert.Equal(t, 21.0, all.Item())
}

func TestMaxMinMean(t *testing.T) {
	a := mustFrom(t, []float32{3, -1, 7, 2, 8, -5}, 3, 2)

	mx, err := tensor.Max(a, false, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{8, 2}, mx.Data())

	mn, err := tensor.Min(a, false, -1)
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 2, -5}, mn.Data())

	mean, err := tensor.Mean(a, false)
	require.NoError(t, err)
	assert.InDelta(t, 14.0/6.0, mean.Item(), 1e-6)
}

func TestArgMax(t *testing.T) {
	a := mustFrom(t, []float32{0.1, 0.7, 0.2, 0.9, 0.05, 0.05}, 2, 3)
	got, err := tensor.ArgMax(a, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 0}, got.Data())
}

func TestReshape_Infer(t *testing.T) {
	a := tensor.Arange[float32](12)
	got, err := tensor.Reshape(a, tensor.Shape{3, -1})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 4}, got.Shape())

	_, err = tensor.Reshape(a, tensor.Shape{5, -1})
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestTranspose(t *testing.T) {
	a := mustFrom(t, []int32{1, 2, 3, 4, 5, 6}, 2, 3)
	got, err := tensor.Transpose(a)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, got.Shape())
	assert.Equal(t, []int32{1, 4, 2, 5, 3, 6}, got.Data())

	b := tensor.Arange[int32](24)
	b, err = tensor.Reshape(b, tensor.Shape{2, 3, 4})
	require.NoError(t, err)
	p, err := tensor.Transpose(b, 2, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 2, 3}, p.Shape())
	assert.Equal(t, b.At(1, 2, 3), p.At(3, 1, 2))
}

func TestSumTo_UndoesBroadcast(t *testing.T) {
	g := tensor.Ones[float32](tensor.Shape{4, 2, 3})
	got, err := tensor.SumTo(g, tensor.Shape{1, 3})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3}, got.Shape())
	assert.Equal(t, []float32{8, 8, 8}, got.Data())
}

func TestMatMul(t *testing.T) {
	a := mustFrom(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := mustFrom(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	got, err := tensor.MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{58, 64, 139, 154}, got.Data())

	// a^T @ a via the transpose flag.
	ata, err := tensor.Gemm(a, a, true, false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 3}, ata.Shape())
	assert.Equal(t, float32(1*1+4*4), ata.At(0, 0))

	_, err = tensor.MatMul(a, a)
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestTakeAndSlice(t *testing.T) {
	a := mustFrom(t, []uint8{0, 1, 10, 11, 20, 21}, 3, 2)

	got, err := tensor.Take(a, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []uint8{20, 21, 0, 1}, got.Data())

	s, err := tensor.Slice(a, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, s.Shape())
	assert.Equal(t, []uint8{10, 11, 20, 21}, s.Data())

	_, err = tensor.Take(a, []int{3})
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestCast(t *testing.T) {
	a := mustFrom(t, []uint8{0, 128, 255}, 3)
	f := tensor.Cast[float32](a)
	assert.Equal(t, tensor.Float32, f.DType())
	assert.Equal(t, []float32{0, 128, 255}, f.Data())
}

func TestConcat(t *testing.T) {
	a := mustFrom(t, []float32{1, 2}, 1, 2)
	b := mustFrom(t, []float32{3, 4, 5, 6}, 2, 2)
	got, err := tensor.Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, got.Shape())

	_, err = tensor.Concat(a, mustFrom(t, []float32{1, 2, 3}, 1, 3))
	require.ErrorIs(t, err, tensor.ErrShape)
}
