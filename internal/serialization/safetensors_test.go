package serialization_test

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/nodekit/internal/serialization"
	"github.com/born-ml/nodekit/internal/tensor"
)

func sample(t *testing.T) map[string]*tensor.Array[float32] {
	t.Helper()
	w, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{-1, 0.5}, tensor.Shape{2})
	require.NoError(t, err)
	return map[string]*tensor.Array[float32]{"layers.0.weight": w, "layers.0.bias": b}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serialization.Write(&buf, sample(t), map[string]string{"model": "mlp"}))

	got, meta, err := serialization.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, "mlp", meta["model"])
	assert.NotEmpty(t, meta[serialization.ChecksumKey])
	require.Len(t, got, 2)
	assert.Equal(t, tensor.Shape{2, 3}, got["layers.0.weight"].Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, got["layers.0.weight"].Data())
	assert.Equal(t, []float32{-1, 0.5}, got["layers.0.bias"].Data())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, serialization.WriteFile(path, sample(t), nil))

	got, _, err := serialization.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	matches, err := filepath.Glob(path + ".tmp*")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRead_Corrupted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serialization.Write(&buf, sample(t), nil))
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff

	_, _, err := serialization.Read(bytes.NewReader(raw))
	require.ErrorIs(t, err, serialization.ErrChecksumMismatch)
}

func TestRead_HeaderTooLarge(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(serialization.MaxHeaderSize+1)))
	_, _, err := serialization.Read(&buf)
	require.ErrorIs(t, err, serialization.ErrHeaderTooLarge)
}

func TestRead_OutOfBounds(t *testing.T) {
	header := []byte(`{"w":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.Write(header)
	buf.Write(make([]byte, 8))

	_, _, err := serialization.Read(&buf)
	var verr *serialization.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "out_of_bounds", verr.Type)
}

func TestRead_UnsupportedDType(t *testing.T) {
	header := []byte(`{"w":{"dtype":"F16","shape":[2],"data_offsets":[0,4]}}`)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.Write(header)
	buf.Write(make([]byte, 4))

	_, _, err := serialization.Read(&buf)
	require.ErrorIs(t, err, serialization.ErrUnsupportedDType)
}

func TestValidateTensorName(t *testing.T) {
	require.NoError(t, serialization.ValidateTensorName("mlp.layers.1.weight"))
	for _, name := range []string{"", "../etc", "a/b", "a\\b", "a\x00b"} {
		assert.Error(t, serialization.ValidateTensorName(name), name)
	}
}
