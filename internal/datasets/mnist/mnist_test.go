package mnist_test

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func encodeNPY(shape []int, data []byte) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	tuple := strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	header := fmt.Sprintf("{'descr': '|u1', 'fortran_order': False, 'shape': (%s), }", tuple)
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	buf.Write(data)
	return buf.Bytes()
}

func encodeNPZ(t *testing.T, train, test mnist.Split) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, a := range map[string]*tensor.Array[uint8]{
		"x_train": train.Images, "y_train": train.Labels,
		"x_test": test.Images, "y_test": test.Labels,
	} {
		w, err := zw.Create(name + ".npy")
		require.NoError(t, err)
		_, err = w.Write(encodeNPY(a.Shape(), a.Data()))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func encodeIDX(t *testing.T, magic uint32, a *tensor.Array[uint8]) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	require.NoError(t, binary.Write(zw, binary.BigEndian, magic))
	for _, d := range a.Shape() {
		require.NoError(t, binary.Write(zw, binary.BigEndian, uint32(d)))
	}
	_, err := zw.Write(a.Data())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type fileServer struct {
	*httptest.Server
	hits atomic.Int32
}

func serve(t *testing.T, files map[string][]byte) *fileServer {
	t.Helper()
	fs := &fileServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fs.hits.Add(1)
		_, _ = w.Write(body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func assertSplitEqual(t *testing.T, want, got mnist.Split) {
	t.Helper()
	assert.Equal(t, want.Images.Shape(), got.Images.Shape())
	assert.Empty(t, cmp.Diff(want.Images.Data(), got.Images.Data()))
	assert.Empty(t, cmp.Diff(want.Labels.Data(), got.Labels.Data()))
}

func TestLoadData_NPZ(t *testing.T) {
	train, test := mnist.Synthetic(30)
	archive := encodeNPZ(t, train, test)
	srv := serve(t, map[string][]byte{"mnist.npz": archive})
	dir := t.TempDir()

	opts := []mnist.Option{
		mnist.WithOrigin(srv.URL + "/mnist.npz"),
		mnist.WithDigest("mnist.npz", digest(archive)),
		mnist.WithCacheDir(dir),
		mnist.WithHTTPClient(srv.Client()),
	}
	gotTrain, gotTest, err := mnist.LoadData(context.Background(), opts...)
	require.NoError(t, err)
	assertSplitEqual(t, train, gotTrain)
	assertSplitEqual(t, test, gotTest)
	assert.FileExists(t, filepath.Join(dir, "mnist.npz"))

	// Second load is served from the cache.
	_, _, err = mnist.LoadData(context.Background(), opts...)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.hits.Load())

	// A corrupted cache entry is downloaded again.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mnist.npz"), []byte("junk"), 0o600))
	_, _, err = mnist.LoadData(context.Background(), opts...)
	require.NoError(t, err)
	assert.Equal(t, int32(2), srv.hits.Load())
}

func TestLoadData_ChecksumMismatch(t *testing.T) {
	train, test := mnist.Synthetic(10)
	srv := serve(t, map[string][]byte{"mnist.npz": encodeNPZ(t, train, test)})
	dir := t.TempDir()

	_, _, err := mnist.LoadData(context.Background(),
		mnist.WithOrigin(srv.URL+"/mnist.npz"),
		mnist.WithCacheDir(dir),
		mnist.WithHTTPClient(srv.Client()),
	)
	require.ErrorIs(t, err, mnist.ErrChecksum)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed downloads must not leave files behind")
}

func TestLoadData_IDX(t *testing.T) {
	train, test := mnist.Synthetic(25)
	files := map[string][]byte{
		"train-images-idx3-ubyte.gz": encodeIDX(t, 2051, train.Images),
		"train-labels-idx1-ubyte.gz": encodeIDX(t, 2049, train.Labels),
		"t10k-images-idx3-ubyte.gz":  encodeIDX(t, 2051, test.Images),
		"t10k-labels-idx1-ubyte.gz":  encodeIDX(t, 2049, test.Labels),
	}
	srv := serve(t, files)

	opts := []mnist.Option{
		mnist.WithSource(mnist.IDX),
		mnist.WithOrigin(srv.URL),
		mnist.WithCacheDir(t.TempDir()),
		mnist.WithHTTPClient(srv.Client()),
		mnist.WithProgress(&bytes.Buffer{}),
	}
	for name, body := range files {
		opts = append(opts, mnist.WithDigest(name, digest(body)))
	}

	gotTrain, gotTest, err := mnist.LoadData(context.Background(), opts...)
	require.NoError(t, err)
	assertSplitEqual(t, train, gotTrain)
	assertSplitEqual(t, test, gotTest)
	assert.Equal(t, int32(4), srv.hits.Load())
}

func TestLoadData_IDXMismatchedCounts(t *testing.T) {
	train, test := mnist.Synthetic(20)
	short, err := train.Subset([]int{0, 1, 2})
	require.NoError(t, err)
	srv := serve(t, map[string][]byte{
		"train-images-idx3-ubyte.gz": encodeIDX(t, 2051, train.Images),
		"train-labels-idx1-ubyte.gz": encodeIDX(t, 2049, short.Labels),
		"t10k-images-idx3-ubyte.gz":  encodeIDX(t, 2051, test.Images),
		"t10k-labels-idx1-ubyte.gz":  encodeIDX(t, 2049, test.Labels),
	})

	opts := []mnist.Option{
		mnist.WithSource(mnist.IDX),
		mnist.WithOrigin(srv.URL + "/"),
		mnist.WithCacheDir(t.TempDir()),
		mnist.WithHTTPClient(srv.Client()),
	}
	for _, name := range []string{"train-images-idx3-ubyte.gz", "train-labels-idx1-ubyte.gz", "t10k-images-idx3-ubyte.gz", "t10k-labels-idx1-ubyte.gz"} {
		opts = append(opts, mnist.WithDigest(name, ""))
	}
	_, _, err = mnist.LoadData(context.Background(), opts...)
	require.ErrorIs(t, err, mnist.ErrFormat)
}

func TestLoadData_HTTPError(t *testing.T) {
	srv := serve(t, nil)
	_, _, err := mnist.LoadData(context.Background(),
		mnist.WithOrigin(srv.URL+"/missing.npz"),
		mnist.WithCacheDir(t.TempDir()),
		mnist.WithHTTPClient(srv.Client()),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestLoadData_UnknownSource(t *testing.T) {
	_, _, err := mnist.LoadData(context.Background(), mnist.WithSource("csv"), mnist.WithCacheDir(t.TempDir()))
	require.Error(t, err)
}

func TestLoadData_BadArchive(t *testing.T) {
	body := []byte("not a zip")
	srv := serve(t, map[string][]byte{"mnist.npz": body})
	_, _, err := mnist.LoadData(context.Background(),
		mnist.WithOrigin(srv.URL+"/mnist.npz"),
		mnist.WithDigest("mnist.npz", digest(body)),
		mnist.WithCacheDir(t.TempDir()),
		mnist.WithHTTPClient(srv.Client()),
	)
	require.ErrorIs(t, err, mnist.ErrFormat)
}

func TestSynthetic(t *testing.T) {
	train, test := mnist.Synthetic(50)
	assert.Equal(t, tensor.Shape{50, 28, 28}, train.Images.Shape())
	assert.Equal(t, tensor.Shape{50}, train.Labels.Shape())
	assert.Equal(t, 10, test.Len())

	x, y := train.Unpack()
	assert.Equal(t, uint8(3), y.At(13))
	assert.Equal(t, uint8(255), x.At(13, 9, 10))

	again, _ := mnist.Synthetic(50)
	assert.Equal(t, train.Images.Data(), again.Images.Data())
}

func TestNormalize(t *testing.T) {
	a, err := tensor.FromSlice([]uint8{0, 51, 255}, tensor.Shape{3})
	require.NoError(t, err)
	got := mnist.Normalize(a)
	assert.InDeltaSlice(t, []float32{0, 0.2, 1}, got.Data(), 1e-6)
	assert.Equal(t, []int{0, 51, 255}, mnist.Labels(a))
}

func TestBatches(t *testing.T) {
	batches := mnist.Batches(random.NewKey(1), 10, 4)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 2)

	seen := make(map[int]bool)
	for _, b := range batches {
		for _, i := range b {
			seen[i] = true
		}
	}
	assert.Len(t, seen, 10)

	assert.Equal(t, batches, mnist.Batches(random.NewKey(1), 10, 4))
	assert.Nil(t, mnist.Batches(random.NewKey(1), 0, 4))
}
