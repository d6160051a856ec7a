// Package mnist loads the MNIST handwritten digit dataset.
//
// LoadData downloads the dataset once into a local cache, verifies every
// file against its known SHA-256 digest and returns the train and test
// splits as uint8 arrays:
//
//	train, test, err := mnist.LoadData(ctx)
//	xTrain, yTrain := train.Unpack() // [60000, 28, 28], [60000]
//	xTest, yTest := test.Unpack()    // [10000, 28, 28], [10000]
package mnist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/nodekit/internal/progress"
	"github.com/born-ml/nodekit/internal/tensor"
)

var (
	// ErrChecksum is returned when a downloaded file does not match its
	// expected digest.
	ErrChecksum = errors.New("mnist: checksum mismatch")

	// ErrFormat is returned for malformed dataset files.
	ErrFormat = errors.New("mnist: malformed file")
)

// Image geometry and split sizes of the official dataset.
const (
	Rows      = 28
	Cols      = 28
	Classes   = 10
	TrainSize = 60000
	TestSize  = 10000
)

// Source selects the file layout to download.
type Source string

// Sources.
const (
	// NPZ is the single Keras archive holding four .npy arrays.
	NPZ Source = "npz"
	// IDX is the four gzipped IDX files of the original distribution.
	IDX Source = "idx"
)

// Default download locations.
const (
	DefaultNPZOrigin = "https://storage.googleapis.com/tensorflow/tf-keras-datasets/mnist.npz"
	DefaultIDXOrigin = "https://storage.googleapis.com/cvdf-datasets/mnist/"
)

const npzFile = "mnist.npz"

// IDX file names.
const (
	trainImagesFile = "train-images-idx3-ubyte.gz"
	trainLabelsFile = "train-labels-idx1-ubyte.gz"
	testImagesFile  = "t10k-images-idx3-ubyte.gz"
	testLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

// KnownDigests maps file names to the SHA-256 of the official files.
var KnownDigests = map[string]string{
	npzFile:         "731c5ac602752760c8e48fbffcf8c3b850d9dc2a2aedcf2cc48468fc17b673d1",
	trainImagesFile: "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609",
	trainLabelsFile: "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c",
	testImagesFile:  "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6",
	testLabelsFile:  "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6",
}

// Split is one half of the dataset.
type Split struct {
	Images *tensor.Array[uint8] // [N, 28, 28]
	Labels *tensor.Array[uint8] // [N]
}

// Unpack returns the images and labels.
func (s Split) Unpack() (*tensor.Array[uint8], *tensor.Array[uint8]) {
	return s.Images, s.Labels
}

// Len returns the number of examples.
func (s Split) Len() int {
	if s.Labels == nil {
		return 0
	}
	return s.Labels.Dim(0)
}

// Subset returns the examples at indices, in order.
func (s Split) Subset(indices []int) (Split, error) {
	images, err := tensor.Take(s.Images, indices)
	if err != nil {
		return Split{}, err
	}
	labels, err := tensor.Take(s.Labels, indices)
	if err != nil {
		return Split{}, err
	}
	return Split{Images: images, Labels: labels}, nil
}

func newSplit(imageShape []int, images []byte, labelShape []int, labels []byte) (Split, error) {
	if len(imageShape) != 3 || len(labelShape) != 1 {
		return Split{}, fmt.Errorf("%w: images %v and labels %v must be [N, H, W] and [N]", ErrFormat, imageShape, labelShape)
	}
	if imageShape[0] != labelShape[0] {
		return Split{}, fmt.Errorf("%w: %d images but %d labels", ErrFormat, imageShape[0], labelShape[0])
	}
	for i, l := range labels {
		if l >= Classes {
			return Split{}, fmt.Errorf("%w: label %d at index %d", ErrFormat, l, i)
		}
	}
	x, err := tensor.FromSlice(images, tensor.Shape(imageShape))
	if err != nil {
		return Split{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	y, err := tensor.FromSlice(labels, tensor.Shape(labelShape))
	if err != nil {
		return Split{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return Split{Images: x, Labels: y}, nil
}

type options struct {
	source   Source
	origin   string
	cacheDir string
	digests  map[string]string
	client   *http.Client
	logger   *zap.Logger
	progress io.Writer
}

// Option configures LoadData.
type Option func(*options)

// WithSource selects the file layout (default: NPZ).
func WithSource(s Source) Option {
	return func(o *options) { o.source = s }
}

// WithOrigin overrides the download location: the archive URL for NPZ,
// the base URL of the four files for IDX.
func WithOrigin(url string) Option {
	return func(o *options) { o.origin = url }
}

// WithCacheDir sets the cache directory (default: DefaultCacheDir()).
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

// WithDigest overrides the expected SHA-256 of a file. An empty digest
// disables verification for that file.
func WithDigest(name, sha256 string) Option {
	return func(o *options) { o.digests[name] = sha256 }
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger (default: no logging).
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress draws download progress bars on w.
func WithProgress(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// LoadData returns the train and test splits, downloading and caching the
// files on first use.
func LoadData(ctx context.Context, opts ...Option) (train, test Split, err error) {
	o := options{
		source:  NPZ,
		client:  http.DefaultClient,
		logger:  zap.NewNop(),
		digests: make(map[string]string, len(KnownDigests)),
	}
	for name, sum := range KnownDigests {
		o.digests[name] = sum
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheDir == "" {
		o.cacheDir = DefaultCacheDir()
	}

	dir, err := ensureCacheDir(o.cacheDir, o.logger)
	if err != nil {
		return Split{}, Split{}, fmt.Errorf("mnist: %w", err)
	}
	f := &fetcher{client: o.client, dir: dir, logger: o.logger, progress: o.progress}

	switch o.source {
	case NPZ:
		train, test, err = loadNPZ(ctx, f, o)
	case IDX:
		train, test, err = loadIDX(ctx, f, o)
	default:
		return Split{}, Split{}, fmt.Errorf("mnist: unknown source %q", o.source)
	}
	if err != nil {
		return Split{}, Split{}, fmt.Errorf("mnist: %w", err)
	}

	o.logger.Info("dataset loaded",
		zap.String("source", string(o.source)),
		zap.Stringer("x_train", train.Images.Shape()),
		zap.Stringer("y_train", train.Labels.Shape()),
		zap.Stringer("x_test", test.Images.Shape()),
		zap.Stringer("y_test", test.Labels.Shape()),
	)
	return train, test, nil
}

func loadNPZ(ctx context.Context, f *fetcher, o options) (train, test Split, err error) {
	origin := o.origin
	if origin == "" {
		origin = DefaultNPZOrigin
	}
	path, err := f.fetch(ctx, origin, npzFile, o.digests[npzFile], nil)
	if err != nil {
		return Split{}, Split{}, err
	}
	arrays, err := readNPZ(path, "x_train", "y_train", "x_test", "y_test")
	if err != nil {
		return Split{}, Split{}, err
	}

	xTrain, yTrain := arrays["x_train"], arrays["y_train"]
	if train, err = newSplit(xTrain.shape, xTrain.data, yTrain.shape, yTrain.data); err != nil {
		return Split{}, Split{}, fmt.Errorf("train split: %w", err)
	}
	xTest, yTest := arrays["x_test"], arrays["y_test"]
	if test, err = newSplit(xTest.shape, xTest.data, yTest.shape, yTest.data); err != nil {
		return Split{}, Split{}, fmt.Errorf("test split: %w", err)
	}
	return train, test, nil
}

type idxPart struct {
	name  string
	magic uint32
	shape []int
	data  []byte
}

// loadIDX downloads and parses the four files concurrently.
func loadIDX(ctx context.Context, f *fetcher, o options) (train, test Split, err error) {
	origin := o.origin
	if origin == "" {
		origin = DefaultIDXOrigin
	}
	if origin[len(origin)-1] != '/' {
		origin += "/"
	}

	parts := []*idxPart{
		{name: trainImagesFile, magic: idxImagesMagic},
		{name: trainLabelsFile, magic: idxLabelsMagic},
		{name: testImagesFile, magic: idxImagesMagic},
		{name: testLabelsFile, magic: idxLabelsMagic},
	}

	out := progress.Disabled()
	if o.progress != nil {
		out = progress.WithWriter(o.progress)
	}
	bar := progress.New(0, progress.WithBytes(), progress.WithDescription("mnist"), out)
	defer bar.Close()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range parts {
		g.Go(func() error {
			path, err := f.fetch(gctx, origin+p.name, p.name, o.digests[p.name], bar)
			if err != nil {
				return err
			}
			p.shape, p.data, err = readIDXFile(path, p.magic)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Split{}, Split{}, err
	}

	if train, err = newSplit(parts[0].shape, parts[0].data, parts[1].shape, parts[1].data); err != nil {
		return Split{}, Split{}, fmt.Errorf("train split: %w", err)
	}
	if test, err = newSplit(parts[2].shape, parts[2].data, parts[3].shape, parts[3].data); err != nil {
		return Split{}, Split{}, fmt.Errorf("test split: %w", err)
	}
	return train, test, nil
}
