// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package mnist loads the MNIST handwritten digit dataset.
//
// Example:
//
//	train, test, err := mnist.LoadData(ctx)
//	if err != nil {
//	    return err
//	}
//	xTrain, yTrain := train.Unpack() // [60000, 28, 28], [60000]
//	xTest, yTest := test.Unpack()    // [10000, 28, 28], [10000]
//
// Files are cached under /datasets (default ~/.nodekit/datasets)
// and verified against their SHA-256 digests.
package mnist

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/born-ml/nodekit/internal/datasets/mnist"
	"github.com/born-ml/nodekit/internal/random"
	"github.com/born-ml/nodekit/internal/tensor"
)

// Errors.
var (
	ErrChecksum = mnist.ErrChecksum
	ErrFormat   = mnist.ErrFormat
)

// Dataset geometry.
const (
	Rows      = mnist.Rows
	Cols      = mnist.Cols
	Classes   = mnist.Classes
	TrainSize = mnist.TrainSize
	TestSize  = mnist.TestSize
)

// Source selects the file layout to download.
type Source = mnist.Source

// Sources.
const (
	NPZ = mnist.NPZ
	IDX = mnist.IDX
)

// Split is one half of the dataset.
type Split = mnist.Split

// Option configures LoadData.
type Option = mnist.Option

// LoadData returns the train and test splits, downloading and caching the
// files on first use.
func LoadData(ctx context.Context, opts ...Option) (train, test Split, err error) {
	return mnist.LoadData(ctx, opts...)
}

// WithSource selects the file layout (default: NPZ).
func WithSource(s Source) Option { return mnist.WithSource(s) }

// WithOrigin overrides the download location.
func WithOrigin(url string) Option { return mnist.WithOrigin(url) }

// WithCacheDir sets the cache directory.
func WithCacheDir(dir string) Option { return mnist.WithCacheDir(dir) }

// WithDigest overrides the expected SHA-256 of a file.
func WithDigest(name, sha256 string) Option { return mnist.WithDigest(name, sha256) }

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option { return mnist.WithHTTPClient(c) }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return mnist.WithLogger(l) }

// WithProgress draws download progress bars on w.
func WithProgress(w io.Writer) Option { return mnist.WithProgress(w) }

// DefaultCacheDir returns the default cache directory.
func DefaultCacheDir() string { return mnist.DefaultCacheDir() }

// Synthetic builds a small deterministic stand-in dataset.
func Synthetic(n int) (train, test Split) { return mnist.Synthetic(n) }

// Normalize scales pixel values to [0, 1].
func Normalize(images *tensor.Array[uint8]) *tensor.Array[float32] { return mnist.Normalize(images) }

// Labels returns the labels as ints.
func Labels(labels *tensor.Array[uint8]) []int { return mnist.Labels(labels) }

// Batches shuffles [0, n) and cuts it into batches of size.
func Batches(key random.Key, n, size int) [][]int { return mnist.Batches(key, n, size) }
