package mnist

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051 // 0x00000803: unsigned bytes, 3 dimensions
	idxLabelsMagic = 2049 // 0x00000801: unsigned bytes, 1 dimension
)

// readIDX reads an IDX file of unsigned bytes.
//
// IDX layout:
//
//	magic number: 4 bytes (big endian); low byte is the number of dimensions
//	dimensions:   4 bytes each (big endian)
//	data:         unsigned bytes, row-major
func readIDX(r io.Reader, wantMagic uint32) ([]int, []byte, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read magic: %v", ErrFormat, err)
	}
	if magic != wantMagic {
		return nil, nil, fmt.Errorf("%w: invalid magic number: got %d, want %d", ErrFormat, magic, wantMagic)
	}

	dims := make([]uint32, magic&0xff)
	if err := binary.Read(r, binary.BigEndian, dims); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read dimensions: %v", ErrFormat, err)
	}
	shape := make([]int, len(dims))
	for i, d := range dims {
		shape[i] = int(d)
	}
	size, err := elementCount(shape)
	if err != nil {
		return nil, nil, err
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read %d bytes of data: %v", ErrFormat, size, err)
	}
	return shape, data, nil
}

// maxElements bounds the arrays a dataset file may declare. The MNIST
// training images hold 47,040,000 bytes.
const maxElements = 1 << 28

// elementCount multiplies the dimensions of shape, rejecting sizes above
// maxElements before anything is allocated.
func elementCount(shape []int) (int, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrFormat, shape)
		}
		if d == 0 {
			return 0, nil
		}
		if size > maxElements/d {
			return 0, fmt.Errorf("%w: shape %v exceeds %d elements", ErrFormat, shape, maxElements)
		}
		size *= d
	}
	return size, nil
}

// readIDXFile reads a gzipped IDX file.
func readIDXFile(path string, wantMagic uint32) ([]int, []byte, error) {
	//nolint:gosec // G304: path is inside the cache directory
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	defer zr.Close()

	shape, data, err := readIDX(zr, wantMagic)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return shape, data, nil
}
