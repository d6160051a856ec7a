package progress

import (
	"context"
	"io"
)

// Range calls fn for i in [0, n) with a bar counting the iterations. It
// stops at the first error or when ctx is done.
func Range(ctx context.Context, n int, fn func(i int, bar *Bar) error, opts ...Option) (err error) {
	bar := New(int64(n), opts...)
	defer func() {
		if cerr := bar.Close(); err == nil {
			err = cerr
		}
	}()
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i, bar); err != nil {
			return err
		}
		bar.Add(1)
	}
	return nil
}

// Reader counts the bytes read through it on a bar.
type Reader struct {
	r   io.Reader
	bar *Bar
}

// NewReader wraps r so that every Read advances bar.
func NewReader(r io.Reader, bar *Bar) *Reader {
	return &Reader{r: r, bar: bar}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.bar.Add(int64(n))
	}
	return n, err
}
