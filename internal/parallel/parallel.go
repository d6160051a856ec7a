// Package parallel splits index ranges across goroutines for the array kernels.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how work is split.
type Config struct {
	Workers  int // Upper bound on goroutines.
	MinChunk int // Ranges shorter than this run inline.
}

// DefaultConfig uses one worker per CPU and a chunk size large enough that
// elementwise kernels amortise goroutine startup.
func DefaultConfig() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		MinChunk: 1 << 14,
	}
}

// Range calls fn on disjoint half-open subranges covering [0, n).
// Small ranges are processed on the calling goroutine.
func Range(n int, cfg Config, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if cfg.Workers <= 1 || n < 2*cfg.MinChunk {
		fn(0, n)
		return
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, cfg.MinChunk)

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// For calls fn(i) for every i in [0, n).
func For(n int, cfg Config, fn func(i int)) {
	Range(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			fn(i)
		}
	})
}
