// Package parallel splits independent loop iterations, typically matrix
// columns, over a bounded number of goroutines.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of goroutines running at once.
	MinChunkSize int  // Minimum iterations per goroutine.
}

// DefaultConfig returns defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a configuration that never starts goroutines.
func Sequential() Config {
	return Config{MinChunkSize: 1}
}

// ForRange calls f on consecutive chunks [start, end) covering [0, n).
// Chunks run concurrently unless parallelism is disabled or n is smaller than
// two chunks, in which case f(0, n) runs on the calling goroutine.
//
// A panic in f is re-raised on the calling goroutine once every chunk is done,
// so callers can recover from it as if f had run inline. When several chunks
// panic, the first recovered value wins.
func ForRange(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*cfg.MinChunkSize {
		f(0, n)
		return
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	var (
		g         errgroup.Group
		panicOnce sync.Once
		panicked  any
	)
	g.SetLimit(cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked = r })
				}
			}()
			f(start, end)
			return nil
		})
	}
	_ = g.Wait()
	if panicked != nil {
		panic(panicked)
	}
}

// For executes f(i) for i in [0, n), in chunks as ForRange does.
func For(n int, f func(i int), cfg Config) {
	ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}
