// Package cpu implements the matrix kernels used by graph nodes.
//
// Kernels operate on column-major tensor.Matrix values and follow the
// "assign" / "add" naming: Assign* overwrites the destination, Add* accumulates
// into it. Dense products go through gonum BLAS; everything else is plain Go.
// All operands of one kernel call must be placed on the same device.
package cpu

import (
	"github.com/born-ml/matgraph/internal/parallel"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/gomlx/exceptions"
)

var parallelism = parallel.DefaultConfig()

// SetParallelism sets how per-column kernels split their columns over
// goroutines and returns the previous setting. Not safe to call while kernels run.
func SetParallelism(cfg parallel.Config) parallel.Config {
	prev := parallelism
	parallelism = cfg
	return prev
}

// forColumns runs f over chunks of the columns [0, cols).
func forColumns(cols int, f func(start, end int)) {
	parallel.ForRange(cols, f, parallelism)
}

// Name returns the backend name.
func Name() string {
	return "CPU"
}

// checkDevices panics when the operands are not placed on the same device.
func checkDevices[T tensor.Float](op string, ms ...*tensor.Matrix[T]) {
	if len(ms) == 0 {
		return
	}
	d := ms[0].Device()
	for _, m := range ms[1:] {
		if m.Device() != d {
			exceptions.Panicf("%s: operands placed on different devices (%s and %s)", op, d, m.Device())
		}
	}
}

// checkSameDims panics when a and b have different dimensions.
func checkSameDims[T tensor.Float](op string, a, b *tensor.Matrix[T]) {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		exceptions.Panicf("%s: dimension mismatch %s vs %s", op, a.Dims(), b.Dims())
	}
}

// dense returns m itself when dense, or a dense copy of it.
func dense[T tensor.Float](m *tensor.Matrix[T]) *tensor.Matrix[T] {
	if m.IsSparse() {
		return m.ToDense()
	}
	return m
}
