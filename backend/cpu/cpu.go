// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu configures the CPU kernels the nodes run on.
//
// Per-column kernels (norms, column inner products, Khatri-Rao products)
// split their columns over goroutines:
//
//	prev := cpu.SetParallelism(cpu.Sequential())
//	defer cpu.SetParallelism(prev)
package cpu

import (
	internalcpu "github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/parallel"
)

// Parallelism controls how kernels split columns over goroutines.
type Parallelism = parallel.Config

// DefaultParallelism returns one worker per CPU.
func DefaultParallelism() Parallelism {
	return parallel.DefaultConfig()
}

// Sequential returns a setting that keeps kernels on the calling goroutine.
func Sequential() Parallelism {
	return parallel.Sequential()
}

// SetParallelism replaces the kernel setting and returns the previous one.
// It must not be called while a network runs.
func SetParallelism(cfg Parallelism) Parallelism {
	return internalcpu.SetParallelism(cfg)
}

// Name returns the backend name.
func Name() string {
	return internalcpu.Name()
}
