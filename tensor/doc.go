// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the 2-D matrices that graph nodes read and write.
//
// # Overview
//
// Matrices are column-major. A minibatch stores one column per sequence and
// time step, so the columns of one time step, or of the whole minibatch, are
// a contiguous range that can be sliced without copying.
//
// Two storage formats exist:
//   - Dense: every element is stored.
//   - SparseBlockCol: only listed columns are stored, each one dense.
//
// # Basic Usage
//
//	import "github.com/born-ml/matgraph/tensor"
//
//	a := tensor.FromRows([][]float64{
//	    {1, 2, 3},
//	    {4, 5, 6},
//	})
//	a.Column(1)          // [2 5]
//	a.ColumnSlice(1, 2)  // view over columns 1 and 2
//
// # Devices
//
// A matrix carries a Device tag. Kernels refuse operands placed on different
// devices; storage itself stays in host memory.
package tensor
