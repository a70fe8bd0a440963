// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/matgraph/internal/tensor"

// Float is the constraint for matrix element types: float32 or float64.
type Float = tensor.Float

// Matrix is a column-major 2-D matrix, dense or sparse block-column.
type Matrix[T Float] = tensor.Matrix[T]

// Dims holds the number of rows and columns of a matrix.
type Dims = tensor.Dims

// Device identifies where a matrix is placed.
type Device = tensor.Device

// DataType is the runtime element type of a matrix.
type DataType = tensor.DataType

// Format is the storage format of a matrix.
type Format = tensor.Format

// Supported devices.
const (
	CPU    = tensor.CPU
	CUDA   = tensor.CUDA
	Vulkan = tensor.Vulkan
	Metal  = tensor.Metal
	WebGPU = tensor.WebGPU
)

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
)

// Storage formats.
const (
	Dense          = tensor.Dense
	SparseBlockCol = tensor.SparseBlockCol
)

// New creates a zero-filled dense matrix on the CPU.
func New[T Float](rows, cols int) *Matrix[T] {
	return tensor.New[T](rows, cols)
}

// NewOnDevice creates a zero-filled dense matrix on device.
func NewOnDevice[T Float](rows, cols int, device Device) *Matrix[T] {
	return tensor.NewOnDevice[T](rows, cols, device)
}

// FromRows creates a dense matrix from row-major values.
//
// Example:
//
//	m := tensor.FromRows([][]float32{{1, 2}, {3, 4}})
func FromRows[T Float](values [][]T) *Matrix[T] {
	return tensor.FromRows(values)
}

// FromColumns creates a dense matrix from column-major data, which is copied.
func FromColumns[T Float](rows, cols int, data []T) *Matrix[T] {
	return tensor.FromColumns(rows, cols, data)
}

// Constant creates a dense matrix filled with v.
func Constant[T Float](rows, cols int, v T) *Matrix[T] {
	return tensor.Constant(rows, cols, v)
}

// Ones creates a dense matrix filled with ones.
func Ones[T Float](rows, cols int) *Matrix[T] {
	return tensor.Ones[T](rows, cols)
}

// NewSparseBlockCol creates a sparse block-column matrix storing the columns
// blockCols, whose dense values are laid out one after the other in data.
func NewSparseBlockCol[T Float](rows, cols int, blockCols []int, data []T) *Matrix[T] {
	return tensor.NewSparseBlockCol(rows, cols, blockCols, data)
}

// ParseDevice parses a device name, case-insensitively.
func ParseDevice(s string) (Device, error) {
	return tensor.ParseDevice(s)
}

// DataTypeOf returns the DataType of T.
func DataTypeOf[T Float]() DataType {
	return tensor.DataTypeOf[T]()
}
