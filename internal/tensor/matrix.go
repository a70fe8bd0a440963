package tensor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gomlx/exceptions"
)

// Matrix is a 2-D column-major matrix of float32 or float64 elements.
//
// A dense matrix stores rows*cols elements, element (i, j) at data[j*rows+i].
// A sparse block-column matrix stores a sorted list of column indices together
// with the dense values of those columns; every other column is zero.
//
// Views created by ColumnSlice and Reshaped share storage with their parent and
// cannot be resized.
type Matrix[T Float] struct {
	rows, cols int
	data       []T
	blockCols  []int // SparseBlockCol only: sorted stored column indices
	format     Format
	device     Device
	view       bool
}

// New creates a zero-filled dense matrix on the CPU.
func New[T Float](rows, cols int) *Matrix[T] {
	return NewOnDevice[T](rows, cols, CPU)
}

// NewOnDevice creates a zero-filled dense matrix placed on device.
func NewOnDevice[T Float](rows, cols int, device Device) *Matrix[T] {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("tensor.New: invalid dimensions [%d x %d]", rows, cols))
	}
	return &Matrix[T]{
		rows:   rows,
		cols:   cols,
		data:   make([]T, rows*cols),
		format: Dense,
		device: device,
	}
}

// FromColumns creates a dense matrix from column-major data (copied).
func FromColumns[T Float](rows, cols int, data []T) *Matrix[T] {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("tensor.FromColumns: data size %d does not match [%d x %d]", len(data), rows, cols))
	}
	m := New[T](rows, cols)
	copy(m.data, data)
	return m
}

// FromRows creates a dense matrix from a row-major literal.
// All rows must have the same length.
func FromRows[T Float](values [][]T) *Matrix[T] {
	rows := len(values)
	if rows == 0 {
		return New[T](0, 0)
	}
	cols := len(values[0])
	m := New[T](rows, cols)
	for i, row := range values {
		if len(row) != cols {
			panic(fmt.Sprintf("tensor.FromRows: row %d has %d values, expected %d", i, len(row), cols))
		}
		for j, v := range row {
			m.data[j*rows+i] = v
		}
	}
	return m
}

// Constant creates a dense matrix with every element set to v.
func Constant[T Float](rows, cols int, v T) *Matrix[T] {
	m := New[T](rows, cols)
	m.SetValue(v)
	return m
}

// Ones creates a dense matrix of ones.
func Ones[T Float](rows, cols int) *Matrix[T] {
	return Constant[T](rows, cols, 1)
}

// NewSparseBlockCol creates a sparse block-column matrix. blockCols lists the
// stored columns (any order, no duplicates) and data holds their values,
// column-major, in the same order.
func NewSparseBlockCol[T Float](rows, cols int, blockCols []int, data []T) *Matrix[T] {
	if len(data) != rows*len(blockCols) {
		panic(fmt.Sprintf("tensor.NewSparseBlockCol: data size %d does not match %d rows x %d blocks",
			len(data), rows, len(blockCols)))
	}
	order := make([]int, len(blockCols))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return blockCols[order[a]] < blockCols[order[b]] })

	m := &Matrix[T]{
		rows:      rows,
		cols:      cols,
		data:      make([]T, len(data)),
		blockCols: make([]int, len(blockCols)),
		format:    SparseBlockCol,
		device:    CPU,
	}
	for dst, src := range order {
		c := blockCols[src]
		if c < 0 || c >= cols {
			panic(fmt.Sprintf("tensor.NewSparseBlockCol: column %d out of range [0, %d)", c, cols))
		}
		if dst > 0 && m.blockCols[dst-1] == c {
			panic(fmt.Sprintf("tensor.NewSparseBlockCol: duplicated column %d", c))
		}
		m.blockCols[dst] = c
		copy(m.data[dst*rows:(dst+1)*rows], data[src*rows:(src+1)*rows])
	}
	return m
}

// Rows returns the number of rows.
func (m *Matrix[T]) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix[T]) Cols() int { return m.cols }

// Dims returns the matrix dimensions.
func (m *Matrix[T]) Dims() Dims { return Dims{Rows: m.rows, Cols: m.cols} }

// NumElements returns rows*cols.
func (m *Matrix[T]) NumElements() int { return m.rows * m.cols }

// Format returns the storage format.
func (m *Matrix[T]) Format() Format { return m.format }

// IsSparse reports whether the matrix uses sparse block-column storage.
func (m *Matrix[T]) IsSparse() bool { return m.format == SparseBlockCol }

// IsView reports whether the matrix shares storage with another matrix.
func (m *Matrix[T]) IsView() bool { return m.view }

// Device returns the device the matrix is placed on.
func (m *Matrix[T]) Device() Device { return m.device }

// DataType returns the runtime element type.
func (m *Matrix[T]) DataType() DataType { return DataTypeOf[T]() }

// ByteSize returns the size of the stored elements in bytes.
func (m *Matrix[T]) ByteSize() int { return len(m.data) * m.DataType().Size() }

// Capacity returns the number of elements the storage can hold without reallocating.
func (m *Matrix[T]) Capacity() int { return cap(m.data) }

// MoveToDevice places the matrix on device. Storage stays in host memory; the
// device tag is what kernels check for consistency.
func (m *Matrix[T]) MoveToDevice(device Device) {
	m.device = device
}

// Data returns the dense column-major storage.
// Panics on sparse matrices.
func (m *Matrix[T]) Data() []T {
	m.mustBeDense("Data")
	return m.data
}

// Column returns column j of a dense matrix as a slice sharing storage.
func (m *Matrix[T]) Column(j int) []T {
	m.mustBeDense("Column")
	if j < 0 || j >= m.cols {
		exceptions.Panicf("Matrix%s.Column(%d): column out of range", m.Dims(), j)
	}
	return m.data[j*m.rows : (j+1)*m.rows]
}

// At returns element (i, j). Works for both formats.
func (m *Matrix[T]) At(i, j int) T {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		exceptions.Panicf("Matrix%s.At(%d, %d): index out of range", m.Dims(), i, j)
	}
	if m.format == SparseBlockCol {
		b, ok := m.blockIndex(j)
		if !ok {
			return 0
		}
		return m.data[b*m.rows+i]
	}
	return m.data[j*m.rows+i]
}

// Set assigns element (i, j) of a dense matrix.
func (m *Matrix[T]) Set(i, j int, v T) {
	m.mustBeDense("Set")
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		exceptions.Panicf("Matrix%s.Set(%d, %d): index out of range", m.Dims(), i, j)
	}
	m.data[j*m.rows+i] = v
}

// Get00 returns element (0, 0), typically of a 1x1 matrix.
func (m *Matrix[T]) Get00() T {
	return m.At(0, 0)
}

// ColumnSlice returns a view of columns [start, start+n).
// Column slicing is not defined on sparse storage.
func (m *Matrix[T]) ColumnSlice(start, n int) *Matrix[T] {
	m.mustBeDense("ColumnSlice")
	if start < 0 || n < 0 || start+n > m.cols {
		exceptions.Panicf("Matrix%s.ColumnSlice(%d, %d): columns out of range", m.Dims(), start, n)
	}
	return &Matrix[T]{
		rows:   m.rows,
		cols:   n,
		data:   m.data[start*m.rows : (start+n)*m.rows],
		format: Dense,
		device: m.device,
		view:   true,
	}
}

// Reshaped returns a view of the same elements with new dimensions.
// The element count must not change.
func (m *Matrix[T]) Reshaped(rows, cols int) *Matrix[T] {
	m.mustBeDense("Reshaped")
	if rows*cols != m.rows*m.cols {
		exceptions.Panicf("Matrix%s.Reshaped(%d, %d): element count mismatch", m.Dims(), rows, cols)
	}
	return &Matrix[T]{
		rows:   rows,
		cols:   cols,
		data:   m.data[:rows*cols],
		format: Dense,
		device: m.device,
		view:   true,
	}
}

// Resize changes the dimensions of an owning matrix. Storage is reused when it
// has enough capacity; the contents after a resize are undefined. Sparse
// matrices lose all their blocks.
func (m *Matrix[T]) Resize(rows, cols int) {
	if rows < 0 || cols < 0 {
		exceptions.Panicf("Matrix%s.Resize(%d, %d): invalid dimensions", m.Dims(), rows, cols)
	}
	if m.view {
		if rows == m.rows && cols == m.cols {
			return
		}
		exceptions.Panicf("Matrix%s.Resize(%d, %d): cannot resize a view", m.Dims(), rows, cols)
	}
	if m.format == SparseBlockCol {
		m.rows, m.cols = rows, cols
		m.blockCols = m.blockCols[:0]
		m.data = m.data[:0]
		return
	}
	if rows == m.rows && cols == m.cols {
		return
	}
	n := rows * cols
	if cap(m.data) >= n {
		m.data = m.data[:n]
	} else {
		m.data = make([]T, n)
	}
	m.rows, m.cols = rows, cols
}

// SetZero sets every element to zero. Sparse matrices drop all blocks.
func (m *Matrix[T]) SetZero() {
	if m.format == SparseBlockCol {
		m.blockCols = m.blockCols[:0]
		m.data = m.data[:0]
		return
	}
	clear(m.data)
}

// SetValue sets every element of a dense matrix to v.
func (m *Matrix[T]) SetValue(v T) {
	m.mustBeDense("SetValue")
	for i := range m.data {
		m.data[i] = v
	}
}

// CopyFrom copies src into m. Dimensions must match; m must be dense.
func (m *Matrix[T]) CopyFrom(src *Matrix[T]) {
	m.mustBeDense("CopyFrom")
	if m.rows != src.rows || m.cols != src.cols {
		exceptions.Panicf("Matrix%s.CopyFrom(%s): dimension mismatch", m.Dims(), src.Dims())
	}
	if src.format == Dense {
		copy(m.data, src.data)
		return
	}
	clear(m.data)
	for b, c := range src.blockCols {
		copy(m.data[c*m.rows:(c+1)*m.rows], src.data[b*src.rows:(b+1)*src.rows])
	}
}

// Clone returns a deep, owning copy in the same format.
func (m *Matrix[T]) Clone() *Matrix[T] {
	c := &Matrix[T]{
		rows:   m.rows,
		cols:   m.cols,
		data:   append([]T(nil), m.data...),
		format: m.format,
		device: m.device,
	}
	if m.format == SparseBlockCol {
		c.blockCols = append([]int(nil), m.blockCols...)
	}
	return c
}

// ToDense returns an owning dense copy.
func (m *Matrix[T]) ToDense() *Matrix[T] {
	d := NewOnDevice[T](m.rows, m.cols, m.device)
	d.CopyFrom(m)
	return d
}

// SwitchToDense converts sparse storage to dense in place, keeping the values.
func (m *Matrix[T]) SwitchToDense() {
	if m.format == Dense {
		return
	}
	d := m.ToDense()
	m.data = d.data
	m.blockCols = nil
	m.format = Dense
}

// SwitchToSparseBlockCol converts dense storage to sparse block-column in place.
// Only columns holding a non-zero value are kept.
func (m *Matrix[T]) SwitchToSparseBlockCol() {
	if m.format == SparseBlockCol {
		return
	}
	if m.view {
		exceptions.Panicf("Matrix%s.SwitchToSparseBlockCol: cannot change the format of a view", m.Dims())
	}
	var (
		blocks []int
		data   []T
	)
	for j := 0; j < m.cols; j++ {
		col := m.data[j*m.rows : (j+1)*m.rows]
		for _, v := range col {
			if v != 0 {
				blocks = append(blocks, j)
				data = append(data, col...)
				break
			}
		}
	}
	m.blockCols = blocks
	m.data = data
	m.format = SparseBlockCol
}

// BlockColumns returns the stored column indices of a sparse matrix, sorted.
func (m *Matrix[T]) BlockColumns() []int {
	m.mustBeSparse("BlockColumns")
	return m.blockCols
}

// BlockColumn returns the stored values of the b-th block (not the b-th column).
func (m *Matrix[T]) BlockColumn(b int) []T {
	m.mustBeSparse("BlockColumn")
	return m.data[b*m.rows : (b+1)*m.rows]
}

// ZeroColumn zeroes column j. For sparse storage the block is dropped.
func (m *Matrix[T]) ZeroColumn(j int) {
	if m.format == Dense {
		clear(m.Column(j))
		return
	}
	b, ok := m.blockIndex(j)
	if !ok {
		return
	}
	m.blockCols = append(m.blockCols[:b], m.blockCols[b+1:]...)
	m.data = append(m.data[:b*m.rows], m.data[(b+1)*m.rows:]...)
}

// AddToColumn adds values to column j. Sparse storage gains a block when needed.
func (m *Matrix[T]) AddToColumn(j int, values []T) {
	if len(values) != m.rows {
		exceptions.Panicf("Matrix%s.AddToColumn(%d): got %d values", m.Dims(), j, len(values))
	}
	var col []T
	if m.format == Dense {
		col = m.Column(j)
	} else {
		col = m.sparseColumnForWrite(j)
	}
	for i, v := range values {
		col[i] += v
	}
}

// sparseColumnForWrite returns the block for column j, inserting a zero block if missing.
func (m *Matrix[T]) sparseColumnForWrite(j int) []T {
	if j < 0 || j >= m.cols {
		exceptions.Panicf("Matrix%s: column %d out of range", m.Dims(), j)
	}
	b, ok := m.blockIndex(j)
	if !ok {
		m.blockCols = append(m.blockCols, 0)
		copy(m.blockCols[b+1:], m.blockCols[b:])
		m.blockCols[b] = j
		m.data = append(m.data, make([]T, m.rows)...)
		copy(m.data[(b+1)*m.rows:], m.data[b*m.rows:])
		clear(m.data[b*m.rows : (b+1)*m.rows])
	}
	return m.data[b*m.rows : (b+1)*m.rows]
}

// blockIndex returns the block position of column j, or the insertion point.
func (m *Matrix[T]) blockIndex(j int) (int, bool) {
	b := sort.SearchInts(m.blockCols, j)
	return b, b < len(m.blockCols) && m.blockCols[b] == j
}

// HasNaN reports whether any stored element is NaN.
func (m *Matrix[T]) HasNaN() bool {
	for _, v := range m.data {
		if math.IsNaN(float64(v)) {
			return true
		}
	}
	return false
}

// ToRows returns the elements as a row-major [][]T.
func (m *Matrix[T]) ToRows() [][]T {
	out := make([][]T, m.rows)
	for i := range out {
		out[i] = make([]T, m.cols)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// String returns a readable rendering, row by row.
func (m *Matrix[T]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Matrix[%s]%s(%s, %s)", m.DataType(), m.Dims(), m.format, m.device)
	for i := 0; i < m.rows; i++ {
		sb.WriteString("\n\t")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%g", float64(m.At(i, j)))
		}
	}
	return sb.String()
}

func (m *Matrix[T]) mustBeDense(op string) {
	if m.format != Dense {
		exceptions.Panicf("Matrix%s.%s: not supported on %s storage", m.Dims(), op, m.format)
	}
}

func (m *Matrix[T]) mustBeSparse(op string) {
	if m.format != SparseBlockCol {
		exceptions.Panicf("Matrix%s.%s: requires %s storage, got %s", m.Dims(), op, SparseBlockCol, m.format)
	}
}
