package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_ColumnMajor(t *testing.T) {
	m := FromRows([][]float32{
		{1, 2, 3},
		{4, 5, 6},
	})
	assert.Equal(t, Dims{Rows: 2, Cols: 3}, m.Dims())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, m.Data())
	assert.Equal(t, []float32{2, 5}, m.Column(1))
	assert.Equal(t, float32(6), m.At(1, 2))
	assert.Equal(t, Float32, m.DataType())
	assert.Equal(t, 24, m.ByteSize())

	same := FromColumns[float32](2, 3, []float32{1, 4, 2, 5, 3, 6})
	assert.Equal(t, m.ToRows(), same.ToRows())

	assert.Panics(t, func() { m.At(2, 0) })
	assert.Panics(t, func() { FromRows([][]float64{{1, 2}, {3}}) })
}

func TestMatrix_Views(t *testing.T) {
	m := FromRows([][]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	})
	slice := m.ColumnSlice(1, 2)
	require.True(t, slice.IsView())
	assert.Equal(t, [][]float64{{2, 3}, {6, 7}}, slice.ToRows())

	slice.Set(0, 0, 20)
	assert.Equal(t, 20.0, m.At(0, 1))

	// Resizing a view to its own dimensions is allowed; anything else is not.
	assert.NotPanics(t, func() { slice.Resize(2, 2) })
	assert.Panics(t, func() { slice.Resize(4, 1) })
	assert.Panics(t, func() { slice.SwitchToSparseBlockCol() })

	reshaped := m.Reshaped(4, 2)
	assert.Equal(t, []float64{1, 5, 20, 6}, reshaped.Column(0))
	assert.Panics(t, func() { m.Reshaped(3, 3) })
}

func TestMatrix_Resize(t *testing.T) {
	m := Ones[float64](2, 3)
	m.Resize(2, 3)
	assert.Equal(t, [][]float64{{1, 1, 1}, {1, 1, 1}}, m.ToRows())

	m.Resize(1, 2)
	assert.Equal(t, Dims{Rows: 1, Cols: 2}, m.Dims())
	assert.Equal(t, 6, m.Capacity())
	m.Resize(4, 4)
	assert.Equal(t, 16, m.NumElements())
	assert.Panics(t, func() { m.Resize(-1, 2) })
}

func TestMatrix_SparseBlockCol(t *testing.T) {
	m := NewSparseBlockCol[float64](2, 5, []int{3, 1}, []float64{
		30, 31,
		10, 11,
	})
	require.True(t, m.IsSparse())
	assert.Equal(t, []int{1, 3}, m.BlockColumns())
	assert.Equal(t, []float64{10, 11}, m.BlockColumn(0))
	assert.Equal(t, 31.0, m.At(1, 3))
	assert.Zero(t, m.At(0, 0))
	assert.Panics(t, func() { m.Data() })
	assert.Panics(t, func() { m.ColumnSlice(0, 1) })

	m.AddToColumn(2, []float64{1, 2})
	assert.Equal(t, []int{1, 2, 3}, m.BlockColumns())
	m.ZeroColumn(1)
	assert.Equal(t, []int{2, 3}, m.BlockColumns())
	assert.Equal(t, [][]float64{{0, 0, 1, 30, 0}, {0, 0, 2, 31, 0}}, m.ToDense().ToRows())

	clone := m.Clone()
	m.SwitchToDense()
	assert.False(t, m.IsSparse())
	assert.Equal(t, clone.ToDense().ToRows(), m.ToRows())

	m.SwitchToSparseBlockCol()
	assert.Equal(t, []int{2, 3}, m.BlockColumns())

	assert.Panics(t, func() { NewSparseBlockCol[float64](2, 5, []int{1, 1}, make([]float64, 4)) })
	assert.Panics(t, func() { NewSparseBlockCol[float64](2, 5, []int{5}, make([]float64, 2)) })
}

func TestMatrix_Values(t *testing.T) {
	m := New[float64](2, 2)
	m.SetValue(3)
	assert.Equal(t, 3.0, m.Get00())
	assert.False(t, m.HasNaN())
	m.Set(1, 1, math.NaN())
	assert.True(t, m.HasNaN())

	c := New[float64](2, 2)
	c.CopyFrom(FromRows([][]float64{{1, 2}, {3, 4}}))
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, c.ToRows())
	assert.Panics(t, func() { c.CopyFrom(New[float64](1, 2)) })
	c.SetZero()
	assert.Equal(t, [][]float64{{0, 0}, {0, 0}}, c.ToRows())

	assert.Contains(t, FromRows([][]float64{{1.5}}).String(), "1.5")
}

func TestDevice_Text(t *testing.T) {
	d, err := ParseDevice("webgpu")
	require.NoError(t, err)
	assert.Equal(t, WebGPU, d)

	text, err := Metal.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Metal", string(text))

	var parsed Device
	require.NoError(t, parsed.UnmarshalText([]byte("CUDA")))
	assert.Equal(t, CUDA, parsed)
	assert.Error(t, parsed.UnmarshalText([]byte("tpu")))

	m := New[float32](1, 1)
	m.MoveToDevice(Vulkan)
	assert.Equal(t, Vulkan, m.Device())
	assert.Equal(t, Vulkan, m.ToDense().Device())
}

func TestDims(t *testing.T) {
	assert.Equal(t, "[2 x 3]", Dims{Rows: 2, Cols: 3}.String())
	assert.True(t, Dims{Rows: 1, Cols: 1}.IsScalar())
	assert.False(t, Dims{Rows: 0, Cols: 3}.IsKnown())
	assert.Error(t, Dims{Rows: -1}.Validate())
	assert.NoError(t, Dims{}.Validate())
}
