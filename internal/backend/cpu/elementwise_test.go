package cpu

import (
	"testing"

	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/stretchr/testify/assert"
)

func TestAssignCombinationOf(t *testing.T) {
	a := tensor.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})

	tests := []struct {
		name string
		b    *tensor.Matrix[float64]
		sign float64
		want [][]float64
	}{
		{"SameShape", tensor.FromRows([][]float64{{1, 1, 1}, {2, 2, 2}}), 1, [][]float64{{2, 3, 4}, {6, 7, 8}}},
		{"RowVector", tensor.FromRows([][]float64{{10, 20, 30}}), 1, [][]float64{{11, 22, 33}, {14, 25, 36}}},
		{"ColumnVector", tensor.FromRows([][]float64{{1}, {2}}), -1, [][]float64{{0, 1, 2}, {2, 3, 4}}},
		{"Scalar", tensor.FromRows([][]float64{{0.5}}), -1, [][]float64{{0.5, 1.5, 2.5}, {3.5, 4.5, 5.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tensor.New[float64](2, 3)
			AssignCombinationOf(c, a, tt.b, tt.sign)
			assert.Equal(t, tt.want, c.ToRows())
		})
	}
}

func TestAssignCombinationOf_IncompatiblePanics(t *testing.T) {
	a := tensor.New[float64](2, 3)
	b := tensor.New[float64](2, 2)
	c := tensor.New[float64](2, 3)
	assert.Panics(t, func() { AssignSumOf(c, a, b) })
}

func TestScaleAndAdd(t *testing.T) {
	t.Run("Dense", func(t *testing.T) {
		c := tensor.FromRows([][]float64{{1, 1}, {1, 1}})
		ScaleAndAdd(2, tensor.FromRows([][]float64{{1, 2}, {3, 4}}), c)
		assert.Equal(t, [][]float64{{3, 5}, {7, 9}}, c.ToRows())
	})
	t.Run("SparseSource", func(t *testing.T) {
		c := tensor.New[float64](2, 3)
		a := tensor.NewSparseBlockCol[float64](2, 3, []int{2}, []float64{1, -1})
		ScaleAndAdd(3, a, c)
		assert.Equal(t, [][]float64{{0, 0, 3}, {0, 0, -3}}, c.ToRows())
	})
	t.Run("SparseTargetBecomesDense", func(t *testing.T) {
		c := tensor.NewSparseBlockCol[float64](2, 2, []int{0}, []float64{1, 2})
		SubtractFrom(c, tensor.Ones[float64](2, 2))
		assert.False(t, c.IsSparse())
		assert.Equal(t, [][]float64{{0, -1}, {1, -1}}, c.ToRows())
	})
}

func TestElementProducts(t *testing.T) {
	a := tensor.FromRows([][]float64{{1, 2}, {3, 4}})
	b := tensor.FromRows([][]float64{{2, 0}, {-1, 0.5}})

	c := tensor.New[float64](2, 2)
	AssignElementProductOf(c, a, b)
	assert.Equal(t, [][]float64{{2, 0}, {-3, 2}}, c.ToRows())

	AddElementProductOf(c, a, b)
	assert.Equal(t, [][]float64{{4, 0}, {-6, 4}}, c.ToRows())

	ElementMultiplyWith(c, b)
	assert.Equal(t, [][]float64{{8, 0}, {6, 2}}, c.ToRows())
}

func TestRowAndColumnElementMultiply(t *testing.T) {
	c := tensor.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	RowElementMultiplyWith(c, tensor.FromRows([][]float64{{1, 0, -1}}))
	assert.Equal(t, [][]float64{{1, 0, -3}, {4, 0, -6}}, c.ToRows())

	ColumnElementMultiplyWith(c, tensor.FromRows([][]float64{{2}, {0.5}}))
	assert.Equal(t, [][]float64{{2, 0, -6}, {2, 0, -3}}, c.ToRows())

	assert.Panics(t, func() { RowElementMultiplyWith(c, tensor.New[float64](1, 2)) })
	assert.Panics(t, func() { ColumnElementMultiplyWith(c, tensor.New[float64](3, 1)) })
}

func TestAssignSafeInverseOf(t *testing.T) {
	c := tensor.New[float32](1, 3)
	AssignSafeInverseOf(c, tensor.FromRows([][]float32{{2, 0, -4}}))
	assert.Equal(t, [][]float32{{0.5, 0, -0.25}}, c.ToRows())
}

func TestAssignScaledAndAddScalar(t *testing.T) {
	c := tensor.New[float64](1, 2)
	AssignScaled(c, -2, tensor.FromRows([][]float64{{1, 3}}))
	AddScalar(c, 1)
	assert.Equal(t, [][]float64{{-1, -5}}, c.ToRows())
}
