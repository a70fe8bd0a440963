package cpu

import (
	"testing"

	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/stretchr/testify/assert"
)

func TestSumOfElements(t *testing.T) {
	assert.Equal(t, 21.0, SumOfElements(tensor.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})))
	sparse := tensor.NewSparseBlockCol[float64](2, 5, []int{3, 1}, []float64{1, 2, 3, 4})
	assert.Equal(t, 10.0, SumOfElements(sparse))
	assert.Equal(t, 0.0, SumOfElements(tensor.New[float64](0, 0)))
}

func TestInnerProductOfMatrices(t *testing.T) {
	a := tensor.FromRows([][]float64{{1, 2}, {3, 4}})
	b := tensor.FromRows([][]float64{{1, -1}, {0.5, 2}})
	assert.InDelta(t, 1-2+1.5+8, InnerProductOfMatrices(a, b), 1e-12)
}

func TestAssignInnerProductOf(t *testing.T) {
	a := tensor.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := tensor.FromRows([][]float64{{1, 0, 1}, {1, 1, 0}})

	cols := tensor.New[float64](1, 3)
	AssignInnerProductOf(cols, a, b, true)
	assert.Equal(t, [][]float64{{5, 5, 3}}, cols.ToRows())

	rows := tensor.New[float64](2, 1)
	AssignInnerProductOf(rows, a, b, false)
	assert.Equal(t, [][]float64{{4}, {9}}, rows.ToRows())

	assert.Panics(t, func() { AssignInnerProductOf(tensor.New[float64](2, 1), a, b, true) })
}

func TestAssignColumnSumsOf(t *testing.T) {
	c := tensor.New[float64](1, 3)
	AssignColumnSumsOf(c, tensor.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}}))
	assert.Equal(t, [][]float64{{5, 7, 9}}, c.ToRows())
}

func TestAssignVectorNorm2Of(t *testing.T) {
	c := tensor.New[float32](1, 3)
	AssignVectorNorm2Of(c, tensor.FromRows([][]float32{{3, 0, 1}, {4, 0, 1}}))
	assert.InDelta(t, 5, c.At(0, 0), 1e-6)
	assert.InDelta(t, 0, c.At(0, 1), 1e-6)
	assert.InDelta(t, 1.4142135, c.At(0, 2), 1e-6)
}

func TestAddRowAndColumnSums(t *testing.T) {
	a := tensor.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})

	rows := tensor.FromRows([][]float64{{1}, {1}})
	AddRowSumsOf(rows, -1, a)
	assert.Equal(t, [][]float64{{-5}, {-14}}, rows.ToRows())

	cols := tensor.FromRows([][]float64{{1, 1, 1}})
	AddColumnSumsOf(cols, 2, a)
	assert.Equal(t, [][]float64{{11, 15, 19}}, cols.ToRows())

	assert.Panics(t, func() { AddRowSumsOf(tensor.New[float64](3, 1), 1, a) })
	assert.Panics(t, func() { AddColumnSumsOf(tensor.New[float64](1, 2), 1, a) })
}

func TestAccumulateIntoSparseTarget(t *testing.T) {
	a := tensor.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	// A cleared sparse gradient keeps its sparse format and holds no blocks.
	sparse := func(rows, cols int) *tensor.Matrix[float64] {
		m := tensor.NewSparseBlockCol[float64](rows, cols, []int{0}, make([]float64, rows))
		m.SetZero()
		return m
	}

	rows := sparse(2, 1)
	AddRowSumsOf(rows, 1, a)
	assert.False(t, rows.IsSparse())
	assert.Equal(t, [][]float64{{6}, {15}}, rows.ToRows())

	cols := sparse(1, 3)
	AddColumnSumsOf(cols, 1, a)
	assert.False(t, cols.IsSparse())
	assert.Equal(t, [][]float64{{5, 7, 9}}, cols.ToRows())

	combined := sparse(2, 3)
	AssignCombinationOf(combined, a, a, -1)
	assert.Equal(t, [][]float64{{0, 0, 0}, {0, 0, 0}}, combined.ToRows())

	scaled := sparse(2, 3)
	AssignScaled(scaled, 2, a)
	assert.Equal(t, [][]float64{{2, 4, 6}, {8, 10, 12}}, scaled.ToRows())
}
