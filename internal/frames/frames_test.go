package frames

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout_ColumnIndex(t *testing.T) {
	l := NewLayout(3, 4)
	assert.Equal(t, 12, l.NumCols())
	assert.Equal(t, 0, l.ColumnIndex(0, 0))
	assert.Equal(t, 2, l.ColumnIndex(2, 0))
	assert.Equal(t, 7, l.ColumnIndex(1, 2))
	assert.Panics(t, func() { l.ColumnIndex(3, 0) })
	assert.Panics(t, func() { l.ColumnIndex(0, 4) })
}

func TestLayout_Gaps(t *testing.T) {
	l := NewLayoutFromLengths(3, 1)
	require.Equal(t, 2, l.NumParallelSequences())
	require.Equal(t, 3, l.NumTimeSteps())

	assert.True(t, l.HasGaps())
	assert.False(t, l.IsGap(0, 2))
	assert.True(t, l.IsGap(1, 1))
	assert.True(t, l.IsGap(1, 2))
	assert.False(t, l.HasGapsAt(0))
	assert.True(t, l.HasGapsAt(1))

	// Columns: t0 -> 0,1; t1 -> 2,3; t2 -> 4,5. Sequence 1 is padding from t1.
	assert.Equal(t, []int{3, 5}, l.GapColumns(All()))
	assert.Equal(t, []int{1}, l.GapColumns(At(2)))
	assert.Nil(t, l.GapColumns(At(0)))

	l.SetSequenceLength(1, 3)
	assert.False(t, l.HasGaps())
	assert.Nil(t, l.GapColumns(All()))
}

func TestLayout_SetGapIsIdempotent(t *testing.T) {
	l := NewLayout(1, 2)
	l.SetGap(0, 1, true)
	l.SetGap(0, 1, true)
	assert.Equal(t, []int{1}, l.GapColumns(All()))
	l.SetGap(0, 1, false)
	assert.False(t, l.HasGaps())
}

func TestLayout_NilHasNoGaps(t *testing.T) {
	var l *Layout
	assert.False(t, l.HasGaps())
	assert.Nil(t, l.GapColumns(All()))
	assert.Equal(t, "Layout(none)", l.String())
}

func TestLayout_Equal(t *testing.T) {
	a := NewLayoutFromLengths(2, 1)
	b := NewLayoutFromLengths(2, 1)
	c := NewLayoutFromLengths(2, 2)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Layout)(nil).Equal(nil))
}

func TestRange_Columns(t *testing.T) {
	l := NewLayout(2, 3)

	start, n := All().Columns(l, 6)
	assert.Equal(t, 0, start)
	assert.Equal(t, 6, n)

	start, n = At(1).Columns(l, 6)
	assert.Equal(t, 2, start)
	assert.Equal(t, 2, n)

	start, n = At(5).Columns(nil, 4)
	assert.Equal(t, 0, start)
	assert.Equal(t, 4, n, "without a layout the whole matrix is selected")

	assert.Panics(t, func() { At(3).Columns(l, 6) })
	assert.Panics(t, func() { All().Columns(l, 5) })
	assert.Panics(t, func() { At(-1) })
}

func TestRange_String(t *testing.T) {
	assert.Equal(t, "Range(all)", All().String())
	assert.Equal(t, "Range(t=4)", At(4).String())
	assert.True(t, All().IsAll())
	assert.Equal(t, 4, At(4).TimeStep())
	assert.Panics(t, func() { All().TimeStep() })
}
