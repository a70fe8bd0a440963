// Package frames describes how the columns of a minibatch matrix are laid out
// in time and which of them are padding.
//
// A minibatch holds S parallel sequences over T time steps. Column t*S+s holds
// time step t of sequence s, so all sequences of one time step are contiguous
// and a single time step is a zero-copy column slice. Sequences shorter than T
// are padded with gap columns whose content is undefined.
package frames

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
)

// Layout is the minibatch layout shared by the nodes whose columns follow it.
// A nil *Layout means the matrix is time-invariant.
type Layout struct {
	numParallelSequences int
	numTimeSteps         int
	gaps                 []bool // indexed by column t*S+s
	numGaps              int
}

// NewLayout creates a layout with no gaps.
func NewLayout(numParallelSequences, numTimeSteps int) *Layout {
	if numParallelSequences <= 0 || numTimeSteps <= 0 {
		exceptions.Panicf("frames.NewLayout: invalid layout %d sequences x %d time steps",
			numParallelSequences, numTimeSteps)
	}
	return &Layout{
		numParallelSequences: numParallelSequences,
		numTimeSteps:         numTimeSteps,
		gaps:                 make([]bool, numParallelSequences*numTimeSteps),
	}
}

// NewLayoutFromLengths creates a layout with one parallel sequence per length.
// Time steps beyond a sequence's length are gaps.
func NewLayoutFromLengths(lengths ...int) *Layout {
	numTimeSteps := 0
	for _, n := range lengths {
		numTimeSteps = max(numTimeSteps, n)
	}
	l := NewLayout(len(lengths), numTimeSteps)
	for s, n := range lengths {
		l.SetSequenceLength(s, n)
	}
	return l
}

// NumParallelSequences returns S.
func (l *Layout) NumParallelSequences() int { return l.numParallelSequences }

// NumTimeSteps returns T.
func (l *Layout) NumTimeSteps() int { return l.numTimeSteps }

// NumCols returns the number of matrix columns described, S*T.
func (l *Layout) NumCols() int { return l.numParallelSequences * l.numTimeSteps }

// ColumnIndex returns the column holding time step t of sequence s.
func (l *Layout) ColumnIndex(s, t int) int {
	l.checkPosition(s, t)
	return t*l.numParallelSequences + s
}

// SetGap marks or clears the gap flag of sequence s at time step t.
func (l *Layout) SetGap(s, t int, gap bool) {
	j := l.ColumnIndex(s, t)
	if l.gaps[j] == gap {
		return
	}
	l.gaps[j] = gap
	if gap {
		l.numGaps++
	} else {
		l.numGaps--
	}
}

// SetSequenceLength marks every time step of sequence s at or beyond length as a gap
// and every earlier one as valid.
func (l *Layout) SetSequenceLength(s, length int) {
	if length < 0 || length > l.numTimeSteps {
		exceptions.Panicf("frames.Layout.SetSequenceLength(%d, %d): length out of range [0, %d]",
			s, length, l.numTimeSteps)
	}
	for t := 0; t < l.numTimeSteps; t++ {
		l.SetGap(s, t, t >= length)
	}
}

// IsGap reports whether sequence s at time step t is padding.
func (l *Layout) IsGap(s, t int) bool {
	return l.gaps[l.ColumnIndex(s, t)]
}

// HasGaps reports whether any column is padding.
func (l *Layout) HasGaps() bool {
	return l != nil && l.numGaps > 0
}

// HasGapsAt reports whether any sequence is padding at time step t.
func (l *Layout) HasGapsAt(t int) bool {
	if !l.HasGaps() {
		return false
	}
	for s := 0; s < l.numParallelSequences; s++ {
		if l.IsGap(s, t) {
			return true
		}
	}
	return false
}

// GapColumns returns the gap columns of range r, relative to the range's first column.
func (l *Layout) GapColumns(r Range) []int {
	if !l.HasGaps() {
		return nil
	}
	start, n := r.Columns(l, l.NumCols())
	var cols []int
	for j := start; j < start+n; j++ {
		if l.gaps[j] {
			cols = append(cols, j-start)
		}
	}
	return cols
}

// Equal reports whether two layouts describe the same columns and gaps.
func (l *Layout) Equal(other *Layout) bool {
	if l == other {
		return true
	}
	if l == nil || other == nil {
		return false
	}
	if l.numParallelSequences != other.numParallelSequences || l.numTimeSteps != other.numTimeSteps {
		return false
	}
	for j, g := range l.gaps {
		if other.gaps[j] != g {
			return false
		}
	}
	return true
}

// String renders the layout with one line per sequence, '.' for valid and 'x' for gap columns.
func (l *Layout) String() string {
	if l == nil {
		return "Layout(none)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Layout(%d sequences x %d time steps, %d gaps)", l.numParallelSequences, l.numTimeSteps, l.numGaps)
	for s := 0; s < l.numParallelSequences; s++ {
		sb.WriteString("\n\t")
		for t := 0; t < l.numTimeSteps; t++ {
			if l.gaps[t*l.numParallelSequences+s] {
				sb.WriteByte('x')
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}

func (l *Layout) checkPosition(s, t int) {
	if s < 0 || s >= l.numParallelSequences || t < 0 || t >= l.numTimeSteps {
		exceptions.Panicf("frames.Layout: position (sequence %d, time step %d) out of range [%d x %d]",
			s, t, l.numParallelSequences, l.numTimeSteps)
	}
}
