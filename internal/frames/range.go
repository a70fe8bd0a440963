package frames

import (
	"fmt"

	"github.com/gomlx/exceptions"
)

// Range selects the columns an evaluate or gradient call operates on: either
// the whole minibatch or a single time step across all parallel sequences.
type Range struct {
	timeStep int
	all      bool
}

// All selects every column.
func All() Range {
	return Range{all: true}
}

// At selects time step t of every parallel sequence.
func At(t int) Range {
	if t < 0 {
		exceptions.Panicf("frames.At(%d): negative time step", t)
	}
	return Range{timeStep: t}
}

// IsAll reports whether the range covers the whole minibatch.
func (r Range) IsAll() bool { return r.all }

// TimeStep returns the selected time step. Panics for the whole-minibatch range.
func (r Range) TimeStep() int {
	if r.all {
		exceptions.Panicf("frames.Range.TimeStep: range covers all time steps")
	}
	return r.timeStep
}

// Columns returns the first column and the column count that r selects in a
// matrix of numCols columns following layout. Without a layout the whole
// matrix is selected regardless of the range.
func (r Range) Columns(layout *Layout, numCols int) (start, n int) {
	if layout == nil {
		return 0, numCols
	}
	if layout.NumCols() != numCols {
		exceptions.Panicf("frames.Range.Columns: matrix has %d columns but %s describes %d",
			numCols, layout, layout.NumCols())
	}
	if r.all {
		return 0, numCols
	}
	if r.timeStep >= layout.numTimeSteps {
		exceptions.Panicf("frames.Range.Columns: time step %d out of range, layout has %d time steps",
			r.timeStep, layout.numTimeSteps)
	}
	s := layout.numParallelSequences
	return r.timeStep * s, s
}

// String implements fmt.Stringer.
func (r Range) String() string {
	if r.all {
		return "Range(all)"
	}
	return fmt.Sprintf("Range(t=%d)", r.timeStep)
}
