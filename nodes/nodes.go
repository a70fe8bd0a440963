// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nodes

import (
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/tensor"
)

// Node is a vertex of a computation graph.
type Node[T tensor.Float] = nodes.Node[T]

// Retained is forward state an operator hands to its own gradient computation.
type Retained = nodes.Retained

// Kind identifies an operator.
type Kind = nodes.Kind

// Layout describes a minibatch of parallel sequences and their gaps.
type Layout = frames.Layout

// Range selects the whole minibatch or one time step.
type Range = frames.Range

// Leaf nodes.
type (
	Input[T tensor.Float]     = nodes.Input[T]
	Parameter[T tensor.Float] = nodes.Parameter[T]
)

// Operator nodes.
type (
	PlusOp[T tensor.Float]                           = nodes.PlusOp[T]
	ScaleOp[T tensor.Float]                          = nodes.ScaleOp[T]
	NegateOp[T tensor.Float]                         = nodes.NegateOp[T]
	TimesOp[T tensor.Float]                          = nodes.TimesOp[T]
	TransposeTimesOp[T tensor.Float]                 = nodes.TransposeTimesOp[T]
	ElementTimesOp[T tensor.Float]                   = nodes.ElementTimesOp[T]
	RowElementTimesOp[T tensor.Float]                = nodes.RowElementTimesOp[T]
	ColumnElementTimesOp[T tensor.Float]             = nodes.ColumnElementTimesOp[T]
	DiagTimesOp[T tensor.Float]                      = nodes.DiagTimesOp[T]
	SumElementsOp[T tensor.Float]                    = nodes.SumElementsOp[T]
	SumColumnElementsOp[T tensor.Float]              = nodes.SumColumnElementsOp[T]
	TransposeOp[T tensor.Float]                      = nodes.TransposeOp[T]
	DiagonalOp[T tensor.Float]                       = nodes.DiagonalOp[T]
	CosDistanceOp[T tensor.Float]                    = nodes.CosDistanceOp[T]
	CosDistanceWithNegativeSamplesOp[T tensor.Float] = nodes.CosDistanceWithNegativeSamplesOp[T]
	KhatriRaoProductOp[T tensor.Float]               = nodes.KhatriRaoProductOp[T]
	StrideTimesOp[T tensor.Float]                    = nodes.StrideTimesOp[T]
)

// Operator kinds.
const (
	InputValue                     = nodes.InputValue
	LearnableParameter             = nodes.LearnableParameter
	Plus                           = nodes.Plus
	Minus                          = nodes.Minus
	Scale                          = nodes.Scale
	Negate                         = nodes.Negate
	Times                          = nodes.Times
	TransposeTimes                 = nodes.TransposeTimes
	ElementTimes                   = nodes.ElementTimes
	RowElementTimes                = nodes.RowElementTimes
	ColumnElementTimes             = nodes.ColumnElementTimes
	DiagTimes                      = nodes.DiagTimes
	SumElements                    = nodes.SumElements
	SumColumnElements              = nodes.SumColumnElements
	Transpose                      = nodes.Transpose
	Diagonal                       = nodes.Diagonal
	CosDistance                    = nodes.CosDistance
	CosDistanceWithNegativeSamples = nodes.CosDistanceWithNegativeSamples
	KhatriRaoProduct               = nodes.KhatriRaoProduct
	StrideTimes                    = nodes.StrideTimes
)

// NewLayout creates a layout of numParallelSequences sequences over
// numTimeSteps steps, without gaps.
func NewLayout(numParallelSequences, numTimeSteps int) *Layout {
	return frames.NewLayout(numParallelSequences, numTimeSteps)
}

// NewLayoutFromLengths creates a layout holding one sequence per length.
// Time steps past the end of a shorter sequence are gaps.
func NewLayoutFromLengths(lengths ...int) *Layout {
	return frames.NewLayoutFromLengths(lengths...)
}

// AllFrames selects the whole minibatch.
func AllFrames() Range { return frames.All() }

// FrameAt selects time step t.
func FrameAt(t int) Range { return frames.At(t) }

// Kinds returns every operator kind.
func Kinds() []Kind { return nodes.Kinds() }

// KindByName looks an operator kind up by its name, e.g. "Times".
func KindByName(name string) (Kind, bool) { return nodes.KindByName(name) }

// New creates an operator by kind after checking its arity. Leaves use
// NewInput and NewParameter.
func New[T tensor.Float](kind Kind, name string, inputs ...Node[T]) (Node[T], error) {
	return nodes.New(kind, name, inputs...)
}

// NewInput creates a time-invariant data node.
func NewInput[T tensor.Float](name string, rows, cols int) *Input[T] {
	return nodes.NewInput[T](name, rows, cols)
}

// NewMinibatchInput creates a data node with one column per layout column.
func NewMinibatchInput[T tensor.Float](name string, rows int, layout *Layout) *Input[T] {
	return nodes.NewMinibatchInput[T](name, rows, layout)
}

// NewParameter creates a learnable parameter. rows or cols may be 0 to have
// them inferred during validation.
func NewParameter[T tensor.Float](name string, rows, cols int) *Parameter[T] {
	return nodes.NewParameter[T](name, rows, cols)
}

// NewPlus computes a + b with broadcasting.
func NewPlus[T tensor.Float](name string, a, b Node[T]) *PlusOp[T] { return nodes.NewPlus(name, a, b) }

// NewMinus computes a - b with broadcasting.
func NewMinus[T tensor.Float](name string, a, b Node[T]) *PlusOp[T] { return nodes.NewMinus(name, a, b) }

// NewScale multiplies m by the 1x1 value of s.
func NewScale[T tensor.Float](name string, s, m Node[T]) *ScaleOp[T] { return nodes.NewScale(name, s, m) }

// NewNegate computes -x.
func NewNegate[T tensor.Float](name string, x Node[T]) *NegateOp[T] { return nodes.NewNegate(name, x) }

// NewTimes computes the matrix product a b.
func NewTimes[T tensor.Float](name string, a, b Node[T]) *TimesOp[T] { return nodes.NewTimes(name, a, b) }

// NewTransposeTimes computes aᵀ b.
func NewTransposeTimes[T tensor.Float](name string, a, b Node[T]) *TransposeTimesOp[T] {
	return nodes.NewTransposeTimes(name, a, b)
}

// NewElementTimes computes the element-wise product a ⊙ b.
func NewElementTimes[T tensor.Float](name string, a, b Node[T]) *ElementTimesOp[T] {
	return nodes.NewElementTimes(name, a, b)
}

// NewRowElementTimes multiplies every row of x element-wise by the row vector r.
func NewRowElementTimes[T tensor.Float](name string, x, r Node[T]) *RowElementTimesOp[T] {
	return nodes.NewRowElementTimes(name, x, r)
}

// NewColumnElementTimes multiplies every column of x element-wise by the column vector c.
func NewColumnElementTimes[T tensor.Float](name string, x, c Node[T]) *ColumnElementTimesOp[T] {
	return nodes.NewColumnElementTimes(name, x, c)
}

// NewDiagTimes computes diag(d) b for a column vector d.
func NewDiagTimes[T tensor.Float](name string, d, b Node[T]) *DiagTimesOp[T] {
	return nodes.NewDiagTimes(name, d, b)
}

// NewSumElements sums all elements of x, gaps excluded, into a 1x1 value.
func NewSumElements[T tensor.Float](name string, x Node[T]) *SumElementsOp[T] {
	return nodes.NewSumElements(name, x)
}

// NewSumColumnElements sums every column of x into a row vector.
func NewSumColumnElements[T tensor.Float](name string, x Node[T]) *SumColumnElementsOp[T] {
	return nodes.NewSumColumnElements(name, x)
}

// NewTranspose computes xᵀ of a time-invariant x.
func NewTranspose[T tensor.Float](name string, x Node[T]) *TransposeOp[T] { return nodes.NewTranspose(name, x) }

// NewDiagonal extracts the diagonal of a square x as a row vector.
func NewDiagonal[T tensor.Float](name string, x Node[T]) *DiagonalOp[T] { return nodes.NewDiagonal(name, x) }

// NewCosDistance computes the cosine similarity of matching columns of a and b.
func NewCosDistance[T tensor.Float](name string, a, b Node[T]) *CosDistanceOp[T] {
	return nodes.NewCosDistance(name, a, b)
}

// NewCosDistanceWithNegativeSamples computes the cosine similarity of each
// column of a with its matching column of b, then with negNumber shifted
// columns of b. shift and negNumber are 1x1 values.
func NewCosDistanceWithNegativeSamples[T tensor.Float](name string, a, b, shift, negNumber Node[T]) *CosDistanceWithNegativeSamplesOp[T] {
	return nodes.NewCosDistanceWithNegativeSamples(name, a, b, shift, negNumber)
}

// NewKhatriRaoProduct computes the column-wise Kronecker product of a and b.
func NewKhatriRaoProduct[T tensor.Float](name string, a, b Node[T]) *KhatriRaoProductOp[T] {
	return nodes.NewKhatriRaoProduct(name, a, b)
}

// NewStrideTimes computes a strided product of a and b. direction holds 0
// for a row stride or 1 for a column stride.
func NewStrideTimes[T tensor.Float](name string, a, b, direction Node[T]) *StrideTimesOp[T] {
	return nodes.NewStrideTimes(name, a, b, direction)
}
