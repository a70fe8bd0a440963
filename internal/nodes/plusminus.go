package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/broadcast"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
)

// PlusOp implements Plus (output = a + b) and Minus (output = a - b).
//
// Operands may differ in shape following the broadcast cases: a row vector is
// added to every row, a column vector (or scalar) to every column of the other
// operand viewed as vectorRows x n, and without a minibatch layout the narrower
// operand's columns are each repeated to fill the wider one.
//
// Backward pass:
//   - d(a ± b)/da = outputGrad, reduced to the shape of a
//   - d(a ± b)/db = ±outputGrad, reduced to the shape of b
type PlusOp[T tensor.Float] struct {
	base[T]
	sign T
}

// NewPlus creates a Plus node: a + b.
func NewPlus[T tensor.Float](name string, a, b Node[T]) *PlusOp[T] {
	return &PlusOp[T]{base: newBase(Plus, name, a, b), sign: 1}
}

// NewMinus creates a Minus node: a - b.
func NewMinus[T tensor.Float](name string, a, b Node[T]) *PlusOp[T] {
	return &PlusOp[T]{base: newBase(Minus, name, a, b), sign: -1}
}

// Validate implements Node.
func (n *PlusOp[T]) Validate(isFinalPass bool) error {
	return n.validateBinaryZip(isFinalPass, true)
}

// Evaluate implements Node.
func (n *PlusOp[T]) Evaluate(fr frames.Range) Retained {
	out := n.ValueSlice(fr)
	in0 := n.inputs[0].ValueSlice(fr)
	in1 := n.inputs[1].ValueSlice(fr)
	res, err := broadcast.ResolveForward(in0.Dims(), in1.Dims(), n.HasLayout())
	if err != nil {
		n.fatalf("%v", err)
	}
	if out.Dims() != res.Result {
		n.fatalf("output slice %s does not match combined operands %s", out.Dims(), res.Result)
	}

	switch res.Case {
	case broadcast.Match, broadcast.RowBroadcast:
		cpu.AssignCombinationOf(out, in0, in1, n.sign)

	case broadcast.ColumnBroadcast:
		e := res.Expanded
		outE := out.Reshaped(e.Rows, e.Cols)
		if res.Small == 0 {
			cpu.AssignCombinationOf(outE, in0, denseOf(in1).Reshaped(e.Rows, e.Cols), n.sign)
		} else {
			cpu.AssignCombinationOf(outE, denseOf(in0).Reshaped(e.Rows, e.Cols), in1, n.sign)
		}

	case broadcast.ColumnTiling:
		ratio := res.Expanded.Cols
		wide, narrow := denseOf(in0), denseOf(in1)
		if res.Small == 0 {
			wide, narrow = narrow, wide
		}
		for i := 0; i < narrow.Cols(); i++ {
			outBlock := out.ColumnSlice(i*ratio, ratio)
			wideBlock := wide.ColumnSlice(i*ratio, ratio)
			narrowCol := narrow.ColumnSlice(i, 1)
			if res.Small == 0 {
				cpu.AssignCombinationOf(outBlock, narrowCol, wideBlock, n.sign)
			} else {
				cpu.AssignCombinationOf(outBlock, wideBlock, narrowCol, n.sign)
			}
		}
	}
	return nil
}

// BackpropTo implements Node.
func (n *PlusOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	sign := T(1)
	if inputIndex == 1 {
		sign = n.sign
	}
	in := n.inputs[inputIndex]
	grad := in.GradientSlice(fr)
	dOut := n.GradientSlice(fr)

	reduction := broadcast.ResolveBackward(grad.Dims(), dOut.Dims())
	if reduction == broadcast.ReduceInvalid {
		n.fatalf("gradient %s cannot be reduced into input %d (%s) of dimensions %s",
			dOut.Dims(), inputIndex, in.Name(), grad.Dims())
	}
	// Sums over columns must not pick up gap columns; neither must a
	// time-invariant operand accumulating over per-frame calls.
	if reduction.NeedsMasking() || (reduction == broadcast.ReduceNone && n.HasLayout() && !in.HasLayout()) {
		dOut = n.MaskedGradientSlice(fr)
	}
	addReducedGradient(grad, dOut, sign, reduction)
}

// addReducedGradient accumulates sign*dOut into grad following reduction.
func addReducedGradient[T tensor.Float](grad, dOut *tensor.Matrix[T], sign T, reduction broadcast.Reduction) {
	switch reduction {
	case broadcast.ReduceNone:
		cpu.ScaleAndAdd(sign, dOut, grad)

	case broadcast.ReduceScalar:
		cpu.AddScalar(grad, sign*cpu.SumOfElements(dOut))

	case broadcast.ReduceColumnVector:
		rows := grad.Rows()
		cpu.AddRowSumsOf(grad, sign, dOut.Reshaped(rows, dOut.NumElements()/rows))

	case broadcast.ReduceRowVector:
		cpu.AddColumnSumsOf(grad, sign, dOut)

	case broadcast.ReduceTiles:
		ratio := dOut.Cols() / grad.Cols()
		grad.SwitchToDense() // ColumnSlice needs dense storage
		for i := 0; i < grad.Cols(); i++ {
			cpu.AddRowSumsOf(grad.ColumnSlice(i, 1), sign, dOut.ColumnSlice(i*ratio, ratio))
		}
	}
}

// denseOf returns m, or a dense copy of m when it is sparse.
func denseOf[T tensor.Float](m *tensor.Matrix[T]) *tensor.Matrix[T] {
	if m.IsSparse() {
		return m.ToDense()
	}
	return m
}
