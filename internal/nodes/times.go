package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
	"k8s.io/klog/v2"
)

// TimesOp represents a matrix product: output = A * B.
//
// A is time-invariant (no minibatch layout); B and the output may carry one.
//
// Backward pass:
//   - d(A*B)/dA = outputGrad * B^T, accumulated over all frames with gaps masked
//   - d(A*B)/dB = A^T * outputGrad
//
// When B is sparse, the gradient of A becomes sparse block-column: only the
// columns of A touched by B's non-zero columns receive updates.
type TimesOp[T tensor.Float] struct {
	base[T]
}

// NewTimes creates a Times node: a * b.
func NewTimes[T tensor.Float](name string, a, b Node[T]) *TimesOp[T] {
	return &TimesOp[T]{base: newBase(Times, name, a, b)}
}

// Validate implements Node.
func (n *TimesOp[T]) Validate(isFinalPass bool) error {
	rows0, cols0 := n.inputs[0].NumRows(), n.inputs[0].NumCols()
	rows1, cols1 := n.inputs[1].NumRows(), n.inputs[1].NumCols()
	if isFinalPass {
		if err := n.checkNoLayout(0, "is the left operand of a product"); err != nil {
			return err
		}
		if rows0 == 0 || (cols1 == 0 && !n.inputs[1].HasLayout()) {
			return n.errorf("rows of %s and columns of %s cannot be inferred and must not be 0",
				n.inputs[0].Name(), n.inputs[1].Name())
		}
	}
	if cols0 == 0 && rows1 != 0 {
		n.inferChildDims(0, rows0, rows1)
	}
	if cols0 != 0 && rows1 == 0 {
		n.inferChildDims(1, cols0, cols1)
	}
	d0, d1 := n.inputDims(0), n.inputDims(1)
	if isFinalPass && d0.Cols != d1.Rows {
		return n.errorf("inner dimensions of %s %s and %s %s do not match",
			n.inputs[0].Name(), d0, n.inputs[1].Name(), d1)
	}
	if err := n.inferLayout(); err != nil {
		return err
	}
	n.resize(d0.Rows, d1.Cols)
	return nil
}

// Evaluate implements Node.
func (n *TimesOp[T]) Evaluate(fr frames.Range) Retained {
	out := n.ValueSliceToDense(fr)
	cpu.AssignProductOf(out, n.inputs[0].Value(), false, n.inputs[1].ValueSlice(fr), false)
	return nil
}

// BackpropTo implements Node.
func (n *TimesOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	switch inputIndex {
	case 0:
		dOut := n.MaskedGradientSlice(fr)
		b := n.inputs[1].MaskedValueSlice(fr)
		gradA := n.inputs[0].Gradient()
		if b.IsSparse() && !gradA.IsSparse() && !dOut.IsSparse() {
			klog.V(1).Infof("%s %q: gradient of %s switched to %s storage",
				n.OperationName(), n.name, n.inputs[0].Name(), tensor.SparseBlockCol)
			gradA.SwitchToSparseBlockCol()
		}
		cpu.MultiplyAndAdd(dOut, false, b, true, gradA)
	case 1:
		cpu.MultiplyAndAdd(n.inputs[0].Value(), true, n.GradientSlice(fr), false, n.inputs[1].GradientSlice(fr))
	default:
		n.fatalf("no input %d", inputIndex)
	}
}

// TransposeTimesOp represents a product with the transposed left operand:
// output = A^T * B.
//
// Backward pass:
//   - d(A^T*B)/dA = B * outputGrad^T, accumulated over all frames with gaps masked
//   - d(A^T*B)/dB = A * outputGrad
type TransposeTimesOp[T tensor.Float] struct {
	base[T]
}

// NewTransposeTimes creates a TransposeTimes node: a^T * b.
func NewTransposeTimes[T tensor.Float](name string, a, b Node[T]) *TransposeTimesOp[T] {
	return &TransposeTimesOp[T]{base: newBase(TransposeTimes, name, a, b)}
}

// Validate implements Node.
func (n *TransposeTimesOp[T]) Validate(isFinalPass bool) error {
	rows0, cols0 := n.inputs[0].NumRows(), n.inputs[0].NumCols()
	rows1, cols1 := n.inputs[1].NumRows(), n.inputs[1].NumCols()
	if isFinalPass {
		if err := n.checkNoLayout(0, "is the transposed left operand of a product"); err != nil {
			return err
		}
		if cols0 == 0 || (cols1 == 0 && !n.inputs[1].HasLayout()) {
			return n.errorf("columns of %s and %s cannot be inferred and must not be 0",
				n.inputs[0].Name(), n.inputs[1].Name())
		}
	}
	if rows0 == 0 && rows1 != 0 {
		n.inferChildDims(0, rows1, cols0)
	}
	if rows0 != 0 && rows1 == 0 {
		n.inferChildDims(1, rows0, cols1)
	}
	d0, d1 := n.inputDims(0), n.inputDims(1)
	if isFinalPass && d0.Rows != d1.Rows {
		return n.errorf("rows of %s %s and %s %s do not match",
			n.inputs[0].Name(), d0, n.inputs[1].Name(), d1)
	}
	if err := n.inferLayout(); err != nil {
		return err
	}
	n.resize(d0.Cols, d1.Cols)
	return nil
}

// Evaluate implements Node.
func (n *TransposeTimesOp[T]) Evaluate(fr frames.Range) Retained {
	out := n.ValueSliceToDense(fr)
	cpu.AssignProductOf(out, n.inputs[0].Value(), true, n.inputs[1].ValueSlice(fr), false)
	return nil
}

// BackpropTo implements Node.
func (n *TransposeTimesOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	switch inputIndex {
	case 0:
		dOut := n.MaskedGradientSlice(fr)
		b := n.inputs[1].MaskedValueSlice(fr)
		cpu.MultiplyAndAdd(b, false, dOut, true, n.inputs[0].Gradient())
	case 1:
		cpu.MultiplyAndAdd(n.inputs[0].Value(), false, n.GradientSlice(fr), false, n.inputs[1].GradientSlice(fr))
	default:
		n.fatalf("no input %d", inputIndex)
	}
}
