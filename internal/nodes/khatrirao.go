package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
)

// KhatriRaoProductOp computes the column-wise Kronecker product of two
// operands with the same number of columns: output column j holds the outer
// product a_j * b_j^T flattened column-major, so output has
// rows(a)*rows(b) rows.
//
// Backward pass, with G_j the gradient column j reshaped to rows(a) x rows(b):
//   - da_j = G_j * b_j
//   - db_j = G_j^T * a_j
type KhatriRaoProductOp[T tensor.Float] struct {
	base[T]
}

// NewKhatriRaoProduct creates a KhatriRaoProduct node.
func NewKhatriRaoProduct[T tensor.Float](name string, a, b Node[T]) *KhatriRaoProductOp[T] {
	return &KhatriRaoProductOp[T]{base: newBase(KhatriRaoProduct, name, a, b)}
}

// Validate implements Node.
func (n *KhatriRaoProductOp[T]) Validate(isFinalPass bool) error {
	n.inferChildDims(0, 0, n.inputs[1].NumCols())
	n.inferChildDims(1, 0, n.inputs[0].NumCols())
	if err := n.inferLayout(); err != nil {
		return err
	}
	d0, d1 := n.inputDims(0), n.inputDims(1)
	if isFinalPass && (d0.Cols != d1.Cols || d0.NumElements()*d1.NumElements() == 0) {
		return n.errorf("inputs %s %s and %s %s must have the same number of columns",
			n.inputs[0].Name(), d0, n.inputs[1].Name(), d1)
	}
	if isFinalPass {
		if err := n.checkFrameAligned(0, 1); err != nil {
			return err
		}
	}
	n.resize(d0.Rows*d1.Rows, d0.Cols)
	return nil
}

// Evaluate implements Node.
func (n *KhatriRaoProductOp[T]) Evaluate(fr frames.Range) Retained {
	cpu.AssignKhatriRaoProductOf(n.ValueSlice(fr), n.inputs[0].ValueSlice(fr), n.inputs[1].ValueSlice(fr))
	return nil
}

// BackpropTo implements Node.
func (n *KhatriRaoProductOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	dOut := n.GradientSlice(fr)
	switch inputIndex {
	case 0:
		cpu.AddColumnReshapeProductOf(n.inputs[0].GradientSlice(fr), dOut, n.inputs[1].ValueSlice(fr), false)
	case 1:
		cpu.AddColumnReshapeProductOf(n.inputs[1].GradientSlice(fr), dOut, n.inputs[0].ValueSlice(fr), true)
	default:
		n.fatalf("no input %d", inputIndex)
	}
}
