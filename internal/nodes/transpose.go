package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
)

// TransposeOp represents the matrix transpose: output = x^T. The input must
// be time-invariant.
//
// Backward pass:
//   - dx = outputGrad^T
type TransposeOp[T tensor.Float] struct {
	base[T]
}

// NewTranspose creates a Transpose node.
func NewTranspose[T tensor.Float](name string, x Node[T]) *TransposeOp[T] {
	return &TransposeOp[T]{base: newBase(Transpose, name, x)}
}

// Validate implements Node.
func (n *TransposeOp[T]) Validate(isFinalPass bool) error {
	d := n.inputDims(0)
	if isFinalPass {
		if err := n.checkNoLayout(0, "cannot be transposed"); err != nil {
			return err
		}
		if d.NumElements() == 0 {
			return n.errorf("input %s has empty dimensions %s", n.inputs[0].Name(), d)
		}
	}
	n.layout = nil
	n.resize(d.Cols, d.Rows)
	return nil
}

// Evaluate implements Node. The whole matrix is transposed for any frame range.
func (n *TransposeOp[T]) Evaluate(frames.Range) Retained {
	cpu.AssignTransposeOf(n.value, n.inputs[0].Value())
	return nil
}

// BackpropTo implements Node.
func (n *TransposeOp[T]) BackpropTo(inputIndex int, _ frames.Range, _ Retained) {
	if inputIndex != 0 {
		n.fatalf("no input %d", inputIndex)
	}
	cpu.AddTransposeOf(n.inputs[0].Gradient(), n.gradient)
}

// DiagonalOp extracts the diagonal of a square, time-invariant matrix into a
// single row: output[0, i] = x[i, i].
//
// Backward pass:
//   - dx[i, i] += outputGrad[0, i]; off-diagonal elements receive nothing
type DiagonalOp[T tensor.Float] struct {
	base[T]
}

// NewDiagonal creates a Diagonal node.
func NewDiagonal[T tensor.Float](name string, x Node[T]) *DiagonalOp[T] {
	return &DiagonalOp[T]{base: newBase(Diagonal, name, x)}
}

// Validate implements Node.
func (n *DiagonalOp[T]) Validate(isFinalPass bool) error {
	d := n.inputDims(0)
	if isFinalPass {
		if err := n.checkNoLayout(0, "has no diagonal"); err != nil {
			return err
		}
		if d.Rows != d.Cols || d.NumElements() == 0 {
			return n.errorf("input %s %s must be a non-empty square matrix", n.inputs[0].Name(), d)
		}
	}
	n.layout = nil
	n.resize(1, d.Cols)
	return nil
}

// Evaluate implements Node.
func (n *DiagonalOp[T]) Evaluate(frames.Range) Retained {
	cpu.AssignDiagonalValuesTo(n.value, n.inputs[0].Value())
	return nil
}

// BackpropTo implements Node.
func (n *DiagonalOp[T]) BackpropTo(inputIndex int, _ frames.Range, _ Retained) {
	if inputIndex != 0 {
		n.fatalf("no input %d", inputIndex)
	}
	cpu.AddToDiagonal(n.inputs[0].Gradient(), n.gradient)
}
