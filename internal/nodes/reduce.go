package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
)

// SumElementsOp sums every element of its input into a 1x1 output. Gap
// columns of a minibatch input are excluded from the sum.
//
// Backward pass:
//   - dx = outputGrad broadcast to every element (zero in gap columns)
type SumElementsOp[T tensor.Float] struct {
	base[T]
}

// NewSumElements creates a SumElements node.
func NewSumElements[T tensor.Float](name string, x Node[T]) *SumElementsOp[T] {
	return &SumElementsOp[T]{base: newBase(SumElements, name, x)}
}

// Validate implements Node.
func (n *SumElementsOp[T]) Validate(isFinalPass bool) error {
	if d := n.inputDims(0); isFinalPass && d.NumElements() == 0 {
		return n.errorf("input %s has empty dimensions %s", n.inputs[0].Name(), d)
	}
	n.layout = nil
	n.resize(1, 1)
	return nil
}

// Evaluate implements Node.
func (n *SumElementsOp[T]) Evaluate(fr frames.Range) Retained {
	n.value.Set(0, 0, cpu.SumOfElements(n.inputs[0].MaskedValueSlice(fr)))
	return nil
}

// BackpropTo implements Node.
func (n *SumElementsOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	if inputIndex != 0 {
		n.fatalf("no input %d", inputIndex)
	}
	grad := n.inputs[0].GradientSlice(fr)
	cpu.AddScalar(grad, n.gradient.Get00())
	zeroGapColumns(n.inputs[0].Layout(), grad, fr)
}

// SumColumnElementsOp sums every column of its input into a single row:
// output[0, j] = sum_i x[i, j]. The output keeps the input's layout.
//
// Backward pass:
//   - dx[i, j] = outputGrad[0, j]
type SumColumnElementsOp[T tensor.Float] struct {
	base[T]
}

// NewSumColumnElements creates a SumColumnElements node.
func NewSumColumnElements[T tensor.Float](name string, x Node[T]) *SumColumnElementsOp[T] {
	return &SumColumnElementsOp[T]{base: newBase(SumColumnElements, name, x)}
}

// Validate implements Node.
func (n *SumColumnElementsOp[T]) Validate(isFinalPass bool) error {
	if err := n.inferLayout(); err != nil {
		return err
	}
	d := n.inputDims(0)
	if isFinalPass && d.NumElements() == 0 {
		return n.errorf("input %s has empty dimensions %s", n.inputs[0].Name(), d)
	}
	n.resize(1, d.Cols)
	return nil
}

// Evaluate implements Node.
func (n *SumColumnElementsOp[T]) Evaluate(fr frames.Range) Retained {
	cpu.AssignColumnSumsOf(n.ValueSlice(fr), n.inputs[0].ValueSlice(fr))
	return nil
}

// BackpropTo implements Node.
func (n *SumColumnElementsOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	if inputIndex != 0 {
		n.fatalf("no input %d", inputIndex)
	}
	grad := n.inputs[0].GradientSlice(fr)
	cpu.AssignCombinationOf(grad, grad, n.GradientSlice(fr), 1)
}
