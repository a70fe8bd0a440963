package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
)

// ScaleOp represents multiplication by a scalar: output = s * m, where s is 1x1.
//
// Backward pass:
//   - d(s*m)/ds = sum(outputGrad ⊙ m)
//   - d(s*m)/dm = s * outputGrad
type ScaleOp[T tensor.Float] struct {
	base[T]
}

// NewScale creates a Scale node: s * m.
func NewScale[T tensor.Float](name string, s, m Node[T]) *ScaleOp[T] {
	return &ScaleOp[T]{base: newBase(Scale, name, s, m)}
}

// Validate implements Node.
func (n *ScaleOp[T]) Validate(isFinalPass bool) error {
	n.inferChildDims(0, 1, 1)
	if err := n.inferLayout(); err != nil {
		return err
	}
	if isFinalPass {
		if d := n.inputDims(0); !d.IsScalar() {
			return n.errorf("scale factor %s must be [1 x 1]", d)
		}
		if err := n.checkNoLayout(0, "is the scale factor"); err != nil {
			return err
		}
		if d := n.inputDims(1); d.NumElements() == 0 {
			return n.errorf("scaled input has empty dimensions %s", d)
		}
	}
	n.resizeLike(n.inputDims(1))
	return nil
}

// Evaluate implements Node.
func (n *ScaleOp[T]) Evaluate(fr frames.Range) Retained {
	s := n.inputs[0].Value().Get00()
	cpu.AssignScaled(n.ValueSlice(fr), s, n.inputs[1].ValueSlice(fr))
	return nil
}

// BackpropTo implements Node.
func (n *ScaleOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	switch inputIndex {
	case 0:
		// Accumulated over frames, so gaps must not contribute.
		dOut := n.MaskedGradientSlice(fr)
		m := n.inputs[1].MaskedValueSlice(fr)
		cpu.AddScalar(n.inputs[0].Gradient(), cpu.InnerProductOfMatrices(dOut, m))
	case 1:
		s := n.inputs[0].Value().Get00()
		cpu.ScaleAndAdd(s, n.GradientSlice(fr), n.inputs[1].GradientSlice(fr))
	default:
		n.fatalf("no input %d", inputIndex)
	}
}

// NegateOp represents element-wise negation: output = -x.
//
// Backward pass:
//   - d(-x)/dx = -outputGrad
type NegateOp[T tensor.Float] struct {
	base[T]
}

// NewNegate creates a Negate node: -x.
func NewNegate[T tensor.Float](name string, x Node[T]) *NegateOp[T] {
	return &NegateOp[T]{base: newBase(Negate, name, x)}
}

// Validate implements Node.
func (n *NegateOp[T]) Validate(isFinalPass bool) error {
	return n.validateUnaryMap(isFinalPass)
}

// Evaluate implements Node.
func (n *NegateOp[T]) Evaluate(fr frames.Range) Retained {
	cpu.AssignScaled(n.ValueSlice(fr), -1, n.inputs[0].ValueSlice(fr))
	return nil
}

// BackpropTo implements Node.
func (n *NegateOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	if inputIndex != 0 {
		n.fatalf("no input %d", inputIndex)
	}
	cpu.SubtractFrom(n.inputs[0].GradientSlice(fr), n.GradientSlice(fr))
}
