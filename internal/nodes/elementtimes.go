package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/pool"
	"github.com/born-ml/matgraph/internal/tensor"
)

// ElementTimesOp represents the element-wise product of two operands of equal
// dimensions: output = a ⊙ b.
//
// Backward pass:
//   - d(a⊙b)/da = outputGrad ⊙ b
//   - d(a⊙b)/db = outputGrad ⊙ a
type ElementTimesOp[T tensor.Float] struct {
	base[T]
}

// NewElementTimes creates an ElementTimes node: a ⊙ b.
func NewElementTimes[T tensor.Float](name string, a, b Node[T]) *ElementTimesOp[T] {
	return &ElementTimesOp[T]{base: newBase(ElementTimes, name, a, b)}
}

// Validate implements Node.
func (n *ElementTimesOp[T]) Validate(isFinalPass bool) error {
	return n.validateBinaryZip(isFinalPass, false)
}

// Evaluate implements Node.
func (n *ElementTimesOp[T]) Evaluate(fr frames.Range) Retained {
	cpu.AssignElementProductOf(n.ValueSlice(fr), n.inputs[0].ValueSlice(fr), n.inputs[1].ValueSlice(fr))
	return nil
}

// BackpropTo implements Node.
func (n *ElementTimesOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	if inputIndex != 0 && inputIndex != 1 {
		n.fatalf("no input %d", inputIndex)
	}
	other := n.inputs[1-inputIndex].ValueSlice(fr)
	cpu.AddElementProductOf(n.inputs[inputIndex].GradientSlice(fr), n.GradientSlice(fr), other)
}

// RowElementTimesOp scales every column j of x by the j-th entry of the row
// vector r: output[:, j] = x[:, j] * r[0, j].
//
// Backward pass:
//   - dx[:, j] = outputGrad[:, j] * r[0, j]
//   - dr[0, j] = outputGrad[:, j] · x[:, j]
type RowElementTimesOp[T tensor.Float] struct {
	base[T]
}

// NewRowElementTimes creates a RowElementTimes node scaling the columns of x by r.
func NewRowElementTimes[T tensor.Float](name string, x, r Node[T]) *RowElementTimesOp[T] {
	return &RowElementTimesOp[T]{base: newBase(RowElementTimes, name, x, r)}
}

// Validate implements Node.
func (n *RowElementTimesOp[T]) Validate(isFinalPass bool) error {
	n.inferChildDims(1, 1, n.inputs[0].NumCols())
	if err := n.inferLayout(); err != nil {
		return err
	}
	d0, d1 := n.inputDims(0), n.inputDims(1)
	if isFinalPass && (d1.Rows != 1 || d0.Cols != d1.Cols) {
		return n.errorf("%s %s must be a row vector with the %d columns of %s",
			n.inputs[1].Name(), d1, d0.Cols, n.inputs[0].Name())
	}
	if isFinalPass {
		if err := n.checkFrameAligned(0, 1); err != nil {
			return err
		}
	}
	n.resizeLike(d0)
	return nil
}

// Evaluate implements Node.
func (n *RowElementTimesOp[T]) Evaluate(fr frames.Range) Retained {
	out := n.ValueSlice(fr)
	out.CopyFrom(n.inputs[0].ValueSlice(fr))
	cpu.RowElementMultiplyWith(out, n.inputs[1].ValueSlice(fr))
	return nil
}

// RequestBuffersBeforeGradient implements Node.
func (n *RowElementTimesOp[T]) RequestBuffersBeforeGradient(p *pool.Pool[T]) {
	n.requestTemp(p, "gradient")
}

// BackpropTo implements Node.
func (n *RowElementTimesOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	dOut := n.GradientSlice(fr)
	switch inputIndex {
	case 0:
		tmp := n.temp("gradient", dOut.Rows(), dOut.Cols())
		tmp.CopyFrom(dOut)
		cpu.RowElementMultiplyWith(tmp, n.inputs[1].ValueSlice(fr))
		cpu.AddTo(n.inputs[0].GradientSlice(fr), tmp)
	case 1:
		tmp := n.temp("gradient", 1, dOut.Cols())
		cpu.AssignInnerProductOf(tmp, dOut, n.inputs[0].ValueSlice(fr), true)
		cpu.AddTo(n.inputs[1].GradientSlice(fr), tmp)
	default:
		n.fatalf("no input %d", inputIndex)
	}
}

// ColumnElementTimesOp scales every row i of x by the i-th entry of the
// time-invariant column vector c: output[i, :] = x[i, :] * c[i, 0].
//
// Backward pass:
//   - dx[i, :] = outputGrad[i, :] * c[i, 0]
//   - dc[i, 0] = outputGrad[i, :] · x[i, :], accumulated over all frames with gaps masked
type ColumnElementTimesOp[T tensor.Float] struct {
	base[T]
}

// NewColumnElementTimes creates a ColumnElementTimes node scaling the rows of x by c.
func NewColumnElementTimes[T tensor.Float](name string, x, c Node[T]) *ColumnElementTimesOp[T] {
	return &ColumnElementTimesOp[T]{base: newBase(ColumnElementTimes, name, x, c)}
}

// Validate implements Node.
func (n *ColumnElementTimesOp[T]) Validate(isFinalPass bool) error {
	n.inferChildDims(0, n.inputs[1].NumRows(), n.inputs[0].NumCols())
	n.inferChildDims(1, n.inputs[0].NumRows(), 1)
	if err := n.inferLayout(); err != nil {
		return err
	}
	d0, d1 := n.inputDims(0), n.inputDims(1)
	if isFinalPass {
		if err := n.checkNoLayout(1, "scales rows"); err != nil {
			return err
		}
		if d1.Cols != 1 || d0.Rows != d1.Rows {
			return n.errorf("%s %s must be a column vector with the %d rows of %s",
				n.inputs[1].Name(), d1, d0.Rows, n.inputs[0].Name())
		}
	}
	n.resizeLike(d0)
	return nil
}

// Evaluate implements Node.
func (n *ColumnElementTimesOp[T]) Evaluate(fr frames.Range) Retained {
	out := n.ValueSlice(fr)
	out.CopyFrom(n.inputs[0].ValueSlice(fr))
	cpu.ColumnElementMultiplyWith(out, n.inputs[1].Value())
	return nil
}

// RequestBuffersBeforeGradient implements Node.
func (n *ColumnElementTimesOp[T]) RequestBuffersBeforeGradient(p *pool.Pool[T]) {
	n.requestTemp(p, "gradient")
}

// BackpropTo implements Node.
func (n *ColumnElementTimesOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	switch inputIndex {
	case 0:
		dOut := n.GradientSlice(fr)
		tmp := n.temp("gradient", dOut.Rows(), dOut.Cols())
		tmp.CopyFrom(dOut)
		cpu.ColumnElementMultiplyWith(tmp, n.inputs[1].Value())
		cpu.AddTo(n.inputs[0].GradientSlice(fr), tmp)
	case 1:
		dOut := n.MaskedGradientSlice(fr)
		tmp := n.temp("gradient", dOut.Rows(), 1)
		cpu.AssignInnerProductOf(tmp, dOut, n.inputs[0].MaskedValueSlice(fr), false)
		cpu.AddTo(n.inputs[1].Gradient(), tmp)
	default:
		n.fatalf("no input %d", inputIndex)
	}
}

// DiagTimesOp multiplies B by the diagonal matrix whose diagonal is the
// time-invariant column vector d: output = diag(d) * B, computed by scaling
// the rows of B.
//
// Backward pass:
//   - dd[i, 0] = outputGrad[i, :] · B[i, :], accumulated over all frames with gaps masked
//   - dB = diag(d) * outputGrad
type DiagTimesOp[T tensor.Float] struct {
	base[T]
}

// NewDiagTimes creates a DiagTimes node: diag(d) * b.
func NewDiagTimes[T tensor.Float](name string, d, b Node[T]) *DiagTimesOp[T] {
	return &DiagTimesOp[T]{base: newBase(DiagTimes, name, d, b)}
}

// Validate implements Node.
func (n *DiagTimesOp[T]) Validate(isFinalPass bool) error {
	n.inferChildDims(0, n.inputs[1].NumRows(), 1)
	if err := n.inferLayout(); err != nil {
		return err
	}
	d0, d1 := n.inputDims(0), n.inputDims(1)
	if isFinalPass {
		if err := n.checkNoLayout(0, "is a diagonal"); err != nil {
			return err
		}
		if d0.Cols != 1 || d0.Rows != d1.Rows {
			return n.errorf("diagonal %s %s must be a column vector with the %d rows of %s",
				n.inputs[0].Name(), d0, d1.Rows, n.inputs[1].Name())
		}
	}
	n.resize(d0.Rows, d1.Cols)
	return nil
}

// Evaluate implements Node.
func (n *DiagTimesOp[T]) Evaluate(fr frames.Range) Retained {
	out := n.ValueSlice(fr)
	out.CopyFrom(n.inputs[1].ValueSlice(fr))
	cpu.ColumnElementMultiplyWith(out, n.inputs[0].Value())
	return nil
}

// RequestBuffersBeforeGradient implements Node.
func (n *DiagTimesOp[T]) RequestBuffersBeforeGradient(p *pool.Pool[T]) {
	n.requestTemp(p, "innerproduct")
	n.requestTemp(p, "rightGradient")
}

// BackpropTo implements Node.
func (n *DiagTimesOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	switch inputIndex {
	case 0:
		dOut := n.MaskedGradientSlice(fr)
		ip := n.temp("innerproduct", dOut.Rows(), 1)
		cpu.AssignInnerProductOf(ip, dOut, n.inputs[1].MaskedValueSlice(fr), false)
		cpu.AddTo(n.inputs[0].Gradient(), ip)
	case 1:
		dOut := n.GradientSlice(fr)
		rg := n.temp("rightGradient", dOut.Rows(), dOut.Cols())
		rg.CopyFrom(dOut)
		cpu.ColumnElementMultiplyWith(rg, n.inputs[0].Value())
		cpu.AddTo(n.inputs[1].GradientSlice(fr), rg)
	default:
		n.fatalf("no input %d", inputIndex)
	}
}
