package nodes

import (
	"fmt"

	"github.com/born-ml/matgraph/internal/broadcast"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// errorf returns a configuration error naming the operator and the node.
func (b *base[T]) errorf(format string, args ...any) error {
	return errors.Errorf("%s operation %q: %s", b.OperationName(), b.name, fmt.Sprintf(format, args...))
}

// fatalf panics with an internal-consistency error naming the operator and the node.
func (b *base[T]) fatalf(format string, args ...any) {
	exceptions.Panicf("%s operation %q: %s", b.OperationName(), b.name, fmt.Sprintf(format, args...))
}

// inputDims returns the dimensions of input i.
func (b *base[T]) inputDims(i int) tensor.Dims {
	return tensor.Dims{Rows: b.inputs[i].NumRows(), Cols: b.inputs[i].NumCols()}
}

// inferChildDims fills the unknown (zero) dimensions of input i when it is a
// leaf that accepts inference. Known dimensions are never changed.
func (b *base[T]) inferChildDims(i, rows, cols int) {
	if inf, ok := b.inputs[i].(dimsInferrer); ok {
		inf.inferDims(rows, cols)
	}
}

// inferLayout inherits the layout of the inputs: the first non-nil one.
// Inputs carrying different layouts cannot be combined.
func (b *base[T]) inferLayout() error {
	var layout *frames.Layout
	for i, in := range b.inputs {
		l := in.Layout()
		if l == nil {
			continue
		}
		if layout == nil {
			layout = l
			continue
		}
		if l != layout && !l.Equal(layout) {
			return b.errorf("input %d (%s) has layout %s, which differs from %s", i, in.Name(), l, layout)
		}
	}
	b.layout = layout
	return nil
}

// validateUnaryMap gives the node the dimensions and layout of its single input.
func (b *base[T]) validateUnaryMap(isFinalPass bool) error {
	if err := b.inferLayout(); err != nil {
		return err
	}
	d := b.inputDims(0)
	if isFinalPass && d.Rows*d.Cols == 0 {
		return b.errorf("input %s has empty dimensions %s", b.inputs[0].Name(), d)
	}
	b.resizeLike(d)
	return nil
}

// validateBinaryZip infers unknown operand dimensions from each other, then
// sizes the node after the broadcast resolution of its two operands. When
// allowBroadcast is false the final pass requires matching dimensions.
// During the preliminary pass incompatible operands only size the node to the
// largest dimensions, since later inference may still fix them.
func (b *base[T]) validateBinaryZip(isFinalPass, allowBroadcast bool) error {
	for i := 0; i < 2; i++ {
		in, other := b.inputs[i], b.inputs[1-i]
		rows, cols := in.NumRows(), in.NumCols()
		if rows == 0 {
			rows = other.NumRows()
		}
		if cols == 0 {
			cols = other.NumCols()
			if other.HasLayout() {
				// Time-invariant operands of minibatch data are column vectors.
				cols = 1
			}
		}
		b.inferChildDims(i, rows, cols)
	}
	if err := b.inferLayout(); err != nil {
		return err
	}

	d0, d1 := b.inputDims(0), b.inputDims(1)
	hasLayout := b.inputs[0].HasLayout() || b.inputs[1].HasLayout()
	res, err := broadcast.ResolveForward(d0, d1, hasLayout)
	if err != nil {
		if isFinalPass {
			return errors.Wrapf(err, "%s operation %q", b.OperationName(), b.name)
		}
		b.resize(max(d0.Rows, d1.Rows), max(d0.Cols, d1.Cols))
		return nil
	}
	if isFinalPass && !allowBroadcast && res.Case != broadcast.Match {
		return b.errorf("operands %s and %s must have the same dimensions", d0, d1)
	}
	if isFinalPass {
		if err := b.checkFrameAligned(0, 1); err != nil {
			return err
		}
	}
	if isFinalPass && res.Result.Rows*res.Result.Cols == 0 {
		return b.errorf("operands %s and %s have empty dimensions", d0, d1)
	}
	b.resizeLike(res.Result)
	return nil
}

// checkFrameAligned fails when one of the given inputs has no minibatch
// layout but spans several columns while the node carries a layout. Frame by
// frame such an input would still be seen whole, so only column vectors and
// scalars can be combined with minibatch data.
func (b *base[T]) checkFrameAligned(inputs ...int) error {
	if b.layout == nil {
		return nil
	}
	for _, i := range inputs {
		in := b.inputs[i]
		if !in.HasLayout() && in.NumCols() > 1 {
			return b.errorf("input %d (%s) %s has no minibatch layout and cannot be combined column by column with layout %s",
				i, in.Name(), b.inputDims(i), b.layout)
		}
	}
	return nil
}

// checkNoLayout fails when input i carries a minibatch layout.
func (b *base[T]) checkNoLayout(i int, what string) error {
	if b.inputs[i].HasLayout() {
		return b.errorf("input %d (%s) %s: it must not carry a minibatch layout", i, b.inputs[i].Name(), what)
	}
	return nil
}
