package nodes

import (
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/tensor"
	"k8s.io/klog/v2"
)

// Input is a data node. Its value is set from outside the graph, it may carry
// a minibatch layout and may use sparse storage. It never needs a gradient.
type Input[T tensor.Float] struct {
	base[T]
}

// NewInput creates a time-invariant input of the given dimensions.
func NewInput[T tensor.Float](name string, rows, cols int) *Input[T] {
	n := &Input[T]{base: newBaseWithGradient[T](InputValue, name, false)}
	n.resize(rows, cols)
	return n
}

// NewMinibatchInput creates an input of rows x layout.NumCols() holding minibatch data.
func NewMinibatchInput[T tensor.Float](name string, rows int, layout *frames.Layout) *Input[T] {
	n := NewInput[T](name, rows, layout.NumCols())
	n.layout = layout
	return n
}

// SetValue replaces the value by m, which may be sparse. The node keeps m.
func (n *Input[T]) SetValue(m *tensor.Matrix[T]) {
	if n.layout != nil && m.Cols() != n.layout.NumCols() {
		n.fatalf("value %s does not match %d layout columns", m.Dims(), n.layout.NumCols())
	}
	m.MoveToDevice(n.device)
	n.value = m
}

// SetLayout replaces the minibatch layout. The value must be set again when
// the column count changes.
func (n *Input[T]) SetLayout(layout *frames.Layout) {
	n.layout = layout
	if layout != nil && n.value.Cols() != layout.NumCols() {
		n.resize(n.value.Rows(), layout.NumCols())
	}
}

// Validate implements Node.
func (n *Input[T]) Validate(isFinalPass bool) error {
	if isFinalPass && n.NumRows()*n.NumCols() == 0 {
		return n.errorf("input has empty dimensions %s", n.value.Dims())
	}
	return nil
}

// Evaluate implements Node. The value is provided from outside.
func (n *Input[T]) Evaluate(frames.Range) Retained { return nil }

// BackpropTo implements Node. Inputs have no inputs to propagate to.
func (n *Input[T]) BackpropTo(inputIndex int, _ frames.Range, _ Retained) {
	n.fatalf("leaf node has no input %d", inputIndex)
}

// Parameter is a learnable, time-invariant matrix. It always needs a
// gradient. Zero dimensions are unknown until a consumer infers them during
// validation.
type Parameter[T tensor.Float] struct {
	base[T]
}

// NewParameter creates a zero-filled parameter. rows or cols may be 0 to
// leave them to inference.
func NewParameter[T tensor.Float](name string, rows, cols int) *Parameter[T] {
	n := &Parameter[T]{base: newBaseWithGradient[T](LearnableParameter, name, true)}
	n.resize(rows, cols)
	n.value.SetZero()
	return n
}

// SetValue copies m into the parameter. When the parameter dimensions are
// still unknown they are taken from m.
func (n *Parameter[T]) SetValue(m *tensor.Matrix[T]) {
	if n.NumRows()*n.NumCols() == 0 {
		n.resize(m.Rows(), m.Cols())
	}
	n.value.CopyFrom(m)
}

// inferDims fills the unknown dimensions of the parameter.
func (n *Parameter[T]) inferDims(rows, cols int) {
	r, c := n.NumRows(), n.NumCols()
	if r == 0 {
		r = rows
	}
	if c == 0 {
		c = cols
	}
	if r == n.NumRows() && c == n.NumCols() {
		return
	}
	klog.V(1).Infof("%s %q: inferred dimensions %s", n.OperationName(), n.name, tensor.Dims{Rows: r, Cols: c})
	n.resize(r, c)
	n.value.SetZero()
}

// Validate implements Node.
func (n *Parameter[T]) Validate(isFinalPass bool) error {
	if isFinalPass && n.NumRows()*n.NumCols() == 0 {
		return n.errorf("dimensions %s could not be inferred", n.value.Dims())
	}
	return nil
}

// Evaluate implements Node. The value is the parameter itself.
func (n *Parameter[T]) Evaluate(frames.Range) Retained { return nil }

// BackpropTo implements Node. Parameters have no inputs to propagate to.
func (n *Parameter[T]) BackpropTo(inputIndex int, _ frames.Range, _ Retained) {
	n.fatalf("leaf node has no input %d", inputIndex)
}
