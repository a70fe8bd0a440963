package nodes

import (
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/pool"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// base holds what every node shares: identity, inputs, value and gradient
// matrices, layout, device and the temporaries borrowed from the pool.
// Operators embed it and add Evaluate, BackpropTo and Validate.
type base[T tensor.Float] struct {
	id            uuid.UUID
	name          string
	kind          Kind
	inputs        []Node[T]
	value         *tensor.Matrix[T]
	gradient      *tensor.Matrix[T]
	layout        *frames.Layout
	needsGradient bool
	device        tensor.Device
	temps         *orderedmap.OrderedMap[string, *pool.Handle[T]]
}

// newBase creates the shared part of an operator node. The node needs a
// gradient when any of its inputs does.
func newBase[T tensor.Float](kind Kind, name string, inputs ...Node[T]) base[T] {
	needsGradient := false
	for _, in := range inputs {
		needsGradient = needsGradient || in.NeedsGradient()
	}
	return newBaseWithGradient(kind, name, needsGradient, inputs...)
}

func newBaseWithGradient[T tensor.Float](kind Kind, name string, needsGradient bool, inputs ...Node[T]) base[T] {
	b := base[T]{
		id:            uuid.New(),
		name:          name,
		kind:          kind,
		inputs:        inputs,
		value:         tensor.New[T](0, 0),
		needsGradient: needsGradient,
		device:        tensor.CPU,
		temps:         orderedmap.New[string, *pool.Handle[T]](),
	}
	if needsGradient {
		b.gradient = tensor.New[T](0, 0)
	}
	return b
}

// ID implements Node.
func (b *base[T]) ID() uuid.UUID { return b.id }

// Name implements Node.
func (b *base[T]) Name() string { return b.name }

// Kind implements Node.
func (b *base[T]) Kind() Kind { return b.kind }

// OperationName implements Node.
func (b *base[T]) OperationName() string { return b.kind.String() }

// Inputs implements Node.
func (b *base[T]) Inputs() []Node[T] { return b.inputs }

// Value implements Node.
func (b *base[T]) Value() *tensor.Matrix[T] { return b.value }

// Gradient implements Node. Returns nil when the node needs no gradient.
func (b *base[T]) Gradient() *tensor.Matrix[T] { return b.gradient }

// Layout implements Node.
func (b *base[T]) Layout() *frames.Layout { return b.layout }

// HasLayout implements Node.
func (b *base[T]) HasLayout() bool { return b.layout != nil }

// NumRows implements Node.
func (b *base[T]) NumRows() int { return b.value.Rows() }

// NumCols implements Node.
func (b *base[T]) NumCols() int { return b.value.Cols() }

// NeedsGradient implements Node.
func (b *base[T]) NeedsGradient() bool { return b.needsGradient }

// Device implements Node.
func (b *base[T]) Device() tensor.Device { return b.device }

// ZeroGradient implements Node.
func (b *base[T]) ZeroGradient() {
	if b.gradient != nil {
		b.gradient.SetZero()
	}
}

// MoveToDevice implements Node.
func (b *base[T]) MoveToDevice(device tensor.Device) {
	b.device = device
	b.value.MoveToDevice(device)
	if b.gradient != nil {
		b.gradient.MoveToDevice(device)
	}
	for pair := b.temps.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.Matrix().MoveToDevice(device)
	}
}

// resize sets the dimensions of the value and of the gradient.
func (b *base[T]) resize(rows, cols int) {
	b.value.Resize(rows, cols)
	if b.gradient != nil {
		b.gradient.Resize(rows, cols)
	}
}

func (b *base[T]) resizeLike(d tensor.Dims) {
	b.resize(d.Rows, d.Cols)
}

// sliceOf returns the columns of m selected by fr, following this node's layout.
func (b *base[T]) sliceOf(m *tensor.Matrix[T], fr frames.Range) *tensor.Matrix[T] {
	start, n := fr.Columns(b.layout, m.Cols())
	if start == 0 && n == m.Cols() {
		return m
	}
	return m.ColumnSlice(start, n)
}

// maskGaps zeroes the gap columns of slice, which holds the columns selected by fr.
func (b *base[T]) maskGaps(slice *tensor.Matrix[T], fr frames.Range) {
	zeroGapColumns(b.layout, slice, fr)
}

// zeroGapColumns zeroes the columns of slice that are gaps of layout, slice
// holding the columns selected by fr. A nil layout has no gaps.
func zeroGapColumns[T tensor.Float](layout *frames.Layout, slice *tensor.Matrix[T], fr frames.Range) {
	for _, j := range layout.GapColumns(fr) {
		slice.ZeroColumn(j)
	}
}

// ValueSlice implements Node.
func (b *base[T]) ValueSlice(fr frames.Range) *tensor.Matrix[T] {
	return b.sliceOf(b.value, fr)
}

// GradientSlice implements Node.
func (b *base[T]) GradientSlice(fr frames.Range) *tensor.Matrix[T] {
	if b.gradient == nil {
		exceptions.Panicf("%s %s: node has no gradient", b.name, b.OperationName())
	}
	return b.sliceOf(b.gradient, fr)
}

// MaskedValueSlice implements Node.
func (b *base[T]) MaskedValueSlice(fr frames.Range) *tensor.Matrix[T] {
	slice := b.ValueSlice(fr)
	b.maskGaps(slice, fr)
	return slice
}

// MaskedGradientSlice implements Node.
func (b *base[T]) MaskedGradientSlice(fr frames.Range) *tensor.Matrix[T] {
	slice := b.GradientSlice(fr)
	b.maskGaps(slice, fr)
	return slice
}

// ValueSliceToDense implements Node.
func (b *base[T]) ValueSliceToDense(fr frames.Range) *tensor.Matrix[T] {
	b.value.SwitchToDense()
	return b.ValueSlice(fr)
}

// RequestBuffersBeforeEvaluate implements Node. Operators with temporaries override it.
func (b *base[T]) RequestBuffersBeforeEvaluate(*pool.Pool[T]) {}

// RequestBuffersBeforeGradient implements Node. Operators with temporaries override it.
func (b *base[T]) RequestBuffersBeforeGradient(*pool.Pool[T]) {}

// ReleaseBuffersAfterEvaluate implements Node. It gives back every held temporary,
// so it is only called when no gradient computation follows the evaluation.
func (b *base[T]) ReleaseBuffersAfterEvaluate(p *pool.Pool[T]) {
	b.releaseTemps(p)
}

// ReleaseBuffersAfterGradient implements Node. It gives back every held temporary.
func (b *base[T]) ReleaseBuffersAfterGradient(p *pool.Pool[T]) {
	b.releaseTemps(p)
}

// requestTemp borrows a temporary from p under name.
func (b *base[T]) requestTemp(p *pool.Pool[T], name string) {
	if _, found := b.temps.Get(name); found {
		exceptions.Panicf("%s %s: temporary %q requested twice", b.name, b.OperationName(), name)
	}
	h := p.Request(b.id, name)
	h.Matrix().MoveToDevice(b.device)
	b.temps.Set(name, h)
}

// temp returns the held temporary name resized to rows x cols.
// Its content is undefined.
func (b *base[T]) temp(name string, rows, cols int) *tensor.Matrix[T] {
	h, found := b.temps.Get(name)
	if !found {
		exceptions.Panicf("%s %s: temporary %q used without being requested", b.name, b.OperationName(), name)
	}
	m := h.Matrix()
	m.Resize(rows, cols)
	return m
}

// releaseTemps gives back every held temporary, in request order.
func (b *base[T]) releaseTemps(p *pool.Pool[T]) {
	for pair := b.temps.Oldest(); pair != nil; pair = pair.Next() {
		p.Release(pair.Value)
	}
	b.temps = orderedmap.New[string, *pool.Handle[T]]()
}

// holdsTemp reports whether the temporary name is currently borrowed.
func (b *base[T]) holdsTemp(name string) bool {
	_, found := b.temps.Get(name)
	return found
}
