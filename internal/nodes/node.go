// Package nodes implements the linear-algebra operators of a computation graph.
//
// Each node owns a value matrix and, when it needs one, a gradient matrix.
// The scheduler drives every node through the same contract:
//   - Validate(false) then Validate(true) over the topological order infers
//     unknown dimensions and rejects incompatible shapes
//   - Evaluate computes the value for a frame range and returns the state the
//     gradient computation needs (Retained)
//   - BackpropTo accumulates the gradient of one input for a frame range
//   - Request*/Release* borrow and give back scratch buffers from a pool
//
// Supported operators:
//   - Plus, Minus: element-wise sum/difference with broadcasting
//   - Scale, Negate: scalar * matrix, -matrix
//   - Times, TransposeTimes: A*B, A'*B (A time-invariant)
//   - ElementTimes, RowElementTimes, ColumnElementTimes, DiagTimes
//   - SumElements, SumColumnElements, Transpose, Diagonal
//   - CosDistance, CosDistanceWithNegativeSamples
//   - KhatriRaoProduct, StrideTimes
package nodes

import (
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/pool"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/google/uuid"
)

// Node is a vertex of the computation graph.
type Node[T tensor.Float] interface {
	// ID uniquely identifies the node; it owns the node's pool requests.
	ID() uuid.UUID

	// Name returns the node name given at construction.
	Name() string

	// Kind returns the operator kind.
	Kind() Kind

	// OperationName returns the operator name, e.g. "Times".
	OperationName() string

	// Inputs returns the input nodes. The slice must not be modified.
	Inputs() []Node[T]

	Value() *tensor.Matrix[T]
	Gradient() *tensor.Matrix[T]

	// Layout returns the minibatch layout, nil for time-invariant nodes.
	Layout() *frames.Layout
	HasLayout() bool

	NumRows() int
	NumCols() int

	// NeedsGradient reports whether a gradient flows into this node.
	NeedsGradient() bool

	// ZeroGradient clears the gradient accumulator.
	ZeroGradient()

	Device() tensor.Device

	// MoveToDevice places the value, the gradient and the held temporaries on device.
	MoveToDevice(device tensor.Device)

	// Slices of the value and gradient for a frame range. Nodes without a
	// layout return their whole matrix for any range.
	ValueSlice(fr frames.Range) *tensor.Matrix[T]
	GradientSlice(fr frames.Range) *tensor.Matrix[T]

	// Masked slices zero the gap columns inside the range before returning.
	MaskedValueSlice(fr frames.Range) *tensor.Matrix[T]
	MaskedGradientSlice(fr frames.Range) *tensor.Matrix[T]

	// ValueSliceToDense converts a sparse value to dense storage, then slices it.
	ValueSliceToDense(fr frames.Range) *tensor.Matrix[T]

	// Validate infers dimensions and the layout from the inputs. The final pass
	// rejects incompatible shapes.
	Validate(isFinalPass bool) error

	// Evaluate computes the value columns selected by fr.
	Evaluate(fr frames.Range) Retained

	// BackpropTo accumulates into the gradient of input inputIndex the
	// contribution of this node's gradient columns selected by fr.
	// retained is what Evaluate returned for this node.
	BackpropTo(inputIndex int, fr frames.Range, retained Retained)

	RequestBuffersBeforeEvaluate(p *pool.Pool[T])
	ReleaseBuffersAfterEvaluate(p *pool.Pool[T])
	RequestBuffersBeforeGradient(p *pool.Pool[T])
	ReleaseBuffersAfterGradient(p *pool.Pool[T])
}

// Retained is the state an operator's evaluation hands to its gradient
// computation. Stateless operators return nil.
type Retained interface {
	// Operation names the operator that produced the state.
	Operation() string
}

// dimsInferrer is implemented by leaves whose unknown dimensions can be set by consumers.
type dimsInferrer interface {
	inferDims(rows, cols int)
}
