package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/pool"
	"github.com/born-ml/matgraph/internal/tensor"
)

// Stride directions selected by the third input of StrideTimes.
const (
	strideRows    = 0
	strideColumns = 1
)

// StrideTimesOp multiplies B by A where A packs `stride` interleaved
// sub-matrices along one dimension. The third input is a 1x1 value selecting
// the direction: 0 strides rows, 1 strides columns. The stride is the number
// of parallel sequences when B carries a layout, its column count otherwise;
// column k of B (and of the output) belongs to group k mod stride.
//
// Row stride, A is (stride*T1 x d), B is (d x n):
//
//	output[i, k] = sum_j A[i*stride + g, j] * B[j, k]
//
// Column stride, A is (d x stride*T1), B is (T1 x n):
//
//	output[i, k] = sum_j A[i, j*stride + g] * B[j, k]
//
// with g = k mod stride. Backward pass: the gradient of each group's
// sub-matrix is outputGrad[:, k] * B[:, k]^T scattered back into A's strided
// rows or columns; dB[:, k] = subA^T * outputGrad[:, k].
type StrideTimesOp[T tensor.Float] struct {
	base[T]
}

// NewStrideTimes creates a StrideTimes node; direction is a 1x1 node holding 0 or 1.
func NewStrideTimes[T tensor.Float](name string, a, b, direction Node[T]) *StrideTimesOp[T] {
	return &StrideTimesOp[T]{base: newBase(StrideTimes, name, a, b, direction)}
}

// stride returns the number of interleaved groups.
func (n *StrideTimesOp[T]) stride() int {
	if l := n.inputs[1].Layout(); l != nil {
		return l.NumParallelSequences()
	}
	return n.inputs[1].NumCols()
}

// direction returns strideRows or strideColumns, read from the third input.
func (n *StrideTimesOp[T]) direction() (int, bool) {
	v := n.inputs[2].Value()
	if v.Rows() != 1 || v.Cols() != 1 {
		return 0, false
	}
	switch v.Get00() {
	case strideRows:
		return strideRows, true
	case strideColumns:
		return strideColumns, true
	}
	return 0, false
}

func (n *StrideTimesOp[T]) mustDirection() int {
	dir, ok := n.direction()
	if !ok {
		n.fatalf("input %s must be a 1x1 value of 0 (rows) or 1 (columns), got %s",
			n.inputs[2].Name(), n.inputs[2].Value())
	}
	return dir
}

// Validate implements Node.
func (n *StrideTimesOp[T]) Validate(isFinalPass bool) error {
	if err := n.inferLayout(); err != nil {
		return err
	}
	d0, d1 := n.inputDims(0), n.inputDims(1)
	dir, ok := n.direction()
	if !isFinalPass {
		if ok && dir == strideRows && n.stride() > 0 {
			n.resize(d0.Rows/n.stride(), d1.Cols)
		} else {
			n.resize(d0.Rows, d1.Cols)
		}
		return nil
	}

	if !ok {
		return n.errorf("input %s must be a 1x1 value of 0 (rows) or 1 (columns)", n.inputs[2].Name())
	}
	if err := n.checkNoLayout(0, "holds the strided matrix"); err != nil {
		return err
	}
	if n.inputs[2].NeedsGradient() {
		return n.errorf("direction input %s must not need a gradient", n.inputs[2].Name())
	}
	stride := n.stride()
	if stride == 0 || d0.NumElements() == 0 {
		return n.errorf("operands %s and %s have empty dimensions", d0, d1)
	}
	if dir == strideColumns {
		if d0.Cols != d1.Rows*stride {
			return n.errorf("columns of %s %s must be %d (rows of %s) times the stride %d",
				n.inputs[0].Name(), d0, d1.Rows, n.inputs[1].Name(), stride)
		}
		n.resize(d0.Rows, d1.Cols)
		return nil
	}
	if d0.Cols != d1.Rows || d0.Rows%stride != 0 {
		return n.errorf("%s %s must have the %d rows of %s as columns and a row count divisible by the stride %d",
			n.inputs[0].Name(), d0, d1.Rows, n.inputs[1].Name(), stride)
	}
	n.resize(d0.Rows/stride, d1.Cols)
	return nil
}

// subDims returns the dimensions of one strided sub-matrix of A.
func (n *StrideTimesOp[T]) subDims(dir, stride int) (rows, cols int) {
	d0 := n.inputDims(0)
	if dir == strideColumns {
		return d0.Rows, d0.Cols / stride
	}
	return d0.Rows / stride, d0.Cols
}

// gatherStrided extracts the sub-matrix of group g of A into dst.
func gatherStrided[T tensor.Float](dst, a *tensor.Matrix[T], dir, stride, g int) {
	if dir == strideColumns {
		cpu.AssignStridedColumnsOf(dst, a, stride, g)
		return
	}
	cpu.AssignStridedRowsOf(dst, a, stride, g)
}

// RequestBuffersBeforeEvaluate implements Node.
func (n *StrideTimesOp[T]) RequestBuffersBeforeEvaluate(p *pool.Pool[T]) {
	n.requestTemp(p, "stridedValue")
}

// RequestBuffersBeforeGradient implements Node.
func (n *StrideTimesOp[T]) RequestBuffersBeforeGradient(p *pool.Pool[T]) {
	n.requestTemp(p, "stridedGradient")
}

// Evaluate implements Node.
func (n *StrideTimesOp[T]) Evaluate(fr frames.Range) Retained {
	dir, stride := n.mustDirection(), n.stride()
	a := n.inputs[0].Value()
	b := denseOf(n.inputs[1].ValueSlice(fr))
	out := n.ValueSlice(fr)
	subRows, subCols := n.subDims(dir, stride)
	sub := n.temp("stridedValue", subRows, subCols)
	for k := 0; k < b.Cols(); k++ {
		gatherStrided(sub, a, dir, stride, k%stride)
		cpu.AssignProductOf(out.ColumnSlice(k, 1), sub, false, b.ColumnSlice(k, 1), false)
	}
	return nil
}

// BackpropTo implements Node.
func (n *StrideTimesOp[T]) BackpropTo(inputIndex int, fr frames.Range, _ Retained) {
	dir, stride := n.mustDirection(), n.stride()
	subRows, subCols := n.subDims(dir, stride)
	switch inputIndex {
	case 0:
		dOut := n.MaskedGradientSlice(fr)
		b := denseOf(n.inputs[1].MaskedValueSlice(fr))
		gradA := n.inputs[0].Gradient()
		sub := n.temp("stridedGradient", subRows, subCols)
		for k := 0; k < b.Cols(); k++ {
			cpu.AssignProductOf(sub, dOut.ColumnSlice(k, 1), false, b.ColumnSlice(k, 1), true)
			if dir == strideColumns {
				cpu.AddToStridedColumns(gradA, sub, stride, k%stride)
			} else {
				cpu.AddToStridedRows(gradA, sub, stride, k%stride)
			}
		}
	case 1:
		dOut := n.GradientSlice(fr)
		gradB := n.inputs[1].GradientSlice(fr)
		a := n.inputs[0].Value()
		sub := n.temp("stridedGradient", subRows, subCols)
		for k := 0; k < dOut.Cols(); k++ {
			gatherStrided(sub, a, dir, stride, k%stride)
			cpu.MultiplyAndAdd(sub, true, dOut.ColumnSlice(k, 1), false, gradB.ColumnSlice(k, 1))
		}
	default:
		n.fatalf("no input %d", inputIndex)
	}
}
