package nodes

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/pool"
	"github.com/born-ml/matgraph/internal/tensor"
	"k8s.io/klog/v2"
)

// CosRetained is what CosDistance evaluation hands to its gradient: the
// inverse L2 norm of every column of both inputs (0 for zero-norm columns).
// Both matrices span all the node's columns; each frame uses its own slice.
type CosRetained[T tensor.Float] struct {
	InvNorm0, InvNorm1 *tensor.Matrix[T]
}

// Operation implements Retained.
func (r *CosRetained[T]) Operation() string { return CosDistance.String() }

// CosDistanceOp computes the cosine similarity of corresponding columns:
// output[0, j] = a_j·b_j / (|a_j| |b_j|). A zero-norm column yields 0.
//
// Backward pass:
//   - da_j = outputGrad[0, j] * (b_j/(|a_j||b_j|) - a_j*output[0, j]/|a_j|^2)
//   - db_j symmetric
type CosDistanceOp[T tensor.Float] struct {
	base[T]
}

// NewCosDistance creates a CosDistance node.
func NewCosDistance[T tensor.Float](name string, a, b Node[T]) *CosDistanceOp[T] {
	return &CosDistanceOp[T]{base: newBase(CosDistance, name, a, b)}
}

// validatePair infers unknown dimensions of the first two inputs from each
// other and checks they match on the final pass.
func (b *base[T]) validatePair(isFinalPass bool) (tensor.Dims, error) {
	b.inferChildDims(0, b.inputs[1].NumRows(), b.inputs[1].NumCols())
	b.inferChildDims(1, b.inputs[0].NumRows(), b.inputs[0].NumCols())
	if err := b.inferLayout(); err != nil {
		return tensor.Dims{}, err
	}
	d0, d1 := b.inputDims(0), b.inputDims(1)
	if isFinalPass && (d0 != d1 || d0.NumElements() == 0) {
		return d1, b.errorf("inputs %s %s and %s %s must have the same non-empty dimensions",
			b.inputs[0].Name(), d0, b.inputs[1].Name(), d1)
	}
	if isFinalPass {
		return d1, b.checkFrameAligned(0, 1)
	}
	return d1, nil
}

// Validate implements Node.
func (n *CosDistanceOp[T]) Validate(isFinalPass bool) error {
	d, err := n.validatePair(isFinalPass)
	if err != nil {
		return err
	}
	n.resize(1, d.Cols)
	return nil
}

// RequestBuffersBeforeEvaluate implements Node.
func (n *CosDistanceOp[T]) RequestBuffersBeforeEvaluate(p *pool.Pool[T]) {
	n.requestTemp(p, "invNorm0")
	n.requestTemp(p, "invNorm1")
}

// RequestBuffersBeforeGradient implements Node.
func (n *CosDistanceOp[T]) RequestBuffersBeforeGradient(p *pool.Pool[T]) {
	n.requestTemp(p, "leftTerm")
	n.requestTemp(p, "rightTerm")
	n.requestTemp(p, "temp")
}

// inverseNorms fills the frame slice of the full-width temporary name with the
// inverse column norms of x and returns the full temporary.
func (b *base[T]) inverseNorms(name string, x *tensor.Matrix[T], fr frames.Range) *tensor.Matrix[T] {
	full := b.temp(name, 1, b.NumCols())
	inv := b.sliceOf(full, fr)
	cpu.AssignVectorNorm2Of(inv, x)
	if zeros := b.countZeroColumns(inv, fr); zeros > 0 {
		klog.Warningf("%s %q: %d zero-norm columns in %s, their similarity is 0",
			b.OperationName(), b.name, zeros, fr)
	}
	cpu.AssignSafeInverseOf(inv, inv)
	return full
}

// countZeroColumns counts the zero entries of the row vector v outside gap columns.
func (b *base[T]) countZeroColumns(v *tensor.Matrix[T], fr frames.Range) int {
	gaps := make(map[int]bool)
	for _, j := range b.layout.GapColumns(fr) {
		gaps[j] = true
	}
	count := 0
	for j, x := range v.Data() {
		if x == 0 && !gaps[j] {
			count++
		}
	}
	return count
}

// Evaluate implements Node.
func (n *CosDistanceOp[T]) Evaluate(fr frames.Range) Retained {
	a := n.inputs[0].ValueSlice(fr)
	b := n.inputs[1].ValueSlice(fr)
	r := &CosRetained[T]{
		InvNorm0: n.inverseNorms("invNorm0", a, fr),
		InvNorm1: n.inverseNorms("invNorm1", b, fr),
	}
	out := n.ValueSlice(fr)
	cpu.AssignInnerProductOf(out, a, b, true)
	cpu.ElementMultiplyWith(out, n.sliceOf(r.InvNorm0, fr))
	cpu.ElementMultiplyWith(out, n.sliceOf(r.InvNorm1, fr))
	return r
}

// BackpropTo implements Node.
func (n *CosDistanceOp[T]) BackpropTo(inputIndex int, fr frames.Range, retained Retained) {
	r, ok := retained.(*CosRetained[T])
	if !ok {
		n.fatalf("gradient requires the state of the evaluation, got %v", retained)
	}
	if inputIndex != 0 && inputIndex != 1 {
		n.fatalf("no input %d", inputIndex)
	}
	self, other := n.inputs[inputIndex].ValueSlice(fr), n.inputs[1-inputIndex].ValueSlice(fr)
	invSelf, invOther := n.sliceOf(r.InvNorm0, fr), n.sliceOf(r.InvNorm1, fr)
	if inputIndex == 1 {
		invSelf, invOther = invOther, invSelf
	}
	out, dOut := n.ValueSlice(fr), n.GradientSlice(fr)
	rows, cols := self.Rows(), self.Cols()

	tmp := n.temp("temp", 1, cols)
	cpu.AssignElementProductOf(tmp, invSelf, invSelf)
	cpu.ElementMultiplyWith(tmp, out)
	right := n.temp("rightTerm", rows, cols)
	right.CopyFrom(self)
	cpu.RowElementMultiplyWith(right, tmp)

	cpu.AssignElementProductOf(tmp, invSelf, invOther)
	left := n.temp("leftTerm", rows, cols)
	left.CopyFrom(other)
	cpu.RowElementMultiplyWith(left, tmp)

	cpu.SubtractFrom(left, right)
	cpu.RowElementMultiplyWith(left, dOut)
	cpu.AddTo(n.inputs[inputIndex].GradientSlice(fr), left)
}

// NegativeSamplesRetained extends CosRetained with, for every output element
// (m, j), the inner product and the inverse norm product of its column pair.
type NegativeSamplesRetained[T tensor.Float] struct {
	CosRetained[T]
	InnerProduct, NormProduct *tensor.Matrix[T]
}

// Operation implements Retained.
func (r *NegativeSamplesRetained[T]) Operation() string {
	return CosDistanceWithNegativeSamples.String()
}

// CosDistanceWithNegativeSamplesOp computes, for every column j of a, its
// cosine similarity with column j of b (row 0) and with negNumber shifted
// columns of b: row m >= 1 pairs a_j with b_k, k = (j + m + shift - 1) mod n,
// where n is the number of columns in the frame range. shift and negNumber
// are 1x1 inputs that receive no gradient.
//
// Backward pass, for f = output[m, j] and g = outputGrad[m, j]:
//   - da_j += g * (b_k/(|a_j||b_k|) - a_j*f/|a_j|^2)
//   - db_k += g * (a_j/(|a_j||b_k|) - b_k*f/|b_k|^2)
type CosDistanceWithNegativeSamplesOp[T tensor.Float] struct {
	base[T]
}

// NewCosDistanceWithNegativeSamples creates a CosDistanceWithNegativeSamples node.
func NewCosDistanceWithNegativeSamples[T tensor.Float](name string, a, b, shift, negNumber Node[T]) *CosDistanceWithNegativeSamplesOp[T] {
	return &CosDistanceWithNegativeSamplesOp[T]{
		base: newBase(CosDistanceWithNegativeSamples, name, a, b, shift, negNumber),
	}
}

// scalarInput returns the integer held by the 1x1 input i.
func (n *CosDistanceWithNegativeSamplesOp[T]) scalarInput(i int) (int, bool) {
	v := n.inputs[i].Value()
	if v.Rows() != 1 || v.Cols() != 1 {
		return 0, false
	}
	x := v.Get00()
	if x < 0 || x != T(int(x)) {
		return 0, false
	}
	return int(x), true
}

func (n *CosDistanceWithNegativeSamplesOp[T]) shiftAndNeg() (shift, neg int) {
	shift, okShift := n.scalarInput(2)
	neg, okNeg := n.scalarInput(3)
	if !okShift || !okNeg {
		n.fatalf("shift %s and negNumber %s must be 1x1 non-negative integers",
			n.inputs[2].Value(), n.inputs[3].Value())
	}
	return shift, neg
}

// Validate implements Node.
func (n *CosDistanceWithNegativeSamplesOp[T]) Validate(isFinalPass bool) error {
	d, err := n.validatePair(isFinalPass)
	if err != nil {
		return err
	}
	_, okShift := n.scalarInput(2)
	neg, okNeg := n.scalarInput(3)
	if isFinalPass {
		for i, ok := range []bool{okShift, okNeg} {
			in := n.inputs[2+i]
			if !ok {
				return n.errorf("input %s must be a 1x1 non-negative integer, got %s", in.Name(), in.Value().Dims())
			}
			if in.NeedsGradient() {
				return n.errorf("input %s must not need a gradient", in.Name())
			}
		}
	}
	n.resize(neg+1, d.Cols)
	return nil
}

// RequestBuffersBeforeEvaluate implements Node.
func (n *CosDistanceWithNegativeSamplesOp[T]) RequestBuffersBeforeEvaluate(p *pool.Pool[T]) {
	n.requestTemp(p, "invNorm0")
	n.requestTemp(p, "invNorm1")
	n.requestTemp(p, "innerProduct")
	n.requestTemp(p, "normProduct")
}

// RequestBuffersBeforeGradient implements Node.
func (n *CosDistanceWithNegativeSamplesOp[T]) RequestBuffersBeforeGradient(p *pool.Pool[T]) {
	n.requestTemp(p, "invNormSquare")
	n.requestTemp(p, "temp")
}

// pairColumn returns the column of b paired with column j in output row m.
func pairColumn(j, m, shift, cols int) int {
	if m == 0 {
		return j
	}
	return ((j+m+shift-1)%cols + cols) % cols
}

// Evaluate implements Node.
func (n *CosDistanceWithNegativeSamplesOp[T]) Evaluate(fr frames.Range) Retained {
	shift, neg := n.shiftAndNeg()
	a := denseOf(n.inputs[0].ValueSlice(fr))
	b := denseOf(n.inputs[1].ValueSlice(fr))
	rows, cols := neg+1, a.Cols()
	if n.NumRows() != rows {
		n.fatalf("output has %d rows but negNumber is %d", n.NumRows(), neg)
	}

	r := &NegativeSamplesRetained[T]{
		CosRetained: CosRetained[T]{
			InvNorm0: n.inverseNorms("invNorm0", a, fr),
			InvNorm1: n.inverseNorms("invNorm1", b, fr),
		},
		InnerProduct: n.temp("innerProduct", rows, n.NumCols()),
		NormProduct:  n.temp("normProduct", rows, n.NumCols()),
	}
	inv0 := n.sliceOf(r.InvNorm0, fr).Data()
	inv1 := n.sliceOf(r.InvNorm1, fr).Data()
	ip := n.sliceOf(r.InnerProduct, fr).Data()
	np := n.sliceOf(r.NormProduct, fr).Data()
	out := n.ValueSlice(fr).Data()
	for j := 0; j < cols; j++ {
		aj := a.Column(j)
		for m := 0; m < rows; m++ {
			k := pairColumn(j, m, shift, cols)
			var dot T
			for i, v := range b.Column(k) {
				dot += aj[i] * v
			}
			idx := j*rows + m
			ip[idx] = dot
			np[idx] = inv0[j] * inv1[k]
			out[idx] = dot * np[idx]
		}
	}
	return r
}

// BackpropTo implements Node.
func (n *CosDistanceWithNegativeSamplesOp[T]) BackpropTo(inputIndex int, fr frames.Range, retained Retained) {
	r, ok := retained.(*NegativeSamplesRetained[T])
	if !ok {
		n.fatalf("gradient requires the state of the evaluation, got %v", retained)
	}
	if inputIndex != 0 && inputIndex != 1 {
		n.fatalf("no gradient flows into input %d", inputIndex)
	}
	shift, neg := n.shiftAndNeg()
	a := denseOf(n.inputs[0].ValueSlice(fr))
	b := denseOf(n.inputs[1].ValueSlice(fr))
	grad := n.inputs[inputIndex].GradientSlice(fr)
	rows, cols, dim := neg+1, a.Cols(), a.Rows()

	invSelf := n.sliceOf(r.InvNorm0, fr).Data()
	if inputIndex == 1 {
		invSelf = n.sliceOf(r.InvNorm1, fr).Data()
	}
	sq := n.temp("invNormSquare", 1, cols).Data()
	for j, v := range invSelf {
		sq[j] = v * v
	}
	ip := n.sliceOf(r.InnerProduct, fr).Data()
	np := n.sliceOf(r.NormProduct, fr).Data()
	dOut := n.GradientSlice(fr).Data()
	col := n.temp("temp", dim, 1).Data()

	for j := 0; j < cols; j++ {
		for m := 0; m < rows; m++ {
			k := pairColumn(j, m, shift, cols)
			idx := j*rows + m
			g := dOut[idx]
			f := ip[idx] * np[idx]
			// Input 0 receives into column j, input 1 into column k.
			self, other, target := a.Column(j), b.Column(k), j
			selfSq := sq[j]
			if inputIndex == 1 {
				self, other, target = b.Column(k), a.Column(j), k
				selfSq = sq[k]
			}
			for i := range col {
				col[i] = g * (other[i]*np[idx] - self[i]*f*selfSq)
			}
			grad.AddToColumn(target, col)
		}
	}
}
