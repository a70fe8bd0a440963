package cpu

import (
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// MultiplyAndWeightedAdd computes c = alpha*op(a)*op(b) + beta*c, where op(x) is
// x or its transpose.
//
// Sparse operands are densified. A sparse c keeps its format: the product is
// computed densely and only columns with non-zero contributions are added, so
// gradients of parameters touched by few columns stay sparse.
func MultiplyAndWeightedAdd[T tensor.Float](alpha T, a *tensor.Matrix[T], transA bool,
	b *tensor.Matrix[T], transB bool, beta T, c *tensor.Matrix[T]) {
	checkDevices("MultiplyAndWeightedAdd", a, b, c)

	m, k := a.Rows(), a.Cols()
	if transA {
		m, k = k, m
	}
	kb, n := b.Rows(), b.Cols()
	if transB {
		kb, n = n, kb
	}
	if k != kb || c.Rows() != m || c.Cols() != n {
		exceptions.Panicf("MultiplyAndWeightedAdd: shape mismatch op(a)=[%d x %d], op(b)=[%d x %d], c=%s",
			m, k, kb, n, c.Dims())
	}

	if c.IsSparse() {
		product := tensor.NewOnDevice[T](m, n, c.Device())
		gemm(alpha, dense(a), transA, dense(b), transB, 0, product)
		if beta != 1 {
			scaleSparse(beta, c)
		}
		addNonZeroColumns(product, c)
		return
	}
	gemm(alpha, dense(a), transA, dense(b), transB, beta, c)
}

// MultiplyAndAdd computes c += op(a)*op(b).
func MultiplyAndAdd[T tensor.Float](a *tensor.Matrix[T], transA bool, b *tensor.Matrix[T], transB bool, c *tensor.Matrix[T]) {
	MultiplyAndWeightedAdd(1, a, transA, b, transB, 1, c)
}

// AssignProductOf computes c = op(a)*op(b).
func AssignProductOf[T tensor.Float](c *tensor.Matrix[T], a *tensor.Matrix[T], transA bool, b *tensor.Matrix[T], transB bool) {
	if c.IsSparse() {
		c.SetZero()
	}
	MultiplyAndWeightedAdd(1, a, transA, b, transB, 0, c)
}

// gemm runs a dense column-major product through gonum's row-major BLAS.
//
// A column-major matrix is the row-major view of its transpose, so
// C = op(A)*op(B) is computed as C' = op(B)'*op(A)' on the row-major views,
// which keeps the transpose flags unchanged.
func gemm[T tensor.Float](alpha T, a *tensor.Matrix[T], transA bool, b *tensor.Matrix[T], transB bool, beta T, c *tensor.Matrix[T]) {
	cData := c.Data()
	if beta == 0 {
		clear(cData)
	}
	if c.NumElements() == 0 {
		return
	}
	if a.NumElements() == 0 || b.NumElements() == 0 {
		if beta != 0 && beta != 1 {
			for i := range cData {
				cData[i] *= beta
			}
		}
		return
	}

	tA, tB := blas.NoTrans, blas.NoTrans
	if transA {
		tA = blas.Trans
	}
	if transB {
		tB = blas.Trans
	}
	switch cd := any(cData).(type) {
	case []float32:
		av := blas32.General{Rows: a.Cols(), Cols: a.Rows(), Stride: a.Rows(), Data: any(a.Data()).([]float32)}
		bv := blas32.General{Rows: b.Cols(), Cols: b.Rows(), Stride: b.Rows(), Data: any(b.Data()).([]float32)}
		cv := blas32.General{Rows: c.Cols(), Cols: c.Rows(), Stride: c.Rows(), Data: cd}
		blas32.Gemm(tB, tA, float32(alpha), bv, av, float32(beta), cv)
	case []float64:
		av := blas64.General{Rows: a.Cols(), Cols: a.Rows(), Stride: a.Rows(), Data: any(a.Data()).([]float64)}
		bv := blas64.General{Rows: b.Cols(), Cols: b.Rows(), Stride: b.Rows(), Data: any(b.Data()).([]float64)}
		cv := blas64.General{Rows: c.Cols(), Cols: c.Rows(), Stride: c.Rows(), Data: cd}
		blas64.Gemm(tB, tA, float64(alpha), bv, av, float64(beta), cv)
	default:
		exceptions.Panicf("gemm: unsupported element type %T", cData)
	}
}

// scaleSparse multiplies every stored value of a sparse matrix by alpha.
func scaleSparse[T tensor.Float](alpha T, c *tensor.Matrix[T]) {
	if alpha == 0 {
		c.SetZero()
		return
	}
	for b := range c.BlockColumns() {
		col := c.BlockColumn(b)
		for i := range col {
			col[i] *= alpha
		}
	}
}

// addNonZeroColumns adds the columns of the dense src that hold a non-zero value into c.
func addNonZeroColumns[T tensor.Float](src, c *tensor.Matrix[T]) {
	for j := 0; j < src.Cols(); j++ {
		col := src.Column(j)
		for _, v := range col {
			if v != 0 {
				c.AddToColumn(j, col)
				break
			}
		}
	}
}
