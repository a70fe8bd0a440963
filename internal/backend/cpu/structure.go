package cpu

import (
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/gomlx/exceptions"
)

// AssignTransposeOf computes c = a'.
func AssignTransposeOf[T tensor.Float](c, a *tensor.Matrix[T]) {
	checkDevices("AssignTransposeOf", c, a)
	if c.Rows() != a.Cols() || c.Cols() != a.Rows() {
		exceptions.Panicf("AssignTransposeOf: result %s does not match transposed %s", c.Dims(), a.Dims())
	}
	a = dense(a)
	rows, cols := a.Rows(), a.Cols()
	ad, cd := a.Data(), c.Data()
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			cd[i*cols+j] = ad[j*rows+i]
		}
	}
}

// AddTransposeOf computes c += a'.
func AddTransposeOf[T tensor.Float](c, a *tensor.Matrix[T]) {
	checkDevices("AddTransposeOf", c, a)
	if c.Rows() != a.Cols() || c.Cols() != a.Rows() {
		exceptions.Panicf("AddTransposeOf: result %s does not match transposed %s", c.Dims(), a.Dims())
	}
	c.SwitchToDense()
	a = dense(a)
	rows, cols := a.Rows(), a.Cols()
	ad, cd := a.Data(), c.Data()
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			cd[i*cols+j] += ad[j*rows+i]
		}
	}
}

// AssignDiagonalValuesTo writes the diagonal of the square matrix a into the 1 x n matrix c.
func AssignDiagonalValuesTo[T tensor.Float](c, a *tensor.Matrix[T]) {
	checkDevices("AssignDiagonalValuesTo", c, a)
	n := a.Rows()
	if a.Cols() != n || c.Rows() != 1 || c.Cols() != n {
		exceptions.Panicf("AssignDiagonalValuesTo: input %s must be square and result %s must be [1 x %d]",
			a.Dims(), c.Dims(), n)
	}
	cd := c.Data()
	for i := 0; i < n; i++ {
		cd[i] = a.At(i, i)
	}
}

// AddToDiagonal adds the 1 x n row vector diag onto the diagonal of the square matrix c.
func AddToDiagonal[T tensor.Float](c, diag *tensor.Matrix[T]) {
	checkDevices("AddToDiagonal", c, diag)
	n := c.Rows()
	if c.Cols() != n || diag.NumElements() != n {
		exceptions.Panicf("AddToDiagonal: matrix %s must be square with %s diagonal values", c.Dims(), diag.Dims())
	}
	c.SwitchToDense()
	cd, dd := c.Data(), dense(diag).Data()
	for i := 0; i < n; i++ {
		cd[i*n+i] += dd[i]
	}
}

// AssignKhatriRaoProductOf computes the column-wise Kronecker product:
// column j of c is a[:, j] ⊗ b[:, j] laid out as the column-major reshape of
// the outer product a[:, j]*b[:, j]', i.e. c[i0 + i1*ra, j] = a[i0, j]*b[i1, j].
func AssignKhatriRaoProductOf[T tensor.Float](c, a, b *tensor.Matrix[T]) {
	checkDevices("AssignKhatriRaoProductOf", c, a, b)
	ra, rb, cols := a.Rows(), b.Rows(), a.Cols()
	if b.Cols() != cols || c.Rows() != ra*rb || c.Cols() != cols {
		exceptions.Panicf("AssignKhatriRaoProductOf: a %s, b %s, result %s", a.Dims(), b.Dims(), c.Dims())
	}
	a, b = dense(a), dense(b)
	forColumns(cols, func(start, end int) {
		for j := start; j < end; j++ {
			ac, bc, cc := a.Column(j), b.Column(j), c.Column(j)
			for i1 := 0; i1 < rb; i1++ {
				for i0 := 0; i0 < ra; i0++ {
					cc[i1*ra+i0] = ac[i0] * bc[i1]
				}
			}
		}
	})
}

// AddColumnReshapeProductOf is the gradient companion of AssignKhatriRaoProductOf.
// Each column of g is reshaped into a (c.Rows() x other.Rows()) matrix G_j when
// transposeG is false, or (other.Rows() x c.Rows()) when true, and
// c[:, j] += op(G_j) * other[:, j].
func AddColumnReshapeProductOf[T tensor.Float](c, g, other *tensor.Matrix[T], transposeG bool) {
	checkDevices("AddColumnReshapeProductOf", c, g, other)
	rc, ro, cols := c.Rows(), other.Rows(), c.Cols()
	if g.Rows() != rc*ro || g.Cols() != cols || other.Cols() != cols {
		exceptions.Panicf("AddColumnReshapeProductOf: result %s, gradient %s, other %s", c.Dims(), g.Dims(), other.Dims())
	}
	c.SwitchToDense()
	g, other = dense(g), dense(other)
	forColumns(cols, func(start, end int) {
		for j := start; j < end; j++ {
			gc, oc, cc := g.Column(j), other.Column(j), c.Column(j)
			if !transposeG {
				// G_j is rc x ro, element (i, k) at gc[k*rc+i].
				for k := 0; k < ro; k++ {
					for i := 0; i < rc; i++ {
						cc[i] += gc[k*rc+i] * oc[k]
					}
				}
				continue
			}
			// G_j is ro x rc, element (k, i) at gc[i*ro+k]; op(G_j) = G_j'.
			for i := 0; i < rc; i++ {
				var sum T
				for k := 0; k < ro; k++ {
					sum += gc[i*ro+k] * oc[k]
				}
				cc[i] += sum
			}
		}
	})
}

// AssignStridedColumnsOf gathers columns {j*stride + k : j < dst.Cols()} of src into dst.
func AssignStridedColumnsOf[T tensor.Float](dst, src *tensor.Matrix[T], stride, k int) {
	checkDevices("AssignStridedColumnsOf", dst, src)
	if dst.Rows() != src.Rows() || (dst.Cols()-1)*stride+k >= src.Cols() {
		exceptions.Panicf("AssignStridedColumnsOf: cannot gather %s from %s with stride %d offset %d",
			dst.Dims(), src.Dims(), stride, k)
	}
	src = dense(src)
	for j := 0; j < dst.Cols(); j++ {
		copy(dst.Column(j), src.Column(j*stride+k))
	}
}

// AddToStridedColumns scatters column j of src into column j*stride + k of c, accumulating.
func AddToStridedColumns[T tensor.Float](c, src *tensor.Matrix[T], stride, k int) {
	checkDevices("AddToStridedColumns", c, src)
	if c.Rows() != src.Rows() || (src.Cols()-1)*stride+k >= c.Cols() {
		exceptions.Panicf("AddToStridedColumns: cannot scatter %s into %s with stride %d offset %d",
			src.Dims(), c.Dims(), stride, k)
	}
	src = dense(src)
	for j := 0; j < src.Cols(); j++ {
		c.AddToColumn(j*stride+k, src.Column(j))
	}
}

// AssignStridedRowsOf gathers rows {i*stride + k : i < dst.Rows()} of src into dst.
func AssignStridedRowsOf[T tensor.Float](dst, src *tensor.Matrix[T], stride, k int) {
	checkDevices("AssignStridedRowsOf", dst, src)
	if dst.Cols() != src.Cols() || (dst.Rows()-1)*stride+k >= src.Rows() {
		exceptions.Panicf("AssignStridedRowsOf: cannot gather %s from %s with stride %d offset %d",
			dst.Dims(), src.Dims(), stride, k)
	}
	src = dense(src)
	for j := 0; j < dst.Cols(); j++ {
		dc, sc := dst.Column(j), src.Column(j)
		for i := range dc {
			dc[i] = sc[i*stride+k]
		}
	}
}

// AddToStridedRows scatters rows i of src into rows i*stride + k of c, accumulating.
func AddToStridedRows[T tensor.Float](c, src *tensor.Matrix[T], stride, k int) {
	checkDevices("AddToStridedRows", c, src)
	if c.Cols() != src.Cols() || (src.Rows()-1)*stride+k >= c.Rows() {
		exceptions.Panicf("AddToStridedRows: cannot scatter %s into %s with stride %d offset %d",
			src.Dims(), c.Dims(), stride, k)
	}
	c.SwitchToDense()
	src = dense(src)
	for j := 0; j < src.Cols(); j++ {
		cc, sc := c.Column(j), src.Column(j)
		for i, v := range sc {
			cc[i*stride+k] += v
		}
	}
}
