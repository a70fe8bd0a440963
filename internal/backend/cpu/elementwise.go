package cpu

import (
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/gomlx/exceptions"
)

// broadcastIndex maps an output coordinate to an operand that is either full
// sized, a row vector, a column vector or a scalar.
func broadcastIndex[T tensor.Float](op string, x *tensor.Matrix[T], rows, cols int) func(i, j int) int {
	xr, xc := x.Rows(), x.Cols()
	if (xr != rows && xr != 1) || (xc != cols && xc != 1) {
		exceptions.Panicf("%s: operand %s cannot be broadcast to [%d x %d]", op, x.Dims(), rows, cols)
	}
	return func(i, j int) int {
		if xr == 1 {
			i = 0
		}
		if xc == 1 {
			j = 0
		}
		return j*xr + i
	}
}

// AssignCombinationOf computes c = a + sign*b with broadcasting of row vectors,
// column vectors and scalars along the dimensions where an operand has size 1.
func AssignCombinationOf[T tensor.Float](c, a, b *tensor.Matrix[T], sign T) {
	checkDevices("AssignCombinationOf", c, a, b)
	c.SwitchToDense()
	a, b = dense(a), dense(b)
	cd, ad, bd := c.Data(), a.Data(), b.Data()
	if a.Dims() == c.Dims() && b.Dims() == c.Dims() {
		for i := range cd {
			cd[i] = ad[i] + sign*bd[i]
		}
		return
	}
	rows, cols := c.Rows(), c.Cols()
	ai := broadcastIndex("AssignCombinationOf", a, rows, cols)
	bi := broadcastIndex("AssignCombinationOf", b, rows, cols)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			cd[j*rows+i] = ad[ai(i, j)] + sign*bd[bi(i, j)]
		}
	}
}

// AssignSumOf computes c = a + b with broadcasting.
func AssignSumOf[T tensor.Float](c, a, b *tensor.Matrix[T]) {
	AssignCombinationOf(c, a, b, 1)
}

// AssignDifferenceOf computes c = a - b with broadcasting.
func AssignDifferenceOf[T tensor.Float](c, a, b *tensor.Matrix[T]) {
	AssignCombinationOf(c, a, b, -1)
}

// ScaleAndAdd computes c += alpha*a. A sparse a only touches its stored columns;
// a sparse c is converted to dense first.
func ScaleAndAdd[T tensor.Float](alpha T, a, c *tensor.Matrix[T]) {
	checkDevices("ScaleAndAdd", a, c)
	checkSameDims("ScaleAndAdd", a, c)
	c.SwitchToDense()
	cd := c.Data()
	if a.IsSparse() {
		rows := a.Rows()
		for b, j := range a.BlockColumns() {
			src := a.BlockColumn(b)
			for i, v := range src {
				cd[j*rows+i] += alpha * v
			}
		}
		return
	}
	for i, v := range a.Data() {
		cd[i] += alpha * v
	}
}

// AddTo computes c += a.
func AddTo[T tensor.Float](c, a *tensor.Matrix[T]) {
	ScaleAndAdd(1, a, c)
}

// SubtractFrom computes c -= a.
func SubtractFrom[T tensor.Float](c, a *tensor.Matrix[T]) {
	ScaleAndAdd(-1, a, c)
}

// AssignScaled computes c = alpha*a.
func AssignScaled[T tensor.Float](c *tensor.Matrix[T], alpha T, a *tensor.Matrix[T]) {
	checkDevices("AssignScaled", a, c)
	checkSameDims("AssignScaled", a, c)
	c.SwitchToDense()
	cd := c.Data()
	for i, v := range dense(a).Data() {
		cd[i] = alpha * v
	}
}

// AddScalar adds v to every element of c.
func AddScalar[T tensor.Float](c *tensor.Matrix[T], v T) {
	c.SwitchToDense()
	cd := c.Data()
	for i := range cd {
		cd[i] += v
	}
}

// AssignElementProductOf computes c = a ⊙ b.
func AssignElementProductOf[T tensor.Float](c, a, b *tensor.Matrix[T]) {
	checkDevices("AssignElementProductOf", c, a, b)
	checkSameDims("AssignElementProductOf", a, b)
	checkSameDims("AssignElementProductOf", a, c)
	cd, ad, bd := c.Data(), dense(a).Data(), dense(b).Data()
	for i := range cd {
		cd[i] = ad[i] * bd[i]
	}
}

// AddElementProductOf computes c += a ⊙ b.
func AddElementProductOf[T tensor.Float](c, a, b *tensor.Matrix[T]) {
	checkDevices("AddElementProductOf", c, a, b)
	checkSameDims("AddElementProductOf", a, b)
	checkSameDims("AddElementProductOf", a, c)
	c.SwitchToDense()
	cd, ad, bd := c.Data(), dense(a).Data(), dense(b).Data()
	for i := range cd {
		cd[i] += ad[i] * bd[i]
	}
}

// ElementMultiplyWith computes c ⊙= a.
func ElementMultiplyWith[T tensor.Float](c, a *tensor.Matrix[T]) {
	checkDevices("ElementMultiplyWith", c, a)
	checkSameDims("ElementMultiplyWith", a, c)
	cd, ad := c.Data(), dense(a).Data()
	for i := range cd {
		cd[i] *= ad[i]
	}
}

// RowElementMultiplyWith scales column j of c by row[0, j]. row must be 1 x c.Cols().
func RowElementMultiplyWith[T tensor.Float](c, row *tensor.Matrix[T]) {
	checkDevices("RowElementMultiplyWith", c, row)
	if row.Rows() != 1 || row.Cols() != c.Cols() {
		exceptions.Panicf("RowElementMultiplyWith: row vector %s does not match %s", row.Dims(), c.Dims())
	}
	rd := dense(row).Data()
	for j := 0; j < c.Cols(); j++ {
		col := c.Column(j)
		for i := range col {
			col[i] *= rd[j]
		}
	}
}

// ColumnElementMultiplyWith scales row i of c by col[i, 0]. col must be c.Rows() x 1.
func ColumnElementMultiplyWith[T tensor.Float](c, col *tensor.Matrix[T]) {
	checkDevices("ColumnElementMultiplyWith", c, col)
	if col.Cols() != 1 || col.Rows() != c.Rows() {
		exceptions.Panicf("ColumnElementMultiplyWith: column vector %s does not match %s", col.Dims(), c.Dims())
	}
	vd := dense(col).Data()
	for j := 0; j < c.Cols(); j++ {
		cc := c.Column(j)
		for i := range cc {
			cc[i] *= vd[i]
		}
	}
}

// AssignSafeInverseOf computes c = 1/a element-wise, mapping zeros to zero.
func AssignSafeInverseOf[T tensor.Float](c, a *tensor.Matrix[T]) {
	checkDevices("AssignSafeInverseOf", c, a)
	checkSameDims("AssignSafeInverseOf", a, c)
	cd, ad := c.Data(), dense(a).Data()
	for i, v := range ad {
		if v == 0 {
			cd[i] = 0
			continue
		}
		cd[i] = 1 / v
	}
}
