package cpu

import (
	"math"

	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/chewxy/math32"
	"github.com/gomlx/exceptions"
)

// SumOfElements returns the sum of all elements of a.
func SumOfElements[T tensor.Float](a *tensor.Matrix[T]) T {
	var sum T
	if a.IsSparse() {
		for b := range a.BlockColumns() {
			for _, v := range a.BlockColumn(b) {
				sum += v
			}
		}
		return sum
	}
	for _, v := range a.Data() {
		sum += v
	}
	return sum
}

// InnerProductOfMatrices returns the sum of a ⊙ b.
func InnerProductOfMatrices[T tensor.Float](a, b *tensor.Matrix[T]) T {
	checkDevices("InnerProductOfMatrices", a, b)
	checkSameDims("InnerProductOfMatrices", a, b)
	ad, bd := dense(a).Data(), dense(b).Data()
	var sum T
	for i, v := range ad {
		sum += v * bd[i]
	}
	return sum
}

// AssignInnerProductOf computes per-column (colWise, c is 1 x cols) or per-row
// (c is rows x 1) inner products of a and b.
func AssignInnerProductOf[T tensor.Float](c, a, b *tensor.Matrix[T], colWise bool) {
	checkDevices("AssignInnerProductOf", c, a, b)
	checkSameDims("AssignInnerProductOf", a, b)
	rows, cols := a.Rows(), a.Cols()
	ad, bd := dense(a).Data(), dense(b).Data()
	cd := c.Data()
	if colWise {
		if c.Rows() != 1 || c.Cols() != cols {
			exceptions.Panicf("AssignInnerProductOf: result %s, expected [1 x %d]", c.Dims(), cols)
		}
		forColumns(cols, func(start, end int) {
			for j := start; j < end; j++ {
				var sum T
				for i := 0; i < rows; i++ {
					sum += ad[j*rows+i] * bd[j*rows+i]
				}
				cd[j] = sum
			}
		})
		return
	}
	if c.Rows() != rows || c.Cols() != 1 {
		exceptions.Panicf("AssignInnerProductOf: result %s, expected [%d x 1]", c.Dims(), rows)
	}
	clear(cd)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			cd[i] += ad[j*rows+i] * bd[j*rows+i]
		}
	}
}

// AssignColumnSumsOf computes c[0, j] = sum_i a[i, j]; c must be 1 x a.Cols().
func AssignColumnSumsOf[T tensor.Float](c, a *tensor.Matrix[T]) {
	checkDevices("AssignColumnSumsOf", c, a)
	if c.Rows() != 1 || c.Cols() != a.Cols() {
		exceptions.Panicf("AssignColumnSumsOf: result %s, expected [1 x %d]", c.Dims(), a.Cols())
	}
	cd := c.Data()
	a = dense(a)
	for j := 0; j < a.Cols(); j++ {
		var sum T
		for _, v := range a.Column(j) {
			sum += v
		}
		cd[j] = sum
	}
}

// AssignVectorNorm2Of computes the L2 norm of every column of a into the 1 x cols matrix c.
func AssignVectorNorm2Of[T tensor.Float](c, a *tensor.Matrix[T]) {
	checkDevices("AssignVectorNorm2Of", c, a)
	if c.Rows() != 1 || c.Cols() != a.Cols() {
		exceptions.Panicf("AssignVectorNorm2Of: result %s, expected [1 x %d]", c.Dims(), a.Cols())
	}
	cd := c.Data()
	a = dense(a)
	forColumns(a.Cols(), func(start, end int) {
		for j := start; j < end; j++ {
			var sum T
			for _, v := range a.Column(j) {
				sum += v * v
			}
			cd[j] = Sqrt(sum)
		}
	})
}

// Sqrt returns the square root of x in the precision of T.
func Sqrt[T tensor.Float](x T) T {
	switch v := any(x).(type) {
	case float32:
		return T(math32.Sqrt(v))
	default:
		return T(math.Sqrt(float64(x)))
	}
}

// AddRowSumsOf computes c[i, 0] += alpha * sum_j a[i, j]; c must be a.Rows() x 1.
func AddRowSumsOf[T tensor.Float](c *tensor.Matrix[T], alpha T, a *tensor.Matrix[T]) {
	checkDevices("AddRowSumsOf", c, a)
	if c.Cols() != 1 || c.Rows() != a.Rows() {
		exceptions.Panicf("AddRowSumsOf: result %s, expected [%d x 1]", c.Dims(), a.Rows())
	}
	c.SwitchToDense()
	cd := c.Data()
	a = dense(a)
	for j := 0; j < a.Cols(); j++ {
		for i, v := range a.Column(j) {
			cd[i] += alpha * v
		}
	}
}

// AddColumnSumsOf computes c[0, j] += alpha * sum_i a[i, j]; c must be 1 x a.Cols().
func AddColumnSumsOf[T tensor.Float](c *tensor.Matrix[T], alpha T, a *tensor.Matrix[T]) {
	checkDevices("AddColumnSumsOf", c, a)
	if c.Rows() != 1 || c.Cols() != a.Cols() {
		exceptions.Panicf("AddColumnSumsOf: result %s, expected [1 x %d]", c.Dims(), a.Cols())
	}
	c.SwitchToDense()
	cd := c.Data()
	a = dense(a)
	for j := 0; j < a.Cols(); j++ {
		var sum T
		for _, v := range a.Column(j) {
			sum += v
		}
		cd[j] += alpha * sum
	}
}
