// Package tensor provides the 2-D matrix storage that graph nodes read and write.
//
// Matrices are column-major so that a range of columns (one time step of a
// minibatch, or a whole minibatch) is a contiguous, zero-copy view.
package tensor

import "golang.org/x/exp/constraints"

// Float is the constraint for matrix element types.
type Float interface {
	constraints.Float
}

// DataType represents runtime type information for matrices.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// DataTypeOf returns the DataType for the element type T.
func DataTypeOf[T Float]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported type")
	}
}
