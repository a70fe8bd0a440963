package tensor

import (
	"fmt"

	"github.com/pkg/errors"
)

// Dims holds the two dimensions of a matrix. A zero dimension means "not yet
// known" during validation and is inferred from connected nodes.
type Dims struct {
	Rows int
	Cols int
}

// NumElements returns Rows*Cols.
func (d Dims) NumElements() int {
	return d.Rows * d.Cols
}

// Validate checks that no dimension is negative.
func (d Dims) Validate() error {
	if d.Rows < 0 || d.Cols < 0 {
		return errors.Errorf("invalid dimensions %s (must be >= 0)", d)
	}
	return nil
}

// IsKnown reports whether both dimensions are non-zero.
func (d Dims) IsKnown() bool {
	return d.Rows > 0 && d.Cols > 0
}

// IsScalar reports whether d is 1x1.
func (d Dims) IsScalar() bool {
	return d.Rows == 1 && d.Cols == 1
}

// String formats the dimensions as "[rows x cols]".
func (d Dims) String() string {
	return fmt.Sprintf("[%d x %d]", d.Rows, d.Cols)
}
