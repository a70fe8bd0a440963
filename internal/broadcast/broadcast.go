// Package broadcast decides how two operands of an element-wise binary
// operator combine, and how a gradient flows back into an operand whose shape
// differs from the result.
//
// Forward cases, tried in order:
//
//	Match           both operands have the same dimensions
//	RowBroadcast    one operand is a single row with the same column count
//	ColumnBroadcast one operand is a single column whose row count divides the
//	                other operand's element count (includes scalars); the
//	                other operand is viewed as vectorRows x n and the result
//	                keeps its dimensions
//	ColumnTiling    the wider operand's column count is a multiple of the
//	                narrower one's; each narrow column is repeated ratio times
//
// Column tiling is only defined when no operand carries a minibatch layout.
package broadcast

import (
	"fmt"

	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/pkg/errors"
)

// Case is a forward broadcast pattern.
type Case int

// Forward broadcast cases.
const (
	Match Case = iota
	RowBroadcast
	ColumnBroadcast
	ColumnTiling
)

// String implements fmt.Stringer.
func (c Case) String() string {
	switch c {
	case Match:
		return "Match"
	case RowBroadcast:
		return "RowBroadcast"
	case ColumnBroadcast:
		return "ColumnBroadcast"
	case ColumnTiling:
		return "ColumnTiling"
	default:
		return fmt.Sprintf("Case(%d)", int(c))
	}
}

// Resolution describes how two operands combine.
type Resolution struct {
	Case Case

	// Result holds the dimensions of the combined result.
	Result tensor.Dims

	// Small is the index (0 or 1) of the operand that gets broadcast, or -1 for Match.
	Small int

	// Expanded holds, for ColumnBroadcast, the dimensions the large operand is
	// reshaped to so that it lines up with the column vector; for ColumnTiling,
	// Expanded.Cols is the tiling ratio.
	Expanded tensor.Dims
}

// ResolveForward returns how operands of dimensions d0 and d1 combine.
// hasLayout reports whether either operand carries a minibatch layout.
func ResolveForward(d0, d1 tensor.Dims, hasLayout bool) (Resolution, error) {
	r0, c0, r1, c1 := d0.Rows, d0.Cols, d1.Rows, d1.Cols
	switch {
	case r0 == r1 && c0 == c1:
		return Resolution{Case: Match, Result: d0, Small: -1}, nil

	case (r0 == 1 || r1 == 1) && c0 == c1:
		res := Resolution{Case: RowBroadcast, Result: tensor.Dims{Rows: max(r0, r1), Cols: c0}, Small: 1}
		if r0 == 1 {
			res.Small = 0
		}
		return res, nil

	case c0 == 1 && r0 > 0 && (r1*c1)%r0 == 0:
		return Resolution{
			Case:     ColumnBroadcast,
			Result:   d1,
			Small:    0,
			Expanded: tensor.Dims{Rows: r0, Cols: r1 * c1 / r0},
		}, nil

	case c1 == 1 && r1 > 0 && (r0*c0)%r1 == 0:
		return Resolution{
			Case:     ColumnBroadcast,
			Result:   d0,
			Small:    1,
			Expanded: tensor.Dims{Rows: r1, Cols: r0 * c0 / r1},
		}, nil

	case r0 == r1 && c0 != c1 && min(c0, c1) > 0 && max(c0, c1)%min(c0, c1) == 0:
		if hasLayout {
			return Resolution{}, errors.Errorf(
				"column tiling of %s and %s is not allowed when columns are samples of a minibatch", d0, d1)
		}
		res := Resolution{
			Case:     ColumnTiling,
			Result:   tensor.Dims{Rows: r0, Cols: max(c0, c1)},
			Small:    1,
			Expanded: tensor.Dims{Rows: r0, Cols: max(c0, c1) / min(c0, c1)},
		}
		if c0 < c1 {
			res.Small = 0
		}
		return res, nil
	}
	return Resolution{}, errors.Errorf("dimensions %s and %s cannot be combined", d0, d1)
}

// Reduction is a backward reduction pattern: how the gradient of a result
// with dimensions upstream accumulates into an operand.
type Reduction int

// Backward reductions.
const (
	ReduceInvalid Reduction = iota
	ReduceNone
	ReduceScalar
	ReduceColumnVector
	ReduceRowVector
	ReduceTiles
)

// String implements fmt.Stringer.
func (r Reduction) String() string {
	switch r {
	case ReduceInvalid:
		return "ReduceInvalid"
	case ReduceNone:
		return "ReduceNone"
	case ReduceScalar:
		return "ReduceScalar"
	case ReduceColumnVector:
		return "ReduceColumnVector"
	case ReduceRowVector:
		return "ReduceRowVector"
	case ReduceTiles:
		return "ReduceTiles"
	default:
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
}

// NeedsMasking reports whether the reduction sums over columns, so gap columns
// of the upstream gradient must be zeroed first.
func (r Reduction) NeedsMasking() bool {
	return r == ReduceScalar || r == ReduceColumnVector
}

// ResolveBackward returns how a gradient of dimensions upstream reduces into an
// operand of dimensions operand.
func ResolveBackward(operand, upstream tensor.Dims) Reduction {
	rc, cc, rp, cp := operand.Rows, operand.Cols, upstream.Rows, upstream.Cols
	switch {
	case rc == rp && cc == cp:
		return ReduceNone
	case rc == 1 && cc == 1:
		return ReduceScalar
	case cc == 1 && (cp != 1 || rp != rc) && rc > 0 && (rp*cp)%rc == 0:
		return ReduceColumnVector
	case rc == 1 && rp != 1 && cc == cp:
		return ReduceRowVector
	case cc != 1 && cc > 0 && rc == rp && cp%cc == 0:
		return ReduceTiles
	}
	return ReduceInvalid
}
