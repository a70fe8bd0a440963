// Package gradcheck compares back-propagated gradients with central finite
// differences.
//
// The checked function is the inner product of the network root with a fixed
// seed matrix (all ones by default), so that its gradient with respect to the
// root is exactly the seed.
package gradcheck

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/graph"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/pkg/errors"
)

// Options controls the finite-difference comparison.
type Options struct {
	// Epsilon is the perturbation applied to each element.
	Epsilon float64

	// AbsTolerance and RelTolerance bound the accepted difference:
	// |analytic - numeric| <= AbsTolerance + RelTolerance*max(|analytic|, |numeric|).
	AbsTolerance float64
	RelTolerance float64
}

// DefaultOptions returns tolerances suited to float64 networks.
func DefaultOptions() Options {
	return Options{Epsilon: 1e-6, AbsTolerance: 1e-6, RelTolerance: 1e-4}
}

// Float32Options returns tolerances suited to float32 networks.
func Float32Options() Options {
	return Options{Epsilon: 1e-2, AbsTolerance: 1e-2, RelTolerance: 5e-2}
}

// Mismatch is one gradient element outside tolerance.
type Mismatch struct {
	Node     string
	Row, Col int
	Analytic float64
	Numeric  float64
}

// String implements fmt.Stringer.
func (m Mismatch) String() string {
	return fmt.Sprintf("%s[%d, %d]: analytic %g, numeric %g", m.Node, m.Row, m.Col, m.Analytic, m.Numeric)
}

// Result summarizes a check.
type Result struct {
	Checked    int
	MaxError   float64
	Mismatches []Mismatch
}

// Err returns an error describing the mismatches, or nil.
func (r Result) Err() error {
	if len(r.Mismatches) == 0 {
		return nil
	}
	shown := r.Mismatches
	if len(shown) > 5 {
		shown = shown[:5]
	}
	parts := make([]string, len(shown))
	for i, m := range shown {
		parts[i] = m.String()
	}
	return errors.Errorf("gradcheck: %d of %d gradient elements mismatch (max error %g): %s",
		len(r.Mismatches), r.Checked, r.MaxError, strings.Join(parts, "; "))
}

// Check back-propagates seed (ones when nil) through net, then perturbs every
// element of every target's value and compares the resulting change of
// <seed, root> with the gradient of the target. Targets must need a gradient
// and hold dense values; their values are restored afterwards. net must be
// validated.
func Check[T tensor.Float](net *graph.Network[T], targets []nodes.Node[T], seed *tensor.Matrix[T], opts Options) (Result, error) {
	root := net.Root()
	if seed == nil {
		seed = tensor.Ones[T](root.NumRows(), root.NumCols())
	}
	seed.MoveToDevice(root.Device())
	for _, target := range targets {
		if !target.NeedsGradient() {
			return Result{}, errors.Errorf("gradcheck: %s %q does not need a gradient", target.OperationName(), target.Name())
		}
		if target.Value().IsSparse() {
			return Result{}, errors.Errorf("gradcheck: %s %q has a sparse value", target.OperationName(), target.Name())
		}
	}

	if err := net.TryForward(); err != nil {
		return Result{}, err
	}
	if err := net.TryBackward(seed); err != nil {
		return Result{}, err
	}
	analytic := make([]*tensor.Matrix[T], len(targets))
	for i, target := range targets {
		analytic[i] = target.Gradient().ToDense()
	}

	objective := func() (float64, error) {
		value, err := net.TryEvaluate()
		if err != nil {
			return 0, err
		}
		return float64(cpu.InnerProductOfMatrices(seed, value)), nil
	}

	var res Result
	for ti, target := range targets {
		value := target.Value()
		for j := 0; j < value.Cols(); j++ {
			for i := 0; i < value.Rows(); i++ {
				orig := value.At(i, j)
				value.Set(i, j, orig+T(opts.Epsilon))
				plus, err := objective()
				if err != nil {
					value.Set(i, j, orig)
					return res, err
				}
				value.Set(i, j, orig-T(opts.Epsilon))
				minus, err := objective()
				value.Set(i, j, orig)
				if err != nil {
					return res, err
				}

				numeric := (plus - minus) / (2 * opts.Epsilon)
				got := float64(analytic[ti].At(i, j))
				diff := math.Abs(got - numeric)
				res.Checked++
				res.MaxError = max(res.MaxError, diff)
				if diff > opts.AbsTolerance+opts.RelTolerance*max(math.Abs(got), math.Abs(numeric)) {
					res.Mismatches = append(res.Mismatches, Mismatch{
						Node: target.Name(), Row: i, Col: j, Analytic: got, Numeric: numeric,
					})
				}
			}
		}
	}
	return res, nil
}
