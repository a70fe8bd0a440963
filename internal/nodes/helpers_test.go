package nodes_test

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/gradcheck"
	"github.com/born-ml/matgraph/internal/graph"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/require"
)

// approx compares row-major literals up to rounding.
var approx = cmpopts.EquateApprox(0, 1e-9)

func requireRows(t *testing.T, want [][]float64, got *tensor.Matrix[float64]) {
	t.Helper()
	if diff := cmp.Diff(want, got.ToRows(), approx); diff != "" {
		t.Fatalf("unexpected matrix (-want +got):\n%s", diff)
	}
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func param(name string, rows [][]float64) *nodes.Parameter[float64] {
	p := nodes.NewParameter[float64](name, len(rows), len(rows[0]))
	p.SetValue(tensor.FromRows(rows))
	return p
}

func randomParam(rng *rand.Rand, name string, rows, cols int) *nodes.Parameter[float64] {
	m := tensor.New[float64](rows, cols)
	for i, data := 0, m.Data(); i < len(data); i++ {
		data[i] = rng.NormFloat64()
	}
	p := nodes.NewParameter[float64](name, rows, cols)
	p.SetValue(m)
	return p
}

func constant(name string, rows [][]float64) *nodes.Input[float64] {
	in := nodes.NewInput[float64](name, len(rows), len(rows[0]))
	in.SetValue(tensor.FromRows(rows))
	return in
}

func scalar(name string, v float64) *nodes.Input[float64] {
	return constant(name, [][]float64{{v}})
}

// minibatch returns an input with the given layout filled with normal
// values, and zeros in the gap columns.
func minibatch(rng *rand.Rand, name string, rows int, layout *frames.Layout) *nodes.Input[float64] {
	in := nodes.NewMinibatchInput[float64](name, rows, layout)
	m := tensor.New[float64](rows, layout.NumCols())
	for s := 0; s < layout.NumParallelSequences(); s++ {
		for ti := 0; ti < layout.NumTimeSteps(); ti++ {
			if layout.IsGap(s, ti) {
				continue
			}
			j := layout.ColumnIndex(s, ti)
			for i := 0; i < rows; i++ {
				m.Set(i, j, rng.NormFloat64())
			}
		}
	}
	in.SetValue(m)
	return in
}

func newNetwork(t *testing.T, root nodes.Node[float64], cfg graph.Config) *graph.Network[float64] {
	t.Helper()
	net := must.M1(graph.New(root, cfg))
	require.NoError(t, net.Validate())
	return net
}

func evaluate(t *testing.T, root nodes.Node[float64]) *tensor.Matrix[float64] {
	t.Helper()
	return newNetwork(t, root, graph.DefaultConfig()).Evaluate()
}

// checkGradients compares the gradients of every parameter under root with
// finite differences, over the whole minibatch and frame by frame.
func checkGradients(t *testing.T, root nodes.Node[float64]) {
	t.Helper()
	for _, perFrame := range []bool{false, true} {
		cfg := graph.DefaultConfig()
		cfg.PerFrame = perFrame
		cfg.PoisonReleasedBuffers = true
		net := newNetwork(t, root, cfg)
		res, err := gradcheck.Check(net, net.Parameters(), nil, gradcheck.DefaultOptions())
		require.NoError(t, err, "per frame: %v", perFrame)
		require.Positive(t, res.Checked)
		require.NoError(t, res.Err(), "per frame: %v", perFrame)
	}
}

// projectedLoss returns sum(p * op) for a random row vector p, so that every
// output element of op contributes with a different weight.
func projectedLoss(t *testing.T, rng *rand.Rand, op nodes.Node[float64]) nodes.Node[float64] {
	t.Helper()
	rows := newNetwork(t, op, graph.DefaultConfig()).Root().NumRows()
	proj := randomParam(rng, "projection", 1, rows)
	return nodes.NewSumElements[float64]("loss", nodes.NewTimes[float64]("projected", proj, op))
}
