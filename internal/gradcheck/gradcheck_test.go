package gradcheck

import (
	"testing"

	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/graph"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func network[T tensor.Float](t *testing.T, root nodes.Node[T]) *graph.Network[T] {
	net := must.M1(graph.New(root, graph.DefaultConfig()))
	require.NoError(t, net.Validate())
	return net
}

func TestCheck_CorrectGradients(t *testing.T) {
	a := nodes.NewParameter[float64]("a", 2, 3)
	a.SetValue(tensor.FromRows([][]float64{{1, -2, 3}, {0.5, 4, -1}}))
	b := nodes.NewParameter[float64]("b", 3, 2)
	b.SetValue(tensor.FromRows([][]float64{{2, 1}, {-1, 0}, {0.25, 3}}))
	net := network(t, nodes.NewTimes[float64]("ab", a, b))

	seed := tensor.FromRows([][]float64{{1, 2}, {-3, 0.5}})
	before := a.Value().Clone()
	res, err := Check(net, []nodes.Node[float64]{a, b}, seed, DefaultOptions())
	require.NoError(t, err)
	assert.NoError(t, res.Err())
	assert.Equal(t, 12, res.Checked)
	assert.Less(t, res.MaxError, 1e-6)
	assert.Equal(t, before.ToRows(), a.Value().ToRows())
}

func TestCheck_Float32(t *testing.T) {
	a := nodes.NewParameter[float32]("a", 2, 2)
	a.SetValue(tensor.FromRows([][]float32{{1, 2}, {3, 4}}))
	net := network(t, nodes.NewElementTimes[float32]("square", a, a))
	res, err := Check(net, []nodes.Node[float32]{a}, nil, Float32Options())
	require.NoError(t, err)
	assert.NoError(t, res.Err())
}

// doublingNegate back-propagates twice the correct gradient.
type doublingNegate struct {
	*nodes.NegateOp[float64]
}

func (n *doublingNegate) BackpropTo(inputIndex int, fr frames.Range, _ nodes.Retained) {
	cpu.ScaleAndAdd(-2, n.GradientSlice(fr), n.Inputs()[inputIndex].GradientSlice(fr))
}

func TestCheck_DetectsWrongGradient(t *testing.T) {
	a := nodes.NewParameter[float64]("a", 2, 2)
	a.SetValue(tensor.FromRows([][]float64{{1, 2}, {3, 4}}))
	wrong := &doublingNegate{NegateOp: nodes.NewNegate[float64]("neg", a)}
	net := network[float64](t, wrong)

	res, err := Check(net, []nodes.Node[float64]{a}, nil, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, res.Mismatches, 4)
	m := res.Mismatches[0]
	assert.Equal(t, "a", m.Node)
	assert.InDelta(t, -2, m.Analytic, 1e-12)
	assert.InDelta(t, -1, m.Numeric, 1e-6)
	assert.ErrorContains(t, res.Err(), "4 of 4 gradient elements mismatch")
	assert.Contains(t, m.String(), "a[0, 0]")
}

func TestCheck_InvalidTargets(t *testing.T) {
	a := nodes.NewParameter[float64]("a", 2, 2)
	x := nodes.NewInput[float64]("x", 2, 2)
	net := network(t, nodes.NewPlus[float64]("sum", a, x))

	_, err := Check(net, []nodes.Node[float64]{x}, nil, DefaultOptions())
	assert.ErrorContains(t, err, "does not need a gradient")

	unvalidated := must.M1(graph.New[float64](nodes.NewNegate[float64]("neg", a), graph.DefaultConfig()))
	_, err = Check(unvalidated, []nodes.Node[float64]{a}, nil, DefaultOptions())
	assert.ErrorContains(t, err, "must be validated")
}
