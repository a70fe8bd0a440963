package optim

import (
	"testing"

	"github.com/born-ml/matgraph/internal/graph"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sumOf returns a validated network computing sum(a) for a 1x2 parameter a
// starting at [1, 2]; its gradient is all ones.
func sumOf(t *testing.T) (*graph.Network[float64], *nodes.Parameter[float64]) {
	a := nodes.NewParameter[float64]("a", 1, 2)
	a.SetValue(tensor.FromRows([][]float64{{1, 2}}))
	net := must.M1(graph.New[float64](nodes.NewSumElements[float64]("sum", a), graph.DefaultConfig()))
	require.NoError(t, net.Validate())
	return net, a
}

// regression returns sum((W x - y)²) with y generated by W = [2, -1].
func regression(t *testing.T) (*graph.Network[float64], *nodes.Parameter[float64]) {
	w := nodes.NewParameter[float64]("W", 1, 0)
	x := nodes.NewInput[float64]("x", 2, 4)
	x.SetValue(tensor.FromRows([][]float64{{1, 0, 1, 2}, {0, 1, 1, -1}}))
	y := nodes.NewInput[float64]("y", 1, 4)
	y.SetValue(tensor.FromRows([][]float64{{2, -1, 1, 5}}))
	diff := nodes.NewMinus[float64]("diff", nodes.NewTimes[float64]("Wx", w, x), y)
	loss := nodes.NewSumElements[float64]("loss", nodes.NewElementTimes[float64]("sq", diff, diff))
	net := must.M1(graph.New[float64](loss, graph.DefaultConfig()))
	require.NoError(t, net.Validate())
	return net, w
}

func TestSGD_Step(t *testing.T) {
	net, a := sumOf(t)
	sgd := NewSGD(net.Parameters(), SGDConfig{LR: 0.1})
	net.ComputeGradients(nil)
	sgd.Step()
	assert.InDeltaSlice(t, []float64{0.9, 1.9}, a.Value().Data(), 1e-12)

	sgd.ZeroGrad()
	assert.Equal(t, []float64{0, 0}, a.Gradient().Data())
	assert.Equal(t, 0.1, sgd.LR())
	sgd.SetLR(0.5)
	assert.Equal(t, 0.5, sgd.LR())
}

func TestSGD_Momentum(t *testing.T) {
	net, a := sumOf(t)
	sgd := NewSGD(net.Parameters(), SGDConfig{LR: 0.1, Momentum: 0.9})

	// v1 = 1, x1 = 1 - 0.1
	net.ComputeGradients(nil)
	sgd.Step()
	assert.InDelta(t, 0.9, a.Value().At(0, 0), 1e-12)

	// v2 = 0.9 + 1, x2 = 0.9 - 0.19
	net.ComputeGradients(nil)
	sgd.Step()
	assert.InDelta(t, 0.71, a.Value().At(0, 0), 1e-12)
	assert.InDelta(t, 1.71, a.Value().At(0, 1), 1e-12)
}

func TestSGD_DefaultsAndTrainable(t *testing.T) {
	x := nodes.NewInput[float64]("x", 1, 1)
	p := nodes.NewParameter[float64]("p", 1, 1)
	sgd := NewSGD([]nodes.Node[float64]{x, nil, p}, SGDConfig{})
	assert.Equal(t, 0.01, sgd.LR())
	require.Len(t, sgd.params, 1)
	assert.Same(t, nodes.Node[float64](p), sgd.params[0])
}

func TestAdam_FirstStepMovesByLR(t *testing.T) {
	net, a := sumOf(t)
	adam := NewAdam(net.Parameters(), AdamConfig{})
	assert.Equal(t, 0.001, adam.LR())

	net.ComputeGradients(nil)
	adam.Step()
	assert.Equal(t, 1, adam.Steps())
	assert.InDeltaSlice(t, []float64{0.999, 1.999}, a.Value().Data(), 1e-9)
}

func TestOptimizers_FitRegression(t *testing.T) {
	tests := []struct {
		name  string
		steps int
		make  func(params []nodes.Node[float64]) Optimizer
		delta float64
	}{
		{"sgd", 200, func(p []nodes.Node[float64]) Optimizer { return NewSGD(p, SGDConfig{LR: 0.02}) }, 1e-4},
		{"momentum", 200, func(p []nodes.Node[float64]) Optimizer {
			return NewSGD(p, SGDConfig{LR: 0.01, Momentum: 0.5})
		}, 1e-4},
		{"adam", 2000, func(p []nodes.Node[float64]) Optimizer { return NewAdam(p, AdamConfig{LR: 0.01}) }, 5e-2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, w := regression(t)
			opt := tt.make(net.Parameters())
			initial := net.Evaluate().Get00()
			for range tt.steps {
				net.ComputeGradients(nil)
				opt.Step()
			}
			final := net.Evaluate().Get00()
			assert.Less(t, final, initial)
			assert.InDeltaSlice(t, []float64{2, -1}, w.Value().Data(), tt.delta)
		})
	}
}

func TestSGD_SparseGradient(t *testing.T) {
	// W x with a sparse x only produces gradient columns for x's stored columns.
	w := nodes.NewParameter[float64]("W", 1, 4)
	w.SetValue(tensor.FromRows([][]float64{{1, 1, 1, 1}}))
	x := nodes.NewInput[float64]("x", 4, 1)
	x.SetValue(tensor.NewSparseBlockCol[float64](4, 1, []int{0}, []float64{0, 2, 0, 1}))
	net := must.M1(graph.New[float64](nodes.NewSumElements[float64]("loss", nodes.NewTimes[float64]("Wx", w, x)), graph.DefaultConfig()))
	require.NoError(t, net.Validate())

	sgd := NewSGD(net.Parameters(), SGDConfig{LR: 0.5})
	net.ComputeGradients(nil)
	sgd.Step()
	assert.InDeltaSlice(t, []float64{1, 0, 1, 0.5}, w.Value().Data(), 1e-12)
}
