package graph

import (
	"testing"

	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/pool"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/google/uuid"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cosineLoss builds sum(cos(W x, U x)) over a minibatch of 2 sequences of
// lengths 3 and 2.
func cosineLoss() (loss nodes.Node[float64], w, u *nodes.Parameter[float64]) {
	layout := frames.NewLayoutFromLengths(3, 2)
	x := nodes.NewMinibatchInput[float64]("x", 2, layout)
	x.SetValue(tensor.FromRows([][]float64{
		{1, 2, 3, 4, 5, 0},
		{0, 1, -1, 2, 1, 0},
	}))
	w = nodes.NewParameter[float64]("W", 3, 0)
	w.SetValue(tensor.FromRows([][]float64{{1, 0}, {0, 1}, {1, 1}}))
	u = nodes.NewParameter[float64]("U", 0, 0)
	u.SetValue(tensor.FromRows([][]float64{{2, 1}, {0, 1}, {1, -1}}))
	cos := nodes.NewCosDistance[float64]("cos", nodes.NewTimes[float64]("Wx", w, x), nodes.NewTimes[float64]("Ux", u, x))
	return nodes.NewSumElements[float64]("loss", cos), w, u
}

func TestNetwork_Order(t *testing.T) {
	loss, w, u := cosineLoss()
	net := must.M1(New(loss, DefaultConfig()))
	order := net.Nodes()
	require.Len(t, order, 7)
	assert.Same(t, loss, order[len(order)-1])

	position := make(map[uuid.UUID]int)
	for i, n := range order {
		position[n.ID()] = i
	}
	for _, n := range order {
		for _, in := range n.Inputs() {
			assert.Less(t, position[in.ID()], position[n.ID()], "%s before %s", in.Name(), n.Name())
		}
	}
	assert.Equal(t, []nodes.Node[float64]{w, u}, net.Parameters())
}

// loopNode lets a test wire a cycle, which the node constructors cannot build.
type loopNode struct {
	*nodes.NegateOp[float64]
	id     uuid.UUID
	inputs []nodes.Node[float64]
}

func (n *loopNode) ID() uuid.UUID                 { return n.id }
func (n *loopNode) Inputs() []nodes.Node[float64] { return n.inputs }

func TestNew_Errors(t *testing.T) {
	_, err := New[float64](nil, DefaultConfig())
	assert.ErrorContains(t, err, "nil root")

	x := nodes.NewInput[float64]("x", 1, 1)
	a := &loopNode{NegateOp: nodes.NewNegate[float64]("a", x), id: uuid.New()}
	b := &loopNode{NegateOp: nodes.NewNegate[float64]("b", x), id: uuid.New()}
	a.inputs = []nodes.Node[float64]{b}
	b.inputs = []nodes.Node[float64]{a}
	_, err = New[float64](a, DefaultConfig())
	assert.ErrorContains(t, err, "cycle")

	a.inputs = []nodes.Node[float64]{nil}
	_, err = New[float64](a, DefaultConfig())
	assert.ErrorContains(t, err, "is nil")
}

func TestNetwork_ValidateBeforeRunning(t *testing.T) {
	loss, w, u := cosineLoss()
	net := must.M1(New(loss, DefaultConfig()))
	_, err := net.TryEvaluate()
	assert.ErrorContains(t, err, "must be validated")

	require.NoError(t, net.Validate())
	assert.Equal(t, tensor.Dims{Rows: 3, Cols: 2}, w.Value().Dims())
	assert.Equal(t, tensor.Dims{Rows: 3, Cols: 2}, u.Value().Dims())
	assert.Equal(t, tensor.Dims{Rows: 1, Cols: 1}, loss.Value().Dims())

	bad := nodes.NewTimes[float64]("bad", nodes.NewParameter[float64]("A", 2, 3), nodes.NewInput[float64]("x", 4, 1))
	err = must.M1(New[float64](bad, DefaultConfig())).Validate()
	assert.ErrorContains(t, err, "validation failed")
	assert.ErrorContains(t, err, "inner dimensions")
}

func TestNetwork_BufferProtocol(t *testing.T) {
	loss, _, _ := cosineLoss()
	net := must.M1(New(loss, DefaultConfig()))
	require.NoError(t, net.Validate())
	p := net.Pool()

	value := net.Evaluate()
	assert.Zero(t, p.Outstanding())
	assert.False(t, value.HasNaN())

	net.Forward()
	// CosDistance keeps its inverse norms for the gradient.
	assert.Equal(t, 2, p.Outstanding())
	net.Backward(nil)
	assert.Zero(t, p.Outstanding())

	net.Forward()
	net.ReleaseBuffers()
	assert.Zero(t, p.Outstanding())
	assert.ErrorContains(t, net.TryBackward(nil), "without a preceding Forward")

	stats := p.Stats()
	assert.Positive(t, stats.Reuses)
	assert.Equal(t, stats.Requests, stats.Reuses+stats.Allocations)
}

func TestNetwork_BackwardSeed(t *testing.T) {
	a := nodes.NewParameter[float64]("a", 2, 2)
	a.SetValue(tensor.FromRows([][]float64{{1, 2}, {3, 4}}))
	neg := nodes.NewNegate[float64]("neg", a)
	net := must.M1(New[float64](neg, DefaultConfig()))
	require.NoError(t, net.Validate())

	net.ComputeGradients(tensor.FromRows([][]float64{{1, 2}, {3, 4}}))
	assert.Equal(t, [][]float64{{-1, -2}, {-3, -4}}, a.Gradient().ToRows())

	// Gradients are cleared, not accumulated, across passes.
	net.ComputeGradients(nil)
	assert.Equal(t, [][]float64{{-1, -1}, {-1, -1}}, a.Gradient().ToRows())

	require.NoError(t, net.TryForward())
	err := net.TryBackward(tensor.New[float64](1, 2))
	assert.ErrorContains(t, err, "does not match root")
}

// leakyNode keeps a buffer it never gives back.
type leakyNode struct {
	*nodes.NegateOp[float64]
}

func (n *leakyNode) RequestBuffersBeforeEvaluate(p *pool.Pool[float64]) {
	p.Request(n.ID(), "leak")
}

func TestNetwork_PoolBalance(t *testing.T) {
	x := nodes.NewInput[float64]("x", 2, 2)
	leaky := &leakyNode{NegateOp: nodes.NewNegate[float64]("leaky", x)}

	net := must.M1(New[float64](leaky, DefaultConfig()))
	require.NoError(t, net.Validate())
	_, err := net.TryEvaluate()
	assert.ErrorContains(t, err, "after the evaluation pass")
	assert.ErrorContains(t, err, "leak")

	cfg := DefaultConfig()
	cfg.CheckPoolBalance = false
	net = must.M1(New[float64](leaky, cfg))
	require.NoError(t, net.Validate())
	_, err = net.TryEvaluate()
	assert.NoError(t, err)
}

func TestNetwork_Segments(t *testing.T) {
	loss, _, _ := cosineLoss()
	cfg := DefaultConfig()
	net := must.M1(New(loss, cfg))
	require.NoError(t, net.Validate())
	segs := net.segments()
	require.Len(t, segs, 1)
	assert.Equal(t, []frames.Range{frames.All()}, segs[0].ranges)

	cfg.PerFrame = true
	net = must.M1(New(loss, cfg))
	require.NoError(t, net.Validate())
	segs = net.segments()
	var covered int
	for _, seg := range segs {
		covered += len(seg.nodes)
		for _, n := range seg.nodes {
			assert.Equal(t, seg.perFrame, n.HasLayout(), n.Name())
		}
		if seg.perFrame {
			assert.Len(t, seg.ranges, 3)
			assert.Equal(t, frames.At(2), seg.ranges[2])
		} else {
			assert.Equal(t, []frames.Range{frames.All()}, seg.ranges)
		}
	}
	assert.Equal(t, len(net.Nodes()), covered)
	last := segs[len(segs)-1]
	assert.False(t, last.perFrame)
	assert.Same(t, loss, last.nodes[len(last.nodes)-1])
}

func TestNetwork_PerFrameGradients(t *testing.T) {
	run := func(perFrame bool) (float64, [][]float64, [][]float64) {
		loss, w, u := cosineLoss()
		cfg := DefaultConfig()
		cfg.PerFrame = perFrame
		cfg.PoisonReleasedBuffers = true
		cfg.LogPoolStats = true
		net := must.M1(New(loss, cfg))
		require.NoError(t, net.Validate())
		net.ComputeGradients(nil)
		return loss.Value().Get00(), w.Gradient().ToRows(), u.Gradient().ToRows()
	}
	v0, w0, u0 := run(false)
	v1, w1, u1 := run(true)
	assert.InDelta(t, v0, v1, 1e-12)
	for i := range w0 {
		assert.InDeltaSlice(t, w0[i], w1[i], 1e-12)
		assert.InDeltaSlice(t, u0[i], u1[i], 1e-12)
	}
}

func TestNetwork_MoveToDevice(t *testing.T) {
	loss, w, _ := cosineLoss()
	net := must.M1(New(loss, DefaultConfig()))
	require.NoError(t, net.Validate())
	net.Evaluate()

	net.MoveToDevice(tensor.WebGPU)
	assert.Equal(t, tensor.WebGPU, net.Config().Device)
	assert.Equal(t, tensor.WebGPU, net.Pool().Device())
	assert.Equal(t, tensor.WebGPU, w.Value().Device())
	assert.Equal(t, tensor.WebGPU, w.Gradient().Device())
}
