// Package graph runs the passes of a computation graph built from nodes:
// two-pass validation, evaluation in topological order and gradient
// back-propagation in reverse order, together with the buffer pool protocol.
//
// Usage:
//
//	net, err := graph.New(loss, graph.DefaultConfig())
//	err = net.Validate()
//	net.ComputeGradients(nil) // seeds the root gradient with ones
//	grad := param.Gradient()
package graph

import (
	"github.com/born-ml/matgraph/internal/frames"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/pool"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Network drives the nodes reachable from a root node.
//
// A gradient pass is Forward followed by Backward: Forward keeps the
// temporaries and the retained state of nodes that need a gradient until
// Backward releases them. Evaluate is an evaluation-only pass that gives
// every temporary back right after use.
type Network[T tensor.Float] struct {
	root      nodes.Node[T]
	order     []nodes.Node[T] // inputs before consumers
	config    Config
	pool      *pool.Pool[T]
	retained  map[uuid.UUID]nodes.Retained
	validated bool
	pending   bool // Forward ran and Backward has not yet
}

// New creates a network over every node reachable from root and places them
// on the configured device.
func New[T tensor.Float](root nodes.Node[T], cfg Config) (*Network[T], error) {
	if root == nil {
		return nil, errors.New("graph: nil root node")
	}
	order, err := topologicalOrder(root)
	if err != nil {
		return nil, err
	}
	opts := []pool.Option{pool.WithDevice(cfg.Device)}
	if cfg.PoisonReleasedBuffers {
		opts = append(opts, pool.WithPoison())
	}
	net := &Network[T]{
		root:     root,
		order:    order,
		config:   cfg,
		pool:     pool.New[T](opts...),
		retained: make(map[uuid.UUID]nodes.Retained),
	}
	for _, node := range order {
		node.MoveToDevice(cfg.Device)
	}
	return net, nil
}

// topologicalOrder lists the nodes reachable from root, inputs first.
func topologicalOrder[T tensor.Float](root nodes.Node[T]) ([]nodes.Node[T], error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[uuid.UUID]int)
	var order []nodes.Node[T]
	var visit func(n nodes.Node[T]) error
	visit = func(n nodes.Node[T]) error {
		switch state[n.ID()] {
		case done:
			return nil
		case visiting:
			return errors.Errorf("graph: cycle through %s node %q", n.OperationName(), n.Name())
		}
		state[n.ID()] = visiting
		for i, in := range n.Inputs() {
			if in == nil {
				return errors.Errorf("graph: input %d of %s node %q is nil", i, n.OperationName(), n.Name())
			}
			if err := visit(in); err != nil {
				return err
			}
		}
		state[n.ID()] = done
		order = append(order, n)
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// Root returns the node the network was built from.
func (n *Network[T]) Root() nodes.Node[T] { return n.root }

// Nodes returns the nodes in evaluation order. The slice must not be modified.
func (n *Network[T]) Nodes() []nodes.Node[T] { return n.order }

// Parameters returns the learnable parameters, in evaluation order.
func (n *Network[T]) Parameters() []nodes.Node[T] {
	var params []nodes.Node[T]
	for _, node := range n.order {
		if node.Kind() == nodes.LearnableParameter {
			params = append(params, node)
		}
	}
	return params
}

// Pool returns the buffer pool shared by the nodes.
func (n *Network[T]) Pool() *pool.Pool[T] { return n.pool }

// Config returns the network configuration.
func (n *Network[T]) Config() Config { return n.config }

// Validate runs the preliminary then the final validation pass over all nodes,
// inferring unknown dimensions and rejecting incompatible shapes. It must be
// called again whenever input dimensions or layouts change.
func (n *Network[T]) Validate() error {
	n.validated = false
	for _, isFinalPass := range []bool{false, true} {
		for _, node := range n.order {
			if err := node.Validate(isFinalPass); err != nil {
				return errors.WithMessage(err, "graph: validation failed")
			}
		}
	}
	n.validated = true
	if klog.V(1).Enabled() {
		for _, node := range n.order {
			klog.Infof("graph: %s %q [%d x %d], %s, needs gradient: %v", node.OperationName(), node.Name(),
				node.NumRows(), node.NumCols(), node.Layout(), node.NeedsGradient())
		}
	}
	return nil
}

// segment is a run of consecutive nodes evaluated over the same frame ranges.
type segment[T tensor.Float] struct {
	nodes    []nodes.Node[T]
	ranges   []frames.Range
	perFrame bool
}

// segments splits the evaluation order. Without PerFrame there is a single
// segment over the whole minibatch. With PerFrame, runs of nodes carrying a
// layout iterate over the time steps, and time-invariant nodes (including
// reductions over time) run once over the whole minibatch.
func (n *Network[T]) segments() []segment[T] {
	all := []frames.Range{frames.All()}
	if !n.config.PerFrame {
		return []segment[T]{{nodes: n.order, ranges: all}}
	}
	var segs []segment[T]
	for _, node := range n.order {
		ranges, perFrame := all, node.HasLayout()
		if perFrame {
			ranges = make([]frames.Range, node.Layout().NumTimeSteps())
			for t := range ranges {
				ranges[t] = frames.At(t)
			}
		}
		if last := len(segs) - 1; last >= 0 && segs[last].perFrame == perFrame && len(segs[last].ranges) == len(ranges) {
			segs[last].nodes = append(segs[last].nodes, node)
			continue
		}
		segs = append(segs, segment[T]{nodes: []nodes.Node[T]{node}, ranges: ranges, perFrame: perFrame})
	}
	return segs
}

func (n *Network[T]) mustBeValidated() {
	if !n.validated {
		exceptions.Panicf("graph: the network must be validated before running a pass")
	}
}

// forward evaluates every node. With keep, nodes needing a gradient hold on
// to their temporaries and retained state for Backward.
func (n *Network[T]) forward(keep bool) {
	n.mustBeValidated()
	n.ReleaseBuffers()
	for _, seg := range n.segments() {
		for _, node := range seg.nodes {
			node.RequestBuffersBeforeEvaluate(n.pool)
		}
		for _, fr := range seg.ranges {
			for _, node := range seg.nodes {
				n.retained[node.ID()] = node.Evaluate(fr)
			}
		}
		for _, node := range seg.nodes {
			if !keep || !node.NeedsGradient() {
				node.ReleaseBuffersAfterEvaluate(n.pool)
				delete(n.retained, node.ID())
			}
		}
	}
	n.pending = keep
}

// Evaluate computes the value of every node and returns the root value.
func (n *Network[T]) Evaluate() *tensor.Matrix[T] {
	n.forward(false)
	n.checkBalance("evaluation")
	return n.root.Value()
}

// Forward computes the value of every node, keeping what Backward needs.
func (n *Network[T]) Forward() {
	n.forward(true)
}

// Backward back-propagates from the root into every node that needs a
// gradient. All gradients are cleared first; the root gradient is seed, or
// ones when seed is nil. Must follow Forward.
func (n *Network[T]) Backward(seed *tensor.Matrix[T]) {
	if !n.pending {
		exceptions.Panicf("graph: Backward called without a preceding Forward")
	}
	n.ZeroGradients()
	if n.root.NeedsGradient() {
		g := n.root.Gradient()
		if seed == nil {
			g.SetValue(1)
		} else {
			if seed.Dims() != g.Dims() {
				exceptions.Panicf("graph: gradient seed %s does not match root %q %s", seed.Dims(), n.root.Name(), g.Dims())
			}
			g.CopyFrom(seed)
		}
	}

	segs := n.segments()
	for s := len(segs) - 1; s >= 0; s-- {
		seg := segs[s]
		var active []nodes.Node[T]
		for i := len(seg.nodes) - 1; i >= 0; i-- {
			if seg.nodes[i].NeedsGradient() {
				active = append(active, seg.nodes[i])
			}
		}
		for _, node := range active {
			node.RequestBuffersBeforeGradient(n.pool)
		}
		for r := len(seg.ranges) - 1; r >= 0; r-- {
			for _, node := range active {
				retained := n.retained[node.ID()]
				for i, in := range node.Inputs() {
					if in.NeedsGradient() {
						node.BackpropTo(i, seg.ranges[r], retained)
					}
				}
			}
		}
		for _, node := range active {
			node.ReleaseBuffersAfterGradient(n.pool)
			delete(n.retained, node.ID())
		}
	}
	n.pending = false
	if n.config.LogPoolStats {
		n.pool.LogStats()
	}
	n.checkBalance("gradient")
}

// ComputeGradients runs Forward then Backward.
func (n *Network[T]) ComputeGradients(seed *tensor.Matrix[T]) {
	n.Forward()
	n.Backward(seed)
}

// TryEvaluate is Evaluate returning fatal errors instead of panicking.
func (n *Network[T]) TryEvaluate() (value *tensor.Matrix[T], err error) {
	err = exceptions.TryCatch[error](func() { value = n.Evaluate() })
	return value, err
}

// TryForward is Forward returning fatal errors instead of panicking.
func (n *Network[T]) TryForward() error {
	return exceptions.TryCatch[error](n.Forward)
}

// TryBackward is Backward returning fatal errors instead of panicking.
func (n *Network[T]) TryBackward(seed *tensor.Matrix[T]) error {
	return exceptions.TryCatch[error](func() { n.Backward(seed) })
}

// ZeroGradients clears the gradient of every node.
func (n *Network[T]) ZeroGradients() {
	for _, node := range n.order {
		node.ZeroGradient()
	}
}

// ReleaseBuffers gives back what a Forward without Backward still holds.
func (n *Network[T]) ReleaseBuffers() {
	if !n.pending {
		return
	}
	for _, node := range n.order {
		node.ReleaseBuffersAfterGradient(n.pool)
	}
	clear(n.retained)
	n.pending = false
}

// MoveToDevice places every node and pooled buffer on device.
func (n *Network[T]) MoveToDevice(device tensor.Device) {
	n.config.Device = device
	for _, node := range n.order {
		node.MoveToDevice(device)
	}
	n.pool.SetDevice(device)
}

func (n *Network[T]) checkBalance(pass string) {
	if !n.config.CheckPoolBalance {
		return
	}
	if err := n.pool.CheckBalanced(); err != nil {
		panic(errors.Wrapf(err, "graph: after the %s pass", pass))
	}
}
