// Package optim updates learnable parameters from the gradients a backward
// pass leaves on them.
//
// Example:
//
//	net, _ := graph.New(loss, graph.DefaultConfig())
//	_ = net.Validate()
//	sgd := optim.NewSGD(net.Parameters(), optim.SGDConfig{LR: 0.01, Momentum: 0.9})
//	for range steps {
//	    net.ComputeGradients(nil)
//	    sgd.Step()
//	}
package optim

import (
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/tensor"
	"github.com/google/uuid"
)

// Optimizer applies one update per call to Step.
type Optimizer interface {
	// Step updates every parameter value in place from its current gradient.
	Step()

	// ZeroGrad clears the parameter gradients.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64
}

// state holds one per-parameter buffer, allocated on first use next to the
// parameter value.
type state[T tensor.Float] map[uuid.UUID]*tensor.Matrix[T]

func (s state[T]) get(p nodes.Node[T]) *tensor.Matrix[T] {
	m, ok := s[p.ID()]
	v := p.Value()
	if !ok || m.Dims() != v.Dims() {
		m = tensor.NewOnDevice[T](v.Rows(), v.Cols(), v.Device())
		s[p.ID()] = m
	}
	return m
}

// trainable drops parameters that do not take a gradient.
func trainable[T tensor.Float](params []nodes.Node[T]) []nodes.Node[T] {
	var out []nodes.Node[T]
	for _, p := range params {
		if p != nil && p.NeedsGradient() {
			out = append(out, p)
		}
	}
	return out
}

func zeroGradients[T tensor.Float](params []nodes.Node[T]) {
	for _, p := range params {
		p.ZeroGradient()
	}
}
