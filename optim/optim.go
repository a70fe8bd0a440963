// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim updates learnable parameters from their gradients.
//
// # Basic Usage
//
//	net, _ := graph.New(loss, graph.DefaultConfig())
//	_ = net.Validate()
//	adam := optim.NewAdam(net.Parameters(), optim.AdamConfig{LR: 0.001})
//	for range steps {
//	    net.ComputeGradients(nil)
//	    adam.Step()
//	}
package optim

import (
	"github.com/born-ml/matgraph/internal/optim"
	"github.com/born-ml/matgraph/nodes"
	"github.com/born-ml/matgraph/tensor"
)

// Optimizer applies one update per call to Step.
type Optimizer = optim.Optimizer

// SGD implements stochastic gradient descent with optional momentum.
type SGD[T tensor.Float] = optim.SGD[T]

// SGDConfig holds configuration for SGD.
type SGDConfig = optim.SGDConfig

// Adam implements the Adam optimizer.
type Adam[T tensor.Float] = optim.Adam[T]

// AdamConfig holds configuration for Adam.
type AdamConfig = optim.AdamConfig

// NewSGD creates an SGD optimizer over the parameters that need a gradient.
func NewSGD[T tensor.Float](params []nodes.Node[T], config SGDConfig) *SGD[T] {
	return optim.NewSGD(params, config)
}

// NewAdam creates an Adam optimizer over the parameters that need a gradient.
func NewAdam[T tensor.Float](params []nodes.Node[T], config AdamConfig) *Adam[T] {
	return optim.NewAdam(params, config)
}
