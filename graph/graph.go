// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph validates, evaluates and differentiates networks of nodes.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/matgraph/graph"
//	    "github.com/born-ml/matgraph/nodes"
//	)
//
//	loss := nodes.NewSumElements[float32]("loss", nodes.NewTimes[float32]("Wx", w, x))
//	net, err := graph.New[float32](loss, graph.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if err := net.Validate(); err != nil {
//	    return err
//	}
//	net.ComputeGradients(nil)
//	grad := w.Gradient()
//
// # Configuration
//
// Config can be read from YAML:
//
//	device: webgpu
//	check_pool_balance: true
//	log_pool_stats: false
//	poison_released_buffers: false
//	per_frame: false
package graph

import (
	"github.com/born-ml/matgraph/internal/graph"
	"github.com/born-ml/matgraph/nodes"
	"github.com/born-ml/matgraph/tensor"
)

// Network drives the nodes reachable from a root node.
type Network[T tensor.Float] = graph.Network[T]

// Config controls how a Network runs its passes.
type Config = graph.Config

// New creates a network over every node reachable from root. It must be
// validated before it runs.
func New[T tensor.Float](root nodes.Node[T], cfg Config) (*Network[T], error) {
	return graph.New(root, cfg)
}

// DefaultConfig returns the CPU configuration with pool balance checks on.
func DefaultConfig() Config {
	return graph.DefaultConfig()
}

// ParseConfig reads a YAML configuration over DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	return graph.ParseConfig(data)
}
