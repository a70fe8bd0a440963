// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nodes provides the linear-algebra operators of a computation graph.
//
// # Overview
//
// Every node owns a value matrix and, when a gradient flows into it, a
// gradient matrix. Operators implement a forward Evaluate and a BackpropTo
// that accumulates into the gradient of one input. Both work either on a
// whole minibatch (AllFrames) or on one time step (FrameAt).
//
// # Basic Usage
//
//	layout := nodes.NewLayoutFromLengths(3, 2)
//	x := nodes.NewMinibatchInput[float32]("x", 4, layout)
//	w := nodes.NewParameter[float32]("W", 8, 0) // columns inferred from x
//	b := nodes.NewParameter[float32]("b", 8, 1)
//	z := nodes.NewPlus[float32]("z", nodes.NewTimes[float32]("Wx", w, x), b)
//
// Nodes are evaluated and differentiated by the graph package.
//
// # Operators
//
// Products: Times, TransposeTimes, DiagTimes, Scale, RowElementTimes,
// ColumnElementTimes, KhatriRaoProduct, StrideTimes.
//
// Element-wise and reductions: Plus, Minus, Negate, ElementTimes,
// SumElements, SumColumnElements, Transpose, Diagonal.
//
// Distances: CosDistance, CosDistanceWithNegativeSamples.
//
// Operators can also be built by kind with New, e.g. from a model description.
package nodes
