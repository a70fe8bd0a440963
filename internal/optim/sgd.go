package optim

import (
	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Without momentum:
//
//	param = param - lr * gradient
//
// With momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Sparse block-column gradients update only their stored columns when
// momentum is off.
type SGD[T tensor.Float] struct {
	params     []nodes.Node[T]
	lr         float64
	momentum   float64
	velocities state[T]
}

// SGDConfig holds configuration for SGD.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0, range: [0, 1))
}

// NewSGD creates an SGD optimizer over the parameters that need a gradient.
func NewSGD[T tensor.Float](params []nodes.Node[T], config SGDConfig) *SGD[T] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[T]{
		params:     trainable(params),
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(state[T]),
	}
}

// Step applies one update to every parameter.
func (s *SGD[T]) Step() {
	for _, p := range s.params {
		grad := p.Gradient()
		if s.momentum == 0 {
			cpu.ScaleAndAdd(T(-s.lr), grad, p.Value())
			continue
		}
		velocity := s.velocities.get(p)
		cpu.AssignScaled(velocity, T(s.momentum), velocity)
		cpu.AddTo(velocity, grad)
		cpu.ScaleAndAdd(T(-s.lr), velocity, p.Value())
	}
}

// ZeroGrad clears the parameter gradients.
func (s *SGD[T]) ZeroGrad() { zeroGradients(s.params) }

// LR returns the current learning rate.
func (s *SGD[T]) LR() float64 { return s.lr }

// SetLR updates the learning rate, e.g. for scheduling.
func (s *SGD[T]) SetLR(lr float64) { s.lr = lr }
