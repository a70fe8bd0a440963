package optim

import (
	"math"

	"github.com/born-ml/matgraph/internal/backend/cpu"
	"github.com/born-ml/matgraph/internal/nodes"
	"github.com/born-ml/matgraph/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014):
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// where m_hat and v_hat are the bias-corrected moments.
type Adam[T tensor.Float] struct {
	params []nodes.Node[T]
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int
	m      state[T]
	v      state[T]
}

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moment decay rates (default: [0.9, 0.999])
	Eps   float64    // Denominator offset (default: 1e-8)
}

// NewAdam creates an Adam optimizer over the parameters that need a gradient.
func NewAdam[T tensor.Float](params []nodes.Node[T], config AdamConfig) *Adam[T] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas == [2]float64{} {
		config.Betas = [2]float64{0.9, 0.999}
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[T]{
		params: trainable(params),
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(state[T]),
		v:      make(state[T]),
	}
}

// Step applies one update to every parameter.
func (a *Adam[T]) Step() {
	a.t++
	correction1 := 1 - math.Pow(a.beta1, float64(a.t))
	correction2 := 1 - math.Pow(a.beta2, float64(a.t))
	stepSize := T(a.lr / correction1)
	sqrtCorrection2 := T(math.Sqrt(correction2))
	beta1, beta2, eps := T(a.beta1), T(a.beta2), T(a.eps)

	for _, p := range a.params {
		grad := p.Gradient()
		if grad.IsSparse() {
			grad = grad.ToDense()
		}
		m, v := a.m.get(p), a.v.get(p)
		value := p.Value()
		value.SwitchToDense()
		gd, md, vd, pd := grad.Data(), m.Data(), v.Data(), value.Data()
		for i, g := range gd {
			md[i] = beta1*md[i] + (1-beta1)*g
			vd[i] = beta2*vd[i] + (1-beta2)*g*g
			pd[i] -= stepSize * md[i] / (cpu.Sqrt(vd[i])/sqrtCorrection2 + eps)
		}
	}
}

// ZeroGrad clears the parameter gradients.
func (a *Adam[T]) ZeroGrad() { zeroGradients(a.params) }

// LR returns the current learning rate.
func (a *Adam[T]) LR() float64 { return a.lr }

// SetLR updates the learning rate.
func (a *Adam[T]) SetLR(lr float64) { a.lr = lr }

// Steps returns the number of updates applied so far.
func (a *Adam[T]) Steps() int { return a.t }
