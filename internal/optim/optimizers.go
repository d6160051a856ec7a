package optim

import (
	"math"

	"github.com/born-ml/nodekit/internal/tensor"
)

func lrSchedule(lr float32, schedule Schedule) Schedule {
	if schedule != nil {
		return schedule
	}
	return ConstantSchedule(lr)
}

type traceState struct {
	trace []*Array
}

// TraceMomentum keeps an exponential trace of past updates:
// t = g + decay*t. With nesterov the update is g + decay*t.
func TraceMomentum(decay float32, nesterov bool) GradientTransformation {
	return transformFuncs{
		init: func(params []*Array) State { return traceState{trace: zerosLike(params)} },
		update: func(grads []*Array, state State, _ []*Array) ([]*Array, State, error) {
			s, err := stateAs[traceState](state)
			if err != nil {
				return nil, nil, err
			}
			if err := checkShapes(grads, s.trace, "trace"); err != nil {
				return nil, nil, err
			}
			trace := make([]*Array, len(grads))
			updates := make([]*Array, len(grads))
			for k, g := range grads {
				trace[k] = tensor.Zeros[float32](g.Shape())
				updates[k] = tensor.Zeros[float32](g.Shape())
				td, ud, old := trace[k].Data(), updates[k].Data(), s.trace[k].Data()
				for i, x := range g.Data() {
					td[i] = x + decay*old[i]
					if nesterov {
						ud[i] = x + decay*td[i]
					} else {
						ud[i] = td[i]
					}
				}
			}
			return updates, traceState{trace: trace}, nil
		},
	}
}

// SGDConfig configures stochastic gradient descent.
type SGDConfig struct {
	LR       float32  // Learning rate (default: 0.01)
	Schedule Schedule // Overrides LR when set
	Momentum float32  // Momentum decay, 0 disables momentum
	Nesterov bool     // Use Nesterov momentum
}

// SGD returns stochastic gradient descent with optional momentum.
func SGD(config SGDConfig) GradientTransformation {
	if config.LR == 0 {
		config.LR = 0.01
	}
	lr := lrSchedule(config.LR, config.Schedule)
	if config.Momentum == 0 {
		return scaleByLearningRate(lr)
	}
	return Chain(TraceMomentum(config.Momentum, config.Nesterov), scaleByLearningRate(lr))
}

type adamState struct {
	count int
	mu    []*Array
	nu    []*Array
}

// ScaleByAdam rescales gradients by bias-corrected first and second moment
// estimates:
//
//	m_t = b1*m + (1-b1)*g
//	v_t = b2*v + (1-b2)*g^2
//	u   = m_hat / (sqrt(v_hat) + eps)
func ScaleByAdam(b1, b2, eps float32) GradientTransformation {
	return transformFuncs{
		init: func(params []*Array) State {
			return adamState{mu: zerosLike(params), nu: zerosLike(params)}
		},
		update: func(grads []*Array, state State, _ []*Array) ([]*Array, State, error) {
			s, err := stateAs[adamState](state)
			if err != nil {
				return nil, nil, err
			}
			if err := checkShapes(grads, s.mu, "moments"); err != nil {
				return nil, nil, err
			}

			count := s.count + 1
			bc1 := float32(1 - math.Pow(float64(b1), float64(count)))
			bc2 := float32(1 - math.Pow(float64(b2), float64(count)))

			next := adamState{count: count, mu: make([]*Array, len(grads)), nu: make([]*Array, len(grads))}
			updates := make([]*Array, len(grads))
			for k, g := range grads {
				next.mu[k] = tensor.Zeros[float32](g.Shape())
				next.nu[k] = tensor.Zeros[float32](g.Shape())
				updates[k] = tensor.Zeros[float32](g.Shape())
				m, v, u := next.mu[k].Data(), next.nu[k].Data(), updates[k].Data()
				m0, v0 := s.mu[k].Data(), s.nu[k].Data()
				for i, x := range g.Data() {
					m[i] = b1*m0[i] + (1-b1)*x
					v[i] = b2*v0[i] + (1-b2)*x*x
					mHat := m[i] / bc1
					vHat := v[i] / bc2
					u[i] = mHat / (float32(math.Sqrt(float64(vHat))) + eps)
				}
			}
			return updates, next, nil
		},
	}
}

// AdamConfig configures Adam.
type AdamConfig struct {
	LR       float32    // Learning rate (default: 0.001)
	Schedule Schedule   // Overrides LR when set
	Betas    [2]float32 // Moment decay rates (default: [0.9, 0.999])
	Eps      float32    // Numerical stability term (default: 1e-8)
}

func (c *AdamConfig) defaults() {
	if c.LR == 0 {
		c.LR = 0.001
	}
	if c.Betas[0] == 0 {
		c.Betas[0] = 0.9
	}
	if c.Betas[1] == 0 {
		c.Betas[1] = 0.999
	}
	if c.Eps == 0 {
		c.Eps = 1e-8
	}
}

// Adam returns the Adam optimizer (Kingma & Ba, 2014).
func Adam(config AdamConfig) GradientTransformation {
	config.defaults()
	return Chain(
		ScaleByAdam(config.Betas[0], config.Betas[1], config.Eps),
		scaleByLearningRate(lrSchedule(config.LR, config.Schedule)),
	)
}

// AdamWConfig configures AdamW.
type AdamWConfig struct {
	AdamConfig
	WeightDecay float32 // Decoupled weight decay (default: 1e-4)
}

// AdamW returns Adam with decoupled weight decay (Loshchilov & Hutter, 2019).
func AdamW(config AdamWConfig) GradientTransformation {
	config.defaults()
	if config.WeightDecay == 0 {
		config.WeightDecay = 1e-4
	}
	return Chain(
		ScaleByAdam(config.Betas[0], config.Betas[1], config.Eps),
		AddDecayedWeights(config.WeightDecay),
		scaleByLearningRate(lrSchedule(config.LR, config.Schedule)),
	)
}
