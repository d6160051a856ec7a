// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import "github.com/born-ml/nodekit/internal/optim"

// ErrMismatch is returned when gradients and parameters do not line up.
var ErrMismatch = optim.ErrMismatch

// Array is the float32 array type updated by optimizers.
type Array = optim.Array

// State is the opaque optimizer state.
type State = optim.State

// GradientTransformation turns gradients into parameter updates.
type GradientTransformation = optim.GradientTransformation

// Schedule maps a step count to a value such as a learning rate.
type Schedule = optim.Schedule

// SGDConfig configures SGD.
type SGDConfig = optim.SGDConfig

// AdamConfig configures Adam.
type AdamConfig = optim.AdamConfig

// AdamWConfig configures AdamW.
type AdamWConfig = optim.AdamWConfig

// Optimizers

// SGD returns stochastic gradient descent with optional momentum.
func SGD(config SGDConfig) GradientTransformation { return optim.SGD(config) }

// Adam returns the Adam optimizer.
func Adam(config AdamConfig) GradientTransformation { return optim.Adam(config) }

// AdamW returns Adam with decoupled weight decay.
func AdamW(config AdamWConfig) GradientTransformation { return optim.AdamW(config) }

// Building blocks

// Chain applies transforms in order.
func Chain(transforms ...GradientTransformation) GradientTransformation {
	return optim.Chain(transforms...)
}

// Scale multiplies updates by factor.
func Scale(factor float32) GradientTransformation { return optim.Scale(factor) }

// ScaleBySchedule multiplies updates by schedule(step).
func ScaleBySchedule(schedule Schedule) GradientTransformation {
	return optim.ScaleBySchedule(schedule)
}

// ScaleByAdam rescales updates by bias-corrected moment estimates.
func ScaleByAdam(b1, b2, eps float32) GradientTransformation { return optim.ScaleByAdam(b1, b2, eps) }

// TraceMomentum accumulates a momentum trace.
func TraceMomentum(decay float32, nesterov bool) GradientTransformation {
	return optim.TraceMomentum(decay, nesterov)
}

// ClipByGlobalNorm rescales updates whose global norm exceeds maxNorm.
func ClipByGlobalNorm(maxNorm float64) GradientTransformation { return optim.ClipByGlobalNorm(maxNorm) }

// AddDecayedWeights adds weightDecay * params to updates.
func AddDecayedWeights(weightDecay float32) GradientTransformation {
	return optim.AddDecayedWeights(weightDecay)
}

// ApplyUpdates adds updates to params in place.
func ApplyUpdates(params, updates []*Array) error { return optim.ApplyUpdates(params, updates) }

// GlobalNorm returns the L2 norm of all arrays together.
func GlobalNorm(arrays []*Array) float64 { return optim.GlobalNorm(arrays) }

// Schedules

// ConstantSchedule always returns value.
func ConstantSchedule(value float32) Schedule { return optim.ConstantSchedule(value) }

// ExponentialDecay decays init by rate every transitionSteps steps.
func ExponentialDecay(init float32, transitionSteps int, rate float32, staircase bool) Schedule {
	return optim.ExponentialDecay(init, transitionSteps, rate, staircase)
}

// CosineDecay anneals init towards alpha*init over decaySteps.
func CosineDecay(init float32, decaySteps int, alpha float32) Schedule {
	return optim.CosineDecay(init, decaySteps, alpha)
}

// WarmupCosineDecay warms up linearly to peak, then cosine-decays to end.
func WarmupCosineDecay(init, peak float32, warmupSteps, decaySteps int, end float32) Schedule {
	return optim.WarmupCosineDecay(init, peak, warmupSteps, decaySteps, end)
}
