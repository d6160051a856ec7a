package optim

import "math"

// Schedule maps an optimizer step count to a value such as a learning rate.
type Schedule func(step int) float32

// ConstantSchedule always returns value.
func ConstantSchedule(value float32) Schedule {
	return func(int) float32 { return value }
}

// ExponentialDecay returns init * rate^(step/transitionSteps). With
// staircase the exponent is floored.
func ExponentialDecay(init float32, transitionSteps int, rate float32, staircase bool) Schedule {
	if transitionSteps <= 0 {
		return ConstantSchedule(init)
	}
	return func(step int) float32 {
		p := float64(step) / float64(transitionSteps)
		if staircase {
			p = math.Floor(p)
		}
		return init * float32(math.Pow(float64(rate), p))
	}
}

// CosineDecay anneals from init to init*alpha over decaySteps and stays
// there afterwards.
func CosineDecay(init float32, decaySteps int, alpha float32) Schedule {
	if decaySteps <= 0 {
		return ConstantSchedule(init)
	}
	return func(step int) float32 {
		t := float64(min(step, decaySteps)) / float64(decaySteps)
		cosine := 0.5 * (1 + math.Cos(math.Pi*t))
		return init * ((1-alpha)*float32(cosine) + alpha)
	}
}

// WarmupCosineDecay rises linearly from init to peak over warmupSteps, then
// follows a cosine from peak to end until decaySteps (counted from zero).
func WarmupCosineDecay(init, peak float32, warmupSteps, decaySteps int, end float32) Schedule {
	return func(step int) float32 {
		if step < warmupSteps {
			return init + (peak-init)*float32(step)/float32(warmupSteps)
		}
		span := decaySteps - warmupSteps
		if span <= 0 {
			return peak
		}
		t := float64(min(step-warmupSteps, span)) / float64(span)
		cosine := float32(0.5 * (1 + math.Cos(math.Pi*t)))
		return end + (peak-end)*cosine
	}
}
