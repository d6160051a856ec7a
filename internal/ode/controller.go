package ode

import "math"

// Controller chooses step sizes.
type Controller interface {
	// adaptive reports whether steps are accepted or rejected by error.
	adaptive() bool
}

// ConstantStepSize takes every step with the initial dt, shortened only to
// land on t1 or on requested save times.
type ConstantStepSize struct{}

func (ConstantStepSize) adaptive() bool { return false }

// PIDController adapts the step size from the embedded error estimate.
//
// With the default coefficients (PCoeff 0, ICoeff 1) it is the classical
// integral controller: dt_next = dt * safety * r^(-1/(order+1)), where r is
// the RMS error ratio of the step.
type PIDController struct {
	RTol      float64 // Relative tolerance (default: 1e-3)
	ATol      float64 // Absolute tolerance (default: 1e-6)
	PCoeff    float64 // Proportional coefficient
	ICoeff    float64 // Integral coefficient (default: 1)
	DtMin     float64 // Smallest allowed step; 0 means no bound
	DtMax     float64 // Largest allowed step; 0 means no bound
	Safety    float64 // Safety factor (default: 0.9)
	FactorMin float64 // Smallest shrink factor (default: 0.2)
	FactorMax float64 // Largest growth factor (default: 10)
}

func (PIDController) adaptive() bool { return true }

func (c PIDController) withDefaults() PIDController {
	if c.RTol == 0 {
		c.RTol = 1e-3
	}
	if c.ATol == 0 {
		c.ATol = 1e-6
	}
	if c.ICoeff == 0 && c.PCoeff == 0 {
		c.ICoeff = 1
	}
	if c.Safety == 0 {
		c.Safety = 0.9
	}
	if c.FactorMin == 0 {
		c.FactorMin = 0.2
	}
	if c.FactorMax == 0 {
		c.FactorMax = 10
	}
	return c
}

// factor returns the multiplier for the next step size given the current
// and previous error ratios.
func (c PIDController) factor(ratio, prevRatio float64, order int, accepted bool) float64 {
	k := float64(order + 1)
	if ratio == 0 {
		return c.FactorMax
	}
	beta1 := (c.PCoeff + c.ICoeff) / k
	beta2 := -c.PCoeff / k
	f := c.Safety * math.Pow(ratio, -beta1)
	if prevRatio > 0 {
		f *= math.Pow(prevRatio, -beta2)
	}
	f = min(max(f, c.FactorMin), c.FactorMax)
	if !accepted {
		f = min(f, 1)
	}
	return f
}

func (c PIDController) clampDt(dt float64) float64 {
	if c.DtMax > 0 {
		dt = min(dt, c.DtMax)
	}
	if c.DtMin > 0 {
		dt = max(dt, c.DtMin)
	}
	return dt
}
