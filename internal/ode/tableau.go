package ode

// Solver is an explicit Runge-Kutta method defined by its Butcher tableau.
//
// Methods with an embedded error estimate (BErr set) can be driven by a
// PIDController; the rest need ConstantStepSize.
type Solver struct {
	Name  string
	C     []float64   // Stage times
	A     [][]float64 // Lower-triangular stage coefficients
	B     []float64   // Solution weights
	BErr  []float64   // B minus the embedded weights, nil when not adaptive
	Order int         // Order of the solution
}

// Adaptive reports whether the solver provides an error estimate.
func (s Solver) Adaptive() bool {
	return s.BErr != nil
}

// Stages returns the number of function evaluations per step.
func (s Solver) Stages() int {
	return len(s.C)
}

// Euler is the explicit Euler method (order 1).
var Euler = Solver{
	Name:  "euler",
	C:     []float64{0},
	A:     [][]float64{{}},
	B:     []float64{1},
	Order: 1,
}

// Heun is Heun's method (order 2), with Euler as the embedded estimate.
var Heun = Solver{
	Name:  "heun",
	C:     []float64{0, 1},
	A:     [][]float64{{}, {1}},
	B:     []float64{0.5, 0.5},
	BErr:  []float64{-0.5, 0.5},
	Order: 2,
}

// Midpoint is the explicit midpoint method (order 2).
var Midpoint = Solver{
	Name:  "midpoint",
	C:     []float64{0, 0.5},
	A:     [][]float64{{}, {0.5}},
	B:     []float64{0, 1},
	Order: 2,
}

// Ralston is Ralston's second-order method with minimal truncation error.
var Ralston = Solver{
	Name:  "ralston",
	C:     []float64{0, 2.0 / 3.0},
	A:     [][]float64{{}, {2.0 / 3.0}},
	B:     []float64{0.25, 0.75},
	Order: 2,
}

// RK4 is the classical fourth-order Runge-Kutta method.
var RK4 = Solver{
	Name:  "rk4",
	C:     []float64{0, 0.5, 0.5, 1},
	A:     [][]float64{{}, {0.5}, {0, 0.5}, {0, 0, 1}},
	B:     []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
	Order: 4,
}

// Bosh3 is the Bogacki-Shampine 3(2) pair.
var Bosh3 = Solver{
	Name: "bosh3",
	C:    []float64{0, 0.5, 0.75, 1},
	A: [][]float64{
		{},
		{0.5},
		{0, 0.75},
		{2.0 / 9, 1.0 / 3, 4.0 / 9},
	},
	B:     []float64{2.0 / 9, 1.0 / 3, 4.0 / 9, 0},
	BErr:  []float64{2.0/9 - 7.0/24, 1.0/3 - 0.25, 4.0/9 - 1.0/3, -0.125},
	Order: 3,
}

// Dopri5 is the Dormand-Prince 5(4) pair.
var Dopri5 = Solver{
	Name: "dopri5",
	C:    []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	A: [][]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	B: []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
	BErr: []float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	},
	Order: 5,
}

// Tsit5 is Tsitouras' 5(4) pair.
var Tsit5 = Solver{
	Name: "tsit5",
	C:    []float64{0, 0.161, 0.327, 0.9, 0.9800255409045097, 1, 1},
	A: [][]float64{
		{},
		{0.161},
		{-0.008480655492356989, 0.335480655492357},
		{2.897153057105493, -6.359448489975075, 4.3622954328695815},
		{5.325864828439257, -11.748883564062828, 7.4955393428898365, -0.09249506636175525},
		{5.86145544294642, -12.92096931784711, 8.159367898576159, -0.071584973281401, -0.028269050394068383},
		{0.09646076681806523, 0.01, 0.4798896504144996, 1.379008574103742, -3.290069515436081, 2.324710524099774},
	},
	B: []float64{0.09646076681806523, 0.01, 0.4798896504144996, 1.379008574103742, -3.290069515436081, 2.324710524099774, 0},
	BErr: []float64{
		-0.00178001105222577714,
		-0.0008164344596567469,
		0.007880878010261995,
		-0.1447110071732629,
		0.5823571654525552,
		-0.45808210592918697,
		1.0 / 66,
	},
	Order: 5,
}

// Solvers lists every built-in solver by name.
var Solvers = map[string]Solver{
	Euler.Name:    Euler,
	Heun.Name:     Heun,
	Midpoint.Name: Midpoint,
	Ralston.Name:  Ralston,
	RK4.Name:      RK4,
	Bosh3.Name:    Bosh3,
	Dopri5.Name:   Dopri5,
	Tsit5.Name:    Tsit5,
}
