package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// System is the right-hand side of an ODE dX/dt = f(X, t).
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator exposes error-controlled trial steps for drivers that
// do their own accept/reject bookkeeping.
type AdaptiveIntegrator interface {
	Integrator

	// Attempt computes one candidate step and a scaled error estimate.
	Attempt(dyn System, x State, t, dt float64) (State, float64)

	// NextStep suggests the following step size from the achieved
	// error-to-tolerance ratio.
	NextStep(dt, errRatio float64) float64
}

// Diagnostics summarizes one integration run over a sample grid. Callers
// inspect Converged rather than an error return; a non-converged run still
// carries whatever samples were produced up to the failure point.
type Diagnostics struct {
	Steps     int     `json:"steps"`     // accepted steps
	Rejected  int     `json:"rejected"`  // rejected (repeated) steps
	Evals     int     `json:"evals"`     // right-hand-side evaluations
	MaxError  float64 `json:"max_error"` // largest accepted scaled error estimate
	MinStep   float64 `json:"min_step"`
	MaxStep   float64 `json:"max_step"`
	Converged bool    `json:"converged"`
	Message   string  `json:"message"`
}
