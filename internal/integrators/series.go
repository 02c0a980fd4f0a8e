package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/cantisim/internal/dynamo"
)

// IntegrateSeries integrates dyn from x0 across the fixed sample grid t and
// returns the state at every grid point. Adaptive integrators substep freely
// inside each interval with accept/reject error control; fixed-step
// integrators take one step per interval. Solver bookkeeping is reported in
// the returned Diagnostics; a failed run sets Converged to false and leaves
// the remaining samples at the last good state rather than returning an error.
func IntegrateSeries(dyn dynamo.System, integ dynamo.Integrator, x0 dynamo.State, t []float64, tol float64) ([]dynamo.State, dynamo.Diagnostics) {
	diag := dynamo.Diagnostics{Converged: true, MinStep: math.Inf(1)}

	out := make([]dynamo.State, len(t))
	if len(t) < 2 {
		diag.Converged = false
		diag.Message = dynamo.ErrEmptyGrid.Error()
		if len(t) == 1 {
			out[0] = x0.Clone()
		}
		return out, diag
	}
	if len(x0) != dyn.StateDim() {
		diag.Converged = false
		diag.Message = dynamo.ErrDimensionMismatch.Error()
		return out, diag
	}

	if tol <= 0 {
		tol = 1e-6
	}

	x := x0.Clone()
	out[0] = x.Clone()

	ctrl, adaptive := integ.(dynamo.AdaptiveIntegrator)

	span := t[len(t)-1] - t[0]
	hmin := span * 1e-14
	dt := t[1] - t[0]

	for i := 0; i < len(t)-1; i++ {
		tcur, tend := t[i], t[i+1]

		if !adaptive {
			h := tend - tcur
			x = integ.Step(dyn, x, tcur, h)
			diag.Steps++
			diag.MinStep = math.Min(diag.MinStep, h)
			diag.MaxStep = math.Max(diag.MaxStep, h)
			if !x.IsValid() {
				return fail(out, x, i, tcur, diag, dynamo.ErrInvalidState)
			}
			out[i+1] = x.Clone()
			continue
		}

		for tcur < tend {
			h := math.Min(dt, tend-tcur)

			candidate, errMax := ctrl.Attempt(dyn, x, tcur, h)
			diag.Evals += evalsPerAttempt

			ratio := errMax / tol
			if ratio <= 1 {
				x = candidate
				tcur += h
				diag.Steps++
				diag.MaxError = math.Max(diag.MaxError, errMax)
				diag.MinStep = math.Min(diag.MinStep, h)
				diag.MaxStep = math.Max(diag.MaxStep, h)
				dt = ctrl.NextStep(h, ratio)
				if !x.IsValid() {
					return fail(out, x, i, tcur, diag, dynamo.ErrInvalidState)
				}
				continue
			}

			diag.Rejected++
			dt = ctrl.NextStep(h, ratio)
			if dt < hmin {
				return fail(out, x, i, tcur, diag, dynamo.ErrStepTooSmall)
			}
		}
		out[i+1] = x.Clone()
	}

	if math.IsInf(diag.MinStep, 1) {
		diag.MinStep = 0
	}
	return out, diag
}

// fail pads the remaining grid with the last state and records the failure.
func fail(out []dynamo.State, x dynamo.State, idx int, tcur float64, diag dynamo.Diagnostics, cause error) ([]dynamo.State, dynamo.Diagnostics) {
	ierr := &dynamo.IntegrationError{Index: idx, Time: tcur, Wrapped: cause}
	diag.Converged = false
	diag.Message = fmt.Sprintf("at sample %d (t=%.3e): %v", idx, tcur, ierr)
	if math.IsInf(diag.MinStep, 1) {
		diag.MinStep = 0
	}
	for j := idx + 1; j < len(out); j++ {
		out[j] = x.Clone()
	}
	return out, diag
}
