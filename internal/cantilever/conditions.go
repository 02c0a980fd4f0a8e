package cantilever

import (
	"math"

	"github.com/san-kum/cantisim/internal/dynamo"
)

// Conditions is the working state of one simulation run: the extended sample
// grid, the resolved trigger time and the analytic initial condition. It is
// produced per call and threaded into the integrator, never stored on the
// simulator.
type Conditions struct {
	TriggerPhase float64   // requested phase, rad, normalized to [0, 2pi)
	NPoints      int       // samples in the requested window
	NPointsSim   int       // requested window plus settling pre-roll
	T            []float64 // extended time vector
	T0           float64   // resolved trigger time
	Z0           dynamo.State
}

// mod2pi normalizes an angle to [0, 2pi).
func mod2pi(x float64) float64 {
	x = math.Mod(x, pi2)
	if x < 0 {
		x += pi2
	}
	return x
}

// SetConditions resolves the instant at which the oscillator's phase equals
// the requested trigger phase (degrees, referenced to a cosine). The phase of
// the steady-state solution at the nominal trigger is known in closed form,
// so the resolved trigger is found analytically; the two extra resonance
// cycles ahead of the window give the index arithmetic room to slice exactly
// at that instant.
func (c *Cantilever) SetConditions(triggerPhaseDeg float64) Conditions {
	cond := Conditions{
		TriggerPhase: mod2pi(math.Pi * triggerPhaseDeg / 180),
	}

	fs := c.sim.SamplingRate
	cond.NPoints = int(math.Round(c.sim.TotalTime * fs))

	// Settling pre-roll: exactly 2 resonance cycles ahead of the window.
	cyclePoints := int(2 * fs / c.can.ResFreq)
	cond.NPointsSim = cyclePoints + cond.NPoints

	cond.T = make([]float64, cond.NPointsSim)
	for i := range cond.T {
		cond.T[i] = float64(i) / fs
	}

	// Phase of the free steady-state solution at the nominal trigger, and
	// the deficit to the requested phase.
	currentPhase := mod2pi(c.d.Wd*c.sim.Trigger - c.d.Delta)
	phaseDiff := mod2pi(cond.TriggerPhase - currentPhase)

	cond.T0 = c.sim.Trigger + phaseDiff/c.d.Wd

	// Closed-form steady-state initial condition at t=0.
	z0 := c.d.Amp * math.Sin(-c.d.Delta)
	v0 := c.d.Amp * c.d.Wd * math.Cos(-c.d.Delta)
	cond.Z0 = dynamo.State{z0, v0}

	return cond
}
