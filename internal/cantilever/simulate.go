package cantilever

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/cantisim/internal/dynamo"
	"github.com/san-kum/cantisim/internal/integrators"
)

var (
	// ErrInitialCondition flags a malformed explicit initial condition.
	ErrInitialCondition = errors.New("cantilever: initial condition must be exactly [z0, v0]")

	// ErrDownsampleRate flags a downsample target at or above the current rate.
	ErrDownsampleRate = errors.New("cantilever: target rate must be below the current sampling rate")

	// ErrNoWaveform flags operations that need a prior Simulate call.
	ErrNoWaveform = errors.New("cantilever: no waveform stored, call Simulate first")
)

// Result is the outcome of one Simulate call: the trimmed position waveform
// (length total_time*sampling_rate) and the solver diagnostics. Solver
// failures are reported through Diagnostics, not as an error.
type Result struct {
	Z           []float64
	Diagnostics dynamo.Diagnostics
}

// Simulate integrates the cantilever motion with the excitation window
// phase-locked to triggerPhaseDeg (degrees, wrt cosine). An explicit z0
// ([position, velocity]) bypasses the phase trigger solver entirely: the
// resolved trigger is then the nominal trigger time and no pre-roll is added.
// The trimmed waveform is stored on the instance for Downsample/Analyze.
func (c *Cantilever) Simulate(triggerPhaseDeg float64, z0 []float64) (Result, error) {
	var cond Conditions

	if z0 != nil {
		if len(z0) != 2 {
			return Result{}, fmt.Errorf("%w, got %d values", ErrInitialCondition, len(z0))
		}
		fs := c.sim.SamplingRate
		cond.NPoints = int(math.Round(c.sim.TotalTime * fs))
		cond.NPointsSim = cond.NPoints
		cond.T = make([]float64, cond.NPoints)
		for i := range cond.T {
			cond.T[i] = float64(i) / fs
		}
		cond.T0 = c.sim.Trigger
		cond.Z0 = dynamo.State{z0[0], z0[1]}
	} else {
		cond = c.SetConditions(triggerPhaseDeg)
	}

	eq := &equation{
		model: c.model,
		q:     c.can.QFactor,
		t0:    cond.T0,
		tau:   c.force.Tau,
	}

	states, diag := integrators.IntegrateSeries(eq, c.integ, cond.Z0, cond.T, c.tol)

	// Slice the position column so the first output sample lands exactly
	// t0-trigger seconds into the extended window, i.e. at the requested
	// trigger phase. The end clamp means a resolved trigger that overruns
	// the settling pre-roll (drive period longer than two resonance cycles)
	// yields a short window rather than an error.
	fs := c.sim.SamplingRate
	t0Idx := int(math.Round(cond.T0 * fs))
	trigIdx := int(math.Round(c.sim.Trigger * fs))
	start := t0Idx - trigIdx
	if start < 0 {
		start = 0
	}
	end := start + cond.NPoints
	if end > len(states) {
		end = len(states)
	}

	z := make([]float64, 0, cond.NPoints)
	for _, s := range states[start:end] {
		z = append(z, s[0])
	}

	c.z = z
	c.rate = fs
	c.downsampled = false
	c.diag = diag

	return Result{Z: z, Diagnostics: diag}, nil
}

// Downsample decimates the stored waveform to targetRate and rescales it
// from meters to volts by the deflection sensitivity. The transform is
// destructive; the previous waveform is overwritten.
func (c *Cantilever) Downsample(targetRate float64) error {
	if c.z == nil {
		return ErrNoWaveform
	}
	if targetRate >= c.rate {
		return fmt.Errorf("%w: %g >= %g", ErrDownsampleRate, targetRate, c.rate)
	}

	step := int(c.rate / targetRate)
	n := int(math.Round(c.sim.TotalTime * targetRate))

	out := make([]float64, 0, n)
	for i := 0; i < len(c.z) && len(out) < n; i += step {
		out = append(out, c.z[i]/c.can.DefInvols)
	}

	c.z = out
	c.rate = targetRate
	c.downsampled = true
	return nil
}
