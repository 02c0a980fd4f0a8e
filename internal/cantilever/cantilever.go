// Package cantilever simulates a damped driven harmonic oscillator modeling
// an AFM cantilever tip under a time-dependent tip-sample force, and packages
// the resulting deflection waveform for spectral analysis.
package cantilever

import (
	"math"

	"github.com/san-kum/cantisim/internal/dynamo"
	"github.com/san-kum/cantisim/internal/integrators"
	"github.com/san-kum/cantisim/internal/pixel"
)

const pi2 = 2 * math.Pi

// Derived bundles the constants computed from the configs at construction.
type Derived struct {
	W0     float64 // radial resonance frequency (rad/s)
	Wd     float64 // radial drive frequency (rad/s)
	Beta   float64 // damping factor w0/(2Q) (rad/s)
	Mass   float64 // k/w0^2 (kg)
	Amp    float64 // physical amplitude (m)
	F0     float64 // reduced drive amplitude (N/kg)
	Delta  float64 // steady-state phase lag (rad)
	DeltaW float64 // radial frequency shift (rad/s)
	Fe     float64 // reduced electrostatic force (N/kg)
}

// Cantilever is the simulator. One instance is cheap to build and is not
// safe for concurrent Simulate calls: the last waveform and the consolidated
// parameter bundles live on the instance. Construct one instance per
// concurrent simulation instead of sharing.
type Cantilever struct {
	can   CantileverConfig
	force ForceConfig
	sim   SimConfig

	d Derived

	// resonance/drive mismatch advisory, non-fatal
	mismatch bool

	model Model
	integ dynamo.Integrator
	tol   float64

	z           []float64 // last trimmed waveform (m, or V after Downsample)
	rate        float64   // sampling rate of z
	downsampled bool
	diag        dynamo.Diagnostics

	factory   pixel.Factory
	simParams map[string]any
	canParams map[string]any
	fitParams map[string]any
}

// New validates the configs and derives the oscillator constants. At exact
// resonance the phase-lag division degenerates to atan(Inf); the abs/atan
// form keeps the limit well defined (delta = pi/2), so no error can occur
// there.
func New(can CantileverConfig, force ForceConfig, sim SimConfig) (*Cantilever, error) {
	if err := can.Validate(); err != nil {
		return nil, err
	}
	if err := sim.Validate(); err != nil {
		return nil, err
	}

	var d Derived
	d.W0 = pi2 * can.ResFreq
	d.Wd = pi2 * can.DriveFreq
	d.Beta = d.W0 / (2 * can.QFactor)
	d.Mass = can.K / (d.W0 * d.W0)
	d.Amp = can.SoftAmp * can.AmpInvols

	w02 := d.W0 * d.W0
	wd2 := d.Wd * d.Wd
	d.F0 = d.Amp * math.Sqrt((w02-wd2)*(w02-wd2)+4*d.Beta*d.Beta*wd2)
	d.Delta = math.Abs(math.Atan(2 * d.Wd * d.Beta / (w02 - wd2)))

	d.DeltaW = pi2 * force.DeltaFreq
	d.Fe = force.ESForce / d.Mass

	c := &Cantilever{
		can:       can,
		force:     force,
		sim:       sim,
		d:         d,
		mismatch:  math.Abs(can.ResFreq-can.DriveFreq) > 1e-8*math.Max(can.ResFreq, can.DriveFreq),
		integ:     integrators.NewRK45(),
		tol:       1e-7,
		rate:      sim.SamplingRate,
		factory:   pixel.NewDemod,
		simParams: make(map[string]any),
		canParams: make(map[string]any),
		fitParams: make(map[string]any),
	}
	c.model = NewSineDrive(d)
	return c, nil
}

// Derived returns the constants computed at construction.
func (c *Cantilever) Derived() Derived { return c.d }

// ResonanceMismatch reports the non-fatal advisory raised when drive and
// resonance frequency differ; the simulation then has to run long enough for
// the transient to settle.
func (c *Cantilever) ResonanceMismatch() bool { return c.mismatch }

// SetModel swaps the force/frequency variant. The integrator only ever sees
// the Model interface, so any variant pair is a drop-in replacement.
func (c *Cantilever) SetModel(m Model) { c.model = m }

// SetIntegrator swaps the numeric stepper (default: adaptive RK45).
func (c *Cantilever) SetIntegrator(integ dynamo.Integrator) { c.integ = integ }

// SetTolerance adjusts the adaptive error tolerance.
func (c *Cantilever) SetTolerance(tol float64) { c.tol = tol }

// SetAnalyzerFactory swaps the analyzer the Analyze hand-off builds.
func (c *Cantilever) SetAnalyzerFactory(f pixel.Factory) { c.factory = f }

// System exposes the equation of motion with the force window anchored at
// the nominal trigger time. The live view steps this directly instead of
// going through Simulate.
func (c *Cantilever) System() dynamo.System {
	return &equation{
		model: c.model,
		q:     c.can.QFactor,
		t0:    c.sim.Trigger,
		tau:   c.force.Tau,
	}
}

// Waveform returns the last simulated (possibly downsampled) waveform.
func (c *Cantilever) Waveform() []float64 { return c.z }

// Rate returns the sampling rate of the stored waveform.
func (c *Cantilever) Rate() float64 { return c.rate }

// Downsampled reports whether the stored waveform has been decimated and
// rescaled to volts. Reset by the next Simulate call.
func (c *Cantilever) Downsampled() bool { return c.downsampled }

// Diagnostics returns the solver bookkeeping of the last Simulate call.
func (c *Cantilever) Diagnostics() dynamo.Diagnostics { return c.diag }

// TimeAxis returns the time vector matching the stored waveform.
func (c *Cantilever) TimeAxis() []float64 {
	t := make([]float64, len(c.z))
	for i := range t {
		t[i] = float64(i) / c.rate
	}
	return t
}

// FrequencyAxis returns the single-sided frequency vector for the stored
// waveform, from DC to Nyquist.
func (c *Cantilever) FrequencyAxis() []float64 {
	n := len(c.z)/2 + 1
	f := make([]float64, n)
	if n < 2 {
		return f
	}
	for i := range f {
		f[i] = float64(i) * (c.rate / 2) / float64(n-1)
	}
	return f
}
