package cantilever_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/cantisim/internal/cantilever"
	"github.com/san-kum/cantisim/internal/pixel"
)

// trEFM-style scenario: drive at resonance, 10 MHz acquisition, 2 ms window.
func testConfigs() (cantilever.CantileverConfig, cantilever.ForceConfig, cantilever.SimConfig) {
	can := cantilever.CantileverConfig{
		AmpInvols: 5.52e-08,
		DefInvols: 5.06e-08,
		SoftAmp:   0.3,
		DriveFreq: 277261,
		ResFreq:   277261,
		K:         26.2,
		QFactor:   432,
	}
	force := cantilever.ForceConfig{
		ESForce:   3.0e-9,
		DeltaFreq: 185,
		Tau:       150e-6,
		VDC:       3.0,
		VAC:       2.0,
		VCPD:      0.4,
		DCdz:      1e-10,
	}
	sim := cantilever.SimConfig{
		Trigger:      0.0005,
		TotalTime:    0.002,
		SamplingRate: 1e7,
	}
	return can, force, sim
}

var _ = Describe("Parameter derivation", func() {
	It("derives the closed-form constants at exact resonance", func() {
		can, force, sim := testConfigs()
		c, err := cantilever.New(can, force, sim)
		Expect(err).NotTo(HaveOccurred())

		d := c.Derived()
		Expect(d.W0).To(BeNumerically("~", 2*math.Pi*277261, 1e-3))
		Expect(d.Beta).To(BeNumerically("~", d.W0/(2*432), 1e-9))
		Expect(d.Mass).To(BeNumerically("~", 26.2/(d.W0*d.W0), 1e-15))
		Expect(d.Amp).To(BeNumerically("~", 0.3*5.52e-08, 1e-15))

		// wd == w0: the phase lag limit is pi/2 and f0 collapses to
		// amp * 2 * beta * wd.
		Expect(d.Delta).To(BeNumerically("~", math.Pi/2, 1e-9))
		Expect(d.F0).To(BeNumerically("~", d.Amp*2*d.Beta*d.Wd, d.F0*1e-12))
	})

	It("flags the advisory only when drive and resonance differ", func() {
		can, force, sim := testConfigs()
		c, err := cantilever.New(can, force, sim)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.ResonanceMismatch()).To(BeFalse())

		can.DriveFreq = 277000
		c, err = cantilever.New(can, force, sim)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.ResonanceMismatch()).To(BeTrue())
	})

	It("rejects non-positive physical parameters", func() {
		can, force, sim := testConfigs()
		can.QFactor = 0
		_, err := cantilever.New(can, force, sim)
		Expect(err).To(HaveOccurred())

		can, _, _ = testConfigs()
		sim.TotalTime = -1
		_, err = cantilever.New(can, force, sim)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Phase trigger solver", func() {
	It("is invariant under +/-360 degree shifts", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)

		a := c.SetConditions(180)
		b := c.SetConditions(540)
		d := c.SetConditions(-180)

		Expect(b.TriggerPhase).To(BeNumerically("~", a.TriggerPhase, 1e-12))
		Expect(d.TriggerPhase).To(BeNumerically("~", a.TriggerPhase, 1e-12))
		Expect(b.T0).To(BeNumerically("~", a.T0, 1e-15))
		Expect(d.T0).To(BeNumerically("~", a.T0, 1e-15))
		Expect(b.Z0).To(Equal(a.Z0))
	})

	It("adds exactly two resonance cycles of pre-roll", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)

		cond := c.SetConditions(180)
		cycle := int(2 * sim.SamplingRate / can.ResFreq)
		Expect(cond.NPoints).To(Equal(20000))
		Expect(cond.NPointsSim).To(Equal(20000 + cycle))
		Expect(cond.T).To(HaveLen(cond.NPointsSim))
		Expect(cond.T[1]).To(BeNumerically("~", 1/sim.SamplingRate, 1e-18))
	})

	It("resolves the trigger inside the extended window", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)

		cond := c.SetConditions(180)
		Expect(cond.T0).To(BeNumerically(">=", sim.Trigger))
		Expect(cond.T0).To(BeNumerically("<", sim.Trigger+2/can.ResFreq))
	})
})

var _ = Describe("Simulate", func() {
	It("produces the requested window length regardless of phase", func() {
		can, force, sim := testConfigs()
		for _, phase := range []float64{0, 90, 180, 311.7} {
			c, _ := cantilever.New(can, force, sim)
			res, err := c.Simulate(phase, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Z).To(HaveLen(20000))
			Expect(res.Diagnostics.Converged).To(BeTrue())
		}
	})

	It("phase-locks the first sample to the requested trigger phase", func() {
		can, force, sim := testConfigs()
		amp := 0.3 * 5.52e-08

		// 180 degrees: the steady-state solution crosses zero, heading down.
		c, _ := cantilever.New(can, force, sim)
		res, err := c.Simulate(180, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(math.Abs(res.Z[0])).To(BeNumerically("<", 0.15*amp))
		Expect(res.Z[1]).To(BeNumerically("<", res.Z[0]))

		// 90 degrees: at the positive turning point.
		c, _ = cantilever.New(can, force, sim)
		res, err = c.Simulate(90, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Z[0]).To(BeNumerically("~", amp, 0.02*amp))
	})

	It("rejects malformed explicit initial conditions before integrating", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)

		_, err := c.Simulate(180, []float64{1.0})
		Expect(err).To(MatchError(cantilever.ErrInitialCondition))

		_, err = c.Simulate(180, []float64{1, 2, 3})
		Expect(err).To(MatchError(cantilever.ErrInitialCondition))
	})

	It("bypasses the phase search when given an explicit initial condition", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)

		res, err := c.Simulate(180, []float64{0, 0})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Z).To(HaveLen(20000))
		Expect(res.Z[0]).To(BeZero())
	})

	It("is deterministic across independent instances", func() {
		can, force, sim := testConfigs()
		z0 := []float64{1e-9, 0}

		c1, _ := cantilever.New(can, force, sim)
		c2, _ := cantilever.New(can, force, sim)

		r1, err := c1.Simulate(180, z0)
		Expect(err).NotTo(HaveOccurred())
		r2, err := c2.Simulate(180, z0)
		Expect(err).NotTo(HaveOccurred())

		Expect(r2.Z).To(Equal(r1.Z))
	})
})

var _ = Describe("Force model substitution", func() {
	It("only diverges from the default drive after the trigger", func() {
		can, force, sim := testConfigs()

		base, _ := cantilever.New(can, force, sim)
		resBase, err := base.Simulate(180, nil)
		Expect(err).NotTo(HaveOccurred())

		ts, _ := cantilever.New(can, force, sim)
		ts.SetModel(cantilever.NewTipSample(ts.Derived()))
		resTS, err := ts.Simulate(180, nil)
		Expect(err).NotTo(HaveOccurred())

		trigIdx := int(sim.Trigger * sim.SamplingRate)
		for i := 0; i < trigIdx-100; i++ {
			Expect(resTS.Z[i]).To(BeNumerically("~", resBase.Z[i], 1e-12*math.Abs(resBase.Z[i])+1e-20))
		}

		diverged := false
		for i := trigIdx + 1000; i < len(resTS.Z); i++ {
			if math.Abs(resTS.Z[i]-resBase.Z[i]) > 1e-10 {
				diverged = true
				break
			}
		}
		Expect(diverged).To(BeTrue(), "tip-sample transient should alter the post-trigger waveform")
	})
})

var _ = Describe("Downsample", func() {
	It("decimates to the expected length and converts to volts", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)
		res, err := c.Simulate(90, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Downsampled()).To(BeFalse())

		peak := res.Z[0]
		Expect(c.Downsample(1e6)).To(Succeed())
		Expect(c.Downsampled()).To(BeTrue())
		Expect(c.Waveform()).To(HaveLen(2000))
		Expect(c.Rate()).To(Equal(1e6))
		Expect(c.Waveform()[0]).To(BeNumerically("~", peak/can.DefInvols, math.Abs(peak/can.DefInvols)*1e-12))

		// a fresh simulation replaces the decimated waveform
		_, err = c.Simulate(90, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Downsampled()).To(BeFalse())
	})

	It("rejects a target at or above the current rate without mutating", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)
		_, err := c.Simulate(180, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Downsample(1e7)).To(MatchError(cantilever.ErrDownsampleRate))
		Expect(c.Downsample(2e7)).To(MatchError(cantilever.ErrDownsampleRate))
		Expect(c.Waveform()).To(HaveLen(20000))
	})

	It("requires a stored waveform", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)
		Expect(c.Downsample(1e6)).To(MatchError(cantilever.ErrNoWaveform))
	})
})

var _ = Describe("Parameter consolidation", func() {
	It("resolves override over instance value over hard default", func() {
		can, force, sim := testConfigs()
		can.K = 30.0 // differs from the hard default 26.2
		c, _ := cantilever.New(can, force, sim)

		// Explicit override wins.
		b := c.CreateParameters(nil, map[string]any{"k": 99.0}, nil)
		Expect(b.Cantilever["k"]).To(Equal(99.0))

		// Without the override, the instance value wins over the default.
		c2, _ := cantilever.New(can, force, sim)
		b = c2.CreateParameters(nil, nil, nil)
		Expect(b.Cantilever["k"]).To(Equal(30.0))

		// A key with no instance counterpart falls back to the default.
		Expect(b.Simulation["roi"]).To(Equal(0.0003))
		Expect(b.Fit["method"]).To(Equal("hilbert"))
	})

	It("persists previously resolved keys across calls", func() {
		can, force, sim := testConfigs()
		c, _ := cantilever.New(can, force, sim)

		c.CreateParameters(map[string]any{"roi": 0.001}, nil, nil)
		b := c.CreateParameters(nil, nil, nil)
		Expect(b.Simulation["roi"]).To(Equal(0.001))

		b = c.CreateParameters(map[string]any{"roi": 0.002}, nil, nil)
		Expect(b.Simulation["roi"]).To(Equal(0.002))
	})
})

// recordingAnalyzer captures the hand-off for inspection.
type recordingAnalyzer struct {
	z         []float64
	simParams map[string]any
	canParams map[string]any
	fitParams map[string]any
	analyzed  bool
	plotted   bool
}

func (r *recordingAnalyzer) Analyze() error { r.analyzed = true; return nil }
func (r *recordingAnalyzer) TFP() float64   { return 1e-4 }
func (r *recordingAnalyzer) Shift() float64 { return -185 }
func (r *recordingAnalyzer) Plot() error    { r.plotted = true; return nil }

var _ = Describe("Analyze", func() {
	var (
		c   *cantilever.Cantilever
		rec *recordingAnalyzer
	)

	BeforeEach(func() {
		can, force, sim := testConfigs()
		c, _ = cantilever.New(can, force, sim)
		rec = &recordingAnalyzer{}
		c.SetAnalyzerFactory(func(z []float64, sp, cp, fp map[string]any) pixel.Analyzer {
			rec.z = z
			rec.simParams = sp
			rec.canParams = cp
			rec.fitParams = fp
			return rec
		})
	})

	It("requires a waveform", func() {
		_, err := c.Analyze(false, nil)
		Expect(err).To(MatchError(cantilever.ErrNoWaveform))
	})

	It("routes overrides by allow-list membership and drops unknown keys", func() {
		_, err := c.Simulate(180, nil)
		Expect(err).NotTo(HaveOccurred())

		a, err := c.Analyze(false, map[string]any{
			"roi":      0.0008,
			"q_factor": 500.0,
			"method":   "stft",
			"bogus":    42,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(BeIdenticalTo(pixel.Analyzer(rec)))

		Expect(rec.analyzed).To(BeTrue())
		Expect(rec.plotted).To(BeFalse())
		Expect(rec.z).To(HaveLen(20000))
		Expect(rec.simParams["roi"]).To(Equal(0.0008))
		Expect(rec.canParams["q_factor"]).To(Equal(500.0))
		Expect(rec.fitParams["method"]).To(Equal("stft"))
		Expect(rec.simParams).NotTo(HaveKey("bogus"))
		Expect(rec.canParams).NotTo(HaveKey("bogus"))
		Expect(rec.fitParams).NotTo(HaveKey("bogus"))
	})

	It("invokes the display routine when plot is requested", func() {
		_, err := c.Simulate(180, nil)
		Expect(err).NotTo(HaveOccurred())

		_, err = c.Analyze(true, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.plotted).To(BeTrue())
	})
})

var _ = Describe("SimulateLine", func() {
	It("rejects a non-positive pixel count", func() {
		can, force, sim := testConfigs()

		_, err := cantilever.SimulateLine(can, force, sim, 0, 180, nil)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("must be positive"))

		_, err = cantilever.SimulateLine(can, force, sim, -3, 180, nil)
		Expect(err).To(HaveOccurred())
	})

	It("builds a transposed signal array, one column per pixel", func() {
		can, force, sim := testConfigs()
		sim.TotalTime = 0.0004
		sim.Trigger = 0.0001

		signal, err := cantilever.SimulateLine(can, force, sim, 4, 180, func(i int, fc cantilever.ForceConfig) cantilever.ForceConfig {
			fc.DeltaFreq += float64(i) * 20
			return fc
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(signal).To(HaveLen(4000))
		Expect(signal[0]).To(HaveLen(4))
	})
})
