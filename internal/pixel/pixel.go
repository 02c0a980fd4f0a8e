// Package pixel is the analysis boundary of the simulator. A pixel is one
// waveform segment of a scan line; an Analyzer extracts its time-to-first-peak
// and frequency shift. The simulator only depends on the interfaces here, so
// a full spectral analyzer can be dropped in without touching the core.
package pixel

import (
	"errors"
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
)

// Analyzer extracts time-to-first-peak (tFP) and frequency shift from one
// pixel-sized waveform.
type Analyzer interface {
	Analyze() error
	TFP() float64
	Shift() float64
	Plot() error
}

// Factory builds an Analyzer from a waveform and the three consolidated
// parameter groups handed over by the simulator.
type Factory func(z []float64, simParams, canParams, fitParams map[string]any) Analyzer

var (
	ErrShortWaveform = errors.New("pixel: waveform too short to demodulate")
	ErrNotAnalyzed   = errors.New("pixel: Analyze has not been called")
)

// Demod is the default Analyzer: it demodulates the instantaneous frequency
// from zero crossings of the deflection signal, then locates the extremal
// frequency excursion inside the region of interest after the trigger.
type Demod struct {
	z    []float64
	rate float64
	trig float64
	roi  float64

	freq  []float64 // instantaneous frequency per half cycle
	ft    []float64 // midpoint time of each half cycle
	tfp   float64
	shift float64
	done  bool
}

// NewDemod builds a Demod from consolidated parameter groups. Only the
// simulation group is consulted; cantilever and fit parameters are accepted
// for interface compatibility with richer analyzers.
func NewDemod(z []float64, simParams, canParams, fitParams map[string]any) Analyzer {
	return &Demod{
		z:    z,
		rate: floatParam(simParams, "sampling_rate", 1e7),
		trig: floatParam(simParams, "trigger", 0),
		roi:  floatParam(simParams, "roi", 3e-4),
	}
}

// floatParam reads a numeric value out of a heterogeneous parameter map.
func floatParam(m map[string]any, key string, fallback float64) float64 {
	v, ok := m[key]
	if !ok {
		return fallback
	}
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return fallback
	}
}

func (d *Demod) Analyze() error {
	if len(d.z) < 8 {
		return ErrShortWaveform
	}

	d.freq = d.freq[:0]
	d.ft = d.ft[:0]

	// Zero crossings with linear interpolation; each half cycle between
	// consecutive crossings yields one instantaneous frequency sample.
	prev := math.NaN()
	for i := 0; i < len(d.z)-1; i++ {
		a, b := d.z[i], d.z[i+1]
		if a == 0 || a*b >= 0 {
			continue
		}
		tc := (float64(i) + a/(a-b)) / d.rate
		if !math.IsNaN(prev) {
			half := tc - prev
			if half > 0 {
				d.freq = append(d.freq, 1.0/(2.0*half))
				d.ft = append(d.ft, (tc+prev)/2)
			}
		}
		prev = tc
	}

	if len(d.freq) < 4 {
		return ErrShortWaveform
	}

	// Steady-state frequency from the pre-trigger half cycles.
	steady := 0.0
	n := 0
	for i, t := range d.ft {
		if t >= d.trig {
			break
		}
		steady += d.freq[i]
		n++
	}
	if n == 0 {
		steady = d.freq[0]
		n = 1
	}
	steady /= float64(n)

	// Extremal excursion from steady state inside the roi window.
	best := 0.0
	bestT := d.trig
	for i, t := range d.ft {
		if t < d.trig || t > d.trig+d.roi {
			continue
		}
		dev := d.freq[i] - steady
		if math.Abs(dev) > math.Abs(best) {
			best = dev
			bestT = t
		}
	}

	d.tfp = bestT - d.trig
	d.shift = best
	d.done = true
	return nil
}

// TFP returns the time from trigger to the first frequency peak, in seconds.
func (d *Demod) TFP() float64 { return d.tfp }

// Shift returns the signed frequency excursion at the first peak, in Hz.
func (d *Demod) Shift() float64 { return d.shift }

func (d *Demod) Plot() error {
	if !d.done {
		return ErrNotAnalyzed
	}
	graph := asciigraph.Plot(d.freq,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("instantaneous frequency (Hz)"),
	)
	fmt.Println(graph)
	fmt.Printf("tfp: %.3e s  shift: %+.1f Hz\n", d.tfp, d.shift)
	return nil
}
