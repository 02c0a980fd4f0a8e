package pixel

import (
	"errors"
	"math"
	"testing"
)

// chirp synthesizes a phase-continuous sine that jumps from f0 to f0+df at
// the trigger time.
func chirp(n int, fs, f0, trig, df float64) []float64 {
	z := make([]float64, n)
	phase := 0.0
	for i := range z {
		t := float64(i) / fs
		f := f0
		if t >= trig {
			f = f0 + df
		}
		z[i] = math.Sin(phase)
		phase += 2 * math.Pi * f / fs
	}
	return z
}

func demodParams() map[string]any {
	return map[string]any{
		"sampling_rate": 1e7,
		"trigger":       3e-4,
		"roi":           3e-4,
	}
}

func TestDemodShift(t *testing.T) {
	z := chirp(10000, 1e7, 250e3, 3e-4, 2000)

	a := NewDemod(z, demodParams(), nil, nil)
	if err := a.Analyze(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if math.Abs(a.Shift()-2000) > 200 {
		t.Errorf("shift = %.1f Hz, want ~2000", a.Shift())
	}
	// frequency steps instantly at the trigger, so the peak sits in the
	// first few half cycles
	if a.TFP() < 0 || a.TFP() > 2e-5 {
		t.Errorf("tfp = %.3e s, want within first cycles after trigger", a.TFP())
	}
}

func TestDemodNegativeShift(t *testing.T) {
	z := chirp(10000, 1e7, 250e3, 3e-4, -1500)

	a := NewDemod(z, demodParams(), nil, nil)
	if err := a.Analyze(); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.Shift() >= 0 {
		t.Errorf("shift = %.1f Hz, want negative", a.Shift())
	}
	if math.Abs(a.Shift()+1500) > 200 {
		t.Errorf("shift = %.1f Hz, want ~-1500", a.Shift())
	}
}

func TestDemodShortWaveform(t *testing.T) {
	a := NewDemod([]float64{0, 1, 0, -1}, demodParams(), nil, nil)
	if err := a.Analyze(); !errors.Is(err, ErrShortWaveform) {
		t.Errorf("expected ErrShortWaveform, got %v", err)
	}

	// long enough but no zero crossings
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 1.0
	}
	a = NewDemod(flat, demodParams(), nil, nil)
	if err := a.Analyze(); !errors.Is(err, ErrShortWaveform) {
		t.Errorf("expected ErrShortWaveform for flat signal, got %v", err)
	}
}

func TestDemodPlotBeforeAnalyze(t *testing.T) {
	a := NewDemod(chirp(10000, 1e7, 250e3, 3e-4, 2000), demodParams(), nil, nil)
	if err := a.Plot(); !errors.Is(err, ErrNotAnalyzed) {
		t.Errorf("expected ErrNotAnalyzed, got %v", err)
	}
}

func TestNewLineValidation(t *testing.T) {
	good := [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}}

	if _, err := NewLine(good, 0, nil, nil); err == nil {
		t.Error("expected error for nPixels 0")
	}
	if _, err := NewLine(nil, 2, nil, nil); err == nil {
		t.Error("expected error for empty signal")
	}
	if _, err := NewLine(good, 3, nil, nil); err == nil {
		t.Error("expected error when columns do not split into pixels")
	}
	if _, err := NewLine(good, 2, nil, nil); err != nil {
		t.Errorf("valid shape rejected: %v", err)
	}
}

func TestLineGetTFP(t *testing.T) {
	n := 10000
	up := chirp(n, 1e7, 250e3, 3e-4, 1500)
	down := chirp(n, 1e7, 250e3, 3e-4, -1500)

	// two pixels, two identical columns each
	signal := make([][]float64, n)
	for i := range signal {
		signal[i] = []float64{up[i], up[i], down[i], down[i]}
	}

	line, err := NewLine(signal, 2, demodParams(), nil)
	if err != nil {
		t.Fatalf("new line: %v", err)
	}

	tfp, shift, err := line.GetTFP()
	if err != nil {
		t.Fatalf("get tfp: %v", err)
	}
	if len(tfp) != 2 || len(shift) != 2 {
		t.Fatalf("expected 2 pixels, got %d/%d", len(tfp), len(shift))
	}
	if shift[0] <= 0 {
		t.Errorf("pixel 0 shift = %.1f, want positive", shift[0])
	}
	if shift[1] >= 0 {
		t.Errorf("pixel 1 shift = %.1f, want negative", shift[1])
	}
}
