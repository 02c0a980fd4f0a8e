// Package export renders simulation results to image files.
package export

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func makeXYs(x, y []float64) (plotter.XYs, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("export: axis length %d does not match data length %d", len(x), len(y))
	}
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}
	return pts, nil
}

// WaveformPNG plots the deflection trace against time, in microseconds and
// nanometers so the axes stay readable.
func WaveformPNG(path string, times, z []float64, title string) error {
	scaled := make([]float64, len(z))
	usec := make([]float64, len(times))
	for i := range z {
		scaled[i] = z[i] * 1e9
		usec[i] = times[i] * 1e6
	}

	pts, err := makeXYs(usec, scaled)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (µs)"
	p.Y.Label.Text = "deflection (nm)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line, plotter.NewGrid())

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}

// SpectrumPNG plots a single-sided power spectrum on a log power axis.
func SpectrumPNG(path string, freqs, power []float64, title string) error {
	khz := make([]float64, len(freqs))
	for i := range freqs {
		khz[i] = freqs[i] * 1e-3
	}

	// log axis, zero bins get floored
	clamped := make([]float64, len(power))
	for i, v := range power {
		if v < 1e-30 {
			v = 1e-30
		}
		clamped[i] = v
	}

	pts, err := makeXYs(khz, clamped)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "frequency (kHz)"
	p.Y.Label.Text = "power"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line, plotter.NewGrid())

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
