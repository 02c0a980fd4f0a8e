package pixel

import "fmt"

// Line is a container for one scan line: a 2-D signal array whose columns
// hold repeated acquisitions, split evenly into pixels for analysis.
type Line struct {
	signal  [][]float64 // [n_points][n_signals]
	nPixels int
	params  map[string]any
	factory Factory

	tfp   []float64
	shift []float64
}

// NewLine validates the signal array shape. The number of signal columns
// must divide evenly into nPixels.
func NewLine(signal [][]float64, nPixels int, params map[string]any, factory Factory) (*Line, error) {
	if nPixels <= 0 {
		return nil, fmt.Errorf("pixel: nPixels must be positive, got %d", nPixels)
	}
	if len(signal) == 0 || len(signal[0]) == 0 {
		return nil, fmt.Errorf("pixel: empty signal array")
	}
	if len(signal[0])%nPixels != 0 {
		return nil, fmt.Errorf("pixel: %d signals do not split into %d pixels", len(signal[0]), nPixels)
	}
	if factory == nil {
		factory = NewDemod
	}
	return &Line{
		signal:  signal,
		nPixels: nPixels,
		params:  params,
		factory: factory,
		tfp:     make([]float64, nPixels),
		shift:   make([]float64, nPixels),
	}, nil
}

// GetTFP runs the analyzer over every pixel segment and returns parallel
// tFP and frequency-shift slices, one entry per pixel.
func (l *Line) GetTFP() ([]float64, []float64, error) {
	perPixel := len(l.signal[0]) / l.nPixels

	for p := 0; p < l.nPixels; p++ {
		// Average the columns belonging to this pixel into one waveform.
		z := make([]float64, len(l.signal))
		for i := range l.signal {
			sum := 0.0
			for j := p * perPixel; j < (p+1)*perPixel; j++ {
				sum += l.signal[i][j]
			}
			z[i] = sum / float64(perPixel)
		}

		a := l.factory(z, l.params, nil, nil)
		if err := a.Analyze(); err != nil {
			return nil, nil, fmt.Errorf("pixel %d: %w", p, err)
		}
		l.tfp[p] = a.TFP()
		l.shift[p] = a.Shift()
	}

	return l.tfp, l.shift, nil
}
