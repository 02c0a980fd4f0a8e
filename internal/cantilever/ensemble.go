package cantilever

import (
	"fmt"
	"sync"
)

// SimulateLine builds one scan line by simulating nPixels cantilevers
// concurrently. Simulator instances are cheap and not safe for concurrent
// Simulate calls, so each pixel gets its own instance. vary, when non-nil,
// perturbs the force parameters per pixel (e.g. a varying surface potential
// along the line). The returned array is [n_points][nPixels], ready for the
// pixel.Line fan-out.
func SimulateLine(can CantileverConfig, force ForceConfig, sim SimConfig, nPixels int, phaseDeg float64, vary func(i int, fc ForceConfig) ForceConfig) ([][]float64, error) {
	if nPixels <= 0 {
		return nil, fmt.Errorf("cantilever: nPixels must be positive, got %d", nPixels)
	}

	waveforms := make([][]float64, nPixels)
	errs := make([]error, nPixels)

	var wg sync.WaitGroup
	for i := 0; i < nPixels; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			fc := force
			if vary != nil {
				fc = vary(idx, fc)
			}

			c, err := New(can, fc, sim)
			if err != nil {
				errs[idx] = err
				return
			}
			c.SetModel(NewTipSample(c.Derived()))

			res, err := c.Simulate(phaseDeg, nil)
			if err != nil {
				errs[idx] = err
				return
			}
			waveforms[idx] = res.Z
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Transpose into the [n_points][n_signals] layout the line analyzer
	// expects, one signal column per pixel.
	n := len(waveforms[0])
	signal := make([][]float64, n)
	for i := range signal {
		row := make([]float64, nPixels)
		for p := 0; p < nPixels; p++ {
			row[p] = waveforms[p][i]
		}
		signal[i] = row
	}
	return signal, nil
}
