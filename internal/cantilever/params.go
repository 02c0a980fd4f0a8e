package cantilever

import "github.com/san-kum/cantisim/internal/pixel"

// The analyzer grew its parameter surface independently of the simulator;
// these tables pin down the recognized keys and their hard defaults for each
// of the three groups. Keys outside the tables are never forwarded.
var simDefaults = map[string]any{
	"bandpass_filter":  1.0,
	"drive_freq":       277261.0,
	"filter_bandwidth": 10000.0,
	"n_taps":           799,
	"roi":              0.0003,
	"sampling_rate":    1e7,
	"total_time":       0.002,
	"trigger":          0.0005,
	"window":           "blackman",
	"wavelet_analysis": 0,
	"fft_params":       map[string]any{},
}

var canDefaults = map[string]any{
	"amp_invols": 5.52e-08,
	"def_invols": 5.06e-08,
	"k":          26.2,
	"q_factor":   432.0,
}

var fitDefaults = map[string]any{
	"filter_amplitude": true,
	"method":           "hilbert",
	"fit":              true,
	"fit_form":         "product",
}

// ParameterBundle is the hand-off structure consumed by the analyzer; the
// simulator never reads it back.
type ParameterBundle struct {
	Simulation map[string]any
	Cantilever map[string]any
	Fit        map[string]any
}

// resolveLayers fills dst for every recognized key, in precedence order:
// explicit override, previously resolved value, the simulator's own derived
// value, hard default. Keys absent from defaults are ignored.
func resolveLayers(dst, override map[string]any, derived func(string) (any, bool), defaults map[string]any) {
	for key, def := range defaults {
		if v, ok := override[key]; ok {
			dst[key] = v
			continue
		}
		if _, ok := dst[key]; ok {
			continue
		}
		if v, ok := derived(key); ok {
			dst[key] = v
			continue
		}
		dst[key] = def
	}
}

// derivedSimValue exposes the simulator's configured values under the
// analyzer's simulation-group key names.
func (c *Cantilever) derivedSimValue(key string) (any, bool) {
	switch key {
	case "drive_freq":
		return c.can.DriveFreq, true
	case "sampling_rate":
		return c.sim.SamplingRate, true
	case "total_time":
		return c.sim.TotalTime, true
	case "trigger":
		return c.sim.Trigger, true
	}
	return nil, false
}

func (c *Cantilever) derivedCanValue(key string) (any, bool) {
	switch key {
	case "amp_invols":
		return c.can.AmpInvols, true
	case "def_invols":
		return c.can.DefInvols, true
	case "k":
		return c.can.K, true
	case "q_factor":
		return c.can.QFactor, true
	}
	return nil, false
}

func noDerived(string) (any, bool) { return nil, false }

// CreateParameters consolidates the three parameter groups into the
// persistent bundle. Later calls only add or override the keys they
// explicitly mention; previously resolved keys persist.
func (c *Cantilever) CreateParameters(simOv, canOv, fitOv map[string]any) ParameterBundle {
	resolveLayers(c.simParams, simOv, c.derivedSimValue, simDefaults)
	resolveLayers(c.canParams, canOv, c.derivedCanValue, canDefaults)
	resolveLayers(c.fitParams, fitOv, noDerived, fitDefaults)

	return ParameterBundle{
		Simulation: c.simParams,
		Cantilever: c.canParams,
		Fit:        c.fitParams,
	}
}

// Analyze consolidates parameters and hands the stored waveform to the
// analyzer. Overrides are routed to the simulation/cantilever/fit groups
// purely by key membership; unknown keys are silently dropped. When plot is
// true the analyzer's display routine runs as a side effect.
func (c *Cantilever) Analyze(plot bool, overrides map[string]any) (pixel.Analyzer, error) {
	if c.z == nil {
		return nil, ErrNoWaveform
	}

	simOv := make(map[string]any)
	canOv := make(map[string]any)
	fitOv := make(map[string]any)
	for k, v := range overrides {
		switch {
		case hasKey(simDefaults, k):
			simOv[k] = v
		case hasKey(canDefaults, k):
			canOv[k] = v
		case hasKey(fitDefaults, k):
			fitOv[k] = v
		}
	}

	bundle := c.CreateParameters(simOv, canOv, fitOv)

	pix := c.factory(c.z, bundle.Simulation, bundle.Cantilever, bundle.Fit)
	if err := pix.Analyze(); err != nil {
		return nil, err
	}
	if plot {
		if err := pix.Plot(); err != nil {
			return nil, err
		}
	}
	return pix, nil
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}
