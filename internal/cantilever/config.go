package cantilever

import "fmt"

// CantileverConfig holds the physical cantilever properties. Immutable after
// construction; everything the equations of motion need is derived once.
type CantileverConfig struct {
	AmpInvols float64 `yaml:"amp_invols"` // amplitude sensitivity (m/V)
	DefInvols float64 `yaml:"def_invols"` // deflection sensitivity (m/V)
	SoftAmp   float64 `yaml:"soft_amp"`   // drive amplitude setpoint (V)
	DriveFreq float64 `yaml:"drive_freq"` // Hz
	ResFreq   float64 `yaml:"res_freq"`   // Hz
	K         float64 `yaml:"k"`          // spring constant (N/m)
	QFactor   float64 `yaml:"q_factor"`
}

func (c CantileverConfig) Validate() error {
	switch {
	case c.AmpInvols <= 0:
		return fmt.Errorf("cantilever: amp_invols must be positive, got %g", c.AmpInvols)
	case c.DefInvols <= 0:
		return fmt.Errorf("cantilever: def_invols must be positive, got %g", c.DefInvols)
	case c.SoftAmp <= 0:
		return fmt.Errorf("cantilever: soft_amp must be positive, got %g", c.SoftAmp)
	case c.DriveFreq <= 0:
		return fmt.Errorf("cantilever: drive_freq must be positive, got %g", c.DriveFreq)
	case c.ResFreq <= 0:
		return fmt.Errorf("cantilever: res_freq must be positive, got %g", c.ResFreq)
	case c.K <= 0:
		return fmt.Errorf("cantilever: k must be positive, got %g", c.K)
	case c.QFactor <= 0:
		return fmt.Errorf("cantilever: q_factor must be positive, got %g", c.QFactor)
	}
	return nil
}

// ForceConfig holds the tip-sample interaction parameters used by the
// non-default drive models.
type ForceConfig struct {
	ESForce   float64 `yaml:"es_force"`   // electrostatic force magnitude (N)
	DeltaFreq float64 `yaml:"delta_freq"` // frequency shift under excitation (Hz)
	Tau       float64 `yaml:"tau"`        // relaxation time constant (s)
	VDC       float64 `yaml:"v_dc"`       // DC bias (V)
	VAC       float64 `yaml:"v_ac"`       // AC bias (V)
	VCPD      float64 `yaml:"v_cpd"`      // contact potential difference (V)
	DCdz      float64 `yaml:"dCdz"`       // capacitance gradient (F/m)
}

// SimConfig holds the acquisition window parameters.
type SimConfig struct {
	Trigger      float64 `yaml:"trigger"`       // excitation trigger time (s)
	TotalTime    float64 `yaml:"total_time"`    // simulated duration (s)
	SamplingRate float64 `yaml:"sampling_rate"` // Hz
}

func (s SimConfig) Validate() error {
	switch {
	case s.Trigger <= 0:
		return fmt.Errorf("cantilever: trigger must be positive, got %g", s.Trigger)
	case s.TotalTime <= 0:
		return fmt.Errorf("cantilever: total_time must be positive, got %g", s.TotalTime)
	case s.SamplingRate <= 0:
		return fmt.Errorf("cantilever: sampling_rate must be positive, got %g", s.SamplingRate)
	case s.Trigger >= s.TotalTime:
		return fmt.Errorf("cantilever: trigger %g must fall inside total_time %g", s.Trigger, s.TotalTime)
	}
	return nil
}
