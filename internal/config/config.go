package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/cantisim/internal/cantilever"
	"github.com/san-kum/cantisim/internal/dynamo"
	"github.com/san-kum/cantisim/internal/integrators"
)

const (
	DefaultTriggerPhase = 180.0
	DefaultTolerance    = 1e-7
)

type Config struct {
	Model        string  `yaml:"model"`         // sine | tipsample | electric
	Integrator   string  `yaml:"integrator"`    // euler | rk4 | rk45
	TriggerPhase float64 `yaml:"trigger_phase"` // degrees, wrt cosine
	Tolerance    float64 `yaml:"tolerance"`
	Downsample   float64 `yaml:"downsample"` // target rate in Hz, 0 keeps native

	Cantilever cantilever.CantileverConfig `yaml:"cantilever"`
	Force      cantilever.ForceConfig      `yaml:"force"`
	Simulation cantilever.SimConfig        `yaml:"simulation"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:        "sine",
		Integrator:   "rk45",
		TriggerPhase: DefaultTriggerPhase,
		Tolerance:    DefaultTolerance,
		Cantilever: cantilever.CantileverConfig{
			AmpInvols: 5.52e-08,
			DefInvols: 5.06e-08,
			SoftAmp:   0.3,
			DriveFreq: 277261,
			ResFreq:   277261,
			K:         26.2,
			QFactor:   432,
		},
		Force: cantilever.ForceConfig{
			ESForce:   3.0e-9,
			DeltaFreq: 170,
			Tau:       100e-6,
			VDC:       3.0,
			VAC:       2.0,
			VCPD:      0.4,
			DCdz:      1e-10,
		},
		Simulation: cantilever.SimConfig{
			Trigger:      0.0005,
			TotalTime:    0.002,
			SamplingRate: 1e7,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Build constructs a simulator from the config, resolving the model and
// integrator names.
func (c *Config) Build() (*cantilever.Cantilever, error) {
	sim, err := cantilever.New(c.Cantilever, c.Force, c.Simulation)
	if err != nil {
		return nil, err
	}

	switch c.Model {
	case "", "sine":
		// default model, nothing to swap
	case "tipsample":
		sim.SetModel(cantilever.NewTipSample(sim.Derived()))
	case "electric":
		sim.SetModel(cantilever.NewElectricDrive(sim.Derived(), c.Force))
	default:
		return nil, fmt.Errorf("unknown model: %s", c.Model)
	}

	var integ dynamo.Integrator
	switch c.Integrator {
	case "euler":
		integ = integrators.NewEuler()
	case "rk4":
		integ = integrators.NewRK4()
	case "", "rk45":
		integ = integrators.NewRK45()
	default:
		return nil, fmt.Errorf("unknown integrator: %s", c.Integrator)
	}
	sim.SetIntegrator(integ)

	if c.Tolerance > 0 {
		sim.SetTolerance(c.Tolerance)
	}
	return sim, nil
}
