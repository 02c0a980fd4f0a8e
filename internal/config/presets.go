package config

// Presets are ready-made scenarios; "trefm" is the canonical
// drive-at-resonance acquisition the defaults are calibrated against.
var Presets = map[string]func() *Config{
	"trefm": func() *Config {
		return DefaultConfig()
	},
	"tipsample": func() *Config {
		cfg := DefaultConfig()
		cfg.Model = "tipsample"
		return cfg
	},
	"electric": func() *Config {
		cfg := DefaultConfig()
		cfg.Model = "electric"
		return cfg
	},
	"mismatch": func() *Config {
		// Drive pulled off resonance; needs the longer window to settle.
		cfg := DefaultConfig()
		cfg.Cantilever.DriveFreq = 272000
		cfg.Simulation.TotalTime = 0.004
		return cfg
	},
	"fast": func() *Config {
		cfg := DefaultConfig()
		cfg.Simulation.TotalTime = 0.0005
		cfg.Simulation.Trigger = 0.0001
		return cfg
	},
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
