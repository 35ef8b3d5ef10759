package config

// Presets are ready-made parameter sets for common experiments.

var presets = map[string]func() *Parameters{
	"smoke": func() *Parameters {
		p := Default()
		p.Scheme = "euler"
		p.Refinements = 2
		p.FinalTime = 0.2
		p.OutputEvery = 0.1
		return p
	},
	"adaptive": func() *Parameters {
		p := Default()
		p.AdaptiveRefinements = 2
		p.AdaptInterval = 20
		p.InitialCase = 1
		return p
	},
	"cfl-scan": func() *Parameters {
		p := Default()
		p.CFLStabilityAnalysis = true
		p.FinalTime = 0.5
		p.OutputEvery = 0.05
		p.MaxSteps = 20000
		return p
	},
	"convergence": func() *Parameters {
		p := Default()
		p.Scheme = "dopri5"
		p.Degree = 4
		p.Refinements = 4
		p.InitialCase = 2
		return p
	},
}

// GetPreset returns a copy of the named preset, or nil if unknown.
func GetPreset(name string) *Parameters {
	fn, ok := presets[name]
	if !ok {
		return nil
	}
	return fn()
}

// ListPresets returns the available preset names.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
