package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFinalTime       = 1.0
	DefaultOutputInterval  = 0.1
	DefaultCFL             = 0.3
	DefaultMaxSteps        = 100000
	DefaultRefinements     = 3
	DefaultAdaptInterval   = 25
	DefaultRefineFraction  = 0.1
	DefaultCoarsenFraction = 0.6
)

// Configuration errors are fatal and detected before any simulation work.
var (
	ErrUnsupportedDimension = errors.New("config: dimension must be 2 or 3")
	ErrUnsupportedDegree    = errors.New("config: approximation degree must be in 1..5")
	ErrUnsupportedScheme    = errors.New("config: unknown time integration scheme")
	ErrAdaptive1D           = errors.New("config: adaptive refinement is not supported in 1-D with a distributed mesh")
	ErrInvalidTiming        = errors.New("config: final time, output interval and cfl number must be positive")
)

// Parameters is the full parameter-file surface of a simulation run.
type Parameters struct {
	Dimension   int     `yaml:"dimension"`
	Degree      int     `yaml:"degree"`
	Scheme      string  `yaml:"scheme"`
	SSPRKStages int     `yaml:"ssprk_stages"`
	SSPRKOrder  int     `yaml:"ssprk_order"`
	CFL         float64 `yaml:"cfl"`
	FinalTime   float64 `yaml:"final_time"`
	OutputEvery float64 `yaml:"output_interval"`
	MaxSteps    int     `yaml:"max_steps"`

	// Refinements is the uniform pre-refinement depth and the minimum cell
	// level; AdaptiveRefinements on top of it gives the maximum level.
	Refinements         int `yaml:"refinements"`
	AdaptiveRefinements int `yaml:"adaptive_refinements"`
	AdaptInterval       int `yaml:"adapt_interval"`

	RefineFraction  float64 `yaml:"refine_fraction"`
	CoarsenFraction float64 `yaml:"coarsen_fraction"`

	InitialCase int `yaml:"initial_case"`

	// CFLStabilityAnalysis switches the binary from a single run to the
	// bisection search over CFL numbers.
	CFLStabilityAnalysis bool `yaml:"cfl_stability_analysis"`

	OutputDir string `yaml:"output_dir"`
	DataDir   string `yaml:"data_dir"`
}

func Default() *Parameters {
	return &Parameters{
		Dimension:           2,
		Degree:              2,
		Scheme:              "lsrk45reg2",
		SSPRKStages:         4,
		SSPRKOrder:          3,
		CFL:                 DefaultCFL,
		FinalTime:           DefaultFinalTime,
		OutputEvery:         DefaultOutputInterval,
		MaxSteps:            DefaultMaxSteps,
		Refinements:         DefaultRefinements,
		AdaptiveRefinements: 0,
		AdaptInterval:       DefaultAdaptInterval,
		RefineFraction:      DefaultRefineFraction,
		CoarsenFraction:     DefaultCoarsenFraction,
		InitialCase:         1,
		OutputDir:           "output",
		DataDir:             ".eulerdg",
	}
}

// Schemes lists the known scheme selectors.
func Schemes() []string {
	return []string{"euler", "rk4", "lsrk33reg2", "lsrk45reg2", "rk44reg3", "dopri5", "ssprk"}
}

func knownScheme(name string) bool {
	for _, s := range Schemes() {
		if s == name {
			return true
		}
	}
	return false
}

// Load reads a parameter file, applying defaults for absent keys.
func Load(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func Save(path string, p *Parameters) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration-error taxonomy up front; a Parameters
// value that passes never fails later for configuration reasons.
func (p *Parameters) Validate() error {
	if p.Dimension != 2 && p.Dimension != 3 {
		if p.Dimension == 1 && p.AdaptiveRefinements > 0 {
			return fmt.Errorf("%w (dimension=1, adaptive_refinements=%d)",
				ErrAdaptive1D, p.AdaptiveRefinements)
		}
		return fmt.Errorf("%w (got %d)", ErrUnsupportedDimension, p.Dimension)
	}
	if p.Degree < 1 || p.Degree > 5 {
		return fmt.Errorf("%w (got %d)", ErrUnsupportedDegree, p.Degree)
	}
	if !knownScheme(p.Scheme) {
		return fmt.Errorf("%w (got %q, known: %v)", ErrUnsupportedScheme, p.Scheme, Schemes())
	}
	if p.FinalTime <= 0 || p.OutputEvery <= 0 || p.CFL <= 0 {
		return fmt.Errorf("%w (final_time=%g output_interval=%g cfl=%g)",
			ErrInvalidTiming, p.FinalTime, p.OutputEvery, p.CFL)
	}
	if p.MaxSteps <= 0 {
		return fmt.Errorf("%w (max_steps=%d)", ErrInvalidTiming, p.MaxSteps)
	}
	if p.Refinements < 0 || p.AdaptiveRefinements < 0 || p.AdaptInterval <= 0 {
		return fmt.Errorf("config: refinements=%d adaptive_refinements=%d adapt_interval=%d out of range",
			p.Refinements, p.AdaptiveRefinements, p.AdaptInterval)
	}
	if p.RefineFraction < 0 || p.CoarsenFraction < 0 || p.RefineFraction+p.CoarsenFraction > 1 {
		return fmt.Errorf("config: refine_fraction=%g coarsen_fraction=%g must be non-negative and sum to at most 1",
			p.RefineFraction, p.CoarsenFraction)
	}
	return nil
}

// MinLevel and MaxLevel are the adaptation bounds implied by the
// refinement counts.
func (p *Parameters) MinLevel() int { return p.Refinements }
func (p *Parameters) MaxLevel() int { return p.Refinements + p.AdaptiveRefinements }

// Adaptive reports whether mesh adaptation is enabled at all.
func (p *Parameters) Adaptive() bool { return p.AdaptiveRefinements > 0 }
