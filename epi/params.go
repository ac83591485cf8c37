package epi

import (
	"fmt"
)

// RateParams holds every per-capita rate a model compiles against.
// All rates are canonical per-day floats; unit conversion belongs to the
// caller's configuration layer. Treat a constructed RateParams as
// immutable: the operator compiler and concurrent replicate runs share it
// read-only.
type RateParams struct {
	// Birth and Death are demographic rates indexed [age category][class].
	Birth [][]float64
	Death [][]float64

	// AgeMixing weights contact intensity between age cohorts. Square,
	// one row per age category.
	AgeMixing [][]float64

	// BetaForce and BetaEnv are the direct-contact and environmental
	// transmission rates.
	BetaForce float64
	BetaEnv   float64

	// VirusDecay is the exponential decay rate of the environmental pool.
	VirusDecay float64

	// FreqVsDensityForce and FreqVsDensityEnv blend frequency-dependent
	// (proportion of infectious) against density-dependent (absolute
	// count) transmission. Both lie in [0,1]; 1 is pure frequency.
	FreqVsDensityForce float64
	FreqVsDensityEnv   float64

	// Stage maps a rate name (referenced by model edges and shedding) to
	// its per-age rate vector.
	Stage map[string][]float64
}

// Config carries the inputs for a multi-age-category parameter set.
type Config struct {
	Birth              [][]float64
	Death              [][]float64
	AgeMixing          [][]float64
	BetaForce          float64
	BetaEnv            float64
	VirusDecay         float64
	FreqVsDensityForce float64
	FreqVsDensityEnv   float64
	Stage              map[string][]float64
}

// ScalarConfig carries the inputs for a single-age-category parameter set.
// Scalars are broadcast to every live class.
type ScalarConfig struct {
	Birth              float64
	Death              float64
	BetaForce          float64
	BetaEnv            float64
	VirusDecay         float64
	FreqVsDensityForce float64
	FreqVsDensityEnv   float64
	Stage              map[string]float64
}

// NewRateParams builds a multi-age parameter set. Fatal validation
// findings are returned as an error; advisory findings are logged and do
// not block construction.
func NewRateParams(cfg Config) (*RateParams, error) {
	p := &RateParams{
		Birth:              deepCopy(cfg.Birth),
		Death:              deepCopy(cfg.Death),
		AgeMixing:          deepCopy(cfg.AgeMixing),
		BetaForce:          cfg.BetaForce,
		BetaEnv:            cfg.BetaEnv,
		VirusDecay:         cfg.VirusDecay,
		FreqVsDensityForce: cfg.FreqVsDensityForce,
		FreqVsDensityEnv:   cfg.FreqVsDensityEnv,
		Stage:              copyStage(cfg.Stage),
	}
	result := p.Validate()
	result.Log()
	if !result.Valid {
		return nil, fmt.Errorf("invalid rate parameters: %s", result.Errors[0].Message)
	}
	return p, nil
}

// NewScalarRateParams builds a one-age-category parameter set for a model
// with numClasses compartments. Birth and death are broadcast across all
// live classes; the Dead sink gets zero for both.
func NewScalarRateParams(numClasses int, cfg ScalarConfig) (*RateParams, error) {
	if numClasses < 2 {
		return nil, fmt.Errorf("invalid rate parameters: need at least 2 classes, got %d", numClasses)
	}
	birth := make([]float64, numClasses)
	death := make([]float64, numClasses)
	for c := 0; c < numClasses-1; c++ {
		birth[c] = cfg.Birth
		death[c] = cfg.Death
	}
	stage := make(map[string][]float64, len(cfg.Stage))
	for name, rate := range cfg.Stage {
		stage[name] = []float64{rate}
	}
	return NewRateParams(Config{
		Birth:              [][]float64{birth},
		Death:              [][]float64{death},
		AgeMixing:          [][]float64{{1}},
		BetaForce:          cfg.BetaForce,
		BetaEnv:            cfg.BetaEnv,
		VirusDecay:         cfg.VirusDecay,
		FreqVsDensityForce: cfg.FreqVsDensityForce,
		FreqVsDensityEnv:   cfg.FreqVsDensityEnv,
		Stage:              stage,
	})
}

// AgeCategories returns the number of age categories.
func (p *RateParams) AgeCategories() int {
	return len(p.Birth)
}

// NumClasses returns the number of compartments the demographic rates
// cover, including the Dead sink.
func (p *RateParams) NumClasses() int {
	if len(p.Birth) == 0 {
		return 0
	}
	return len(p.Birth[0])
}

// HasBirths reports whether any birth rate is nonzero. Conservation checks
// use this to decide whether total population should stay constant.
func (p *RateParams) HasBirths() bool {
	for _, row := range p.Birth {
		for _, v := range row {
			if v != 0 {
				return true
			}
		}
	}
	return false
}

func deepCopy(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func copyStage(m map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[k] = append([]float64(nil), v...)
	}
	return out
}
