package epi

import (
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("pkg", "epi").Logger()

// Issue is one validation finding.
type Issue struct {
	Severity string `json:"severity"` // "error" or "warning"
	Category string `json:"category"` // "dimensions", "range", "transmission", ...
	Message  string `json:"message"`
}

// Result is the outcome of validating a parameter set. Errors are fatal
// caller bugs; warnings describe legal but degenerate configurations
// (a zero-transmission baseline run is legitimate).
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

func (r *Result) addError(category, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{
		Severity: "error",
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *Result) addWarning(category, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{
		Severity: "warning",
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Log emits every warning through the package logger. Errors are not
// logged here; they surface as construction failures.
func (r *Result) Log() {
	for _, w := range r.Warnings {
		log.Warn().Str("category", w.Category).Msg(w.Message)
	}
}

// Validate checks every construction invariant and returns the structured
// result. It never panics and never mutates the parameter set.
func (p *RateParams) Validate() *Result {
	r := &Result{}

	ages := len(p.Birth)
	if ages == 0 {
		r.addError("dimensions", "birth matrix has no age categories")
	}
	if len(p.Death) != ages {
		r.addError("dimensions", "birth has %d age categories, death has %d", ages, len(p.Death))
	}
	classes := p.NumClasses()
	for a, row := range p.Birth {
		if len(row) != classes {
			r.addError("dimensions", "birth row %d has %d classes, expected %d", a, len(row), classes)
		}
	}
	for a, row := range p.Death {
		if len(row) != classes {
			r.addError("dimensions", "death row %d has %d classes, expected %d", a, len(row), classes)
		}
	}

	if len(p.AgeMixing) != ages {
		r.addError("dimensions", "age mixing has %d rows, expected %d age categories", len(p.AgeMixing), ages)
	}
	for a, row := range p.AgeMixing {
		if len(row) != ages {
			r.addError("dimensions", "age mixing row %d has %d entries, expected %d", a, len(row), ages)
		}
	}

	if p.FreqVsDensityForce < 0 || p.FreqVsDensityForce > 1 {
		r.addError("range", "freq/density force blend %g outside [0,1]", p.FreqVsDensityForce)
	}
	if p.FreqVsDensityEnv < 0 || p.FreqVsDensityEnv > 1 {
		r.addError("range", "freq/density env blend %g outside [0,1]", p.FreqVsDensityEnv)
	}

	for _, check := range []struct {
		name string
		v    float64
	}{
		{"beta_force", p.BetaForce},
		{"beta_env", p.BetaEnv},
		{"virus_decay", p.VirusDecay},
	} {
		if math.IsNaN(check.v) || check.v < 0 {
			r.addError("range", "%s is %g, must be a nonnegative number", check.name, check.v)
		}
	}

	for name, vec := range p.Stage {
		if len(vec) != ages {
			r.addError("dimensions", "stage rate %q has %d entries, expected %d age categories", name, len(vec), ages)
		}
		for a, v := range vec {
			if math.IsNaN(v) || v < 0 {
				r.addError("range", "stage rate %q age %d is %g, must be a nonnegative number", name, a, v)
			}
		}
	}

	for _, rates := range [][][]float64{p.Birth, p.Death} {
		for a, row := range rates {
			for c, v := range row {
				if math.IsNaN(v) || v < 0 {
					r.addError("range", "demographic rate [%d][%d] is %g, must be a nonnegative number", a, c, v)
				}
			}
		}
	}

	if p.BetaForce == 0 && p.BetaEnv == 0 {
		r.addWarning("transmission", "both transmission rates are zero; the system will stay fully susceptible")
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// CheckAgainst verifies that a parameter set resolves every rate a model
// definition references and that its class count matches. This is the
// compile-time half of validation; Validate covers shape invariants.
func (p *RateParams) CheckAgainst(def *Definition) error {
	if err := def.Check(); err != nil {
		return err
	}
	if p.NumClasses() != def.NumClasses() {
		return fmt.Errorf("parameter set covers %d classes, model %q has %d", p.NumClasses(), def.Kind, def.NumClasses())
	}
	for _, name := range def.RateNames() {
		vec, ok := p.Stage[name]
		if !ok {
			return fmt.Errorf("model %q references stage rate %q not present in parameter set", def.Kind, name)
		}
		if len(vec) != p.AgeCategories() {
			return fmt.Errorf("stage rate %q has %d entries, expected %d age categories", name, len(vec), p.AgeCategories())
		}
	}
	return nil
}
