// Package epi defines compartmental disease models as data: an ordered
// compartment list, a progression edge list, and the rate parameters that
// drive transitions. Model structure and rates are kept separate so one
// definition can be compiled against many parameter sets.
package epi

import (
	"fmt"
)

// Edge is one disease-progression transition between two compartments.
// Rate names a per-age rate vector in the parameter set's stage table.
// Transmission (susceptible -> first infected) is not an edge; it is driven
// by BetaForce/BetaEnv and placed by the operator compiler.
type Edge struct {
	From int
	To   int
	Rate string
}

// Definition describes one named compartmental model.
//
// Classes is ordered: index 0 is always Susceptible and the last index is
// always the terminal Dead sink that demographic death routes into.
// Shedding maps each compartment that contributes to the environmental
// virus pool to the name of its growth rate.
type Definition struct {
	Kind          string
	Classes       []string
	Edges         []Edge
	Shedding      map[int]string
	FirstInfected int // compartment seeded by transmission
}

// NumClasses returns the number of compartments, including the Dead sink.
func (d *Definition) NumClasses() int {
	return len(d.Classes)
}

// Sink returns the index of the terminal Dead compartment.
func (d *Definition) Sink() int {
	return len(d.Classes) - 1
}

// RateNames returns every rate name referenced by edges and shedding,
// in a stable order (edges first, then shedding by class index).
func (d *Definition) RateNames() []string {
	seen := make(map[string]bool)
	names := make([]string, 0, len(d.Edges)+len(d.Shedding))
	for _, e := range d.Edges {
		if !seen[e.Rate] {
			seen[e.Rate] = true
			names = append(names, e.Rate)
		}
	}
	for c := 0; c < len(d.Classes); c++ {
		if name, ok := d.Shedding[c]; ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Check verifies the structural invariants of a definition: class indices
// in range, no edges out of the sink, and a valid seeded compartment.
// A malformed definition is a programming error, reported eagerly.
func (d *Definition) Check() error {
	n := len(d.Classes)
	if n < 3 {
		return fmt.Errorf("model %q: need at least susceptible, one infected class and a dead sink, got %d classes", d.Kind, n)
	}
	if d.FirstInfected <= 0 || d.FirstInfected >= n-1 {
		return fmt.Errorf("model %q: first infected class %d out of range (1..%d)", d.Kind, d.FirstInfected, n-2)
	}
	for _, e := range d.Edges {
		if e.From < 0 || e.From >= n || e.To < 0 || e.To >= n {
			return fmt.Errorf("model %q: edge %s references class out of range [0,%d): %d -> %d", d.Kind, e.Rate, n, e.From, e.To)
		}
		if e.From == e.To {
			return fmt.Errorf("model %q: edge %s is a self loop on class %d", d.Kind, e.Rate, e.From)
		}
		if e.Rate == "" {
			return fmt.Errorf("model %q: edge %d -> %d has no rate name", d.Kind, e.From, e.To)
		}
	}
	for c := range d.Shedding {
		if c <= 0 || c >= n-1 {
			return fmt.Errorf("model %q: shedding class %d out of range (1..%d)", d.Kind, c, n-2)
		}
	}
	return nil
}
