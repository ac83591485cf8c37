// Package sim advances a compiled epidemic model through discrete time:
// the state advance engine (Step) and the simulation driver (Run).
package sim

import (
	"fmt"

	"github.com/pflow-xyz/go-epigrid/operator"
)

// State holds the abundances of one simulation: hosts indexed
// [flat state][subcommunity] plus the environmental virus pool per
// subcommunity. The pool is a pseudo-compartment outside the host
// conservation law.
//
// Abundances are continuous; the exponential-survival outflow in Step
// cannot overdraw a compartment, so no rounding layer is needed.
type State struct {
	Index     operator.Index
	Abundance [][]float64
	Virus     []float64
}

// NewState allocates a zero state for the given layout.
func NewState(ix operator.Index, subcommunities int) (*State, error) {
	if ix.Ages <= 0 || ix.Classes <= 0 {
		return nil, fmt.Errorf("state layout must be positive, got %d ages x %d classes", ix.Ages, ix.Classes)
	}
	if subcommunities <= 0 {
		return nil, fmt.Errorf("need at least one subcommunity, got %d", subcommunities)
	}
	ab := make([][]float64, ix.Dim())
	for s := range ab {
		ab[s] = make([]float64, subcommunities)
	}
	return &State{
		Index:     ix,
		Abundance: ab,
		Virus:     make([]float64, subcommunities),
	}, nil
}

// Subcommunities returns the number of spatial patches.
func (st *State) Subcommunities() int {
	return len(st.Virus)
}

// Seed adds n individuals of (age, class) to one subcommunity.
func (st *State) Seed(age, class, sub int, n float64) {
	st.Abundance[st.Index.Flat(age, class)][sub] += n
}

// SeedVirus adds v units to one subcommunity's environmental pool.
func (st *State) SeedVirus(sub int, v float64) {
	st.Virus[sub] += v
}

// Clone returns an independent deep copy. Replicate runs must each own
// their state; only compiled operators are shared read-only.
func (st *State) Clone() *State {
	ab := make([][]float64, len(st.Abundance))
	for s, row := range st.Abundance {
		ab[s] = append([]float64(nil), row...)
	}
	return &State{
		Index:     st.Index,
		Abundance: ab,
		Virus:     append([]float64(nil), st.Virus...),
	}
}

// HostTotal sums every host compartment (Dead sink included, virus pool
// excluded) in one subcommunity. Without births this is invariant.
func (st *State) HostTotal(sub int) float64 {
	total := 0.0
	for s := range st.Abundance {
		total += st.Abundance[s][sub]
	}
	return total
}

// LiveTotal sums every host compartment except the sink class in one
// subcommunity. This is the denominator for frequency-dependent
// transmission.
func (st *State) LiveTotal(sub, sink int) float64 {
	total := 0.0
	for class := 0; class < st.Index.Classes; class++ {
		if class == sink {
			continue
		}
		for age := 0; age < st.Index.Ages; age++ {
			total += st.Abundance[st.Index.Flat(age, class)][sub]
		}
	}
	return total
}

// ClassTotal sums one class across all ages and subcommunities.
func (st *State) ClassTotal(class int) float64 {
	total := 0.0
	for age := 0; age < st.Index.Ages; age++ {
		for _, v := range st.Abundance[st.Index.Flat(age, class)] {
			total += v
		}
	}
	return total
}
