package sim

import (
	"fmt"
	"math"

	"github.com/pflow-xyz/go-epigrid/epi"
	"github.com/pflow-xyz/go-epigrid/grid"
	"github.com/pflow-xyz/go-epigrid/operator"
)

// Step advances the state by dt days. Per active subcommunity it:
//
//  1. computes force-of-infection pressure per age category from the
//     infectious abundances, blended frequency/density and coupled across
//     cohorts by the age-mixing matrix;
//  2. computes environmental pressure from the virus pool with its own
//     blend scalar;
//  3. drains each compartment by the competing-risk exit fraction
//     x*(1-exp(-R*dt)) over the combined rate matrix
//     Transition + force*TransitionForce + env*TransitionVirus, splitting
//     the outflow across destinations proportionally to rates — hosts are
//     redistributed, never created or destroyed;
//  4. grows the virus pool by shedding and decays it exponentially;
//  5. adds births to the first-age susceptible compartment.
//
// Inactive subcommunities are frozen entirely. NaN rates and negative
// abundances are fatal: they mean the compiled operators or the timestep
// violate a modeling invariant, and must not be masked.
func Step(st *State, ops *operator.Operators, h grid.Habitat, dt float64) error {
	ix := ops.Index
	dim := ix.Dim()
	if len(st.Abundance) != dim {
		return fmt.Errorf("state has %d flat states, operators have %d", len(st.Abundance), dim)
	}
	if st.Subcommunities() != h.Subcommunities() {
		return fmt.Errorf("state has %d subcommunities, habitat has %d", st.Subcommunities(), h.Subcommunities())
	}
	if dt <= 0 {
		return fmt.Errorf("timestep must be positive, got %g", dt)
	}

	ages := ix.Ages
	cur := make([]float64, dim)
	next := make([]float64, dim)
	inf := make([]float64, ages)
	forceP := make([]float64, ages)
	decay := math.Exp(-ops.VirusDecay * dt)
	birthSrc := st.Index.Flat(0, epi.Susceptible)

	for k := 0; k < st.Subcommunities(); k++ {
		if !h.Active(k) {
			continue
		}
		for s := 0; s < dim; s++ {
			cur[s] = st.Abundance[s][k]
		}
		copy(next, cur)

		n := st.LiveTotal(k, ops.Sink)

		for a := range inf {
			inf[a] = 0
		}
		for _, s := range ops.InfectiousStates {
			age, _ := ix.Split(s)
			inf[age] += cur[s]
		}
		for a := 0; a < ages; a++ {
			mixed := 0.0
			for b := 0; b < ages; b++ {
				mixed += ops.AgeMixing[a][b] * inf[b]
			}
			freq := 0.0
			if n > 0 {
				freq = mixed / n
			}
			forceP[a] = ops.FreqVsDensityForce*freq + (1-ops.FreqVsDensityForce)*mixed
		}

		pool := st.Virus[k]
		envFreq := 0.0
		if n > 0 {
			envFreq = pool / n
		}
		envP := ops.FreqVsDensityEnv*envFreq + (1-ops.FreqVsDensityEnv)*pool

		for src := 0; src < dim; src++ {
			x := cur[src]
			if x == 0 {
				continue
			}
			flows := ops.Outflows(src)
			if len(flows) == 0 {
				continue
			}
			srcAge, _ := ix.Split(src)
			total := 0.0
			for _, f := range flows {
				total += f.Base + forceP[srcAge]*f.Force + envP*f.Virus
			}
			if math.IsNaN(total) || total < 0 {
				return fmt.Errorf("invariant violated: outflow rate %g for state %d in subcommunity %d", total, src, k)
			}
			if total == 0 {
				continue
			}
			leaving := x * (1 - math.Exp(-total*dt))
			next[src] -= leaving
			scale := leaving / total
			for _, f := range flows {
				r := f.Base + forceP[srcAge]*f.Force + envP*f.Virus
				if r != 0 {
					next[f.Dst] += scale * r
				}
			}
		}

		shed := 0.0
		for _, s := range ops.InfectiousStates {
			shed += ops.VirusGrowth[s] * cur[s]
		}
		st.Virus[k] = pool*decay + shed*dt

		births := 0.0
		for s := 0; s < dim; s++ {
			if ops.Births[s] != 0 {
				births += ops.Births[s] * cur[s]
			}
		}
		next[birthSrc] += births * dt

		for s := 0; s < dim; s++ {
			v := next[s]
			if math.IsNaN(v) {
				return fmt.Errorf("invariant violated: NaN abundance for state %d in subcommunity %d", s, k)
			}
			if v < 0 {
				// Proportional splitting can leave float dust below zero.
				if v < -1e-9*math.Max(1, cur[s]) {
					return fmt.Errorf("invariant violated: negative abundance %g for state %d in subcommunity %d", v, s, k)
				}
				v = 0
			}
			st.Abundance[s][k] = v
		}
	}
	return nil
}
