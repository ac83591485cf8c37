package epi

import (
	"fmt"
	"sort"
)

// Compartment indices shared by every model: susceptible is always 0 and
// the Dead sink is always last. Intermediate indices are model specific.
const (
	Susceptible = 0
)

// SIR returns the three-class model plus the Dead sink.
// One progression edge: Infected -> Recovered.
func SIR() *Definition {
	return &Definition{
		Kind:          "sir",
		Classes:       []string{"Susceptible", "Infected", "Recovered", "Dead"},
		FirstInfected: 1,
		Edges: []Edge{
			{From: 1, To: 2, Rate: "recovery"},
		},
		Shedding: map[int]string{1: "virus_growth"},
	}
}

// SIS returns the susceptible-infected-susceptible model: recovery returns
// individuals to the susceptible pool instead of an immune class.
func SIS() *Definition {
	return &Definition{
		Kind:          "sis",
		Classes:       []string{"Susceptible", "Infected", "Dead"},
		FirstInfected: 1,
		Edges: []Edge{
			{From: 1, To: 0, Rate: "recovery"},
		},
		Shedding: map[int]string{1: "virus_growth"},
	}
}

// SEIR adds a non-infectious Exposed incubation class ahead of Infected.
func SEIR() *Definition {
	return &Definition{
		Kind:          "seir",
		Classes:       []string{"Susceptible", "Exposed", "Infected", "Recovered", "Dead"},
		FirstInfected: 1,
		Edges: []Edge{
			{From: 1, To: 2, Rate: "incubation"},
			{From: 2, To: 3, Rate: "recovery"},
		},
		Shedding: map[int]string{2: "virus_growth"},
	}
}

// SEIRS is SEIR with waning immunity: Recovered drains back to Susceptible.
func SEIRS() *Definition {
	return &Definition{
		Kind:          "seirs",
		Classes:       []string{"Susceptible", "Exposed", "Infected", "Recovered", "Dead"},
		FirstInfected: 1,
		Edges: []Edge{
			{From: 1, To: 2, Rate: "incubation"},
			{From: 2, To: 3, Rate: "recovery"},
			{From: 3, To: 0, Rate: "waning"},
		},
		Shedding: map[int]string{2: "virus_growth"},
	}
}

// SEI2HRD is the two-pathway hospital model: exposure resolves into either
// an asymptomatic or a symptomatic infection, symptomatic cases may be
// hospitalised, and both symptomatic and hospitalised cases can die of the
// disease (distinct from background demographic death).
func SEI2HRD() *Definition {
	return &Definition{
		Kind: "sei2hrd",
		Classes: []string{
			"Susceptible", "Exposed", "Asymptomatic", "Symptomatic",
			"Hospitalised", "Recovered", "Dead",
		},
		FirstInfected: 1,
		Edges: []Edge{
			{From: 1, To: 2, Rate: "incubation_asymp"},
			{From: 1, To: 3, Rate: "incubation_symp"},
			{From: 2, To: 5, Rate: "recovery_asymp"},
			{From: 3, To: 5, Rate: "recovery_symp"},
			{From: 3, To: 4, Rate: "hospitalisation"},
			{From: 4, To: 5, Rate: "recovery_hospital"},
			{From: 3, To: 6, Rate: "death_symp"},
			{From: 4, To: 6, Rate: "death_hospital"},
		},
		Shedding: map[int]string{
			2: "virus_growth_asymp",
			3: "virus_growth_symp",
		},
	}
}

// SEI3HRD extends SEI2HRD with a presymptomatic infectious stage between
// exposure and symptom onset. Both asymptomatic and presymptomatic stages
// shed virus at the asymptomatic growth rate.
func SEI3HRD() *Definition {
	return &Definition{
		Kind: "sei3hrd",
		Classes: []string{
			"Susceptible", "Exposed", "Asymptomatic", "Presymptomatic",
			"Symptomatic", "Hospitalised", "Recovered", "Dead",
		},
		FirstInfected: 1,
		Edges: []Edge{
			{From: 1, To: 2, Rate: "incubation_asymp"},
			{From: 1, To: 3, Rate: "incubation_presymp"},
			{From: 3, To: 4, Rate: "symptom_onset"},
			{From: 2, To: 6, Rate: "recovery_asymp"},
			{From: 4, To: 6, Rate: "recovery_symp"},
			{From: 4, To: 5, Rate: "hospitalisation"},
			{From: 5, To: 6, Rate: "recovery_hospital"},
			{From: 4, To: 7, Rate: "death_symp"},
			{From: 5, To: 7, Rate: "death_hospital"},
		},
		Shedding: map[int]string{
			2: "virus_growth_asymp",
			3: "virus_growth_asymp",
			4: "virus_growth_symp",
		},
	}
}

// Registry holds all named model definitions.
var Registry = map[string]func() *Definition{
	"sir":     SIR,
	"sis":     SIS,
	"seir":    SEIR,
	"seirs":   SEIRS,
	"sei2hrd": SEI2HRD,
	"sei3hrd": SEI3HRD,
}

// Get returns a fresh definition by name.
func Get(name string) (*Definition, error) {
	f, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return f(), nil
}

// List returns all available model names, sorted.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
