package operator

import (
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/pflow-xyz/go-epigrid/epi"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Str("pkg", "operator").Logger()

// Compile converts a validated parameter set and a model definition into
// the operator bundle the stepping engine consumes.
//
// Construction rules:
//   - demographic routing: for every class except the Dead sink, the
//     transition entry [sink, class] per age is that class's death rate;
//   - each progression edge (from, to, rate) places its per-age rate
//     vector on the matching diagonal block [to, from];
//   - the force and virus operators place BetaForce and BetaEnv on the
//     [first infected, susceptible] block;
//   - the virus-growth and birth vectors scatter per-class rates into
//     every age category's flat position, summing when several stages
//     shed.
//
// Compiling the same inputs twice yields bit-identical operators: every
// write walks slices in fixed order.
func Compile(p *epi.RateParams, def *epi.Definition) (*Operators, error) {
	if result := p.Validate(); !result.Valid {
		return nil, fmt.Errorf("compile %s: invalid rate parameters: %s", def.Kind, result.Errors[0].Message)
	}
	if err := p.CheckAgainst(def); err != nil {
		return nil, fmt.Errorf("compile %s: %w", def.Kind, err)
	}

	ix := Index{Ages: p.AgeCategories(), Classes: def.NumClasses()}
	dim := ix.Dim()
	sink := def.Sink()

	ops := &Operators{
		Index:              ix,
		Births:             make([]float64, dim),
		VirusGrowth:        make([]float64, dim),
		VirusDecay:         p.VirusDecay,
		Transition:         NewMatrix(dim),
		TransitionForce:    NewMatrix(dim),
		TransitionVirus:    NewMatrix(dim),
		AgeMixing:          p.AgeMixing,
		FreqVsDensityForce: p.FreqVsDensityForce,
		FreqVsDensityEnv:   p.FreqVsDensityEnv,
		Sink:               sink,
		FirstInfected:      def.FirstInfected,
	}

	// Demographic death: every live class drains into the sink.
	for class := 0; class < ix.Classes; class++ {
		if class == sink {
			continue
		}
		for age := 0; age < ix.Ages; age++ {
			ops.Transition.Set(ix.Flat(age, sink), ix.Flat(age, class), p.Death[age][class])
		}
	}

	// Progression edges.
	for _, e := range def.Edges {
		rates := p.Stage[e.Rate]
		for age := 0; age < ix.Ages; age++ {
			ops.Transition.Add(ix.Flat(age, e.To), ix.Flat(age, e.From), rates[age])
		}
	}

	// Transmission: susceptible -> first infected, per age.
	for age := 0; age < ix.Ages; age++ {
		row := ix.Flat(age, def.FirstInfected)
		col := ix.Flat(age, epi.Susceptible)
		ops.TransitionForce.Set(row, col, p.BetaForce)
		ops.TransitionVirus.Set(row, col, p.BetaEnv)
	}

	// Virus shedding, summed when several stages map to one class's
	// positions. Infectious membership is structural: a class listed as
	// shedding stays in the infectious set even at a zero growth rate.
	for class := 0; class < ix.Classes; class++ {
		name, ok := def.Shedding[class]
		if !ok {
			continue
		}
		rates := p.Stage[name]
		for age := 0; age < ix.Ages; age++ {
			flat := ix.Flat(age, class)
			ops.VirusGrowth[flat] += rates[age]
			ops.InfectiousStates = append(ops.InfectiousStates, flat)
		}
	}
	sort.Ints(ops.InfectiousStates)

	// Births feed the susceptible class; the vector stores per-capita
	// rates per source state.
	for class := 0; class < ix.Classes; class++ {
		for age := 0; age < ix.Ages; age++ {
			ops.Births[ix.Flat(age, class)] = p.Birth[age][class]
		}
	}

	if ops.TransitionForce.IsZero() && ops.TransitionVirus.IsZero() {
		log.Warn().Str("model", def.Kind).Msg("compiled with zero transmission; epidemic cannot spread")
	}

	ops.buildColumns()
	return ops, nil
}
