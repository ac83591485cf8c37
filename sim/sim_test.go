package sim

import (
	"context"
	"math"
	"testing"

	"github.com/pflow-xyz/go-epigrid/epi"
	"github.com/pflow-xyz/go-epigrid/grid"
	"github.com/pflow-xyz/go-epigrid/operator"
)

func sirOps(t *testing.T, betaForce, betaEnv, death float64) *operator.Operators {
	t.Helper()
	p, err := epi.NewScalarRateParams(4, epi.ScalarConfig{
		Death:              death,
		BetaForce:          betaForce,
		BetaEnv:            betaEnv,
		VirusDecay:         1,
		FreqVsDensityForce: 0.5,
		FreqVsDensityEnv:   0.5,
		Stage:              map[string]float64{"recovery": 0.1, "virus_growth": 0.2},
	})
	if err != nil {
		t.Fatalf("building params: %v", err)
	}
	ops, err := operator.Compile(p, epi.SIR())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return ops
}

func seededState(t *testing.T, ops *operator.Operators, subs int, susceptible, infected, virus float64) *State {
	t.Helper()
	st, err := NewState(ops.Index, subs)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	for k := 0; k < subs; k++ {
		st.Seed(0, epi.Susceptible, k, susceptible)
		st.Seed(0, ops.FirstInfected, k, infected)
		st.SeedVirus(k, virus)
	}
	return st
}

func mustGrid(t *testing.T, w, h int) *grid.Grid {
	t.Helper()
	g, err := grid.NewGrid(w, h, 1000)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	return g
}

func TestRunConservesPopulation(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0)
	g := mustGrid(t, 2, 2)
	st := seededState(t, ops, 4, 1000, 10, 5)

	opts := &Options{Timestep: 1, Duration: 50, ConservationCheck: true, ConservationTol: 1e-6}
	if _, err := Run(context.Background(), st, ops, g, opts, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	for k := 0; k < 4; k++ {
		total := st.HostTotal(k)
		if math.Abs(total-1010) > 1e-6 {
			t.Errorf("subcommunity %d: expected 1010 hosts, got %.9f", k, total)
		}
	}
}

func TestZeroTransmissionLeavesSusceptiblesUntouched(t *testing.T) {
	ops := sirOps(t, 0, 0, 0)
	g := mustGrid(t, 2, 1)
	st := seededState(t, ops, 2, 1000, 50, 100)

	for i := 0; i < 30; i++ {
		if err := Step(st, ops, g, 1); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if got := st.ClassTotal(epi.Susceptible); got != 2000 {
		t.Errorf("susceptibles must be exactly untouched with zero transmission, got %g", got)
	}
	// Seeded infections still work through to recovery.
	if got := st.ClassTotal(1); got >= 100 {
		t.Errorf("infected should decay, still %g", got)
	}
	if got := st.ClassTotal(2); got <= 0 {
		t.Error("recovered should accumulate")
	}
}

func TestAbsorbingClassesMonotone(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0.02)
	g := mustGrid(t, 2, 2)
	st := seededState(t, ops, 4, 1000, 10, 5)

	opts := &Options{Timestep: 1, Duration: 50, RecordInterval: 1, ConservationCheck: true, ConservationTol: 1e-6}
	tr, err := Run(context.Background(), st, ops, g, opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Recovered (2) + Dead (3) only receive; the aggregate never shrinks.
	ix := ops.Index
	prev := -1.0
	for i := 0; i < tr.Frames(); i++ {
		total := 0.0
		for _, class := range []int{2, 3} {
			for k := 0; k < tr.Subcommunities; k++ {
				total += tr.Series(ix.Flat(0, class), k)[i]
			}
		}
		if total < prev-1e-9 {
			t.Fatalf("absorbing aggregate shrank at frame %d: %g -> %g", i, prev, total)
		}
		prev = total
	}
}

func TestMisalignedRecordIntervalFailsBeforeStepping(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0)
	g := mustGrid(t, 2, 1)
	st := seededState(t, ops, 2, 1000, 10, 0)
	before := st.Clone()

	opts := &Options{Timestep: 1, Duration: 10, RecordInterval: 2.5}
	if _, err := Run(context.Background(), st, ops, g, opts, nil); err == nil {
		t.Fatal("expected a validation error for a misaligned record interval")
	}

	for s := range st.Abundance {
		for k := range st.Abundance[s] {
			if st.Abundance[s][k] != before.Abundance[s][k] {
				t.Fatal("state must be untouched when validation fails")
			}
		}
	}
}

func TestRecordingFramesAndAlignment(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0)
	g := mustGrid(t, 2, 1)
	st := seededState(t, ops, 2, 1000, 10, 0)
	initial := st.Clone()

	opts := &Options{Timestep: 1, Duration: 10, RecordInterval: 2, ConservationCheck: true, ConservationTol: 1e-6}
	tr, err := Run(context.Background(), st, ops, g, opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	// Frames at t = 0, 2, 4, 6, 8, 10.
	if tr.Frames() != 6 {
		t.Fatalf("expected 6 frames, got %d", tr.Frames())
	}
	if tr.Times[0] != 0 || tr.Times[5] != 10 {
		t.Errorf("expected times [0..10], got %v", tr.Times)
	}
	frame0 := tr.Frame(0)
	for s := range initial.Abundance {
		for k := range initial.Abundance[s] {
			if frame0[s][k] != initial.Abundance[s][k] {
				t.Fatal("frame 0 must be the initial condition")
			}
		}
	}
}

func TestRunCancellation(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0)
	g := mustGrid(t, 2, 1)
	st := seededState(t, ops, 2, 1000, 10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, st, ops, g, DefaultOptions(), nil); err == nil {
		t.Fatal("expected a cancellation error")
	}
}

func TestInactiveSubcommunityIsFrozen(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0)
	g := mustGrid(t, 2, 1)
	st := seededState(t, ops, 2, 1000, 50, 100)
	g.Deactivate(1)
	before := st.Clone()

	for i := 0; i < 10; i++ {
		if err := Step(st, ops, g, 1); err != nil {
			t.Fatalf("step: %v", err)
		}
	}

	for s := range st.Abundance {
		if st.Abundance[s][1] != before.Abundance[s][1] {
			t.Fatalf("frozen cell changed at state %d: %g -> %g", s, before.Abundance[s][1], st.Abundance[s][1])
		}
	}
	if st.Virus[1] != before.Virus[1] {
		t.Error("frozen cell's virus pool must not decay")
	}
	// The active cell keeps progressing.
	if st.Abundance[ops.Index.Flat(0, 1)][0] == before.Abundance[ops.Index.Flat(0, 1)][0] {
		t.Error("active cell should have progressed")
	}
}

func TestScenarioHookMutatesHabitat(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0)
	g := mustGrid(t, 2, 1)
	st := seededState(t, ops, 2, 1000, 50, 0)

	sched := grid.Schedule{{Step: 3, Close: []int{1}}}
	scenario := func(step int, _ float64, h grid.Habitat) {
		sched.Apply(step, h.(*grid.Grid))
	}

	opts := &Options{Timestep: 1, Duration: 10, ConservationCheck: true, ConservationTol: 1e-6}
	if _, err := Run(context.Background(), st, ops, g, opts, scenario); err != nil {
		t.Fatalf("run: %v", err)
	}
	if g.Active(1) {
		t.Error("scenario should have closed cell 1")
	}
}

func TestShapeMismatchIsFatal(t *testing.T) {
	ops := sirOps(t, 0.5, 0.1, 0)
	g := mustGrid(t, 2, 1)

	wrong, err := NewState(operator.Index{Ages: 1, Classes: 5}, 2)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if err := Step(wrong, ops, g, 1); err == nil {
		t.Error("expected a shape error from Step")
	}
	if _, err := Run(context.Background(), wrong, ops, g, DefaultOptions(), nil); err == nil {
		t.Error("expected a shape error from Run")
	}

	narrow, err := NewState(ops.Index, 1)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if err := Step(narrow, ops, g, 1); err == nil {
		t.Error("expected a subcommunity count error from Step")
	}
}

func TestVirusPoolDecay(t *testing.T) {
	ops := sirOps(t, 0, 0, 0)
	g := mustGrid(t, 1, 1)
	st := seededState(t, ops, 1, 1000, 0, 100)

	if err := Step(st, ops, g, 1); err != nil {
		t.Fatalf("step: %v", err)
	}
	want := 100 * math.Exp(-1)
	if math.Abs(st.Virus[0]-want) > 1e-9 {
		t.Errorf("expected virus pool %.6f after one day of decay, got %.6f", want, st.Virus[0])
	}
}

func TestBirthsFeedSusceptibles(t *testing.T) {
	p, err := epi.NewScalarRateParams(4, epi.ScalarConfig{
		Birth:              0.01,
		BetaForce:          0,
		BetaEnv:            0,
		VirusDecay:         1,
		FreqVsDensityForce: 0.5,
		FreqVsDensityEnv:   0.5,
		Stage:              map[string]float64{"recovery": 0.1, "virus_growth": 0.2},
	})
	if err != nil {
		t.Fatalf("building params: %v", err)
	}
	ops, err := operator.Compile(p, epi.SIR())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	g := mustGrid(t, 1, 1)
	st := seededState(t, ops, 1, 1000, 0, 0)

	if err := Step(st, ops, g, 1); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := st.HostTotal(0); got <= 1000 {
		t.Errorf("births should grow the population, got %g", got)
	}
}

func seirTwoAgeOps(t *testing.T, cross float64) *operator.Operators {
	t.Helper()
	mixing := [][]float64{{1, cross}, {cross, 1}}
	p, err := epi.NewRateParams(epi.Config{
		Birth:              [][]float64{{0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}},
		Death:              [][]float64{{0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}},
		AgeMixing:          mixing,
		BetaForce:          0.5,
		BetaEnv:            0,
		VirusDecay:         1,
		FreqVsDensityForce: 0.5,
		FreqVsDensityEnv:   0.5,
		Stage: map[string][]float64{
			"incubation":   {0.2, 0.2},
			"recovery":     {0.1, 0.1},
			"virus_growth": {0.3, 0.3},
		},
	})
	if err != nil {
		t.Fatalf("building params: %v", err)
	}
	ops, err := operator.Compile(p, epi.SEIR())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return ops
}

func TestAgeMixingCouplesCohorts(t *testing.T) {
	// Infectious individuals only in the second age cohort; with zero
	// cross-cohort mixing the first cohort's susceptibles stay clean.
	run := func(cross float64) float64 {
		ops := seirTwoAgeOps(t, cross)
		g := mustGrid(t, 1, 1)
		st, err := NewState(ops.Index, 1)
		if err != nil {
			t.Fatalf("new state: %v", err)
		}
		st.Seed(0, epi.Susceptible, 0, 1000)
		st.Seed(1, epi.Susceptible, 0, 1000)
		st.Seed(1, 2, 0, 50) // infected, second cohort
		for i := 0; i < 10; i++ {
			if err := Step(st, ops, g, 1); err != nil {
				t.Fatalf("step: %v", err)
			}
		}
		// Exposed in the first cohort.
		return st.Abundance[ops.Index.Flat(0, 1)][0]
	}

	if got := run(0); got != 0 {
		t.Errorf("no cross mixing: first cohort must stay unexposed, got %g", got)
	}
	if got := run(0.5); got <= 0 {
		t.Error("cross mixing must expose the first cohort")
	}
}
