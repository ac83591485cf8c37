// Package sweep evaluates how outcomes change across parameter values and
// replicate ensembles. Each evaluation owns its state and habitat; only
// compiled operators are shared read-only, so evaluations run in parallel
// without locking.
package sweep

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pflow-xyz/go-epigrid/grid"
	"github.com/pflow-xyz/go-epigrid/operator"
	"github.com/pflow-xyz/go-epigrid/record"
	"github.com/pflow-xyz/go-epigrid/sim"
)

// Scorer evaluates one finished run. tr is nil unless the analyzer's
// options requested recording.
type Scorer func(final *sim.State, tr *record.Trajectory) float64

// FinalClassScorer returns the final total of one class across all ages
// and subcommunities.
func FinalClassScorer(class int) Scorer {
	return func(final *sim.State, _ *record.Trajectory) float64 {
		return final.ClassTotal(class)
	}
}

// PeakStateScorer returns the maximum recorded total of one flat state
// across subcommunities. Requires recording.
func PeakStateScorer(state int) Scorer {
	return func(_ *sim.State, tr *record.Trajectory) float64 {
		if tr == nil {
			return 0
		}
		peak := 0.0
		for i := 0; i < tr.Frames(); i++ {
			total := 0.0
			for k := 0; k < tr.Subcommunities; k++ {
				total += tr.Series(state, k)[i]
			}
			if total > peak {
				peak = total
			}
		}
		return peak
	}
}

// Config wires one analyzer. Compile maps a swept value to operators
// (typically by rebuilding a parameter set with that value); InitState and
// Habitat produce a fresh state and habitat per evaluation.
type Config struct {
	Compile   func(value float64) (*operator.Operators, error)
	InitState func() (*sim.State, error)
	Habitat   func() grid.Habitat
	Options   *sim.Options
	Scenario  sim.Scenario
}

// Analyzer runs simulations across parameter values.
type Analyzer struct {
	cfg    Config
	scorer Scorer
}

// NewAnalyzer validates the wiring and returns an analyzer.
func NewAnalyzer(cfg Config, scorer Scorer) (*Analyzer, error) {
	if cfg.Compile == nil || cfg.InitState == nil || cfg.Habitat == nil {
		return nil, fmt.Errorf("sweep config needs Compile, InitState and Habitat")
	}
	if scorer == nil {
		return nil, fmt.Errorf("sweep config needs a scorer")
	}
	if cfg.Options == nil {
		cfg.Options = sim.FastOptions()
	}
	return &Analyzer{cfg: cfg, scorer: scorer}, nil
}

// RunScore is one evaluation's outcome.
type RunScore struct {
	Value float64
	Score float64
	RunID string
}

// Result holds a sweep's outcomes: Scores in input order, Ranking sorted
// by descending score.
type Result struct {
	Scores  []RunScore
	Ranking []RunScore
}

func (a *Analyzer) evaluate(ctx context.Context, value float64) (RunScore, error) {
	ops, err := a.cfg.Compile(value)
	if err != nil {
		return RunScore{}, fmt.Errorf("compile for value %g: %w", value, err)
	}
	st, err := a.cfg.InitState()
	if err != nil {
		return RunScore{}, fmt.Errorf("init state for value %g: %w", value, err)
	}
	h := a.cfg.Habitat()
	tr, err := sim.Run(ctx, st, ops, h, a.cfg.Options, a.cfg.Scenario)
	if err != nil {
		return RunScore{}, fmt.Errorf("run for value %g: %w", value, err)
	}
	id := uuid.NewString()
	if tr != nil {
		id = tr.RunID
	}
	return RunScore{Value: value, Score: a.scorer(st, tr), RunID: id}, nil
}

// Sweep evaluates every value sequentially.
func (a *Analyzer) Sweep(ctx context.Context, values []float64) (*Result, error) {
	scores := make([]RunScore, len(values))
	for i, v := range values {
		rs, err := a.evaluate(ctx, v)
		if err != nil {
			return nil, err
		}
		scores[i] = rs
	}
	return rank(scores), nil
}

// SweepParallel evaluates every value concurrently. Each evaluation owns
// its state and habitat; the first error wins.
func (a *Analyzer) SweepParallel(ctx context.Context, values []float64) (*Result, error) {
	scores := make([]RunScore, len(values))
	errs := make([]error, len(values))
	var wg sync.WaitGroup
	for i, v := range values {
		wg.Add(1)
		go func(idx int, value float64) {
			defer wg.Done()
			scores[idx], errs[idx] = a.evaluate(ctx, value)
		}(i, v)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return rank(scores), nil
}

func rank(scores []RunScore) *Result {
	ranking := append([]RunScore(nil), scores...)
	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})
	return &Result{Scores: scores, Ranking: ranking}
}

// EnsembleResult aggregates replicate runs of one configuration.
type EnsembleResult struct {
	Replicates []RunScore
	Min        float64
	Mean       float64
	Max        float64
}

// Ensemble runs n independent replicates at one value, in parallel. With
// a deterministic engine replicates only diverge through the scenario
// hook or habitat differences; the aggregate still bounds those effects.
func (a *Analyzer) Ensemble(ctx context.Context, value float64, n int) (*EnsembleResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("ensemble needs at least one replicate, got %d", n)
	}
	scores := make([]RunScore, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			scores[idx], errs[idx] = a.evaluate(ctx, value)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := &EnsembleResult{Replicates: scores, Min: scores[0].Score, Max: scores[0].Score}
	sum := 0.0
	for _, rs := range scores {
		sum += rs.Score
		if rs.Score < out.Min {
			out.Min = rs.Score
		}
		if rs.Score > out.Max {
			out.Max = rs.Score
		}
	}
	out.Mean = sum / float64(n)
	return out, nil
}
