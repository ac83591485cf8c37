package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/pflow-xyz/go-epigrid/grid"
	"github.com/pflow-xyz/go-epigrid/operator"
	"github.com/pflow-xyz/go-epigrid/record"
)

// Scenario is a post-step perturbation hook. It may mutate the habitat
// (close or reopen cells) that subsequent steps read; the driver itself
// never writes the habitat. step starts at 1 for the first advance.
type Scenario func(step int, t float64, h grid.Habitat)

// Options configures a run. Times are in days.
type Options struct {
	Timestep float64 // step granularity
	Duration float64 // total simulated time
	// RecordInterval captures a snapshot every so many days. Must be an
	// exact integer multiple of Timestep; zero disables recording.
	RecordInterval float64
	// ConservationCheck verifies after every step that per-subcommunity
	// host totals are unchanged. Only enforced when the compiled
	// operators have no births (otherwise totals legitimately drift).
	ConservationCheck bool
	// ConservationTol is the relative tolerance for the check.
	ConservationTol float64
}

// DefaultOptions returns balanced settings: daily steps for a year,
// conservation checking on, no recording.
func DefaultOptions() *Options {
	return &Options{
		Timestep:          1,
		Duration:          365,
		RecordInterval:    0,
		ConservationCheck: true,
		ConservationTol:   1e-6,
	}
}

// EpidemicOptions returns settings for epidemic trajectories: quarter-day
// steps with daily snapshots.
func EpidemicOptions() *Options {
	return &Options{
		Timestep:          0.25,
		Duration:          365,
		RecordInterval:    1,
		ConservationCheck: true,
		ConservationTol:   1e-6,
	}
}

// FastOptions returns settings for ensemble sweeps where only the final
// state matters.
func FastOptions() *Options {
	return &Options{
		Timestep:          1,
		Duration:          365,
		RecordInterval:    0,
		ConservationCheck: false,
		ConservationTol:   1e-6,
	}
}

// Run advances the state until Duration elapses, strictly sequentially:
// step N's output is step N+1's input. The returned trajectory is nil
// unless recording was requested; frame 0 is always the initial
// condition. ctx is checked between steps, so long runs cancel
// cooperatively. All validation happens before the first step.
func Run(ctx context.Context, st *State, ops *operator.Operators, h grid.Habitat, opts *Options, scenario Scenario) (*record.Trajectory, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timestep <= 0 {
		return nil, fmt.Errorf("timestep must be positive, got %g", opts.Timestep)
	}
	if opts.Duration < 0 {
		return nil, fmt.Errorf("duration must be nonnegative, got %g", opts.Duration)
	}
	if len(st.Abundance) != ops.Dim() {
		return nil, fmt.Errorf("state has %d flat states, operators have %d", len(st.Abundance), ops.Dim())
	}

	recordEvery := 0
	if opts.RecordInterval > 0 {
		ratio := opts.RecordInterval / opts.Timestep
		rounded := math.Round(ratio)
		if rounded < 1 || math.Abs(ratio-rounded) > 1e-9 {
			return nil, fmt.Errorf("record interval %g is not an integer multiple of timestep %g", opts.RecordInterval, opts.Timestep)
		}
		recordEvery = int(rounded)
	}

	steps := int(math.Round(opts.Duration / opts.Timestep))

	var tr *record.Trajectory
	if recordEvery > 0 {
		tr = record.NewTrajectory(ops.Dim(), st.Subcommunities())
		if err := tr.Append(0, st.Abundance); err != nil {
			return nil, fmt.Errorf("recording initial condition: %w", err)
		}
	}

	checkConservation := opts.ConservationCheck && !ops.HasBirths()
	var baseline []float64
	if checkConservation {
		baseline = make([]float64, st.Subcommunities())
		for k := range baseline {
			baseline[k] = st.HostTotal(k)
		}
	}

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return tr, fmt.Errorf("run cancelled at step %d: %w", i, err)
		}
		if err := Step(st, ops, h, opts.Timestep); err != nil {
			return tr, fmt.Errorf("step %d: %w", i, err)
		}
		t := float64(i) * opts.Timestep
		if scenario != nil {
			scenario(i, t, h)
		}
		if checkConservation {
			for k := range baseline {
				total := st.HostTotal(k)
				if math.Abs(total-baseline[k]) > opts.ConservationTol*math.Max(1, baseline[k]) {
					return tr, fmt.Errorf("invariant violated: population not conserved in subcommunity %d at step %d: %g -> %g", k, i, baseline[k], total)
				}
			}
		}
		if recordEvery > 0 && i%recordEvery == 0 {
			if err := tr.Append(t, st.Abundance); err != nil {
				return tr, fmt.Errorf("recording step %d: %w", i, err)
			}
		}
	}
	return tr, nil
}
