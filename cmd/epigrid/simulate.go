package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pflow-xyz/go-epigrid/epi"
	"github.com/pflow-xyz/go-epigrid/grid"
	"github.com/pflow-xyz/go-epigrid/operator"
	"github.com/pflow-xyz/go-epigrid/record"
	"github.com/pflow-xyz/go-epigrid/sim"
)

func simulate(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	model := fs.String("model", "sir", "Model name (see 'epigrid models')")
	rates := fs.String("rates", "", "Stage rates (format: recovery=0.1,virus_growth=0.2)")
	d := demographicFlags(fs)

	width := fs.Int("width", 4, "Landscape width in cells")
	height := fs.Int("height", 4, "Landscape height in cells")
	budget := fs.Float64("budget", 10000, "Susceptibles seeded per cell")
	seed := fs.Float64("seed", 10, "Seeded cases, spread evenly across cells")
	virus := fs.Float64("virus", 0, "Seeded environmental virus, spread evenly")

	duration := fs.Float64("time", 365, "Simulated days")
	timestep := fs.Float64("dt", 1, "Step granularity in days")
	interval := fs.Float64("record", 1, "Snapshot interval in days (must divide evenly by dt)")

	output := fs.String("output", "", "Output file, .csv or .jsonl (required)")
	store := fs.String("store", "", "Also save the run to this SQLite database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: epigrid simulate [options]

Run a gridded epidemic and record its trajectory.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # A year of SIR on a 4x4 landscape
  epigrid simulate --model sir --rates "recovery=0.1,virus_growth=0.2" \
      --beta-force 0.0005 --output run.csv

  # Record less often and keep the run in a database
  epigrid simulate --model seir --rates "incubation=0.2,recovery=0.1,virus_growth=0.3" \
      --beta-force 0.0005 --record 7 --output run.jsonl --store runs.db
`)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		fs.Usage()
		return fmt.Errorf("--output required")
	}

	def, err := epi.Get(*model)
	if err != nil {
		return err
	}
	p, err := scalarParams(def, *rates, *d)
	if err != nil {
		return err
	}
	ops, err := operator.Compile(p, def)
	if err != nil {
		return fmt.Errorf("compile operators: %w", err)
	}

	g, err := grid.NewGrid(*width, *height, *budget)
	if err != nil {
		return err
	}
	st, err := sim.NewState(ops.Index, g.Subcommunities())
	if err != nil {
		return err
	}
	cells := float64(g.Subcommunities())
	for k := 0; k < g.Subcommunities(); k++ {
		st.Seed(0, epi.Susceptible, k, *budget)
		st.Seed(0, def.FirstInfected, k, *seed/cells)
		st.SeedVirus(k, *virus/cells)
	}

	opts := &sim.Options{
		Timestep:          *timestep,
		Duration:          *duration,
		RecordInterval:    *interval,
		ConservationCheck: true,
		ConservationTol:   1e-6,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	tr, err := sim.Run(ctx, st, ops, g, opts, nil)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if err := writeTrajectory(tr, *output); err != nil {
		return err
	}
	if *store != "" {
		db, err := record.Open(*store)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.SaveRun(tr, def.Kind); err != nil {
			return fmt.Errorf("store run: %w", err)
		}
	}

	// Summary goes to stderr so piped output stays clean.
	fmt.Fprintf(os.Stderr, "Simulation complete\n")
	fmt.Fprintf(os.Stderr, "  Run: %s\n", tr.RunID)
	fmt.Fprintf(os.Stderr, "  Time: 0 -> %.1f days, %d frames\n", *duration, tr.Frames())
	fmt.Fprintf(os.Stderr, "  Compute time: %.3fs\n", elapsed)
	fmt.Fprintf(os.Stderr, "  Output: %s\n", *output)
	return nil
}

func writeTrajectory(tr *record.Trajectory, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".jsonl") {
		return tr.WriteJSONL(f)
	}
	return tr.WriteCSV(f)
}
