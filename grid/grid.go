// Package grid provides the habitat collaborator: a rectangular landscape
// of subcommunities with per-cell budgets and an active mask that scenario
// hooks may mutate mid-run. The simulation core only reads the
// subcommunity count, the active flag and the budget; habitat generation
// beyond this lives outside the module.
package grid

import (
	"fmt"

	"github.com/katalvlaran/lvlath/gridgraph"
)

// Habitat is the read surface the simulation core depends on.
type Habitat interface {
	// Subcommunities returns the number of spatial patches.
	Subcommunities() int
	// Active reports whether patch i participates in the dynamics.
	Active(i int) bool
	// Budget returns the carrying capacity / resource budget of patch i.
	Budget(i int) float64
}

// Grid is a rectangular habitat. Cells are indexed row-major:
// i = y*Width + x.
type Grid struct {
	Width  int
	Height int

	budgets []float64
	active  []bool
}

// NewGrid builds a width x height grid with a uniform budget and every
// cell active.
func NewGrid(width, height int, budget float64) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}
	n := width * height
	g := &Grid{
		Width:   width,
		Height:  height,
		budgets: make([]float64, n),
		active:  make([]bool, n),
	}
	for i := 0; i < n; i++ {
		g.budgets[i] = budget
		g.active[i] = true
	}
	return g, nil
}

// Subcommunities returns the cell count.
func (g *Grid) Subcommunities() int { return len(g.active) }

// Active reports whether cell i is active.
func (g *Grid) Active(i int) bool { return g.active[i] }

// Budget returns the budget of cell i.
func (g *Grid) Budget(i int) float64 { return g.budgets[i] }

// SetBudget overrides the budget of cell i.
func (g *Grid) SetBudget(i int, budget float64) { g.budgets[i] = budget }

// Deactivate removes cells from the dynamics. Frozen cells keep their
// abundances but neither progress nor transmit until reactivated.
func (g *Grid) Deactivate(cells ...int) {
	for _, i := range cells {
		g.active[i] = false
	}
}

// Activate returns cells to the dynamics.
func (g *Grid) Activate(cells ...int) {
	for _, i := range cells {
		g.active[i] = true
	}
}

// ActiveCount returns the number of active cells.
func (g *Grid) ActiveCount() int {
	n := 0
	for _, a := range g.active {
		if a {
			n++
		}
	}
	return n
}

// Clone returns an independent copy. Scenario state must be cloned per
// replicate; only immutable compiled operators are shared across runs.
func (g *Grid) Clone() *Grid {
	return &Grid{
		Width:   g.Width,
		Height:  g.Height,
		budgets: append([]float64(nil), g.budgets...),
		active:  append([]bool(nil), g.active...),
	}
}

// ActiveRegions returns the contiguous patches of active cells under
// 4-connectivity, each as a slice of row-major cell indices. Useful for
// detecting when a lockdown perturbation fragments the landscape.
func (g *Grid) ActiveRegions() ([][]int, error) {
	cells := make([][]int, g.Height)
	for y := 0; y < g.Height; y++ {
		row := make([]int, g.Width)
		for x := 0; x < g.Width; x++ {
			if g.active[y*g.Width+x] {
				row[x] = 1
			}
		}
		cells[y] = row
	}
	gg, err := gridgraph.NewGridGraph(cells, gridgraph.DefaultGridOptions())
	if err != nil {
		return nil, fmt.Errorf("active regions: %w", err)
	}
	return gg.ConnectedComponents(), nil
}
