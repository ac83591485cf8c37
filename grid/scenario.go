package grid

// Closure is a scheduled perturbation: at Step, the listed cells are
// deactivated (and any in Reopen reactivated). Apply is meant to be
// called from a simulation scenario hook once per step.
type Closure struct {
	Step   int
	Close  []int
	Reopen []int
}

// Apply mutates g if step matches. Steps are post-advance step numbers,
// starting at 1 for the first advance.
func (c Closure) Apply(step int, g *Grid) {
	if step != c.Step {
		return
	}
	g.Deactivate(c.Close...)
	g.Activate(c.Reopen...)
}

// Schedule is an ordered set of closures applied each step.
type Schedule []Closure

// Apply runs every closure due at step.
func (s Schedule) Apply(step int, g *Grid) {
	for _, c := range s {
		c.Apply(step, g)
	}
}
