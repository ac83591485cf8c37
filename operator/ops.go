// Package operator compiles a rate parameter set and a model definition
// into the square linear operators that drive the stepping engine: a
// demographic/progression transition matrix, a force-of-infection matrix,
// an environmental-virus matrix, and the birth and virus-growth vectors.
package operator

// Index maps (age category, disease class) onto a flattened state space of
// size Ages*Classes. The layout is class-major: all age categories of a
// class are contiguous.
type Index struct {
	Ages    int
	Classes int
}

// Dim returns the flattened state dimension.
func (ix Index) Dim() int {
	return ix.Ages * ix.Classes
}

// Flat returns the linear index for (age, class).
func (ix Index) Flat(age, class int) int {
	return class*ix.Ages + age
}

// Split is the inverse of Flat.
func (ix Index) Split(flat int) (age, class int) {
	return flat % ix.Ages, flat / ix.Ages
}

// Matrix is a dense square operator. Operator dimensions are
// ages*classes, small enough that dense row-major storage is the
// canonical layout.
type Matrix struct {
	n int
	a []float64
}

// NewMatrix returns an n x n zero matrix.
func NewMatrix(n int) Matrix {
	return Matrix{n: n, a: make([]float64, n*n)}
}

// Dim returns the matrix dimension.
func (m Matrix) Dim() int { return m.n }

// At returns the entry at (row, col).
func (m Matrix) At(row, col int) float64 {
	return m.a[row*m.n+col]
}

// Set writes the entry at (row, col).
func (m *Matrix) Set(row, col int, v float64) {
	m.a[row*m.n+col] = v
}

// Add accumulates into the entry at (row, col).
func (m *Matrix) Add(row, col int, v float64) {
	m.a[row*m.n+col] += v
}

// IsZero reports whether every entry is zero.
func (m Matrix) IsZero() bool {
	for _, v := range m.a {
		if v != 0 {
			return false
		}
	}
	return true
}

// Operators is the compiled form of one parameter set + model definition.
// Immutable once compiled; safe to share read-only across replicate runs.
type Operators struct {
	Index Index

	// Births holds per-capita birth rates per flat state.
	Births []float64

	// VirusGrowth holds per-capita shedding rates into the environmental
	// pool, per flat state. Zero for non-shedding compartments.
	VirusGrowth []float64

	// VirusDecay is the exponential decay rate of the environmental pool.
	VirusDecay float64

	// Transition carries constant-rate edges: demographic death routing
	// into the sink and every parameter-driven progression edge.
	Transition Matrix

	// TransitionForce carries the direct-contact transmission edge; it is
	// scaled each step by the force-of-infection pressure.
	TransitionForce Matrix

	// TransitionVirus carries the environmental transmission edge; it is
	// scaled each step by the environmental pressure.
	TransitionVirus Matrix

	// AgeMixing couples infectious pressure between age cohorts.
	AgeMixing [][]float64

	FreqVsDensityForce float64
	FreqVsDensityEnv   float64

	// Sink and FirstInfected are carried from the definition for the
	// stepping engine's bookkeeping.
	Sink          int
	FirstInfected int

	// InfectiousStates lists the flat states belonging to infectious
	// (virus-shedding) compartments, in ascending order. Membership comes
	// from the model structure, not from rate values, so a zero growth
	// rate does not silence direct-contact pressure.
	InfectiousStates []int

	// columns pre-groups nonzero outflows by source state so the engine
	// evaluates O(edges) per step instead of scanning dense columns.
	columns [][]Flow
}

// Flow is one nonzero outflow from a source state. The effective per-step
// rate is Base + force*Force + env*Virus, where force and env are the
// current transmission pressures.
type Flow struct {
	Dst   int
	Base  float64
	Force float64
	Virus float64
}

// Outflows returns the nonzero outflows of one source state.
func (o *Operators) Outflows(src int) []Flow {
	return o.columns[src]
}

// buildColumns indexes the three operators by source state.
func (o *Operators) buildColumns() {
	dim := o.Dim()
	o.columns = make([][]Flow, dim)
	for src := 0; src < dim; src++ {
		for dst := 0; dst < dim; dst++ {
			if dst == src {
				continue
			}
			f := Flow{
				Dst:   dst,
				Base:  o.Transition.At(dst, src),
				Force: o.TransitionForce.At(dst, src),
				Virus: o.TransitionVirus.At(dst, src),
			}
			if f.Base != 0 || f.Force != 0 || f.Virus != 0 {
				o.columns[src] = append(o.columns[src], f)
			}
		}
	}
}

// Dim returns the flattened state dimension shared by all operators.
func (o *Operators) Dim() int {
	return o.Index.Dim()
}

// HasBirths reports whether any birth rate is nonzero.
func (o *Operators) HasBirths() bool {
	for _, v := range o.Births {
		if v != 0 {
			return true
		}
	}
	return false
}
