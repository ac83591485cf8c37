// Package record holds simulation output: fixed-shape recorded
// trajectories, text export, and a SQLite-backed run store.
package record

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
)

// Trajectory is a recorded run: abundances indexed
// [flat state][subcommunity][frame], with the simulation time of every
// frame. Frame 0 is always the initial condition. Callers own the shape;
// Append copies, so the live simulation state is never aliased.
type Trajectory struct {
	RunID          string
	Dim            int
	Subcommunities int
	Times          []float64
	Data           [][][]float64
}

// NewTrajectory allocates an empty trajectory for dim flat states across
// subs subcommunities, with a fresh run identifier.
func NewTrajectory(dim, subs int) *Trajectory {
	data := make([][][]float64, dim)
	for s := range data {
		data[s] = make([][]float64, subs)
		for k := range data[s] {
			data[s][k] = make([]float64, 0, 16)
		}
	}
	return &Trajectory{
		RunID:          uuid.NewString(),
		Dim:            dim,
		Subcommunities: subs,
		Data:           data,
	}
}

// Append records one frame. abundance is indexed [flat state][sub] and
// must match the trajectory shape.
func (tr *Trajectory) Append(t float64, abundance [][]float64) error {
	if len(abundance) != tr.Dim {
		return fmt.Errorf("frame has %d states, trajectory has %d", len(abundance), tr.Dim)
	}
	for s, row := range abundance {
		if len(row) != tr.Subcommunities {
			return fmt.Errorf("frame state %d has %d subcommunities, trajectory has %d", s, len(row), tr.Subcommunities)
		}
		for k, v := range row {
			tr.Data[s][k] = append(tr.Data[s][k], v)
		}
	}
	tr.Times = append(tr.Times, t)
	return nil
}

// Frames returns the number of recorded frames.
func (tr *Trajectory) Frames() int { return len(tr.Times) }

// Series returns the time series of one (state, subcommunity) pair.
func (tr *Trajectory) Series(state, sub int) []float64 {
	if state < 0 || state >= tr.Dim || sub < 0 || sub >= tr.Subcommunities {
		return nil
	}
	return tr.Data[state][sub]
}

// Frame returns one recorded frame as [state][sub].
func (tr *Trajectory) Frame(i int) [][]float64 {
	if i < 0 || i >= len(tr.Times) {
		return nil
	}
	out := make([][]float64, tr.Dim)
	for s := 0; s < tr.Dim; s++ {
		out[s] = make([]float64, tr.Subcommunities)
		for k := 0; k < tr.Subcommunities; k++ {
			out[s][k] = tr.Data[s][k][i]
		}
	}
	return out
}

// Final returns the last recorded frame, or nil if nothing was recorded.
func (tr *Trajectory) Final() [][]float64 {
	return tr.Frame(len(tr.Times) - 1)
}

// FinalTotal sums one flat state across all subcommunities at the final
// frame.
func (tr *Trajectory) FinalTotal(state int) float64 {
	last := len(tr.Times) - 1
	if last < 0 {
		return 0
	}
	total := 0.0
	for k := 0; k < tr.Subcommunities; k++ {
		total += tr.Data[state][k][last]
	}
	return total
}

// WriteCSV emits the trajectory as long-format CSV with columns
// t,state,subcommunity,abundance.
func (tr *Trajectory) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "state", "subcommunity", "abundance"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range tr.Times {
		for s := 0; s < tr.Dim; s++ {
			for k := 0; k < tr.Subcommunities; k++ {
				rec := []string{
					strconv.FormatFloat(t, 'g', -1, 64),
					strconv.Itoa(s),
					strconv.Itoa(k),
					strconv.FormatFloat(tr.Data[s][k][i], 'g', -1, 64),
				}
				if err := cw.Write(rec); err != nil {
					return fmt.Errorf("writing frame %d: %w", i, err)
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// frameLine is the JSONL wire form of one frame.
type frameLine struct {
	RunID string      `json:"run_id"`
	T     float64     `json:"t"`
	Frame [][]float64 `json:"frame"` // [state][sub]
}

// WriteJSONL emits one JSON object per recorded frame.
func (tr *Trajectory) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, t := range tr.Times {
		line := frameLine{RunID: tr.RunID, T: t, Frame: tr.Frame(i)}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encoding frame %d: %w", i, err)
		}
	}
	return nil
}
