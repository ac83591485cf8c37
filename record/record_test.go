package record

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrajectory(t *testing.T) *Trajectory {
	t.Helper()
	tr := NewTrajectory(3, 2)
	require.NoError(t, tr.Append(0, [][]float64{{100, 200}, {10, 20}, {0, 0}}))
	require.NoError(t, tr.Append(1, [][]float64{{90, 180}, {15, 30}, {5, 10}}))
	require.NoError(t, tr.Append(2, [][]float64{{80, 160}, {18, 36}, {12, 24}}))
	return tr
}

func TestTrajectoryAccessors(t *testing.T) {
	tr := sampleTrajectory(t)

	assert.Equal(t, 3, tr.Frames())
	assert.Equal(t, []float64{0, 1, 2}, tr.Times)
	assert.Equal(t, []float64{10, 15, 18}, tr.Series(1, 0))
	assert.Nil(t, tr.Series(9, 0))
	assert.Nil(t, tr.Series(0, -1))

	frame := tr.Frame(1)
	assert.Equal(t, [][]float64{{90, 180}, {15, 30}, {5, 10}}, frame)
	assert.Nil(t, tr.Frame(3))

	assert.Equal(t, [][]float64{{80, 160}, {18, 36}, {12, 24}}, tr.Final())
	assert.Equal(t, 36.0, tr.FinalTotal(2))
}

func TestTrajectoryAppendCopies(t *testing.T) {
	tr := NewTrajectory(1, 1)
	row := [][]float64{{42}}
	require.NoError(t, tr.Append(0, row))
	row[0][0] = 99
	assert.Equal(t, 42.0, tr.Series(0, 0)[0], "recorded frames must not alias the live state")
}

func TestTrajectoryAppendShapeChecks(t *testing.T) {
	tr := NewTrajectory(2, 2)
	require.Error(t, tr.Append(0, [][]float64{{1, 2}}), "too few states")
	require.Error(t, tr.Append(0, [][]float64{{1}, {2}}), "too few subcommunities")
	assert.Equal(t, 0, tr.Frames(), "failed appends must not record")
}

func TestTrajectoryRunIDsAreUnique(t *testing.T) {
	a := NewTrajectory(1, 1)
	b := NewTrajectory(1, 1)
	assert.NotEmpty(t, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestWriteCSV(t *testing.T) {
	tr := sampleTrajectory(t)
	var buf bytes.Buffer
	require.NoError(t, tr.WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"t", "state", "subcommunity", "abundance"}, rows[0])
	// One row per (frame, state, subcommunity) triple.
	assert.Len(t, rows, 1+3*3*2)
	assert.Equal(t, []string{"0", "0", "0", "100"}, rows[1])
}

func TestWriteJSONL(t *testing.T) {
	tr := sampleTrajectory(t)
	var buf bytes.Buffer
	require.NoError(t, tr.WriteJSONL(&buf))

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var line frameLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		assert.Equal(t, tr.RunID, line.RunID)
		assert.Len(t, line.Frame, 3)
		lines++
	}
	assert.Equal(t, 3, lines)
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	tr := sampleTrajectory(t)
	require.NoError(t, store.SaveRun(tr, "sir"))

	got, err := store.LoadRun(tr.RunID)
	require.NoError(t, err)
	assert.Equal(t, tr.RunID, got.RunID)
	assert.Equal(t, tr.Times, got.Times)
	assert.Equal(t, tr.Data, got.Data)

	infos, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, tr.RunID, infos[0].ID)
	assert.Equal(t, "sir", infos[0].Model)
	assert.Equal(t, 3, infos[0].Frames)
}

func TestStoreLoadUnknownRun(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.LoadRun("no-such-run")
	require.Error(t, err)
}

func TestStoreRejectsDuplicateRun(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	tr := sampleTrajectory(t)
	require.NoError(t, store.SaveRun(tr, "sir"))
	require.Error(t, store.SaveRun(tr, "sir"), "run IDs are primary keys")
}
