package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framegraph/internal/journal"
)

// recordScenario runs a scenario into a fresh journal and returns its path.
func recordScenario(t *testing.T, scenario string, ids ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "framegraph.db")
	gen := journal.NewFixedGenerator(ids...)
	for range ids {
		opts := &RunOptions{
			RootOptions: &RootOptions{Format: "text"},
			IDGenerator: gen,
		}
		cmd := newRunCommand(opts)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--db", dbPath, scenarioPath(scenario)})
		require.NoError(t, cmd.Execute())
	}
	return dbPath
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	dbPath := filepath.Join(t.TempDir(), "missing.db")
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E201]")
	assert.NoFileExists(t, dbPath)
}

func TestTraceLatestSessionText(t *testing.T) {
	dbPath := recordScenario(t, "deferred_removal.yaml", "first", "second")

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Trace for Session: second")
	assert.Contains(t, output, "Label: deferred_removal")
	assert.Contains(t, output, "command:   remove_task B")
	assert.Contains(t, output, "Frames:    2")
	assert.Contains(t, output, "Commands:  1")
}

func TestTraceSessionJSON(t *testing.T) {
	dbPath := recordScenario(t, "global_propagation.yaml", "first", "second")

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "first"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	result := resp.Data
	assert.Equal(t, "first", result.Session)
	require.Len(t, result.Frames, 2)
	assert.Equal(t, []string{"A", "B"}, result.Frames[0].Evaluated)
	assert.Equal(t, []string{"global/x", "global/y"}, result.Frames[0].Mutated)
	assert.Equal(t, []string{"B"}, result.Frames[1].Skipped)
	assert.Equal(t, TraceStats{Frames: 2, Evaluated: 3, Skipped: 1, Mutations: 2}, result.Stats)
}

func TestTraceMatchesRunDigests(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "framegraph.db")

	runBuf := &bytes.Buffer{}
	run := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		IDGenerator: journal.NewFixedGenerator("s"),
	})
	run.SetOut(runBuf)
	run.SetErr(&bytes.Buffer{})
	run.SetArgs([]string{"--db", dbPath, scenarioPath("spawn_and_clear.yaml")})
	require.NoError(t, run.Execute())
	ran := decodeRunResult(t, runBuf.Bytes())

	traceBuf := &bytes.Buffer{}
	tr := NewTraceCommand(&RootOptions{Format: "json"})
	tr.SetOut(traceBuf)
	tr.SetArgs([]string{"--db", dbPath})
	require.NoError(t, tr.Execute())

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(traceBuf.Bytes(), &resp))
	assert.Equal(t, ran.Frames, resp.Data.Frames)
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := recordScenario(t, "global_propagation.yaml", "only")

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "nope"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E202]")
}

func TestTraceEmptyJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath})

	err = cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, journal.ErrSessionNotFound)
}

func TestTraceListSessions(t *testing.T) {
	dbPath := recordScenario(t, "global_propagation.yaml", "first", "second")

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--list"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Data []SessionSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "first", resp.Data[0].ID)
	assert.Equal(t, "second", resp.Data[1].ID)
	assert.Equal(t, int64(2), resp.Data[1].LastFrame)
}

func TestTraceDiffMatchingSessions(t *testing.T) {
	dbPath := recordScenario(t, "global_propagation.yaml", "first", "second")

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--diff", "first", "second"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ first and second match (2 frames compared)")
}

func TestTraceDiffDivergingSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "framegraph.db")
	gen := journal.NewFixedGenerator("globals", "removal")
	for _, scenario := range []string{"global_propagation.yaml", "deferred_removal.yaml"} {
		cmd := newRunCommand(&RunOptions{RootOptions: &RootOptions{Format: "text"}, IDGenerator: gen})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--db", dbPath, scenarioPath(scenario)})
		require.NoError(t, cmd.Execute())
	}

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--diff", "globals", "removal"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data DiffResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, DiffResult{A: "globals", B: "removal", FramesA: 2, FramesB: 2, Diverged: true, Frame: 1}, resp.Data)
}

func TestTraceDiffUnknownSession(t *testing.T) {
	dbPath := recordScenario(t, "global_propagation.yaml", "only")

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--diff", "only", "ghost"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E202]")
}

func TestTraceDiffArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"diff needs two sessions", []string{"--diff", "a"}, "accepts 2 arg(s)"},
		{"plain trace takes none", []string{"a"}, "unknown command"},
		{"diff excludes list", []string{"--diff", "--list", "a", "b"}, "none of the others can be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewTraceCommand(&RootOptions{Format: "text"})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{"--db", "unused.db"}, tt.args...))

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
