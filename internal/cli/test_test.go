package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framegraph/internal/config"
	"github.com/roach88/framegraph/internal/harness"
)

const passingScenario = `
name: counter
description: "a task increments its own counter every frame"
frames: 3
tasks:
  - key: A
    init:
      - { op: set, ref: self/n, value: 0 }
    eval:
      - { op: add, ref: self/n }
assertions:
  - { type: value, ref: A/n, equals: 3 }
`

// copyScenarios writes the named scenario sources into a fresh directory.
func copyScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func TestTestCommandTooManyArgs(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"a", "b"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg")
}

func TestTestCommandNonExistentDir(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/scenarios"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestTestCommandEmptyDirJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommandRepositoryScenarios(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join("..", "..", "testdata", "scenarios")})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, name := range []string{"global_propagation", "deferred_removal", "spawn_and_clear", "frame_error"} {
		assert.Contains(t, output, "✓ "+name)
	}
	assert.Contains(t, output, "4 passed, 0 failed, 4 total")
}

func TestTestCommandMixedResultsJSON(t *testing.T) {
	dir := copyScenarios(t, map[string]string{
		"counter.yaml":     passingScenario,
		"wrong_value.yaml": failingScenario,
		"broken.yaml":      "name: broken\n",
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeScenarioFailed, resp.Error.Code)

	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 2, resp.Data.Failed)

	// WalkDir visits files in lexical order
	require.Len(t, resp.Data.Scenarios, 3)
	assert.Equal(t, "broken.yaml", resp.Data.Scenarios[0].Name)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "failed to load scenario")
	assert.Equal(t, "counter", resp.Data.Scenarios[1].Name)
	assert.True(t, resp.Data.Scenarios[1].Pass)
	assert.Equal(t, "wrong_value", resp.Data.Scenarios[2].Name)
	assert.False(t, resp.Data.Scenarios[2].Pass)
}

func TestTestCommandFilter(t *testing.T) {
	dir := copyScenarios(t, map[string]string{
		"counter.yaml":     passingScenario,
		"wrong_value.yaml": failingScenario,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--filter", "count*"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "1 passed, 0 failed, 1 total")
	assert.NotContains(t, buf.String(), "wrong_value")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	dir := copyScenarios(t, map[string]string{"counter.yaml": passingScenario})

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--filter", "[unclosed"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := copyScenarios(t, map[string]string{"counter.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "counter.golden")

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--update"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ counter (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario":"counter"`)

	// Unchanged run matches.
	buf.Reset()
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ counter\n")

	// A tampered golden file fails the scenario.
	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario":"counter","frames":[]}`), 0644))
	buf.Reset()
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "trace does not match golden file")
}

func TestTestCommandDirFromConfig(t *testing.T) {
	dir := copyScenarios(t, map[string]string{"counter.yaml": passingScenario})
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Scenarios.Dir = dir

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text", Config: cfg})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ counter")
}

func TestFindScenarioFilesSkipsGolden(t *testing.T) {
	dir := copyScenarios(t, map[string]string{
		"a.yaml":    passingScenario,
		"b.yml":     passingScenario,
		"notes.txt": "not a scenario",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "c.yaml"), []byte("x"), 0644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, files)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("testdata", "scenarios", "golden", "global_propagation.golden"),
		goldenFilePath(filepath.Join("testdata", "scenarios", "global_propagation.yaml")))
}

func TestPassingScenarioFixtureIsValid(t *testing.T) {
	sc, err := harness.ParseScenario([]byte(passingScenario))
	require.NoError(t, err)
	assert.Equal(t, 3, sc.Frames)
}
