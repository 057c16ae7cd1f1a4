package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioPath("global_propagation.yaml")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ global_propagation.yaml (global_propagation)")
}

func TestValidateValidScenariosJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		scenarioPath("global_propagation.yaml"),
		scenarioPath("spawn_and_clear.yaml"),
	})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "spawn_and_clear", resp.Data.Scenarios[1].Name)
}

func TestValidateMissingArgs(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestValidateInvalidScenarios(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "yaml syntax",
			src:     "name: [unclosed",
			wantErr: "failed to parse YAML",
		},
		{
			name: "unknown field",
			src: `
name: x
description: d
frames: 1
tasks: [{ key: a }]
assertions: [{ type: task_exists, task: a, want: true }]
colour: blue
`,
			wantErr: "field colour not found",
		},
		{
			name: "unknown template",
			src: `
name: x
description: d
frames: 1
tasks: [{ key: a, template: missing }]
assertions: [{ type: task_exists, task: a, want: true }]
`,
			wantErr: `unknown template "missing"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.src), 0644))

			buf := &bytes.Buffer{}
			cmd := NewValidateCommand(&RootOptions{Format: "text"})
			cmd.SetOut(buf)
			cmd.SetArgs([]string{path})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, buf.String(), "✗ scenario.yaml")
			assert.Contains(t, buf.String(), tt.wantErr)
		})
	}
}

func TestValidateMixedJSON(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioPath("frame_error.yaml"), missing})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeScenarioInvalid, resp.Error.Code)
	assert.Equal(t, "1 scenario(s) invalid", resp.Error.Message)

	require.Len(t, resp.Data.Scenarios, 2)
	assert.True(t, resp.Data.Scenarios[0].Valid)
	assert.False(t, resp.Data.Scenarios[1].Valid)
	assert.Contains(t, resp.Data.Scenarios[1].Error, "failed to read scenario file")
}
