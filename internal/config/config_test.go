package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Log:       Log{Level: "info", Format: "text"},
		Run:       Run{Frames: 1},
		Scenarios: Scenarios{Dir: "testdata/scenarios"},
	}, cfg)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log: level: "debug"
run: {
	frames:  120
	journal: "frames.db"
	label:   "viewport"
}
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 120, cfg.Run.Frames)
	assert.Equal(t, "frames.db", cfg.Run.Journal)
	assert.Equal(t, "viewport", cfg.Run.Label)
	assert.Equal(t, "testdata/scenarios", cfg.Scenarios.Dir)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", `log: {`},
		{"unknown level", `log: level: "trace"`},
		{"unknown field", `run: speed: 2`},
		{"zero frames", `run: frames: 0`},
		{"float frames", `run: frames: 1.5`},
		{"empty scenario dir", `scenarios: dir: ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.cue"))
	require.NoError(t, err, "missing file means defaults")
	assert.Equal(t, 1, cfg.Run.Frames)

	path := filepath.Join(dir, "framegraph.cue")
	require.NoError(t, os.WriteFile(path, []byte(`log: format: "json"`), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLog_Logger(t *testing.T) {
	tests := []struct {
		name    string
		log     Log
		verbose bool
		want    slog.Level
	}{
		{"info", Log{Level: "info"}, false, slog.LevelInfo},
		{"warn", Log{Level: "warn"}, false, slog.LevelWarn},
		{"error", Log{Level: "error"}, false, slog.LevelError},
		{"verbose forces debug", Log{Level: "error"}, true, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := tt.log.Logger(&buf, tt.verbose)
			assert.True(t, l.Enabled(context.Background(), tt.want))
			assert.False(t, l.Enabled(context.Background(), tt.want-1))
		})
	}

	var buf bytes.Buffer
	Log{Level: "info", Format: "json"}.Logger(&buf, false).Info("frame complete", "frame", 1)
	assert.Contains(t, buf.String(), `"msg":"frame complete"`)
}
