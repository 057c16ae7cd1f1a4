// Package config loads CLI configuration from CUE files.
//
// A config file is unified with the embedded #Config schema, which supplies
// defaults and constraints, then decoded and checked once more with struct
// validation. A missing file yields the defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
)

//go:embed schema.cue
var schemaCUE string

var validate = validator.New()

// Config is the decoded configuration.
type Config struct {
	Log       Log       `json:"log"`
	Run       Run       `json:"run"`
	Scenarios Scenarios `json:"scenarios"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=text json"`
}

// Run configures scenario runs.
type Run struct {
	Frames  int    `json:"frames" validate:"gte=1"`
	Journal string `json:"journal"`
	Label   string `json:"label"`
}

// Scenarios locates scenario files for the test command.
type Scenarios struct {
	Dir string `json:"dir" validate:"required"`
}

// Default returns the schema defaults.
func Default() (*Config, error) {
	return load(nil, "")
}

// Load reads the CUE file at path. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return load(data, path)
}

// Parse loads configuration from CUE source.
func Parse(data []byte) (*Config, error) {
	return load(data, "config.cue")
}

func load(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if data != nil {
		user := ctx.CompileBytes(data, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, fmt.Errorf("compile %s: %w", filename, err)
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps Level to a slog level.
func (l Log) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds a logger writing to w. verbose forces debug level.
func (l Log) Logger(w io.Writer, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.SlogLevel()}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
