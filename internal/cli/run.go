package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/framegraph/internal/engine"
	"github.com/roach88/framegraph/internal/harness"
	"github.com/roach88/framegraph/internal/journal"
	"github.com/roach88/framegraph/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Frames   int
	Database string
	Label    string
	Resume   bool

	// IDGenerator overrides the journal session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator journal.IDGenerator
}

// FrameSummary is the printable form of a frame report.
type FrameSummary struct {
	Frame     int64    `json:"frame"`
	Evaluated []string `json:"evaluated"`
	Skipped   []string `json:"skipped"`
	Mutated   []string `json:"mutated"`
	Commands  []string `json:"commands,omitempty"`
	Digest    string   `json:"digest"`
	Error     string   `json:"error,omitempty"`
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario   string         `json:"scenario"`
	Pass       bool           `json:"pass"`
	Errors     []string       `json:"errors,omitempty"`
	Session    string         `json:"session,omitempty"`
	StartFrame int64          `json:"start_frame,omitempty"`
	Frames     []FrameSummary `json:"frames"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario frame by frame",
		Long: `Build the scheduler described by a scenario file and run its frames.

Each frame's evaluated, skipped and mutated sets are printed. With --db
every frame report is journaled to SQLite under a new session, which the
trace command can print later.

With --resume the new session continues the frame numbering of the
latest session in the journal, so traces of consecutive runs line up.
Frames named inside the scenario still count from the run's first frame.

Defaults for --db and --label, and the frame count of scenarios that do
not set one, come from the config file.

Examples:
  framegraph run testdata/scenarios/global_propagation.yaml
  framegraph run --frames 10 --db ./framegraph.db scenario.yaml
  framegraph run --db ./framegraph.db --resume scenario.yaml
  framegraph run scenario.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Frames, "frames", 0, "number of frames to run (default: the scenario's, then run.frames)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Label, "label", "", "journal session label (default: scenario name)")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "continue frame numbering from the latest journal session")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.config()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := opts.logger(cmd.ErrOrStderr())

	sc, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	if opts.Frames < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid frame count %d", opts.Frames))
	}
	switch {
	case opts.Frames > 0:
		sc.Frames = opts.Frames
	case sc.Frames == 0:
		sc.Frames = cfg.Run.Frames
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runOpts := []harness.Option{harness.WithLogger(logger)}

	out := RunResult{Scenario: sc.Name}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Run.Journal
	}
	if opts.Resume && dbPath == "" {
		return NewExitError(ExitCommandError, "--resume needs a journal (--db or run.journal)")
	}
	if dbPath != "" {
		rec, closeJournal, err := openRecorder(ctx, opts, dbPath, sessionLabel(opts, sc), logger)
		if err != nil {
			return err
		}
		defer closeJournal()
		out.Session = rec.Session()
		out.StartFrame = rec.StartFrame()
		runOpts = append(runOpts, harness.WithObserver(rec), harness.WithStartFrame(rec.StartFrame()))
	}

	logger.Info("running scenario", "scenario", sc.Name, "frames", sc.Frames)
	result, err := harness.Run(ctx, sc, runOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario run failed", err)
	}

	out.Pass = result.Pass
	out.Errors = result.Errors
	out.Frames = make([]FrameSummary, 0, len(result.Frames))
	for _, rep := range result.Frames {
		fs, err := summarize(rep)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to digest frame", err)
		}
		out.Frames = append(out.Frames, fs)
	}

	formatter := opts.formatter(cmd)
	if formatter.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		outputRunText(formatter.Writer, out)
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", sc.Name, len(out.Errors)))
	}
	return nil
}

func sessionLabel(opts *RunOptions, sc *harness.Scenario) string {
	if opts.Label != "" {
		return opts.Label
	}
	if cfg, err := opts.config(); err == nil && cfg.Run.Label != "" {
		return cfg.Run.Label
	}
	return sc.Name
}

// openRecorder opens the journal and starts a session, continuing after the
// latest session's last frame when opts.Resume is set. The returned func
// closes the journal.
func openRecorder(ctx context.Context, opts *RunOptions, path, label string, logger *slog.Logger) (*journal.Recorder, func(), error) {
	var jopts []journal.Option
	if opts.IDGenerator != nil {
		jopts = append(jopts, journal.WithIDGenerator(opts.IDGenerator))
	}

	logger.Info("opening journal", "path", path)
	j, err := journal.Open(path, jopts...)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	closeJournal := func() {
		if err := j.Close(); err != nil {
			logger.Error("error closing journal", "error", err)
		}
	}

	var start int64
	if opts.Resume {
		start, err = resumeFrame(ctx, j)
		if err != nil {
			closeJournal()
			return nil, nil, WrapExitError(ExitCommandError, "failed to read latest session", err)
		}
	}

	rec, err := j.StartSession(ctx, label, start)
	if err != nil {
		closeJournal()
		return nil, nil, WrapExitError(ExitCommandError, "failed to start session", err)
	}
	logger.Info("journal session started", "session", rec.Session(), "label", label, "start_frame", start)
	return rec, closeJournal, nil
}

// resumeFrame returns the frame the latest session ended on, or 0 for an
// empty journal.
func resumeFrame(ctx context.Context, j *journal.Journal) (int64, error) {
	latest, err := j.LatestSession(ctx)
	if errors.Is(err, journal.ErrSessionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return max(latest.LastFrame, latest.StartFrame), nil
}

// summarize converts a report for output.
func summarize(rep engine.FrameReport) (FrameSummary, error) {
	digest, err := trace.FrameDigest(rep)
	if err != nil {
		return FrameSummary{}, err
	}
	fs := FrameSummary{
		Frame:     rep.Frame,
		Evaluated: nonNilStrings(rep.Evaluated),
		Skipped:   nonNilStrings(rep.Skipped),
		Mutated:   make([]string, len(rep.Mutated)),
		Digest:    digest,
	}
	for i, m := range rep.Mutated {
		fs.Mutated[i] = m.Namespace + "/" + m.Key
	}
	for _, c := range rep.Commands {
		fs.Commands = append(fs.Commands, formatCommand(c.Op, c.Task, c.Key, c.Err))
	}
	if rep.Err != nil {
		fs.Error = rep.Err.Error()
	}
	return fs, nil
}

func formatCommand(op, task, key string, err error) string {
	var b strings.Builder
	b.WriteString(op)
	if task != "" {
		b.WriteString(" " + task)
	}
	if key != "" {
		b.WriteString("/" + key)
	}
	if err != nil {
		b.WriteString(" (failed: " + err.Error() + ")")
	}
	return b.String()
}

func outputRunText(w io.Writer, out RunResult) {
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	if out.Session != "" {
		fmt.Fprintf(w, "Session:  %s\n", out.Session)
	}
	if out.StartFrame > 0 {
		fmt.Fprintf(w, "Resumed:  after frame %d\n", out.StartFrame)
	}
	fmt.Fprintln(w)

	for _, f := range out.Frames {
		formatFrame(w, f)
	}
	fmt.Fprintln(w)

	if out.Pass {
		fmt.Fprintf(w, "✓ %s passed (%d frames)\n", out.Scenario, len(out.Frames))
		return
	}
	fmt.Fprintf(w, "✗ %s failed\n", out.Scenario)
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// formatFrame writes one frame in text form. Shared with the trace command.
func formatFrame(w io.Writer, f FrameSummary) {
	fmt.Fprintf(w, "[%d] %s\n", f.Frame, truncateID(f.Digest))
	fmt.Fprintf(w, "     evaluated: %s\n", formatList(f.Evaluated))
	fmt.Fprintf(w, "     skipped:   %s\n", formatList(f.Skipped))
	fmt.Fprintf(w, "     mutated:   %s\n", formatList(f.Mutated))
	for _, c := range f.Commands {
		fmt.Fprintf(w, "     command:   %s\n", c)
	}
	if f.Error != "" {
		fmt.Fprintf(w, "     error:     %s\n", f.Error)
	}
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// truncateID truncates a long ID or digest for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
