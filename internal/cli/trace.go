package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/framegraph/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - defaults to the latest session
	List     bool   // list sessions instead of printing frames
	Diff     bool   // compare the two sessions given as arguments
}

// TraceResult holds the frames of one journaled session.
type TraceResult struct {
	Session string         `json:"session"`
	Label   string         `json:"label"`
	Frames  []FrameSummary `json:"frames"`
	Stats   TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	Frames    int `json:"frames"`
	Evaluated int `json:"evaluated"`
	Skipped   int `json:"skipped"`
	Mutations int `json:"mutations"`
	Commands  int `json:"commands"`
	Errors    int `json:"errors"`
}

// DiffResult is the comparison of two sessions.
type DiffResult struct {
	A        string `json:"a"`
	B        string `json:"b"`
	FramesA  int    `json:"frames_a"`
	FramesB  int    `json:"frames_b"`
	Diverged bool   `json:"diverged"`
	Frame    int64  `json:"frame,omitempty"` // first differing frame of A
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	StartFrame int64  `json:"start_frame"`
	Frames     int    `json:"frames"`
	LastFrame  int64  `json:"last_frame"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print journaled frames",
		Long: `Print the frames recorded in a journal session.

For every frame the evaluated and skipped tasks, the mutated resources
and the structural changes applied at the frame boundary are shown,
along with the frame digest.

Without --session the most recent session is printed.

With --diff two sessions are compared frame by frame and the first frame
whose digest differs is reported. Sessions that diverge exit with 1.

Examples:
  framegraph trace --db ./framegraph.db
  framegraph trace --db ./framegraph.db --session 0192...
  framegraph trace --db ./framegraph.db --list
  framegraph trace --db ./framegraph.db --diff 0192... 0193...
  framegraph trace --db ./framegraph.db --format json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Diff {
				return cobra.ExactArgs(2)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session ID to print")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded sessions")
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "compare two sessions: trace --diff <a> <b>")
	cmd.MarkFlagsMutuallyExclusive("list", "diff", "session")

	return cmd
}

func runTrace(opts *TraceOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	// journal.Open creates missing files; a mistyped path must not turn
	// into an empty journal.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(CodeJournal, fmt.Sprintf("journal not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(CodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	if opts.List {
		return listSessions(ctx, j, formatter)
	}
	if opts.Diff {
		return diffSessions(ctx, j, formatter, args[0], args[1])
	}

	var session journal.Session
	if opts.Session != "" {
		session, err = j.Session(ctx, opts.Session)
	} else {
		session, err = j.LatestSession(ctx)
	}
	if errors.Is(err, journal.ErrSessionNotFound) {
		_ = formatter.Error(CodeSessionNotFound, err.Error(), map[string]string{"session": opts.Session})
		return WrapExitError(ExitCommandError, "session not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	formatter.VerboseLog("session %s: %d frame(s)", session.ID, session.Frames)

	result, err := buildTrace(ctx, j, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter.Writer, result)
	return nil
}

func buildTrace(ctx context.Context, j *journal.Journal, session journal.Session) (TraceResult, error) {
	frames, err := j.Frames(ctx, session.ID)
	if err != nil {
		return TraceResult{}, err
	}

	result := TraceResult{
		Session: session.ID,
		Label:   session.Label,
		Frames:  make([]FrameSummary, 0, len(frames)),
	}
	for _, f := range frames {
		refs, err := j.Mutations(ctx, session.ID, f.Frame)
		if err != nil {
			return TraceResult{}, err
		}
		cmds, err := j.Commands(ctx, session.ID, f.Frame)
		if err != nil {
			return TraceResult{}, err
		}

		fs := FrameSummary{
			Frame:     f.Frame,
			Evaluated: nonNilStrings(f.Evaluated),
			Skipped:   nonNilStrings(f.Skipped),
			Mutated:   make([]string, len(refs)),
			Digest:    f.Digest,
			Error:     f.Error,
		}
		for i, r := range refs {
			fs.Mutated[i] = r.Namespace + "/" + r.Key
		}
		for _, c := range cmds {
			var cerr error
			if c.Error != "" {
				cerr = errors.New(c.Error)
			}
			fs.Commands = append(fs.Commands, formatCommand(c.Op, c.Task, c.Key, cerr))
		}
		result.Frames = append(result.Frames, fs)

		result.Stats.Evaluated += len(fs.Evaluated)
		result.Stats.Skipped += len(fs.Skipped)
		result.Stats.Mutations += len(fs.Mutated)
		result.Stats.Commands += len(fs.Commands)
		if fs.Error != "" {
			result.Stats.Errors++
		}
	}
	result.Stats.Frames = len(result.Frames)
	return result, nil
}

func listSessions(ctx context.Context, j *journal.Journal, formatter *OutputFormatter) error {
	sessions, err := j.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	out := make([]SessionSummary, len(sessions))
	for i, s := range sessions {
		out[i] = SessionSummary{
			ID:         s.ID,
			Label:      s.Label,
			StartFrame: s.StartFrame,
			Frames:     s.Frames,
			LastFrame:  s.LastFrame,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	w := formatter.Writer
	if len(out) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, s := range out {
		fmt.Fprintf(w, "%s  %-24s frames=%d last=%d\n", s.ID, s.Label, s.Frames, s.LastFrame)
	}
	return nil
}

func outputTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	if result.Label != "" {
		fmt.Fprintf(w, "Label: %s\n", result.Label)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Frames ===")
	if len(result.Frames) == 0 {
		fmt.Fprintln(w, "  (no frames)")
	}
	for _, f := range result.Frames {
		formatFrame(w, f)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Frames:    %d\n", result.Stats.Frames)
	fmt.Fprintf(w, "  Evaluated: %d\n", result.Stats.Evaluated)
	fmt.Fprintf(w, "  Skipped:   %d\n", result.Stats.Skipped)
	fmt.Fprintf(w, "  Mutations: %d\n", result.Stats.Mutations)
	fmt.Fprintf(w, "  Commands:  %d\n", result.Stats.Commands)
	fmt.Fprintf(w, "  Errors:    %d\n", result.Stats.Errors)
}

// diffSessions reports where two sessions stop producing the same frames.
func diffSessions(ctx context.Context, j *journal.Journal, formatter *OutputFormatter, a, b string) error {
	result := DiffResult{A: a, B: b}
	for _, id := range []string{a, b} {
		session, err := j.Session(ctx, id)
		if errors.Is(err, journal.ErrSessionNotFound) {
			_ = formatter.Error(CodeSessionNotFound, err.Error(), map[string]string{"session": id})
			return WrapExitError(ExitCommandError, "session not found", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		if id == a {
			result.FramesA = session.Frames
		} else {
			result.FramesB = session.Frames
		}
	}

	frame, err := j.Divergence(ctx, a, b)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compare sessions", err)
	}
	result.Frame = frame
	result.Diverged = frame != 0

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputDiffText(formatter.Writer, result)
	}
	if result.Diverged {
		return NewExitError(ExitFailure, fmt.Sprintf("sessions diverge at frame %d", frame))
	}
	return nil
}

func outputDiffText(w io.Writer, d DiffResult) {
	if d.Diverged {
		fmt.Fprintf(w, "✗ %s and %s diverge at frame %d\n", truncateID(d.A), truncateID(d.B), d.Frame)
	} else {
		fmt.Fprintf(w, "✓ %s and %s match (%d frames compared)\n", truncateID(d.A), truncateID(d.B), min(d.FramesA, d.FramesB))
	}
	if d.FramesA != d.FramesB {
		fmt.Fprintf(w, "  frame counts differ: %d vs %d\n", d.FramesA, d.FramesB)
	}
}
