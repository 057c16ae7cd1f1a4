package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/framegraph/internal/engine"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held and no frame failed
	// unexpectedly.
	Pass bool `json:"pass"`

	// Errors lists assertion failures; empty when Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Frames holds the report of every frame, in order.
	Frames []engine.FrameReport `json:"-"`

	// Scheduler is the scheduler in its final state.
	Scheduler *engine.Scheduler `json:"-"`

	// StartFrame is the frame number the run continued from. Scenario
	// frame numbers are relative to it.
	StartFrame int64 `json:"-"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger   *slog.Logger
	observer engine.FrameObserver
	start    int64
}

// WithLogger sets the scheduler logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithObserver forwards every frame report, e.g. to a journal recorder.
func WithObserver(o engine.FrameObserver) Option {
	return func(c *runConfig) {
		c.observer = o
	}
}

// WithStartFrame continues frame numbering after start, e.g. to append to a
// journaled session. Frames referenced by the scenario stay relative: frame
// 1 is always the first frame of this run.
func WithStartFrame(start int64) Option {
	return func(c *runConfig) {
		c.start = start
	}
}

// Run executes a scenario on a fresh scheduler.
//
// Execution flow:
//  1. seed globals through host handles
//  2. register tasks in order, running their Init scripts
//  3. run the frames, checking the assertions bound to each frame
//
// Run returns an error only when the scenario cannot be executed (a task
// fails to register unexpectedly, or the observer fails). Assertion
// failures and task errors during frames are reported in the Result.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	result := NewResult()
	result.StartFrame = cfg.start
	sched := engine.New(
		engine.WithLogger(cfg.logger),
		engine.WithClock(engine.NewClockAt(cfg.start)),
		engine.WithObserver(engine.ObserverFunc(func(ctx context.Context, r engine.FrameReport) error {
			result.Frames = append(result.Frames, r)
			if cfg.observer != nil {
				return cfg.observer.ObserveFrame(ctx, r)
			}
			return nil
		})),
	)
	result.Scheduler = sched

	for _, g := range sc.Globals {
		if err := setValue(sched.Global(g.Key), g.Value); err != nil {
			return nil, fmt.Errorf("seed global %s: %w", g.Key, err)
		}
	}

	for _, td := range sc.Tasks {
		script := td.Script
		if td.Template != "" {
			script = sc.Templates[td.Template]
		}
		task := newScriptTask(sc, cfg.start, script)

		var err error
		if td.After != "" {
			err = sched.AddTaskAfter(td.After, td.Key, task)
		} else {
			err = sched.AddTask(td.Key, task)
		}
		switch {
		case td.ExpectInitError && err == nil:
			result.AddError(fmt.Sprintf("task %s: expected init to fail", td.Key))
		case td.ExpectInitError && !engine.IsInitFailure(err):
			return nil, fmt.Errorf("register task %s: %w", td.Key, err)
		case !td.ExpectInitError && err != nil:
			return nil, fmt.Errorf("register task %s: %w", td.Key, err)
		}
	}

	frames := sc.FrameCount()
	for i := 1; i <= frames; i++ {
		err := sched.Run(ctx)
		last := sched.LastReport()
		// A task error is part of the result; anything else stops the run.
		if err != nil && err != last.Err {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if last.Err != nil && !expectsError(sc, int64(i)) {
			result.AddError(fmt.Sprintf("frame %d: unexpected error: %v", last.Frame, last.Err))
		}
		for _, msg := range EvaluateAssertions(result, sc.Assertions, int64(i), i == frames) {
			result.AddError(msg)
		}
	}

	return result, nil
}

func expectsError(sc *Scenario, frame int64) bool {
	for _, a := range sc.Assertions {
		if a.Type == AssertError && (a.Frame == frame || a.Frame == 0 && frame == int64(sc.FrameCount())) {
			return true
		}
	}
	return false
}
