package engine

import (
	"context"
	"time"

	"github.com/roach88/framegraph/internal/resource"
)

// FrameReport summarizes one Run.
type FrameReport struct {
	Frame int64

	// Evaluated lists tasks whose Eval ran, in order.
	Evaluated []string

	// Skipped lists tasks whose IsActive returned false.
	Skipped []string

	// Mutated lists resources written during the frame (including writes
	// made between the previous frame and this one), sorted.
	Mutated []resource.Ref

	// Commands lists the structural changes applied after the pass.
	Commands []AppliedCommand

	// Err is the task error that aborted the pass, if any.
	Err error

	Duration time.Duration
}

// AppliedCommand records a structural change applied at a frame boundary.
type AppliedCommand struct {
	Op   string // add_task, remove_task, clear, remove_resource
	Task string
	Key  string // resource key for remove_resource
	Err  error  // non-nil if the change could not be applied
}

// FrameObserver receives a report after every frame. The journal implements
// it to persist frames.
type FrameObserver interface {
	ObserveFrame(ctx context.Context, report FrameReport) error
}

// ObserverFunc adapts a function to FrameObserver.
type ObserverFunc func(ctx context.Context, report FrameReport) error

// ObserveFrame calls f.
func (f ObserverFunc) ObserveFrame(ctx context.Context, report FrameReport) error {
	return f(ctx, report)
}
