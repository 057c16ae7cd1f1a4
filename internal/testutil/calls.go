// Package testutil provides task probes and call logs for scheduler tests.
package testutil

import (
	"fmt"
	"sync"
)

// Phases recorded by a Probe.
const (
	PhaseInit = "init"
	PhaseEval = "eval"
	PhaseSkip = "skip"
)

// Call is one recorded task callback.
type Call struct {
	Frame int64
	Task  string
	Phase string
}

// String renders the call as "frame:task:phase", the form tests compare.
func (c Call) String() string {
	return fmt.Sprintf("%d:%s:%s", c.Frame, c.Task, c.Phase)
}

// CallLog records task callbacks in the order they happen.
//
// Several probes usually share one log, so the order across tasks is
// observable. A log can be Reset and reused for the next run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type CallLog struct {
	mu    sync.Mutex
	calls []Call
}

// NewCallLog creates an empty log.
func NewCallLog() *CallLog {
	return &CallLog{}
}

// Record appends a call.
func (l *CallLog) Record(frame int64, task, phase string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, Call{Frame: frame, Task: task, Phase: phase})
}

// Calls returns a copy of every recorded call.
func (l *CallLog) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// Strings returns the calls in String form.
func (l *CallLog) Strings() []string {
	calls := l.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Frame returns the tasks that ran phase during frame, in order.
func (l *CallLog) Frame(frame int64, phase string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []string{}
	for _, c := range l.calls {
		if c.Frame == frame && c.Phase == phase {
			out = append(out, c.Task)
		}
	}
	return out
}

// Count returns how many times task ran phase.
func (l *CallLog) Count(task, phase string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c.Task == task && c.Phase == phase {
			n++
		}
	}
	return n
}

// Reset empties the log.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
