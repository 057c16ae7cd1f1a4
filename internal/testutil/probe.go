package testutil

import (
	"context"
	"sync"

	"github.com/roach88/framegraph/internal/engine"
)

// Probe is an engine.Task that records every callback in a CallLog and then
// delegates to optional functions. Nil functions succeed; a nil Active
// means always active.
type Probe struct {
	Log    *CallLog
	Init   func(h *engine.Handle) error
	Eval   func(h *engine.Handle) error
	Active func(h *engine.Handle) bool
}

// NewProbe returns a probe writing to log.
func NewProbe(log *CallLog) *Probe {
	return &Probe{Log: log}
}

// WithEval sets the Eval callback and returns p.
func (p *Probe) WithEval(fn func(h *engine.Handle) error) *Probe {
	p.Eval = fn
	return p
}

// WithInit sets the Init callback and returns p.
func (p *Probe) WithInit(fn func(h *engine.Handle) error) *Probe {
	p.Init = fn
	return p
}

// WithActive sets the IsActive callback and returns p.
func (p *Probe) WithActive(fn func(h *engine.Handle) bool) *Probe {
	p.Active = fn
	return p
}

// Task adapts the probe to engine.Task. The adapter is separate so the
// exported callback fields do not collide with the Task methods.
func (p *Probe) Task() engine.Task {
	return probeTask{p}
}

type probeTask struct{ p *Probe }

func (t probeTask) Init(h *engine.Handle) error {
	t.p.Log.Record(h.Frame(), h.Key(), PhaseInit)
	if t.p.Init == nil {
		return nil
	}
	return t.p.Init(h)
}

func (t probeTask) Eval(h *engine.Handle) error {
	t.p.Log.Record(h.Frame(), h.Key(), PhaseEval)
	if t.p.Eval == nil {
		return nil
	}
	return t.p.Eval(h)
}

func (t probeTask) IsActive(h *engine.Handle) bool {
	if t.p.Active == nil || t.p.Active(h) {
		return true
	}
	t.p.Log.Record(h.Frame(), h.Key(), PhaseSkip)
	return false
}

// Reports collects frame reports. It implements engine.FrameObserver.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Reports struct {
	mu      sync.Mutex
	reports []engine.FrameReport
	err     error
}

// NewReports creates an empty collector.
func NewReports() *Reports {
	return &Reports{}
}

// FailWith makes every later ObserveFrame return err after recording.
func (r *Reports) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// ObserveFrame records the report.
func (r *Reports) ObserveFrame(_ context.Context, rep engine.FrameReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return r.err
}

// All returns a copy of the collected reports.
func (r *Reports) All() []engine.FrameReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.FrameReport(nil), r.reports...)
}

// Last returns the most recent report. ok is false if none was collected.
func (r *Reports) Last() (rep engine.FrameReport, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reports) == 0 {
		return engine.FrameReport{}, false
	}
	return r.reports[len(r.reports)-1], true
}
