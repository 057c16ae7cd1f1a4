package engine

// Task is a unit of per-frame work.
//
// Init runs exactly once, when the task is registered; it normally creates
// the task's own resources. Eval runs every frame the task is active.
// Both receive a Handle scoped to the task's own namespace.
//
// An error from Init prevents registration. An error from Eval aborts the
// current frame.
type Task interface {
	Init(h *Handle) error
	Eval(h *Handle) error
}

// Activator is implemented by tasks that can skip frames. IsActive is called
// every frame before Eval; returning false skips Eval while the task stays
// registered, keeping its resources and children alive. Tasks that do not
// implement Activator are always active.
type Activator interface {
	IsActive(h *Handle) bool
}

// Funcs adapts plain functions to Task and Activator. Nil functions are
// no-ops (nil ActiveFn means always active).
type Funcs struct {
	InitFn   func(h *Handle) error
	EvalFn   func(h *Handle) error
	ActiveFn func(h *Handle) bool
}

// Init calls InitFn.
func (f Funcs) Init(h *Handle) error {
	if f.InitFn == nil {
		return nil
	}
	return f.InitFn(h)
}

// Eval calls EvalFn.
func (f Funcs) Eval(h *Handle) error {
	if f.EvalFn == nil {
		return nil
	}
	return f.EvalFn(h)
}

// IsActive calls ActiveFn.
func (f Funcs) IsActive(h *Handle) bool {
	if f.ActiveFn == nil {
		return true
	}
	return f.ActiveFn(h)
}

// EvalFunc is a Task with only an Eval step.
type EvalFunc func(h *Handle) error

// Init does nothing.
func (EvalFunc) Init(*Handle) error { return nil }

// Eval calls f.
func (f EvalFunc) Eval(h *Handle) error { return f(h) }

// isActive applies the Activator default.
func isActive(t Task, h *Handle) bool {
	if a, ok := t.(Activator); ok {
		return a.IsActive(h)
	}
	return true
}
