package harness

import (
	"errors"
	"fmt"

	"github.com/roach88/framegraph/internal/engine"
	"github.com/roach88/framegraph/internal/resource"
	"github.com/roach88/framegraph/internal/state"
)

// scriptTask runs a Script as an engine.Task.
type scriptTask struct {
	sc     *Scenario
	script Script
	base   int64 // frame before the run's first frame
}

func newScriptTask(sc *Scenario, base int64, s Script) *scriptTask {
	return &scriptTask{sc: sc, script: s, base: base}
}

func (t *scriptTask) Init(h *engine.Handle) error {
	return t.runOps(h, t.script.Init)
}

func (t *scriptTask) Eval(h *engine.Handle) error {
	return t.runOps(h, t.script.Eval)
}

func (t *scriptTask) IsActive(h *engine.Handle) bool {
	c := t.script.ActiveWhen
	if c == nil {
		return true
	}
	var ok bool
	if c.Mutated != "" {
		ok = resolve(h, c.Mutated).IsMutated()
	} else {
		ok = resolve(h, c.Exists).Exists()
	}
	return ok != c.Not
}

func (t *scriptTask) runOps(h *engine.Handle, ops []Op) error {
	for i, op := range ops {
		if op.Frame != 0 && op.Frame != h.Frame()-t.base {
			continue
		}
		if err := t.runOp(h, op); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}
	}
	return nil
}

func (t *scriptTask) runOp(h *engine.Handle, op Op) error {
	switch op.Op {
	case "set":
		return setValue(resolve(h, op.Ref), op.Value)
	case "update":
		return updateValue(resolve(h, op.Ref), op.Value, op.Epsilon)
	case "add":
		return addValue(h, op)
	case "copy":
		v, err := resolve(h, op.From).Value()
		if err != nil {
			return err
		}
		return setValue(resolve(h, op.Ref), v)
	case "touch":
		return resolve(h, op.Ref).Touch()
	case "remove":
		return resolve(h, op.Ref).Remove()
	case "remove_task":
		return h.RemoveTask(op.Task)
	case "spawn":
		return h.AddTask(op.Task, newScriptTask(t.sc, t.base, t.sc.Templates[op.Template]))
	case "spawn_after":
		return h.AddTaskAfter(op.After, op.Task, newScriptTask(t.sc, t.base, t.sc.Templates[op.Template]))
	case "clear":
		h.Clear()
		return nil
	case "fail":
		return errors.New(op.Message)
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

func addValue(h *engine.Handle, op Op) error {
	delta := 1
	if op.Value != nil {
		delta = op.Value.(int)
	}
	src := op.Ref
	if op.From != "" {
		src = op.From
	}
	base, err := engine.Read[int](resolve(h, src))
	if err != nil {
		return err
	}
	return setValue(resolve(h, op.Ref), base+delta)
}

// resolve maps a script ref to a handle: self is the running task, global
// the Global namespace, anything else a task namespace.
func resolve(h *engine.Handle, ref string) engine.ResourceHandle {
	ns, key, _ := splitRef(ref)
	switch {
	case ns == selfNamespace:
		return h.Resource(key)
	case isGlobal(ns):
		return h.Global(key)
	default:
		return h.Task(ns).Resource(key)
	}
}

// setValue stores a YAML-decoded value under its concrete type, so typed
// tasks can read scenario-seeded ints, floats, strings and bools.
func setValue(r engine.ResourceHandle, v any) error {
	if !r.Writable() {
		return &resource.Error{Code: resource.ErrCodeReadOnly, Namespace: r.Namespace(), Key: r.Key()}
	}
	switch val := v.(type) {
	case int:
		engine.Set(r, val)
	case float64:
		engine.Set(r, val)
	case string:
		engine.Set(r, val)
	case bool:
		engine.Set(r, val)
	default:
		engine.Set(r, v)
	}
	return nil
}

// updateValue is setValue that leaves an equal value alone, so readers gated
// on the resource only wake on real changes. Floats compare within eps.
func updateValue(r engine.ResourceHandle, v any, eps float64) error {
	if !r.Writable() {
		return &resource.Error{Code: resource.ErrCodeReadOnly, Namespace: r.Namespace(), Key: r.Key()}
	}
	switch val := v.(type) {
	case int:
		engine.SetIfChanged(r, val)
	case float64:
		engine.SetIfChangedFunc(r, val, state.Approx(eps))
	case string:
		engine.SetIfChanged(r, val)
	case bool:
		engine.SetIfChanged(r, val)
	case []any:
		updateList(r, val, eps)
	default:
		engine.SetIfChangedFunc(r, v, state.Deep[any]())
	}
	return nil
}

// updateList compares a list element by element against the stored one and
// rewrites it only if an element differs or the length changed.
func updateList(r engine.ResourceHandle, vs []any, eps float64) {
	st := state.NewStates(elementComparator(eps))
	if cur, err := r.Value(); err == nil {
		if list, ok := cur.([]any); ok {
			st.Update(list)
		}
	}
	if st.Update(vs) {
		engine.Set(r, st.Values())
	}
}

// elementComparator compares YAML list elements; floats within eps.
func elementComparator(eps float64) state.Comparator[any] {
	approx, deep := state.Approx(eps), state.Deep[any]()
	return func(a, b any) bool {
		af, aok := a.(float64)
		bf, bok := b.(float64)
		if aok && bok {
			return approx(af, bf)
		}
		return deep(a, b)
	}
}
