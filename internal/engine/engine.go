package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/framegraph/internal/resource"
)

// node is a registered task.
type node struct {
	key  string
	task Task
}

// Scheduler owns the ordered task list and the resource store, and runs
// frames.
//
// Thread-safety model:
//   - Run, AddTask, RemoveTask, Clear and every handle method must be called
//     from the goroutine driving the frame loop
//   - Frame() may be read from any goroutine
//
// INVARIANTS:
//   - order and index always describe the same set of tasks
//   - order never changes while a pass is iterating it (running == true);
//     structural requests made then go through queue
type Scheduler struct {
	store    *resource.Store
	order    []*node
	index    map[string]*node
	queue    *commandQueue
	clock    *Clock
	logger   *slog.Logger
	observer FrameObserver

	running bool
	last    FrameReport
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithObserver registers an observer that receives every FrameReport.
func WithObserver(o FrameObserver) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithClock sets the frame clock, e.g. to continue numbering.
func WithClock(c *Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// New creates an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		index:  make(map[string]*node),
		queue:  newCommandQueue(),
		clock:  NewClock(),
		logger: slog.Default(),
		store:  resource.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying resource store.
func (s *Scheduler) Store() *resource.Store {
	return s.store
}

// Frame returns the number of the most recent frame (0 before the first Run).
func (s *Scheduler) Frame() int64 {
	return s.clock.Current()
}

// LastReport returns the report of the most recent Run.
func (s *Scheduler) LastReport() FrameReport {
	return s.last
}

// Tasks returns the registered task keys in execution order.
func (s *Scheduler) Tasks() []string {
	keys := make([]string, len(s.order))
	for i, n := range s.order {
		keys[i] = n.key
	}
	return keys
}

// HasTask reports whether key is registered right now. Tasks queued for
// addition are not registered yet.
func (s *Scheduler) HasTask(key string) bool {
	_, ok := s.index[key]
	return ok
}

// IsMutated reports whether resource (ns, key) was written in the current
// or, between frames, the most recent frame.
func (s *Scheduler) IsMutated(ns, key string) bool {
	return s.store.IsMutated(ns, key)
}

// Global returns a writable handle to a resource in the Global namespace.
func (s *Scheduler) Global(key string) ResourceHandle {
	return ResourceHandle{s: s, ns: resource.Global, key: key, writable: true}
}

// Task returns a host-side handle to a task. Host handles may write the
// task's resources, which is how an application seeds state before the first
// frame.
func (s *Scheduler) Task(key string) TaskHandle {
	return TaskHandle{s: s, key: key, host: true}
}

// AddTask registers t under key at the end of the execution order and runs
// its Init. During a frame the registration is queued and Init runs after
// the pass.
//
// Returns a DUPLICATE_KEY error if key is (or will be) registered, and an
// INIT_FAILURE error if Init fails outside a frame.
func (s *Scheduler) AddTask(key string, t Task) error {
	return s.addTask("", key, t)
}

// AddTaskAfter is AddTask, placing the task immediately after the task
// named after. Returns a NOT_FOUND error if after is not registered.
func (s *Scheduler) AddTaskAfter(after, key string, t Task) error {
	return s.addTask(after, key, t)
}

// RemoveTask removes key, its children and all of their resources. During
// a frame the removal is queued; the task still runs in the current pass
// if it was scheduled to.
func (s *Scheduler) RemoveTask(key string) error {
	if !s.willExist(key) {
		return NewTaskNotFoundError(key)
	}
	if s.running {
		s.queue.push(command{kind: cmdRemoveTask, task: key})
		return nil
	}
	s.unregister(key)
	return nil
}

// Clear removes every task and every resource outside the Global namespace.
// During a frame the reset is queued.
func (s *Scheduler) Clear() {
	if s.running {
		s.queue.push(command{kind: cmdClear})
		return
	}
	s.clearNow()
}

// Run executes one frame.
//
// Tasks run in registration order. For each, IsActive is consulted and Eval
// called if it returns true. A failing or panicking task stops the pass.
// Queued structural changes are applied after the pass whether or not it
// failed, then the FrameReport goes to the observer.
//
// Returns the context error without running anything if ctx is already
// done, and a *TaskError if a task failed.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.running {
		return errors.New("engine: Run called from inside a frame")
	}

	frame := s.clock.Next()
	start := time.Now()
	report := FrameReport{Frame: frame}

	s.store.BeginFrame()
	s.running = true
	taskErr := s.pass(frame, &report)
	s.running = false
	report.Mutated = s.store.Mutated()
	s.store.EndFrame()

	report.Commands = s.apply()
	report.Duration = time.Since(start)
	report.Err = taskErr

	if taskErr != nil {
		s.logger.Error("frame aborted", "frame", frame, "error", taskErr)
	} else {
		s.logger.Debug("frame complete",
			"frame", frame,
			"evaluated", len(report.Evaluated),
			"skipped", len(report.Skipped),
			"mutated", len(report.Mutated),
			"duration", report.Duration,
		)
	}
	s.last = report

	if s.observer != nil {
		if err := s.observer.ObserveFrame(ctx, report); err != nil {
			return errors.Join(taskErr, fmt.Errorf("observe frame %d: %w", frame, err))
		}
	}
	return taskErr
}

// RunFrames runs n frames, stopping at the first error.
func (s *Scheduler) RunFrames(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunUntil runs frames until done returns true, ctx is cancelled or a frame
// fails. This is the host loop:
//
//	sched.RunUntil(ctx, window.ShouldClose)
func (s *Scheduler) RunUntil(ctx context.Context, done func() bool) error {
	for !done() {
		if err := s.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}

// pass evaluates every task once.
func (s *Scheduler) pass(frame int64, report *FrameReport) error {
	order := slices.Clone(s.order)
	for _, n := range order {
		h := newHandle(s, n.key, frame)

		active, err := s.callActive(n, h)
		if err != nil {
			return &TaskError{Task: n.key, Phase: "is_active", Frame: frame, Err: err}
		}
		if !active {
			report.Skipped = append(report.Skipped, n.key)
			continue
		}

		s.logger.Debug("eval task", "task", n.key, "frame", frame)
		if err := s.callEval(n, h); err != nil {
			return &TaskError{Task: n.key, Phase: "eval", Frame: frame, Err: err}
		}
		report.Evaluated = append(report.Evaluated, n.key)
	}
	return nil
}

func (s *Scheduler) callActive(n *node, h *Handle) (active bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return isActive(n.task, h), nil
}

func (s *Scheduler) callEval(n *node, h *Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return n.task.Eval(h)
}

func (s *Scheduler) callInit(t Task, h *Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return t.Init(h)
}

// apply runs queued structural changes in request order.
func (s *Scheduler) apply() []AppliedCommand {
	cmds := s.queue.drain()
	if len(cmds) == 0 {
		return nil
	}

	applied := make([]AppliedCommand, 0, len(cmds))
	for _, c := range cmds {
		ac := AppliedCommand{Op: c.kind.String(), Task: c.task, Key: c.key}
		switch c.kind {
		case cmdAddTask:
			ac.Err = s.registerChecked(c.after, c.task, c.impl)
		case cmdRemoveTask:
			if s.HasTask(c.task) {
				s.unregister(c.task)
			} else {
				ac.Err = NewTaskNotFoundError(c.task)
			}
		case cmdClear:
			s.clearNow()
		case cmdRemoveResource:
			s.store.Delete(c.task, c.key)
		}
		if ac.Err != nil {
			s.logger.Error("structural change failed", "op", ac.Op, "task", ac.Task, "error", ac.Err)
		}
		applied = append(applied, ac)
	}
	return applied
}

func (s *Scheduler) addTask(after, key string, t Task) error {
	if !validKey(key) {
		return fmt.Errorf("engine: invalid task key %q", key)
	}
	if key == resource.Global {
		return fmt.Errorf("engine: task key %q is reserved", key)
	}
	if t == nil {
		return fmt.Errorf("engine: task %q is nil", key)
	}
	if s.willExist(key) {
		return NewDuplicateKeyError(key)
	}
	if after != "" && !s.willExist(after) {
		return NewTaskNotFoundError(after)
	}

	if s.running {
		s.queue.push(command{kind: cmdAddTask, task: key, after: after, impl: t})
		return nil
	}
	return s.registerChecked(after, key, t)
}

// registerChecked re-validates a registration against the live registry,
// which may have changed since the request was queued.
func (s *Scheduler) registerChecked(after, key string, t Task) error {
	if s.HasTask(key) {
		return NewDuplicateKeyError(key)
	}
	if after != "" && !s.HasTask(after) {
		return NewTaskNotFoundError(after)
	}
	return s.register(after, key, t)
}

// register inserts the task and runs Init. On failure only what this
// registration produced is removed: the task, its namespace, and tasks or
// namespaces that appeared while Init ran. Tasks registered earlier, even
// under key's prefix, are left alone.
func (s *Scheduler) register(after, key string, t Task) error {
	tasks := make(map[string]bool, len(s.order))
	for _, n := range s.order {
		tasks[n.key] = true
	}
	spaces := s.store.Namespaces()

	n := &node{key: key, task: t}
	pos := len(s.order)
	if after != "" {
		pos = slices.IndexFunc(s.order, func(o *node) bool { return o.key == after }) + 1
	}
	s.order = slices.Insert(s.order, pos, n)
	s.index[key] = n

	err := s.callInit(t, newHandle(s, key, s.clock.Current()))
	if err == nil && s.index[key] != n {
		err = errors.New("task was removed while its Init ran")
	}
	if err != nil {
		s.rollback(key, tasks, spaces)
		return NewInitError(key, err)
	}

	s.logger.Info("task registered", "task", key, "position", pos)
	return nil
}

// rollback undoes a failed registration of key. tasks and spaces describe
// the registry and store as they were before Init ran.
func (s *Scheduler) rollback(key string, tasks map[string]bool, spaces []string) {
	var removed []string
	s.order = slices.DeleteFunc(s.order, func(n *node) bool {
		if tasks[n.key] {
			return false
		}
		removed = append(removed, n.key)
		return true
	})
	for _, k := range removed {
		delete(s.index, k)
		s.store.DeleteNamespace(k)
	}
	s.store.DeleteNamespace(key)
	for _, ns := range s.store.Namespaces() {
		if ns != resource.Global && !slices.Contains(spaces, ns) {
			s.store.DeleteNamespace(ns)
		}
	}
	s.logger.Info("task registration rolled back", "task", key, "removed", len(removed))
}

// unregister removes key and its descendants along with their namespaces.
func (s *Scheduler) unregister(key string) {
	kept := s.order[:0]
	var removed []string
	for _, n := range s.order {
		if n.key == key || IsDescendant(n.key, key) {
			removed = append(removed, n.key)
			continue
		}
		kept = append(kept, n)
	}
	clear(s.order[len(kept):])
	s.order = kept

	for _, k := range removed {
		delete(s.index, k)
		s.store.DeleteNamespace(k)
	}
	// Namespaces can outlive their task if a host handle wrote to them.
	s.store.DeleteNamespace(key)
	for _, ns := range s.store.Namespaces() {
		if IsDescendant(ns, key) {
			s.store.DeleteNamespace(ns)
		}
	}
	s.logger.Info("task removed", "task", key, "removed", len(removed))
}

func (s *Scheduler) clearNow() {
	n := len(s.order)
	clear(s.order)
	s.order = s.order[:0]
	s.index = make(map[string]*node)
	for _, ns := range s.store.Namespaces() {
		if ns != resource.Global {
			s.store.DeleteNamespace(ns)
		}
	}
	s.logger.Info("schedule cleared", "tasks", n)
}

// willExist reports whether key is registered once queued changes apply.
func (s *Scheduler) willExist(key string) bool {
	return s.queue.willExist(key, s.HasTask(key))
}
