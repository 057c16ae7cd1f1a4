package engine

import (
	"reflect"

	"github.com/roach88/framegraph/internal/resource"
	"github.com/roach88/framegraph/internal/state"
)

// Handle is a task's view of the scheduler during Init, IsActive and Eval.
//
// A Handle is built per task per frame and holds only keys; every call is
// resolved against the live registry, so a handle kept past its frame never
// dangles. It simply addresses whatever is registered under its keys then.
type Handle struct {
	s      *Scheduler
	key    string // namespace this handle writes to
	caller string // task that owns the handle; differs from key when masked
	frame  int64
}

func newHandle(s *Scheduler, key string, frame int64) *Handle {
	return &Handle{s: s, key: key, caller: key, frame: frame}
}

// Key returns the task key this handle is scoped to.
func (h *Handle) Key() string {
	return h.key
}

// Caller returns the task that is actually running. It differs from Key
// only for masked handles.
func (h *Handle) Caller() string {
	return h.caller
}

// IsMasked reports whether the handle addresses another task's namespace.
func (h *Handle) IsMasked() bool {
	return h.key != h.caller
}

// Frame returns the frame number the handle was built for.
func (h *Handle) Frame() int64 {
	return h.frame
}

// Resource returns a writable handle to a resource in the task's own
// namespace.
func (h *Handle) Resource(key string) ResourceHandle {
	return ResourceHandle{s: h.s, ns: h.key, key: key, writable: true}
}

// Global returns a writable handle to a resource in the Global namespace.
func (h *Handle) Global(key string) ResourceHandle {
	return h.s.Global(key)
}

// Self returns a handle to the task itself.
func (h *Handle) Self() TaskHandle {
	return h.Task(h.key)
}

// Task addresses a task by its full key.
func (h *Handle) Task(key string) TaskHandle {
	return TaskHandle{s: h.s, key: key, caller: h.key}
}

// Relative addresses a task relative to this task's parent, e.g. a sibling.
func (h *Handle) Relative(path string) TaskHandle {
	return h.Task(RelativePath(h.key, path))
}

// Parent addresses the task's parent. For a top-level task the result does
// not exist.
func (h *Handle) Parent() TaskHandle {
	return h.Task(ParentPath(h.key))
}

// Child addresses the child task name below this task.
func (h *Handle) Child(name string) TaskHandle {
	return h.Task(JoinPath(h.key, name))
}

// AddTask requests registration of a top-level (absolute key) task.
func (h *Handle) AddTask(key string, t Task) error {
	return h.s.AddTask(key, t)
}

// AddTaskAfter requests registration of a task right after another.
func (h *Handle) AddTaskAfter(after, key string, t Task) error {
	return h.s.AddTaskAfter(after, key, t)
}

// RemoveTask requests removal of a task.
func (h *Handle) RemoveTask(key string) error {
	return h.s.RemoveTask(key)
}

// Clear requests a full reset of the schedule.
func (h *Handle) Clear() {
	h.s.Clear()
}

// TaskHandle addresses a task by key.
type TaskHandle struct {
	s      *Scheduler
	key    string
	caller string
	host   bool
}

// Key returns the addressed task key.
func (t TaskHandle) Key() string {
	return t.key
}

// Exists reports whether the task is registered right now.
func (t TaskHandle) Exists() bool {
	return t.key != "" && t.s.HasTask(t.key)
}

// Resource returns a handle to one of the task's resources. It is writable
// only when the task is the caller itself (or the handle came from the host);
// other tasks get read access.
func (t TaskHandle) Resource(key string) ResourceHandle {
	return ResourceHandle{s: t.s, ns: t.key, key: key, writable: t.host || t.key == t.caller}
}

// Child addresses a child of this task.
func (t TaskHandle) Child(name string) TaskHandle {
	return TaskHandle{s: t.s, key: JoinPath(t.key, name), caller: t.caller, host: t.host}
}

// Parent addresses the parent of this task.
func (t TaskHandle) Parent() TaskHandle {
	return TaskHandle{s: t.s, key: ParentPath(t.key), caller: t.caller, host: t.host}
}

// Init registers task under this key (see Scheduler.AddTask).
func (t TaskHandle) Init(task Task) error {
	return t.s.AddTask(t.key, task)
}

// InitAfter registers task under this key right after the task named after.
func (t TaskHandle) InitAfter(after string, task Task) error {
	return t.s.AddTaskAfter(after, t.key, task)
}

// Remove requests removal of the task (see Scheduler.RemoveTask).
func (t TaskHandle) Remove() error {
	return t.s.RemoveTask(t.key)
}

// Mask returns a handle that behaves as if the addressed task were running:
// Resource reads and writes the masked task's namespace. A viewport draw
// task uses it to reach the output of the generator it draws without
// duplicating the dependency.
func (t TaskHandle) Mask(h *Handle) *Handle {
	return &Handle{s: t.s, key: t.key, caller: h.caller, frame: h.frame}
}

// ResourceHandle addresses a resource by namespace and key.
//
// The zero value is not usable. Typed access goes through the package-level
// functions Init, Set, SetIfChanged, Read, MustRead, Write and MustWrite.
type ResourceHandle struct {
	s        *Scheduler
	ns       string
	key      string
	writable bool
}

// Namespace returns the owning task key (or resource.Global).
func (r ResourceHandle) Namespace() string {
	return r.ns
}

// Key returns the resource key.
func (r ResourceHandle) Key() string {
	return r.key
}

// Writable reports whether the handle may write.
func (r ResourceHandle) Writable() bool {
	return r.writable
}

// Exists reports whether a value is stored.
func (r ResourceHandle) Exists() bool {
	return r.s.store.Has(r.ns, r.key)
}

// IsInit reports whether the resource has been initialized. Resources exist
// only once initialized, so this is Exists under the name task code uses.
func (r ResourceHandle) IsInit() bool {
	return r.Exists()
}

// IsMutated reports whether the resource was written this frame.
func (r ResourceHandle) IsMutated() bool {
	return r.s.store.IsMutated(r.ns, r.key)
}

// TypeName returns the dynamic type of the stored value.
func (r ResourceHandle) TypeName() (string, error) {
	return r.s.store.TypeName(r.ns, r.key)
}

// Value returns a copy of the stored value without its static type, for
// tooling that does not know T. It never marks mutation.
func (r ResourceHandle) Value() (any, error) {
	p, err := r.s.store.Value(r.ns, r.key)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(p).Elem().Interface(), nil
}

// Touch marks the resource mutated without changing it, for values edited
// through a pointer obtained earlier.
func (r ResourceHandle) Touch() error {
	if err := r.checkWritable(); err != nil {
		return err
	}
	return r.s.store.Touch(r.ns, r.key)
}

// Remove deletes the resource. During a frame the removal is deferred to the
// end of the pass.
func (r ResourceHandle) Remove() error {
	if err := r.checkWritable(); err != nil {
		return err
	}
	if r.s.running {
		r.s.queue.push(command{kind: cmdRemoveResource, task: r.ns, key: r.key})
		return nil
	}
	r.s.store.Delete(r.ns, r.key)
	return nil
}

func (r ResourceHandle) checkWritable() error {
	if r.writable {
		return nil
	}
	return &resource.Error{Code: resource.ErrCodeReadOnly, Namespace: r.ns, Key: r.key}
}

// Init creates or replaces the resource with v and marks it mutated. Panics
// with a READ_ONLY error on a read-only handle.
func Init[T any](r ResourceHandle, v T) *T {
	mustWritable(r)
	return resource.Emplace(r.s.store, r.ns, r.key, v)
}

// Set assigns v to the resource, creating it if needed, and marks it
// mutated. Panics with a READ_ONLY error on a read-only handle.
func Set[T any](r ResourceHandle, v T) {
	mustWritable(r)
	resource.Insert(r.s.store, r.ns, r.key, v)
}

// SetIfChanged assigns v only if the resource is missing, holds another
// type, or holds a different value. Returns whether it wrote. Downstream
// tasks then only see a mutation when something actually changed.
func SetIfChanged[T comparable](r ResourceHandle, v T) bool {
	mustWritable(r)
	if cur, err := resource.Get[T](r.s.store, r.ns, r.key); err == nil && *cur == v {
		return false
	}
	resource.Insert(r.s.store, r.ns, r.key, v)
	return true
}

// SetIfChangedFunc is SetIfChanged for types that need a custom notion of
// equality, e.g. state.ApproxArray3 for colors that jitter in the last bit.
func SetIfChangedFunc[T any](r ResourceHandle, v T, equal state.Comparator[T]) bool {
	mustWritable(r)
	if cur, err := resource.Get[T](r.s.store, r.ns, r.key); err == nil && equal(*cur, v) {
		return false
	}
	resource.Insert(r.s.store, r.ns, r.key, v)
	return true
}

// Read returns a copy of the resource value. It never marks mutation.
func Read[T any](r ResourceHandle) (T, error) {
	p, err := resource.Get[T](r.s.store, r.ns, r.key)
	if err != nil {
		var zero T
		return zero, err
	}
	return *p, nil
}

// MustRead is Read that panics on NOT_FOUND or TYPE_MISMATCH. Inside Eval
// the panic aborts the frame with a TaskError.
func MustRead[T any](r ResourceHandle) T {
	v, err := Read[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// Write returns a pointer to the stored value and marks it mutated.
func Write[T any](r ResourceHandle) (*T, error) {
	if err := r.checkWritable(); err != nil {
		return nil, err
	}
	return resource.Write[T](r.s.store, r.ns, r.key)
}

// MustWrite is Write that panics on error.
func MustWrite[T any](r ResourceHandle) *T {
	p, err := Write[T](r)
	if err != nil {
		panic(err)
	}
	return p
}

func mustWritable(r ResourceHandle) {
	if err := r.checkWritable(); err != nil {
		panic(err)
	}
}
