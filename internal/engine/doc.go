// Package engine implements the frame task graph.
//
// A Scheduler holds an ordered list of tasks and a resource store. Each call
// to Run is one displayed frame: every registered task is visited in
// registration order, asked whether it is active, and evaluated if so.
//
// ARCHITECTURE:
//
// Single-Pass Frames:
// The pass is strictly single-threaded and runs in registration order. A
// task that writes a resource is visible, as mutated, to every task after
// it in the same frame. Tasks before it see the previous value and no
// mutation. There is no fixpoint iteration: register producers before
// consumers.
//
// Deferred Structure:
// Task additions, removals, clears and resource removals requested while a
// pass is running are queued and applied, in request order, after the pass.
// The task list is never modified while it is being iterated.
//
// Handles:
// Tasks never hold pointers into the registry. A Handle (scoped to the
// running task), TaskHandle (addressing another task by dotted key) and
// ResourceHandle (addressing one value) carry keys only and re-resolve on
// every call. Another task's resources are read-only unless the caller
// masks itself as that task with TaskHandle.Mask.
//
// Hierarchy:
// Task keys are dotted paths ("viewport.draw"). Parent, child and sibling
// resolution is purely textual over a flat map; removing a task removes
// every key below it.
//
// Errors:
// Missing keys and wrong types are wiring bugs. Must* accessors panic; Run
// recovers the panic and returns a *TaskError, aborting the frame. Init
// failures prevent registration and leave other tasks untouched. Nothing is
// retried.
package engine
