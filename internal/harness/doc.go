// Package harness runs scripted frame-graph scenarios and checks them.
//
// A scenario is a YAML file describing seeded globals, an ordered list of
// tasks whose Init and Eval steps are short op scripts, the number of
// frames to run, and assertions on the state after given frames. The
// harness drives a real engine.Scheduler, so scenarios exercise the
// actual ordering, mutation tracking and deferred structural changes.
//
// # Scenario Format
//
//	name: global_propagation
//	description: "B derives y from x the frame x changes"
//	frames: 2
//	globals:
//	  - key: mode
//	    value: spectral
//	tasks:
//	  - key: A
//	    eval:
//	      - { op: set, ref: global/x, value: 1, frame: 1 }
//	  - key: B
//	    active_when: { mutated: global/x }
//	    eval:
//	      - { op: add, ref: global/y, from: global/x, value: 1 }
//	templates:
//	  blur:
//	    init:
//	      - { op: set, ref: self/radius, value: 2 }
//	assertions:
//	  - { type: value, frame: 1, ref: global/y, equals: 2 }
//	  - { type: mutated, frame: 2, ref: global/x, want: false }
//
// # Refs
//
// A ref is "namespace/key". Inside op scripts the namespace "self" is the
// running task and "global" the Global namespace; any other namespace is a
// task key and is read-only from a script. Assertions always use full
// namespaces.
//
// # Ops
//
//   - set: write value to ref
//   - add: ref = (from, or ref itself) + value, integers only (value defaults to 1)
//   - copy: ref = value of from
//   - touch: mark ref mutated
//   - remove: remove resource ref (deferred during a frame)
//   - remove_task: remove task
//   - spawn, spawn_after: add task running template (after task after)
//   - clear: reset the schedule, keeping globals
//   - fail: return an error with message
//
// Any op with frame set only runs in that frame.
//
// # Assertion Types
//
//   - value: ref holds equals
//   - mutated, exists: flag of ref equals want
//   - task_exists: task registration equals want
//   - eval_count: task evaluated count times up to and including frame
//   - order: the tasks evaluated in frame, in order
//   - skipped: the tasks skipped in frame, in order
//   - error: frame failed and the error contains message
//
// An assertion without frame is checked after the last frame. Frame errors
// not covered by an error assertion fail the scenario.
//
// Traces of scenario runs are compared with golden files through
// RunWithGolden.
package harness
