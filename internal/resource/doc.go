// Package resource provides the namespaced, type-erased value store that
// every frame task reads from and writes to.
//
// Values live under a (namespace, key) pair. A namespace is a task key; the
// reserved namespace Global holds cross-cutting values such as the active
// scene or shared caches.
//
// # Mutation Tracking
//
// The store keeps a logical write tick. Every write stamps the entry with the
// current tick, and IsMutated reports whether the stamp falls inside the
// current mutation window:
//
//	BeginFrame()  window starts at the current tick
//	... writes    stamp = tick
//	EndFrame()    tick advances; later writes belong to the next window
//
// Writes that happen between two frames (deferred task initialization, host
// setup) therefore count as mutations of the following frame. Reads never
// touch mutation state.
//
// # Types
//
// Entries hold a *T. Typed access goes through the generic functions Emplace,
// Insert and Get, which fail with a TYPE_MISMATCH error instead of panicking
// when the stored type differs.
//
// The store is not safe for concurrent use.
package resource
