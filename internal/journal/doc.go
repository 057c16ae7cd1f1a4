// Package journal persists frame reports to SQLite.
//
// A journal holds sessions. A session is one run of a scheduler; its
// Recorder is installed as the scheduler's FrameObserver and appends one
// frames row per Run, plus the resources mutated and the structural
// changes applied in that frame. Each frame carries the trace digest of
// its report, so two sessions can be compared frame by frame without
// re-running them.
//
// The database runs in WAL mode with a single connection; the scheduler
// is the only writer.
package journal
