package engine

import "sync/atomic"

// Clock numbers frames.
//
// Every Run takes the next frame number from the clock, so frame numbers are
// strictly increasing and never reused, including frames that failed.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations), so a
// journal or status display may read Current while the host loop runs.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first frame is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next frame is start+1.
// Used to continue numbering after a journaled session.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next frame number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the most recently issued frame number (0 before the first frame).
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
