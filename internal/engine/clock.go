package engine

import "sync/atomic"

// Clock is the monotonic logical clock for the simulation.
//
// All history records are stamped with the tick from this clock, never with
// wall time. This ensures:
// - Deterministic ordering (no wall-clock race conditions)
// - Replay produces identical order
// - Causal relationships are explicit
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// though the engine's single-writer design means only one goroutine
// advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific tick.
// Used when resuming a run from a restored state.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Advance moves the clock forward by elapsed ticks and returns the new value.
func (c *Clock) Advance(elapsed int64) int64 {
	return c.tick.Add(elapsed)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
