package engine

import "sync/atomic"

// Sequencer hands out strictly increasing sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock for stage trace ordering.
//
// Every stage event of a run is stamped with a seq from this clock, so the
// trace order is explicit and never depends on wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations). An
// Engine shared by concurrent HTTP requests interleaves seq values across
// runs, but each run's own events stay strictly increasing.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
