package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant handed out by a StepClock created with a
// zero start time.
var DefaultEpoch = time.Date(2026, time.June, 6, 9, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock for tests.
//
// Every call to Now advances the clock by a fixed step, so each store write
// gets a distinct timestamp and golden traces stay byte-identical between
// runs. Unlike clock.Monotonic, StepClock can be reset for test reuse.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock whose first Now returns start.
//
// A zero start uses DefaultEpoch; a non-positive step uses one second.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	if step <= 0 {
		step = time.Second
	}
	return &StepClock{start: start.UTC(), step: step}
}

// Now returns start + step*n for the n-th call (zero-based).
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Peek returns the value the next Now call will return without advancing.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.Add(time.Duration(c.calls) * c.step)
}

// Reset rewinds the clock so the next Now returns start again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
