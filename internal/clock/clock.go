// Package clock supplies the write timestamps stamped on stored wishes.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time as seen by a store.
type Clock interface {
	Now() time.Time
}

// Monotonic is a wall clock that never repeats or goes backwards.
//
// Wishes are listed most recent first, so two writes in the same process
// must never share a timestamp: when the wall clock has not advanced past the
// last value handed out, Monotonic returns the last value plus one
// microsecond. Timestamps are truncated to microseconds, the precision every
// store persists.
//
// Thread-safety: Monotonic is safe for concurrent use.
type Monotonic struct {
	mu   sync.Mutex
	last time.Time
	wall func() time.Time
}

// NewMonotonic creates a monotonic clock over time.Now.
func NewMonotonic() *Monotonic {
	return &Monotonic{wall: time.Now}
}

// NewMonotonicFrom creates a monotonic clock over an arbitrary wall source.
// Used by tests to drive the clock backwards or hold it still.
func NewMonotonicFrom(wall func() time.Time) *Monotonic {
	return &Monotonic{wall: wall}
}

// Now returns a UTC timestamp strictly after every earlier result.
func (c *Monotonic) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.wall().UTC().Truncate(time.Microsecond)
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}
