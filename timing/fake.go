package timing

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a deterministic clock. Time only moves when Advance is called
// or when a FakeDelay waits on it.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a FakeClock starting at the given time.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (c *FakeClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}

	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// AdvanceTo moves the clock to t if t is later than the current time.
func (c *FakeClock) AdvanceTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.After(c.now) {
		c.now = t
	}
}

// FakeDelay completes every delay instantly by advancing its FakeClock to the
// deadline. It remembers the deadlines it was asked to wait for.
type FakeDelay struct {
	clock *FakeClock

	mu        sync.Mutex
	deadlines []time.Time
	skipped   int
}

// NewFakeDelay creates a FakeDelay driving clock.
func NewFakeDelay(clock *FakeClock) *FakeDelay {
	return &FakeDelay{clock: clock}
}

// DelayUntil advances the clock to deadline. Deadlines in the past leave the
// clock untouched.
func (d *FakeDelay) DelayUntil(_ context.Context, deadline time.Time) {
	d.mu.Lock()
	d.deadlines = append(d.deadlines, deadline)
	if !deadline.After(d.clock.Now()) {
		d.skipped++
	}
	d.mu.Unlock()

	d.clock.AdvanceTo(deadline)
}

// Deadlines returns a copy of every deadline seen so far.
func (d *FakeDelay) Deadlines() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	dup := make([]time.Time, len(d.deadlines))
	copy(dup, d.deadlines)

	return dup
}

// Skipped returns how many deadlines had already passed when requested.
func (d *FakeDelay) Skipped() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.skipped
}
