package timing

import (
	"context"
	"time"
)

// Clock is a monotonic wall-clock time source.
type Clock interface {
	Now() time.Time
}

// Delay suspends the caller until a wall-clock deadline.
type Delay interface {
	// DelayUntil returns once deadline has been reached, immediately if it
	// already has, or early if ctx is cancelled.
	DelayUntil(ctx context.Context, deadline time.Time)
}

// StandardClock reads the operating system clock. The returned times carry a
// monotonic reading, so differences between them are not affected by wall
// clock adjustments.
type StandardClock struct{}

// NewStandardClock creates a StandardClock.
func NewStandardClock() StandardClock {
	return StandardClock{}
}

// Now returns the current time.
func (StandardClock) Now() time.Time {
	return time.Now()
}

// StdDelay sleeps on a timer.
type StdDelay struct {
	clock Clock
}

// NewStdDelay creates a delay that measures the remaining time with clock.
func NewStdDelay(clock Clock) *StdDelay {
	return &StdDelay{clock: clock}
}

// DelayUntil blocks until deadline or until ctx is done.
func (d *StdDelay) DelayUntil(ctx context.Context, deadline time.Time) {
	remaining := deadline.Sub(d.clock.Now())
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
