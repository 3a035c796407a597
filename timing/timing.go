// Package timing decides when the next tick runs and what virtual time it is
// assigned.
package timing

import (
	"context"
	"time"
)

// Timing owns the scheduling policy of a run: tick rate, total run time and
// whether ticks are paced to wall-clock time.
type Timing struct {
	runTime  RunTime
	freq     Freq
	period   time.Duration
	realtime bool
	clock    Clock
	delay    Delay

	start    time.Time
	ticks    uint64
	overruns uint64
}

// NewTiming creates a Timing. The frequency must be positive; otherwise the
// returned error wraps sim.ErrConfiguration.
func NewTiming(
	runTime RunTime,
	freq Freq,
	realtime bool,
	clock Clock,
	delay Delay,
) (*Timing, error) {
	if err := freq.Validate(); err != nil {
		return nil, err
	}

	t := &Timing{
		runTime:  runTime,
		freq:     freq,
		period:   freq.Period(),
		realtime: realtime,
		clock:    clock,
		delay:    delay,
	}
	t.Start()

	return t, nil
}

// Start records the current wall-clock instant as the start of the run and
// resets the tick count.
func (t *Timing) Start() {
	t.start = t.clock.Now()
	t.ticks = 0
	t.overruns = 0
}

// ShouldRun tells if a tick at appTimeUs is still within the run time.
func (t *Timing) ShouldRun(appTimeUs uint64) bool {
	if !t.runTime.Bounded() {
		return true
	}

	return appTimeUs < t.runTime.Microseconds()
}

// Update returns the virtual time of the next tick.
//
// In realtime mode it waits until the next wall-clock boundary,
// start + period*(n+1), and returns the microseconds actually elapsed since
// start. A boundary that has already passed is not waited for, so an overrun
// run falls behind and ticks back to back. Otherwise it returns exactly one
// period more than the last tick, whatever the wall clock says.
func (t *Timing) Update(ctx context.Context, appTimeUs uint64) uint64 {
	t.ticks++

	if !t.realtime {
		next := t.freq.TickTimeUs(t.ticks)
		if next < appTimeUs {
			return appTimeUs
		}

		return next
	}

	target := t.start.Add(time.Duration(t.ticks) * t.period)
	if t.clock.Now().After(target) {
		t.overruns++
	}

	t.delay.DelayUntil(ctx, target)

	elapsed := t.clock.Now().Sub(t.start)
	if elapsed < 0 {
		elapsed = 0
	}

	next := uint64(elapsed / time.Microsecond)
	if next < appTimeUs {
		return appTimeUs
	}

	return next
}

// Period returns the target time between ticks.
func (t *Timing) Period() time.Duration {
	return t.period
}

// Freq returns the tick rate.
func (t *Timing) Freq() Freq {
	return t.freq
}

// Realtime tells if ticks are paced to the wall clock.
func (t *Timing) Realtime() bool {
	return t.realtime
}

// RunTime returns the configured run duration.
func (t *Timing) RunTime() RunTime {
	return t.runTime
}

// Ticks returns how many times Update was called since Start.
func (t *Timing) Ticks() uint64 {
	return t.ticks
}

// Overruns returns how many realtime boundaries had already passed when the
// tick finished.
func (t *Timing) Overruns() uint64 {
	return t.overruns
}

// ExpectedTicks returns the number of ticks a bounded run executes, or zero
// for an unbounded run.
func (t *Timing) ExpectedTicks() uint64 {
	if !t.runTime.Bounded() {
		return 0
	}

	return t.freq.TicksIn(t.runTime.Duration())
}
