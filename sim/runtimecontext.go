// Package sim holds the types shared by every part of a tick run: the runtime
// context that tells blocks what time it is, the hook mechanism, and the error
// categories.
package sim

import "time"

// RuntimeContext is the single source of truth for the virtual application
// time. It is owned by the engine and only advanced through UpdateAppTime.
// Everything else receives a copy.
type RuntimeContext struct {
	appTimeUs         uint64
	previousAppTimeUs uint64
}

// NewRuntimeContext creates a context whose current and previous time are both
// startUs.
func NewRuntimeContext(startUs uint64) RuntimeContext {
	return RuntimeContext{
		appTimeUs:         startUs,
		previousAppTimeUs: startUs,
	}
}

// AppTimeUs returns the current virtual time in microseconds.
func (c RuntimeContext) AppTimeUs() uint64 {
	return c.appTimeUs
}

// AppTimeS returns the current virtual time in seconds.
func (c RuntimeContext) AppTimeS() float64 {
	return float64(c.appTimeUs) / 1e6
}

// Time returns the current virtual time as a duration since the run started.
func (c RuntimeContext) Time() time.Duration {
	return time.Duration(c.appTimeUs) * time.Microsecond
}

// PreviousAppTimeUs returns the time of the tick before the current one.
func (c RuntimeContext) PreviousAppTimeUs() uint64 {
	return c.previousAppTimeUs
}

// Elapsed returns how much virtual time passed between the previous and the
// current tick.
func (c RuntimeContext) Elapsed() time.Duration {
	return time.Duration(c.appTimeUs-c.previousAppTimeUs) * time.Microsecond
}

// UpdateAppTime moves the context to a new tick. Time never goes backward; a
// value earlier than the current time is clamped to the current time.
func (c *RuntimeContext) UpdateAppTime(appTimeUs uint64) {
	if appTimeUs < c.appTimeUs {
		appTimeUs = c.appTimeUs
	}

	c.previousAppTimeUs = c.appTimeUs
	c.appTimeUs = appTimeUs
}

// Snapshot is the read-only view of time handed to a block. TimestepUs is the
// elapsed time as observed by the state that runs the block, which is zero on
// the first tick the state executes.
type Snapshot struct {
	AppTimeUs  uint64
	TimestepUs uint64
}

// AppTimeS returns the snapshot time in seconds.
func (s Snapshot) AppTimeS() float64 {
	return float64(s.AppTimeUs) / 1e6
}

// TimestepS returns the timestep in seconds.
func (s Snapshot) TimestepS() float64 {
	return float64(s.TimestepUs) / 1e6
}
