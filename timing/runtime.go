package timing

import (
	"fmt"
	"math"
	"time"

	"github.com/sarchlab/tickrun/sim"
)

// RunTime is the total virtual duration of a run, or unbounded.
type RunTime struct {
	duration time.Duration
	bounded  bool
}

// Unbounded returns a RunTime that never expires.
func Unbounded() RunTime {
	return RunTime{}
}

// RunFor returns a RunTime bounded at d. A non-positive d is unbounded.
func RunFor(d time.Duration) RunTime {
	if d <= 0 {
		return Unbounded()
	}

	return RunTime{duration: d, bounded: true}
}

// RunTimeFromSeconds converts a configured number of seconds. Zero, negative
// and +Inf mean unbounded; NaN is rejected.
func RunTimeFromSeconds(s float64) (RunTime, error) {
	switch {
	case math.IsNaN(s):
		return RunTime{}, fmt.Errorf("%w: run time is NaN", sim.ErrConfiguration)
	case math.IsInf(s, 1), s <= 0:
		return Unbounded(), nil
	case s > math.MaxInt64/float64(time.Second):
		return Unbounded(), nil
	}

	return RunFor(time.Duration(math.Round(s * float64(time.Second)))), nil
}

// Bounded tells if the run time has an end.
func (r RunTime) Bounded() bool {
	return r.bounded
}

// Duration returns the bound, or zero when unbounded.
func (r RunTime) Duration() time.Duration {
	return r.duration
}

// Microseconds returns the bound in microseconds.
func (r RunTime) Microseconds() uint64 {
	return uint64(r.duration / time.Microsecond)
}

func (r RunTime) String() string {
	if !r.bounded {
		return "unbounded"
	}

	return r.duration.String()
}
