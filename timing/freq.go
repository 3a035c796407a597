package timing

import (
	"fmt"
	"math"
	"time"

	"github.com/sarchlab/tickrun/sim"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
)

// Validate returns an error unless the frequency is a positive finite number
// whose period is at least one nanosecond and fits in a time.Duration.
func (f Freq) Validate() error {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) || f <= 0 {
		return fmt.Errorf("%w: frequency must be positive and finite, got %v",
			sim.ErrConfiguration, float64(f))
	}

	period := math.Round(float64(time.Second) / float64(f))
	if period < 1 || period >= math.MaxInt64 {
		return fmt.Errorf("%w: frequency %v Hz has no representable period",
			sim.ErrConfiguration, float64(f))
	}

	return nil
}

// Period returns the time between two consecutive ticks
func (f Freq) Period() time.Duration {
	if err := f.Validate(); err != nil {
		panic(err)
	}

	return time.Duration(math.Round(float64(time.Second) / float64(f)))
}

// TickTimeUs returns the virtual time of the n-th tick boundary in
// microseconds. The time is derived from n directly so rounding errors do not
// accumulate from tick to tick.
func (f Freq) TickTimeUs(n uint64) uint64 {
	return uint64(math.Round(float64(n) * 1e6 / float64(f)))
}

// TicksIn returns the number of ticks that start within d, counting the tick
// at time zero.
func (f Freq) TicksIn(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}

	return uint64(math.Ceil(d.Seconds()*float64(f) - 1e-9))
}
