package datarecording

import (
	"errors"
	"fmt"
	"time"

	"github.com/sarchlab/tickrun/sim"
)

// A Sink persists records. Cadence is decided by the Logger, not the sink.
type Sink interface {
	// Write hands a record to the sink. The sink must not keep the pointer
	// beyond the call.
	Write(rec *Record) error

	// Flush pushes buffered records to the underlying storage.
	Flush() error

	// Close flushes and releases the sink.
	Close() error
}

// SinkStats counts what happened to the records offered to a sink.
type SinkStats struct {
	Name    string
	Period  time.Duration
	Written uint64
	Dropped uint64
	Failed  uint64
}

type output struct {
	sink    Sink
	stats   SinkStats
	last    time.Duration
	written bool
}

func (o *output) due(now time.Duration) bool {
	if o.stats.Period <= 0 || !o.written {
		return true
	}

	return now-o.last >= o.stats.Period
}

// Logger decouples the tick rate from the rate at which records are
// persisted. Every sink has its own period. A period of zero takes every
// record; otherwise a record is taken only when at least one period has passed
// since the last one, and the records in between are dropped.
type Logger struct {
	outputs []*output
}

// NewLogger creates a Logger without sinks.
func NewLogger() *Logger {
	return &Logger{}
}

// PeriodFromRate converts a rate in Hz to a log period. A non-positive rate
// means every record.
func PeriodFromRate(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}

	return time.Duration(float64(time.Second) / hz)
}

// AddSink registers a sink with its period.
func (l *Logger) AddSink(name string, sink Sink, period time.Duration) {
	if period < 0 {
		period = 0
	}

	l.outputs = append(l.outputs, &output{
		sink:  sink,
		stats: SinkStats{Name: name, Period: period},
	})
}

// NumSinks returns the number of registered sinks.
func (l *Logger) NumSinks() int {
	return len(l.outputs)
}

// Log offers a record taken at virtual time now to every sink. A failing sink
// does not prevent the others from receiving the record. The failures are
// joined and wrap sim.ErrLogging.
//
// A failed write still counts as the sink's record for the period, so a broken
// sink is retried once per period rather than on every tick.
func (l *Logger) Log(rec *Record, now time.Duration) error {
	var errs []error

	for _, o := range l.outputs {
		if !o.due(now) {
			o.stats.Dropped++
			continue
		}

		o.last = now
		o.written = true

		if err := o.sink.Write(rec); err != nil {
			o.stats.Failed++
			errs = append(errs, fmt.Errorf("%w: sink %s: %w",
				sim.ErrLogging, o.stats.Name, err))

			continue
		}

		o.stats.Written++
	}

	return errors.Join(errs...)
}

// Flush flushes every sink.
func (l *Logger) Flush() error {
	var errs []error

	for _, o := range l.outputs {
		if err := o.sink.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("%w: sink %s: %w",
				sim.ErrLogging, o.stats.Name, err))
		}
	}

	return errors.Join(errs...)
}

// Close closes every sink. The Logger must not be used afterwards.
func (l *Logger) Close() error {
	var errs []error

	for _, o := range l.outputs {
		if err := o.sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: sink %s: %w",
				sim.ErrLogging, o.stats.Name, err))
		}
	}

	return errors.Join(errs...)
}

// Stats returns the counters of every sink in registration order.
func (l *Logger) Stats() []SinkStats {
	stats := make([]SinkStats, 0, len(l.outputs))
	for _, o := range l.outputs {
		stats = append(stats, o.stats)
	}

	return stats
}
