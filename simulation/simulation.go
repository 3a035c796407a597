// Package simulation assembles a runnable tick loop from a diagram and the
// process settings.
package simulation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sarchlab/tickrun/config"
	"github.com/sarchlab/tickrun/datarecording"
	"github.com/sarchlab/tickrun/engines"
	"github.com/sarchlab/tickrun/monitoring"
	"github.com/sarchlab/tickrun/state"
	"github.com/sarchlab/tickrun/timing"
)

// A Simulation is a fully wired run: timing, states, data logger, engine and
// the optional monitor.
type Simulation struct {
	id      string
	runPath string
	logger  *slog.Logger

	diagram    *config.Diagram
	params     config.Params
	timing     *timing.Timing
	states     *state.Manager
	schema     *datarecording.Schema
	dataLogger *datarecording.Logger
	engine     *engines.Engine
	monitor    *monitoring.Monitor
	monitorURL string

	stopOnce      sync.Once
	stopCh        chan struct{}
	terminateOnce sync.Once
	terminateErr  error
}

// ID returns the unique id of the run.
func (s *Simulation) ID() string {
	return s.id
}

// RunPath returns the directory outputs are written to.
func (s *Simulation) RunPath() string {
	return s.runPath
}

// ClickHouseTable returns the name of the ClickHouse table of the run.
func (s *Simulation) ClickHouseTable() string {
	return "tickrun_" + s.id
}

// SQLiteFileName returns the name of the database file of the run.
func (s *Simulation) SQLiteFileName() string {
	return "tickrun_" + s.id + ".sqlite3"
}

// Diagram returns the diagram being run.
func (s *Simulation) Diagram() *config.Diagram {
	return s.diagram
}

// Timing returns the scheduler.
func (s *Simulation) Timing() *timing.Timing {
	return s.timing
}

// States returns the state manager.
func (s *Simulation) States() *state.Manager {
	return s.states
}

// Schema returns the record schema.
func (s *Simulation) Schema() *datarecording.Schema {
	return s.schema
}

// DataLogger returns the data logger.
func (s *Simulation) DataLogger() *datarecording.Logger {
	return s.dataLogger
}

// Engine returns the engine.
func (s *Simulation) Engine() *engines.Engine {
	return s.engine
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitoring server.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Stop asks the run to end after the current tick. It is safe to call from
// any goroutine and more than once.
func (s *Simulation) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run executes the run until it ends. It returns the error of a failed block
// computation; an interrupt or the end of the run time is not an error.
func (s *Simulation) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case <-s.stopCh:
		cancel()
	default:
	}

	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.logger.Info("run started",
		"id", s.id,
		"diagram", s.diagram.Name,
		"hertz", float64(s.timing.Freq()),
		"run_time", s.timing.RunTime().String(),
		"realtime", s.timing.Realtime(),
		"sinks", s.dataLogger.NumSinks())

	start := time.Now()
	err := s.engine.Run(ctx)

	s.logger.Info("run finished",
		"id", s.id,
		"reason", string(s.engine.StopReason()),
		"ticks", s.engine.Ticks(),
		"app_time_s", s.engine.RuntimeContext().AppTimeS(),
		"wall_time", time.Since(start).Round(time.Millisecond).String(),
		"overruns", s.timing.Overruns(),
		"log_failures", s.engine.LogFailures())

	for _, st := range s.dataLogger.Stats() {
		s.logger.Debug("sink stats",
			"sink", st.Name,
			"written", st.Written,
			"dropped", st.Dropped,
			"failed", st.Failed)
	}

	if err != nil {
		s.logger.Error("run failed", "error", err)
	}

	return err
}

// Terminate flushes and closes the sinks and stops the monitor. Only the
// first call has an effect.
func (s *Simulation) Terminate() error {
	s.terminateOnce.Do(func() {
		var errs []error

		errs = append(errs, s.dataLogger.Close())

		if s.monitor != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			errs = append(errs, s.monitor.Shutdown(ctx))
			cancel()
		}

		s.terminateErr = errors.Join(errs...)
	})

	return s.terminateErr
}
