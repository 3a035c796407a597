// Package engines drives the fixed-rate tick loop.
package engines

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sarchlab/tickrun/datarecording"
	"github.com/sarchlab/tickrun/sim"
)

// A Scheduler decides whether another tick runs and what virtual time it
// gets.
type Scheduler interface {
	Start()
	ShouldRun(appTimeUs uint64) bool
	Update(ctx context.Context, appTimeUs uint64) uint64
	Overruns() uint64
}

// A StateRunner executes the active state for one tick.
type StateRunner interface {
	Run(rc sim.RuntimeContext, rec *datarecording.Record) error
	CurrentID() string
}

// A Recorder persists the record of a tick.
type Recorder interface {
	Log(rec *datarecording.Record, now time.Duration) error
}

// StopReason tells why a run ended.
type StopReason string

// Reasons a run ends.
const (
	StopNotStarted     StopReason = ""
	StopRunTimeElapsed StopReason = "run time elapsed"
	StopInterrupted    StopReason = "interrupted"
	StopFailed         StopReason = "block computation failed"
)

// An Engine runs ticks one after another on the calling goroutine until the
// run time elapses, the context is cancelled or a state fails.
type Engine struct {
	*sim.HookableBase

	scheduler Scheduler
	states    StateRunner
	recorder  Recorder
	schema    *datarecording.Schema
	logger    *slog.Logger

	rc          sim.RuntimeContext
	ticks       uint64
	logFailures uint64
	reason      StopReason
}

// NewEngine creates an Engine. The schema must carry the standard tick fields.
func NewEngine(
	scheduler Scheduler,
	states StateRunner,
	recorder Recorder,
	schema *datarecording.Schema,
) (*Engine, error) {
	for _, f := range []string{
		datarecording.FieldStateID,
		datarecording.FieldTimestamp,
		datarecording.FieldAppTimeUs,
	} {
		if !schema.Has(f) {
			return nil, fmt.Errorf("%w: record schema lacks %q",
				sim.ErrConfiguration, f)
		}
	}

	e := &Engine{
		HookableBase: sim.NewHookableBase(),
		scheduler:    scheduler,
		states:       states,
		recorder:     recorder,
		schema:       schema,
		logger:       slog.Default(),
		rc:           sim.NewRuntimeContext(0),
	}

	return e, nil
}

// WithLogger sets the logger the engine reports logging failures to.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// Run executes ticks until the run ends. Cancelling ctx never interrupts a
// tick; the current tick is completed and logged, and no further tick starts.
// A block computation error stops the run and is returned. The record of the
// failed tick is not logged.
func (e *Engine) Run(ctx context.Context) error {
	e.scheduler.Start()

	rec := e.schema.NewRecord()

	for {
		if ctx.Err() != nil {
			e.stop(StopInterrupted)
			return nil
		}

		if !e.scheduler.ShouldRun(e.rc.AppTimeUs()) {
			e.stop(StopRunTimeElapsed)
			return nil
		}

		if err := e.tick(ctx, rec); err != nil {
			e.stop(StopFailed)
			return err
		}
	}
}

// The record is stamped with the state that ran, even if it transitioned away
// at the end of the tick.
func (e *Engine) tick(ctx context.Context, rec *datarecording.Record) error {
	info := &sim.TickInfo{
		Tick:      e.ticks,
		AppTimeUs: e.rc.AppTimeUs(),
		StateID:   e.states.CurrentID(),
		Overruns:  e.scheduler.Overruns(),
	}

	e.InvokeHook(sim.HookCtx{Domain: e, Pos: sim.HookPosBeforeTick, Item: info})

	rec.Reset()

	if err := e.states.Run(e.rc, rec); err != nil {
		return fmt.Errorf("tick %d at %d us: %w", e.ticks, e.rc.AppTimeUs(), err)
	}

	if err := e.stamp(rec, info.StateID); err != nil {
		return err
	}

	if err := e.recorder.Log(rec, e.rc.Time()); err != nil {
		e.logFailures++
		e.logger.Warn("data logging failed",
			"tick", e.ticks,
			"app_time_s", e.rc.AppTimeS(),
			"error", err)
		e.InvokeHook(sim.HookCtx{
			Domain: e,
			Pos:    sim.HookPosLogFailure,
			Item:   info,
			Detail: err,
		})
	}

	e.ticks++
	e.InvokeHook(sim.HookCtx{Domain: e, Pos: sim.HookPosAfterTick, Item: info})

	e.rc.UpdateAppTime(e.scheduler.Update(ctx, e.rc.AppTimeUs()))

	return nil
}

func (e *Engine) stamp(rec *datarecording.Record, stateID string) error {
	if err := rec.Set(datarecording.FieldStateID, stateID); err != nil {
		return err
	}

	if err := rec.Set(datarecording.FieldTimestamp, e.rc.AppTimeS()); err != nil {
		return err
	}

	return rec.Set(datarecording.FieldAppTimeUs, e.rc.AppTimeUs())
}

func (e *Engine) stop(reason StopReason) {
	e.reason = reason

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    sim.HookPosRunEnd,
		Item: &sim.TickInfo{
			Tick:      e.ticks,
			AppTimeUs: e.rc.AppTimeUs(),
			StateID:   e.states.CurrentID(),
			Overruns:  e.scheduler.Overruns(),
		},
		Detail: string(reason),
	})
}

// RuntimeContext returns the current time of the run.
func (e *Engine) RuntimeContext() sim.RuntimeContext {
	return e.rc
}

// Ticks returns the number of ticks executed.
func (e *Engine) Ticks() uint64 {
	return e.ticks
}

// LogFailures returns how many ticks the recorder reported an error for.
func (e *Engine) LogFailures() uint64 {
	return e.logFailures
}

// StopReason returns why the last run ended.
func (e *Engine) StopReason() StopReason {
	return e.reason
}
