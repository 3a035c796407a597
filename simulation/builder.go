package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/tickrun/block"
	"github.com/sarchlab/tickrun/config"
	"github.com/sarchlab/tickrun/datarecording"
	"github.com/sarchlab/tickrun/engines"
	"github.com/sarchlab/tickrun/monitoring"
	"github.com/sarchlab/tickrun/sim"
	"github.com/sarchlab/tickrun/state"
	"github.com/sarchlab/tickrun/timing"
)

// File names written into the run path.
const (
	CSVFileName   = "diagram_output.csv"
	SQLiteTable   = "records"
	publishPeriod = time.Millisecond
)

type extraSink struct {
	name   string
	sink   datarecording.Sink
	period time.Duration
}

// Builder can be used to build a simulation.
type Builder struct {
	diagram     *config.Diagram
	params      config.Params
	vars        config.Vars
	realtime    *bool
	clock       timing.Clock
	delay       timing.Delay
	monitorOn   bool
	monitorPort int
	logger      *slog.Logger
	sinks       []extraSink
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{
		vars:   config.DefaultVars(),
		logger: slog.Default(),
	}
}

// WithDiagram sets the diagram to run. The default diagram is used otherwise.
func (b Builder) WithDiagram(d *config.Diagram) Builder {
	b.diagram = d
	return b
}

// WithParams overrides diagram parameters.
func (b Builder) WithParams(p config.Params) Builder {
	b.params = p
	return b
}

// WithVars sets the process-level settings.
func (b Builder) WithVars(v config.Vars) Builder {
	b.vars = v
	return b
}

// WithRealtime overrides the realtime setting of the diagram.
func (b Builder) WithRealtime(realtime bool) Builder {
	b.realtime = &realtime
	return b
}

// WithClock sets the clock and delay used for realtime pacing.
func (b Builder) WithClock(clock timing.Clock, delay timing.Delay) Builder {
	b.clock = clock
	b.delay = delay

	return b
}

// WithMonitoring enables the monitoring server. A port of zero picks a
// random port.
func (b Builder) WithMonitoring(port int) Builder {
	b.monitorOn = true
	b.monitorPort = port

	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithSink adds a sink besides the ones configured by the vars.
func (b Builder) WithSink(
	name string,
	sink datarecording.Sink,
	period time.Duration,
) Builder {
	b.sinks = append(b.sinks[:len(b.sinks):len(b.sinks)],
		extraSink{name: name, sink: sink, period: period})

	return b
}

// Build validates the configuration and builds the simulation. Every
// configuration problem is reported here, before anything runs.
func (b Builder) Build() (*Simulation, error) {
	s := &Simulation{
		id:      xid.New().String(),
		runPath: b.vars.RunPath,
		logger:  b.logger,
		stopCh:  make(chan struct{}),
	}

	if err := b.buildDiagram(s); err != nil {
		return nil, err
	}

	if err := b.buildTiming(s); err != nil {
		return nil, err
	}

	descs, err := b.buildStates(s)
	if err != nil {
		return nil, err
	}

	if err := b.buildDataLogger(s); err != nil {
		return nil, err
	}

	s.engine, err = engines.NewEngine(s.timing, s.states, s.dataLogger, s.schema)
	if err != nil {
		s.dataLogger.Close()
		return nil, err
	}

	s.engine.WithLogger(b.logger)
	s.engine.AcceptHook(sim.NewTickLogger(b.logger))

	if b.monitorOn {
		if err := b.buildMonitor(s, descs); err != nil {
			s.dataLogger.Close()
			return nil, err
		}
	}

	return s, nil
}

func (b Builder) buildDiagram(s *Simulation) error {
	s.diagram = b.diagram
	if s.diagram == nil {
		s.diagram = config.DefaultDiagram()
	}

	if err := s.diagram.Validate(); err != nil {
		return err
	}

	s.params = s.diagram.ParamSource()
	s.params.Merge(b.params)

	if b.vars.ParamsPath != "" {
		p, err := config.LoadParams(b.vars.ParamsPath)
		if err != nil {
			return fmt.Errorf("%w: %w", sim.ErrConfiguration, err)
		}

		s.params.Merge(p)
	}

	return nil
}

func (b Builder) buildTiming(s *Simulation) error {
	app, err := config.LoadAppSettings(s.params)
	if err != nil {
		return err
	}

	if b.realtime != nil {
		app.Realtime = *b.realtime
	}

	clock, delay := b.clock, b.delay
	if clock == nil {
		clock = timing.NewStandardClock()
	}

	if delay == nil {
		delay = timing.NewStdDelay(clock)
	}

	s.timing, err = timing.NewTiming(app.RunTime, app.Hertz, app.Realtime,
		clock, delay)

	return err
}

func (b Builder) buildStates(s *Simulation) ([]monitoring.StateInfo, error) {
	states := make([]*state.State, 0, len(s.diagram.States))
	descs := make([]monitoring.StateInfo, 0, len(s.diagram.States))

	for _, sc := range s.diagram.States {
		desc := monitoring.StateInfo{ID: sc.ID}
		bindings := make([]state.Binding, 0, len(sc.Blocks))

		for _, bc := range sc.Blocks {
			src := &resolvingSource{src: s.params}

			blk, err := block.New(bc.Kind, bc.Name, src)
			if err != nil {
				return nil, err
			}

			bindings = append(bindings, state.Binding{Name: bc.Name, Block: blk})
			desc.Blocks = append(desc.Blocks, monitoring.BlockInfo{
				Name:   bc.Name,
				Kind:   bc.Kind,
				Params: src.resolved,
			})
		}

		states = append(states, state.New(sc.ID, bindings...).WithLogger(b.logger))
		descs = append(descs, desc)
	}

	transitions := make([]state.Transition, 0, len(s.diagram.Transitions))
	for _, t := range s.diagram.Transitions {
		transitions = append(transitions,
			state.Transition{From: t.From, To: t.To, Guard: t.Guard})
	}

	m, err := state.NewManager(s.diagram.InitialState, states, transitions)
	if err != nil {
		return nil, err
	}

	s.states = m.WithLogger(b.logger)

	s.schema, err = datarecording.NewTickSchema(m.OutputFields()...)
	if err != nil {
		return nil, err
	}

	return descs, nil
}

func (b Builder) buildDataLogger(s *Simulation) (err error) {
	l := datarecording.NewLogger()
	period := datarecording.PeriodFromRate(b.vars.DataLogRateHz)

	defer func() {
		if err != nil {
			err = errors.Join(err, l.Close())
		}
	}()

	csvSink, err := datarecording.NewCSVSink(
		filepath.Join(b.vars.RunPath, CSVFileName), s.schema)
	if err != nil {
		return fmt.Errorf("%w: %w", sim.ErrConfiguration, err)
	}

	l.AddSink("csv", csvSink, period)

	if b.vars.SQLite {
		sqliteSink, err := datarecording.NewSQLiteSink(
			filepath.Join(b.vars.RunPath, s.SQLiteFileName()), SQLiteTable, s.schema)
		if err != nil {
			return fmt.Errorf("%w: %w", sim.ErrConfiguration, err)
		}

		l.AddSink("sqlite", sqliteSink, period)
	}

	if ch := b.vars.ClickHouse; ch.Addr != "" {
		chSink, err := datarecording.NewClickHouseSink(
			datarecording.ClickHouseOptions{
				Addr:     ch.Addr,
				Database: ch.Database,
				Username: ch.User,
				Password: ch.Password,
			},
			s.ClickHouseTable(), s.schema)
		if err != nil {
			return fmt.Errorf("%w: %w", sim.ErrConfiguration, err)
		}

		l.AddSink("clickhouse", chSink, period)
	}

	if b.vars.PublishSocket != "" {
		udpSink, err := datarecording.NewUDPSink(b.vars.PublishSocket)
		if err != nil {
			return fmt.Errorf("%w: %w", sim.ErrConfiguration, err)
		}

		l.AddSink("publish", udpSink, publishPeriod)
	}

	for _, e := range b.sinks {
		l.AddSink(e.name, e.sink, e.period)
	}

	s.dataLogger = l

	return nil
}

func (b Builder) buildMonitor(s *Simulation, descs []monitoring.StateInfo) error {
	m := monitoring.NewMonitor().
		WithPortNumber(b.monitorPort).
		WithLogger(b.logger)

	metrics := monitoring.NewMetrics()
	if err := m.RegisterCollector(metrics); err != nil {
		return err
	}

	transitions := make([]string, 0, len(s.diagram.Transitions))
	for _, t := range s.diagram.Transitions {
		transitions = append(transitions, t.From+" -> "+t.To)
	}

	m.RegisterStates(descs, transitions)
	m.RegisterStopFunc(s.Stop)
	m.TrackTicks(s.timing.ExpectedTicks())

	s.engine.AcceptHook(metrics)
	s.engine.AcceptHook(m)

	url, err := m.StartServer()
	if err != nil {
		return err
	}

	s.monitor = m
	s.monitorURL = url

	return nil
}

// resolvingSource remembers every parameter a block reads, with the value it
// got.
type resolvingSource struct {
	src      block.ParamSource
	resolved []monitoring.ParamInfo
}

func (r *resolvingSource) Float(component, name string, def float64) float64 {
	v := r.src.Float(component, name, def)
	r.resolved = append(r.resolved, monitoring.ParamInfo{Name: name, Value: v})

	return v
}
