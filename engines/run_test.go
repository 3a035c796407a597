package engines

import (
	"context"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tickrun/block"
	"github.com/sarchlab/tickrun/datarecording"
	"github.com/sarchlab/tickrun/sim"
	"github.com/sarchlab/tickrun/state"
	"github.com/sarchlab/tickrun/timing"
)

type memorySink struct {
	rows [][]any
}

func (s *memorySink) Write(rec *datarecording.Record) error {
	s.rows = append(s.rows, rec.Values())
	return nil
}

func (s *memorySink) Flush() error { return nil }
func (s *memorySink) Close() error { return nil }

type cancelBlock struct {
	cancel context.CancelFunc
}

func (b cancelBlock) Generate(sim.Snapshot) float64 {
	b.cancel()
	return 1
}

type runSetup struct {
	runTime  timing.RunTime
	hertz    timing.Freq
	realtime bool
	logRate  float64
	bindings []state.Binding
}

func run(ctx context.Context, setup runSetup) (*Engine, *memorySink) {
	clock := timing.NewStandardClock()

	t, err := timing.NewTiming(setup.runTime, setup.hertz, setup.realtime,
		clock, timing.NewStdDelay(clock))
	Expect(err).ToNot(HaveOccurred())

	m, err := state.NewManager("main",
		[]*state.State{state.New("main", setup.bindings...)}, nil)
	Expect(err).ToNot(HaveOccurred())

	schema, err := datarecording.NewTickSchema(m.OutputFields()...)
	Expect(err).ToNot(HaveOccurred())

	sink := &memorySink{}
	logger := datarecording.NewLogger()
	logger.AddSink("memory", sink, datarecording.PeriodFromRate(setup.logRate))

	e, err := NewEngine(t, m, logger, schema)
	Expect(err).ToNot(HaveOccurred())

	Expect(e.Run(ctx)).To(Succeed())

	return e, sink
}

func unitSine() state.Binding {
	return state.Binding{
		Name:  "sinewave1",
		Block: block.NewSine(block.WaveParams{Amplitude: 1, Frequency: 1}),
	}
}

var _ = Describe("Tick loop", func() {
	It("should sample a 1 Hz sine ten times in one second at 10 Hz", func() {
		e, sink := run(context.Background(), runSetup{
			runTime:  timing.RunFor(time.Second),
			hertz:    10,
			bindings: []state.Binding{unitSine()},
		})

		Expect(e.Ticks()).To(Equal(uint64(10)))
		Expect(sink.rows).To(HaveLen(10))

		for i, row := range sink.rows {
			ts := float64(i) / 10
			Expect(row[0]).To(Equal("main"))
			Expect(row[1]).To(BeNumerically("~", ts, 1e-12))
			Expect(row[2]).To(Equal(uint64(i * 100000)))
			Expect(row[3]).To(BeNumerically("~", math.Sin(2*math.Pi*ts), 1e-12))
		}
	})

	It("should run ceil(T*H) ticks", func() {
		e, _ := run(context.Background(), runSetup{
			runTime:  timing.RunFor(1050 * time.Millisecond),
			hertz:    10,
			bindings: []state.Binding{unitSine()},
		})

		Expect(e.Ticks()).To(Equal(uint64(11)))
		Expect(e.RuntimeContext().AppTimeUs()).To(Equal(uint64(1100000)))
	})

	It("should log at its own rate", func() {
		e, sink := run(context.Background(), runSetup{
			runTime:  timing.RunFor(time.Second),
			hertz:    100,
			logRate:  10,
			bindings: []state.Binding{unitSine()},
		})

		Expect(e.Ticks()).To(Equal(uint64(100)))
		Expect(sink.rows).To(HaveLen(10))
		Expect(sink.rows[1][2]).To(Equal(uint64(100000)))
	})

	It("should produce the same records on every non-realtime run", func() {
		setup := func() runSetup {
			return runSetup{
				runTime: timing.RunFor(500 * time.Millisecond),
				hertz:   50,
				bindings: []state.Binding{
					unitSine(),
					{Name: "ramp1", Block: block.NewRamp(0, 2)},
				},
			}
		}

		_, first := run(context.Background(), setup())
		_, second := run(context.Background(), setup())

		Expect(first.rows).To(HaveLen(25))
		Expect(second.rows).To(Equal(first.rows))
	})

	It("should finish the current tick when interrupted", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		start := time.Now()
		e, sink := run(ctx, runSetup{
			runTime:  timing.Unbounded(),
			hertz:    1,
			realtime: true,
			bindings: []state.Binding{
				unitSine(),
				{Name: "stop", Block: cancelBlock{cancel: cancel}},
			},
		})

		Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
		Expect(e.Ticks()).To(Equal(uint64(1)))
		Expect(e.StopReason()).To(Equal(StopInterrupted))
		Expect(sink.rows).To(HaveLen(1))
		Expect(sink.rows[0][4]).To(Equal(1.0))
	})
})
