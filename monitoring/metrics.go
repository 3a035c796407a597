package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/tickrun/sim"
)

// Metrics is a hook that exports the progress of a run as Prometheus
// metrics.
type Metrics struct {
	ticksTotal       prometheus.Counter
	logFailuresTotal prometheus.Counter
	appTimeSeconds   prometheus.Gauge
	overruns         prometheus.Gauge
	activeState      *prometheus.GaugeVec
	tickDuration     prometheus.Histogram

	tickStart time.Time
	lastState string
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickrun_ticks_total",
			Help: "Number of ticks executed",
		}),
		logFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickrun_log_failures_total",
			Help: "Number of ticks whose record could not be logged by every sink",
		}),
		appTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickrun_app_time_seconds",
			Help: "Virtual time of the last executed tick",
		}),
		overruns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickrun_overruns",
			Help: "Number of realtime tick boundaries that had already passed",
		}),
		activeState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickrun_state_active",
				Help: "1 for the active state, 0 otherwise",
			},
			[]string{"state"},
		),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickrun_tick_duration_seconds",
			Help:    "Wall-clock time spent computing and logging a tick",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.ticksTotal.Describe(ch)
	m.logFailuresTotal.Describe(ch)
	m.appTimeSeconds.Describe(ch)
	m.overruns.Describe(ch)
	m.activeState.Describe(ch)
	m.tickDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.ticksTotal.Collect(ch)
	m.logFailuresTotal.Collect(ch)
	m.appTimeSeconds.Collect(ch)
	m.overruns.Collect(ch)
	m.activeState.Collect(ch)
	m.tickDuration.Collect(ch)
}

// Func updates the metrics from the engine hooks.
func (m *Metrics) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosBeforeTick:
		m.tickStart = time.Now()
	case sim.HookPosLogFailure:
		m.logFailuresTotal.Inc()
	case sim.HookPosAfterTick:
		info, ok := ctx.Item.(*sim.TickInfo)
		if !ok {
			return
		}

		m.tickDuration.Observe(time.Since(m.tickStart).Seconds())
		m.ticksTotal.Inc()
		m.appTimeSeconds.Set(float64(info.AppTimeUs) / 1e6)
		m.overruns.Set(float64(info.Overruns))
		m.setActiveState(info.StateID)
	}
}

func (m *Metrics) setActiveState(id string) {
	if id == m.lastState {
		return
	}

	if m.lastState != "" {
		m.activeState.WithLabelValues(m.lastState).Set(0)
	}

	m.activeState.WithLabelValues(id).Set(1)
	m.lastState = id
}
