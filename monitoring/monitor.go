// Package monitoring serves the progress of a running tick loop over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/tickrun/monitoring/web"
	"github.com/sarchlab/tickrun/sim"
)

// StateInfo is the static description of a state shown by the monitor.
type StateInfo struct {
	ID     string
	Blocks []BlockInfo
}

// BlockInfo describes a block and the parameters it was built with.
type BlockInfo struct {
	Name   string
	Kind   string
	Params []ParamInfo
}

// ParamInfo is a resolved block parameter.
type ParamInfo struct {
	Name  string
	Value float64
}

// Monitor turns a run into a server that allows external monitoring and
// stopping. It is a hook; the engine publishes the tick information to it and
// the HTTP handlers only read what was published.
type Monitor struct {
	portNumber int
	logger     *slog.Logger
	registry   *prometheus.Registry
	stop       context.CancelFunc

	states      []StateInfo
	transitions []string

	tick        atomic.Uint64
	appTimeUs   atomic.Uint64
	overruns    atomic.Uint64
	logFailures atomic.Uint64
	stateID     atomic.Value
	finished    atomic.Bool
	stopReason  atomic.Value

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	tickBar          *ProgressBar

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	m := &Monitor{
		logger:   slog.Default(),
		registry: prometheus.NewRegistry(),
	}
	m.stateID.Store("")
	m.stopReason.Store("")

	return m
}

// WithPortNumber sets the port number of the monitor. Zero picks a random
// port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitor port not allowed, using a random port instead",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterStopFunc sets the function /api/stop calls, usually the cancel
// function of the run context.
func (m *Monitor) RegisterStopFunc(stop context.CancelFunc) {
	m.stop = stop
}

// RegisterStates sets the states listed by the monitor.
func (m *Monitor) RegisterStates(states []StateInfo, transitions []string) {
	m.states = states
	m.transitions = transitions
}

// RegisterCollector adds a Prometheus collector to /metrics.
func (m *Monitor) RegisterCollector(c prometheus.Collector) error {
	return m.registry.Register(c)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// TrackTicks creates the progress bar advanced on every tick. A total of
// zero means the run is unbounded.
func (m *Monitor) TrackTicks(total uint64) {
	m.tickBar = m.CreateProgressBar("ticks", total)
}

// Func records the tick information published by the engine.
func (m *Monitor) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosAfterTick:
		info, ok := ctx.Item.(*sim.TickInfo)
		if !ok {
			return
		}

		m.tick.Store(info.Tick + 1)
		m.appTimeUs.Store(info.AppTimeUs)
		m.overruns.Store(info.Overruns)
		m.stateID.Store(info.StateID)

		if m.tickBar != nil {
			m.tickBar.IncrementFinished(1)
		}
	case sim.HookPosLogFailure:
		m.logFailures.Add(1)
	case sim.HookPosRunEnd:
		if reason, ok := ctx.Detail.(string); ok {
			m.stopReason.Store(reason)
		}

		m.finished.Store(true)
	}
}

// Handler returns the HTTP handler of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/states", m.listStates)
	r.HandleFunc("/api/state/{id}", m.stateDetails)
	r.HandleFunc("/api/stop", m.stopRun).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("start monitor: %w", err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring run with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor server stopped", "error", err)
		}
	}()

	return url, nil
}

// Shutdown stops the server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type nowRsp struct {
	Now         float64 `json:"now"`
	Tick        uint64  `json:"tick"`
	State       string  `json:"state"`
	Overruns    uint64  `json:"overruns"`
	LogFailures uint64  `json:"log_failures"`
	Finished    bool    `json:"finished"`
	StopReason  string  `json:"stop_reason,omitempty"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, nowRsp{
		Now:         float64(m.appTimeUs.Load()) / 1e6,
		Tick:        m.tick.Load(),
		State:       m.stateID.Load().(string),
		Overruns:    m.overruns.Load(),
		LogFailures: m.logFailures.Load(),
		Finished:    m.finished.Load(),
		StopReason:  m.stopReason.Load().(string),
	})
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		finished, total := b.Progress()
		bars = append(bars, progressRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     total,
			Finished:  finished,
		})
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.fail(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.fail(w, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, err)
		return
	}

	m.writeJSON(w, prof)
}

type statesRsp struct {
	Current     string   `json:"current"`
	States      []string `json:"states"`
	Transitions []string `json:"transitions"`
}

func (m *Monitor) listStates(w http.ResponseWriter, _ *http.Request) {
	rsp := statesRsp{
		Current:     m.stateID.Load().(string),
		States:      make([]string, 0, len(m.states)),
		Transitions: m.transitions,
	}

	for _, s := range m.states {
		rsp.States = append(rsp.States, s.ID)
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) stateDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	for i := range m.states {
		if m.states[i].ID != id {
			continue
		}

		serializer := goseth.NewSerializer()
		serializer.SetRoot(&m.states[i])
		serializer.SetMaxDepth(4)

		if err := serializer.Serialize(w); err != nil {
			m.logger.Warn("serialize state", "state", id, "error", err)
		}

		return
	}

	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("State not found"))
}

func (m *Monitor) stopRun(w http.ResponseWriter, _ *http.Request) {
	if m.stop == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	m.logger.Info("stop requested through the monitor")
	m.stop()

	w.WriteHeader(http.StatusAccepted)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		m.logger.Warn("monitor response", "error", err)
	}
}

func (m *Monitor) fail(w http.ResponseWriter, err error) {
	m.logger.Warn("monitor request failed", "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
