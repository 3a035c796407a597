package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tickrun/sim"
)

func get(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	return rec
}

func afterTick(m *Monitor, tick, appTimeUs uint64, state string) {
	m.Func(sim.HookCtx{
		Pos: sim.HookPosAfterTick,
		Item: &sim.TickInfo{
			Tick:      tick,
			AppTimeUs: appTimeUs,
			StateID:   state,
			Overruns:  1,
		},
	})
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
		h http.Handler
	)

	BeforeEach(func() {
		m = NewMonitor()
		m.RegisterStates([]StateInfo{
			{
				ID: "main",
				Blocks: []BlockInfo{{
					Name:   "sinewave1",
					Kind:   "sine",
					Params: []ParamInfo{{Name: "amplitude", Value: 1}},
				}},
			},
		}, []string{"main -> main"})
		h = m.Handler()
	})

	It("should report the published tick", func() {
		afterTick(m, 4, 500000, "main")
		m.Func(sim.HookCtx{Pos: sim.HookPosLogFailure, Detail: sim.ErrLogging})

		rsp := get(h, http.MethodGet, "/api/now")
		Expect(rsp.Code).To(Equal(http.StatusOK))

		var now nowRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &now)).To(Succeed())
		Expect(now).To(Equal(nowRsp{
			Now:         0.5,
			Tick:        5,
			State:       "main",
			Overruns:    1,
			LogFailures: 1,
		}))
	})

	It("should report the end of the run", func() {
		m.Func(sim.HookCtx{Pos: sim.HookPosRunEnd, Detail: "interrupted"})

		var now nowRsp
		rsp := get(h, http.MethodGet, "/api/now")
		Expect(json.Unmarshal(rsp.Body.Bytes(), &now)).To(Succeed())
		Expect(now.Finished).To(BeTrue())
		Expect(now.StopReason).To(Equal("interrupted"))
	})

	It("should track tick progress", func() {
		m.TrackTicks(10)
		afterTick(m, 0, 0, "main")
		afterTick(m, 1, 100000, "main")

		rsp := get(h, http.MethodGet, "/api/progress")

		var bars []progressRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("ticks"))
		Expect(bars[0].Total).To(Equal(uint64(10)))
		Expect(bars[0].Finished).To(Equal(uint64(2)))
		Expect(bars[0].ID).ToNot(BeEmpty())
	})

	It("should list states", func() {
		afterTick(m, 0, 0, "main")

		rsp := get(h, http.MethodGet, "/api/states")

		var states statesRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &states)).To(Succeed())
		Expect(states).To(Equal(statesRsp{
			Current:     "main",
			States:      []string{"main"},
			Transitions: []string{"main -> main"},
		}))
	})

	It("should dump a state", func() {
		rsp := get(h, http.MethodGet, "/api/state/main")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for unknown states", func() {
		rsp := get(h, http.MethodGet, "/api/state/missing")

		Expect(rsp.Code).To(Equal(http.StatusNotFound))
	})

	It("should report process resources", func() {
		rsp := get(h, http.MethodGet, "/api/resource")

		Expect(rsp.Code).To(Equal(http.StatusOK))

		var res resourceRsp
		Expect(json.Unmarshal(rsp.Body.Bytes(), &res)).To(Succeed())
		Expect(res.MemorySize).To(BeNumerically(">", 0))
	})

	It("should stop the run", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m.RegisterStopFunc(cancel)

		rsp := get(h, http.MethodPost, "/api/stop")

		Expect(rsp.Code).To(Equal(http.StatusAccepted))
		Expect(ctx.Err()).To(MatchError(context.Canceled))
	})

	It("should refuse to stop without a stop function", func() {
		rsp := get(h, http.MethodPost, "/api/stop")

		Expect(rsp.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should expose registered metrics", func() {
		metrics := NewMetrics()
		Expect(m.RegisterCollector(metrics)).To(Succeed())

		metrics.Func(sim.HookCtx{Pos: sim.HookPosBeforeTick})
		metrics.Func(sim.HookCtx{
			Pos:  sim.HookPosAfterTick,
			Item: &sim.TickInfo{AppTimeUs: 100000, StateID: "main"},
		})

		rsp := get(h, http.MethodGet, "/metrics")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(rsp.Body.String()).To(ContainSubstring("tickrun_ticks_total 1"))
	})

	It("should serve the dashboard", func() {
		rsp := get(h, http.MethodGet, "/")

		Expect(rsp.Code).To(Equal(http.StatusOK))
		Expect(strings.HasPrefix(rsp.Body.String(), "<!DOCTYPE html>")).To(BeTrue())
	})

	It("should serve on a random port", func() {
		url, err := m.WithPortNumber(80).StartServer()
		Expect(err).ToNot(HaveOccurred())
		defer m.Shutdown(context.Background())

		rsp, err := http.Get(url + "/api/now")
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
