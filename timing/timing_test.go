package timing

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tickrun/sim"
)

var _ = Describe("Timing", func() {
	var (
		mockCtrl *gomock.Controller
		clock    *MockClock
		delay    *MockDelay
		start    time.Time
		ctx      context.Context
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		clock = NewMockClock(mockCtrl)
		delay = NewMockDelay(mockCtrl)
		start = time.Date(2025, 7, 29, 15, 22, 56, 0, time.UTC)
		ctx = context.Background()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fail fast on a non-positive rate", func() {
		for _, hz := range []Freq{0, -10, 3e9, 1e-11} {
			t, err := NewTiming(Unbounded(), hz, true, clock, delay)

			Expect(t).To(BeNil())
			Expect(errors.Is(err, sim.ErrConfiguration)).To(BeTrue())
		}
	})

	Context("when run time is bounded", func() {
		var t *Timing

		BeforeEach(func() {
			clock.EXPECT().Now().Return(start)
			var err error
			t, err = NewTiming(RunFor(time.Second), 10*Hz, false, clock, delay)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should run until the run time is reached", func() {
			Expect(t.ShouldRun(0)).To(BeTrue())
			Expect(t.ShouldRun(999999)).To(BeTrue())
			Expect(t.ShouldRun(1000000)).To(BeFalse())
			Expect(t.ShouldRun(5000000)).To(BeFalse())
		})

		It("should advance exactly one period per update", func() {
			now := uint64(0)
			times := []uint64{}
			for t.ShouldRun(now) {
				times = append(times, now)
				now = t.Update(ctx, now)
			}

			Expect(times).To(Equal([]uint64{
				0, 100000, 200000, 300000, 400000,
				500000, 600000, 700000, 800000, 900000,
			}))
			Expect(t.Ticks()).To(Equal(uint64(10)))
			Expect(t.ExpectedTicks()).To(Equal(uint64(10)))
		})
	})

	It("should run forever when unbounded", func() {
		clock.EXPECT().Now().Return(start)
		t, err := NewTiming(Unbounded(), 10*Hz, false, clock, delay)
		Expect(err).NotTo(HaveOccurred())

		Expect(t.ShouldRun(1 << 62)).To(BeTrue())
		Expect(t.ExpectedTicks()).To(Equal(uint64(0)))
	})

	It("should pace to the next wall-clock boundary", func() {
		clock.EXPECT().Now().Return(start)
		t, err := NewTiming(Unbounded(), 10*Hz, true, clock, delay)
		Expect(err).NotTo(HaveOccurred())

		gomock.InOrder(
			clock.EXPECT().Now().Return(start.Add(30*time.Millisecond)),
			delay.EXPECT().DelayUntil(ctx, start.Add(100*time.Millisecond)),
			clock.EXPECT().Now().Return(start.Add(100*time.Millisecond+7*time.Microsecond)),
		)

		next := t.Update(ctx, 0)

		Expect(next).To(Equal(uint64(100007)))
		Expect(t.Overruns()).To(Equal(uint64(0)))
	})

	Context("with a fake clock", func() {
		var (
			fakeClock *FakeClock
			fakeDelay *FakeDelay
			t         *Timing
		)

		BeforeEach(func() {
			fakeClock = NewFakeClock(start)
			fakeDelay = NewFakeDelay(fakeClock)
			var err error
			t, err = NewTiming(Unbounded(), 10*Hz, true, fakeClock, fakeDelay)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the time actually elapsed", func() {
			now := t.Update(ctx, 0)
			Expect(now).To(Equal(uint64(100000)))

			now = t.Update(ctx, now)
			Expect(now).To(Equal(uint64(200000)))
			Expect(fakeDelay.Deadlines()).To(Equal([]time.Time{
				start.Add(100 * time.Millisecond),
				start.Add(200 * time.Millisecond),
			}))
		})

		It("should fall behind without catching up on overrun", func() {
			fakeClock.Advance(250 * time.Millisecond)
			now := t.Update(ctx, 0)
			Expect(now).To(Equal(uint64(250000)))

			now = t.Update(ctx, now)
			Expect(now).To(Equal(uint64(250000)))

			now = t.Update(ctx, now)
			Expect(now).To(Equal(uint64(300000)))

			Expect(t.Overruns()).To(Equal(uint64(2)))
			Expect(fakeDelay.Skipped()).To(Equal(2))
		})

		It("should not count setup time after Start", func() {
			fakeClock.Advance(5 * time.Second)
			t.Start()

			Expect(t.Update(ctx, 0)).To(Equal(uint64(100000)))
			Expect(t.Overruns()).To(Equal(uint64(0)))
		})

		It("should keep time monotonic", func() {
			now := uint64(0)
			for i := 0; i < 50; i++ {
				if i%7 == 0 {
					fakeClock.Advance(time.Duration(i) * 13 * time.Millisecond)
				}
				next := t.Update(ctx, now)
				Expect(next).To(BeNumerically(">=", now))
				now = next
			}
		})
	})
})

var _ = Describe("StdDelay", func() {
	It("should return immediately for a past deadline", func() {
		d := NewStdDelay(NewStandardClock())
		begin := time.Now()

		d.DelayUntil(context.Background(), begin.Add(-time.Second))

		Expect(time.Since(begin)).To(BeNumerically("<", 50*time.Millisecond))
	})

	It("should wait until the deadline", func() {
		d := NewStdDelay(NewStandardClock())
		begin := time.Now()

		d.DelayUntil(context.Background(), begin.Add(20*time.Millisecond))

		Expect(time.Since(begin)).To(BeNumerically(">=", 20*time.Millisecond))
	})

	It("should return early when cancelled", func() {
		d := NewStdDelay(NewStandardClock())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		begin := time.Now()

		d.DelayUntil(ctx, begin.Add(time.Hour))

		Expect(time.Since(begin)).To(BeNumerically("<", time.Second))
	})
})
