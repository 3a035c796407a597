package sim

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHook struct {
	calls []HookCtx
}

func (h *recordingHook) Func(ctx HookCtx) {
	h.calls = append(h.calls, ctx)
}

var _ = Describe("HookableBase", func() {
	It("should invoke hooks in registration order", func() {
		domain := NewHookableBase()
		order := []string{}
		h1 := &orderHook{name: "a", order: &order}
		h2 := &orderHook{name: "b", order: &order}
		domain.AcceptHook(h1)
		domain.AcceptHook(h2)

		domain.InvokeHook(HookCtx{Domain: domain, Pos: HookPosBeforeTick})

		Expect(domain.NumHooks()).To(Equal(2))
		Expect(order).To(Equal([]string{"a", "b"}))
	})

	It("should pass the context through", func() {
		domain := NewHookableBase()
		hook := &recordingHook{}
		domain.AcceptHook(hook)
		info := &TickInfo{Tick: 3}

		domain.InvokeHook(HookCtx{
			Domain: domain,
			Pos:    HookPosAfterTick,
			Item:   info,
		})

		Expect(hook.calls).To(HaveLen(1))
		Expect(hook.calls[0].Item).To(BeIdenticalTo(info))
		Expect(hook.calls[0].Pos).To(BeIdenticalTo(HookPosAfterTick))
	})

	It("should panic on duplicated hooks", func() {
		domain := NewHookableBase()
		hook := &recordingHook{}
		domain.AcceptHook(hook)

		Expect(func() { domain.AcceptHook(hook) }).To(Panic())
	})
})

type orderHook struct {
	name  string
	order *[]string
}

func (h *orderHook) Func(_ HookCtx) {
	*h.order = append(*h.order, h.name)
}

var _ = Describe("TickLogger", func() {
	It("should log after each tick", func() {
		buf := new(bytes.Buffer)
		logger := slog.New(slog.NewTextHandler(buf,
			&slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewTickLogger(logger)

		h.Func(HookCtx{
			Pos:  HookPosAfterTick,
			Item: &TickInfo{Tick: 7, AppTimeUs: 700000, StateID: "main"},
		})

		Expect(buf.String()).To(ContainSubstring("tick=7"))
		Expect(buf.String()).To(ContainSubstring("state=main"))
	})

	It("should ignore other positions", func() {
		buf := new(bytes.Buffer)
		logger := slog.New(slog.NewTextHandler(buf,
			&slog.HandlerOptions{Level: slog.LevelDebug}))
		h := NewTickLogger(logger)

		h.Func(HookCtx{Pos: HookPosBeforeTick, Item: &TickInfo{}})

		Expect(buf.String()).To(BeEmpty())
	})
})
