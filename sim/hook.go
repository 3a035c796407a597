package sim

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	// Domain is the hookable object that is raising this hook.
	Domain Hookable

	// Pos identifies the stage of the tick the hook is firing from.
	Pos *HookPos

	// Item carries the primary subject, usually a *TickInfo.
	Item any

	// Detail holds optional auxiliary data, such as a logging error.
	Detail any
}

// HookPosBeforeTick is a hook position that triggers before the active state
// runs.
var HookPosBeforeTick = &HookPos{Name: "BeforeTick"}

// HookPosAfterTick is a hook position that triggers after a tick has been
// logged and before virtual time advances.
var HookPosAfterTick = &HookPos{Name: "AfterTick"}

// HookPosLogFailure is a hook position that triggers when the logger reports
// an error. Detail holds the error.
var HookPosLogFailure = &HookPos{Name: "LogFailure"}

// HookPosRunEnd triggers once when the tick loop exits. Detail holds the reason
// as a string.
var HookPosRunEnd = &HookPos{Name: "RunEnd"}

// TickInfo describes a tick to hooks.
type TickInfo struct {
	Tick      uint64
	AppTimeUs uint64
	StateID   string
	Overruns  uint64
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook.
	//
	// Hooks must be registered before the run starts. They cannot be removed.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int
}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.hookList = make([]Hook, 0)

	return h
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	for _, existing := range h.hookList {
		if existing == hook {
			panic("duplicated hook")
		}
	}

	h.hookList = append(h.hookList, hook)
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
