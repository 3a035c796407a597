package sim

import (
	"context"
	"log/slog"
)

// TickLogger is a hook that prints one line per tick.
type TickLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewTickLogger returns a TickLogger which writes into the logger at debug
// level.
func NewTickLogger(logger *slog.Logger) *TickLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &TickLogger{logger: logger, level: slog.LevelDebug}
}

// Func writes the tick information into the logger.
func (h *TickLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosAfterTick {
		return
	}

	info, ok := ctx.Item.(*TickInfo)
	if !ok {
		return
	}

	h.logger.Log(context.Background(), h.level, "tick",
		"tick", info.Tick,
		"app_time_s", float64(info.AppTimeUs)/1e6,
		"state", info.StateID,
		"overruns", info.Overruns,
	)
}
