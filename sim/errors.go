package sim

import "errors"

var (
	// ErrConfiguration marks malformed or missing startup configuration. A run
	// must not start when construction fails with it.
	ErrConfiguration = errors.New("configuration error")

	// ErrBlockComputation marks a block or guard that failed to produce a
	// value during a tick.
	ErrBlockComputation = errors.New("block computation error")

	// ErrLogging marks a sink that rejected or failed to persist a record.
	// It never stops the tick loop.
	ErrLogging = errors.New("logging failure")
)
