package clock

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when already running.
	ErrAlreadyRunning = errors.New("clock: already running")
	// ErrNotRunning is returned by Stop when not running.
	ErrNotRunning = errors.New("clock: not running")
	// ErrInvalidArgument is returned by AdvanceTo for a non-monotonic or
	// out-of-range target instant on Backtest, and for every call on
	// Realtime/Accelerated clocks, which derive current time rather than
	// store it and so have no valid target instant to accept.
	ErrInvalidArgument = errors.New("clock: invalid argument")
	// ErrUnsupported is returned by Reset on Realtime and Accelerated
	// clocks, which derive current time rather than store it.
	ErrUnsupported = errors.New("clock: unsupported operation")
)
