package engine

import (
	"log/slog"

	"github.com/xiaoyu21git/astockquant/logging"
)

// Logger is the structured logging seam used throughout the engine.
// It is an alias of logging.Logger so host code can depend on either
// name interchangeably.
type Logger = logging.Logger

// NewSlogLogger wraps a *slog.Logger as a Logger.
func NewSlogLogger(l *slog.Logger) Logger {
	return logging.NewSlog(l)
}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return logging.Noop()
}
