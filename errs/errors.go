// Package errs holds the closed set of sentinel errors shared by the
// engine root package and its subpackages. Kept separate from package
// engine so leaf packages (eventbus, dispatch, ...) can return these
// errors without importing the root package and creating an import
// cycle; the root package re-exports the same variables under
// engine.ErrXxx names.
package errs

import "errors"

var (
	// ErrInvalidArgument covers a nil event, an unparsable config field,
	// or an unsupported clock advancement.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound covers an unknown subscription id, data-source name,
	// or trigger id.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists covers a duplicate data-source name or trigger id.
	ErrAlreadyExists = errors.New("already exists")

	// ErrBusStopped is returned by Publish/PublishDelayed when the bus
	// is not running.
	ErrBusStopped = errors.New("event bus stopped")

	// ErrTimeout is reserved for a bounded wait being exceeded. Not
	// emitted by the core today; kept so callers can already guard on
	// it without a breaking change later.
	ErrTimeout = errors.New("timeout")

	// ErrResourceExhausted covers a queue capacity limit being reached.
	// Not emitted by the core today: no queue enforces a capacity.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrBusy is returned when a state transition is rejected because
	// another transition is already in progress.
	ErrBusy = errors.New("busy")

	// ErrDisconnected is returned by a data-source operation attempted
	// while not connected.
	ErrDisconnected = errors.New("disconnected")

	// ErrInvalidTransition is returned when a requested engine state
	// transition is not reachable from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrEngineInErrorState is returned for any operation other than
	// Stop/Reset once the engine has entered the Error state.
	ErrEngineInErrorState = errors.New("engine is in error state")
)
