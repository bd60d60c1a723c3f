package engine

import (
	"time"

	"github.com/xiaoyu21git/astockquant/event"
)

// DataSourceState reports connection state of a registered DataSource.
type DataSourceState string

const (
	Disconnected DataSourceState = "Disconnected"
	Connecting   DataSourceState = "Connecting"
	Connected    DataSourceState = "Connected"
	SourceError  DataSourceState = "Error"
)

// DataListener observes state changes and delivered events of a
// DataSource it is registered against.
type DataListener interface {
	OnStateChanged(old, new DataSourceState)
	OnEvent(e event.Event)
}

// DataSource is an external market-data (or other) producer registered
// with the Engine. Implementations are out of scope for the core (see
// Non-goals); only the contract is specified here so the Engine can
// register, poll, and tear one down.
type DataSource interface {
	Name() string
	URI() string
	State() DataSourceState
	Connect() error
	Disconnect() error
	// Poll asks the source to produce any events it currently has
	// buffered, delivering them to registered DataListeners. The core
	// engine does not call Poll itself — its event loop only drains the
	// scheduled-event priority queue (see Engine.ScheduleEvent); a host
	// wiring a live DataSource is responsible for calling Poll on
	// SetPollInterval's cadence and feeding the results in, typically via
	// ScheduleEvent or Bus.Publish.
	Poll() error
	RegisterListener(l DataListener)
	UnregisterListener(l DataListener)
	SetPollInterval(d time.Duration)
}

// TriggerCondition decides whether a Trigger's action should run for
// a dispatched event.
type TriggerCondition interface {
	Check(e event.Event, now time.Time) bool
}

// TriggerAction performs the effect of a Trigger once its condition
// holds. Failure is logged and counted; it never aborts the event loop.
type TriggerAction interface {
	Execute(e event.Event, now time.Time) error
}

// Trigger pairs a condition with an action and is evaluated by the
// Engine against every dispatched event. Evaluate reports whether its
// condition held (and therefore its action ran) alongside any action
// error, so the Engine can count firings and errors independently.
type Trigger interface {
	ID() string
	Evaluate(e event.Event, now time.Time) (fired bool, err error)
	SetEnabled(enabled bool)
	Enabled() bool
}

// EngineListener receives lifecycle notifications from the Engine's
// state machine. Listener errors are swallowed and logged; a
// misbehaving listener can never abort a transition.
type EngineListener interface {
	OnStateChanged(old, new State)
	OnError(err error)
	OnStatisticsUpdated(stats Statistics)
}
