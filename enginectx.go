package engine

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/golobby/cast"
	"github.com/google/uuid"

	"github.com/xiaoyu21git/astockquant/clock"
	"github.com/xiaoyu21git/astockquant/event"
	"github.com/xiaoyu21git/astockquant/eventbus"
)

// Context is a non-owning handle onto a running Engine: it exposes
// clock/bus/data-source accessors without letting the holder outlive
// or out-own the Engine, plus an owned, mutex-guarded scratchpad and
// flag map for host code to stash request-scoped state.
//
// Grounded on the teacher's pervasive use of golobby/cast for
// loosely-typed value coercion: scratchpad values are stored as `any`
// and read back through typed getters (GetString/GetInt/GetBool) so a
// trigger or listener doesn't need a type switch at every call site.
type Context struct {
	engine *Engine
	id     string

	scratchMu sync.Mutex
	scratch   map[string]any

	flagMu sync.Mutex
	flags  map[string]bool
}

// NewContext returns a Context bound to engine, with a freshly
// generated id for log correlation.
func NewContext(engine *Engine) *Context {
	return &Context{
		engine:  engine,
		id:      uuid.NewString(),
		scratch: make(map[string]any),
		flags:   make(map[string]bool),
	}
}

// ID returns this context's unique id.
func (c *Context) ID() string { return c.id }

// Engine returns the owning Engine.
func (c *Context) Engine() *Engine { return c.engine }

// Clock returns the engine's clock.
func (c *Context) Clock() clock.Clock { return c.engine.Clock() }

// CurrentTime returns the engine clock's current instant.
func (c *Context) CurrentTime() time.Time { return c.engine.Clock().Now() }

// Bus returns the engine's event bus.
func (c *Context) Bus() *eventbus.Bus { return c.engine.Bus() }

// FindDataSource looks up a data source registered with the engine.
func (c *Context) FindDataSource(name string) (DataSource, bool) {
	return c.engine.FindDataSource(name)
}

// PublishEvent is a convenience that delegates to Bus().Publish.
func (c *Context) PublishEvent(e event.Event) error {
	return c.engine.Bus().Publish(e)
}

// GetConfigParam reads a top-level Config field by name for triggers
// and data sources that need read-through access to engine config
// without holding their own copy. Supported names mirror Config's
// exported fields; an unsupported name returns ErrNotFound.
func (c *Context) GetConfigParam(name string) (any, error) {
	cfg := c.engine.Config()
	switch name {
	case "mode":
		return cfg.Mode, nil
	case "event_queue_capacity":
		return cfg.EventQueueCapacity, nil
	case "bus.mode":
		return cfg.Bus.Mode, nil
	case "bus.policy":
		return cfg.Bus.Policy, nil
	default:
		return nil, ErrNotFound
	}
}

// GetRuntimeStats returns the engine's current statistics encoded as
// a JSON string, for host code that wants a point-in-time report
// without depending on the Statistics struct directly.
func (c *Context) GetRuntimeStats() (string, error) {
	b, err := json.Marshal(c.engine.Statistics())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsEngineRunning reports whether the owning Engine is Running.
func (c *Context) IsEngineRunning() bool { return c.engine.IsEngineRunning() }

// IsBacktestMode reports whether the owning Engine runs in Backtest mode.
func (c *Context) IsBacktestMode() bool { return c.engine.IsBacktestMode() }

// IsRealtimeMode reports whether the owning Engine runs in Realtime mode.
func (c *Context) IsRealtimeMode() bool { return c.engine.IsRealtimeMode() }

// EngineStartTime reports when the owning Engine last started.
func (c *Context) EngineStartTime() time.Time { return c.engine.StartTime() }

// EngineUptime reports elapsed time since EngineStartTime.
func (c *Context) EngineUptime() time.Duration { return c.engine.Uptime() }

// SetUserData stores value under key in the scratchpad.
func (c *Context) SetUserData(key string, value any) {
	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()
	c.scratch[key] = value
}

// HasUserData reports whether key is present in the scratchpad.
func (c *Context) HasUserData(key string) bool {
	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()
	_, ok := c.scratch[key]
	return ok
}

// RemoveUserData deletes key from the scratchpad.
func (c *Context) RemoveUserData(key string) {
	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()
	delete(c.scratch, key)
}

// AllUserDataKeys returns every key currently set in the scratchpad.
func (c *Context) AllUserDataKeys() []string {
	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()
	keys := make([]string, 0, len(c.scratch))
	for k := range c.scratch {
		keys = append(keys, k)
	}
	return keys
}

// GetUserData returns the raw value stored under key.
func (c *Context) GetUserData(key string) (any, bool) {
	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()
	v, ok := c.scratch[key]
	return v, ok
}

// GetString coerces the scratchpad value at key to a string via
// golobby/cast.
func (c *Context) GetString(key string) (string, error) {
	v, ok := c.GetUserData(key)
	if !ok {
		return "", ErrNotFound
	}
	out, err := cast.FromType(v, reflect.TypeOf(""))
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// GetInt coerces the scratchpad value at key to an int via golobby/cast.
func (c *Context) GetInt(key string) (int, error) {
	v, ok := c.GetUserData(key)
	if !ok {
		return 0, ErrNotFound
	}
	out, err := cast.FromType(v, reflect.TypeOf(int(0)))
	if err != nil {
		return 0, err
	}
	return out.(int), nil
}

// GetBool coerces the scratchpad value at key to a bool via golobby/cast.
func (c *Context) GetBool(key string) (bool, error) {
	v, ok := c.GetUserData(key)
	if !ok {
		return false, ErrNotFound
	}
	out, err := cast.FromType(v, reflect.TypeOf(false))
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// SetEngineFlag sets a boolean flag, independent of the scratchpad map.
func (c *Context) SetEngineFlag(key string, value bool) {
	c.flagMu.Lock()
	defer c.flagMu.Unlock()
	c.flags[key] = value
}

// GetEngineFlag reads a boolean flag; missing flags read as false.
func (c *Context) GetEngineFlag(key string) bool {
	c.flagMu.Lock()
	defer c.flagMu.Unlock()
	return c.flags[key]
}
