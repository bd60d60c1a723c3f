package engine

import (
	"container/heap"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/xiaoyu21git/astockquant/clock"
	"github.com/xiaoyu21git/astockquant/dispatch"
	"github.com/xiaoyu21git/astockquant/event"
	"github.com/xiaoyu21git/astockquant/eventbus"
)

// Engine is the top-level state machine: it owns a Clock, an
// EventBus, a map of registered DataSources, a map of registered
// Triggers, and a time-ordered priority queue of scheduled events. It
// runs a single event-loop goroutine while Running, grounded on the
// teacher's ApplicationLifecycle orchestration (deterministic
// transitions, per-phase listener notification, swallowed listener
// errors).
type Engine struct {
	mu    sync.Mutex
	state atomicInternalState

	log Logger
	cfg Config
	clk clock.Clock
	bus *eventbus.Bus

	stats *statistics

	dsMu        sync.RWMutex
	dataSources map[string]DataSource

	trgMu    sync.RWMutex
	triggers map[string]Trigger

	listenersMu sync.RWMutex
	listeners   []EngineListener
	ceSink      CloudEventSink

	pqMu     sync.Mutex
	pq       eventHeap
	pqNotify chan struct{}

	stopCh chan struct{}
	loopWG sync.WaitGroup

	startTime time.Time
}

// New returns an Engine in the Created state. Call Initialize before
// Start.
func New(log Logger) *Engine {
	if log == nil {
		log = NewNoopLogger()
	}
	return &Engine{
		log:         log,
		stats:       newStatistics(time.Time{}),
		dataSources: make(map[string]DataSource),
		triggers:    make(map[string]Trigger),
		pqNotify:    make(chan struct{}, 1),
	}
}

// State reports the coarse external state.
func (e *Engine) State() State {
	return e.state.load().coarse()
}

// IsEngineRunning reports whether the engine is actively running
// (not paused, not stopped).
func (e *Engine) IsEngineRunning() bool {
	return e.state.load() == internalRunning
}

// IsBacktestMode reports whether the engine was initialized in
// backtest mode.
func (e *Engine) IsBacktestMode() bool { return e.cfg.Mode == "backtest" }

// IsRealtimeMode reports whether the engine was initialized in
// realtime mode.
func (e *Engine) IsRealtimeMode() bool { return e.cfg.Mode == "realtime" }

// Config returns the configuration passed to Initialize.
func (e *Engine) Config() Config { return e.cfg }

// Clock returns the engine's clock.
func (e *Engine) Clock() clock.Clock { return e.clk }

// Bus returns the engine's event bus.
func (e *Engine) Bus() *eventbus.Bus { return e.bus }

// StartTime reports when Start last completed.
func (e *Engine) StartTime() time.Time { return e.startTime }

// Uptime reports elapsed clock time since StartTime; zero if Start has
// never completed. After Stop it keeps measuring from the last start.
func (e *Engine) Uptime() time.Duration {
	if e.startTime.IsZero() {
		return 0
	}
	return e.clk.Now().Sub(e.startTime)
}

// Statistics returns a snapshot of the engine's counters.
func (e *Engine) Statistics() Statistics { return e.stats.snapshot() }

// Initialize parses cfg, builds the Clock and EventBus it describes,
// and transitions Created -> Initializing -> Initialized. Data sources
// and triggers are registered separately via RegisterDataSource /
// RegisterTrigger before Start.
func (e *Engine) Initialize(cfg Config) error {
	if err := e.transitionTo(internalInitializing); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		e.fail(err)
		return err
	}

	var clk clock.Clock
	switch cfg.Mode {
	case "backtest":
		clk = clock.NewBacktestClock(cfg.Backtest.StartTime, cfg.Backtest.EndTime, cfg.Backtest.Step)
	case "accelerated":
		clk = clock.NewAcceleratedClock(time.Now(), cfg.Accelerated.Factor)
	default:
		clk = clock.NewRealtimeClock()
	}

	policy := buildPolicy(cfg.Bus)
	mode := dispatch.Sync
	if cfg.Bus.Mode == "async" {
		mode = dispatch.Async
	}

	opts := []eventbus.Option{eventbus.WithLogger(e.log)}
	if cfg.Bus.RotateSubscribers {
		opts = append(opts, eventbus.WithRotateSubscribers(true))
	}
	if cfg.Bus.HistorySize > 0 {
		opts = append(opts, eventbus.WithHistorySize(cfg.Bus.HistorySize))
	}
	if cfg.Bus.ExecutorKind == "thread_pool" {
		size := cfg.Bus.ExecutorSize
		if size <= 0 {
			size = runtime.NumCPU()
		}
		opts = append(opts, eventbus.WithExecutor(eventbus.NewWorkerPool(size, size*4)))
	}

	e.cfg = cfg
	e.clk = clk
	e.bus = eventbus.New(clk, policy, mode, opts...)

	return e.transitionTo(internalInitialized)
}

func buildPolicy(cfg BusConfig) dispatch.Policy {
	switch cfg.Policy {
	case "batch":
		return dispatch.NewBatch(cfg.BatchN)
	case "time":
		return dispatch.NewTime(time.Duration(cfg.TimeIntervalMS) * time.Millisecond)
	case "hybrid":
		return dispatch.NewHybrid(cfg.BatchN, time.Duration(cfg.TimeIntervalMS)*time.Millisecond)
	default:
		return dispatch.NewImmediate()
	}
}

// Start transitions Initialized -> Starting -> Running, starts the
// clock and bus, and spawns the event-loop goroutine.
func (e *Engine) Start() error {
	if err := e.transitionTo(internalStarting); err != nil {
		return err
	}
	if err := e.clk.Start(); err != nil {
		e.fail(err)
		return err
	}
	e.bus.Start()
	e.startTime = e.clk.Now()
	e.stats = newStatistics(e.startTime)
	e.stopCh = make(chan struct{})
	e.loopWG.Add(1)
	go e.eventLoop()
	return e.transitionTo(internalRunning)
}

// Pause transitions Running -> Pausing -> Paused; the event loop
// observes the paused state and parks without draining the priority
// queue.
func (e *Engine) Pause() error {
	if err := e.transitionTo(internalPausing); err != nil {
		return err
	}
	return e.transitionTo(internalPaused)
}

// Resume transitions Paused -> Resuming -> Running.
func (e *Engine) Resume() error {
	if err := e.transitionTo(internalResuming); err != nil {
		return err
	}
	return e.transitionTo(internalRunning)
}

// Stop transitions Running|Paused|Error -> Stopping -> Stopped: it
// signals the event loop, joins it, then stops the bus and clock, skipping
// whichever of these were never created. Idempotent — calling Stop when
// already stopped returns nil both times.
func (e *Engine) Stop() error {
	if e.state.load() == internalStopped {
		return nil
	}
	if err := e.transitionTo(internalStopping); err != nil {
		return err
	}
	if e.stopCh != nil {
		close(e.stopCh)
		e.loopWG.Wait()
		e.stopCh = nil
	}
	if e.bus != nil {
		e.bus.Stop()
	}
	if e.clk != nil {
		_ = e.clk.Stop()
	}
	e.state.store(internalStopped)
	return nil
}

// Reset returns a Stopped engine to Created so Initialize can be
// called again. Only valid when already Stopped.
func (e *Engine) Reset() error {
	if e.state.load() != internalStopped {
		return fmt.Errorf("%w: reset requires Stopped state", ErrInvalidTransition)
	}
	e.mu.Lock()
	e.state.store(internalCreated)
	e.mu.Unlock()
	e.pqMu.Lock()
	e.pq = nil
	e.pqMu.Unlock()
	return nil
}

// ScheduleEvent pushes e onto the priority queue of scheduled events
// consulted by the event loop, ordered by e.Timestamp.
func (e *Engine) ScheduleEvent(ev event.Event) {
	e.pqMu.Lock()
	heap.Push(&e.pq, ev)
	e.pqMu.Unlock()
	select {
	case e.pqNotify <- struct{}{}:
	default:
	}
}

// RegisterDataSource adds ds under ds.Name(). ErrAlreadyExists if a
// source with that name is already registered.
func (e *Engine) RegisterDataSource(ds DataSource) error {
	e.dsMu.Lock()
	defer e.dsMu.Unlock()
	if _, exists := e.dataSources[ds.Name()]; exists {
		return ErrAlreadyExists
	}
	e.dataSources[ds.Name()] = ds
	return nil
}

// UnregisterDataSource removes the source registered under name.
func (e *Engine) UnregisterDataSource(name string) error {
	e.dsMu.Lock()
	defer e.dsMu.Unlock()
	if _, exists := e.dataSources[name]; !exists {
		return ErrNotFound
	}
	delete(e.dataSources, name)
	return nil
}

// FindDataSource looks up a registered source by name.
func (e *Engine) FindDataSource(name string) (DataSource, bool) {
	e.dsMu.RLock()
	defer e.dsMu.RUnlock()
	ds, ok := e.dataSources[name]
	return ds, ok
}

// RegisterTrigger adds t under t.ID(). ErrAlreadyExists if a trigger
// with that id is already registered.
func (e *Engine) RegisterTrigger(t Trigger) error {
	e.trgMu.Lock()
	defer e.trgMu.Unlock()
	if _, exists := e.triggers[t.ID()]; exists {
		return ErrAlreadyExists
	}
	e.triggers[t.ID()] = t
	return nil
}

// UnregisterTrigger removes the trigger registered under id.
func (e *Engine) UnregisterTrigger(id string) error {
	e.trgMu.Lock()
	defer e.trgMu.Unlock()
	if _, exists := e.triggers[id]; !exists {
		return ErrNotFound
	}
	delete(e.triggers, id)
	return nil
}

// RegisterListener adds l to the set notified of state changes,
// errors, and statistics updates.
func (e *Engine) RegisterListener(l EngineListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// UnregisterListener removes l if present.
func (e *Engine) UnregisterListener(l EngineListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	for i, x := range e.listeners {
		if x == l {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *Engine) transitionTo(to internalState) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.state.load()
	if !canTransition(from, to) {
		switch from {
		case internalErrorState:
			return fmt.Errorf("%w: %v -> %v", ErrEngineInErrorState, from.coarse(), to.coarse())
		case internalInitializing, internalStarting, internalPausing, internalResuming, internalStopping:
			return fmt.Errorf("%w: %v -> %v", ErrBusy, from.coarse(), to.coarse())
		}
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, from.coarse(), to.coarse())
	}
	e.state.store(to)
	e.notifyStateChanged(from.coarse(), to.coarse())
	return nil
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	from := e.state.load()
	if from == internalStopped {
		e.mu.Unlock()
		return
	}
	e.state.store(internalErrorState)
	e.mu.Unlock()
	e.stats.incErrors(e.nowSafe())
	e.notifyStateChanged(from.coarse(), StateError)
	e.notifyError(err)
}

func (e *Engine) nowSafe() time.Time {
	if e.clk == nil {
		return time.Time{}
	}
	return e.clk.Now()
}

// eventLoop is the Engine's single dispatch thread while Running: it
// pulls the earliest-timestamp scheduled event, advances the clock in
// backtest mode, evaluates triggers, publishes onto the bus, and
// updates statistics.
func (e *Engine) eventLoop() {
	defer e.loopWG.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case <-e.pqNotify:
		case <-time.After(50 * time.Millisecond):
		}

		if e.state.load() == internalPaused {
			continue
		}
		if e.drainOne() {
			return
		}
	}
}

// drainOne processes a single scheduled event, if one is due. It
// returns true if the engine auto-transitioned to Stopped because the
// backtest clock reached its configured end time, in which case the
// caller (eventLoop) must exit without waiting on stopCh.
func (e *Engine) drainOne() bool {
	e.pqMu.Lock()
	if len(e.pq) == 0 {
		e.pqMu.Unlock()
		return false
	}
	ev := heap.Pop(&e.pq).(event.Event)
	e.pqMu.Unlock()

	if bc, ok := e.clk.(*clock.BacktestClock); ok {
		if err := bc.AdvanceTo(ev.Timestamp); err != nil {
			e.fail(fmt.Errorf("engine: advance clock to event timestamp: %w", err))
			return false
		}
	}

	now := e.clk.Now()
	e.evaluateTriggers(ev, now)

	if err := e.bus.Publish(ev); err != nil {
		e.log.Warn("engine: publish from event loop failed", "event_id", ev.ID, "err", err.Error())
	}
	e.stats.incEventsProcessed(now)
	e.notifyStatsUpdated()

	if bc, ok := e.clk.(*clock.BacktestClock); ok {
		if !bc.Now().Before(bc.End()) {
			return e.autoStopAtBacktestEnd()
		}
	}
	return false
}

func (e *Engine) autoStopAtBacktestEnd() bool {
	e.mu.Lock()
	from := e.state.load()
	if !canTransition(from, internalStopping) {
		e.mu.Unlock()
		return false
	}
	e.state.store(internalStopping)
	e.notifyStateChanged(from.coarse(), StateStopped)
	e.mu.Unlock()

	e.bus.Stop()
	_ = e.clk.Stop()
	e.state.store(internalStopped)
	return true
}

func (e *Engine) evaluateTriggers(ev event.Event, now time.Time) {
	for _, t := range e.triggerSnapshot() {
		if !t.Enabled() {
			continue
		}
		fired, err := t.Evaluate(ev, now)
		if err != nil {
			e.stats.incErrors(now)
			e.log.Warn("engine: trigger evaluation failed", "trigger_id", t.ID(), "err", err.Error())
			continue
		}
		if fired {
			e.stats.incTriggersFired(now)
		}
	}
}

func (e *Engine) triggerSnapshot() []Trigger {
	e.trgMu.RLock()
	defer e.trgMu.RUnlock()
	out := make([]Trigger, 0, len(e.triggers))
	for _, t := range e.triggers {
		out = append(out, t)
	}
	return out
}

func (e *Engine) listenerSnapshot() []EngineListener {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	out := make([]EngineListener, len(e.listeners))
	copy(out, e.listeners)
	return out
}

func (e *Engine) notifyStateChanged(old, new State) {
	for _, l := range e.listenerSnapshot() {
		e.safeCall(func() { l.OnStateChanged(old, new) })
	}
	e.emitCloudEvent(CloudEventTypeStateChanged, stateChangedPayload{Old: old.String(), New: new.String()})
}

func (e *Engine) notifyError(err error) {
	for _, l := range e.listenerSnapshot() {
		e.safeCall(func() { l.OnError(err) })
	}
	e.emitCloudEvent(CloudEventTypeError, errorPayload{Message: err.Error()})
}

func (e *Engine) notifyStatsUpdated() {
	snap := e.stats.snapshot()
	for _, l := range e.listenerSnapshot() {
		e.safeCall(func() { l.OnStatisticsUpdated(snap) })
	}
	e.emitCloudEvent(CloudEventTypeStatisticsUpdate, snap)
}

// safeCall recovers a panicking listener, matching the spec's
// catch-log-continue contract for listener exceptions.
func (e *Engine) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("engine: listener panicked", "recovered", fmt.Sprint(r))
		}
	}()
	fn()
}
