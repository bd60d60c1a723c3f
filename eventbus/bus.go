// Package eventbus composes the queue, subscription, and dispatch
// packages into the engine's public publish/subscribe façade,
// grounded on the teacher's modules/eventbus MemoryEventBus: worker
// pool delivery, subscription lifecycle, start/stop idempotency, and
// an opt-in bounded event history.
package eventbus

import (
	"sync"
	"time"

	"github.com/xiaoyu21git/astockquant/clock"
	"github.com/xiaoyu21git/astockquant/dispatch"
	"github.com/xiaoyu21git/astockquant/errs"
	"github.com/xiaoyu21git/astockquant/event"
	"github.com/xiaoyu21git/astockquant/logging"
	"github.com/xiaoyu21git/astockquant/queue"
	"github.com/xiaoyu21git/astockquant/subscription"
)

// Option configures a Bus at construction time.
type Option func(*Bus)

// WithExecutor installs an Executor used to fan subscriber
// invocations out instead of running them inline. If e implements
// Close(), the Bus closes it when Stop is called, after the dispatch
// controller has been joined.
func WithExecutor(e dispatch.Executor) Option {
	return func(b *Bus) {
		b.executor = e
		b.dispatcher.SetExecutor(e)
	}
}

// WithRotateSubscribers enables the opt-in fairness rotation described
// in dispatch.Dispatcher.SetRotateSubscribers.
func WithRotateSubscribers(enabled bool) Option {
	return func(b *Bus) { b.dispatcher.SetRotateSubscribers(enabled) }
}

// WithHistorySize bounds an in-memory per-type ring of recently
// published events, retrievable via RecentEvents. 0 (the default)
// disables history; it is never consulted by the dispatch path.
func WithHistorySize(n int) Option {
	return func(b *Bus) { b.historySize = n }
}

// WithLogger installs a structured logger used for dispatch
// diagnostics and dropped-event warnings.
func WithLogger(log logging.Logger) Option {
	return func(b *Bus) {
		b.log = log
		b.dispatcher.SetLogger(log)
	}
}

// Bus is the public event-bus façade: publish/subscribe API over an
// internal queue, subscription manager, and dispatch controller.
type Bus struct {
	clk        clock.Clock
	q          *queue.Queue
	subs       *subscription.Manager
	strategy   *dispatch.Strategy
	dispatcher *dispatch.Dispatcher
	controller *dispatch.Controller
	log        logging.Logger
	executor   dispatch.Executor

	historySize int
	histMu      sync.Mutex
	history     map[event.Type][]event.Event
}

// New constructs a Bus driven by clk, starting with policy under the
// given execution mode. The bus is not started; call Start to begin
// dispatching.
func New(clk clock.Clock, policy dispatch.Policy, mode dispatch.ExecutionMode, opts ...Option) *Bus {
	subs := subscription.NewManager()
	q := queue.New()
	log := logging.Noop()

	b := &Bus{
		clk:     clk,
		q:       q,
		subs:    subs,
		log:     log,
		history: make(map[event.Type][]event.Event),
	}
	b.dispatcher = dispatch.New(subs, log)

	for _, opt := range opts {
		opt(b)
	}
	b.strategy = dispatch.NewStrategy(policy, clk.Now())
	b.controller = dispatch.NewController(mode, q, b.strategy, b.dispatcher, clk, b.log)
	return b
}

// Start begins dispatching. Idempotent.
func (b *Bus) Start() { b.controller.Start() }

// closer is implemented by executors (e.g. WorkerPool) that own
// goroutines needing an explicit shutdown signal.
type closer interface {
	Close()
}

// Stop drains any in-flight async dispatch, halts the controller, then
// shuts down the installed Executor (if any), so no executor-owned
// goroutine can invoke a callback after Stop returns. Any events still
// queued at the moment of stop are dropped. Callers observe publish
// returning ErrBusStopped once Stop returns. Idempotent.
func (b *Bus) Stop() {
	b.controller.Stop()
	if c, ok := b.executor.(closer); ok {
		c.Close()
	}
}

// IsStopped reports whether the bus is not currently running.
func (b *Bus) IsStopped() bool { return !b.controller.IsRunning() }

// Publish enqueues e and notifies the dispatch controller. Returns
// ErrInvalidArgument if e.ID is empty (a zero-value Event), or
// ErrBusStopped if the bus is not running.
func (b *Bus) Publish(e event.Event) error {
	if e.ID == "" {
		return errs.ErrInvalidArgument
	}
	if b.IsStopped() {
		return errs.ErrBusStopped
	}
	b.q.Enqueue(e)
	b.recordHistory(e)
	b.controller.Notify(b.clk.Now())
	return nil
}

// PublishDelayed schedules e to become due at t, per the same
// validity and stopped checks as Publish.
func (b *Bus) PublishDelayed(e event.Event, t time.Time) error {
	if e.ID == "" {
		return errs.ErrInvalidArgument
	}
	if b.IsStopped() {
		return errs.ErrBusStopped
	}
	b.q.EnqueueDelayed(e, t)
	b.recordHistory(e)
	b.controller.Notify(b.clk.Now())
	return nil
}

// Subscribe registers cb for every type in types, invoked by the
// dispatcher inline or through the installed Executor, if any.
// Returns ErrInvalidArgument if cb is nil.
func (b *Bus) Subscribe(cb subscription.Callback, types ...event.Type) (string, error) {
	if cb == nil {
		return "", errs.ErrInvalidArgument
	}
	return b.subs.Add(types, cb, false), nil
}

// SubscribeAsync registers cb the same way as Subscribe but marks the
// subscription as async for Subscription metadata purposes; whether
// delivery is actually asynchronous depends on the bus's installed
// Executor, not on this flag.
func (b *Bus) SubscribeAsync(cb subscription.Callback, types ...event.Type) (string, error) {
	if cb == nil {
		return "", errs.ErrInvalidArgument
	}
	return b.subs.Add(types, cb, true), nil
}

// Unsubscribe removes the subscription with the given id.
func (b *Bus) Unsubscribe(id string) error {
	if !b.subs.Remove(id) {
		return errs.ErrNotFound
	}
	return nil
}

// Dispatch forces one dispatch-policy evaluation right now, returning
// the count of events drained and delivered this call.
func (b *Bus) Dispatch() int {
	return b.controller.RunCycle(b.clk.Now())
}

// Clear drops all queued events and all subscriptions. No callback
// registered before Clear can observe an event enqueued before it.
func (b *Bus) Clear() {
	b.q.Clear()
	b.subs.Clear()
	b.histMu.Lock()
	b.history = make(map[event.Type][]event.Event)
	b.histMu.Unlock()
}

// SetPolicy atomically replaces the active dispatch policy.
func (b *Bus) SetPolicy(p dispatch.Policy) { b.strategy.SetPolicy(p) }

// Reset clears the queue, retains subscriptions, and restarts the
// controller.
func (b *Bus) Reset() {
	b.controller.Stop()
	b.q.Clear()
	b.controller.Start()
}

// RecentEvents returns up to limit of the most recently published
// events of type t, oldest first. Returns nil when history is
// disabled (WithHistorySize not set, or set to 0).
func (b *Bus) RecentEvents(t event.Type, limit int) []event.Event {
	if b.historySize == 0 {
		return nil
	}
	b.histMu.Lock()
	defer b.histMu.Unlock()
	src := b.history[t]
	if limit <= 0 || limit > len(src) {
		limit = len(src)
	}
	out := make([]event.Event, limit)
	copy(out, src[len(src)-limit:])
	return out
}

func (b *Bus) recordHistory(e event.Event) {
	if b.historySize == 0 {
		return
	}
	b.histMu.Lock()
	defer b.histMu.Unlock()
	list := append(b.history[e.Type], e)
	if len(list) > b.historySize {
		list = list[len(list)-b.historySize:]
	}
	b.history[e.Type] = list
}
