package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/xiaoyu21git/astockquant/clock"
	"github.com/xiaoyu21git/astockquant/logging"
	"github.com/xiaoyu21git/astockquant/queue"
)

// ExecutionMode selects whether the controller runs a dedicated worker
// goroutine (Async) or drains inline on the publishing goroutine (Sync).
type ExecutionMode int

const (
	Sync ExecutionMode = iota
	Async
)

// controller state values for the Stopped -> Running -> Stopping ->
// Stopped machine. Transitions outside this set are rejected.
const (
	stateStopped int32 = iota
	stateRunning
	stateStopping
)

// pollInterval bounds how long the async worker can sleep between
// wakeups even absent a notify, so a Time/Hybrid policy's interval
// condition is still observed without a fresh publish.
const pollInterval = 50 * time.Millisecond

// Controller drives the dispatch loop: it polls the queue, consults
// the active Policy, and invokes the Dispatcher when the policy fires.
type Controller struct {
	mode       ExecutionMode
	q          *queue.Queue
	strategy   *Strategy
	dispatcher *Dispatcher
	clk        clock.Clock
	log        logging.Logger

	state    atomic.Int32
	notifyCh chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewController wires a Controller over q/strategy/dispatcher, reading
// time from clk. log may be nil.
func NewController(mode ExecutionMode, q *queue.Queue, strategy *Strategy, dispatcher *Dispatcher, clk clock.Clock, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Noop()
	}
	return &Controller{
		mode:       mode,
		q:          q,
		strategy:   strategy,
		dispatcher: dispatcher,
		clk:        clk,
		log:        log,
		notifyCh:   make(chan struct{}, 1),
	}
}

// Start launches the worker goroutine in Async mode; in Sync mode it
// only flips the running flag. Calling Start while already running is
// a safe no-op.
func (c *Controller) Start() {
	if !c.state.CompareAndSwap(stateStopped, stateRunning) {
		return
	}
	if c.mode == Async {
		c.stopCh = make(chan struct{})
		c.wg.Add(1)
		go c.loop()
	}
}

// Stop signals the worker to exit and joins it. Any events still
// queued at the moment of stop are dropped, not dispatched. Calling
// Stop while already stopped is a safe no-op.
func (c *Controller) Stop() {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		return
	}
	if c.mode == Async {
		close(c.stopCh)
		c.wg.Wait()
	}
	c.state.Store(stateStopped)
}

// IsRunning reports whether the controller is in the Running state.
func (c *Controller) IsRunning() bool {
	return c.state.Load() == stateRunning
}

// Notify is called after every publish. In Sync mode it runs a
// dispatch cycle inline on the calling goroutine. In Async mode it
// wakes the worker loop without blocking the publisher.
func (c *Controller) Notify(now time.Time) {
	switch c.mode {
	case Sync:
		if c.state.Load() == stateRunning {
			c.runCycle(now)
		}
	case Async:
		select {
		case c.notifyCh <- struct{}{}:
		default:
		}
	}
}

// RunCycle forces one dispatch-policy evaluation at now, regardless of
// execution mode. EventBus.Dispatch uses this for its on-demand drain.
func (c *Controller) RunCycle(now time.Time) int {
	return c.runCycle(now)
}

func (c *Controller) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.notifyCh:
		case <-time.After(pollInterval):
		}
		c.runCycle(c.clk.Now())
	}
}

// runCycle evaluates the policy against the current queue depth
// without draining it; only once the policy fires does it poll (and
// thereby remove) the due events, so a not-yet-satisfied Batch/Hybrid
// policy leaves the queue untouched for the next evaluation.
func (c *Controller) runCycle(now time.Time) int {
	size := c.q.Size()
	if !c.strategy.ShouldDispatch(size, now) {
		return 0
	}
	batch := c.q.PollDueEvents(now)
	if len(batch) == 0 {
		return 0
	}
	c.dispatcher.Dispatch(batch)
	c.strategy.RecordDispatch(now)
	c.log.Debug("dispatch cycle fired", "count", len(batch), "policy", c.strategy.Policy().String())
	return len(batch)
}
