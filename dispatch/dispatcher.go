package dispatch

import (
	"fmt"

	"github.com/xiaoyu21git/astockquant/event"
	"github.com/xiaoyu21git/astockquant/logging"
	"github.com/xiaoyu21git/astockquant/subscription"
)

// Executor posts a unit of work for asynchronous execution. A nil
// Executor means per-subscriber delivery runs inline on the calling
// goroutine.
type Executor interface {
	Submit(fn func())
}

// Dispatcher delivers a batch of events to the subscribers registered
// in a subscription.Manager, isolating each subscriber from the
// others' failures.
type Dispatcher struct {
	subs     *subscription.Manager
	log      logging.Logger
	executor Executor
	rotate   bool
	counter  uint64
}

// New returns a Dispatcher reading subscribers from subs. log may be
// nil (defaults to a no-op logger).
func New(subs *subscription.Manager, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Noop()
	}
	return &Dispatcher{subs: subs, log: log}
}

// SetExecutor installs an Executor used to fan out per-subscriber
// invocations. Pass nil to return to inline delivery.
func (d *Dispatcher) SetExecutor(e Executor) { d.executor = e }

// SetLogger replaces the logger used for panic-recovery diagnostics.
// nil resets it to a no-op logger.
func (d *Dispatcher) SetLogger(log logging.Logger) {
	if log == nil {
		log = logging.Noop()
	}
	d.log = log
}

// SetRotateSubscribers enables round-robin starting-offset rotation:
// each dispatched event starts delivery one subscriber further along
// its type's subscriber list, so no single subscriber is always invoked
// (or submitted to the executor) first. It does not change the order in
// which events reach any one subscriber.
func (d *Dispatcher) SetRotateSubscribers(enabled bool) { d.rotate = enabled }

// Dispatch delivers every event in batch, in order, to its type's
// subscribers. A panicking callback is recovered, logged, and does not
// prevent delivery to the remaining subscribers or events.
func (d *Dispatcher) Dispatch(batch []event.Event) {
	for _, e := range batch {
		d.dispatchOne(e)
	}
}

func (d *Dispatcher) dispatchOne(e event.Event) {
	subs := d.subs.Subscribers(e.Type)
	if len(subs) == 0 {
		return
	}
	start := 0
	if d.rotate && len(subs) > 0 {
		d.counter++
		start = int(d.counter % uint64(len(subs)))
	}

	for i := range subs {
		sub := subs[(start+i)%len(subs)]
		clone := e.Clone()
		if d.executor != nil {
			d.executor.Submit(func() { d.invoke(sub, clone) })
		} else {
			d.invoke(sub, clone)
		}
	}
}

func (d *Dispatcher) invoke(sub *subscription.Subscriber, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("subscriber callback panicked", "subscription_id", sub.ID, "event_id", e.ID, "recovered", fmt.Sprint(r))
		}
	}()
	sub.Callback(e)
}
