// Package queue implements the engine's event queue: an immediate FIFO
// plus a time-scheduled min-heap under one lock. It never blocks beyond
// its critical section — the dispatch controller owns the wakeup wait.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/xiaoyu21git/astockquant/event"
)

// delayedEntry is one node of the scheduled-time min-heap.
type delayedEntry struct {
	event event.Event
	due   time.Time
	index int
}

// delayedHeap implements container/heap.Interface ordered by due time.
type delayedHeap []*delayedEntry

func (h delayedHeap) Len() int            { return len(h) }
func (h delayedHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h delayedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *delayedHeap) Push(x interface{}) {
	e := x.(*delayedEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *delayedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue holds immediate (FIFO) and delayed (min-heap by scheduled
// time) events under a single mutex.
type Queue struct {
	mu        sync.Mutex
	immediate []event.Event
	delayed   delayedHeap
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends e to the immediate FIFO.
func (q *Queue) Enqueue(e event.Event) {
	q.mu.Lock()
	q.immediate = append(q.immediate, e)
	q.mu.Unlock()
}

// EnqueueDelayed schedules e to become due at t.
func (q *Queue) EnqueueDelayed(e event.Event, t time.Time) {
	q.mu.Lock()
	heap.Push(&q.delayed, &delayedEntry{event: e, due: t})
	q.mu.Unlock()
}

// PollDueEvents drains all immediate entries in FIFO order, then all
// delayed entries whose scheduled time is <= now, in scheduled-time
// order. A delayed entry cannot become due before its scheduled
// instant, so across successive polls global time order is preserved.
func (q *Queue) PollDueEvents(now time.Time) []event.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]event.Event, 0, len(q.immediate))
	out = append(out, q.immediate...)
	q.immediate = q.immediate[:0]

	for q.delayed.Len() > 0 && !q.delayed[0].due.After(now) {
		e := heap.Pop(&q.delayed).(*delayedEntry)
		out = append(out, e.event)
	}
	return out
}

// Size returns the combined count of immediate and delayed entries.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.immediate) + q.delayed.Len()
}

// Clear discards every queued entry, immediate and delayed.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.immediate = nil
	q.delayed = nil
	q.mu.Unlock()
}
