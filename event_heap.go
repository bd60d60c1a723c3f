package engine

import "github.com/xiaoyu21git/astockquant/event"

// eventHeap orders scheduled events by timestamp, earliest first. It
// backs the Engine's priority queue of historical/scheduled events,
// separate from the EventBus's own internal queue.
type eventHeap []event.Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].Timestamp.Before(h[j].Timestamp) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(event.Event)) }
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
