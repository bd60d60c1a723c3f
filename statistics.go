package engine

import (
	"sync/atomic"
	"time"
)

// Statistics is a point-in-time snapshot of EngineStatistics, safe to
// copy and hand to a listener.
type Statistics struct {
	EventsProcessed uint64
	TriggersFired   uint64
	Errors          uint64
	StartTime       time.Time
	LastUpdate      time.Time
}

// statistics holds the live, concurrently-updated counters. All fields
// are updated with atomic operations so the hot path of the event loop
// never blocks on them.
type statistics struct {
	eventsProcessed atomic.Uint64
	triggersFired   atomic.Uint64
	errors          atomic.Uint64
	startTime       time.Time
	lastUpdate      atomic.Int64 // unix nanos
}

func newStatistics(start time.Time) *statistics {
	s := &statistics{startTime: start}
	s.lastUpdate.Store(start.UnixNano())
	return s
}

func (s *statistics) incEventsProcessed(now time.Time) {
	s.eventsProcessed.Add(1)
	s.lastUpdate.Store(now.UnixNano())
}

func (s *statistics) incTriggersFired(now time.Time) {
	s.triggersFired.Add(1)
	s.lastUpdate.Store(now.UnixNano())
}

func (s *statistics) incErrors(now time.Time) {
	s.errors.Add(1)
	s.lastUpdate.Store(now.UnixNano())
}

func (s *statistics) snapshot() Statistics {
	return Statistics{
		EventsProcessed: s.eventsProcessed.Load(),
		TriggersFired:   s.triggersFired.Load(),
		Errors:          s.errors.Load(),
		StartTime:       s.startTime,
		LastUpdate:      time.Unix(0, s.lastUpdate.Load()),
	}
}
