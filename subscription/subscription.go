// Package subscription maps event types to the subscribers listening
// for them, under a single readers-writer lock.
package subscription

import (
	"sync"

	"github.com/google/uuid"

	"github.com/xiaoyu21git/astockquant/event"
)

// Callback receives an independent clone of a dispatched event. It must
// not retain the underlying map/payload pointers beyond its own use if
// it wants isolation guarantees to hold for its own later mutations.
type Callback func(e event.Event)

// Subscriber is one registered callback plus the identity used to
// remove it later.
type Subscriber struct {
	ID       string
	Types    map[event.Type]struct{}
	Callback Callback
	Async    bool
}

// Manager maps event.Type to its ordered list of subscribers. Reads
// (dispatch lookups) take a shared lock and return a snapshot so
// callbacks never run while the lock is held.
type Manager struct {
	mu   sync.RWMutex
	byType map[event.Type][]*Subscriber
	byID   map[string]*Subscriber
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		byType: make(map[event.Type][]*Subscriber),
		byID:   make(map[string]*Subscriber),
	}
}

// Add registers cb against every type in types, returning a fresh
// subscription id. async marks the subscription as created via
// SubscribeAsync and is reported in Subscriber.Async.
func (m *Manager) Add(types []event.Type, cb Callback, async bool) string {
	id := uuid.NewString()
	typeSet := make(map[event.Type]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}
	sub := &Subscriber{ID: id, Types: typeSet, Callback: cb, Async: async}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = sub
	for t := range typeSet {
		m.byType[t] = append(m.byType[t], sub)
	}
	return id
}

// Remove deletes the subscription with the given id from every type
// list it appears in. Reports whether a subscription was found.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(m.byID, id)
	for t := range sub.Types {
		list := m.byType[t]
		for i, s := range list {
			if s.ID == id {
				m.byType[t] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	return true
}

// Subscribers returns a snapshot copy of the subscriber list for t, in
// registration order. Safe to iterate after the call returns without
// holding any lock.
func (m *Manager) Subscribers(t event.Type) []*Subscriber {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.byType[t]
	out := make([]*Subscriber, len(src))
	copy(out, src)
	return out
}

// Count returns the total number of distinct subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Clear removes every subscription.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byType = make(map[event.Type][]*Subscriber)
	m.byID = make(map[string]*Subscriber)
}
