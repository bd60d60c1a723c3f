// Package datasource provides a single in-memory engine.DataSource
// implementation used to exercise the Engine's registration, lookup,
// and poll machinery in tests. Concrete market-data sources are out of
// scope (spec Non-goals) — this package exists only to give the
// collaborator contract a body.
package datasource

import (
	"sync"
	"time"

	engine "github.com/xiaoyu21git/astockquant"
	"github.com/xiaoyu21git/astockquant/event"
)

// Static is an in-memory engine.DataSource that replays a fixed slice
// of events, one per Poll call. Grounded on the original IDataSource.h
// contract (connect/disconnect/poll/state/name/uri).
type Static struct {
	name string
	uri  string

	mu           sync.Mutex
	state        engine.DataSourceState
	pending      []event.Event
	pollInterval time.Duration
	listeners    []engine.DataListener
}

// NewStatic returns a disconnected Static source named name, replaying
// events in order as Poll is called.
func NewStatic(name, uri string, events []event.Event) *Static {
	return &Static{
		name:    name,
		uri:     uri,
		state:   engine.Disconnected,
		pending: append([]event.Event(nil), events...),
	}
}

func (s *Static) Name() string { return s.name }
func (s *Static) URI() string  { return s.uri }

func (s *Static) State() engine.DataSourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Static) Connect() error {
	s.setState(engine.Connecting)
	s.setState(engine.Connected)
	return nil
}

func (s *Static) Disconnect() error {
	s.setState(engine.Disconnected)
	return nil
}

// Poll emits the next pending event, if any, to every registered
// listener. It returns engine.ErrDisconnected when the source is not
// connected.
func (s *Static) Poll() error {
	s.mu.Lock()
	if s.state != engine.Connected {
		s.mu.Unlock()
		return engine.ErrDisconnected
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil
	}
	e := s.pending[0]
	s.pending = s.pending[1:]
	listeners := append([]engine.DataListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnEvent(e)
	}
	return nil
}

func (s *Static) RegisterListener(l engine.DataListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Static) UnregisterListener(l engine.DataListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.listeners {
		if x == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Static) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollInterval = d
}

// PollInterval returns the last interval set via SetPollInterval.
func (s *Static) PollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollInterval
}

func (s *Static) setState(to engine.DataSourceState) {
	s.mu.Lock()
	old := s.state
	s.state = to
	listeners := append([]engine.DataListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnStateChanged(old, to)
	}
}

var _ engine.DataSource = (*Static)(nil)
