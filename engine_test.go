package engine_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/xiaoyu21git/astockquant"
	"github.com/xiaoyu21git/astockquant/event"
)

type recordingListener struct {
	mu     sync.Mutex
	states []engine.State
	errs   []error
}

func (r *recordingListener) OnStateChanged(_, new engine.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, new)
}
func (r *recordingListener) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}
func (r *recordingListener) OnStatisticsUpdated(engine.Statistics) {}

func (r *recordingListener) snapshot() []engine.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]engine.State, len(r.states))
	copy(out, r.states)
	return out
}

func TestEngineLifecycleHappyPath(t *testing.T) {
	e := engine.New(nil)
	l := &recordingListener{}
	e.RegisterListener(l)

	cfg := engine.DefaultConfig()
	require.NoError(t, e.Initialize(cfg))
	assert.Equal(t, engine.StateInitialized, e.State())

	require.NoError(t, e.Start())
	assert.Equal(t, engine.StateRunning, e.State())

	require.NoError(t, e.Pause())
	assert.Equal(t, engine.StatePaused, e.State())

	require.NoError(t, e.Resume())
	assert.Equal(t, engine.StateRunning, e.State())

	require.NoError(t, e.Stop())
	assert.Equal(t, engine.StateStopped, e.State())

	assert.Contains(t, l.snapshot(), engine.StateRunning)
	assert.Contains(t, l.snapshot(), engine.StatePaused)
}

func TestEngineStopIsIdempotent(t *testing.T) {
	e := engine.New(nil)
	require.NoError(t, e.Initialize(engine.DefaultConfig()))
	require.NoError(t, e.Start())

	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
	assert.Equal(t, engine.StateStopped, e.State())
}

func TestEngineRejectsInvalidTransition(t *testing.T) {
	e := engine.New(nil)
	err := e.Start() // Created -> Starting is not a valid edge
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

func TestEngineBacktestReplayIsTimeOrdered(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(100 * time.Second)

	e := engine.New(nil)
	cfg := engine.DefaultConfig()
	cfg.Mode = "backtest"
	cfg.Backtest.StartTime = start
	cfg.Backtest.EndTime = end
	cfg.Backtest.Step = time.Second
	require.NoError(t, e.Initialize(cfg))

	var mu sync.Mutex
	var delivered []time.Time
	_, err := e.Bus().Subscribe(func(ev event.Event) {
		mu.Lock()
		delivered = append(delivered, ev.Timestamp)
		mu.Unlock()
	}, event.MarketData)
	require.NoError(t, err)

	for _, offset := range []int{50, 10, 30, 20, 40} {
		e.ScheduleEvent(event.New(event.MarketData, start.Add(time.Duration(offset)*time.Second), "bar", nil, nil))
	}

	require.NoError(t, e.Start())
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 5
	}, 2*time.Second, 5*time.Millisecond)
	_ = e.Stop()

	mu.Lock()
	defer mu.Unlock()
	want := []int{10, 20, 30, 40, 50}
	require.Len(t, delivered, len(want))
	for i, offset := range want {
		assert.Equal(t, start.Add(time.Duration(offset)*time.Second), delivered[i])
	}
}

func TestEngineAutoStopsAtBacktestEnd(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Second)

	e := engine.New(nil)
	cfg := engine.DefaultConfig()
	cfg.Mode = "backtest"
	cfg.Backtest.StartTime = start
	cfg.Backtest.EndTime = end
	cfg.Backtest.Step = time.Second
	require.NoError(t, e.Initialize(cfg))

	e.ScheduleEvent(event.New(event.System, end, "last", nil, nil))
	require.NoError(t, e.Start())

	require.Eventually(t, func() bool { return e.State() == engine.StateStopped }, 2*time.Second, 5*time.Millisecond)
}

func TestRegisterDataSourceDuplicateRejected(t *testing.T) {
	e := engine.New(nil)
	require.NoError(t, e.Initialize(engine.DefaultConfig()))

	require.NoError(t, e.RegisterDataSource(fakeSource{"feed"}))
	err := e.RegisterDataSource(fakeSource{"feed"})
	assert.ErrorIs(t, err, engine.ErrAlreadyExists)

	_, ok := e.FindDataSource("feed")
	assert.True(t, ok)

	require.NoError(t, e.UnregisterDataSource("feed"))
	_, ok = e.FindDataSource("feed")
	assert.False(t, ok)
}

type fakeSource struct{ name string }

func (f fakeSource) Name() string                          { return f.name }
func (f fakeSource) URI() string                           { return "mem://" + f.name }
func (f fakeSource) State() engine.DataSourceState          { return engine.Connected }
func (f fakeSource) Connect() error                         { return nil }
func (f fakeSource) Disconnect() error                      { return nil }
func (f fakeSource) Poll() error                            { return nil }
func (f fakeSource) RegisterListener(engine.DataListener)   {}
func (f fakeSource) UnregisterListener(engine.DataListener) {}
func (f fakeSource) SetPollInterval(time.Duration)          {}
