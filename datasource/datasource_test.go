package datasource_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engine "github.com/xiaoyu21git/astockquant"
	"github.com/xiaoyu21git/astockquant/datasource"
	"github.com/xiaoyu21git/astockquant/event"
)

type recordingListener struct {
	states []engine.DataSourceState
	events []event.Event
}

func (r *recordingListener) OnStateChanged(_, new engine.DataSourceState) {
	r.states = append(r.states, new)
}
func (r *recordingListener) OnEvent(e event.Event) { r.events = append(r.events, e) }

func TestStaticSourceRequiresConnectBeforePoll(t *testing.T) {
	ds := datasource.NewStatic("feed", "mem://feed", []event.Event{
		event.New(event.MarketData, time.Now(), "feed", nil, nil),
	})
	l := &recordingListener{}
	ds.RegisterListener(l)

	assert.ErrorIs(t, ds.Poll(), engine.ErrDisconnected)
	assert.Empty(t, l.events, "poll before connect must not emit")

	require.NoError(t, ds.Connect())
	assert.Equal(t, engine.Connected, ds.State())

	require.NoError(t, ds.Poll())
	assert.Len(t, l.events, 1)
}

func TestStaticSourceReplaysInOrderThenStops(t *testing.T) {
	ds := datasource.NewStatic("feed", "mem://feed", []event.Event{
		event.New(event.MarketData, time.Now(), "1", nil, nil),
		event.New(event.MarketData, time.Now(), "2", nil, nil),
	})
	l := &recordingListener{}
	ds.RegisterListener(l)
	require.NoError(t, ds.Connect())

	require.NoError(t, ds.Poll())
	require.NoError(t, ds.Poll())
	require.NoError(t, ds.Poll())

	require.Len(t, l.events, 2)
	assert.Equal(t, "1", l.events[0].Source)
	assert.Equal(t, "2", l.events[1].Source)
}

func TestStaticSourceStateTransitions(t *testing.T) {
	ds := datasource.NewStatic("feed", "mem://feed", nil)
	l := &recordingListener{}
	ds.RegisterListener(l)

	require.NoError(t, ds.Connect())
	require.NoError(t, ds.Disconnect())

	assert.Equal(t, []engine.DataSourceState{engine.Connecting, engine.Connected, engine.Disconnected}, l.states)
}
