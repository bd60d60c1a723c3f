package subscription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xiaoyu21git/astockquant/event"
	"github.com/xiaoyu21git/astockquant/subscription"
)

func TestAddAndSubscribers(t *testing.T) {
	m := subscription.NewManager()
	id := m.Add([]event.Type{event.MarketData, event.Signal}, func(event.Event) {}, false)

	assert.NotEmpty(t, id)
	assert.Len(t, m.Subscribers(event.MarketData), 1)
	assert.Len(t, m.Subscribers(event.Signal), 1)
	assert.Empty(t, m.Subscribers(event.Alert))
	assert.Equal(t, 1, m.Count())
}

func TestRemoveUnknownID(t *testing.T) {
	m := subscription.NewManager()
	assert.False(t, m.Remove("does-not-exist"))
}

func TestRemoveDropsFromAllTypes(t *testing.T) {
	m := subscription.NewManager()
	id := m.Add([]event.Type{event.MarketData, event.Signal}, func(event.Event) {}, false)

	assert.True(t, m.Remove(id))
	assert.Empty(t, m.Subscribers(event.MarketData))
	assert.Empty(t, m.Subscribers(event.Signal))
	assert.Zero(t, m.Count())
}

func TestSubscribersSnapshotIsIndependent(t *testing.T) {
	m := subscription.NewManager()
	m.Add([]event.Type{event.System}, func(event.Event) {}, false)

	snap := m.Subscribers(event.System)
	m.Add([]event.Type{event.System}, func(event.Event) {}, false)

	assert.Len(t, snap, 1, "snapshot taken before the second Add must not observe it")
	assert.Len(t, m.Subscribers(event.System), 2)
}

func TestClearRemovesEverything(t *testing.T) {
	m := subscription.NewManager()
	m.Add([]event.Type{event.System}, func(event.Event) {}, false)
	m.Clear()
	assert.Zero(t, m.Count())
	assert.Empty(t, m.Subscribers(event.System))
}
