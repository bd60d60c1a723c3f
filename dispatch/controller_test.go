package dispatch_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaoyu21git/astockquant/clock"
	"github.com/xiaoyu21git/astockquant/dispatch"
	"github.com/xiaoyu21git/astockquant/event"
	"github.com/xiaoyu21git/astockquant/queue"
	"github.com/xiaoyu21git/astockquant/subscription"
)

func TestSyncControllerDispatchesImmediatelyInPublishOrder(t *testing.T) {
	q := queue.New()
	subs := subscription.NewManager()
	var order []string
	subs.Add([]event.Type{event.System}, func(e event.Event) { order = append(order, e.Source) }, false)

	d := dispatch.New(subs, nil)
	clk := clock.NewRealtimeClock()
	strategy := dispatch.NewStrategy(dispatch.NewImmediate(), clk.Now())
	ctl := dispatch.NewController(dispatch.Sync, q, strategy, d, clk, nil)
	ctl.Start()

	q.Enqueue(event.New(event.System, time.Now(), "e1", nil, nil))
	ctl.Notify(clk.Now())
	q.Enqueue(event.New(event.System, time.Now(), "e2", nil, nil))
	ctl.Notify(clk.Now())

	assert.Equal(t, []string{"e1", "e2"}, order)
}

func TestBatchPolicyAccumulatesThenFires(t *testing.T) {
	q := queue.New()
	subs := subscription.NewManager()
	var count int64
	subs.Add([]event.Type{event.MarketData}, func(event.Event) { atomic.AddInt64(&count, 1) }, false)

	d := dispatch.New(subs, nil)
	clk := clock.NewRealtimeClock()
	strategy := dispatch.NewStrategy(dispatch.NewBatch(3), clk.Now())
	ctl := dispatch.NewController(dispatch.Sync, q, strategy, d, clk, nil)
	ctl.Start()

	q.Enqueue(event.New(event.MarketData, time.Now(), "a", nil, nil))
	ctl.Notify(clk.Now())
	q.Enqueue(event.New(event.MarketData, time.Now(), "b", nil, nil))
	ctl.Notify(clk.Now())
	assert.Zero(t, atomic.LoadInt64(&count), "only 2 of 3 queued, must not fire yet")

	q.Enqueue(event.New(event.MarketData, time.Now(), "c", nil, nil))
	ctl.Notify(clk.Now())
	assert.Equal(t, int64(3), atomic.LoadInt64(&count))
}

func TestAsyncControllerWorkerDrainsQueueThenStops(t *testing.T) {
	q := queue.New()
	subs := subscription.NewManager()
	var delivered int64
	subs.Add([]event.Type{event.Signal}, func(event.Event) {
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&delivered, 1)
	}, false)

	d := dispatch.New(subs, nil)
	clk := clock.NewRealtimeClock()
	strategy := dispatch.NewStrategy(dispatch.NewImmediate(), clk.Now())
	ctl := dispatch.NewController(dispatch.Async, q, strategy, d, clk, nil)
	ctl.Start()

	for i := 0; i < 20; i++ {
		q.Enqueue(event.New(event.Signal, time.Now(), "src", nil, nil))
		ctl.Notify(clk.Now())
	}
	// give the worker a chance to drain before stop
	require.Eventually(t, func() bool { return q.Size() == 0 }, time.Second, time.Millisecond)
	ctl.Stop()

	assert.False(t, ctl.IsRunning())
}

func TestControllerStartStopIdempotent(t *testing.T) {
	q := queue.New()
	subs := subscription.NewManager()
	d := dispatch.New(subs, nil)
	clk := clock.NewRealtimeClock()
	strategy := dispatch.NewStrategy(dispatch.NewImmediate(), clk.Now())
	ctl := dispatch.NewController(dispatch.Async, q, strategy, d, clk, nil)

	ctl.Start()
	ctl.Start()
	assert.True(t, ctl.IsRunning())

	ctl.Stop()
	ctl.Stop()
	assert.False(t, ctl.IsRunning())
}
