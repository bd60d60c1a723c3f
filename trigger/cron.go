package trigger

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	engine "github.com/xiaoyu21git/astockquant"
	"github.com/xiaoyu21git/astockquant/event"
)

// CronCondition fires once per cron-schedule boundary crossed, tracked
// against the now instant passed to Check rather than read from the
// wall clock, so it behaves correctly under a Backtest clock replaying
// historical events (the engine passes its clock time, which there is
// the replayed event's timestamp). The event itself is not consulted. Grounded on the scheduler's use of
// github.com/robfig/cron/v3 to parse and evaluate cron expressions.
type CronCondition struct {
	schedule cron.Schedule

	mu       sync.Mutex
	nextFire time.Time
}

// NewCronCondition parses expr (standard five-field cron syntax, or a
// "@every <duration>" descriptor) and seeds the first firing boundary
// after start.
func NewCronCondition(expr string, start time.Time) (*CronCondition, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, err
	}
	return &CronCondition{schedule: sched, nextFire: sched.Next(start)}, nil
}

// Check reports whether now has reached or passed the next scheduled
// boundary; if so it advances the boundary past now before returning.
func (c *CronCondition) Check(_ event.Event, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.Before(c.nextFire) {
		return false
	}
	for !now.Before(c.nextFire) {
		c.nextFire = c.schedule.Next(c.nextFire)
	}
	return true
}

var _ engine.TriggerCondition = (*CronCondition)(nil)

// NewCronTrigger returns a Basic trigger whose condition fires on
// expr's cron schedule (evaluated against the now instant passed to
// Evaluate) and whose action is action.
func NewCronTrigger(expr string, start time.Time, action engine.TriggerAction) (*Basic, error) {
	cond, err := NewCronCondition(expr, start)
	if err != nil {
		return nil, err
	}
	return New(cond, action), nil
}
