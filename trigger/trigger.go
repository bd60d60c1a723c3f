// Package trigger provides concrete engine.Trigger implementations: a
// Basic condition+action pair, and a cron-scheduled condition built on
// github.com/robfig/cron/v3.
package trigger

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	engine "github.com/xiaoyu21git/astockquant"
	"github.com/xiaoyu21git/astockquant/event"
)

// ConditionFunc adapts a plain function to engine.TriggerCondition.
type ConditionFunc func(e event.Event, now time.Time) bool

func (f ConditionFunc) Check(e event.Event, now time.Time) bool { return f(e, now) }

// ActionFunc adapts a plain function to engine.TriggerAction.
type ActionFunc func(e event.Event, now time.Time) error

func (f ActionFunc) Execute(e event.Event, now time.Time) error { return f(e, now) }

// Basic is an engine.Trigger pairing one condition with one action,
// enabled by default.
type Basic struct {
	id        string
	condition engine.TriggerCondition
	action    engine.TriggerAction
	enabled   atomic.Bool
}

// New returns an enabled Basic trigger with a fresh id.
func New(condition engine.TriggerCondition, action engine.TriggerAction) *Basic {
	t := &Basic{id: uuid.NewString(), condition: condition, action: action}
	t.enabled.Store(true)
	return t
}

func (t *Basic) ID() string { return t.id }

// Evaluate checks the condition and, if it holds, runs the action.
// fired reports whether the condition held, independent of whether the
// action itself errored.
func (t *Basic) Evaluate(e event.Event, now time.Time) (fired bool, err error) {
	if !t.condition.Check(e, now) {
		return false, nil
	}
	return true, t.action.Execute(e, now)
}

func (t *Basic) SetEnabled(enabled bool) { t.enabled.Store(enabled) }
func (t *Basic) Enabled() bool           { return t.enabled.Load() }

var _ engine.Trigger = (*Basic)(nil)
