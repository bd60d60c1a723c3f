package dispatch

import (
	"sync/atomic"
	"time"
)

// atomicPolicy stores a Policy behind an atomic.Value so SetPolicy can
// race freely with the controller's read loop.
type atomicPolicy struct {
	v atomic.Value
}

func (a *atomicPolicy) store(p Policy) { a.v.Store(policyBox{p}) }
func (a *atomicPolicy) load() Policy   { return a.v.Load().(policyBox).p }

// policyBox wraps Policy so atomic.Value always sees the same
// concrete type, since Policy implementations differ in underlying type.
type policyBox struct{ p Policy }

// atomicTime stores a time.Time behind an atomic.Value.
type atomicTime struct {
	v atomic.Value
}

func (a *atomicTime) store(t time.Time) { a.v.Store(t) }
func (a *atomicTime) load() time.Time   { return a.v.Load().(time.Time) }
