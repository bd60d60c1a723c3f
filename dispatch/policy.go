package dispatch

import "time"

// Policy decides whether a dispatch cycle should fire given the
// current queue depth and the time of the last dispatch. Policies are
// immutable value types; changing policy means installing a new one.
type Policy interface {
	ShouldDispatch(queueSize int, lastDispatch time.Time, now time.Time) bool
	String() string
}

// immediatePolicy always fires; used when the host wants every
// publish to trigger a drain.
type immediatePolicy struct{}

// NewImmediate returns a Policy that always fires.
func NewImmediate() Policy { return immediatePolicy{} }

func (immediatePolicy) ShouldDispatch(int, time.Time, time.Time) bool { return true }
func (immediatePolicy) String() string                                { return "Immediate" }

// batchPolicy fires once the queue has accumulated at least N entries.
type batchPolicy struct {
	n int
}

// NewBatch returns a Policy that fires when queueSize >= n.
func NewBatch(n int) Policy { return batchPolicy{n: n} }

func (p batchPolicy) ShouldDispatch(queueSize int, _ time.Time, _ time.Time) bool {
	return queueSize >= p.n
}
func (p batchPolicy) String() string { return "Batch" }

// timePolicy fires once at least interval has elapsed since the last
// dispatch, regardless of queue depth.
type timePolicy struct {
	interval time.Duration
}

// NewTime returns a Policy that fires when now-lastDispatch >= d.
func NewTime(d time.Duration) Policy { return timePolicy{interval: d} }

func (p timePolicy) ShouldDispatch(_ int, lastDispatch time.Time, now time.Time) bool {
	return now.Sub(lastDispatch) >= p.interval
}
func (p timePolicy) String() string { return "Time" }

// hybridPolicy fires when either its batch or its time condition holds.
type hybridPolicy struct {
	batch batchPolicy
	tim   timePolicy
}

// NewHybrid returns a Policy firing when queueSize >= n OR
// now-lastDispatch >= d.
func NewHybrid(n int, d time.Duration) Policy {
	return hybridPolicy{batch: batchPolicy{n: n}, tim: timePolicy{interval: d}}
}

func (p hybridPolicy) ShouldDispatch(queueSize int, lastDispatch, now time.Time) bool {
	return p.batch.ShouldDispatch(queueSize, lastDispatch, now) ||
		p.tim.ShouldDispatch(queueSize, lastDispatch, now)
}
func (p hybridPolicy) String() string { return "Hybrid" }

// Strategy holds the currently installed Policy plus the last time a
// dispatch fired. LastDispatch is read by the controller's loop and
// written immediately after a dispatch completes.
type Strategy struct {
	policy       atomicPolicy
	lastDispatch atomicTime
}

// NewStrategy returns a Strategy starting with p and lastDispatch set
// to now.
func NewStrategy(p Policy, now time.Time) *Strategy {
	s := &Strategy{}
	s.policy.store(p)
	s.lastDispatch.store(now)
	return s
}

// SetPolicy atomically replaces the active policy.
func (s *Strategy) SetPolicy(p Policy) { s.policy.store(p) }

// Policy returns the active policy.
func (s *Strategy) Policy() Policy { return s.policy.load() }

// ShouldDispatch evaluates the active policy against queueSize and now.
func (s *Strategy) ShouldDispatch(queueSize int, now time.Time) bool {
	return s.policy.load().ShouldDispatch(queueSize, s.lastDispatch.load(), now)
}

// RecordDispatch stamps now as the most recent dispatch time.
func (s *Strategy) RecordDispatch(now time.Time) { s.lastDispatch.store(now) }
