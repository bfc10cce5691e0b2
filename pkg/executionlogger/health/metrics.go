// Package health tracks the pipeline's runtime health: success/failure
// counters, queue depth and breaker state gauges, and uptime.
package health

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is an independent copy of the metrics at a point in time.
// Mutating a Snapshot must never affect a later call to Metrics.Snapshot.
type Snapshot struct {
	SuccessCount  int64
	FailureCount  int64
	QueueDepth    int64
	BreakerState  string
	Uptime        time.Duration
	LastSuccess   *time.Time
	LastFailure   *time.Time
}

// Metrics holds the pipeline's monotonic counters and point-in-time
// gauges. All mutators are safe for concurrent use.
type Metrics struct {
	successCount int64
	failureCount int64
	queueDepth   int64

	mu           sync.RWMutex
	breakerState string
	lastSuccess  *time.Time
	lastFailure  *time.Time

	startTime time.Time
	now       func() time.Time
}

// New creates a Metrics value with the uptime clock started now.
func New() *Metrics {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Metrics value with an overridden time source,
// for deterministic tests.
func NewWithClock(now func() time.Time) *Metrics {
	return &Metrics{
		startTime:    now(),
		now:          now,
		breakerState: "closed",
	}
}

// RecordSuccess increments the success counter and stamps lastSuccess.
func (m *Metrics) RecordSuccess() {
	atomic.AddInt64(&m.successCount, 1)
	now := m.now()
	m.mu.Lock()
	m.lastSuccess = &now
	m.mu.Unlock()
}

// RecordFailure increments the failure counter and stamps lastFailure.
func (m *Metrics) RecordFailure() {
	atomic.AddInt64(&m.failureCount, 1)
	now := m.now()
	m.mu.Lock()
	m.lastFailure = &now
	m.mu.Unlock()
}

// SetQueueDepth sets the queue-depth gauge. Negative values are rejected
// and ignored (the gauge retains its previous value).
func (m *Metrics) SetQueueDepth(depth int) {
	if depth < 0 {
		return
	}
	atomic.StoreInt64(&m.queueDepth, int64(depth))
}

// SetBreakerState sets the breaker-state gauge.
func (m *Metrics) SetBreakerState(state string) {
	m.mu.Lock()
	m.breakerState = state
	m.mu.Unlock()
}

// Snapshot returns an independent copy of the current metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		SuccessCount: atomic.LoadInt64(&m.successCount),
		FailureCount: atomic.LoadInt64(&m.failureCount),
		QueueDepth:   atomic.LoadInt64(&m.queueDepth),
		BreakerState: m.breakerState,
		Uptime:       m.now().Sub(m.startTime),
	}
	if m.lastSuccess != nil {
		t := *m.lastSuccess
		s.LastSuccess = &t
	}
	if m.lastFailure != nil {
		t := *m.lastFailure
		s.LastFailure = &t
	}
	return s
}

// Reset zeroes the counters and gauges for tests. Uptime is
// intentionally not reset: it is tied to process lifetime, not to the
// metrics object's own history.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.successCount, 0)
	atomic.StoreInt64(&m.failureCount, 0)
	atomic.StoreInt64(&m.queueDepth, 0)
	m.mu.Lock()
	m.breakerState = "closed"
	m.lastSuccess = nil
	m.lastFailure = nil
	m.mu.Unlock()
}
