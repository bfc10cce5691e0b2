package health

import (
	"testing"
	"time"
)

func TestMetrics_SnapshotIsIndependentCopy(t *testing.T) {
	m := New()
	m.RecordSuccess()

	s1 := m.Snapshot()
	s1.SuccessCount = 999
	s1.BreakerState = "mutated"

	s2 := m.Snapshot()
	if s2.SuccessCount != 1 {
		t.Errorf("success count leaked mutation: %d", s2.SuccessCount)
	}
	if s2.BreakerState == "mutated" {
		t.Error("breaker state leaked mutation")
	}
}

func TestMetrics_RejectsNegativeQueueDepth(t *testing.T) {
	m := New()
	m.SetQueueDepth(5)
	m.SetQueueDepth(-1)

	if got := m.Snapshot().QueueDepth; got != 5 {
		t.Errorf("queue depth = %d, want 5 (negative write rejected)", got)
	}
}

func TestMetrics_ResetDoesNotTouchUptime(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cur := start
	m := NewWithClock(func() time.Time { return cur })

	m.RecordSuccess()
	m.RecordFailure()
	m.SetQueueDepth(10)

	cur = start.Add(5 * time.Minute)
	before := m.Snapshot().Uptime

	m.Reset()
	after := m.Snapshot()

	if after.SuccessCount != 0 || after.FailureCount != 0 || after.QueueDepth != 0 {
		t.Errorf("Reset left non-zero counters: %+v", after)
	}
	if after.Uptime != before {
		t.Errorf("Reset changed uptime: before=%v after=%v", before, after.Uptime)
	}
}

func TestMetrics_LastSuccessFailureTimestamps(t *testing.T) {
	m := New()
	if s := m.Snapshot(); s.LastSuccess != nil || s.LastFailure != nil {
		t.Fatal("expected nil timestamps before any record")
	}
	m.RecordSuccess()
	if m.Snapshot().LastSuccess == nil {
		t.Error("expected LastSuccess to be set")
	}
	m.RecordFailure()
	if m.Snapshot().LastFailure == nil {
		t.Error("expected LastFailure to be set")
	}
}
