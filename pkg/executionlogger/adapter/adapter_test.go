package adapter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
)

type fakeIngester struct {
	mu   sync.Mutex
	recs []record.ExecutionRecord
	done chan struct{}
}

func newFakeIngester() *fakeIngester {
	return &fakeIngester{done: make(chan struct{}, 10)}
}

func (f *fakeIngester) Ingest(_ context.Context, rec record.ExecutionRecord) {
	f.mu.Lock()
	f.recs = append(f.recs, rec)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fakeIngester) waitOne(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for async Ingest call")
	}
}

func hookContext(executionID string) HookContext {
	return HookContext{
		ExecutionID: executionID,
		Workflow:    record.Workflow{ID: "wf1", Name: "demo"},
		Mode:        record.ModeManual,
		StartedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAdapter_OnStartDispatchesStartedEventAsynchronously(t *testing.T) {
	fi := newFakeIngester()
	a := New(fi)

	a.onStart(context.Background(), hookContext("exec-1"))
	fi.waitOne(t)

	fi.mu.Lock()
	defer fi.mu.Unlock()
	if len(fi.recs) != 1 {
		t.Fatalf("recs = %d, want 1", len(fi.recs))
	}
	if fi.recs[0].Event != record.EventStarted {
		t.Errorf("event = %q, want Started", fi.recs[0].Event)
	}
}

func TestAdapter_OnFinishBranchesOnRunStatus(t *testing.T) {
	cases := []struct {
		status string
		want   record.EventType
	}{
		{"success", record.EventCompleted},
		{"canceled", record.EventCancelled},
		{"cancelled", record.EventCancelled},
		{"error", record.EventFailed},
		{"crashed", record.EventFailed},
	}

	for _, tc := range cases {
		fi := newFakeIngester()
		a := New(fi)

		hc := hookContext("exec-1")
		hc.Run = &record.RunSummary{Status: tc.status}
		a.onFinish(context.Background(), hc)
		fi.waitOne(t)

		fi.mu.Lock()
		got := fi.recs[0].Event
		fi.mu.Unlock()
		if got != tc.want {
			t.Errorf("status %q: event = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestAdapter_OnFinishWithoutRunSummaryDefaultsToFailed(t *testing.T) {
	fi := newFakeIngester()
	a := New(fi)

	a.onFinish(context.Background(), hookContext("exec-1"))
	fi.waitOne(t)

	fi.mu.Lock()
	defer fi.mu.Unlock()
	if fi.recs[0].Event != record.EventFailed {
		t.Errorf("event = %q, want Failed", fi.recs[0].Event)
	}
}

type fakeRegistry struct {
	handlers map[string]HookFunc
}

func (r *fakeRegistry) AddHandler(name string, handler HookFunc) {
	if r.handlers == nil {
		r.handlers = make(map[string]HookFunc)
	}
	r.handlers[name] = handler
}

func TestAdapter_RegisterBindsBothHookNames(t *testing.T) {
	fi := newFakeIngester()
	a := New(fi)
	reg := &fakeRegistry{}

	a.Register(reg)

	if _, ok := reg.handlers[HookWorkflowExecuteBefore]; !ok {
		t.Error("workflowExecuteBefore not registered")
	}
	if _, ok := reg.handlers[HookWorkflowExecuteAfter]; !ok {
		t.Error("workflowExecuteAfter not registered")
	}
}

type fakeLifecycle struct {
	mu            sync.Mutex
	initCalls     int
	shutdownCalls int
}

func (f *fakeLifecycle) Initialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return nil
}

func (f *fakeLifecycle) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdownCalls++
	return nil
}

type fakeConfigured struct {
	configured bool
}

func (f fakeConfigured) KafkaConfigured() bool { return f.configured }

func TestService_StartStaysDormantWhenNotConfigured(t *testing.T) {
	fl := &fakeLifecycle{}
	svc := NewService(fl, fakeConfigured{configured: false})

	svc.onServerStarted(context.Background())

	if fl.initCalls != 0 {
		t.Errorf("initCalls = %d, want 0", fl.initCalls)
	}
}

func TestService_StartInitializesWhenConfigured(t *testing.T) {
	fl := &fakeLifecycle{}
	svc := NewService(fl, fakeConfigured{configured: true})

	svc.onServerStarted(context.Background())

	if fl.initCalls != 1 {
		t.Errorf("initCalls = %d, want 1", fl.initCalls)
	}
}

func TestService_RepeatedSignalsAreIdempotent(t *testing.T) {
	fl := &fakeLifecycle{}
	svc := NewService(fl, fakeConfigured{configured: true})

	svc.onServerStarted(context.Background())
	svc.onServerStarted(context.Background())
	svc.onShutdown(context.Background())
	svc.onShutdown(context.Background())

	if fl.initCalls != 1 {
		t.Errorf("initCalls = %d, want 1", fl.initCalls)
	}
	if fl.shutdownCalls != 1 {
		t.Errorf("shutdownCalls = %d, want 1", fl.shutdownCalls)
	}
}

func TestService_ShutdownBeforeStartIsNoop(t *testing.T) {
	fl := &fakeLifecycle{}
	svc := NewService(fl, fakeConfigured{configured: true})

	svc.onShutdown(context.Background())

	if fl.shutdownCalls != 0 {
		t.Errorf("shutdownCalls = %d, want 0", fl.shutdownCalls)
	}
}
