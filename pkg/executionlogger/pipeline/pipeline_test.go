package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/config"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/queue"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
)

type fakeProducer struct {
	mu         sync.Mutex
	connected  bool
	connectErr error
	sendErr    error
	sent       []record.ExecutionRecord
	sendCalls  int
}

func (f *fakeProducer) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeProducer) Disconnect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeProducer) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeProducer) Send(ctx context.Context, rec record.ExecutionRecord) error {
	return f.SendBatch(ctx, []record.ExecutionRecord{rec})
}

func (f *fakeProducer) SendBatch(_ context.Context, recs []record.ExecutionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, recs...)
	return nil
}

func testConfig(t *testing.T) *config.PipelineConfig {
	t.Helper()
	c := config.Default()
	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.ClientID = "execution-logger"
	c.Kafka.Topic = "n8n.execution.events"
	c.Queue.MaxSize = 5
	c.Queue.BatchSize = 5
	c.Queue.FlushInterval = time.Hour // tests drive Flush manually
	c.FallbackDir = t.TempDir()
	return c
}

func rec(id string) record.ExecutionRecord {
	return record.ExecutionRecord{MessageID: id}
}

func TestIngest_FastPathSendsImmediatelyWhenConnectedAndQueueEmpty(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true}
	svc, err := New(testConfig(t), q, WithProducer(fp))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.enabled.Store(true)

	svc.Ingest(context.Background(), rec("m1"))

	if len(fp.sent) != 1 || fp.sent[0].MessageID != "m1" {
		t.Fatalf("sent = %+v, want one record m1", fp.sent)
	}
	if !q.IsEmpty() {
		t.Error("expected queue to remain empty after fast-path send")
	}
}

func TestIngest_EnqueuesWhenNotConnected(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: false}
	svc, err := New(testConfig(t), q, WithProducer(fp))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	svc.enabled.Store(true)

	svc.Ingest(context.Background(), rec("m1"))

	if fp.sendCalls != 0 {
		t.Errorf("sendCalls = %d, want 0 (should have enqueued, not sent)", fp.sendCalls)
	}
	if q.Size() != 1 {
		t.Errorf("queue size = %d, want 1", q.Size())
	}
}

func TestIngest_DisabledPipelineDropsRecordsSilently(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true}
	svc, err := New(testConfig(t), q, WithProducer(fp))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// enabled defaults false until Initialize runs

	svc.Ingest(context.Background(), rec("m1"))

	if fp.sendCalls != 0 || q.Size() != 0 {
		t.Error("expected no-op ingest while disabled")
	}
}

func TestFlush_NoopWhenQueueEmpty(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true}
	svc, _ := New(testConfig(t), q, WithProducer(fp))
	svc.enabled.Store(true)

	svc.Flush(context.Background())

	if fp.sendCalls != 0 {
		t.Errorf("sendCalls = %d, want 0 for empty queue", fp.sendCalls)
	}
}

func TestFlush_DrainsQueueInBatches(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true}
	cfg := testConfig(t)
	cfg.Queue.BatchSize = 3
	svc, _ := New(cfg, q, WithProducer(fp))
	svc.enabled.Store(true)

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		q.Enqueue(rec(id))
	}

	svc.Flush(context.Background())
	if len(fp.sent) != 3 {
		t.Fatalf("sent after first flush = %d, want 3", len(fp.sent))
	}

	svc.Flush(context.Background())
	if len(fp.sent) != 5 {
		t.Fatalf("sent after second flush = %d, want 5", len(fp.sent))
	}
}

func TestFlush_RetryableFailureReEnqueuesBatch(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true, sendErr: errors.New("connection refused")}
	svc, _ := New(testConfig(t), q, WithProducer(fp))
	svc.enabled.Store(true)

	q.Enqueue(rec("a"))
	svc.Flush(context.Background())

	if q.Size() != 1 {
		t.Errorf("queue size after retryable failure = %d, want 1 (re-enqueued)", q.Size())
	}
}

func TestFlush_ConfigurationFailureDisablesPipeline(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true, sendErr: errors.New("invalid configuration: missing topic")}
	svc, _ := New(testConfig(t), q, WithProducer(fp))
	svc.enabled.Store(true)

	q.Enqueue(rec("a"))
	svc.Flush(context.Background())

	if svc.Enabled() {
		t.Error("expected pipeline disabled after configuration-category failure")
	}
}

func TestFlush_BreakerOpenSkipsWithoutCallingProducer(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true}
	svc, _ := New(testConfig(t), q, WithProducer(fp))
	svc.enabled.Store(true)

	for i := 0; i < svc.cfg.Breaker.FailureThreshold; i++ {
		svc.breaker.Execute(context.Background(), func(context.Context) error {
			return errors.New("boom")
		})
	}

	q.Enqueue(rec("a"))
	svc.Flush(context.Background())

	if fp.sendCalls != 0 {
		t.Errorf("sendCalls = %d, want 0 while breaker open", fp.sendCalls)
	}
	if q.Size() != 1 {
		t.Errorf("queue size = %d, want 1 (untouched while breaker open)", q.Size())
	}
}

func TestInitialize_DisabledConfigSkipsConnectAndFlusher(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{}
	cfg := testConfig(t)
	cfg.Enabled = false
	svc, _ := New(cfg, q, WithProducer(fp))

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if svc.Enabled() {
		t.Error("expected disabled pipeline to stay disabled")
	}
	if fp.connected {
		t.Error("expected no connect attempt for disabled pipeline")
	}
}

func TestShutdown_IsIdempotent(t *testing.T) {
	q, _ := queue.New(5)
	fp := &fakeProducer{connected: true}
	svc, _ := New(testConfig(t), q, WithProducer(fp))
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if err := svc.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := svc.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if fp.IsConnected() {
		t.Error("expected producer disconnected after shutdown")
	}
}
