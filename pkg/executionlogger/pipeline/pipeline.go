// Package pipeline orchestrates the queue, breaker, producer, metrics,
// classifier and fallback log into the end-to-end ingestion → flush
// flow, grounded on cron_worker.Server/worker.go's
// New/RegisterJobs/Start/Shutdown shape and lifecycle.go's
// signal-driven graceful shutdown, adapted from a scheduled-job runner
// into an event-ingestion service with a single background flusher in
// place of a cron scheduler.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/breaker"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/classifier"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/config"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/fallback"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/health"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/producer"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/telemetry"
	otelprovider "github.com/smartdatahq/n8n-kafka-execution-logger/pkg/observability/otel"
	"go.uber.org/multierr"
)

// Field and Logger are re-exported for callers that want to supply their
// own logger without importing telemetry directly.
type Field = telemetry.Field

type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}

// fallbackLogger adapts Logger to fallback.Logger's narrower shape.
type fallbackLogger struct {
	l Logger
}

func (f fallbackLogger) Error(msg string, fields map[string]any) {
	flds := make([]Field, 0, len(fields))
	for k, v := range fields {
		flds = append(flds, Field{Key: k, Value: v})
	}
	f.l.Error(context.Background(), msg, flds...)
}

// ErrNotEnabled describes a pipeline disabled either by configuration or
// by a critical connect failure. No method in this package returns it:
// Initialize returns nil in both cases and Ingest drops records silently.
var ErrNotEnabled = errors.New("pipeline: disabled, not accepting records")

// Service owns every sub-component and the single background flusher.
// It is safe for concurrent use once Initialize returns.
type Service struct {
	cfg    *config.PipelineConfig
	logger Logger

	queue       queueInterface
	breaker     *breaker.Breaker
	producer    producerInterface
	metrics     *health.Metrics
	fallback    *fallback.Log
	provisioner topicProvisioner

	enabled     atomic.Bool
	initialized atomic.Bool

	flushTicker *time.Ticker
	stopFlush   chan struct{}
	flushDone   chan struct{}
	stopOnce    sync.Once

	tracing *otelprovider.Provider
}

// queueInterface is the subset of *queue.Queue the pipeline depends on,
// declared locally so pipeline_test.go can substitute a fake for
// overflow-path tests without pulling in the real bounded FIFO.
type queueInterface interface {
	Enqueue(rec record.ExecutionRecord) (evicted record.ExecutionRecord, ok bool)
	Dequeue() (record.ExecutionRecord, bool)
	DequeueBatch(n int) []record.ExecutionRecord
	Size() int
	IsEmpty() bool
	IsFull() bool
	Clear()
	GetMaxSize() int
}

// topicProvisioner is the subset of *producer.TopicProvisioner the
// pipeline depends on.
type topicProvisioner interface {
	EnsureTopic(topic string) error
	Close() error
}

// producerInterface is the subset of *producer.Producer the pipeline
// depends on, declared locally so tests can substitute a fake producer
// without dialing a real broker.
type producerInterface interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Send(ctx context.Context, rec record.ExecutionRecord) error
	SendBatch(ctx context.Context, recs []record.ExecutionRecord) error
	IsConnected() bool
}

// WithProducer overrides the producer built from cfg, for tests that
// need a fake instead of a real Kafka connection.
func WithProducer(p producerInterface) Option {
	return func(s *Service) {
		if p != nil {
			s.producer = p
		}
	}
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTopicProvisioner supplies a provisioner to run before the first
// connect attempt. Optional; when absent, provisioning is skipped and
// the producer relies on broker auto-create or rejects the send.
func WithTopicProvisioner(p topicProvisioner) Option {
	return func(s *Service) {
		s.provisioner = p
	}
}

// New constructs a Service from cfg and its sub-components, leaving it
// uninitialized until Initialize runs. When cfg.Tracing.Enabled, the
// OTel SDK providers are bootstrapped here, before the producer builds
// its Instrumentation, so the global TracerProvider/MeterProvider it
// reads in producer.New are already backed by a real exporter.
func New(cfg *config.PipelineConfig, q queueInterface, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		logger:  noopLogger{},
		queue:   q,
		metrics: health.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Tracing.Enabled {
		tp, err := otelprovider.NewProvider(context.Background(), &otelprovider.Config{
			ServiceName:     cfg.Kafka.ClientID,
			ServiceVersion:  cfg.Tracing.ServiceVersion,
			Environment:     cfg.Tracing.Environment,
			OTLPEndpoint:    cfg.Tracing.OTLPEndpoint,
			OTLPProtocol:    otelprovider.OTLPProtocol(cfg.Tracing.OTLPProtocol),
			Insecure:        cfg.Tracing.Insecure,
			TraceSampleRate: cfg.Tracing.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("pipeline: bootstrap tracing: %w", err)
		}
		s.tracing = tp
	}

	b, err := breaker.New(cfg.Breaker.FailureThreshold, cfg.Breaker.ResetTimeout, cfg.Breaker.MonitoringPeriod)
	if err != nil {
		return nil, err
	}
	s.breaker = b

	if s.producer == nil {
		p, err := producer.New(cfg.ProducerConfig(), producer.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.producer = p
	}

	s.fallback = fallback.NewLog(cfg.FallbackDir, fallbackLogger{l: s.logger},
		fallback.WithMaxFileSize(cfg.FallbackMaxFileSize),
		fallback.WithMaxFiles(cfg.FallbackMaxFiles),
	)

	return s, nil
}

// Initialize provisions the topic if configured, attempts the first
// connect under the breaker, starts the background flusher, and marks
// the service initialized. Config loading and sub-component
// construction already happened in New.
func (s *Service) Initialize(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info(ctx, "execution logger disabled by configuration")
		s.enabled.Store(false)
		s.initialized.Store(true)
		return nil
	}
	s.enabled.Store(true)

	if s.provisioner != nil {
		if err := s.provisioner.EnsureTopic(s.cfg.Kafka.Topic); err != nil {
			cat := classifier.Classify(err)
			s.logger.Warn(ctx, "topic provisioning failed, continuing",
				Field{Key: "category", Value: cat.Category}, Field{Key: "error", Value: err})
		}
	}

	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.producer.Connect(ctx)
	})
	if err != nil {
		cat := classifier.Classify(err)
		s.logger.Warn(ctx, "initial connect failed",
			Field{Key: "category", Value: cat.Category}, Field{Key: "error", Value: err})
		if cat.Category == classifier.CategoryConfiguration || cat.Category == classifier.CategoryAuthentication {
			s.enabled.Store(false)
			s.initialized.Store(true)
			return nil
		}
	}

	s.stopFlush = make(chan struct{})
	s.flushDone = make(chan struct{})
	s.flushTicker = time.NewTicker(s.cfg.Queue.FlushInterval)
	go s.flushLoop()

	s.initialized.Store(true)
	s.logger.Info(ctx, "execution logger pipeline initialized")
	return nil
}

func (s *Service) flushLoop() {
	defer close(s.flushDone)
	for {
		select {
		case <-s.flushTicker.C:
			s.Flush(context.Background())
		case <-s.stopFlush:
			return
		}
	}
}

// Ingest sends rec immediately when the breaker is closed, the
// producer connected, and the queue empty; otherwise it enqueues rec,
// fallback-logging any record displaced by overflow.
func (s *Service) Ingest(ctx context.Context, rec record.ExecutionRecord) {
	if !s.enabled.Load() {
		return
	}

	s.metrics.SetQueueDepth(s.queue.Size())
	s.metrics.SetBreakerState(string(s.breaker.State()))

	fastPath := s.breaker.State() == breaker.StateClosed && s.producer.IsConnected() && s.queue.IsEmpty()
	if fastPath {
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.producer.Send(ctx, rec)
		})
		if err == nil {
			s.metrics.RecordSuccess()
			return
		}

		cat := classifier.Classify(err)
		s.metrics.RecordFailure()
		if !cat.ShouldRetry && cat.ShouldFallback {
			s.fallback.AppendOne("Immediate send failed: "+string(cat.Category), rec)
			return
		}
	}

	evicted, ok := s.queue.Enqueue(rec)
	if !ok {
		s.fallback.AppendOne("Queue overflow - message dropped", evicted)
	}
	s.metrics.SetQueueDepth(s.queue.Size())
}

// Flush drains up to BatchSize records through the breaker and
// producer, reconnecting first if needed, and applies the
// retry/fallback/disable policy to the outcome.
func (s *Service) Flush(ctx context.Context) {
	if !s.enabled.Load() {
		return
	}
	defer s.metrics.SetQueueDepth(s.queue.Size())

	if s.queue.IsEmpty() {
		return
	}
	if s.breaker.State() == breaker.StateOpen {
		return
	}

	if !s.producer.IsConnected() {
		err := s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.producer.Connect(ctx)
		})
		if err != nil {
			cat := classifier.Classify(err)
			s.logger.Warn(ctx, "reconnect failed", Field{Key: "category", Value: cat.Category}, Field{Key: "error", Value: err})
			if cat.Category == classifier.CategoryConfiguration || cat.Category == classifier.CategoryAuthentication {
				s.enabled.Store(false)
			}
			return
		}
	}

	batch := s.queue.DequeueBatch(s.cfg.Queue.BatchSize)
	if len(batch) == 0 {
		return
	}

	var sendErr error
	if len(batch) == 1 {
		sendErr = s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.producer.Send(ctx, batch[0])
		})
	} else {
		sendErr = s.breaker.Execute(ctx, func(ctx context.Context) error {
			return s.producer.SendBatch(ctx, batch)
		})
	}

	if sendErr == nil {
		s.metrics.RecordSuccess()
		return
	}

	s.metrics.RecordFailure()
	cat := classifier.Classify(sendErr)
	s.logger.Warn(ctx, "flush send failed",
		Field{Key: "category", Value: cat.Category}, Field{Key: "count", Value: len(batch)}, Field{Key: "error", Value: sendErr})

	if cat.ShouldRetry {
		for _, rec := range batch {
			if evicted, ok := s.queue.Enqueue(rec); !ok {
				s.fallback.AppendOne("Queue overflow - message dropped", evicted)
			}
		}
	} else if cat.ShouldFallback {
		s.fallback.AppendBatch("Send failed: "+string(cat.Category), batch)
	}

	if cat.Category == classifier.CategoryConfiguration || cat.Category == classifier.CategoryAuthentication {
		s.enabled.Store(false)
	}
}

// Shutdown stops the flusher, drains one final flush, and disconnects
// the producer, bounded by ctx. Mirrors
// cron_worker.Shutdown's stop-then-drain-then-mark-stopped shape with a
// sync.Once guard against double shutdown. Disconnect and provisioner
// close errors are logged rather than treated as fatal, but both are
// worth surfacing to the caller, so they're combined with multierr
// instead of the first one silently shadowing the second.
func (s *Service) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.flushTicker != nil {
			s.flushTicker.Stop()
			close(s.stopFlush)
			select {
			case <-s.flushDone:
			case <-ctx.Done():
			}
		}

		s.Flush(ctx)

		err = multierr.Append(err, s.producer.Disconnect(ctx))
		if s.provisioner != nil {
			err = multierr.Append(err, s.provisioner.Close())
		}
		if s.tracing != nil {
			err = multierr.Append(err, s.tracing.Shutdown(ctx))
		}
		if err != nil {
			s.logger.Warn(ctx, "execution logger pipeline stopped with errors", Field{Key: "error", Value: err})
		} else {
			s.logger.Info(ctx, "execution logger pipeline stopped")
		}
	})
	return err
}

// Enabled reports whether the pipeline currently accepts records.
func (s *Service) Enabled() bool {
	return s.enabled.Load()
}

// Metrics exposes the health snapshot for admin/HTTP surfaces.
func (s *Service) Metrics() health.Snapshot {
	return s.metrics.Snapshot()
}
