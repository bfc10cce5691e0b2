// Package adapter binds the pipeline to a host's workflow lifecycle
// hooks, grounded on pkg/events/event_dispatcher.go's handler-registration
// shape but narrowed to the two fixed hook names a workflow host exposes
// instead of a generic pub/sub event type.
package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/telemetry"
)

// Field and Logger mirror every other executionlogger package's logging
// seam so one telemetry.Logger instance threads through all of them.
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

// HookContext carries whatever the host's workflow instance handed the
// adapter. This module never imports the host's own types; the host is
// responsible for shaping one of these before calling into a registered
// handler.
type HookContext struct {
	ExecutionID  string
	Workflow     record.Workflow
	Mode         record.Mode
	UserID       string
	RetryOf      string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Run          *record.RunSummary
	HostVersion  string
	InstanceID   string
	InstanceType record.InstanceType
}

func (hc HookContext) toExecutionContext(libraryVersion string) record.ExecutionContext {
	return record.ExecutionContext{
		ExecutionID:    hc.ExecutionID,
		Workflow:       hc.Workflow,
		Mode:           hc.Mode,
		UserID:         hc.UserID,
		RetryOf:        hc.RetryOf,
		StartedAt:      hc.StartedAt,
		FinishedAt:     hc.FinishedAt,
		Run:            hc.Run,
		HostVersion:    hc.HostVersion,
		LibraryVersion: libraryVersion,
		InstanceID:     hc.InstanceID,
		InstanceType:   hc.InstanceType,
	}
}

// HookFunc is the signature the host's lifecycle registry invokes.
type HookFunc func(ctx context.Context, hc HookContext)

// LifecycleRegistry is the host's handler-registration surface for the
// two fixed hook names a workflow host exposes.
type LifecycleRegistry interface {
	AddHandler(name string, handler HookFunc)
}

const (
	HookWorkflowExecuteBefore = "workflowExecuteBefore"
	HookWorkflowExecuteAfter  = "workflowExecuteAfter"
)

// ingester is the subset of pipeline.Service the adapter depends on,
// declared locally so tests can substitute a fake.
type ingester interface {
	Ingest(ctx context.Context, rec record.ExecutionRecord)
}

// Option configures an Adapter at construction time.
type Option func(*Adapter)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithLibraryVersion stamps context.library.version on every built
// record. Defaults to "unknown".
func WithLibraryVersion(v string) Option {
	return func(a *Adapter) {
		if v != "" {
			a.libraryVersion = v
		}
	}
}

// Adapter registers workflow lifecycle handlers that translate host
// callbacks into ExecutionRecords and forward them to the pipeline
// without ever blocking the caller or surfacing an error to it.
type Adapter struct {
	pipeline       ingester
	builder        *record.Builder
	logger         Logger
	libraryVersion string
}

// New constructs an Adapter bound to pipeline.
func New(pipeline ingester, opts ...Option) *Adapter {
	a := &Adapter{
		pipeline:       pipeline,
		builder:        record.NewBuilder(),
		logger:         noopLogger{},
		libraryVersion: "unknown",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register wires this adapter's handlers into registry under the host's
// two fixed hook names.
func (a *Adapter) Register(registry LifecycleRegistry) {
	registry.AddHandler(HookWorkflowExecuteBefore, a.onStart)
	registry.AddHandler(HookWorkflowExecuteAfter, a.onFinish)
}

// onStart builds a Started record and dispatches it on a separate
// goroutine so the host's execution path never waits on it.
func (a *Adapter) onStart(ctx context.Context, hc HookContext) {
	a.dispatch(ctx, record.EventStarted, hc)
}

// onFinish branches on the run's terminal status: a success run
// becomes Completed, a canceled run becomes Cancelled, and anything
// else (error, crashed, missing summary) becomes Failed.
func (a *Adapter) onFinish(ctx context.Context, hc HookContext) {
	kind := record.EventFailed
	if hc.Run != nil {
		switch hc.Run.Status {
		case "success":
			kind = record.EventCompleted
		case "canceled", "cancelled":
			kind = record.EventCancelled
		}
	}
	a.dispatch(ctx, kind, hc)
}

// dispatch builds the record on the caller's goroutine (cheap, pure) but
// hands it to the pipeline on a separate one, so a slow or blocked
// pipeline never holds up the host's workflow-execution path. The host's
// request context is not propagated past handoff: by the time the
// goroutine runs, the host call that produced ctx has already returned.
func (a *Adapter) dispatch(_ context.Context, kind record.EventType, hc HookContext) {
	ec := hc.toExecutionContext(a.libraryVersion)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error(context.Background(), "lifecycle adapter panicked, dropping event",
					Field{Key: "event", Value: string(kind)}, Field{Key: "panic", Value: r})
			}
		}()

		rec := a.builder.Build(kind, ec)
		a.pipeline.Ingest(context.Background(), rec)
	}()
}

// EventBus is the host's narrow pub/sub surface for server lifecycle
// signals (start, shutdown), distinct from LifecycleRegistry's
// per-execution hooks.
type EventBus interface {
	On(event string, handler func(ctx context.Context))
}

const (
	SignalServerStarted = "server-started"
	SignalShutdown      = "shutdown"
)

// lifecycle is the subset of pipeline.Service the integration service
// depends on.
type lifecycle interface {
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// configured reports whether the host handed us enough configuration to
// attempt a connection at all, independent of PipelineConfig.Validate's
// stricter field-by-field checks.
type configured interface {
	KafkaConfigured() bool
}

// Service binds pipeline Initialize/Shutdown to a host's server-started
// and shutdown signals. Repeated signals are absorbed: start after start
// and stop after stop are both no-ops.
type Service struct {
	pipeline lifecycle
	cfg      configured
	logger   Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// ServiceOption configures a Service at construction time.
type ServiceOption func(*Service)

// WithServiceLogger overrides the integration service's default no-op
// logger.
func WithServiceLogger(l Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService constructs an integration Service.
func NewService(pipeline lifecycle, cfg configured, opts ...ServiceOption) *Service {
	s := &Service{pipeline: pipeline, cfg: cfg, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind registers this service against the host's event bus.
func (s *Service) Bind(bus EventBus) {
	bus.On(SignalServerStarted, s.onServerStarted)
	bus.On(SignalShutdown, s.onShutdown)
}

func (s *Service) onServerStarted(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	if !s.cfg.KafkaConfigured() {
		s.logger.Warn(ctx, "execution logger not configured, staying dormant")
		return
	}

	if err := s.pipeline.Initialize(ctx); err != nil {
		s.logger.Error(ctx, "execution logger failed to initialize", Field{Key: "error", Value: err})
	}
}

func (s *Service) onShutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || !s.started {
		s.stopped = true
		return
	}
	s.stopped = true

	if err := s.pipeline.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "execution logger failed to shut down cleanly", Field{Key: "error", Value: err})
	}
}
