package obshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/health"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/telemetry"
	chiserver "github.com/smartdatahq/n8n-kafka-execution-logger/pkg/http_server/chi_server"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/observability"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/observability/noop"
)

// Field and Logger mirror the rest of the executionlogger package family.
type Field = telemetry.Field

type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

type noopLogger struct{}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}

// HealthSource is the subset of pipeline.Service the admin surface
// reports on.
type HealthSource interface {
	Enabled() bool
	Metrics() health.Snapshot
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Version     string    `json:"version"`
	Enabled     bool      `json:"enabled"`
	QueueDepth  int64     `json:"queue_depth"`
	Breaker     string    `json:"breaker_state"`
	SuccessRate float64   `json:"success_count"`
	FailureRate float64   `json:"failure_count"`
	Uptime      string    `json:"uptime"`
	Timestamp   time.Time `json:"timestamp"`
}

// Server exposes /healthz alongside chi_server's own /health, /ready,
// /live and /metrics endpoints over a single admin listener.
type Server struct {
	cfg    Config
	logger Logger
	source HealthSource
	o11y   observability.Observability
	inner  *chiserver.Server
}

// New constructs a Server reporting on source. cfg is validated before
// the wrapped chi_server listener is built.
func New(source HealthSource, cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: noopLogger{}, source: source}
	for _, opt := range opts {
		opt(s)
	}
	if s.o11y == nil {
		s.o11y = noop.NewProvider()
	}

	inner, err := chiserver.New(s.o11y, chiserver.WithConfig(cfg.toChiConfig()))
	if err != nil {
		return nil, err
	}
	inner.RegisterRouters(healthzRouter{s: s})
	s.inner = inner

	return s, nil
}

// healthzRouter adapts Server's detailed /healthz handler to
// chi_server.Router so it can be registered alongside chi_server's own
// support endpoints.
type healthzRouter struct{ s *Server }

func (r healthzRouter) Register(router chi.Router) {
	router.Get("/healthz", r.s.healthHandler)
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObservability overrides the default no-op provider driving
// chi_server's own logging, recover middleware, and health-check
// reporting.
func WithObservability(o observability.Observability) Option {
	return func(s *Server) {
		if o != nil {
			s.o11y = o
		}
	}
}

// Handler returns the admin listener's http.Handler, for tests that
// want to drive requests without a live listener.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Metrics()
	enabled := s.source.Enabled()

	status := "healthy"
	code := http.StatusOK
	if !enabled {
		status = "disabled"
	}
	if snap.BreakerState == "open" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:      status,
		Service:     s.cfg.ServiceName,
		Version:     s.cfg.ServiceVersion,
		Enabled:     enabled,
		QueueDepth:  snap.QueueDepth,
		Breaker:     snap.BreakerState,
		SuccessRate: float64(snap.SuccessCount),
		FailureRate: float64(snap.FailureCount),
		Uptime:      snap.Uptime.String(),
		Timestamp:   time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
