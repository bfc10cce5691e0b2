// Package executionloggerfx wires every execution-logger component into
// an fx.App, grounded on pkg/messaging/kafka/fx/module.go's
// Params/Result-struct provider shape and fx.Lifecycle hook registration.
package executionloggerfx

import (
	"context"

	"go.uber.org/fx"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/adapter"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/config"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/obshttp"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/pipeline"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/producer"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/queue"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/telemetry"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/events"
)

// Module provides the pipeline, its queue, the lifecycle adapter, and
// the admin HTTP surface, wired to fx.Lifecycle so a host's fx.New
// graph starts/stops them alongside everything else.
//
// Usage:
//
//	fx.New(
//	    executionloggerfx.Module,
//	    fx.Supply(config.FromEnv()),
//	)
var Module = fx.Module("execution-logger",
	fx.Provide(
		ProvideLogger,
		ProvideQueue,
		ProvideTopicProvisioner,
		ProvidePipeline,
		ProvideAdapter,
		ProvideEventBus,
		ProvideIntegrationService,
		ProvideObsHTTPServer,
	),
	fx.Invoke(
		RegisterIntegrationServiceLifecycle,
		RegisterObsHTTPLifecycle,
	),
)

// ProvideLogger builds the shared structured logger every sub-component
// threads through.
func ProvideLogger(cfg *config.PipelineConfig) (*telemetry.Logger, error) {
	return telemetry.New(cfg.Kafka.ClientID)
}

// ProvideQueue builds the bounded FIFO the pipeline drains.
func ProvideQueue(cfg *config.PipelineConfig) (*queue.Queue, error) {
	return queue.New(cfg.Queue.MaxSize)
}

// ProvideTopicProvisioner builds the cluster-admin client used to ensure
// the destination topic exists before the first connect. Errors here are
// non-fatal to the fx graph: initialization logs and continues without
// provisioning if the admin client can't be built (e.g. brokers
// unreachable at startup), matching the Pipeline Service's best-effort
// provisioning policy.
func ProvideTopicProvisioner(cfg *config.PipelineConfig, logger *telemetry.Logger) *producer.TopicProvisioner {
	if !cfg.KafkaConfigured() {
		return nil
	}
	p, err := producer.NewTopicProvisioner(cfg.Kafka.Brokers)
	if err != nil {
		logger.Warn(context.Background(), "topic provisioner unavailable, continuing without it",
			telemetry.Field{Key: "error", Value: err})
		return nil
	}
	return p
}

// PipelineParams are the Pipeline Service's fx dependencies.
type PipelineParams struct {
	fx.In

	Config      *config.PipelineConfig
	Queue       *queue.Queue
	Logger      *telemetry.Logger
	Provisioner *producer.TopicProvisioner `optional:"true"`
}

// ProvidePipeline constructs the orchestrator Service. It is returned
// uninitialized; RegisterIntegrationServiceLifecycle drives
// Initialize/Shutdown indirectly through the integration service.
func ProvidePipeline(p PipelineParams) (*pipeline.Service, error) {
	opts := []pipeline.Option{pipeline.WithLogger(p.Logger)}
	if p.Provisioner != nil {
		opts = append(opts, pipeline.WithTopicProvisioner(p.Provisioner))
	}
	return pipeline.New(p.Config, p.Queue, opts...)
}

// ProvideAdapter builds the Lifecycle Adapter bound to svc.
func ProvideAdapter(svc *pipeline.Service, logger *telemetry.Logger) *adapter.Adapter {
	return adapter.New(svc, adapter.WithLogger(logger))
}

// ProvideEventBus builds the narrow server lifecycle event bus the
// integration service binds its Initialize/Shutdown handlers against,
// backed by a real pkg/events.EventDispatcher instead of a bespoke
// pub/sub type.
func ProvideEventBus() *adapter.EventDispatcherBus {
	return adapter.NewEventDispatcherBus(events.NewEventDispatcher())
}

// ProvideIntegrationService builds the server-started/shutdown binding.
func ProvideIntegrationService(svc *pipeline.Service, cfg *config.PipelineConfig, logger *telemetry.Logger) *adapter.Service {
	return adapter.NewService(svc, cfg, adapter.WithServiceLogger(logger))
}

// ProvideObsHTTPServer builds the admin /healthz + /metrics listener.
func ProvideObsHTTPServer(svc *pipeline.Service, logger *telemetry.Logger) (*obshttp.Server, error) {
	return obshttp.New(svc, obshttp.DefaultConfig(), obshttp.WithLogger(logger))
}

// RegisterIntegrationServiceLifecycle binds the integration service to
// bus, then drives it by dispatching the server-started and shutdown
// signals from fx's own lifecycle hooks, mirroring
// kafkafx.ProvideBroker's OnStop-only pattern but symmetric since
// Initialize itself is not a constructor-time step.
func RegisterIntegrationServiceLifecycle(lc fx.Lifecycle, svc *adapter.Service, bus *adapter.EventDispatcherBus) {
	svc.Bind(bus)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return bus.Dispatch(ctx, adapter.SignalServerStarted)
		},
		OnStop: func(ctx context.Context) error {
			return bus.Dispatch(ctx, adapter.SignalShutdown)
		},
	})
}

// RegisterObsHTTPLifecycle starts the admin server in the background on
// fx OnStart and shuts it down on fx OnStop.
func RegisterObsHTTPLifecycle(lc fx.Lifecycle, srv *obshttp.Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				_ = srv.Start(context.Background())
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
