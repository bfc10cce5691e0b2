package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Instrumentation wraps a publish operation with OpenTelemetry tracing
// and metrics. It reads the global TracerProvider and MeterProvider
// (set via otel.SetTracerProvider/SetMeterProvider), so it picks up
// whatever exporter the host configured without taking a dependency on
// it directly.
type Instrumentation struct {
	tracer trace.Tracer
	meter  metric.Meter

	publishCount    metric.Int64Counter
	publishDuration metric.Float64Histogram
	publishErrors   metric.Int64Counter
}

// NewInstrumentation creates the publish-path instrumentation for
// serviceName. Call this once after the global providers are
// configured; instruments are created once and reused for every call.
func NewInstrumentation(serviceName string) (*Instrumentation, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}

	tracer := otel.GetTracerProvider().Tracer(serviceName)
	meter := otel.GetMeterProvider().Meter(serviceName)

	inst := &Instrumentation{
		tracer: tracer,
		meter:  meter,
	}

	var err error

	inst.publishCount, err = meter.Int64Counter(
		"messaging.kafka.publish.count",
		metric.WithDescription("Total number of messages published"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publishCount metric: %w", err)
	}

	inst.publishDuration, err = meter.Float64Histogram(
		"messaging.kafka.publish.duration",
		metric.WithDescription("Duration of message publish operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publishDuration metric: %w", err)
	}

	inst.publishErrors, err = meter.Int64Counter(
		"messaging.kafka.publish.errors",
		metric.WithDescription("Number of publish errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publishErrors metric: %w", err)
	}

	return inst, nil
}

// InstrumentPublish wraps publishFunc with a producer span and publish
// metrics. It injects W3C trace context into headers before calling
// publishFunc, so a downstream consumer can correlate its own span with
// this one.
func (i *Instrumentation) InstrumentPublish(
	ctx context.Context,
	topic string,
	key string,
	headers map[string]string,
	publishFunc func(context.Context) error,
) error {
	start := time.Now()

	ctx, span := i.tracer.Start(ctx, "publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(topic),
			attribute.String("messaging.operation.type", "publish"),
			attribute.String("messaging.kafka.message.key", key),
		),
	)
	defer span.End()

	InjectTraceContext(ctx, headers)

	err := publishFunc(ctx)

	duration := float64(time.Since(start).Milliseconds())
	attrs := metric.WithAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", topic),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		i.publishErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topic),
			attribute.String("error.type", classifyError(err)),
		))
	} else {
		span.SetStatus(codes.Ok, "published")
		i.publishCount.Add(ctx, 1, attrs)
	}

	i.publishDuration.Record(ctx, duration, attrs)

	return err
}

// classifyError buckets err into a small label set for the
// messaging.kafka.publish.errors metric's error.type attribute.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrPublishFailed):
		return "publish_failed"
	case errors.Is(err, ErrProducerClosed):
		return "producer_closed"
	default:
		return "unknown"
	}
}
