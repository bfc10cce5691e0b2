package kafka

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceContext injects W3C trace context into Kafka message headers.
//
// How it works:
//   1. Uses the global TextMapPropagator (configured via otel.SetTextMapPropagator)
//   2. Injects traceparent and tracestate headers into the map
//   3. Modifies the headers map in-place
//
// W3C Trace Context Format:
//   - traceparent: 00-{trace-id}-{span-id}-{trace-flags}
//   - tracestate: vendor-specific trace state (optional)
//
// Example:
//   Before: headers = {"event_type": "user.created"}
//   After:  headers = {
//     "event_type": "user.created",
//     "traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
//     "tracestate": "rojo=00f067aa0ba902b7"
//   }
//
// Usage:
//
//	headers := map[string]string{"event_type": "order.created"}
//	InjectTraceContext(ctx, headers)
//	// headers now contains traceparent and tracestate for propagation
func InjectTraceContext(ctx context.Context, headers map[string]string) {
	propagator := otel.GetTextMapPropagator()

	// MapCarrier adapts map[string]string to TextMapCarrier interface
	carrier := propagation.MapCarrier(headers)

	// Inject trace context (adds traceparent, tracestate keys)
	propagator.Inject(ctx, carrier)
}

