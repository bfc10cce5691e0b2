package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter mirrors a Metrics snapshot into Prometheus
// collectors, following the instrument-registration pattern in
// pkg/messaging/kafka/otel.go.
type PrometheusExporter struct {
	metrics *Metrics

	successTotal prometheus.CounterFunc
	failureTotal prometheus.CounterFunc
	queueDepth   prometheus.GaugeFunc
	breakerState prometheus.GaugeFunc
	uptime       prometheus.GaugeFunc
}

// breakerStateValue maps the breaker's string state to a small ordinal,
// the shape Prometheus gauges need for a tri-state value.
func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}

// NewPrometheusExporter creates collectors backed by live reads of m.
// Register the returned exporter with a prometheus.Registerer to expose
// it; it is also a prometheus.Collector itself via Collect/Describe.
func NewPrometheusExporter(m *Metrics, namespace string) *PrometheusExporter {
	e := &PrometheusExporter{metrics: m}

	e.successTotal = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "success_total",
		Help:      "Execution records successfully delivered to Kafka.",
	}, func() float64 { return float64(m.Snapshot().SuccessCount) })

	e.failureTotal = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failure_total",
		Help:      "Execution records that failed to deliver.",
	}, func() float64 { return float64(m.Snapshot().FailureCount) })

	e.queueDepth = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of records waiting in the in-memory queue.",
	}, func() float64 { return float64(m.Snapshot().QueueDepth) })

	e.breakerState = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Circuit breaker state: 0=closed, 1=half-open, 2=open.",
	}, func() float64 { return breakerStateValue(m.Snapshot().BreakerState) })

	e.uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the metrics were created.",
	}, func() float64 { return m.Snapshot().Uptime.Seconds() })

	return e
}

// Describe implements prometheus.Collector.
func (e *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	e.successTotal.Describe(ch)
	e.failureTotal.Describe(ch)
	e.queueDepth.Describe(ch)
	e.breakerState.Describe(ch)
	e.uptime.Describe(ch)
}

// Collect implements prometheus.Collector.
func (e *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	e.successTotal.Collect(ch)
	e.failureTotal.Collect(ch)
	e.queueDepth.Collect(ch)
	e.breakerState.Collect(ch)
	e.uptime.Collect(ch)
}
