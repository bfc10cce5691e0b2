// Package config defines the validated configuration bundle the
// pipeline is constructed from, following cron_worker.Config's
// explicit-field, first-error-wins Validate() convention.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/producer"
)

// KafkaConfig describes how to reach the destination cluster and topic.
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
	SSL      bool
	Auth     *producer.Auth
}

// QueueConfig bounds the in-memory buffer and flush cadence.
type QueueConfig struct {
	MaxSize       int
	BatchSize     int
	FlushInterval time.Duration
}

// BreakerConfig parameterizes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	MonitoringPeriod time.Duration
}

// TimeoutsConfig bounds every blocking producer call.
type TimeoutsConfig struct {
	Connect    time.Duration
	Send       time.Duration
	Disconnect time.Duration
}

// TracingConfig controls whether pipeline.New bootstraps a real OTel SDK
// provider (exporting to OTLPEndpoint) or leaves the global
// tracer/meter providers at their no-op defaults. Enabled is the only
// switch; with it false the instrumentation still runs, it just
// records into the no-op providers.
type TracingConfig struct {
	Enabled        bool
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPProtocol   string
	Insecure       bool
	SampleRate     float64
}

// PipelineConfig is the full validated configuration bundle.
type PipelineConfig struct {
	Enabled  bool
	Kafka    KafkaConfig
	Queue    QueueConfig
	Breaker  BreakerConfig
	Timeouts TimeoutsConfig
	Tracing  TracingConfig

	FallbackDir         string
	FallbackMaxFileSize int64
	FallbackMaxFiles    int
}

// Default returns a PipelineConfig with conservative defaults: the
// pipeline starts disabled and points at a local broker
// (localhost:9092) and the n8n-executions topic.
func Default() *PipelineConfig {
	return &PipelineConfig{
		Enabled: false,
		Kafka: KafkaConfig{
			Brokers:  []string{"localhost:9092"},
			ClientID: "n8n-execution-logger",
			Topic:    "n8n-executions",
		},
		Queue: QueueConfig{
			MaxSize:       10000,
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
			MonitoringPeriod: 30 * time.Second,
		},
		Timeouts: TimeoutsConfig{
			Connect:    10 * time.Second,
			Send:       5 * time.Second,
			Disconnect: 5 * time.Second,
		},
		FallbackDir:         "./fallback",
		FallbackMaxFileSize: 10 * 1024 * 1024,
		FallbackMaxFiles:    5,
		Tracing: TracingConfig{
			Enabled:        false,
			ServiceVersion: "unknown",
			Environment:    "production",
			OTLPProtocol:   "grpc",
			SampleRate:     1.0,
		},
	}
}

var (
	ErrNoBrokers         = errors.New("config: kafka.brokers must contain at least one host:port entry")
	ErrEmptyClientID     = errors.New("config: kafka.clientId must not be empty")
	ErrEmptyTopic        = errors.New("config: kafka.topic must not be empty")
	ErrInvalidAuth       = errors.New("config: kafka.auth.mechanism must be plain, scram-sha-256 or scram-sha-512")
	ErrInvalidQueueSize  = errors.New("config: queue.maxSize must be greater than zero")
	ErrInvalidBatchSize  = errors.New("config: queue.batchSize must be in (0, maxSize]")
	ErrInvalidFlush      = errors.New("config: queue.flushInterval must be greater than zero")
	ErrInvalidThreshold  = errors.New("config: breaker.failureThreshold must be greater than zero")
	ErrInvalidReset      = errors.New("config: breaker.resetTimeout must be greater than zero")
	ErrInvalidMonitoring = errors.New("config: breaker.monitoringPeriod must be greater than zero")
	ErrInvalidConnect    = errors.New("config: timeouts.connect must be greater than zero")
	ErrInvalidSend       = errors.New("config: timeouts.send must be greater than zero")
	ErrInvalidDisconnect = errors.New("config: timeouts.disconnect must be greater than zero")
)

// Validate checks every invariant PipelineConfig must satisfy,
// first-error-wins.
func (c *PipelineConfig) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Kafka.ClientID == "" {
		return ErrEmptyClientID
	}
	if c.Kafka.Topic == "" {
		return ErrEmptyTopic
	}
	if c.Kafka.Auth != nil {
		switch c.Kafka.Auth.Mechanism {
		case producer.AuthPlain, producer.AuthScramSHA256, producer.AuthScramSHA512, "":
		default:
			return ErrInvalidAuth
		}
	}

	if c.Queue.MaxSize <= 0 {
		return ErrInvalidQueueSize
	}
	if c.Queue.BatchSize <= 0 || c.Queue.BatchSize > c.Queue.MaxSize {
		return ErrInvalidBatchSize
	}
	if c.Queue.FlushInterval <= 0 {
		return ErrInvalidFlush
	}

	if c.Breaker.FailureThreshold <= 0 {
		return ErrInvalidThreshold
	}
	if c.Breaker.ResetTimeout <= 0 {
		return ErrInvalidReset
	}
	if c.Breaker.MonitoringPeriod <= 0 {
		return ErrInvalidMonitoring
	}

	if c.Timeouts.Connect <= 0 {
		return ErrInvalidConnect
	}
	if c.Timeouts.Send <= 0 {
		return ErrInvalidSend
	}
	if c.Timeouts.Disconnect <= 0 {
		return ErrInvalidDisconnect
	}

	return nil
}

// KafkaConfigured reports whether enough configuration is present to
// attempt a connection at all: the master switch is on and at least one
// broker is listed. It is a looser, pre-Validate check the integration
// service uses to decide whether to initialize or stay dormant.
func (c *PipelineConfig) KafkaConfigured() bool {
	return c.Enabled && len(c.Kafka.Brokers) > 0
}

// ProducerConfig projects the Kafka and timeout sub-records into the
// shape producer.New expects.
func (c *PipelineConfig) ProducerConfig() producer.Config {
	return producer.Config{
		Brokers:  c.Kafka.Brokers,
		ClientID: c.Kafka.ClientID,
		Topic:    c.Kafka.Topic,
		SSL:      c.Kafka.SSL,
		Auth:     c.Kafka.Auth,
		Timeouts: producer.Timeouts{
			Connect:    c.Timeouts.Connect,
			Send:       c.Timeouts.Send,
			Disconnect: c.Timeouts.Disconnect,
		},
	}
}

// String renders a short, secret-free summary for startup logs.
func (c *PipelineConfig) String() string {
	return fmt.Sprintf("PipelineConfig{enabled=%v brokers=%v topic=%q queue.maxSize=%d breaker.failureThreshold=%d}",
		c.Enabled, c.Kafka.Brokers, c.Kafka.Topic, c.Queue.MaxSize, c.Breaker.FailureThreshold)
}
