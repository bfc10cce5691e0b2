package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/producer"
)

// FromEnv builds a PipelineConfig from KAFKA_EXEC_LOG_* environment
// variables layered over Default(), mirroring
// pkg/messaging/kafka/fx.ConfigFromEnv's getEnv/getEnvInt/getEnvBool
// helpers. Callers still must call Validate().
func FromEnv() *PipelineConfig {
	c := Default()

	c.Enabled = getEnvBool("KAFKA_EXEC_LOG_ENABLED", c.Enabled)

	if brokers := os.Getenv("KAFKA_EXEC_LOG_BROKERS"); brokers != "" {
		list := strings.Split(brokers, ",")
		for i := range list {
			list[i] = strings.TrimSpace(list[i])
		}
		c.Kafka.Brokers = list
	}
	c.Kafka.ClientID = getEnv("KAFKA_EXEC_LOG_CLIENT_ID", c.Kafka.ClientID)
	c.Kafka.Topic = getEnv("KAFKA_EXEC_LOG_TOPIC", c.Kafka.Topic)
	c.Kafka.SSL = getEnvBool("KAFKA_EXEC_LOG_SSL", c.Kafka.SSL)

	if mechanism := os.Getenv("KAFKA_EXEC_LOG_AUTH_MECHANISM"); mechanism != "" {
		c.Kafka.Auth = &producer.Auth{
			Username:  getEnv("KAFKA_EXEC_LOG_AUTH_USERNAME", ""),
			Password:  getEnv("KAFKA_EXEC_LOG_AUTH_PASSWORD", ""),
			Mechanism: producer.AuthMechanism(strings.ToLower(mechanism)),
		}
	}

	c.Queue.MaxSize = getEnvInt("KAFKA_EXEC_LOG_QUEUE_MAX_SIZE", c.Queue.MaxSize)
	c.Queue.BatchSize = getEnvInt("KAFKA_EXEC_LOG_QUEUE_BATCH_SIZE", c.Queue.BatchSize)
	c.Queue.FlushInterval = getEnvDuration("KAFKA_EXEC_LOG_QUEUE_FLUSH_INTERVAL", c.Queue.FlushInterval)

	c.Breaker.FailureThreshold = getEnvInt("KAFKA_EXEC_LOG_BREAKER_FAILURE_THRESHOLD", c.Breaker.FailureThreshold)
	c.Breaker.ResetTimeout = getEnvDuration("KAFKA_EXEC_LOG_BREAKER_RESET_TIMEOUT", c.Breaker.ResetTimeout)
	c.Breaker.MonitoringPeriod = getEnvDuration("KAFKA_EXEC_LOG_BREAKER_MONITORING_PERIOD", c.Breaker.MonitoringPeriod)

	c.Timeouts.Connect = getEnvDuration("KAFKA_EXEC_LOG_TIMEOUT_CONNECT", c.Timeouts.Connect)
	c.Timeouts.Send = getEnvDuration("KAFKA_EXEC_LOG_TIMEOUT_SEND", c.Timeouts.Send)
	c.Timeouts.Disconnect = getEnvDuration("KAFKA_EXEC_LOG_TIMEOUT_DISCONNECT", c.Timeouts.Disconnect)

	c.FallbackDir = getEnv("KAFKA_EXEC_LOG_FALLBACK_DIR", c.FallbackDir)
	c.FallbackMaxFiles = getEnvInt("KAFKA_EXEC_LOG_FALLBACK_MAX_FILES", c.FallbackMaxFiles)

	c.Tracing.Enabled = getEnvBool("KAFKA_EXEC_LOG_TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.ServiceVersion = getEnv("KAFKA_EXEC_LOG_TRACING_SERVICE_VERSION", c.Tracing.ServiceVersion)
	c.Tracing.Environment = getEnv("KAFKA_EXEC_LOG_TRACING_ENVIRONMENT", c.Tracing.Environment)
	c.Tracing.OTLPEndpoint = getEnv("KAFKA_EXEC_LOG_TRACING_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)
	c.Tracing.OTLPProtocol = getEnv("KAFKA_EXEC_LOG_TRACING_OTLP_PROTOCOL", c.Tracing.OTLPProtocol)
	c.Tracing.Insecure = getEnvBool("KAFKA_EXEC_LOG_TRACING_INSECURE", c.Tracing.Insecure)

	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
