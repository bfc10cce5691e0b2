// Package producer wraps segmentio/kafka-go behind a small,
// timeout-bounded facade: connect/disconnect/send/sendBatch/isConnected,
// built on the same shape as pkg/messaging/kafka's producer but
// narrowed to execution records. SASL/TLS dialing is delegated to
// pkg/messaging/kafka/auth's Strategy instead of constructing
// mechanisms directly, and every send is traced and measured through
// pkg/messaging/kafka's Instrumentation.
package producer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	kafkamsg "github.com/smartdatahq/n8n-kafka-execution-logger/pkg/messaging/kafka"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/messaging/kafka/auth"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/telemetry"
)

// AuthMechanism names a SASL mechanism accepted by PipelineConfig's
// kafka.auth.mechanism field.
type AuthMechanism string

const (
	AuthPlain        AuthMechanism = "plain"
	AuthScramSHA256  AuthMechanism = "scram-sha-256"
	AuthScramSHA512  AuthMechanism = "scram-sha-512"
)

// Auth holds SASL credentials. A zero value means no authentication.
type Auth struct {
	Username  string
	Password  string
	Mechanism AuthMechanism
}

// Timeouts bounds every blocking call the wrapper makes.
type Timeouts struct {
	Connect    time.Duration
	Send       time.Duration
	Disconnect time.Duration
}

// Config configures a Producer.
type Config struct {
	Brokers  []string
	ClientID string
	Topic    string
	SSL      bool
	Auth     *Auth
	Timeouts Timeouts
}

var (
	// ErrNoBrokers is returned by New when no brokers are configured.
	ErrNoBrokers = errors.New("producer: at least one broker is required")
	// ErrEmptyTopic is returned by New when the topic is empty.
	ErrEmptyTopic = errors.New("producer: topic must not be empty")
	// ErrUnsupportedMechanism is returned when Auth.Mechanism is unrecognized.
	ErrUnsupportedMechanism = errors.New("producer: unsupported auth mechanism")

	// ErrConnectTimeout names a categorized connection timeout.
	ErrConnectTimeout = errors.New("connection timeout establishing kafka producer")
	// ErrConnectFailed names a categorized connection failure.
	ErrConnectFailed = errors.New("connection failed establishing kafka producer")
	// ErrSendTimeout names a categorized send timeout.
	ErrSendTimeout = errors.New("timeout sending message to kafka")
	// ErrSerialization names a categorized serialization failure.
	ErrSerialization = errors.New("serialization failed encoding execution record")
	// ErrSendFailed names a categorized generic send failure.
	ErrSendFailed = errors.New("send failed delivering message to kafka")
)

// Logger is the structured logging seam, mirroring
// pkg/messaging/kafka.Logger so the same zap-backed implementation can
// serve both.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
}

// Field is a structured logging key/value pair, aliased to the shared
// telemetry type so *telemetry.Logger satisfies Logger directly.
type Field = telemetry.Field

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}

// Producer is a typed, timeout-bounded Kafka producer facade.
type Producer struct {
	cfg    Config
	logger Logger

	instrumentation *kafkamsg.Instrumentation

	mu        sync.Mutex
	writer    *kafka.Writer
	connected bool
}

// Option configures a Producer at construction time.
type Option func(*Producer)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.logger = l
		}
	}
}

// New validates cfg and returns an unconnected Producer.
func New(cfg Config, opts ...Option) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrEmptyTopic
	}
	if cfg.Auth != nil {
		switch cfg.Auth.Mechanism {
		case AuthPlain, AuthScramSHA256, AuthScramSHA512, "":
		default:
			return nil, ErrUnsupportedMechanism
		}
	}

	serviceName := cfg.ClientID
	if serviceName == "" {
		serviceName = "n8n-kafka-execution-logger"
	}
	inst, err := kafkamsg.NewInstrumentation(serviceName)
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}

	p := &Producer{cfg: cfg, logger: noopLogger{}, instrumentation: inst}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// IsConnected reflects the last-known connection state.
func (p *Producer) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Connect is idempotent and bounded by Timeouts.Connect. On failure it
// tears down any partial state and returns a categorized error.
func (p *Producer) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.connected {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeouts.Connect)
	defer cancel()

	transport, err := p.buildTransport()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.cfg.Brokers...),
		Topic:        p.cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		Transport:    transport,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	if err := probeBrokers(ctx, transport, p.cfg.Brokers); err != nil {
		writer.Close()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	p.writer = writer
	p.connected = true
	p.logger.Info(ctx, "producer connected", Field{Key: "topic", Value: p.cfg.Topic})
	return nil
}

// Disconnect is idempotent, bounded by Timeouts.Disconnect, and never
// returns an error: it always leaves the producer in the disconnected
// state.
func (p *Producer) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, p.cfg.Timeouts.Disconnect)
	defer cancel()

	if p.writer != nil {
		done := make(chan error, 1)
		w := p.writer
		go func() { done <- w.Close() }()
		select {
		case err := <-done:
			if err != nil {
				p.logger.Warn(ctx, "error closing producer, ignoring", Field{Key: "error", Value: err})
			}
		case <-dctx.Done():
			p.logger.Warn(ctx, "timed out closing producer, abandoning", Field{Key: "error", Value: dctx.Err()})
		}
	}
	p.writer = nil
	p.connected = false
	return nil
}

// Send serializes rec to JSON and writes it with messageId as key.
func (p *Producer) Send(ctx context.Context, rec record.ExecutionRecord) error {
	return p.SendBatch(ctx, []record.ExecutionRecord{rec})
}

// SendBatch serializes recs to JSON and writes them in one call. An
// empty batch is a no-op.
func (p *Producer) SendBatch(ctx context.Context, recs []record.ExecutionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	p.mu.Lock()
	writer := p.writer
	connected := p.connected
	p.mu.Unlock()

	if !connected || writer == nil {
		return fmt.Errorf("%w: producer not connected", ErrSendFailed)
	}

	messages := make([]kafka.Message, 0, len(recs))
	for _, rec := range recs {
		body, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}

		ts, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
		if err != nil {
			ts = time.Now().UTC()
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(rec.MessageID),
			Value: body,
			Time:  ts,
		})
	}

	headers := map[string]string{}
	batchKey := string(messages[0].Key)

	sendErr := p.instrumentation.InstrumentPublish(ctx, p.cfg.Topic, batchKey, headers, func(spanCtx context.Context) error {
		traceHeaders := make([]kafka.Header, 0, len(headers))
		for k, v := range headers {
			traceHeaders = append(traceHeaders, kafka.Header{Key: k, Value: []byte(v)})
		}
		for i := range messages {
			messages[i].Headers = traceHeaders
		}

		sendCtx, cancel := context.WithTimeout(spanCtx, p.cfg.Timeouts.Send)
		defer cancel()

		if err := writer.WriteMessages(sendCtx, messages...); err != nil {
			if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %v", ErrSendTimeout, err)
			}
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		return nil
	})
	if sendErr != nil {
		return sendErr
	}

	p.logger.Debug(ctx, "batch sent", Field{Key: "count", Value: len(messages)})
	return nil
}

// buildTransport constructs the SASL-aware transport implied by cfg by
// delegating to pkg/messaging/kafka/auth's Strategy, the same dialer
// construction pkg/messaging/kafka's own client uses.
func (p *Producer) buildTransport() (*kafka.Transport, error) {
	transport := &kafka.Transport{}

	if p.cfg.SSL {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if p.cfg.Auth == nil || p.cfg.Auth.Mechanism == "" {
		return transport, nil
	}

	strategyType, algorithm, err := authStrategyFor(p.cfg.Auth.Mechanism)
	if err != nil {
		return nil, err
	}

	dialer, err := auth.NewStrategy(strategyType).Configure(&auth.Config{
		Username:  p.cfg.Auth.Username,
		Password:  p.cfg.Auth.Password,
		Algorithm: algorithm,
		TLSConfig: transport.TLS,
	})
	if err != nil {
		return nil, err
	}

	transport.SASL = dialer.SASLMechanism
	if transport.TLS == nil {
		transport.TLS = dialer.TLS
	}
	return transport, nil
}

// authStrategyFor maps the three mechanisms PipelineConfig exposes onto
// pkg/messaging/kafka/auth's strategy types.
func authStrategyFor(mechanism AuthMechanism) (auth.StrategyType, auth.ScramAlgorithm, error) {
	switch mechanism {
	case AuthPlain:
		return auth.StrategyPlain, "", nil
	case AuthScramSHA256:
		return auth.StrategyScram, auth.ScramSHA256, nil
	case AuthScramSHA512:
		return auth.StrategyScram, auth.ScramSHA512, nil
	default:
		return "", "", ErrUnsupportedMechanism
	}
}

// probeBrokers verifies at least one broker is reachable before the
// writer is handed back as connected, so Connect fails fast instead of
// silently deferring the error to the first Send.
func probeBrokers(ctx context.Context, transport *kafka.Transport, brokers []string) error {
	var lastErr error
	for _, broker := range brokers {
		conn, err := (&kafka.Dialer{Timeout: 5 * time.Second, TLS: transport.TLS}).DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return lastErr
}
