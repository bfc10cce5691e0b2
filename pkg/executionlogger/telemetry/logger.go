// Package telemetry provides the structured logger every execution
// logger component logs through, adapted from pkg/logger.zapLogger:
// same zap.Config shape and InitialFields convention, but context-aware
// methods matching pkg/messaging/kafka.Logger's call shape, and a real
// instance id generator via github.com/google/uuid.
package telemetry

import (
	"context"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured logging key/value pair, shared by every
// executionlogger sub-package's Logger interface.
type Field struct {
	Key   string
	Value any
}

// Logger is the structured logging seam used throughout
// pkg/executionlogger. Any component's own Logger interface (producer,
// pipeline, adapter) is satisfied by *Logger via an identical method
// set, so one zap-backed value can be threaded through the whole
// pipeline.
type Logger struct {
	zap *zap.Logger
}

// New builds a production-shaped JSON zap logger, mirroring
// pkg/logger.NewLogger's EncoderConfig and InitialFields.
func New(serviceName string) (*Logger, error) {
	hostname, _ := os.Hostname()

	cfg := zap.Config{
		Encoding:         "json",
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]any{
			"service.name":        serviceName,
			"host.name":           hostname,
			"service.instance.id": uuid.NewString(),
		},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "message",
			TimeKey:     "time",
			LevelKey:    "severity",
			EncodeTime:  zapcore.ISO8601TimeEncoder,
			EncodeLevel: zapcore.CapitalLevelEncoder,
		},
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{zap: z}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (l *Logger) Debug(_ context.Context, msg string, fields ...Field) {
	l.zap.Debug(msg, toZapFields(fields)...)
}

func (l *Logger) Info(_ context.Context, msg string, fields ...Field) {
	l.zap.Info(msg, toZapFields(fields)...)
}

func (l *Logger) Warn(_ context.Context, msg string, fields ...Field) {
	l.zap.Warn(msg, toZapFields(fields)...)
}

func (l *Logger) Error(_ context.Context, msg string, fields ...Field) {
	l.zap.Error(msg, toZapFields(fields)...)
}

// Sync flushes any buffered log entries, intended for defer at shutdown.
func (l *Logger) Sync() error {
	return l.zap.Sync()
}
