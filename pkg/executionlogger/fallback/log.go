// Package fallback implements the rotating local log the pipeline writes
// to when Kafka delivery is not possible.
package fallback

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/smartdatahq/n8n-kafka-execution-logger/pkg/executionlogger/record"
)

const filePrefix = "kafka-fallback-"
const fileSuffix = ".log"

// Option configures a Log.
type Option func(*Log)

// WithMaxFileSize overrides the default 10MB rotation threshold.
func WithMaxFileSize(bytes int64) Option {
	return func(l *Log) {
		if bytes > 0 {
			l.maxFileSize = bytes
		}
	}
}

// WithMaxFiles overrides the default retained-file count (including the
// active file).
func WithMaxFiles(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxFiles = n
		}
	}
}

// WithRotateOnStartup forces one rotation the first time Log is used.
func WithRotateOnStartup(rotate bool) Option {
	return func(l *Log) {
		l.rotateOnStartup = rotate
	}
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// Logger is the minimal structured-logging sink fallback reports its own
// I/O failures to, mirroring pkg/messaging/kafka.Logger's shape.
type Logger interface {
	Error(msg string, fields map[string]any)
}

type noopLogger struct{}

func (noopLogger) Error(string, map[string]any) {}

// Log appends newline-delimited JSON records to a size-rotated file set.
// It never returns an error to its caller and never panics: any I/O
// failure is logged (if a Logger was supplied) and swallowed, because the
// pipeline must not fail just because the degraded path also failed.
type Log struct {
	mu              sync.Mutex
	dir             string
	maxFileSize     int64
	maxFiles        int
	rotateOnStartup bool
	rotatedOnce     bool
	now             func() time.Time
	logger          Logger
}

// NewLog creates a fallback log rooted at dir, creating the directory if
// needed. dir must be writable; failure to create it is reported through
// the optional logger and the Log still returns usably (every Append
// call will then fail closed and log the failure).
func NewLog(dir string, logger Logger, opts ...Option) *Log {
	if logger == nil {
		logger = noopLogger{}
	}
	l := &Log{
		dir:         dir,
		maxFileSize: 10 * 1024 * 1024,
		maxFiles:    5,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.logger.Error("fallback log: failed to create directory", map[string]any{"dir": dir, "error": err.Error()})
	}
	return l
}

type envelope struct {
	Timestamp    string                   `json:"timestamp"`
	Reason       string                   `json:"reason"`
	Message      *record.ExecutionRecord  `json:"message,omitempty"`
	MessageCount *int                     `json:"messageCount,omitempty"`
	Messages     []*record.ExecutionRecord `json:"messages,omitempty"`
}

// AppendOne writes a single-record fallback entry.
func (l *Log) AppendOne(reason string, rec record.ExecutionRecord) {
	l.append(envelope{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Reason:    reason,
		Message:   &rec,
	})
}

// AppendBatch writes a batch fallback entry. Writing an empty batch is a
// no-op.
func (l *Log) AppendBatch(reason string, recs []record.ExecutionRecord) {
	if len(recs) == 0 {
		return
	}
	ptrs := make([]*record.ExecutionRecord, len(recs))
	for i := range recs {
		ptrs[i] = &recs[i]
	}
	count := len(recs)
	l.append(envelope{
		Timestamp:    l.now().UTC().Format(time.RFC3339Nano),
		Reason:       reason,
		MessageCount: &count,
		Messages:     ptrs,
	})
}

func (l *Log) append(env envelope) {
	line, err := json.Marshal(env)
	if err != nil {
		l.logger.Error("fallback log: failed to marshal entry", map[string]any{"error": err.Error()})
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotateOnStartup && !l.rotatedOnce {
		l.rotateLocked()
		l.rotatedOnce = true
	}

	path := l.activePathLocked()
	size, err := fileSize(path)
	if err != nil && !os.IsNotExist(err) {
		l.logger.Error("fallback log: failed to stat active file", map[string]any{"path": path, "error": err.Error()})
	}

	if size+int64(len(line)) > l.maxFileSize {
		l.rotateLocked()
		path = l.activePathLocked()
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.logger.Error("fallback log: failed to open active file", map[string]any{"path": path, "error": err.Error()})
		return
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		l.logger.Error("fallback log: failed to write entry", map[string]any{"path": path, "error": err.Error()})
	}
}

func (l *Log) activePathLocked() string {
	return l.pathLocked(0)
}

func (l *Log) pathLocked(index int) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s%d%s", filePrefix, index, fileSuffix))
}

// rotateLocked deletes the oldest file, shifts every remaining file up by
// one index, and leaves index 0 free for a fresh active file. Caller must
// hold l.mu.
func (l *Log) rotateLocked() {
	oldest := l.pathLocked(l.maxFiles - 1)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			l.logger.Error("fallback log: failed to remove oldest rotation", map[string]any{"path": oldest, "error": err.Error()})
		}
	}

	for i := l.maxFiles - 2; i >= 0; i-- {
		from := l.pathLocked(i)
		to := l.pathLocked(i + 1)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, to); err != nil {
			l.logger.Error("fallback log: failed to rotate file", map[string]any{"from": from, "to": to, "error": err.Error()})
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
