package record

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidType        = errors.New("record: type must be \"track\"")
	ErrEmptyEvent         = errors.New("record: event must not be empty")
	ErrInvalidTimestamp   = errors.New("record: timestamp is not a valid ISO-8601 timestamp")
	ErrInvalidMessageID   = errors.New("record: messageId is not a valid UUID")
	ErrMissingIdentity    = errors.New("record: exactly one of userId/anonymousId must be set")
	ErrAmbiguousIdentity  = errors.New("record: userId and anonymousId are mutually exclusive")
	ErrNegativeNodeCount  = errors.New("record: metrics.node_count must not be negative")
	ErrNegativeDuration   = errors.New("record: metrics.duration_ms must not be negative")
)

// Validate checks the invariants spec'd for an ExecutionRecord.
func Validate(rec ExecutionRecord) error {
	if rec.Type != "track" {
		return ErrInvalidType
	}
	if rec.Event == "" {
		return ErrEmptyEvent
	}
	if _, err := time.Parse(time.RFC3339Nano, rec.Timestamp); err != nil {
		if _, err2 := time.Parse("2006-01-02T15:04:05.000Z07:00", rec.Timestamp); err2 != nil {
			return ErrInvalidTimestamp
		}
	}
	if _, err := uuid.Parse(rec.MessageID); err != nil {
		return ErrInvalidMessageID
	}
	hasUser := rec.UserID != ""
	hasAnon := rec.AnonymousID != ""
	switch {
	case hasUser && hasAnon:
		return ErrAmbiguousIdentity
	case !hasUser && !hasAnon:
		return ErrMissingIdentity
	}
	if rec.Metrics.NodeCount < 0 {
		return ErrNegativeNodeCount
	}
	if rec.Metrics.DurationMs != nil && *rec.Metrics.DurationMs < 0 {
		return ErrNegativeDuration
	}
	return nil
}
