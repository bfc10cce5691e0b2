// Package breaker implements the three-state circuit breaker guarding
// the producer, built around an Execute(ctx, op) call shape, with an
// exponential reopen delay capped at 8x the reset timeout.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is one of the three breaker states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrOpen is returned by Execute when the breaker short-circuits the
// call without invoking the operation.
var ErrOpen = errors.New("circuit breaker is open")

// ErrInvalidConfig is returned by New when any parameter is non-positive.
var ErrInvalidConfig = errors.New("breaker: failureThreshold, resetTimeout and monitoringPeriod must all be positive")

// maxBackoffMultiplier caps exponential backoff at 8x the base
// resetTimeout.
const maxBackoffMultiplier = 8

// Breaker is a circuit breaker over an arbitrary operation. All exported
// methods are safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	resetTimeout     time.Duration
	monitoringPeriod time.Duration

	state           State
	failures        int
	successes       int
	nextAttemptTime time.Time
	windowStart     time.Time
	lastFailure     time.Time

	now func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a Breaker. All three parameters must be positive.
func New(failureThreshold int, resetTimeout, monitoringPeriod time.Duration, opts ...Option) (*Breaker, error) {
	if failureThreshold <= 0 || resetTimeout <= 0 || monitoringPeriod <= 0 {
		return nil, ErrInvalidConfig
	}
	b := &Breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		monitoringPeriod: monitoringPeriod,
		state:            StateClosed,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.windowStart = b.now()
	return b, nil
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute guards op: when the breaker is Open and the reset timeout
// hasn't elapsed, op is never invoked and ErrOpen is returned. Otherwise
// op runs and its outcome updates the breaker's state.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if !b.allow() {
		return ErrOpen
	}

	err := op(ctx)
	b.recordOutcome(err)
	return err
}

// allow decides whether op may run, transitioning Open->Half-Open when
// the reset timeout has elapsed, and resetting the monitoring window
// when due.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.rollWindowLocked(now)

	switch b.state {
	case StateOpen:
		if now.Before(b.nextAttemptTime) {
			return false
		}
		b.state = StateHalfOpen
		return true
	default:
		return true
	}
}

func (b *Breaker) rollWindowLocked(now time.Time) {
	if now.Sub(b.windowStart) < b.monitoringPeriod {
		return
	}
	b.windowStart = now
	if b.state == StateClosed {
		b.failures = 0
		b.successes = 0
	}
}

func (b *Breaker) recordOutcome(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.onSuccessLocked()
		return
	}
	b.onFailureLocked()
}

func (b *Breaker) onSuccessLocked() {
	switch b.state {
	case StateHalfOpen:
		b.state = StateClosed
		b.failures = 0
		b.nextAttemptTime = time.Time{}
	case StateClosed:
		b.successes++
	}
}

func (b *Breaker) onFailureLocked() {
	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case StateHalfOpen:
		b.openLocked()
	case StateClosed:
		if b.failures >= b.failureThreshold {
			b.openLocked()
		}
	}
}

func (b *Breaker) openLocked() {
	b.state = StateOpen
	multiplier := b.failures - b.failureThreshold
	if multiplier < 0 {
		multiplier = 0
	}
	b.nextAttemptTime = b.lastFailure.Add(backoffDuration(b.resetTimeout, multiplier))
}

// backoffDuration computes resetTimeout * min(2^multiplier, 8). The
// doubling stops at the cap, so a large multiplier cannot overflow.
func backoffDuration(base time.Duration, multiplier int) time.Duration {
	factor := 1
	for i := 0; i < multiplier && factor < maxBackoffMultiplier; i++ {
		factor *= 2
	}
	return base * time.Duration(factor)
}

// NewExponentialBackOff returns a cenkalti/backoff.BackOff that starts
// at base, doubles per step and caps each interval at max. It is
// independent of the breaker's own reopen delay, which Execute derives
// from backoffDuration.
func NewExponentialBackOff(base, max time.Duration) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = base
	eb.MaxInterval = max
	eb.Multiplier = 2
	return eb
}
