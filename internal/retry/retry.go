// Package retry implements bounded retries with error classification, so
// upstream fetches can distinguish permanent failures from transient ones and
// rate limits from ordinary hiccups.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Action decides how a failed attempt is handled.
type Action int

const (
	// Stop marks a permanent error; the call aborts immediately.
	Stop Action = iota
	// Retry marks a transient error; the next attempt follows normal backoff.
	Retry
	// After marks a rate limit; the next attempt waits the longer backoff.
	After
)

// Classify maps an error to the action to take.
type Classify func(err error) Action

// Policy bounds attempts and backoff. The zero Clock means real time.
type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	RateLimitBackoff time.Duration
	Clock            clockwork.Clock
	OnRetry          func(attempt int, err error, backoff time.Duration)
}

func (p Policy) clock() clockwork.Clock {
	if p.Clock != nil {
		return p.Clock
	}
	return clockwork.NewRealClock()
}

// PermanentError wraps an error classified as Stop, so callers can tell an
// aborted call from an exhausted one.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Do runs op up to p.MaxAttempts times, doubling the backoff between
// transient failures. Rate-limited attempts reset the backoff to the longer
// RateLimitBackoff instead.
func Do[T any](ctx context.Context, p Policy, classify Classify, op func() (T, error)) (T, error) {
	var zero T
	clock := p.clock()
	backoff := p.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}
		lastErr = err

		switch classify(err) {
		case Stop:
			return zero, &PermanentError{Err: err}
		case After:
			backoff = p.RateLimitBackoff
		}

		if attempt == p.MaxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-clock.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, lastErr)
}
