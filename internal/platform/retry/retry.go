// Package retry repeats reads against a remote dependency with capped
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Policy struct {
	Attempts   int
	Backoff    time.Duration // wait after the first failure, doubled after each retry
	MaxBackoff time.Duration // zero means uncapped
	OnRetry    func(attempt int, err error, wait time.Duration)
	Clock      clockwork.Clock // defaults to the real clock
}

// ReadBack is the policy for fetching an authoritative value right after a
// write has been accepted.
func ReadBack() Policy {
	return Policy{
		Attempts:   3,
		Backoff:    50 * time.Millisecond,
		MaxBackoff: 400 * time.Millisecond,
	}
}

// Retryable reports whether a failed attempt may be repeated.
type Retryable func(err error) bool

// StopOn retries everything except context errors and the given sentinels.
func StopOn(permanent ...error) Retryable {
	return func(err error) bool {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		for _, p := range permanent {
			if errors.Is(err, p) {
				return false
			}
		}
		return true
	}
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls op until it succeeds, fails permanently, runs out of attempts or
// ctx ends. Permanent errors are returned as they are.
func Do[T any](ctx context.Context, p Policy, retryable Retryable, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.Attempts < 1 {
		return zero, fmt.Errorf("retry policy needs at least one attempt, got %d", p.Attempts)
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	wait := p.Backoff
	for attempt := 1; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		if !retryable(err) {
			return zero, err
		}
		if attempt == p.Attempts {
			return zero, &ExhaustedError{Attempts: attempt, Err: err}
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		select {
		case <-clock.After(wait):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry interrupted after %d attempts: %w", attempt, ctx.Err())
		}

		wait *= 2
		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
	}
}
