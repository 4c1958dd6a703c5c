// Package resilience guards remote dependencies with failsafe-go circuit breakers.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/freestartupia/startupia/internal/adapter/metrics"
)

// BreakerSettings configures a count-based circuit breaker.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint
	Delay            time.Duration
	SuccessThreshold uint
}

// NewBreaker builds a breaker that logs and exports its state changes.
func NewBreaker(s BreakerSettings, m *metrics.GatewayMetrics) circuitbreaker.CircuitBreaker[any] {
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = 1
	}
	m.SetBreakerState(s.Name, StateValue(circuitbreaker.ClosedState))

	return circuitbreaker.NewBuilder[any]().
		WithFailureThreshold(s.FailureThreshold).
		WithDelay(s.Delay).
		WithSuccessThreshold(s.SuccessThreshold).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", s.Name,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			m.SetBreakerState(s.Name, StateValue(e.NewState))
		}).
		Build()
}

// StateValue maps a breaker state onto the exported gauge value.
func StateValue(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.ClosedState:
		return 0
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return -1
	}
}

// IsOpen reports whether err was caused by a rejected call on an open breaker.
func IsOpen(err error) bool {
	return errors.Is(err, circuitbreaker.ErrOpen)
}

// Record feeds the outcome of a call guarded by TryAcquirePermit into cb.
// Errors matching expected are answers, not faults, and count as successes.
func Record(cb circuitbreaker.CircuitBreaker[any], err error, expected ...error) {
	if countsAsFailure(err, expected) {
		cb.RecordError(err)
		return
	}
	cb.RecordSuccess()
}

// countsAsFailure tells infrastructure faults apart from answers the
// dependency gave on purpose.
func countsAsFailure(err error, expected []error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	for _, e := range expected {
		if errors.Is(err, e) {
			return false
		}
	}
	return true
}
