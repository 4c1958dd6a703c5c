package redis

import (
	"context"
	"fmt"
	"net"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/freestartupia/startupia/internal/adapter/resilience"
	goredis "github.com/redis/go-redis/v9"
)

// CircuitBreakerHook fails Redis calls fast while the breaker is open.
// Confirmed counts are best effort, so an open breaker only costs realtime
// fan-out, never a vote.
type CircuitBreakerHook struct {
	cb circuitbreaker.CircuitBreaker[any]
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

func NewCircuitBreakerHook(cb circuitbreaker.CircuitBreaker[any]) *CircuitBreakerHook {
	return &CircuitBreakerHook{cb: cb}
}

// guard runs call when the breaker admits it. A nil reply is an answer and
// keeps the breaker closed.
func (h *CircuitBreakerHook) guard(what string, call func() error) error {
	if !h.cb.TryAcquirePermit() {
		return fmt.Errorf("redis %s: %w", what, circuitbreaker.ErrOpen)
	}
	err := call()
	resilience.Record(h.cb, err, goredis.Nil)
	return err
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		var conn net.Conn
		err := h.guard("dial", func() error {
			var err error
			conn, err = next(ctx, network, addr)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("redis dial %s: %w", addr, err)
		}
		return conn, nil
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		return h.guard(cmd.Name(), func() error { return next(ctx, cmd) })
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		return h.guard("pipeline", func() error { return next(ctx, cmds) })
	}
}

func (h *CircuitBreakerHook) State() circuitbreaker.State {
	return h.cb.State()
}
