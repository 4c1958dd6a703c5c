package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
)

// MetricsHook records every Redis command. Install it before the circuit
// breaker hook so rejected calls are counted too.
type MetricsHook struct {
	metrics *metrics.StoreMetrics
}

var _ goredis.Hook = (*MetricsHook)(nil)

func NewMetricsHook(m *metrics.StoreMetrics) *MetricsHook {
	return &MetricsHook{metrics: m}
}

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.metrics.ObserveRedisDialError()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.metrics.ObserveRedis(cmd.Name(), time.Since(start), err != nil && !errors.Is(err, goredis.Nil))
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.metrics.ObserveRedis("pipeline", time.Since(start), err != nil)
		return err
	}
}
