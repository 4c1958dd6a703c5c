package redis

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestMetricsHook_Process(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(m)
	ctx := context.Background()

	ok := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return nil })
	miss := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })
	fail := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return errors.New("READONLY") })

	assert.NoError(t, ok(ctx, goredis.NewIntCmd(ctx, "publish", "c", "m")))
	assert.ErrorIs(t, miss(ctx, goredis.NewStringCmd(ctx, "get", "k")), goredis.Nil)
	assert.Error(t, fail(ctx, goredis.NewIntCmd(ctx, "publish", "c", "m")))

	assert.InDelta(t, 1, testutil.ToFloat64(m.RedisOps.WithLabelValues("publish", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RedisOps.WithLabelValues("publish", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RedisOps.WithLabelValues("get", "success")), 0)
}

func TestMetricsHook_DialError(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	dial := NewMetricsHook(m).DialHook(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})

	_, err := dial(context.Background(), "tcp", "localhost:6379")

	assert.Error(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RedisDialErrors), 0)
}
