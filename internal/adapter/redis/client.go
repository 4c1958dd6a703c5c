// Package redis carries confirmed vote counts between server instances over
// Redis pub/sub.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient parses redisURL, installs the given hooks and verifies the
// connection with a ping.
func NewClient(ctx context.Context, redisURL string, hooks ...goredis.Hook) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := goredis.NewClient(opts)
	for _, h := range hooks {
		client.AddHook(h)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("Redis connected", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

// Ping is a health check for the client.
func Ping(client *goredis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
