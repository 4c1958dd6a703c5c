package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/freestartupia/startupia/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const countChannel = "votes:counts"

// CountChannel publishes and receives confirmed counts on a shared channel.
type CountChannel struct {
	rdb *goredis.Client
}

var (
	_ domain.CountPublisher  = (*CountChannel)(nil)
	_ domain.CountSubscriber = (*CountChannel)(nil)
)

func NewCountChannel(rdb *goredis.Client) *CountChannel {
	return &CountChannel{rdb: rdb}
}

func (c *CountChannel) PublishCount(ctx context.Context, update domain.CountUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode count update: %w", err)
	}
	if err := c.rdb.Publish(ctx, countChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish count update: %w", err)
	}
	return nil
}

// SubscribeCounts returns once the subscription is confirmed by Redis. The
// channel closes when ctx ends.
func (c *CountChannel) SubscribeCounts(ctx context.Context) (<-chan domain.CountUpdate, error) {
	pubsub := c.rdb.Subscribe(ctx, countChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", countChannel, err)
	}

	out := make(chan domain.CountUpdate)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				update, err := decodeCountUpdate(msg.Payload)
				if err != nil {
					slog.Warn("Dropping malformed count update", "error", err)
					continue
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func decodeCountUpdate(payload string) (domain.CountUpdate, error) {
	var update domain.CountUpdate
	if err := json.Unmarshal([]byte(payload), &update); err != nil {
		return domain.CountUpdate{}, fmt.Errorf("decode count update: %w", err)
	}
	switch update.Kind {
	case domain.SubjectPost, domain.SubjectStartup:
	default:
		return domain.CountUpdate{}, fmt.Errorf("decode count update: unknown kind %q", update.Kind)
	}
	return update, nil
}
