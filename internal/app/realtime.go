package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freestartupia/startupia/internal/domain"
)

// CountListener feeds counts confirmed by any instance into local sessions.
type CountListener struct {
	subscriber domain.CountSubscriber
	registry   *Registry
}

func NewCountListener(subscriber domain.CountSubscriber, registry *Registry) *CountListener {
	return &CountListener{subscriber: subscriber, registry: registry}
}

// Run blocks until ctx ends or the subscription closes.
func (l *CountListener) Run(ctx context.Context) error {
	updates, err := l.subscriber.SubscribeCounts(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to counts: %w", err)
	}

	slog.Info("Count listener started")
	for update := range updates {
		n := l.registry.Broadcast(update)
		slog.Debug("Applied confirmed count", "subject_id", update.SubjectID, "kind", string(update.Kind), "count", update.Count, "sessions", n)
	}

	if ctx.Err() != nil {
		slog.Info("Count listener stopped")
		return nil
	}
	return errors.New("count subscription closed")
}

// LocalPublisher broadcasts confirmed counts within this process only. It is
// used when no Redis instance is configured.
type LocalPublisher struct {
	registry *Registry
}

func NewLocalPublisher(registry *Registry) *LocalPublisher {
	return &LocalPublisher{registry: registry}
}

func (p *LocalPublisher) PublishCount(_ context.Context, update domain.CountUpdate) error {
	p.registry.Broadcast(update)
	return nil
}
