package domain

import (
	"context"

	"github.com/google/uuid"
)

// CountUpdate is a server-confirmed tally shared between sessions.
type CountUpdate struct {
	SubjectID uuid.UUID   `json:"subject_id"`
	Kind      SubjectKind `json:"kind"`
	Count     int         `json:"count"`
}

// Ref returns the subject the update is about.
func (u CountUpdate) Ref() SubjectRef {
	return SubjectRef{Kind: u.Kind, ID: u.SubjectID}
}

// CountPublisher pushes confirmed counts to other sessions and instances.
type CountPublisher interface {
	PublishCount(ctx context.Context, update CountUpdate) error
}

// CountSubscriber delivers confirmed counts published by any instance.
// The channel is closed when ctx ends or the subscription fails.
type CountSubscriber interface {
	SubscribeCounts(ctx context.Context) (<-chan CountUpdate, error)
}
