package domain

import (
	"context"

	"github.com/google/uuid"
)

// VoteGateway is the remote data gateway for votes. It owns durable state;
// every call may fail with a transport or database error.
type VoteGateway interface {
	// WriteVote applies the row mutation and then runs the backend's
	// count-recalculation procedure, atomically: on error neither is visible.
	// Mutations are idempotent, so a write that repeats what is already
	// stored succeeds.
	WriteVote(ctx context.Context, w VoteWrite) error
	// GetCount reads back the authoritative tally.
	GetCount(ctx context.Context, subject SubjectRef) (int, error)

	// ListSubjects returns all subjects of a kind with userID's vote flags filled in.
	ListSubjects(ctx context.Context, kind SubjectKind, userID uuid.UUID) ([]Post, error)
}
