package domain

import (
	"context"

	"github.com/google/uuid"
)

// Identity is the authenticated user as reported by the backend.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// IdentitySource resolves the current authenticated user.
type IdentitySource interface {
	ResolveToken(ctx context.Context, accessToken string) (*Identity, error)
	GetIdentity(ctx context.Context, userID uuid.UUID) (*Identity, error)
}
