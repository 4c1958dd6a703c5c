package postgres

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdentityRepo resolves access tokens to profiles. Tokens are stored hashed.
type IdentityRepo struct {
	pool *pgxpool.Pool
}

func NewIdentityRepo(pool *pgxpool.Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *IdentityRepo) ResolveToken(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if accessToken == "" {
		return nil, domain.ErrTokenInvalid
	}

	var identity domain.Identity
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.email
		FROM access_tokens t
		JOIN profiles p ON p.id = t.user_id
		WHERE t.token_hash = $1 AND t.expires_at > now()`,
		hashToken(accessToken),
	).Scan(&identity.UserID, &identity.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve access token: %w", err)
	}
	return &identity, nil
}

func (r *IdentityRepo) GetIdentity(ctx context.Context, userID uuid.UUID) (*domain.Identity, error) {
	identity := domain.Identity{UserID: userID}
	err := r.pool.QueryRow(ctx, `SELECT email FROM profiles WHERE id = $1`, userID).Scan(&identity.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &identity, nil
}

// UpsertProfile returns the profile id for email, creating it if needed.
func (r *IdentityRepo) UpsertProfile(ctx context.Context, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO profiles (email) VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`, email).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return id, nil
}

// IssueToken creates a new access token for a profile. Only the hash is kept.
func (r *IdentityRepo) IssueToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO access_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, now() + make_interval(secs => $3))`,
		hashToken(token), userID, ttl.Seconds())
	if err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}
