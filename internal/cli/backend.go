package cli

import (
	"context"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/postgres"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgBackend struct {
	pool       *pgxpool.Pool
	gateway    *postgres.Gateway
	identities *postgres.IdentityRepo
}

// ConnectPostgres is the production Connector.
func ConnectPostgres(ctx context.Context, databaseURL string) (Backend, error) {
	pool, err := postgres.Connect(ctx, databaseURL, nil)
	if err != nil {
		return nil, err
	}
	return &pgBackend{
		pool:       pool,
		gateway:    postgres.NewGateway(pool),
		identities: postgres.NewIdentityRepo(pool),
	}, nil
}

func (b *pgBackend) Migrate(ctx context.Context) (postgres.MigrationReport, error) {
	return postgres.Migrate(ctx, b.pool)
}

func (b *pgBackend) RecountAll(ctx context.Context, kind domain.SubjectKind) (int, error) {
	return b.gateway.RecountAll(ctx, kind)
}

func (b *pgBackend) ListSubjects(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error) {
	return b.gateway.ListSubjects(ctx, kind, userID)
}

func (b *pgBackend) UpsertProfile(ctx context.Context, email string) (uuid.UUID, error) {
	return b.identities.UpsertProfile(ctx, email)
}

func (b *pgBackend) IssueToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error) {
	return b.identities.IssueToken(ctx, userID, ttl)
}

func (b *pgBackend) Close() {
	b.pool.Close()
}
