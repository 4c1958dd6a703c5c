package postgres

import (
	"context"
	"fmt"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var subjectTables = map[domain.SubjectKind]string{
	domain.SubjectPost:    `SELECT id FROM posts`,
	domain.SubjectStartup: `SELECT id FROM startups`,
}

// RecountAll reruns the count procedure for every subject of a kind in one
// transaction and returns how many subjects were recounted.
func (g *Gateway) RecountAll(ctx context.Context, kind domain.SubjectKind) (int, error) {
	q, err := queriesFor(kind)
	if err != nil {
		return 0, err
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, subjectTables[kind])
	if err != nil {
		return 0, fmt.Errorf("failed to list %s ids: %w", kind, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s ids: %w", kind, err)
	}

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(q.recount, id)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to recount %s subjects: %w", kind, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit recount: %w", err)
	}
	return len(ids), nil
}
