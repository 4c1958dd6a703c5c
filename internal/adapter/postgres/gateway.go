package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgForeignKeyViolation = "23503"

// subjectQueries holds the statements of one subject kind. Posts carry a
// vote_type column; startups store upvotes only. Writes are idempotent so a
// repeated write after an ambiguous failure lands on the same row.
type subjectQueries struct {
	upsert  string
	delete  string
	flips   bool
	recount string
	count   string
	list    string
}

var queries = map[domain.SubjectKind]subjectQueries{
	domain.SubjectPost: {
		upsert: `
			INSERT INTO post_votes (post_id, user_id, vote_type) VALUES ($1, $2, $3)
			ON CONFLICT (post_id, user_id) DO UPDATE SET vote_type = EXCLUDED.vote_type`,
		delete:  `DELETE FROM post_votes WHERE post_id = $1 AND user_id = $2`,
		flips:   true,
		recount: `SELECT recalculate_post_votes($1)`,
		count:   `SELECT upvotes_count FROM posts WHERE id = $1`,
		list: `
			SELECT p.id, p.title, p.category, p.author_id, p.upvotes_count, p.created_at, COALESCE(v.vote_type, '')
			FROM posts p
			LEFT JOIN post_votes v ON v.post_id = p.id AND v.user_id = $1
			ORDER BY p.upvotes_count DESC, p.created_at ASC, p.id ASC`,
	},
	domain.SubjectStartup: {
		upsert: `
			INSERT INTO startup_upvotes (startup_id, user_id) VALUES ($1, $2)
			ON CONFLICT (startup_id, user_id) DO NOTHING`,
		delete:  `DELETE FROM startup_upvotes WHERE startup_id = $1 AND user_id = $2`,
		recount: `SELECT recalculate_startup_upvotes($1)`,
		count:   `SELECT upvotes_count FROM startups WHERE id = $1`,
		list: `
			SELECT s.id, s.name, s.sector, s.founder_id, s.upvotes_count, s.created_at,
				CASE WHEN u.user_id IS NULL THEN '' ELSE 'up' END
			FROM startups s
			LEFT JOIN startup_upvotes u ON u.startup_id = s.id AND u.user_id = $1
			ORDER BY s.upvotes_count DESC, s.created_at ASC, s.id ASC`,
	},
}

// Gateway implements domain.VoteGateway on the hosted Postgres schema.
type Gateway struct {
	pool *pgxpool.Pool
}

func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

func queriesFor(kind domain.SubjectKind) (subjectQueries, error) {
	q, ok := queries[kind]
	if !ok {
		return subjectQueries{}, fmt.Errorf("unknown subject kind %q", kind)
	}
	return q, nil
}

// WriteVote applies the row mutation and reruns the count procedure in one
// transaction. Deleting a missing row and inserting an existing one succeed.
func (g *Gateway) WriteVote(ctx context.Context, w domain.VoteWrite) error {
	subject := w.Row.Subject
	q, err := queriesFor(subject.Kind)
	if err != nil {
		return err
	}
	stmt, args, err := q.statement(w)
	if err != nil {
		return err
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError(err, subject)
	}
	if _, err := tx.Exec(ctx, q.recount, subject.ID); err != nil {
		return fmt.Errorf("failed to recalculate %s: %w", subject, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s vote on %s: %w", w.Mutation, subject, err)
	}
	return nil
}

func (q subjectQueries) statement(w domain.VoteWrite) (string, []any, error) {
	row := w.Row
	switch w.Mutation {
	case domain.MutationDelete:
		return q.delete, []any{row.Subject.ID, row.UserID}, nil
	case domain.MutationInsert, domain.MutationUpdate:
		if !row.Subject.Kind.Allows(row.Direction) || (w.Mutation == domain.MutationUpdate && !q.flips) {
			return "", nil, fmt.Errorf("%w: %s %q on %s", domain.ErrInvalidDirection, w.Mutation, row.Direction, row.Subject.Kind)
		}
		if !q.flips {
			return q.upsert, []any{row.Subject.ID, row.UserID}, nil
		}
		return q.upsert, []any{row.Subject.ID, row.UserID, string(row.Direction)}, nil
	default:
		return "", nil, fmt.Errorf("unknown vote mutation %d", w.Mutation)
	}
}

func (g *Gateway) GetCount(ctx context.Context, subject domain.SubjectRef) (int, error) {
	q, err := queriesFor(subject.Kind)
	if err != nil {
		return 0, err
	}

	var count int32
	err = g.pool.QueryRow(ctx, q.count, subject.ID).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrSubjectNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get count of %s: %w", subject, err)
	}
	return int(count), nil
}

// ListSubjects returns every subject of a kind with userID's vote flags.
// uuid.Nil yields all flags false.
func (g *Gateway) ListSubjects(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error) {
	q, err := queriesFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := g.pool.Query(ctx, q.list, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s subjects: %w", kind, err)
	}

	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Post, error) {
		p := domain.Post{Kind: kind}
		var count int32
		var voted string
		if err := row.Scan(&p.ID, &p.Title, &p.Category, &p.AuthorID, &count, &p.CreatedAt, &voted); err != nil {
			return domain.Post{}, err
		}
		p.UpvotesCount = int(count)
		p.IsUpvoted = voted == string(domain.DirectionUp)
		p.IsDownvoted = voted == string(domain.DirectionDown)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s subjects: %w", kind, err)
	}
	return posts, nil
}

func mapWriteError(err error, subject domain.SubjectRef) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		if strings.HasSuffix(pgErr.ConstraintName, "_user_id_fkey") {
			return fmt.Errorf("%w: unknown profile", domain.ErrUnauthenticated)
		}
		return fmt.Errorf("%w: %s", domain.ErrSubjectNotFound, subject)
	}
	return fmt.Errorf("failed to write vote on %s: %w", subject, err)
}
