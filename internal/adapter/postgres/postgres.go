package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed schemas/*.sql
var schemaFiles embed.FS

const (
	applicationName = "startupia"

	// Vote requests hold a connection for two short statements; idle
	// connections beyond that are returned quickly.
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = 30 * time.Second

	// schemaLockKey is the advisory lock key guarding migrations ("votes").
	schemaLockKey     = 0x766f746573
	schemaVersionTbl  = "public.schema_version"
	unlockGracePeriod = 5 * time.Second
)

// Connect opens a pool and verifies it with a ping. Queries are traced into m
// when it is non-nil.
func Connect(ctx context.Context, databaseURL string, m *metrics.StoreMetrics) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.HealthCheckPeriod = healthCheckPeriod
	if m != nil {
		cfg.ConnConfig.Tracer = NewQueryTracer(m)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"tls", cfg.ConnConfig.TLSConfig != nil,
		"max_conns", cfg.MaxConns)
	return pool, nil
}

// Ping is a health check for the pool.
func Ping(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

// MigrationReport describes one Migrate run.
type MigrationReport struct {
	From int32 `json:"from_version"`
	To   int32 `json:"to_version"`
}

// Applied reports whether the run changed the schema.
func (r MigrationReport) Applied() bool { return r.To != r.From }

// Migrate brings the schema up to date. Instances starting together take
// turns on an advisory lock, so only the first one applies anything.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (MigrationReport, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	var report MigrationReport
	err = withAdvisoryLock(ctx, conn.Conn(), schemaLockKey, func() error {
		var migrateErr error
		report, migrateErr = migrateConn(ctx, conn.Conn())
		return migrateErr
	})
	if err != nil {
		return MigrationReport{}, err
	}

	slog.Info("Database schema up to date", "from_version", report.From, "to_version", report.To)
	return report, nil
}

func migrateConn(ctx context.Context, conn *pgx.Conn) (MigrationReport, error) {
	schemas, err := fs.Sub(schemaFiles, "schemas")
	if err != nil {
		return MigrationReport{}, fmt.Errorf("failed to read migrations: %w", err)
	}
	migrator, err := migrate.NewMigrator(ctx, conn, schemaVersionTbl)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrator.LoadMigrations(schemas); err != nil {
		return MigrationReport{}, fmt.Errorf("failed to load migrations: %w", err)
	}

	from, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("failed to read schema version: %w", err)
	}
	if err := migrator.Migrate(ctx); err != nil {
		return MigrationReport{}, fmt.Errorf("failed to migrate database: %w", err)
	}
	return MigrationReport{From: from, To: int32(len(migrator.Migrations))}, nil
}

// withAdvisoryLock runs fn while conn holds a session-level advisory lock.
// The unlock uses a fresh context so a cancelled ctx cannot leak the lock.
func withAdvisoryLock(ctx context.Context, conn *pgx.Conn, key int64, fn func() error) error {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockGracePeriod)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			slog.ErrorContext(ctx, "Failed to release advisory lock", "key", key, "error", err)
		}
	}()
	return fn()
}
