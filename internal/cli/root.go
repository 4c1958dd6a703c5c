// Package cli implements startupctl, the operator CLI for the vote store.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/freestartupia/startupia/internal/adapter/postgres"
	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/platform/logging"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Backend is the storage surface the commands operate on.
type Backend interface {
	Migrate(ctx context.Context) (postgres.MigrationReport, error)
	RecountAll(ctx context.Context, kind domain.SubjectKind) (int, error)
	ListSubjects(ctx context.Context, kind domain.SubjectKind, userID uuid.UUID) ([]domain.Post, error)
	UpsertProfile(ctx context.Context, email string) (uuid.UUID, error)
	IssueToken(ctx context.Context, userID uuid.UUID, ttl time.Duration) (string, error)
	Close()
}

// Connector opens a Backend for a database URL.
type Connector func(ctx context.Context, databaseURL string) (Backend, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL string
	Format      string // "json" | "text"
	Verbose     bool
	LogFormat   string

	connect Connector
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the startupctl root command. databaseURL is the
// default for --database-url.
func NewRootCommand(connect Connector, databaseURL, logFormat string) *cobra.Command {
	opts := &RootOptions{LogFormat: logFormat, connect: connect}

	cmd := &cobra.Command{
		Use:   "startupctl",
		Short: "Operate the startupia vote store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Verbose {
				slog.SetDefault(logging.New(cmd.ErrOrStderr(), "debug", opts.LogFormat))
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", databaseURL, "PostgreSQL connection string (default $DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewRecountCommand(opts))
	cmd.AddCommand(NewFeedCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// withBackend opens the backend for the duration of fn.
func withBackend(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, b Backend) error) error {
	if opts.DatabaseURL == "" {
		return errors.New("no database configured: set DATABASE_URL or pass --database-url")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := opts.connect(ctx, opts.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer b.Close()

	return fn(ctx, b)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// parseKinds expands a kind argument; "all" or no argument means every kind.
func parseKinds(args []string) ([]domain.SubjectKind, error) {
	if len(args) == 0 || args[0] == "all" {
		return []domain.SubjectKind{domain.SubjectPost, domain.SubjectStartup}, nil
	}
	switch k := domain.SubjectKind(args[0]); k {
	case domain.SubjectPost, domain.SubjectStartup:
		return []domain.SubjectKind{k}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q: must be post, startup or all", args[0])
	}
}
