package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	Email string
	TTL   time.Duration
}

type issuedToken struct {
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"access_token"`
	ExpiresIn string    `json:"expires_in"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}
	cmd.AddCommand(newTokenIssueCommand(rootOpts))
	return cmd
}

func newTokenIssueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create a profile if needed and issue an access token for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(opts.Email)
			if email == "" {
				return errors.New("--email is required")
			}
			if opts.TTL <= 0 {
				return errors.New("--ttl must be positive")
			}

			return withBackend(cmd, rootOpts, func(ctx context.Context, b Backend) error {
				userID, err := b.UpsertProfile(ctx, email)
				if err != nil {
					return fmt.Errorf("upsert profile: %w", err)
				}
				token, err := b.IssueToken(ctx, userID, opts.TTL)
				if err != nil {
					return fmt.Errorf("issue token: %w", err)
				}

				out := issuedToken{UserID: userID, Token: token, ExpiresIn: opts.TTL.String()}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), out)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "user:  %s\ntoken: %s\n", out.UserID, out.Token)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "profile email")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
