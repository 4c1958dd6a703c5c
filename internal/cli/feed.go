package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/freestartupia/startupia/internal/feed"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type feedOptions struct {
	Query    string
	Category string
	User     string
	Limit    int
}

// NewFeedCommand creates the feed command.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &feedOptions{}

	cmd := &cobra.Command{
		Use:   "feed [post|startup]",
		Short: "Print a collection in display order",
		Long: `Print posts or startups sorted the way the site shows them: most
votes first, older entries first on ties. With --user the vote flags of that
user are included.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := domain.SubjectPost
			if len(args) == 1 {
				kinds, err := parseKinds(args)
				if err != nil || len(kinds) != 1 {
					return fmt.Errorf("unknown kind %q: must be post or startup", args[0])
				}
				kind = kinds[0]
			}

			userID := uuid.Nil
			if opts.User != "" {
				id, err := uuid.Parse(opts.User)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				userID = id
			}

			return withBackend(cmd, rootOpts, func(ctx context.Context, b Backend) error {
				return runFeed(ctx, cmd, rootOpts, opts, b, kind, userID)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "case-insensitive title search")
	cmd.Flags().StringVar(&opts.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&opts.User, "user", "", "user id whose vote flags to show")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum entries to print (0 for all)")

	return cmd
}

func runFeed(ctx context.Context, cmd *cobra.Command, rootOpts *RootOptions, opts *feedOptions, b Backend, kind domain.SubjectKind, userID uuid.UUID) error {
	posts, err := b.ListSubjects(ctx, kind, userID)
	if err != nil {
		return fmt.Errorf("list %s: %w", kind, err)
	}

	filter := feed.Filter{Kind: kind, Query: opts.Query, Category: opts.Category}
	matched := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		if filter.Match(p) {
			matched = append(matched, p)
		}
	}

	sorted := feed.Resort(matched)
	if opts.Limit > 0 && len(sorted) > opts.Limit {
		sorted = sorted[:opts.Limit]
	}

	if rootOpts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), sorted)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNT\tVOTE\tCREATED\tTITLE\tID")
	for _, p := range sorted {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.UpvotesCount, voteMark(p), p.CreatedAt.Format("2006-01-02"), p.Title, p.ID)
	}
	return w.Flush()
}

func voteMark(p domain.Post) string {
	switch {
	case p.IsUpvoted:
		return "up"
	case p.IsDownvoted:
		return "down"
	default:
		return "-"
	}
}
