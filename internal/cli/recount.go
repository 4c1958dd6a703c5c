package cli

import (
	"context"
	"fmt"

	"github.com/freestartupia/startupia/internal/domain"
	"github.com/spf13/cobra"
)

type recountResult struct {
	Kind       domain.SubjectKind `json:"kind"`
	Recomputed int                `json:"recomputed"`
}

// NewRecountCommand creates the recount command.
func NewRecountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recount [post|startup|all]",
		Short: "Recompute stored vote counts from vote rows",
		Long: `Recompute the stored count of every subject of the given kind by
running the same procedure the server calls after each vote. Use it to repair
counts after manual edits of vote rows.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			return withBackend(cmd, rootOpts, func(ctx context.Context, b Backend) error {
				return runRecount(ctx, cmd, rootOpts, b, kinds)
			})
		},
	}
}

func runRecount(ctx context.Context, cmd *cobra.Command, opts *RootOptions, b Backend, kinds []domain.SubjectKind) error {
	results := make([]recountResult, 0, len(kinds))
	for _, kind := range kinds {
		n, err := b.RecountAll(ctx, kind)
		if err != nil {
			return fmt.Errorf("recount %s: %w", kind, err)
		}
		results = append(results, recountResult{Kind: kind, Recomputed: n})
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), results)
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %d recounted\n", r.Kind, r.Recomputed); err != nil {
			return err
		}
	}
	return nil
}
