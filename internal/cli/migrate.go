package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, rootOpts, func(ctx context.Context, b Backend) error {
				report, err := b.Migrate(ctx)
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), report)
				}
				if !report.Applied() {
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema already at version %d\n", report.To)
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema migrated from version %d to %d\n", report.From, report.To)
				return err
			})
		},
	}
}
