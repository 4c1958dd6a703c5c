package cli

import (
	"fmt"

	"github.com/freestartupia/startupia/internal/platform/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
}
