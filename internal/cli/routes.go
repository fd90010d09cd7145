package cli

import (
	"fmt"

	"github.com/muir/nkernel/internal/demo"
	"github.com/spf13/cobra"
)

// NewRoutesCommand creates the routes command.
func NewRoutesCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the demo routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, r := range demo.Routes().Routes() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), r.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
