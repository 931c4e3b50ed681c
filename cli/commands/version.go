package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlshift/sqlshift/cli/internal/update"
	"github.com/sqlshift/sqlshift/cli/internal/version"
)

func newVersionCommand() *cobra.Command {
	var checkUpdate bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			fmt.Println(info.FullString())
			if checkUpdate {
				return update.CheckForUpdates(info.Version)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkUpdate, "check-update", false, "check whether a newer release is available")

	return cmd
}
