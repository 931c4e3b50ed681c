// Package commands implements the sqlshift CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/sqlshift/sqlshift/cli/internal/config"
	"github.com/sqlshift/sqlshift/cli/internal/version"
	"github.com/sqlshift/sqlshift/internal/debug"
)

var (
	cfg       *config.Config
	debugMode bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "sqlshift",
		Short:   "Migrate T-SQL views to PostgreSQL or MySQL",
		Long:    "sqlshift translates SQL Server view definitions to a target dialect,\napplies them in dependency order, and validates row-level equivalence.",
		Version: version.Get().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug.Init(debugMode)
			var err error
			cfg, err = config.Load()
			return err
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	root.AddCommand(newInitCommand())
	root.AddCommand(newTranslateCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newValidateCommand())
	root.AddCommand(newIntrospectCommand())
	root.AddCommand(newVersionCommand())

	return root
}

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}
