package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlshift/sqlshift/cli/internal/ui"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Plan, apply, and inspect view migrations",
	}

	cmd.AddCommand(newMigratePlanCommand())
	cmd.AddCommand(newMigrateRunCommand())
	cmd.AddCommand(newMigrateStatusCommand())

	return cmd
}

func newMigratePlanCommand() *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "plan [name]",
		Short: "Translate all views and show the ordered migration plan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := connectEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			plan, objects, err := engine.Plan(ctx, planName(args))
			reportTranslationFailures(objects)
			if err != nil {
				return err
			}

			depsByName := map[string][]string{}
			for _, obj := range objects {
				depsByName[obj.TargetName] = obj.DependsOn
			}

			var rows [][]string
			for i, step := range plan.Steps {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					step.Name,
					strings.Join(depsByName[step.Name], ", "),
				})
			}
			ui.PrintSection(fmt.Sprintf("Migration plan %q (%d steps)", plan.Name, len(plan.Steps)))
			ui.PrintTable([]string{"#", "Object", "Depends on"}, rows)

			for _, warning := range plan.Warnings {
				ui.PrintWarning("%s", warning)
			}
			if showSQL {
				ui.PrintCodeBlock(strings.TrimRight(plan.CombinedSQL(), "\n"), cfg.Target)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the combined migration SQL")

	return cmd
}

func newMigrateRunCommand() *cobra.Command {
	var skipShadow bool

	cmd := &cobra.Command{
		Use:   "run [name]",
		Short: "Apply the migration plan to the target database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if skipShadow {
				cfg.SkipShadow = true
			}

			ctx := cmd.Context()
			engine, err := connectEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			plan, objects, err := engine.Plan(ctx, planName(args))
			reportTranslationFailures(objects)
			if err != nil {
				return err
			}
			if len(plan.Steps) == 0 {
				ui.PrintInfo("Nothing to migrate")
				return nil
			}

			spinner, _ := ui.PrintSpinner(fmt.Sprintf("Applying %d objects...", len(plan.Steps)))
			err = engine.Apply(ctx, plan)
			if spinner != nil {
				spinner.Stop()
			}
			if err != nil {
				return err
			}

			ui.PrintSuccess("Applied migration %q (%d objects)", plan.Name, len(plan.Steps))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipShadow, "skip-shadow", false, "skip shadow database verification")

	return cmd
}

func newMigrateStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied migrations on the target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := connectEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			records, err := engine.Status(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				ui.PrintInfo("No migrations applied yet")
				return nil
			}

			var rows [][]string
			for _, rec := range records {
				state := "applied"
				if rec.Validated {
					state = "validated"
				}
				if rec.RolledBack {
					state = "rolled back"
				}
				rows = append(rows, []string{
					rec.Name,
					rec.AppliedAt.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%dms", rec.ExecutionTime),
					state,
				})
			}
			ui.PrintTable([]string{"Migration", "Applied at", "Duration", "State"}, rows)
			return nil
		},
	}
}

func planName(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "views"
}
