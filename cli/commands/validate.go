package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sqlshift/sqlshift/cli/internal/config"
	"github.com/sqlshift/sqlshift/cli/internal/ui"
	"github.com/sqlshift/sqlshift/migrate"
	"github.com/sqlshift/sqlshift/migrate/validate"
	"github.com/sqlshift/sqlshift/report"
)

func newValidateCommand() *cobra.Command {
	var (
		reportDir string
		render    bool
	)

	cmd := &cobra.Command{
		Use:   "validate [object...]",
		Short: "Compare migrated views between source and target",
		Long:  "Run each view's test query on both databases, compare the result sets,\nand write a Markdown report per object. With no arguments every\nmigrated view is validated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reportDir != "" {
				cfg.ReportDir = reportDir
			}

			ctx := cmd.Context()
			engine, err := connectEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			objects, err := engine.TranslateViews(ctx)
			if err != nil {
				return err
			}
			reportTranslationFailures(objects)

			objects = filterObjects(objects, args)
			if len(objects) == 0 {
				ui.PrintInfo("No objects to validate")
				return nil
			}

			validations, err := engine.Validate(ctx, objects, nil)
			if err != nil {
				return err
			}

			byName := map[string]*migrate.TranslatedObject{}
			for _, obj := range objects {
				byName[obj.SourceName] = obj
			}

			bar, _ := ui.PrintProgressBar(len(validations)).Start()
			mismatches := 0
			for _, v := range validations {
				r := &report.Report{Validation: v}
				if obj := byName[v.ObjectName]; obj != nil {
					r.TranslatedSQL = obj.Result.SQL
					for _, w := range obj.Result.Diagnostics.Warnings() {
						r.Warnings = append(r.Warnings, w.Message())
					}
				}

				path, err := report.Write(config.AppFs, cfg.ReportDir, r)
				if err != nil {
					return fmt.Errorf("write report for %s: %w", v.ObjectName, err)
				}

				if render {
					out, err := report.Render(r.Markdown())
					if err != nil {
						return err
					}
					fmt.Print(out)
				}

				if v.Outcome != validate.OutcomeMatch {
					mismatches++
				}
				if bar != nil {
					bar.UpdateTitle(path)
					bar.Increment()
				}
			}
			if bar != nil {
				bar.Stop()
			}

			printValidationSummary(validations)
			if mismatches > 0 {
				return fmt.Errorf("%d of %d objects failed validation", mismatches, len(validations))
			}
			ui.PrintSuccess("All %d objects match", len(validations))
			return nil
		},
	}

	cmd.Flags().StringVar(&reportDir, "report-dir", "", "directory for Markdown reports (default from config)")
	cmd.Flags().BoolVar(&render, "render", false, "render each report in the terminal")

	return cmd
}

func printValidationSummary(validations []*validate.Validation) {
	colors := ui.OutcomeColors()

	var rows [][]string
	for _, v := range validations {
		outcome := v.Outcome.String()
		if c, ok := colors[outcome]; ok {
			outcome = c.Sprint(outcome)
		}
		detail := ""
		switch {
		case v.Err != nil:
			detail = v.Err.Error()
		case len(v.Diffs) > 0:
			detail = fmt.Sprintf("%d differing cells", len(v.Diffs))
		case v.SourceRows != v.TargetRows:
			detail = fmt.Sprintf("%d vs %d rows", v.SourceRows, v.TargetRows)
		}
		rows = append(rows, []string{
			v.ObjectName,
			outcome,
			fmt.Sprintf("%d", v.SourceRows),
			v.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	ui.PrintTable([]string{"Object", "Outcome", "Rows", "Duration", "Detail"}, rows)
}

// filterObjects keeps only the objects named in args. Names match either the
// qualified source name or the bare object name, case-insensitively.
func filterObjects(objects []*migrate.TranslatedObject, args []string) []*migrate.TranslatedObject {
	if len(args) == 0 {
		return objects
	}
	wanted := map[string]bool{}
	for _, a := range args {
		wanted[strings.ToLower(a)] = true
	}
	var out []*migrate.TranslatedObject
	for _, obj := range objects {
		name := strings.ToLower(obj.SourceName)
		bare := name
		if i := strings.LastIndex(name, "."); i >= 0 {
			bare = name[i+1:]
		}
		if wanted[name] || wanted[bare] {
			out = append(out, obj)
		}
	}
	return out
}
