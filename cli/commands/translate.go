package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sqlshift/sqlshift/cli/internal/config"
	"github.com/sqlshift/sqlshift/cli/internal/ui"
	"github.com/sqlshift/sqlshift/cli/internal/watch"
	"github.com/sqlshift/sqlshift/translate"
)

func newTranslateCommand() *cobra.Command {
	var (
		targetFlag string
		outPath    string
		watchMode  bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "translate [file]",
		Short: "Translate a T-SQL file to the target dialect",
		Long:  "Translate T-SQL source to the target dialect. Reads from the given\nfile, or from stdin when the file is omitted or \"-\".",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if targetFlag != "" {
				cfg.Target = targetFlag
			}

			file := "-"
			if len(args) > 0 {
				file = args[0]
			}

			if watchMode {
				if file == "-" {
					return fmt.Errorf("--watch requires a file argument")
				}
				return watchTranslate(file, outPath, quiet)
			}
			return translateOnce(file, outPath, quiet)
		},
	}

	cmd.Flags().StringVarP(&targetFlag, "target", "t", "", "target dialect (postgres or mysql)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write translated SQL to this file instead of stdout")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "re-translate whenever the file changes")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the translated SQL")

	return cmd
}

func translateOnce(file, outPath string, quiet bool) error {
	source, name, err := readSource(file)
	if err != nil {
		return err
	}

	ruleSet, err := loadRules()
	if err != nil {
		return err
	}

	target, err := translate.ParseDialect(cfg.Target)
	if err != nil {
		return err
	}
	translator, err := translate.New(target, translateOptions())
	if err != nil {
		return err
	}
	if ruleSet != nil {
		translator.WithRules(ruleSet)
	}

	result, _ := translator.Translate(name, source)

	if result.Diagnostics.HasErrors() {
		fmt.Fprint(os.Stderr, result.Diagnostics.ToPrettyString(name, source))
	}
	if result.Diagnostics.HasWarnings() && !quiet {
		fmt.Fprint(os.Stderr, result.Diagnostics.WarningsToPrettyString(name, source))
	}

	if outPath != "" {
		if err := afero.WriteFile(config.AppFs, outPath, []byte(result.SQL), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if !quiet {
			ui.PrintSuccess("Wrote %s", outPath)
		}
	} else if quiet {
		fmt.Print(result.SQL)
	} else {
		ui.PrintCodeBlock(strings.TrimRight(result.SQL, "\n"), string(target))
	}

	if !result.Ok() {
		return fmt.Errorf("translation failed with %d error(s)", len(result.Diagnostics.Errors()))
	}
	return nil
}

func watchTranslate(file, outPath string, quiet bool) error {
	ui.PrintInfo("Watching %s, press Ctrl+C to stop", file)

	watcher, err := watch.NewWatcher(file, func() error {
		// A broken edit should keep the watch alive.
		if err := translateOnce(file, outPath, quiet); err != nil {
			ui.PrintError("%v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer watcher.Stop()

	if err := watcher.Start(); err != nil {
		return err
	}
	select {}
}

// readSource reads the T-SQL input and picks a display name for diagnostics.
func readSource(file string) (string, string, error) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "<stdin>", nil
	}
	data, err := afero.ReadFile(config.AppFs, file)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(data), filepath.Base(file), nil
}
