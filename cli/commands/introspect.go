package commands

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlshift/sqlshift/cli/internal/ui"
	"github.com/sqlshift/sqlshift/migrate/introspect"
	"github.com/sqlshift/sqlshift/translate"
)

func newIntrospectCommand() *cobra.Command {
	var (
		side        string
		definitions bool
	)

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "List tables and views on the source or target database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			dsn, driver, provider, err := introspectTarget(side)
			if err != nil {
				return err
			}

			db, err := sql.Open(driver, dsn)
			if err != nil {
				return fmt.Errorf("open %s: %w", side, err)
			}
			defer db.Close()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", side, err)
			}

			introspector, err := introspect.NewIntrospector(db, provider)
			if err != nil {
				return err
			}
			schema, err := introspector.Introspect(ctx)
			if err != nil {
				return err
			}

			ui.PrintSection(fmt.Sprintf("%s database: %d tables, %d views", side, len(schema.Tables), len(schema.Views)))

			var tableRows [][]string
			for _, t := range schema.Tables {
				pk := ""
				if t.PrimaryKey != nil {
					pk = strings.Join(t.PrimaryKey.Columns, ", ")
				}
				tableRows = append(tableRows, []string{
					t.QualifiedName(),
					fmt.Sprintf("%d", len(t.Columns)),
					pk,
				})
			}
			if len(tableRows) > 0 {
				ui.PrintTable([]string{"Table", "Columns", "Primary key"}, tableRows)
				fmt.Println()
			}

			var viewRows [][]string
			for _, v := range schema.Views {
				viewRows = append(viewRows, []string{
					v.QualifiedName(),
					fmt.Sprintf("%d", len(v.Definition)),
				})
			}
			if len(viewRows) > 0 {
				ui.PrintTable([]string{"View", "Definition bytes"}, viewRows)
			}

			if definitions {
				for _, v := range schema.Views {
					ui.PrintCodeBlock(strings.TrimSpace(v.Definition), v.QualifiedName())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&side, "db", "source", "which database to introspect: source or target")
	cmd.Flags().BoolVar(&definitions, "definitions", false, "print full view definitions")

	return cmd
}

// introspectTarget resolves the DSN, driver name, and provider for one side.
func introspectTarget(side string) (dsn, driver, provider string, err error) {
	switch side {
	case "source":
		if cfg.SourceDSN == "" {
			return "", "", "", fmt.Errorf("no source connection string: set SOURCE_DATABASE_URL")
		}
		return cfg.SourceDSN, "sqlserver", "sqlserver", nil
	case "target":
		if cfg.TargetDSN == "" {
			return "", "", "", fmt.Errorf("no target connection string: set TARGET_DATABASE_URL")
		}
		dialect, err := translate.ParseDialect(cfg.Target)
		if err != nil {
			return "", "", "", err
		}
		if dialect == translate.DialectMySQL {
			return cfg.TargetDSN, "mysql", "mysql", nil
		}
		return cfg.TargetDSN, "postgres", "postgres", nil
	default:
		return "", "", "", fmt.Errorf("unknown database %q: use source or target", side)
	}
}
