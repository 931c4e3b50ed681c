package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sqlshift/sqlshift/internal/debug"
)

// PostgresIntrospector reads schema metadata from a PostgreSQL database.
type PostgresIntrospector struct {
	db *sql.DB
}

// NewPostgresIntrospector creates a PostgreSQL introspector.
func NewPostgresIntrospector(db *sql.DB) *PostgresIntrospector {
	return &PostgresIntrospector{db: db}
}

// Introspect reads tables, columns, primary keys and view definitions from
// every non-system schema.
func (i *PostgresIntrospector) Introspect(ctx context.Context) (*Schema, error) {
	tables, err := i.introspectTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	if err := i.attachPrimaryKeys(ctx, tables); err != nil {
		return nil, fmt.Errorf("introspect primary keys: %w", err)
	}

	views, err := i.introspectViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect views: %w", err)
	}

	schema := &Schema{Views: views}
	for _, t := range tables {
		schema.Tables = append(schema.Tables, *t)
	}
	debug.Debug("introspected postgres schema",
		"tables", len(schema.Tables), "views", len(schema.Views))
	return schema, nil
}

func (i *PostgresIntrospector) introspectTables(ctx context.Context) ([]*Table, error) {
	query := `
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.data_type,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_nullable,
			c.column_default,
			c.is_identity
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE t.table_type = 'BASE TABLE'
			AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []*Table
	byName := map[string]*Table{}

	for rows.Next() {
		var (
			schemaName, tableName, columnName, dataType, isNullable, isIdentity string
			maxLength, precision, scale                                         sql.NullInt64
			columnDefault                                                       sql.NullString
		)
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType,
			&maxLength, &precision, &scale, &isNullable, &columnDefault, &isIdentity); err != nil {
			return nil, err
		}

		key := schemaName + "." + tableName
		table, ok := byName[key]
		if !ok {
			table = &Table{Schema: schemaName, Name: tableName}
			byName[key] = table
			tables = append(tables, table)
		}

		col := Column{
			Name:     columnName,
			Type:     dataType,
			Nullable: isNullable == "YES",
			Identity: isIdentity == "YES",
		}
		if maxLength.Valid {
			n := int(maxLength.Int64)
			col.MaxLength = &n
		}
		if precision.Valid {
			n := int(precision.Int64)
			col.Precision = &n
		}
		if scale.Valid {
			n := int(scale.Int64)
			col.Scale = &n
		}
		if columnDefault.Valid {
			d := columnDefault.String
			col.Default = &d
		}
		table.Columns = append(table.Columns, col)
	}

	return tables, rows.Err()
}

func (i *PostgresIntrospector) attachPrimaryKeys(ctx context.Context, tables []*Table) error {
	query := `
		SELECT
			tc.table_schema,
			tc.table_name,
			tc.constraint_name,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = tc.table_schema
			AND kcu.table_name = tc.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	byName := map[string]*Table{}
	for _, t := range tables {
		byName[t.Schema+"."+t.Name] = t
	}

	for rows.Next() {
		var schemaName, tableName, constraintName, columnName string
		if err := rows.Scan(&schemaName, &tableName, &constraintName, &columnName); err != nil {
			return err
		}
		table, ok := byName[schemaName+"."+tableName]
		if !ok {
			continue
		}
		if table.PrimaryKey == nil {
			table.PrimaryKey = &PrimaryKey{Name: constraintName}
		}
		table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, columnName)
	}

	return rows.Err()
}

// introspectViews reads view definitions via pg_get_viewdef, which returns the
// canonical rewritten form rather than the original source text.
func (i *PostgresIntrospector) introspectViews(ctx context.Context) ([]View, error) {
	query := `
		SELECT
			n.nspname,
			c.relname,
			pg_get_viewdef(c.oid, true)
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'v'
			AND n.nspname NOT IN ('pg_catalog', 'information_schema')
		ORDER BY n.nspname, c.relname
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		var schemaName, viewName string
		var definition sql.NullString
		if err := rows.Scan(&schemaName, &viewName, &definition); err != nil {
			return nil, err
		}
		views = append(views, View{
			Schema:     schemaName,
			Name:       viewName,
			Definition: definition.String,
		})
	}

	return views, rows.Err()
}
