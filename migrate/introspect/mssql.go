package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sqlshift/sqlshift/internal/debug"
)

// SQLServerIntrospector reads schema metadata from a SQL Server database.
type SQLServerIntrospector struct {
	db *sql.DB
}

// NewSQLServerIntrospector creates a SQL Server introspector.
func NewSQLServerIntrospector(db *sql.DB) *SQLServerIntrospector {
	return &SQLServerIntrospector{db: db}
}

// Introspect reads tables, columns, primary keys and view definitions.
func (i *SQLServerIntrospector) Introspect(ctx context.Context) (*Schema, error) {
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
	debug.Debug("introspected sqlserver schema",
		"tables", len(schema.Tables), "views", len(schema.Views))
	return schema, nil
}

// introspectTables reads every base table with its columns in ordinal order.
func (i *SQLServerIntrospector) introspectTables(ctx context.Context) ([]*Table, error) {
	query := `
		SELECT
			c.TABLE_SCHEMA,
			c.TABLE_NAME,
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			c.IS_NULLABLE,
			c.COLUMN_DEFAULT,
			COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity')
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t
			ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION
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
			schemaName, tableName, columnName, dataType, isNullable string
			maxLength, precision, scale                             sql.NullInt64
			columnDefault                                           sql.NullString
			isIdentity                                              sql.NullInt64
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
			Identity: isIdentity.Valid && isIdentity.Int64 == 1,
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

// attachPrimaryKeys fills in primary key constraints for the given tables.
func (i *SQLServerIntrospector) attachPrimaryKeys(ctx context.Context, tables []*Table) error {
	query := `
		SELECT
			tc.TABLE_SCHEMA,
			tc.TABLE_NAME,
			tc.CONSTRAINT_NAME,
			kcu.COLUMN_NAME
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
			AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA
			AND kcu.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		ORDER BY tc.TABLE_SCHEMA, tc.TABLE_NAME, kcu.ORDINAL_POSITION
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

// introspectViews reads view definitions. sys.sql_modules holds the complete
// text; INFORMATION_SCHEMA.VIEWS truncates long definitions at 4000
// characters.
func (i *SQLServerIntrospector) introspectViews(ctx context.Context) ([]View, error) {
	query := `
		SELECT
			s.name,
			v.name,
			m.definition
		FROM sys.views v
		JOIN sys.schemas s ON s.schema_id = v.schema_id
		JOIN sys.sql_modules m ON m.object_id = v.object_id
		ORDER BY s.name, v.name
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
