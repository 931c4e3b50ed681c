package introspect

import (
	"context"
	"database/sql"
	"fmt"
)

// MySQLIntrospector reads schema metadata from a MySQL database.
type MySQLIntrospector struct {
	db *sql.DB
}

// NewMySQLIntrospector creates a MySQL introspector.
func NewMySQLIntrospector(db *sql.DB) *MySQLIntrospector {
	return &MySQLIntrospector{db: db}
}

// Introspect reads tables, columns, primary keys and views from the current
// database. MySQL has no schemas below the database level, so Schema fields
// carry the database name.
func (i *MySQLIntrospector) Introspect(ctx context.Context) (*Schema, error) {
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
	return schema, nil
}

func (i *MySQLIntrospector) introspectTables(ctx context.Context) ([]*Table, error) {
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
			c.EXTRA LIKE '%auto_increment%'
		FROM information_schema.COLUMNS c
		JOIN information_schema.TABLES t
			ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE t.TABLE_TYPE = 'BASE TABLE'
			AND c.TABLE_SCHEMA = DATABASE()
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
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
			autoIncrement                                           bool
		)
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType,
			&maxLength, &precision, &scale, &isNullable, &columnDefault, &autoIncrement); err != nil {
			return nil, err
		}

		table, ok := byName[tableName]
		if !ok {
			table = &Table{Schema: schemaName, Name: tableName}
			byName[tableName] = table
			tables = append(tables, table)
		}

		col := Column{
			Name:     columnName,
			Type:     dataType,
			Nullable: isNullable == "YES",
			Identity: autoIncrement,
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

func (i *MySQLIntrospector) attachPrimaryKeys(ctx context.Context, tables []*Table) error {
	query := `
		SELECT
			TABLE_NAME,
			COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE CONSTRAINT_NAME = 'PRIMARY'
			AND TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_NAME, ORDINAL_POSITION
	`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	byName := map[string]*Table{}
	for _, t := range tables {
		byName[t.Name] = t
	}

	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return err
		}
		table, ok := byName[tableName]
		if !ok {
			continue
		}
		if table.PrimaryKey == nil {
			table.PrimaryKey = &PrimaryKey{Name: "PRIMARY"}
		}
		table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, columnName)
	}

	return rows.Err()
}

func (i *MySQLIntrospector) introspectViews(ctx context.Context) ([]View, error) {
	query := `
		SELECT
			TABLE_SCHEMA,
			TABLE_NAME,
			VIEW_DEFINITION
		FROM information_schema.VIEWS
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_NAME
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
