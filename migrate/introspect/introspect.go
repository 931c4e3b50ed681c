// Package introspect reads schema metadata from source and target databases.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Introspector reads the schema of a database.
type Introspector interface {
	Introspect(ctx context.Context) (*Schema, error)
}

// Schema is the introspected shape of a database.
type Schema struct {
	Tables []Table
	Views  []View
}

// Table is a base table with its columns and primary key.
type Table struct {
	Schema     string
	Name       string
	Columns    []Column
	PrimaryKey *PrimaryKey
}

// QualifiedName returns schema.name, or just the name when the schema is
// empty.
func (t Table) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Column is a table column.
type Column struct {
	Name string
	// Type is the raw data type name as reported by the database.
	Type string
	// MaxLength is the character or binary length, nil when not applicable.
	// -1 means MAX.
	MaxLength *int
	// Precision and Scale apply to numeric types, nil otherwise.
	Precision *int
	Scale     *int
	Nullable  bool
	// Default is the raw default expression, nil when absent.
	Default *string
	// Identity marks IDENTITY (SQL Server) or serial/identity (PostgreSQL)
	// columns.
	Identity bool
}

// TypeSpec renders the column type with its length or precision arguments,
// e.g. nvarchar(50) or decimal(19,4).
func (c Column) TypeSpec() string {
	switch {
	case c.MaxLength != nil && *c.MaxLength == -1:
		return c.Type + "(max)"
	case c.MaxLength != nil:
		return fmt.Sprintf("%s(%d)", c.Type, *c.MaxLength)
	case c.Precision != nil && c.Scale != nil && isDecimalType(c.Type):
		return fmt.Sprintf("%s(%d,%d)", c.Type, *c.Precision, *c.Scale)
	default:
		return c.Type
	}
}

func isDecimalType(t string) bool {
	switch strings.ToLower(t) {
	case "decimal", "numeric":
		return true
	}
	return false
}

// PrimaryKey is a primary key constraint.
type PrimaryKey struct {
	Name    string
	Columns []string
}

// View is a database view with its source definition.
type View struct {
	Schema string
	Name   string
	// Definition is the full CREATE VIEW text in the database's own dialect.
	Definition string
}

// QualifiedName returns schema.name, or just the name when the schema is
// empty.
func (v View) QualifiedName() string {
	if v.Schema == "" {
		return v.Name
	}
	return v.Schema + "." + v.Name
}

// NewIntrospector creates an introspector for the given provider.
func NewIntrospector(db *sql.DB, provider string) (Introspector, error) {
	switch provider {
	case "sqlserver", "mssql":
		return &SQLServerIntrospector{db: db}, nil
	case "postgresql", "postgres":
		return &PostgresIntrospector{db: db}, nil
	case "mysql":
		return &MySQLIntrospector{db: db}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}
