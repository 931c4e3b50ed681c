package introspect

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLServerIntrospect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	columnRows := sqlmock.NewRows([]string{
		"TABLE_SCHEMA", "TABLE_NAME", "COLUMN_NAME", "DATA_TYPE",
		"CHARACTER_MAXIMUM_LENGTH", "NUMERIC_PRECISION", "NUMERIC_SCALE",
		"IS_NULLABLE", "COLUMN_DEFAULT", "",
	}).
		AddRow("dbo", "users", "id", "int", nil, 10, 0, "NO", nil, 1).
		AddRow("dbo", "users", "name", "nvarchar", 50, nil, nil, "YES", nil, 0).
		AddRow("dbo", "users", "notes", "nvarchar", -1, nil, nil, "YES", nil, 0).
		AddRow("dbo", "orders", "id", "int", nil, 10, 0, "NO", nil, 1).
		AddRow("dbo", "orders", "total", "decimal", nil, 19, 4, "NO", "((0))", 0)

	pkRows := sqlmock.NewRows([]string{
		"TABLE_SCHEMA", "TABLE_NAME", "CONSTRAINT_NAME", "COLUMN_NAME",
	}).
		AddRow("dbo", "users", "PK_users", "id").
		AddRow("dbo", "orders", "PK_orders", "id")

	viewRows := sqlmock.NewRows([]string{"name", "name", "definition"}).
		AddRow("dbo", "active_users", "CREATE VIEW dbo.active_users AS SELECT id FROM dbo.users WHERE active = 1")

	mock.ExpectQuery("INFORMATION_SCHEMA.COLUMNS").WillReturnRows(columnRows)
	mock.ExpectQuery("PRIMARY KEY").WillReturnRows(pkRows)
	mock.ExpectQuery("sys.sql_modules").WillReturnRows(viewRows)

	schema, err := NewSQLServerIntrospector(db).Introspect(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, schema.Tables, 2)

	users := schema.Tables[0]
	assert.Equal(t, "dbo.users", users.QualifiedName())
	require.Len(t, users.Columns, 3)
	assert.True(t, users.Columns[0].Identity)
	assert.False(t, users.Columns[0].Nullable)
	assert.Equal(t, "nvarchar(50)", users.Columns[1].TypeSpec())
	assert.Equal(t, "nvarchar(max)", users.Columns[2].TypeSpec())
	require.NotNil(t, users.PrimaryKey)
	assert.Equal(t, []string{"id"}, users.PrimaryKey.Columns)

	orders := schema.Tables[1]
	assert.Equal(t, "decimal(19,4)", orders.Columns[1].TypeSpec())
	require.NotNil(t, orders.Columns[1].Default)

	require.Len(t, schema.Views, 1)
	assert.Equal(t, "dbo.active_users", schema.Views[0].QualifiedName())
	assert.Contains(t, schema.Views[0].Definition, "CREATE VIEW")
}

func TestSQLServerIntrospectQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INFORMATION_SCHEMA.COLUMNS").
		WillReturnError(assert.AnError)

	_, err = NewSQLServerIntrospector(db).Introspect(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "introspect tables")
}

func TestNewIntrospectorProviders(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, provider := range []string{"mssql", "sqlserver", "postgres", "postgresql", "mysql"} {
		introspector, err := NewIntrospector(db, provider)
		assert.NoError(t, err, provider)
		assert.NotNil(t, introspector, provider)
	}

	_, err = NewIntrospector(db, "mongodb")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}
