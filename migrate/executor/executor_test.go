package executor

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlshift/sqlshift/migrate/history"
	"github.com/sqlshift/sqlshift/migrate/planner"
)

func testPlan() *planner.Plan {
	return &planner.Plan{
		Name: "views",
		Steps: []planner.Step{
			{
				Name:     "orders_base",
				SQL:      "CREATE OR REPLACE VIEW orders_base AS SELECT 1;",
				Checksum: history.Checksum("orders_base v1"),
			},
			{
				Name:     "order_summary",
				SQL:      "CREATE OR REPLACE VIEW order_summary AS SELECT 2;",
				Checksum: history.Checksum("order_summary v1"),
			},
		},
	}
}

func TestExecuteAppliesPlanTransactionally(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	plan := testPlan()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS _sqlshift_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT checksum").WithArgs("orders_base").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}))
	mock.ExpectQuery("SELECT checksum").WithArgs("order_summary").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}))
	mock.ExpectBegin()
	mock.ExpectExec("orders_base").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO _sqlshift_migrations").
		WithArgs("orders_base", sqlmock.AnyArg(), plan.Steps[0].Checksum, sqlmock.AnyArg(), false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("order_summary").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO _sqlshift_migrations").
		WithArgs("order_summary", sqlmock.AnyArg(), plan.Steps[1].Checksum, sqlmock.AnyArg(), false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = New(db, "postgres").Execute(context.Background(), plan)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteRollsBackOnStepFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS _sqlshift_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT checksum").WithArgs("orders_base").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}))
	mock.ExpectQuery("SELECT checksum").WithArgs("order_summary").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}))
	mock.ExpectBegin()
	mock.ExpectExec("orders_base").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = New(db, "postgres").Execute(context.Background(), testPlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orders_base")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSkipsUnchangedObjects(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	plan := testPlan()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS _sqlshift_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT checksum").WithArgs("orders_base").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow(plan.Steps[0].Checksum))
	mock.ExpectQuery("SELECT checksum").WithArgs("order_summary").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow(plan.Steps[1].Checksum))

	// No transaction: nothing changed.
	err = New(db, "postgres").Execute(context.Background(), plan)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteReappliesChangedObject(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	plan := testPlan()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS _sqlshift_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT checksum").WithArgs("orders_base").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow(plan.Steps[0].Checksum))
	mock.ExpectQuery("SELECT checksum").WithArgs("order_summary").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}).AddRow(history.Checksum("order_summary v0")))
	mock.ExpectBegin()
	mock.ExpectExec("order_summary").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO _sqlshift_migrations").
		WithArgs("order_summary", sqlmock.AnyArg(), plan.Steps[1].Checksum, sqlmock.AnyArg(), false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = New(db, "postgres").Execute(context.Background(), plan)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS _sqlshift_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT migration_name").WillReturnRows(
		sqlmock.NewRows([]string{"migration_name"}).AddRow("a"))

	pending, err := New(db, "postgres").Pending(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, pending)
}
