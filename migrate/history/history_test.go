package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumStable(t *testing.T) {
	a := Checksum("CREATE VIEW v AS SELECT 1;")
	b := Checksum("CREATE VIEW v AS SELECT 1;")
	c := Checksum("CREATE VIEW v AS SELECT 2;")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestInitTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS _sqlshift_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	m := NewManager(db, "postgres")
	require.NoError(t, m.InitTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitTableUnknownProvider(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(db, "oracle")
	assert.Error(t, m.InitTable(context.Background()))
}

func TestRecordAndGetAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(db, "postgres")

	mock.ExpectExec("INSERT INTO _sqlshift_migrations").
		WithArgs("orders_v", sqlmock.AnyArg(), "abc123", int64(42), false, false).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = m.Record(context.Background(), &Record{
		Name:          "orders_v",
		AppliedAt:     time.Now(),
		Checksum:      "abc123",
		ExecutionTime: 42,
	})
	require.NoError(t, err)

	appliedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, migration_name").WillReturnRows(
		sqlmock.NewRows([]string{"id", "migration_name", "applied_at", "checksum", "execution_time", "rolled_back", "validated"}).
			AddRow("1", "orders_v", appliedAt, "abc123", int64(42), false, true))

	records, err := m.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "orders_v", records[0].Name)
	assert.Equal(t, "abc123", records[0].Checksum)
	assert.False(t, records[0].RolledBack)
	assert.True(t, records[0].Validated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReplacesExistingRow(t *testing.T) {
	// One row per object name: re-applying a changed object must update the
	// existing row instead of violating the unique constraint.
	pg := NewManager(nil, "postgres")
	if !strings.Contains(pg.getInsertSQL(), "ON CONFLICT (migration_name) DO UPDATE") {
		t.Errorf("Postgres insert must upsert, got: %s", pg.getInsertSQL())
	}
	my := NewManager(nil, "mysql")
	if !strings.Contains(my.getInsertSQL(), "ON DUPLICATE KEY UPDATE") {
		t.Errorf("MySQL insert must upsert, got: %s", my.getInsertSQL())
	}
}

func TestGetPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(db, "postgres")

	mock.ExpectQuery("SELECT migration_name").WillReturnRows(
		sqlmock.NewRows([]string{"migration_name"}).
			AddRow("202401_users_v").
			AddRow("202402_orders_v"))

	pending, err := m.GetPending(context.Background(),
		[]string{"202401_users_v", "202402_orders_v", "202403_totals_v"})
	require.NoError(t, err)
	assert.Equal(t, []string{"202403_totals_v"}, pending)
}

func TestGetChecksumMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(db, "postgres")

	mock.ExpectQuery("SELECT checksum").WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"checksum"}))

	checksum, err := m.GetChecksum(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, checksum)
}

func TestGetChecksumIgnoresRolledBack(t *testing.T) {
	// Rolled-back objects must look unapplied so the next run re-creates
	// them; the filter lives in the query itself.
	m := NewManager(nil, "postgres")
	assert.Contains(t, m.getSelectChecksumSQL(), "rolled_back = FALSE")
}

func TestMarkRolledBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(db, "postgres")

	mock.ExpectExec("UPDATE _sqlshift_migrations").
		WithArgs("initial").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, m.MarkRolledBack(context.Background(), "initial"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkValidated(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewManager(db, "postgres")

	mock.ExpectExec("UPDATE _sqlshift_migrations").
		WithArgs("orders_v").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, m.MarkValidated(context.Background(), "orders_v"))
	require.NoError(t, mock.ExpectationsWereMet())
}
