package validate

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matchAnyQuery accepts any query text, so tests can pass placeholder
// queries to Compare without tripping sqlmock's regexp matcher.
var matchAnyQuery = sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error { return nil })

func newComparator(t *testing.T) (*Comparator, sqlmock.Sqlmock, sqlmock.Sqlmock) {
	t.Helper()
	source, sourceMock, err := sqlmock.New(sqlmock.QueryMatcherOption(matchAnyQuery))
	require.NoError(t, err)
	t.Cleanup(func() { source.Close() })

	target, targetMock, err := sqlmock.New(sqlmock.QueryMatcherOption(matchAnyQuery))
	require.NoError(t, err)
	t.Cleanup(func() { target.Close() })

	return NewComparator(source, target, DefaultOptions()), sourceMock, targetMock
}

func TestCompareMatch(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "alice").
			AddRow(2, "bob"))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "alice").
			AddRow(2, "bob"))

	v := c.Compare(context.Background(), "dbo.users_v",
		"SELECT id, name FROM users_v ORDER BY 1",
		"SELECT id, name FROM users_v ORDER BY 1")

	assert.Equal(t, OutcomeMatch, v.Outcome)
	assert.True(t, v.Ok())
	assert.Equal(t, 2, v.SourceRows)
	assert.Equal(t, 2, v.TargetRows)
	assert.Empty(t, v.Diffs)
}

func TestCompareCellMismatch(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "total"}).AddRow(1, "100.00"))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "total"}).AddRow(1, "250.00"))

	v := c.Compare(context.Background(), "dbo.orders_v", "q1", "q2")

	assert.Equal(t, OutcomeMismatch, v.Outcome)
	require.Len(t, v.Diffs, 1)
	assert.Equal(t, 1, v.Diffs[0].Row)
	assert.Equal(t, "total", v.Diffs[0].Column)
	assert.Equal(t, "100", v.Diffs[0].SourceValue)
	assert.Equal(t, "250", v.Diffs[0].TargetValue)
}

func TestCompareRowCountMismatch(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).AddRow(1))

	v := c.Compare(context.Background(), "v", "q1", "q2")

	assert.Equal(t, OutcomeMismatch, v.Outcome)
	assert.Equal(t, 2, v.SourceRows)
	assert.Equal(t, 1, v.TargetRows)
}

func TestCompareNullEqualsNull(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow(nil))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow(nil))

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeMatch, v.Outcome)
}

func TestCompareNullNotEqualToText(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	// The string "NULL" must not compare equal to an actual NULL.
	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("NULL"))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow(nil))

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeMismatch, v.Outcome)
}

func TestCompareTrailingSpaceNormalized(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	// CHAR(10) padding on the source side.
	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"code"}).AddRow("AB        "))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"code"}).AddRow("AB"))

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeMatch, v.Outcome)
}

func TestCompareNumericTextNormalized(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	// Drivers return decimals as text with differing scale.
	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"total"}).AddRow("1.50"))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"total"}).AddRow("1.5"))

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeMatch, v.Outcome)
}

func TestCompareTimestampsInUTC(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	loc := time.FixedZone("CET", 3600)
	instant := time.Date(2024, 3, 1, 13, 30, 0, 0, loc)

	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"at"}).AddRow(instant))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"at"}).AddRow(instant.UTC()))

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeMatch, v.Outcome)
}

func TestCompareColumnCountMismatch(t *testing.T) {
	c, sourceMock, targetMock := newComparator(t)

	sourceMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"a", "b"}).AddRow(1, 2))
	targetMock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"a"}).AddRow(1))

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeMismatch, v.Outcome)
	assert.ErrorContains(t, v.Err, "column count differs")
}

func TestCompareSourceError(t *testing.T) {
	c, sourceMock, _ := newComparator(t)

	sourceMock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeError, v.Outcome)
	assert.ErrorContains(t, v.Err, "source query")
}

func TestCompareMaxDiffsCap(t *testing.T) {
	source, sourceMock, err := sqlmock.New(sqlmock.QueryMatcherOption(matchAnyQuery))
	require.NoError(t, err)
	defer source.Close()
	target, targetMock, err := sqlmock.New(sqlmock.QueryMatcherOption(matchAnyQuery))
	require.NoError(t, err)
	defer target.Close()

	c := NewComparator(source, target, Options{MaxDiffs: 2})

	sourceRows := sqlmock.NewRows([]string{"n"})
	targetRows := sqlmock.NewRows([]string{"n"})
	for i := 0; i < 5; i++ {
		sourceRows.AddRow(i)
		targetRows.AddRow(i + 100)
	}
	sourceMock.ExpectQuery("SELECT").WillReturnRows(sourceRows)
	targetMock.ExpectQuery("SELECT").WillReturnRows(targetRows)

	v := c.Compare(context.Background(), "v", "q1", "q2")
	assert.Equal(t, OutcomeMismatch, v.Outcome)
	assert.Len(t, v.Diffs, 2)
}

func TestNormalizeBooleansAsBits(t *testing.T) {
	// SQL Server BIT scans as int64, PostgreSQL BOOLEAN as bool.
	assert.True(t, normalize(true, DefaultOptions()).equal(normalize(int64(1), DefaultOptions())))
	assert.True(t, normalize(false, DefaultOptions()).equal(normalize(int64(0), DefaultOptions())))
	assert.False(t, normalize(true, DefaultOptions()).equal(normalize(int64(0), DefaultOptions())))
}
