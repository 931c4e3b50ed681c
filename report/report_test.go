package report

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlshift/sqlshift/migrate/validate"
)

func passingValidation() *validate.Validation {
	return &validate.Validation{
		ObjectName:  "dbo.active_users",
		SourceQuery: "SELECT * FROM [dbo].[active_users] ORDER BY 1",
		TargetQuery: "SELECT * FROM active_users ORDER BY 1",
		Outcome:     validate.OutcomeMatch,
		Columns:     []string{"id", "name"},
		SourceRows:  2,
		TargetRows:  2,
		SourceSample: [][]string{
			{"1", "alice"},
			{"2", "bob"},
		},
	}
}

func TestMarkdownFormat(t *testing.T) {
	r := &Report{
		Validation:    passingValidation(),
		TranslatedSQL: "CREATE OR REPLACE VIEW active_users AS SELECT id, name FROM users;",
	}

	md := r.Markdown()

	assert.True(t, strings.HasPrefix(md, "# Validation Report: dbo.active_users\n"),
		"report must open with the object heading, got:\n%s", md)
	assert.Contains(t, md, "**Test Query:**")
	assert.Contains(t, md, "SELECT * FROM [dbo].[active_users] ORDER BY 1")
	assert.Contains(t, md, "**Result Set:**")
	assert.Contains(t, md, "| id | name |")
	assert.Contains(t, md, "| 1 | alice |")
	assert.Contains(t, md, "**Status:** PASS")
	assert.Contains(t, md, "CREATE OR REPLACE VIEW active_users")
}

func TestMarkdownMismatchIncludesDiffs(t *testing.T) {
	v := passingValidation()
	v.Outcome = validate.OutcomeMismatch
	v.Diffs = []validate.CellDiff{
		{Row: 2, Column: "name", SourceValue: "bob", TargetValue: "bobby"},
	}

	md := (&Report{Validation: v}).Markdown()

	assert.Contains(t, md, "**Status:** FAIL")
	assert.Contains(t, md, "**Differences:**")
	assert.Contains(t, md, "| 2 | name | bob | bobby |")
}

func TestMarkdownEscapesPipes(t *testing.T) {
	v := passingValidation()
	v.SourceSample = [][]string{{"1", "a|b"}}

	md := (&Report{Validation: v}).Markdown()
	assert.Contains(t, md, `a\|b`)
}

func TestMarkdownWarnings(t *testing.T) {
	r := &Report{
		Validation: passingValidation(),
		Warnings:   []string{"CONVERT style 5 was dropped."},
	}

	md := r.Markdown()
	assert.Contains(t, md, "**Translation Warnings:**")
	assert.Contains(t, md, "- CONVERT style 5 was dropped.")
}

func TestWrite(t *testing.T) {
	fs := afero.NewMemMapFs()

	path, err := Write(fs, "reports", &Report{Validation: passingValidation()})
	require.NoError(t, err)
	assert.Equal(t, "reports/dbo_active_users.md", path)

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Validation Report: dbo.active_users")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "dbo_orders_md.md", FileName("dbo.orders/md"))
	assert.Equal(t, "sales_order_summary.md", FileName("sales.order summary"))
}
