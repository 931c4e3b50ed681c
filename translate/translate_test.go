package translate

import (
	"strings"
	"testing"

	"github.com/sqlshift/sqlshift/translate/rules"
)

func translatePG(t *testing.T, source string) *Result {
	t.Helper()
	tr, err := New(DialectPostgres, DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create translator: %v", err)
	}
	result, _ := tr.Translate("test.sql", source)
	return result
}

func mustTranslatePG(t *testing.T, source string) *Result {
	t.Helper()
	result := translatePG(t, source)
	if result.Diagnostics.HasErrors() {
		t.Fatalf("Unexpected errors:\n%s", result.Diagnostics.ToPrettyString("test.sql", source))
	}
	return result
}

func TestTranslateBracketIdentifiers(t *testing.T) {
	result := mustTranslatePG(t, "SELECT [name], [Order Total] FROM [dbo].[users]")

	if strings.Contains(result.SQL, "[") {
		t.Errorf("Bracket quoting survived translation: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, `"Order Total"`) {
		t.Errorf("Expected double-quoted mixed identifier, got: %s", result.SQL)
	}
	if strings.Contains(result.SQL, `"name"`) {
		t.Errorf("Plain lowercase identifier should lose its quoting: %s", result.SQL)
	}
	if strings.Contains(result.SQL, "dbo.") {
		t.Errorf("Default schema qualifier should be dropped: %s", result.SQL)
	}
}

func TestTranslateSchemaMapping(t *testing.T) {
	tr, err := New(DialectPostgres, Options{
		DefaultSchema: "dbo",
		SchemaMap:     map[string]string{"dbo": "public", "sales": "sales_v2"},
	})
	if err != nil {
		t.Fatalf("Failed to create translator: %v", err)
	}

	result, _ := tr.Translate("test.sql", "SELECT id FROM dbo.users JOIN sales.orders ON users.id = orders.user_id")
	if !strings.Contains(result.SQL, "public.users") {
		t.Errorf("Expected dbo mapped to public, got: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "sales_v2.orders") {
		t.Errorf("Expected sales mapped to sales_v2, got: %s", result.SQL)
	}
	// Column qualifiers are not schemas and must not be remapped.
	if !strings.Contains(result.SQL, "users.id = orders.user_id") {
		t.Errorf("Column qualifiers should be untouched, got: %s", result.SQL)
	}
}

func TestTranslateFunctionRenames(t *testing.T) {
	result := mustTranslatePG(t, "SELECT ISNULL(name, 'unknown'), DATALENGTH(name) FROM users")

	for _, want := range []string{"COALESCE(", "OCTET_LENGTH("} {
		if !strings.Contains(result.SQL, want) {
			t.Errorf("Expected %s in output, got: %s", want, result.SQL)
		}
	}
}

func TestTranslateLenIgnoresTrailingSpaces(t *testing.T) {
	result := mustTranslatePG(t, "SELECT LEN(name) FROM users")

	if !strings.Contains(result.SQL, "LENGTH(RTRIM(name))") {
		t.Errorf("Expected LEN to trim trailing spaces, got: %s", result.SQL)
	}
}

func TestTranslateParameterlessFunctions(t *testing.T) {
	result := mustTranslatePG(t, "SELECT GETDATE(), GETUTCDATE(), NEWID() FROM users")

	for _, want := range []string{"NOW()", "(NOW() AT TIME ZONE 'UTC')", "gen_random_uuid()"} {
		if !strings.Contains(result.SQL, want) {
			t.Errorf("Expected %s in output, got: %s", want, result.SQL)
		}
	}
}

func TestTranslateCharIndex(t *testing.T) {
	result := mustTranslatePG(t, "SELECT CHARINDEX('a', name) FROM users")

	if !strings.Contains(result.SQL, "POSITION('a' IN name)") {
		t.Errorf("Expected POSITION rewrite, got: %s", result.SQL)
	}
}

func TestTranslateIIF(t *testing.T) {
	result := mustTranslatePG(t, "SELECT IIF(age >= 18, 'adult', 'minor') FROM users")

	if !strings.Contains(result.SQL, "CASE WHEN") || !strings.Contains(result.SQL, "ELSE") {
		t.Errorf("Expected CASE rewrite of IIF, got: %s", result.SQL)
	}
}

func TestTranslateIsDate(t *testing.T) {
	result := translatePG(t, "SELECT ISDATE(created) FROM users")

	if result.Diagnostics.HasErrors() {
		t.Fatalf("Unexpected errors: %v", result.Diagnostics.Errors())
	}
	if !strings.Contains(result.SQL, "CASE WHEN") || !strings.Contains(result.SQL, "~") {
		t.Errorf("Expected regex CASE rewrite of ISDATE, got: %s", result.SQL)
	}
	if !result.Diagnostics.HasWarnings() {
		t.Error("Expected an approximate-translation warning for ISDATE")
	}
}

func TestTranslateDateAdd(t *testing.T) {
	result := mustTranslatePG(t, "SELECT DATEADD(month, 3, created) FROM users")

	if !strings.Contains(result.SQL, "(created + (3) * INTERVAL '1 month')") {
		t.Errorf("Expected interval arithmetic, got: %s", result.SQL)
	}
}

func TestTranslateDateAddQuarter(t *testing.T) {
	result := mustTranslatePG(t, "SELECT DATEADD(qq, 1, created) FROM users")

	if !strings.Contains(result.SQL, "INTERVAL '3 month'") {
		t.Errorf("Expected quarter expressed as 3 months, got: %s", result.SQL)
	}
}

func TestTranslateDateDiffDay(t *testing.T) {
	result := mustTranslatePG(t, "SELECT DATEDIFF(day, created, updated) FROM users")

	if !strings.Contains(result.SQL, "(CAST(updated AS date) - CAST(created AS date))") {
		t.Errorf("Expected date subtraction, got: %s", result.SQL)
	}
}

func TestTranslateDateDiffMonth(t *testing.T) {
	result := mustTranslatePG(t, "SELECT DATEDIFF(mm, created, updated) FROM users")

	if !strings.Contains(result.SQL, "EXTRACT(YEAR FROM updated)") ||
		!strings.Contains(result.SQL, "* 12") {
		t.Errorf("Expected year/month extraction, got: %s", result.SQL)
	}
}

func TestTranslateDateDiffBadPart(t *testing.T) {
	result := translatePG(t, "SELECT DATEDIFF(fortnight, created, updated) FROM users")

	if !result.Diagnostics.HasErrors() {
		t.Fatal("Expected an error for an unknown datepart")
	}
}

func TestTranslateYearMonthDay(t *testing.T) {
	result := mustTranslatePG(t, "SELECT YEAR(created), MONTH(created), DAY(created) FROM users")

	for _, want := range []string{
		"CAST(EXTRACT(YEAR FROM created) AS integer)",
		"CAST(EXTRACT(MONTH FROM created) AS integer)",
		"CAST(EXTRACT(DAY FROM created) AS integer)",
	} {
		if !strings.Contains(result.SQL, want) {
			t.Errorf("Expected %s, got: %s", want, result.SQL)
		}
	}
}

func TestTranslateStuff(t *testing.T) {
	result := mustTranslatePG(t, "SELECT STUFF(name, 1, 3, 'abc') FROM users")

	if !strings.Contains(result.SQL, "OVERLAY(name PLACING 'abc' FROM 1 FOR 3)") {
		t.Errorf("Expected OVERLAY rewrite, got: %s", result.SQL)
	}
}

func TestTranslateConvertStyleToChar(t *testing.T) {
	result := translatePG(t, "SELECT CONVERT(VARCHAR(10), created, 120) FROM users")

	if result.Diagnostics.HasErrors() {
		t.Fatalf("Unexpected errors: %v", result.Diagnostics.Errors())
	}
	if !strings.Contains(result.SQL, "TO_CHAR(created, 'YYYY-MM-DD HH24:MI:SS')") {
		t.Errorf("Expected TO_CHAR for style 120, got: %s", result.SQL)
	}
}

func TestTranslateConvertUnknownStyle(t *testing.T) {
	result := translatePG(t, "SELECT CONVERT(VARCHAR(10), created, 5) FROM users")

	if !strings.Contains(result.SQL, "CAST(created AS VARCHAR(10))") {
		t.Errorf("Expected CAST fallback, got: %s", result.SQL)
	}
	if !result.Diagnostics.HasWarnings() {
		t.Error("Expected a dropped-style warning")
	}
}

func TestTranslateConvertNoStyle(t *testing.T) {
	result := mustTranslatePG(t, "SELECT CONVERT(INT, amount) FROM orders")

	if !strings.Contains(result.SQL, "CAST(amount AS INT)") {
		t.Errorf("Expected plain CAST, got: %s", result.SQL)
	}
	if result.Diagnostics.HasWarnings() {
		t.Errorf("Styleless CONVERT should not warn: %v", result.Diagnostics.Warnings())
	}
}

func TestTranslateTypeMappings(t *testing.T) {
	result := mustTranslatePG(t, "SELECT CAST(a AS DATETIME), CAST(b AS NVARCHAR(50)), CAST(c AS MONEY), CAST(d AS UNIQUEIDENTIFIER) FROM t")

	for _, want := range []string{"AS TIMESTAMP", "AS VARCHAR(50)", "AS NUMERIC(19,4)", "AS UUID"} {
		if !strings.Contains(result.SQL, want) {
			t.Errorf("Expected %s, got: %s", want, result.SQL)
		}
	}
}

func TestTranslateMaxTypes(t *testing.T) {
	result := mustTranslatePG(t, "SELECT CAST(a AS NVARCHAR(MAX)), CAST(b AS VARBINARY(MAX)) FROM t")

	if !strings.Contains(result.SQL, "AS TEXT") || !strings.Contains(result.SQL, "AS BYTEA") {
		t.Errorf("Expected MAX types collapsed, got: %s", result.SQL)
	}
	if strings.Contains(result.SQL, "MAX") {
		t.Errorf("MAX should not survive translation: %s", result.SQL)
	}
}

func TestTranslateTopToLimit(t *testing.T) {
	result := mustTranslatePG(t, "SELECT TOP 10 id FROM users ORDER BY id")

	if !strings.Contains(result.SQL, "LIMIT 10") {
		t.Errorf("Expected LIMIT 10, got: %s", result.SQL)
	}
	if strings.Contains(result.SQL, "TOP") {
		t.Errorf("TOP should not survive translation: %s", result.SQL)
	}
}

func TestTranslateTopWithTies(t *testing.T) {
	result := translatePG(t, "SELECT TOP 5 WITH TIES id FROM users ORDER BY score")

	if !strings.Contains(result.SQL, "FETCH FIRST 5 ROWS WITH TIES") {
		t.Errorf("Expected FETCH FIRST ... WITH TIES, got: %s", result.SQL)
	}
}

func TestTranslateTopPercent(t *testing.T) {
	result := translatePG(t, "SELECT TOP 10 PERCENT id FROM users")

	if !result.Diagnostics.HasWarnings() {
		t.Error("Expected a warning for TOP PERCENT")
	}
	if !strings.Contains(result.SQL, "LIMIT ALL") {
		t.Errorf("Expected LIMIT ALL placeholder, got: %s", result.SQL)
	}
}

func TestTranslateMySQLTopPercent(t *testing.T) {
	tr, err := New(DialectMySQL, DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create translator: %v", err)
	}

	result, _ := tr.Translate("test.sql", "SELECT TOP 10 PERCENT id FROM users")
	if !result.Diagnostics.HasWarnings() {
		t.Error("Expected a warning for TOP PERCENT")
	}
	// MySQL has no LIMIT ALL; the clause is dropped entirely.
	if strings.Contains(result.SQL, "LIMIT") {
		t.Errorf("Expected no LIMIT clause on MySQL, got: %s", result.SQL)
	}
}

func TestTranslateStringConcat(t *testing.T) {
	result := mustTranslatePG(t, "SELECT first_name + ' ' + last_name FROM users")

	if !strings.Contains(result.SQL, "||") {
		t.Errorf("Expected || concatenation, got: %s", result.SQL)
	}
}

func TestTranslateNumericAddKept(t *testing.T) {
	result := mustTranslatePG(t, "SELECT 1 + 2 FROM users")

	if !strings.Contains(result.SQL, "1 + 2") {
		t.Errorf("Numeric addition should be untouched, got: %s", result.SQL)
	}
	if result.Diagnostics.HasWarnings() {
		t.Errorf("Numeric addition should not warn: %v", result.Diagnostics.Warnings())
	}
}

func TestTranslateAmbiguousAddWarns(t *testing.T) {
	result := translatePG(t, "SELECT a + b FROM users")

	if !result.Diagnostics.HasWarnings() {
		t.Error("Expected a warning for ambiguous + between unknown columns")
	}
	if !strings.Contains(result.SQL, "a + b") {
		t.Errorf("Ambiguous + should be kept as-is, got: %s", result.SQL)
	}
}

func TestTranslateRelationCaseFolded(t *testing.T) {
	result := mustTranslatePG(t, "CREATE VIEW [dbo].[VisitSummary] AS SELECT id FROM [dbo].[BaseVisits]")

	// Relation names fold to lowercase so the created object matches the
	// name the migration engine records and queries unquoted.
	if !strings.Contains(result.SQL, "CREATE VIEW visitsummary") {
		t.Errorf("Expected lowercase unquoted view name, got: %s", result.SQL)
	}
	if !strings.Contains(result.SQL, "FROM basevisits") {
		t.Errorf("Expected lowercase unquoted table reference, got: %s", result.SQL)
	}
	if strings.Contains(result.SQL, `"VisitSummary"`) || strings.Contains(result.SQL, `"BaseVisits"`) {
		t.Errorf("Mixed-case relation quoting survived translation: %s", result.SQL)
	}
}

func TestTranslateRelationWithSpaceKeepsQuoting(t *testing.T) {
	result := mustTranslatePG(t, "SELECT id FROM [dbo].[Order Details]")

	if !strings.Contains(result.SQL, `"Order Details"`) {
		t.Errorf("Names that cannot stand bare must keep their exact case quoted, got: %s", result.SQL)
	}
}

func TestTranslateCreateOrAlterView(t *testing.T) {
	result := mustTranslatePG(t, "CREATE OR ALTER VIEW dbo.active_users AS SELECT id FROM users WHERE active = 1")

	if !strings.Contains(result.SQL, "CREATE OR REPLACE VIEW active_users") {
		t.Errorf("Expected CREATE OR REPLACE VIEW, got: %s", result.SQL)
	}
}

func TestTranslateSchemabindingDropped(t *testing.T) {
	result := translatePG(t, "CREATE VIEW v WITH SCHEMABINDING AS SELECT id FROM dbo.users")

	if strings.Contains(result.SQL, "SCHEMABINDING") {
		t.Errorf("SCHEMABINDING should be dropped, got: %s", result.SQL)
	}
	if !result.Diagnostics.HasWarnings() {
		t.Error("Expected a warning for dropped SCHEMABINDING")
	}
}

func TestTranslateMySQL(t *testing.T) {
	tr, err := New(DialectMySQL, DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create translator: %v", err)
	}

	result, _ := tr.Translate("test.sql", "SELECT ISNULL([Name], 'x'), GETDATE(), LEN(a) + 'b' FROM [dbo].[Users]")
	if result.Diagnostics.HasErrors() {
		t.Fatalf("Unexpected errors: %v", result.Diagnostics.Errors())
	}

	for _, want := range []string{"IFNULL(", "NOW()", "CONCAT(", "CHAR_LENGTH(RTRIM(a))", "FROM users"} {
		if !strings.Contains(result.SQL, want) {
			t.Errorf("Expected %s in output, got: %s", want, result.SQL)
		}
	}
}

func TestTranslateMySQLCharIndex(t *testing.T) {
	tr, err := New(DialectMySQL, DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create translator: %v", err)
	}

	result, _ := tr.Translate("test.sql", "SELECT CHARINDEX('a', name) FROM users")
	if !strings.Contains(result.SQL, "LOCATE('a', name)") {
		t.Errorf("Expected LOCATE rename, got: %s", result.SQL)
	}
}

func TestTranslateUnknownDialect(t *testing.T) {
	if _, err := New(Dialect("oracle"), DefaultOptions()); err == nil {
		t.Fatal("Expected an error for an unknown target dialect")
	}
}

func TestTranslateCustomRules(t *testing.T) {
	set, err := rules.ParseString("custom.rules", `
# override the builtin and add a new mapping
function LEN => CHAR_LENGTH
function SUSER_NAME() => "SESSION_USER"
type XML => "JSONB"
`)
	if err != nil {
		t.Fatalf("Failed to parse rules: %v", err)
	}

	tr, err := New(DialectPostgres, DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create translator: %v", err)
	}
	tr.WithRules(set)

	result, _ := tr.Translate("test.sql", "SELECT LEN(name), SUSER_NAME(), CAST(doc AS XML) FROM users")
	for _, want := range []string{"CHAR_LENGTH(", "SESSION_USER", "AS JSONB"} {
		if !strings.Contains(result.SQL, want) {
			t.Errorf("Expected %s in output, got: %s", want, result.SQL)
		}
	}
}

func TestTranslateMultiStatementBatch(t *testing.T) {
	result := mustTranslatePG(t, "SELECT 1\nGO\nSELECT 2")

	if len(result.Statements) != 2 {
		t.Fatalf("Expected 2 statements, got %d", len(result.Statements))
	}
	if strings.Count(result.SQL, ";") != 2 {
		t.Errorf("Expected both statements terminated, got: %s", result.SQL)
	}
}

func TestParseDialect(t *testing.T) {
	cases := map[string]Dialect{
		"postgres":   DialectPostgres,
		"postgresql": DialectPostgres,
		"pg":         DialectPostgres,
		"MySQL":      DialectMySQL,
		"mssql":      DialectSQLServer,
	}
	for input, want := range cases {
		got, err := ParseDialect(input)
		if err != nil {
			t.Errorf("ParseDialect(%q) failed: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDialect(%q) = %q, want %q", input, got, want)
		}
	}

	if _, err := ParseDialect("oracle"); err == nil {
		t.Error("Expected an error for an unknown dialect name")
	}
}
