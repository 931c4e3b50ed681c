package translate

import (
	"fmt"
	"strings"

	"github.com/sqlshift/sqlshift/tsql/ast"
	"github.com/sqlshift/sqlshift/tsql/diagnostics"
)

// PostgresRewriter transforms T-SQL AST nodes for PostgreSQL compatibility.
type PostgresRewriter struct {
	BaseRewriter
}

// NewPostgresRewriter creates a PostgreSQL rewriter with all mappings
// configured.
func NewPostgresRewriter(opts Options, diags *diagnostics.Diagnostics) *PostgresRewriter {
	r := &PostgresRewriter{}
	r.dialect = DialectPostgres
	r.opts = opts
	r.diags = diags
	r.identQuote = ast.QuoteDouble
	r.concat = concatPipes
	r.supportsFetchTies = true
	r.supportsLimitAll = true

	// Simple function renames (same arguments).
	r.functionRenames = map[string]string{
		"ISNULL":     "COALESCE",
		"DATALENGTH": "OCTET_LENGTH",
		"REPLICATE":  "REPEAT",
	}

	// Parameterless function replacements.
	r.parameterlessFunctions = map[string]string{
		"GETDATE":        "NOW()",
		"SYSDATETIME":    "NOW()",
		"GETUTCDATE":     "(NOW() AT TIME ZONE 'UTC')",
		"SYSUTCDATETIME": "(NOW() AT TIME ZONE 'UTC')",
		"NEWID":          "gen_random_uuid()",
		"SUSER_SNAME":    "CURRENT_USER",
		"DB_NAME":        "current_database()",
	}

	// Special function handlers.
	r.specialFunctions = map[string]func(*ast.FunctionCall) ast.Expression{
		"LEN":       r.rewriteLen,
		"CHARINDEX": r.rewriteCharIndex,
		"IIF":       r.rewriteIIF,
		"ISDATE":    r.rewriteIsDate,
		"ISNUMERIC": r.rewriteIsNumeric,
		"DATEADD":   r.rewriteDateAdd,
		"DATEDIFF":  r.rewriteDateDiff,
		"DATEPART":  r.rewriteDatePart,
		"YEAR":      r.rewriteDateExtract("YEAR"),
		"MONTH":     r.rewriteDateExtract("MONTH"),
		"DAY":       r.rewriteDateExtract("DAY"),
		"EOMONTH":   r.rewriteEOMonth,
		"SPACE":     r.rewriteSpace,
		"STUFF":     r.rewriteStuff,
		"SQUARE":    r.rewriteSquare,
		"CHOOSE":    r.rewriteChoose,
	}

	r.convertOverride = r.rewriteConvertStyle

	// Type mappings for CAST/CONVERT.
	r.typeMappings = map[string]string{
		"DATETIME":         "TIMESTAMP",
		"DATETIME2":        "TIMESTAMP",
		"SMALLDATETIME":    "TIMESTAMP",
		"DATETIMEOFFSET":   "TIMESTAMPTZ",
		"NVARCHAR":         "VARCHAR",
		"NCHAR":            "CHAR",
		"NTEXT":            "TEXT",
		"IMAGE":            "BYTEA",
		"VARBINARY":        "BYTEA",
		"BINARY":           "BYTEA",
		"MONEY":            "NUMERIC(19,4)",
		"SMALLMONEY":       "NUMERIC(10,4)",
		"TINYINT":          "SMALLINT",
		"BIT":              "BOOLEAN",
		"FLOAT":            "DOUBLE PRECISION",
		"UNIQUEIDENTIFIER": "UUID",
		"XML":              "XML",
		"SQL_VARIANT":      "TEXT",
	}

	r.maxTypes = map[string]string{
		"NVARCHAR":  "TEXT",
		"VARCHAR":   "TEXT",
		"VARBINARY": "BYTEA",
	}

	return r
}

// rewriteLen converts LEN(s) to LENGTH(RTRIM(s)). T-SQL's LEN ignores
// trailing spaces; LENGTH counts them.
func (r *PostgresRewriter) rewriteLen(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("LEN", 1, len(fc.Args), fc.Sp))
		return fc
	}
	return &ast.Raw{SQL: fmt.Sprintf("LENGTH(RTRIM(%s))", fc.Args[0].String()), Sp: fc.Sp}
}

// rewriteCharIndex converts CHARINDEX(needle, haystack) to
// POSITION(needle IN haystack). POSITION uses the IN keyword rather than
// comma-separated arguments, so the result is a raw expression.
func (r *PostgresRewriter) rewriteCharIndex(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) < 2 {
		r.diags.PushError(diagnostics.NewArgumentCountError("CHARINDEX", 2, len(fc.Args), fc.Sp))
		return fc
	}
	needle := fc.Args[0].String()
	haystack := fc.Args[1].String()

	if len(fc.Args) == 3 {
		// CHARINDEX with a start position: searched in a substring, with the
		// offset added back. Differs from T-SQL when the needle is absent
		// (start-1 instead of 0).
		start := fc.Args[2].String()
		r.diags.PushWarning(diagnostics.NewApproximateTranslationWarning(
			"CHARINDEX", "with a start position the not-found result is start-1, not 0", fc.Sp))
		return &ast.Raw{
			SQL: fmt.Sprintf("(POSITION(%s IN SUBSTRING(%s FROM %s)) + %s - 1)", needle, haystack, start, start),
			Sp:  fc.Sp,
		}
	}

	return &ast.Raw{SQL: fmt.Sprintf("POSITION(%s IN %s)", needle, haystack), Sp: fc.Sp}
}

// rewriteIIF converts IIF(cond, a, b) to a searched CASE expression.
func (r *PostgresRewriter) rewriteIIF(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 3 {
		r.diags.PushError(diagnostics.NewArgumentCountError("IIF", 3, len(fc.Args), fc.Sp))
		return fc
	}
	return &ast.CaseExpression{
		WhenClauses: []*ast.WhenClause{{Condition: fc.Args[0], Result: fc.Args[1]}},
		ElseClause:  fc.Args[2],
		Sp:          fc.Sp,
	}
}

// rewriteIsDate converts ISDATE(x) to a regex-based check returning 0/1.
// T-SQL's ISDATE accepts every string the server can cast to a datetime; the
// regex covers ISO dates and datetimes, which is what migrated data uses.
func (r *PostgresRewriter) rewriteIsDate(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("ISDATE", 1, len(fc.Args), fc.Sp))
		return fc
	}
	arg := fc.Args[0].String()
	r.diags.PushWarning(diagnostics.NewApproximateTranslationWarning(
		"ISDATE", "only ISO 8601 date and datetime forms are recognized", fc.Sp))
	return &ast.Raw{
		SQL: fmt.Sprintf(
			`(CASE WHEN CAST(%s AS text) ~ '^\d{4}-\d{2}-\d{2}([ T]\d{2}:\d{2}(:\d{2}(\.\d+)?)?)?$' THEN 1 ELSE 0 END)`,
			arg),
		Sp: fc.Sp,
	}
}

// rewriteIsNumeric converts ISNUMERIC(x) to a regex-based check returning 0/1.
func (r *PostgresRewriter) rewriteIsNumeric(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("ISNUMERIC", 1, len(fc.Args), fc.Sp))
		return fc
	}
	arg := fc.Args[0].String()
	return &ast.Raw{
		SQL: fmt.Sprintf(`(CASE WHEN CAST(%s AS text) ~ '^[+-]?\d+(\.\d+)?$' THEN 1 ELSE 0 END)`, arg),
		Sp:  fc.Sp,
	}
}

// datepart normalizes T-SQL datepart names and abbreviations.
func datepart(e ast.Expression) (string, bool) {
	name := ""
	switch v := e.(type) {
	case *ast.ObjectName:
		name = strings.ToLower(v.Object().Value)
	case *ast.Identifier:
		name = strings.ToLower(v.Value)
	case *ast.StringLiteral:
		name = strings.ToLower(v.Value)
	default:
		return "", false
	}

	switch name {
	case "year", "yy", "yyyy":
		return "year", true
	case "quarter", "qq", "q":
		return "quarter", true
	case "month", "mm", "m":
		return "month", true
	case "week", "wk", "ww":
		return "week", true
	case "day", "dd", "d", "dayofyear", "dy":
		return "day", true
	case "weekday", "dw":
		return "weekday", true
	case "hour", "hh":
		return "hour", true
	case "minute", "mi", "n":
		return "minute", true
	case "second", "ss", "s":
		return "second", true
	case "millisecond", "ms":
		return "millisecond", true
	default:
		return "", false
	}
}

// rewriteDateAdd converts DATEADD(part, n, d) to interval arithmetic:
// (d + (n) * INTERVAL '1 part').
func (r *PostgresRewriter) rewriteDateAdd(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 3 {
		r.diags.PushError(diagnostics.NewArgumentCountError("DATEADD", 3, len(fc.Args), fc.Sp))
		return fc
	}
	part, ok := datepart(fc.Args[0])
	if !ok || part == "weekday" {
		r.diags.PushError(diagnostics.NewSQLError(
			fmt.Sprintf("DATEADD: unsupported datepart %q.", fc.Args[0].String()), fc.Sp))
		return fc
	}
	n := fc.Args[1].String()
	d := fc.Args[2].String()

	interval := "INTERVAL '1 " + part + "'"
	if part == "quarter" {
		interval = "INTERVAL '3 month'"
	}
	return &ast.Raw{SQL: fmt.Sprintf("(%s + (%s) * %s)", d, n, interval), Sp: fc.Sp}
}

// rewriteDateDiff converts DATEDIFF(part, a, b) preserving T-SQL's
// boundary-crossing semantics: DATEDIFF counts datepart boundaries between the
// two values, not elapsed time. Day-and-coarser parts use date/field
// arithmetic; time parts truncate both sides to the datepart first.
func (r *PostgresRewriter) rewriteDateDiff(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 3 {
		r.diags.PushError(diagnostics.NewArgumentCountError("DATEDIFF", 3, len(fc.Args), fc.Sp))
		return fc
	}
	part, ok := datepart(fc.Args[0])
	if !ok {
		r.diags.PushError(diagnostics.NewSQLError(
			fmt.Sprintf("DATEDIFF: unsupported datepart %q.", fc.Args[0].String()), fc.Sp))
		return fc
	}
	a := fc.Args[1].String()
	b := fc.Args[2].String()

	var sql string
	switch part {
	case "day":
		sql = fmt.Sprintf("(CAST(%s AS date) - CAST(%s AS date))", b, a)
	case "week":
		// T-SQL counts week boundaries (DATEFIRST-dependent); calendar-day
		// division is the common approximation.
		r.diags.PushWarning(diagnostics.NewApproximateTranslationWarning(
			"DATEDIFF", "week counting uses whole 7-day spans, not DATEFIRST week boundaries", fc.Sp))
		sql = fmt.Sprintf("((CAST(%s AS date) - CAST(%s AS date)) / 7)", b, a)
	case "month":
		sql = fmt.Sprintf(
			"((EXTRACT(YEAR FROM %s) - EXTRACT(YEAR FROM %s)) * 12 + (EXTRACT(MONTH FROM %s) - EXTRACT(MONTH FROM %s)))",
			b, a, b, a)
	case "quarter":
		sql = fmt.Sprintf(
			"((EXTRACT(YEAR FROM %s) - EXTRACT(YEAR FROM %s)) * 4 + (EXTRACT(QUARTER FROM %s) - EXTRACT(QUARTER FROM %s)))",
			b, a, b, a)
	case "year":
		sql = fmt.Sprintf("(EXTRACT(YEAR FROM %s) - EXTRACT(YEAR FROM %s))", b, a)
	case "hour", "minute", "second":
		seconds := map[string]int{"hour": 3600, "minute": 60, "second": 1}[part]
		sql = fmt.Sprintf(
			"CAST(EXTRACT(EPOCH FROM (date_trunc('%s', CAST(%s AS timestamp)) - date_trunc('%s', CAST(%s AS timestamp)))) / %d AS bigint)",
			part, b, part, a, seconds)
	case "millisecond":
		sql = fmt.Sprintf(
			"CAST(EXTRACT(EPOCH FROM (CAST(%s AS timestamp) - CAST(%s AS timestamp))) * 1000 AS bigint)",
			b, a)
	default:
		r.diags.PushError(diagnostics.NewSQLError(
			fmt.Sprintf("DATEDIFF: unsupported datepart %q.", part), fc.Sp))
		return fc
	}
	return &ast.Raw{SQL: sql, Sp: fc.Sp}
}

// rewriteDatePart converts DATEPART(part, d) to EXTRACT(part FROM d).
func (r *PostgresRewriter) rewriteDatePart(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 2 {
		r.diags.PushError(diagnostics.NewArgumentCountError("DATEPART", 2, len(fc.Args), fc.Sp))
		return fc
	}
	part, ok := datepart(fc.Args[0])
	if !ok {
		r.diags.PushError(diagnostics.NewSQLError(
			fmt.Sprintf("DATEPART: unsupported datepart %q.", fc.Args[0].String()), fc.Sp))
		return fc
	}
	d := fc.Args[1].String()

	if part == "weekday" {
		// T-SQL weekday is 1..7 with a DATEFIRST-dependent start; EXTRACT(DOW)
		// is 0..6 starting Sunday. DATEFIRST 7 (the default) matches DOW+1.
		r.diags.PushWarning(diagnostics.NewApproximateTranslationWarning(
			"DATEPART", "weekday assumes the default DATEFIRST 7", fc.Sp))
		return &ast.Raw{SQL: fmt.Sprintf("(EXTRACT(DOW FROM %s) + 1)", d), Sp: fc.Sp}
	}
	return &ast.Raw{SQL: fmt.Sprintf("EXTRACT(%s FROM %s)", strings.ToUpper(part), d), Sp: fc.Sp}
}

// rewriteDateExtract returns a handler converting YEAR/MONTH/DAY(d).
func (r *PostgresRewriter) rewriteDateExtract(field string) func(*ast.FunctionCall) ast.Expression {
	return func(fc *ast.FunctionCall) ast.Expression {
		if len(fc.Args) != 1 {
			r.diags.PushError(diagnostics.NewArgumentCountError(field, 1, len(fc.Args), fc.Sp))
			return fc
		}
		return &ast.Raw{
			SQL: fmt.Sprintf("CAST(EXTRACT(%s FROM %s) AS integer)", field, fc.Args[0].String()),
			Sp:  fc.Sp,
		}
	}
}

// rewriteEOMonth converts EOMONTH(d) to date_trunc-based month-end arithmetic.
func (r *PostgresRewriter) rewriteEOMonth(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) < 1 || len(fc.Args) > 2 {
		r.diags.PushError(diagnostics.NewArgumentCountError("EOMONTH", 1, len(fc.Args), fc.Sp))
		return fc
	}
	d := fc.Args[0].String()
	if len(fc.Args) == 2 {
		d = fmt.Sprintf("(%s + (%s) * INTERVAL '1 month')", d, fc.Args[1].String())
	}
	return &ast.Raw{
		SQL: fmt.Sprintf("CAST(date_trunc('month', CAST(%s AS timestamp)) + INTERVAL '1 month' - INTERVAL '1 day' AS date)", d),
		Sp:  fc.Sp,
	}
}

// rewriteSpace converts SPACE(n) to REPEAT(' ', n).
func (r *PostgresRewriter) rewriteSpace(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("SPACE", 1, len(fc.Args), fc.Sp))
		return fc
	}
	return &ast.Raw{SQL: fmt.Sprintf("REPEAT(' ', %s)", fc.Args[0].String()), Sp: fc.Sp}
}

// rewriteStuff converts STUFF(s, start, len, new) to OVERLAY.
func (r *PostgresRewriter) rewriteStuff(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 4 {
		r.diags.PushError(diagnostics.NewArgumentCountError("STUFF", 4, len(fc.Args), fc.Sp))
		return fc
	}
	return &ast.Raw{
		SQL: fmt.Sprintf("OVERLAY(%s PLACING %s FROM %s FOR %s)",
			fc.Args[0].String(), fc.Args[3].String(), fc.Args[1].String(), fc.Args[2].String()),
		Sp: fc.Sp,
	}
}

// rewriteSquare converts SQUARE(x) to POWER(x, 2).
func (r *PostgresRewriter) rewriteSquare(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("SQUARE", 1, len(fc.Args), fc.Sp))
		return fc
	}
	return &ast.Raw{SQL: fmt.Sprintf("POWER(%s, 2)", fc.Args[0].String()), Sp: fc.Sp}
}

// rewriteChoose converts CHOOSE(index, v1, v2, ...) to a CASE expression.
func (r *PostgresRewriter) rewriteChoose(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) < 2 {
		r.diags.PushError(diagnostics.NewArgumentCountError("CHOOSE", 2, len(fc.Args), fc.Sp))
		return fc
	}
	c := &ast.CaseExpression{Operand: fc.Args[0], Sp: fc.Sp}
	for i, v := range fc.Args[1:] {
		c.WhenClauses = append(c.WhenClauses, &ast.WhenClause{
			Condition: &ast.NumberLiteral{Value: fmt.Sprintf("%d", i+1), Sp: fc.Sp},
			Result:    v,
		})
	}
	return c
}

// convertStyles maps the CONVERT style codes seen in real migrations to
// TO_CHAR format strings.
var convertStyles = map[int]string{
	101: "MM/DD/YYYY",
	103: "DD/MM/YYYY",
	104: "DD.MM.YYYY",
	112: "YYYYMMDD",
	120: "YYYY-MM-DD HH24:MI:SS",
	121: "YYYY-MM-DD HH24:MI:SS.MS",
}

// rewriteConvertStyle turns CONVERT-to-string with a known style code into a
// TO_CHAR call. Unknown styles and non-string targets return nil and fall
// through to the plain CAST conversion.
func (r *PostgresRewriter) rewriteConvertStyle(e *ast.ConvertExpression) ast.Expression {
	if e.Style == nil || !isCharType(e.Target) {
		return nil
	}
	format, ok := convertStyles[*e.Style]
	if !ok {
		return nil
	}
	return &ast.Raw{
		SQL: fmt.Sprintf("TO_CHAR(%s, '%s')", e.Expr.String(), format),
		Sp:  e.Sp,
	}
}
