package translate

import (
	"fmt"
	"strings"

	"github.com/sqlshift/sqlshift/tsql/ast"
	"github.com/sqlshift/sqlshift/tsql/diagnostics"
)

// MySQLRewriter transforms T-SQL AST nodes for MySQL compatibility.
type MySQLRewriter struct {
	BaseRewriter
}

// NewMySQLRewriter creates a MySQL rewriter with all mappings configured.
func NewMySQLRewriter(opts Options, diags *diagnostics.Diagnostics) *MySQLRewriter {
	r := &MySQLRewriter{}
	r.dialect = DialectMySQL
	r.opts = opts
	r.diags = diags
	r.identQuote = ast.QuoteBacktick
	r.concat = concatFunc
	r.supportsFetchTies = false

	r.functionRenames = map[string]string{
		"ISNULL":     "IFNULL",
		"DATALENGTH": "LENGTH",
		"REPLICATE":  "REPEAT",
		"CHARINDEX":  "LOCATE", // LOCATE(needle, haystack[, start]) matches argument order
	}

	r.parameterlessFunctions = map[string]string{
		"GETDATE":        "NOW()",
		"SYSDATETIME":    "NOW(6)",
		"GETUTCDATE":     "UTC_TIMESTAMP()",
		"SYSUTCDATETIME": "UTC_TIMESTAMP(6)",
		"NEWID":          "UUID()",
		"SUSER_SNAME":    "CURRENT_USER()",
		"DB_NAME":        "DATABASE()",
	}

	r.specialFunctions = map[string]func(*ast.FunctionCall) ast.Expression{
		"LEN":       r.rewriteLen,
		"IIF":       r.rewriteIIF,
		"DATEADD":   r.rewriteDateAdd,
		"DATEDIFF":  r.rewriteDateDiff,
		"DATEPART":  r.rewriteDatePart,
		"SPACE":     r.passThrough, // SPACE exists in MySQL
		"ISNUMERIC": r.rewriteIsNumeric,
		"ISDATE":    r.rewriteIsDate,
	}

	r.typeMappings = map[string]string{
		"DATETIME2":        "DATETIME(6)",
		"SMALLDATETIME":    "DATETIME",
		"DATETIMEOFFSET":   "DATETIME(6)",
		"NVARCHAR":         "VARCHAR",
		"NCHAR":            "CHAR",
		"NTEXT":            "LONGTEXT",
		"IMAGE":            "LONGBLOB",
		"MONEY":            "DECIMAL(19,4)",
		"SMALLMONEY":       "DECIMAL(10,4)",
		"BIT":              "TINYINT(1)",
		"UNIQUEIDENTIFIER": "CHAR(36)",
		"FLOAT":            "DOUBLE",
		"SQL_VARIANT":      "TEXT",
	}

	r.maxTypes = map[string]string{
		"NVARCHAR":  "LONGTEXT",
		"VARCHAR":   "LONGTEXT",
		"VARBINARY": "LONGBLOB",
	}

	return r
}

// rewriteLen converts LEN(s) to CHAR_LENGTH(RTRIM(s)). T-SQL's LEN ignores
// trailing spaces; CHAR_LENGTH counts them.
func (r *MySQLRewriter) rewriteLen(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("LEN", 1, len(fc.Args), fc.Sp))
		return fc
	}
	return &ast.Raw{SQL: fmt.Sprintf("CHAR_LENGTH(RTRIM(%s))", fc.Args[0].String()), Sp: fc.Sp}
}

func (r *MySQLRewriter) rewriteIIF(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 3 {
		r.diags.PushError(diagnostics.NewArgumentCountError("IIF", 3, len(fc.Args), fc.Sp))
		return fc
	}
	// MySQL's IF(cond, a, b) matches IIF exactly.
	fc.Name = &ast.ObjectName{
		Parts: []*ast.Identifier{{Value: "IF", Sp: fc.Name.Sp}},
		Sp:    fc.Name.Sp,
	}
	return fc
}

// rewriteDateAdd converts DATEADD(part, n, d) to DATE_ADD(d, INTERVAL n part).
func (r *MySQLRewriter) rewriteDateAdd(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 3 {
		r.diags.PushError(diagnostics.NewArgumentCountError("DATEADD", 3, len(fc.Args), fc.Sp))
		return fc
	}
	part, ok := datepart(fc.Args[0])
	if !ok || part == "weekday" || part == "millisecond" {
		r.diags.PushError(diagnostics.NewSQLError(
			fmt.Sprintf("DATEADD: unsupported datepart %q.", fc.Args[0].String()), fc.Sp))
		return fc
	}
	return &ast.Raw{
		SQL: fmt.Sprintf("DATE_ADD(%s, INTERVAL (%s) %s)",
			fc.Args[2].String(), fc.Args[1].String(), strings.ToUpper(part)),
		Sp: fc.Sp,
	}
}

// rewriteDateDiff converts DATEDIFF(part, a, b) to TIMESTAMPDIFF(part, a, b).
// TIMESTAMPDIFF counts complete units rather than boundary crossings, which
// differs from T-SQL for sub-unit remainders.
func (r *MySQLRewriter) rewriteDateDiff(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 3 {
		r.diags.PushError(diagnostics.NewArgumentCountError("DATEDIFF", 3, len(fc.Args), fc.Sp))
		return fc
	}
	part, ok := datepart(fc.Args[0])
	if !ok || part == "weekday" || part == "millisecond" {
		r.diags.PushError(diagnostics.NewSQLError(
			fmt.Sprintf("DATEDIFF: unsupported datepart %q.", fc.Args[0].String()), fc.Sp))
		return fc
	}
	r.diags.PushWarning(diagnostics.NewApproximateTranslationWarning(
		"DATEDIFF", "TIMESTAMPDIFF counts complete units, not boundary crossings", fc.Sp))
	return &ast.Raw{
		SQL: fmt.Sprintf("TIMESTAMPDIFF(%s, %s, %s)",
			strings.ToUpper(part), fc.Args[1].String(), fc.Args[2].String()),
		Sp: fc.Sp,
	}
}

// rewriteDatePart converts DATEPART(part, d) to EXTRACT(part FROM d), which
// MySQL supports with the same field names.
func (r *MySQLRewriter) rewriteDatePart(fc *ast.FunctionCall) ast.Expression {
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
		// DAYOFWEEK is 1..7 starting Sunday, matching the T-SQL default.
		return &ast.Raw{SQL: fmt.Sprintf("DAYOFWEEK(%s)", d), Sp: fc.Sp}
	}
	return &ast.Raw{SQL: fmt.Sprintf("EXTRACT(%s FROM %s)", strings.ToUpper(part), d), Sp: fc.Sp}
}

func (r *MySQLRewriter) rewriteIsNumeric(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("ISNUMERIC", 1, len(fc.Args), fc.Sp))
		return fc
	}
	return &ast.Raw{
		SQL: fmt.Sprintf(`(%s REGEXP '^[+-]?[0-9]+(\\.[0-9]+)?$')`, fc.Args[0].String()),
		Sp:  fc.Sp,
	}
}

func (r *MySQLRewriter) rewriteIsDate(fc *ast.FunctionCall) ast.Expression {
	if len(fc.Args) != 1 {
		r.diags.PushError(diagnostics.NewArgumentCountError("ISDATE", 1, len(fc.Args), fc.Sp))
		return fc
	}
	r.diags.PushWarning(diagnostics.NewApproximateTranslationWarning(
		"ISDATE", "STR_TO_DATE accepts only the ISO date form", fc.Sp))
	return &ast.Raw{
		SQL: fmt.Sprintf("(STR_TO_DATE(%s, '%%Y-%%m-%%d') IS NOT NULL)", fc.Args[0].String()),
		Sp:  fc.Sp,
	}
}

func (r *MySQLRewriter) passThrough(fc *ast.FunctionCall) ast.Expression {
	return fc
}
