// Package translate rewrites T-SQL syntax trees for target dialect
// compatibility. Rewriting operates on the AST before serialization rather
// than on SQL strings, so every transformation is structural.
package translate

import (
	"fmt"
	"strings"

	"github.com/sqlshift/sqlshift/tsql/ast"
	"github.com/sqlshift/sqlshift/tsql/diagnostics"
)

// Dialect identifies a SQL dialect.
type Dialect string

const (
	// DialectSQLServer is the source dialect.
	DialectSQLServer Dialect = "sqlserver"
	// DialectPostgres is the primary target dialect.
	DialectPostgres Dialect = "postgres"
	// DialectMySQL is the secondary target dialect.
	DialectMySQL Dialect = "mysql"
)

// ParseDialect normalizes a user-supplied dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	default:
		return "", fmt.Errorf("unknown dialect %q", s)
	}
}

// Options control translation behavior shared by all target dialects.
type Options struct {
	// DefaultSchema is the schema assumed for unqualified source object names.
	DefaultSchema string
	// SchemaMap maps source schema names (lowercased) to target schema names.
	// An empty target value drops the qualifier entirely.
	SchemaMap map[string]string
}

// TargetSchema resolves a source schema name through the map. The second
// return value is false when the schema has no mapping and should be kept
// as-is.
func (o Options) TargetSchema(source string) (string, bool) {
	if o.SchemaMap == nil {
		return "", false
	}
	target, ok := o.SchemaMap[strings.ToLower(source)]
	return target, ok
}

// DefaultOptions returns the conventional dbo -> public mapping.
func DefaultOptions() Options {
	return Options{
		DefaultSchema: "dbo",
		SchemaMap:     map[string]string{"dbo": ""},
	}
}

// Rewriter transforms T-SQL AST nodes for target dialect compatibility.
type Rewriter interface {
	// RewriteStatement transforms any statement.
	RewriteStatement(stmt ast.Statement) ast.Statement

	// RewriteExpression transforms any expression.
	RewriteExpression(expr ast.Expression) ast.Expression

	// Dialect returns the target dialect.
	Dialect() Dialect
}

// NewRewriter creates a rewriter for the given target dialect. Issues found
// during rewriting are pushed onto diags.
func NewRewriter(dialect Dialect, opts Options, diags *diagnostics.Diagnostics) (Rewriter, error) {
	switch dialect {
	case DialectPostgres:
		return NewPostgresRewriter(opts, diags), nil
	case DialectMySQL:
		return NewMySQLRewriter(opts, diags), nil
	default:
		return nil, fmt.Errorf("no rewriter for target dialect %q", dialect)
	}
}

// concatStyle selects how string concatenation is emitted.
type concatStyle int

const (
	concatPipes concatStyle = iota // a || b
	concatFunc                     // CONCAT(a, b)
)

// BaseRewriter provides the traversal and table-driven rewriting shared by
// all target dialects. Concrete rewriters configure the maps and flags.
type BaseRewriter struct {
	dialect Dialect
	opts    Options
	diags   *diagnostics.Diagnostics

	// functionRenames maps a T-SQL function name to its target name, for
	// functions whose arguments carry over unchanged.
	functionRenames map[string]string

	// parameterlessFunctions replaces zero-argument calls with raw target
	// expressions: GETDATE() -> NOW().
	parameterlessFunctions map[string]string

	// specialFunctions handles argument reordering and structural rewrites.
	specialFunctions map[string]func(*ast.FunctionCall) ast.Expression

	// convertOverride, when set, gets first shot at CONVERT expressions after
	// the inner expression has been rewritten. Returning nil falls through to
	// the plain CAST conversion.
	convertOverride func(*ast.ConvertExpression) ast.Expression

	// typeMappings rewrites data type names in CAST/CONVERT.
	typeMappings map[string]string

	// maxTypes maps type(MAX) forms to an unbounded target type.
	maxTypes map[string]string

	// identQuote is the quote style replacing bracket quoting.
	identQuote ast.QuoteStyle

	// concat selects the string concatenation form.
	concat concatStyle

	// supportsFetchTies enables FETCH FIRST ... WITH TIES for TOP WITH TIES.
	supportsFetchTies bool

	// supportsLimitAll enables the LIMIT ALL placeholder emitted for
	// TOP ... PERCENT. Targets without LIMIT ALL drop the clause instead.
	supportsLimitAll bool
}

// Dialect returns the target dialect.
func (r *BaseRewriter) Dialect() Dialect { return r.dialect }

// Diags exposes the diagnostics collection for concrete rewriters.
func (r *BaseRewriter) Diags() *diagnostics.Diagnostics { return r.diags }

// RewriteStatement transforms a statement, recursively rewriting expressions.
func (r *BaseRewriter) RewriteStatement(stmt ast.Statement) ast.Statement {
	if stmt == nil {
		return nil
	}
	switch s := stmt.(type) {
	case *ast.SelectStatement:
		return r.rewriteSelect(s)
	case *ast.CreateViewStatement:
		return r.rewriteCreateView(s)
	default:
		return stmt
	}
}

// RewriteExpression transforms an expression, recursively rewriting
// sub-expressions.
func (r *BaseRewriter) RewriteExpression(expr ast.Expression) ast.Expression {
	if expr == nil {
		return nil
	}
	switch e := expr.(type) {
	case *ast.FunctionCall:
		return r.rewriteFunctionCall(e)
	case *ast.InfixExpression:
		return r.rewriteInfix(e)
	case *ast.PrefixExpression:
		e.Right = r.RewriteExpression(e.Right)
		return e
	case *ast.ParenExpression:
		e.Expr = r.RewriteExpression(e.Expr)
		return e
	case *ast.CastExpression:
		return r.rewriteCast(e)
	case *ast.ConvertExpression:
		return r.rewriteConvert(e)
	case *ast.CaseExpression:
		return r.rewriteCase(e)
	case *ast.BetweenExpression:
		e.Expr = r.RewriteExpression(e.Expr)
		e.Low = r.RewriteExpression(e.Low)
		e.High = r.RewriteExpression(e.High)
		return e
	case *ast.InExpression:
		e.Expr = r.RewriteExpression(e.Expr)
		for i, v := range e.Values {
			e.Values[i] = r.RewriteExpression(v)
		}
		if e.Subquery != nil {
			e.Subquery = r.rewriteSelect(e.Subquery)
		}
		return e
	case *ast.IsNullExpression:
		e.Expr = r.RewriteExpression(e.Expr)
		return e
	case *ast.LikeExpression:
		e.Expr = r.RewriteExpression(e.Expr)
		e.Pattern = r.RewriteExpression(e.Pattern)
		e.Escape = r.RewriteExpression(e.Escape)
		return e
	case *ast.ExistsExpression:
		e.Subquery = r.rewriteSelect(e.Subquery)
		return e
	case *ast.SubqueryExpression:
		e.Subquery = r.rewriteSelect(e.Subquery)
		return e
	case *ast.SelectStatement:
		return r.rewriteSelect(e)
	case *ast.ObjectName:
		r.requoteName(e)
		return e
	case *ast.Identifier:
		r.requoteIdent(e)
		return e
	case *ast.Star:
		if e.Qualifier != nil {
			r.requoteName(e.Qualifier)
		}
		return e
	default:
		return expr
	}
}

func (r *BaseRewriter) rewriteSelect(s *ast.SelectStatement) *ast.SelectStatement {
	if s == nil {
		return nil
	}

	for _, col := range s.Columns {
		col.Expr = r.RewriteExpression(col.Expr)
		if col.Alias != nil {
			r.requoteIdent(col.Alias)
		}
	}
	s.From = r.rewriteTableSource(s.From)
	s.Where = r.RewriteExpression(s.Where)
	for i, g := range s.GroupBy {
		s.GroupBy[i] = r.RewriteExpression(g)
	}
	s.Having = r.RewriteExpression(s.Having)
	for _, o := range s.OrderBy {
		o.Expr = r.RewriteExpression(o.Expr)
	}
	for _, c := range s.Compounds {
		c.Select = r.rewriteSelect(c.Select)
	}

	r.convertTopToLimit(s)
	return s
}

// convertTopToLimit moves a T-SQL TOP clause into the LIMIT slot. PERCENT has
// no direct equivalent and is dropped with a warning, leaving a LIMIT ALL
// placeholder where the target accepts one; WITH TIES becomes
// FETCH FIRST ... WITH TIES where the target supports it.
func (r *BaseRewriter) convertTopToLimit(s *ast.SelectStatement) {
	if s.Top == nil {
		return
	}
	top := s.Top
	s.Top = nil

	if top.Percent {
		r.diags.PushWarning(diagnostics.NewTopPercentWarning(top.Sp))
		if r.supportsLimitAll {
			s.Limit = &ast.Raw{
				SQL: fmt.Sprintf("ALL /* TOP %s PERCENT: rewrite with ntile or count-based subquery */", top.Count.String()),
				Sp:  top.Sp,
			}
		}
		return
	}
	if top.WithTies {
		if r.supportsFetchTies {
			r.diags.PushWarning(diagnostics.NewTopWithTiesWarning(top.Sp))
			s.Limit = top.Count
			s.FetchTies = true
			return
		}
		r.diags.PushWarning(diagnostics.NewSQLWarning("TOP ... WITH TIES dropped the tie behavior: target has no equivalent.", top.Sp))
	}
	s.Limit = top.Count
}

func (r *BaseRewriter) rewriteCreateView(s *ast.CreateViewStatement) ast.Statement {
	if s == nil {
		return nil
	}
	r.mapRelationName(s.Name)
	if s.OrAlter {
		s.OrAlter = false
		s.OrReplace = true
	}
	if s.WithSchemabinding {
		s.WithSchemabinding = false
		r.diags.PushWarning(diagnostics.NewSQLWarning("WITH SCHEMABINDING dropped: the target has no equivalent option.", s.Sp))
	}
	s.Select = r.rewriteSelect(s.Select)
	return s
}

func (r *BaseRewriter) rewriteTableSource(ts ast.TableSource) ast.TableSource {
	switch t := ts.(type) {
	case nil:
		return nil
	case *ast.TableRef:
		r.mapRelationName(t.Name)
		if t.Alias != nil {
			r.requoteIdent(t.Alias)
		}
		return t
	case *ast.DerivedTable:
		t.Subquery = r.rewriteSelect(t.Subquery)
		r.requoteIdent(t.Alias)
		return t
	case *ast.Join:
		t.Left = r.rewriteTableSource(t.Left)
		t.Right = r.rewriteTableSource(t.Right)
		t.On = r.RewriteExpression(t.On)
		return t
	default:
		return ts
	}
}

// mapRelationName applies schema mapping and requoting to a table or view
// name. Column references never go through here; only relations are
// schema-qualified.
func (r *BaseRewriter) mapRelationName(name *ast.ObjectName) {
	if name == nil {
		return
	}

	schema := name.Schema()
	sourceSchema := r.opts.DefaultSchema
	if schema != nil {
		sourceSchema = schema.Value
	}

	if target, ok := r.opts.TargetSchema(sourceSchema); ok {
		if target == "" {
			name.DropSchema()
		} else {
			name.SetSchema(&ast.Identifier{Value: target, Sp: name.Sp})
		}
	}
	for _, part := range name.Parts {
		r.foldRelationIdent(part)
	}
}

// foldRelationIdent lowercases a relation identifier so the created object
// carries the same name the migration engine records and queries. Names that
// cannot stand as plain identifiers keep their exact case behind target
// quotes.
func (r *BaseRewriter) foldRelationIdent(id *ast.Identifier) {
	if id == nil {
		return
	}
	lower := strings.ToLower(id.Value)
	if isPlainIdent(lower) {
		id.Value = lower
		id.Quote = ast.QuoteNone
		return
	}
	r.requoteIdent(id)
}

func (r *BaseRewriter) requoteName(name *ast.ObjectName) {
	if name == nil {
		return
	}
	for _, part := range name.Parts {
		r.requoteIdent(part)
	}
}

// requoteIdent converts bracket quoting to the target style. Bracketed names
// that are plain lowercase identifiers lose the quoting entirely; everything
// else keeps its exact case behind target quotes.
func (r *BaseRewriter) requoteIdent(id *ast.Identifier) {
	if id == nil {
		return
	}
	if id.Quote == ast.QuoteBracket || id.Quote == ast.QuoteDouble {
		if isPlainIdent(id.Value) {
			id.Quote = ast.QuoteNone
			return
		}
		id.Quote = r.identQuote
	}
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return !isReservedTarget(s)
}

// isReservedTarget covers the reserved words shared by the targets that would
// break an unquoted identifier.
func isReservedTarget(s string) bool {
	switch s {
	case "all", "and", "any", "as", "asc", "between", "by", "case", "cast",
		"check", "column", "create", "cross", "current_date", "current_time",
		"current_timestamp", "default", "desc", "distinct", "else", "end",
		"except", "exists", "from", "full", "group", "having", "in", "inner",
		"intersect", "into", "is", "join", "left", "like", "limit", "not",
		"null", "offset", "on", "or", "order", "outer", "right", "select",
		"table", "then", "to", "union", "unique", "user", "using", "when",
		"where", "with":
		return true
	}
	return false
}

func (r *BaseRewriter) rewriteFunctionCall(fc *ast.FunctionCall) ast.Expression {
	if fc == nil {
		return nil
	}
	funcName := fc.FuncName()

	if len(fc.Args) == 0 && !fc.StarArg {
		if replacement, ok := r.parameterlessFunctions[funcName]; ok {
			return &ast.Raw{SQL: replacement, Sp: fc.Sp}
		}
	}

	if handler, ok := r.specialFunctions[funcName]; ok {
		for i, arg := range fc.Args {
			fc.Args[i] = r.RewriteExpression(arg)
		}
		return handler(fc)
	}

	if newName, ok := r.functionRenames[funcName]; ok {
		fc.Name = &ast.ObjectName{
			Parts: []*ast.Identifier{{Value: newName, Sp: fc.Name.Sp}},
			Sp:    fc.Name.Sp,
		}
	}

	for i, arg := range fc.Args {
		fc.Args[i] = r.RewriteExpression(arg)
	}
	return fc
}

func (r *BaseRewriter) rewriteInfix(e *ast.InfixExpression) ast.Expression {
	e.Left = r.RewriteExpression(e.Left)
	e.Right = r.RewriteExpression(e.Right)

	if e.Operator == "+" {
		leftStr := isStringExpr(e.Left)
		rightStr := isStringExpr(e.Right)
		switch {
		case leftStr || rightStr:
			if r.concat == concatFunc {
				return &ast.Raw{
					SQL: "CONCAT(" + e.Left.String() + ", " + e.Right.String() + ")",
					Sp:  e.Sp,
				}
			}
			e.Operator = "||"
		case !isNumericExpr(e.Left) || !isNumericExpr(e.Right):
			// Columns of unknown type: addition and concatenation are
			// indistinguishable without catalog information.
			r.diags.PushWarning(diagnostics.NewAmbiguousConcatWarning(e.Sp))
		}
	}
	return e
}

func (r *BaseRewriter) rewriteCase(e *ast.CaseExpression) ast.Expression {
	e.Operand = r.RewriteExpression(e.Operand)
	for _, w := range e.WhenClauses {
		w.Condition = r.RewriteExpression(w.Condition)
		w.Result = r.RewriteExpression(w.Result)
	}
	e.ElseClause = r.RewriteExpression(e.ElseClause)
	return e
}

func (r *BaseRewriter) rewriteCast(e *ast.CastExpression) ast.Expression {
	e.Expr = r.RewriteExpression(e.Expr)
	r.rewriteTypeName(e.Target)
	return e
}

// rewriteConvert converts CONVERT(type, expr) to CAST(expr AS type). Style
// handling is dialect-specific; the Postgres rewriter installs a
// convertOverride turning known style codes into TO_CHAR.
func (r *BaseRewriter) rewriteConvert(e *ast.ConvertExpression) ast.Expression {
	e.Expr = r.RewriteExpression(e.Expr)
	if r.convertOverride != nil {
		if out := r.convertOverride(e); out != nil {
			return out
		}
	}
	if e.Style != nil {
		r.diags.PushWarning(diagnostics.NewConvertStyleDroppedWarning(*e.Style, e.Sp))
	}
	r.rewriteTypeName(e.Target)
	return &ast.CastExpression{Expr: e.Expr, Target: e.Target, Sp: e.Sp}
}

func (r *BaseRewriter) rewriteTypeName(t *ast.TypeName) {
	if t == nil {
		return
	}
	upper := strings.ToUpper(t.Name)
	if t.Max {
		if mapped, ok := r.maxTypes[upper]; ok {
			t.Name = mapped
			t.Max = false
			t.Args = nil
			return
		}
	}
	if mapped, ok := r.typeMappings[upper]; ok {
		// Mappings with embedded arguments, e.g. NUMERIC(19,4), replace the
		// whole type.
		if strings.ContainsRune(mapped, '(') {
			t.Name = mapped
			t.Args = nil
			t.Max = false
			return
		}
		t.Name = mapped
	}
}

// isStringExpr reports whether an expression is provably a character string.
func isStringExpr(e ast.Expression) bool {
	switch v := e.(type) {
	case *ast.StringLiteral:
		return true
	case *ast.ParenExpression:
		return isStringExpr(v.Expr)
	case *ast.InfixExpression:
		return v.Operator == "||"
	case *ast.CastExpression:
		return isCharType(v.Target)
	case *ast.ConvertExpression:
		return isCharType(v.Target)
	case *ast.FunctionCall:
		return stringReturningFunctions[v.FuncName()]
	case *ast.CaseExpression:
		for _, w := range v.WhenClauses {
			if isStringExpr(w.Result) {
				return true
			}
		}
		return v.ElseClause != nil && isStringExpr(v.ElseClause)
	default:
		return false
	}
}

// isNumericExpr reports whether an expression is provably numeric.
func isNumericExpr(e ast.Expression) bool {
	switch v := e.(type) {
	case *ast.NumberLiteral:
		return true
	case *ast.PrefixExpression:
		return v.Operator != "NOT" && isNumericExpr(v.Right)
	case *ast.ParenExpression:
		return isNumericExpr(v.Expr)
	case *ast.InfixExpression:
		switch v.Operator {
		case "-", "*", "/", "%":
			return true
		case "+":
			return isNumericExpr(v.Left) && isNumericExpr(v.Right)
		}
		return false
	case *ast.CastExpression:
		return isNumericType(v.Target)
	case *ast.FunctionCall:
		return numericReturningFunctions[v.FuncName()]
	default:
		return false
	}
}

func isCharType(t *ast.TypeName) bool {
	switch strings.ToUpper(t.Name) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT", "CHARACTER":
		return true
	}
	return false
}

func isNumericType(t *ast.TypeName) bool {
	switch strings.ToUpper(t.Name) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "DECIMAL",
		"NUMERIC", "FLOAT", "REAL", "MONEY", "SMALLMONEY", "DOUBLE PRECISION":
		return true
	}
	return false
}

var stringReturningFunctions = map[string]bool{
	"UPPER": true, "LOWER": true, "LTRIM": true, "RTRIM": true, "TRIM": true,
	"SUBSTRING": true, "SUBSTR": true, "LEFT": true, "RIGHT": true,
	"REPLACE": true, "CONCAT": true, "REPLICATE": true, "REPEAT": true,
	"REVERSE": true, "SPACE": true, "STUFF": true, "STR": true,
	"FORMAT": true, "TO_CHAR": true,
}

// MIN/MAX and COALESCE are absent on purpose: their result type follows the
// argument types, which are unknown without catalog information.
var numericReturningFunctions = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true,
	"ABS": true, "ROUND": true, "FLOOR": true, "CEILING": true, "SIGN": true,
	"LEN": true, "LENGTH": true, "CHAR_LENGTH": true, "DATEDIFF": true,
	"DATEPART": true, "YEAR": true, "MONTH": true, "DAY": true,
	"CHARINDEX": true, "POSITION": true, "ISNUMERIC": true, "ISDATE": true,
}
