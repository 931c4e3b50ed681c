// Package ast defines the syntax tree for the supported T-SQL subset and its
// serialization back to SQL text.
//
// Nodes render themselves with String(). Dialect differences are expressed in
// the tree itself: a rewriter transforms a source tree into a target-shaped
// tree (identifier quote styles, TOP vs LIMIT, rewritten function calls), and
// rendering stays dialect-agnostic.
package ast

import (
	"fmt"
	"strings"

	"github.com/sqlshift/sqlshift/tsql/diagnostics"
)

// Node is the common interface for all syntax tree nodes.
type Node interface {
	String() string
	Span() diagnostics.Span
}

// Statement is a top-level SQL statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a SQL expression.
type Expression interface {
	Node
	expressionNode()
}

// QuoteStyle selects how an identifier is quoted when rendered.
type QuoteStyle int

const (
	// QuoteNone renders the identifier bare.
	QuoteNone QuoteStyle = iota
	// QuoteBracket renders [name] (SQL Server).
	QuoteBracket
	// QuoteDouble renders "name" (PostgreSQL, standard SQL).
	QuoteDouble
	// QuoteBacktick renders `name` (MySQL).
	QuoteBacktick
)

// Identifier is a single (possibly quoted) name.
type Identifier struct {
	Value string
	Quote QuoteStyle
	Sp    diagnostics.Span
}

func (i *Identifier) expressionNode()        {}
func (i *Identifier) Span() diagnostics.Span { return i.Sp }

func (i *Identifier) String() string {
	switch i.Quote {
	case QuoteBracket:
		return "[" + strings.ReplaceAll(i.Value, "]", "]]") + "]"
	case QuoteDouble:
		return `"` + strings.ReplaceAll(i.Value, `"`, `""`) + `"`
	case QuoteBacktick:
		return "`" + strings.ReplaceAll(i.Value, "`", "``") + "`"
	default:
		return i.Value
	}
}

// ObjectName is a dot-separated qualified name such as dbo.Visits or
// server.db.schema.object. Parts[len-1] is the object itself.
type ObjectName struct {
	Parts []*Identifier
	Sp    diagnostics.Span
}

func (o *ObjectName) expressionNode()        {}
func (o *ObjectName) Span() diagnostics.Span { return o.Sp }

func (o *ObjectName) String() string {
	parts := make([]string, len(o.Parts))
	for i, p := range o.Parts {
		parts[i] = p.String()
	}
	return strings.Join(parts, ".")
}

// Object returns the unqualified object identifier.
func (o *ObjectName) Object() *Identifier {
	return o.Parts[len(o.Parts)-1]
}

// Schema returns the schema identifier, or nil when unqualified.
func (o *ObjectName) Schema() *Identifier {
	if len(o.Parts) < 2 {
		return nil
	}
	return o.Parts[len(o.Parts)-2]
}

// SetSchema replaces or inserts the schema qualifier.
func (o *ObjectName) SetSchema(schema *Identifier) {
	if len(o.Parts) >= 2 {
		o.Parts[len(o.Parts)-2] = schema
		return
	}
	o.Parts = append([]*Identifier{schema}, o.Parts...)
}

// DropSchema removes the schema qualifier if present.
func (o *ObjectName) DropSchema() {
	if len(o.Parts) >= 2 {
		o.Parts = o.Parts[len(o.Parts)-1:]
	}
}

// StringLiteral is a quoted string constant. National marks N'...' literals;
// the value keeps T-SQL's '' escaping, which is valid in all target dialects.
type StringLiteral struct {
	Value    string
	National bool
	Sp       diagnostics.Span
}

func (s *StringLiteral) expressionNode()        {}
func (s *StringLiteral) Span() diagnostics.Span { return s.Sp }

func (s *StringLiteral) String() string {
	if s.National {
		return "N'" + s.Value + "'"
	}
	return "'" + s.Value + "'"
}

// NumberLiteral is a numeric constant, kept as source text to avoid
// round-tripping through floats.
type NumberLiteral struct {
	Value string
	Sp    diagnostics.Span
}

func (n *NumberLiteral) expressionNode()        {}
func (n *NumberLiteral) Span() diagnostics.Span { return n.Sp }
func (n *NumberLiteral) String() string         { return n.Value }

// NullLiteral is the NULL constant.
type NullLiteral struct {
	Sp diagnostics.Span
}

func (n *NullLiteral) expressionNode()        {}
func (n *NullLiteral) Span() diagnostics.Span { return n.Sp }
func (n *NullLiteral) String() string         { return "NULL" }

// Star is the bare * projection.
type Star struct {
	// Qualifier is the optional table qualifier in t.* projections.
	Qualifier *ObjectName
	Sp        diagnostics.Span
}

func (s *Star) expressionNode()        {}
func (s *Star) Span() diagnostics.Span { return s.Sp }

func (s *Star) String() string {
	if s.Qualifier != nil {
		return s.Qualifier.String() + ".*"
	}
	return "*"
}

// Variable is a @local or @@system variable reference.
type Variable struct {
	Name string // including the @ prefix
	Sp   diagnostics.Span
}

func (v *Variable) expressionNode()        {}
func (v *Variable) Span() diagnostics.Span { return v.Sp }
func (v *Variable) String() string         { return v.Name }

// Raw is an escape hatch for rewrites whose output has no structured node,
// such as POSITION(x IN y). It renders verbatim.
type Raw struct {
	SQL string
	Sp  diagnostics.Span
}

func (r *Raw) expressionNode()        {}
func (r *Raw) Span() diagnostics.Span { return r.Sp }
func (r *Raw) String() string         { return r.SQL }

// PrefixExpression is a unary operator application such as -x or NOT x.
type PrefixExpression struct {
	Operator string
	Right    Expression
	Sp       diagnostics.Span
}

func (p *PrefixExpression) expressionNode()        {}
func (p *PrefixExpression) Span() diagnostics.Span { return p.Sp }

func (p *PrefixExpression) String() string {
	if p.Operator == "NOT" {
		return "NOT " + p.Right.String()
	}
	return p.Operator + p.Right.String()
}

// InfixExpression is a binary operator application.
type InfixExpression struct {
	Left     Expression
	Operator string
	Right    Expression
	Sp       diagnostics.Span
}

func (i *InfixExpression) expressionNode()        {}
func (i *InfixExpression) Span() diagnostics.Span { return i.Sp }

func (i *InfixExpression) String() string {
	return i.Left.String() + " " + i.Operator + " " + i.Right.String()
}

// ParenExpression preserves explicit parentheses from the source.
type ParenExpression struct {
	Expr Expression
	Sp   diagnostics.Span
}

func (p *ParenExpression) expressionNode()        {}
func (p *ParenExpression) Span() diagnostics.Span { return p.Sp }
func (p *ParenExpression) String() string         { return "(" + p.Expr.String() + ")" }

// FunctionCall is a (possibly schema-qualified) function invocation.
type FunctionCall struct {
	Name *ObjectName
	Args []Expression
	// StarArg marks COUNT(*).
	StarArg bool
	// Distinct marks COUNT(DISTINCT x) style calls.
	Distinct bool
	Sp       diagnostics.Span
}

func (f *FunctionCall) expressionNode()        {}
func (f *FunctionCall) Span() diagnostics.Span { return f.Sp }

func (f *FunctionCall) String() string {
	var sb strings.Builder
	sb.WriteString(f.Name.String())
	sb.WriteString("(")
	if f.StarArg {
		sb.WriteString("*")
	} else {
		if f.Distinct {
			sb.WriteString("DISTINCT ")
		}
		for i, arg := range f.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.String())
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// FuncName returns the uppercased unqualified function name.
func (f *FunctionCall) FuncName() string {
	return strings.ToUpper(f.Name.Object().Value)
}

// WhenClause is one WHEN ... THEN ... arm of a CASE expression.
type WhenClause struct {
	Condition Expression
	Result    Expression
}

// CaseExpression is a simple or searched CASE expression.
type CaseExpression struct {
	// Operand is nil for searched CASE.
	Operand     Expression
	WhenClauses []*WhenClause
	ElseClause  Expression
	Sp          diagnostics.Span
}

func (c *CaseExpression) expressionNode()        {}
func (c *CaseExpression) Span() diagnostics.Span { return c.Sp }

func (c *CaseExpression) String() string {
	var sb strings.Builder
	sb.WriteString("CASE")
	if c.Operand != nil {
		sb.WriteString(" " + c.Operand.String())
	}
	for _, w := range c.WhenClauses {
		sb.WriteString(" WHEN " + w.Condition.String() + " THEN " + w.Result.String())
	}
	if c.ElseClause != nil {
		sb.WriteString(" ELSE " + c.ElseClause.String())
	}
	sb.WriteString(" END")
	return sb.String()
}

// TypeName is a SQL data type reference such as NVARCHAR(50) or DECIMAL(10,2).
type TypeName struct {
	Name string
	// Args are length/precision/scale arguments.
	Args []int
	// Max marks NVARCHAR(MAX) style lengths.
	Max bool
	Sp  diagnostics.Span
}

func (t *TypeName) Span() diagnostics.Span { return t.Sp }

func (t *TypeName) String() string {
	if t.Max {
		return t.Name + "(MAX)"
	}
	if len(t.Args) == 0 {
		return t.Name
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = fmt.Sprintf("%d", a)
	}
	return t.Name + "(" + strings.Join(args, ",") + ")"
}

// CastExpression is CAST(expr AS type).
type CastExpression struct {
	Expr   Expression
	Target *TypeName
	Sp     diagnostics.Span
}

func (c *CastExpression) expressionNode()        {}
func (c *CastExpression) Span() diagnostics.Span { return c.Sp }

func (c *CastExpression) String() string {
	return "CAST(" + c.Expr.String() + " AS " + c.Target.String() + ")"
}

// ConvertExpression is T-SQL's CONVERT(type, expr [, style]).
type ConvertExpression struct {
	Target *TypeName
	Expr   Expression
	// Style is the optional third argument, nil when absent.
	Style *int
	Sp    diagnostics.Span
}

func (c *ConvertExpression) expressionNode()        {}
func (c *ConvertExpression) Span() diagnostics.Span { return c.Sp }

func (c *ConvertExpression) String() string {
	var sb strings.Builder
	sb.WriteString("CONVERT(" + c.Target.String() + ", " + c.Expr.String())
	if c.Style != nil {
		sb.WriteString(fmt.Sprintf(", %d", *c.Style))
	}
	sb.WriteString(")")
	return sb.String()
}

// BetweenExpression is expr [NOT] BETWEEN low AND high.
type BetweenExpression struct {
	Expr Expression
	Not  bool
	Low  Expression
	High Expression
	Sp   diagnostics.Span
}

func (b *BetweenExpression) expressionNode()        {}
func (b *BetweenExpression) Span() diagnostics.Span { return b.Sp }

func (b *BetweenExpression) String() string {
	not := ""
	if b.Not {
		not = "NOT "
	}
	return b.Expr.String() + " " + not + "BETWEEN " + b.Low.String() + " AND " + b.High.String()
}

// InExpression is expr [NOT] IN (values | subquery).
type InExpression struct {
	Expr     Expression
	Not      bool
	Values   []Expression
	Subquery *SelectStatement
	Sp       diagnostics.Span
}

func (i *InExpression) expressionNode()        {}
func (i *InExpression) Span() diagnostics.Span { return i.Sp }

func (i *InExpression) String() string {
	var sb strings.Builder
	sb.WriteString(i.Expr.String())
	if i.Not {
		sb.WriteString(" NOT")
	}
	sb.WriteString(" IN (")
	if i.Subquery != nil {
		sb.WriteString(i.Subquery.String())
	} else {
		for idx, v := range i.Values {
			if idx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(v.String())
		}
	}
	sb.WriteString(")")
	return sb.String()
}

// IsNullExpression is expr IS [NOT] NULL.
type IsNullExpression struct {
	Expr Expression
	Not  bool
	Sp   diagnostics.Span
}

func (e *IsNullExpression) expressionNode()        {}
func (e *IsNullExpression) Span() diagnostics.Span { return e.Sp }

func (e *IsNullExpression) String() string {
	if e.Not {
		return e.Expr.String() + " IS NOT NULL"
	}
	return e.Expr.String() + " IS NULL"
}

// LikeExpression is expr [NOT] LIKE pattern [ESCAPE char].
type LikeExpression struct {
	Expr    Expression
	Not     bool
	Pattern Expression
	Escape  Expression
	Sp      diagnostics.Span
}

func (e *LikeExpression) expressionNode()        {}
func (e *LikeExpression) Span() diagnostics.Span { return e.Sp }

func (e *LikeExpression) String() string {
	var sb strings.Builder
	sb.WriteString(e.Expr.String())
	if e.Not {
		sb.WriteString(" NOT")
	}
	sb.WriteString(" LIKE " + e.Pattern.String())
	if e.Escape != nil {
		sb.WriteString(" ESCAPE " + e.Escape.String())
	}
	return sb.String()
}

// ExistsExpression is EXISTS (subquery).
type ExistsExpression struct {
	Subquery *SelectStatement
	Sp       diagnostics.Span
}

func (e *ExistsExpression) expressionNode()        {}
func (e *ExistsExpression) Span() diagnostics.Span { return e.Sp }

func (e *ExistsExpression) String() string {
	return "EXISTS (" + e.Subquery.String() + ")"
}

// SubqueryExpression is a scalar or row subquery in an expression position.
type SubqueryExpression struct {
	Subquery *SelectStatement
	Sp       diagnostics.Span
}

func (e *SubqueryExpression) expressionNode()        {}
func (e *SubqueryExpression) Span() diagnostics.Span { return e.Sp }

func (e *SubqueryExpression) String() string {
	return "(" + e.Subquery.String() + ")"
}

// SelectColumn is one projected column with an optional alias.
type SelectColumn struct {
	Expr  Expression
	Alias *Identifier
}

func (c *SelectColumn) String() string {
	if c.Alias != nil {
		return c.Expr.String() + " AS " + c.Alias.String()
	}
	return c.Expr.String()
}

// TableSource is any FROM item: a base table, a derived table, or a join.
type TableSource interface {
	Node
	tableSourceNode()
}

// TableRef is a reference to a base table or view, with an optional alias.
type TableRef struct {
	Name  *ObjectName
	Alias *Identifier
	Sp    diagnostics.Span
}

func (t *TableRef) tableSourceNode()       {}
func (t *TableRef) Span() diagnostics.Span { return t.Sp }

func (t *TableRef) String() string {
	if t.Alias != nil {
		return t.Name.String() + " AS " + t.Alias.String()
	}
	return t.Name.String()
}

// DerivedTable is a parenthesized subquery in FROM with a mandatory alias.
type DerivedTable struct {
	Subquery *SelectStatement
	Alias    *Identifier
	Sp       diagnostics.Span
}

func (d *DerivedTable) tableSourceNode()       {}
func (d *DerivedTable) Span() diagnostics.Span { return d.Sp }

func (d *DerivedTable) String() string {
	return "(" + d.Subquery.String() + ") AS " + d.Alias.String()
}

// JoinType enumerates the supported join kinds.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

func (j JoinType) String() string {
	switch j {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case FullJoin:
		return "FULL JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	default:
		return "INNER JOIN"
	}
}

// Join combines a left table source with a joined one.
type Join struct {
	Left  TableSource
	Type  JoinType
	Right TableSource
	// On is nil for CROSS JOIN.
	On Expression
	Sp diagnostics.Span
}

func (j *Join) tableSourceNode()       {}
func (j *Join) Span() diagnostics.Span { return j.Sp }

func (j *Join) String() string {
	s := j.Left.String() + " " + j.Type.String() + " " + j.Right.String()
	if j.On != nil {
		s += " ON " + j.On.String()
	}
	return s
}

// TopClause is T-SQL's TOP (n) [PERCENT] [WITH TIES].
type TopClause struct {
	Count    Expression
	Percent  bool
	WithTies bool
	Sp       diagnostics.Span
}

func (t *TopClause) Span() diagnostics.Span { return t.Sp }

func (t *TopClause) String() string {
	s := "TOP " + t.Count.String()
	if t.Percent {
		s += " PERCENT"
	}
	if t.WithTies {
		s += " WITH TIES"
	}
	return s
}

// OrderByItem is one ORDER BY term.
type OrderByItem struct {
	Expr Expression
	Desc bool
}

func (o *OrderByItem) String() string {
	if o.Desc {
		return o.Expr.String() + " DESC"
	}
	return o.Expr.String()
}

// CompoundOp is a set operator between two SELECTs.
type CompoundOp int

const (
	UnionOp CompoundOp = iota
	UnionAllOp
	ExceptOp
	IntersectOp
)

func (c CompoundOp) String() string {
	switch c {
	case UnionAllOp:
		return "UNION ALL"
	case ExceptOp:
		return "EXCEPT"
	case IntersectOp:
		return "INTERSECT"
	default:
		return "UNION"
	}
}

// CompoundClause chains a further SELECT onto a statement with a set operator.
type CompoundClause struct {
	Op     CompoundOp
	Select *SelectStatement
}

// SelectStatement is a SELECT query.
//
// Top holds the source T-SQL TOP clause; Limit holds a target-dialect LIMIT
// count. A parsed tree has only Top set; the rewriter moves it to Limit for
// targets that use LIMIT, so at most one of the two is set when rendering.
type SelectStatement struct {
	Distinct  bool
	Top       *TopClause
	Columns   []*SelectColumn
	From      TableSource // nil for FROM-less SELECT
	Where     Expression
	GroupBy   []Expression
	Having    Expression
	OrderBy   []*OrderByItem
	Limit     Expression
	FetchTies bool // render FETCH FIRST n ROWS WITH TIES instead of LIMIT
	Compounds []*CompoundClause
	Sp        diagnostics.Span
}

func (s *SelectStatement) statementNode()         {}
func (s *SelectStatement) expressionNode()        {}
func (s *SelectStatement) Span() diagnostics.Span { return s.Sp }

func (s *SelectStatement) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if s.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if s.Top != nil {
		sb.WriteString(s.Top.String() + " ")
	}
	for i, col := range s.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.String())
	}
	if s.From != nil {
		sb.WriteString(" FROM " + s.From.String())
	}
	if s.Where != nil {
		sb.WriteString(" WHERE " + s.Where.String())
	}
	if len(s.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, g := range s.GroupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(g.String())
		}
	}
	if s.Having != nil {
		sb.WriteString(" HAVING " + s.Having.String())
	}
	for _, c := range s.Compounds {
		sb.WriteString(" " + c.Op.String() + " " + c.Select.String())
	}
	if len(s.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(o.String())
		}
	}
	if s.Limit != nil {
		if s.FetchTies {
			sb.WriteString(" FETCH FIRST " + s.Limit.String() + " ROWS WITH TIES")
		} else {
			sb.WriteString(" LIMIT " + s.Limit.String())
		}
	}
	return sb.String()
}

// CreateViewStatement is CREATE [OR ALTER] VIEW name AS select.
type CreateViewStatement struct {
	Name    *ObjectName
	OrAlter bool
	// OrReplace renders CREATE OR REPLACE VIEW (PostgreSQL/MySQL form). The
	// rewriter sets it when translating OrAlter.
	OrReplace bool
	// WithSchemabinding records T-SQL's WITH SCHEMABINDING option, which has
	// no target equivalent and is dropped with a warning.
	WithSchemabinding bool
	Select            *SelectStatement
	Sp                diagnostics.Span
}

func (c *CreateViewStatement) statementNode()         {}
func (c *CreateViewStatement) Span() diagnostics.Span { return c.Sp }

func (c *CreateViewStatement) String() string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if c.OrAlter {
		sb.WriteString("OR ALTER ")
	} else if c.OrReplace {
		sb.WriteString("OR REPLACE ")
	}
	sb.WriteString("VIEW " + c.Name.String())
	if c.WithSchemabinding {
		sb.WriteString(" WITH SCHEMABINDING")
	}
	sb.WriteString(" AS " + c.Select.String())
	return sb.String()
}

// Batch is a sequence of statements separated by GO or semicolons.
type Batch struct {
	Statements []Statement
	Sp         diagnostics.Span
}

func (b *Batch) Span() diagnostics.Span { return b.Sp }

func (b *Batch) String() string {
	parts := make([]string, len(b.Statements))
	for i, s := range b.Statements {
		parts[i] = s.String() + ";"
	}
	return strings.Join(parts, "\n")
}
