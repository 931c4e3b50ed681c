// Package parser builds syntax trees for the supported T-SQL subset.
package parser

import (
	"strconv"
	"strings"

	"github.com/sqlshift/sqlshift/internal/debug"
	"github.com/sqlshift/sqlshift/tsql/ast"
	"github.com/sqlshift/sqlshift/tsql/diagnostics"
	"github.com/sqlshift/sqlshift/tsql/lexer"
	"github.com/sqlshift/sqlshift/tsql/token"
)

// Operator precedence levels, lowest first.
const (
	precLowest = iota
	precOr
	precAnd
	precNot
	precComparison
	precAdditive
	precMultiplicative
	precUnary
)

var precedences = map[token.Type]int{
	token.Or:      precOr,
	token.And:     precAnd,
	token.Eq:      precComparison,
	token.NotEq:   precComparison,
	token.Lt:      precComparison,
	token.Gt:      precComparison,
	token.LtEq:    precComparison,
	token.GtEq:    precComparison,
	token.Like:    precComparison,
	token.Between: precComparison,
	token.In:      precComparison,
	token.Is:      precComparison,
	token.Not:     precComparison, // NOT LIKE / NOT IN / NOT BETWEEN
	token.Plus:    precAdditive,
	token.Minus:   precAdditive,
	token.Star:    precMultiplicative,
	token.Slash:   precMultiplicative,
	token.Percent: precMultiplicative,
}

// Parser parses a token stream into statements.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  *diagnostics.Diagnostics
}

// New creates a parser over the given source text.
func New(input string) *Parser {
	tokens, diags := lexer.New(input).Tokenize()
	return &Parser{tokens: tokens, diags: diags}
}

// Parse parses the whole input as a batch of statements. Statements are
// separated by semicolons or GO batch separators. All errors encountered are
// accumulated in the returned diagnostics.
func (p *Parser) Parse() (*ast.Batch, *diagnostics.Diagnostics) {
	batch := &ast.Batch{Sp: diagnostics.NewSpan(0, p.tokens[len(p.tokens)-1].EndPos)}

	for !p.curIs(token.EOF) {
		if p.curIs(token.Semicolon) || p.curIs(token.Go) {
			p.next()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			batch.Statements = append(batch.Statements, stmt)
		} else {
			// Error recovery: skip to the next statement boundary.
			p.skipToStatementBoundary()
		}
	}

	debug.Debug("Parsed batch", "statements", len(batch.Statements), "errors", len(p.diags.Errors()))
	return batch, p.diags
}

// ParseExpressionString parses a single standalone expression; used by tests
// and by the rules engine.
func ParseExpressionString(input string) (ast.Expression, *diagnostics.Diagnostics) {
	p := New(input)
	expr := p.parseExpression(precLowest)
	return expr, p.diags
}

func (p *Parser) cur() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() token.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) next() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur().Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek().Type == t }

func (p *Parser) curSpan() diagnostics.Span {
	return diagnostics.NewSpan(p.cur().Pos, p.cur().EndPos)
}

// expect consumes the current token if it matches, otherwise records an error.
func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.diags.PushError(diagnostics.NewUnexpectedTokenError(p.cur().Literal, t.String(), p.curSpan()))
	return false
}

func (p *Parser) skipToStatementBoundary() {
	for !p.curIs(token.EOF) && !p.curIs(token.Semicolon) && !p.curIs(token.Go) {
		p.next()
	}
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur().Type {
	case token.Select, token.LParen:
		return p.parseSelect()
	case token.Create, token.Alter:
		return p.parseCreateView()
	default:
		p.diags.PushError(diagnostics.NewUnexpectedTokenError(p.cur().Literal, "SELECT or CREATE VIEW", p.curSpan()))
		return nil
	}
}

// parseCreateView parses CREATE [OR ALTER] VIEW name [WITH SCHEMABINDING] AS select.
// A leading ALTER VIEW is accepted and treated as CREATE OR ALTER.
func (p *Parser) parseCreateView() ast.Statement {
	start := p.cur().Pos
	orAlter := false

	if p.curIs(token.Alter) {
		orAlter = true
		p.next()
	} else {
		p.next() // CREATE
		if p.curIs(token.Or) {
			p.next()
			if !p.expect(token.Alter) {
				return nil
			}
			orAlter = true
		}
	}

	if !p.expect(token.View) {
		return nil
	}

	name := p.parseObjectName()
	if name == nil {
		return nil
	}

	withSchemabinding := false
	if p.curIs(token.With) {
		p.next()
		if p.curIs(token.Schemabinding) {
			withSchemabinding = true
			p.next()
		} else {
			p.diags.PushError(diagnostics.NewUnexpectedTokenError(p.cur().Literal, "SCHEMABINDING", p.curSpan()))
		}
	}

	if !p.expect(token.As) {
		return nil
	}

	sel := p.parseSelect()
	if sel == nil {
		return nil
	}

	return &ast.CreateViewStatement{
		Name:              name,
		OrAlter:           orAlter,
		WithSchemabinding: withSchemabinding,
		Select:            sel,
		Sp:                diagnostics.NewSpan(start, sel.Span().End),
	}
}

func (p *Parser) parseSelect() *ast.SelectStatement {
	// Allow a fully parenthesized SELECT.
	if p.curIs(token.LParen) {
		p.next()
		sel := p.parseSelect()
		p.expect(token.RParen)
		return sel
	}

	start := p.cur().Pos
	if !p.expect(token.Select) {
		return nil
	}

	stmt := &ast.SelectStatement{}

	if p.curIs(token.Distinct) {
		stmt.Distinct = true
		p.next()
	} else if p.curIs(token.All) {
		p.next()
	}

	if p.curIs(token.Top) {
		stmt.Top = p.parseTopClause()
	}

	stmt.Columns = p.parseSelectColumns()

	if p.curIs(token.From) {
		p.next()
		stmt.From = p.parseTableSources()
	}

	if p.curIs(token.Where) {
		p.next()
		stmt.Where = p.parseExpression(precLowest)
	}

	if p.curIs(token.Group) {
		p.next()
		p.expect(token.By)
		stmt.GroupBy = p.parseExpressionList()
	}

	if p.curIs(token.Having) {
		p.next()
		stmt.Having = p.parseExpression(precLowest)
	}

	for p.curIs(token.Union) || p.curIs(token.Except) || p.curIs(token.Intersect) {
		op := ast.UnionOp
		switch p.cur().Type {
		case token.Except:
			op = ast.ExceptOp
		case token.Intersect:
			op = ast.IntersectOp
		}
		p.next()
		if op == ast.UnionOp && p.curIs(token.All) {
			op = ast.UnionAllOp
			p.next()
		}
		right := p.parseSelect()
		if right == nil {
			return nil
		}
		stmt.Compounds = append(stmt.Compounds, &ast.CompoundClause{Op: op, Select: right})
	}

	if p.curIs(token.Order) {
		p.next()
		p.expect(token.By)
		stmt.OrderBy = p.parseOrderBy()
	}

	end := p.tokens[p.pos].Pos
	if p.pos > 0 {
		end = p.tokens[p.pos-1].EndPos
	}
	stmt.Sp = diagnostics.NewSpan(start, end)
	return stmt
}

func (p *Parser) parseTopClause() *ast.TopClause {
	start := p.cur().Pos
	p.next() // TOP

	// Without parentheses only a literal count is allowed; otherwise
	// SELECT TOP 10 * would parse as the product 10 * FROM.
	var count ast.Expression
	if p.curIs(token.LParen) {
		p.next()
		count = p.parseExpression(precLowest)
		p.expect(token.RParen)
	} else {
		numTok := p.cur()
		if p.expect(token.Number) {
			count = &ast.NumberLiteral{Value: numTok.Literal, Sp: diagnostics.NewSpan(numTok.Pos, numTok.EndPos)}
		}
	}

	clause := &ast.TopClause{Count: count}
	if p.curIs(token.PercentKw) {
		clause.Percent = true
		p.next()
	}
	if p.curIs(token.With) {
		p.next()
		if p.curIs(token.Ties) {
			clause.WithTies = true
			p.next()
		}
	}
	end := start
	if count != nil {
		end = count.Span().End
	}
	clause.Sp = diagnostics.NewSpan(start, end)
	return clause
}

func (p *Parser) parseSelectColumns() []*ast.SelectColumn {
	var cols []*ast.SelectColumn
	for {
		col := p.parseSelectColumn()
		if col != nil {
			cols = append(cols, col)
		}
		if !p.curIs(token.Comma) {
			break
		}
		p.next()
	}
	return cols
}

func (p *Parser) parseSelectColumn() *ast.SelectColumn {
	// alias = expr form
	if p.isIdentToken(p.cur().Type) && p.peekIs(token.Eq) {
		alias := p.parseIdentifier()
		p.next() // =
		expr := p.parseExpression(precLowest)
		return &ast.SelectColumn{Expr: expr, Alias: alias}
	}

	expr := p.parseExpression(precLowest)
	if expr == nil {
		return nil
	}
	col := &ast.SelectColumn{Expr: expr}

	if p.curIs(token.As) {
		p.next()
		col.Alias = p.parseIdentifier()
	} else if p.isIdentToken(p.cur().Type) {
		// bare alias: SELECT x total FROM ...
		col.Alias = p.parseIdentifier()
	}
	return col
}

func (p *Parser) parseExpressionList() []ast.Expression {
	var list []ast.Expression
	for {
		expr := p.parseExpression(precLowest)
		if expr != nil {
			list = append(list, expr)
		}
		if !p.curIs(token.Comma) {
			break
		}
		p.next()
	}
	return list
}

func (p *Parser) parseOrderBy() []*ast.OrderByItem {
	var items []*ast.OrderByItem
	for {
		expr := p.parseExpression(precLowest)
		if expr == nil {
			break
		}
		item := &ast.OrderByItem{Expr: expr}
		if p.curIs(token.Desc) {
			item.Desc = true
			p.next()
		} else if p.curIs(token.Asc) {
			p.next()
		}
		items = append(items, item)
		if !p.curIs(token.Comma) {
			break
		}
		p.next()
	}
	return items
}

// parseTableSources parses the FROM clause: the first table source followed by
// any number of joins. Comma-separated sources become CROSS JOINs.
func (p *Parser) parseTableSources() ast.TableSource {
	left := p.parseTableSource()
	if left == nil {
		return nil
	}

	for {
		switch p.cur().Type {
		case token.Comma:
			p.next()
			right := p.parseTableSource()
			if right == nil {
				return left
			}
			left = &ast.Join{Left: left, Type: ast.CrossJoin, Right: right}
		case token.Join, token.Inner, token.Left, token.Right, token.Full, token.Cross:
			left = p.parseJoin(left)
			if left == nil {
				return nil
			}
		default:
			return left
		}
	}
}

func (p *Parser) parseJoin(left ast.TableSource) ast.TableSource {
	start := p.cur().Pos
	jt := ast.InnerJoin

	switch p.cur().Type {
	case token.Inner:
		p.next()
	case token.Left:
		jt = ast.LeftJoin
		p.next()
		if p.curIs(token.Outer) {
			p.next()
		}
	case token.Right:
		jt = ast.RightJoin
		p.next()
		if p.curIs(token.Outer) {
			p.next()
		}
	case token.Full:
		jt = ast.FullJoin
		p.next()
		if p.curIs(token.Outer) {
			p.next()
		}
	case token.Cross:
		jt = ast.CrossJoin
		p.next()
	}
	if !p.expect(token.Join) {
		return nil
	}

	right := p.parseTableSource()
	if right == nil {
		return nil
	}

	join := &ast.Join{Left: left, Type: jt, Right: right, Sp: diagnostics.NewSpan(start, right.Span().End)}
	if jt != ast.CrossJoin {
		if !p.expect(token.On) {
			return nil
		}
		join.On = p.parseExpression(precLowest)
	}
	return join
}

func (p *Parser) parseTableSource() ast.TableSource {
	if p.curIs(token.LParen) {
		start := p.cur().Pos
		p.next()
		sel := p.parseSelect()
		if sel == nil {
			return nil
		}
		p.expect(token.RParen)
		if p.curIs(token.As) {
			p.next()
		}
		alias := p.parseIdentifier()
		if alias == nil {
			p.diags.PushError(diagnostics.NewSQLError("Derived table requires an alias.", p.curSpan()))
			return nil
		}
		return &ast.DerivedTable{Subquery: sel, Alias: alias, Sp: diagnostics.NewSpan(start, alias.Sp.End)}
	}

	name := p.parseObjectName()
	if name == nil {
		return nil
	}
	ref := &ast.TableRef{Name: name, Sp: name.Sp}

	if p.curIs(token.As) {
		p.next()
		ref.Alias = p.parseIdentifier()
	} else if p.isIdentToken(p.cur().Type) {
		ref.Alias = p.parseIdentifier()
	}

	// WITH (NOLOCK) and friends: parse and drop; table hints have no target
	// equivalent and do not affect results for read queries.
	if p.curIs(token.With) && p.peekIs(token.LParen) {
		p.next()
		p.next()
		depth := 1
		for depth > 0 && !p.curIs(token.EOF) {
			if p.curIs(token.LParen) {
				depth++
			}
			if p.curIs(token.RParen) {
				depth--
			}
			p.next()
		}
	}
	return ref
}

func (p *Parser) isIdentToken(t token.Type) bool {
	return t == token.Ident || t == token.BracketIdent || t == token.QuotedIdent
}

// parseIdentifier parses one identifier token. Returns nil without error when
// the current token is not an identifier; callers decide whether that is fatal.
func (p *Parser) parseIdentifier() *ast.Identifier {
	tok := p.cur()
	var quote ast.QuoteStyle
	switch tok.Type {
	case token.Ident:
		quote = ast.QuoteNone
	case token.BracketIdent:
		quote = ast.QuoteBracket
	case token.QuotedIdent:
		quote = ast.QuoteDouble
	default:
		return nil
	}
	p.next()
	return &ast.Identifier{Value: tok.Literal, Quote: quote, Sp: diagnostics.NewSpan(tok.Pos, tok.EndPos)}
}

func (p *Parser) parseObjectName() *ast.ObjectName {
	first := p.parseIdentifier()
	if first == nil {
		p.diags.PushError(diagnostics.NewUnexpectedTokenError(p.cur().Literal, "identifier", p.curSpan()))
		return nil
	}
	name := &ast.ObjectName{Parts: []*ast.Identifier{first}, Sp: first.Sp}
	for p.curIs(token.Dot) {
		p.next()
		part := p.parseIdentifier()
		if part == nil {
			p.diags.PushError(diagnostics.NewUnexpectedTokenError(p.cur().Literal, "identifier", p.curSpan()))
			return nil
		}
		name.Parts = append(name.Parts, part)
		name.Sp = diagnostics.NewSpan(name.Sp.Start, part.Sp.End)
	}
	return name
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur().Type]; ok {
		return prec
	}
	return precLowest
}

func (p *Parser) parseExpression(minPrec int) ast.Expression {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		prec := p.curPrecedence()
		if prec <= minPrec {
			return left
		}
		next := p.parseInfix(left)
		if next == nil || next == left {
			return left
		}
		left = next
	}
}

func (p *Parser) parsePrefix() ast.Expression {
	tok := p.cur()
	sp := diagnostics.NewSpan(tok.Pos, tok.EndPos)

	switch tok.Type {
	case token.Number:
		p.next()
		return &ast.NumberLiteral{Value: tok.Literal, Sp: sp}
	case token.String:
		p.next()
		return &ast.StringLiteral{Value: tok.Literal, Sp: sp}
	case token.NationalString:
		p.next()
		return &ast.StringLiteral{Value: tok.Literal, National: true, Sp: sp}
	case token.Null:
		p.next()
		return &ast.NullLiteral{Sp: sp}
	case token.Variable:
		p.next()
		return &ast.Variable{Name: tok.Literal, Sp: sp}
	case token.Star:
		p.next()
		return &ast.Star{Sp: sp}
	case token.Minus, token.Plus:
		p.next()
		right := p.parseExpression(precUnary)
		if right == nil {
			return nil
		}
		return &ast.PrefixExpression{Operator: tok.Literal, Right: right, Sp: diagnostics.NewSpan(sp.Start, right.Span().End)}
	case token.Not:
		p.next()
		right := p.parseExpression(precNot)
		if right == nil {
			return nil
		}
		return &ast.PrefixExpression{Operator: "NOT", Right: right, Sp: diagnostics.NewSpan(sp.Start, right.Span().End)}
	case token.Case:
		return p.parseCase()
	case token.Cast:
		return p.parseCast()
	case token.Convert:
		return p.parseConvert()
	case token.Exists:
		p.next()
		if !p.expect(token.LParen) {
			return nil
		}
		sel := p.parseSelect()
		if sel == nil {
			return nil
		}
		p.expect(token.RParen)
		return &ast.ExistsExpression{Subquery: sel, Sp: diagnostics.NewSpan(sp.Start, sel.Span().End)}
	case token.LParen:
		p.next()
		if p.curIs(token.Select) {
			sel := p.parseSelect()
			if sel == nil {
				return nil
			}
			p.expect(token.RParen)
			return &ast.SubqueryExpression{Subquery: sel, Sp: diagnostics.NewSpan(sp.Start, sel.Span().End)}
		}
		inner := p.parseExpression(precLowest)
		if inner == nil {
			return nil
		}
		p.expect(token.RParen)
		return &ast.ParenExpression{Expr: inner, Sp: diagnostics.NewSpan(sp.Start, inner.Span().End)}
	case token.Ident, token.BracketIdent, token.QuotedIdent:
		return p.parseNameOrCall()
	case token.Left, token.Right:
		// LEFT and RIGHT are keywords but also builtin function names.
		if p.peekIs(token.LParen) {
			return p.parseCallWithName(tok.Literal)
		}
		p.diags.PushError(diagnostics.NewUnexpectedTokenError(tok.Literal, "expression", sp))
		return nil
	default:
		p.diags.PushError(diagnostics.NewUnexpectedTokenError(tok.Literal, "expression", sp))
		return nil
	}
}

// parseNameOrCall parses a qualified name, a function call, or a qualified
// star (t.*).
func (p *Parser) parseNameOrCall() ast.Expression {
	name := p.parseObjectName()
	if name == nil {
		return nil
	}

	if p.curIs(token.Dot) && p.peekIs(token.Star) {
		p.next()
		star := p.cur()
		p.next()
		return &ast.Star{Qualifier: name, Sp: diagnostics.NewSpan(name.Sp.Start, star.EndPos)}
	}

	if p.curIs(token.LParen) {
		return p.parseCall(name)
	}
	return name
}

func (p *Parser) parseCallWithName(literal string) ast.Expression {
	tok := p.cur()
	p.next()
	name := &ast.ObjectName{
		Parts: []*ast.Identifier{{Value: literal, Sp: diagnostics.NewSpan(tok.Pos, tok.EndPos)}},
		Sp:    diagnostics.NewSpan(tok.Pos, tok.EndPos),
	}
	return p.parseCall(name)
}

func (p *Parser) parseCall(name *ast.ObjectName) ast.Expression {
	p.next() // (
	call := &ast.FunctionCall{Name: name}

	if p.curIs(token.Star) {
		call.StarArg = true
		p.next()
	} else if !p.curIs(token.RParen) {
		if p.curIs(token.Distinct) {
			call.Distinct = true
			p.next()
		}
		call.Args = p.parseExpressionList()
	}

	end := p.cur().EndPos
	p.expect(token.RParen)
	call.Sp = diagnostics.NewSpan(name.Sp.Start, end)
	return call
}

func (p *Parser) parseCase() ast.Expression {
	start := p.cur().Pos
	p.next() // CASE

	expr := &ast.CaseExpression{}
	if !p.curIs(token.When) {
		expr.Operand = p.parseExpression(precLowest)
	}

	for p.curIs(token.When) {
		p.next()
		cond := p.parseExpression(precLowest)
		if !p.expect(token.Then) {
			return nil
		}
		result := p.parseExpression(precLowest)
		expr.WhenClauses = append(expr.WhenClauses, &ast.WhenClause{Condition: cond, Result: result})
	}

	if p.curIs(token.Else) {
		p.next()
		expr.ElseClause = p.parseExpression(precLowest)
	}

	end := p.cur().EndPos
	if !p.expect(token.End) {
		return nil
	}
	expr.Sp = diagnostics.NewSpan(start, end)
	return expr
}

func (p *Parser) parseCast() ast.Expression {
	start := p.cur().Pos
	p.next() // CAST
	if !p.expect(token.LParen) {
		return nil
	}
	inner := p.parseExpression(precLowest)
	if !p.expect(token.As) {
		return nil
	}
	typ := p.parseTypeName()
	if typ == nil {
		return nil
	}
	end := p.cur().EndPos
	p.expect(token.RParen)
	return &ast.CastExpression{Expr: inner, Target: typ, Sp: diagnostics.NewSpan(start, end)}
}

func (p *Parser) parseConvert() ast.Expression {
	start := p.cur().Pos
	p.next() // CONVERT
	if !p.expect(token.LParen) {
		return nil
	}
	typ := p.parseTypeName()
	if typ == nil {
		return nil
	}
	if !p.expect(token.Comma) {
		return nil
	}
	inner := p.parseExpression(precLowest)

	conv := &ast.ConvertExpression{Target: typ, Expr: inner}
	if p.curIs(token.Comma) {
		p.next()
		styleTok := p.cur()
		if p.expect(token.Number) {
			if style, err := strconv.Atoi(styleTok.Literal); err == nil {
				conv.Style = &style
			}
		}
	}
	end := p.cur().EndPos
	p.expect(token.RParen)
	conv.Sp = diagnostics.NewSpan(start, end)
	return conv
}

// parseTypeName parses a data type such as NVARCHAR(50), DECIMAL(10,2),
// VARCHAR(MAX), or INT.
func (p *Parser) parseTypeName() *ast.TypeName {
	tok := p.cur()
	if !p.isIdentToken(tok.Type) {
		p.diags.PushError(diagnostics.NewUnexpectedTokenError(tok.Literal, "type name", p.curSpan()))
		return nil
	}
	p.next()

	typ := &ast.TypeName{Name: strings.ToUpper(tok.Literal), Sp: diagnostics.NewSpan(tok.Pos, tok.EndPos)}

	// Two-word types: DOUBLE PRECISION.
	if typ.Name == "DOUBLE" && p.curIs(token.Ident) && strings.EqualFold(p.cur().Literal, "precision") {
		typ.Name = "DOUBLE PRECISION"
		p.next()
	}

	if p.curIs(token.LParen) {
		p.next()
		for {
			if p.curIs(token.Ident) && strings.EqualFold(p.cur().Literal, "max") {
				typ.Max = true
				p.next()
			} else {
				numTok := p.cur()
				if !p.expect(token.Number) {
					return nil
				}
				n, err := strconv.Atoi(numTok.Literal)
				if err != nil {
					p.diags.PushError(diagnostics.NewSQLError("Invalid type argument.", diagnostics.NewSpan(numTok.Pos, numTok.EndPos)))
					return nil
				}
				typ.Args = append(typ.Args, n)
			}
			if !p.curIs(token.Comma) {
				break
			}
			p.next()
		}
		end := p.cur().EndPos
		p.expect(token.RParen)
		typ.Sp = diagnostics.NewSpan(typ.Sp.Start, end)
	}
	return typ
}

func (p *Parser) parseInfix(left ast.Expression) ast.Expression {
	tok := p.cur()

	switch tok.Type {
	case token.And, token.Or:
		p.next()
		op := strings.ToUpper(tok.Literal)
		right := p.parseExpression(precedences[tok.Type])
		if right == nil {
			return nil
		}
		return &ast.InfixExpression{Left: left, Operator: op, Right: right, Sp: spanOf(left, right)}
	case token.Plus, token.Minus, token.Star, token.Slash, token.Percent,
		token.Eq, token.NotEq, token.Lt, token.Gt, token.LtEq, token.GtEq:
		p.next()
		right := p.parseExpression(precedences[tok.Type])
		if right == nil {
			return nil
		}
		return &ast.InfixExpression{Left: left, Operator: tok.Literal, Right: right, Sp: spanOf(left, right)}
	case token.Like:
		return p.parseLike(left, false)
	case token.Between:
		return p.parseBetween(left, false)
	case token.In:
		return p.parseIn(left, false)
	case token.Is:
		return p.parseIs(left)
	case token.Not:
		// expr NOT LIKE / NOT IN / NOT BETWEEN
		switch p.peek().Type {
		case token.Like:
			p.next()
			return p.parseLike(left, true)
		case token.Between:
			p.next()
			return p.parseBetween(left, true)
		case token.In:
			p.next()
			return p.parseIn(left, true)
		}
		return left
	default:
		return left
	}
}

func (p *Parser) parseLike(left ast.Expression, not bool) ast.Expression {
	p.next() // LIKE
	pattern := p.parseExpression(precComparison)
	if pattern == nil {
		return nil
	}
	like := &ast.LikeExpression{Expr: left, Not: not, Pattern: pattern, Sp: spanOf(left, pattern)}
	if p.curIs(token.Escape) {
		p.next()
		like.Escape = p.parseExpression(precComparison)
	}
	return like
}

func (p *Parser) parseBetween(left ast.Expression, not bool) ast.Expression {
	p.next() // BETWEEN
	low := p.parseExpression(precAdditive)
	if !p.expect(token.And) {
		return nil
	}
	high := p.parseExpression(precAdditive)
	if low == nil || high == nil {
		return nil
	}
	return &ast.BetweenExpression{Expr: left, Not: not, Low: low, High: high, Sp: spanOf(left, high)}
}

func (p *Parser) parseIn(left ast.Expression, not bool) ast.Expression {
	p.next() // IN
	if !p.expect(token.LParen) {
		return nil
	}
	in := &ast.InExpression{Expr: left, Not: not}
	if p.curIs(token.Select) {
		in.Subquery = p.parseSelect()
	} else {
		in.Values = p.parseExpressionList()
	}
	end := p.cur().EndPos
	p.expect(token.RParen)
	in.Sp = diagnostics.NewSpan(left.Span().Start, end)
	return in
}

func (p *Parser) parseIs(left ast.Expression) ast.Expression {
	p.next() // IS
	not := false
	if p.curIs(token.Not) {
		not = true
		p.next()
	}
	end := p.cur().EndPos
	if !p.expect(token.Null) {
		return nil
	}
	return &ast.IsNullExpression{Expr: left, Not: not, Sp: diagnostics.NewSpan(left.Span().Start, end)}
}

func spanOf(left, right ast.Expression) diagnostics.Span {
	return diagnostics.NewSpan(left.Span().Start, right.Span().End)
}
