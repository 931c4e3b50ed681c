// Package lexer provides lexical analysis for the supported T-SQL subset.
package lexer

import (
	"strings"
	"unicode"

	"github.com/sqlshift/sqlshift/internal/debug"
	"github.com/sqlshift/sqlshift/tsql/diagnostics"
	"github.com/sqlshift/sqlshift/tsql/token"
)

// Lexer tokenizes T-SQL input.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
	tokens []token.Token
	diags  *diagnostics.Diagnostics
}

// New creates a new lexer for the given input.
func New(input string) *Lexer {
	debug.Debug("Creating new lexer", "input_length", len(input))
	return &Lexer{
		input:  input,
		pos:    0,
		line:   1,
		column: 1,
		tokens: make([]token.Token, 0),
		diags:  diagnostics.NewDiagnostics(),
	}
}

// Tokenize converts the input string into a slice of tokens. Comments are
// dropped; errors are accumulated into the returned diagnostics so a single
// pass reports every bad character in the input.
func (l *Lexer) Tokenize() ([]token.Token, *diagnostics.Diagnostics) {
	for l.pos < len(l.input) {
		char := rune(l.input[l.pos])

		switch {
		case unicode.IsSpace(char):
			l.advance()
		case char == '-' && l.peek() == '-':
			l.skipLineComment()
		case char == '/' && l.peek() == '*':
			l.skipBlockComment()
		case char == '\'':
			l.tokenizeString(false)
		case (char == 'N' || char == 'n') && l.peek() == '\'':
			l.advance()
			l.tokenizeString(true)
		case char == '[':
			l.tokenizeBracketIdent()
		case char == '"':
			l.tokenizeQuotedIdent()
		case char == '@':
			l.tokenizeVariable()
		case unicode.IsLetter(char) || char == '_' || char == '#':
			l.tokenizeIdentifier()
		case unicode.IsDigit(char):
			l.tokenizeNumber()
		case char == '.' && unicode.IsDigit(l.peek()):
			l.tokenizeNumber()
		default:
			l.tokenizeOperator(char)
		}
	}

	l.tokens = append(l.tokens, token.Token{
		Type: token.EOF, Pos: l.pos, EndPos: l.pos, Line: l.line, Column: l.column,
	})
	debug.Debug("Tokenization completed", "token_count", len(l.tokens), "errors", len(l.diags.Errors()))
	return l.tokens, l.diags
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	if l.input[l.pos] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return rune(l.input[l.pos+1])
}

func (l *Lexer) emit(typ token.Type, literal string, start, startLine, startCol int) {
	l.tokens = append(l.tokens, token.Token{
		Type:    typ,
		Literal: literal,
		Pos:     start,
		EndPos:  l.pos,
		Line:    startLine,
		Column:  startCol,
	})
}

func (l *Lexer) skipLineComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.advance()
	}
}

func (l *Lexer) skipBlockComment() {
	start := l.pos
	l.advance()
	l.advance()
	for l.pos < len(l.input) {
		if l.input[l.pos] == '*' && l.peek() == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
	l.diags.PushError(diagnostics.NewUnterminatedError("block comment", diagnostics.NewSpan(start, l.pos)))
}

// tokenizeString lexes a single-quoted string literal. Embedded quotes are
// escaped by doubling ('') per T-SQL rules; the literal value keeps the
// doubled form because it is valid in every target dialect as well.
func (l *Lexer) tokenizeString(national bool) {
	start := l.pos
	startLine, startCol := l.line, l.column
	if national {
		start-- // include the N prefix in the span
	}
	l.advance() // opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		if l.input[l.pos] == '\'' {
			if l.peek() == '\'' {
				sb.WriteString("''")
				l.advance()
				l.advance()
				continue
			}
			l.advance() // closing quote
			typ := token.String
			if national {
				typ = token.NationalString
			}
			l.emit(typ, sb.String(), start, startLine, startCol)
			return
		}
		sb.WriteByte(l.input[l.pos])
		l.advance()
	}
	l.diags.PushError(diagnostics.NewUnterminatedError("string literal", diagnostics.NewSpan(start, l.pos)))
}

// tokenizeBracketIdent lexes a [bracket-quoted] identifier. A closing bracket
// inside the name is escaped by doubling (]]).
func (l *Lexer) tokenizeBracketIdent() {
	start := l.pos
	startLine, startCol := l.line, l.column
	l.advance() // [

	var sb strings.Builder
	for l.pos < len(l.input) {
		if l.input[l.pos] == ']' {
			if l.peek() == ']' {
				sb.WriteByte(']')
				l.advance()
				l.advance()
				continue
			}
			l.advance() // ]
			l.emit(token.BracketIdent, sb.String(), start, startLine, startCol)
			return
		}
		sb.WriteByte(l.input[l.pos])
		l.advance()
	}
	l.diags.PushError(diagnostics.NewUnterminatedError("bracket identifier", diagnostics.NewSpan(start, l.pos)))
}

// tokenizeQuotedIdent lexes a "double-quoted" identifier (QUOTED_IDENTIFIER ON).
func (l *Lexer) tokenizeQuotedIdent() {
	start := l.pos
	startLine, startCol := l.line, l.column
	l.advance() // "

	var sb strings.Builder
	for l.pos < len(l.input) {
		if l.input[l.pos] == '"' {
			if l.peek() == '"' {
				sb.WriteByte('"')
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			l.emit(token.QuotedIdent, sb.String(), start, startLine, startCol)
			return
		}
		sb.WriteByte(l.input[l.pos])
		l.advance()
	}
	l.diags.PushError(diagnostics.NewUnterminatedError("quoted identifier", diagnostics.NewSpan(start, l.pos)))
}

func (l *Lexer) tokenizeVariable() {
	start := l.pos
	startLine, startCol := l.line, l.column
	l.advance() // @
	if l.pos < len(l.input) && l.input[l.pos] == '@' {
		l.advance() // @@ system variables such as @@ROWCOUNT
	}
	for l.pos < len(l.input) && isIdentChar(rune(l.input[l.pos])) {
		l.advance()
	}
	l.emit(token.Variable, l.input[start:l.pos], start, startLine, startCol)
}

func (l *Lexer) tokenizeIdentifier() {
	start := l.pos
	startLine, startCol := l.line, l.column
	for l.pos < len(l.input) && isIdentChar(rune(l.input[l.pos])) {
		l.advance()
	}
	value := l.input[start:l.pos]
	typ := token.LookupIdent(strings.ToLower(value))
	l.emit(typ, value, start, startLine, startCol)
}

func (l *Lexer) tokenizeNumber() {
	start := l.pos
	startLine, startCol := l.line, l.column
	for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
		l.advance()
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.advance()
		for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
			l.advance()
		}
	}
	// Exponent part (1e10, 1.5E-3)
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		next := l.peek()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			l.advance()
			if l.input[l.pos] == '+' || l.input[l.pos] == '-' {
				l.advance()
			}
			for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
				l.advance()
			}
		}
	}
	l.emit(token.Number, l.input[start:l.pos], start, startLine, startCol)
}

func (l *Lexer) tokenizeOperator(char rune) {
	start := l.pos
	startLine, startCol := l.line, l.column

	single := map[rune]token.Type{
		'+': token.Plus,
		'-': token.Minus,
		'*': token.Star,
		'/': token.Slash,
		'%': token.Percent,
		'=': token.Eq,
		',': token.Comma,
		'.': token.Dot,
		';': token.Semicolon,
		'(': token.LParen,
		')': token.RParen,
	}

	switch char {
	case '<':
		l.advance()
		if l.pos < len(l.input) && l.input[l.pos] == '>' {
			l.advance()
			l.emit(token.NotEq, "<>", start, startLine, startCol)
		} else if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.advance()
			l.emit(token.LtEq, "<=", start, startLine, startCol)
		} else {
			l.emit(token.Lt, "<", start, startLine, startCol)
		}
	case '>':
		l.advance()
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.advance()
			l.emit(token.GtEq, ">=", start, startLine, startCol)
		} else {
			l.emit(token.Gt, ">", start, startLine, startCol)
		}
	case '!':
		l.advance()
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.advance()
			l.emit(token.NotEq, "!=", start, startLine, startCol)
		} else {
			l.diags.PushError(diagnostics.NewUnexpectedCharacterError('!', diagnostics.NewSpan(start, l.pos)))
		}
	default:
		if typ, ok := single[char]; ok {
			l.advance()
			l.emit(typ, string(char), start, startLine, startCol)
		} else {
			l.diags.PushError(diagnostics.NewUnexpectedCharacterError(char, diagnostics.NewSpan(start, l.pos+1)))
			l.advance()
		}
	}
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' || r == '#'
}
