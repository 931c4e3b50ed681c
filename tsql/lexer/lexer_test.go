package lexer

import (
	"testing"

	"github.com/sqlshift/sqlshift/tsql/token"
)

func tokenize(t *testing.T, input string) []token.Token {
	t.Helper()
	tokens, diags := New(input).Tokenize()
	if diags.HasErrors() {
		t.Fatalf("Unexpected lexer errors for %q: %v", input, diags.Errors())
	}
	return tokens
}

func TestTokenizeSelect(t *testing.T) {
	tokens := tokenize(t, "SELECT id, name FROM users WHERE age >= 18")

	want := []token.Type{
		token.Select, token.Ident, token.Comma, token.Ident,
		token.From, token.Ident, token.Where, token.Ident,
		token.GtEq, token.Number, token.EOF,
	}
	if len(tokens) != len(want) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i, typ := range want {
		if tokens[i].Type != typ {
			t.Errorf("Token %d: expected %s, got %s (%q)", i, typ, tokens[i].Type, tokens[i].Literal)
		}
	}
}

func TestTokenizeBracketIdent(t *testing.T) {
	tokens := tokenize(t, "[Order Total]")

	if tokens[0].Type != token.BracketIdent {
		t.Fatalf("Expected bracket identifier, got %s", tokens[0].Type)
	}
	if tokens[0].Literal != "Order Total" {
		t.Errorf("Expected literal 'Order Total', got %q", tokens[0].Literal)
	}
}

func TestTokenizeBracketEscape(t *testing.T) {
	tokens := tokenize(t, "[weird]]name]")

	if tokens[0].Literal != "weird]name" {
		t.Errorf("Doubled ]] must unescape to ]: got %q", tokens[0].Literal)
	}
}

func TestTokenizeStringEscape(t *testing.T) {
	tokens := tokenize(t, "'it''s'")

	if tokens[0].Type != token.String {
		t.Fatalf("Expected string, got %s", tokens[0].Type)
	}
	// The doubled quote form is kept: it is valid in every target dialect.
	if tokens[0].Literal != "it''s" {
		t.Errorf("Expected literal with doubled quote, got %q", tokens[0].Literal)
	}
}

func TestTokenizeNationalString(t *testing.T) {
	tokens := tokenize(t, "N'héllo'")

	if tokens[0].Type != token.NationalString {
		t.Fatalf("Expected national string, got %s", tokens[0].Type)
	}
	if tokens[0].Literal != "héllo" {
		t.Errorf("Expected literal 'héllo', got %q", tokens[0].Literal)
	}
}

func TestTokenizeVariables(t *testing.T) {
	tokens := tokenize(t, "@userId @@ROWCOUNT")

	if tokens[0].Type != token.Variable || tokens[0].Literal != "@userId" {
		t.Errorf("Expected @userId variable, got %s %q", tokens[0].Type, tokens[0].Literal)
	}
	if tokens[1].Type != token.Variable || tokens[1].Literal != "@@ROWCOUNT" {
		t.Errorf("Expected @@ROWCOUNT variable, got %s %q", tokens[1].Type, tokens[1].Literal)
	}
}

func TestTokenizeComments(t *testing.T) {
	tokens := tokenize(t, "SELECT 1 -- trailing\n/* block\ncomment */ FROM t")

	want := []token.Type{token.Select, token.Number, token.From, token.Ident, token.EOF}
	if len(tokens) != len(want) {
		t.Fatalf("Comments must be dropped, got %d tokens: %v", len(tokens), tokens)
	}
}

func TestTokenizeNumbers(t *testing.T) {
	cases := map[string]string{
		"42":     "42",
		"3.14":   "3.14",
		".5":     ".5",
		"1e10":   "1e10",
		"1.5E-3": "1.5E-3",
	}
	for input, want := range cases {
		tokens := tokenize(t, input)
		if tokens[0].Type != token.Number {
			t.Errorf("%q: expected number, got %s", input, tokens[0].Type)
		}
		if tokens[0].Literal != want {
			t.Errorf("%q: expected literal %q, got %q", input, want, tokens[0].Literal)
		}
	}
}

func TestTokenizeOperators(t *testing.T) {
	tokens := tokenize(t, "a <> b != c <= d >= e")

	want := []token.Type{
		token.Ident, token.NotEq, token.Ident, token.NotEq, token.Ident,
		token.LtEq, token.Ident, token.GtEq, token.Ident, token.EOF,
	}
	for i, typ := range want {
		if tokens[i].Type != typ {
			t.Errorf("Token %d: expected %s, got %s", i, typ, tokens[i].Type)
		}
	}
}

func TestTokenizeKeywordsCaseInsensitive(t *testing.T) {
	tokens := tokenize(t, "select FROM Where")

	if tokens[0].Type != token.Select || tokens[1].Type != token.From || tokens[2].Type != token.Where {
		t.Errorf("Keywords must match case-insensitively: %v", tokens)
	}
}

func TestTokenizeLineColumn(t *testing.T) {
	tokens := tokenize(t, "SELECT 1\nFROM t")

	from := tokens[2]
	if from.Line != 2 || from.Column != 1 {
		t.Errorf("Expected FROM at line 2 column 1, got line %d column %d", from.Line, from.Column)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, diags := New("SELECT 'oops").Tokenize()

	if !diags.HasErrors() {
		t.Fatal("Expected an error for an unterminated string")
	}
}

func TestTokenizeUnterminatedBracket(t *testing.T) {
	_, diags := New("SELECT [oops").Tokenize()

	if !diags.HasErrors() {
		t.Fatal("Expected an error for an unterminated bracket identifier")
	}
}

func TestTokenizeCollectsMultipleErrors(t *testing.T) {
	_, diags := New("SELECT a ? b ~ c").Tokenize()

	if len(diags.Errors()) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(diags.Errors()), diags.Errors())
	}
}
