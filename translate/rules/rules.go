// Package rules parses user-defined rewrite rule files using Participle.
//
// A rule file holds one rule per line:
//
//	# function renames keep the argument list
//	function DATALENGTH => OCTET_LENGTH
//
//	# parameterless replacements substitute a raw expression
//	function GETDATE() => "NOW()"
//
//	# type mappings apply inside CAST and CONVERT
//	type MONEY => "NUMERIC(19,4)"
//	type DATETIME => TIMESTAMP
package rules

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Set holds parsed rewrite rules, keyed by uppercased source name.
type Set struct {
	// FunctionRenames maps a function name to its target name.
	FunctionRenames map[string]string

	// ParameterlessFunctions maps a zero-argument function to a raw
	// replacement expression.
	ParameterlessFunctions map[string]string

	// TypeMappings maps a data type name to its target type.
	TypeMappings map[string]string
}

// Len returns the total number of rules in the set.
func (s *Set) Len() int {
	return len(s.FunctionRenames) + len(s.ParameterlessFunctions) + len(s.TypeMappings)
}

// rawFile is the raw parse tree structure that matches the grammar.
type rawFile struct {
	Pos   lexer.Position
	Rules []*rawRule `parser:"@@*"`
}

// rawRule is a single rule line.
type rawRule struct {
	Pos    lexer.Position
	Kind   string `parser:"@Keyword"`
	Name   string `parser:"@Ident"`
	Parens bool   `parser:"@(LParen RParen)?"`
	Target string `parser:"Arrow (@String | @Ident)"`
}

// ruleLexer defines the token types for rule files.
var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `\b(function|type)\b`},
	{Name: "Arrow", Pattern: `=>`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Newline", Pattern: `[\r\n]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

// parser is the Participle parser instance.
var parser = participle.MustBuild[rawFile](
	participle.Lexer(ruleLexer),
	participle.Elide("Whitespace", "Newline", "Comment"),
	participle.Unquote("String"),
)

// Parse reads a rule file from an io.Reader.
func Parse(filename string, r io.Reader) (*Set, error) {
	raw, err := parser.Parse(filename, r)
	if err != nil {
		return nil, err
	}
	return convertRawFile(raw)
}

// ParseString parses a rule file from a string.
func ParseString(filename, input string) (*Set, error) {
	return Parse(filename, strings.NewReader(input))
}

// convertRawFile converts the raw parse tree to a rule set, validating each
// rule.
func convertRawFile(raw *rawFile) (*Set, error) {
	set := &Set{
		FunctionRenames:        map[string]string{},
		ParameterlessFunctions: map[string]string{},
		TypeMappings:           map[string]string{},
	}
	for _, rule := range raw.Rules {
		name := strings.ToUpper(rule.Name)
		switch rule.Kind {
		case "function":
			if rule.Parens {
				set.ParameterlessFunctions[name] = rule.Target
			} else {
				set.FunctionRenames[name] = rule.Target
			}
		case "type":
			if rule.Parens {
				return nil, fmt.Errorf("%s: type rule %q cannot take parentheses", rule.Pos, rule.Name)
			}
			set.TypeMappings[name] = rule.Target
		}
	}
	return set, nil
}
