package rules

import (
	"strings"
	"testing"
)

func TestParseFunctionRename(t *testing.T) {
	set, err := ParseString("rules.txt", "function DATALENGTH => OCTET_LENGTH")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if set.FunctionRenames["DATALENGTH"] != "OCTET_LENGTH" {
		t.Errorf("unexpected renames: %v", set.FunctionRenames)
	}
	if set.Len() != 1 {
		t.Errorf("expected 1 rule, got %d", set.Len())
	}
}

func TestParseParameterlessFunction(t *testing.T) {
	set, err := ParseString("rules.txt", `function GETDATE() => "NOW()"`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if set.ParameterlessFunctions["GETDATE"] != "NOW()" {
		t.Errorf("unexpected parameterless rules: %v", set.ParameterlessFunctions)
	}
	if len(set.FunctionRenames) != 0 {
		t.Errorf("parens rule must not land in renames: %v", set.FunctionRenames)
	}
}

func TestParseTypeMapping(t *testing.T) {
	set, err := ParseString("rules.txt", `type MONEY => "NUMERIC(19,4)"`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if set.TypeMappings["MONEY"] != "NUMERIC(19,4)" {
		t.Errorf("unexpected type mappings: %v", set.TypeMappings)
	}
}

func TestParseBareIdentTarget(t *testing.T) {
	set, err := ParseString("rules.txt", "type DATETIME => TIMESTAMP")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if set.TypeMappings["DATETIME"] != "TIMESTAMP" {
		t.Errorf("unexpected type mappings: %v", set.TypeMappings)
	}
}

func TestParseNamesAreUppercased(t *testing.T) {
	set, err := ParseString("rules.txt", "function len => CHAR_LENGTH")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, ok := set.FunctionRenames["LEN"]; !ok {
		t.Errorf("expected uppercased key LEN, got %v", set.FunctionRenames)
	}
}

func TestParseFullFileWithComments(t *testing.T) {
	input := `# custom overrides
function LEN => CHAR_LENGTH
function SUSER_SNAME() => "SESSION_USER"

# types
type NVARCHAR => TEXT
type MONEY => "NUMERIC(19,4)"
`
	set, err := ParseString("rules.txt", input)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if set.Len() != 4 {
		t.Fatalf("expected 4 rules, got %d", set.Len())
	}
	if set.FunctionRenames["LEN"] != "CHAR_LENGTH" {
		t.Errorf("unexpected renames: %v", set.FunctionRenames)
	}
	if set.ParameterlessFunctions["SUSER_SNAME"] != "SESSION_USER" {
		t.Errorf("unexpected parameterless rules: %v", set.ParameterlessFunctions)
	}
	if set.TypeMappings["NVARCHAR"] != "TEXT" {
		t.Errorf("unexpected type mappings: %v", set.TypeMappings)
	}
}

func TestParseEmptyFile(t *testing.T) {
	set, err := ParseString("rules.txt", "# nothing but comments\n")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("expected empty set, got %d rules", set.Len())
	}
}

func TestParseTypeRuleWithParensRejected(t *testing.T) {
	_, err := ParseString("rules.txt", `type MONEY() => "NUMERIC(19,4)"`)
	if err == nil {
		t.Fatal("expected an error for a type rule with parentheses")
	}
	if !strings.Contains(err.Error(), "parentheses") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseMalformedRule(t *testing.T) {
	_, err := ParseString("rules.txt", "function LEN CHAR_LENGTH")
	if err == nil {
		t.Fatal("expected a parse error for a rule without =>")
	}
}
