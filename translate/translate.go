package translate

import (
	"strings"

	"github.com/sqlshift/sqlshift/internal/debug"
	"github.com/sqlshift/sqlshift/translate/rules"
	"github.com/sqlshift/sqlshift/tsql/ast"
	"github.com/sqlshift/sqlshift/tsql/diagnostics"
	"github.com/sqlshift/sqlshift/tsql/parser"
)

// Result holds the outcome of translating one T-SQL source unit.
type Result struct {
	// Name identifies the source, typically a file name or object name.
	Name string

	// SQL is the rendered target-dialect text. Populated even when
	// diagnostics carry errors, so callers can show partial output.
	SQL string

	// Statements are the rewritten syntax trees behind SQL.
	Statements []ast.Statement

	// Diagnostics collects every error and warning from lexing, parsing and
	// rewriting.
	Diagnostics *diagnostics.Diagnostics
}

// Ok reports whether the translation produced no errors.
func (r *Result) Ok() bool {
	return !r.Diagnostics.HasErrors()
}

// Translator converts T-SQL source text to a target dialect.
type Translator struct {
	target Dialect
	opts   Options
	rules  *rules.Set
}

// New creates a translator for the given target dialect.
func New(target Dialect, opts Options) (*Translator, error) {
	// Fail early on unknown dialects instead of at the first Translate call.
	diags := diagnostics.NewDiagnostics()
	if _, err := NewRewriter(target, opts, diags); err != nil {
		return nil, err
	}
	return &Translator{target: target, opts: opts}, nil
}

// WithRules installs user-defined rewrite rules that take precedence over the
// built-in mappings. Returns the translator for chaining.
func (t *Translator) WithRules(set *rules.Set) *Translator {
	t.rules = set
	return t
}

// Target returns the target dialect.
func (t *Translator) Target() Dialect {
	return t.target
}

// Translate parses source as a T-SQL batch and rewrites it for the target
// dialect. The returned result always carries diagnostics; the error is
// non-nil only when diagnostics contain errors, and wraps their count.
func (t *Translator) Translate(name, source string) (*Result, error) {
	debug.Debug("translating", "name", name, "target", string(t.target), "bytes", len(source))

	batch, diags := parser.New(source).Parse()

	rewriter, err := NewRewriter(t.target, t.opts, diags)
	if err != nil {
		return nil, err
	}
	if t.rules != nil {
		applyRules(rewriter, t.rules)
	}

	result := &Result{Name: name, Diagnostics: diags}
	for _, stmt := range batch.Statements {
		result.Statements = append(result.Statements, rewriter.RewriteStatement(stmt))
	}
	result.SQL = Render(result.Statements)

	debug.Debug("translated", "name", name,
		"statements", len(result.Statements),
		"errors", len(diags.Errors()),
		"warnings", len(diags.Warnings()))

	return result, diags.ToResult()
}

// applyRules merges a user rule set into the rewriter's tables. User rules win
// over the built-ins.
func applyRules(rw Rewriter, set *rules.Set) {
	br, ok := rw.(interface {
		mergeRules(renames, parameterless, types map[string]string)
	})
	if !ok {
		return
	}
	br.mergeRules(set.FunctionRenames, set.ParameterlessFunctions, set.TypeMappings)
}

// mergeRules overlays user-defined mappings onto the built-in tables. A user
// rename also displaces any built-in structural handler for that function.
func (r *BaseRewriter) mergeRules(renames, parameterless, types map[string]string) {
	for k, v := range renames {
		key := strings.ToUpper(k)
		r.functionRenames[key] = v
		delete(r.specialFunctions, key)
	}
	for k, v := range parameterless {
		r.parameterlessFunctions[strings.ToUpper(k)] = v
	}
	for k, v := range types {
		r.typeMappings[strings.ToUpper(k)] = v
	}
}

// Render serializes rewritten statements, one per line group, each terminated
// with a semicolon.
func Render(stmts []ast.Statement) string {
	var b strings.Builder
	for i, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(stmt.String())
		b.WriteString(";")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	return b.String()
}
