package diagnostics

import (
	"fmt"
	"io"
)

// SQLWarning represents a non-fatal issue found while translating SQL. The
// translated output is usable but should be reviewed by a human.
type SQLWarning struct {
	message string
	span    Span
}

// NewSQLWarning creates a new SQLWarning with the given message and span.
func NewSQLWarning(message string, span Span) SQLWarning {
	return SQLWarning{
		message: message,
		span:    span,
	}
}

// NewConvertStyleDroppedWarning creates a warning for a CONVERT style argument
// that has no direct target equivalent and was dropped.
func NewConvertStyleDroppedWarning(style int, span Span) SQLWarning {
	return NewSQLWarning(fmt.Sprintf("CONVERT style %d has no direct equivalent and was dropped; formatting may differ.", style), span)
}

// NewTopPercentWarning creates a warning for TOP n PERCENT, which needs a
// window-function rewrite that is left for manual review.
func NewTopPercentWarning(span Span) SQLWarning {
	return NewSQLWarning("TOP ... PERCENT has no direct LIMIT equivalent; review the emitted comment and rewrite manually.", span)
}

// NewTopWithTiesWarning creates a warning for TOP ... WITH TIES.
func NewTopWithTiesWarning(span Span) SQLWarning {
	return NewSQLWarning("TOP ... WITH TIES requires FETCH FIRST ... WITH TIES; verify the target server supports it.", span)
}

// NewAmbiguousConcatWarning creates a warning for the + operator where the
// operand types cannot be inferred from the expression alone.
func NewAmbiguousConcatWarning(span Span) SQLWarning {
	return NewSQLWarning("Operator + left unchanged: operand types are unknown. If this is string concatenation it must become ||.", span)
}

// NewApproximateTranslationWarning creates a warning for a function translated
// with semantics that differ at the edges from the original.
func NewApproximateTranslationWarning(function, note string, span Span) SQLWarning {
	return NewSQLWarning(fmt.Sprintf("%s translated approximately: %s", function, note), span)
}

// Message returns the warning message.
func (w SQLWarning) Message() string {
	return w.message
}

// Span returns the span of the warning.
func (w SQLWarning) Span() Span {
	return w.span
}

// PrettyPrint writes a pretty-printed representation of the warning to the writer.
func (w SQLWarning) PrettyPrint(writer io.Writer, fileName, text string) error {
	return PrettyPrint(writer, fileName, text, w.span, w.message, WarningColorer{})
}
