package diagnostics

import (
	"fmt"
	"io"
)

// SQLError represents a parser or translation error in a SQL source text.
type SQLError struct {
	span    Span
	message string
}

// NewSQLError creates a new SQLError with the given message and span.
func NewSQLError(message string, span Span) SQLError {
	return SQLError{
		message: message,
		span:    span,
	}
}

// NewUnexpectedTokenError creates an error for an unexpected token.
func NewUnexpectedTokenError(got, expected string, span Span) SQLError {
	return NewSQLError(fmt.Sprintf("Unexpected token \"%s\", expected %s.", got, expected), span)
}

// NewUnexpectedCharacterError creates an error for an illegal input character.
func NewUnexpectedCharacterError(char rune, span Span) SQLError {
	return NewSQLError(fmt.Sprintf("Unexpected character '%c'.", char), span)
}

// NewUnterminatedError creates an error for an unterminated construct such as
// a string literal, bracket identifier, or block comment.
func NewUnterminatedError(construct string, span Span) SQLError {
	return NewSQLError(fmt.Sprintf("Unterminated %s.", construct), span)
}

// NewUnsupportedFunctionError creates an error for a function with no
// translation to the target dialect.
func NewUnsupportedFunctionError(function, dialect string, span Span) SQLError {
	return NewSQLError(fmt.Sprintf("Function \"%s\" has no %s translation.", function, dialect), span)
}

// NewUnsupportedConstructError creates an error for a statement-level construct
// with no translation to the target dialect.
func NewUnsupportedConstructError(construct, dialect string, span Span) SQLError {
	return NewSQLError(fmt.Sprintf("%s is not supported when targeting %s.", construct, dialect), span)
}

// NewArgumentCountError creates an error for a function call with the wrong
// number of arguments.
func NewArgumentCountError(function string, want, got int, span Span) SQLError {
	return NewSQLError(fmt.Sprintf("Function \"%s\" takes %d arguments, but received %d.", function, want, got), span)
}

// NewTypeMappingError creates an error for a source type with no target mapping.
func NewTypeMappingError(sourceType, dialect string, span Span) SQLError {
	return NewSQLError(fmt.Sprintf("Type \"%s\" has no %s mapping.", sourceType, dialect), span)
}

// Message returns the error message.
func (e SQLError) Message() string {
	return e.message
}

// Span returns the span of the error.
func (e SQLError) Span() Span {
	return e.span
}

// Error implements the error interface.
func (e SQLError) Error() string {
	return e.message
}

// PrettyPrint writes a pretty-printed representation of the error to the writer.
func (e SQLError) PrettyPrint(w io.Writer, fileName, text string) error {
	return PrettyPrint(w, fileName, text, e.span, e.message, ErrorColorer{})
}
