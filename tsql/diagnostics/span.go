// Package diagnostics provides error and warning handling for T-SQL parsing
// and dialect translation.
package diagnostics

// Span represents a byte range in a SQL source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewSpan creates a new span with the given byte offsets.
func NewSpan(start, end int) Span {
	return Span{Start: start, End: end}
}

// EmptySpan creates a new empty span.
func EmptySpan() Span {
	return Span{}
}

// Contains checks if the given position is inside the span (boundaries included).
func (s Span) Contains(position int) bool {
	return position >= s.Start && position <= s.End
}

// Overlaps checks if the given span overlaps with the current span.
func (s Span) Overlaps(other Span) bool {
	return s.Contains(other.Start) || s.Contains(other.End)
}
