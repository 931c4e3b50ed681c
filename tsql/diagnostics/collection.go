package diagnostics

import (
	"bytes"
	"fmt"
)

// Diagnostics represents a list of parser or translation errors and warnings.
// It is used to accumulate issues during a pass instead of erroring out early,
// so the user sees every problem in a SQL object at once.
type Diagnostics struct {
	errors   []SQLError
	warnings []SQLWarning
}

// NewDiagnostics creates a new empty Diagnostics collection.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		errors:   make([]SQLError, 0),
		warnings: make([]SQLWarning, 0),
	}
}

// Errors returns all errors in the collection.
func (d *Diagnostics) Errors() []SQLError {
	return d.errors
}

// Warnings returns all warnings in the collection.
func (d *Diagnostics) Warnings() []SQLWarning {
	return d.warnings
}

// PushError adds an error to the collection.
func (d *Diagnostics) PushError(err SQLError) {
	d.errors = append(d.errors, err)
}

// PushWarning adds a warning to the collection.
func (d *Diagnostics) PushWarning(warning SQLWarning) {
	d.warnings = append(d.warnings, warning)
}

// Merge appends all errors and warnings from another collection.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.errors = append(d.errors, other.errors...)
	d.warnings = append(d.warnings, other.warnings...)
}

// HasErrors returns true if there is at least one error in this collection.
func (d *Diagnostics) HasErrors() bool {
	return len(d.errors) > 0
}

// HasWarnings returns true if there is at least one warning in this collection.
func (d *Diagnostics) HasWarnings() bool {
	return len(d.warnings) > 0
}

// ToResult returns an error if there are errors, otherwise returns nil.
func (d *Diagnostics) ToResult() error {
	if d.HasErrors() {
		return fmt.Errorf("translation failed with %d errors", len(d.errors))
	}
	return nil
}

// ToPrettyString formats all errors as a pretty-printed string.
func (d *Diagnostics) ToPrettyString(fileName, sqlText string) string {
	var buf bytes.Buffer
	for _, err := range d.errors {
		_ = err.PrettyPrint(&buf, fileName, sqlText)
	}
	return buf.String()
}

// WarningsToPrettyString formats all warnings as a pretty-printed string.
func (d *Diagnostics) WarningsToPrettyString(fileName, sqlText string) string {
	var buf bytes.Buffer
	for _, warn := range d.warnings {
		_ = warn.PrettyPrint(&buf, fileName, sqlText)
	}
	return buf.String()
}
