// Package report renders validation outcomes as Markdown reports.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/afero"

	"github.com/sqlshift/sqlshift/migrate/validate"
)

// Report is the material for one object's validation report.
type Report struct {
	// Validation is the comparator outcome.
	Validation *validate.Validation
	// TranslatedSQL is the target-dialect DDL for the object, shown in the
	// report body.
	TranslatedSQL string
	// Warnings are translation warnings in display form.
	Warnings []string
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	v := r.Validation
	var b strings.Builder

	fmt.Fprintf(&b, "# Validation Report: %s\n\n", v.ObjectName)
	fmt.Fprintf(&b, "**Status:** %s\n\n", statusLine(v))

	b.WriteString("**Test Query:**\n\n")
	b.WriteString("```sql\n")
	b.WriteString(strings.TrimSpace(v.SourceQuery))
	b.WriteString("\n```\n\n")

	b.WriteString("**Result Set:**\n\n")
	writeResultSet(&b, v)

	if r.TranslatedSQL != "" {
		b.WriteString("\n**Translated SQL:**\n\n")
		b.WriteString("```sql\n")
		b.WriteString(strings.TrimSpace(r.TranslatedSQL))
		b.WriteString("\n```\n")
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n**Translation Warnings:**\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if len(v.Diffs) > 0 {
		b.WriteString("\n**Differences:**\n\n")
		writeDiffs(&b, v)
	}

	return b.String()
}

func statusLine(v *validate.Validation) string {
	switch v.Outcome {
	case validate.OutcomeMatch:
		return fmt.Sprintf("PASS: %d rows match", v.SourceRows)
	case validate.OutcomeMismatch:
		if v.Err != nil {
			return fmt.Sprintf("FAIL: %v", v.Err)
		}
		return fmt.Sprintf("FAIL: source returned %d rows, target %d, %d differing cells",
			v.SourceRows, v.TargetRows, len(v.Diffs))
	case validate.OutcomeError:
		return fmt.Sprintf("ERROR: %v", v.Err)
	default:
		return "UNKNOWN"
	}
}

// writeResultSet emits the source result sample as a Markdown table.
func writeResultSet(b *strings.Builder, v *validate.Validation) {
	if len(v.Columns) == 0 {
		b.WriteString("_no result set_\n")
		return
	}

	writeRow(b, v.Columns)
	sep := make([]string, len(v.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(b, sep)
	for _, row := range v.SourceSample {
		writeRow(b, row)
	}
	if v.SourceRows > len(v.SourceSample) {
		fmt.Fprintf(b, "\n_%d of %d rows shown_\n", len(v.SourceSample), v.SourceRows)
	}
}

func writeDiffs(b *strings.Builder, v *validate.Validation) {
	writeRow(b, []string{"row", "column", "source", "target"})
	writeRow(b, []string{"---", "---", "---", "---"})
	for _, d := range v.Diffs {
		writeRow(b, []string{fmt.Sprintf("%d", d.Row), d.Column, d.SourceValue, d.TargetValue})
	}
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// escapeCell keeps cell content from breaking the table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	if s == "" {
		return " "
	}
	return s
}

// FileName returns the report file name for an object.
func FileName(objectName string) string {
	name := strings.NewReplacer(".", "_", "/", "_", "\\", "_", " ", "_").Replace(objectName)
	return name + ".md"
}

// Write renders the report and writes it under dir, creating the directory
// when needed. It returns the written path.
func Write(fs afero.Fs, dir string, r *Report) (string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(r.Validation.ObjectName))
	if err := afero.WriteFile(fs, path, []byte(r.Markdown()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Render returns the report styled for terminal display.
func Render(markdown string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(markdown)
}
