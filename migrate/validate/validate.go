// Package validate compares result sets between the source and target
// databases to verify that a migrated object behaves identically.
package validate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sqlshift/sqlshift/internal/debug"
)

// Outcome classifies a validation run.
type Outcome int

const (
	// OutcomeMatch means both result sets are identical after normalization.
	OutcomeMatch Outcome = iota
	// OutcomeMismatch means the result sets differ.
	OutcomeMismatch
	// OutcomeError means a query failed on either side.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatch:
		return "match"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// Options control result normalization and diff reporting.
type Options struct {
	// TrimTrailingSpace strips trailing spaces before comparing, so CHAR(n)
	// padding differences do not count as mismatches.
	TrimTrailingSpace bool

	// MaxDiffs caps the number of cell differences collected per validation.
	// Zero means no cap.
	MaxDiffs int

	// SampleRows is how many source rows are retained for reporting.
	SampleRows int
}

// DefaultOptions returns the normalization used for typical T-SQL to
// PostgreSQL migrations.
func DefaultOptions() Options {
	return Options{
		TrimTrailingSpace: true,
		MaxDiffs:          20,
		SampleRows:        10,
	}
}

// CellDiff is one differing cell between the two result sets.
type CellDiff struct {
	Row         int
	Column      string
	SourceValue string
	TargetValue string
}

// Validation is the outcome of comparing one object's test query across both
// databases.
type Validation struct {
	ObjectName  string
	SourceQuery string
	TargetQuery string
	Outcome     Outcome
	Columns     []string
	SourceRows  int
	TargetRows  int
	// SourceSample holds up to Options.SampleRows of the source result for
	// reporting, in display form.
	SourceSample [][]string
	Diffs        []CellDiff
	Err          error
	Duration     time.Duration
}

// Ok reports whether the validation passed.
func (v *Validation) Ok() bool {
	return v.Outcome == OutcomeMatch
}

// Comparator runs test queries against the source and target and diffs the
// results.
type Comparator struct {
	source *sql.DB
	target *sql.DB
	opts   Options
}

// NewComparator creates a comparator over open source and target connections.
func NewComparator(source, target *sql.DB, opts Options) *Comparator {
	return &Comparator{source: source, target: target, opts: opts}
}

// Compare runs sourceQuery on the source and targetQuery on the target and
// compares the result sets cell by cell. NULL equals NULL; values are
// normalized before comparison. Rows are compared in result order, so test
// queries need a deterministic ORDER BY.
func (c *Comparator) Compare(ctx context.Context, objectName, sourceQuery, targetQuery string) *Validation {
	started := time.Now()
	v := &Validation{
		ObjectName:  objectName,
		SourceQuery: sourceQuery,
		TargetQuery: targetQuery,
	}

	sourceSet, err := readResultSet(ctx, c.source, sourceQuery, c.opts)
	if err != nil {
		v.Outcome = OutcomeError
		v.Err = fmt.Errorf("source query: %w", err)
		v.Duration = time.Since(started)
		return v
	}

	targetSet, err := readResultSet(ctx, c.target, targetQuery, c.opts)
	if err != nil {
		v.Outcome = OutcomeError
		v.Err = fmt.Errorf("target query: %w", err)
		v.Duration = time.Since(started)
		return v
	}

	v.Columns = sourceSet.columns
	v.SourceRows = len(sourceSet.rows)
	v.TargetRows = len(targetSet.rows)
	v.SourceSample = sourceSet.sample(c.opts.SampleRows)
	c.diff(v, sourceSet, targetSet)
	v.Duration = time.Since(started)

	debug.Debug("validated object", "name", objectName,
		"outcome", v.Outcome.String(),
		"source_rows", v.SourceRows, "target_rows", v.TargetRows,
		"diffs", len(v.Diffs))
	return v
}

// diff fills in the outcome and cell differences.
func (c *Comparator) diff(v *Validation, source, target *resultSet) {
	if len(source.columns) != len(target.columns) {
		v.Outcome = OutcomeMismatch
		v.Err = fmt.Errorf("column count differs: source has %d, target has %d",
			len(source.columns), len(target.columns))
		return
	}

	for i := range source.columns {
		if !strings.EqualFold(source.columns[i], target.columns[i]) {
			v.Outcome = OutcomeMismatch
			v.Err = fmt.Errorf("column %d name differs: source %q, target %q",
				i+1, source.columns[i], target.columns[i])
			return
		}
	}

	mismatch := false
	rows := len(source.rows)
	if len(target.rows) < rows {
		rows = len(target.rows)
	}

	for r := 0; r < rows; r++ {
		for col := range source.columns {
			sc := source.rows[r][col]
			tc := target.rows[r][col]
			if sc.equal(tc) {
				continue
			}
			mismatch = true
			if c.opts.MaxDiffs == 0 || len(v.Diffs) < c.opts.MaxDiffs {
				v.Diffs = append(v.Diffs, CellDiff{
					Row:         r + 1,
					Column:      source.columns[col],
					SourceValue: sc.display(),
					TargetValue: tc.display(),
				})
			}
		}
	}

	if len(source.rows) != len(target.rows) {
		mismatch = true
	}
	if mismatch {
		v.Outcome = OutcomeMismatch
		return
	}
	v.Outcome = OutcomeMatch
}
