package validate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cell is one normalized result value. NULL is tracked separately so it never
// collides with the literal string "NULL".
type cell struct {
	null bool
	text string
}

func (c cell) equal(other cell) bool {
	if c.null || other.null {
		return c.null == other.null
	}
	return c.text == other.text
}

func (c cell) display() string {
	if c.null {
		return "NULL"
	}
	return c.text
}

// resultSet is a fully read, normalized query result.
type resultSet struct {
	columns []string
	rows    [][]cell
}

// sample returns up to n rows in display form. n <= 0 means all rows.
func (s *resultSet) sample(n int) [][]string {
	if n <= 0 || n > len(s.rows) {
		n = len(s.rows)
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(s.rows[i]))
		for j, c := range s.rows[i] {
			row[j] = c.display()
		}
		out[i] = row
	}
	return out
}

// readResultSet executes a query and normalizes every value.
func readResultSet(ctx context.Context, db *sql.DB, query string, opts Options) (*resultSet, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	set := &resultSet{columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make([]cell, len(columns))
		for i, v := range values {
			row[i] = normalize(v, opts)
		}
		set.rows = append(set.rows, row)
	}

	return set, rows.Err()
}

// normalize converts a scanned driver value into comparable text. Drivers
// disagree on concrete Go types for the same SQL value, so everything funnels
// through one representation: booleans and bits become 0/1, timestamps become
// UTC with full precision, floats use the shortest round-trip form.
func normalize(v any, opts Options) cell {
	switch x := v.(type) {
	case nil:
		return cell{null: true}
	case bool:
		if x {
			return cell{text: "1"}
		}
		return cell{text: "0"}
	case int64:
		return cell{text: strconv.FormatInt(x, 10)}
	case float64:
		return cell{text: strconv.FormatFloat(x, 'g', -1, 64)}
	case time.Time:
		return cell{text: x.UTC().Format("2006-01-02 15:04:05.999999999")}
	case []byte:
		return normalizeString(string(x), opts)
	case string:
		return normalizeString(x, opts)
	default:
		return cell{text: fmt.Sprintf("%v", x)}
	}
}

func normalizeString(s string, opts Options) cell {
	if opts.TrimTrailingSpace {
		s = strings.TrimRight(s, " ")
	}
	// Numeric text normalizes through the float path so 1.50 and 1.5 compare
	// equal across drivers that return decimals as strings.
	if f, err := strconv.ParseFloat(s, 64); err == nil && looksNumeric(s) {
		return cell{text: strconv.FormatFloat(f, 'g', -1, 64)}
	}
	return cell{text: s}
}

// looksNumeric keeps the float normalization away from strings that merely
// parse as floats, like "1e5" product codes with surrounding digits trimmed.
func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case (r == '-' || r == '+') && i == 0:
		case r == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}
