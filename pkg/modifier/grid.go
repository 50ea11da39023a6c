// Package modifier applies local, offline transforms to tabular data:
// grid-level cleanup (date normalization, case folding, column surgery)
// and manual type propagation across matching cells.
package modifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tablab/semtab/pkg/errors"
)

// Grid is a plain tabular view: ordered column names plus value rows.
// Values start out as strings; type propagation may replace one with a
// structured entity.
type Grid struct {
	Columns []string
	Rows    [][]any
}

// NewGrid builds a grid from a header and string rows.
func NewGrid(columns []string, rows [][]string) *Grid {
	g := &Grid{Columns: columns}
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		g.Rows = append(g.Rows, cells)
	}
	return g
}

// ColumnIndex returns the position of the named column, or -1.
func (g *Grid) ColumnIndex(name string) int {
	for i, c := range g.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone deep-copies the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{Columns: append([]string(nil), g.Columns...)}
	for _, row := range g.Rows {
		out.Rows = append(out.Rows, append([]any(nil), row...))
	}
	return out
}

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// dateLayouts are tried in order when normalizing a date column.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
}

// ISODate rewrites every value of the named column to the ISO 8601 date
// form YYYY-MM-DD. A column already in that form is left untouched. A
// value no layout can parse rejects the whole transform.
func ISODate(g *Grid, column string) (string, error) {
	idx := g.ColumnIndex(column)
	if idx < 0 {
		return "", &errors.ValidationError{Field: "column", Value: column, Message: "column not found in grid"}
	}

	formatted := true
	for _, row := range g.Rows {
		if s, ok := row[idx].(string); !ok || !isoDatePattern.MatchString(s) {
			formatted = false
			break
		}
	}
	if formatted {
		return "column already in ISO 8601 (YYYY-MM-DD) format", nil
	}

	var invalid []int
	for i, row := range g.Rows {
		s, ok := row[idx].(string)
		if !ok {
			invalid = append(invalid, i)
			continue
		}
		parsed, ok := parseDate(s)
		if !ok {
			invalid = append(invalid, i)
			continue
		}
		row[idx] = parsed.Format("2006-01-02")
	}
	if len(invalid) > 0 {
		return "", &errors.ValidationError{
			Field:   "column",
			Value:   column,
			Message: fmt.Sprintf("unparseable date values in rows %v", invalid),
		}
	}
	return "date column converted to ISO 8601 format", nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var lowerCaser = cases.Lower(language.Und)

// LowerCase folds every value of the named column to lower case. All
// values must be strings; a mixed-type column rejects the transform.
func LowerCase(g *Grid, column string) error {
	idx := g.ColumnIndex(column)
	if idx < 0 {
		return &errors.ValidationError{Field: "column", Value: column, Message: "column not found in grid"}
	}
	for i, row := range g.Rows {
		if _, ok := row[idx].(string); !ok {
			return &errors.ValidationError{
				Field:   "column",
				Value:   column,
				Message: fmt.Sprintf("row %d holds a non-string value", i),
			}
		}
	}
	for _, row := range g.Rows {
		row[idx] = lowerCaser.String(row[idx].(string))
	}
	return nil
}

// DropNA removes every row with a missing value (nil or empty string).
func DropNA(g *Grid) {
	kept := g.Rows[:0]
	for _, row := range g.Rows {
		missing := false
		for _, v := range row {
			if v == nil {
				missing = true
				break
			}
			if s, ok := v.(string); ok && s == "" {
				missing = true
				break
			}
		}
		if !missing {
			kept = append(kept, row)
		}
	}
	g.Rows = kept
}

// RenameColumns renames columns per the given old-name to new-name map.
// Every key must name an existing column.
func RenameColumns(g *Grid, renames map[string]string) error {
	var missing []string
	for old := range renames {
		if g.ColumnIndex(old) < 0 {
			missing = append(missing, old)
		}
	}
	if len(missing) > 0 {
		return &errors.ValidationError{
			Field:   "columns",
			Value:   strings.Join(missing, ", "),
			Message: "columns not found in grid",
		}
	}
	for i, c := range g.Columns {
		if renamed, ok := renames[c]; ok {
			g.Columns[i] = renamed
		}
	}
	return nil
}

// ReorderColumns rearranges the grid to the given column order. Columns
// left out of the order are dropped. Every named column must exist.
func ReorderColumns(g *Grid, order []string) error {
	indexes := make([]int, 0, len(order))
	var missing []string
	for _, name := range order {
		idx := g.ColumnIndex(name)
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		indexes = append(indexes, idx)
	}
	if len(missing) > 0 {
		return &errors.ValidationError{
			Field:   "columns",
			Value:   strings.Join(missing, ", "),
			Message: "columns not found in grid",
		}
	}

	g.Columns = append([]string(nil), order...)
	for i, row := range g.Rows {
		next := make([]any, len(indexes))
		for j, idx := range indexes {
			next[j] = row[idx]
		}
		g.Rows[i] = next
	}
	return nil
}

// ConvertNumeric parses every value of the named column as a float.
// Mixed content rejects the transform rather than skipping rows.
func ConvertNumeric(g *Grid, column string) error {
	idx := g.ColumnIndex(column)
	if idx < 0 {
		return &errors.ValidationError{Field: "column", Value: column, Message: "column not found in grid"}
	}
	parsed := make([]float64, len(g.Rows))
	for i, row := range g.Rows {
		s, ok := row[idx].(string)
		if !ok {
			return &errors.ValidationError{
				Field:   "column",
				Value:   column,
				Message: fmt.Sprintf("row %d holds a non-string value", i),
			}
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return &errors.ValidationError{
				Field:   "column",
				Value:   column,
				Message: fmt.Sprintf("row %d: %q is not numeric", i, s),
			}
		}
		parsed[i] = f
	}
	for i, row := range g.Rows {
		row[idx] = parsed[i]
	}
	return nil
}
