package reconciler

import (
	"github.com/tablab/semtab/pkg/tables"
)

// Result is one item of a reconciliator response. Its ID is either the
// bare column name (column-level metadata) or "{row}${column}" (one
// cell's candidates).
type Result struct {
	ID       string             `json:"id"`
	Metadata []tables.Candidate `json:"metadata"`
	Score    tables.Score       `json:"score,omitempty"`
}

// IsColumn reports whether the result carries column-level metadata for
// the named column.
func (r Result) IsColumn(column string) bool {
	return r.ID == column
}
