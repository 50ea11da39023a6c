// Package payload derives the backend persistence payload from a table
// document. The payload is a disposable projection: it is regenerated
// from scratch on every push and never read back.
package payload

import (
	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/tables"
)

// TableInstance is the flattened scalar summary of a table.
type TableInstance struct {
	ID                  string  `json:"id"`
	IDDataset           string  `json:"idDataset"`
	Name                string  `json:"name"`
	NCols               int     `json:"nCols"`
	NRows               int     `json:"nRows"`
	NCells              int     `json:"nCells"`
	NCellsReconciliated int     `json:"nCellsReconciliated"`
	LastModifiedDate    string  `json:"lastModifiedDate"`
	MinMetaScore        float64 `json:"minMetaScore"`
	MaxMetaScore        float64 `json:"maxMetaScore"`
}

// ColumnSet carries the columns keyed by id plus their display order.
// AllIDs[i] must align with the table's column order; the ordered map
// preserves it on the wire.
type ColumnSet struct {
	ByID   *tables.OrderedMap[*tables.Column] `json:"byId"`
	AllIDs []string                           `json:"allIds"`
}

// RowSet carries the rows keyed by id plus their display order.
type RowSet struct {
	ByID   *tables.OrderedMap[*tables.Row] `json:"byId"`
	AllIDs []string                        `json:"allIds"`
}

// Payload is the body pushed to the backend to persist an operation's
// result.
type Payload struct {
	TableInstance TableInstance `json:"tableInstance"`
	Columns       ColumnSet     `json:"columns"`
	Rows          RowSet        `json:"rows"`
}

// Normalize projects a document into its backend payload.
// nCellsReconciliated counts annotated cells; the score range spans every
// recorded annotation score bound, falling back to raw candidate scores
// for annotated cells whose annotation metadata carries no bounds. A
// document with no scores at all gets the empty-but-valid (0, 1) range.
func Normalize(doc *tables.Document) (*Payload, error) {
	if doc == nil {
		return nil, &errors.ValidationError{Field: "document", Message: "document is required"}
	}
	if doc.Columns == nil || doc.Rows == nil {
		return nil, &errors.ValidationError{Field: "document", Message: "document has no columns or rows"}
	}

	var scores []float64
	annotated := 0
	doc.Rows.Range(func(_ string, row *tables.Row) bool {
		row.Cells.Range(func(_ string, cell *tables.Cell) bool {
			meta := cell.AnnotationMeta
			if meta == nil || !meta.Annotated {
				return true
			}
			annotated++
			if meta.LowestScore != nil {
				scores = append(scores, meta.LowestScore.Float())
			}
			if meta.HighestScore != nil {
				scores = append(scores, meta.HighestScore.Float())
			}
			if meta.LowestScore == nil && meta.HighestScore == nil {
				for _, c := range cell.Metadata {
					scores = append(scores, c.Score.Float())
				}
			}
			return true
		})
		return true
	})

	minScore, maxScore := 0.0, 1.0
	if len(scores) > 0 {
		minScore, maxScore = scores[0], scores[0]
		for _, s := range scores[1:] {
			if s < minScore {
				minScore = s
			}
			if s > maxScore {
				maxScore = s
			}
		}
	}

	return &Payload{
		TableInstance: TableInstance{
			ID:                  doc.Table.ID,
			IDDataset:           doc.Table.DatasetID,
			Name:                doc.Table.Name,
			NCols:               doc.Columns.Len(),
			NRows:               doc.Rows.Len(),
			NCells:              doc.CellCount(),
			NCellsReconciliated: annotated,
			LastModifiedDate:    doc.Table.LastModifiedDate,
			MinMetaScore:        minScore,
			MaxMetaScore:        maxScore,
		},
		Columns: ColumnSet{ByID: doc.Columns, AllIDs: doc.Columns.Keys()},
		Rows:    RowSet{ByID: doc.Rows, AllIDs: doc.Rows.Keys()},
	}, nil
}
