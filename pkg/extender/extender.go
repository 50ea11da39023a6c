// Package extender merges extension service responses into a table
// document. An extension response delivers whole new columns; each new
// column is classified as entity-bearing or literal from its cell
// metadata, and property back-links are attached to the column the
// extension was run from.
package extender

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tablab/semtab/pkg/entities"
	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/logging"
	"github.com/tablab/semtab/pkg/services"
	"github.com/tablab/semtab/pkg/tables"
)

// Response is the body returned by an extender: new columns keyed by
// name, optional header fields to fold into the table meta, and an
// optional description of the column the extension originated from.
type Response struct {
	Columns         *tables.OrderedMap[*ColumnPatch] `json:"columns"`
	Meta            map[string]any                   `json:"meta,omitempty"`
	OriginalColMeta *OriginalColMeta                 `json:"originalColMeta,omitempty"`
}

// ColumnPatch is one new column in an extension response.
type ColumnPatch struct {
	Label    string                        `json:"label"`
	Metadata []tables.Candidate            `json:"metadata"`
	Cells    *tables.OrderedMap[*CellPatch] `json:"cells"`
}

// CellPatch is one new cell, keyed by the original row id.
type CellPatch struct {
	Label    string             `json:"label"`
	Metadata []tables.Candidate `json:"metadata"`
}

// OriginalColMeta names the reconciled column an extension ran from and
// the properties it pulled.
type OriginalColMeta struct {
	OriginalColName string     `json:"originalColName"`
	Properties      []Property `json:"properties"`
}

// Property is one produced property reference.
type Property struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// defaultScore stands in when an entity candidate arrives without any
// score, which several extenders do for exact property pulls.
const defaultScore = 100

// Compose merges an extension response into a deep copy of doc and
// returns the new document. Response rows absent from the document are
// skipped: extension responses are keyed by the original row space, and
// a mismatch means the response is stale.
func Compose(ctx context.Context, doc *tables.Document, resp *Response) (*tables.Document, error) {
	logger := logging.FromContext(ctx)

	if doc == nil {
		return nil, &errors.ValidationError{Field: "document", Message: "document is required"}
	}
	if resp == nil || resp.Columns == nil || resp.Columns.Len() == 0 {
		return nil, &errors.ValidationError{Field: "response", Message: "extension response has no columns"}
	}

	merged := doc.Clone()
	merged.Table.LastModifiedDate = tables.Timestamp(time.Now())
	merged.Table.Merge(resp.Meta)

	// Reverse index: property id -> new column name, from each new
	// column's own metadata.
	columnForProperty := map[string]string{}
	resp.Columns.Range(func(name string, patch *ColumnPatch) bool {
		for _, md := range patch.Metadata {
			columnForProperty[md.ID] = name
		}
		return true
	})

	resp.Columns.Range(func(name string, patch *ColumnPatch) bool {
		hasEntities := columnHasEntities(patch)

		col := &tables.Column{
			ID:       name,
			Label:    patch.Label,
			Status:   tables.StatusEmpty,
			Context:  map[string]*tables.Context{},
			Metadata: tables.CloneCandidates(patch.Metadata),
		}
		if hasEntities {
			col.Status = tables.StatusReconciliated
			col.Context = contextFromCells(patch)
		}
		merged.Columns.Set(name, col)

		if patch.Cells == nil {
			return true
		}
		patch.Cells.Range(func(rowID string, cellPatch *CellPatch) bool {
			row := merged.Row(rowID)
			if row == nil {
				logger.Warn().
					Str("row", rowID).
					Str("column", name).
					Msg("Extension response references a row absent from the document, skipping")
				return true
			}
			row.Cells.Set(name, newCell(rowID, name, cellPatch))
			return true
		})
		return true
	})

	if resp.OriginalColMeta != nil {
		linkProperties(logger, merged, resp.OriginalColMeta, columnForProperty)
	}

	merged.RefreshCounts()
	return merged, nil
}

// newCell builds the document cell for one extension cell. Entity cells
// keep their full candidate list; literal cells get no metadata and are
// explicitly not annotated.
func newCell(rowID, column string, patch *CellPatch) *tables.Cell {
	cell := &tables.Cell{
		ID:             tables.CellID(rowID, column),
		Label:          patch.Label,
		AnnotationMeta: &tables.AnnotationMeta{},
	}
	if !entities.MetadataIsEntity(patch.Metadata) {
		return cell
	}

	cell.Metadata = tables.CloneCandidates(patch.Metadata)
	meta := &tables.AnnotationMeta{
		Annotated: true,
		Match:     tables.Match{Value: true, Reason: "reconciliator"},
	}
	if lowest, highest, ok := tables.BestScore(cell.Metadata); ok {
		meta.SetScores(lowest, highest)
	} else {
		meta.SetScores(defaultScore, defaultScore)
	}
	cell.AnnotationMeta = meta
	return cell
}

// columnHasEntities reports whether any cell of the patch carries entity
// metadata. Unlike reconciliation's first-candidate rule this scans every
// cell: an extension column is heterogeneous across rows, so any hit
// counts.
func columnHasEntities(patch *ColumnPatch) bool {
	if patch.Cells == nil {
		return false
	}
	found := false
	patch.Cells.Range(func(_ string, cell *CellPatch) bool {
		if entities.MetadataIsEntity(cell.Metadata) {
			found = true
			return false
		}
		return true
	})
	return found
}

// contextFromCells builds the wd context counters for an entity-bearing
// column.
func contextFromCells(patch *ColumnPatch) map[string]*tables.Context {
	total, reconciled := 0, 0
	if patch.Cells != nil {
		total = patch.Cells.Len()
		patch.Cells.Range(func(_ string, cell *CellPatch) bool {
			if entities.MetadataIsEntity(cell.Metadata) {
				reconciled++
			}
			return true
		})
	}
	return map[string]*tables.Context{
		"wd": {URI: services.WikidataRootURI, Total: total, Reconciliated: reconciled},
	}
}

// linkProperties appends one property back-link per produced property to
// the originating column's accepted metadata descriptor, so a reader can
// later discover which column each property landed in.
func linkProperties(logger *zerolog.Logger, merged *tables.Document, orig *OriginalColMeta, columnForProperty map[string]string) {
	col := merged.Column(orig.OriginalColName)
	if col == nil {
		logger.Warn().
			Str("column", orig.OriginalColName).
			Msg("Original column named by the extension response is absent, skipping property links")
		return
	}
	col.Kind = tables.KindEntity
	if len(col.Metadata) == 0 {
		logger.Warn().
			Str("column", orig.OriginalColName).
			Msg("Original column has no metadata descriptor to attach property links to")
		return
	}
	for _, prop := range orig.Properties {
		target, ok := columnForProperty[prop.ID]
		if !ok {
			continue
		}
		col.Metadata[0].Property = append(col.Metadata[0].Property, tables.PropertyLink{
			ID:    prop.ID,
			Obj:   target,
			Name:  prop.Name,
			Match: true,
			Score: 1,
		})
	}
}
