// Package reconciler merges reconciliation service responses into a table
// document. The merge never runs on a failed exchange: callers hand in the
// original document plus the parsed result list, and get back a new
// document with candidates, annotation metadata and counters in place. The
// input document is never mutated.
package reconciler

import (
	"context"
	"time"

	"github.com/tablab/semtab/pkg/entities"
	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/logging"
	"github.com/tablab/semtab/pkg/services"
	"github.com/tablab/semtab/pkg/tables"
)

// MatchReasonReconciliator marks annotations produced by a reconciliation
// service, as opposed to manual type propagation.
const MatchReasonReconciliator = "reconciliator"

// Compose merges a reconciliator's results for column into a deep copy of
// doc and returns the new document. The service identifier selects the
// namespace tag, display URIs and column-metadata shaping only; it never
// changes the merge algorithm. Result items referencing rows or cells
// absent from the document are logged and skipped.
func Compose(ctx context.Context, doc *tables.Document, results []Result, column string, svc services.ID) (*tables.Document, error) {
	logger := logging.FromContext(ctx)

	if doc == nil {
		return nil, &errors.ValidationError{Field: "document", Message: "document is required"}
	}
	if doc.Column(column) == nil {
		return nil, &errors.ValidationError{Field: "column", Value: column, Message: "column not found in document"}
	}
	desc, err := services.Reconciliator(svc)
	if err != nil {
		return nil, err
	}

	merged := doc.Clone()
	merged.Table.LastModifiedDate = tables.Timestamp(time.Now())

	col := merged.Column(column)
	col.Status = tables.StatusReconciliated
	col.Kind = tables.KindEntity

	cellResults := 0
	for _, item := range results {
		if !item.IsColumn(column) {
			cellResults++
		}
	}
	tag, uri := services.Namespace(svc)
	col.Context = map[string]*tables.Context{
		tag: {URI: uri, Total: cellResults, Reconciliated: cellResults},
	}

	// Column score range starts at the service default and is replaced by
	// the observed cell range below.
	col.AnnotationMeta = &tables.AnnotationMeta{
		Annotated: true,
		Match:     tables.Match{Value: true},
	}
	col.AnnotationMeta.SetScores(1, 1)

	var scores []float64
	for _, item := range results {
		if item.IsColumn(column) {
			if len(item.Metadata) > 0 {
				col.Metadata = columnMetadata(item.Metadata, desc.Merge)
			}
			continue
		}

		rowID, cellColumn, ok := tables.SplitCellID(item.ID)
		if !ok {
			logger.Warn().
				Str("item", item.ID).
				Str("column", column).
				Msg("Result id has no cell separator, skipping")
			continue
		}
		cell := merged.Row(rowID).Cell(cellColumn)
		if cell == nil {
			logger.Warn().
				Str("item", item.ID).
				Str("row", rowID).
				Msg("Result references a row or cell absent from the document, skipping")
			continue
		}

		if len(item.Metadata) == 0 {
			// Reconciliation ran and found nothing: annotated, unmatched,
			// zero score range. Distinct from a never-attempted cell.
			cell.AnnotationMeta = &tables.AnnotationMeta{Annotated: true}
			cell.AnnotationMeta.SetScores(0, 0)
			scores = append(scores, 0)
			continue
		}

		cell.Metadata = enrichCandidates(item.Metadata)
		lowest, highest, _ := tables.BestScore(cell.Metadata)
		meta := &tables.AnnotationMeta{Annotated: true}
		if tables.AnyMatch(cell.Metadata) {
			meta.Match = tables.Match{Value: true, Reason: MatchReasonReconciliator}
		}
		meta.SetScores(lowest, highest)
		cell.AnnotationMeta = meta
		scores = append(scores, lowest, highest)
	}

	if len(scores) > 0 {
		lowest, highest := scores[0], scores[0]
		for _, s := range scores[1:] {
			if s < lowest {
				lowest = s
			}
			if s > highest {
				highest = s
			}
		}
		col.AnnotationMeta.SetScores(lowest, highest)
	}

	merged.Table.NCellsReconciliated = merged.AnnotatedCellCount()
	return merged, nil
}

// columnMetadata shapes raw column-level candidates under a synthetic
// root descriptor. The entity-linking family lifts type and property
// information from the first candidate onto the root; geocoding families
// keep the root bare.
func columnMetadata(raw []tables.Candidate, style services.MergeStyle) []tables.Candidate {
	root := tables.Candidate{
		ID:     "None:",
		Match:  true,
		Entity: enrichCandidates(raw),
	}
	if style == services.MergeEntityLinking && len(raw) > 0 {
		root.Type = raw[0].Type
		root.Property = raw[0].Property
	}
	return []tables.Candidate{root}
}

// enrichCandidates deep-copies a candidate list and recomputes each
// display URI from the namespaced id.
func enrichCandidates(raw []tables.Candidate) []tables.Candidate {
	out := tables.CloneCandidates(raw)
	for i := range out {
		out[i].Name.URI = services.DisplayURI(out[i].ID)
	}
	return out
}

// Entities extracts the accepted candidate of every reconciled cell in
// column, normalized to the wd: prefix. Used to ask the suggestion
// service which properties are worth extending.
func Entities(doc *tables.Document, column string) []tables.Candidate {
	var out []tables.Candidate
	if doc == nil {
		return out
	}
	doc.Rows.Range(func(_ string, row *tables.Row) bool {
		cell := row.Cell(column)
		if cell == nil || !entities.MetadataIsEntity(cell.Metadata) {
			return true
		}
		c := cell.Metadata[0].Clone()
		c.ID = entities.NormalizeWikidataID(c.ID)
		out = append(out, c)
		return true
	})
	return out
}
