package modifier

import (
	"encoding/json"
	"fmt"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/payload"
	"github.com/tablab/semtab/pkg/tables"
)

// MatchReasonManual marks annotations produced by type propagation rather
// than a reconciliation service.
const MatchReasonManual = "manual"

// TypeObject pairs the literal value to look for with the entity that
// should replace or annotate it. On the wire it is one flat object: the
// originalValue key plus the candidate fields.
type TypeObject struct {
	OriginalValue string
	Candidate     tables.Candidate
}

// MarshalJSON flattens the type object into a single JSON object.
func (o TypeObject) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(o.Candidate)
	if err != nil {
		return nil, err
	}
	var flat map[string]any
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, err
	}
	flat["originalValue"] = o.OriginalValue
	return json.Marshal(flat)
}

// UnmarshalJSON splits originalValue out of the flat object.
func (o *TypeObject) UnmarshalJSON(data []byte) error {
	var head struct {
		OriginalValue string `json:"originalValue"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &o.Candidate); err != nil {
		return err
	}
	o.OriginalValue = head.OriginalValue
	return nil
}

func (o *TypeObject) validate(needID bool) error {
	if o == nil {
		return &errors.ValidationError{Field: "type_object", Message: "type object is required"}
	}
	if o.OriginalValue == "" {
		return &errors.ValidationError{Field: "type_object", Message: "originalValue is required"}
	}
	if needID && o.Candidate.ID == "" {
		return &errors.ValidationError{Field: "type_object", Message: "id is required"}
	}
	return nil
}

// PropagateGrid replaces every cell of the column whose value equals the
// type object's originalValue with the entity fields, and reports how
// many rows changed. The grid is modified in place.
func PropagateGrid(g *Grid, column string, obj *TypeObject) (string, error) {
	if err := obj.validate(false); err != nil {
		return "", err
	}
	idx := g.ColumnIndex(column)
	if idx < 0 {
		return "", &errors.ValidationError{Field: "column", Value: column, Message: "column not found in grid"}
	}

	count := 0
	for _, row := range g.Rows {
		if s, ok := row[idx].(string); ok && s == obj.OriginalValue {
			row[idx] = obj.Candidate
			count++
		}
	}
	return fmt.Sprintf("type propagated to %d rows in column %q", count, column), nil
}

// PropagateDocument annotates every cell of the column whose label equals
// the type object's originalValue with the given entity, on a deep copy
// of doc. The propagated candidate becomes the single accepted match of
// each touched cell: an existing candidate with the same id is flipped to
// match, otherwise the entity is appended, and every other candidate is
// forced to match=false. Returns the new document plus its freshly
// derived backend payload.
func PropagateDocument(doc *tables.Document, column string, obj *TypeObject) (*tables.Document, *payload.Payload, error) {
	if err := obj.validate(true); err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, &errors.ValidationError{Field: "document", Message: "document is required"}
	}
	if doc.Column(column) == nil {
		return nil, nil, &errors.ValidationError{Field: "column", Value: column, Message: "column not found in document"}
	}

	merged := doc.Clone()
	merged.Rows.Range(func(_ string, row *tables.Row) bool {
		cell := row.Cell(column)
		if cell == nil || cell.Label != obj.OriginalValue {
			return true
		}

		found := false
		for i := range cell.Metadata {
			if cell.Metadata[i].ID == obj.Candidate.ID {
				cell.Metadata[i].Match = true
				found = true
			} else {
				cell.Metadata[i].Match = false
			}
		}
		if !found {
			c := obj.Candidate.Clone()
			c.Match = true
			cell.Metadata = append(cell.Metadata, c)
		}

		cell.AnnotationMeta = &tables.AnnotationMeta{
			Annotated: true,
			Match:     tables.Match{Value: true, Reason: MatchReasonManual},
		}
		return true
	})

	p, err := payload.Normalize(merged)
	if err != nil {
		return nil, nil, err
	}
	return merged, p, nil
}
