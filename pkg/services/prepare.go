package services

import (
	"encoding/json"
	"fmt"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/tables"
)

// Item is one entry of a reconciliation request's items list. The first
// item always names the column itself; the rest carry one cell label per
// row, keyed "{row}${column}".
type Item struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AuxValue carries an auxiliary column value on the wire as a
// [value, metadata, column] triple.
type AuxValue struct {
	Value    string
	Metadata []tables.Candidate
	Column   string
}

// MarshalJSON renders the triple as a three-element array. A nil metadata
// slice serializes as [] so the backend always sees a list.
func (v AuxValue) MarshalJSON() ([]byte, error) {
	md := v.Metadata
	if md == nil {
		md = []tables.Candidate{}
	}
	return json.Marshal([]any{v.Value, md, v.Column})
}

// UnmarshalJSON accepts the same three-element array shape.
func (v *AuxValue) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("auxiliary value: expected 3 elements, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &v.Value); err != nil {
		return err
	}
	if err := json.Unmarshal(parts[1], &v.Metadata); err != nil {
		return err
	}
	return json.Unmarshal(parts[2], &v.Column)
}

// ReconciliationRequest is the body POSTed to a reconciliator. SecondPart
// and ThirdPart are present (empty or filled) only for services whose
// shape requires them; AdditionalColumns likewise.
type ReconciliationRequest struct {
	ServiceID         string                         `json:"serviceId"`
	Items             []Item                         `json:"items"`
	SecondPart        map[string]AuxValue            `json:"secondPart,omitzero"`
	ThirdPart         map[string]AuxValue            `json:"thirdPart,omitzero"`
	AdditionalColumns map[string]map[string]AuxValue `json:"additionalColumns,omitzero"`
}

// PrepareReconciliation builds the request body for reconciling column in
// doc against the given service. auxColumns supplies the extra context
// columns some services accept; services that take none ignore it.
func PrepareReconciliation(doc *tables.Document, column string, id ID, auxColumns []string) (*ReconciliationRequest, error) {
	desc, err := Reconciliator(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &errors.ValidationError{Field: "document", Message: "document is required"}
	}
	if doc.Column(column) == nil {
		return nil, &errors.ValidationError{Field: "column", Value: column, Message: "column not found in document"}
	}

	req := &ReconciliationRequest{
		ServiceID: desc.WireID,
		Items:     []Item{{ID: column, Label: column}},
	}
	doc.Rows.Range(func(rowID string, row *tables.Row) bool {
		if cell := row.Cell(column); cell != nil {
			req.Items = append(req.Items, Item{
				ID:    tables.CellID(rowID, column),
				Label: cell.Label,
			})
		}
		return true
	})

	switch desc.Shape {
	case ShapeSecondThird:
		// Both maps ride along even when empty.
		req.SecondPart = map[string]AuxValue{}
		req.ThirdPart = map[string]AuxValue{}
		if len(auxColumns) >= 2 {
			doc.Rows.Range(func(rowID string, row *tables.Row) bool {
				req.SecondPart[rowID] = auxValue(row, auxColumns[0])
				req.ThirdPart[rowID] = auxValue(row, auxColumns[1])
				return true
			})
		}
	case ShapeAdditionalColumns:
		if len(auxColumns) >= 2 {
			req.AdditionalColumns = make(map[string]map[string]AuxValue, len(auxColumns))
			for _, aux := range auxColumns {
				perRow := map[string]AuxValue{}
				doc.Rows.Range(func(rowID string, row *tables.Row) bool {
					perRow[rowID] = auxValue(row, aux)
					return true
				})
				req.AdditionalColumns[aux] = perRow
			}
		}
	}
	return req, nil
}

func auxValue(row *tables.Row, column string) AuxValue {
	v := AuxValue{Column: column}
	if cell := row.Cell(column); cell != nil {
		v.Value = cell.Label
	}
	return v
}
