package payload

import (
	"encoding/json"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/tables"
)

// DecodeDocument parses any of the document shapes the backend and its
// callers hand around into the canonical in-memory document:
//
//   - the flat document: {table, columns, rows}
//   - the payload shape: {tableInstance, columns: {byId, allIds}, rows: {byId, allIds}}
//   - the nested shape:  {tableInstance, entities: {columns: {byId}, rows: {byId}}}
//
// Composers only ever see the canonical form; this adapter runs once at
// the boundary.
func DecodeDocument(data []byte) (*tables.Document, error) {
	var env struct {
		Table         json.RawMessage `json:"table"`
		TableInstance json.RawMessage `json:"tableInstance"`
		Columns       json.RawMessage `json:"columns"`
		Rows          json.RawMessage `json:"rows"`
		Entities      *struct {
			Columns json.RawMessage `json:"columns"`
			Rows    json.RawMessage `json:"rows"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapParse("json", "document", err)
	}

	doc := tables.NewDocument()

	meta := env.Table
	if meta == nil {
		meta = env.TableInstance
	}
	if meta != nil {
		if err := json.Unmarshal(meta, &doc.Table); err != nil {
			return nil, errors.WrapParse("json", "table", err)
		}
	}

	columns, rows := env.Columns, env.Rows
	if env.Entities != nil {
		columns, rows = env.Entities.Columns, env.Entities.Rows
	}
	if columns == nil || rows == nil {
		return nil, &errors.ValidationError{Field: "document", Message: "no columns/rows section in any recognized shape"}
	}

	if err := decodeSection(columns, doc.Columns); err != nil {
		return nil, errors.WrapParse("json", "columns", err)
	}
	if err := decodeSection(rows, doc.Rows); err != nil {
		return nil, errors.WrapParse("json", "rows", err)
	}
	return doc, nil
}

// decodeSection decodes either a bare ordered mapping or its
// {byId, allIds} wrapper into dst.
func decodeSection[V any](data json.RawMessage, dst *tables.OrderedMap[V]) error {
	var probe struct {
		ByID json.RawMessage `json:"byId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.ByID != nil {
		return json.Unmarshal(probe.ByID, dst)
	}
	return json.Unmarshal(data, dst)
}
