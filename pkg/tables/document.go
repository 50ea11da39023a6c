// Package tables defines the table document model shared by every semtab
// operation: the root Document with its scalar metadata, ordered column and
// row collections, per-cell candidate metadata, and annotation bookkeeping.
//
// A Document is owned by the caller. Composers never mutate one in place;
// they clone it, transform the clone, and return it (see Clone).
package tables

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Column status values.
const (
	StatusEmpty         = "empty"
	StatusReconciliated = "reconciliated"
)

// KindEntity marks a column whose accepted values are knowledge-base
// entity references rather than plain literals.
const KindEntity = "entity"

// TimestampLayout is the wire format for table.lastModifiedDate:
// ISO-8601 with millisecond precision and a Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t for the lastModifiedDate field.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Document is the root table entity: scalar metadata plus ordered column
// and row collections.
type Document struct {
	Table   Meta                 `json:"table"`
	Columns *OrderedMap[*Column] `json:"columns"`
	Rows    *OrderedMap[*Row]    `json:"rows"`
}

// NewDocument creates an empty document with initialized collections.
func NewDocument() *Document {
	return &Document{
		Columns: NewOrderedMap[*Column](),
		Rows:    NewOrderedMap[*Row](),
	}
}

// Column returns the named column, or nil if absent.
func (d *Document) Column(name string) *Column {
	if d == nil || d.Columns == nil {
		return nil
	}
	col, _ := d.Columns.Get(name)
	return col
}

// Row returns the row with the given id, or nil if absent.
func (d *Document) Row(id string) *Row {
	if d == nil || d.Rows == nil {
		return nil
	}
	row, _ := d.Rows.Get(id)
	return row
}

// CellCount returns the total number of cells across all rows.
func (d *Document) CellCount() int {
	n := 0
	d.Rows.Range(func(_ string, row *Row) bool {
		n += row.Cells.Len()
		return true
	})
	return n
}

// AnnotatedCellCount returns the number of cells whose annotation metadata
// marks them annotated.
func (d *Document) AnnotatedCellCount() int {
	n := 0
	d.Rows.Range(func(_ string, row *Row) bool {
		row.Cells.Range(func(_ string, cell *Cell) bool {
			if cell.AnnotationMeta != nil && cell.AnnotationMeta.Annotated {
				n++
			}
			return true
		})
		return true
	})
	return n
}

// RefreshCounts recomputes nCols, nRows and nCells from the current
// column and row population.
func (d *Document) RefreshCounts() {
	d.Table.NCols = d.Columns.Len()
	d.Table.NRows = d.Rows.Len()
	d.Table.NCells = d.CellCount()
}

// Meta holds the scalar table metadata. Extension services may attach
// header fields the model does not know about; those round-trip through
// Extra so a merge never drops them.
type Meta struct {
	ID                  string
	DatasetID           string
	Name                string
	NCols               int
	NRows               int
	NCells              int
	NCellsReconciliated int
	LastModifiedDate    string
	MinMetaScore        float64
	MaxMetaScore        float64
	Extra               map[string]any
}

// metaWire mirrors Meta's known fields for JSON round trips.
type metaWire struct {
	ID                  string  `json:"id"`
	DatasetID           string  `json:"idDataset"`
	Name                string  `json:"name"`
	NCols               int     `json:"nCols"`
	NRows               int     `json:"nRows"`
	NCells              int     `json:"nCells"`
	NCellsReconciliated int     `json:"nCellsReconciliated"`
	LastModifiedDate    string  `json:"lastModifiedDate"`
	MinMetaScore        float64 `json:"minMetaScore"`
	MaxMetaScore        float64 `json:"maxMetaScore"`
}

var metaKnownKeys = map[string]bool{
	"id": true, "idDataset": true, "name": true,
	"nCols": true, "nRows": true, "nCells": true,
	"nCellsReconciliated": true, "lastModifiedDate": true,
	"minMetaScore": true, "maxMetaScore": true,
}

// MarshalJSON emits the known fields plus any extra header fields.
func (m Meta) MarshalJSON() ([]byte, error) {
	wire := metaWire{
		ID: m.ID, DatasetID: m.DatasetID, Name: m.Name,
		NCols: m.NCols, NRows: m.NRows, NCells: m.NCells,
		NCellsReconciliated: m.NCellsReconciliated,
		LastModifiedDate:    m.LastModifiedDate,
		MinMetaScore:        m.MinMetaScore, MaxMetaScore: m.MaxMetaScore,
	}
	if len(m.Extra) == 0 {
		return json.Marshal(wire)
	}

	known, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]any, len(m.Extra)+len(metaKnownKeys))
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if !metaKnownKeys[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the known fields and stashes unknown keys in Extra.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var wire metaWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = Meta{
		ID: wire.ID, DatasetID: wire.DatasetID, Name: wire.Name,
		NCols: wire.NCols, NRows: wire.NRows, NCells: wire.NCells,
		NCellsReconciliated: wire.NCellsReconciliated,
		LastModifiedDate:    wire.LastModifiedDate,
		MinMetaScore:        wire.MinMetaScore, MaxMetaScore: wire.MaxMetaScore,
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if metaKnownKeys[k] {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		m.Extra[k] = val
	}
	return nil
}

// Merge applies header fields from an extension response onto the table
// metadata. Known fields are updated in place; everything else lands in
// Extra.
func (m *Meta) Merge(fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "id":
			if s, ok := v.(string); ok {
				m.ID = s
			}
		case "idDataset":
			if s, ok := v.(string); ok {
				m.DatasetID = s
			}
		case "name":
			if s, ok := v.(string); ok {
				m.Name = s
			}
		case "lastModifiedDate":
			if s, ok := v.(string); ok {
				m.LastModifiedDate = s
			}
		case "nCols":
			if n, ok := asInt(v); ok {
				m.NCols = n
			}
		case "nRows":
			if n, ok := asInt(v); ok {
				m.NRows = n
			}
		case "nCells":
			if n, ok := asInt(v); ok {
				m.NCells = n
			}
		case "nCellsReconciliated":
			if n, ok := asInt(v); ok {
				m.NCellsReconciliated = n
			}
		case "minMetaScore":
			if f, ok := asFloat(v); ok {
				m.MinMetaScore = f
			}
		case "maxMetaScore":
			if f, ok := asFloat(v); ok {
				m.MaxMetaScore = f
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Context holds the per-namespace reconciliation counters of a column.
type Context struct {
	URI           string `json:"uri"`
	Total         int    `json:"total"`
	Reconciliated int    `json:"reconciliated"`
}

// Column describes one table column and its column-level annotation state.
type Column struct {
	ID             string              `json:"id"`
	Label          string              `json:"label"`
	Status         string              `json:"status"`
	Context        map[string]*Context `json:"context"`
	Metadata       []Candidate         `json:"metadata"`
	AnnotationMeta *AnnotationMeta     `json:"annotationMeta,omitempty"`
	Kind           string              `json:"kind,omitempty"`
}

// Row is a mapping from column name to cell.
type Row struct {
	ID    string              `json:"id,omitempty"`
	Cells *OrderedMap[*Cell] `json:"cells"`
}

// Cell returns the cell under the given column name, or nil.
func (r *Row) Cell(column string) *Cell {
	if r == nil || r.Cells == nil {
		return nil
	}
	cell, _ := r.Cells.Get(column)
	return cell
}

// Cell is one table cell: a literal label plus the ordered candidate list
// attached by reconciliation or extension. The first candidate is always
// the accepted one.
type Cell struct {
	ID             string          `json:"id"`
	Label          string          `json:"label"`
	Metadata       []Candidate     `json:"metadata"`
	AnnotationMeta *AnnotationMeta `json:"annotationMeta,omitempty"`
}

// AnnotationMeta tracks whether and how a value was matched, and the score
// range observed. Score bounds are pointers so that "no score recorded"
// survives a round trip distinct from an explicit zero.
type AnnotationMeta struct {
	Annotated    bool   `json:"annotated"`
	Match        Match  `json:"match"`
	LowestScore  *Score `json:"lowestScore,omitempty"`
	HighestScore *Score `json:"highestScore,omitempty"`
}

// SetScores sets both score bounds.
func (a *AnnotationMeta) SetScores(lowest, highest float64) {
	lo, hi := Score(lowest), Score(highest)
	a.LowestScore, a.HighestScore = &lo, &hi
}

// Match records the match outcome of an annotation.
type Match struct {
	Value  bool   `json:"value"`
	Reason string `json:"reason,omitempty"`
}

// CellID builds the canonical cell identifier "{rowID}${column}".
func CellID(rowID, column string) string {
	return rowID + "$" + column
}

// SplitCellID splits a result identifier on the first "$" into row id and
// column name. ok is false when the separator is absent.
func SplitCellID(id string) (rowID, column string, ok bool) {
	i := strings.Index(id, "$")
	if i < 0 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

// String implements fmt.Stringer for debugging.
func (d *Document) String() string {
	if d == nil {
		return "<nil document>"
	}
	return fmt.Sprintf("table %q (%d cols, %d rows)", d.Table.Name, d.Columns.Len(), d.Rows.Len())
}
