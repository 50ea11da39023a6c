package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/tables"
)

// Extension request bodies. Each extender family speaks a distinct shape,
// so there is one request type per family rather than a tagged union.

// ReconciledColumnRequest extends a reconciled column with properties of
// its accepted entities.
type ReconciledColumnRequest struct {
	ServiceID string                       `json:"serviceId"`
	Column    map[string]AuxValue          `json:"column"`
	Property  []string                     `json:"property"`
	Items     map[string]map[string]string `json:"items"`
}

// MeteoRequest pulls weather observations keyed by a date column.
type MeteoRequest struct {
	ServiceID     string                       `json:"serviceId"`
	Dates         map[string]AuxValue          `json:"dates"`
	DecimalFormat []string                     `json:"decimalFormat"`
	Items         map[string]map[string]string `json:"items"`
	WeatherParams []string                     `json:"weatherParams"`
}

// SPARQLRequest pulls arbitrary wikidata properties for the accepted
// entities of a reconciled column.
type SPARQLRequest struct {
	ServiceID  string                       `json:"serviceId"`
	Items      map[string]map[string]string `json:"items"`
	Properties string                       `json:"properties"`
}

var extenderEndpoints = map[ID]string{
	ReconciledColumnExt:      "extenders",
	MeteoPropertiesOpenMeteo: "extenders",
	WikidataPropertySPARQL:   "extenders/wikidata/entities",
}

// Extenders returns the declared extension service ids, sorted.
func Extenders() []ID {
	ids := make([]ID, 0, len(extenderEndpoints))
	for id := range extenderEndpoints {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ExtenderEndpoint returns the backend path an extender request is POSTed
// to. The SPARQL extender has a dedicated route; the rest share one.
func ExtenderEndpoint(id ID) (string, error) {
	endpoint, ok := extenderEndpoints[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownService, id)
	}
	return endpoint, nil
}

// PrepareReconciledColumn builds the reconciledColumnExt request. Every
// row contributes its cell triple; only rows with an accepted candidate
// appear in items.
func PrepareReconciledColumn(doc *tables.Document, column string, properties []string) (*ReconciledColumnRequest, error) {
	if err := requireColumn(doc, column); err != nil {
		return nil, err
	}
	if len(properties) == 0 {
		return nil, &errors.ValidationError{Field: "properties", Message: "at least one property is required"}
	}

	req := &ReconciledColumnRequest{
		ServiceID: string(ReconciledColumnExt),
		Column:    map[string]AuxValue{},
		Property:  properties,
		Items:     map[string]map[string]string{column: {}},
	}
	doc.Rows.Range(func(rowID string, row *tables.Row) bool {
		cell := row.Cell(column)
		if cell == nil {
			return true
		}
		req.Column[rowID] = AuxValue{Value: cell.Label, Metadata: cell.Metadata, Column: column}
		if id, ok := acceptedID(cell); ok {
			req.Items[column][rowID] = id
		}
		return true
	})
	return req, nil
}

// PrepareMeteo builds the meteoPropertiesOpenMeteo request. dateColumn and
// decimalFormat are mandatory for this service; every target cell must
// carry an accepted candidate, since the backend resolves coordinates
// from entity ids.
func PrepareMeteo(doc *tables.Document, column string, weatherParams []string, dateColumn, decimalFormat string) (*MeteoRequest, error) {
	if err := requireColumn(doc, column); err != nil {
		return nil, err
	}
	if dateColumn == "" || decimalFormat == "" {
		return nil, &errors.ValidationError{
			Field:   "date_column_name/decimal_format",
			Message: "date column and decimal format are required for the meteo extender",
		}
	}
	if doc.Column(dateColumn) == nil {
		return nil, &errors.ValidationError{Field: "date_column_name", Value: dateColumn, Message: "column not found in document"}
	}

	if weatherParams == nil {
		weatherParams = []string{}
	}
	req := &MeteoRequest{
		ServiceID:     string(MeteoPropertiesOpenMeteo),
		Dates:         map[string]AuxValue{},
		DecimalFormat: []string{decimalFormat},
		Items:         map[string]map[string]string{column: {}},
		WeatherParams: weatherParams,
	}
	var prepErr error
	doc.Rows.Range(func(rowID string, row *tables.Row) bool {
		if cell := row.Cell(dateColumn); cell != nil {
			req.Dates[rowID] = AuxValue{Value: cell.Label, Column: dateColumn}
		}
		cell := row.Cell(column)
		if cell == nil {
			return true
		}
		id, ok := acceptedID(cell)
		if !ok {
			prepErr = &errors.ValidationError{
				Field:   "column",
				Value:   column,
				Message: "cell " + cell.ID + " has no reconciled entity",
			}
			return false
		}
		req.Items[column][rowID] = id
		return true
	})
	if prepErr != nil {
		return nil, prepErr
	}
	return req, nil
}

// PrepareSPARQL builds the wikidataPropertySPARQL request. The target
// column must already be reconciled, and properties is the raw
// space-separated identifier string, e.g. "P625 P131".
func PrepareSPARQL(doc *tables.Document, column string, properties string) (*SPARQLRequest, error) {
	if err := requireColumn(doc, column); err != nil {
		return nil, err
	}
	if strings.TrimSpace(properties) == "" {
		return nil, &errors.ValidationError{
			Field:   "properties",
			Message: `properties must be a space-separated string, e.g. "P625 P131 P373"`,
		}
	}
	if doc.Column(column).Status != tables.StatusReconciliated {
		return nil, fmt.Errorf("%w: %q must be reconciled before property extension", errors.ErrNotReconciled, column)
	}

	req := &SPARQLRequest{
		ServiceID:  string(WikidataPropertySPARQL),
		Items:      map[string]map[string]string{column: {}},
		Properties: properties,
	}
	doc.Rows.Range(func(rowID string, row *tables.Row) bool {
		cell := row.Cell(column)
		if cell == nil {
			return true
		}
		if id, ok := acceptedID(cell); ok {
			req.Items[column][rowID] = id
		}
		return true
	})
	return req, nil
}

func requireColumn(doc *tables.Document, column string) error {
	if doc == nil {
		return &errors.ValidationError{Field: "document", Message: "document is required"}
	}
	if doc.Column(column) == nil {
		return &errors.ValidationError{Field: "column", Value: column, Message: "column not found in document"}
	}
	return nil
}

// acceptedID returns the id of a cell's accepted candidate. The first
// metadata entry is the accepted match by construction.
func acceptedID(cell *tables.Cell) (string, bool) {
	if len(cell.Metadata) == 0 {
		return "", false
	}
	id := cell.Metadata[0].ID
	return id, id != ""
}
