package semtab

import (
	"context"
	"io"
	"net/url"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/payload"
	"github.com/tablab/semtab/pkg/tables"
)

// Dataset describes a dataset owned by the authenticated user.
type Dataset struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	NTables          int    `json:"nTables,omitempty"`
	LastModifiedDate string `json:"lastModifiedDate,omitempty"`
}

// TableInfo describes a table inside a dataset, without its contents.
type TableInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	NCols            int    `json:"nCols,omitempty"`
	NRows            int    `json:"nRows,omitempty"`
	LastModifiedDate string `json:"lastModifiedDate,omitempty"`
}

// collection is the backend's list envelope.
type collection[T any] struct {
	Collection []T            `json:"collection"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// ExportFormat selects the representation of an exported table.
type ExportFormat string

// Export formats accepted by the backend.
const (
	ExportCSV ExportFormat = "csv"
	ExportW3C ExportFormat = "w3c"
)

// Datasets lists the datasets of the authenticated user.
func (c *Client) Datasets(ctx context.Context) ([]Dataset, error) {
	ctx = c.context(ctx)

	var out collection[Dataset]
	if err := c.api.GetJSON(ctx, "dataset", nil, &out); err != nil {
		return nil, err
	}
	return out.Collection, nil
}

// Tables lists the tables in a dataset.
func (c *Client) Tables(ctx context.Context, datasetID string) ([]TableInfo, error) {
	ctx = c.context(ctx)
	if datasetID == "" {
		return nil, errors.NewValidationError("datasetID", datasetID, "dataset id is required")
	}

	var out collection[TableInfo]
	if err := c.api.GetJSON(ctx, "dataset/"+datasetID+"/table", nil, &out); err != nil {
		return nil, err
	}
	return out.Collection, nil
}

// Table fetches a table document. The backend response may be the flat
// document shape or the normalized payload shape; both decode into the
// same document. The dataset and table ids are stamped onto the result.
func (c *Client) Table(ctx context.Context, datasetID, tableID string) (*tables.Document, error) {
	ctx = c.context(ctx)
	if err := requireIDs(datasetID, tableID); err != nil {
		return nil, err
	}

	endpoint := "dataset/" + datasetID + "/table/" + tableID
	body, err := c.api.GetRaw(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	doc, err := payload.DecodeDocument(body)
	if err != nil {
		return nil, err
	}
	doc.Table.ID = tableID
	doc.Table.DatasetID = datasetID
	return doc, nil
}

// AddTable uploads a CSV stream as a new table in the dataset and
// returns the id the backend assigned to it.
func (c *Client) AddTable(ctx context.Context, datasetID, name string, csv io.Reader) (string, error) {
	ctx = c.context(ctx)
	if datasetID == "" {
		return "", errors.NewValidationError("datasetID", datasetID, "dataset id is required")
	}
	if name == "" {
		return "", errors.NewValidationError("name", name, "table name is required")
	}
	if csv == nil {
		return "", errors.NewValidationError("csv", nil, "csv data is required")
	}

	endpoint := "dataset/" + datasetID + "/table"
	var out struct {
		Tables []TableInfo `json:"tables"`
	}
	err := c.api.Upload(ctx, endpoint, "file", name+".csv", csv, map[string]string{"name": name}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Tables) == 0 || out.Tables[0].ID == "" {
		return "", &errors.SchemaError{Item: "upload response", Message: "no table id returned"}
	}
	return out.Tables[0].ID, nil
}

// DeleteTable removes a table from a dataset.
func (c *Client) DeleteTable(ctx context.Context, datasetID, tableID string) error {
	ctx = c.context(ctx)
	if err := requireIDs(datasetID, tableID); err != nil {
		return err
	}
	return c.api.Delete(ctx, "dataset/"+datasetID+"/table/"+tableID)
}

// Export downloads a table in the given format. csv returns the raw CSV
// text, w3c the W3C-shaped JSON document.
func (c *Client) Export(ctx context.Context, datasetID, tableID string, format ExportFormat) ([]byte, error) {
	ctx = c.context(ctx)
	if err := requireIDs(datasetID, tableID); err != nil {
		return nil, err
	}
	if format != ExportCSV && format != ExportW3C {
		return nil, errors.NewValidationError("format", format, `format must be "csv" or "w3c"`)
	}

	endpoint := "dataset/" + datasetID + "/table/" + tableID + "/export"
	return c.api.GetRaw(ctx, endpoint, url.Values{"format": {string(format)}})
}

// Save pushes a document back to the backend in its normalized payload
// shape. The document must carry the dataset and table ids it was
// fetched with.
func (c *Client) Save(ctx context.Context, doc *tables.Document) (*payload.Payload, error) {
	ctx = c.context(ctx)
	if doc == nil {
		return nil, errors.NewValidationError("document", nil, "document is required")
	}
	if err := requireIDs(doc.Table.DatasetID, doc.Table.ID); err != nil {
		return nil, err
	}

	p, err := payload.Normalize(doc)
	if err != nil {
		return nil, err
	}
	endpoint := "dataset/" + doc.Table.DatasetID + "/table/" + doc.Table.ID
	if err := c.api.PutJSON(ctx, endpoint, p, nil); err != nil {
		return nil, err
	}
	return p, nil
}

func requireIDs(datasetID, tableID string) error {
	if datasetID == "" {
		return errors.NewValidationError("datasetID", datasetID, "dataset id is required")
	}
	if tableID == "" {
		return errors.NewValidationError("tableID", tableID, "table id is required")
	}
	return nil
}
