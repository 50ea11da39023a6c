// Package semtab is a Go client SDK for a semantic table annotation
// backend. It reconciles table columns against entity reconciliation
// services, extends reconciled columns with external properties, and
// keeps the local table document in sync with the backend.
//
// The high-level flow is: load or fetch a table document, Reconcile a
// column, optionally Extend it, then Save the result back:
//
//	client, err := semtab.New(
//		semtab.WithBaseURL("http://localhost:3003"),
//		semtab.WithCredentials("user", "pass"),
//	)
//	if err != nil {
//		return err
//	}
//	doc, err := client.Table(ctx, datasetID, tableID)
//	if err != nil {
//		return err
//	}
//	doc, _, err = client.Reconcile(ctx, doc, "City", services.Wikidata, nil)
package semtab

import (
	"context"
	"fmt"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/extender"
	"github.com/tablab/semtab/pkg/logging"
	"github.com/tablab/semtab/pkg/payload"
	"github.com/tablab/semtab/pkg/reconciler"
	"github.com/tablab/semtab/pkg/services"
	"github.com/tablab/semtab/pkg/tables"
)

// Reconcile reconciles column in doc against the given service and merges
// the response into a new document. auxColumns supplies extra context
// columns for services that accept them. The input document is never
// mutated. Returns the merged document together with its backend payload;
// on any failure neither is returned.
func (c *Client) Reconcile(ctx context.Context, doc *tables.Document, column string, svc services.ID, auxColumns []string) (*tables.Document, *payload.Payload, error) {
	ctx = c.context(ctx)

	req, err := services.PrepareReconciliation(doc, column, svc, auxColumns)
	if err != nil {
		return nil, nil, err
	}

	var results []reconciler.Result
	if err := c.api.PostJSON(ctx, "reconciliators/"+req.ServiceID, req, &results); err != nil {
		return nil, nil, err
	}

	merged, err := reconciler.Compose(ctx, doc, results, column, svc)
	if err != nil {
		return nil, nil, err
	}
	p, err := payload.Normalize(merged)
	if err != nil {
		return nil, nil, err
	}
	return merged, p, nil
}

// ExtendReconciledColumn extends a reconciled column with the given
// properties through the generic reconciled-column extender.
func (c *Client) ExtendReconciledColumn(ctx context.Context, doc *tables.Document, column string, properties []string) (*tables.Document, *payload.Payload, error) {
	req, err := services.PrepareReconciledColumn(doc, column, properties)
	if err != nil {
		return nil, nil, err
	}
	return c.extend(ctx, doc, services.ReconciledColumnExt, req)
}

// ExtendMeteo extends a geocoded column with Open-Meteo weather
// parameters. dateColumn names the column holding observation dates and
// decimalFormat selects the number format of the returned values.
func (c *Client) ExtendMeteo(ctx context.Context, doc *tables.Document, column string, weatherParams []string, dateColumn, decimalFormat string) (*tables.Document, *payload.Payload, error) {
	req, err := services.PrepareMeteo(doc, column, weatherParams, dateColumn, decimalFormat)
	if err != nil {
		return nil, nil, err
	}
	return c.extend(ctx, doc, services.MeteoPropertiesOpenMeteo, req)
}

// ExtendSPARQL extends a Wikidata-reconciled column through the SPARQL
// property extender. properties is a comma or space separated property
// list as the service expects it.
func (c *Client) ExtendSPARQL(ctx context.Context, doc *tables.Document, column, properties string) (*tables.Document, *payload.Payload, error) {
	req, err := services.PrepareSPARQL(doc, column, properties)
	if err != nil {
		return nil, nil, err
	}
	return c.extend(ctx, doc, services.WikidataPropertySPARQL, req)
}

func (c *Client) extend(ctx context.Context, doc *tables.Document, id services.ID, body any) (*tables.Document, *payload.Payload, error) {
	ctx = c.context(ctx)

	endpoint, err := services.ExtenderEndpoint(id)
	if err != nil {
		return nil, nil, err
	}

	var resp extender.Response
	if err := c.api.PostJSON(ctx, endpoint, body, &resp); err != nil {
		return nil, nil, err
	}

	merged, err := extender.Compose(ctx, doc, &resp)
	if err != nil {
		return nil, nil, err
	}
	p, err := payload.Normalize(merged)
	if err != nil {
		return nil, nil, err
	}
	return merged, p, nil
}

// Suggest asks the backend for Wikidata properties commonly attached to
// the entities a reconciled column matched. The column must hold at least
// one accepted entity candidate.
func (c *Client) Suggest(ctx context.Context, doc *tables.Document, column string) (*extender.Suggestions, error) {
	ctx = c.context(ctx)

	if doc == nil {
		return nil, errors.NewValidationError("document", nil, "document is required")
	}
	entities := reconciler.Entities(doc, column)
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: column %q has no accepted entities", errors.ErrNotReconciled, column)
	}

	var s extender.Suggestions
	if err := c.api.PostJSON(ctx, "suggestion/wikidata", entities, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Reconciliators lists the reconciliation services the backend exposes.
// Entries missing required fields are skipped with a warning.
func (c *Client) Reconciliators(ctx context.Context) ([]services.Info, error) {
	return c.serviceList(ctx, "reconciliators/list")
}

// Extenders lists the extension services the backend exposes.
func (c *Client) Extenders(ctx context.Context) ([]services.Info, error) {
	return c.serviceList(ctx, "extenders/list")
}

func (c *Client) serviceList(ctx context.Context, endpoint string) ([]services.Info, error) {
	ctx = c.context(ctx)

	var raw []services.Info
	if err := c.api.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		return nil, err
	}

	infos := make([]services.Info, 0, len(raw))
	for _, info := range raw {
		if !info.Valid() {
			logging.FromContext(ctx).Warn().
				Str("id", info.ID).
				Str("endpoint", endpoint).
				Msg("Skipping service entry with missing fields")
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}
