package extender

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/tables"
)

// countryDoc has a reconciled country column and two rows.
func countryDoc(t *testing.T) *tables.Document {
	t.Helper()
	doc := tables.NewDocument()
	doc.Table.ID = "t1"
	doc.Table.Name = "countries"
	doc.Columns.Set("country", &tables.Column{
		ID:     "country",
		Label:  "country",
		Status: tables.StatusReconciliated,
		Metadata: []tables.Candidate{{
			ID:    "None:",
			Match: true,
			Entity: []tables.Candidate{
				{ID: "wd:Q183", Name: tables.Name{Value: "Germany"}},
			},
		}},
	})
	for _, id := range []string{"r1", "r2"} {
		row := &tables.Row{ID: id, Cells: tables.NewOrderedMap[*tables.Cell]()}
		row.Cells.Set("country", &tables.Cell{
			ID:       tables.CellID(id, "country"),
			Label:    "Germany",
			Metadata: []tables.Candidate{{ID: "wd:Q183", Score: 90, Match: true}},
		})
		doc.Rows.Set(id, row)
	}
	doc.RefreshCounts()
	return doc
}

func patchColumns(patches map[string]*ColumnPatch, order ...string) *tables.OrderedMap[*ColumnPatch] {
	m := tables.NewOrderedMap[*ColumnPatch]()
	for _, name := range order {
		m.Set(name, patches[name])
	}
	return m
}

func cellPatches(patches map[string]*CellPatch, order ...string) *tables.OrderedMap[*CellPatch] {
	m := tables.NewOrderedMap[*CellPatch]()
	for _, id := range order {
		m.Set(id, patches[id])
	}
	return m
}

func TestComposeEntityColumn(t *testing.T) {
	doc := countryDoc(t)
	resp := &Response{
		Columns: patchColumns(map[string]*ColumnPatch{
			"capital": {
				Label:    "capital",
				Metadata: []tables.Candidate{{ID: "P36", Name: tables.Name{Value: "capital"}}},
				Cells: cellPatches(map[string]*CellPatch{
					"r1": {Label: "Berlin", Metadata: []tables.Candidate{{ID: "wd:Q64", Score: 80, Match: true}}},
					"r2": {Label: "Berlin", Metadata: []tables.Candidate{{ID: "wd:Q64", Match: true}}},
				}, "r1", "r2"),
			},
		}, "capital"),
	}

	merged, err := Compose(context.Background(), doc, resp)
	require.NoError(t, err)

	col := merged.Column("capital")
	require.NotNil(t, col)
	assert.Equal(t, tables.StatusReconciliated, col.Status)
	require.Contains(t, col.Context, "wd")
	assert.Equal(t, 2, col.Context["wd"].Total)
	assert.Equal(t, 2, col.Context["wd"].Reconciliated)

	cell := merged.Row("r1").Cell("capital")
	require.NotNil(t, cell)
	assert.Equal(t, "r1$capital", cell.ID)
	assert.Equal(t, "wd:Q64", cell.Metadata[0].ID)
	assert.True(t, cell.AnnotationMeta.Annotated)
	assert.Equal(t, "reconciliator", cell.AnnotationMeta.Match.Reason)
	assert.Equal(t, tables.Score(80), *cell.AnnotationMeta.LowestScore)

	// Counts follow the extended shape.
	assert.Equal(t, 2, merged.Table.NCols)
	assert.Equal(t, 4, merged.Table.NCells)
	assert.NotEmpty(t, merged.Table.LastModifiedDate)
}

func TestComposeLiteralColumnStaysEmpty(t *testing.T) {
	doc := countryDoc(t)
	resp := &Response{
		Columns: patchColumns(map[string]*ColumnPatch{
			"population": {
				Label: "population",
				Cells: cellPatches(map[string]*CellPatch{
					"r1": {Label: "83240000"},
					"r2": {Label: "83240000"},
				}, "r1", "r2"),
			},
		}, "population"),
	}

	merged, err := Compose(context.Background(), doc, resp)
	require.NoError(t, err)

	col := merged.Column("population")
	assert.Equal(t, tables.StatusEmpty, col.Status)
	assert.Empty(t, col.Context)

	merged.Rows.Range(func(_ string, row *tables.Row) bool {
		cell := row.Cell("population")
		require.NotNil(t, cell)
		assert.Empty(t, cell.Metadata)
		assert.False(t, cell.AnnotationMeta.Annotated)
		assert.False(t, cell.AnnotationMeta.Match.Value)
		return true
	})
}

func TestComposeMixedColumnAnyCellCounts(t *testing.T) {
	doc := countryDoc(t)
	resp := &Response{
		Columns: patchColumns(map[string]*ColumnPatch{
			"head": {
				Label: "head of state",
				Cells: cellPatches(map[string]*CellPatch{
					"r1": {Label: "literal value"},
					"r2": {Label: "Frank-Walter Steinmeier", Metadata: []tables.Candidate{{ID: "wd:Q1585", Match: true}}},
				}, "r1", "r2"),
			},
		}, "head"),
	}

	merged, err := Compose(context.Background(), doc, resp)
	require.NoError(t, err)

	// One entity cell is enough to mark the whole column reconciled.
	col := merged.Column("head")
	assert.Equal(t, tables.StatusReconciliated, col.Status)
	assert.Equal(t, 2, col.Context["wd"].Total)
	assert.Equal(t, 1, col.Context["wd"].Reconciliated)

	// The literal cell itself still is not annotated.
	assert.False(t, merged.Row("r1").Cell("head").AnnotationMeta.Annotated)
	// Entity cell without scores falls back to the 100 default.
	meta := merged.Row("r2").Cell("head").AnnotationMeta
	assert.Equal(t, tables.Score(100), *meta.LowestScore)
	assert.Equal(t, tables.Score(100), *meta.HighestScore)
}

func TestComposePropertyBackLinks(t *testing.T) {
	doc := countryDoc(t)
	resp := &Response{
		Columns: patchColumns(map[string]*ColumnPatch{
			"capital": {
				Label:    "capital",
				Metadata: []tables.Candidate{{ID: "P36", Name: tables.Name{Value: "capital"}}},
				Cells: cellPatches(map[string]*CellPatch{
					"r1": {Label: "Berlin", Metadata: []tables.Candidate{{ID: "wd:Q64", Match: true}}},
				}, "r1"),
			},
		}, "capital"),
		OriginalColMeta: &OriginalColMeta{
			OriginalColName: "country",
			Properties:      []Property{{ID: "P36", Name: "capital"}, {ID: "P9999", Name: "unmapped"}},
		},
	}

	merged, err := Compose(context.Background(), doc, resp)
	require.NoError(t, err)

	col := merged.Column("country")
	assert.Equal(t, tables.KindEntity, col.Kind)
	require.Len(t, col.Metadata[0].Property, 1)
	link := col.Metadata[0].Property[0]
	assert.Equal(t, "P36", link.ID)
	assert.Equal(t, "capital", link.Obj)
	assert.Equal(t, "capital", link.Name)
	assert.True(t, link.Match)
	assert.Equal(t, tables.Score(1), link.Score)
}

func TestComposeMetaAndStaleRows(t *testing.T) {
	doc := countryDoc(t)
	resp := &Response{
		Meta: map[string]any{"externalId": "abc-123"},
		Columns: patchColumns(map[string]*ColumnPatch{
			"capital": {
				Label: "capital",
				Cells: cellPatches(map[string]*CellPatch{
					"r1":    {Label: "Berlin", Metadata: []tables.Candidate{{ID: "wd:Q64", Match: true}}},
					"ghost": {Label: "Nowhere"},
				}, "r1", "ghost"),
			},
		}, "capital"),
	}

	merged, err := Compose(context.Background(), doc, resp)
	require.NoError(t, err)

	assert.Equal(t, "abc-123", merged.Table.Extra["externalId"])
	assert.Nil(t, merged.Row("ghost"))
	assert.Equal(t, 2, merged.Rows.Len())
}

func TestComposeDoesNotMutateInput(t *testing.T) {
	doc := countryDoc(t)
	before, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = Compose(context.Background(), doc, &Response{
		Columns: patchColumns(map[string]*ColumnPatch{
			"capital": {
				Label: "capital",
				Cells: cellPatches(map[string]*CellPatch{
					"r1": {Label: "Berlin", Metadata: []tables.Candidate{{ID: "wd:Q64", Match: true}}},
				}, "r1"),
			},
		}, "capital"),
		OriginalColMeta: &OriginalColMeta{OriginalColName: "country", Properties: []Property{{ID: "P36"}}},
	})
	require.NoError(t, err)

	after, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestComposeValidation(t *testing.T) {
	doc := countryDoc(t)

	_, err := Compose(context.Background(), nil, &Response{})
	assert.True(t, errors.IsValidation(err))

	_, err = Compose(context.Background(), doc, nil)
	assert.True(t, errors.IsValidation(err))

	_, err = Compose(context.Background(), doc, &Response{Columns: tables.NewOrderedMap[*ColumnPatch]()})
	assert.True(t, errors.IsValidation(err))
}

func TestResponseDecode(t *testing.T) {
	raw := `{
		"columns": {
			"capital": {
				"label": "capital",
				"metadata": [{"id": "P36", "name": "capital"}],
				"cells": {
					"r1": {"label": "Berlin", "metadata": [{"id": "wd:Q64", "score": "77", "match": true}]}
				}
			}
		},
		"meta": {"source": "sparql"},
		"originalColMeta": {"originalColName": "country", "properties": [{"id": "P36", "name": "capital"}]}
	}`

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	patch, ok := resp.Columns.Get("capital")
	require.True(t, ok)
	assert.Equal(t, "capital", patch.Label)
	cell, ok := patch.Cells.Get("r1")
	require.True(t, ok)
	// String-encoded score and bare-string name are absorbed on decode.
	assert.Equal(t, tables.Score(77), cell.Metadata[0].Score)
	assert.Equal(t, "capital", patch.Metadata[0].Name.Value)
	require.NotNil(t, resp.OriginalColMeta)
	assert.Equal(t, "country", resp.OriginalColMeta.OriginalColName)
}

func TestComposeUnscoredEntityGetsDefaultScore(t *testing.T) {
	raw := `{
		"columns": {
			"country_P35": {
				"label": "head of state",
				"metadata": [],
				"cells": {
					"r1": {"label": "Frank-Walter Steinmeier", "metadata": [{"id": "wd:Q1585", "match": true}]}
				}
			}
		}
	}`

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))

	merged, err := Compose(context.Background(), countryDoc(t), &resp)
	require.NoError(t, err)

	// No candidate carried a score, so the 100 default applies.
	meta := merged.Row("r1").Cell("country_P35").AnnotationMeta
	require.NotNil(t, meta)
	assert.True(t, meta.Annotated)
	assert.Equal(t, tables.Score(100), *meta.LowestScore)
	assert.Equal(t, tables.Score(100), *meta.HighestScore)
}

func TestSuggestionsTop(t *testing.T) {
	s := &Suggestions{Data: []Suggestion{
		{ID: "P17", Label: "country", Percentage: 99.95, Count: 40},
		{ID: "P36", Label: "capital", Percentage: 33.333, Count: 12},
		{ID: "P625", Label: "coordinates", Percentage: 88.88, Count: 35},
	}}

	// Service order wins, even when counts would rank differently.
	top := s.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, "P17", top[0].ID)
	assert.Equal(t, 100.0, top[0].Percentage)
	assert.Equal(t, "P36", top[1].ID)
	assert.Equal(t, 33.3, top[1].Percentage)

	assert.Equal(t, []string{"P17", "P36", "P625"}, s.PropertyIDs())
	assert.Len(t, s.Top(0), 3)
}
