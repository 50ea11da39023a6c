package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/tables"
)

func cityDoc(t *testing.T) *tables.Document {
	t.Helper()
	doc := tables.NewDocument()
	doc.Table.Name = "cities"
	for _, name := range []string{"city", "county", "country"} {
		doc.Columns.Set(name, &tables.Column{ID: name, Label: name, Status: tables.StatusEmpty})
	}
	addRow := func(id, city, county, country string) {
		row := &tables.Row{ID: id, Cells: tables.NewOrderedMap[*tables.Cell]()}
		row.Cells.Set("city", &tables.Cell{ID: tables.CellID(id, "city"), Label: city})
		row.Cells.Set("county", &tables.Cell{ID: tables.CellID(id, "county"), Label: county})
		row.Cells.Set("country", &tables.Cell{ID: tables.CellID(id, "country"), Label: country})
		doc.Rows.Set(id, row)
	}
	addRow("r1", "Paris", "Ile-de-France", "France")
	addRow("r2", "Turin", "Piedmont", "Italy")
	return doc
}

func TestPrepareReconciliationPlain(t *testing.T) {
	doc := cityDoc(t)
	req, err := PrepareReconciliation(doc, "city", Wikidata, nil)
	require.NoError(t, err)

	assert.Equal(t, "wikidataOpenRefine", req.ServiceID)
	require.Len(t, req.Items, 3)
	assert.Equal(t, Item{ID: "city", Label: "city"}, req.Items[0])
	assert.Equal(t, Item{ID: "r1$city", Label: "Paris"}, req.Items[1])
	assert.Equal(t, Item{ID: "r2$city", Label: "Turin"}, req.Items[2])

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "secondPart")
	assert.NotContains(t, string(body), "additionalColumns")
}

func TestPrepareReconciliationSecondThird(t *testing.T) {
	doc := cityDoc(t)
	req, err := PrepareReconciliation(doc, "city", GeocodingHere, []string{"county", "country"})
	require.NoError(t, err)

	assert.Equal(t, AuxValue{Value: "Ile-de-France", Column: "county"}, req.SecondPart["r1"])
	assert.Equal(t, AuxValue{Value: "Italy", Column: "country"}, req.ThirdPart["r2"])
}

func TestPrepareReconciliationEmptyPartsStillOnWire(t *testing.T) {
	doc := cityDoc(t)
	req, err := PrepareReconciliation(doc, "city", Geonames, nil)
	require.NoError(t, err)
	require.Empty(t, req.SecondPart)

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"secondPart":{}`)
	assert.Contains(t, string(body), `"thirdPart":{}`)
}

func TestPrepareReconciliationAdditionalColumns(t *testing.T) {
	doc := cityDoc(t)
	req, err := PrepareReconciliation(doc, "city", GeocodingGeonames, []string{"county", "country"})
	require.NoError(t, err)

	require.Contains(t, req.AdditionalColumns, "county")
	require.Contains(t, req.AdditionalColumns, "country")
	assert.Equal(t, AuxValue{Value: "Piedmont", Column: "county"}, req.AdditionalColumns["county"]["r2"])

	// A single auxiliary column is not enough to build the structure.
	req, err = PrepareReconciliation(doc, "city", GeocodingGeonames, []string{"county"})
	require.NoError(t, err)
	assert.Nil(t, req.AdditionalColumns)
}

func TestPrepareReconciliationValidation(t *testing.T) {
	doc := cityDoc(t)

	_, err := PrepareReconciliation(doc, "altitude", Wikidata, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = PrepareReconciliation(doc, "city", "mystery", nil)
	require.Error(t, err)
	assert.True(t, errors.IsUnknownService(err))

	_, err = PrepareReconciliation(nil, "city", Wikidata, nil)
	assert.True(t, errors.IsValidation(err))
}

func TestAuxValueRoundTrip(t *testing.T) {
	v := AuxValue{
		Value:    "Paris",
		Metadata: []tables.Candidate{{ID: "wd:Q90", Match: true}},
		Column:   "city",
	}
	body, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded AuxValue
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "Paris", decoded.Value)
	assert.Equal(t, "city", decoded.Column)
	require.Len(t, decoded.Metadata, 1)
	assert.Equal(t, "wd:Q90", decoded.Metadata[0].ID)

	// Empty metadata serializes as a list, not null.
	body, err = json.Marshal(AuxValue{Value: "x", Column: "c"})
	require.NoError(t, err)
	assert.JSONEq(t, `["x",[],"c"]`, string(body))
}
