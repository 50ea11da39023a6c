package modifier

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablab/semtab/pkg/errors"
	"github.com/tablab/semtab/pkg/tables"
)

func sampleGrid() *Grid {
	return NewGrid(
		[]string{"city", "country", "visited"},
		[][]string{
			{"Berlin", "Germany", "12/03/2021"},
			{"Munich", "Germany", "2021-04-02"},
			{"Paris", "France", "3 May 2021"},
		},
	)
}

func TestISODate(t *testing.T) {
	g := sampleGrid()
	msg, err := ISODate(g, "visited")
	require.NoError(t, err)
	assert.Contains(t, msg, "converted")
	assert.Equal(t, "2021-03-12", g.Rows[0][2])
	assert.Equal(t, "2021-04-02", g.Rows[1][2])
	assert.Equal(t, "2021-05-03", g.Rows[2][2])

	// Already-formatted column reports and leaves values alone.
	msg, err = ISODate(g, "visited")
	require.NoError(t, err)
	assert.Contains(t, msg, "already")
}

func TestISODateInvalidValue(t *testing.T) {
	g := NewGrid([]string{"d"}, [][]string{{"2021-01-01"}, {"not a date"}})
	_, err := ISODate(g, "d")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.ErrorContains(t, err, "[1]")

	_, err = ISODate(g, "missing")
	assert.True(t, errors.IsValidation(err))
}

func TestLowerCase(t *testing.T) {
	g := sampleGrid()
	require.NoError(t, LowerCase(g, "city"))
	assert.Equal(t, "berlin", g.Rows[0][0])
	assert.Equal(t, "paris", g.Rows[2][0])

	// Mixed types reject the whole transform, leaving the column alone.
	g.Rows[1][0] = 42
	err := LowerCase(g, "city")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "berlin", g.Rows[0][0])
}

func TestDropNA(t *testing.T) {
	g := NewGrid(
		[]string{"a", "b"},
		[][]string{{"1", "x"}, {"", "y"}, {"3", "z"}},
	)
	g.Rows[2][1] = nil
	DropNA(g)
	require.Len(t, g.Rows, 1)
	assert.Equal(t, "1", g.Rows[0][0])
}

func TestRenameColumns(t *testing.T) {
	g := sampleGrid()
	require.NoError(t, RenameColumns(g, map[string]string{"city": "municipality"}))
	assert.Equal(t, []string{"municipality", "country", "visited"}, g.Columns)

	err := RenameColumns(g, map[string]string{"ghost": "x"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestReorderColumns(t *testing.T) {
	g := sampleGrid()
	require.NoError(t, ReorderColumns(g, []string{"country", "city"}))
	assert.Equal(t, []string{"country", "city"}, g.Columns)
	assert.Equal(t, []any{"Germany", "Berlin"}, g.Rows[0])

	err := ReorderColumns(g, []string{"city", "ghost"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestConvertNumeric(t *testing.T) {
	g := NewGrid([]string{"n"}, [][]string{{"1.5"}, {" 2 "}})
	require.NoError(t, ConvertNumeric(g, "n"))
	assert.Equal(t, 1.5, g.Rows[0][0])
	assert.Equal(t, 2.0, g.Rows[1][0])

	g = NewGrid([]string{"n"}, [][]string{{"1"}, {"two"}})
	err := ConvertNumeric(g, "n")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	// Rejected transform leaves values untouched.
	assert.Equal(t, "1", g.Rows[0][0])
}

func TestTypeObjectWire(t *testing.T) {
	raw := `{"originalValue": "Germany", "id": "wd:Q183", "name": "Germany", "score": 100, "match": true}`
	var obj TypeObject
	require.NoError(t, json.Unmarshal([]byte(raw), &obj))
	assert.Equal(t, "Germany", obj.OriginalValue)
	assert.Equal(t, "wd:Q183", obj.Candidate.ID)
	assert.Equal(t, tables.Score(100), obj.Candidate.Score)

	body, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"originalValue":"Germany"`)
	assert.Contains(t, string(body), `"id":"wd:Q183"`)
}

func TestPropagateGrid(t *testing.T) {
	g := sampleGrid()
	obj := &TypeObject{
		OriginalValue: "Germany",
		Candidate:     tables.Candidate{ID: "wd:Q183", Name: tables.Name{Value: "Germany"}},
	}
	msg, err := PropagateGrid(g, "country", obj)
	require.NoError(t, err)
	assert.Contains(t, msg, "2 rows")

	entity, ok := g.Rows[0][1].(tables.Candidate)
	require.True(t, ok)
	assert.Equal(t, "wd:Q183", entity.ID)
	assert.Equal(t, "France", g.Rows[2][1])
}

func germanyDoc(t *testing.T) *tables.Document {
	t.Helper()
	doc := tables.NewDocument()
	doc.Table.ID = "t1"
	doc.Columns.Set("country", &tables.Column{ID: "country", Label: "country"})
	for i, id := range []string{"r1", "r2", "r3"} {
		label := "Germany"
		if i == 2 {
			label = "France"
		}
		row := &tables.Row{ID: id, Cells: tables.NewOrderedMap[*tables.Cell]()}
		row.Cells.Set("country", &tables.Cell{ID: tables.CellID(id, "country"), Label: label})
		doc.Rows.Set(id, row)
	}
	// r1 already carries candidates, including the target id unmatched.
	doc.Row("r1").Cell("country").Metadata = []tables.Candidate{
		{ID: "wd:Q1206", Match: true},
		{ID: "wd:Q183", Match: false},
	}
	return doc
}

func TestPropagateDocument(t *testing.T) {
	doc := germanyDoc(t)
	obj := &TypeObject{
		OriginalValue: "Germany",
		Candidate:     tables.Candidate{ID: "wd:Q183", Name: tables.Name{Value: "Germany"}, Score: 100},
	}

	merged, p, err := PropagateDocument(doc, "country", obj)
	require.NoError(t, err)

	// Existing entry flipped to the single accepted match.
	md := merged.Row("r1").Cell("country").Metadata
	require.Len(t, md, 2)
	assert.False(t, md[0].Match)
	assert.True(t, md[1].Match)

	// Cell without candidates gains the entity.
	md = merged.Row("r2").Cell("country").Metadata
	require.Len(t, md, 1)
	assert.Equal(t, "wd:Q183", md[0].ID)
	assert.True(t, md[0].Match)

	// Non-matching label untouched.
	assert.Empty(t, merged.Row("r3").Cell("country").Metadata)

	for _, id := range []string{"r1", "r2"} {
		meta := merged.Row(id).Cell("country").AnnotationMeta
		require.NotNil(t, meta)
		assert.True(t, meta.Annotated)
		assert.True(t, meta.Match.Value)
		assert.Equal(t, MatchReasonManual, meta.Match.Reason)
	}

	require.NotNil(t, p)
	assert.Equal(t, 2, p.TableInstance.NCellsReconciliated)

	// Input document untouched.
	assert.False(t, doc.Row("r2").Cell("country").Metadata != nil)
	assert.Nil(t, doc.Row("r1").Cell("country").AnnotationMeta)
}

func TestPropagateDocumentValidation(t *testing.T) {
	doc := germanyDoc(t)

	_, _, err := PropagateDocument(doc, "country", &TypeObject{Candidate: tables.Candidate{ID: "wd:Q183"}})
	assert.True(t, errors.IsValidation(err))

	_, _, err = PropagateDocument(doc, "country", &TypeObject{OriginalValue: "Germany"})
	assert.True(t, errors.IsValidation(err))

	_, _, err = PropagateDocument(doc, "ghost", &TypeObject{OriginalValue: "Germany", Candidate: tables.Candidate{ID: "wd:Q183"}})
	assert.True(t, errors.IsValidation(err))

	_, err = PropagateGrid(sampleGrid(), "country", nil)
	assert.True(t, errors.IsValidation(err))
}
