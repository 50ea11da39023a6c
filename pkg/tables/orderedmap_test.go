package tables

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap[int]()
	m.Set("zebra", 1)
	m.Set("alpha", 2)
	m.Set("mid", 3)

	assert.Equal(t, []string{"zebra", "alpha", "mid"}, m.Keys())

	// Overwriting keeps position.
	m.Set("alpha", 20)
	assert.Equal(t, []string{"zebra", "alpha", "mid"}, m.Keys())
	v, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestOrderedMapJSONRoundTrip(t *testing.T) {
	input := `{"city":1,"country":2,"a":3}`
	var m OrderedMap[int]
	require.NoError(t, json.Unmarshal([]byte(input), &m))
	assert.Equal(t, []string{"city", "country", "a"}, m.Keys())

	out, err := json.Marshal(&m)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestOrderedMapDelete(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("c", "3")
	m.Delete("b")

	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.False(t, m.Has("b"))
	assert.Equal(t, 2, m.Len())
}

func TestOrderedMapNullInput(t *testing.T) {
	var m OrderedMap[int]
	require.NoError(t, json.Unmarshal([]byte("null"), &m))
	assert.Equal(t, 0, m.Len())
}

func TestOrderedMapNestedValues(t *testing.T) {
	input := `{"r1":{"cells":{"city":{"id":"r1$city","label":"Paris","metadata":[]}}}}`
	var m OrderedMap[*Row]
	require.NoError(t, json.Unmarshal([]byte(input), &m))

	row, ok := m.Get("r1")
	require.True(t, ok)
	cell := row.Cell("city")
	require.NotNil(t, cell)
	assert.Equal(t, "Paris", cell.Label)
}
