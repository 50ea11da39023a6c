package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tablab/semtab/pkg/tables"
)

func TestIsEntityID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"wd:Q123", true},
		{"wdA:Q123", true},
		{"Q42", true},
		{"https://www.wikidata.org/wiki/Q90", true},
		{"http://example.org/entity/Q1", true},
		{"wd:P31", false},
		{"geo:2988507", false},
		{"geoCoord:45.46,9.18", false},
		{"Q", false},
		{"QA12", false},
		{"", false},
		{"https://www.wikidata.org/wiki/P279", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEntityID(tt.id), "id %q", tt.id)
		})
	}
}

func TestMetadataIsEntity(t *testing.T) {
	assert.False(t, MetadataIsEntity(nil))
	assert.False(t, MetadataIsEntity([]tables.Candidate{}))

	// Only the first candidate decides.
	assert.True(t, MetadataIsEntity([]tables.Candidate{
		{ID: "wd:Q90"},
		{ID: "not-an-entity"},
	}))
	assert.False(t, MetadataIsEntity([]tables.Candidate{
		{ID: "geo:123"},
		{ID: "wd:Q90"},
	}))
}

func TestNormalizeWikidataID(t *testing.T) {
	assert.Equal(t, "wd:Q90", NormalizeWikidataID("wdA:Q90"))
	assert.Equal(t, "wd:Q90", NormalizeWikidataID("wd:Q90"))
	assert.Equal(t, "geo:123", NormalizeWikidataID("geo:123"))
	assert.Empty(t, NormalizeWikidataID(""))
}
