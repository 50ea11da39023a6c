// Package entities classifies identifier strings as knowledge-base entity
// references. A value counts as an entity when it carries a Wikidata
// Q-identifier, in any of the encodings the backend services emit:
// "wd:Q123", "wdA:Q123", or a full IRI ending in "/Q123".
package entities

import (
	"regexp"
	"strings"

	"github.com/tablab/semtab/pkg/tables"
)

var qIdentifier = regexp.MustCompile(`^Q\d+$`)

// IsEntityID reports whether id denotes a knowledge-base entity.
// A full IRI is reduced to its last path segment, then one "prefix:"
// namespace segment is stripped; the remainder must be a Q-identifier.
func IsEntityID(id string) bool {
	if id == "" {
		return false
	}

	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		if i := strings.LastIndex(id, "/"); i >= 0 {
			id = id[i+1:]
		}
	}

	if i := strings.Index(id, ":"); i >= 0 {
		id = id[i+1:]
	}

	return qIdentifier.MatchString(id)
}

// MetadataIsEntity reports whether a candidate list describes an entity
// value. Only the first candidate is checked: it is the accepted match and
// determines the cell's classification.
func MetadataIsEntity(candidates []tables.Candidate) bool {
	return len(candidates) > 0 && IsEntityID(candidates[0].ID)
}

// NormalizeWikidataID rewrites the alligator "wdA:" prefix to the standard
// "wd:" form expected by the suggestion service. Other ids pass through
// unchanged.
func NormalizeWikidataID(id string) string {
	if rest, ok := strings.CutPrefix(id, "wdA:"); ok {
		return "wd:" + rest
	}
	return id
}
