// Package services holds the closed registry of backend service families
// and the per-family request preparers. The registry replaces ad hoc
// string dispatch: every reconciliator and extender the SDK can talk to is
// declared here, with its wire identifier, namespace policy, and request
// shape, and unknown identifiers are an explicit error rather than a
// silent fallthrough.
package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tablab/semtab/pkg/errors"
)

// ID identifies a backend service family.
type ID string

// Reconciliation services.
const (
	Wikidata          ID = "wikidata"
	WikidataAlligator ID = "wikidataAlligator"
	GeocodingGeonames ID = "geocodingGeonames"
	GeocodingHere     ID = "geocodingHere"
	Geonames          ID = "geonames"
)

// Extension services.
const (
	ReconciledColumnExt      ID = "reconciledColumnExt"
	MeteoPropertiesOpenMeteo ID = "meteoPropertiesOpenMeteo"
	WikidataPropertySPARQL   ID = "wikidataPropertySPARQL"
)

// RequestShape selects the side-structure a reconciliation request carries
// beyond the base items list.
type RequestShape int

const (
	// ShapePlain sends serviceId and items only.
	ShapePlain RequestShape = iota
	// ShapeSecondThird sends secondPart/thirdPart maps keyed by row id.
	ShapeSecondThird
	// ShapeAdditionalColumns sends an additionalColumns map keyed by
	// auxiliary column name, then row id.
	ShapeAdditionalColumns
)

// MergeStyle selects how column-level metadata from a response is shaped
// during the merge.
type MergeStyle int

const (
	// MergeGeocoding nests raw candidates under an empty synthetic root.
	MergeGeocoding MergeStyle = iota
	// MergeEntityLinking additionally lifts type and property information
	// from the first candidate onto the synthetic root.
	MergeEntityLinking
)

// Descriptor is one entry of the closed service dispatch table.
type Descriptor struct {
	ID        ID
	WireID    string // serviceId value sent to the backend
	Namespace string // context tag: wd, geoCoord, geo, georss
	BaseURI   string
	Shape     RequestShape
	Merge     MergeStyle
}

// Namespace base URIs.
const (
	WikidataRootURI = "https://www.wikidata.org/wiki/"
	GeonamesRootURI = "https://www.geonames.org/"
	MapsRootURI     = "https://www.google.com/maps/place/"
	GeorssRootURI   = "http://www.google.com/maps/place/"
)

var reconciliators = map[ID]Descriptor{
	Wikidata: {
		ID: Wikidata, WireID: "wikidataOpenRefine",
		Namespace: "wd", BaseURI: WikidataRootURI,
		Shape: ShapePlain, Merge: MergeEntityLinking,
	},
	WikidataAlligator: {
		ID: WikidataAlligator, WireID: "wikidataAlligator",
		Namespace: "wd", BaseURI: WikidataRootURI,
		Shape: ShapeAdditionalColumns, Merge: MergeEntityLinking,
	},
	GeocodingGeonames: {
		ID: GeocodingGeonames, WireID: "geocodingGeonames",
		Namespace: "geoCoord", BaseURI: MapsRootURI,
		Shape: ShapeAdditionalColumns, Merge: MergeGeocoding,
	},
	GeocodingHere: {
		ID: GeocodingHere, WireID: "geocodingHere",
		Namespace: "georss", BaseURI: GeorssRootURI,
		Shape: ShapeSecondThird, Merge: MergeGeocoding,
	},
	Geonames: {
		ID: Geonames, WireID: "geonames",
		Namespace: "geo", BaseURI: GeonamesRootURI,
		Shape: ShapeSecondThird, Merge: MergeGeocoding,
	},
}

// Reconciliator resolves a reconciliation service identifier against the
// dispatch table.
func Reconciliator(id ID) (Descriptor, error) {
	desc, ok := reconciliators[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q (valid reconciliators: %s)",
			errors.ErrUnknownService, id, strings.Join(reconciliatorNames(), ", "))
	}
	return desc, nil
}

// Reconciliators returns the declared reconciliation service ids, sorted.
func Reconciliators() []ID {
	ids := make([]ID, 0, len(reconciliators))
	for id := range reconciliators {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func reconciliatorNames() []string {
	ids := Reconciliators()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return names
}

// Namespace returns the context namespace tag and base URI for a service.
// Unrecognized services fall back to the georss namespace; this default
// applies only to namespace selection, never to request dispatch.
func Namespace(id ID) (tag, uri string) {
	if desc, ok := reconciliators[id]; ok {
		return desc.Namespace, desc.BaseURI
	}
	return "georss", GeorssRootURI
}

// DisplayURI builds a browser-facing URI for a namespaced candidate id.
// Coordinate ids resolve to a maps lookup, wikidata-family ids to the
// entity page. Ids with no recognized namespace yield an empty string.
func DisplayURI(candidateID string) string {
	switch {
	case strings.HasPrefix(candidateID, "georss:"):
		return MapsRootURI + strings.TrimPrefix(candidateID, "georss:")
	case strings.HasPrefix(candidateID, "geoCoord:"):
		return MapsRootURI + strings.TrimPrefix(candidateID, "geoCoord:")
	case strings.HasPrefix(candidateID, "wd:"), strings.HasPrefix(candidateID, "wdA:"):
		if i := strings.LastIndex(candidateID, ":"); i >= 0 {
			return WikidataRootURI + candidateID[i+1:]
		}
	}
	return ""
}

// Info describes a service as listed by the backend discovery endpoints.
type Info struct {
	ID          string `json:"id"`
	RelativeURL string `json:"relativeUrl"`
	Name        string `json:"name"`
}

// Valid reports whether a discovery entry carries the required fields.
func (i Info) Valid() bool {
	return i.ID != "" && i.Name != ""
}
