package extender

import (
	"math"
)

// Suggestions is the property-suggestion service response: for a set of
// reconciled entities, which properties are populated and how often.
type Suggestions struct {
	Data []Suggestion `json:"data"`
}

// Suggestion is one suggested property.
type Suggestion struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// Top returns the first n suggestions in the order the service ranked
// them, with percentages rounded to one decimal for display. n <= 0
// returns everything.
func (s *Suggestions) Top(n int) []Suggestion {
	out := make([]Suggestion, len(s.Data))
	copy(out, s.Data)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Percentage = math.Round(out[i].Percentage*10) / 10
	}
	return out
}

// PropertyIDs returns the suggested property identifiers in order.
func (s *Suggestions) PropertyIDs() []string {
	ids := make([]string, 0, len(s.Data))
	for _, sg := range s.Data {
		ids = append(ids, sg.ID)
	}
	return ids
}
