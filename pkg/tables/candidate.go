package tables

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Candidate is one candidate-entity descriptor attached to a cell or
// column. The shape follows the backend contract: service responses carry
// a looser variant (name as a bare string, score as a string) which the
// flexible Name and Score types absorb on decode.
type Candidate struct {
	ID          string         `json:"id"`
	Name        Name           `json:"name"`
	Description string         `json:"description,omitempty"`
	Score       Score          `json:"score"`
	Match       bool           `json:"match"`
	Type        []TypeRef      `json:"type,omitempty"`
	Feature     any            `json:"feature,omitempty"`
	Features    any            `json:"features,omitempty"`
	Property    []PropertyLink `json:"property,omitempty"`

	// Entity nests raw candidates under a synthetic root descriptor for
	// column-level metadata.
	Entity []Candidate `json:"entity,omitempty"`

	// scoreSet records whether the wire form carried a score field at
	// all. Services omit it on exact property pulls, and an absent score
	// is not the same as an explicit zero.
	scoreSet bool
}

// UnmarshalJSON decodes a candidate and tracks score presence.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type alias Candidate
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*c = Candidate(obj)
	if raw, ok := keys["score"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		c.scoreSet = true
	}
	return nil
}

// HasScore reports whether the candidate carries a usable score: one
// present on the wire, or a non-zero value set programmatically.
func (c Candidate) HasScore() bool {
	return c.scoreSet || c.Score != 0
}

// TypeRef identifies a knowledge-base type attached to a candidate.
type TypeRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// PropertyLink cross-links a reconciled column to a column produced from
// one of its properties during extension.
type PropertyLink struct {
	ID    string `json:"id"`
	Obj   string `json:"obj"`
	Name  string `json:"name"`
	Match bool   `json:"match"`
	Score Score  `json:"score"`
}

// Name is a display name with an optional URI. Raw service responses may
// send it as a bare string; the enriched document always uses the
// {value, uri} object form.
type Name struct {
	Value string `json:"value"`
	URI   string `json:"uri"`
}

// UnmarshalJSON accepts both the string and the object form.
func (n *Name) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = Name{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*n = Name{Value: s}
		return nil
	}
	type alias Name
	var obj alias
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*n = Name(obj)
	return nil
}

// Score is a numeric confidence value. Services disagree on the encoding
// (number vs numeric string), so decoding is tolerant; encoding is always
// a JSON number.
type Score float64

// Float returns the score as a float64.
func (s Score) Float() float64 { return float64(s) }

// UnmarshalJSON accepts a number, a numeric string, or null.
func (s *Score) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = 0
		return nil
	}
	if trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		if str == "" {
			*s = 0
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*s = Score(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return err
	}
	*s = Score(f)
	return nil
}

// BestScore returns the lowest and highest score across the candidates
// that carry one. Candidates without a score do not count, so ok reports
// whether any score was observed at all.
func BestScore(candidates []Candidate) (lowest, highest float64, ok bool) {
	for _, c := range candidates {
		if !c.HasScore() {
			continue
		}
		score := c.Score.Float()
		if !ok {
			lowest, highest = score, score
			ok = true
			continue
		}
		if score < lowest {
			lowest = score
		}
		if score > highest {
			highest = score
		}
	}
	return lowest, highest, ok
}

// AnyMatch reports whether any candidate carries match == true.
func AnyMatch(candidates []Candidate) bool {
	for _, c := range candidates {
		if c.Match {
			return true
		}
	}
	return false
}
