package tables

// Clone creates a deep copy of the document. Composers transform the clone
// and return it, leaving the caller's document untouched.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Table:   d.Table.clone(),
		Columns: NewOrderedMap[*Column](),
		Rows:    NewOrderedMap[*Row](),
	}
	d.Columns.Range(func(name string, col *Column) bool {
		out.Columns.Set(name, col.Clone())
		return true
	})
	d.Rows.Range(func(id string, row *Row) bool {
		out.Rows.Set(id, row.Clone())
		return true
	})
	return out
}

func (m Meta) clone() Meta {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = deepCopyValue(v)
		}
	}
	return out
}

// Clone creates a deep copy of a column.
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	out := *c
	if c.Context != nil {
		out.Context = make(map[string]*Context, len(c.Context))
		for k, v := range c.Context {
			ctx := *v
			out.Context[k] = &ctx
		}
	}
	out.Metadata = CloneCandidates(c.Metadata)
	out.AnnotationMeta = c.AnnotationMeta.Clone()
	return &out
}

// Clone creates a deep copy of a row and its cells.
func (r *Row) Clone() *Row {
	if r == nil {
		return nil
	}
	out := &Row{ID: r.ID, Cells: NewOrderedMap[*Cell]()}
	r.Cells.Range(func(name string, cell *Cell) bool {
		out.Cells.Set(name, cell.Clone())
		return true
	})
	return out
}

// Clone creates a deep copy of a cell.
func (c *Cell) Clone() *Cell {
	if c == nil {
		return nil
	}
	out := *c
	out.Metadata = CloneCandidates(c.Metadata)
	out.AnnotationMeta = c.AnnotationMeta.Clone()
	return &out
}

// Clone creates a deep copy of annotation metadata.
func (a *AnnotationMeta) Clone() *AnnotationMeta {
	if a == nil {
		return nil
	}
	out := *a
	if a.LowestScore != nil {
		lo := *a.LowestScore
		out.LowestScore = &lo
	}
	if a.HighestScore != nil {
		hi := *a.HighestScore
		out.HighestScore = &hi
	}
	return &out
}

// Clone creates a deep copy of a candidate descriptor.
func (c Candidate) Clone() Candidate {
	out := c
	if c.Type != nil {
		out.Type = make([]TypeRef, len(c.Type))
		copy(out.Type, c.Type)
	}
	if c.Property != nil {
		out.Property = make([]PropertyLink, len(c.Property))
		copy(out.Property, c.Property)
	}
	out.Feature = deepCopyValue(c.Feature)
	out.Features = deepCopyValue(c.Features)
	out.Entity = CloneCandidates(c.Entity)
	return out
}

// CloneCandidates creates a deep copy of a candidate list.
// Returns nil for a nil input.
func CloneCandidates(candidates []Candidate) []Candidate {
	if candidates == nil {
		return nil
	}
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		out[i] = c.Clone()
	}
	return out
}

// deepCopyValue copies the decoded-JSON value shapes (maps, slices,
// scalars) that land in untyped fields.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
