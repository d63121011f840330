package dataset

// Snapshot is the exported, serializable form of a Table used by caches
type Snapshot struct {
	Index   []int
	Columns []ColumnSnapshot
}

// ColumnSnapshot is the serializable form of a Column
type ColumnSnapshot struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Strings []string
}

// Snapshot captures the table for serialization
func (t *Table) Snapshot() Snapshot {
	s := Snapshot{Index: t.Index(), Columns: make([]ColumnSnapshot, len(t.columns))}
	for i, c := range t.columns {
		s.Columns[i] = ColumnSnapshot{
			Name:    c.Name,
			Kind:    c.Kind,
			Floats:  append([]float64(nil), c.floats...),
			Strings: append([]string(nil), c.strings...),
		}
	}
	return s
}

// FromSnapshot rebuilds a table from its serialized form
func FromSnapshot(s Snapshot) (*Table, error) {
	cols := make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		if c.Kind == KindNumeric {
			cols[i] = NumericColumn(c.Name, c.Floats)
		} else {
			cols[i] = CategoricalColumn(c.Name, c.Strings)
		}
	}
	t, err := New(cols...)
	if err != nil {
		return nil, err
	}
	return t.WithIndex(s.Index)
}
