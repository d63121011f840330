package dataset

import (
	"math"
	"strconv"
)

// Kind is the storage kind of a column and the declared kind of a feature
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// MissingCategory is the explicit category substituted for missing cells
const MissingCategory = "missing"

// Column is one named, typed column. Its storage is never mutated after
// construction, which lets derived tables share it safely.
type Column struct {
	Name string
	Kind Kind

	floats  []float64
	strings []string
}

// NumericColumn creates a numeric column from a copy of values (NaN = missing)
func NumericColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: KindNumeric, floats: append([]float64(nil), values...)}
}

// CategoricalColumn creates a categorical column from a copy of values ("" = missing)
func CategoricalColumn(name string, values []string) Column {
	return Column{Name: name, Kind: KindCategorical, strings: append([]string(nil), values...)}
}

// Len returns the number of cells in the column
func (c Column) Len() int {
	if c.Kind == KindNumeric {
		return len(c.floats)
	}
	return len(c.strings)
}

// IsMissing reports whether cell i holds a missing value
func (c Column) IsMissing(i int) bool {
	if c.Kind == KindNumeric {
		return math.IsNaN(c.floats[i])
	}
	return c.strings[i] == ""
}

// Category renders cell i as a grouping key, substituting MissingCategory
// for missing cells.
func (c Column) Category(i int) string {
	if c.IsMissing(i) {
		return MissingCategory
	}
	if c.Kind == KindNumeric {
		return FormatNumber(c.floats[i])
	}
	return c.strings[i]
}

// FormatNumber renders a float in its shortest round-trip form
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
