package dataset

import (
	"fmt"
	"math"

	"scorecard/domain/core"
)

// Table is an immutable in-memory table of loan records. Every transform
// returns a new Table; accessors hand out copies so callers and concurrent
// readers can never observe each other's writes.
type Table struct {
	columns  []Column
	position map[string]int
	rowIndex []int
	rows     int
}

// New builds a table from columns of equal length with a default 0..n-1
// row index.
func New(columns ...Column) (*Table, error) {
	rows := 0
	if len(columns) > 0 {
		rows = columns[0].Len()
	}
	index := make([]int, rows)
	for i := range index {
		index[i] = i
	}
	return build(columns, index)
}

func build(columns []Column, index []int) (*Table, error) {
	t := &Table{
		columns:  make([]Column, 0, len(columns)),
		position: make(map[string]int, len(columns)),
		rowIndex: index,
		rows:     len(index),
	}
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: empty column name", core.ErrInvalidInput)
		}
		if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", core.ErrLengthMismatch, c.Name, c.Len(), t.rows)
		}
		if pos, ok := t.position[c.Name]; ok {
			t.columns[pos] = c
			continue
		}
		t.position[c.Name] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Rows returns the number of observations
func (t *Table) Rows() int {
	return t.rows
}

// Names returns the column names in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column with the given name
func (t *Table) Has(name string) bool {
	_, ok := t.position[name]
	return ok
}

// Column returns the named column
func (t *Table) Column(name string) (Column, error) {
	pos, ok := t.position[name]
	if !ok {
		return Column{}, core.NewColumnNotFoundError(name)
	}
	return t.columns[pos], nil
}

// Kind returns the storage kind of the named column
func (t *Table) Kind(name string) (Kind, error) {
	c, err := t.Column(name)
	if err != nil {
		return "", err
	}
	return c.Kind, nil
}

// Floats returns a copy of a numeric column
func (t *Table) Floats(name string) ([]float64, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindNumeric {
		return nil, fmt.Errorf("%w: %q", core.ErrNotNumeric, name)
	}
	return append([]float64(nil), c.floats...), nil
}

// Strings returns a copy of a categorical column
func (t *Table) Strings(name string) ([]string, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindCategorical {
		return nil, fmt.Errorf("%w: %q is not categorical", core.ErrInvalidInput, name)
	}
	return append([]string(nil), c.strings...), nil
}

// Target returns a copy of a binary {0,1} column
func (t *Table) Target(name string) ([]float64, error) {
	y, err := t.Floats(name)
	if err != nil {
		return nil, err
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("%w: %q has value %v at row %d", core.ErrNotBinary, name, v, i)
		}
	}
	return y, nil
}

// Index returns a copy of the original row index
func (t *Table) Index() []int {
	return append([]int(nil), t.rowIndex...)
}

// WithColumns returns a new table with the given columns appended, or
// replacing existing columns of the same name. The receiver is unchanged.
func (t *Table) WithColumns(columns ...Column) (*Table, error) {
	all := make([]Column, 0, len(t.columns)+len(columns))
	all = append(all, t.columns...)
	all = append(all, columns...)
	return build(all, t.Index())
}

// Select returns a new table holding only the named columns, in the given order
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return build(cols, t.Index())
}

// WithIndex returns a new table carrying the given original row index
func (t *Table) WithIndex(index []int) (*Table, error) {
	if len(index) != t.rows {
		return nil, fmt.Errorf("%w: index has %d entries, want %d", core.ErrLengthMismatch, len(index), t.rows)
	}
	return build(t.columns, append([]int(nil), index...))
}

// Value returns the numeric value at row i, or NaN for a categorical column
func (c Column) Value(i int) float64 {
	if c.Kind != KindNumeric {
		return math.NaN()
	}
	return c.floats[i]
}
