package measurement

import (
	"fmt"
	"strings"

	apperrors "labfit/internal/errors"
	"labfit/internal/numfmt"
)

// Column is one named column of a Table. Input columns keep the cell text
// exactly as read; derived columns carry the precision used to present them.
type Column struct {
	Name      string
	Values    []float64
	Raw       []string
	Numeric   bool
	Derived   bool
	Precision numfmt.Precision
}

// Table is an ordered set of equal length columns. Columns are only ever
// appended; an existing column is never replaced or modified.
type Table struct {
	rows    int
	columns []*Column
	index   map[string]int
}

// NewTable creates an empty table with a fixed row count
func NewTable(rows int) *Table {
	return &Table{
		rows:  rows,
		index: make(map[string]int),
	}
}

// Len returns the number of rows
func (t *Table) Len() int { return t.rows }

// Names returns the column names in table order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in table order
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// Has reports whether the table has a column called name
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Values returns a copy of a numeric column
func (t *Table) Values(name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, apperrors.NewMissingColumnError(name)
	}
	if !c.Numeric {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("column %q is not declared numeric", name), apperrors.ErrMissingColumn).
			WithContext("column", name)
	}
	return append([]float64(nil), c.Values...), nil
}

// Prefixed returns the numeric columns whose name starts with prefix, in
// table order
func (t *Table) Prefixed(prefix string) []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.Numeric && strings.HasPrefix(c.Name, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// AddInput appends a column read from the source file. values may be nil
// for columns that are carried through without being parsed.
func (t *Table) AddInput(name string, raw []string, values []float64) error {
	if len(raw) != t.rows || (values != nil && len(values) != t.rows) {
		return fmt.Errorf("column %q has %d cells, table has %d rows", name, len(raw), t.rows)
	}
	return t.add(&Column{
		Name:    name,
		Raw:     raw,
		Values:  values,
		Numeric: values != nil,
	})
}

// AddDerived appends a computed column
func (t *Table) AddDerived(name string, values []float64, precision numfmt.Precision) error {
	if len(values) != t.rows {
		return fmt.Errorf("derived column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	return t.add(&Column{
		Name:      name,
		Values:    values,
		Numeric:   true,
		Derived:   true,
		Precision: precision,
	})
}

func (t *Table) add(c *Column) error {
	if _, exists := t.index[c.Name]; exists {
		return apperrors.NewSchemaError(fmt.Sprintf("column %q already exists", c.Name), nil).
			WithContext("column", c.Name)
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// Cell returns the presentation text of one cell: the verbatim source text
// for input columns and the formatted value for derived ones
func (c *Column) Cell(row int) string {
	if c.Derived {
		return numfmt.Format(c.Values[row], c.Precision)
	}
	return c.Raw[row]
}
