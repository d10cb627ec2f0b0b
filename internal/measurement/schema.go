package measurement

import (
	"strings"
)

// ColumnSpec declares one numeric column, or with Prefix set, a family of
// numeric columns such as peakValue1..peakValueN
type ColumnSpec struct {
	Name   string
	Prefix string
	// Sparse allows empty cells, loaded as NaN and skipped by fits
	Sparse bool
}

// Schema is the set of numeric columns an experiment expects
type Schema struct {
	Columns []ColumnSpec
	// Sheet names the worksheet for xlsx input; empty means the first sheet
	Sheet string
}

// Columns builds a schema of required, dense columns
func Columns(names ...string) Schema {
	specs := make([]ColumnSpec, len(names))
	for i, n := range names {
		specs[i] = ColumnSpec{Name: n}
	}
	return Schema{Columns: specs}
}

// WithFamily adds a column family matched by prefix
func (s Schema) WithFamily(prefix string, sparse bool) Schema {
	s.Columns = append(append([]ColumnSpec(nil), s.Columns...), ColumnSpec{Prefix: prefix, Sparse: sparse})
	return s
}

// Names returns the declared column names and family patterns
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		if c.Prefix != "" {
			names[i] = c.Prefix + "*"
		} else {
			names[i] = c.Name
		}
	}
	return names
}

// match returns the ColumnSpec governing a header cell
func (s Schema) match(header string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Prefix == "" && c.Name == header {
			return c, true
		}
	}
	for _, c := range s.Columns {
		if c.Prefix != "" && strings.HasPrefix(header, c.Prefix) {
			return c, true
		}
	}
	return ColumnSpec{}, false
}
