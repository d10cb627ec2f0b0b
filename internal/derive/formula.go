// Package derive computes derived columns of a measurement table from
// closed-form formulas and named constants.
package derive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	apperrors "labfit/internal/errors"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
)

// RowFunc computes one cell of a derived column
type RowFunc func(r Row, c Constants) (float64, error)

// BroadcastFunc computes a value that is the same for every row
type BroadcastFunc func(c Constants) (float64, error)

// Formula describes one derived column. Exactly one of Row and Broadcast
// is set.
type Formula struct {
	Name      string
	Inputs    []string
	Precision numfmt.Precision
	// Expr is a human readable rendering used in logs and the report
	Expr      string
	Row       RowFunc
	Broadcast BroadcastFunc
}

// Row gives a formula read access to one table row
type Row struct {
	table *measurement.Table
	index int
}

// Index is the 0-based row index
func (r Row) Index() int { return r.index }

// Get returns the value of column name in this row
func (r Row) Get(name string) (float64, error) {
	c, ok := r.table.Column(name)
	if !ok {
		return 0, apperrors.NewMissingColumnError(name)
	}
	if !c.Numeric {
		return 0, apperrors.NewSchemaError(fmt.Sprintf("column %q is not declared numeric", name), apperrors.ErrMissingColumn)
	}
	return c.Values[r.index], nil
}

// Family returns this row's values of every numeric column starting with
// prefix, in column order. Missing cells are NaN.
func (r Row) Family(prefix string) []float64 {
	cols := r.table.Prefixed(prefix)
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = c.Values[r.index]
	}
	return out
}

// Column returns a copy of a whole numeric column, for formulas relative
// to a column statistic such as its minimum
func (r Row) Column(name string) ([]float64, error) {
	return r.table.Values(name)
}

// Div divides and reports a zero denominator as ErrDivisionByZero. Apply
// turns that into a NumericError naming the row and column.
func Div(num, den float64) (float64, error) {
	if den == 0 {
		return 0, apperrors.ErrDivisionByZero
	}
	return num / den, nil
}

// Apply evaluates formulas in order and appends one column per formula.
// A later formula may read the output of an earlier one. On error the
// failing column is not added.
func Apply(ctx context.Context, table *measurement.Table, formulas []Formula, consts Constants) error {
	for _, f := range formulas {
		if err := ctx.Err(); err != nil {
			return err
		}

		values, err := evaluate(table, f, consts)
		if err != nil {
			return err
		}
		if err := table.AddDerived(f.Name, values, f.Precision); err != nil {
			return err
		}

		slog.DebugContext(ctx, "Derived column computed",
			slog.String("column", f.Name),
			slog.String("expr", f.Expr),
			slog.Int("rows", len(values)))
	}
	return nil
}

func evaluate(table *measurement.Table, f Formula, consts Constants) ([]float64, error) {
	if (f.Row == nil) == (f.Broadcast == nil) {
		return nil, apperrors.NewSchemaError(fmt.Sprintf("formula %q must set exactly one of Row and Broadcast", f.Name), nil)
	}
	for _, in := range f.Inputs {
		if !table.Has(in) {
			return nil, apperrors.NewMissingColumnError(in).WithContext("formula", f.Name)
		}
	}

	values := make([]float64, table.Len())

	if f.Broadcast != nil {
		v, err := f.Broadcast(consts)
		if err != nil {
			return nil, cellError(err, 0, f.Name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nonFinite(0, f.Name, v)
		}
		for i := range values {
			values[i] = v
		}
		return values, nil
	}

	for i := range values {
		v, err := f.Row(Row{table: table, index: i}, consts)
		if err != nil {
			return nil, cellError(err, i+1, f.Name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nonFinite(i+1, f.Name, v)
		}
		values[i] = v
	}
	return values, nil
}

// cellError attaches the row and column to a formula failure. row is
// 1-based; 0 means a broadcast value.
func cellError(err error, row int, column string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.WithContext("row", row).WithContext("column", column)
	}
	if errors.Is(err, apperrors.ErrDivisionByZero) {
		return apperrors.NewDivisionByZeroError(row, column)
	}
	return apperrors.NewNumericError(fmt.Sprintf("row %d column %q", row, column), err).
		WithContext("row", row).
		WithContext("column", column)
}

func nonFinite(row int, column string, v float64) error {
	return apperrors.NewNumericError(fmt.Sprintf("row %d column %q: result is %v", row, column, v), apperrors.ErrNonFinite).
		WithContext("row", row).
		WithContext("column", column)
}
