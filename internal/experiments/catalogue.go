// Package experiments is the catalogue of lab experiments. Each experiment
// is a configuration record for the generic pipeline: its input columns,
// named constants, derived columns, fits, aggregate values and chart.
package experiments

import (
	"fmt"
	"math"
	"strings"

	"labfit/internal/derive"
	apperrors "labfit/internal/errors"
	"labfit/internal/numfmt"
	"labfit/internal/pipeline"
	"labfit/internal/report"
)

// Default returns a registry holding the whole catalogue, in the order
// `labfit -list` prints it
func Default() *pipeline.Registry {
	return pipeline.NewRegistry().MustRegister(
		Ohm(),
		Thevenin(),
		Bridge(),
		PowerFactor(),
		Malus(),
		Photoelectric(),
		IVCurves(),
		InverseSquare(),
		HallCoil(),
		Helmholtz(),
		FranckHertz(),
		FranckHertzAuto(),
		Diffraction(),
		Collision(),
		Drag(),
	)
}

// rowFunc computes a cell from the row's input values, in Inputs order
type rowFunc func(in []float64, c derive.Constants) (float64, error)

// formula builds a row formula over named inputs
func formula(name, expr string, p numfmt.Precision, inputs []string, fn rowFunc) derive.Formula {
	return derive.Formula{
		Name:      name,
		Inputs:    inputs,
		Precision: p,
		Expr:      expr,
		Row: func(r derive.Row, c derive.Constants) (float64, error) {
			in := make([]float64, len(inputs))
			for i, name := range inputs {
				v, err := r.Get(name)
				if err != nil {
					return 0, err
				}
				in[i] = v
			}
			return fn(in, c)
		},
	}
}

// lookup reads several constants at once
func lookup(c derive.Constants, names ...string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// positions returns 1..n, used as the x axis of per-experiment charts
func positions(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

// nearestZero returns the index of the sample closest to zero
func nearestZero(values []float64) (int, error) {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || math.Abs(v) < math.Abs(values[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0, apperrors.NewInsufficientDataError(1, 0)
	}
	return best, nil
}

// argMax returns the index of the largest value, ignoring NaN
func argMax(values []float64) (int, error) {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || v > values[best] {
			best = i
		}
	}
	if best < 0 {
		return 0, apperrors.NewInsufficientDataError(1, 0)
	}
	return best, nil
}

// curve samples fn at n evenly spaced points over [lo, hi]
func curve(lo, hi float64, n int, fn func(x float64) float64) ([]float64, []float64) {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		ys[i] = fn(xs[i])
	}
	return xs, ys
}

// quality grades a coefficient of determination for the summary
func quality(r2 float64) string {
	switch {
	case r2 > 0.9:
		return "excellent (R^2 > 0.9)"
	case r2 > 0.8:
		return "good (R^2 > 0.8)"
	default:
		return "fair (R^2 <= 0.8)"
	}
}

// seriesLabel renders a legend entry with a value, e.g. "Peaks (4)"
func seriesLabel(name string, parts ...string) string {
	if len(parts) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, strings.Join(parts, ", "))
}

// fitChart is the default measured-plus-fit chart with explicit axes
func fitChart(x, y report.Axis) pipeline.ChartFunc {
	return func(r *pipeline.Result) (report.ChartSpec, error) {
		return pipeline.DefaultChart(r, 0, x, y)
	}
}
