package pipeline

import (
	"fmt"
	"math"

	"labfit/internal/derive"
	"labfit/internal/fit"
	"labfit/internal/measurement"
	"labfit/internal/report"
)

// Fit is a fitted model together with the FitSpec that produced it. Exactly
// one of the model fields is meaningful, selected by Spec.Model.
type Fit struct {
	Spec  FitSpec
	Line  fit.Line
	Power fit.PowerLaw
	Poly  fit.Poly
}

// RSquared returns the coefficient of determination of the model
func (f Fit) RSquared() float64 {
	switch f.Spec.Model {
	case ModelPower:
		return f.Power.RSquared
	case ModelPolynomial:
		return f.Poly.RSquared
	default:
		return f.Line.RSquared
	}
}

// N returns the number of points the model was fitted on
func (f Fit) N() int {
	switch f.Spec.Model {
	case ModelPower:
		return f.Power.N
	case ModelPolynomial:
		return f.Poly.N
	default:
		return f.Line.N
	}
}

// Predict evaluates the model at x
func (f Fit) Predict(x float64) float64 {
	switch f.Spec.Model {
	case ModelPower:
		return f.Power.Predict(x)
	case ModelPolynomial:
		return f.Poly.Predict(x)
	default:
		return f.Line.Predict(x)
	}
}

// Equation renders the model at the FitSpec precision
func (f Fit) Equation() string {
	x, y := f.Spec.symbols()
	switch f.Spec.Model {
	case ModelPower:
		return report.PowerEquation(y, x, f.Power, f.Spec.Precision)
	case ModelPolynomial:
		return report.PolynomialEquation(y, x, f.Poly, f.Spec.Precision)
	default:
		return report.LinearEquation(y, x, f.Line, f.Spec.Precision)
	}
}

// Curve samples the model at n evenly spaced points in [lo, hi]
func (f Fit) Curve(lo, hi float64, n int) ([]float64, []float64) {
	if n < 2 {
		n = 2
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		ys[i] = f.Predict(xs[i])
	}
	return xs, ys
}

// Result is everything a run computed. Aggregates and chart builders read
// it; the run id never reaches the artifacts.
type Result struct {
	Experiment *Experiment
	Date       string
	RunID      string
	InputFile  string
	Constants  derive.Constants
	Table      *measurement.Table
	Fits       []Fit
	Values     []Value
	Warnings   []string
	Stages     []StageState
	Files      []string
}

// Fit returns the fitted model with the given name
func (r *Result) Fit(name string) (Fit, error) {
	for _, f := range r.Fits {
		if f.Spec.FitName() == name {
			return f, nil
		}
	}
	return Fit{}, fmt.Errorf("no fit named %q", name)
}

// Column returns a copy of a numeric column
func (r *Result) Column(name string) ([]float64, error) {
	return r.Table.Values(name)
}

// Warn records a note for the summary's warning section
func (r *Result) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Value returns an aggregate by name
func (r *Result) Value(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v, true
		}
	}
	return Value{}, false
}

// Range returns the smallest and largest finite values of xs
func Range(xs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
