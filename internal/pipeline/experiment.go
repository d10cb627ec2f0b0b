package pipeline

import (
	"context"
	"fmt"

	"labfit/internal/derive"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
	"labfit/internal/report"
)

// Model selects the least squares model of a FitSpec
type Model string

const (
	ModelLinear     Model = "linear"
	ModelPower      Model = "power"
	ModelPolynomial Model = "polynomial"
)

// Value is an experiment level result reported in the summary
type Value = report.Value

// Input names the measurement file and its expected columns. An empty File
// means the default input.csv in the experiment's data directory.
type Input struct {
	File   string
	Schema measurement.Schema
}

// FitSpec declares one model fitted to two table columns
type FitSpec struct {
	Name      string
	X         string
	Y         string
	Model     Model
	Degree    int
	Precision numfmt.Precision
	// XSymbol and YSymbol name the variables in the rendered equation
	XSymbol string
	YSymbol string
}

// Check guards a loaded table before any column is derived
type Check func(table *measurement.Table, consts derive.Constants) error

// AggregateFunc computes experiment level values from a finished fit stage
type AggregateFunc func(ctx context.Context, r *Result) ([]Value, error)

// ChartFunc builds the chart for a finished run
type ChartFunc func(r *Result) (report.ChartSpec, error)

// Experiment is the full configuration record of one lab experiment. The
// pipeline is generic; everything experiment specific lives here.
type Experiment struct {
	Name        string
	Title       string
	Input       Input
	Constants   derive.Constants
	Checks      []Check
	Derivations []derive.Formula
	Fits        []FitSpec
	Aggregates  []AggregateFunc
	Chart       ChartFunc
}

// Validate checks the record for mistakes that do not depend on data
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("experiment has no name")
	}
	if e.Chart == nil && len(e.Fits) == 0 {
		return fmt.Errorf("experiment %s has neither a chart nor a fit to plot", e.Name)
	}

	seen := make(map[string]bool)
	for _, f := range e.Derivations {
		if f.Name == "" {
			return fmt.Errorf("experiment %s has a formula without a name", e.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("experiment %s derives %q twice", e.Name, f.Name)
		}
		seen[f.Name] = true
	}

	for _, f := range e.Fits {
		switch f.Model {
		case ModelLinear, ModelPower:
		case ModelPolynomial:
			if f.Degree < 1 {
				return fmt.Errorf("experiment %s fit %q needs a degree", e.Name, f.FitName())
			}
		default:
			return fmt.Errorf("experiment %s fit %q has unknown model %q", e.Name, f.FitName(), f.Model)
		}
	}
	return nil
}

// FitName returns the display name, "Y vs X" when none is set
func (f FitSpec) FitName() string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("%s vs %s", f.Y, f.X)
}

func (f FitSpec) symbols() (string, string) {
	x, y := f.XSymbol, f.YSymbol
	if x == "" {
		x = "x"
	}
	if y == "" {
		y = "y"
	}
	return x, y
}
