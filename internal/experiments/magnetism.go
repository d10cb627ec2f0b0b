package experiments

import (
	"context"
	"math"

	"labfit/internal/derive"
	apperrors "labfit/internal/errors"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
	"labfit/internal/pipeline"
	"labfit/internal/report"
)

const (
	colS      = "S(cm)"
	colBPlus  = "B_+(mT)"
	colBMinus = "B_-(mT)"
	colX      = "x(cm)"
	colBAvg   = "B_avg(mT)"
)

// coilConstants are the defaults of the Hall probe bench: a 400 turn coil
// of radius 10 cm carrying 0.4 A, centred at S = 15 cm on the rail
func coilConstants() derive.Constants {
	return derive.Constants{
		"mu0":      derive.Mu0,
		"current":  0.4,
		"turns":    400,
		"radius":   10,
		"centre_S": 15,
	}
}

// hallDerivations computes the axial position and the polarity averaged
// field. x is kept at full precision and only printed as an integer.
func hallDerivations() []derive.Formula {
	return []derive.Formula{
		derive.Offset(colX, colS, "centre_S", numfmt.Fixed(0)),
		derive.MeanAbs(colBAvg, colBPlus, colBMinus, numfmt.Fixed(3)),
	}
}

// loopField is the on-axis field of a single circular coil in mT,
// B = μ0·N·I·R² / (2·(x² + R²)^(3/2)) with x and R in cm
func loopField(xcm float64, c []float64) float64 {
	mu0, current, turns, radius := c[0], c[1], c[2], c[3]/100
	x := xcm / 100
	return mu0 * turns * current * radius * radius / (2 * math.Pow(x*x+radius*radius, 1.5)) * 1000
}

var loopConstants = []string{"mu0", "current", "turns", "radius"}

// HallCoil maps the axial field of a single coil and compares it with the
// Biot-Savart prediction
func HallCoil() *pipeline.Experiment {
	const (
		colIdeal = "B_ideal(mT)"
		colErr   = "rel_error"
		fitName  = "B_avg vs x"
	)
	derivations := append(hallDerivations(),
		formula(colIdeal, "mu0*turns*current*R^2 / (2*(x^2+R^2)^1.5)", numfmt.Fixed(3), []string{colX},
			func(in []float64, c derive.Constants) (float64, error) {
				k, err := lookup(c, loopConstants...)
				if err != nil {
					return 0, err
				}
				return loopField(in[0], k), nil
			}),
		derive.RelativeError(colErr, colBAvg, colIdeal, numfmt.Percent(1)),
	)

	return &pipeline.Experiment{
		Name:        "hall-coil",
		Title:       "Axial Magnetic Field of a Single Coil",
		Input:       pipeline.Input{Schema: measurement.Columns(colS, colBPlus, colBMinus)},
		Constants:   coilConstants(),
		Derivations: derivations,
		Fits: []pipeline.FitSpec{{
			Name: fitName, X: colX, Y: colBAvg, Model: pipeline.ModelPolynomial, Degree: 6,
			Precision: numfmt.Sig(4), XSymbol: "x", YSymbol: "B",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				errs, err := r.Column(colErr)
				if err != nil {
					return nil, err
				}
				x, err := r.Column(colX)
				if err != nil {
					return nil, err
				}
				i, err := argMax(errs)
				if err != nil {
					return nil, err
				}
				return []pipeline.Value{
					report.NewValue("max_rel_error", errs[i], "", numfmt.Percent(1)),
					report.NewValue("x_at_max_error", x[i], "cm", numfmt.Fixed(0)),
				}, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			x, err := r.Column(colX)
			if err != nil {
				return report.ChartSpec{}, err
			}
			b, err := r.Column(colBAvg)
			if err != nil {
				return report.ChartSpec{}, err
			}
			k, err := lookup(r.Constants, loopConstants...)
			if err != nil {
				return report.ChartSpec{}, err
			}
			f := r.Fits[0]
			lo, hi := pipeline.Range(x)
			fx, fy := f.Curve(lo, hi, 300)
			tx, ty := curve(lo, hi, 300, func(v float64) float64 { return loopField(v, k) })
			return report.ChartSpec{
				Title: "Fitted vs. Theoretical Field on the Axis of a Single Coil",
				X:     report.Axis{Quantity: "Position x", Unit: "cm", Major: 1},
				Y:     report.Axis{Quantity: "Magnetic field B", Unit: "mT"},
				Series: []report.Series{
					{Name: "Fitted curve (measured data)", X: fx, Y: fy, Style: report.Line},
					{Name: "Theoretical curve", X: tx, Y: ty, Style: report.Dashed},
					{Name: "Measured data points", X: x, Y: b, Style: report.Marker},
				},
			}, nil
		},
	}
}

// centreTolerance is how far from x = 0 a reading may sit and still count
// as the centre of the coil pair
const centreTolerance = 0.5

// Helmholtz maps the axial field of a Helmholtz pair and compares the
// centre reading with B0 = (4/5)^(3/2)·μ0·N·I/R
func Helmholtz() *pipeline.Experiment {
	const (
		colB0   = "B0_ideal(mT)"
		colDev  = "dev_from_B0"
		fitName = "B_avg vs x"
	)
	derivations := append(hallDerivations(),
		derive.Broadcast(colB0, "(4/5)^1.5 * mu0*turns*current/R", numfmt.Fixed(4),
			func(c derive.Constants) (float64, error) {
				k, err := lookup(c, loopConstants...)
				if err != nil {
					return 0, err
				}
				mu0, current, turns, radius := k[0], k[1], k[2], k[3]/100
				ratio, err := derive.Div(mu0*turns*current, radius)
				if err != nil {
					return 0, err
				}
				return math.Pow(0.8, 1.5) * ratio * 1000, nil
			}),
		derive.RelativeError(colDev, colBAvg, colB0, numfmt.Percent(1)),
	)

	return &pipeline.Experiment{
		Name:        "helmholtz",
		Title:       "Axial Magnetic Field of a Helmholtz Coil",
		Input:       pipeline.Input{Schema: measurement.Columns(colS, colBPlus, colBMinus)},
		Constants:   coilConstants(),
		Derivations: derivations,
		Fits: []pipeline.FitSpec{{
			Name: fitName, X: colX, Y: colBAvg, Model: pipeline.ModelPolynomial, Degree: 8,
			Precision: numfmt.Sig(4), XSymbol: "x", YSymbol: "B",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				x, err := r.Column(colX)
				if err != nil {
					return nil, err
				}
				b, err := r.Column(colBAvg)
				if err != nil {
					return nil, err
				}
				b0, err := r.Column(colB0)
				if err != nil {
					return nil, err
				}
				i, err := nearestZero(x)
				if err != nil {
					return nil, err
				}
				if math.Abs(x[i]) > centreTolerance {
					return nil, apperrors.NewNumericError("no measurement at the centre x = 0", apperrors.ErrInsufficientData).
						WithContext("nearest_x", x[i])
				}
				rel, err := derive.Div(math.Abs(b[i]-b0[i]), b0[i])
				if err != nil {
					return nil, err
				}
				return []pipeline.Value{
					report.NewValue("B(0)_measured", b[i], "mT", numfmt.Fixed(4)),
					report.NewValue("B0_theory", b0[i], "mT", numfmt.Fixed(4)),
					report.NewValue("relative_error", rel, "", numfmt.Percent(2)),
				}, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			spec, err := pipeline.DefaultChart(r, 0,
				report.Axis{Quantity: "Position x", Unit: "cm", Major: 1},
				report.Axis{Quantity: "Magnetic field B", Unit: "mT"})
			if err != nil {
				return spec, err
			}
			x, err := r.Column(colX)
			if err != nil {
				return spec, err
			}
			b0, err := r.Column(colB0)
			if err != nil {
				return spec, err
			}
			if len(b0) == 0 {
				return spec, apperrors.NewInsufficientDataError(1, 0)
			}
			lo, hi := pipeline.Range(x)
			spec.Title = "Magnetic Field B along the Axis of a Helmholtz Coil"
			spec.Series[0].Name = "Measured data points"
			spec.Series[1] = report.Series{Name: "Fitted curve of measured data", X: spec.Series[1].X, Y: spec.Series[1].Y, Style: report.Dashed}
			spec.Series = append(spec.Series, report.Series{
				Name:  "Theoretical B0",
				X:     []float64{lo, hi},
				Y:     []float64{b0[0], b0[0]},
				Style: report.Dotted,
			})
			return spec, nil
		},
	}
}
