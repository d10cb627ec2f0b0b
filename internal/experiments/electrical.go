package experiments

import (
	"context"
	"fmt"

	"labfit/internal/derive"
	"labfit/internal/fit"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
	"labfit/internal/pipeline"
	"labfit/internal/report"
)

const (
	colVoltage      = "U(V)"
	colCurrentMilli = "I(mA)"
	colCurrent      = "I(A)"
)

// milliToUnit converts mA to A
const milliToUnit = 1e-3

// currentInAmps is shared by every experiment that records I(mA)
func currentInAmps() derive.Formula {
	return derive.Scale(colCurrent, colCurrentMilli, milliToUnit, numfmt.Fixed(4))
}

// Ohm verifies U = R·I on a fixed resistor
func Ohm() *pipeline.Experiment {
	const colR = "R_calculated(ohm)"
	return &pipeline.Experiment{
		Name:  "ohm",
		Title: "Ohm's Law: U against I",
		Input: pipeline.Input{Schema: measurement.Columns(colVoltage, colCurrentMilli)},
		Derivations: []derive.Formula{
			currentInAmps(),
			derive.Ratio(colR, colVoltage, colCurrent, numfmt.Fixed(2)),
		},
		Fits: []pipeline.FitSpec{{
			Name: "U vs I", X: colCurrent, Y: colVoltage, Model: pipeline.ModelLinear,
			Precision: numfmt.Fixed(2), XSymbol: "I", YSymbol: "U",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				rs, err := r.Column(colR)
				if err != nil {
					return nil, err
				}
				mean, err := fit.Mean(rs)
				if err != nil {
					return nil, err
				}
				line, err := r.Fit("U vs I")
				if err != nil {
					return nil, err
				}
				values := []pipeline.Value{
					report.NewValue("R_mean", mean, "ohm", numfmt.Fixed(2)),
					report.NewValue("R_fit", line.Line.Slope, "ohm", numfmt.Fixed(2)),
				}
				if u, err := fit.TypeA(rs); err == nil {
					values[0] = values[0].WithUncertainty(u)
				}
				return values, nil
			},
		},
		Chart: fitChart(
			report.Axis{Quantity: "Current I", Unit: "A"},
			report.Axis{Quantity: "Voltage U", Unit: "V"},
		),
	}
}

// Thevenin finds the equivalent source of a linear network from its
// load line U = E_th - R_th·I
func Thevenin() *pipeline.Experiment {
	return &pipeline.Experiment{
		Name:        "thevenin",
		Title:       "Thevenin Equivalent: Load Line",
		Input:       pipeline.Input{Schema: measurement.Columns(colVoltage, colCurrentMilli)},
		Derivations: []derive.Formula{currentInAmps()},
		Fits: []pipeline.FitSpec{{
			Name: "U vs I", X: colCurrent, Y: colVoltage, Model: pipeline.ModelLinear,
			Precision: numfmt.Fixed(3), XSymbol: "I", YSymbol: "U",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				f, err := r.Fit("U vs I")
				if err != nil {
					return nil, err
				}
				eth := report.NewValue("E_th", f.Line.Intercept, "V", numfmt.Fixed(3))
				rth := report.NewValue("R_th", -f.Line.Slope, "ohm", numfmt.Fixed(2))
				if f.Line.N > 2 {
					eth = eth.WithUncertainty(f.Line.InterceptStdErr)
					rth = rth.WithUncertainty(f.Line.SlopeStdErr)
				}
				if f.Line.Slope > 0 {
					r.Warn("load line rises with current; check the meter polarity")
				}
				return []pipeline.Value{eth, rth}, nil
			},
		},
		Chart: fitChart(
			report.Axis{Quantity: "Current I", Unit: "A"},
			report.Axis{Quantity: "Terminal voltage U", Unit: "V"},
		),
	}
}

// Bridge measures the temperature coefficient of a resistor with an
// unbalanced bridge, R_t = R0·(1 + α·t)
func Bridge() *pipeline.Experiment {
	const (
		colT  = "t(°C)"
		colRt = "R_t(Ω)"
	)
	return &pipeline.Experiment{
		Name:      "bridge",
		Title:     "Unbalanced Bridge: Resistance against Temperature",
		Input:     pipeline.Input{Schema: measurement.Columns(colT, colRt)},
		Constants: derive.Constants{"R0": 50},
		Fits: []pipeline.FitSpec{{
			Name: "R_t vs t", X: colT, Y: colRt, Model: pipeline.ModelLinear,
			Precision: numfmt.Fixed(4), XSymbol: "t", YSymbol: "R_t",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				f, err := r.Fit("R_t vs t")
				if err != nil {
					return nil, err
				}
				r0, err := r.Constants.Get("R0")
				if err != nil {
					return nil, err
				}
				alpha, err := derive.Div(f.Line.Slope, r0)
				if err != nil {
					return nil, err
				}
				return []pipeline.Value{
					report.NewValue("k", f.Line.Slope, "Ω/°C", numfmt.Fixed(4)),
					report.NewValue("alpha", alpha, "1/°C", numfmt.Fixed(5)),
					report.NewValue("R_t(0)", f.Line.Intercept, "Ω", numfmt.Fixed(2)),
				}, nil
			},
		},
		Chart: fitChart(
			report.Axis{Quantity: "Temperature t", Unit: "°C"},
			report.Axis{Quantity: "Resistance R_t", Unit: "Ω"},
		),
	}
}

// PowerFactor traces cos φ = P / (U·I) of an inductive load as the
// compensating capacitance grows
func PowerFactor() *pipeline.Experiment {
	const (
		colC   = `C(\mu F)`
		colP   = "P(W)"
		colCos = `\cos \phi`
		fitCos = "cos phi vs C"
	)
	return &pipeline.Experiment{
		Name:  "power-factor",
		Title: "Power Factor against Capacitance",
		Input: pipeline.Input{Schema: measurement.Columns(colC, colVoltage, colCurrentMilli, colP)},
		Derivations: []derive.Formula{
			currentInAmps(),
			formula(colCos, "P(W) / (U(V) * I(A))", numfmt.Fixed(2), []string{colP, colVoltage, colCurrent},
				func(in []float64, _ derive.Constants) (float64, error) {
					return derive.Div(in[0], in[1]*in[2])
				}),
		},
		Fits: []pipeline.FitSpec{{
			Name: fitCos, X: colC, Y: colCos, Model: pipeline.ModelPolynomial, Degree: 3,
			Precision: numfmt.Sig(4), XSymbol: "C", YSymbol: "cos φ",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				cs, err := r.Column(colC)
				if err != nil {
					return nil, err
				}
				cos, err := r.Column(colCos)
				if err != nil {
					return nil, err
				}
				i, err := argMax(cos)
				if err != nil {
					return nil, err
				}
				f, err := r.Fit(fitCos)
				if err != nil {
					return nil, err
				}
				lo, hi := pipeline.Range(cs)
				fx, fy := f.Curve(lo, hi, 500)
				j, err := argMax(fy)
				if err != nil {
					return nil, err
				}
				for row, v := range cos {
					if v > 1 {
						r.Warn("cos φ = %s exceeds 1 in row %d; check the wattmeter range", numfmt.Format(v, numfmt.Fixed(2)), row+1)
					}
				}
				return []pipeline.Value{
					report.NewValue("cos_phi_max", cos[i], "", numfmt.Fixed(2)),
					report.NewValue("C_at_max", cs[i], "μF", numfmt.Fixed(2)),
					report.NewValue("C_at_fitted_max", fx[j], "μF", numfmt.Fixed(2)),
				}, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			spec, err := pipeline.DefaultChart(r, 0,
				report.Axis{Quantity: "Capacitance C", Unit: "μF"},
				report.Axis{Quantity: "Power factor cos φ", Minor: 0.01})
			if err != nil {
				return spec, err
			}
			spec.Title = fmt.Sprintf("%s (R^2 = %s)", spec.Title, numfmt.Format(r.Fits[0].RSquared(), numfmt.Fixed(4)))
			return spec, nil
		},
	}
}
