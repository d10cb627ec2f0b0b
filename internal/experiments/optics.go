package experiments

import (
	"context"
	"fmt"

	"labfit/internal/derive"
	apperrors "labfit/internal/errors"
	"labfit/internal/fit"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
	"labfit/internal/pipeline"
	"labfit/internal/report"
	"labfit/internal/signal"
)

// Malus checks i = i_max·cos²φ for light through two polarisers
func Malus() *pipeline.Experiment {
	const (
		colPhi   = `\phi`
		colI     = `i(\mu A)`
		colCosSq = "cos_sq_phi"
		fitName  = "i vs cos^2(phi)"
	)
	return &pipeline.Experiment{
		Name:        "malus",
		Title:       "Malus's Law: Photocurrent against cos²φ",
		Input:       pipeline.Input{Schema: measurement.Columns(colPhi, colI)},
		Derivations: []derive.Formula{derive.CosSquaredDeg(colCosSq, colPhi, numfmt.Fixed(4))},
		Fits: []pipeline.FitSpec{{
			Name: fitName, X: colCosSq, Y: colI, Model: pipeline.ModelLinear,
			Precision: numfmt.Fixed(2), XSymbol: "cos²φ", YSymbol: "i",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				f, err := r.Fit(fitName)
				if err != nil {
					return nil, err
				}
				return []pipeline.Value{
					report.NewValue("i_max", f.Line.Slope, "μA", numfmt.Fixed(2)),
					report.NewValue("i_dark", f.Line.Intercept, "μA", numfmt.Fixed(2)),
				}, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			spec, err := pipeline.DefaultChart(r, 0,
				report.Axis{Quantity: "cos²φ", Major: 0.1, Minor: 0.02, Min: 0, Max: 1},
				report.Axis{Quantity: "Photocurrent i", Unit: "μA"})
			if err != nil {
				return spec, err
			}
			// extend the fitted line over the full cos² range
			f := r.Fits[0]
			cx, cy := f.Curve(0, 1, 2)
			spec.Series[1] = report.Series{Name: spec.Series[1].Name, X: cx, Y: cy, Style: report.Dashed}
			return spec, nil
		},
	}
}

// Photoelectric finds Planck's constant from the stopping voltage
// U_a = (h/e)·ν - W/e
func Photoelectric() *pipeline.Experiment {
	const (
		colLambda = "lambda(nm)"
		colUa     = "U_a(V)"
		colNu     = "nu(Hz)"
		fitName   = "U_a vs nu"
	)
	return &pipeline.Experiment{
		Name:  "photoelectric",
		Title: "Photoelectric Effect: Stopping Voltage against Frequency",
		Input: pipeline.Input{Schema: measurement.Columns(colLambda, colUa)},
		Constants: derive.Constants{
			"c": derive.SpeedOfLight,
			"e": derive.ElementaryCharge,
		},
		Derivations: []derive.Formula{derive.WavelengthToFrequency(colNu, colLambda, "c", numfmt.Sig(6))},
		Fits: []pipeline.FitSpec{{
			Name: fitName, X: colNu, Y: colUa, Model: pipeline.ModelLinear,
			Precision: numfmt.Sig(4), XSymbol: "ν", YSymbol: "U_a",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				f, err := r.Fit(fitName)
				if err != nil {
					return nil, err
				}
				c, err := lookup(r.Constants, "c", "e")
				if err != nil {
					return nil, err
				}
				speed, charge := c[0], c[1]

				h := report.NewValue("h", f.Line.Slope*charge, "J·s", numfmt.Sig(4))
				if f.Line.N > 2 {
					h = h.WithUncertainty(f.Line.SlopeStdErr * charge)
				}
				values := []pipeline.Value{
					report.NewValue("k = h/e", f.Line.Slope, "V·s", numfmt.Sig(4)),
					h,
					report.NewValue("r", f.Line.R, "", numfmt.Fixed(6)),
				}

				nu0, err := derive.Div(-f.Line.Intercept, f.Line.Slope)
				if err != nil {
					return nil, err
				}
				values = append(values, report.NewValue("nu0", nu0, "Hz", numfmt.Sig(4)))
				if nu0 > 0 {
					values = append(values, report.NewValue("lambda0", speed/nu0*1e9, "nm", numfmt.Fixed(1)))
				} else {
					r.Warn("threshold frequency is not positive, no cutoff wavelength")
				}
				return values, nil
			},
		},
		Chart: fitChart(
			report.Axis{Quantity: "Frequency ν", Unit: "Hz"},
			report.Axis{Quantity: "Stopping voltage U_a", Unit: "V"},
		),
	}
}

// IVCurves compares the current-voltage characteristics of a phototube at
// two wavelengths and estimates each stopping potential as the voltage
// where the current is closest to zero
func IVCurves() *pipeline.Experiment {
	const colU = "U(V)"
	curves := []struct {
		column string
		label  string
		value  string
		style  report.SeriesStyle
	}{
		{"I_577(1e-10A)", "λ = 577 nm (long wavelength)", "U_stop(577nm)", report.LineMarker},
		{"I_546(1e-10A)", "λ = 546 nm (short wavelength)", "U_stop(546nm)", report.Dashed},
	}

	return &pipeline.Experiment{
		Name:  "iv-curves",
		Title: "Photoelectric Effect: I-U Characteristics",
		Input: pipeline.Input{Schema: measurement.Columns(colU, curves[0].column, curves[1].column)},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				u, err := r.Column(colU)
				if err != nil {
					return nil, err
				}
				var values []pipeline.Value
				for _, c := range curves {
					current, err := r.Column(c.column)
					if err != nil {
						return nil, err
					}
					i, err := nearestZero(current)
					if err != nil {
						return nil, err
					}
					values = append(values, report.NewValue(c.value, u[i], "V", numfmt.Fixed(3)))
				}
				return values, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			u, err := r.Column(colU)
			if err != nil {
				return report.ChartSpec{}, err
			}
			spec := report.ChartSpec{
				Title: "Phototube I-U Characteristic",
				X:     report.Axis{Quantity: "Voltage U_AK", Unit: "V"},
				Y:     report.Axis{Quantity: "Photocurrent I", Unit: "1e-10 A"},
			}
			for _, c := range curves {
				current, err := r.Column(c.column)
				if err != nil {
					return report.ChartSpec{}, err
				}
				spec.Series = append(spec.Series, report.Series{Name: c.label, X: u, Y: current, Style: c.style})
			}
			return spec, nil
		},
	}
}

// InverseSquare checks that the saturation photocurrent falls as the
// inverse square of the lamp distance, both linearised against L⁻² and as
// a free power law
func InverseSquare() *pipeline.Experiment {
	const (
		colLcm   = "L_cm"
		colI     = "I"
		colL     = "L(m)"
		colLinv  = "L^-2(m^-2)"
		fitLin   = "I vs L^-2"
		fitPower = "I vs L"
	)
	return &pipeline.Experiment{
		Name:  "inverse-square",
		Title: "Saturation Photocurrent against Lamp Distance",
		Input: pipeline.Input{Schema: measurement.Columns(colLcm, colI)},
		Derivations: []derive.Formula{
			derive.Scale(colL, colLcm, 0.01, numfmt.Fixed(3)),
			derive.InverseSquare(colLinv, colL, numfmt.Fixed(2)),
		},
		Fits: []pipeline.FitSpec{
			{
				Name: fitLin, X: colLinv, Y: colI, Model: pipeline.ModelLinear,
				Precision: numfmt.Fixed(4), XSymbol: "L^-2", YSymbol: "I_s",
			},
			{
				Name: fitPower, X: colL, Y: colI, Model: pipeline.ModelPower,
				Precision: numfmt.Fixed(2), XSymbol: "L", YSymbol: "I_s",
			},
		},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				lin, err := r.Fit(fitLin)
				if err != nil {
					return nil, err
				}
				pow, err := r.Fit(fitPower)
				if err != nil {
					return nil, err
				}
				if lin.RSquared() < 0.9 {
					r.Warn("I_s is not linear in L^-2, fit quality %s", quality(lin.RSquared()))
				}
				return []pipeline.Value{
					report.NewValue("exponent", pow.Power.Exponent, "", numfmt.Fixed(2)),
					report.NewValue("coefficient", pow.Power.Coefficient, "", numfmt.Sig(4)),
				}, nil
			},
		},
		Chart: fitChart(
			report.Axis{Quantity: "1/L²", Unit: "m^-2"},
			report.Axis{Quantity: "Saturation photocurrent I_s", Unit: "1e-10 A"},
		),
	}
}

// Diffraction locates the central and first-order maxima of a single-slit
// intensity scan
func Diffraction() *pipeline.Experiment {
	const (
		colX     = "x(mm)"
		colI     = "I(10^-8 A)"
		colXNorm = "x_normalized(mm)"
	)

	peaks := func(r *pipeline.Result) ([]signal.Peak, error) {
		current, err := r.Column(colI)
		if err != nil {
			return nil, err
		}
		minProminence, err := r.Constants.Get("min_prominence")
		if err != nil {
			return nil, err
		}
		found := signal.FindPeaks(current, signal.PeakOptions{MinProminence: minProminence})
		if len(found) < 3 {
			return nil, apperrors.NewInsufficientDataError(3, len(found)).
				WithContext("detail", "need the central and both first-order maxima")
		}
		return found, nil
	}

	return &pipeline.Experiment{
		Name:        "diffraction",
		Title:       "Single-Slit Diffraction Pattern",
		Input:       pipeline.Input{Schema: measurement.Columns(colX, colI)},
		// maxima less prominent than this are scan noise
		Constants:   derive.Constants{"min_prominence": 1.0},
		Derivations: []derive.Formula{derive.ShiftToMin(colXNorm, colX, numfmt.Fixed(3))},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				found, err := peaks(r)
				if err != nil {
					return nil, err
				}
				top := signal.Highest(found, 3)
				central := top[0].Value
				first, err := fit.Mean([]float64{top[1].Value, top[2].Value})
				if err != nil {
					return nil, err
				}
				ratio, err := derive.Div(first, central)
				if err != nil {
					return nil, err
				}
				return []pipeline.Value{
					report.NewValue("maxima", float64(len(found)), "", numfmt.Fixed(0)),
					report.NewValue("I_central", central, "1e-8 A", numfmt.Fixed(2)),
					report.NewValue("I_first_order", first, "1e-8 A", numfmt.Fixed(2)),
					report.NewValue("I_first/I_central", ratio, "", numfmt.Percent(1)),
				}, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			x, err := r.Column(colXNorm)
			if err != nil {
				return report.ChartSpec{}, err
			}
			current, err := r.Column(colI)
			if err != nil {
				return report.ChartSpec{}, err
			}
			found, err := peaks(r)
			if err != nil {
				return report.ChartSpec{}, err
			}
			px := make([]float64, len(found))
			py := make([]float64, len(found))
			for i, p := range found {
				px[i], py[i] = x[p.Index], p.Value
			}
			return report.ChartSpec{
				Title: "Single-Slit Diffraction Pattern",
				X:     report.Axis{Quantity: "Position x", Unit: "mm", Major: 2},
				Y:     report.Axis{Quantity: "Photocurrent I", Unit: "1e-8 A"},
				Series: []report.Series{
					{Name: "Diffraction pattern", X: x, Y: current, Style: report.Line},
					{Name: fmt.Sprintf("Detected maxima (%d)", len(found)), X: px, Y: py, Style: report.LargeMarker},
				},
			}, nil
		},
	}
}
