package experiments

import (
	"context"
	"strings"

	"labfit/internal/derive"
	"labfit/internal/fit"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
	"labfit/internal/pipeline"
	"labfit/internal/report"
)

// Collision checks momentum and kinetic energy conservation of two carts
// on an air track and computes the coefficient of restitution
func Collision() *pipeline.Experiment {
	const (
		v10 = "v1_0(m/s)"
		v11 = "v1_1(m/s)"
		v20 = "v2_0(m/s)"
		v21 = "v2_1(m/s)"

		colP1    = "p1(kg m/s)"
		colP2    = "p2(kg m/s)"
		colE1    = "E1(J)"
		colE2    = "E2(J)"
		colDp    = "deltp(kg m/s)"
		colDE    = "deltE(J)"
		colDpRel = "deltp/p1"
		colDERel = "deltE/E1"
		colE     = "e"
	)
	velocities := []string{v10, v11, v20, v21}

	momentum := func(name string, a, b string) derive.Formula {
		return formula(name, "m1*"+a+" + m2*"+b, numfmt.Sig(4), []string{a, b},
			func(in []float64, c derive.Constants) (float64, error) {
				m, err := lookup(c, "m1", "m2")
				if err != nil {
					return 0, err
				}
				return m[0]*in[0] + m[1]*in[1], nil
			})
	}
	energy := func(name string, a, b string) derive.Formula {
		return formula(name, "m1*"+a+"^2/2 + m2*"+b+"^2/2", numfmt.Sig(4), []string{a, b},
			func(in []float64, c derive.Constants) (float64, error) {
				m, err := lookup(c, "m1", "m2")
				if err != nil {
					return 0, err
				}
				return 0.5*m[0]*in[0]*in[0] + 0.5*m[1]*in[1]*in[1], nil
			})
	}
	difference := func(name, after, before string) derive.Formula {
		return formula(name, after+" - "+before, numfmt.Sig(4), []string{after, before},
			func(in []float64, _ derive.Constants) (float64, error) {
				return in[0] - in[1], nil
			})
	}

	return &pipeline.Experiment{
		Name:      "collision",
		Title:     "Collisions on an Air Track",
		Input:     pipeline.Input{Schema: measurement.Columns(velocities...)},
		Constants: derive.Constants{"m1": 0.3071, "m2": 0.3103},
		Derivations: []derive.Formula{
			momentum(colP1, v10, v20),
			momentum(colP2, v11, v21),
			energy(colE1, v10, v20),
			energy(colE2, v11, v21),
			difference(colDp, colP2, colP1),
			difference(colDE, colE2, colE1),
			derive.Ratio(colDpRel, colDp, colP1, numfmt.Percent(0)),
			derive.Ratio(colDERel, colDE, colE1, numfmt.Percent(0)),
			formula(colE, "(v2_1 - v1_1) / (v1_0 - v2_0)", numfmt.Percent(1), velocities,
				func(in []float64, _ derive.Constants) (float64, error) {
					return derive.Div(in[3]-in[1], in[0]-in[2])
				}),
		},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				var values []pipeline.Value
				for _, c := range []struct{ column, name string }{
					{colE, "e_mean"},
					{colDpRel, "deltp/p1_mean"},
					{colDERel, "deltE/E1_mean"},
				} {
					vs, err := r.Column(c.column)
					if err != nil {
						return nil, err
					}
					mean, err := fit.Mean(vs)
					if err != nil {
						return nil, err
					}
					v := report.NewValue(c.name, mean, "", numfmt.Percent(1))
					if u, err := fit.TypeA(vs); err == nil {
						v = v.WithUncertainty(u)
					}
					values = append(values, v)
				}
				return values, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			spec := report.ChartSpec{
				Title: "Collision Losses per Run",
				X:     report.Axis{Quantity: "Run", Major: 1},
				Y:     report.Axis{Quantity: "Ratio"},
			}
			for _, s := range []struct {
				column, label string
				style         report.SeriesStyle
			}{
				{colE, "Coefficient of restitution e", report.LargeMarker},
				{colDpRel, "Momentum change Δp/p1", report.LineMarker},
				{colDERel, "Energy change ΔE/E1", report.Dashed},
			} {
				vs, err := r.Column(s.column)
				if err != nil {
					return report.ChartSpec{}, err
				}
				spec.Series = append(spec.Series, report.Series{Name: s.label, X: positions(len(vs)), Y: vs, Style: s.style})
			}
			return spec, nil
		},
	}
}

// Drag measures the velocity proportional drag on a gliding cart,
// f = m·a = -k·v
func Drag() *pipeline.Experiment {
	const (
		colV1   = "v1 (m/s)"
		colV2   = "v2 (m/s)"
		colA    = "a (m/s^2)"
		colVAvg = "v_avg (m/s)"
		colF    = "f (N)"
		colK    = "k"
		fitName = "f vs v"
	)
	return &pipeline.Experiment{
		Name:      "drag",
		Title:     "Drag Force against Average Velocity",
		Input:     pipeline.Input{Schema: measurement.Columns(colV1, colV2, colA)},
		Constants: derive.Constants{"m": 0.3102},
		Derivations: []derive.Formula{
			formula(colVAvg, "(v1 + v2) / 2", numfmt.Fixed(4), []string{colV1, colV2},
				func(in []float64, _ derive.Constants) (float64, error) {
					return (in[0] + in[1]) / 2, nil
				}),
			formula(colF, "m * a", numfmt.Sig(4), []string{colA},
				func(in []float64, c derive.Constants) (float64, error) {
					m, err := c.Get("m")
					return m * in[0], err
				}),
			formula(colK, "-f / v_avg", numfmt.Sig(4), []string{colF, colVAvg},
				func(in []float64, _ derive.Constants) (float64, error) {
					return derive.Div(-in[0], in[1])
				}),
		},
		Fits: []pipeline.FitSpec{{
			Name: fitName, X: colVAvg, Y: colF, Model: pipeline.ModelLinear,
			Precision: numfmt.Sig(4), XSymbol: "v", YSymbol: "f",
		}},
		Aggregates: []pipeline.AggregateFunc{
			func(_ context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				ks, err := r.Column(colK)
				if err != nil {
					return nil, err
				}
				mean, err := fit.Mean(ks)
				if err != nil {
					return nil, err
				}
				k := report.NewValue("k_mean", mean, "N·s/m", numfmt.Fixed(4))
				if u, err := fit.TypeA(ks); err == nil {
					k = k.WithUncertainty(u)
				}
				f, err := r.Fit(fitName)
				if err != nil {
					return nil, err
				}
				grade := quality(f.RSquared())
				if !strings.HasPrefix(grade, "excellent") {
					r.Warn("fit quality %s", grade)
				}
				kFit := report.NewValue("k_fit", -f.Line.Slope, "N·s/m", numfmt.Fixed(4))
				if f.Line.N > 2 {
					kFit = kFit.WithUncertainty(f.Line.SlopeStdErr)
				}
				return []pipeline.Value{k, kFit, report.NewValue("r", f.Line.R, "", numfmt.Fixed(6))}, nil
			},
		},
		Chart: fitChart(
			report.Axis{Quantity: "Average velocity v", Unit: "m/s"},
			report.Axis{Quantity: "Drag force f", Unit: "N"},
		),
	}
}
