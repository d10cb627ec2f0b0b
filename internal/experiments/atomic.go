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

// FranckHertzSamples is the size of the uniform grid the I-U curve is
// resampled onto before smoothing
const FranckHertzSamples = 2000

// franckHertzAnalysis is the smoothed curve and its detected peaks
type franckHertzAnalysis struct {
	raw      signal.Curve
	smoothed signal.Curve
	peaks    []signal.Peak
}

func (a franckHertzAnalysis) peakVoltages() []float64 {
	out := make([]float64, len(a.peaks))
	for i, p := range a.peaks {
		out[i] = a.smoothed.X[p.Index]
	}
	return out
}

func analyseFranckHertz(r *pipeline.Result) (franckHertzAnalysis, error) {
	u, err := r.Column("U")
	if err != nil {
		return franckHertzAnalysis{}, err
	}
	i, err := r.Column("I")
	if err != nil {
		return franckHertzAnalysis{}, err
	}
	k, err := lookup(r.Constants, "smoothing_cutoff", "peak_prominence", "peak_height")
	if err != nil {
		return franckHertzAnalysis{}, err
	}

	raw := signal.Curve{X: u, Y: i}
	smoothed, err := signal.Smooth(raw, FranckHertzSamples, k[0])
	if err != nil {
		return franckHertzAnalysis{}, err
	}
	peaks := signal.FindPeaks(smoothed.Y, signal.PeakOptions{MinProminence: k[1], MinHeight: k[2]})
	if len(peaks) < 2 {
		return franckHertzAnalysis{}, apperrors.NewInsufficientDataError(2, len(peaks)).
			WithContext("detail", "fewer than 2 current peaks above the height and prominence thresholds")
	}
	return franckHertzAnalysis{raw: raw, smoothed: smoothed, peaks: peaks}, nil
}

// FranckHertz finds the first excitation potential of the gas from the
// spacing of the anode current peaks
func FranckHertz() *pipeline.Experiment {
	return &pipeline.Experiment{
		Name:  "franck-hertz",
		Title: "Franck-Hertz Experiment: I_A against U_G2K",
		Input: pipeline.Input{Schema: measurement.Columns("U", "I")},
		Constants: derive.Constants{
			// fraction of the Nyquist frequency kept by the low-pass filter
			"smoothing_cutoff": 0.04,
			"peak_prominence":  50,
			"peak_height":      560,
		},
		Aggregates: []pipeline.AggregateFunc{
			func(ctx context.Context, r *pipeline.Result) ([]pipeline.Value, error) {
				a, err := analyseFranckHertz(r)
				if err != nil {
					return nil, err
				}
				volts := a.peakVoltages()

				var values []pipeline.Value
				for n, v := range volts {
					values = append(values, report.NewValue(fmt.Sprintf("U_peak%d", n+1), v, "V", numfmt.Fixed(2)))
				}

				diffs := fit.Diff(volts)
				mean, err := fit.Mean(diffs)
				if err != nil {
					return nil, err
				}
				excitation := report.NewValue("U_excitation", mean, "V", numfmt.Fixed(2))
				if u, err := fit.TypeA(diffs); err == nil {
					excitation = excitation.WithUncertainty(u)
				} else {
					r.Warn("only two peaks found, no type A uncertainty")
				}
				values = append(values, excitation)

				line, err := fit.Linear(positions(len(volts)), volts)
				if err != nil {
					return nil, err
				}
				slope := report.NewValue("U_excitation_fit", line.Slope, "V", numfmt.Fixed(2))
				if line.N > 2 {
					slope = slope.WithUncertainty(line.SlopeStdErr)
				}
				values = append(values, slope, report.NewValue("R^2_peaks", line.RSquared, "", numfmt.Fixed(4)))
				return values, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			a, err := analyseFranckHertz(r)
			if err != nil {
				return report.ChartSpec{}, err
			}
			volts := a.peakVoltages()
			currents := make([]float64, len(a.peaks))
			for i, p := range a.peaks {
				currents[i] = p.Value
			}
			return report.ChartSpec{
				Title: "Franck-Hertz Experiment: I_A - U_G2K Curve",
				X:     report.Axis{Quantity: "U_G2K", Unit: "V", Major: 10, Minor: 2},
				Y:     report.Axis{Quantity: "I_A", Unit: "nA"},
				Series: []report.Series{
					{Name: "Smoothed I-U curve", X: a.smoothed.X, Y: a.smoothed.Y, Style: report.Line},
					{Name: "Raw data points", X: a.raw.X, Y: a.raw.Y, Style: report.Marker},
					{Name: seriesLabel("Detected peaks", fmt.Sprint(len(a.peaks))), X: volts, Y: currents, Style: report.LargeMarker},
				},
			}, nil
		},
	}
}

// FranckHertzAuto reads peak voltages exported by the automatic rig, one
// run per row, and fits each run's peak voltage against peak order
func FranckHertzAuto() *pipeline.Experiment {
	const (
		colOrder = "exp_order"
		colK     = "k"
	)
	return &pipeline.Experiment{
		Name:        "franck-hertz-auto",
		Title:       "Franck-Hertz Experiment: Automatic Peak Records",
		Input:       pipeline.Input{Schema: measurement.Columns(colOrder).WithFamily("peakValue", true)},
		Derivations: []derive.Formula{derive.RowSlope(colK, "peakValue", numfmt.Fixed(2))},
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
				k := report.NewValue("k_mean", mean, "V", numfmt.Fixed(2))
				if u, err := fit.TypeA(ks); err == nil {
					k = k.WithUncertainty(u)
				}
				return []pipeline.Value{k}, nil
			},
		},
		Chart: func(r *pipeline.Result) (report.ChartSpec, error) {
			order, err := r.Column(colOrder)
			if err != nil {
				return report.ChartSpec{}, err
			}
			ks, err := r.Column(colK)
			if err != nil {
				return report.ChartSpec{}, err
			}
			series := []report.Series{{Name: "k per run", X: order, Y: ks, Style: report.LargeMarker}}
			if v, ok := r.Value("k_mean"); ok {
				lo, hi := pipeline.Range(order)
				series = append(series, report.Series{
					Name:  "Mean k = " + numfmt.Format(v.Value, v.Precision) + " V",
					X:     []float64{lo, hi},
					Y:     []float64{v.Value, v.Value},
					Style: report.Dashed,
				})
			}
			return report.ChartSpec{
				Title:  "Excitation Potential per Run",
				X:      report.Axis{Quantity: "Run", Major: 1},
				Y:      report.Axis{Quantity: "Slope k", Unit: "V"},
				Series: series,
			}, nil
		},
	}
}
