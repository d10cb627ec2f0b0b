// Package pipeline runs one experiment through load, derive, fit,
// aggregate, render and save.
//
// Every artifact is rendered in memory before the save stage touches the
// disk, so a run that fails at any earlier stage writes nothing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"labfit/internal/config"
	"labfit/internal/derive"
	apperrors "labfit/internal/errors"
	"labfit/internal/fit"
	"labfit/internal/infrastructure"
	"labfit/internal/measurement"
	"labfit/internal/report"
)

// Formats selects the optional artifacts
type Formats struct {
	XLSX bool
	SVG  bool
}

// Options controls one run
type Options struct {
	// Date names every artifact, e.g. 20251116+output.csv
	Date string
	// Root holds one <experiment>/output tree per experiment
	Root string
	// Input overrides the input file of a single run
	Input string
	// Overrides carries per-experiment settings from the config file
	Overrides map[string]config.ExperimentConfig
	Formats   Formats
	Width     int
	Height    int
	Progress  Progress
	Telemetry *infrastructure.Telemetry
}

func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Width == 0 {
		o.Width = config.DefaultChartWidth
	}
	if o.Height == 0 {
		o.Height = config.DefaultChartHeight
	}
	if o.Progress == nil {
		o.Progress = nopProgress{}
	}
	if o.Telemetry == nil {
		o.Telemetry = infrastructure.NoopTelemetry()
	}
	return o
}

// Run executes exp and returns its result. On failure the returned error
// names the stage and the result holds the stages that ran.
func Run(ctx context.Context, exp *Experiment, opts Options) (res *Result, err error) {
	opts = opts.withDefaults()
	ctx = infrastructure.WithExperiment(infrastructure.EnsureRunID(ctx), exp.Name)
	defer func() { opts.Telemetry.RecordRun(ctx, exp.Name, err) }()

	if err := exp.Validate(); err != nil {
		return nil, apperrors.NewConfigError(err.Error(), nil)
	}
	if err := config.ValidateDateToken(opts.Date); err != nil {
		return nil, err
	}

	override := opts.Overrides[exp.Name]
	consts, err := exp.Constants.With(override.Constants)
	if err != nil {
		return nil, err
	}

	input := exp.Input.File
	if override.Input != "" {
		input = override.Input
	}
	if opts.Input != "" {
		input = opts.Input
	}
	paths := config.NewExperimentPaths(opts.Root, exp.Name).WithInput(input)

	schema := exp.Input.Schema
	if override.Sheet != "" {
		schema.Sheet = override.Sheet
	}

	r := &runner{
		exp:    exp,
		opts:   opts,
		paths:  paths,
		schema: schema,
		result: &Result{
			Experiment: exp,
			Date:       opts.Date,
			RunID:      infrastructure.GetRunID(ctx),
			InputFile:  paths.InputFile,
			Constants:  consts,
		},
	}

	slog.InfoContext(ctx, "Starting experiment run",
		slog.String("input", paths.InputFile),
		slog.String("date", opts.Date))

	var artifacts []report.Artifact
	steps := []struct {
		name string
		fn   func(context.Context) (string, error)
	}{
		{StageLoad, r.load},
		{StageDerive, r.derive},
		{StageFit, r.fit},
		{StageAggregate, r.aggregate},
		{StageRender, func(ctx context.Context) (string, error) {
			var err error
			artifacts, err = r.render(ctx)
			return fmt.Sprintf("%d artifacts", len(artifacts)), err
		}},
		{StageSave, func(ctx context.Context) (string, error) {
			return r.save(ctx, artifacts)
		}},
	}

	for _, step := range steps {
		if err := r.stage(ctx, step.name, step.fn); err != nil {
			slog.ErrorContext(ctx, "Experiment run failed",
				slog.String("stage", step.name),
				slog.String("error", err.Error()))
			return r.result, err
		}
	}

	slog.InfoContext(ctx, "Experiment run completed",
		slog.Int("rows", r.result.Table.Len()),
		slog.Int("fits", len(r.result.Fits)),
		slog.Int("values", len(r.result.Values)))
	return r.result, nil
}

type runner struct {
	exp    *Experiment
	opts   Options
	paths  *config.ExperimentPaths
	schema measurement.Schema
	result *Result
}

// stage runs one step with progress markers, a span and a stage tag on
// any error
func (r *runner) stage(ctx context.Context, name string, fn func(context.Context) (string, error)) error {
	state := newStageState(name)
	if err := ctx.Err(); err != nil {
		err = apperrors.WithStage(name, err)
		state.fail(err)
		r.result.Stages = append(r.result.Stages, state)
		return err
	}

	r.opts.Progress.Stage(r.exp.Name, name)
	ctx, end := r.opts.Telemetry.StartStage(ctx, r.exp.Name, name)
	detail, err := fn(ctx)
	end(err)

	if err != nil {
		err = apperrors.WithStage(name, err)
		state.fail(err)
		r.result.Stages = append(r.result.Stages, state)
		r.opts.Progress.Failed(r.exp.Name, name, err)
		return err
	}

	state.complete(detail)
	r.result.Stages = append(r.result.Stages, state)
	r.opts.Progress.Done(r.exp.Name, name, detail)
	slog.DebugContext(ctx, "Stage completed",
		slog.String("stage", name),
		slog.String("detail", detail),
		slog.Duration("duration", state.Duration()))
	return nil
}

func (r *runner) load(ctx context.Context) (string, error) {
	table, err := measurement.Load(ctx, r.paths.InputFile, r.schema)
	if err != nil {
		return "", err
	}
	r.result.Table = table
	r.opts.Telemetry.RecordRows(ctx, r.exp.Name, table.Len())
	return fmt.Sprintf("%d rows", table.Len()), nil
}

func (r *runner) derive(ctx context.Context) (string, error) {
	for _, check := range r.exp.Checks {
		if err := check(r.result.Table, r.result.Constants); err != nil {
			return "", err
		}
	}
	if err := derive.Apply(ctx, r.result.Table, r.exp.Derivations, r.result.Constants); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d columns", len(r.exp.Derivations)), nil
}

func (r *runner) fit(ctx context.Context) (string, error) {
	for _, spec := range r.exp.Fits {
		f, err := fitOne(r.result.Table, spec)
		if err != nil {
			return "", err
		}
		r.result.Fits = append(r.result.Fits, f)
		slog.InfoContext(ctx, "Model fitted",
			slog.String("fit", spec.FitName()),
			slog.String("equation", f.Equation()),
			slog.Float64("r_squared", f.RSquared()),
			slog.Int("n", f.N()))
	}
	return fmt.Sprintf("%d models", len(r.exp.Fits)), nil
}

func fitOne(table *measurement.Table, spec FitSpec) (Fit, error) {
	xs, err := table.Values(spec.X)
	if err != nil {
		return Fit{}, err
	}
	ys, err := table.Values(spec.Y)
	if err != nil {
		return Fit{}, err
	}

	out := Fit{Spec: spec}
	switch spec.Model {
	case ModelPower:
		out.Power, err = fit.Power(xs, ys)
	case ModelPolynomial:
		out.Poly, err = fit.Polynomial(xs, ys, spec.Degree)
	default:
		out.Line, err = fit.Linear(xs, ys)
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("fit", spec.FitName())
		}
		return Fit{}, err
	}
	return out, nil
}

func (r *runner) aggregate(ctx context.Context) (string, error) {
	for _, agg := range r.exp.Aggregates {
		values, err := agg(ctx, r.result)
		if err != nil {
			return "", err
		}
		r.result.Values = append(r.result.Values, values...)
	}
	for _, v := range r.result.Values {
		slog.InfoContext(ctx, "Aggregate computed", slog.String("value", v.String()))
	}
	return fmt.Sprintf("%d values", len(r.result.Values)), nil
}

func (r *runner) render(ctx context.Context) ([]report.Artifact, error) {
	res := r.result
	date := res.Date

	table, err := report.TableCSV(res.Table)
	if err != nil {
		return nil, err
	}
	artifacts := []report.Artifact{
		{Path: r.paths.TableFile(date), Data: table},
		{Path: r.paths.LogFile(date), Data: report.Summary(r.summary())},
	}

	spec, err := r.chartSpec()
	if err != nil {
		return nil, err
	}
	spec.Width, spec.Height = r.opts.Width, r.opts.Height

	png, err := report.RenderChart(spec, report.PNG)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, report.Artifact{Path: r.paths.ChartFile(date, string(report.PNG)), Data: png})

	if r.opts.Formats.SVG {
		svg, err := report.RenderChart(spec, report.SVG)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, report.Artifact{Path: r.paths.ChartFile(date, string(report.SVG)), Data: svg})
	}
	if r.opts.Formats.XLSX {
		book, err := report.TableXLSX(res.Table, r.paths.Experiment)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, report.Artifact{Path: r.paths.WorkbookFile(date), Data: book})
	}
	return artifacts, nil
}

func (r *runner) chartSpec() (report.ChartSpec, error) {
	if r.exp.Chart != nil {
		return r.exp.Chart(r.result)
	}
	return DefaultChart(r.result, 0, report.Axis{Quantity: r.exp.Fits[0].X}, report.Axis{Quantity: r.exp.Fits[0].Y})
}

func (r *runner) summary() report.SummaryData {
	res := r.result
	data := report.SummaryData{
		Title:      r.exp.Title,
		Experiment: r.exp.Name,
		Date:       res.Date,
		Input:      filepath.Base(res.InputFile),
		Rows:       res.Table.Len(),
		Values:     res.Values,
		Warnings:   res.Warnings,
	}
	for _, name := range res.Constants.Names() {
		data.Constants = append(data.Constants, report.Constant{Name: name, Value: res.Constants[name]})
	}
	for _, f := range r.exp.Derivations {
		data.Derivations = append(data.Derivations, report.Derivation{Name: f.Name, Expr: f.Expr, Precision: f.Precision})
	}
	for _, f := range res.Fits {
		data.Fits = append(data.Fits, report.FitReport{
			Name:     f.Spec.FitName(),
			Equation: f.Equation(),
			RSquared: f.RSquared(),
			N:        f.N(),
		})
	}
	return data
}

func (r *runner) save(ctx context.Context, artifacts []report.Artifact) (string, error) {
	if err := report.Commit(ctx, artifacts); err != nil {
		return "", err
	}
	for _, a := range artifacts {
		r.result.Files = append(r.result.Files, a.Path)
	}
	return fmt.Sprintf("%d files", len(artifacts)), nil
}

// DefaultChart plots the measured points of fit i with its fitted curve.
// Catalogue charts start from it and add series.
func DefaultChart(r *Result, i int, x, y report.Axis) (report.ChartSpec, error) {
	if i < 0 || i >= len(r.Fits) {
		return report.ChartSpec{}, fmt.Errorf("no fit %d to plot", i)
	}
	f := r.Fits[i]
	xs, err := r.Column(f.Spec.X)
	if err != nil {
		return report.ChartSpec{}, err
	}
	ys, err := r.Column(f.Spec.Y)
	if err != nil {
		return report.ChartSpec{}, err
	}

	lo, hi := Range(xs)
	cx, cy := f.Curve(lo, hi, 200)
	return report.ChartSpec{
		Title: r.Experiment.Title,
		X:     x,
		Y:     y,
		Series: []report.Series{
			{Name: "Measured", X: xs, Y: ys, Style: report.Marker},
			{Name: "Fit: " + f.Equation(), X: cx, Y: cy, Style: report.Line},
		},
	}, nil
}
