package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"labfit/internal/config"
	apperrors "labfit/internal/errors"
	"labfit/internal/experiments"
	"labfit/internal/infrastructure"
	"labfit/internal/pipeline"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}

type options struct {
	experiment string
	date       string
	root       string
	input      string
	configPath string
	xlsx       bool
	svg        bool
	all        bool
	list       bool
}

func parseFlags(args []string, out io.Writer) (*options, error) {
	fs := flag.NewFlagSet("labfit", flag.ContinueOnError)
	fs.SetOutput(out)

	o := &options{}
	fs.StringVar(&o.experiment, "experiment", "", "experiment to run (see -list)")
	fs.StringVar(&o.date, "date", "", "date token naming the artifacts, e.g. 20251116 (prompted when empty)")
	fs.StringVar(&o.root, "root", "", "directory holding the <experiment>/output trees (defaults to paths.root)")
	fs.StringVar(&o.input, "input", "", "input file overriding <experiment>/output/data/input.csv")
	fs.StringVar(&o.configPath, "config", "", "YAML config file (defaults to "+config.ConfigFileName+" when present)")
	fs.BoolVar(&o.xlsx, "xlsx", false, "also write the table as an Excel workbook")
	fs.BoolVar(&o.svg, "svg", false, "also render the chart as SVG")
	fs.BoolVar(&o.all, "all", false, "run every experiment in the catalogue")
	fs.BoolVar(&o.list, "list", false, "list the experiment catalogue and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if o.list {
		return o, nil
	}
	switch {
	case o.all && o.experiment != "":
		return nil, errors.New("-all and -experiment are mutually exclusive")
	case !o.all && o.experiment == "":
		return nil, errors.New("one of -experiment or -all is required")
	case o.all && o.input != "":
		return nil, errors.New("-input applies to a single experiment")
	}
	return o, nil
}

// promptDate reads one line from in. Only the line ending is stripped so
// that stray spaces are rejected by validation rather than silently fixed.
func promptDate(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter the date token for output files (e.g. 20251116): ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) int {
	o, err := parseFlags(args, stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stdout, "Error:", err)
		return exitUsage
	}

	registry := experiments.Default()
	if o.list {
		for _, exp := range registry.List() {
			fmt.Fprintf(stdout, "%-18s %s\n", exp.Name, exp.Title)
		}
		return exitOK
	}

	var exp *pipeline.Experiment
	if !o.all {
		if exp, err = registry.Get(o.experiment); err != nil {
			fmt.Fprintln(stdout, "Error:", err)
			fmt.Fprintln(stdout, "Available:", strings.Join(registry.Names(), ", "))
			return exitUsage
		}
	}

	if o.date == "" {
		if o.date, err = promptDate(stdin, stdout); err != nil {
			fmt.Fprintln(stdout, "Error: failed to read date:", err)
			return exitUsage
		}
	}
	if err := config.ValidateDateToken(o.date); err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return exitUsage
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return exitFailure
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(stdout, "Warning: logging disabled:", err)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.NewRunContext(ctx)
	telemetry, err := infrastructure.InitTelemetry(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.WarnContext(ctx, "Telemetry disabled", slog.String("error", err.Error()))
		telemetry = infrastructure.NoopTelemetry()
	}
	defer func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	root := cfg.Paths.Root
	if o.root != "" {
		root = o.root
	}
	opts := pipeline.Options{
		Date:      o.date,
		Root:      root,
		Input:     o.input,
		Overrides: cfg.Experiments,
		Formats: pipeline.Formats{
			XLSX: o.xlsx || cfg.Report.XLSX,
			SVG:  o.svg || cfg.Report.SVG,
		},
		Width:     cfg.Report.Width,
		Height:    cfg.Report.Height,
		Progress:  pipeline.NewConsoleProgress(stdout),
		Telemetry: telemetry,
	}

	logger.InfoContext(ctx, "Starting labfit",
		slog.String("version", config.AppVersion),
		slog.String("date", o.date),
		slog.String("root", root),
		slog.Bool("all", o.all))

	if o.all {
		return runAll(ctx, registry, opts, cfg.Batch.Workers, stdout)
	}

	res, err := pipeline.Run(ctx, exp, opts)
	if err != nil {
		fmt.Fprintln(stdout, failure(err))
		return exitFailure
	}
	printFiles(stdout, res)
	return exitOK
}

func runAll(ctx context.Context, registry *pipeline.Registry, opts pipeline.Options, workers int, stdout io.Writer) int {
	batch, err := pipeline.RunBatch(ctx, registry.List(), opts, workers)
	if batch == nil {
		fmt.Fprintln(stdout, "Error:", err)
		return exitFailure
	}
	for _, name := range batch.Order {
		if e := batch.Errors[name]; e != nil {
			fmt.Fprintf(stdout, "[%s] %s\n", name, failure(e))
			continue
		}
		printFiles(stdout, batch.Results[name])
	}
	failed := batch.Failed()
	fmt.Fprintf(stdout, "%d of %d experiments succeeded\n", len(batch.Order)-len(failed), len(batch.Order))
	if len(failed) > 0 {
		return exitFailure
	}
	return exitOK
}

func printFiles(out io.Writer, res *pipeline.Result) {
	fmt.Fprintf(out, "[%s] wrote:\n", res.Experiment.Name)
	for _, f := range res.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
}

// failure renders the console line for a failed run
func failure(err error) string {
	stage := apperrors.StageOf(err)
	if stage == "" {
		return "FAILED: " + err.Error()
	}
	msg := strings.TrimPrefix(err.Error(), "stage "+stage+": ")
	return fmt.Sprintf("FAILED at stage %s: %s", stage, msg)
}
