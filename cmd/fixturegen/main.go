package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"labfit/internal/config"
	"labfit/internal/fixture"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("fixturegen", flag.ContinueOnError)
	fs.SetOutput(stdout)
	experiment := fs.String("experiment", "", "experiment to generate, or "+fixture.TemplateFranckHertz)
	out := fs.String("out", "", "output file (.csv or .xlsx); defaults to <root>/<experiment>/output/data/input.csv")
	root := fs.String("root", ".", "root of the experiment trees, used when -out is empty")
	seed := fs.Int64("seed", 1, "noise seed; the same seed gives the same file")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *experiment == "" {
		fmt.Fprintln(stdout, "Error: -experiment is required")
		fmt.Fprintln(stdout, "Available:", strings.Join(fixture.Names(), ", "))
		return 2
	}

	path := *out
	if path == "" {
		path = config.NewExperimentPaths(*root, *experiment).InputFile
	}

	if err := fixture.Write(path, *experiment, *seed, *force); err != nil {
		slog.Error("Fixture generation failed",
			slog.String("experiment", *experiment),
			slog.String("path", path),
			slog.String("error", err.Error()))
		fmt.Fprintln(stdout, "Error:", err)
		return 1
	}

	slog.Info("Fixture written",
		slog.String("experiment", *experiment),
		slog.String("path", path),
		slog.Int64("seed", *seed))
	fmt.Fprintf(stdout, "Wrote synthetic %s data to %s\n", *experiment, path)
	return 0
}
