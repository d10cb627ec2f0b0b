package config

import (
	"path/filepath"

	"github.com/gosimple/slug"
)

// ExperimentPaths contains every path one experiment reads or writes.
// This is the single source of truth for the output tree layout:
//
//	<root>/
//	  └── <experiment>/
//	      └── output/
//	          ├── data/    (input.csv, <date>+output.csv, <date>+output.txt)
//	          └── image/   (<date>+output.png)
type ExperimentPaths struct {
	Root       string
	Experiment string
	BaseDir    string
	DataDir    string
	ImageDir   string
	InputFile  string
}

// NewExperimentPaths resolves the tree for an experiment under root. The
// experiment name is slugged so titles like "Hall Coil" map to hall-coil.
func NewExperimentPaths(root, experiment string) *ExperimentPaths {
	name := slug.Make(experiment)
	base := filepath.Join(root, name, OutputDirName)
	data := filepath.Join(base, DataDirName)
	return &ExperimentPaths{
		Root:       root,
		Experiment: name,
		BaseDir:    base,
		DataDir:    data,
		ImageDir:   filepath.Join(base, ImageDirName),
		InputFile:  filepath.Join(data, InputFileName),
	}
}

// WithInput overrides the default input file. Relative paths are resolved
// against the experiment's data directory.
func (p *ExperimentPaths) WithInput(input string) *ExperimentPaths {
	if input == "" {
		return p
	}
	cp := *p
	if filepath.IsAbs(input) {
		cp.InputFile = input
	} else {
		cp.InputFile = filepath.Join(p.DataDir, input)
	}
	return &cp
}

// TableFile returns the augmented table path for a date token
func (p *ExperimentPaths) TableFile(date string) string {
	return filepath.Join(p.DataDir, artifactName(date, "csv"))
}

// WorkbookFile returns the optional xlsx copy of the augmented table
func (p *ExperimentPaths) WorkbookFile(date string) string {
	return filepath.Join(p.DataDir, artifactName(date, "xlsx"))
}

// LogFile returns the text summary path for a date token
func (p *ExperimentPaths) LogFile(date string) string {
	return filepath.Join(p.DataDir, artifactName(date, "txt"))
}

// ChartFile returns the chart path for a date token and image extension
func (p *ExperimentPaths) ChartFile(date, ext string) string {
	return filepath.Join(p.ImageDir, artifactName(date, ext))
}

func artifactName(date, ext string) string {
	return date + OutputSuffix + "." + ext
}
