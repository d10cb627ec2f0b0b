package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	apperrors "labfit/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Logging     LoggingConfig               `yaml:"logging"`
	Paths       PathsConfig                 `yaml:"paths"`
	Telemetry   TelemetryConfig             `yaml:"telemetry"`
	Batch       BatchConfig                 `yaml:"batch"`
	Report      ReportConfig                `yaml:"report"`
	Experiments map[string]ExperimentConfig `yaml:"experiments" validate:"dive,keys,required,endkeys"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" validate:"oneof=json text"`
	Output   string `yaml:"output" validate:"oneof=file both console"`
	FilePath string `yaml:"file_path" validate:"required_unless=Output console"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	// Root holds one <experiment>/output tree per experiment
	Root string `yaml:"root" validate:"required"`
}

// TelemetryConfig controls the optional trace and metrics files
type TelemetryConfig struct {
	Tracing     bool   `yaml:"tracing"`
	TraceFile   string `yaml:"trace_file" validate:"required_if=Tracing true"`
	MetricsFile string `yaml:"metrics_file"`
}

// BatchConfig bounds parallelism when every experiment runs at once
type BatchConfig struct {
	Workers int `yaml:"workers" validate:"min=1,max=64"`
}

// ReportConfig selects the optional artifacts and chart geometry
type ReportConfig struct {
	XLSX   bool `yaml:"xlsx"`
	SVG    bool `yaml:"svg"`
	Width  int  `yaml:"width" validate:"min=320,max=8000"`
	Height int  `yaml:"height" validate:"min=240,max=8000"`
}

// ExperimentConfig overrides the built-in definition of one experiment
type ExperimentConfig struct {
	Input     string             `yaml:"input"`
	Sheet     string             `yaml:"sheet"`
	Constants map[string]float64 `yaml:"constants" validate:"dive,keys,required,endkeys"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: filepath.Join("logs", DefaultLogFileName),
		},
		Paths: PathsConfig{
			Root: ".",
		},
		Batch: BatchConfig{
			Workers: DefaultBatchWorkers,
		},
		Report: ReportConfig{
			Width:  DefaultChartWidth,
			Height: DefaultChartHeight,
		},
		Experiments: map[string]ExperimentConfig{},
	}
}

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path searches the well-known locations and falls back to
// the defaults when no file is found; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	if cfg.Experiments == nil {
		cfg.Experiments = map[string]ExperimentConfig{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, next to the
// executable first and then in the working directory
func findConfigFile() string {
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), ConfigFileName))
	}
	candidates = append(candidates, ConfigFileName)

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// Validate checks the struct tags and returns a CONFIG error listing every
// offending field by its YAML name
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperrors.NewConfigError("config validation failed", err)
		}
		problems := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			problems = append(problems, formatFieldError(fe))
		}
		return apperrors.NewConfigError("config validation failed: "+strings.Join(problems, "; "), nil)
	}
	return nil
}

// Experiment returns the overrides for name, or the zero value
func (c *Config) Experiment(name string) ExperimentConfig {
	if c.Experiments == nil {
		return ExperimentConfig{}
	}
	return c.Experiments[name]
}

// ValidateDateToken checks the user supplied token that names every output
// artifact of a run
func ValidateDateToken(token string) error {
	if err := newValidator().Var(token, "required,datetoken"); err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("invalid date token %q: must be non-empty and usable as a file name", token), nil)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("datetoken", isDateToken)

	// Use YAML tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// isDateToken rejects anything that could escape the output directory
func isDateToken(fl validator.FieldLevel) bool {
	token := fl.Field().String()
	if strings.TrimSpace(token) != token || token == "." || strings.Contains(token, "..") {
		return false
	}
	return !strings.ContainsAny(token, `/\:*?"<>|`)
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value())
	case "required", "required_if", "required_unless":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
