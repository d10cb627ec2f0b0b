// Package config provides configuration management for labfit.
//
// Configuration comes from a single YAML file layered over built-in
// defaults. Environment variables are never consulted: the only runtime
// input besides the file is the command line.
//
// # Configuration File
//
//	logging:
//	  level: info
//	  output: file          # file | both | console
//	  file_path: logs/labfit.log
//	paths:
//	  root: .               # <root>/<experiment>/output/{data,image}
//	telemetry:
//	  tracing: false
//	  trace_file: logs/trace.json
//	  metrics_file: logs/labfit.prom
//	batch:
//	  workers: 4
//	report:
//	  xlsx: false
//	  svg: false
//	experiments:
//	  hall-coil:
//	    input: measurements/coil.csv
//	    constants:
//	      current_I: 0.4
//
// # Paths
//
// ExperimentPaths resolves the deterministic per-experiment output tree and
// the artifact names derived from the date token:
//
//	paths := config.NewExperimentPaths(cfg.Paths.Root, "hall-coil")
//	paths.TableFile("20251116")  // <root>/hall-coil/output/data/20251116+output.csv
//	paths.ChartFile("20251116", "png")
package config
