package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"labfit/internal/config"
)

const (
	ServiceName = "labfit"
	MeterName   = "labfit"
)

// Telemetry holds the tracer and the pipeline instruments. A zero-config
// Telemetry is fully functional and records nothing.
type Telemetry struct {
	Tracer trace.Tracer

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registry       *prom.Registry
	traceFile      *os.File
	metricsFile    string
	logger         *slog.Logger

	runsTotal     metric.Int64Counter
	rowsLoaded    metric.Int64Counter
	stageDuration metric.Float64Histogram
}

// NoopTelemetry returns a Telemetry backed by noop providers
func NoopTelemetry() *Telemetry {
	t := &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		logger: GetLogger(),
	}
	// noop instruments never fail to create
	_ = t.createInstruments(metricnoop.NewMeterProvider().Meter(MeterName))
	return t
}

// InitTelemetry sets up tracing and metrics as configured. Tracing writes
// one span per pipeline stage to cfg.TraceFile; metrics are gathered in a
// private Prometheus registry and dumped to cfg.MetricsFile on Shutdown.
func InitTelemetry(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if !cfg.Tracing && cfg.MetricsFile == "" {
		return NoopTelemetry(), nil
	}

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.Bool("tracing_enabled", cfg.Tracing),
		slog.String("trace_file", cfg.TraceFile),
		slog.String("metrics_file", cfg.MetricsFile))

	res := createResource()
	t := &Telemetry{
		Tracer:      tracenoop.NewTracerProvider().Tracer(MeterName),
		metricsFile: cfg.MetricsFile,
		logger:      logger,
	}

	if cfg.Tracing {
		if err := t.initializeTracing(cfg.TraceFile, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	meter := metricnoop.NewMeterProvider().Meter(MeterName)
	if cfg.MetricsFile != "" {
		m, err := t.initializeMetrics(res)
		if err != nil {
			t.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		meter = m
	}

	if err := t.createInstruments(meter); err != nil {
		t.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}

	logger.InfoContext(ctx, "OpenTelemetry initialization complete")
	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
	)
}

// initializeTracing sets up a stdout-format exporter writing to path
func (t *Telemetry) initializeTracing(path string, res *resource.Resource) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create trace directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(file),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	t.traceFile = file
	t.tracerProvider = tp
	t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)
	return nil
}

// initializeMetrics wires the OTel Prometheus exporter to a private registry
func (t *Telemetry) initializeMetrics(res *resource.Resource) (metric.Meter, error) {
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	t.registry = registry
	t.meterProvider = mp
	otel.SetMeterProvider(mp)
	return mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion)), nil
}

func (t *Telemetry) createInstruments(meter metric.Meter) error {
	var err error
	t.runsTotal, err = meter.Int64Counter(
		"labfit_runs_total",
		metric.WithDescription("Total number of experiment runs by outcome"),
	)
	if err != nil {
		return err
	}

	t.rowsLoaded, err = meter.Int64Counter(
		"labfit_rows_loaded_total",
		metric.WithDescription("Total number of measurement rows loaded"),
	)
	if err != nil {
		return err
	}

	t.stageDuration, err = meter.Float64Histogram(
		"labfit_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	return err
}

// StartStage opens a span for one pipeline stage. The returned function
// ends the span and records the stage duration; pass it the stage error.
func (t *Telemetry) StartStage(ctx context.Context, experiment, stage string) (context.Context, func(error)) {
	start := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String("experiment", experiment),
		attribute.String("stage", stage),
	}
	ctx, span := t.Tracer.Start(ctx, "pipeline."+stage, trace.WithAttributes(attrs...))
	if runID := GetRunID(ctx); runID != "" {
		span.SetAttributes(attribute.String("run_id", runID))
	}

	return ctx, func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		t.stageDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(append(attrs, attribute.String("status", status))...))
	}
}

// RecordRows counts loaded measurement rows
func (t *Telemetry) RecordRows(ctx context.Context, experiment string, rows int) {
	t.rowsLoaded.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("experiment", experiment)))
}

// RecordRun counts one finished experiment run
func (t *Telemetry) RecordRun(ctx context.Context, experiment string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment", experiment),
		attribute.String("status", status),
	))
}

// Shutdown flushes spans, writes the metrics textfile and releases files
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.registry != nil && t.metricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
			errs = append(errs, fmt.Errorf("metrics directory: %w", err))
		} else if err := prom.WriteToTextfile(t.metricsFile, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}

	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file: %w", err))
		}
		t.traceFile = nil
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("opentelemetry shutdown errors: %w", err)
	}
	if t.logger != nil && (t.tracerProvider != nil || t.meterProvider != nil) {
		t.logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	}
	return nil
}
