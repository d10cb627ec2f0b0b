package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	experimentKey
)

// GenerateRunID creates a new unique run ID using UUID v4
func GenerateRunID() string {
	return uuid.New().String()
}

// NewRunContext returns ctx tagged with a fresh run ID. The ID only
// correlates log records and spans; it never reaches report artifacts.
func NewRunContext(ctx context.Context) context.Context {
	return WithRunID(ctx, GenerateRunID())
}

// EnsureRunID keeps an existing run ID and adds one otherwise
func EnsureRunID(ctx context.Context) context.Context {
	if GetRunID(ctx) == "" {
		return NewRunContext(ctx)
	}
	return ctx
}

// WithRunID tags ctx with runID
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID returns the run ID of ctx, or ""
func GetRunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithExperiment tags ctx with the experiment being run
func WithExperiment(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, experimentKey, name)
}

// GetExperiment returns the experiment of ctx, or ""
func GetExperiment(ctx context.Context) string {
	name, _ := ctx.Value(experimentKey).(string)
	return name
}
