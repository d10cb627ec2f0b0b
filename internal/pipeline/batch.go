package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "labfit/internal/errors"
)

// BatchResult collects the outcome of every experiment in a batch
type BatchResult struct {
	Results map[string]*Result
	Errors  map[string]error
	// Order is the order experiments were given in
	Order []string
}

// Failed returns the names of failed experiments in batch order
func (b *BatchResult) Failed() []string {
	var names []string
	for _, name := range b.Order {
		if b.Errors[name] != nil {
			names = append(names, name)
		}
	}
	return names
}

// RunBatch runs independent experiments with at most workers in flight.
// A failing experiment does not stop the others; the returned error joins
// every failure.
func RunBatch(ctx context.Context, exps []*Experiment, opts Options, workers int) (*BatchResult, error) {
	if opts.Input != "" {
		return nil, apperrors.NewConfigError("an input override applies to a single experiment, not a batch", nil)
	}
	if workers < 1 {
		workers = 1
	}

	batch := &BatchResult{
		Results: make(map[string]*Result, len(exps)),
		Errors:  make(map[string]error),
	}
	for _, exp := range exps {
		batch.Order = append(batch.Order, exp.Name)
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)

	for _, exp := range exps {
		g.Go(func() error {
			res, err := Run(ctx, exp, opts)

			mu.Lock()
			defer mu.Unlock()
			batch.Results[exp.Name] = res
			if err != nil {
				batch.Errors[exp.Name] = err
			}
			return nil
		})
	}
	g.Wait()

	var errs []error
	for _, name := range batch.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", name, batch.Errors[name]))
	}

	slog.InfoContext(ctx, "Batch completed",
		slog.Int("experiments", len(exps)),
		slog.Int("failed", len(errs)),
		slog.Int("workers", workers))
	return batch, errors.Join(errs...)
}
