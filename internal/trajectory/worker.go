package trajectory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/event"
)

// composeJob is a unit of work for the worker pool.
type composeJob struct {
	index int
	event event.SpacetimeEvent
}

// composeResult is the output of a single composition.
type composeResult struct {
	index int
	state compose.ComposedState
	err   error
}

// WorkerPool runs compositions on a fixed number of goroutines.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// ComposeBatch composes every event with c. Results are in input order. The
// first failure cancels the remaining work and is returned.
func (wp *WorkerPool) ComposeBatch(ctx context.Context, c *compose.Composer, events []event.SpacetimeEvent) ([]compose.ComposedState, error) {
	if len(events) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan composeJob, wp.workers*2)
	results := make(chan composeResult, wp.workers*2)

	// Start workers.
	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				state, err := c.Compose(job.event)
				select {
				case results <- composeResult{index: job.index, state: state, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, e := range events {
			select {
			case jobs <- composeJob{index: i, event: e}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	states := make([]compose.ComposedState, len(events))
	var firstErr error
	done := 0
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				wp.logger.Warn("trajectory composition failed",
					"index", result.index,
					"event", events[result.index].String(),
					"error", result.err,
				)
				firstErr = fmt.Errorf("sample %d: %w", result.index, result.err)
				cancel()
			}
			continue
		}
		states[result.index] = result.state
		done++
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil && done < len(events) {
		return nil, err
	}
	return states, nil
}
