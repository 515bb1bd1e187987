package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// DistributedExecutor runs pipelines stage by stage through a
// WorkerDispatcher. Batches of one stage may complete on any worker
// in any order; the stage barrier waits for all of them before the
// next stage starts, so no task ever consumes items its upstream has
// not produced. It makes no cross-batch ordering promise, but its
// final stores match a sequential run whenever the task bodies are
// order-insensitive.
type DistributedExecutor struct {
	runs       RunStore
	dispatcher WorkerDispatcher
	logger     *slog.Logger
}

// NewDistributedExecutor creates an executor that ships batches
// through the given dispatcher.
func NewDistributedExecutor(runs RunStore, dispatcher WorkerDispatcher, logger *slog.Logger) *DistributedExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DistributedExecutor{runs: runs, dispatcher: dispatcher, logger: logger}
}

// Execute registers a run and starts stage-wise dispatch in the
// background. Same contract as Executor.Execute, minus item ordering.
func (e *DistributedExecutor) Execute(ctx context.Context, p Pipeline, input []any, datasetID, principalID types.ID) (<-chan Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	run := NewRun(p.Name, datasetID, principalID)
	if err := e.runs.Start(ctx, run); err != nil {
		return nil, err
	}

	events := make(chan Event, 2*len(p.Tasks)+2)
	go e.execute(ctx, p, input, run, events)
	return events, nil
}

// ExecuteSync runs the pipeline to completion and returns the output
// of the last stage.
func (e *DistributedExecutor) ExecuteSync(ctx context.Context, p Pipeline, input []any, datasetID, principalID types.ID) ([]any, error) {
	events, err := e.Execute(ctx, p, input, datasetID, principalID)
	if err != nil {
		return nil, err
	}
	return Collect(events)
}

func (e *DistributedExecutor) execute(ctx context.Context, p Pipeline, input []any, run *Run, events chan<- Event) {
	defer close(events)

	log := e.logger.With(
		slog.String("pipeline", p.Name),
		slog.String("run_id", run.ID.Short()),
		slog.String("dataset_id", run.DatasetID.Short()),
	)

	if err := e.runs.MarkProcessing(ctx, run.ID); err != nil {
		e.fail(ctx, run, events, err, log)
		return
	}
	events <- Event{Type: EventRunStarted, RunID: run.ID}
	log.Info("distributed run started", slog.Int("tasks", len(p.Tasks)), slog.Int("items", len(input)))

	items := input
	for _, task := range p.Tasks {
		if err := ctx.Err(); err != nil {
			e.fail(ctx, run, events, types.WrapError(types.ErrCodeCancelled, "pipeline run cancelled", err), log)
			return
		}

		events <- Event{Type: EventTaskStarted, RunID: run.ID, Task: task.Name}
		out, err := e.dispatchStage(ctx, task, items)
		if err != nil {
			e.fail(ctx, run, events, err, log)
			return
		}
		items = out
		events <- Event{Type: EventTaskCompleted, RunID: run.ID, Task: task.Name}
	}

	if err := e.runs.MarkCompleted(ctx, run.ID); err != nil {
		e.fail(ctx, run, events, err, log)
		return
	}
	events <- Event{Type: EventRunCompleted, RunID: run.ID, Items: items}
	log.Info("distributed run completed", slog.Int("items", len(items)))
}

func (e *DistributedExecutor) fail(ctx context.Context, run *Run, events chan<- Event, cause error, log *slog.Logger) {
	markCtx := ctx
	if markCtx.Err() != nil {
		markCtx = context.Background()
	}
	if err := e.runs.MarkErrored(markCtx, run.ID, cause.Error()); err != nil {
		log.Error("failed to mark run errored", slog.String("error", err.Error()))
	}
	log.Warn("distributed run errored", slog.String("error", cause.Error()))
	events <- Event{Type: EventRunErrored, RunID: run.ID, Err: cause}
}

// dispatchStage fans the stage's batches out through the dispatcher
// and collects results in completion order. Wait is the stage
// barrier: in-flight batches run to completion even when a sibling
// batch fails or the context is cancelled mid-stage.
func (e *DistributedExecutor) dispatchStage(ctx context.Context, task Task, items []any) ([]any, error) {
	batches := batchItems(items, task.BatchSize)
	if len(batches) == 0 {
		return nil, nil
	}

	concurrency := task.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu        sync.Mutex
		collected []any
		firstErr  error
	)

	workers := pool.New().WithMaxGoroutines(concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		workers.Go(func() {
			mu.Lock()
			stop := firstErr != nil
			mu.Unlock()
			if stop {
				return
			}

			out, err := e.dispatcher.Dispatch(ctx, task.Name, batch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = NewTaskExecutionError(task.Name, i, err)
				}
				return
			}
			collected = append(collected, out...)
		})
	}
	workers.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, types.WrapError(types.ErrCodeCancelled,
			fmt.Sprintf("cancelled after stage %q barrier", task.Name), err)
	}
	return collected, nil
}
