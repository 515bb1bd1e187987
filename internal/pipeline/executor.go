package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourcegraph/conc/pool"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// EventType classifies executor progress events.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventTaskStarted   EventType = "task_started"
	EventTaskCompleted EventType = "task_completed"
	EventRunCompleted  EventType = "run_completed"
	EventRunErrored    EventType = "run_errored"
)

// Event is one progress notification from a running pipeline. The
// terminal event (run_completed or run_errored) carries either the
// output of the last task or the failure.
type Event struct {
	Type  EventType
	RunID types.ID
	Task  string
	Items []any
	Err   error
}

// NewTaskExecutionError wraps a task failure with the task name and
// the index of the batch that failed.
func NewTaskExecutionError(task string, batchIndex int, cause error) *types.Error {
	return types.WrapError(types.ErrCodeTaskExecution,
		fmt.Sprintf("task %q failed on batch %d", task, batchIndex), cause).
		WithContext("task", task).
		WithContext("batch_index", batchIndex)
}

// Executor runs pipelines sequentially against a single dataset:
// tasks execute in order, and although batches within one task may
// run concurrently, their outputs are reassembled in batch order so
// end-to-end item order is preserved.
type Executor struct {
	runs   RunStore
	logger *slog.Logger
}

// NewExecutor creates a sequential executor backed by the given run
// store.
func NewExecutor(runs RunStore, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runs: runs, logger: logger}
}

// Execute registers a run and starts the pipeline in the background,
// returning a channel of progress events. The channel is closed after
// the terminal event. Registration errors, including the conflict
// raised when another run of the same pipeline is already processing
// the dataset, are returned synchronously before any task executes.
func (e *Executor) Execute(ctx context.Context, p Pipeline, input []any, datasetID, principalID types.ID) (<-chan Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for _, t := range p.Tasks {
		if t.Run == nil {
			return nil, types.NewError(types.ErrCodeValidation, fmt.Sprintf("task %q has no body", t.Name))
		}
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
// of the last task.
func (e *Executor) ExecuteSync(ctx context.Context, p Pipeline, input []any, datasetID, principalID types.ID) ([]any, error) {
	events, err := e.Execute(ctx, p, input, datasetID, principalID)
	if err != nil {
		return nil, err
	}
	return Collect(events)
}

// Collect drains an event stream, returning the terminal result.
func Collect(events <-chan Event) ([]any, error) {
	var last Event
	for ev := range events {
		last = ev
	}
	if last.Err != nil {
		return nil, last.Err
	}
	return last.Items, nil
}

func (e *Executor) execute(ctx context.Context, p Pipeline, input []any, run *Run, events chan<- Event) {
	defer close(events)

	log := e.logger.With(
		slog.String("pipeline", p.Name),
		slog.String("run_id", run.ID.Short()),
		slog.String("dataset_id", run.DatasetID.Short()),
	)

	if err := e.runs.MarkProcessing(ctx, run.ID); err != nil {
		log.Error("failed to mark run processing", slog.String("error", err.Error()))
		e.fail(ctx, run, events, err, log)
		return
	}
	events <- Event{Type: EventRunStarted, RunID: run.ID}
	log.Info("pipeline run started", slog.Int("tasks", len(p.Tasks)), slog.Int("items", len(input)))

	items := input
	for _, task := range p.Tasks {
		if err := ctx.Err(); err != nil {
			e.fail(ctx, run, events, types.WrapError(types.ErrCodeCancelled, "pipeline run cancelled", err), log)
			return
		}

		events <- Event{Type: EventTaskStarted, RunID: run.ID, Task: task.Name}
		out, err := runStage(ctx, task, items)
		if err != nil {
			e.fail(ctx, run, events, err, log)
			return
		}
		items = out
		events <- Event{Type: EventTaskCompleted, RunID: run.ID, Task: task.Name}
		log.Debug("task completed", slog.String("task", task.Name), slog.Int("items", len(items)))
	}

	if err := e.runs.MarkCompleted(ctx, run.ID); err != nil {
		log.Error("failed to mark run completed", slog.String("error", err.Error()))
		e.fail(ctx, run, events, err, log)
		return
	}
	events <- Event{Type: EventRunCompleted, RunID: run.ID, Items: items}
	log.Info("pipeline run completed", slog.Int("items", len(items)))
}

// fail records the failure on the run and emits the terminal errored
// event. The run record is updated with a background context so that
// a cancelled run context cannot prevent the status write.
func (e *Executor) fail(ctx context.Context, run *Run, events chan<- Event, cause error, log *slog.Logger) {
	markCtx := ctx
	if markCtx.Err() != nil {
		markCtx = context.Background()
	}
	if err := e.runs.MarkErrored(markCtx, run.ID, cause.Error()); err != nil {
		log.Error("failed to mark run errored", slog.String("error", err.Error()))
	}
	log.Warn("pipeline run errored", slog.String("error", cause.Error()))
	events <- Event{Type: EventRunErrored, RunID: run.ID, Err: cause}
}

// runStage executes one task over its input, batch by batch. Batches
// run with at most task.Concurrency in flight; each writes into its
// own slot so outputs concatenate in batch order regardless of
// completion order.
func runStage(ctx context.Context, task Task, items []any) ([]any, error) {
	batches := batchItems(items, task.BatchSize)
	if len(batches) == 0 {
		return nil, nil
	}

	results := make([][]any, len(batches))

	if task.Concurrency <= 1 || len(batches) == 1 {
		for i, batch := range batches {
			if err := ctx.Err(); err != nil {
				return nil, types.WrapError(types.ErrCodeCancelled, "pipeline run cancelled", err)
			}
			out, err := task.Run(ctx, batch)
			if err != nil {
				return nil, NewTaskExecutionError(task.Name, i, err)
			}
			results[i] = out
		}
		return flatten(results), nil
	}

	workers := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(task.Concurrency)

	for i, batch := range batches {
		i, batch := i, batch
		workers.Go(func(ctx context.Context) error {
			out, err := task.Run(ctx, batch)
			if err != nil {
				return NewTaskExecutionError(task.Name, i, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := workers.Wait(); err != nil {
		if ctx.Err() != nil && types.CodeOf(err) != types.ErrCodeTaskExecution {
			return nil, types.WrapError(types.ErrCodeCancelled, "pipeline run cancelled", err)
		}
		return nil, err
	}
	return flatten(results), nil
}

func flatten(batches [][]any) []any {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	out := make([]any, 0, total)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
