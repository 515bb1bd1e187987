// Package pipeline implements the task execution engine: composable
// pipelines of batch-processing tasks, a persisted run tracker with a
// single-active-run guard, and sequential, parallel, and distributed
// execution strategies.
package pipeline

import (
	"context"
	"fmt"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// TaskFunc transforms a batch of items into zero or more output items.
// The output of one task feeds the next task in the pipeline.
type TaskFunc func(ctx context.Context, items []any) ([]any, error)

// Task is an immutable descriptor for one pipeline stage.
type Task struct {
	// Name identifies the task in run records and error reports. In
	// distributed mode it is the dispatch key, so it must be unique
	// within a pipeline and stable across workers.
	Name string

	// Run is the task body. Nil only when the task is executed through
	// a remote dispatcher that resolves the body by name.
	Run TaskFunc

	// BatchSize caps how many upstream items are passed to Run per
	// call. Zero means the whole upstream output in one batch.
	BatchSize int

	// Concurrency is the maximum number of batches of this task that
	// may be in flight at once. Zero or one means serial.
	Concurrency int
}

// Validate checks the task descriptor.
func (t Task) Validate() error {
	if t.Name == "" {
		return types.NewError(types.ErrCodeValidation, "task name cannot be empty")
	}
	if t.BatchSize < 0 {
		return types.NewError(types.ErrCodeValidation, fmt.Sprintf("task %q: batch size cannot be negative", t.Name))
	}
	if t.Concurrency < 0 {
		return types.NewError(types.ErrCodeValidation, fmt.Sprintf("task %q: concurrency cannot be negative", t.Name))
	}
	return nil
}

// Pipeline is an ordered composition of tasks. It carries no state;
// all run state lives on Run records.
type Pipeline struct {
	Name  string
	Tasks []Task
}

// New creates a pipeline from the given tasks.
func New(name string, tasks ...Task) Pipeline {
	return Pipeline{Name: name, Tasks: tasks}
}

// Validate checks the pipeline and every task in it.
func (p Pipeline) Validate() error {
	if p.Name == "" {
		return types.NewError(types.ErrCodeValidation, "pipeline name cannot be empty")
	}
	if len(p.Tasks) == 0 {
		return types.NewError(types.ErrCodeValidation, fmt.Sprintf("pipeline %q has no tasks", p.Name))
	}
	seen := make(map[string]struct{}, len(p.Tasks))
	for _, t := range p.Tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return types.NewError(types.ErrCodeValidation, fmt.Sprintf("pipeline %q has duplicate task %q", p.Name, t.Name))
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}

// batchItems splits items into chunks of at most size elements. A size
// of zero yields a single batch containing everything.
func batchItems(items []any, size int) [][]any {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]any{items}
	}
	batches := make([][]any, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
