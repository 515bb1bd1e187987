package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// Runner executes one pipeline against one dataset. Both the
// sequential and distributed executors satisfy it.
type Runner interface {
	ExecuteSync(ctx context.Context, p Pipeline, input []any, datasetID, principalID types.ID) ([]any, error)
}

// DatasetResult is the outcome of one dataset within a parallel run.
type DatasetResult struct {
	DatasetID types.ID
	Items     []any
	Err       error
}

// RunAcrossDatasets executes one pipeline per dataset concurrently,
// one goroutine each. The build function lets callers close each
// pipeline over that dataset's storage handles. Each dataset gets its
// own run record and its own sequential chain; a failure in one
// dataset does not stop the others. Results come back in input order.
func RunAcrossDatasets(ctx context.Context, runner Runner, build func(types.ID) Pipeline, inputs map[types.ID][]any, datasetIDs []types.ID, principalID types.ID) []DatasetResult {
	results := make([]DatasetResult, len(datasetIDs))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(len(datasetIDs))

	for i, datasetID := range datasetIDs {
		i, datasetID := i, datasetID
		g.Go(func() error {
			items, err := runner.ExecuteSync(ctx, build(datasetID), inputs[datasetID], datasetID, principalID)
			mu.Lock()
			results[i] = DatasetResult{DatasetID: datasetID, Items: items, Err: err}
			mu.Unlock()
			// Per-dataset failures are reported in the result slice,
			// not propagated, so sibling datasets keep running.
			return nil
		})
	}
	_ = g.Wait()

	return results
}
