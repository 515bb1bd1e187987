package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognee-ai/cognee-go/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// intRange returns []any{0, 1, ..., n-1}.
func intRange(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func doubleTask(name string, batchSize, concurrency int) Task {
	return Task{
		Name:        name,
		BatchSize:   batchSize,
		Concurrency: concurrency,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = item.(int) * 2
			}
			return out, nil
		},
	}
}

func TestExecutor_PreservesItemOrder(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)
	exec := NewExecutor(store, testLogger())

	// Uneven batch sizes and high concurrency across both stages;
	// output must still line up with input order.
	p := New("ordered",
		doubleTask("double", 3, 8),
		Task{
			Name:        "label",
			BatchSize:   4,
			Concurrency: 8,
			Run: func(ctx context.Context, items []any) ([]any, error) {
				out := make([]any, len(items))
				for i, item := range items {
					out[i] = fmt.Sprintf("item-%04d", item.(int))
				}
				return out, nil
			},
		},
	)

	items, err := exec.ExecuteSync(context.Background(), p, intRange(50), datasetID, userID)
	require.NoError(t, err)
	require.Len(t, items, 50)
	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("item-%04d", i*2), item)
	}

	run, err := store.LatestForDataset(context.Background(), datasetID, "ordered")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusCompleted, run.Status)
}

func TestExecutor_EventStream(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)
	exec := NewExecutor(store, testLogger())

	p := New("events", doubleTask("double", 0, 1))
	events, err := exec.Execute(context.Background(), p, intRange(4), datasetID, userID)
	require.NoError(t, err)

	var seen []EventType
	var final Event
	for ev := range events {
		seen = append(seen, ev.Type)
		final = ev
	}

	assert.Equal(t, []EventType{
		EventRunStarted, EventTaskStarted, EventTaskCompleted, EventRunCompleted,
	}, seen)
	assert.Len(t, final.Items, 4)
	assert.NoError(t, final.Err)
}

func TestExecutor_TaskFailureMarksRunErrored(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)
	exec := NewExecutor(store, testLogger())

	boom := errors.New("boom")
	p := New("failing",
		doubleTask("double", 2, 1),
		Task{
			Name:      "explode",
			BatchSize: 2,
			Run: func(ctx context.Context, items []any) ([]any, error) {
				if items[0].(int) >= 8 {
					return nil, boom
				}
				return items, nil
			},
		},
	)

	_, err := exec.ExecuteSync(context.Background(), p, intRange(10), datasetID, userID)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeTaskExecution, types.CodeOf(err))
	assert.ErrorIs(t, err, boom)

	var typed *types.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "explode", typed.Context["task"])
	assert.Equal(t, 4, typed.Context["batch_index"])

	run, err := store.LatestForDataset(context.Background(), datasetID, "failing")
	require.NoError(t, err)
	assert.Equal(t, RunStatusErrored, run.Status)
	assert.Contains(t, run.Error, "explode")
}

func TestExecutor_BackToBackExecuteRejectsSecond(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)
	exec := NewExecutor(store, testLogger())

	release := make(chan struct{})
	p := New("cognify", Task{
		Name: "hold",
		Run: func(ctx context.Context, items []any) ([]any, error) {
			<-release
			return items, nil
		},
	})

	events, err := exec.Execute(context.Background(), p, intRange(1), datasetID, userID)
	require.NoError(t, err)

	// The second invocation races the first run's promotion from
	// queued to processing. Whichever state the first run is in, the
	// second must be rejected before any of its tasks execute.
	_, err = exec.Execute(context.Background(), p, intRange(1), datasetID, userID)
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))

	close(release)
	out, err := Collect(events)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestExecutor_ConcurrentRunRejected(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)
	exec := NewExecutor(store, testLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	p := New("guarded", Task{
		Name: "block",
		Run: func(ctx context.Context, items []any) ([]any, error) {
			once.Do(func() { close(started) })
			<-release
			return items, nil
		},
	})

	events, err := exec.Execute(context.Background(), p, intRange(1), datasetID, userID)
	require.NoError(t, err)
	<-started

	// The first run holds the processing slot, so a second invocation
	// is rejected before any of its tasks execute.
	_, err = exec.Execute(context.Background(), p, intRange(1), datasetID, userID)
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))

	close(release)
	_, err = Collect(events)
	require.NoError(t, err)

	// Terminal state frees the slot.
	_, err = exec.ExecuteSync(context.Background(), p, intRange(1), datasetID, userID)
	require.NoError(t, err)
}

func TestExecutor_CancellationBetweenBatches(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)
	exec := NewExecutor(store, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	p := New("cancelled", Task{
		Name:      "slow",
		BatchSize: 1,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			if items[0].(int) == 2 {
				cancel()
			}
			return items, nil
		},
	})

	_, err := exec.ExecuteSync(ctx, p, intRange(10), datasetID, userID)
	require.Error(t, err)
	assert.True(t, types.IsCancelled(err), "expected cancelled code, got %v", err)

	// The run record is written despite the dead context.
	run, err := store.LatestForDataset(context.Background(), datasetID, "cancelled")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, RunStatusErrored, run.Status)
}

func TestExecutor_ValidationErrors(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)
	exec := NewExecutor(store, testLogger())

	_, err := exec.Execute(context.Background(), New("empty"), nil, datasetID, userID)
	require.Error(t, err)

	_, err = exec.Execute(context.Background(),
		New("bodyless", Task{Name: "ghost"}), nil, datasetID, userID)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeValidation, types.CodeOf(err))
}

func TestRunAcrossDatasets_IsolatesFailures(t *testing.T) {
	store, fx := setupRunFixture(t)
	exec := NewExecutor(store, testLogger())

	datasetID := fx.datasetID
	userID := fx.userID
	secondID := fx.createDataset(t, "second")

	p := New("mixed", Task{
		Name: "maybe-fail",
		Run: func(ctx context.Context, items []any) ([]any, error) {
			if len(items) > 0 && items[0] == "fail" {
				return nil, errors.New("bad dataset")
			}
			return items, nil
		},
	})

	inputs := map[types.ID][]any{
		datasetID: {"ok-1", "ok-2"},
		secondID:  {"fail"},
	}
	build := func(types.ID) Pipeline { return p }
	results := RunAcrossDatasets(context.Background(), exec, build, inputs,
		[]types.ID{datasetID, secondID}, userID)

	require.Len(t, results, 2)
	assert.Equal(t, datasetID, results[0].DatasetID)
	require.NoError(t, results[0].Err)
	assert.Len(t, results[0].Items, 2)

	assert.Equal(t, secondID, results[1].DatasetID)
	require.Error(t, results[1].Err)
	assert.Equal(t, types.ErrCodeTaskExecution, types.CodeOf(results[1].Err))
}
