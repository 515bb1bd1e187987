package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognee-ai/cognee-go/internal/types"
)

func sortedStrings(items []any) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprint(item)
	}
	sort.Strings(out)
	return out
}

// upperTask upper-cases string items. Dispatch round-trips batches
// through JSON, so test tasks stick to JSON-representable values.
func upperTask(batchSize, concurrency int) Task {
	return Task{
		Name:        "upper",
		BatchSize:   batchSize,
		Concurrency: concurrency,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = strings.ToUpper(item.(string))
			}
			return out, nil
		},
	}
}

func prefixTask(batchSize, concurrency int) Task {
	return Task{
		Name:        "prefix",
		BatchSize:   batchSize,
		Concurrency: concurrency,
		Run: func(ctx context.Context, items []any) ([]any, error) {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = "x-" + item.(string)
			}
			return out, nil
		},
	}
}

func wordInput(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = fmt.Sprintf("word%03d", i)
	}
	return items
}

func TestDistributedExecutor_MatchesSequentialEndState(t *testing.T) {
	store, fx := setupRunFixture(t)
	seqDataset := fx.datasetID
	distDataset := fx.createDataset(t, "distributed")

	p := New("transform", upperTask(4, 3), prefixTask(5, 3))

	seq := NewExecutor(store, testLogger())
	seqItems, err := seq.ExecuteSync(context.Background(), p, wordInput(23), seqDataset, fx.userID)
	require.NoError(t, err)

	dispatcher := NewInProcessDispatcher()
	dispatcher.RegisterPipeline(p)
	dist := NewDistributedExecutor(store, dispatcher, testLogger())
	distItems, err := dist.ExecuteSync(context.Background(), p, wordInput(23), distDataset, fx.userID)
	require.NoError(t, err)

	// Distributed mode does not promise item order, only the same
	// resulting set.
	assert.Equal(t, sortedStrings(seqItems), sortedStrings(distItems))

	run, err := store.LatestForDataset(context.Background(), distDataset, "transform")
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, run.Status)
}

func TestDistributedExecutor_SharesConcurrencyGuard(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)

	dispatcher := NewInProcessDispatcher()
	release := make(chan struct{})
	p := New("guarded", Task{Name: "block", BatchSize: 0, Concurrency: 1})
	dispatcher.Register("block", func(ctx context.Context, items []any) ([]any, error) {
		<-release
		return items, nil
	})

	dist := NewDistributedExecutor(store, dispatcher, testLogger())
	events, err := dist.Execute(context.Background(), p, wordInput(1), datasetID, userID)
	require.NoError(t, err)

	// Give the background goroutine time to reach processing, then
	// verify a sequential run of the same pipeline is rejected too.
	seq := NewExecutor(store, testLogger())
	require.Eventually(t, func() bool {
		run, gerr := store.LatestForDataset(context.Background(), datasetID, "guarded")
		return gerr == nil && run != nil && run.Status == RunStatusProcessing
	}, 2*time.Second, 10*time.Millisecond)

	_, err = seq.Execute(context.Background(), p, wordInput(1), datasetID, userID)
	require.Error(t, err)
	assert.True(t, types.IsConflict(err))

	close(release)
	_, err = Collect(events)
	require.NoError(t, err)
}

func TestDistributedExecutor_UnknownTaskFailsRun(t *testing.T) {
	store, datasetID, userID := setupRunStore(t)

	dist := NewDistributedExecutor(store, NewInProcessDispatcher(), testLogger())
	p := New("missing", Task{Name: "nowhere"})

	_, err := dist.ExecuteSync(context.Background(), p, wordInput(2), datasetID, userID)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeTaskExecution, types.CodeOf(err))

	run, err := store.LatestForDataset(context.Background(), datasetID, "missing")
	require.NoError(t, err)
	assert.Equal(t, RunStatusErrored, run.Status)
}

func TestInProcessDispatcher_UnregisteredTask(t *testing.T) {
	dispatcher := NewInProcessDispatcher()
	_, err := dispatcher.Dispatch(context.Background(), "ghost", []any{"a"})
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}

func TestRemoteDispatcher_RoundTrip(t *testing.T) {
	worker := NewInProcessDispatcher()
	worker.Register("upper", upperTask(0, 1).Run)

	server := httptest.NewServer(WorkerHandler(worker))
	defer server.Close()

	remote := NewRemoteDispatcher(server.URL, server.Client())
	items, err := remote.Dispatch(context.Background(), "upper", []any{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, []any{"ALPHA", "BETA"}, items)
}

func TestRemoteDispatcher_RetriesTransientFailures(t *testing.T) {
	worker := NewInProcessDispatcher()
	worker.Register("upper", upperTask(0, 1).Run)

	attempts := 0
	handler := WorkerHandler(worker)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	defer server.Close()

	remote := NewRemoteDispatcher(server.URL, server.Client())
	items, err := remote.Dispatch(context.Background(), "upper", []any{"gamma"})
	require.NoError(t, err)
	assert.Equal(t, []any{"GAMMA"}, items)
	assert.Equal(t, 3, attempts)
}

func TestRemoteDispatcher_WorkerErrorIsPermanent(t *testing.T) {
	worker := NewInProcessDispatcher()
	worker.Register("fail", func(ctx context.Context, items []any) ([]any, error) {
		return nil, errors.New("task rejected the batch")
	})

	server := httptest.NewServer(WorkerHandler(worker))
	defer server.Close()

	remote := NewRemoteDispatcher(server.URL, server.Client())
	_, err := remote.Dispatch(context.Background(), "fail", []any{"a"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeTaskExecution, types.CodeOf(err))
	assert.Contains(t, err.Error(), "task rejected the batch")
}

func TestRetryTransient_GivesUpOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryTransient(ctx, time.Second, func() error {
		calls++
		return errors.New("still failing")
	})
	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
