package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// WorkerDispatcher sends one batch of one task somewhere for
// execution and returns the transformed batch. Implementations must
// be safe for concurrent use.
type WorkerDispatcher interface {
	Dispatch(ctx context.Context, taskName string, batch []any) ([]any, error)
}

// InProcessDispatcher executes batches by looking the task body up in
// a registry and calling it directly. It is the dispatcher used when
// distributed execution is enabled without remote workers, and the
// reference implementation remote workers must be substitutable for.
type InProcessDispatcher struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// NewInProcessDispatcher creates an empty in-process dispatcher.
func NewInProcessDispatcher() *InProcessDispatcher {
	return &InProcessDispatcher{tasks: make(map[string]TaskFunc)}
}

// Register makes a task body available for dispatch by name.
func (d *InProcessDispatcher) Register(name string, fn TaskFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks[name] = fn
}

// RegisterPipeline registers every task of a pipeline.
func (d *InProcessDispatcher) RegisterPipeline(p Pipeline) {
	for _, t := range p.Tasks {
		if t.Run != nil {
			d.Register(t.Name, t.Run)
		}
	}
}

// Dispatch executes the named task against the batch.
func (d *InProcessDispatcher) Dispatch(ctx context.Context, taskName string, batch []any) ([]any, error) {
	d.mu.RLock()
	fn, ok := d.tasks[taskName]
	d.mu.RUnlock()
	if !ok {
		return nil, types.NewNotFoundError("task", taskName)
	}
	return fn(ctx, batch)
}

// dispatchRequest is the wire format for a remote batch.
type dispatchRequest struct {
	Task  string `json:"task"`
	Batch []any  `json:"batch"`
}

// dispatchResponse is the wire format for a remote result.
type dispatchResponse struct {
	Items []any  `json:"items"`
	Error string `json:"error,omitempty"`
}

// RemoteDispatcher ships batches to a worker endpoint as JSON over
// HTTP POST. Transient failures (network errors, 5xx) are retried
// with exponential backoff; 4xx responses fail immediately.
type RemoteDispatcher struct {
	endpoint   string
	client     *http.Client
	maxElapsed time.Duration
}

// NewRemoteDispatcher creates a dispatcher targeting the given worker
// endpoint.
func NewRemoteDispatcher(endpoint string, client *http.Client) *RemoteDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteDispatcher{
		endpoint:   endpoint,
		client:     client,
		maxElapsed: 2 * time.Minute,
	}
}

// Dispatch posts the batch and decodes the worker's result.
func (d *RemoteDispatcher) Dispatch(ctx context.Context, taskName string, batch []any) ([]any, error) {
	body, err := json.Marshal(dispatchRequest{Task: taskName, Batch: batch})
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	var items []any
	operation := func() error {
		out, err := d.post(ctx, body)
		if err != nil {
			return err
		}
		items = out
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = d.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, types.WrapError(types.ErrCodeTaskExecution,
			fmt.Sprintf("remote dispatch of task %q failed", taskName), err)
	}
	return items, nil
}

func (d *RemoteDispatcher) post(ctx context.Context, body []byte) ([]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("worker returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("worker returned status %d", resp.StatusCode))
	}

	var out dispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode worker response: %w", err)
	}
	if out.Error != "" {
		return nil, backoff.Permanent(fmt.Errorf("worker error: %s", out.Error))
	}
	return out.Items, nil
}

// WorkerHandler returns an http.Handler that serves dispatch requests
// by executing registered tasks, the server half of RemoteDispatcher.
func WorkerHandler(dispatcher *InProcessDispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer io.Copy(io.Discard, r.Body)

		var req dispatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid dispatch request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		items, err := dispatcher.Dispatch(r.Context(), req.Task, req.Batch)
		if err != nil {
			json.NewEncoder(w).Encode(dispatchResponse{Error: err.Error()})
			return
		}
		json.NewEncoder(w).Encode(dispatchResponse{Items: items})
	})
}

var (
	_ WorkerDispatcher = (*InProcessDispatcher)(nil)
	_ WorkerDispatcher = (*RemoteDispatcher)(nil)
)
