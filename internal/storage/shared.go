package storage

import (
	"context"

	"github.com/cognee-ai/cognee-go/internal/graph"
	"github.com/cognee-ai/cognee-go/internal/types"
	"github.com/cognee-ai/cognee-go/internal/vector"
)

// SharedRouter hands every dataset the same backend pair. This is the
// single-tenant development mode: a legitimate configuration, not a
// degraded error state. Dataset scoping parameters are advisory only in
// this mode.
type SharedRouter struct {
	handles Handles
}

// NewSharedRouter creates a router backed by one in-memory graph and
// vector store shared by all datasets.
func NewSharedRouter(dims int) *SharedRouter {
	if dims <= 0 {
		dims = 256
	}
	return &SharedRouter{
		handles: Handles{
			Graph:      graph.NewMemoryStore(),
			Vector:     vector.NewMemoryStore(dims),
			GraphPath:  "shared://graph",
			VectorPath: "shared://vector",
		},
	}
}

// Route returns the shared handles regardless of scope and dataset.
func (r *SharedRouter) Route(ctx context.Context, scope, datasetID types.ID) (Handles, error) {
	return r.handles, nil
}

// Remove is a no-op: datasets share one backend pair in this mode, so
// there is no per-dataset storage to delete.
func (r *SharedRouter) Remove(ctx context.Context, scope, datasetID types.ID) error {
	return nil
}

// Close closes the shared handles.
func (r *SharedRouter) Close() error {
	if err := r.handles.Graph.Close(); err != nil {
		return err
	}
	return r.handles.Vector.Close()
}

var _ Router = (*SharedRouter)(nil)
