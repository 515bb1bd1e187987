package storage

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/cognee-ai/cognee-go/internal/graph"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// TracedRouter decorates a Router so every resolved graph handle emits
// OpenTelemetry spans for its operations.
type TracedRouter struct {
	inner  Router
	tracer trace.Tracer
}

// NewTracedRouter wraps the inner router with tracing.
func NewTracedRouter(inner Router, tracer trace.Tracer) *TracedRouter {
	return &TracedRouter{inner: inner, tracer: tracer}
}

// Route resolves handles and wraps the graph store.
func (r *TracedRouter) Route(ctx context.Context, scope, datasetID types.ID) (Handles, error) {
	handles, err := r.inner.Route(ctx, scope, datasetID)
	if err != nil {
		return Handles{}, err
	}
	handles.Graph = graph.NewTracedStore(handles.Graph, r.tracer)
	return handles, nil
}

// Remove delegates to the underlying router.
func (r *TracedRouter) Remove(ctx context.Context, scope, datasetID types.ID) error {
	return r.inner.Remove(ctx, scope, datasetID)
}

// Close closes the underlying router.
func (r *TracedRouter) Close() error {
	return r.inner.Close()
}

var _ Router = (*TracedRouter)(nil)
