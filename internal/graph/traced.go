package graph

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// TracedStore wraps a Store with OpenTelemetry spans for every
// operation. Safe for concurrent use, delegating to the inner store.
type TracedStore struct {
	inner  Store
	tracer trace.Tracer
}

// NewTracedStore wraps the inner store with tracing.
func NewTracedStore(inner Store, tracer trace.Tracer) *TracedStore {
	return &TracedStore{inner: inner, tracer: tracer}
}

// UpsertNodes traces the node upsert.
func (s *TracedStore) UpsertNodes(ctx context.Context, nodes []Node) error {
	ctx, span := s.tracer.Start(ctx, "cognee.graph.upsert_nodes",
		trace.WithAttributes(attribute.Int("graph.node_count", len(nodes))))
	defer span.End()

	err := s.inner.UpsertNodes(ctx, nodes)
	recordError(span, err)
	return err
}

// UpsertEdges traces the edge upsert.
func (s *TracedStore) UpsertEdges(ctx context.Context, edges []Edge) error {
	ctx, span := s.tracer.Start(ctx, "cognee.graph.upsert_edges",
		trace.WithAttributes(attribute.Int("graph.edge_count", len(edges))))
	defer span.End()

	err := s.inner.UpsertEdges(ctx, edges)
	recordError(span, err)
	return err
}

// GetNode traces the node lookup.
func (s *TracedStore) GetNode(ctx context.Context, id types.ID) (*Node, error) {
	ctx, span := s.tracer.Start(ctx, "cognee.graph.get_node",
		trace.WithAttributes(attribute.String("graph.node_id", id.String())))
	defer span.End()

	node, err := s.inner.GetNode(ctx, id)
	recordError(span, err)
	return node, err
}

// Neighbors traces the neighborhood query.
func (s *TracedStore) Neighbors(ctx context.Context, id types.ID) ([]Node, []Edge, error) {
	ctx, span := s.tracer.Start(ctx, "cognee.graph.neighbors",
		trace.WithAttributes(attribute.String("graph.node_id", id.String())))
	defer span.End()

	nodes, edges, err := s.inner.Neighbors(ctx, id)
	recordError(span, err)
	return nodes, edges, err
}

// ListNodes traces the node listing.
func (s *TracedStore) ListNodes(ctx context.Context, nodeType NodeType) ([]Node, error) {
	ctx, span := s.tracer.Start(ctx, "cognee.graph.list_nodes",
		trace.WithAttributes(attribute.String("graph.node_type", string(nodeType))))
	defer span.End()

	nodes, err := s.inner.ListNodes(ctx, nodeType)
	recordError(span, err)
	return nodes, err
}

// ListEdges traces the edge listing.
func (s *TracedStore) ListEdges(ctx context.Context) ([]Edge, error) {
	ctx, span := s.tracer.Start(ctx, "cognee.graph.list_edges")
	defer span.End()

	edges, err := s.inner.ListEdges(ctx)
	recordError(span, err)
	return edges, err
}

// DeleteAll traces the wipe.
func (s *TracedStore) DeleteAll(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "cognee.graph.delete_all")
	defer span.End()

	err := s.inner.DeleteAll(ctx)
	recordError(span, err)
	return err
}

// Close closes the inner store.
func (s *TracedStore) Close() error {
	return s.inner.Close()
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

var _ Store = (*TracedStore)(nil)
