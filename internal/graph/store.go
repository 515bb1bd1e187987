// Package graph provides the per-dataset knowledge graph store. Like the
// vector index, each isolated dataset gets its own store instance from
// the storage router; a store never holds more than one dataset's graph.
package graph

import (
	"context"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// Store persists one dataset's knowledge graph.
// Implementations must be safe for concurrent use.
type Store interface {
	// UpsertNodes inserts or updates nodes by ID.
	UpsertNodes(ctx context.Context, nodes []Node) error

	// UpsertEdges inserts or updates edges by (source, target, type).
	// Both endpoints must already exist.
	UpsertEdges(ctx context.Context, edges []Edge) error

	// GetNode retrieves a node by ID.
	GetNode(ctx context.Context, id types.ID) (*Node, error)

	// Neighbors returns nodes directly connected to the given node,
	// following edges in either direction.
	Neighbors(ctx context.Context, id types.ID) ([]Node, []Edge, error)

	// ListNodes returns all nodes, optionally filtered by type.
	// An empty nodeType returns every node.
	ListNodes(ctx context.Context, nodeType NodeType) ([]Node, error)

	// ListEdges returns all edges.
	ListEdges(ctx context.Context) ([]Edge, error)

	// DeleteAll removes every node and edge.
	DeleteAll(ctx context.Context) error

	// Close releases all resources.
	Close() error
}
