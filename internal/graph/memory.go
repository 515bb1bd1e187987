package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// MemoryStore is an in-memory graph store for the shared single-tenant
// mode and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[types.ID]Node
	edges map[edgeKey]Edge
}

type edgeKey struct {
	source types.ID
	target types.ID
	typ    EdgeType
}

// NewMemoryStore creates an empty in-memory graph store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[types.ID]Node),
		edges: make(map[edgeKey]Edge),
	}
}

// UpsertNodes inserts or updates nodes by ID.
func (s *MemoryStore) UpsertNodes(ctx context.Context, nodes []Node) error {
	for i := range nodes {
		if err := nodes[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, node := range nodes {
		if existing, ok := s.nodes[node.ID]; ok {
			node.CreatedAt = existing.CreatedAt
		}
		s.nodes[node.ID] = node
	}
	return nil
}

// UpsertEdges inserts or updates edges by (source, target, type).
func (s *MemoryStore) UpsertEdges(ctx context.Context, edges []Edge) error {
	for i := range edges {
		if err := edges[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, edge := range edges {
		s.edges[edgeKey{edge.SourceID, edge.TargetID, edge.Type}] = edge
	}
	return nil
}

// GetNode retrieves a node by ID.
func (s *MemoryStore) GetNode(ctx context.Context, id types.ID) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, types.NewNotFoundError("node", id.String())
	}
	return &node, nil
}

// Neighbors returns nodes directly connected to the given node.
func (s *MemoryStore) Neighbors(ctx context.Context, id types.ID) ([]Node, []Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	neighborIDs := make(map[types.ID]bool)
	edges := make([]Edge, 0)
	for key, edge := range s.edges {
		if key.source == id {
			neighborIDs[key.target] = true
			edges = append(edges, edge)
		} else if key.target == id {
			neighborIDs[key.source] = true
			edges = append(edges, edge)
		}
	}

	nodes := make([]Node, 0, len(neighborIDs))
	for nid := range neighborIDs {
		if node, ok := s.nodes[nid]; ok {
			nodes = append(nodes, node)
		}
	}
	sortNodes(nodes)
	return nodes, edges, nil
}

// ListNodes returns all nodes, optionally filtered by type.
func (s *MemoryStore) ListNodes(ctx context.Context, nodeType NodeType) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		if nodeType == "" || node.Type == nodeType {
			nodes = append(nodes, node)
		}
	}
	sortNodes(nodes)
	return nodes, nil
}

// ListEdges returns all edges.
func (s *MemoryStore) ListEdges(ctx context.Context) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]Edge, 0, len(s.edges))
	for _, edge := range s.edges {
		edges = append(edges, edge)
	}
	return edges, nil
}

// DeleteAll removes every node and edge.
func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = make(map[types.ID]Node)
	s.edges = make(map[edgeKey]Edge)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
}

var _ Store = (*MemoryStore)(nil)
