package graph

import (
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// NodeType labels an entity in the knowledge graph.
type NodeType string

const (
	NodeTypeDocument NodeType = "Document"
	NodeTypeChunk    NodeType = "Chunk"
	NodeTypeEntity   NodeType = "Entity"
	NodeTypeSummary  NodeType = "Summary"
	NodeTypeDerived  NodeType = "Derived"
)

// EdgeType labels a relationship between nodes.
type EdgeType string

const (
	EdgeTypeContains     EdgeType = "CONTAINS"
	EdgeTypeMentions     EdgeType = "MENTIONS"
	EdgeTypeRelatesTo    EdgeType = "RELATES_TO"
	EdgeTypeSummarizes   EdgeType = "SUMMARIZES"
	EdgeTypeCoOccursWith EdgeType = "CO_OCCURS_WITH"
)

// Node is one vertex in a dataset's knowledge graph. Node identity is
// content-derived for the nodes produced by cognify, so re-running the
// pipeline upserts rather than duplicates.
type Node struct {
	ID         types.ID       `json:"id"`
	Type       NodeType       `json:"type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewNode creates a node with a content-derived ID.
func NewNode(nodeType NodeType, name string) Node {
	now := time.Now().UTC()
	return Node{
		ID:        types.DeriveID(string(nodeType) + ":" + name),
		Type:      nodeType,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the node's required fields.
func (n *Node) Validate() error {
	if err := n.ID.Validate(); err != nil {
		return fmt.Errorf("invalid node id: %w", err)
	}
	if n.Type == "" {
		return fmt.Errorf("node type cannot be empty")
	}
	if n.Name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	return nil
}

// Edge is one directed relationship. Identity is (source, target, type).
type Edge struct {
	SourceID   types.ID       `json:"source_id"`
	TargetID   types.ID       `json:"target_id"`
	Type       EdgeType       `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewEdge creates an edge between two nodes.
func NewEdge(sourceID, targetID types.ID, edgeType EdgeType) Edge {
	return Edge{
		SourceID:  sourceID,
		TargetID:  targetID,
		Type:      edgeType,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the edge's required fields.
func (e *Edge) Validate() error {
	if err := e.SourceID.Validate(); err != nil {
		return fmt.Errorf("invalid edge source id: %w", err)
	}
	if err := e.TargetID.Validate(); err != nil {
		return fmt.Errorf("invalid edge target id: %w", err)
	}
	if e.Type == "" {
		return fmt.Errorf("edge type cannot be empty")
	}
	return nil
}
