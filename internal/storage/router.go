// Package storage routes (principal scope, dataset) pairs to the
// concrete graph and vector store handles a pipeline run may touch.
// Routing is consulted once, before any task runs; the resolved handles
// are threaded through the whole run so tasks can never escape their
// dataset's isolation boundary.
package storage

import (
	"context"

	"github.com/cognee-ai/cognee-go/internal/graph"
	"github.com/cognee-ai/cognee-go/internal/types"
	"github.com/cognee-ai/cognee-go/internal/vector"
)

// Handles are the storage endpoints for one dataset.
type Handles struct {
	Graph  graph.Store
	Vector vector.Store

	// GraphPath and VectorPath identify the physical storage units.
	// Distinct datasets must never share either path in isolated mode.
	GraphPath  string
	VectorPath string
}

// Router resolves the storage handles for a (principal scope, dataset)
// pair. Implementations must be safe for concurrent use.
type Router interface {
	// Route returns the handles for the dataset under the given scope.
	// The same inputs always resolve to the same physical location,
	// across process restarts.
	Route(ctx context.Context, scope, datasetID types.ID) (Handles, error)

	// Remove closes the dataset's handles and deletes its physical
	// storage. In shared mode this is a no-op.
	Remove(ctx context.Context, scope, datasetID types.ID) error

	// Close releases all open handles.
	Close() error
}

// Config selects the routing mode.
type Config struct {
	// Isolated enables per-dataset physical isolation. When false the
	// router hands every dataset the same shared backend pair and
	// dataset scoping is advisory only.
	Isolated bool `yaml:"isolated" mapstructure:"isolated"`

	// DataRoot is the directory holding per-scope storage in isolated mode.
	DataRoot string `yaml:"data_root" mapstructure:"data_root"`

	// VectorDimensions is the embedding width for vector stores.
	VectorDimensions int `yaml:"vector_dimensions" mapstructure:"vector_dimensions"`
}

// NewRouter creates a router for the configuration.
func NewRouter(cfg Config) (Router, error) {
	if !cfg.Isolated {
		return NewSharedRouter(cfg.VectorDimensions), nil
	}
	if cfg.DataRoot == "" {
		return nil, types.NewError(types.ErrCodeValidation,
			"data_root is required when isolation is enabled")
	}
	return NewIsolatedRouter(cfg.DataRoot, cfg.VectorDimensions), nil
}
