package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cognee-ai/cognee-go/internal/graph"
	"github.com/cognee-ai/cognee-go/internal/types"
	"github.com/cognee-ai/cognee-go/internal/vector"
)

// IsolatedRouter maps each (scope, dataset) pair to its own storage
// directory:
//
//	<data_root>/<scope-uuid>/<dataset-uuid>/graph.db
//	<data_root>/<scope-uuid>/<dataset-uuid>/vectors.db
//
// The layout is a pure function of the inputs, so a cold-started process
// re-derives every path without a mapping table. The layout is part of
// the on-disk contract, not an implementation detail.
type IsolatedRouter struct {
	root   string
	dims   int
	logger *slog.Logger

	mu      sync.Mutex
	handles map[string]Handles
	// claims records which dataset owns each physical path. A second
	// dataset resolving to a claimed path is an isolation violation.
	claims map[string]string
}

// NewIsolatedRouter creates a router rooted at the given directory.
func NewIsolatedRouter(root string, dims int) *IsolatedRouter {
	if dims <= 0 {
		dims = 256
	}
	return &IsolatedRouter{
		root:    root,
		dims:    dims,
		logger:  slog.Default(),
		handles: make(map[string]Handles),
		claims:  make(map[string]string),
	}
}

// DatasetDir returns the storage directory for a (scope, dataset) pair.
func (r *IsolatedRouter) DatasetDir(scope, datasetID types.ID) string {
	return filepath.Join(r.root, scope.String(), datasetID.String())
}

// Route returns (opening if necessary) the handles for the dataset.
func (r *IsolatedRouter) Route(ctx context.Context, scope, datasetID types.ID) (Handles, error) {
	if err := scope.Validate(); err != nil {
		return Handles{}, types.WrapError(types.ErrCodeValidation, "invalid principal scope", err)
	}
	if err := datasetID.Validate(); err != nil {
		return Handles{}, types.WrapError(types.ErrCodeValidation, "invalid dataset id", err)
	}

	dir := r.DatasetDir(scope, datasetID)
	graphPath := filepath.Join(dir, "graph.db")
	vectorPath := filepath.Join(dir, "vectors.db")

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.claim(graphPath, datasetID); err != nil {
		return Handles{}, err
	}
	if err := r.claim(vectorPath, datasetID); err != nil {
		return Handles{}, err
	}

	if h, ok := r.handles[dir]; ok {
		return h, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Handles{}, fmt.Errorf("failed to create dataset directory: %w", err)
	}

	graphStore, err := graph.NewSQLiteStore(graphPath)
	if err != nil {
		return Handles{}, fmt.Errorf("failed to open graph store: %w", err)
	}

	vectorStore, err := vector.NewSQLiteStore(vectorPath, r.dims)
	if err != nil {
		graphStore.Close()
		return Handles{}, fmt.Errorf("failed to open vector store: %w", err)
	}

	h := Handles{
		Graph:      graphStore,
		Vector:     vectorStore,
		GraphPath:  graphPath,
		VectorPath: vectorPath,
	}
	r.handles[dir] = h
	return h, nil
}

// claim records the dataset as owner of the path. The layout guarantees
// distinct datasets resolve to distinct paths, so a conflicting claim
// signals a correctness bug and possible cross-tenant exposure; it is
// surfaced as a fatal isolation violation, never swallowed.
func (r *IsolatedRouter) claim(path string, datasetID types.ID) error {
	owner, ok := r.claims[path]
	if !ok {
		r.claims[path] = datasetID.String()
		return nil
	}
	if owner != datasetID.String() {
		err := types.NewError(types.ErrCodeIsolationViolation,
			fmt.Sprintf("storage path %s already claimed by dataset %s", path, owner)).
			WithContext("path", path).
			WithContext("claimed_by", owner).
			WithContext("requested_by", datasetID.String())
		r.logger.Error("storage isolation violation",
			"path", path,
			"claimed_by", owner,
			"requested_by", datasetID.String(),
		)
		return err
	}
	return nil
}

// Remove closes the dataset's handles, releases its path claims, and
// deletes its storage directory. Removing a dataset that was never
// routed still deletes whatever is on disk under its directory.
func (r *IsolatedRouter) Remove(ctx context.Context, scope, datasetID types.ID) error {
	if err := scope.Validate(); err != nil {
		return types.WrapError(types.ErrCodeValidation, "invalid principal scope", err)
	}
	if err := datasetID.Validate(); err != nil {
		return types.WrapError(types.ErrCodeValidation, "invalid dataset id", err)
	}

	dir := r.DatasetDir(scope, datasetID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[dir]; ok {
		if err := h.Graph.Close(); err != nil {
			return fmt.Errorf("failed to close graph store: %w", err)
		}
		if err := h.Vector.Close(); err != nil {
			return fmt.Errorf("failed to close vector store: %w", err)
		}
		delete(r.handles, dir)
	}
	delete(r.claims, filepath.Join(dir, "graph.db"))
	delete(r.claims, filepath.Join(dir, "vectors.db"))

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove dataset directory: %w", err)
	}
	return nil
}

// Close closes every open handle.
func (r *IsolatedRouter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, h := range r.handles {
		if err := h.Graph.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := h.Vector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.handles = make(map[string]Handles)
	return firstErr
}

var _ Router = (*IsolatedRouter)(nil)
