// Package cognee is the orchestration facade tying the pipeline
// engine, access control, and routed storage together into the four
// public operations: Add, Cognify, Memify, and Search.
package cognee

import (
	"context"
	"log/slog"

	"github.com/cognee-ai/cognee-go/internal/accesscontrol"
	"github.com/cognee-ai/cognee-go/internal/dataset"
	"github.com/cognee-ai/cognee-go/internal/embedder"
	"github.com/cognee-ai/cognee-go/internal/llm"
	"github.com/cognee-ai/cognee-go/internal/pipeline"
	"github.com/cognee-ai/cognee-go/internal/storage"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// Pipeline names as recorded on runs.
const (
	PipelineAdd     = "add"
	PipelineCognify = "cognify"
	PipelineMemify  = "memify"
)

// Deps are the collaborators a Service needs. All are required
// except Logger.
type Deps struct {
	ACL       *accesscontrol.Service
	Datasets  dataset.Store
	Runs      pipeline.RunStore
	Router    storage.Router
	Embedder  embedder.Embedder
	Completer llm.Completer
	Runner    pipeline.Runner
	Logger    *slog.Logger

	// BatchSize and Concurrency tune pipeline tasks. Zero picks
	// defaults.
	BatchSize   int
	Concurrency int

	// ChunkWords caps chunk size in words. Zero picks the default.
	ChunkWords int
}

// Service implements the public cognee operations. Every operation
// resolves permissions before any pipeline task runs, so denials
// never leave partial side effects.
type Service struct {
	acl       *accesscontrol.Service
	datasets  dataset.Store
	runs      pipeline.RunStore
	router    storage.Router
	embedder  embedder.Embedder
	completer llm.Completer
	runner    pipeline.Runner
	logger    *slog.Logger

	batchSize   int
	concurrency int
	chunkWords  int
}

// NewService wires the facade.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	chunkWords := deps.ChunkWords
	if chunkWords <= 0 {
		chunkWords = defaultChunkWords
	}
	return &Service{
		acl:         deps.ACL,
		datasets:    deps.Datasets,
		runs:        deps.Runs,
		router:      deps.Router,
		embedder:    deps.Embedder,
		completer:   deps.Completer,
		runner:      deps.Runner,
		logger:      logger,
		batchSize:   batchSize,
		concurrency: concurrency,
		chunkWords:  chunkWords,
	}
}

// ACL exposes the access control service for permission management.
func (s *Service) ACL() *accesscontrol.Service {
	return s.acl
}

// ensureDataset returns the user's dataset by name, creating it with
// full owner grants when it does not exist yet.
func (s *Service) ensureDataset(ctx context.Context, userID types.ID, name string) (*dataset.Dataset, error) {
	ds, err := s.datasets.GetByName(ctx, userID, name)
	if err == nil {
		return ds, nil
	}
	if !types.IsNotFound(err) {
		return nil, err
	}
	return s.acl.CreateDataset(ctx, userID, name)
}

// routingScope resolves the storage scope for a dataset: the owner's
// tenant when the owner is a user attached to one, the owner itself
// otherwise. Tenant members therefore land in the same physical
// scope while staying separated per dataset.
func (s *Service) routingScope(ctx context.Context, ds *dataset.Dataset) (types.ID, error) {
	owner, err := s.acl.Store().GetUser(ctx, ds.OwnerID)
	if err != nil {
		if types.IsNotFound(err) {
			// Owner is a tenant or role principal; it is its own scope.
			return ds.OwnerID, nil
		}
		return types.ID(""), err
	}
	if !owner.TenantID.IsZero() {
		return owner.TenantID, nil
	}
	return owner.ID, nil
}

// route resolves the dataset's storage handles.
func (s *Service) route(ctx context.Context, ds *dataset.Dataset) (storage.Handles, error) {
	scope, err := s.routingScope(ctx, ds)
	if err != nil {
		return storage.Handles{}, err
	}
	return s.router.Route(ctx, scope, ds.ID)
}

// resolveNamed filters the user's permitted datasets down to the
// requested names. With no names given, all permitted datasets
// qualify. Requested names the user cannot use under the permission
// come back in skipped; asking only for denied or unknown names is
// an error. Unknown and denied names are deliberately
// indistinguishable: resolution never reveals whether a dataset the
// user cannot read exists.
func (s *Service) resolveNamed(ctx context.Context, userID types.ID, names []string, perm accesscontrol.Permission) ([]*dataset.Dataset, []string, error) {
	permitted, err := s.acl.ResolvePermissions(ctx, userID, perm)
	if err != nil {
		return nil, nil, err
	}

	if len(names) == 0 {
		return permitted, nil, nil
	}

	byName := make(map[string]*dataset.Dataset, len(permitted))
	for _, ds := range permitted {
		byName[ds.Name] = ds
	}

	var selected []*dataset.Dataset
	var skipped []string
	for _, name := range names {
		if ds, ok := byName[name]; ok {
			selected = append(selected, ds)
		} else {
			skipped = append(skipped, name)
		}
	}
	if len(selected) == 0 {
		return nil, nil, types.NewPermissionDeniedError(
			"none of the requested datasets are accessible with " + string(perm) + " permission")
	}
	return selected, skipped, nil
}

// Status returns the most recent run of the named pipeline against
// the user's dataset, or nil when it has never run. Requires read.
func (s *Service) Status(ctx context.Context, userID types.ID, datasetName, pipelineName string) (*pipeline.Run, error) {
	ds, err := s.datasets.GetByName(ctx, userID, datasetName)
	if err != nil {
		return nil, err
	}
	if err := s.acl.RequirePermission(ctx, userID, ds.ID, accesscontrol.PermissionRead); err != nil {
		return nil, err
	}
	return s.runs.LatestForDataset(ctx, ds.ID, pipelineName)
}

// DeleteDataset removes a dataset and everything hanging off it: the
// relational rows and the routed graph and vector storage. Requires
// the delete permission.
func (s *Service) DeleteDataset(ctx context.Context, userID, datasetID types.ID) error {
	if err := s.acl.RequirePermission(ctx, userID, datasetID, accesscontrol.PermissionDelete); err != nil {
		return err
	}

	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return err
	}
	scope, err := s.routingScope(ctx, ds)
	if err != nil {
		return err
	}
	if err := s.router.Remove(ctx, scope, datasetID); err != nil {
		return err
	}

	if err := s.datasets.Delete(ctx, datasetID); err != nil {
		return err
	}
	s.logger.Info("dataset deleted",
		"dataset_id", datasetID.Short(),
		"user_id", userID.Short(),
	)
	return nil
}

// EnsureUser resolves a user by email, creating a tenant-less user on
// first sight. This is the explicit default-principal resolver called
// once at the API and CLI boundaries.
func EnsureUser(ctx context.Context, store accesscontrol.Store, email string) (*accesscontrol.User, error) {
	user, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !types.IsNotFound(err) {
		return nil, err
	}
	return store.CreateUser(ctx, email, types.ID(""))
}
