package accesscontrol

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognee-ai/cognee-go/internal/dataset"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// Service enforces authorization rules on top of the Store. The store
// persists grants; the service decides who may create them.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new access control service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Store exposes the underlying store for read operations.
func (s *Service) Store() Store {
	return s.store
}

// CreateDataset creates a dataset owned by the principal and atomically
// grants the creator the full permission set.
func (s *Service) CreateDataset(ctx context.Context, principalID types.ID, name string) (*dataset.Dataset, error) {
	if name == "" {
		return nil, types.NewError(types.ErrCodeValidation, "dataset name cannot be empty")
	}

	ds, err := s.store.CreateDatasetWithGrants(ctx, principalID, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("dataset created",
		"dataset_id", ds.ID.Short(),
		"name", ds.Name,
		"owner_id", principalID.Short(),
	)
	return ds, nil
}

// GivePermission grants a permission on a dataset to a principal on
// behalf of a granting user. Only share-holders may propagate access,
// and that holds transitively: a principal granted share this way may
// grant further, one that was not may not.
func (s *Service) GivePermission(ctx context.Context, granterID, principalID, datasetID types.ID, permission Permission) error {
	allowed, err := s.store.HasPermission(ctx, granterID, datasetID, PermissionShare)
	if err != nil {
		return err
	}
	if !allowed {
		return types.NewPermissionDeniedError(
			fmt.Sprintf("user %s does not hold share permission on dataset %s",
				granterID.Short(), datasetID.Short()))
	}

	if err := s.store.Grant(ctx, principalID, datasetID, permission); err != nil {
		return err
	}

	s.logger.Info("permission granted",
		"granter_id", granterID.Short(),
		"principal_id", principalID.Short(),
		"dataset_id", datasetID.Short(),
		"permission", permission,
	)
	return nil
}

// ResolvePermissions returns every dataset on which the user holds the
// permission directly, through their tenant, or through any role.
func (s *Service) ResolvePermissions(ctx context.Context, userID types.ID, permission Permission) ([]*dataset.Dataset, error) {
	return s.store.ResolveDatasets(ctx, userID, permission)
}

// RequirePermission returns a permission-denied error when the user's
// effective permissions on the dataset do not cover the permission.
// Called before any task runs so denials never leave partial side effects.
func (s *Service) RequirePermission(ctx context.Context, userID, datasetID types.ID, permission Permission) error {
	allowed, err := s.store.HasPermission(ctx, userID, datasetID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return types.NewPermissionDeniedError(
			fmt.Sprintf("user %s does not hold %s permission on dataset %s",
				userID.Short(), permission, datasetID.Short()))
	}
	return nil
}
