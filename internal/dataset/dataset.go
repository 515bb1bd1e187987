// Package dataset defines the Dataset entity, the unit of storage
// isolation and permission granting for ingested content and its
// derived knowledge graph.
package dataset

import (
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// Dataset is the ownership and isolation unit. All graph and vector data
// produced by pipelines for a dataset lives behind the storage router
// keyed by (principal scope, dataset id). OwnerID is immutable after
// creation.
type Dataset struct {
	ID        types.ID  `json:"id"`
	Name      string    `json:"name"`
	OwnerID   types.ID  `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a Dataset owned by the given principal.
func New(name string, ownerID types.ID) *Dataset {
	now := time.Now().UTC()
	return &Dataset{
		ID:        types.NewID(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks required fields.
func (d *Dataset) Validate() error {
	if err := d.ID.Validate(); err != nil {
		return fmt.Errorf("invalid dataset id: %w", err)
	}
	if d.Name == "" {
		return fmt.Errorf("dataset name cannot be empty")
	}
	if err := d.OwnerID.Validate(); err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	return nil
}

// DataItem is one piece of raw content ingested into a dataset. Identity
// is derived from the content hash and owner so re-adding identical
// content does not duplicate.
type DataItem struct {
	ID          types.ID  `json:"id"`
	DatasetID   types.ID  `json:"dataset_id"`
	ContentHash string    `json:"content_hash"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}
