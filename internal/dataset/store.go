package dataset

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/database"
	"github.com/cognee-ai/cognee-go/internal/types"
)

// Store provides persistence for datasets and their raw data items.
type Store interface {
	// Get retrieves a dataset by ID
	Get(ctx context.Context, id types.ID) (*Dataset, error)

	// GetByName retrieves a dataset by owner and name
	GetByName(ctx context.Context, ownerID types.ID, name string) (*Dataset, error)

	// ListByOwner retrieves all datasets owned by a principal
	ListByOwner(ctx context.Context, ownerID types.ID) ([]*Dataset, error)

	// Delete removes a dataset and its ACL entries and data items
	Delete(ctx context.Context, id types.ID) error

	// SaveDataItem persists one raw content item; re-saving identical
	// content for the same dataset is a no-op
	SaveDataItem(ctx context.Context, item *DataItem) error

	// ListDataItems retrieves all data items for a dataset in insertion order
	ListDataItems(ctx context.Context, datasetID types.ID) ([]*DataItem, error)
}

// DBStore implements Store using SQLite.
type DBStore struct {
	db *database.DB
}

// NewDBStore creates a new database-backed dataset store.
func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{db: db}
}

// HashContent returns the content hash used for data item identity.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Get retrieves a dataset by ID.
func (s *DBStore) Get(ctx context.Context, id types.ID) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM datasets WHERE id = ?
	`, id.String())

	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError("dataset", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// GetByName retrieves a dataset by owner and name.
func (s *DBStore) GetByName(ctx context.Context, ownerID types.ID, name string) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM datasets WHERE owner_id = ? AND name = ?
	`, ownerID.String(), name)

	ds, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError("dataset", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset by name: %w", err)
	}
	return ds, nil
}

// ListByOwner retrieves all datasets owned by a principal.
func (s *DBStore) ListByOwner(ctx context.Context, ownerID types.ID) ([]*Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM datasets WHERE owner_id = ?
		ORDER BY created_at
	`, ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]*Dataset, 0)
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// Delete removes a dataset. ACL entries, runs, and data items cascade.
func (s *DBStore) Delete(ctx context.Context, id types.ID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return types.NewNotFoundError("dataset", id.String())
	}
	return nil
}

// SaveDataItem persists one raw content item, ignoring duplicates by
// (dataset, content hash).
func (s *DBStore) SaveDataItem(ctx context.Context, item *DataItem) error {
	if item == nil {
		return fmt.Errorf("data item cannot be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO data_items (id, dataset_id, content_hash, content, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (dataset_id, content_hash) DO NOTHING
	`,
		item.ID.String(),
		item.DatasetID.String(),
		item.ContentHash,
		item.Content,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert data item: %w", err)
	}
	return nil
}

// ListDataItems retrieves all data items for a dataset in insertion order.
func (s *DBStore) ListDataItems(ctx context.Context, datasetID types.ID) ([]*DataItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dataset_id, content_hash, content, created_at
		FROM data_items WHERE dataset_id = ?
		ORDER BY created_at, id
	`, datasetID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list data items: %w", err)
	}
	defer rows.Close()

	items := make([]*DataItem, 0)
	for rows.Next() {
		var item DataItem
		var idStr, dsStr string
		if err := rows.Scan(&idStr, &dsStr, &item.ContentHash, &item.Content, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan data item: %w", err)
		}
		item.ID = types.ID(idStr)
		item.DatasetID = types.ID(dsStr)
		items = append(items, &item)
	}
	return items, rows.Err()
}

func scanDataset(scanner interface {
	Scan(dest ...interface{}) error
}) (*Dataset, error) {
	var d Dataset
	var idStr, ownerStr string
	var updatedAt sql.NullTime

	err := scanner.Scan(&idStr, &d.Name, &ownerStr, &d.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var parseErr error
	d.ID, parseErr = types.ParseID(idStr)
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse dataset ID: %w", parseErr)
	}
	d.OwnerID, parseErr = types.ParseID(ownerStr)
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse owner ID: %w", parseErr)
	}

	if updatedAt.Valid {
		d.UpdatedAt = updatedAt.Time
	} else {
		d.UpdatedAt = d.CreatedAt
	}
	return &d, nil
}

// NewDataItem builds a DataItem for raw content with content-derived identity.
func NewDataItem(datasetID types.ID, content string) *DataItem {
	hash := HashContent(content)
	return &DataItem{
		ID:          types.DeriveID(datasetID.String() + ":" + hash),
		DatasetID:   datasetID,
		ContentHash: hash,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
}

var _ Store = (*DBStore)(nil)
