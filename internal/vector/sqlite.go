package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// SQLiteStore is a file-backed vector store. One file holds one dataset's
// vectors; its path is derived by the storage router so a restarted
// process finds the same file. Similarity search loads candidates and
// ranks them in Go, which is adequate for per-dataset index sizes.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	dims   int
	closed bool
}

// NewSQLiteStore opens (or creates) the vector store file at path.
func NewSQLiteStore(path string, dims int) (*SQLiteStore, error) {
	if path == "" {
		return nil, types.NewError(types.ErrCodeValidation, "vector store path cannot be empty")
	}
	if dims <= 0 {
		return nil, types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("dimensions must be positive, got %d", dims))
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping vector store: %w", err)
	}

	store := &SQLiteStore{db: db, path: path, dims: dims}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			embedding  TEXT NOT NULL,
			metadata   TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create vectors table: %w", err)
	}
	return nil
}

// Path returns the store's file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Store upserts a single record by ID.
func (s *SQLiteStore) Store(ctx context.Context, record Record) error {
	return s.StoreBatch(ctx, []Record{record})
}

// StoreBatch upserts multiple records in a single transaction.
func (s *SQLiteStore) StoreBatch(ctx context.Context, records []Record) error {
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return types.WrapError(types.ErrCodeValidation,
				fmt.Sprintf("invalid record at index %d", i), err)
		}
		if len(record.Embedding) != s.dims {
			return types.NewError(types.ErrCodeValidation,
				fmt.Sprintf("record %d: embedding dimensions mismatch: expected %d, got %d",
					i, s.dims, len(record.Embedding)))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		embJSON, err := json.Marshal(record.Embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		var metaJSON []byte
		if record.Metadata != nil {
			metaJSON, err = json.Marshal(record.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vectors (id, content, embedding, metadata, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				content = excluded.content,
				embedding = excluded.embedding,
				metadata = excluded.metadata
		`, record.ID, record.Content, string(embJSON), nullableString(metaJSON), record.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert vector %s: %w", record.ID, err)
		}
	}

	return tx.Commit()
}

// Search finds the top-K most similar records.
func (s *SQLiteStore) Search(ctx context.Context, query Query) ([]Result, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return rank(candidates, query), nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, content, embedding, metadata, created_at FROM vectors WHERE id = ?", id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError("vector_record", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vector: %w", err)
	}
	return record, nil
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return count, nil
}

// DeleteAll removes every record.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM vectors"); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

// Close closes the underlying database file.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) loadAll(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, embedding, metadata, created_at FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanRecord(scanner interface {
	Scan(dest ...interface{}) error
}) (*Record, error) {
	var r Record
	var embJSON string
	var metaJSON sql.NullString

	if err := scanner.Scan(&r.ID, &r.Content, &embJSON, &metaJSON, &r.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(embJSON), &r.Embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &r, nil
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

var _ Store = (*SQLiteStore)(nil)
