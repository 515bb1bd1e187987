package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// MemoryStore is an in-memory vector store using brute-force cosine
// search. It backs the shared single-tenant mode and tests; datasets up
// to roughly 100K vectors are fine.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	dims    int
}

// NewMemoryStore creates an in-memory vector store expecting vectors of
// the given width.
func NewMemoryStore(dims int) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		dims:    dims,
	}
}

// Store upserts a single record by ID.
func (s *MemoryStore) Store(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if len(record.Embedding) != s.dims {
		return types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("embedding dimensions mismatch: expected %d, got %d", s.dims, len(record.Embedding)))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

// StoreBatch upserts multiple records, validating all before writing any.
func (s *MemoryStore) StoreBatch(ctx context.Context, records []Record) error {
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
	for _, record := range records {
		s.records[record.ID] = record
	}
	return nil
}

// Search finds the top-K most similar records.
func (s *MemoryStore) Search(ctx context.Context, query Query) ([]Result, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	candidates := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		candidates = append(candidates, record)
	}
	s.mu.RUnlock()

	return rank(candidates, query), nil
}

// Get retrieves a record by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, types.NewNotFoundError("vector_record", id)
	}
	return &record, nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// DeleteAll removes every record.
func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]Record)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
