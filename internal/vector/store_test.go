package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognee-ai/cognee-go/internal/types"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(4),
		"sqlite": sqliteStore,
	}
}

func TestStore_UpsertAndSearch(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			records := []Record{
				NewRecord("a", "alpha", []float64{1, 0, 0, 0}, map[string]any{"kind": "chunk"}),
				NewRecord("b", "beta", []float64{0, 1, 0, 0}, map[string]any{"kind": "chunk"}),
				NewRecord("c", "gamma", []float64{0.9, 0.1, 0, 0}, map[string]any{"kind": "summary"}),
			}
			require.NoError(t, store.StoreBatch(ctx, records))

			results, err := store.Search(ctx, Query{Embedding: []float64{1, 0, 0, 0}, TopK: 2})
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "a", results[0].Record.ID)
			assert.Equal(t, "c", results[1].Record.ID)

			// Re-storing the same ID updates in place instead of duplicating.
			require.NoError(t, store.Store(ctx, NewRecord("a", "alpha updated", []float64{1, 0, 0, 0}, nil)))
			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			got, err := store.Get(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "alpha updated", got.Content)
		})
	}
}

func TestStore_SearchFilters(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.StoreBatch(ctx, []Record{
				NewRecord("a", "alpha", []float64{1, 0, 0, 0}, map[string]any{"kind": "chunk"}),
				NewRecord("b", "beta", []float64{1, 0, 0, 0}, map[string]any{"kind": "summary"}),
			}))

			results, err := store.Search(ctx, Query{
				Embedding: []float64{1, 0, 0, 0},
				TopK:      10,
				Filters:   map[string]any{"kind": "summary"},
			})
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "b", results[0].Record.ID)
		})
	}
}

func TestStore_DimensionsMismatch(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Store(context.Background(), NewRecord("x", "text", []float64{1, 0}, nil))
			assert.Error(t, err)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "missing")
			assert.True(t, types.IsNotFound(err))
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	store, err := NewSQLiteStore(path, 4)
	require.NoError(t, err)
	require.NoError(t, store.Store(ctx, NewRecord("a", "alpha", []float64{1, 0, 0, 0}, nil)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, 4)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Content)
}
