// Package vector provides the per-dataset vector index used by the
// cognify and search pipelines. Each isolated dataset gets its own store
// instance routed to it by the storage router; implementations never see
// more than one dataset's data.
package vector

import (
	"context"
	"math"
	"sort"
)

// Store provides vector similarity search over one dataset's embeddings.
// Implementations must be safe for concurrent use.
type Store interface {
	// Store upserts a single record by ID.
	Store(ctx context.Context, record Record) error

	// StoreBatch upserts multiple records.
	StoreBatch(ctx context.Context, records []Record) error

	// Search finds the top-K most similar records by cosine similarity.
	Search(ctx context.Context, query Query) ([]Result, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error

	// Close releases all resources.
	Close() error
}

// cosineSimilarity computes the cosine similarity of two vectors,
// returning 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// matchesFilters reports whether the record's metadata matches every
// filter entry.
func matchesFilters(record Record, filters map[string]any) bool {
	for key, want := range filters {
		got, ok := record.Metadata[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// rank scores candidates against the query and returns the top-K above
// the minimum score, highest first.
func rank(candidates []Record, query Query) []Result {
	results := make([]Result, 0, len(candidates))
	for _, record := range candidates {
		if !matchesFilters(record, query.Filters) {
			continue
		}
		score := cosineSimilarity(query.Embedding, record.Embedding)
		if score < query.MinScore {
			continue
		}
		results = append(results, Result{Record: record, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > query.TopK {
		results = results[:query.TopK]
	}
	return results
}
