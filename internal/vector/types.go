package vector

import (
	"fmt"
	"time"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// Record is a stored vector with its source text and metadata.
type Record struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Embedding []float64      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewRecord creates a Record with the current timestamp.
func NewRecord(id, content string, embedding []float64, metadata map[string]any) Record {
	return Record{
		ID:        id,
		Content:   content,
		Embedding: embedding,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate ensures the record has an ID, content, and an embedding.
func (r *Record) Validate() error {
	if r.ID == "" {
		return types.NewError(types.ErrCodeValidation, "vector record ID cannot be empty")
	}
	if r.Content == "" {
		return types.NewError(types.ErrCodeValidation, "vector record content cannot be empty")
	}
	if len(r.Embedding) == 0 {
		return types.NewError(types.ErrCodeValidation, "vector record embedding cannot be empty")
	}
	return nil
}

// Query is a similarity search request over pre-computed embeddings.
type Query struct {
	Embedding []float64      `json:"embedding"`
	TopK      int            `json:"top_k"`
	Filters   map[string]any `json:"filters,omitempty"`
	MinScore  float64        `json:"min_score,omitempty"`
}

// Validate ensures the query is well-formed.
func (q *Query) Validate() error {
	if len(q.Embedding) == 0 {
		return types.NewError(types.ErrCodeValidation, "vector query embedding cannot be empty")
	}
	if q.TopK <= 0 {
		return types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("vector query top_k must be greater than 0, got %d", q.TopK))
	}
	if q.MinScore < 0 || q.MinScore > 1 {
		return types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("vector query min_score must be between 0 and 1, got %f", q.MinScore))
	}
	return nil
}

// Result is one search hit with its cosine similarity score.
type Result struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}
