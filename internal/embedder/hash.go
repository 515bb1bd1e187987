package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// HashEmbedder produces deterministic embeddings from token hashes.
// It runs fully offline, which makes it the development and test default:
// identical text always embeds to the identical vector, and texts sharing
// tokens land near each other. It is not a semantic model.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a deterministic embedder with the given
// vector width.
func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

// Embed generates a deterministic embedding for the text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dims)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(e.dims)
		sign := 1.0
		if sum[4]%2 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	normalize(vec)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the vector width.
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

// Model returns the embedder name.
func (e *HashEmbedder) Model() string {
	return "hash-v1"
}

func normalize(vec []float64) {
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}

var _ Embedder = (*HashEmbedder)(nil)
