// Package embedder generates embedding vectors for chunk and node text.
// Embedding model selection is a pluggable strategy: pipelines depend
// only on the Embedder interface.
package embedder

import (
	"context"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// Embedder generates embedding vectors from text content.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimensionality of embedding vectors.
	Dimensions() int

	// Model returns the name of the embedding model being used.
	Model() string
}

// Config selects and parameterizes the embedder implementation.
type Config struct {
	// Provider selects the implementation: "hash" or "llm".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model names the provider's embedding model, when applicable.
	Model string `yaml:"model" mapstructure:"model"`

	// Dimensions is the vector width for the hash provider.
	Dimensions int `yaml:"dimensions" mapstructure:"dimensions"`
}

// DefaultConfig returns the offline hash embedder configuration.
func DefaultConfig() Config {
	return Config{Provider: "hash", Dimensions: 256}
}

// New creates an embedder for the given configuration.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		dims := cfg.Dimensions
		if dims <= 0 {
			dims = 256
		}
		return NewHashEmbedder(dims), nil
	default:
		return nil, types.NewError(types.ErrCodeValidation,
			"unsupported embedder provider: "+cfg.Provider)
	}
}
