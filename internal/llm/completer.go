// Package llm defines the structured-completion contract the cognify
// pipeline depends on, with a langchaingo-backed implementation for
// real providers and a deterministic rule-based one for offline use.
package llm

import (
	"context"
	"fmt"

	"github.com/cognee-ai/cognee-go/internal/types"
)

// EntityPayload is one entity extracted from a chunk of text.
type EntityPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RelationPayload is one directed relation between two extracted
// entities, referenced by name.
type RelationPayload struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphPayload is the structured output of graph extraction over one
// chunk of text.
type GraphPayload struct {
	Entities  []EntityPayload   `json:"entities"`
	Relations []RelationPayload `json:"relations"`
	Summary   string            `json:"summary,omitempty"`
}

// Completer produces completions and structured graph extractions.
// Implementations must be safe for concurrent use.
type Completer interface {
	// ExtractGraph pulls entities and relations out of free text.
	ExtractGraph(ctx context.Context, text string) (GraphPayload, error)

	// Complete answers a prompt with free text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name identifies the backing implementation.
	Name() string
}

// Config selects and configures a completer implementation.
type Config struct {
	// Provider is "rules" (deterministic, offline) or "openai".
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// DefaultConfig returns the offline rule-based configuration.
func DefaultConfig() Config {
	return Config{Provider: "rules"}
}

// New creates a completer for the configured provider.
func New(cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "", "rules":
		return NewRuleBasedCompleter(), nil
	case "openai":
		return NewLangchainCompleter(cfg)
	default:
		return nil, types.NewError(types.ErrCodeValidation,
			fmt.Sprintf("unknown llm provider: %q", cfg.Provider))
	}
}
