package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/cognee-ai/cognee-go/internal/types"
)

const extractPrompt = `Extract the knowledge graph from the text below.
Respond with a single JSON object of this exact shape and nothing else:
{"entities": [{"name": "...", "type": "..."}], "relations": [{"source": "...", "target": "...", "type": "..."}], "summary": "..."}

Entity types: person, organization, location, concept, event.
Relation types: RELATES_TO, PART_OF, LOCATED_IN, WORKS_FOR.
The summary is one sentence.

Text:
%s`

// LangchainCompleter adapts a langchaingo chat model to the Completer
// contract.
type LangchainCompleter struct {
	model llms.Model
	name  string
}

// NewLangchainCompleter builds an OpenAI-backed completer.
func NewLangchainCompleter(cfg Config) (*LangchainCompleter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, types.NewError(types.ErrCodeValidation, "openai provider requires an API key")
	}

	opts := []openai.Option{openai.WithToken(apiKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &LangchainCompleter{model: client, name: "openai"}, nil
}

// NewLangchainCompleterWithModel wraps an existing model, used by
// tests to plug in a fake.
func NewLangchainCompleterWithModel(model llms.Model, name string) *LangchainCompleter {
	return &LangchainCompleter{model: model, name: name}
}

// Name returns the provider name.
func (c *LangchainCompleter) Name() string { return c.name }

// Complete answers a prompt with a single text completion.
func (c *LangchainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return out, nil
}

// ExtractGraph prompts the model for a JSON graph and parses it,
// tolerating markdown fencing around the payload.
func (c *LangchainCompleter) ExtractGraph(ctx context.Context, text string) (GraphPayload, error) {
	raw, err := c.Complete(ctx, fmt.Sprintf(extractPrompt, text))
	if err != nil {
		return GraphPayload{}, err
	}

	jsonStr, err := ExtractJSON(raw)
	if err != nil {
		return GraphPayload{}, fmt.Errorf("model response contained no graph JSON: %w", err)
	}

	var payload GraphPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return GraphPayload{}, fmt.Errorf("failed to parse graph JSON: %w", err)
	}
	return payload, nil
}

var _ Completer = (*LangchainCompleter)(nil)
