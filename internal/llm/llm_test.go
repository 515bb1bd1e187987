package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "fenced json block",
			response: "Here you go:\n```json\n{\"entities\": []}\n```\nDone.",
			want:     `{"entities": []}`,
		},
		{
			name:     "fenced block without language",
			response: "```\n{\"a\": 1}\n```",
			want:     `{"a": 1}`,
		},
		{
			name:     "raw object in prose",
			response: `The result is {"a": 1} as requested.`,
			want:     `{"a": 1}`,
		},
		{
			name:     "raw array",
			response: `[1, 2, 3]`,
			want:     `[1, 2, 3]`,
		},
		{
			name:     "skips non-json fenced block",
			response: "```python\nprint('hi')\n```\n{\"ok\": true}",
			want:     `{"ok": true}`,
		},
		{
			name:     "no json at all",
			response: "I cannot help with that.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleBasedCompleter_ExtractGraph(t *testing.T) {
	c := NewRuleBasedCompleter()
	ctx := context.Background()

	payload, err := c.ExtractGraph(ctx,
		"Marie Curie worked in Paris. The laboratory hosted Pierre Curie.")
	require.NoError(t, err)

	names := make([]string, len(payload.Entities))
	for i, e := range payload.Entities {
		names[i] = e.Name
	}
	assert.Contains(t, names, "Marie Curie")
	assert.Contains(t, names, "Paris")
	assert.Contains(t, names, "Pierre Curie")
	assert.NotContains(t, names, "The")

	require.NotEmpty(t, payload.Relations)
	assert.Equal(t, RelationPayload{
		Source: "Marie Curie", Target: "Paris", Type: "RELATES_TO",
	}, payload.Relations[0])
	assert.Equal(t, "Marie Curie worked in Paris", payload.Summary)
}

func TestRuleBasedCompleter_Deterministic(t *testing.T) {
	c := NewRuleBasedCompleter()
	ctx := context.Background()
	text := "Alice met Bob in Berlin. Bob knows Carol."

	first, err := c.ExtractGraph(ctx, text)
	require.NoError(t, err)
	second, err := c.ExtractGraph(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRuleBasedCompleter_NoDuplicateEntities(t *testing.T) {
	c := NewRuleBasedCompleter()

	payload, err := c.ExtractGraph(context.Background(),
		"Berlin is large. Berlin is old. Berlin has museums.")
	require.NoError(t, err)

	count := 0
	for _, e := range payload.Entities {
		if e.Name == "Berlin" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestNew_ProviderSelection(t *testing.T) {
	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "rules", c.Name())

	_, err = New(Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
}
