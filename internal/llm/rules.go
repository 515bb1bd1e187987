package llm

import (
	"context"
	"strings"
	"unicode"
)

// stopwords are capitalized words that never become entities on
// their own, mostly sentence starters.
var stopwords = map[string]struct{}{
	"A": {}, "An": {}, "The": {}, "This": {}, "That": {}, "These": {},
	"Those": {}, "It": {}, "He": {}, "She": {}, "They": {}, "We": {},
	"I": {}, "You": {}, "In": {}, "On": {}, "At": {}, "And": {},
	"But": {}, "Or": {}, "If": {}, "When": {}, "While": {}, "After": {},
	"Before": {}, "For": {}, "With": {}, "As": {}, "By": {}, "Its": {},
}

// RuleBasedCompleter extracts entities and relations with simple
// deterministic heuristics instead of a model: runs of capitalized
// words become entities, and entities sharing a sentence become
// related. The same text always yields the same payload, which is
// what makes cognify re-runs idempotent without network access.
type RuleBasedCompleter struct{}

// NewRuleBasedCompleter creates the offline completer.
func NewRuleBasedCompleter() *RuleBasedCompleter {
	return &RuleBasedCompleter{}
}

// Name returns "rules".
func (c *RuleBasedCompleter) Name() string { return "rules" }

// Complete answers with the first sentence of the prompt's trailing
// text, a placeholder good enough for offline synthesis.
func (c *RuleBasedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sentences := splitSentences(prompt)
	if len(sentences) == 0 {
		return "", nil
	}
	return sentences[0], nil
}

// ExtractGraph derives a graph payload from the text heuristics.
func (c *RuleBasedCompleter) ExtractGraph(ctx context.Context, text string) (GraphPayload, error) {
	if err := ctx.Err(); err != nil {
		return GraphPayload{}, err
	}

	var payload GraphPayload
	seen := make(map[string]struct{})

	for _, sentence := range splitSentences(text) {
		names := entityNames(sentence)
		for _, name := range names {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				payload.Entities = append(payload.Entities, EntityPayload{
					Name: name,
					Type: "concept",
				})
			}
		}
		// Entities in the same sentence relate pairwise, in reading
		// order, without duplicates.
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				if names[i] != names[j] {
					payload.Relations = appendRelation(payload.Relations, RelationPayload{
						Source: names[i],
						Target: names[j],
						Type:   "RELATES_TO",
					})
				}
			}
		}
	}

	if sentences := splitSentences(text); len(sentences) > 0 {
		payload.Summary = sentences[0]
	}
	return payload, nil
}

func appendRelation(relations []RelationPayload, r RelationPayload) []RelationPayload {
	for _, existing := range relations {
		if existing == r {
			return relations
		}
	}
	return append(relations, r)
}

// entityNames returns runs of capitalized words in the sentence as
// joined names, in order of appearance.
func entityNames(sentence string) []string {
	words := strings.Fields(sentence)
	var names []string
	var run []string

	flush := func() {
		if len(run) == 1 {
			if _, stop := stopwords[run[0]]; stop {
				run = nil
				return
			}
		}
		if len(run) > 0 {
			names = append(names, strings.Join(run, " "))
			run = nil
		}
	}

	for _, word := range words {
		cleaned := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if cleaned != "" && unicode.IsUpper([]rune(cleaned)[0]) {
			run = append(run, cleaned)
			// Trailing punctuation on the original word ends the run.
			if strings.IndexFunc(word, func(r rune) bool { return r == '.' || r == ',' || r == ';' || r == ':' }) >= 0 {
				flush()
			}
			continue
		}
		flush()
	}
	flush()
	return names
}

// splitSentences splits on terminal punctuation, dropping empties.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

var _ Completer = (*RuleBasedCompleter)(nil)
