package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeBlockPattern matches fenced markdown blocks with an optional
// language tag.
var codeBlockPattern = regexp.MustCompile(`(?s)` + "```" + `(\w*)\s*\n(.+?)\n` + "```")

// ExtractJSON pulls a JSON object or array out of a model response,
// preferring fenced code blocks over raw braces in prose.
func ExtractJSON(response string) (string, error) {
	for _, match := range codeBlockPattern.FindAllStringSubmatch(response, -1) {
		lang := strings.ToLower(match[1])
		if lang != "" && lang != "json" {
			continue
		}
		content := strings.TrimSpace(match[2])
		if isValidJSON(content) {
			return content, nil
		}
	}

	if content, ok := extractRawJSON(response); ok {
		return content, nil
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// extractRawJSON finds the outermost balanced {...} or [...] span.
func extractRawJSON(response string) (string, bool) {
	for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
		start := strings.IndexByte(response, pair[0])
		if start < 0 {
			continue
		}
		end := strings.LastIndexByte(response, pair[1])
		if end <= start {
			continue
		}
		candidate := strings.TrimSpace(response[start : end+1])
		if isValidJSON(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isValidJSON(s string) bool {
	return json.Valid([]byte(s))
}
