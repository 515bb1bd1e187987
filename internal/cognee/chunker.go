package cognee

import (
	"strings"
	"unicode"
)

// defaultChunkWords caps chunk size. Small enough that one chunk
// stays inside any embedding model's window, large enough to keep
// sentence context together.
const defaultChunkWords = 120

// splitChunks breaks a document into word-bounded chunks, keeping
// sentences together when they fit. Chunking is deterministic: the
// same document always yields the same chunks, which keeps chunk
// identity stable across cognify re-runs.
func splitChunks(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = defaultChunkWords
	}

	var chunks []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = nil
			currentWords = 0
		}
	}

	for _, sentence := range sentences(text) {
		words := len(strings.Fields(sentence))
		if words == 0 {
			continue
		}

		// A sentence longer than the cap becomes its own chunk run,
		// split on word boundaries.
		if words > maxWords {
			flush()
			fields := strings.Fields(sentence)
			for start := 0; start < len(fields); start += maxWords {
				end := start + maxWords
				if end > len(fields) {
					end = len(fields)
				}
				chunks = append(chunks, strings.Join(fields[start:end], " "))
			}
			continue
		}

		if currentWords+words > maxWords {
			flush()
		}
		current = append(current, sentence)
		currentWords += words
	}
	flush()
	return chunks
}

// sentences splits text on terminal punctuation, preserving the
// punctuation mark on each sentence.
func sentences(text string) []string {
	var out []string
	var sb strings.Builder

	for _, r := range text {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(sb.String()); s != "" {
				out = append(out, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// normalizeContent trims whitespace and collapses internal runs of
// spaces, the canonical form used for content hashing.
func normalizeContent(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}
