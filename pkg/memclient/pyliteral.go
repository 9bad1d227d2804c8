package memclient

import (
	"strings"

	"github.com/tidwall/gjson"
)

/*
ParseToolPayload turns the text output of a memory-service tool call into
valid JSON. The service sometimes emits python-literal dictionaries
(single-quoted strings, True/False/None); those are normalized before
parsing. As a last resort the largest balanced {...} substring is
extracted. Returns false when nothing parseable remains; callers treat
that as an empty result, not an error.
*/
func ParseToolPayload(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}

	if gjson.Valid(trimmed) {
		return trimmed, true
	}

	// The normalization pass is heuristic and can corrupt content with
	// apostrophes, so it only runs when the payload actually looks like a
	// python literal.
	if looksLikePythonLiteral(trimmed) {
		normalized := normalizePythonLiteral(trimmed)
		if gjson.Valid(normalized) {
			return normalized, true
		}

		if recovered, ok := largestObject(normalized); ok {
			return recovered, true
		}
	}

	if recovered, ok := largestObject(trimmed); ok {
		return recovered, true
	}

	return "", false
}

func looksLikePythonLiteral(s string) bool {
	return strings.Contains(s, "'") ||
		strings.Contains(s, "True") ||
		strings.Contains(s, "False") ||
		strings.Contains(s, "None")
}

func normalizePythonLiteral(s string) string {
	replacer := strings.NewReplacer(
		"'", `"`,
		"True", "true",
		"False", "false",
		"None", "null",
	)
	return replacer.Replace(s)
}

// largestObject extracts the longest balanced {...} substring that is valid
// JSON.
func largestObject(s string) (string, bool) {
	best := ""

	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}

		depth := 0
		for end := start; end < len(s); end++ {
			switch s[end] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := s[start : end+1]
					if len(candidate) > len(best) && gjson.Valid(candidate) {
						best = candidate
					}
				}
			}
			if depth == 0 && s[end] == '}' {
				break
			}
		}
	}

	return best, best != ""
}
