package mapping

import (
	"encoding/json"
	"strings"
)

// providerEnvelopeKeys are top-level keys that identify a raw provider
// response object accidentally returned instead of mapped fields. A
// parsed object carrying one of these is useless as domain data.
var providerEnvelopeKeys = []string{
	"generation", "generations", "completion", "completions",
	"candidates", "choices", "content", "output_text",
}

// ParseModelResponse extracts mapped field data from raw model output.
// Models disobey format instructions in predictable ways: code fences,
// prefixed prose, several JSON snippets in one answer. The parser scans
// for balanced top-level objects and keeps the largest syntactically
// valid one with at least one key. Returns nil when nothing usable was
// found or the result is a provider envelope; nil means "fall through
// to keyword mapping", not an error.
func ParseModelResponse(raw string) map[string]any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	s = stripCodeFences(s)

	var best map[string]any
	bestLen := 0
	for _, candidate := range jsonObjectCandidates(s) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
			continue
		}
		if len(obj) == 0 {
			continue
		}
		if len(candidate) > bestLen {
			best = obj
			bestLen = len(candidate)
		}
	}

	if best == nil || isProviderEnvelope(best) {
		return nil
	}
	return best
}

// stripCodeFences removes markdown fence lines, keeping their contents.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// jsonObjectCandidates returns every balanced top-level {...} substring,
// tracking string literals so braces inside values do not miscount.
func jsonObjectCandidates(s string) []string {
	var out []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					out = append(out, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return out
}

// isProviderEnvelope reports whether the object is a raw provider
// response rather than mapped document fields.
func isProviderEnvelope(obj map[string]any) bool {
	for _, key := range providerEnvelopeKeys {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}
