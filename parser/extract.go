package parser

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls a JSON object out of raw model output. Preference order:
// the first fenced code block (language tag and trailing prose tolerated),
// then the first balanced {...} span, then the text as-is.
func ExtractJSON(response string) string {
	cleaned := strings.TrimSpace(response)

	if fenced, ok := extractFencedBlock(cleaned); ok {
		if span, ok := extractBalancedObject(fenced); ok {
			return span
		}
		return fenced
	}

	if span, ok := extractBalancedObject(cleaned); ok {
		return span
	}

	return cleaned
}

// extractFencedBlock returns the contents of the first ``` code block.
func extractFencedBlock(s string) (string, bool) {
	const marker = "```"

	startIdx := strings.Index(s, marker)
	if startIdx == -1 {
		return "", false
	}

	rest := s[startIdx+len(marker):]
	endIdx := strings.Index(rest, marker)
	if endIdx == -1 {
		return "", false
	}
	content := rest[:endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if first == "json" || first == "JSON" || first == "" {
			content = strings.Join(lines[1:], "\n")
		}
	}

	return strings.TrimSpace(content), true
}

// extractBalancedObject finds the first brace-balanced object span. Braces
// inside JSON strings are skipped.
func extractBalancedObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	// Unbalanced; fall back to the widest span so the parse step can try.
	end := strings.LastIndex(s, "}")
	if end > start {
		return strings.TrimSpace(s[start : end+1]), true
	}
	return "", false
}

// parseObject runs the extraction + strict parse sequence, with one more
// brace-extraction pass when the first parse fails.
func parseObject(raw string) (map[string]any, bool) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return nil, false
	}

	candidate := ExtractJSON(cleaned)

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}

	if span, ok := extractBalancedObject(candidate); ok && span != candidate {
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			return obj, true
		}
	}

	return nil, false
}
