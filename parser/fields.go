package parser

import (
	"strconv"
	"strings"
)

// Field helpers: accept a parsed value only when it matches the expected
// shape; callers substitute named defaults otherwise.

// getString returns the first present, non-empty string among keys.
func getString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" && !strings.EqualFold(s, "null") {
					return s, true
				}
			}
		}
	}
	return "", false
}

// getFloat returns the first present numeric value among keys. Numeric
// strings ("7.5", "7.5 tons") are tolerated since models emit both.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, true
		case string:
			if f, ok := parseLeadingFloat(n); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// parseLeadingFloat parses the leading numeric portion of a string.
func parseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && c == '-') {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// getStringSlice accepts a value only when it is actually an array; single
// strings and other shapes are rejected so callers fall back to defaults.
func getStringSlice(m map[string]any, keys ...string) ([]string, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		var out []string
		for _, item := range arr {
			if s, ok := item.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) > 0 {
			return out, true
		}
	}
	return nil, false
}

// getObject returns a nested object value.
func getObject(m map[string]any, keys ...string) (map[string]any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if obj, ok := v.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// getArray returns a nested array value.
func getArray(m map[string]any, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if arr, ok := v.([]any); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

// titleCase uppercases the first letter and lowercases the rest, for enum
// normalization ("ADVANCED" -> "Advanced").
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// normalizeConfidence reconciles the two confidence conventions the model
// mixes (0-1 and 0-100) into the canonical 0-1 scale.
func normalizeConfidence(v float64) float64 {
	if v > 1 {
		v = v / 100
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// confidenceFrom reads a confidence field and returns the canonical 0-1
// score, falling back to def when absent or malformed.
func confidenceFrom(m map[string]any, def float64, keys ...string) float64 {
	if v, ok := getFloat(m, keys...); ok {
		return normalizeConfidence(v)
	}
	return def
}
