// Package jsonx recovers structured JSON from free-form completion text.
//
// Extraction runs an ordered chain of strategies and stops at the first one
// that yields a document. Every strategy is a pure function of its input.
package jsonx

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy turns text into a raw JSON document, or reports that it found none.
type Strategy struct {
	Name string
	Fn   func(text string) (string, bool)
}

// Pipeline is the default strategy order used by Extract.
var Pipeline = []Strategy{
	{Name: "direct", Fn: ParseDirect},
	{Name: "fenced", Fn: ParseFenced},
	{Name: "greedy", Fn: ParseGreedy},
	{Name: "key_value", Fn: ParseKeyValue},
}

// ExtractRaw returns the first JSON document found in text, normalised to
// valid JSON.
func ExtractRaw(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	if LikelyNonJSON(trimmed) {
		return "", false
	}
	for _, s := range Pipeline {
		if raw, ok := s.Fn(trimmed); ok {
			return raw, true
		}
	}
	return "", false
}

// Extract returns the decoded value of the first JSON document found in text.
func Extract(text string) (any, bool) {
	raw, ok := ExtractRaw(text)
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	return v, true
}

// ExtractObject is Extract restricted to non-empty JSON objects.
func ExtractObject(text string) (map[string]any, bool) {
	v, ok := Extract(text)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	return m, true
}

// ParseDirect accepts text that is already a complete JSON document.
func ParseDirect(text string) (string, bool) {
	if gjson.Valid(text) {
		return text, true
	}
	return "", false
}

// LooksStructured reports whether s starts with { or [ and ends with the
// matching closer. Objects must also contain a quote and a colon.
func LooksStructured(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) < 2 {
		return false
	}
	last := t[len(t)-1]
	switch t[0] {
	case '{':
		return last == '}' && strings.Contains(t, `"`) && strings.Contains(t, ":")
	case '[':
		return last == ']'
	default:
		return false
	}
}

// isContainer reports whether v decoded from an object or array.
func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}
