package jsonx

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/pretty"
)

var (
	// ErrInvalidInput is returned for empty input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNonJSON is returned when the input is recognisably not JSON.
	ErrNonJSON = errors.New("content appears to be non-JSON")
	// ErrNotFound is returned when no strategy produced a document.
	ErrNotFound = errors.New("failed to extract valid JSON")

	errRepairPanic = errors.New("json repair panicked")
)

// Result is the outcome of SafeParse.
type Result struct {
	Success bool
	// Data is the decoded value, or the caller's fallback on failure.
	Data any
	// Raw is the normalised JSON text when Success is true.
	Raw string
	Err error
}

// SafeParse decodes an object or array from text without failing. On failure
// Data holds fallback and Err says why.
func SafeParse(text string, fallback any) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{Data: fallback, Err: ErrInvalidInput}
	}
	if LikelyNonJSON(trimmed) {
		return Result{Data: fallback, Err: ErrNonJSON}
	}

	if raw, ok := ExtractRaw(trimmed); ok {
		var v any
		if json.Unmarshal([]byte(raw), &v) == nil && isContainer(v) {
			return Result{Success: true, Data: v, Raw: raw}
		}
	}

	// Truncated documents still open with a bracket; repair the whole text.
	if trimmed[0] == '{' || trimmed[0] == '[' {
		if v, ok := decodeRepaired(trimmed); ok && isContainer(v) {
			raw, _ := json.Marshal(v)
			return Result{Success: true, Data: v, Raw: string(raw)}
		}
	}
	return Result{Data: fallback, Err: ErrNotFound}
}

// ExtractArray collects every independently parseable object in text,
// looking inside fenced code blocks before scanning the whole text.
func ExtractArray(text string) []any {
	var results []any
	if strings.TrimSpace(text) == "" {
		return results
	}

	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		body := strings.TrimSpace(m[1])
		if v, ok := decodeRepaired(body); ok {
			switch t := v.(type) {
			case []any:
				results = append(results, t...)
				continue
			case map[string]any:
				results = append(results, t)
				continue
			}
		}
		results = append(results, objectLiterals(body)...)
	}

	if len(results) == 0 {
		results = append(results, objectLiterals(text)...)
	}
	return results
}

func objectLiterals(text string) []any {
	var out []any
	for _, lit := range flatObjectLit.FindAllString(text, -1) {
		if v, ok := decodeRepaired(lit); ok && isContainer(v) {
			out = append(out, v)
		}
	}
	return out
}

func decodeRepaired(s string) (any, bool) {
	repaired, err := Repair(s)
	if err != nil {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, false
	}
	return v, true
}

// Indent renders v as two-space indented JSON. Values that cannot be
// marshalled render as an empty string.
func Indent(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  "})), "\n")
}
