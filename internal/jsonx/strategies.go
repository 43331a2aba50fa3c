package jsonx

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:[A-Za-z]+)?\\s*(.*?)\\s*```")
	greedyObject  = regexp.MustCompile(`(?s)\{.*\}`)
	greedyArray   = regexp.MustCompile(`(?s)\[.*\]`)
	keyValuePair  = regexp.MustCompile(`"[^"]*"\s*:\s*("[^"]*"|\d+|true|false|null|\{[^}]*\}|\[[^\]]*\])`)
	flatObjectLit = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

// Repair runs a permissive JSON repair over s. It never panics.
func Repair(s string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", errRepairPanic
		}
	}()
	return jsonrepair.JSONRepair(s)
}

// candidate validates a span, repairing it first when it is not already valid.
func candidate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if LooksStructured(s) && json.Valid([]byte(s)) {
		return s, true
	}
	repaired, err := Repair(s)
	if err != nil {
		return "", false
	}
	repaired = strings.TrimSpace(repaired)
	if LooksStructured(repaired) && json.Valid([]byte(repaired)) {
		return repaired, true
	}
	return "", false
}

// ParseFenced tries the body of every fenced code block in order.
func ParseFenced(text string) (string, bool) {
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if raw, ok := candidate(m[1]); ok {
			return raw, true
		}
	}
	return "", false
}

// ParseGreedy tries the widest {...} literal, then the widest [...] literal.
func ParseGreedy(text string) (string, bool) {
	span := greedyObject.FindString(text)
	if span == "" {
		span = greedyArray.FindString(text)
	}
	if span == "" || !LooksStructured(span) {
		return "", false
	}
	return candidate(span)
}

// ParseKeyValue repairs the whole text when it contains a quoted key/value
// pair, falling back to a bracket-depth walk.
func ParseKeyValue(text string) (string, bool) {
	if !keyValuePair.MatchString(text) {
		return "", false
	}
	if repaired, err := Repair(text); err == nil {
		repaired = strings.TrimSpace(repaired)
		if LooksStructured(repaired) && json.Valid([]byte(repaired)) {
			return repaired, true
		}
	}
	return ParseBalanced(text)
}

// ParseBalanced walks text tracking {} and [] nesting outside of string
// literals and returns the longest balanced span that parses.
func ParseBalanced(text string) (string, bool) {
	spans := balancedSpans(text)
	sort.SliceStable(spans, func(i, j int) bool {
		return len(spans[i]) > len(spans[j])
	})
	for _, s := range spans {
		if raw, ok := candidate(s); ok {
			return raw, true
		}
	}
	return "", false
}

func balancedSpans(text string) []string {
	type open struct {
		pos int
		ch  byte
	}
	var (
		stack    []open
		spans    []string
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
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
			if len(stack) > 0 {
				inString = true
			}
		case '{', '[':
			stack = append(stack, open{pos: i, ch: c})
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if (c == '}' && top.ch != '{') || (c == ']' && top.ch != '[') {
				stack = stack[:0]
				continue
			}
			stack = stack[:len(stack)-1]
			spans = append(spans, text[top.pos:i+1])
		}
	}
	return spans
}

// OuterBraces returns the first balanced {...} span of s.
func OuterBraces(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
