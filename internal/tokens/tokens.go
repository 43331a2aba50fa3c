// Package tokens estimates token counts for budget decisions.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts tokens in text.
type Estimator interface {
	Count(text string) int
}

// Heuristic approximates one token per four characters, rounded up.
type Heuristic struct{}

// Count returns ceil(runes/4).
func (Heuristic) Count(text string) int {
	return Estimate(text)
}

// Estimate is the package-level heuristic estimate.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Tiktoken counts with a BPE encoding. The encoding is loaded on first use;
// if it cannot be loaded the heuristic is used instead.
type Tiktoken struct {
	encoding string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktoken returns an estimator for encoding, e.g. "cl100k_base".
func NewTiktoken(encoding string) *Tiktoken {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &Tiktoken{encoding: encoding}
}

// Count returns the encoded length of text.
func (t *Tiktoken) Count(text string) int {
	t.once.Do(func() {
		t.enc, t.err = tiktoken.GetEncoding(t.encoding)
	})
	if t.err != nil || t.enc == nil {
		return Estimate(text)
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Err reports why the encoding could not be loaded, if it was attempted.
func (t *Tiktoken) Err() error { return t.err }

// ForName returns the estimator selected by a config value:
// "tiktoken" or "heuristic" (default).
func ForName(name string) Estimator {
	if name == "tiktoken" {
		return NewTiktoken("")
	}
	return Heuristic{}
}
