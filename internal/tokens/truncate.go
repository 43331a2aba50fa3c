package tokens

import "strings"

// Markers appended to truncated text.
const (
	SentenceCutMarker = "\n\n[content truncated to fit the length limit]"
	HardCutMarker     = "...[truncated]"
)

const sentenceEnds = "。！？.!?"

// Truncate shortens text to roughly limit tokens by cutting it in
// proportion. The cut moves back to a sentence end when one falls within
// the last fifth of the kept text.
func Truncate(e Estimator, text string, limit int) string {
	n := e.Count(text)
	if n <= limit {
		return text
	}
	if limit <= 0 {
		return ""
	}

	runes := []rune(text)
	target := len(runes) * limit / n
	cut := string(runes[:target])

	end := -1
	for i, r := range []rune(cut) {
		if strings.ContainsRune(sentenceEnds, r) {
			end = i
		}
	}
	if float64(end) > float64(target)*0.8 {
		return string(runes[:end+1]) + SentenceCutMarker
	}
	return cut + HardCutMarker
}
