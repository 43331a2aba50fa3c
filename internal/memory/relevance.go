package memory

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Relevance is the Jaccard similarity of the lowercase whitespace-separated
// word sets of a and b. It is symmetric and in [0,1].
func Relevance(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

var importanceKeywords = []string{
	"重要", "关键", "核心", "主要", "必须",
	"important", "critical", "essential", "must",
}

// Importance scores a message for retention: base 1.0, +0.2 for long
// content, +0.3 for importance keywords, +0.4 for an assistant message that
// came from sub-tasks. The result is capped at 2.0.
func Importance(m models.Message) float64 {
	score := 1.0
	if utf8.RuneCountInString(m.Content) > 200 {
		score += 0.2
	}
	lower := strings.ToLower(m.Content)
	for _, kw := range importanceKeywords {
		if strings.Contains(lower, kw) {
			score += 0.3
			break
		}
	}
	if m.Role == models.RoleAssistant && m.Metadata.SubTaskCount > 0 {
		score += 0.4
	}
	if score > 2.0 {
		score = 2.0
	}
	return score
}

const (
	longTermThreshold = 0.4
	summaryThreshold  = 0.3
	maxLongTermPicks  = 3
	summaryWindow     = 5
)

// SelectRelevantLongTerm returns up to three "key: content" lines whose
// average relevance to keyPoints exceeds the long-term threshold, most
// relevant first.
func (m *Manager) SelectRelevantLongTerm(keyPoints []string) []string {
	if len(keyPoints) == 0 {
		return nil
	}
	m.mu.Lock()
	records := m.long.Records()
	m.mu.Unlock()

	type scored struct {
		line  string
		score float64
	}
	var hits []scored
	for _, r := range records {
		text := r.Key + " " + r.Entry.Content
		var total float64
		for _, p := range keyPoints {
			total += Relevance(p, text)
		}
		if avg := total / float64(len(keyPoints)); avg > longTermThreshold {
			hits = append(hits, scored{line: r.Key + ": " + r.Entry.Content, score: avg})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > maxLongTermPicks {
		hits = hits[:maxLongTermPicks]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.line
	}
	return out
}

// SelectRelevantSummaries returns the content of recent medium-term
// summaries whose key points relate to the analysis key points.
func (m *Manager) SelectRelevantSummaries(keyPoints []string) []string {
	if len(keyPoints) == 0 {
		return nil
	}
	m.mu.Lock()
	recent := m.medium
	if len(recent) > summaryWindow {
		recent = recent[len(recent)-summaryWindow:]
	}
	recent = append([]Summary(nil), recent...)
	m.mu.Unlock()

	var out []string
	for _, s := range recent {
		if len(s.KeyPoints) == 0 {
			continue
		}
		var total float64
		for _, p := range keyPoints {
			var inner float64
			for _, kp := range s.KeyPoints {
				inner += Relevance(p, kp)
			}
			total += inner / float64(len(s.KeyPoints))
		}
		if total/float64(len(keyPoints)) > summaryThreshold {
			out = append(out, s.Content)
		}
	}
	return out
}
