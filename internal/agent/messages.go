package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/memory"
	"github.com/ShayCichocki/wkagent/internal/tokens"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// DefaultSystemPrompt is used when neither the call nor the config sets one.
const DefaultSystemPrompt = "You are an intelligent assistant that analyses tasks and gives structured answers."

const (
	// replyReserve is held back from MaxTokens for the reply itself.
	replyReserve     = 1000
	recentWindow     = 15
	relevanceCutoff  = 0.2
	partialMinTokens = 50
	fallbackWindow   = 5
	fallbackTokens   = 200
)

// markerTokens keeps a partial message within budget once the cut marker
// is appended.
var markerTokens = tokens.Estimate(tokens.SentenceCutMarker)

// buildMessages assembles the request for one turn: an enhanced system
// message, the relevant part of recent history and the prompt, in that
// order, fitted into the token budget.
func (a *Agent) buildMessages(prompt, systemOverride string, ca models.ContextAnalysis) []llm.Message {
	base := systemOverride
	if base == "" {
		base = a.cfg.SystemPrompt
	}
	if base == "" {
		base = DefaultSystemPrompt
	}

	budget := a.cfg.MaxTokens - replyReserve
	if budget <= 0 {
		budget = a.cfg.MaxTokens
	}

	system := base
	if a.cfg.ContextInjection {
		system = a.enhanceSystem(base, ca)
	}
	system = tokens.Truncate(a.estimator, system, budget/2)

	remaining := budget - a.estimator.Count(system) - a.estimator.Count(prompt)
	recent := a.selectRecent(prompt, remaining)

	msgs := make([]llm.Message, 0, len(recent)+2)
	msgs = append(msgs, llm.System(system))
	for _, m := range recent {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.User(prompt))

	if a.countAll(msgs) > budget {
		msgs = trimByPriority(a.estimator, msgs, budget)
	}
	return msgs
}

func (a *Agent) enhanceSystem(base string, ca models.ContextAnalysis) string {
	var b strings.Builder
	b.WriteString(base)

	var info []string
	if ca.UserIntent != "" {
		info = append(info, "User intent: "+ca.UserIntent)
	}
	if ca.RecommendedStyle != "" {
		info = append(info, "Preferred style: "+ca.RecommendedStyle)
	}
	if n := a.mem.Stats().CompressionCount; n > 0 {
		info = append(info, fmt.Sprintf("Conversation history was compressed %d times", n))
	}
	if len(info) > 0 {
		b.WriteString("\n\nContext:\n- ")
		b.WriteString(strings.Join(info, "\n- "))
	}

	if facts := a.mem.SelectRelevantLongTerm(ca.KeyPoints); len(facts) > 0 {
		b.WriteString("\n\nKey background:\n- ")
		b.WriteString(strings.Join(facts, "\n- "))
	}
	if sums := a.mem.SelectRelevantSummaries(ca.KeyPoints); len(sums) > 0 {
		b.WriteString("\n\nEarlier conversation:\n")
		b.WriteString(strings.Join(sums, "\n\n"))
	}
	if len(ca.Recommendations) > 0 {
		b.WriteString("\n\nRecommendations:\n- ")
		b.WriteString(strings.Join(ca.Recommendations, "\n- "))
	}
	return b.String()
}

// selectRecent picks recent messages by relevance to prompt within limit
// tokens and returns them in chronological order.
func (a *Agent) selectRecent(prompt string, limit int) []models.Message {
	window := recentWindow
	if a.cfg.MaxContextMessages > 0 && a.cfg.MaxContextMessages < window {
		window = a.cfg.MaxContextMessages
	}
	recent := a.mem.Recent(window)
	if len(recent) == 0 || limit <= 0 {
		return nil
	}

	type candidate struct {
		idx int
		rel float64
	}
	cands := make([]candidate, len(recent))
	for i, m := range recent {
		cands[i] = candidate{idx: i, rel: memory.Relevance(prompt, m.Content)}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].rel > cands[j].rel })

	type picked struct {
		idx int
		msg models.Message
	}
	var out []picked
	remaining := limit
	partial := false
	for _, c := range cands {
		m := recent[c.idx]
		if c.rel <= relevanceCutoff && m.Role != models.RoleUser {
			continue
		}
		cost := a.estimator.Count(m.Content)
		if cost <= remaining {
			out = append(out, picked{c.idx, m})
			remaining -= cost
			continue
		}
		if !partial && remaining > partialMinTokens {
			m.Content = tokens.Truncate(a.estimator, m.Content, remaining-markerTokens)
			out = append(out, picked{c.idx, m})
			remaining = 0
			partial = true
		}
	}

	if len(out) == 0 {
		start := max(len(recent)-fallbackWindow, 0)
		for i := len(recent) - 1; i >= start; i-- {
			if recent[i].Role != models.RoleUser {
				continue
			}
			m := recent[i]
			m.Content = tokens.Truncate(a.estimator, m.Content, min(fallbackTokens, limit))
			out = append(out, picked{i, m})
			break
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].idx < out[j].idx })
	msgs := make([]models.Message, len(out))
	for i, p := range out {
		msgs[i] = p.msg
	}
	return msgs
}

func (a *Agent) countAll(msgs []llm.Message) int {
	n := 0
	for _, m := range msgs {
		n += a.estimator.Count(m.Content)
	}
	return n
}

// trimByPriority drops messages until msgs fits budget. The system message
// and the final prompt are always kept, then user turns before assistant
// turns, newest first. Survivors keep their original order.
func trimByPriority(e tokens.Estimator, msgs []llm.Message, budget int) []llm.Message {
	if len(msgs) == 0 {
		return msgs
	}
	last := len(msgs) - 1
	keep := make([]bool, len(msgs))
	used := 0
	for i, m := range msgs {
		if i == last || m.Role == models.RoleSystem {
			keep[i] = true
			used += e.Count(m.Content)
		}
	}
	for _, role := range []models.Role{models.RoleUser, models.RoleAssistant} {
		for i := last - 1; i >= 0; i-- {
			if keep[i] || msgs[i].Role != role {
				continue
			}
			cost := e.Count(msgs[i].Content)
			if used+cost > budget {
				continue
			}
			keep[i] = true
			used += cost
		}
	}

	out := make([]llm.Message, 0, len(msgs))
	for i, m := range msgs {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}
