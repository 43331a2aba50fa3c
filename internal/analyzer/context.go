// Package analyzer classifies prompts before execution: the context
// analyzer reads conversation history, and the task analyzer decides
// whether and how far to decompose.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/internal/memory"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// History is the read side of memory the analyzers need.
type History interface {
	Recent(n int) []models.Message
	Stats() models.MemoryStats
	Usage() models.MemoryUsage
}

// DisabledSummary is the summary of the analysis returned when history
// analysis is turned off.
const DisabledSummary = "context analysis disabled"

const historyWindow = 10

var topicKeywords = []string{"技术", "代码", "项目", "分析", "建议", "问题", "解决"}

var intentKeywords = []string{"分析", "解释", "比较", "总结", "建议", "如何", "什么", "为什么"}

// ContextAnalyzer summarises history as it bears on a prompt.
type ContextAnalyzer struct {
	enabled bool
	history History
	caller  *llm.Caller
	events  *events.Registry
	log     logging.Logger
}

// NewContextAnalyzer creates an analyzer. When enabled is false every call
// returns the disabled analysis without touching the completion service.
func NewContextAnalyzer(enabled bool, history History, caller *llm.Caller, reg *events.Registry, log logging.Logger) *ContextAnalyzer {
	if log == nil {
		log = logging.Nop()
	}
	return &ContextAnalyzer{enabled: enabled, history: history, caller: caller, events: reg, log: log}
}

// Disabled returns the analysis used when history analysis is off.
func Disabled() models.ContextAnalysis {
	return models.ContextAnalysis{Summary: DisabledSummary, KeyPoints: []string{}, Recommendations: []string{}}
}

// TopicCount is one entry of the recent-topic histogram.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// QuickSummary is the history digest sent to the completion service.
type QuickSummary struct {
	TotalMessages    int          `json:"totalMessages"`
	RecentTopics     []TopicCount `json:"recentTopics"`
	CompressionCount int          `json:"compressionCount"`
	LongTermSize     int          `json:"longTermSize"`
}

// TopicFrequency counts messages mentioning each topic keyword and returns
// the three most frequent.
func TopicFrequency(msgs []models.Message) []TopicCount {
	counts := make([]TopicCount, 0, len(topicKeywords))
	for _, kw := range topicKeywords {
		n := 0
		for _, m := range msgs {
			if strings.Contains(m.Content, kw) {
				n++
			}
		}
		if n > 0 {
			counts = append(counts, TopicCount{Topic: kw, Count: n})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > 3 {
		counts = counts[:3]
	}
	return counts
}

func (a *ContextAnalyzer) quickSummary(recent []models.Message) QuickSummary {
	stats := a.history.Stats()
	return QuickSummary{
		TotalMessages:    stats.TotalMessages,
		RecentTopics:     TopicFrequency(recent),
		CompressionCount: stats.CompressionCount,
		LongTermSize:     a.history.Usage().LongTerm,
	}
}

// Analyze never fails: a call or parse failure yields BasicAnalysis.
func (a *ContextAnalyzer) Analyze(ctx context.Context, prompt string) models.ContextAnalysis {
	if !a.enabled {
		return Disabled()
	}
	recent := a.history.Recent(historyWindow)

	digest, _ := json.MarshalIndent(a.quickSummary(recent), "", "  ")
	text, err := a.caller.Call(ctx, llm.Request{
		Messages: []llm.Message{
			llm.System(contextSystemPrompt),
			llm.User(fmt.Sprintf("History digest: %s\nCurrent request: %s\n\nReturn the context analysis as JSON.", digest, prompt)),
		},
		Temperature:    0.3,
		ResponseFormat: llm.FormatJSONObject,
	})
	if err != nil {
		a.log.Warn("context analysis failed, using basic analysis", "error", err)
		return BasicAnalysis(prompt, recent)
	}

	res := jsonx.SafeParse(text, nil)
	if !res.Success || !gjson.Parse(res.Raw).IsObject() {
		a.log.Warn("context analysis returned no JSON object, using basic analysis", "error", res.Err)
		return BasicAnalysis(prompt, recent)
	}
	analysis := parseContextAnalysis(res.Raw)

	a.events.Emit(events.Event{
		Name:    events.ContextAnalyze,
		Prompt:  prompt,
		Message: analysis.UserIntent,
		Total:   len(analysis.KeyPoints),
	})
	return analysis
}

const contextSystemPrompt = `You analyse conversation context. Based on the history digest, determine:
1. the user's core concern
2. related topics discussed before
3. how the current request relates to the history
4. the kind of answer needed (detailed, concise, technical, conceptual)

Respond with a JSON object: {"summary": string, "keyPoints": [string], "recommendations": [string], "userIntent": string, "recommendedStyle": string, "confidence": number}`

func parseContextAnalysis(raw string) models.ContextAnalysis {
	doc := gjson.Parse(raw)
	return models.ContextAnalysis{
		Summary:          doc.Get("summary").String(),
		KeyPoints:        stringList(doc.Get("keyPoints")),
		Recommendations:  stringList(doc.Get("recommendations")),
		UserIntent:       doc.Get("userIntent").String(),
		RecommendedStyle: doc.Get("recommendedStyle").String(),
		Confidence:       clamp01(doc.Get("confidence").Float()),
	}
}

func stringList(r gjson.Result) []string {
	out := []string{}
	if !r.Exists() {
		return out
	}
	if !r.IsArray() {
		if s := strings.TrimSpace(r.String()); s != "" {
			out = append(out, s)
		}
		return out
	}
	for _, item := range r.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// BasicAnalysis is the heuristic context analysis used when the completion
// service cannot help.
func BasicAnalysis(prompt string, history []models.Message) models.ContextAnalysis {
	intent := "general"
	for _, kw := range intentKeywords {
		if strings.Contains(prompt, kw) {
			intent = kw
			break
		}
	}

	var relevant []models.Message
	for _, m := range history {
		if memory.Relevance(m.Content, prompt) > 0.3 {
			relevant = append(relevant, m)
		}
	}
	tail := relevant
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	points := make([]string, 0, len(tail))
	for _, m := range tail {
		points = append(points, truncate(m.Content, 50))
	}

	return models.ContextAnalysis{
		Summary:   fmt.Sprintf("basic analysis: request type=%s, relevant history=%d", intent, len(relevant)),
		KeyPoints: points,
		Recommendations: []string{
			fmt.Sprintf("respond according to the %s request type", intent),
			"follow the established conversation pattern",
		},
		UserIntent: intent,
		Confidence: 0.6,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
