package agent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/orchestrator"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Forced-JSON result formats.
const (
	FormatCleanJSON   = "clean_json_extracted"
	FormatSynthesized = "json_synthesized"
	FormatForced      = "json_forced_fallback"
	FormatFallback    = "json_fallback"
)

const extractSystemPrompt = `Convert the content below into a single valid JSON object that keeps all of its information.
Return only the JSON object, without code fences or explanation.`

const (
	longContentRunes = 200
	summaryRunes     = 150
	keyPointRunes    = 80
	maxKeyPoints     = 3
	maxPatternValue  = 10000
)

var statusPatterns = []struct {
	status string
	re     *regexp.Regexp
}{
	{"completed", regexp.MustCompile(`(?i)已完成|完成|成功|completed?|success(ful)?|done`)},
	{"inProgress", regexp.MustCompile(`(?i)进行中|处理中|in progress|ongoing|processing`)},
	{"failed", regexp.MustCompile(`(?i)失败|错误|failed|failure|error`)},
	{"pending", regexp.MustCompile(`(?i)待处理|等待|pending|waiting`)},
}

var (
	numberRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	listRe    = regexp.MustCompile(`(?m)^\s*(?:[-*•]|\d+[.)、])\s+`)
	sectionRe = regexp.MustCompile(`(?m)^(?:#{1,6}\s|[一二三四五六七八九十]+、)`)
)

// enforceJSON turns res into a result that carries a JSON value. It never
// fails: the last resort is a minimal envelope around the content.
func (a *Agent) enforceJSON(ctx context.Context, res models.SynthesisResult, ta models.TaskAnalysis) (models.SynthesisResult, any) {
	prompt := ta.OriginalPrompt
	var (
		v      any
		format string
	)
	switch {
	case signalsJSON(prompt, res.Content) && extractable(res.Content, &v):
		format = FormatCleanJSON
	case res.Type == models.ResultSynthesis && res.SubTaskCount > 0:
		v = a.fromSynthesis(ctx, res.Content, ta)
		format = FormatSynthesized
	case strings.TrimSpace(res.Content) != "":
		v = a.inferJSON(ctx, res.Content, ta)
		format = FormatForced
	default:
		v = map[string]any{
			"success":   res.Error == "",
			"content":   res.Content,
			"type":      string(res.Type),
			"timestamp": a.now().UnixMilli(),
		}
		format = FormatFallback
	}

	a.log.Debug("forced JSON applied", "format", format)
	res.Content = jsonx.Indent(v)
	res.Format = format
	res.Data = v
	return res, v
}

func signalsJSON(prompt, content string) bool {
	lower := strings.ToLower(prompt)
	return strings.Contains(lower, "返回json") ||
		strings.Contains(lower, "json格式") ||
		strings.Contains(prompt, "{") ||
		strings.Contains(content, "```json") ||
		strings.Contains(content, "{")
}

// extractable stores the first non-empty JSON container in content into v.
func extractable(content string, v *any) bool {
	got, ok := jsonx.Extract(content)
	if !ok || !nonEmpty(got) {
		return false
	}
	*v = got
	return true
}

func nonEmpty(v any) bool {
	switch t := v.(type) {
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return false
	}
}

func (a *Agent) fromSynthesis(ctx context.Context, content string, ta models.TaskAnalysis) any {
	var v any
	if extractable(content, &v) {
		return v
	}
	if v, ok := a.llmExtract(ctx, content); ok {
		return v
	}
	return PatternRecognition(content, ta, a.now())
}

func (a *Agent) inferJSON(ctx context.Context, content string, ta models.TaskAnalysis) any {
	if v, ok := a.llmExtract(ctx, content); ok {
		return v
	}
	return PatternRecognition(content, ta, a.now())
}

func (a *Agent) llmExtract(ctx context.Context, content string) (any, bool) {
	text, err := a.caller.Call(ctx, llm.Request{
		Messages:       []llm.Message{llm.System(extractSystemPrompt), llm.User(content)},
		Temperature:    0.1,
		ResponseFormat: llm.FormatJSONObject,
	})
	if err != nil {
		a.log.Warn("JSON extraction call failed", "error", err)
		return nil, false
	}
	var v any
	if !extractable(text, &v) {
		return nil, false
	}
	return v, true
}

// PatternRecognition reconstructs a JSON object from free text using status
// words, numbers and list or section markers.
func PatternRecognition(content string, ta models.TaskAnalysis, now time.Time) map[string]any {
	out := map[string]any{
		"status":           "unknown",
		"contentLength":    utf8.RuneCountInString(content),
		"hasStructure":     listRe.MatchString(content) || sectionRe.MatchString(content),
		"taskType":         ta.TaskType,
		"extractionMethod": "pattern_recognition",
		"timestamp":        now.UnixMilli(),
	}
	for _, p := range statusPatterns {
		if p.re.MatchString(content) {
			out["status"] = p.status
			break
		}
	}

	var values []float64
	for _, m := range numberRe.FindAllString(content, -1) {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil || f < 0 || f > maxPatternValue {
			continue
		}
		values = append(values, f)
	}
	if len(values) > 0 {
		out["primaryValue"] = values[0]
		out["values"] = values
		for _, f := range values {
			if f <= 100 {
				out["score"] = f
				break
			}
		}
	}

	if utf8.RuneCountInString(content) <= longContentRunes {
		out["content"] = content
		return out
	}
	summary := truncateRunes(content, summaryRunes) + "..."
	prompt := ta.OriginalPrompt
	if orchestrator.WantsJSON(prompt) || strings.Contains(prompt, "详细") ||
		strings.Contains(prompt, "完整") || strings.Contains(content, "```json") {
		out["content"] = content
		out["summary"] = summary
		return out
	}
	out["summary"] = summary
	out["keyPoints"] = keyPoints(content)
	return out
}

func keyPoints(content string) []string {
	var points []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		points = append(points, truncateRunes(line, keyPointRunes))
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}
