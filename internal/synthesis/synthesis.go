// Package synthesis merges sub-task outputs into a single result.
package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Delimiter separates sub-results in textual prompts and in the basic
// combination.
const Delimiter = "\n\n---\n\n"

// NoSuccessContent is the content of a synthesis with no successful sub-task.
const NoSuccessContent = "all sub-tasks failed"

// Synthesizer merges sub-task results.
type Synthesizer struct {
	caller *llm.Caller
	log    logging.Logger
	now    func() time.Time
}

// New creates a Synthesizer.
func New(caller *llm.Caller, log logging.Logger) *Synthesizer {
	if log == nil {
		log = logging.Nop()
	}
	return &Synthesizer{caller: caller, log: log, now: time.Now}
}

// Options tune one synthesis.
type Options struct {
	// Template, when set, is a JSON shape the merged output must follow.
	Template string
}

type extracted struct {
	models.SubTaskResult
	data   any
	isJSON bool
}

// Synthesize merges results. It never fails: every model-assisted path has
// a deterministic fallback.
func (s *Synthesizer) Synthesize(ctx context.Context, results []models.SubTaskResult, ta models.TaskAnalysis, ca models.ContextAnalysis, opts Options) models.SynthesisResult {
	var ok []models.SubTaskResult
	for _, r := range results {
		if r.Success {
			ok = append(ok, r)
		}
	}

	switch len(ok) {
	case 0:
		return models.SynthesisResult{
			Type:           models.ResultSynthesis,
			Content:        NoSuccessContent,
			Method:         models.MethodNone,
			Error:          "no successful sub-tasks",
			ContextSummary: ca.Summary,
		}
	case 1:
		return models.SynthesisResult{
			Type:           models.ResultSynthesis,
			Content:        ok[0].Result,
			Method:         models.MethodSingleResult,
			SubTaskCount:   1,
			ContextSummary: ca.Summary,
		}
	}

	items := make([]extracted, len(ok))
	allJSON, hasJSON := true, false
	for i, r := range ok {
		items[i] = extracted{SubTaskResult: r}
		if v, found := jsonx.Extract(r.Result); found {
			items[i].data, items[i].isJSON = v, true
			hasJSON = true
		} else {
			allJSON = false
		}
	}

	wantsJSON := strings.Contains(strings.ToLower(ta.OriginalPrompt), "json") || opts.Template != ""
	if (wantsJSON || allJSON) && hasJSON {
		return s.mergeJSON(ctx, items, ta, ca, opts)
	}
	return s.mergeText(ctx, items, ta, ca, opts)
}

func (s *Synthesizer) mergeJSON(ctx context.Context, items []extracted, ta models.TaskAnalysis, ca models.ContextAnalysis, opts Options) models.SynthesisResult {
	var parts []string
	for _, it := range items {
		if it.isJSON {
			parts = append(parts, fmt.Sprintf("Sub-task %s result: %s", it.SubTaskID, jsonx.Indent(it.data)))
		}
	}
	msgs := []llm.Message{
		llm.System(fmt.Sprintf(mergeSystemPrompt, requirement(opts.Template))),
		llm.User("Merge these JSON results:\n\n" + strings.Join(parts, Delimiter) + "\n\nOriginal task: " + ta.OriginalPrompt),
	}

	text, err := s.caller.Call(ctx, llm.Request{Messages: msgs, Temperature: 0.2})
	if err == nil {
		if merged, ok := jsonx.Extract(text); ok {
			return models.SynthesisResult{
				Type:           models.ResultSynthesis,
				Content:        jsonx.Indent(merged),
				Method:         models.MethodJSONMerge,
				SubTaskCount:   len(items),
				Data:           merged,
				ContextSummary: ca.Summary,
			}
		}
		s.log.Warn("merge response held no JSON, combining structurally")
	} else {
		s.log.Warn("json merge failed, combining structurally", "error", err)
	}

	combined := s.combine(items, ta)
	return models.SynthesisResult{
		Type:           models.ResultSynthesis,
		Content:        jsonx.Indent(combined),
		Method:         models.MethodJSONCombination,
		SubTaskCount:   len(items),
		Data:           combined,
		ContextSummary: ca.Summary,
	}
}

// combine builds the structural fallback: every sub-result keyed by its
// sub-task id, decoded when it held JSON, plus counts.
func (s *Synthesizer) combine(items []extracted, ta models.TaskAnalysis) map[string]any {
	byID := make(map[string]any, len(items))
	jsonCount := 0
	for _, it := range items {
		if it.isJSON {
			byID[it.SubTaskID] = it.data
			jsonCount++
		} else {
			byID[it.SubTaskID] = it.Result
		}
	}
	return map[string]any{
		"subTaskResults": byID,
		"metadata": map[string]any{
			"totalSubTasks": len(items),
			"jsonSubTasks":  jsonCount,
			"taskType":      ta.TaskType,
			"timestamp":     s.now().UnixMilli(),
		},
	}
}

func (s *Synthesizer) mergeText(ctx context.Context, items []extracted, ta models.TaskAnalysis, ca models.ContextAnalysis, opts Options) models.SynthesisResult {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("Sub-task %s: %s", it.SubTaskID, it.Result)
	}
	msgs := []llm.Message{
		llm.System(fmt.Sprintf(textSystemPrompt, ta.OriginalPrompt, ta.Complexity, ca.Relevance(), requirement(opts.Template))),
		llm.User("Integrate these sub-task results:\n\n" + strings.Join(parts, Delimiter)),
	}

	text, err := s.caller.Call(ctx, llm.Request{Messages: msgs, Temperature: 0.4})
	if err == nil && strings.TrimSpace(text) != "" {
		return models.SynthesisResult{
			Type:           models.ResultSynthesis,
			Content:        text,
			Method:         models.MethodIntelligentSynthesis,
			SubTaskCount:   len(items),
			ContextSummary: ca.Summary,
		}
	}
	s.log.Warn("text synthesis failed, concatenating results", "error", err)

	results := make([]models.SubTaskResult, len(items))
	for i, it := range items {
		results[i] = it.SubTaskResult
	}
	return models.SynthesisResult{
		Type:           models.ResultSynthesis,
		Content:        Concatenate(results),
		Method:         models.MethodBasicCombination,
		SubTaskCount:   len(items),
		ContextSummary: ca.Summary,
	}
}

// Concatenate joins results in priority order, stable for equal priorities.
func Concatenate(results []models.SubTaskResult) string {
	sorted := append([]models.SubTaskResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	texts := make([]string, len(sorted))
	for i, r := range sorted {
		texts[i] = r.Result
	}
	return strings.Join(texts, Delimiter)
}

func requirement(template string) string {
	if strings.TrimSpace(template) == "" {
		return ""
	}
	return fmt.Sprintf(templateRequirement, template)
}
