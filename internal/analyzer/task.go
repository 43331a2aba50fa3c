package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Bounds on estimated sub-tasks before the configured maximum applies.
const (
	MinSubTasks = 1
	MaxSubTasks = 8
)

// quickThreshold is the confidence a quick match needs to skip deep analysis.
const quickThreshold = 0.8

// TaskConfig configures the task analyzer.
type TaskConfig struct {
	// MaxSubTasks caps every plan.
	MaxSubTasks int
	// SmartDecomposition enables quick and deep analysis. When false only
	// the keyword heuristic runs.
	SmartDecomposition bool
}

// TaskAnalyzer decides whether a prompt should be decomposed.
type TaskAnalyzer struct {
	cfg    TaskConfig
	caller *llm.Caller
	log    logging.Logger
}

// NewTaskAnalyzer creates a task analyzer.
func NewTaskAnalyzer(cfg TaskConfig, caller *llm.Caller, log logging.Logger) *TaskAnalyzer {
	if cfg.MaxSubTasks < 1 {
		cfg.MaxSubTasks = 1
	}
	if log == nil {
		log = logging.Nop()
	}
	return &TaskAnalyzer{cfg: cfg, caller: caller, log: log}
}

// Analyze classifies prompt. history is the message list that precedes the
// prompt. The result always has EstimatedSubTasks in [1, MaxSubTasks].
func (a *TaskAnalyzer) Analyze(ctx context.Context, history []llm.Message, prompt string, ca models.ContextAnalysis) models.TaskAnalysis {
	relevance := ca.Relevance()

	if !a.cfg.SmartDecomposition {
		ta := BasicTaskAnalysis(prompt, relevance, a.cfg.MaxSubTasks)
		ta.NeedsDecomposition = ta.EstimatedSubTasks > 1
		return ta
	}

	quick := QuickAnalysis(prompt, relevance)
	if quick.Confidence > quickThreshold {
		quick.EstimatedSubTasks = clampInt(quick.EstimatedSubTasks, MinSubTasks, a.cfg.MaxSubTasks)
		quick.NeedsDecomposition = quick.EstimatedSubTasks > 1
		a.log.Debug("quick task analysis", "type", quick.TaskType, "subTasks", quick.EstimatedSubTasks)
		return quick
	}

	raw, err := a.deepAnalysis(ctx, history, prompt, ca)
	if err != nil {
		a.log.Warn("task analysis failed, using basic analysis", "error", err)
		return a.enhance(basicRaw(BasicTaskAnalysis(prompt, relevance, a.cfg.MaxSubTasks)), prompt, relevance)
	}
	ta := a.enhance(raw, prompt, relevance)
	a.log.Debug("deep task analysis",
		"complexity", ta.Complexity,
		"needsDecomposition", ta.NeedsDecomposition,
		"subTasks", ta.EstimatedSubTasks,
		"confidence", ta.Confidence)
	return ta
}

func (a *TaskAnalyzer) deepAnalysis(ctx context.Context, history []llm.Message, prompt string, ca models.ContextAnalysis) (gjson.Result, error) {
	caJSON, _ := json.MarshalIndent(ca, "", "  ")
	msgs := append([]llm.Message(nil), history...)
	msgs = append(msgs,
		llm.System(fmt.Sprintf(taskSystemPrompt, caJSON)),
		llm.User(fmt.Sprintf("%s: %q\n\n%s", llm.TaskAnalysisMarker, prompt, taskUserSuffix)),
	)

	text, err := a.caller.Call(ctx, llm.Request{
		Messages:       msgs,
		Temperature:    0.2,
		ResponseFormat: llm.FormatJSONObject,
	})
	if err != nil {
		return gjson.Result{}, err
	}
	res := jsonx.SafeParse(text, nil)
	if !res.Success {
		return gjson.Result{}, fmt.Errorf("parse task analysis: %w", res.Err)
	}
	doc := gjson.Parse(res.Raw)
	if !doc.IsObject() {
		return gjson.Result{}, fmt.Errorf("parse task analysis: expected object")
	}
	return doc, nil
}

const taskSystemPrompt = `You are a task analysis expert. Decide from a deep understanding of the task whether it should be decomposed.

Context:
%s

Assess complexity along these dimensions:
- knowledge breadth: how many distinct domains are needed
- logical depth: how many layers of reasoning
- structure: whether systematic treatment is needed
- temporal scope: whether change over time matters

Decision guide:
- simple question or single analysis: 1 sub-task
- multi-dimensional analysis: 2-3 sub-tasks
- complex system analysis: 3-5 sub-tasks
- exhaustive research: 5 or more sub-tasks`

const taskUserSuffix = `Identify the real complexity (not just the surface length), whether cooperating sub-tasks are truly needed, and the best sub-task count.

Return JSON: {"taskType": string, "complexity": "low|medium|high|complex", "needsDecomposition": boolean, "estimatedSubTasks": number, "reason": string, "recommendedStrategy": "direct|decompose|research", "confidence": number}`

// basicRaw re-encodes a heuristic analysis so it flows through the same
// enhancement as a model-produced one.
func basicRaw(ta models.TaskAnalysis) gjson.Result {
	data, _ := json.Marshal(ta)
	return gjson.ParseBytes(data)
}

// enhance validates and corrects a raw analysis object.
func (a *TaskAnalyzer) enhance(raw gjson.Result, prompt string, relevance float64) models.TaskAnalysis {
	ta := models.TaskAnalysis{
		TaskType:            raw.Get("taskType").String(),
		Complexity:          models.ParseComplexity(raw.Get("complexity").String()),
		NeedsDecomposition:  raw.Get("needsDecomposition").Bool(),
		EstimatedSubTasks:   clampInt(int(raw.Get("estimatedSubTasks").Int()), MinSubTasks, MaxSubTasks),
		RecommendedStrategy: models.ParseStrategy(raw.Get("recommendedStrategy").String()),
		Confidence:          0.7,
		Reason:              raw.Get("reason").String(),
		ContextRelevance:    relevance,
		OriginalPrompt:      prompt,
	}
	if ta.TaskType == "" {
		ta.TaskType = "general"
	}
	if c := raw.Get("confidence"); c.Exists() && c.Float() > 0 {
		ta.Confidence = clampFloat(c.Float(), 0.5, 1)
	}
	if ta.Reason == "" {
		ta.Reason = "based on model analysis"
	}

	if ta.Complexity == models.ComplexityLow && ta.EstimatedSubTasks > 2 {
		ta.EstimatedSubTasks = 1
		ta.NeedsDecomposition = false
		ta.Reason += " (corrected: low complexity needs no decomposition)"
	}
	if ta.Complexity == models.ComplexityHigh && ta.EstimatedSubTasks < 3 {
		ta.EstimatedSubTasks = 3
		ta.NeedsDecomposition = true
		ta.Reason += " (corrected: high complexity needs at least 3 sub-tasks)"
	}

	length := utf8.RuneCountInString(prompt)
	if length < 20 && ta.EstimatedSubTasks > 1 {
		ta.EstimatedSubTasks = 1
		ta.NeedsDecomposition = false
	}
	if length > 500 && ta.EstimatedSubTasks < 2 {
		ta.EstimatedSubTasks = 2
		ta.NeedsDecomposition = true
	}

	planned := ta.EstimatedSubTasks
	ta.EstimatedSubTasks = clampInt(planned, MinSubTasks, a.cfg.MaxSubTasks)
	ta.NeedsDecomposition = ta.EstimatedSubTasks > 1
	if ta.EstimatedSubTasks < planned {
		if planned > 1 && ta.EstimatedSubTasks == 1 {
			// Still structured, but limited to a single sub-task.
			ta.NeedsDecomposition = true
			ta.Reason += " (limited to 1 sub-task by configuration)"
		}
		a.log.Debug("sub-task count limited by configuration", "planned", planned, "limit", ta.EstimatedSubTasks)
	}
	if ta.NeedsDecomposition {
		ta.RecommendedStrategy = models.StrategyDecompose
	} else {
		ta.RecommendedStrategy = models.StrategyDirect
	}
	return ta
}

var complexityKeywords = []struct {
	level    models.Complexity
	keywords []string
}{
	{models.ComplexityHigh, []string{"详细分析", "全面", "多个", "复杂", "深入研究", "系统性地", "in-depth", "comprehensive", "multiple", "complex"}},
	{models.ComplexityMedium, []string{"分析", "比较", "总结", "建议", "如何", "analy", "compare", "summar", "recommend", "how"}},
	{models.ComplexityLow, []string{"什么", "简单", "基础", "介绍", "概述", "what", "simple", "basic", "introduc", "overview"}},
}

// BasicTaskAnalysis is the keyword-bucket heuristic: the first level whose
// keywords appear wins, defaulting to medium.
func BasicTaskAnalysis(prompt string, relevance float64, maxSubTasks int) models.TaskAnalysis {
	lower := strings.ToLower(prompt)
	complexity := models.ComplexityMedium
outer:
	for _, bucket := range complexityKeywords {
		for _, kw := range bucket.keywords {
			if strings.Contains(lower, kw) {
				complexity = bucket.level
				break outer
			}
		}
	}

	est := 2
	switch complexity {
	case models.ComplexityHigh:
		est = 4
	case models.ComplexityLow:
		est = 1
	}
	est = clampInt(est, MinSubTasks, maxSubTasks)

	needs := est > 1 && (utf8.RuneCountInString(prompt) > 100 || complexity == models.ComplexityHigh)
	strategy := models.StrategyDirect
	if needs {
		strategy = models.StrategyDecompose
	}
	return models.TaskAnalysis{
		TaskType:            ClassifyTaskType(prompt),
		Complexity:          complexity,
		NeedsDecomposition:  needs,
		EstimatedSubTasks:   est,
		RecommendedStrategy: strategy,
		Confidence:          0.6,
		Reason:              "keyword heuristic",
		ContextRelevance:    relevance,
		OriginalPrompt:      prompt,
	}
}

var taskTypes = []struct {
	name     string
	keywords []string
}{
	{"definition", []string{"什么是", "定义", "概念", "含义", "what is", "define"}},
	{"howto", []string{"如何", "怎么", "方法", "步骤", "how to", "how do"}},
	{"comparison", []string{"比较", "对比", "区别", "不同", " vs ", "versus", "compare", "difference"}},
	{"analysis", []string{"分析", "研究", "探讨", "评估", "analy", "evaluate", "assess"}},
	{"generation", []string{"生成", "创建", "编写", "设计", "generate", "create", "write", "design"}},
	{"summary", []string{"总结", "概括", "归纳", "summar"}},
	{"extraction", []string{"提取", "找出", "识别", "extract"}},
	{"planning", []string{"计划", "规划", "方案", "策略", "plan", "strategy"}},
	{"research", []string{"调研", "调查", "探索", "research", "investigate"}},
	{"question", []string{"?", "？", "吗", "呢"}},
}

// ClassifyTaskType labels a prompt by the first matching keyword group.
func ClassifyTaskType(prompt string) string {
	lower := strings.ToLower(prompt)
	for _, t := range taskTypes {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t.name
			}
		}
	}
	return "general"
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
