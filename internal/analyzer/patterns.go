package analyzer

import (
	"regexp"
	"strings"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

type quickPattern struct {
	re         *regexp.Regexp
	taskType   string
	complexity models.Complexity
	confidence float64
}

// Simple shapes answerable in a single call.
var simplePatterns = []quickPattern{
	{regexp.MustCompile(`^什么是\s*\S+[?？]?$`), "definition", models.ComplexityLow, 0.95},
	{regexp.MustCompile(`^\S+\s*是什么[?？]?$`), "definition", models.ComplexityLow, 0.95},
	{regexp.MustCompile(`(?i)^what\s+(is|are)\s+(an?\s+|the\s+)?\S+\??$`), "definition", models.ComplexityLow, 0.95},
	{regexp.MustCompile(`^如何\s*\S+[?？]?$`), "howto", models.ComplexityLow, 0.9},
	{regexp.MustCompile(`^\S+\s*怎么做[?？]?$`), "howto", models.ComplexityLow, 0.9},
	{regexp.MustCompile(`(?i)^how\s+(do|can)\s+i\s+\S+(\s+\S+)?\??$`), "howto", models.ComplexityLow, 0.9},
	{regexp.MustCompile(`^解释\s*\S+[?？]?$`), "explanation", models.ComplexityLow, 0.9},
	{regexp.MustCompile(`(?i)^explain\s+\S+\??$`), "explanation", models.ComplexityLow, 0.9},
	{regexp.MustCompile(`(?i)^(翻译|translate)\s*[:：]`), "translation", models.ComplexityLow, 0.95},
	{regexp.MustCompile(`(?i)^(计算|calculate)\s*[:：]`), "calculation", models.ComplexityLow, 0.95},
	{regexp.MustCompile(`^\d+\s*[*+\-/]\s*\d+\s*=\s*\?*$`), "calculation", models.ComplexityLow, 0.98},
}

// Phrasings that call for several cooperating sub-tasks.
var complexPatterns = []quickPattern{
	{regexp.MustCompile(`分析.*和.*的不同`), "comparison", models.ComplexityMedium, 0.8},
	{regexp.MustCompile(`比较.*和.*的`), "comparison", models.ComplexityMedium, 0.8},
	{regexp.MustCompile(`(?i)compare\s+.+\s+(and|with|to)\s+.+`), "comparison", models.ComplexityMedium, 0.8},
	{regexp.MustCompile(`(?i)全面分析|comprehensive(ly)?\s+analy`), "comprehensive_analysis", models.ComplexityHigh, 0.85},
	{regexp.MustCompile(`(?i)详细研究|in-depth\s+research`), "detailed_research", models.ComplexityHigh, 0.85},
	{regexp.MustCompile(`(?i)系统性地|systematically`), "systematic_analysis", models.ComplexityHigh, 0.85},
	{regexp.MustCompile(`(?i)多个方面|multiple\s+aspects`), "multi_aspect", models.ComplexityMedium, 0.8},
	{regexp.MustCompile(`(?i)从.*角度.*分析|from\s+.+\s+perspectives?`), "multi_perspective", models.ComplexityMedium, 0.8},
}

// QuickAnalysis matches prompt against the fixed pattern tables. A
// non-match returns confidence 0.3 and complexity unknown so the caller
// falls through to deep analysis.
func QuickAnalysis(prompt string, relevance float64) models.TaskAnalysis {
	trimmed := strings.TrimSpace(prompt)
	for _, p := range simplePatterns {
		if p.re.MatchString(trimmed) {
			return models.TaskAnalysis{
				TaskType:            p.taskType,
				Complexity:          p.complexity,
				EstimatedSubTasks:   1,
				RecommendedStrategy: models.StrategyDirect,
				Confidence:          p.confidence,
				Reason:              "recognised as a simple " + p.taskType + " task, no decomposition needed",
				ContextRelevance:    relevance,
				OriginalPrompt:      prompt,
			}
		}
	}
	for _, p := range complexPatterns {
		if p.re.MatchString(prompt) {
			n := 2
			if p.complexity == models.ComplexityHigh {
				n = 3
			}
			return models.TaskAnalysis{
				TaskType:            p.taskType,
				Complexity:          p.complexity,
				NeedsDecomposition:  true,
				EstimatedSubTasks:   n,
				RecommendedStrategy: models.StrategyDecompose,
				Confidence:          p.confidence,
				Reason:              "recognised as a " + string(p.complexity) + " complexity " + p.taskType + " task",
				ContextRelevance:    relevance,
				OriginalPrompt:      prompt,
			}
		}
	}
	return models.TaskAnalysis{
		TaskType:            "unknown",
		Complexity:          models.ComplexityUnknown,
		EstimatedSubTasks:   1,
		RecommendedStrategy: models.StrategyDirect,
		Confidence:          0.3,
		Reason:              "task type not recognised, deep analysis required",
		ContextRelevance:    relevance,
		OriginalPrompt:      prompt,
	}
}
