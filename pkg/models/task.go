package models

import "time"

// TaskAnalysis is the classification of a prompt produced by the task analyzer.
type TaskAnalysis struct {
	// TaskType is a short label such as "definition" or "comparison".
	TaskType string `json:"taskType"`
	// Complexity is the assessed difficulty.
	Complexity Complexity `json:"complexity"`
	// NeedsDecomposition is true when the task should run as sub-tasks.
	NeedsDecomposition bool `json:"needsDecomposition"`
	// EstimatedSubTasks is the planned sub-task count, always within [1, maxSubTasks].
	EstimatedSubTasks int `json:"estimatedSubTasks"`
	// RecommendedStrategy is the suggested execution path.
	RecommendedStrategy Strategy `json:"recommendedStrategy"`
	// Confidence is the analyzer's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Reason explains how the analysis was reached.
	Reason string `json:"reason,omitempty"`
	// ContextRelevance mirrors the context analysis confidence.
	ContextRelevance float64 `json:"contextRelevance"`
	// OriginalPrompt is the prompt that was analyzed.
	OriginalPrompt string `json:"originalPrompt"`
}

// DirectAnalysis is the analysis used when the agent is configured for
// single-call execution and no analysis is performed.
func DirectAnalysis(prompt string) TaskAnalysis {
	return TaskAnalysis{
		TaskType:            "direct",
		Complexity:          ComplexityLow,
		EstimatedSubTasks:   1,
		RecommendedStrategy: StrategyDirect,
		Confidence:          0.9,
		Reason:              "single sub-task direct execution mode",
		ContextRelevance:    0.5,
		OriginalPrompt:      prompt,
	}
}

// SubTask is one unit of a decomposed plan.
type SubTask struct {
	// ID identifies the sub-task within its plan.
	ID string `json:"id"`
	// Description is what the sub-agent is asked to do.
	Description string `json:"description"`
	// Priority orders sub-tasks; lower runs first.
	Priority int `json:"priority"`
	// EstimatedComplexity is the decomposer's guess at difficulty.
	EstimatedComplexity Complexity `json:"estimatedComplexity"`
}

// SubTaskResult is the outcome of running one sub-task.
type SubTaskResult struct {
	SubTaskID   string        `json:"subTaskId"`
	Description string        `json:"description,omitempty"`
	Success     bool          `json:"success"`
	Result      string        `json:"result,omitempty"`
	Error       string        `json:"error,omitempty"`
	AgentID     string        `json:"agentId"`
	Priority    int           `json:"priority"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// ResultType distinguishes direct answers from merged sub-task output.
type ResultType string

const (
	// ResultDirect is a single-call answer.
	ResultDirect ResultType = "direct"
	// ResultSynthesis is the merge of one or more sub-task outputs.
	ResultSynthesis ResultType = "synthesis"
)

// SynthesisMethod records which path produced a SynthesisResult.
type SynthesisMethod string

const (
	MethodDirect               SynthesisMethod = "enhanced_single_llm_call"
	MethodNone                 SynthesisMethod = "none"
	MethodSingleResult         SynthesisMethod = "single_result"
	MethodJSONMerge            SynthesisMethod = "json_merge"
	MethodJSONCombination      SynthesisMethod = "json_combination"
	MethodIntelligentSynthesis SynthesisMethod = "intelligent_synthesis"
	MethodBasicCombination     SynthesisMethod = "basic_combination"
)

// SynthesisResult is the unit returned to the caller of a turn.
type SynthesisResult struct {
	Type           ResultType      `json:"type"`
	Content        string          `json:"content"`
	Method         SynthesisMethod `json:"method"`
	SubTaskCount   int             `json:"subTaskCount,omitempty"`
	Data           any             `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
	ContextSummary string          `json:"contextAnalysis,omitempty"`
	// Format is set by forced-JSON post-processing.
	Format string `json:"format,omitempty"`
}

// Failed reports whether the result represents an all-failed synthesis.
func (r *SynthesisResult) Failed() bool {
	return r != nil && r.Error != ""
}
