package llm

import "strings"

// Markers embedded in prompts whose canned fallback is structured.
const (
	// TaskAnalysisMarker opens the deep task-analysis user prompt.
	TaskAnalysisMarker = "Analyze this task in depth"
	// DecompositionMarker opens the decomposition user prompt.
	DecompositionMarker = "Decompose the following task into"
)

const (
	fallbackTaskAnalysis = `{"taskType":"analysis","complexity":"medium","needsDecomposition":true,"estimatedSubTasks":3}`
	fallbackPlan         = `[{"id":"subtask_1","description":"Understand the task requirements","priority":1},` +
		`{"id":"subtask_2","description":"Analyse the key elements","priority":2},` +
		`{"id":"subtask_3","description":"Produce the combined result","priority":3}]`
	fallbackText = "I understand your request, but the completion service is unavailable, so this is a fallback response."
)

// FallbackResponse returns the deterministic canned reply for messages. It
// inspects only the last message.
func FallbackResponse(messages []Message) string {
	if len(messages) == 0 {
		return fallbackText
	}
	last := messages[len(messages)-1].Content
	switch {
	case strings.Contains(last, TaskAnalysisMarker):
		return fallbackTaskAnalysis
	case strings.Contains(last, DecompositionMarker):
		return fallbackPlan
	default:
		return fallbackText
	}
}
