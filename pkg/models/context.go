package models

// ContextAnalysis summarises conversation history as it bears on the current prompt.
type ContextAnalysis struct {
	Summary          string   `json:"summary"`
	KeyPoints        []string `json:"keyPoints"`
	Recommendations  []string `json:"recommendations"`
	UserIntent       string   `json:"userIntent,omitempty"`
	RecommendedStyle string   `json:"recommendedStyle,omitempty"`
	Confidence       float64  `json:"confidence"`
}

// Relevance returns the confidence, or 0.5 when none was reported.
func (c ContextAnalysis) Relevance() float64 {
	if c.Confidence <= 0 {
		return 0.5
	}
	return c.Confidence
}
