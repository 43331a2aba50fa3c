package models

import "strings"

// Complexity is the assessed difficulty of a task.
type Complexity string

const (
	// ComplexityLow is for prompts answered in a single call.
	ComplexityLow Complexity = "low"
	// ComplexityMedium is for prompts that may benefit from two or three sub-tasks.
	ComplexityMedium Complexity = "medium"
	// ComplexityHigh is for prompts that need a full decomposition.
	ComplexityHigh Complexity = "high"
	// ComplexityUnknown is reported by the quick pre-analysis when no pattern matched.
	ComplexityUnknown Complexity = "unknown"
)

// Valid returns true if the complexity is one of the assessed levels.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	default:
		return false
	}
}

// ParseComplexity maps free-form model output onto a Complexity.
// "complex" and "exhaustive" are treated as high; anything unrecognised is medium.
func ParseComplexity(s string) Complexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "simple":
		return ComplexityLow
	case "medium", "moderate":
		return ComplexityMedium
	case "high", "complex", "exhaustive":
		return ComplexityHigh
	default:
		return ComplexityMedium
	}
}

// Strategy is the recommended execution path for a task.
type Strategy string

const (
	// StrategyDirect answers with a single completion call.
	StrategyDirect Strategy = "direct"
	// StrategyDecompose splits the task into sub-tasks.
	StrategyDecompose Strategy = "decompose"
)

// ParseStrategy maps model output onto a Strategy. "research" counts as decompose.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decompose", "research":
		return StrategyDecompose
	default:
		return StrategyDirect
	}
}
