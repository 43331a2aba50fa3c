package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

func TestCoreSystemInfo(t *testing.T) {
	tests := []struct {
		name   string
		system string
		want   string
	}{
		{"short prompt", "Be brief.", ""},
		{
			"keyword lines only",
			"You help the finance team.\nOutput format: markdown tables.\nAlways be polite to users.\nNote: amounts are in EUR.",
			"Output format: markdown tables.\nNote: amounts are in EUR.",
		},
		{
			"long prompt without keywords",
			strings.Repeat("abcdefghij", 20),
			"Core system requirements: " + strings.Repeat("abcdefghij", 15) + "...",
		},
		{"medium prompt without keywords", strings.Repeat("z", 60), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoreSystemInfo(tt.system))
		})
	}
}

func TestSubTaskMessages(t *testing.T) {
	st := models.SubTask{ID: "s2", Description: "write the summary", Priority: 2, EstimatedComplexity: models.ComplexityHigh}

	t.Run("generic parent prompt is dropped", func(t *testing.T) {
		msgs := SubTaskMessages([]llm.Message{llm.System("You are an intelligent assistant that helps with any format.")}, st, nil)
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[0].Content, "- ID: s2")
		assert.Contains(t, msgs[0].Content, "- Priority: 2")
		assert.Contains(t, msgs[0].Content, "- Estimated complexity: high")
		assert.Equal(t, models.RoleUser, msgs[1].Role)
		assert.True(t, strings.HasPrefix(msgs[1].Content, "This is the first sub-task"))
		assert.Contains(t, msgs[1].Content, "Sub-task description: write the summary")
	})

	t.Run("specific parent prompt is condensed", func(t *testing.T) {
		parent := []llm.Message{llm.System("You review contracts for the legal department.\nRequirement: cite clause numbers.")}
		msgs := SubTaskMessages(parent, st, []priorResult{{Description: "read", Result: "clauses 1-4"}})
		require.Len(t, msgs, 3)
		assert.Equal(t, "Requirement: cite clause numbers.", msgs[0].Content)
		assert.Contains(t, msgs[2].Content, "1. read:\nclauses 1-4")
	})
}

func TestExecutionGuidance(t *testing.T) {
	ta := models.TaskAnalysis{Complexity: models.ComplexityMedium, OriginalPrompt: "List cities as JSON"}
	ca := models.ContextAnalysis{RecommendedStyle: "formal", KeyPoints: []string{"cities", "europe"}}

	got := ExecutionGuidance(ta, ca)
	assert.True(t, strings.HasPrefix(got, "Execution guidance: Response style: formal; Task complexity: medium; Focus points: cities, europe; "))
	assert.Contains(t, got, "without code fences")

	assert.Empty(t, ExecutionGuidance(models.TaskAnalysis{}, models.ContextAnalysis{}))
}
