package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/llm/llmtest"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

func newSynth(c llm.Client) *Synthesizer {
	s := New(llm.NewCaller(c, nil), nil)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func ok(id string, prio int, result string) models.SubTaskResult {
	return models.SubTaskResult{SubTaskID: id, Priority: prio, Success: true, Result: result}
}

func failed(id string) models.SubTaskResult {
	return models.SubTaskResult{SubTaskID: id, Error: "boom"}
}

var (
	ta = models.TaskAnalysis{OriginalPrompt: "explain things", TaskType: "analysis", Complexity: models.ComplexityMedium}
	ca = models.ContextAnalysis{Summary: "ctx"}
)

func TestSynthesize_NoSuccess(t *testing.T) {
	fake := llmtest.Reply("unused")
	got := newSynth(fake).Synthesize(context.Background(), []models.SubTaskResult{failed("a"), failed("b")}, ta, ca, Options{})
	assert.True(t, got.Failed())
	assert.Equal(t, NoSuccessContent, got.Content)
	assert.Equal(t, 0, fake.Calls())
}

func TestSynthesize_SingleResult(t *testing.T) {
	fake := llmtest.Reply("unused")
	got := newSynth(fake).Synthesize(context.Background(), []models.SubTaskResult{failed("a"), ok("b", 2, "only")}, ta, ca, Options{})
	assert.Equal(t, models.MethodSingleResult, got.Method)
	assert.Equal(t, "only", got.Content)
	assert.Equal(t, 1, got.SubTaskCount)
	assert.Equal(t, "ctx", got.ContextSummary)
	assert.Equal(t, 0, fake.Calls())
}

func TestSynthesize_TextSynthesis(t *testing.T) {
	fake := llmtest.Reply("a coherent answer")
	got := newSynth(fake).Synthesize(context.Background(), []models.SubTaskResult{ok("a", 1, "first part"), ok("b", 2, "second part")}, ta, ca, Options{})
	assert.Equal(t, models.MethodIntelligentSynthesis, got.Method)
	assert.Equal(t, "a coherent answer", got.Content)
	assert.Equal(t, 2, got.SubTaskCount)

	req := fake.Requests()[0]
	assert.Contains(t, llmtest.LastContent(req), "Sub-task a: first part"+Delimiter+"Sub-task b: second part")
	assert.InDelta(t, 0.4, req.Temperature, 1e-9)
}

func TestSynthesize_TextFallbackConcatenatesByPriority(t *testing.T) {
	got := newSynth(llmtest.Fail(errors.New("down"))).Synthesize(context.Background(),
		[]models.SubTaskResult{ok("b", 2, "second"), ok("a", 1, "first")}, ta, ca, Options{})
	assert.Equal(t, models.MethodBasicCombination, got.Method)
	assert.Equal(t, "first"+Delimiter+"second", got.Content)
}

func TestSynthesize_AllJSONMerges(t *testing.T) {
	fake := llmtest.Reply("```json\n{\"a\":1,\"b\":2}\n```")
	got := newSynth(fake).Synthesize(context.Background(),
		[]models.SubTaskResult{ok("x", 1, `{"a":1}`), ok("y", 2, `{"b":2}`)}, ta, ca, Options{})
	assert.Equal(t, models.MethodJSONMerge, got.Method)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, got.Data)
	assert.JSONEq(t, `{"a":1,"b":2}`, got.Content)
	assert.InDelta(t, 0.2, fake.Requests()[0].Temperature, 1e-9)
}

func TestSynthesize_JSONMergeFallsBackToCombination(t *testing.T) {
	prompt := ta
	prompt.OriginalPrompt = "give me JSON please"
	got := newSynth(llmtest.Reply("sorry, cannot do that")).Synthesize(context.Background(),
		[]models.SubTaskResult{ok("x", 1, `{"a":1}`), ok("y", 2, "plain words")}, prompt, ca, Options{})

	require.Equal(t, models.MethodJSONCombination, got.Method)
	data, isMap := got.Data.(map[string]any)
	require.True(t, isMap)
	byID := data["subTaskResults"].(map[string]any)
	assert.Equal(t, map[string]any{"a": float64(1)}, byID["x"])
	assert.Equal(t, "plain words", byID["y"])
	meta := data["metadata"].(map[string]any)
	assert.Equal(t, 2, meta["totalSubTasks"])
	assert.Equal(t, 1, meta["jsonSubTasks"])
	assert.Equal(t, int64(1700000000000), meta["timestamp"])
	assert.Contains(t, got.Content, `"subTaskResults"`)
}

func TestSynthesize_MixedWithoutJSONRequestUsesText(t *testing.T) {
	fake := llmtest.Reply("merged text")
	got := newSynth(fake).Synthesize(context.Background(),
		[]models.SubTaskResult{ok("x", 1, `{"a":1}`), ok("y", 2, "plain words")}, ta, ca, Options{})
	assert.Equal(t, models.MethodIntelligentSynthesis, got.Method)
}

func TestSynthesize_TemplateIsForwarded(t *testing.T) {
	fake := llmtest.Reply(`{"total": 3}`)
	got := newSynth(fake).Synthesize(context.Background(),
		[]models.SubTaskResult{ok("x", 1, `{"a":1}`), ok("y", 2, `{"b":2}`)}, ta, ca, Options{Template: `{"total": 0}`})
	assert.Equal(t, models.MethodJSONMerge, got.Method)
	system := fake.Requests()[0].Messages[0].Content
	assert.True(t, strings.Contains(system, `{"total": 0}`))
}

func TestSynthesize_DisabledServiceFallsBackToCombination(t *testing.T) {
	got := newSynth(llm.Disabled{}).Synthesize(context.Background(),
		[]models.SubTaskResult{ok("x", 1, `{"a":1}`), ok("y", 2, `{"b":2}`)}, ta, ca, Options{})
	assert.Equal(t, models.MethodJSONCombination, got.Method)
}

func TestConcatenate_StableForEqualPriority(t *testing.T) {
	got := Concatenate([]models.SubTaskResult{ok("a", 1, "one"), ok("b", 1, "two"), ok("c", 0, "zero")})
	assert.Equal(t, "zero"+Delimiter+"one"+Delimiter+"two", got)
}
