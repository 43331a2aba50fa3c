package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/tokens"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

func seed(t *testing.T, a *Agent, msgs ...models.Message) {
	t.Helper()
	for _, m := range msgs {
		a.Memory().Append(context.Background(), m)
	}
}

func user(s string) models.Message      { return models.Message{Role: models.RoleUser, Content: s} }
func assistant(s string) models.Message { return models.Message{Role: models.RoleAssistant, Content: s} }

func contents(msgs []llm.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestBuildMessages_PromptLastSystemFirst(t *testing.T) {
	a := newAgent(t, DefaultConfig(), nil)

	msgs := a.buildMessages("hello", "", models.ContextAnalysis{})

	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Equal(t, DefaultSystemPrompt, msgs[0].Content)
	assert.Equal(t, llm.User("hello"), msgs[1])
}

func TestBuildMessages_SystemPromptPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SystemPrompt = "configured"
	a := newAgent(t, cfg, nil)

	assert.Equal(t, "configured", a.buildMessages("x", "", models.ContextAnalysis{})[0].Content)
	assert.Equal(t, "per call", a.buildMessages("x", "per call", models.ContextAnalysis{})[0].Content)
}

func TestBuildMessages_SelectsRelevantHistoryInOrder(t *testing.T) {
	a := newAgent(t, DefaultConfig(), nil)
	seed(t, a,
		user("tell me about go channels"),
		assistant("go channels are pipes"),
		user("unrelated pasta recipe"),
		assistant("boil water"),
	)

	msgs := a.buildMessages("go channels again", "", models.ContextAnalysis{})

	assert.Equal(t, []string{
		DefaultSystemPrompt,
		"tell me about go channels",
		"go channels are pipes",
		"unrelated pasta recipe",
		"go channels again",
	}, contents(msgs))
}

func TestBuildMessages_SkipsIrrelevantAssistantTurns(t *testing.T) {
	a := newAgent(t, DefaultConfig(), nil)
	seed(t, a, assistant("first reply"), assistant("second reply"))

	msgs := a.buildMessages("new topic", "", models.ContextAnalysis{})
	assert.Len(t, msgs, 2)

	seed(t, a, user("older question"), assistant("another reply"))
	msgs = a.buildMessages("new topic", "", models.ContextAnalysis{})
	assert.Equal(t, []string{DefaultSystemPrompt, "older question", "new topic"}, contents(msgs))
}

func TestBuildMessages_RespectsWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxContextMessages = 2
	a := newAgent(t, cfg, nil)
	seed(t, a, user("one"), user("two"), user("three"))

	msgs := a.buildMessages("four", "", models.ContextAnalysis{})

	assert.Equal(t, []string{DefaultSystemPrompt, "two", "three", "four"}, contents(msgs))
}

func TestBuildMessages_InjectsContext(t *testing.T) {
	a := newAgent(t, DefaultConfig(), nil)
	a.Memory().Remember("technical_stack", "go redis", "")
	ca := models.ContextAnalysis{
		UserIntent:       "learning",
		RecommendedStyle: "concise",
		KeyPoints:        []string{"go redis"},
		Recommendations:  []string{"show examples"},
	}

	system := a.buildMessages("q", "", ca)[0].Content

	assert.True(t, strings.HasPrefix(system, DefaultSystemPrompt))
	assert.Contains(t, system, "User intent: learning")
	assert.Contains(t, system, "Preferred style: concise")
	assert.Contains(t, system, "Key background:")
	assert.Contains(t, system, ": go redis")
	assert.Contains(t, system, "- show examples")
}

func TestBuildMessages_InjectionDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextInjection = false
	a := newAgent(t, cfg, nil)

	system := a.buildMessages("q", "", models.ContextAnalysis{Recommendations: []string{"x"}})[0].Content

	assert.Equal(t, DefaultSystemPrompt, system)
}

func TestBuildMessages_TruncatesOversizeHistory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokens = 1200 // 200 token budget
	a := newAgent(t, cfg, nil)
	long := strings.Repeat("go ", 400)
	seed(t, a, models.Message{Role: models.RoleUser, Content: long, Timestamp: time.Now()})

	msgs := a.buildMessages("go", "", models.ContextAnalysis{})

	require.Len(t, msgs, 3)
	assert.Less(t, len(msgs[1].Content), len(long))
	assert.LessOrEqual(t, a.countAll(msgs), 200+tokens.Estimate(tokens.HardCutMarker))
}

func TestTrimByPriority(t *testing.T) {
	e := tokens.Heuristic{}
	msgs := []llm.Message{
		llm.System("ssss"),
		llm.User(strings.Repeat("u", 40)),
		llm.Assistant(strings.Repeat("a", 40)),
		llm.User("pppppppp"),
	}

	got := trimByPriority(e, msgs, 14)

	assert.Equal(t, []llm.Message{msgs[0], msgs[1], msgs[3]}, got)
	assert.Equal(t, msgs, trimByPriority(e, msgs, 100))
	assert.Equal(t, []llm.Message{msgs[0], msgs[3]}, trimByPriority(e, msgs, 1))
}
