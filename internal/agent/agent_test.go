package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/llm/llmtest"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// comprehensivePrompt matches a high-complexity quick pattern (3 sub-tasks).
const comprehensivePrompt = "请全面分析人工智能对教育行业的影响"

const definitionPrompt = "什么是Go?"

const planJSON = `[
	{"id": "s1", "description": "step one", "priority": 1},
	{"id": "s2", "description": "step two", "priority": 2},
	{"id": "s3", "description": "step three", "priority": 3}
]`

// scripted answers plan, sub-task and synthesis requests. Sub-task
// descriptions listed in fail return an error.
func scripted(synthesized string, fail ...string) *llmtest.Fake {
	return &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		last := llmtest.LastContent(req)
		switch {
		case strings.Contains(last, llm.DecompositionMarker):
			return planJSON, nil
		case strings.Contains(last, "Integrate these sub-task results"):
			return synthesized, nil
		case strings.Contains(last, "Sub-task description: "):
			for _, f := range fail {
				if strings.Contains(last, "Sub-task description: "+f) {
					return "", errors.New(f + " exploded")
				}
			}
			return "partial answer", nil
		}
		return "direct answer", nil
	}}
}

type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemPersister() *memPersister { return &memPersister{data: map[string][]byte{}} }

func (p *memPersister) Save(_ context.Context, key string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = append([]byte(nil), data...)
	return nil
}

func (p *memPersister) Load(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data[key], nil
}

func (p *memPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
	return nil
}

func newAgent(t *testing.T, cfg Config, client llm.Client, opts ...Option) *Agent {
	t.Helper()
	a, err := New(context.Background(), cfg, client, opts...)
	require.NoError(t, err)
	return a
}

func eventNames(reg *events.Registry) func() []events.Name {
	var (
		mu    sync.Mutex
		names []events.Name
	)
	reg.OnAll(func(e events.Event) {
		mu.Lock()
		names = append(names, e.Name)
		mu.Unlock()
	})
	return func() []events.Name {
		mu.Lock()
		defer mu.Unlock()
		return append([]events.Name(nil), names...)
	}
}

func TestExecute_Direct(t *testing.T) {
	reg := events.NewRegistry(nil)
	seen := eventNames(reg)
	a := newAgent(t, DefaultConfig(), llmtest.Reply("Go is a language."), WithEvents(reg))

	resp := a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "task_1", resp.TaskID)
	require.NotNil(t, resp.Result)
	assert.Equal(t, models.ResultDirect, resp.Result.Type)
	assert.Equal(t, models.MethodDirect, resp.Result.Method)
	assert.Equal(t, "Go is a language.", resp.Result.Content)
	assert.False(t, resp.Metadata.UsedSubAgents)
	assert.Zero(t, resp.Metadata.SubAgentCount)
	assert.Nil(t, resp.JSON)
	require.NotNil(t, resp.Metadata.MemoryUsage)
	assert.Equal(t, 2, resp.Metadata.MemoryUsage.ShortTerm)

	short := a.Memory().ShortTerm()
	require.Len(t, short, 2)
	assert.Equal(t, models.RoleUser, short[0].Role)
	assert.Equal(t, "task_1", short[0].Metadata.TaskID)
	assert.Equal(t, models.RoleAssistant, short[1].Role)
	assert.Equal(t, models.ResultDirect, short[1].Metadata.ExecutionType)

	names := seen()
	assert.Contains(t, names, events.TaskStart)
	assert.Contains(t, names, events.TaskComplete)
	assert.NotContains(t, names, events.TaskError)

	second := a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})
	assert.Equal(t, "task_2", second.TaskID)
}

func TestExecute_DisabledServiceStillSucceeds(t *testing.T) {
	a := newAgent(t, DefaultConfig(), nil)

	resp := a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})

	require.True(t, resp.Success)
	assert.Equal(t, llm.FallbackResponse(nil), resp.Result.Content)
}

func TestExecute_Decomposed(t *testing.T) {
	a := newAgent(t, DefaultConfig(), scripted("combined project report"))

	resp := a.Execute(context.Background(), comprehensivePrompt, ExecuteOptions{})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, models.ResultSynthesis, resp.Result.Type)
	assert.Equal(t, models.MethodIntelligentSynthesis, resp.Result.Method)
	assert.Equal(t, "combined project report", resp.Result.Content)
	assert.True(t, resp.Metadata.UsedSubAgents)
	assert.Equal(t, 3, resp.Metadata.SubAgentCount)
	require.NotNil(t, resp.Metadata.TaskAnalysis)
	assert.Equal(t, models.ComplexityHigh, resp.Metadata.TaskAnalysis.Complexity)

	short := a.Memory().ShortTerm()
	require.Len(t, short, 2)
	assert.Equal(t, 3, short[1].Metadata.SubTaskCount)

	facts := a.Memory().LongTerm()
	require.Len(t, facts, 1)
	assert.True(t, strings.HasPrefix(facts[0].Key, "project_context_"))
	assert.Equal(t, "combined project report", facts[0].Entry.Content)
}

func TestExecute_StopOnErrorReportsProgress(t *testing.T) {
	reg := events.NewRegistry(nil)
	seen := eventNames(reg)
	a := newAgent(t, DefaultConfig(), scripted("unused", "step two"), WithEvents(reg))

	resp := a.Execute(context.Background(), comprehensivePrompt, ExecuteOptions{})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "step two exploded")
	assert.Nil(t, resp.Result)
	require.NotNil(t, resp.Metadata.Progress)
	assert.Equal(t, Progress{Total: 3, Completed: 1, Failed: 1}, *resp.Metadata.Progress)
	assert.Contains(t, seen(), events.TaskError)
	assert.Empty(t, a.Memory().ShortTerm())
}

func TestExecute_RecoversPanics(t *testing.T) {
	fake := &llmtest.Fake{Respond: func(llm.Request) (string, error) { panic("boom") }}
	a := newAgent(t, DefaultConfig(), fake)

	resp := a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "boom")

	// The turn lock was released.
	done := make(chan struct{})
	go func() {
		a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second Execute blocked")
	}
}

func TestExecute_ForceJSONExtractsCleanJSON(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceJSON = true
	a := newAgent(t, cfg, llmtest.Reply("Here you go: {\"name\": \"go\", \"year\": 2009}"))

	resp := a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, FormatCleanJSON, resp.Result.Format)
	assert.True(t, resp.Metadata.HasJSON)
	assert.Equal(t, map[string]any{"name": "go", "year": float64(2009)}, resp.JSON)
	assert.JSONEq(t, `{"name":"go","year":2009}`, resp.Result.Content)
}

func TestExecute_ForceJSONFallsBackToPatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceJSON = true
	fake := llmtest.Reply("任务已完成，得分 85 分")
	a := newAgent(t, cfg, fake)

	resp := a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, FormatForced, resp.Result.Format)
	obj, ok := resp.JSON.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "completed", obj["status"])
	assert.Equal(t, float64(85), obj["primaryValue"])
	assert.Equal(t, float64(85), obj["score"])
	assert.Equal(t, "pattern_recognition", obj["extractionMethod"])
	assert.Equal(t, "任务已完成，得分 85 分", obj["content"])

	// One call for the answer, one for the extraction attempt.
	reqs := fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, llm.FormatJSONObject, reqs[1].ResponseFormat)
	assert.InDelta(t, 0.1, reqs[1].Temperature, 1e-9)
}

func TestExecute_ForceJSONEmptyContent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceJSON = true
	a := newAgent(t, cfg, llmtest.Reply(""))

	resp := a.Execute(context.Background(), definitionPrompt, ExecuteOptions{})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, FormatFallback, resp.Result.Format)
	obj := resp.JSON.(map[string]any)
	assert.Equal(t, true, obj["success"])
	assert.Equal(t, "", obj["content"])
	assert.Equal(t, "direct", obj["type"])
}

func TestExecute_ForceJSONDecomposedNeedsTemplate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ForceJSON = true
	a := newAgent(t, cfg, scripted("unused"))

	resp := a.Execute(context.Background(), comprehensivePrompt, ExecuteOptions{})

	assert.False(t, resp.Success)
	assert.Equal(t, ErrNoJSONTemplate.Error(), resp.Error)
}

func TestExecute_PersistsAndRestoresLongTerm(t *testing.T) {
	p := newMemPersister()
	a := newAgent(t, DefaultConfig(), scripted("the code uses a small framework"), WithPersister(p))

	resp := a.Execute(context.Background(), comprehensivePrompt, ExecuteOptions{})
	require.True(t, resp.Success, resp.Error)
	require.Len(t, a.Memory().LongTerm(), 2)

	restored := newAgent(t, DefaultConfig(), nil, WithPersister(p))
	got := restored.Memory().LongTerm()
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0].Key, "project_context_"))
	assert.True(t, strings.HasPrefix(got[1].Key, "technical_stack_"))
}

func TestStream_DoesNotRecord(t *testing.T) {
	a := newAgent(t, DefaultConfig(), llmtest.Reply("alpha beta gamma"))

	s, err := a.Stream(context.Background(), "say something", ExecuteOptions{})
	require.NoError(t, err)
	text, err := llm.Collect(s)
	require.NoError(t, err)

	assert.Equal(t, "alpha beta gamma", text)
	assert.Empty(t, a.Memory().ShortTerm())
}

func TestControls_IdleAgent(t *testing.T) {
	a := newAgent(t, DefaultConfig(), nil)

	assert.False(t, a.Status().IsRunning)
	assert.False(t, a.Pause())
	assert.False(t, a.Resume())
	assert.False(t, a.Cancel())
}

func TestUsage_UntrackedClient(t *testing.T) {
	a := newAgent(t, DefaultConfig(), llmtest.Reply("x"))

	_, _, _, ok := a.Usage()
	assert.False(t, ok)
}
