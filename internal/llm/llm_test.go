package llm_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/llm/llmtest"
)

func TestFallbackResponse(t *testing.T) {
	t.Run("task analysis marker yields analysis json", func(t *testing.T) {
		out := llm.FallbackResponse([]llm.Message{llm.User(llm.TaskAnalysisMarker + ": x")})
		assert.JSONEq(t, `{"taskType":"analysis","complexity":"medium","needsDecomposition":true,"estimatedSubTasks":3}`, out)
	})
	t.Run("decomposition marker yields three subtasks", func(t *testing.T) {
		out := llm.FallbackResponse([]llm.Message{llm.User(llm.DecompositionMarker + " parts")})
		assert.Contains(t, out, `"subtask_3"`)
	})
	t.Run("anything else is prose", func(t *testing.T) {
		out := llm.FallbackResponse([]llm.Message{llm.User("hello")})
		assert.NotEmpty(t, out)
		assert.NotContains(t, out, "{")
	})
	t.Run("empty", func(t *testing.T) {
		assert.NotEmpty(t, llm.FallbackResponse(nil))
	})
}

func TestCaller_DisabledUsesFallback(t *testing.T) {
	c := llm.NewCaller(llm.Disabled{}, nil)
	out, err := c.Call(context.Background(), llm.Request{Messages: []llm.Message{llm.User(llm.TaskAnalysisMarker)}})
	require.NoError(t, err)
	assert.Contains(t, out, `"estimatedSubTasks":3`)
}

func TestCaller_PropagatesFailures(t *testing.T) {
	boom := errors.New("boom")
	c := llm.NewCaller(llmtest.Fail(boom), nil)
	_, err := c.Call(context.Background(), llm.Request{Messages: []llm.Message{llm.User("x")}})
	assert.ErrorIs(t, err, boom)

	out := c.CallOrFallback(context.Background(), llm.Request{Messages: []llm.Message{llm.User("x")}})
	assert.NotEmpty(t, out)
}

func TestCaller_StreamDisabled(t *testing.T) {
	c := llm.NewCaller(nil, nil)
	s, err := c.Stream(context.Background(), llm.Request{Messages: []llm.Message{llm.User("hi")}})
	require.NoError(t, err)
	text, err := llm.Collect(s)
	require.NoError(t, err)
	assert.NotEmpty(t, text)
}

func TestStream(t *testing.T) {
	s := llm.SliceStream("a", "", "b", "c")
	var got []string
	for s.Next() {
		got = append(got, s.Current())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.False(t, s.Next())
}

func TestStream_ErrorEndsIteration(t *testing.T) {
	boom := errors.New("transport")
	calls := 0
	closed := false
	s := llm.NewStream(func() (string, error) {
		calls++
		if calls == 1 {
			return "x", nil
		}
		return "", boom
	}, func() error { closed = true; return nil })

	text, err := llm.Collect(s)
	assert.Equal(t, "x", text)
	assert.ErrorIs(t, err, boom)
	assert.True(t, closed)
}

func TestStream_CloseStopsIteration(t *testing.T) {
	s := llm.NewStream(func() (string, error) { return "x", nil }, nil)
	require.True(t, s.Next())
	require.NoError(t, s.Close())
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"disabled", llm.ErrDisabled, false},
		{"canceled", context.Canceled, false},
		{"rate limited", &llm.APIError{Provider: "p", StatusCode: 429}, true},
		{"server", &llm.APIError{Provider: "p", StatusCode: 503}, true},
		{"bad request", &llm.APIError{Provider: "p", StatusCode: 400}, false},
		{"plain", io.ErrUnexpectedEOF, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llm.IsRetryable(tt.err))
		})
	}
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	f := &llmtest.Fake{Respond: func(llm.Request) (string, error) {
		attempts++
		if attempts < 3 {
			return "", &llm.APIError{Provider: "p", StatusCode: 500}
		}
		return "ok", nil
	}}
	c := llm.WithRetry(f, llm.RetryConfig{Attempts: 3, Base: time.Millisecond, Max: 10 * time.Millisecond})
	resp, err := c.Complete(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	f := llmtest.Fail(&llm.APIError{Provider: "p", StatusCode: 401})
	c := llm.WithRetry(f, llm.RetryConfig{Attempts: 3, Base: time.Millisecond})
	_, err := c.Complete(context.Background(), llm.Request{})
	require.Error(t, err)
	assert.Equal(t, 1, f.Calls())
}

func TestWithRetry_ZeroAttemptsIsIdentity(t *testing.T) {
	f := llmtest.Reply("x")
	assert.Same(t, llm.Client(f), llm.WithRetry(f, llm.RetryConfig{}))
}

func TestUsageTracker(t *testing.T) {
	tr := llm.NewUsageTracker()
	tr.Add(llm.Usage{PromptTokens: 10, CompletionTokens: 5})
	tr.Add(llm.Usage{PromptTokens: 1, CompletionTokens: 2})
	p, c := tr.Total()
	assert.Equal(t, int64(11), p)
	assert.Equal(t, int64(7), c)
	assert.Equal(t, 2, tr.Calls())
	tr.Reset()
	assert.Equal(t, 0, tr.Calls())
}

func TestHealthCheck(t *testing.T) {
	f := llmtest.Reply("hi")
	h := llm.HealthCheck(context.Background(), f)
	assert.True(t, h.Healthy)
	require.Len(t, f.Requests(), 1)
	assert.Equal(t, 10, f.Requests()[0].MaxTokens)

	h = llm.HealthCheck(context.Background(), llm.Disabled{})
	assert.False(t, h.Healthy)
	assert.Contains(t, h.Error, "disabled")
}

func TestNew(t *testing.T) {
	c, err := llm.New(llm.ProviderOptions{})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, llm.ErrDisabled)

	c, err = llm.New(llm.ProviderOptions{Provider: "anthropic", APIKey: "your-api-key-here"})
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), llm.Request{})
	assert.ErrorIs(t, err, llm.ErrDisabled)

	_, err = llm.New(llm.ProviderOptions{Provider: "nope"})
	assert.Error(t, err)
}

func TestWithRetry_ExposesTracker(t *testing.T) {
	inner := llm.NewOpenAI(llm.OpenAIConfig{})
	c := llm.WithRetry(inner, llm.RetryConfig{Attempts: 1})
	tracked, ok := c.(llm.Tracked)
	require.True(t, ok)
	assert.Same(t, inner.Tracker(), tracked.Tracker())

	c = llm.WithRetry(llmtest.Reply("x"), llm.RetryConfig{Attempts: 1})
	assert.Nil(t, c.(llm.Tracked).Tracker())
}
