package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/wkagent/internal/agent"
	"github.com/ShayCichocki/wkagent/internal/config"
	"github.com/ShayCichocki/wkagent/internal/orchestrator"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

func TestAgentConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Agent.Concurrent = true
	cfg.Agent.MaxSubTasks = 3
	cfg.Task.ErrorHandling = "continue_on_error"
	cfg.Task.SequentialDelay = 250 * time.Millisecond
	cfg.LLM.MaxTokens = 8000
	cfg.Memory.Persistence.Key = "team"

	got, err := agentConfig(cfg)
	if err != nil {
		t.Fatalf("agentConfig() error = %v", err)
	}
	if !got.Execution.Concurrent || got.Execution.MaxSubTasks != 3 {
		t.Errorf("execution = %+v", got.Execution)
	}
	if got.Execution.ErrorHandling != orchestrator.ContinueOnError {
		t.Errorf("ErrorHandling = %q", got.Execution.ErrorHandling)
	}
	if got.Execution.SequentialDelay != 250*time.Millisecond {
		t.Errorf("SequentialDelay = %v", got.Execution.SequentialDelay)
	}
	if got.MaxTokens != 8000 || got.Memory.MaxTokens != 8000 {
		t.Errorf("MaxTokens = %d, memory %d", got.MaxTokens, got.Memory.MaxTokens)
	}
	if got.Memory.PersistenceKey != "team" {
		t.Errorf("PersistenceKey = %q", got.Memory.PersistenceKey)
	}
	if got.ContextInjection != cfg.Context.Injection || got.MaxContextMessages != cfg.Context.MaxContextMessages {
		t.Errorf("context settings not carried over: %+v", got)
	}
}

func TestAgentConfig_RejectsUnknownPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Task.ErrorHandling = "retry_forever"
	if _, err := agentConfig(cfg); err == nil {
		t.Fatal("expected error for unknown error policy")
	}
}

func TestProviderOptions(t *testing.T) {
	t.Setenv("WKAGENT_LLM_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := config.Default()
	cfg.LLM.APIKey = "sk-test-key-from-config-file"
	cfg.LLM.Model = "deepseek-chat"
	cfg.LLM.RetryAttempts = 4
	cfg.LLM.Timeout = 10 * time.Second

	opts := providerOptions(cfg)
	tests := []struct {
		name string
		got  any
		want any
	}{
		{"api key", opts.APIKey, "sk-test-key-from-config-file"},
		{"model", opts.Model, "deepseek-chat"},
		{"provider", opts.Provider, cfg.LLM.Provider},
		{"retry attempts", opts.Retry.Attempts, 4},
		{"timeout", opts.Timeout, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestSummaryLine(t *testing.T) {
	tests := []struct {
		name     string
		resp     agent.Response
		contains []string
	}{
		{
			name: "direct answer",
			resp: agent.Response{
				Success:  true,
				TaskID:   "task_1",
				Result:   &models.SynthesisResult{Method: models.MethodDirect},
				Metadata: agent.Metadata{Duration: 1500 * time.Millisecond},
			},
			contains: []string{"task_1", "1.5s", string(models.MethodDirect)},
		},
		{
			name: "decomposed with forced json",
			resp: agent.Response{
				Success: true,
				TaskID:  "task_2",
				Result:  &models.SynthesisResult{Method: models.MethodIntelligentSynthesis, Format: "json_synthesized"},
				Metadata: agent.Metadata{
					UsedSubAgents: true,
					SubAgentCount: 3,
					ForceJSON:     true,
				},
			},
			contains: []string{"3 sub-tasks", "format=json_synthesized"},
		},
		{
			name:     "no result",
			resp:     agent.Response{TaskID: "task_3", Metadata: agent.Metadata{ForceJSON: true}},
			contains: []string{"task_3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := summaryLine(tt.resp)
			for _, want := range tt.contains {
				if !strings.Contains(line, want) {
					t.Errorf("summaryLine() = %q, missing %q", line, want)
				}
			}
		})
	}
}

func TestTruncateTitle(t *testing.T) {
	if got := truncateTitle("  short  "); got != "short" {
		t.Errorf("truncateTitle() = %q", got)
	}
	long := strings.Repeat("字", 80)
	got := truncateTitle(long)
	if len([]rune(got)) != 60 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateTitle() = %q (%d runes)", got, len([]rune(got)))
	}
}

type fakeController struct {
	paused    bool
	cancelled bool
	prompts   []string
}

func (f *fakeController) Execute(_ context.Context, prompt string, _ agent.ExecuteOptions) agent.Response {
	f.prompts = append(f.prompts, prompt)
	return agent.Response{
		Success: true,
		TaskID:  "task_1",
		Result:  &models.SynthesisResult{Content: "answer to " + prompt},
	}
}
func (f *fakeController) Pause() bool      { f.paused = true; return true }
func (f *fakeController) Resume() bool     { return false }
func (f *fakeController) Cancel() bool     { f.cancelled = true; return false }
func (f *fakeController) Status() any      { return map[string]any{"isRunning": false} }
func (f *fakeController) MemoryUsage() any { return models.MemoryUsage{ShortTerm: 2, Total: 2} }
func (f *fakeController) TokenUsage() any  { return map[string]any{"tracked": false} }

func TestRepl_Commands(t *testing.T) {
	f := &fakeController{}
	var out bytes.Buffer
	in := strings.NewReader("/status\n/memory\n/usage\n/pause\n/resume\n/bogus\n/quit\n")

	if err := repl(context.Background(), f, in, &out); err != nil {
		t.Fatalf("repl() error = %v", err)
	}
	got := out.String()
	for _, want := range []string{`"isRunning": false`, `"shortTerm": 2`, `"tracked": false`, "pause requested", "nothing to resume", "unknown command /bogus"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if !f.paused {
		t.Error("Pause was not called")
	}
	if len(f.prompts) != 0 {
		t.Errorf("commands should not run turns, got %v", f.prompts)
	}
}

func TestRepl_RunsTurnAndPrintsAnswer(t *testing.T) {
	f := &fakeController{}
	var out bytes.Buffer

	if err := repl(context.Background(), f, strings.NewReader("what is go\n"), &out); err != nil {
		t.Fatalf("repl() error = %v", err)
	}
	if !strings.Contains(out.String(), "answer to what is go") {
		t.Errorf("answer not printed:\n%s", out.String())
	}
}

type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) { return copy(p, "again\n"), nil }

func TestReadLines_StopsWithoutEOF(t *testing.T) {
	stop := make(chan struct{})
	lines := readLines(context.Background(), endlessReader{}, stop)
	if got := <-lines; got != "again" {
		t.Fatalf("first line = %q, want %q", got, "again")
	}
	close(stop)

	finished := make(chan struct{})
	go func() {
		for range lines {
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine kept running after stop")
	}
}

// blockingController runs turns until their context ends.
type blockingController struct {
	fakeController
	started chan struct{}
}

func (b *blockingController) Execute(ctx context.Context, _ string, _ agent.ExecuteOptions) agent.Response {
	close(b.started)
	<-ctx.Done()
	return agent.Response{Success: false, Error: ctx.Err().Error()}
}

func TestRepl_QuitStopsRunningTurn(t *testing.T) {
	b := &blockingController{started: make(chan struct{})}
	pr, pw := io.Pipe()
	defer pw.Close()

	errc := make(chan error, 1)
	go func() { errc <- repl(context.Background(), b, pr, io.Discard) }()

	if _, err := io.WriteString(pw, "a long question\n"); err != nil {
		t.Fatalf("write prompt: %v", err)
	}
	<-b.started
	if _, err := io.WriteString(pw, "/quit\n"); err != nil {
		t.Fatalf("write quit: %v", err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("repl() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("repl did not return after /quit while a turn was running")
	}
	if !b.cancelled {
		t.Error("Cancel was not called")
	}
}

func TestRepl_ReturnsWhenContextEnds(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repl(ctx, &fakeController{}, pr, io.Discard); err != nil {
		t.Fatalf("repl() error = %v", err)
	}
}
