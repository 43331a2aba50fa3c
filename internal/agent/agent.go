// Package agent is the facade that runs one prompt end to end: context
// analysis, message assembly, execution, recording into memory, and the
// optional forced-JSON post-processing.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/wkagent/internal/analyzer"
	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/internal/memory"
	"github.com/ShayCichocki/wkagent/internal/orchestrator"
	"github.com/ShayCichocki/wkagent/internal/tokens"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// ErrNoJSONTemplate is returned for decomposed forced-JSON runs whose prompt
// holds no {...} template.
var ErrNoJSONTemplate = orchestrator.ErrNoJSONTemplate

// Config configures an Agent.
type Config struct {
	Execution orchestrator.Config
	Memory    memory.Config
	// HistoryAnalysis enables model-assisted context analysis.
	HistoryAnalysis bool
	// ForceJSON post-processes every result into a JSON value.
	ForceJSON bool
	// SystemPrompt replaces DefaultSystemPrompt.
	SystemPrompt string
	// MaxTokens is the completion budget messages are fitted into.
	MaxTokens int
	// ContextInjection adds memory and recommendations to the system message.
	ContextInjection bool
	// MaxContextMessages caps the recent-message window.
	MaxContextMessages int
}

// DefaultConfig returns the stock agent settings.
func DefaultConfig() Config {
	return Config{
		Execution:          orchestrator.DefaultConfig(),
		Memory:             memory.DefaultConfig(),
		MaxTokens:          4000,
		ContextInjection:   true,
		MaxContextMessages: 50,
	}
}

// Option configures an Agent.
type Option func(*agentOptions)

type agentOptions struct {
	logger    logging.Logger
	events    *events.Registry
	persister memory.Persister
	estimator tokens.Estimator
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(o *agentOptions) { o.logger = l } }

// WithEvents sets the event registry shared by every component.
func WithEvents(r *events.Registry) Option { return func(o *agentOptions) { o.events = r } }

// WithPersister mirrors long-term memory to p and restores from it at start.
func WithPersister(p memory.Persister) Option { return func(o *agentOptions) { o.persister = p } }

// WithEstimator sets the token estimator.
func WithEstimator(e tokens.Estimator) Option { return func(o *agentOptions) { o.estimator = e } }

// Agent runs prompts one at a time against shared memory.
type Agent struct {
	cfg       Config
	caller    *llm.Caller
	mem       *memory.Manager
	context   *analyzer.ContextAnalyzer
	engine    *orchestrator.Engine
	events    *events.Registry
	estimator tokens.Estimator
	log       logging.Logger
	now       func() time.Time

	mu    sync.Mutex
	tasks int
}

// New creates an Agent on client. A nil client runs fully on canned
// fallback responses. When a persister is set, long-term memory is restored
// from it; a failed restore is logged and the agent starts empty.
func New(ctx context.Context, cfg Config, client llm.Client, opts ...Option) (*Agent, error) {
	o := &agentOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.events == nil {
		o.events = events.NewRegistry(o.logger)
	}
	if o.estimator == nil {
		o.estimator = tokens.Heuristic{}
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.Memory.MaxTokens <= 0 {
		cfg.Memory.MaxTokens = cfg.MaxTokens
	}

	caller := llm.NewCaller(client, o.logger.With("component", "llm"))
	memOpts := []memory.Option{
		memory.WithCaller(caller),
		memory.WithEstimator(o.estimator),
		memory.WithEvents(o.events),
		memory.WithLogger(o.logger),
	}
	if o.persister != nil {
		memOpts = append(memOpts, memory.WithPersister(o.persister))
	}
	mem := memory.New(cfg.Memory, memOpts...)
	if o.persister != nil {
		if err := mem.Restore(ctx); err != nil {
			o.logger.Warn("failed to restore memory", "error", err)
		}
	}

	engine, err := orchestrator.New(cfg.Execution, caller,
		orchestrator.WithEvents(o.events),
		orchestrator.WithLogger(o.logger.With("component", "engine")))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &Agent{
		cfg:       cfg,
		caller:    caller,
		mem:       mem,
		context:   analyzer.NewContextAnalyzer(cfg.HistoryAnalysis, mem, caller, o.events, o.logger),
		engine:    engine,
		events:    o.events,
		estimator: o.estimator,
		log:       o.logger,
		now:       time.Now,
	}, nil
}

// ExecuteOptions tune one call.
type ExecuteOptions struct {
	// SystemPrompt overrides the configured system prompt for this call.
	SystemPrompt string
}

// Progress is the partial progress of an aborted decomposed run.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Duration       time.Duration        `json:"duration"`
	UsedSubAgents  bool                 `json:"usedSubAgents"`
	SubAgentCount  int                  `json:"subAgentCount"`
	MemoryUsage    *models.MemoryUsage  `json:"memoryUsage,omitempty"`
	ContextSummary string               `json:"contextAnalysis,omitempty"`
	TaskAnalysis   *models.TaskAnalysis `json:"taskAnalysis,omitempty"`
	ForceJSON      bool                 `json:"forceJSON"`
	HasJSON        bool                 `json:"hasJSON"`
	Progress       *Progress            `json:"progress,omitempty"`
}

// Response is the envelope Execute always returns.
type Response struct {
	Success  bool                    `json:"success"`
	TaskID   string                  `json:"taskId"`
	Result   *models.SynthesisResult `json:"result,omitempty"`
	JSON     any                     `json:"json,omitempty"`
	Error    string                  `json:"error,omitempty"`
	Metadata Metadata                `json:"metadata"`
}

// Execute runs prompt. It never returns an error or panics: failures are
// reported in the envelope. Calls are serialized.
func (a *Agent) Execute(ctx context.Context, prompt string, opts ExecuteOptions) (resp Response) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tasks++
	taskID := fmt.Sprintf("task_%d", a.tasks)
	start := time.Now()
	log := a.log.With("task", taskID)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during execution: %v", r)
			log.Error("execution panicked", "panic", r)
			a.events.Emit(events.Event{Name: events.TaskError, TaskID: taskID, Err: err})
			resp = failure(taskID, start, err)
		}
	}()

	a.events.Emit(events.Event{Name: events.TaskStart, TaskID: taskID, Prompt: prompt})

	ca := a.context.Analyze(ctx, prompt)
	msgs := a.buildMessages(prompt, opts.SystemPrompt, ca)

	out, err := a.engine.Run(ctx, orchestrator.Input{
		Messages:  msgs,
		Prompt:    prompt,
		Context:   ca,
		ForceJSON: a.cfg.ForceJSON,
	})
	if err != nil {
		log.Warn("execution failed", "error", err)
		a.events.Emit(events.Event{Name: events.TaskError, TaskID: taskID, Err: err, Duration: time.Since(start)})
		return failure(taskID, start, err)
	}

	a.record(ctx, taskID, prompt, out.Result, ca)
	a.events.Emit(events.Event{Name: events.TaskComplete, TaskID: taskID, Duration: time.Since(start), Message: string(out.Result.Method)})

	result := out.Result
	var js any
	if a.cfg.ForceJSON {
		result, js = a.enforceJSON(ctx, result, out.Analysis)
	}

	ta := out.Analysis
	usage := a.mem.Usage()
	md := Metadata{
		Duration:       time.Since(start),
		UsedSubAgents:  ta.NeedsDecomposition,
		MemoryUsage:    &usage,
		ContextSummary: ca.Summary,
		TaskAnalysis:   &ta,
		ForceJSON:      a.cfg.ForceJSON,
		HasJSON:        js != nil,
	}
	if ta.NeedsDecomposition {
		md.SubAgentCount = len(out.Plan)
	}
	return Response{Success: true, TaskID: taskID, Result: &result, JSON: js, Metadata: md}
}

func failure(taskID string, start time.Time, err error) Response {
	resp := Response{
		TaskID:   taskID,
		Error:    err.Error(),
		Metadata: Metadata{Duration: time.Since(start)},
	}
	var execErr *orchestrator.ExecutionError
	if errors.As(err, &execErr) {
		resp.Metadata.Progress = &Progress{Total: execErr.Total, Completed: execErr.Completed, Failed: execErr.Failed}
	}
	return resp
}

// Stream answers prompt directly as a stream of fragments, using the same
// message assembly as Execute. The turn is not recorded.
func (a *Agent) Stream(ctx context.Context, prompt string, opts ExecuteOptions) (*llm.Stream, error) {
	ca := a.context.Analyze(ctx, prompt)
	msgs := a.buildMessages(prompt, opts.SystemPrompt, ca)
	return a.caller.Stream(ctx, llm.Request{Messages: msgs})
}

// Status reports the live decomposed run.
func (a *Agent) Status() orchestrator.Status { return a.engine.Status() }

// Pause suspends the live serial run. It reports whether a serial run was
// live; concurrent runs cannot be paused.
func (a *Agent) Pause() bool { return a.engine.Pause() }

// Resume continues a paused serial run. It reports whether a serial run was
// live.
func (a *Agent) Resume() bool { return a.engine.Resume() }

// Cancel stops the live serial run before its next sub-task.
func (a *Agent) Cancel() bool { return a.engine.Cancel() }

// Memory returns the memory manager.
func (a *Agent) Memory() *memory.Manager { return a.mem }

// Events returns the event registry.
func (a *Agent) Events() *events.Registry { return a.events }

// Usage returns the session token usage when the client tracks it.
func (a *Agent) Usage() (prompt, completion int64, calls int, ok bool) {
	t, isTracked := a.caller.Client().(llm.Tracked)
	if !isTracked {
		return 0, 0, 0, false
	}
	tr := t.Tracker()
	if tr == nil {
		return 0, 0, 0, false
	}
	prompt, completion = tr.Total()
	return prompt, completion, tr.Calls(), true
}
