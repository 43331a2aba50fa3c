package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/wkagent/internal/analyzer"
	"github.com/ShayCichocki/wkagent/internal/decompose"
	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/internal/synthesis"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Phase is the engine state.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseDirect       Phase = "direct"
	PhaseDecomposing  Phase = "decomposing"
	PhaseRunning      Phase = "running"
	PhaseSynthesizing Phase = "synthesizing"
)

// Input is one execution request.
type Input struct {
	// Messages is the prepared history; the last message is the prompt turn.
	Messages []llm.Message
	Prompt   string
	Context  models.ContextAnalysis
	// ForceJSON requires a {...} template in Prompt for decomposed runs.
	ForceJSON bool
}

// Outcome is the result of a completed execution.
type Outcome struct {
	Result     models.SynthesisResult
	Analysis   models.TaskAnalysis
	Plan       []models.SubTask
	SubResults []models.SubTaskResult
}

// Decomposed reports whether the outcome came from sub-tasks.
func (o *Outcome) Decomposed() bool { return o.Result.Type == models.ResultSynthesis }

// Engine runs prompts directly or through sub-tasks.
type Engine struct {
	cfg        Config
	caller     *llm.Caller
	tasks      *analyzer.TaskAnalyzer
	decomposer *decompose.Decomposer
	synth      *synthesis.Synthesizer
	events     *events.Registry
	log        logging.Logger
	newID      func() string

	mu     sync.Mutex
	phase  Phase
	active bool
	run    *run
}

// New creates an Engine.
func New(cfg Config, caller *llm.Caller, opts ...Option) (*Engine, error) {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.newID == nil {
		o.newID = func() string { return "subagent_" + uuid.NewString() }
	}
	if cfg.MaxSubTasks < 1 {
		cfg.MaxSubTasks = 1
	}
	if cfg.ErrorHandling == "" {
		cfg.ErrorHandling = StopOnError
	}
	if caller == nil {
		caller = llm.NewCaller(nil, o.logger)
	}

	d, err := decompose.New(caller, cfg.MaxSubTasks, o.logger)
	if err != nil {
		return nil, fmt.Errorf("create decomposer: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		caller: caller,
		tasks: analyzer.NewTaskAnalyzer(analyzer.TaskConfig{
			MaxSubTasks:        cfg.MaxSubTasks,
			SmartDecomposition: cfg.SmartDecomposition,
		}, caller, o.logger),
		decomposer: d,
		synth:      synthesis.New(caller, o.logger),
		events:     o.events,
		log:        o.logger,
		newID:      o.newID,
		phase:      PhaseIdle,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Phase returns the current state.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	e.phase = p
	e.mu.Unlock()
	e.log.Debug("phase", "phase", p)
}

func (e *Engine) emit(ev events.Event) { e.events.Emit(ev) }

// Run executes one request. Errors are returned only for aborted runs:
// a StopOnError failure (*ExecutionError), a missing JSON template, or
// context cancellation.
func (e *Engine) Run(ctx context.Context, in Input) (*Outcome, error) {
	if len(in.Messages) == 0 {
		in.Messages = []llm.Message{llm.User(in.Prompt)}
	}

	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.active = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active = false
		e.phase = PhaseIdle
		e.mu.Unlock()
	}()

	e.setPhase(PhaseAnalyzing)
	ta := models.DirectAnalysis(in.Prompt)
	if e.cfg.Concurrent || e.cfg.MaxSubTasks > 1 {
		ta = e.tasks.Analyze(ctx, history(in.Messages), in.Prompt, in.Context)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !ta.NeedsDecomposition {
		return e.direct(ctx, in, ta), nil
	}
	return e.decomposed(ctx, in, ta)
}

// direct answers with one guided completion. Failures yield the canned reply.
func (e *Engine) direct(ctx context.Context, in Input, ta models.TaskAnalysis) *Outcome {
	e.setPhase(PhaseDirect)
	msgs := append([]llm.Message(nil), history(in.Messages)...)
	if g := ExecutionGuidance(ta, in.Context); g != "" {
		msgs = append(msgs, llm.System(g))
	}
	msgs = append(msgs, in.Messages[len(in.Messages)-1])

	content := e.caller.CallOrFallback(ctx, llm.Request{Messages: msgs})
	return &Outcome{
		Analysis: ta,
		Result: models.SynthesisResult{
			Type:           models.ResultDirect,
			Content:        content,
			Method:         models.MethodDirect,
			ContextSummary: in.Context.Summary,
		},
	}
}

func (e *Engine) decomposed(ctx context.Context, in Input, ta models.TaskAnalysis) (*Outcome, error) {
	var template string
	if in.ForceJSON {
		t, ok := jsonx.OuterBraces(in.Prompt)
		if !ok {
			return nil, ErrNoJSONTemplate
		}
		template = t
	}

	e.setPhase(PhaseDecomposing)
	plan := e.decomposer.Decompose(ctx, history(in.Messages), ta, in.Context)

	concurrent := e.cfg.Concurrent && len(plan) > 1
	r := e.startRun(len(plan), concurrent)
	defer e.endRun()

	e.emit(events.Event{Name: events.SerialStart, Total: len(plan), Message: r.mode})
	e.setPhase(PhaseRunning)

	var (
		results []models.SubTaskResult
		err     error
	)
	if concurrent {
		results, err = e.runConcurrent(ctx, in.Messages, plan, r)
	} else {
		results, err = e.runSerial(ctx, in.Messages, plan, r)
	}
	if err != nil {
		return nil, err
	}

	completed, failed := r.counts()
	e.emit(events.Event{
		Name:      events.SerialComplete,
		Total:     len(plan),
		Completed: completed,
		Failed:    failed,
		Duration:  time.Since(r.start),
	})

	e.setPhase(PhaseSynthesizing)
	res := e.synth.Synthesize(ctx, results, ta, in.Context, synthesis.Options{Template: template})
	return &Outcome{Result: res, Analysis: ta, Plan: plan, SubResults: results}, nil
}

// history is everything before the prompt turn.
func history(msgs []llm.Message) []llm.Message {
	if len(msgs) == 0 {
		return nil
	}
	return msgs[:len(msgs)-1]
}
