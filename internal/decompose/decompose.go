// Package decompose turns a task analysis into an ordered sub-task plan.
package decompose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// ErrNotArray means the model reply held no JSON array.
var ErrNotArray = errors.New("decomposition result is not a JSON array")

// Decomposer asks the completion service for a plan and falls back to a
// mechanical split when the reply is unusable.
type Decomposer struct {
	caller      *llm.Caller
	validator   *Validator
	maxSubTasks int
	log         logging.Logger
}

// New creates a Decomposer. Plans are truncated to maxSubTasks.
func New(caller *llm.Caller, maxSubTasks int, log logging.Logger) (*Decomposer, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if maxSubTasks < 1 {
		maxSubTasks = 1
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Decomposer{caller: caller, validator: v, maxSubTasks: maxSubTasks, log: log}, nil
}

// Decompose returns a non-empty plan for ta. history is the message list
// that preceded the prompt.
func (d *Decomposer) Decompose(ctx context.Context, history []llm.Message, ta models.TaskAnalysis, ca models.ContextAnalysis) []models.SubTask {
	count := ta.EstimatedSubTasks
	if count < 1 {
		count = 1
	}

	caJSON, _ := json.MarshalIndent(ca, "", "  ")
	msgs := append([]llm.Message(nil), history...)
	msgs = append(msgs,
		llm.System(fmt.Sprintf(systemPrompt, caJSON)),
		llm.User(fmt.Sprintf(userPrompt, llm.DecompositionMarker, count, ta.OriginalPrompt)),
	)

	text, err := d.caller.Call(ctx, llm.Request{Messages: msgs, Temperature: 0.4})
	if err != nil {
		d.log.Warn("decomposition failed, using basic split", "error", err)
		return BasicPlan(ta)
	}

	tasks, err := d.ParseResponse(text, ta.Complexity)
	if err != nil {
		d.log.Warn("decomposition unusable, using basic split", "error", err)
		return BasicPlan(ta)
	}
	if min := minInt(2, count); len(tasks) < min {
		d.log.Warn("too few valid sub-tasks, using basic split", "valid", len(tasks), "want", min)
		return BasicPlan(ta)
	}
	if len(tasks) > d.maxSubTasks {
		tasks = tasks[:d.maxSubTasks]
	}
	return tasks
}

// ParseResponse extracts and validates the plan in text.
func (d *Decomposer) ParseResponse(text string, complexity models.Complexity) ([]models.SubTask, error) {
	items, ok := jsonx.SafeParse(text, nil).Data.([]any)
	if !ok {
		// Some models answer with loose objects instead of an array.
		items = jsonx.ExtractArray(text)
		if len(items) == 0 {
			return nil, ErrNotArray
		}
	}
	tasks, rejected := d.validator.Filter(items, complexity)
	for _, r := range rejected {
		d.log.Debug("sub-task rejected", "index", r.Index, "reason", r.Reason)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid sub-tasks among %d elements", len(items))
	}
	return tasks, nil
}

// BasicPlan splits the prompt into EstimatedSubTasks numbered parts (two
// when unset).
func BasicPlan(ta models.TaskAnalysis) []models.SubTask {
	count := ta.EstimatedSubTasks
	if count < 1 {
		count = 2
	}
	complexity := ta.Complexity
	if !complexity.Valid() {
		complexity = models.ComplexityMedium
	}
	tasks := make([]models.SubTask, count)
	for i := range tasks {
		n := i + 1
		tasks[i] = models.SubTask{
			ID:                  fmt.Sprintf("subtask_%d", n),
			Description:         fmt.Sprintf("%s - part %d", ta.OriginalPrompt, n),
			Priority:            n,
			EstimatedComplexity: complexity,
		}
	}
	return tasks
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
