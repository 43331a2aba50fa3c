package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// GenericPromptMarker appears in the default assistant system prompt. A
// parent system prompt carrying it adds nothing for a sub-agent.
const GenericPromptMarker = "intelligent assistant"

// PriorResultLimit caps each earlier result forwarded to a later sub-task.
const PriorResultLimit = 500

// coreKeywords mark system prompt lines worth forwarding to sub-agents.
var coreKeywords = []string{"config", "requirement", "must", "limit", "constraint", "mode", "format", "note"}

const subAgentPrompt = `You are a sub-task execution agent. Focus on completing this specific sub-task.

Sub-task:
- ID: %s
- Priority: %d
- Estimated complexity: %s

Requirements:
1. Complete exactly the sub-task described.
2. Give a detailed and accurate result.
3. Stay consistent with the goal of the main task.
4. Build on the results of earlier sub-tasks.
5. Ask for more information if it is needed.`

// priorResult is an earlier successful sub-task in a serial chain.
type priorResult struct {
	Description string
	Result      string
}

// CoreSystemInfo extracts the configuration and constraint lines of a
// parent system prompt. A long prompt without such lines is forwarded as a
// truncated excerpt; a short one not at all.
func CoreSystemInfo(system string) string {
	if utf8.RuneCountInString(system) < 30 {
		return ""
	}
	var keep []string
	for _, line := range strings.Split(system, "\n") {
		lower := strings.ToLower(line)
		for _, kw := range coreKeywords {
			if strings.Contains(lower, kw) {
				keep = append(keep, line)
				break
			}
		}
	}
	if len(keep) > 0 {
		return strings.Join(keep, "\n")
	}
	if utf8.RuneCountInString(system) > 100 {
		return "Core system requirements: " + truncate(system, 150) + "..."
	}
	return ""
}

func isGenericPrompt(system string) bool {
	return strings.Contains(strings.ToLower(system), GenericPromptMarker) || utf8.RuneCountInString(system) < 50
}

// SubTaskMessages builds the message set for one sub-task: an excerpt of the
// parent system prompt when it is specific, the sub-agent role, and a user
// turn with prior results and the sub-task description.
func SubTaskMessages(parent []llm.Message, st models.SubTask, prior []priorResult) []llm.Message {
	var msgs []llm.Message
	if len(parent) > 0 && parent[0].Role == models.RoleSystem && !isGenericPrompt(parent[0].Content) {
		if core := CoreSystemInfo(parent[0].Content); core != "" {
			msgs = append(msgs, llm.System(core))
		}
	}
	msgs = append(msgs, llm.System(fmt.Sprintf(subAgentPrompt, st.ID, st.Priority, st.EstimatedComplexity)))

	var b strings.Builder
	if len(prior) == 0 {
		b.WriteString("This is the first sub-task; complete it on its own.")
	} else {
		b.WriteString("Results of earlier sub-tasks:\n")
		for i, r := range prior {
			if i > 0 {
				b.WriteString("\n\n")
			}
			text := truncate(r.Result, PriorResultLimit)
			if text != r.Result {
				text += "..."
			}
			fmt.Fprintf(&b, "%d. %s:\n%s", i+1, r.Description, text)
		}
		b.WriteString("\n\nContinue from these results to complete the current sub-task.")
	}
	fmt.Fprintf(&b, "\n\nSub-task description: %s\n\nFocus on completing this sub-task.", st.Description)
	msgs = append(msgs, llm.User(b.String()))
	return msgs
}

// runSubTask executes one sub-task. Failures become unsuccessful results.
func (e *Engine) runSubTask(ctx context.Context, parent []llm.Message, st models.SubTask, prior []priorResult) models.SubTaskResult {
	agentID := e.newID()
	e.emit(events.Event{Name: events.SubAgentCreate, AgentID: agentID, TaskID: st.ID, Description: st.Description})

	start := time.Now()
	text, err := e.caller.Call(ctx, llm.Request{Messages: SubTaskMessages(parent, st, prior)})
	res := models.SubTaskResult{
		SubTaskID:   st.ID,
		Description: st.Description,
		AgentID:     agentID,
		Priority:    st.Priority,
		Duration:    time.Since(start),
	}
	if err != nil {
		e.log.Warn("sub-task failed", "task", st.ID, "agent", agentID, "error", err)
		res.Error = err.Error()
		return res
	}
	res.Success = true
	res.Result = text
	return res
}

// ExecutionGuidance is the system message steering a direct answer. It is
// empty when there is nothing to say.
func ExecutionGuidance(ta models.TaskAnalysis, ca models.ContextAnalysis) string {
	var parts []string
	if ca.RecommendedStyle != "" {
		parts = append(parts, "Response style: "+ca.RecommendedStyle)
	}
	if ta.Complexity != "" {
		parts = append(parts, "Task complexity: "+string(ta.Complexity))
	}
	if len(ca.KeyPoints) > 0 {
		parts = append(parts, "Focus points: "+strings.Join(ca.KeyPoints, ", "))
	}
	if WantsJSON(ta.OriginalPrompt) {
		parts = append(parts, "Output format: return a clean JSON object directly, without code fences, in standard easily parsed JSON")
	}
	if len(parts) == 0 {
		return ""
	}
	return "Execution guidance: " + strings.Join(parts, "; ")
}

// WantsJSON reports whether a prompt asks for JSON output.
func WantsJSON(prompt string) bool {
	return strings.Contains(strings.ToLower(prompt), "json")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
