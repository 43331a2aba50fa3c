package agent

import (
	"context"
	"regexp"
	"time"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

const factRunes = 200

// factPatterns classify turns worth remembering long-term.
var factPatterns = []struct {
	category string
	re       *regexp.Regexp
}{
	{"user_preference", regexp.MustCompile(`(?i)偏好|喜欢|习惯|prefer|favou?rite|habit`)},
	{"project_context", regexp.MustCompile(`(?i)项目|工程|代码|文件|project|code|file|repo`)},
	{"technical_stack", regexp.MustCompile(`(?i)技术|框架|语言|工具|framework|language|library|tool|stack`)},
}

// record appends the turn to memory, extracts long-term facts from
// decomposed results and mirrors long-term memory to the persister.
func (a *Agent) record(ctx context.Context, taskID, prompt string, res models.SynthesisResult, ca models.ContextAnalysis) {
	now := time.Now()
	a.mem.Append(ctx, models.Message{
		Role:      models.RoleUser,
		Content:   prompt,
		Timestamp: now,
		Metadata:  models.MessageMetadata{TaskID: taskID, ContextSummary: ca.Summary},
	})
	a.mem.Append(ctx, models.Message{
		Role:      models.RoleAssistant,
		Content:   res.Content,
		Timestamp: time.Now(),
		Metadata: models.MessageMetadata{
			TaskID:        taskID,
			ExecutionType: res.Type,
			SubTaskCount:  res.SubTaskCount,
		},
	})

	if res.Type == models.ResultSynthesis || res.SubTaskCount > 0 {
		a.extractFacts(prompt, res.Content, ca.Summary)
	}
	a.mem.Persist(ctx)
}

func (a *Agent) extractFacts(prompt, content, contextSummary string) {
	if content == "" {
		return
	}
	fact := truncateRunes(content, factRunes)
	for _, p := range factPatterns {
		if p.re.MatchString(prompt) || p.re.MatchString(content) {
			key := a.mem.Remember(p.category, fact, contextSummary)
			a.log.Debug("stored long-term fact", "key", key)
		}
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
