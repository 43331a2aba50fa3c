package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// runConcurrent launches every sub-task at once and waits for all of them.
// Results keep plan order. Sub-task failures are results, not errors.
func (e *Engine) runConcurrent(ctx context.Context, parent []llm.Message, plan []models.SubTask, r *run) ([]models.SubTaskResult, error) {
	results := make([]models.SubTaskResult, len(plan))
	g, gctx := errgroup.WithContext(ctx)

	for i, st := range plan {
		g.Go(func() error {
			e.emit(events.Event{Name: events.SerialTaskStart, Index: i + 1, Total: len(plan), TaskID: st.ID, Description: st.Description})
			res := e.runSubTask(gctx, parent, st, nil)
			if res.Success {
				r.succeed()
				e.emit(events.Event{Name: events.SerialTaskComplete, Index: i + 1, Total: len(plan), TaskID: st.ID, AgentID: res.AgentID, Duration: res.Duration})
			} else {
				r.fail()
				e.emit(events.Event{Name: events.SerialTaskFailed, Index: i + 1, Total: len(plan), TaskID: st.ID, AgentID: res.AgentID})
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
