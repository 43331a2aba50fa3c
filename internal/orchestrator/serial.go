package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/pkg/models"
)

// runSerial runs plan in order. Each sub-task sees the successful results
// before it. Cancellation and pause are observed between sub-tasks; a
// cancelled or timed-out run returns the results gathered so far.
func (e *Engine) runSerial(ctx context.Context, parent []llm.Message, plan []models.SubTask, r *run) ([]models.SubTaskResult, error) {
	var (
		results []models.SubTaskResult
		prior   []priorResult
	)

	for i, st := range plan {
		r.setCurrent(i)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := r.pause.WaitIfPaused(ctx, e.cfg.PauseTimeout); err != nil {
			completed, failed := r.counts()
			switch {
			case errors.Is(err, ErrPauseTimeout):
				e.log.Warn("pause timed out, cancelling", "timeout", e.cfg.PauseTimeout)
				e.emit(events.Event{
					Name:      events.SerialTimeout,
					Message:   "pause timed out, execution cancelled",
					Duration:  e.cfg.PauseTimeout,
					Completed: completed,
					Failed:    failed,
					Err:       err,
				})
				return results, nil
			case errors.Is(err, ErrCancelled):
				e.emit(events.Event{Name: events.SerialCancelled, Total: len(plan), Completed: completed, Failed: failed})
				return results, nil
			default:
				return nil, err
			}
		}

		e.emit(events.Event{
			Name:        events.SerialTaskStart,
			Index:       i + 1,
			Total:       len(plan),
			TaskID:      st.ID,
			Description: st.Description,
		})

		res := e.runSubTask(ctx, parent, st, prior)
		if res.Success {
			r.succeed()
			prior = append(prior, priorResult{Description: st.Description, Result: res.Result})
			e.emit(events.Event{Name: events.SerialTaskComplete, Index: i + 1, Total: len(plan), TaskID: st.ID, AgentID: res.AgentID, Duration: res.Duration})
		} else {
			r.fail()
			failure := errors.New(res.Error)
			e.emit(events.Event{Name: events.SerialTaskFailed, Index: i + 1, Total: len(plan), TaskID: st.ID, AgentID: res.AgentID, Err: failure})

			if e.cfg.ErrorHandling != ContinueOnError {
				completed, failed := r.counts()
				e.emit(events.Event{Name: events.SerialTaskError, Index: i + 1, Total: len(plan), TaskID: st.ID, Err: failure})
				return nil, &ExecutionError{TaskID: st.ID, Total: len(plan), Completed: completed, Failed: failed, Err: failure}
			}
		}
		results = append(results, res)

		if i < len(plan)-1 && e.cfg.SequentialDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.cfg.SequentialDelay):
			}
		}
	}
	return results, nil
}
