package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled reports a serial run stopped by Cancel.
	ErrCancelled = errors.New("execution cancelled")
	// ErrPauseTimeout reports a pause that was never resumed.
	ErrPauseTimeout = errors.New("pause timed out, execution cancelled")
	// ErrBusy is returned when a run is already in flight.
	ErrBusy = errors.New("an execution is already running")
	// ErrNoJSONTemplate is returned when forced-JSON output is requested for
	// a decomposed run but the prompt holds no {...} template.
	ErrNoJSONTemplate = errors.New("forced JSON mode is enabled but the prompt holds no JSON template")
)

// ExecutionError aborts a run under StopOnError. It carries the progress
// made before the failure.
type ExecutionError struct {
	TaskID    string
	Total     int
	Completed int
	Failed    int
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sub-task %s failed (%d/%d completed, %d failed): %v",
		e.TaskID, e.Completed, e.Total, e.Failed, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
