package orchestrator

import (
	"sync"
	"time"

	"github.com/ShayCichocki/wkagent/internal/events"
)

const (
	modeSequential = "sequential"
	modeConcurrent = "concurrent"
)

// run is the state of the single decomposed execution in flight.
type run struct {
	mode  string
	start time.Time
	pause *PauseController

	mu        sync.Mutex
	total     int
	completed int
	failed    int
	current   int
}

func (r *run) setCurrent(i int) {
	r.mu.Lock()
	r.current = i
	r.mu.Unlock()
}

func (r *run) succeed() {
	r.mu.Lock()
	r.completed++
	r.mu.Unlock()
}

func (r *run) fail() {
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()
}

func (r *run) counts() (completed, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed, r.failed
}

func (e *Engine) startRun(total int, concurrent bool) *run {
	r := &run{mode: modeSequential, start: time.Now(), pause: NewPauseController(), total: total}
	if concurrent {
		r.mode = modeConcurrent
	}
	e.mu.Lock()
	e.run = r
	e.mu.Unlock()
	return r
}

func (e *Engine) endRun() {
	e.mu.Lock()
	e.run = nil
	e.mu.Unlock()
}

func (e *Engine) current() *run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run
}

// Status is a snapshot of the live run.
type Status struct {
	IsRunning        bool    `json:"isRunning"`
	Mode             string  `json:"mode,omitempty"`
	Phase            Phase   `json:"phase"`
	IsPaused         bool    `json:"isPaused"`
	IsCancelled      bool    `json:"isCancelled"`
	CurrentTaskIndex int     `json:"currentTaskIndex"`
	TotalTasks       int     `json:"totalTasks"`
	CompletedTasks   int     `json:"completedTasks"`
	FailedTasks      int     `json:"failedTasks"`
	Progress         float64 `json:"progress"`
}

// Status reports the live run. IsRunning is false between runs.
func (e *Engine) Status() Status {
	e.mu.Lock()
	r, phase := e.run, e.phase
	e.mu.Unlock()
	if r == nil {
		return Status{Phase: phase}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		IsRunning:        true,
		Mode:             r.mode,
		Phase:            phase,
		IsPaused:         r.pause.IsPaused(),
		IsCancelled:      r.pause.IsCancelled(),
		CurrentTaskIndex: r.current,
		TotalTasks:       r.total,
		CompletedTasks:   r.completed,
		FailedTasks:      r.failed,
	}
	if r.total > 0 {
		st.Progress = float64(r.completed) / float64(r.total) * 100
	}
	return st
}

// serialRun returns the live run when it is sequential. Concurrent runs
// launch every sub-task at once, so there is no point between sub-tasks to
// pause or cancel at.
func (e *Engine) serialRun() *run {
	r := e.current()
	if r == nil || r.mode == modeConcurrent {
		return nil
	}
	return r
}

// Pause suspends the live serial run before its next sub-task. It reports
// whether a serial run was live.
func (e *Engine) Pause() bool {
	r := e.serialRun()
	if r == nil {
		return false
	}
	if r.pause.Pause() {
		e.emit(events.Event{Name: events.SerialPaused})
		e.log.Info("serial execution paused")
	}
	return true
}

// Resume continues a paused serial run. It reports whether a serial run was
// live.
func (e *Engine) Resume() bool {
	r := e.serialRun()
	if r == nil {
		return false
	}
	if r.pause.Resume() {
		e.emit(events.Event{Name: events.SerialResumed})
		e.log.Info("serial execution resumed")
	}
	return true
}

// Cancel stops the live serial run before its next sub-task; an in-flight
// completion call is not interrupted. It reports whether a serial run was
// live.
func (e *Engine) Cancel() bool {
	r := e.serialRun()
	if r == nil {
		return false
	}
	if r.pause.Cancel() {
		e.log.Info("serial execution cancelled")
	}
	return true
}
