package orchestrator

import (
	"context"
	"sync"
	"time"
)

// PauseController holds the pause and cancel flags of one serial run.
// Resume and Cancel wake a blocked WaitIfPaused directly.
type PauseController struct {
	paused    bool
	cancelled bool
	mu        sync.Mutex
	cond      *sync.Cond
}

// NewPauseController creates a new PauseController.
func NewPauseController() *PauseController {
	p := &PauseController{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Pause marks the run paused. It reports whether the state changed.
func (p *PauseController) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.cancelled {
		return false
	}
	p.paused = true
	return true
}

// Resume clears the pause. It reports whether the state changed.
func (p *PauseController) Resume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return false
	}
	p.paused = false
	p.cond.Broadcast()
	return true
}

// Cancel marks the run cancelled. It reports whether the state changed.
func (p *PauseController) Cancel() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled {
		return false
	}
	p.cancelled = true
	p.cond.Broadcast()
	return true
}

// IsPaused returns whether the run is paused.
func (p *PauseController) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// IsCancelled returns whether the run has been cancelled.
func (p *PauseController) IsCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// WaitIfPaused blocks while the run is paused. It returns ErrCancelled once
// the run is cancelled, ErrPauseTimeout (and marks the run cancelled) when
// the pause outlasts timeout, or the context error. A timeout <= 0 waits
// indefinitely.
func (p *PauseController) WaitIfPaused(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused && !p.cancelled {
		var expiry <-chan time.Time
		if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			expiry = t.C
		}

		expired := false
		done := make(chan struct{})
		defer close(done)
		// One waker per wait; spurious wakeups do not spawn more.
		go func() {
			select {
			case <-done:
				return
			case <-ctx.Done():
			case <-expiry:
				p.mu.Lock()
				expired = true
				p.mu.Unlock()
			}
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		}()

		for p.paused && !p.cancelled && !expired {
			p.cond.Wait()
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if expired && !p.cancelled {
			p.cancelled = true
			return ErrPauseTimeout
		}
	}
	if p.cancelled {
		return ErrCancelled
	}
	return nil
}
