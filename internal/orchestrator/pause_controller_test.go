package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestPauseController_NotPaused(t *testing.T) {
	p := NewPauseController()
	if err := p.WaitIfPaused(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitIfPaused() = %v, want nil", err)
	}
}

func TestPauseController_ResumeWakesWaiter(t *testing.T) {
	p := NewPauseController()
	if !p.Pause() {
		t.Fatal("Pause() = false, want true")
	}
	if p.Pause() {
		t.Error("second Pause() = true, want false")
	}

	errc := make(chan error, 1)
	go func() { errc <- p.WaitIfPaused(context.Background(), time.Minute) }()

	time.Sleep(10 * time.Millisecond)
	p.Resume()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("WaitIfPaused() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by Resume")
	}
	if p.IsPaused() {
		t.Error("IsPaused() = true after Resume")
	}
}

func TestPauseController_CancelWakesWaiter(t *testing.T) {
	p := NewPauseController()
	p.Pause()

	errc := make(chan error, 1)
	go func() { errc <- p.WaitIfPaused(context.Background(), time.Minute) }()

	time.Sleep(10 * time.Millisecond)
	p.Cancel()

	select {
	case err := <-errc:
		if err != ErrCancelled {
			t.Fatalf("WaitIfPaused() = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by Cancel")
	}
}

func TestPauseController_CancelledWithoutPause(t *testing.T) {
	p := NewPauseController()
	p.Cancel()
	if err := p.WaitIfPaused(context.Background(), time.Second); err != ErrCancelled {
		t.Fatalf("WaitIfPaused() = %v, want ErrCancelled", err)
	}
	if p.Pause() {
		t.Error("Pause() after Cancel = true, want false")
	}
}

func TestPauseController_Timeout(t *testing.T) {
	p := NewPauseController()
	p.Pause()

	start := time.Now()
	err := p.WaitIfPaused(context.Background(), 20*time.Millisecond)
	if err != ErrPauseTimeout {
		t.Fatalf("WaitIfPaused() = %v, want ErrPauseTimeout", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("returned before the timeout elapsed")
	}
	if !p.IsCancelled() {
		t.Error("timeout did not mark the run cancelled")
	}
}

func TestPauseController_ContextCancel(t *testing.T) {
	p := NewPauseController()
	p.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.WaitIfPaused(ctx, 0) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Fatalf("WaitIfPaused() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by context cancellation")
	}
}
