package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/wkagent/internal/events"
)

type fakeControls struct {
	paused, resumed, cancelled int
}

func (f *fakeControls) Pause() bool  { f.paused++; return true }
func (f *fakeControls) Resume() bool { f.resumed++; return true }
func (f *fakeControls) Cancel() bool { f.cancelled++; return true }

func TestProgress_AppliesEvents(t *testing.T) {
	p := NewProgress("test", nil, nil)

	p.apply(events.Event{Name: events.SerialStart, Total: 4, Message: "serial"})
	p.apply(events.Event{Name: events.SerialTaskStart, Index: 1, Total: 4, Description: "collect data"})
	p.apply(events.Event{Name: events.SerialTaskComplete, Index: 1, Total: 4})
	p.apply(events.Event{Name: events.SerialTaskFailed, Index: 2, Total: 4})

	if p.total != 4 || p.completed != 1 || p.failed != 1 {
		t.Fatalf("unexpected counts: total=%d completed=%d failed=%d", p.total, p.completed, p.failed)
	}
	if got := p.Percent(); got != 0.5 {
		t.Errorf("expected 0.5 progress, got %v", got)
	}
	if p.phase != "sub-task 1/4" {
		t.Errorf("unexpected phase %q", p.phase)
	}

	p.apply(events.Event{Name: events.SerialPaused})
	if !strings.Contains(p.View(), "PAUSED") {
		t.Error("expected paused marker in view")
	}
	p.apply(events.Event{Name: events.SerialResumed})
	if strings.Contains(p.View(), "PAUSED") {
		t.Error("expected paused marker to clear")
	}

	p.apply(events.Event{Name: events.TaskError, Err: errors.New("boom")})
	if p.phase != "failed" {
		t.Errorf("expected failed phase, got %q", p.phase)
	}
	if !strings.Contains(p.View(), "boom") {
		t.Error("expected error in activity log")
	}
}

func TestProgress_LogIsBounded(t *testing.T) {
	p := NewProgress("test", nil, nil)
	for i := 0; i < 20; i++ {
		p.apply(events.Event{Name: events.SerialTaskStart, Index: i + 1, Total: 20})
	}
	if len(p.logs) != maxLogLines {
		t.Errorf("expected %d log lines, got %d", maxLogLines, len(p.logs))
	}
}

func TestProgress_KeysDriveControls(t *testing.T) {
	c := &fakeControls{}
	p := NewProgress("test", nil, c)

	for _, k := range []string{"p", "r", "c"} {
		p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	}
	if c.paused != 1 || c.resumed != 1 || c.cancelled != 1 {
		t.Fatalf("unexpected control calls: %+v", c)
	}

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if c.cancelled != 2 {
		t.Errorf("expected quit to cancel the run, got %d cancels", c.cancelled)
	}
}

func TestProgress_ReadsFeed(t *testing.T) {
	feed := make(chan events.Event, 1)
	p := NewProgress("test", feed, nil)

	feed <- events.Event{Name: events.SerialStart, Total: 2}
	msg := waitForEvent(feed)()
	_, next := p.Update(msg)

	if p.total != 2 {
		t.Errorf("expected total 2, got %d", p.total)
	}
	if next == nil {
		t.Error("expected the model to keep reading the feed")
	}

	close(feed)
	if msg := waitForEvent(feed)(); msg != nil {
		t.Errorf("expected nil message on closed feed, got %#v", msg)
	}
}

func TestProgress_DoneQuits(t *testing.T) {
	p := NewProgress("test", nil, nil)
	_, cmd := p.Update(DoneMsg{Success: true})
	if !p.done || cmd == nil {
		t.Fatal("expected done state and quit command")
	}
	if p.View() != "" {
		t.Error("expected empty view after completion")
	}
}
