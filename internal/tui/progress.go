package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/wkagent/internal/events"
)

const maxLogLines = 8

// Controls are the run controls bound to keys.
type Controls interface {
	Pause() bool
	Resume() bool
	Cancel() bool
}

// EventMsg wraps an engine event for the TUI.
type EventMsg struct {
	Event events.Event
}

// DoneMsg signals that the turn has finished.
type DoneMsg struct {
	Success bool
	Message string
}

// LogEntry is one line of the activity log.
type LogEntry struct {
	Timestamp time.Time
	Message   string
	Failed    bool
}

// Progress is the bubbletea model for a single turn.
type Progress struct {
	title    string
	controls Controls
	feed     <-chan events.Event

	spinner spinner.Model
	bar     progress.Model

	phase     string
	total     int
	completed int
	failed    int
	paused    bool
	logs      []LogEntry

	done     bool
	success  bool
	message  string
	quitting bool
	width    int

	titleStyle  lipgloss.Style
	labelStyle  lipgloss.Style
	valueStyle  lipgloss.Style
	pausedStyle lipgloss.Style
	failedStyle lipgloss.Style
	dimStyle    lipgloss.Style
}

// NewProgress creates the model. feed is typically a Bridge channel;
// controls may be nil.
func NewProgress(title string, feed <-chan events.Event, controls Controls) *Progress {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Progress{
		title:    title,
		controls: controls,
		feed:     feed,
		spinner:  s,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		phase:    "starting",

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),
		labelStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12),
		valueStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true),
		pausedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		failedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		dimStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (p *Progress) Init() tea.Cmd {
	return tea.Batch(p.spinner.Tick, waitForEvent(p.feed))
}

func waitForEvent(feed <-chan events.Event) tea.Cmd {
	if feed == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-feed
		if !ok {
			return nil
		}
		return EventMsg{Event: e}
	}
}

// Update implements tea.Model.
func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return p, p.handleKey(msg.String())
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.bar.Width = min(max(msg.Width-20, 10), 60)
	case EventMsg:
		p.apply(msg.Event)
		return p, waitForEvent(p.feed)
	case DoneMsg:
		p.done = true
		p.success = msg.Success
		p.message = msg.Message
		return p, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	case progress.FrameMsg:
		m, cmd := p.bar.Update(msg)
		p.bar = m.(progress.Model)
		return p, cmd
	}
	return p, nil
}

func (p *Progress) handleKey(key string) tea.Cmd {
	switch key {
	case "p":
		if p.controls != nil && p.controls.Pause() {
			p.log("pause requested", false)
		}
	case "r":
		if p.controls != nil && p.controls.Resume() {
			p.log("resume requested", false)
		}
	case "c":
		if p.controls != nil && p.controls.Cancel() {
			p.log("cancel requested", false)
		}
	case "q", "ctrl+c":
		if p.controls != nil {
			p.controls.Cancel()
		}
		p.quitting = true
		return tea.Quit
	}
	return nil
}

// apply folds one event into the view state.
func (p *Progress) apply(e events.Event) {
	switch e.Name {
	case events.TaskStart:
		p.phase = "analyzing"
	case events.ContextAnalyze:
		p.phase = "analyzing context"
	case events.SerialStart:
		p.total = e.Total
		p.completed, p.failed = 0, 0
		p.phase = "running " + e.Message
		p.log(fmt.Sprintf("plan with %d sub-tasks", e.Total), false)
	case events.SerialTaskStart:
		p.phase = fmt.Sprintf("sub-task %d/%d", e.Index, e.Total)
		p.log(fmt.Sprintf("[%d/%d] %s", e.Index, e.Total, e.Description), false)
	case events.SerialTaskComplete:
		p.completed++
		p.log(fmt.Sprintf("[%d/%d] done in %s", e.Index, e.Total, e.Duration.Round(time.Millisecond)), false)
	case events.SerialTaskFailed:
		p.failed++
		p.log(fmt.Sprintf("[%d/%d] failed", e.Index, e.Total), true)
	case events.SerialComplete:
		p.phase = "synthesizing"
	case events.SerialPaused:
		p.paused = true
	case events.SerialResumed:
		p.paused = false
	case events.SerialCancelled:
		p.paused = false
		p.log(fmt.Sprintf("cancelled after %d/%d", e.Completed, e.Total), true)
	case events.SerialTimeout:
		p.paused = false
		p.log(e.Message, true)
	case events.MemoryCompress:
		p.log(fmt.Sprintf("memory compressed %d messages (%d%%)", e.OriginalCount, e.Ratio), false)
	case events.TaskComplete:
		p.phase = "complete"
	case events.TaskError:
		p.phase = "failed"
		if e.Err != nil {
			p.log(e.Err.Error(), true)
		}
	}
}

func (p *Progress) log(msg string, failed bool) {
	p.logs = append(p.logs, LogEntry{Timestamp: time.Now(), Message: msg, Failed: failed})
	if len(p.logs) > maxLogLines {
		p.logs = p.logs[len(p.logs)-maxLogLines:]
	}
}

// Percent is the share of finished sub-tasks.
func (p *Progress) Percent() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.completed+p.failed) / float64(p.total)
}

// View implements tea.Model.
func (p *Progress) View() string {
	if p.done || p.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.titleStyle.Render(p.title))
	b.WriteString("\n")

	b.WriteString(p.spinner.View())
	b.WriteString(" ")
	b.WriteString(p.labelStyle.Render("Phase:"))
	b.WriteString(p.valueStyle.Render(p.phase))
	if p.paused {
		b.WriteString("  ")
		b.WriteString(p.pausedStyle.Render("PAUSED"))
	}
	b.WriteString("\n")

	if p.total > 0 {
		b.WriteString(p.bar.ViewAs(p.Percent()))
		b.WriteString(fmt.Sprintf("  %d/%d", p.completed+p.failed, p.total))
		if p.failed > 0 {
			b.WriteString(p.failedStyle.Render(fmt.Sprintf("  %d failed", p.failed)))
		}
		b.WriteString("\n")
	}

	if len(p.logs) > 0 {
		b.WriteString("\n")
		for _, l := range p.logs {
			line := l.Timestamp.Format("15:04:05") + " " + l.Message
			if l.Failed {
				line = p.failedStyle.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(p.dimStyle.Render("p pause • r resume • c cancel • q quit"))
	b.WriteString("\n")
	return b.String()
}

// Run shows the progress view while work runs. The view closes when work
// returns; work's error is returned unchanged.
func Run(ctx context.Context, title string, bridge *events.Bridge, controls Controls, work func() error) error {
	model := NewProgress(title, bridge.Events(), controls)
	program := tea.NewProgram(model, tea.WithContext(ctx))

	errc := make(chan error, 1)
	go func() {
		err := work()
		errc <- err
		msg := DoneMsg{Success: err == nil}
		if err != nil {
			msg.Message = err.Error()
		}
		program.Send(msg)
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("progress view: %w", err)
	}
	return <-errc
}
