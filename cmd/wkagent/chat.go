package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/wkagent/internal/agent"
	"github.com/ShayCichocki/wkagent/internal/jsonx"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation. Each line is one turn; memory
carries context between turns.

Commands, available while a turn is running:
  /status   Show the live run status
  /memory   Show memory tier sizes
  /usage    Show token usage for this session
  /pause    Pause a serial run before its next sub-task
  /resume   Resume a paused run
  /cancel   Cancel the running turn
  /quit     Exit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	s.watchConfig()

	return chatLoop(ctx, s.agent, os.Stdin, os.Stdout)
}

// controller is the subset of the agent the REPL drives.
type controller interface {
	Execute(ctx context.Context, prompt string, opts agent.ExecuteOptions) agent.Response
	Pause() bool
	Resume() bool
	Cancel() bool
	Status() any
	MemoryUsage() any
	TokenUsage() any
}

type agentController struct{ *agent.Agent }

func (a agentController) Status() any      { return a.Agent.Status() }
func (a agentController) MemoryUsage() any { return a.Agent.Memory().Usage() }

func (a agentController) TokenUsage() any {
	prompt, completion, calls, ok := a.Agent.Usage()
	if !ok {
		return map[string]any{"tracked": false}
	}
	return map[string]any{"tracked": true, "calls": calls, "promptTokens": prompt, "completionTokens": completion}
}

func chatLoop(ctx context.Context, a *agent.Agent, in io.Reader, out io.Writer) error {
	return repl(ctx, agentController{a}, in, out)
}

// readLines scans in on its own goroutine. The returned channel is closed at
// EOF, or once stop is closed or ctx is done, whichever comes first.
func readLines(ctx context.Context, in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

// repl reads lines from in. Turns run on their own goroutine so control
// commands are honoured while a turn is in flight.
func repl(ctx context.Context, c controller, in io.Reader, out io.Writer) error {
	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(ctx, in, stop)

	prompt := color.CyanString("› ")
	fmt.Fprint(out, prompt)

	var done chan agent.Response
	cancelTurn := func() {}
	defer func() { cancelTurn() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case resp := <-done:
			done = nil
			cancelTurn()
			printResponse(out, resp)
			fmt.Fprint(out, prompt)
		case line, ok := <-lines:
			if !ok {
				if done != nil {
					printResponse(out, <-done)
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				if done == nil {
					fmt.Fprint(out, prompt)
				}
				continue
			}
			if strings.HasPrefix(line, "/") {
				if quit := handleCommand(c, line, out); quit {
					if done != nil {
						c.Cancel()
						cancelTurn()
						<-done
					}
					return nil
				}
				continue
			}
			if done != nil {
				fmt.Fprintln(out, color.YellowString("a turn is already running; /cancel it or wait"))
				continue
			}
			var turnCtx context.Context
			turnCtx, cancelTurn = context.WithCancel(ctx)
			done = make(chan agent.Response, 1)
			go func(ch chan agent.Response, p string) {
				ch <- c.Execute(turnCtx, p, agent.ExecuteOptions{})
			}(done, line)
		}
	}
}

// handleCommand runs a slash command and reports whether the REPL should exit.
func handleCommand(c controller, line string, out io.Writer) bool {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return true
	case "/status":
		fmt.Fprintln(out, jsonx.Indent(c.Status()))
	case "/memory":
		fmt.Fprintln(out, jsonx.Indent(c.MemoryUsage()))
	case "/usage":
		fmt.Fprintln(out, jsonx.Indent(c.TokenUsage()))
	case "/pause":
		reportControl(out, "pause", c.Pause())
	case "/resume":
		reportControl(out, "resume", c.Resume())
	case "/cancel":
		reportControl(out, "cancel", c.Cancel())
	default:
		fmt.Fprintf(out, "unknown command %s\n", line)
	}
	return false
}

func reportControl(out io.Writer, what string, ok bool) {
	if ok {
		printStatusTo(out, "✓", what+" requested", color.FgGreen)
		return
	}
	printStatusTo(out, "⚠", "nothing to "+what, color.FgYellow)
}

func printStatusTo(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}
