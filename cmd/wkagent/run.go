package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/wkagent/internal/agent"
	"github.com/ShayCichocki/wkagent/internal/config"
	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/jsonx"
	"github.com/ShayCichocki/wkagent/internal/metrics"
	"github.com/ShayCichocki/wkagent/internal/tui"
)

var (
	runConcurrent  bool
	runMaxSubTasks int
	runForceJSON   bool
	runHistory     bool
	runSystem      string
	runJSONOut     bool
	runTUI         bool
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Answer a single prompt",
	Long: `Answer a single prompt and exit.

The prompt is analysed first. Simple prompts are answered with one call;
complex ones are decomposed into sub-tasks and the results synthesized.

Execution overrides:
  --concurrent     Run sub-tasks together instead of one after another
  --max-subtasks   Cap the plan size (1 answers every prompt directly)
  --force-json     Always return a JSON document
  --history        Analyse earlier conversation before answering

Output:
  --json           Print the full response envelope as JSON
  --tui            Show live progress (p pause, r resume, c cancel)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrompt,
}

func init() {
	runCmd.Flags().BoolVar(&runConcurrent, "concurrent", false, "Run sub-tasks concurrently")
	runCmd.Flags().IntVar(&runMaxSubTasks, "max-subtasks", 0, "Maximum number of sub-tasks (0 keeps the configured value)")
	runCmd.Flags().BoolVar(&runForceJSON, "force-json", false, "Force a JSON result")
	runCmd.Flags().BoolVar(&runHistory, "history", false, "Enable conversation history analysis")
	runCmd.Flags().StringVar(&runSystem, "system", "", "Override the system prompt for this call")
	runCmd.Flags().BoolVar(&runJSONOut, "json", false, "Print the response envelope as JSON")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show a live progress view")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
}

// applyRunFlags overlays command-line overrides on the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("concurrent") {
		cfg.Agent.Concurrent = runConcurrent
	}
	if runMaxSubTasks > 0 {
		cfg.Agent.MaxSubTasks = runMaxSubTasks
	}
	if cmd.Flags().Changed("force-json") {
		cfg.Agent.ForceJSON = runForceJSON
	}
	if cmd.Flags().Changed("history") {
		cfg.Agent.HistoryAnalysis = runHistory
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	if runMetricsAddr != "" {
		collector := metrics.NewCollector(s.events.Faults)
		collector.Attach(s.events)
		go func() {
			if err := collector.Serve(ctx, runMetricsAddr, s.log); err != nil {
				s.log.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	prompt := strings.Join(args, " ")
	opts := agent.ExecuteOptions{SystemPrompt: runSystem}

	var resp agent.Response
	if runTUI {
		bridge := events.NewBridge(64)
		bridge.Attach(s.events)
		defer bridge.Close()
		err = tui.Run(ctx, truncateTitle(prompt), bridge, s.agent, func() error {
			resp = s.agent.Execute(ctx, prompt, opts)
			if !resp.Success {
				return errors.New(resp.Error)
			}
			return nil
		})
		if err != nil && resp.TaskID == "" {
			return err
		}
	} else {
		resp = s.agent.Execute(ctx, prompt, opts)
	}

	if runJSONOut {
		fmt.Fprintln(os.Stdout, jsonx.Indent(resp))
	} else {
		printResponse(os.Stdout, resp)
	}
	if !resp.Success {
		return fmt.Errorf("task %s failed", resp.TaskID)
	}
	return nil
}

// printResponse writes a human-readable rendering of resp.
func printResponse(w io.Writer, resp agent.Response) {
	if !resp.Success {
		fmt.Fprintf(w, "%s %s\n", color.RedString("✗"), resp.Error)
		if p := resp.Metadata.Progress; p != nil {
			fmt.Fprintf(w, "  %d/%d sub-tasks completed, %d failed\n", p.Completed, p.Total, p.Failed)
		}
		return
	}
	if resp.Result != nil {
		fmt.Fprintln(w, resp.Result.Content)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.New(color.Faint).Sprint(summaryLine(resp)))
}

func summaryLine(resp agent.Response) string {
	md := resp.Metadata
	parts := []string{resp.TaskID, md.Duration.Round(time.Millisecond).String()}
	if md.UsedSubAgents {
		parts = append(parts, fmt.Sprintf("%d sub-tasks", md.SubAgentCount))
	}
	if r := resp.Result; r != nil {
		if r.Method != "" {
			parts = append(parts, string(r.Method))
		}
		if md.ForceJSON {
			parts = append(parts, "format="+r.Format)
		}
	}
	return strings.Join(parts, " · ")
}

func truncateTitle(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= 60 {
		return string(r)
	}
	return string(r[:57]) + "..."
}
