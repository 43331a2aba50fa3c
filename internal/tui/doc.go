// Package tui renders a live progress view of a single wkagent turn.
//
// The view is read-only apart from the run controls: 'p' pauses the serial
// run, 'r' resumes it, 'c' cancels it, and 'q' or Ctrl+C cancels and quits.
// It is fed by an events.Bridge:
//
//	bridge := events.NewBridge(128)
//	bridge.Attach(agent.Events())
//	err := tui.Run(ctx, "wkagent", bridge, agent, func() error {
//	    resp = agent.Execute(ctx, prompt, opts)
//	    return nil
//	})
package tui
