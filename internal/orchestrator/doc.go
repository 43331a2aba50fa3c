// Package orchestrator is the execution engine.
//
// An Engine takes a prompt, its message history and a context analysis, and
// either answers with a single guided completion or decomposes the task and
// runs the sub-tasks:
//
//   - serially, in plan order, each sub-task seeing the results of the
//     successful ones before it, with pause/resume/cancel control;
//   - or concurrently, fanned out together and joined before synthesis.
//
// Sub-task results are merged by the synthesis package. Lifecycle events go
// to an events.Registry.
//
// Example usage:
//
//	eng, err := orchestrator.New(orchestrator.DefaultConfig(), caller,
//		orchestrator.WithEvents(reg), orchestrator.WithLogger(log))
//	out, err := eng.Run(ctx, orchestrator.Input{Messages: msgs, Prompt: prompt, Context: ca})
package orchestrator
