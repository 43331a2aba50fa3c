// Package events carries lifecycle notifications from the engine to
// observers such as the TUI, metrics, and debug logging.
package events

import (
	"time"
)

// Name identifies an event kind.
type Name string

const (
	TaskStart      Name = "task:start"
	TaskComplete   Name = "task:complete"
	TaskError      Name = "task:error"
	MemoryCompress Name = "memory:compress"
	SubAgentCreate Name = "subAgent:create"
	ContextAnalyze Name = "context:analyze"

	SerialStart        Name = "serial:start"
	SerialTaskStart    Name = "serial:task:start"
	SerialTaskComplete Name = "serial:task:complete"
	SerialTaskFailed   Name = "serial:task:failed"
	SerialTaskError    Name = "serial:task:error"
	SerialComplete     Name = "serial:complete"
	SerialPaused       Name = "serial:paused"
	SerialResumed      Name = "serial:resumed"
	SerialCancelled    Name = "serial:cancelled"
	SerialTimeout      Name = "serial:timeout"
)

// All lists every event name in emission-group order.
var All = []Name{
	TaskStart, TaskComplete, TaskError, MemoryCompress, SubAgentCreate, ContextAnalyze,
	SerialStart, SerialTaskStart, SerialTaskComplete, SerialTaskFailed, SerialTaskError,
	SerialComplete, SerialPaused, SerialResumed, SerialCancelled, SerialTimeout,
}

// Event is a single notification. Fields that do not apply are zero.
type Event struct {
	Name      Name
	Timestamp time.Time

	// TaskID is the turn or sub-task id.
	TaskID string
	// AgentID is set on sub-agent events.
	AgentID     string
	Description string
	Prompt      string

	// Index is the 1-based position of a sub-task in the plan.
	Index     int
	Total     int
	Completed int
	Failed    int

	Duration time.Duration
	// Message carries a short human-readable detail.
	Message string
	Err     error

	// Compression details for MemoryCompress.
	OriginalCount   int
	CompressedCount int
	Ratio           int
}

// Listener observes events. It runs synchronously on the emitting goroutine.
type Listener func(Event)
