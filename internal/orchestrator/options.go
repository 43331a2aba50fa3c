package orchestrator

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/logging"
)

// ErrorPolicy decides what a serial run does after a failed sub-task.
type ErrorPolicy string

const (
	// StopOnError aborts the remaining sub-tasks.
	StopOnError ErrorPolicy = "stop_on_error"
	// ContinueOnError records the failure and moves on.
	ContinueOnError ErrorPolicy = "continue_on_error"
)

// ParseErrorPolicy validates s.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case StopOnError, ContinueOnError:
		return p, nil
	case "":
		return StopOnError, nil
	default:
		return "", fmt.Errorf("unknown error handling policy %q", s)
	}
}

// DefaultPauseTimeout bounds how long a paused serial run waits for resume.
const DefaultPauseTimeout = 5 * time.Minute

// Config controls execution.
type Config struct {
	// Concurrent runs the sub-tasks of a plan together.
	Concurrent bool
	// MaxSubTasks caps plans. With 1 and Concurrent unset every prompt is
	// answered directly.
	MaxSubTasks int
	// SmartDecomposition enables quick and deep task analysis.
	SmartDecomposition bool
	ErrorHandling      ErrorPolicy
	// SequentialDelay is inserted between serial sub-tasks.
	SequentialDelay time.Duration
	PauseTimeout    time.Duration
}

// DefaultConfig returns the default execution settings.
func DefaultConfig() Config {
	return Config{
		MaxSubTasks:        3,
		SmartDecomposition: true,
		ErrorHandling:      StopOnError,
		PauseTimeout:       DefaultPauseTimeout,
	}
}

// Option configures an Engine. Use With* functions to create Options.
type Option func(*engineOptions)

type engineOptions struct {
	events *events.Registry
	logger logging.Logger
	newID  func() string
}

// WithEvents sets the registry lifecycle events are emitted to.
func WithEvents(r *events.Registry) Option {
	return func(o *engineOptions) { o.events = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithIDGenerator sets the sub-agent id generator (mainly for testing).
func WithIDGenerator(f func() string) Option {
	return func(o *engineOptions) { o.newID = f }
}
