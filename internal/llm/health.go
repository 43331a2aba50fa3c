package llm

import (
	"context"
	"time"
)

// Health is the outcome of a HealthCheck.
type Health struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Model   string        `json:"model,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// HealthCheck sends a minimal request and reports whether it succeeded.
func HealthCheck(ctx context.Context, c Completer) Health {
	start := time.Now()
	resp, err := c.Complete(ctx, Request{
		Messages: []Message{
			System("You are a helpful assistant."),
			User("Hello"),
		},
		MaxTokens: 10,
	})
	h := Health{Latency: time.Since(start)}
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.Healthy = true
	h.Model = resp.Model
	return h
}
