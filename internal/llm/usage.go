package llm

import "sync"

// UsageTracker accumulates token usage across calls.
type UsageTracker struct {
	mu     sync.Mutex
	prompt int64
	output int64
	calls  int
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// Add records usage from one call.
func (t *UsageTracker) Add(u Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompt += int64(u.PromptTokens)
	t.output += int64(u.CompletionTokens)
	t.calls++
}

// Total returns the prompt and completion tokens tracked.
func (t *UsageTracker) Total() (prompt, completion int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prompt, t.output
}

// Calls returns the number of calls recorded.
func (t *UsageTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears all tracked usage.
func (t *UsageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prompt = 0
	t.output = 0
	t.calls = 0
}
