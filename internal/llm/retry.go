package llm

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig controls RetryCompleter backoff.
type RetryConfig struct {
	// Attempts is the number of retries after the first call. Zero disables retrying.
	Attempts int
	Base     time.Duration
	// Max caps a single wait.
	Max    time.Duration
	Jitter time.Duration
}

// RetryCompleter retries transient failures of the wrapped client with
// exponential backoff. Streams are passed through untouched.
type RetryCompleter struct {
	next Client
	cfg  RetryConfig
}

// WithRetry wraps c. When cfg.Attempts is zero it returns c unchanged.
func WithRetry(c Client, cfg RetryConfig) Client {
	if cfg.Attempts <= 0 {
		return c
	}
	if cfg.Base <= 0 {
		cfg.Base = 500 * time.Millisecond
	}
	if cfg.Max <= 0 {
		cfg.Max = 10 * time.Second
	}
	return &RetryCompleter{next: c, cfg: cfg}
}

func (r *RetryCompleter) backoff() retry.Backoff {
	b := retry.NewExponential(r.cfg.Base)
	b = retry.WithCappedDuration(r.cfg.Max, b)
	if r.cfg.Jitter > 0 {
		b = retry.WithJitter(r.cfg.Jitter, b)
	}
	return retry.WithMaxRetries(uint64(r.cfg.Attempts), b) // #nosec G115 -- Attempts > 0 checked in WithRetry
}

// Complete calls the wrapped client, retrying errors IsRetryable accepts.
func (r *RetryCompleter) Complete(ctx context.Context, req Request) (*Response, error) {
	var resp *Response
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.next.Complete(ctx, req)
		if callErr != nil {
			if IsRetryable(callErr) {
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Stream is not retried; a partially consumed stream cannot be replayed.
func (r *RetryCompleter) Stream(ctx context.Context, req Request) (*Stream, error) {
	return r.next.Stream(ctx, req)
}

// Tracker exposes the wrapped client's usage tracker, or nil.
func (r *RetryCompleter) Tracker() *UsageTracker {
	if t, ok := r.next.(Tracked); ok {
		return t.Tracker()
	}
	return nil
}
