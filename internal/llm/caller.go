package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/ShayCichocki/wkagent/internal/logging"
)

// Caller is the consumption point every component uses to reach the
// completion service. A disabled service yields the canned fallback reply;
// any other failure is returned so the call site can degrade its own way.
type Caller struct {
	client Client
	log    logging.Logger
}

// NewCaller wraps client. A nil client behaves as Disabled.
func NewCaller(client Client, log logging.Logger) *Caller {
	if client == nil {
		client = Disabled{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Caller{client: client, log: log}
}

// Client returns the wrapped client.
func (c *Caller) Client() Client { return c.client }

// Call performs req and returns the response text.
func (c *Caller) Call(ctx context.Context, req Request) (string, error) {
	resp, err := c.client.Complete(ctx, req)
	switch {
	case errors.Is(err, ErrDisabled):
		c.log.Debug("completion service disabled, using fallback response")
		return FallbackResponse(req.Messages), nil
	case err != nil:
		return "", err
	default:
		return resp.Content, nil
	}
}

// CallOrFallback is Call with any failure replaced by the canned reply.
func (c *Caller) CallOrFallback(ctx context.Context, req Request) string {
	text, err := c.Call(ctx, req)
	if err != nil {
		c.log.Warn("completion call failed, using fallback response", "error", err)
		return FallbackResponse(req.Messages)
	}
	return text
}

// Stream opens a stream. A disabled service streams the canned reply.
func (c *Caller) Stream(ctx context.Context, req Request) (*Stream, error) {
	s, err := c.client.Stream(ctx, req)
	if errors.Is(err, ErrDisabled) {
		return SliceStream(strings.Fields(FallbackResponse(req.Messages))...), nil
	}
	return s, err
}
