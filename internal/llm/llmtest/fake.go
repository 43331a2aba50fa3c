// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/ShayCichocki/wkagent/internal/llm"
)

// Fake answers requests with Respond. It records every request and is safe
// for concurrent use.
type Fake struct {
	Respond func(req llm.Request) (string, error)

	mu   sync.Mutex
	reqs []llm.Request
}

// Reply returns a Fake that always answers text.
func Reply(text string) *Fake {
	return &Fake{Respond: func(llm.Request) (string, error) { return text, nil }}
}

// Fail returns a Fake that always fails with err.
func Fail(err error) *Fake {
	return &Fake{Respond: func(llm.Request) (string, error) { return "", err }}
}

// Route returns a Fake that picks the first reply whose key appears in the
// last message, or def when none does.
func Route(def string, routes map[string]string) *Fake {
	return &Fake{Respond: func(req llm.Request) (string, error) {
		last := LastContent(req)
		for k, v := range routes {
			if strings.Contains(last, k) {
				return v, nil
			}
		}
		return def, nil
	}}
}

// Complete implements llm.Completer.
func (f *Fake) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := f.Respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Content: text, Model: "fake"}, nil
}

// Stream implements llm.Streamer by splitting the reply on spaces.
func (f *Fake) Stream(ctx context.Context, req llm.Request) (*llm.Stream, error) {
	resp, err := f.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	words := strings.SplitAfter(resp.Content, " ")
	return llm.SliceStream(words...), nil
}

// Requests returns a copy of the recorded requests.
func (f *Fake) Requests() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.reqs...)
}

// Calls returns the number of recorded requests.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

// LastContent returns the content of the last message in req.
func LastContent(req llm.Request) string {
	if len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}
