// Package llm is the boundary to the text-completion service.
//
// Providers implement Client. Callers that want the canned fallback behaviour
// for an unconfigured service go through Caller.
package llm

import (
	"context"
	"time"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

// Message is a role-tagged chat message sent to the service.
type Message struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: models.RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: models.RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: models.RoleAssistant, Content: content} }

// ResponseFormat selects a provider output mode.
type ResponseFormat string

const (
	// FormatText is the provider default.
	FormatText ResponseFormat = ""
	// FormatJSONObject asks the provider for a JSON object when it supports it.
	FormatJSONObject ResponseFormat = "json_object"
)

// Request is one completion call. Zero values use the provider defaults;
// a zero Temperature therefore means "default", not greedy decoding.
type Request struct {
	Messages       []Message
	Model          string
	MaxTokens      int
	Temperature    float64
	ResponseFormat ResponseFormat
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a successful completion.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Completer performs a single request/response completion.
// It returns ErrDisabled when the service is not configured.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Streamer produces a completion as a sequence of text fragments.
type Streamer interface {
	Stream(ctx context.Context, req Request) (*Stream, error)
}

// Client is a provider that supports both call styles.
type Client interface {
	Completer
	Streamer
}

// Defaults are applied to requests that leave fields unset.
type Defaults struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func (d Defaults) apply(req Request) Request {
	if req.Model == "" {
		req.Model = d.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = d.MaxTokens
	}
	if req.Temperature <= 0 {
		req.Temperature = d.Temperature
	}
	return req
}

// Disabled is the client used when no credentials are configured.
type Disabled struct{}

// Complete always reports ErrDisabled.
func (Disabled) Complete(context.Context, Request) (*Response, error) { return nil, ErrDisabled }

// Stream always reports ErrDisabled.
func (Disabled) Stream(context.Context, Request) (*Stream, error) { return nil, ErrDisabled }
