package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

const (
	// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
	DefaultBaseURL = "https://api.deepseek.com"
	// DefaultModel is the model used when none is configured.
	DefaultModel = "deepseek-chat"

	placeholderKey = "your-api-key-here"
)

// OpenAIConfig configures an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Defaults
}

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	inner    *openai.Client
	defaults Defaults
	tracker  *UsageTracker
}

// NewOpenAI creates an OpenAI-compatible client. Without a usable API key it
// returns a client whose calls report ErrDisabled.
func NewOpenAI(cfg OpenAIConfig) *OpenAIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}

	c := &OpenAIClient{defaults: cfg.Defaults, tracker: NewUsageTracker()}
	if usableKey(cfg.APIKey) {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
		c.inner = openai.NewClientWithConfig(oc)
	}
	return c
}

func usableKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholderKey
}

// Enabled reports whether the client has credentials.
func (c *OpenAIClient) Enabled() bool { return c.inner != nil }

// Tracker returns the usage tracker for this client.
func (c *OpenAIClient) Tracker() *UsageTracker { return c.tracker }

// Complete sends a non-streaming chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.inner == nil {
		return nil, ErrDisabled
	}
	req = c.defaults.apply(req)
	if c.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaults.Timeout)
		defer cancel()
	}

	resp, err := c.inner.CreateChatCompletion(ctx, c.request(req))
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &APIError{Provider: "openai", Message: "response contained no choices"}
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	c.tracker.Add(usage)
	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage:   usage,
	}, nil
}

// Stream sends a streaming chat completion. The stream ends at the
// transport's [DONE] marker.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (*Stream, error) {
	if c.inner == nil {
		return nil, ErrDisabled
	}
	req = c.defaults.apply(req)
	oreq := c.request(req)
	oreq.Stream = true

	s, err := c.inner.CreateChatCompletionStream(ctx, oreq)
	if err != nil {
		return nil, fmt.Errorf("stream call failed: %w", wrapOpenAIError(err))
	}
	return NewStream(func() (string, error) {
		chunk, err := s.Recv()
		if err != nil {
			return "", err
		}
		if len(chunk.Choices) == 0 {
			return "", nil
		}
		return chunk.Choices[0].Delta.Content, nil
	}, s.Close), nil
}

func (c *OpenAIClient) request(req Request) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openAIRole(m.Role), Content: m.Content})
	}
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.ResponseFormat == FormatJSONObject {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}

func openAIRole(r models.Role) string {
	switch r {
	case models.RoleSystem:
		return openai.ChatMessageRoleSystem
	case models.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "openai", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{Provider: "openai", StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return err
}
