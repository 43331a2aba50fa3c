package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	Defaults
}

// AnthropicClient wraps the Anthropic SDK client with usage tracking.
type AnthropicClient struct {
	inner    anthropic.Client
	defaults Defaults
	tracker  *UsageTracker
	enabled  bool
}

// NewAnthropic creates an Anthropic client. Without credentials (and without
// Bedrock) it returns a client whose calls report ErrDisabled.
func NewAnthropic(cfg AnthropicConfig) *AnthropicClient {
	var opts []option.RequestOption
	enabled := true

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		enabled = usableKey(apiKey)
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if cfg.UseAWSBedrock {
		cfg.Model = string(translateModelForBedrock(anthropic.Model(cfg.Model)))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}

	return &AnthropicClient{
		inner:    anthropic.NewClient(opts...),
		defaults: cfg.Defaults,
		tracker:  NewUsageTracker(),
		enabled:  enabled,
	}
}

// translateModelForBedrock converts standard Anthropic model names to Bedrock
// cross-region inference profiles: us.anthropic.{model}-v1:0
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}
	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Model returns the configured default model.
func (c *AnthropicClient) Model() string { return c.defaults.Model }

// Tracker returns the usage tracker for this client.
func (c *AnthropicClient) Tracker() *UsageTracker { return c.tracker }

// Complete sends a Messages API request.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	req = c.defaults.apply(req)
	if c.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaults.Timeout)
		defer cancel()
	}

	resp, err := c.inner.Messages.New(ctx, c.params(req))
	if err != nil {
		return nil, wrapAnthropicError(err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}

	usage := Usage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}
	c.tracker.Add(usage)
	return &Response{Content: result.String(), Model: string(resp.Model), Usage: usage}, nil
}

// Stream sends a streaming Messages API request and yields text deltas.
func (c *AnthropicClient) Stream(ctx context.Context, req Request) (*Stream, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	req = c.defaults.apply(req)
	s := c.inner.Messages.NewStreaming(ctx, c.params(req))

	return NewStream(func() (string, error) {
		for s.Next() {
			event := s.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok {
				return text.Text, nil
			}
		}
		if err := s.Err(); err != nil {
			return "", fmt.Errorf("stream call failed: %w", wrapAnthropicError(err))
		}
		return "", io.EOF
	}, s.Close), nil
}

// params converts a Request. System messages are lifted into the system
// prompt; the Messages API requires the first turn to be a user turn.
func (c *AnthropicClient) params(req Request) anthropic.MessageNewParams {
	var (
		system []anthropic.TextBlockParam
		msgs   []anthropic.MessageParam
	)
	for _, m := range req.Messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case models.RoleAssistant:
			if len(msgs) == 0 {
				continue
			}
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	return anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		System:      system,
		Messages:    msgs,
		Temperature: anthropic.Float(req.Temperature),
	}
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
	}
	return err
}
