package llm

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ProviderOptions selects and configures a provider.
type ProviderOptions struct {
	Provider      string
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	UseAWSBedrock bool
	AWSRegion     string
	AWSProfile    string
	Retry         RetryConfig
}

// Tracked is implemented by clients that record token usage.
type Tracked interface {
	Tracker() *UsageTracker
}

// New builds the configured provider client, wrapped with retries.
// An empty provider selects the OpenAI-compatible client.
func New(opts ProviderOptions) (Client, error) {
	defaults := Defaults{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Timeout:     opts.Timeout,
	}

	var c Client
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderOpenAI, "deepseek":
		c = NewOpenAI(OpenAIConfig{APIKey: opts.APIKey, BaseURL: opts.BaseURL, Defaults: defaults})
	case ProviderAnthropic, "claude":
		c = NewAnthropic(AnthropicConfig{
			APIKey:        opts.APIKey,
			UseAWSBedrock: opts.UseAWSBedrock,
			AWSRegion:     opts.AWSRegion,
			AWSProfile:    opts.AWSProfile,
			Defaults:      defaults,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
	return WithRetry(c, opts.Retry), nil
}
