package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate reports every out-of-range setting in cfg.
func Validate(cfg *Config) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if cfg.Agent.MaxSubTasks < 1 {
		add("agent.max_sub_tasks must be at least 1, got %d", cfg.Agent.MaxSubTasks)
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "", "openai", "deepseek", "anthropic", "claude":
	default:
		add("llm.provider %q is not supported", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens < 1 {
		add("llm.max_tokens must be positive, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		add("llm.temperature must be within [0, 2], got %g", cfg.LLM.Temperature)
	}
	if cfg.LLM.RetryAttempts < 0 {
		add("llm.retry_attempts must not be negative, got %d", cfg.LLM.RetryAttempts)
	}
	if cfg.Memory.CompressThreshold < 1 {
		add("memory.compress_threshold must be at least 1, got %d", cfg.Memory.CompressThreshold)
	}
	if cfg.Memory.MaxMediumTerm < 1 {
		add("memory.max_medium_term must be at least 1, got %d", cfg.Memory.MaxMediumTerm)
	}
	if cfg.Memory.TokenThreshold <= 0 || cfg.Memory.TokenThreshold > 1 {
		add("memory.token_threshold must be within (0, 1], got %g", cfg.Memory.TokenThreshold)
	}
	switch cfg.Memory.TokenEstimator {
	case "", "heuristic", "tiktoken":
	default:
		add("memory.token_estimator %q is not supported", cfg.Memory.TokenEstimator)
	}
	if p := cfg.Memory.Persistence; p.Enabled {
		switch p.Backend {
		case "", "sqlite", "sqlite3":
		case "redis":
			if p.RedisAddr == "" {
				add("memory.persistence.redis_addr is required for the redis backend")
			}
		default:
			add("memory.persistence.backend %q is not supported", p.Backend)
		}
	}
	switch cfg.Task.ErrorHandling {
	case "", "stop_on_error", "continue_on_error":
	default:
		add("task.error_handling %q is not supported", cfg.Task.ErrorHandling)
	}
	if cfg.Task.SequentialDelay < 0 {
		add("task.sequential_delay must not be negative")
	}
	if cfg.Task.PauseTimeout < 0 {
		add("task.pause_timeout must not be negative")
	}
	if cfg.Context.MaxContextMessages < 0 {
		add("context.max_context_messages must not be negative")
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		add("log.format %q is not supported", cfg.Log.Format)
	}

	return errors.Join(errs...)
}
