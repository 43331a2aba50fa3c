package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ShayCichocki/wkagent/internal/agent"
	"github.com/ShayCichocki/wkagent/internal/config"
	"github.com/ShayCichocki/wkagent/internal/events"
	"github.com/ShayCichocki/wkagent/internal/llm"
	"github.com/ShayCichocki/wkagent/internal/logging"
	"github.com/ShayCichocki/wkagent/internal/memory"
	"github.com/ShayCichocki/wkagent/internal/orchestrator"
	"github.com/ShayCichocki/wkagent/internal/store"
	"github.com/ShayCichocki/wkagent/internal/tokens"
)

// session bundles what a command needs to run turns.
type session struct {
	cfg    *config.Config
	log    logging.Logger
	agent  *agent.Agent
	events *events.Registry

	closers []io.Closer
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// loadConfig loads and validates configuration, honouring --config and --debug.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfigPath != "" {
		cfg, err = config.LoadFromPath(flagConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if flagDebug {
		cfg.Agent.Debug = true
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logging.Logger, io.Closer, error) {
	level := logging.Level(cfg.Log.Level)
	if cfg.Agent.Debug {
		level = logging.DebugLevel
	}
	return logging.New(logging.Config{
		Level:  level,
		Output: os.Stderr,
		JSON:   cfg.Log.Format == "json",
		File:   cfg.Log.File,
	})
}

func providerOptions(cfg *config.Config) llm.ProviderOptions {
	key, _ := config.GetAPIKey(cfg)
	return llm.ProviderOptions{
		Provider:      cfg.LLM.Provider,
		APIKey:        key,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		Timeout:       cfg.LLM.Timeout,
		UseAWSBedrock: cfg.LLM.UseAWSBedrock,
		AWSRegion:     cfg.LLM.AWSRegion,
		AWSProfile:    cfg.LLM.AWSProfile,
		Retry:         llm.RetryConfig{Attempts: cfg.LLM.RetryAttempts},
	}
}

// agentConfig maps the file configuration onto the agent.
func agentConfig(cfg *config.Config) (agent.Config, error) {
	policy, err := orchestrator.ParseErrorPolicy(cfg.Task.ErrorHandling)
	if err != nil {
		return agent.Config{}, err
	}
	return agent.Config{
		Execution: orchestrator.Config{
			Concurrent:         cfg.Agent.Concurrent,
			MaxSubTasks:        cfg.Agent.MaxSubTasks,
			SmartDecomposition: cfg.Task.SmartDecomposition,
			ErrorHandling:      policy,
			SequentialDelay:    cfg.Task.SequentialDelay,
			PauseTimeout:       cfg.Task.PauseTimeout,
		},
		Memory: memory.Config{
			CompressThreshold: cfg.Memory.CompressThreshold,
			MaxMediumTerm:     cfg.Memory.MaxMediumTerm,
			TokenThreshold:    cfg.Memory.TokenThreshold,
			MaxTokens:         cfg.LLM.MaxTokens,
			LLMCompression:    cfg.Memory.LLMCompression,
			PersistenceKey:    cfg.Memory.Persistence.Key,
		},
		HistoryAnalysis:    cfg.Agent.HistoryAnalysis,
		ForceJSON:          cfg.Agent.ForceJSON,
		SystemPrompt:       cfg.Agent.SystemPrompt,
		MaxTokens:          cfg.LLM.MaxTokens,
		ContextInjection:   cfg.Context.Injection,
		MaxContextMessages: cfg.Context.MaxContextMessages,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	p := cfg.Memory.Persistence
	if !p.Enabled {
		return nil, nil
	}
	return store.Open(ctx, store.Options{
		Backend:       p.Backend,
		Path:          p.Path,
		RedisAddr:     p.RedisAddr,
		RedisPassword: p.RedisPassword,
		RedisDB:       p.RedisDB,
	})
}

// newSession wires configuration, logging, the completion client, the
// persistence backend and the agent.
func newSession(ctx context.Context, cfg *config.Config) (*session, error) {
	log, logCloser, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	if _, err := config.GetAPIKey(cfg); errors.Is(err, config.ErrNoAPIKey) && !cfg.LLM.UseAWSBedrock {
		log.Warn("no API key configured, answers will be canned fallbacks")
	}
	client, err := llm.New(providerOptions(cfg))
	if err != nil {
		s.Close()
		return nil, err
	}

	acfg, err := agentConfig(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.events = events.NewRegistry(log)
	opts := []agent.Option{
		agent.WithLogger(log),
		agent.WithEvents(s.events),
		agent.WithEstimator(tokens.ForName(cfg.Memory.TokenEstimator)),
	}

	backend, err := openStore(ctx, cfg)
	if err != nil {
		log.Warn("memory persistence unavailable", "error", err)
	} else if backend != nil {
		s.closers = append(s.closers, backend)
		opts = append(opts, agent.WithPersister(backend))
	}

	a, err := agent.New(ctx, acfg, client, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.agent = a

	s.events.On(events.TaskComplete, func(e events.Event) {
		log.Debug("turn complete", "task", e.TaskID, "method", e.Message, "duration", e.Duration.Round(time.Millisecond))
	})
	return s, nil
}

// watchConfig applies log-level changes from the config file while the
// process runs.
func (s *session) watchConfig() {
	path, err := config.Watch(func(cfg *config.Config, err error) {
		if err != nil {
			s.log.Warn("config reload failed", "error", err)
			return
		}
		level := logging.Level(cfg.Log.Level)
		if cfg.Agent.Debug || flagDebug {
			level = logging.DebugLevel
		}
		logging.SetLevel(s.log, level)
		s.log.Info("config reloaded", "level", level)
	})
	if err != nil {
		s.log.Debug("config watch disabled", "error", err)
		return
	}
	s.log.Debug("watching config", "path", path)
}
