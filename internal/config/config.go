// Package config handles configuration loading for wkagent.
// It supports XDG config paths, project-level overrides, a .env file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ProjectFile is the project-level override file name.
const ProjectFile = ".wkagent.yaml"

// Config holds all configuration for wkagent.
type Config struct {
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Memory  MemoryConfig  `mapstructure:"memory" yaml:"memory"`
	Task    TaskConfig    `mapstructure:"task" yaml:"task"`
	Context ContextConfig `mapstructure:"context" yaml:"context"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// AgentConfig holds the execution mode switches.
type AgentConfig struct {
	Concurrent      bool   `mapstructure:"concurrent" yaml:"concurrent"`
	HistoryAnalysis bool   `mapstructure:"history_analysis" yaml:"history_analysis"`
	ForceJSON       bool   `mapstructure:"force_json" yaml:"force_json"`
	MaxSubTasks     int    `mapstructure:"max_sub_tasks" yaml:"max_sub_tasks"`
	Debug           bool   `mapstructure:"debug" yaml:"debug"`
	SystemPrompt    string `mapstructure:"system_prompt" yaml:"system_prompt"`
}

// LLMConfig holds completion service settings.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Provider      string        `mapstructure:"provider" yaml:"provider"`
	APIKey        string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url"`
	Model         string        `mapstructure:"model" yaml:"model"`
	MaxTokens     int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature   float64       `mapstructure:"temperature" yaml:"temperature"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts" yaml:"retry_attempts"`
	UseAWSBedrock bool          `mapstructure:"use_aws_bedrock" yaml:"use_aws_bedrock"`
	AWSRegion     string        `mapstructure:"aws_region" yaml:"aws_region,omitempty"`
	AWSProfile    string        `mapstructure:"aws_profile" yaml:"aws_profile,omitempty"`
}

// MemoryConfig holds memory tuning and persistence settings.
type MemoryConfig struct {
	CompressThreshold int     `mapstructure:"compress_threshold" yaml:"compress_threshold"`
	MaxMediumTerm     int     `mapstructure:"max_medium_term" yaml:"max_medium_term"`
	TokenThreshold    float64 `mapstructure:"token_threshold" yaml:"token_threshold"`
	LLMCompression    bool    `mapstructure:"llm_compression" yaml:"llm_compression"`
	// TokenEstimator is "heuristic" or "tiktoken".
	TokenEstimator string            `mapstructure:"token_estimator" yaml:"token_estimator"`
	Persistence    PersistenceConfig `mapstructure:"persistence" yaml:"persistence"`
}

// PersistenceConfig selects where long-term memory is mirrored.
type PersistenceConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Backend is "sqlite", "sqlite3" (cgo driver) or "redis".
	Backend       string `mapstructure:"backend" yaml:"backend"`
	Key           string `mapstructure:"key" yaml:"key"`
	Path          string `mapstructure:"path" yaml:"path"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db,omitempty"`
}

// TaskConfig holds decomposition and serial execution settings.
type TaskConfig struct {
	SmartDecomposition bool `mapstructure:"smart_decomposition" yaml:"smart_decomposition"`
	// ErrorHandling is "stop_on_error" or "continue_on_error".
	ErrorHandling   string        `mapstructure:"error_handling" yaml:"error_handling"`
	SequentialDelay time.Duration `mapstructure:"sequential_delay" yaml:"sequential_delay"`
	PauseTimeout    time.Duration `mapstructure:"pause_timeout" yaml:"pause_timeout"`
}

// ContextConfig controls what the message builder injects.
type ContextConfig struct {
	Injection          bool `mapstructure:"injection" yaml:"injection"`
	MaxContextMessages int  `mapstructure:"max_context_messages" yaml:"max_context_messages"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "text" or "json".
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (WKAGENT_*, DEEPSEEK_API_KEY, ANTHROPIC_API_KEY, LLM_BASE_URL, LLM_MODEL),
// including those set by a .env file in the working directory
// 2. Project config (.wkagent.yaml in current directory or parent)
// 3. User config (~/.config/wkagent/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	return decode(v)
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WKAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.base_url", "WKAGENT_LLM_BASE_URL", "LLM_BASE_URL")
	_ = v.BindEnv("llm.model", "WKAGENT_LLM_MODEL", "LLM_MODEL")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)
	cfg.Memory.Persistence.Path = os.ExpandEnv(cfg.Memory.Persistence.Path)
	return cfg, nil
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("agent.concurrent", d.Agent.Concurrent)
	v.SetDefault("agent.history_analysis", d.Agent.HistoryAnalysis)
	v.SetDefault("agent.force_json", d.Agent.ForceJSON)
	v.SetDefault("agent.max_sub_tasks", d.Agent.MaxSubTasks)
	v.SetDefault("agent.debug", d.Agent.Debug)
	v.SetDefault("agent.system_prompt", d.Agent.SystemPrompt)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.timeout", d.LLM.Timeout.String())
	v.SetDefault("llm.retry_attempts", d.LLM.RetryAttempts)
	v.SetDefault("llm.use_aws_bedrock", d.LLM.UseAWSBedrock)
	v.SetDefault("llm.aws_region", d.LLM.AWSRegion)
	v.SetDefault("llm.aws_profile", d.LLM.AWSProfile)

	v.SetDefault("memory.compress_threshold", d.Memory.CompressThreshold)
	v.SetDefault("memory.max_medium_term", d.Memory.MaxMediumTerm)
	v.SetDefault("memory.token_threshold", d.Memory.TokenThreshold)
	v.SetDefault("memory.llm_compression", d.Memory.LLMCompression)
	v.SetDefault("memory.token_estimator", d.Memory.TokenEstimator)
	v.SetDefault("memory.persistence.enabled", d.Memory.Persistence.Enabled)
	v.SetDefault("memory.persistence.backend", d.Memory.Persistence.Backend)
	v.SetDefault("memory.persistence.key", d.Memory.Persistence.Key)
	v.SetDefault("memory.persistence.path", d.Memory.Persistence.Path)
	v.SetDefault("memory.persistence.redis_addr", d.Memory.Persistence.RedisAddr)
	v.SetDefault("memory.persistence.redis_password", d.Memory.Persistence.RedisPassword)
	v.SetDefault("memory.persistence.redis_db", d.Memory.Persistence.RedisDB)

	v.SetDefault("task.smart_decomposition", d.Task.SmartDecomposition)
	v.SetDefault("task.error_handling", d.Task.ErrorHandling)
	v.SetDefault("task.sequential_delay", d.Task.SequentialDelay.String())
	v.SetDefault("task.pause_timeout", d.Task.PauseTimeout.String())

	v.SetDefault("context.injection", d.Context.Injection)
	v.SetDefault("context.max_context_messages", d.Context.MaxContextMessages)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// getUserConfigDir returns the XDG config directory for wkagent.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "wkagent")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "wkagent")
	}
	return filepath.Join(home, ".config", "wkagent")
}

// getDataDir returns the XDG data directory for wkagent.
func getDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "wkagent")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "share", "wkagent")
	}
	return filepath.Join(home, ".local", "share", "wkagent")
}

// findProjectConfig searches for .wkagent.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ProjectFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			MaxSubTasks: 3,
		},
		LLM: LLMConfig{
			Provider:      "openai",
			BaseURL:       "https://api.deepseek.com",
			Model:         "deepseek-chat",
			MaxTokens:     4000,
			Temperature:   0.7,
			Timeout:       60 * time.Second,
			RetryAttempts: 2,
		},
		Memory: MemoryConfig{
			CompressThreshold: 15,
			MaxMediumTerm:     30,
			TokenThreshold:    0.92,
			LLMCompression:    true,
			TokenEstimator:    "heuristic",
			Persistence: PersistenceConfig{
				Enabled: true,
				Backend: "sqlite",
				Key:     "wkagent-longterm-memory",
				Path:    filepath.Join(getDataDir(), "memory.db"),
			},
		},
		Task: TaskConfig{
			SmartDecomposition: true,
			ErrorHandling:      "stop_on_error",
			PauseTimeout:       5 * time.Minute,
		},
		Context: ContextConfig{
			Injection:          true,
			MaxContextMessages: 50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
