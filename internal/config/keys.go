package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no API key configured")

// placeholderKey is the value written by init; it never counts as a key.
const placeholderKey = "your-api-key-here"

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// keyEnvVars lists the provider-specific variables consulted before the
// config file.
func keyEnvVars(provider string) []string {
	if strings.EqualFold(provider, "anthropic") || strings.EqualFold(provider, "claude") {
		return []string{"WKAGENT_LLM_API_KEY", "ANTHROPIC_API_KEY"}
	}
	return []string{"WKAGENT_LLM_API_KEY", "DEEPSEEK_API_KEY", "OPENAI_API_KEY"}
}

// GetAPIKey returns the API key for the configured provider.
// It checks in order: environment variables, config file.
func GetAPIKey(cfg *Config) (string, error) {
	key, _ := resolveKey(cfg)
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	_, src := resolveKey(cfg)
	return src
}

func resolveKey(cfg *Config) (string, KeySource) {
	provider := ""
	if cfg != nil {
		provider = cfg.LLM.Provider
	}
	for _, name := range keyEnvVars(provider) {
		if key := os.Getenv(name); usable(key) {
			return key, KeySourceEnv
		}
	}
	if cfg != nil {
		key := os.ExpandEnv(cfg.LLM.APIKey)
		if usable(key) && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig
		}
	}
	return "", KeySourceNone
}

func usable(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != placeholderKey
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 6 and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:6] + "..." + key[len(key)-4:]
}
