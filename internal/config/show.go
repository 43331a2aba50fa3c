package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Render returns cfg as YAML with the API key masked.
func Render(cfg *Config) ([]byte, error) {
	shown := *cfg
	if shown.LLM.APIKey != "" {
		shown.LLM.APIKey = MaskAPIKey(shown.LLM.APIKey)
	}
	if shown.Memory.Persistence.RedisPassword != "" {
		shown.Memory.Persistence.RedisPassword = "***"
	}
	out, err := yaml.Marshal(&shown)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}

// WriteStarter writes a starter project config to path. It refuses to
// overwrite an existing file.
func WriteStarter(path string) error {
	if fileExists(path) {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := Default()
	cfg.LLM.APIKey = "${DEEPSEEK_API_KEY}"
	cfg.Memory.Persistence.Path = filepath.Join("${HOME}", ".local", "share", "wkagent", "memory.db")

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, out, 0o600)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
