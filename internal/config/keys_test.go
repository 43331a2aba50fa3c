package config

import (
	"os"
	"testing"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"WKAGENT_LLM_API_KEY", "DEEPSEEK_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestGetAPIKey(t *testing.T) {
	t.Run("from environment variable", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("DEEPSEEK_API_KEY", "sk-env-key")

		key, err := GetAPIKey(Default())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-env-key" {
			t.Errorf("expected 'sk-env-key', got %q", key)
		}
		if src := GetAPIKeySource(Default()); src != KeySourceEnv {
			t.Errorf("expected environment source, got %q", src)
		}
	})

	t.Run("provider selects variable", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("DEEPSEEK_API_KEY", "sk-deepseek")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-key")

		cfg := Default()
		cfg.LLM.Provider = "anthropic"
		key, _ := GetAPIKey(cfg)
		if key != "sk-ant-key" {
			t.Errorf("expected anthropic key, got %q", key)
		}
	})

	t.Run("from config", func(t *testing.T) {
		clearKeyEnv(t)

		cfg := Default()
		cfg.LLM.APIKey = "sk-config-key"
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-config-key" {
			t.Errorf("expected 'sk-config-key', got %q", key)
		}
		if src := GetAPIKeySource(cfg); src != KeySourceConfig {
			t.Errorf("expected config source, got %q", src)
		}
	})

	t.Run("placeholder and unresolved references", func(t *testing.T) {
		clearKeyEnv(t)

		for _, v := range []string{"", placeholderKey, "${UNSET_WKAGENT_VAR_X}"} {
			cfg := Default()
			cfg.LLM.APIKey = v
			if _, err := GetAPIKey(cfg); err != ErrNoAPIKey {
				t.Errorf("key %q: expected ErrNoAPIKey, got %v", v, err)
			}
		}
		if src := GetAPIKeySource(nil); src != KeySourceNone {
			t.Errorf("expected none, got %q", src)
		}
	})
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-0123456789abcdef", "sk-012...cdef"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
