// cmd/collect_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAPIKeys(t *testing.T) {
	// resolveAPIKeys reads the package-level flag value, so reset it per case.
	t.Run("FlagsTakePrecedence", func(t *testing.T) {
		collectKeys = []string{"flag-key-1", " flag-key-2 ", ""}
		defer func() { collectKeys = nil }()
		t.Setenv("OPENAI_API_KEYS", "env-a,env-b")
		t.Setenv("OPENAI_API_KEY", "env-solo")

		keys := resolveAPIKeys()
		if len(keys) != 2 {
			t.Fatalf("Expected 2 keys from flags, got %d: %v", len(keys), keys)
		}
		if keys[0] != "flag-key-1" || keys[1] != "flag-key-2" {
			t.Errorf("Expected trimmed flag keys, got %v", keys)
		}
	})

	t.Run("KeyPoolFromEnv", func(t *testing.T) {
		collectKeys = nil
		t.Setenv("OPENAI_API_KEYS", "env-a, env-b,,env-c")
		t.Setenv("OPENAI_API_KEY", "env-solo")

		keys := resolveAPIKeys()
		if len(keys) != 3 {
			t.Fatalf("Expected 3 keys from OPENAI_API_KEYS, got %d: %v", len(keys), keys)
		}
		if keys[0] != "env-a" || keys[1] != "env-b" || keys[2] != "env-c" {
			t.Errorf("Expected trimmed env keys, got %v", keys)
		}
	})

	t.Run("SingleKeyFromEnv", func(t *testing.T) {
		collectKeys = nil
		t.Setenv("OPENAI_API_KEYS", "")
		t.Setenv("OPENAI_API_KEY", "env-solo")

		keys := resolveAPIKeys()
		if len(keys) != 1 || keys[0] != "env-solo" {
			t.Errorf("Expected [env-solo], got %v", keys)
		}
	})

	t.Run("NoKeysAnywhere", func(t *testing.T) {
		collectKeys = nil
		t.Setenv("OPENAI_API_KEYS", "")
		t.Setenv("OPENAI_API_KEY", "")

		if keys := resolveAPIKeys(); keys != nil {
			t.Errorf("Expected nil when no keys are configured, got %v", keys)
		}
	})
}

func TestLoadModelSettings(t *testing.T) {
	t.Run("DefaultIsUncapped", func(t *testing.T) {
		settings, err := loadModelSettings("")
		if err != nil {
			t.Fatalf("loadModelSettings() returned an unexpected error: %v", err)
		}
		if settings["max_tokens"] != -1 {
			t.Errorf("Expected default max_tokens -1, got %v", settings["max_tokens"])
		}
		if len(settings) != 1 {
			t.Errorf("Expected only the default setting, got %v", settings)
		}
	})

	t.Run("FileExtendsDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		content := "temperature: 0.7\ntop_p: 0.9\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write settings file: %v", err)
		}

		settings, err := loadModelSettings(path)
		if err != nil {
			t.Fatalf("loadModelSettings() returned an unexpected error: %v", err)
		}
		if settings["max_tokens"] != -1 {
			t.Errorf("Expected max_tokens -1 to survive the merge, got %v", settings["max_tokens"])
		}
		if settings["temperature"] != 0.7 {
			t.Errorf("Expected temperature 0.7, got %v", settings["temperature"])
		}
		if settings["top_p"] != 0.9 {
			t.Errorf("Expected top_p 0.9, got %v", settings["top_p"])
		}
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		if err := os.WriteFile(path, []byte("max_tokens: 2048\n"), 0644); err != nil {
			t.Fatalf("Failed to write settings file: %v", err)
		}

		settings, err := loadModelSettings(path)
		if err != nil {
			t.Fatalf("loadModelSettings() returned an unexpected error: %v", err)
		}
		if settings["max_tokens"] != 2048 {
			t.Errorf("Expected max_tokens 2048, got %v", settings["max_tokens"])
		}
	})

	t.Run("FileNotFound", func(t *testing.T) {
		_, err := loadModelSettings(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil {
			t.Error("Expected an error for a missing settings file, but got nil")
		}
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		if err := os.WriteFile(path, []byte("temperature: [unclosed"), 0644); err != nil {
			t.Fatalf("Failed to write settings file: %v", err)
		}

		if _, err := loadModelSettings(path); err == nil {
			t.Error("Expected an error for invalid YAML, but got nil")
		}
	})
}
