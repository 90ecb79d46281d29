package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Service.BaseURL != "http://127.0.0.1:8000" {
			t.Errorf("expected base URL http://127.0.0.1:8000, got %s", config.Service.BaseURL)
		}
		if config.Service.Timeout() != 30*time.Second {
			t.Errorf("expected 30s timeout, got %v", config.Service.Timeout())
		}
		if config.Database.Path != "./reportctl.db" {
			t.Errorf("expected database path ./reportctl.db, got %s", config.Database.Path)
		}
		if config.Display.ProgressInterval() != 250*time.Millisecond {
			t.Errorf("expected 250ms progress interval, got %v", config.Display.ProgressInterval())
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Service.BaseURL != DefaultConfig().Service.BaseURL {
			t.Error("created config base URL doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[service]
base_url = "https://reports.example.com"

[history]
retry_count = 0
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Service.BaseURL != "https://reports.example.com" {
			t.Errorf("expected overridden base URL, got %s", config.Service.BaseURL)
		}
		if config.History.RetryCount != 0 {
			t.Errorf("expected retry count 0, got %d", config.History.RetryCount)
		}
		if config.Service.TimeoutSeconds != 30 {
			t.Errorf("expected default timeout to survive partial file, got %d", config.Service.TimeoutSeconds)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("LoadConfig Invalid Base URL", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[service]\nbase_url = \"not a url\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
