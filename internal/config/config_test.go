package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "ai:\n  gemini_key: test-key\n")

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.AI.DefaultModel != "gemini-2.5-flash" {
		t.Errorf("default model = %q", cfg.AI.DefaultModel)
	}
	if cfg.Jobs.Store != "memory" || cfg.Jobs.Workers != 8 {
		t.Errorf("unexpected jobs defaults: %+v", cfg.Jobs)
	}
	if cfg.Redis.TTL != 24*time.Hour {
		t.Errorf("default ttl = %s", cfg.Redis.TTL)
	}
	if !cfg.Runtime.Dev {
		t.Error("dev flag not carried into runtime config")
	}
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
log:
  level: debug
  format: console
ai:
  openai_key: sk-test
  default_model: gpt-4o-mini
jobs:
  store: redis
  workers: 4
redis:
  url: localhost:6379
`)

	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.AI.DefaultModel != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.AI.DefaultModel)
	}
	if cfg.Jobs.Store != "redis" || cfg.Jobs.Workers != 4 {
		t.Errorf("jobs = %+v", cfg.Jobs)
	}
	if cfg.Redis.TTL != 24*time.Hour {
		t.Errorf("ttl = %s", cfg.Redis.TTL)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Run("missing ai keys", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 8080\n")
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected error for missing ai keys")
		}
	})

	t.Run("unknown store", func(t *testing.T) {
		path := writeConfig(t, "ai:\n  gemini_key: k\njobs:\n  store: postgres\n")
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected error for unknown store")
		}
	})

	t.Run("redis store without url", func(t *testing.T) {
		path := writeConfig(t, "ai:\n  gemini_key: k\njobs:\n  store: redis\n")
		if _, err := LoadConfig(path, false); err == nil {
			t.Fatal("expected error for missing redis url")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"), false); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}
