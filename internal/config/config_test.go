package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/backend"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, names := range envBindings {
		for _, name := range names {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Backend != backend.Ollama {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.Ollama.URL != "http://localhost:11434" || cfg.Ollama.Model != "llama3.1:70b" {
		t.Errorf("unexpected ollama defaults %+v", cfg.Ollama)
	}
	if cfg.Perplexity.Model != "llama-3.1-sonar-small-128k-online" {
		t.Errorf("unexpected perplexity model %q", cfg.Perplexity.Model)
	}
	if cfg.MaxSteps != 25 || cfg.Sandbox.TimeoutSeconds != 5 {
		t.Errorf("unexpected limits %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-secret")
	t.Setenv("REASONCHAIN_BACKEND", "Perplexity")
	t.Setenv("REASONCHAIN_TOOLS", "true")
	t.Setenv("WOLFRAM_APP_ID", "wa-1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Ollama.URL != "http://gpu-box:11434" {
		t.Errorf("OLLAMA_URL not applied: %q", cfg.Ollama.URL)
	}
	if cfg.Backend != backend.Perplexity || !cfg.Tools {
		t.Errorf("unexpected backend/tools %q %v", cfg.Backend, cfg.Tools)
	}
	if cfg.Wolfram.AppID != "wa-1" {
		t.Errorf("WOLFRAM_APP_ID not applied")
	}

	s := cfg.BackendSettings()
	if s.APIKey != "pplx-secret" || s.Model != "llama-3.1-sonar-small-128k-online" || s.Timeout != 120*time.Second {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestLoad_FileAndSave(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "reasonchain.yaml")

	cfg := DefaultConfig()
	cfg.Backend = backend.Groq
	cfg.Groq.APIKey = "gsk-123"
	cfg.MaxSteps = 10
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := LoadFromPaths(filepath.Join(dir, "missing.yaml"), path)
	if err != nil {
		t.Fatalf("LoadFromPaths() error: %v", err)
	}
	if loaded.Backend != backend.Groq || loaded.Groq.APIKey != "gsk-123" || loaded.MaxSteps != 10 {
		t.Errorf("unexpected loaded config %+v", loaded)
	}
	if loaded.Ollama.Model != "llama3.1:70b" {
		t.Errorf("defaults lost on load: %+v", loaded.Ollama)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("backend: [unclosed"), 0600)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"perplexity without key", func(c *Config) { c.Backend = backend.Perplexity }, "PERPLEXITY_API_KEY"},
		{"groq without key", func(c *Config) { c.Backend = backend.Groq }, "GROQ_API_KEY"},
		{"unknown backend", func(c *Config) { c.Backend = "bard" }, "unknown backend"},
		{"bad runner", func(c *Config) { c.Sandbox.Runner = "vm" }, "sandbox runner"},
		{"bad steps", func(c *Config) { c.MaxSteps = 0 }, "max_steps"},
		{"steps above ceiling", func(c *Config) { c.MaxSteps = 100 }, "max_steps must be between 1 and 25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groq.APIKey = "gsk-abcdef1234"
	red := cfg.Redacted()

	if red.Groq.APIKey != "****1234" {
		t.Errorf("unexpected mask %q", red.Groq.APIKey)
	}
	if cfg.Groq.APIKey != "gsk-abcdef1234" {
		t.Error("Redacted modified the original")
	}
}
