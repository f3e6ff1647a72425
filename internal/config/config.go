// Package config loads reasonchain settings from defaults, a YAML file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/agent"
	"github.com/ashutoshrp06/reasonchain/internal/backend"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all reasonchain configuration.
type Config struct {
	Backend        string `yaml:"backend" mapstructure:"backend"`
	Tools          bool   `yaml:"tools" mapstructure:"tools"`
	MaxSteps       int    `yaml:"max_steps" mapstructure:"max_steps"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`

	Ollama     EndpointConfig `yaml:"ollama" mapstructure:"ollama"`
	Perplexity EndpointConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Groq       EndpointConfig `yaml:"groq" mapstructure:"groq"`
	OpenAI     EndpointConfig `yaml:"openai" mapstructure:"openai"`

	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Wolfram WolframConfig `yaml:"wolfram" mapstructure:"wolfram"`
	Sandbox SandboxConfig `yaml:"sandbox" mapstructure:"sandbox"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
}

// EndpointConfig describes one chat-completion backend.
type EndpointConfig struct {
	URL    string `yaml:"url,omitempty" mapstructure:"url"`
	APIKey string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model  string `yaml:"model" mapstructure:"model"`
}

type SearchConfig struct {
	// Provider is "exa" or "tavily". Empty picks whichever has a key.
	Provider     string `yaml:"provider" mapstructure:"provider"`
	ExaAPIKey    string `yaml:"exa_api_key,omitempty" mapstructure:"exa_api_key"`
	TavilyAPIKey string `yaml:"tavily_api_key,omitempty" mapstructure:"tavily_api_key"`
	TavilyDepth  string `yaml:"tavily_depth" mapstructure:"tavily_depth"`
}

type WolframConfig struct {
	AppID string `yaml:"app_id,omitempty" mapstructure:"app_id"`
}

type SandboxConfig struct {
	// Runner is "process" or "docker".
	Runner         string `yaml:"runner" mapstructure:"runner"`
	Interpreter    string `yaml:"interpreter" mapstructure:"interpreter"`
	Image          string `yaml:"image" mapstructure:"image"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:        backend.Ollama,
		MaxSteps:       agent.DefaultMaxSteps,
		TimeoutSeconds: 120,
		Ollama: EndpointConfig{
			URL:   "http://localhost:11434",
			Model: "llama3.1:70b",
		},
		Perplexity: EndpointConfig{
			Model: "llama-3.1-sonar-small-128k-online",
		},
		Groq: EndpointConfig{
			Model: "llama-3.1-70b-versatile",
		},
		OpenAI: EndpointConfig{
			Model: "gpt-4o-mini",
		},
		Search: SearchConfig{
			TavilyDepth: "basic",
		},
		Sandbox: SandboxConfig{
			Runner:         "process",
			Interpreter:    "python3",
			Image:          "python:3.12-alpine",
			TimeoutSeconds: 5,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string][]string{
	"backend":               {"REASONCHAIN_BACKEND"},
	"ollama.url":            {"OLLAMA_URL"},
	"ollama.model":          {"OLLAMA_MODEL"},
	"perplexity.api_key":    {"PERPLEXITY_API_KEY"},
	"perplexity.model":      {"PERPLEXITY_MODEL"},
	"groq.api_key":          {"GROQ_API_KEY"},
	"groq.model":            {"GROQ_MODEL"},
	"openai.url":            {"OPENAI_URL", "OPENAI_BASE_URL"},
	"openai.api_key":        {"OPENAI_API_KEY"},
	"openai.model":          {"OPENAI_MODEL"},
	"search.exa_api_key":    {"EXA_API_KEY"},
	"search.tavily_api_key": {"TAVILY_API_KEY"},
	"wolfram.app_id":        {"WOLFRAM_APP_ID"},
}

// Load reads configuration from path. An empty path uses defaults and the
// environment only.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return decode(v)
}

// LoadFromPaths loads the first config file that exists. When none exists
// the defaults and environment are used.
func LoadFromPaths(paths ...string) (*Config, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Load("")
}

// SearchPaths returns the default config file locations in order of
// precedence.
func SearchPaths() []string {
	paths := []string{"reasonchain.local.yaml", "reasonchain.yaml"}
	if dir, err := Dir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	return paths
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".reasonchain"), nil
}

func newViper() *viper.Viper {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("REASONCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("tools", d.Tools)
	v.SetDefault("max_steps", d.MaxSteps)
	v.SetDefault("timeout_seconds", d.TimeoutSeconds)

	for name, ep := range map[string]EndpointConfig{
		"ollama":     d.Ollama,
		"perplexity": d.Perplexity,
		"groq":       d.Groq,
		"openai":     d.OpenAI,
	} {
		v.SetDefault(name+".url", ep.URL)
		v.SetDefault(name+".api_key", ep.APIKey)
		v.SetDefault(name+".model", ep.Model)
	}

	v.SetDefault("search.provider", d.Search.Provider)
	v.SetDefault("search.exa_api_key", d.Search.ExaAPIKey)
	v.SetDefault("search.tavily_api_key", d.Search.TavilyAPIKey)
	v.SetDefault("search.tavily_depth", d.Search.TavilyDepth)
	v.SetDefault("wolfram.app_id", d.Wolfram.AppID)
	v.SetDefault("sandbox.runner", d.Sandbox.Runner)
	v.SetDefault("sandbox.interpreter", d.Sandbox.Interpreter)
	v.SetDefault("sandbox.image", d.Sandbox.Image)
	v.SetDefault("sandbox.timeout_seconds", d.Sandbox.TimeoutSeconds)
	v.SetDefault("server.addr", d.Server.Addr)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return &cfg, nil
}

// Validate checks that the selected backend and services are usable.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case backend.Ollama:
		if c.Ollama.URL == "" {
			errs = append(errs, errors.New("ollama.url is required"))
		}
	case backend.Perplexity:
		if c.Perplexity.APIKey == "" {
			errs = append(errs, errors.New("PERPLEXITY_API_KEY is required for the perplexity backend"))
		}
	case backend.Groq:
		if c.Groq.APIKey == "" {
			errs = append(errs, errors.New("GROQ_API_KEY is required for the groq backend"))
		}
	case backend.OpenAI:
		if c.OpenAI.APIKey == "" && c.OpenAI.URL == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY or OPENAI_URL is required for the openai backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(backend.Names, ", ")))
	}

	if c.MaxSteps <= 0 || c.MaxSteps > agent.DefaultMaxSteps {
		errs = append(errs, fmt.Errorf("max_steps must be between 1 and %d", agent.DefaultMaxSteps))
	}
	switch c.Sandbox.Runner {
	case "process", "docker":
	default:
		errs = append(errs, fmt.Errorf("unknown sandbox runner %q", c.Sandbox.Runner))
	}
	switch c.Search.Provider {
	case "", "exa", "tavily":
	default:
		errs = append(errs, fmt.Errorf("unknown search provider %q", c.Search.Provider))
	}

	return errors.Join(errs...)
}

// Endpoint returns the settings of the selected backend.
func (c *Config) Endpoint() EndpointConfig {
	switch c.Backend {
	case backend.Perplexity:
		return c.Perplexity
	case backend.Groq:
		return c.Groq
	case backend.OpenAI:
		return c.OpenAI
	default:
		return c.Ollama
	}
}

// BackendSettings converts the selected backend into provider settings.
func (c *Config) BackendSettings() backend.Settings {
	ep := c.Endpoint()
	return backend.Settings{
		Backend: c.Backend,
		BaseURL: ep.URL,
		APIKey:  ep.APIKey,
		Model:   ep.Model,
		Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Perplexity.APIKey = mask(cp.Perplexity.APIKey)
	cp.Groq.APIKey = mask(cp.Groq.APIKey)
	cp.OpenAI.APIKey = mask(cp.OpenAI.APIKey)
	cp.Search.ExaAPIKey = mask(cp.Search.ExaAPIKey)
	cp.Search.TavilyAPIKey = mask(cp.Search.TavilyAPIKey)
	cp.Wolfram.AppID = mask(cp.Wolfram.AppID)
	return &cp
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
