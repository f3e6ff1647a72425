package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/llm"
	"github.com/ashutoshrp06/reasonchain/internal/ollama"
)

// Supported backend names.
const (
	Ollama     = "ollama"
	Perplexity = "perplexity"
	Groq       = "groq"
	OpenAI     = "openai"
)

// Names lists the supported backends in display order.
var Names = []string{Ollama, Perplexity, Groq, OpenAI}

// Settings selects and configures one provider.
type Settings struct {
	Backend string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewProvider builds the provider named by s.Backend.
func NewProvider(s Settings) (Provider, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case Ollama, "":
		return NewOllama(ollama.NewClient(ollama.Config{
			BaseURL: s.BaseURL,
			Model:   s.Model,
			Timeout: timeout,
		})), nil

	case Perplexity:
		if s.APIKey == "" {
			return nil, fmt.Errorf("perplexity backend requires an API key")
		}
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = PerplexityURL
		}
		return NewPerplexity(llm.NewClient(baseURL, s.APIKey, s.Model, timeout, temperature)), nil

	case Groq:
		if s.APIKey == "" {
			return nil, fmt.Errorf("groq backend requires an API key")
		}
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = GroqURL
		}
		return NewOpenAI(OpenAIConfig{
			Name:    Groq,
			BaseURL: baseURL,
			APIKey:  s.APIKey,
			Model:   s.Model,
			Timeout: timeout,
		}), nil

	case OpenAI:
		return NewOpenAI(OpenAIConfig{
			Name:    OpenAI,
			BaseURL: s.BaseURL,
			APIKey:  s.APIKey,
			Model:   s.Model,
			Timeout: timeout,
		}), nil

	default:
		return nil, fmt.Errorf("unknown backend %q (want one of %s)", s.Backend, strings.Join(Names, ", "))
	}
}
