package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/types"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// GroqURL is the OpenAI-compatible endpoint of the Groq API.
const GroqURL = "https://api.groq.com/openai/v1"

// OpenAIProvider uses the openai-go SDK against any OpenAI-compatible API,
// Groq included.
type OpenAIProvider struct {
	name   string
	model  string
	client openai.Client
}

// OpenAIConfig configures an SDK-backed provider.
type OpenAIConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewOpenAI creates an SDK-backed provider. SDK level retries are disabled
// because the adapter owns retrying.
func NewOpenAI(cfg OpenAIConfig) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	name := cfg.Name
	if name == "" {
		name = "openai"
	}

	return &OpenAIProvider{
		name:   name,
		model:  cfg.Model,
		client: openai.NewClient(opts...),
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, msgs []types.Message, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       p.model,
		Messages:    toOpenAIMessages(msgs),
		Temperature: openai.Float(temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(p.name + " returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(msgs []types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case types.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		default:
			out = append(out, openai.SystemMessage(m.Content))
		}
	}
	return out
}
