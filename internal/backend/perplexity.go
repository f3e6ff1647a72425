package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ashutoshrp06/reasonchain/internal/llm"
	"github.com/ashutoshrp06/reasonchain/internal/types"
)

// PerplexityURL is the hosted Perplexity chat completions base URL.
const PerplexityURL = "https://api.perplexity.ai"

// PerplexityProvider calls the Perplexity REST API. Perplexity rejects
// transcripts whose roles do not alternate, so it strips earlier assistant
// turns while stepping and merges neighbouring messages.
type PerplexityProvider struct {
	client *llm.Client
}

// NewPerplexity creates a provider around an OpenAI-compatible REST client.
func NewPerplexity(client *llm.Client) *PerplexityProvider {
	return &PerplexityProvider{client: client}
}

func (p *PerplexityProvider) Name() string { return "perplexity" }

func (p *PerplexityProvider) TranscriptFilter() TranscriptFilter {
	return Chain(StripAssistantTurns, AlternateRoles)
}

func (p *PerplexityProvider) Complete(ctx context.Context, msgs []types.Message, req Request) (string, error) {
	chatMsgs := make([]llm.ChatMessage, len(msgs))
	for i, m := range msgs {
		chatMsgs[i] = llm.ChatMessage{Role: m.Role, Content: m.Content}
	}

	content, err := p.client.Chat(ctx, chatMsgs, req.MaxTokens)
	if err != nil {
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest {
			return "", Permanent(fmt.Errorf("perplexity rejected request: %w", err))
		}
		return "", fmt.Errorf("perplexity chat: %w", err)
	}
	return content, nil
}
