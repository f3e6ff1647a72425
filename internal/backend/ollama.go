package backend

import (
	"context"
	"fmt"

	"github.com/ashutoshrp06/reasonchain/internal/ollama"
	"github.com/ashutoshrp06/reasonchain/internal/types"
)

// OllamaProvider talks to a locally hosted Ollama server.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllama creates a provider around an Ollama client.
func NewOllama(client *ollama.Client) *OllamaProvider {
	return &OllamaProvider{client: client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Complete(ctx context.Context, msgs []types.Message, req Request) (string, error) {
	chatMsgs := make([]ollama.ChatMessage, len(msgs))
	for i, m := range msgs {
		chatMsgs[i] = ollama.ChatMessage{Role: m.Role, Content: m.Content}
	}

	chatReq := ollama.ChatRequest{
		Messages: chatMsgs,
		Options: &ollama.Options{
			Temperature: temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	if req.JSON {
		chatReq.Format = "json"
	}

	resp, err := p.client.Chat(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return resp.Message.Content, nil
}
