package openai

import (
	"context"
	"errors"
	"fmt"

	"nau-assistant/pkg/llm"

	sdk "github.com/sashabaranov/go-openai"
)

const DefaultModel = sdk.GPT4oMini

type Provider struct {
	client *sdk.Client
	model  string
}

var _ llm.LLMProvider = (*Provider)(nil)

// NewProvider builds a chat client. An empty baseURL uses the public API.
func NewProvider(apiKey, model, baseURL string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	cfg := sdk.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{client: sdk.NewClientWithConfig(cfg), model: model}
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Model: p.model}, opts...)

	messages := make([]sdk.ChatCompletionMessage, len(history))
	for i, m := range history {
		messages[i] = sdk.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	req := sdk.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
