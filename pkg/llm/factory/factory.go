package factory

import (
	"fmt"

	"nau-assistant/pkg/llm"
	"nau-assistant/pkg/llm/anthropic"
	"nau-assistant/pkg/llm/ollama"
	"nau-assistant/pkg/llm/openai"
)

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "anthropic", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an api key")
		}
		return anthropic.NewProvider(cfg.APIKey, cfg.Model), nil
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai provider requires an api key")
		}
		return openai.NewProvider(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
