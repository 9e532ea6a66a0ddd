package embedding

import "fmt"

type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimension  int
	MaxRetries int
}

func NewProvider(cfg Config) (Provider, error) {
	var p Provider
	switch cfg.Provider {
	case "local", "":
		return NewLocalProvider(cfg.Dimension), nil
	case "ollama":
		p = NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai embedding provider requires an api key")
		}
		p = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
	return WithRetry(p, cfg.MaxRetries, 0), nil
}
