package llm

import (
	"fmt"

	"github.com/astrasemi/assistant/internal/config"
)

// New builds the configured provider. It returns nil without error when no
// provider is configured, which callers treat as "AI features unavailable".
func New(cfg config.AIConfig) (Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			TextModel:   cfg.TextModel,
			VisionModel: cfg.VisionModel,
		}), nil
	case "ollama":
		client, err := NewOllamaClient(OllamaConfig{
			BaseURL:     cfg.OllamaURL,
			TextModel:   cfg.TextModel,
			VisionModel: cfg.VisionModel,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
