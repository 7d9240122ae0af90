package llm

import (
	"context"
	"fmt"

	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// Provider identifies a text generation backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// NewClientFromConfig builds the configured client. It returns
// ErrNoCredential when no API key is set; callers treat that as
// "generator unavailable" and use fallback content.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	if !cfg.HasCredential() {
		logging.LLM("No API key configured; text generation disabled")
		return nil, ErrNoCredential
	}

	switch Provider(cfg.LLM.Provider) {
	case ProviderGemini, "":
		c, err := NewGenAIClient(ctx, GenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.GetLLMTimeout(),
			MinInterval: cfg.GetMinInterval(),
		})
		if err != nil {
			return nil, err
		}
		logging.LLM("Using gemini model %s", c.Model())
		return c, nil
	case ProviderOpenAI:
		c, err := NewOpenAIClient(OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Timeout:     cfg.GetLLMTimeout(),
			MinInterval: cfg.GetMinInterval(),
		})
		if err != nil {
			return nil, err
		}
		logging.LLM("Using openai model %s", c.Model())
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.LLM.Provider)
	}
}
