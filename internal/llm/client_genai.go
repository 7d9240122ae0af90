package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// DefaultGeminiModel is the lightweight model used for daily forecasts.
const DefaultGeminiModel = "gemini-flash-lite-latest"

// GenAIConfig holds configuration for the Gemini client.
type GenAIConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MinInterval time.Duration
}

// GenAIClient implements Client for Google Gemini via the genai SDK.
// Requests run at temperature 0 and ask for a JSON response body.
type GenAIClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	gate    throttle
}

// NewGenAIClient creates a Gemini client.
func NewGenAIClient(ctx context.Context, cfg GenAIConfig) (*GenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoCredential
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		gate:    throttle{interval: cfg.MinInterval},
	}, nil
}

// Model returns the model name.
func (c *GenAIClient) Model() string { return c.model }

// Complete sends a prompt without a system instruction.
func (c *GenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.gate.wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	timer := logging.StartTimer(logging.CategoryLLM, "genai.GenerateContent")
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), config)
	timer.Stop()
	if err != nil {
		logging.LLMError("genai %s: %v", c.model, err)
		return "", fmt.Errorf("genai request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	logging.LLMDebug("genai %s: %d bytes", c.model, len(text))
	return text, nil
}
