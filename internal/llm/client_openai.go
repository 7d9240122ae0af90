package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ayush6624/go-chatgpt"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MinInterval time.Duration
}

// OpenAIClient implements Client for the OpenAI chat completions API.
type OpenAIClient struct {
	client  *chatgpt.Client
	model   chatgpt.ChatGPTModel
	timeout time.Duration
	gate    throttle
}

// NewOpenAIClient creates an OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoCredential
	}
	client, err := chatgpt.NewClient(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to construct gpt client: %w", err)
	}

	model := chatgpt.GPT35Turbo
	if m := strings.TrimSpace(cfg.Model); m != "" && !strings.HasPrefix(m, "gemini") {
		model = chatgpt.ChatGPTModel(m)
	}

	return &OpenAIClient{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
		gate:    throttle{interval: cfg.MinInterval},
	}, nil
}

// Model returns the model name.
func (c *OpenAIClient) Model() string { return string(c.model) }

// Complete sends a prompt without a system message.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a system and a user message.
func (c *OpenAIClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.gate.wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]chatgpt.ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatgpt.ChatMessage{Role: chatgpt.ChatGPTModelRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, chatgpt.ChatMessage{Role: chatgpt.ChatGPTModelRoleUser, Content: userPrompt})

	timer := logging.StartTimer(logging.CategoryLLM, "openai.Send")
	resp, err := c.client.Send(ctx, &chatgpt.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0,
	})
	timer.Stop()
	if err != nil {
		logging.LLMError("openai %s: %v", c.model, err)
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	logging.LLMDebug("openai %s: %d bytes", c.model, len(text))
	return text, nil
}
