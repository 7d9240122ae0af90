package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nyukimin/daily-zodiac/internal/config"
)

func TestNewClientFromConfig_NoCredential(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "   "

	c, err := NewClientFromConfig(context.Background(), cfg)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrNoCredential))
}

func TestNewClientFromConfig_UnknownProvider(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "key"
	cfg.LLM.Provider = "zai"

	_, err := NewClientFromConfig(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewOpenAIClient(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	assert.ErrorIs(t, err, ErrNoCredential)

	c, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", Model: "gemini-flash-lite-latest"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-3.5-turbo", c.Model(), "gemini model names are not sent to openai")
}

func TestNewGenAIClient_RequiresKey(t *testing.T) {
	_, err := NewGenAIClient(context.Background(), GenAIConfig{})
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestThrottle(t *testing.T) {
	g := throttle{interval: 30 * time.Millisecond}
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, g.wait(ctx))
	require.NoError(t, g.wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestThrottle_Cancelled(t *testing.T) {
	g := throttle{interval: time.Hour}
	require.NoError(t, g.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, g.wait(ctx), context.Canceled)
}
