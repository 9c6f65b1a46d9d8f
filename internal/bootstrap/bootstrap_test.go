package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindalindashu/novel-agent/internal/adapters/llm"
	"github.com/lindalindashu/novel-agent/internal/config"
	"github.com/lindalindashu/novel-agent/internal/domain"
)

func TestNewCompleter(t *testing.T) {
	ctx := context.Background()

	c, err := NewCompleter(ctx, config.LLMConfig{Provider: config.ProviderMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", c.Provider())

	c, err = NewCompleter(ctx, config.LLMConfig{Provider: config.ProviderMock, RatePerMinute: 30, Burst: 2})
	require.NoError(t, err)
	_, limited := c.(*llm.RateLimited)
	assert.True(t, limited)

	c, err = NewCompleter(ctx, config.LLMConfig{Provider: config.ProviderAnthropic, AnthropicAPIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Provider())
	assert.Equal(t, llm.DefaultAnthropicModel, c.Model())

	_, err = NewCompleter(ctx, config.LLMConfig{Provider: "gpt"})
	assert.Error(t, err)
}

func TestNewStores_UnknownBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.Backend = "sqlite"

	_, err := NewStores(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewDiaryService_LocalDefaults(t *testing.T) {
	ctx := context.Background()

	svc, closeFn, err := NewDiaryService(ctx, config.Defaults())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	e, err := svc.Create(ctx, domain.CreateEntryInput{Input: "first day"})
	require.NoError(t, err)
	assert.Contains(t, e.Diary, "first day")
}
