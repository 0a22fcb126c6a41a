package providers

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCreds(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestResolve(t *testing.T) {
	resetCreds(t)

	t.Run("gemini prefix", func(t *testing.T) {
		assert.Equal(t, TagGemini, Resolve("gemini-2.5-flash"))
		assert.Equal(t, TagGemini, Resolve("gemini-2.0-flash-lite"))
	})

	t.Run("slash routes to openrouter", func(t *testing.T) {
		assert.Equal(t, TagOpenRouter, Resolve("meta-llama/llama-3.3-70b"))
		assert.Equal(t, TagOpenRouter, Resolve("openrouter/anthropic/claude-sonnet-4"))
	})

	t.Run("claude without openrouter key uses anthropic", func(t *testing.T) {
		viper.Set("providers.openrouter_api_key", "")
		assert.Equal(t, TagAnthropic, Resolve("claude-sonnet-4-20250514"))
	})

	t.Run("claude with openrouter key routes through openrouter", func(t *testing.T) {
		viper.Set("providers.openrouter_api_key", "or-key")
		assert.Equal(t, TagOpenRouter, Resolve("claude-sonnet-4-20250514"))
		viper.Set("providers.openrouter_api_key", "")
	})

	t.Run("default is openai", func(t *testing.T) {
		assert.Equal(t, TagOpenAI, Resolve("gpt-4o"))
		assert.Equal(t, TagOpenAI, Resolve("o3-mini"))
	})
}

func TestForModel(t *testing.T) {
	t.Run("missing credential fails", func(t *testing.T) {
		resetCreds(t)
		_, err := ForModel("gpt-4o")
		require.Error(t, err)
		assert.True(t, IsNotConfigured(err))
		assert.Contains(t, err.Error(), "providers.openai_api_key")
	})

	t.Run("configured provider constructs", func(t *testing.T) {
		resetCreds(t)
		viper.Set("providers.gemini_api_key", "g-key")
		gen, err := ForModel("gemini-2.5-flash")
		require.NoError(t, err)
		assert.Equal(t, "gemini", gen.Name())
	})

	t.Run("openrouter prefix stripped from model", func(t *testing.T) {
		resetCreds(t)
		viper.Set("providers.openrouter_api_key", "or-key")
		gen, err := ForModel("openrouter/anthropic/claude-sonnet-4")
		require.NoError(t, err)
		or, ok := gen.(*OpenAI)
		require.True(t, ok)
		assert.Equal(t, "anthropic/claude-sonnet-4", or.model)
		assert.Equal(t, "openrouter", or.Name())
	})
}

func TestEstimateCost(t *testing.T) {
	t.Run("known model", func(t *testing.T) {
		// 1M input at $3 + 1M output at $15.
		cost := EstimateCost("claude-sonnet-4-20250514", 1_000_000, 1_000_000)
		assert.InDelta(t, 18.0, cost, 1e-9)
	})

	t.Run("vendor path segment ignored", func(t *testing.T) {
		direct := EstimateCost("claude-sonnet-4-20250514", 10_000, 2_000)
		routed := EstimateCost("openrouter/anthropic/claude-sonnet-4-20250514", 10_000, 2_000)
		assert.Equal(t, direct, routed)
	})

	t.Run("unknown model uses conservative fallback", func(t *testing.T) {
		cost := EstimateCost("mystery-model-9000", 1_000_000, 1_000_000)
		assert.InDelta(t, 20.0, cost, 1e-9)
	})

	t.Run("zero tokens cost nothing", func(t *testing.T) {
		assert.Zero(t, EstimateCost("gpt-4o", 0, 0))
	})
}
