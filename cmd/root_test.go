package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/plan-judge/internal/config"
	"github.com/timvw/plan-judge/internal/evaluator"
)

func TestBuildEvaluator_Manual(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = config.ModeManual
	cfg.PromptDir = t.TempDir()
	cfg.ResponseDir = cfg.PromptDir

	ev, cleanup, err := buildEvaluator(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer cleanup()

	_, ok := ev.(*evaluator.ManualEvaluator)
	assert.True(t, ok)
	assert.Equal(t, "manual", ev.Provider())
}

func TestBuildEvaluator_MissingKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider = "anthropic"
	cfg.APIKey = ""

	_, _, err := buildEvaluator(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestBuildEvaluator_UnknownProvider(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider = "mistral"
	cfg.APIKey = "k"

	_, _, err := buildEvaluator(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestBuildEvaluator_CacheWrapping(t *testing.T) {
	tests := []struct {
		name   string
		ttl    time.Duration
		cached bool
	}{
		{name: "cache enabled", ttl: time.Hour, cached: true},
		{name: "cache disabled", ttl: 0, cached: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Provider = "openai"
			cfg.Model = "gpt-4o-mini"
			cfg.APIKey = "k"
			cfg.CacheTTLDuration = tt.ttl

			ev, cleanup, err := buildEvaluator(context.Background(), cfg, nil)
			require.NoError(t, err)
			defer cleanup()

			_, isCache := ev.(*evaluator.CachingEvaluator)
			assert.Equal(t, tt.cached, isCache)
			assert.Equal(t, "openai", ev.Provider())
			assert.Equal(t, "gpt-4o-mini", ev.Model())
		})
	}
}
