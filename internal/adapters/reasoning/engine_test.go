package reasoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/pkg/config"
)

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ReasoningConfig
		wantName string
		wantErr  bool
	}{
		{name: "default is offline", cfg: config.ReasoningConfig{}, wantName: "offline"},
		{name: "offline", cfg: config.ReasoningConfig{Provider: config.ProviderOffline}, wantName: "offline"},
		{
			name:     "openai",
			cfg:      config.ReasoningConfig{Provider: config.ProviderOpenAI, OpenAI: config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}},
			wantName: "openai:gpt-4o-mini",
		},
		{
			name:     "anthropic",
			cfg:      config.ReasoningConfig{Provider: config.ProviderAnthropic, Anthropic: config.AnthropicConfig{APIKey: "sk-ant", Model: "claude-test"}},
			wantName: "anthropic:claude-test",
		},
		{name: "openai without key", cfg: config.ReasoningConfig{Provider: config.ProviderOpenAI}, wantErr: true},
		{name: "anthropic without key", cfg: config.ReasoningConfig{Provider: config.ProviderAnthropic}, wantErr: true},
		{name: "unknown", cfg: config.ReasoningConfig{Provider: "llama"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, engine.Name())
		})
	}
}

func TestOfflineEngine_AlwaysFails(t *testing.T) {
	_, err := OfflineEngine{}.Complete(context.Background(), providers.ReasoningRequest{Prompt: "chest pain"})
	assert.ErrorIs(t, err, ErrOfflineEngine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = OfflineEngine{}.Complete(ctx, providers.ReasoningRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
