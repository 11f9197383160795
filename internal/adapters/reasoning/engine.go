package reasoning

import (
	"context"
	"errors"
	"fmt"

	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/infrastructure/clients/anthropic"
	"github.com/zatekoja/caretriage/internal/infrastructure/clients/openai"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
)

// ErrOfflineEngine is returned by every call to the offline engine.
var ErrOfflineEngine = errors.New("reasoning engine is offline")

// OfflineEngine never answers. Every stage takes its fallback path, which makes
// the pipeline fully deterministic.
type OfflineEngine struct{}

// Name identifies the engine in logs and metrics.
func (OfflineEngine) Name() string { return config.ProviderOffline }

// Complete always fails with ErrOfflineEngine.
func (OfflineEngine) Complete(ctx context.Context, _ providers.ReasoningRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", ErrOfflineEngine
}

// NewEngine builds the reasoning engine selected by cfg.Provider.
func NewEngine(cfg config.ReasoningConfig) (providers.ReasoningEngine, error) {
	logger := observability.GetLogger()

	switch cfg.Provider {
	case "", config.ProviderOffline:
		logger.Info().Msg("Reasoning engine offline, all stages will use deterministic fallbacks")
		return OfflineEngine{}, nil
	case config.ProviderOpenAI:
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		logger.Info().Str("engine", client.Name()).Msg("Reasoning engine configured")
		return client, nil
	case config.ProviderAnthropic:
		client, err := anthropic.NewClient(&cfg.Anthropic)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		logger.Info().Str("engine", client.Name()).Msg("Reasoning engine configured")
		return client, nil
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}
}
