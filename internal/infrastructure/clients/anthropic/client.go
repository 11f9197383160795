package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Client implements providers.ReasoningEngine over the Anthropic Messages API.
type Client struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClient creates a new Anthropic client. Retries are owned by the stage agents,
// so the SDK's own retry loop is disabled.
func NewClient(cfg *config.AnthropicConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Name identifies the engine in logs and metrics.
func (c *Client) Name() string {
	return "anthropic:" + c.model
}

// Complete sends one prompt and returns the concatenated text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req providers.ReasoningRequest) (string, error) {
	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		recordAnthropicMetric(ctx, c.model, time.Since(start), 0, 0, err)
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			return "", fmt.Errorf("%w: anthropic request failed with status %d", providers.ErrReasoningUnauthorized, apiErr.StatusCode)
		}
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		err := errors.New("anthropic response missing text content")
		recordAnthropicMetric(ctx, c.model, time.Since(start), message.Usage.InputTokens, message.Usage.OutputTokens, err)
		return "", err
	}

	recordAnthropicMetric(ctx, c.model, time.Since(start), message.Usage.InputTokens, message.Usage.OutputTokens, nil)
	return text.String(), nil
}

type anthropicMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	tokens          metric.Int64Counter
}

var (
	anthropicMetricsOnce sync.Once
	anthropicMetricsInit bool
	metrics              anthropicMetrics
)

func ensureAnthropicMetrics() {
	anthropicMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/zatekoja/caretriage/anthropic")

		requestCount, err := meter.Int64Counter(
			"ai.anthropic.request.count",
			metric.WithDescription("Number of Anthropic requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.anthropic.request.duration",
			metric.WithDescription("Anthropic request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.anthropic.request.errors",
			metric.WithDescription("Number of Anthropic request errors"),
		)
		if err != nil {
			return
		}
		tokens, err := meter.Int64Counter(
			"ai.anthropic.tokens",
			metric.WithDescription("Tokens reported by the Anthropic API"),
		)
		if err != nil {
			return
		}

		metrics = anthropicMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			tokens:          tokens,
		}
		anthropicMetricsInit = true
	})
}

func recordAnthropicMetric(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int64, err error) {
	ensureAnthropicMetrics()
	if !anthropicMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "anthropic"),
		attribute.String("ai.model", model),
	}

	metrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		metrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if inputTokens > 0 {
		metrics.tokens.Add(ctx, inputTokens, metric.WithAttributes(append(attrs, attribute.String("ai.token.kind", "input"))...))
	}
	if outputTokens > 0 {
		metrics.tokens.Add(ctx, outputTokens, metric.WithAttributes(append(attrs, attribute.String("ai.token.kind", "output"))...))
	}
}
