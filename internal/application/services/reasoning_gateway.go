package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Invocation describes one gateway call, successful or not.
type Invocation struct {
	Raw           string
	Duration      time.Duration
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
}

// ReasoningGateway turns free-text engine completions into validated structured values.
// It never retries; callers decide what to do with a ParseFailure.
type ReasoningGateway struct {
	engine      providers.ReasoningEngine
	timeout     time.Duration
	inputPrice  float64
	outputPrice float64
}

// NewReasoningGateway creates a gateway bound to one engine.
func NewReasoningGateway(engine providers.ReasoningEngine, cfg config.TriageConfig) *ReasoningGateway {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = config.DefaultTriageConfig().CallTimeout
	}
	return &ReasoningGateway{
		engine:      engine,
		timeout:     timeout,
		inputPrice:  cfg.CostPer1KInputTokens,
		outputPrice: cfg.CostPer1KOutputTokens,
	}
}

type completion struct {
	text string
	err  error
}

// Invoke sends prompt to the engine and decodes the reply into target, which must be a
// pointer. Every failure is a *apperrors.ParseFailure.
func (g *ReasoningGateway) Invoke(ctx context.Context, prompt Prompt, schema entities.Schema, target any) (Invocation, error) {
	ctx, span := observability.StartSpan(ctx, "gateway.Invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.engine", g.engine.Name()),
		attribute.String("schema", schema.Name),
	)

	inv := Invocation{InputTokens: EstimateTokens(prompt.System) + EstimateTokens(prompt.User)}
	start := time.Now()

	raw, err := g.complete(ctx, prompt, schema)
	inv.Duration = time.Since(start)
	if err == nil {
		inv.Raw = raw
		inv.OutputTokens = EstimateTokens(raw)
		inv.EstimatedCost = g.cost(inv.InputTokens, inv.OutputTokens)
		err = decodeStructured(raw, schema, target)
	}

	logger := observability.LoggerFromContext(ctx)
	reason := ""
	if pf, ok := apperrors.AsParseFailure(err); ok {
		reason = string(pf.Reason)
		observability.RecordError(span, err)
		span.SetAttributes(attribute.String("failure.reason", reason))
	}
	recordGatewayCall(ctx, g.engine.Name(), inv.Duration, reason)

	logger.Debug().
		Str("engine", g.engine.Name()).
		Str("schema", schema.Name).
		Dur("duration", inv.Duration).
		Int("input_tokens", inv.InputTokens).
		Int("output_tokens", inv.OutputTokens).
		Str("failure_reason", reason).
		Msg("reasoning call finished")

	return inv, err
}

func (g *ReasoningGateway) complete(ctx context.Context, prompt Prompt, schema entities.Schema) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := providers.ReasoningRequest{
		SystemPrompt: prompt.System,
		Prompt:       prompt.User,
		Schema:       schema,
	}

	// buffered so the goroutine can finish after we stop waiting
	done := make(chan completion, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- completion{err: fmt.Errorf("reasoning engine panicked: %v", r)}
			}
		}()
		text, err := g.engine.Complete(callCtx, req)
		done <- completion{text: text, err: err}
	}()

	select {
	case c := <-done:
		if c.err != nil {
			if errors.Is(c.err, context.DeadlineExceeded) {
				return "", apperrors.NewParseFailure(apperrors.ReasonTimeout, "",
					apperrors.NewEngineError("reasoning call timed out", c.err))
			}
			return "", apperrors.NewParseFailure(apperrors.ReasonEngineError, "",
				apperrors.NewEngineError("reasoning call failed", c.err))
		}
		return c.text, nil
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", apperrors.NewParseFailure(apperrors.ReasonTimeout, "",
				apperrors.NewEngineError(fmt.Sprintf("no reply within %s", g.timeout), callCtx.Err()))
		}
		return "", apperrors.NewParseFailure(apperrors.ReasonEngineError, "",
			apperrors.NewEngineError("reasoning call cancelled", callCtx.Err()))
	}
}

func (g *ReasoningGateway) cost(inputTokens, outputTokens int) float64 {
	return EstimateCost(inputTokens, outputTokens, g.inputPrice, g.outputPrice)
}

// EstimateTokens approximates the token count of text at four characters per token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// EstimateCost prices a call in USD, rounded up to the nearest micro-dollar.
func EstimateCost(inputTokens, outputTokens int, per1KIn, per1KOut float64) float64 {
	usd := float64(inputTokens)/1000*per1KIn + float64(outputTokens)/1000*per1KOut
	return entities.RoundUpMicroUSD(usd)
}

func decodeStructured(raw string, schema entities.Schema, target any) error {
	body, ok := extractJSONObject(raw)
	if !ok {
		return apperrors.NewParseFailure(apperrors.ReasonNotStructured, raw,
			errors.New("no JSON object found in engine output"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return apperrors.NewParseFailure(apperrors.ReasonNotStructured, raw, err)
	}

	var missing []string
	for _, name := range schema.RequiredFields() {
		v, present := fields[name]
		if !present || string(v) == "null" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewParseFailure(apperrors.ReasonSchemaViolation, raw,
			apperrors.NewSchemaViolation("missing required fields: "+strings.Join(missing, ", ")))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return apperrors.NewParseFailure(apperrors.ReasonSchemaViolation, raw,
			apperrors.NewSchemaViolation(err.Error()))
	}
	return nil
}

// extractJSONObject tries the raw text, then fenced blocks, then the first balanced
// object embedded in prose.
func extractJSONObject(raw string) ([]byte, bool) {
	trimmed := strings.TrimSpace(raw)
	if isJSONObject(trimmed) {
		return []byte(trimmed), true
	}

	for _, m := range fencedBlockPattern.FindAllStringSubmatch(raw, -1) {
		inner := strings.TrimSpace(m[1])
		if isJSONObject(inner) {
			return []byte(inner), true
		}
		if obj, ok := firstBalancedObject(inner); ok {
			return []byte(obj), true
		}
	}

	if obj, ok := firstBalancedObject(raw); ok {
		return []byte(obj), true
	}
	return nil, false
}

func isJSONObject(s string) bool {
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

func firstBalancedObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchingBrace(s, start); end > 0 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchingBrace returns the index of the brace closing the one at start, or -1.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
