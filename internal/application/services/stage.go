package services

import (
	"context"
	"time"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
	"github.com/zatekoja/caretriage/pkg/retry"
)

// fallbackConfidence is assigned to values built by a stage's deterministic fallback.
const fallbackConfidence = 0.3

// StageReport summarises how a stage produced its value.
type StageReport struct {
	Attempts     int
	Cost         float64
	FallbackUsed bool
	// Err is the last reasoning failure, kept for the audit trail even when a fallback recovered.
	Err error
}

// retryableParseFailure allows a second attempt only when the engine answered but the
// answer was unusable. Timeouts and engine errors go straight to the fallback.
func retryableParseFailure(err error) bool {
	pf, ok := apperrors.AsParseFailure(err)
	if !ok {
		return false
	}
	return pf.Reason == apperrors.ReasonNotStructured || pf.Reason == apperrors.ReasonSchemaViolation
}

// invokeWithRetry runs attempt under the stage retry policy and tallies attempts and cost.
func invokeWithRetry(ctx context.Context, stage entities.StageName, maxAttempts int, report *StageReport, attempt func() (Invocation, error)) error {
	logger := observability.LoggerFromContext(ctx)
	attempts, err := retry.DoWithLog(ctx, retry.StageConfig(maxAttempts, retryableParseFailure), string(stage),
		func() error {
			inv, err := attempt()
			report.Cost += inv.EstimatedCost
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().
				Err(err).
				Str("stage", string(stage)).
				Int("attempt", attempt).
				Dur("next_delay", nextDelay).
				Msg("reasoning output unusable, retrying")
		},
	)
	report.Attempts = attempts
	return err
}

// schemaViolation converts a post-decode validation error into a gateway-style failure.
func schemaViolation(raw string, err error) error {
	return apperrors.NewParseFailure(apperrors.ReasonSchemaViolation, raw, err)
}
