package providers

import (
	"context"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// ReviewNotifier alerts clinicians that a case needs manual review.
type ReviewNotifier interface {
	NotifyReview(ctx context.Context, outcome *entities.CaseOutcome) error
}
