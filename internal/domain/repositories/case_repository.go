package repositories

import (
	"context"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// CaseFilter narrows case listings
type CaseFilter struct {
	Status        entities.CaseStatus
	ReviewPending bool
	Limit         int
	Offset        int
}

// CaseRepository persists finalized case outcomes
type CaseRepository interface {
	Save(ctx context.Context, outcome *entities.CaseOutcome) error
	GetByID(ctx context.Context, caseID string) (*entities.CaseOutcome, error)
	List(ctx context.Context, filter CaseFilter) ([]*entities.CaseOutcome, error)
}
