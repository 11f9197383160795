package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/domain/repositories"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	caseCacheName      = "case_outcome"
	defaultReviewLimit = 50
	maxReviewLimit     = 500
)

// CaseProcessor runs a single case end to end.
type CaseProcessor interface {
	Process(ctx context.Context, input string) entities.CaseOutcome
}

// CaseService is the ingress for patient cases. Persistence, caching, events and
// notifications are optional and best-effort; a finalized outcome is always returned.
type CaseService struct {
	processor CaseProcessor
	repo      repositories.CaseRepository
	cache     providers.CacheProvider
	eventBus  providers.EventBus
	notifier  providers.ReviewNotifier
	cacheTTL  time.Duration
	metrics   *observability.Metrics
}

// NewCaseService creates a new case service. Any collaborator after processor may be nil.
func NewCaseService(
	processor CaseProcessor,
	repo repositories.CaseRepository,
	cache providers.CacheProvider,
	eventBus providers.EventBus,
	notifier providers.ReviewNotifier,
	cacheTTL time.Duration,
) *CaseService {
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &CaseService{
		processor: processor,
		repo:      repo,
		cache:     cache,
		eventBus:  eventBus,
		notifier:  notifier,
		cacheTTL:  cacheTTL,
	}
}

// WithMetrics attaches cache hit/miss instruments.
func (s *CaseService) WithMetrics(metrics *observability.Metrics) *CaseService {
	s.metrics = metrics
	return s
}

// Submit validates the input and processes one case.
func (s *CaseService) Submit(ctx context.Context, input string) (entities.CaseOutcome, error) {
	if strings.TrimSpace(input) == "" {
		return entities.CaseOutcome{}, apperrors.NewValidationError("patient_input is required")
	}
	return s.process(ctx, input), nil
}

// ProcessBatch processes independent cases concurrently, at most parallel at a time.
// Results keep the order of inputs; empty inputs yield failed outcomes rather than errors.
func (s *CaseService) ProcessBatch(ctx context.Context, inputs []string, parallel int) ([]entities.CaseOutcome, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]entities.CaseOutcome, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, input := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.process(gctx, input)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Get returns a finalized case, from cache when possible.
func (s *CaseService) Get(ctx context.Context, caseID string) (*entities.CaseOutcome, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, cacheKey(caseID))
		if err == nil {
			var outcome entities.CaseOutcome
			if jerr := json.Unmarshal(data, &outcome); jerr == nil {
				observability.RecordCacheHit(ctx, s.metrics, caseCacheName)
				return &outcome, nil
			}
		} else if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("case_id", caseID).Msg("case cache read failed")
		}
		observability.RecordCacheMiss(ctx, s.metrics, caseCacheName)
	}

	if s.repo == nil {
		return nil, apperrors.NewNotFoundError("case " + caseID + " not found")
	}
	outcome, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	s.cacheOutcome(ctx, outcome)
	return outcome, nil
}

// ListPendingReview returns the most recent cases flagged for human review.
func (s *CaseService) ListPendingReview(ctx context.Context, limit int) ([]*entities.CaseOutcome, error) {
	if limit <= 0 {
		limit = defaultReviewLimit
	}
	if limit > maxReviewLimit {
		return nil, apperrors.NewValidationError("limit must not exceed 500")
	}
	if s.repo == nil {
		return []*entities.CaseOutcome{}, nil
	}
	return s.repo.List(ctx, repositories.CaseFilter{ReviewPending: true, Limit: limit})
}

func (s *CaseService) process(ctx context.Context, input string) entities.CaseOutcome {
	outcome := s.processor.Process(ctx, input)
	// side effects must not be cut short by a caller that has stopped waiting
	ctx = observability.WithCaseID(context.WithoutCancel(ctx), outcome.CaseID)
	logger := observability.LoggerFromContext(ctx)

	if s.repo != nil {
		if err := s.repo.Save(ctx, &outcome); err != nil {
			logger.Warn().Err(err).Msg("failed to persist case outcome")
		}
	}
	s.cacheOutcome(ctx, &outcome)

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, providers.EventChannelCases, newCaseEvent(providers.CaseEventFinalized, &outcome)); err != nil {
			logger.Warn().Err(err).Msg("failed to publish case event")
		}
		if outcome.RequiresHumanReview {
			if err := s.eventBus.Publish(ctx, providers.EventChannelReview, newCaseEvent(providers.CaseEventReviewRequired, &outcome)); err != nil {
				logger.Warn().Err(err).Msg("failed to publish review event")
			}
		}
	}

	if s.notifier != nil && outcome.RequiresHumanReview {
		if err := s.notifier.NotifyReview(ctx, &outcome); err != nil {
			logger.Warn().Err(err).Msg("failed to send review notification")
		}
	}
	return outcome
}

func (s *CaseService) cacheOutcome(ctx context.Context, outcome *entities.CaseOutcome) {
	if s.cache == nil || outcome == nil {
		return
	}
	data, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(outcome.CaseID), data, s.cacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to cache case outcome")
	}
}

func newCaseEvent(eventType providers.CaseEventType, outcome *entities.CaseOutcome) *providers.CaseEvent {
	return &providers.CaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		CaseID:    outcome.CaseID,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

func cacheKey(caseID string) string {
	return "case:" + caseID
}
