package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/application/services"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/domain/repositories"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

type stubProcessor struct {
	review   bool
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (p *stubProcessor) Process(ctx context.Context, input string) entities.CaseOutcome {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	return entities.CaseOutcome{
		CaseID:              "CASE-" + input,
		Status:              entities.CaseStatusCompleted,
		RequiresHumanReview: p.review,
		Reasons:             []string{},
		AuditTrail:          []entities.StageEvent{},
	}
}

func TestCaseService_SubmitRejectsEmptyInput(t *testing.T) {
	svc := services.NewCaseService(&stubProcessor{}, nil, nil, nil, nil, 0)

	_, err := svc.Submit(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCaseService_SubmitFansOut(t *testing.T) {
	repo := new(MockCaseRepository)
	cache := new(MockCacheProvider)
	bus := new(MockEventBus)
	notifier := new(MockReviewNotifier)

	repo.On("Save", mock.Anything, mock.MatchedBy(func(o *entities.CaseOutcome) bool { return o.CaseID == "CASE-0000ABCD" })).Return(nil)
	cache.On("Set", mock.Anything, "case:CASE-0000ABCD", mock.Anything, time.Hour).Return(nil)
	bus.On("Publish", mock.Anything, providers.EventChannelCases, mock.MatchedBy(func(e *providers.CaseEvent) bool {
		return e.Type == providers.CaseEventFinalized && e.CaseID == "CASE-0000ABCD" && e.ID != ""
	})).Return(nil)
	bus.On("Publish", mock.Anything, providers.EventChannelReview, mock.MatchedBy(func(e *providers.CaseEvent) bool {
		return e.Type == providers.CaseEventReviewRequired
	})).Return(nil)
	notifier.On("NotifyReview", mock.Anything, mock.Anything).Return(nil)

	svc := services.NewCaseService(&stubProcessor{review: true}, repo, cache, bus, notifier, time.Hour)
	outcome, err := svc.Submit(context.Background(), "0000ABCD")

	require.NoError(t, err)
	assert.Equal(t, "CASE-0000ABCD", outcome.CaseID)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
	bus.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCaseService_SideEffectFailuresAreNotFatal(t *testing.T) {
	repo := new(MockCaseRepository)
	bus := new(MockEventBus)
	notifier := new(MockReviewNotifier)

	repo.On("Save", mock.Anything, mock.Anything).Return(apperrors.NewInternalError("db down", errors.New("dial tcp")))
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	notifier.On("NotifyReview", mock.Anything, mock.Anything).Return(errors.New("slack down"))

	svc := services.NewCaseService(&stubProcessor{review: true}, repo, nil, bus, notifier, 0)
	outcome, err := svc.Submit(context.Background(), "00000001")

	require.NoError(t, err)
	assert.True(t, outcome.RequiresHumanReview)
	bus.AssertNumberOfCalls(t, "Publish", 2)
}

func TestCaseService_NoReviewSkipsNotifier(t *testing.T) {
	notifier := new(MockReviewNotifier)
	svc := services.NewCaseService(&stubProcessor{review: false}, nil, nil, nil, notifier, 0)

	_, err := svc.Submit(context.Background(), "00000002")
	require.NoError(t, err)
	notifier.AssertNotCalled(t, "NotifyReview", mock.Anything, mock.Anything)
}

func TestCaseService_GetPrefersCache(t *testing.T) {
	cached := entities.CaseOutcome{CaseID: "CASE-00000003", Status: entities.CaseStatusPartial}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	cache := new(MockCacheProvider)
	repo := new(MockCaseRepository)
	cache.On("Get", mock.Anything, "case:CASE-00000003").Return(data, nil)

	svc := services.NewCaseService(&stubProcessor{}, repo, cache, nil, nil, 0)
	got, err := svc.Get(context.Background(), "CASE-00000003")

	require.NoError(t, err)
	assert.Equal(t, entities.CaseStatusPartial, got.Status)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCaseService_GetFallsBackToRepository(t *testing.T) {
	stored := &entities.CaseOutcome{CaseID: "CASE-00000004", Status: entities.CaseStatusCompleted}

	cache := new(MockCacheProvider)
	repo := new(MockCaseRepository)
	cache.On("Get", mock.Anything, "case:CASE-00000004").Return(nil, providers.ErrCacheMiss)
	cache.On("Set", mock.Anything, "case:CASE-00000004", mock.Anything, 24*time.Hour).Return(nil)
	repo.On("GetByID", mock.Anything, "CASE-00000004").Return(stored, nil)

	svc := services.NewCaseService(&stubProcessor{}, repo, cache, nil, nil, 0)
	got, err := svc.Get(context.Background(), "CASE-00000004")

	require.NoError(t, err)
	assert.Equal(t, stored, got)
	cache.AssertExpectations(t)
}

func TestCaseService_GetWithoutStoreIsNotFound(t *testing.T) {
	svc := services.NewCaseService(&stubProcessor{}, nil, nil, nil, nil, 0)

	_, err := svc.Get(context.Background(), "CASE-404")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCaseService_ListPendingReview(t *testing.T) {
	repo := new(MockCaseRepository)
	repo.On("List", mock.Anything, repositories.CaseFilter{ReviewPending: true, Limit: 50}).
		Return([]*entities.CaseOutcome{{CaseID: "CASE-00000005"}}, nil)

	svc := services.NewCaseService(&stubProcessor{}, repo, nil, nil, nil, 0)

	got, err := svc.ListPendingReview(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = svc.ListPendingReview(context.Background(), 1000)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCaseService_ProcessBatchKeepsOrderAndLimit(t *testing.T) {
	processor := &stubProcessor{}
	svc := services.NewCaseService(processor, nil, nil, nil, nil, 0)

	inputs := make([]string, 20)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("%08d", i)
	}

	results, err := svc.ProcessBatch(context.Background(), inputs, 4)
	require.NoError(t, err)
	require.Len(t, results, len(inputs))
	for i, r := range results {
		assert.Equal(t, "CASE-"+inputs[i], r.CaseID)
	}
	assert.LessOrEqual(t, processor.peak.Load(), int32(4))
	assert.GreaterOrEqual(t, processor.peak.Load(), int32(1))
}

func TestCaseService_ProcessBatchWithOrchestrator(t *testing.T) {
	orch := newOrchestrator(failingEngine(errEngineUnavailable))
	svc := services.NewCaseService(orch, nil, nil, nil, nil, 0)

	results, err := svc.ProcessBatch(context.Background(), []string{"chest pain", "", "annual checkup"}, 3)
	require.NoError(t, err)

	assert.Equal(t, entities.CaseStatusPartial, results[0].Status)
	assert.Equal(t, entities.CaseStatusFailed, results[1].Status)
	assert.Equal(t, entities.CaseStatusPartial, results[2].Status)

	seen := map[string]bool{}
	for _, r := range results {
		assert.False(t, seen[r.CaseID], "duplicate case id %s", r.CaseID)
		seen[r.CaseID] = true
	}
}
