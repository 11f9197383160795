package services_test

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/caretriage/internal/adapters/directory"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/domain/repositories"
	"github.com/zatekoja/caretriage/pkg/config"
)

// Mocks

type MockReasoningEngine struct {
	mock.Mock
}

func (m *MockReasoningEngine) Complete(ctx context.Context, req providers.ReasoningRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockReasoningEngine) Name() string {
	return "mock"
}

// forSchema matches requests carrying the named output schema.
func forSchema(name string) interface{} {
	return mock.MatchedBy(func(req providers.ReasoningRequest) bool {
		return req.Schema.Name == name
	})
}

// stalledEngine ignores cancellation and never answers within a test's timeout.
type stalledEngine struct {
	delay time.Duration
}

func (s stalledEngine) Complete(ctx context.Context, req providers.ReasoningRequest) (string, error) {
	time.Sleep(s.delay)
	return `{"confidence": 1}`, nil
}

func (s stalledEngine) Name() string { return "stalled" }

type panickingEngine struct{}

func (panickingEngine) Complete(ctx context.Context, req providers.ReasoningRequest) (string, error) {
	panic("engine exploded")
}

func (panickingEngine) Name() string { return "panicking" }

type MockCaseIDGenerator struct {
	mock.Mock
}

func (m *MockCaseIDGenerator) NewCaseID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type MockCaseRepository struct {
	mock.Mock
}

func (m *MockCaseRepository) Save(ctx context.Context, outcome *entities.CaseOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *MockCaseRepository) GetByID(ctx context.Context, caseID string) (*entities.CaseOutcome, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CaseOutcome), args.Error(1)
}

func (m *MockCaseRepository) List(ctx context.Context, filter repositories.CaseFilter) ([]*entities.CaseOutcome, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CaseOutcome), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *providers.CaseEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *providers.CaseEvent, error) {
	return nil, errors.New("not supported")
}

func (m *MockEventBus) Close() error {
	return nil
}

type MockReviewNotifier struct {
	mock.Mock
}

func (m *MockReviewNotifier) NotifyReview(ctx context.Context, outcome *entities.CaseOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

// Fixtures

var errEngineUnavailable = errors.New("connection refused")

func testTriageConfig() config.TriageConfig {
	cfg := config.DefaultTriageConfig()
	cfg.CallTimeout = time.Second
	return cfg
}

func testProviders() []entities.Provider {
	return []entities.Provider{
		{ID: "card-1", Name: "Dr. Heart", Specialty: "cardiology", Availability: entities.Duration(2 * time.Hour), AcceptingNewPatients: true},
		{ID: "derm-1", Name: "Dr. Skin", Specialty: "dermatology", Availability: entities.Duration(72 * time.Hour), AcceptingNewPatients: true},
		{ID: "gp-1", Name: "Dr. General", Specialty: "general_practice", Availability: entities.Duration(24 * time.Hour), AcceptingNewPatients: true, Default: true},
		{ID: "er-1", Name: "City Emergency", Specialty: "emergency_medicine", Availability: entities.Duration(0), AcceptingNewPatients: true},
	}
}

func testDirectory() providers.ProviderDirectory {
	dir, err := directory.New(testProviders())
	if err != nil {
		panic(err)
	}
	return dir
}
