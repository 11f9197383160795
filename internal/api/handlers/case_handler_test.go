package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/caretriage/internal/api/handlers"
	"github.com/zatekoja/caretriage/internal/api/routes"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

type MockCaseService struct {
	mock.Mock
}

func (m *MockCaseService) Submit(ctx context.Context, input string) (entities.CaseOutcome, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(entities.CaseOutcome), args.Error(1)
}

func (m *MockCaseService) ProcessBatch(ctx context.Context, inputs []string, parallel int) ([]entities.CaseOutcome, error) {
	args := m.Called(ctx, inputs, parallel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.CaseOutcome), args.Error(1)
}

func (m *MockCaseService) Get(ctx context.Context, caseID string) (*entities.CaseOutcome, error) {
	args := m.Called(ctx, caseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CaseOutcome), args.Error(1)
}

func (m *MockCaseService) ListPendingReview(ctx context.Context, limit int) ([]*entities.CaseOutcome, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CaseOutcome), args.Error(1)
}

func newTestServer(service handlers.CaseService) http.Handler {
	router := routes.NewRouter(handlers.NewCaseHandler(service), nil, nil, []string{"*"})
	return router.SetupRoutes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCaseHandler_SubmitCase(t *testing.T) {
	service := new(MockCaseService)
	service.On("Submit", mock.Anything, "I have chest pain").Return(entities.CaseOutcome{
		CaseID:              "CASE-ABCDEF01",
		Status:              entities.CaseStatusCompleted,
		UrgencyLevel:        1,
		RequiresHumanReview: true,
		Reasons:             []string{"high urgency level: 1"},
		AuditTrail:          []entities.StageEvent{},
	}, nil)

	w := do(t, newTestServer(service), http.MethodPost, "/api/cases", `{"patient_input":"I have chest pain"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "CASE-ABCDEF01", body["case_id"])
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, true, body["requires_human_review"])
	assert.Contains(t, body, "audit_trail")
	service.AssertExpectations(t)
}

func TestCaseHandler_SubmitCaseErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockCaseService)
		wantStatus int
	}{
		{
			name:       "malformed json",
			body:       `{"patient_input":`,
			setup:      func(*MockCaseService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "empty input",
			body: `{"patient_input":""}`,
			setup: func(s *MockCaseService) {
				s.On("Submit", mock.Anything, "").Return(entities.CaseOutcome{}, apperrors.NewValidationError("patient_input is required"))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unexpected error",
			body: `{"patient_input":"x"}`,
			setup: func(s *MockCaseService) {
				s.On("Submit", mock.Anything, "x").Return(entities.CaseOutcome{}, errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "body too large",
			body:       `{"patient_input":"` + strings.Repeat("a", 70<<10) + `"}`,
			setup:      func(*MockCaseService) {},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockCaseService)
			tt.setup(service)

			w := do(t, newTestServer(service), http.MethodPost, "/api/cases", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestCaseHandler_GetCase(t *testing.T) {
	service := new(MockCaseService)
	service.On("Get", mock.Anything, "CASE-00000001").Return(&entities.CaseOutcome{CaseID: "CASE-00000001"}, nil)
	service.On("Get", mock.Anything, "CASE-MISSING").Return(nil, apperrors.NewNotFoundError("case CASE-MISSING not found"))
	server := newTestServer(service)

	w := do(t, server, http.MethodGet, "/api/cases/CASE-00000001", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CASE-00000001")

	w = do(t, server, http.MethodGet, "/api/cases/CASE-MISSING", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaseHandler_ListReviewQueue(t *testing.T) {
	service := new(MockCaseService)
	service.On("ListPendingReview", mock.Anything, 0).Return([]*entities.CaseOutcome{{CaseID: "CASE-1"}, {CaseID: "CASE-2"}}, nil)
	service.On("ListPendingReview", mock.Anything, 1000).Return(nil, apperrors.NewValidationError("limit must not exceed 500"))
	server := newTestServer(service)

	w := do(t, server, http.MethodGet, "/api/cases/review", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)

	w = do(t, server, http.MethodGet, "/api/cases/review?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, http.MethodGet, "/api/cases/review?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaseHandler_SubmitBatch(t *testing.T) {
	service := new(MockCaseService)
	service.On("ProcessBatch", mock.Anything, []string{"a", "b"}, 4).Return([]entities.CaseOutcome{{CaseID: "CASE-A"}, {CaseID: "CASE-B"}}, nil)
	server := newTestServer(service)

	w := do(t, server, http.MethodPost, "/api/cases/batch", `{"patient_inputs":["a","b"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = do(t, server, http.MethodPost, "/api/cases/batch", `{"patient_inputs":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	inputs := make([]string, 101)
	for i := range inputs {
		inputs[i] = "x"
	}
	payload, err := json.Marshal(map[string]interface{}{"patient_inputs": inputs})
	require.NoError(t, err)
	w = do(t, server, http.MethodPost, "/api/cases/batch", string(payload))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(new(MockCaseService)), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
