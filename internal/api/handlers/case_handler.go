package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
)

const (
	maxRequestBytes   = 64 << 10
	maxBatchRequest   = 100
	defaultBatchLimit = 4
)

// CaseService is the application surface the case endpoints need.
type CaseService interface {
	Submit(ctx context.Context, input string) (entities.CaseOutcome, error)
	ProcessBatch(ctx context.Context, inputs []string, parallel int) ([]entities.CaseOutcome, error)
	Get(ctx context.Context, caseID string) (*entities.CaseOutcome, error)
	ListPendingReview(ctx context.Context, limit int) ([]*entities.CaseOutcome, error)
}

// CaseHandler handles case intake and lookup requests
type CaseHandler struct {
	service CaseService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(service CaseService) *CaseHandler {
	return &CaseHandler{service: service}
}

type submitCaseRequest struct {
	PatientInput string `json:"patient_input"`
}

type batchCaseRequest struct {
	PatientInputs []string `json:"patient_inputs"`
	Parallel      int      `json:"parallel"`
}

// SubmitCase handles POST /api/cases
func (h *CaseHandler) SubmitCase(w http.ResponseWriter, r *http.Request) {
	var req submitCaseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := h.service.Submit(r.Context(), req.PatientInput)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

// SubmitBatch handles POST /api/cases/batch
func (h *CaseHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req batchCaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.PatientInputs) == 0 {
		respondWithError(w, http.StatusBadRequest, "patient_inputs is required")
		return
	}
	if len(req.PatientInputs) > maxBatchRequest {
		respondWithError(w, http.StatusBadRequest, "at most 100 patient_inputs per batch")
		return
	}
	parallel := req.Parallel
	if parallel <= 0 {
		parallel = defaultBatchLimit
	}

	outcomes, err := h.service.ProcessBatch(r.Context(), req.PatientInputs, parallel)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("batch aborted")
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cases": outcomes,
		"count": len(outcomes),
	})
}

// GetCase handles GET /api/cases/{caseID}
func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	if caseID == "" {
		respondWithError(w, http.StatusBadRequest, "case ID is required")
		return
	}

	outcome, err := h.service.Get(r.Context(), caseID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, outcome)
}

// ListReviewQueue handles GET /api/cases/review?limit=N
func (h *CaseHandler) ListReviewQueue(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	outcomes, err := h.service.ListPendingReview(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cases": outcomes,
		"count": len(outcomes),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
