package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

// Review reasons forced by the triage reconciliation.
const (
	ReasonLowConfidenceTriage = "low confidence triage"
	ReasonRedFlagOverride     = "red-flag override"
)

// TriageAgent classifies urgency with the reasoning engine and cross-checks the
// answer against the heuristic engine.
type TriageAgent struct {
	gateway   *ReasoningGateway
	heuristic *HeuristicEngine
	cfg       config.TriageConfig
}

// NewTriageAgent creates a new triage agent
func NewTriageAgent(gateway *ReasoningGateway, heuristic *HeuristicEngine, cfg config.TriageConfig) *TriageAgent {
	return &TriageAgent{gateway: gateway, heuristic: heuristic, cfg: cfg}
}

type triagePayload struct {
	UrgencyLevel int      `json:"urgency_level"`
	Specialty    string   `json:"specialty"`
	CareType     string   `json:"care_type"`
	RedFlags     []string `json:"red_flags"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
}

// Run produces the triage result for a patient. rawInput is the original patient text,
// which the heuristic searches alongside the extracted symptoms.
func (a *TriageAgent) Run(ctx context.Context, rawInput string, patient *entities.PatientRecord) (*entities.TriageResult, StageReport, error) {
	var report StageReport
	if patient == nil {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageTriage), "patient record is missing", nil)
	}

	assessment := a.heuristic.Assess(rawInput, patient.Symptoms)

	var engineResult *entities.TriageResult
	prompt := buildTriagePrompt(patient)
	err := invokeWithRetry(ctx, entities.StageTriage, a.cfg.TriageMaxAttempts, &report, func() (Invocation, error) {
		var payload triagePayload
		inv, err := a.gateway.Invoke(ctx, prompt, entities.TriageResultSchema, &payload)
		if err != nil {
			return inv, err
		}
		result := payload.toResult()
		if err := result.Validate(); err != nil {
			return inv, schemaViolation(inv.Raw, err)
		}
		engineResult = result
		return inv, nil
	})

	logger := observability.LoggerFromContext(ctx)
	if err != nil {
		report.Err = err
		if !a.cfg.FallbackEnabled {
			return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageTriage), "no usable triage result and fallback disabled", err)
		}
		logger.Warn().
			Err(err).
			Str("stage", string(entities.StageTriage)).
			Msg("triage falling back to heuristic assessment")
		engineResult = nil
	}

	result, overridden := a.reconcile(engineResult, assessment)
	report.FallbackUsed = overridden
	if overridden {
		logger.Info().
			Str("stage", string(entities.StageTriage)).
			Int("urgency_level", int(result.UrgencyLevel)).
			Strs("review_reasons", result.ReviewReasons).
			Msg("heuristic override applied")
	}
	return result, report, nil
}

// reconcile applies the override policy. engine is nil when the reasoning call failed.
func (a *TriageAgent) reconcile(engine *entities.TriageResult, h entities.HeuristicAssessment) (*entities.TriageResult, bool) {
	engineFailed := engine == nil
	lowConfidence := !engineFailed && engine.Confidence < a.cfg.ConfidenceThreshold
	missedByEngine := !engineFailed && h.Matched && h.UrgencyLevel.MoreUrgentThan(engine.UrgencyLevel)

	if !engineFailed && !lowConfidence && !missedByEngine {
		accepted := engine.Clone()
		accepted.Source = entities.SourceReasoningEngine
		accepted.RedFlags = unionTerms(engine.RedFlags, h.RedFlags)
		return accepted, false
	}

	result := &entities.TriageResult{
		UrgencyLevel: h.UrgencyLevel,
		CareType:     h.CareType,
		Specialty:    h.Specialty,
		RedFlags:     append([]string{}, h.RedFlags...),
		Confidence:   h.Confidence,
		Source:       entities.SourceHeuristicFallback,
	}
	if engineFailed {
		result.Reasoning = fmt.Sprintf("heuristic assessment used, reasoning engine unavailable (matched: %s)", matchedSummary(h))
		result.ReviewReasons = []string{ReasonLowConfidenceTriage}
		return result, true
	}

	result.Specialty = engine.Specialty
	result.RedFlags = unionTerms(engine.RedFlags, h.RedFlags)
	result.Confidence = math.Min(engine.Confidence, h.Confidence)
	if lowConfidence {
		result.ReviewReasons = append(result.ReviewReasons, ReasonLowConfidenceTriage)
	}
	if missedByEngine {
		result.ReviewReasons = append(result.ReviewReasons, ReasonRedFlagOverride)
	}
	result.Reasoning = fmt.Sprintf("engine proposed level %d at confidence %.2f; heuristic level %d applied (matched: %s)",
		engine.UrgencyLevel, engine.Confidence, h.UrgencyLevel, matchedSummary(h))
	return result, true
}

func (p triagePayload) toResult() *entities.TriageResult {
	return &entities.TriageResult{
		UrgencyLevel: entities.UrgencyLevel(p.UrgencyLevel),
		Specialty:    normalizeSpecialty(p.Specialty),
		CareType:     normalizeCareType(p.CareType),
		RedFlags:     entities.NormalizeTerms(p.RedFlags),
		Confidence:   p.Confidence,
		Reasoning:    strings.TrimSpace(p.Reasoning),
		Source:       entities.SourceReasoningEngine,
	}
}

func normalizeSpecialty(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(s, "-", " "))), "_")
}

func normalizeCareType(s string) entities.CareType {
	switch c := strings.ToLower(strings.TrimSpace(s)); c {
	case "urgent_care", "urgent care":
		return entities.CareTypeUrgent
	default:
		return entities.CareType(c)
	}
}

// unionTerms keeps first's order and appends unseen terms from second.
func unionTerms(first, second []string) []string {
	return entities.NormalizeTerms(append(append([]string{}, first...), second...))
}

func matchedSummary(h entities.HeuristicAssessment) string {
	if len(h.MatchedKeywords) == 0 {
		return "none"
	}
	return strings.Join(h.MatchedKeywords, ", ")
}
