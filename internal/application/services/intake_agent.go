package services

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

var (
	namePattern = regexp.MustCompile(`(?:\b[Mm]y name is|\bI'm|\bI am|\bi'm)\s+([A-Z][a-zA-Z'-]+(?:\s+[A-Z][a-zA-Z'-]+)?)`)
	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d{1,3})\s*-?\s*(?:years?|yrs?)\s*-?\s*old\b`),
		regexp.MustCompile(`(?i)\baged?\s*:?\s*(\d{1,3})\b`),
		regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:yo|y/o)\b`),
	}
	durationPattern = regexp.MustCompile(`(?i)\bfor\s+((?:about\s+|almost\s+|over\s+|the\s+(?:last|past)\s+)?(?:\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten|a few|several)\s+(?:minutes?|hours?|days?|weeks?|months?|years?))\b`)
)

// IntakeAgent turns the patient's free text into a PatientRecord.
type IntakeAgent struct {
	gateway *ReasoningGateway
	cfg     config.TriageConfig
}

// NewIntakeAgent creates a new intake agent
func NewIntakeAgent(gateway *ReasoningGateway, cfg config.TriageConfig) *IntakeAgent {
	return &IntakeAgent{gateway: gateway, cfg: cfg}
}

type intakePayload struct {
	Name           *string  `json:"name"`
	Age            *float64 `json:"age"`
	ChiefComplaint string   `json:"chief_complaint"`
	Duration       *string  `json:"duration"`
	Symptoms       []string `json:"symptoms"`
	Confidence     float64  `json:"confidence"`
}

// Run extracts a patient record, falling back to pattern extraction when the engine
// output is unusable. Only empty input is unrecoverable.
func (a *IntakeAgent) Run(ctx context.Context, input string) (*entities.PatientRecord, StageReport, error) {
	var report StageReport
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageIntake), "patient input is empty", nil)
	}

	var record *entities.PatientRecord
	prompt := buildIntakePrompt(input)
	err := invokeWithRetry(ctx, entities.StageIntake, a.cfg.IntakeMaxAttempts, &report, func() (Invocation, error) {
		var payload intakePayload
		inv, err := a.gateway.Invoke(ctx, prompt, entities.PatientRecordSchema, &payload)
		if err != nil {
			return inv, err
		}
		record, err = payload.toRecord()
		if err != nil {
			return inv, schemaViolation(inv.Raw, err)
		}
		return inv, nil
	})
	if err == nil {
		return record, report, nil
	}

	report.Err = err
	if !a.cfg.FallbackEnabled {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageIntake), "no usable patient record and fallback disabled", err)
	}

	observability.LoggerFromContext(ctx).Warn().
		Err(err).
		Str("stage", string(entities.StageIntake)).
		Int("input_length", len(input)).
		Msg("intake falling back to pattern extraction")

	record, ferr := ExtractPatientRecord(input)
	if ferr != nil {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageIntake), "fallback extraction failed", ferr)
	}
	report.FallbackUsed = true
	return record, report, nil
}

func (p intakePayload) toRecord() (*entities.PatientRecord, error) {
	var age *int
	if p.Age != nil {
		v := int(math.Round(*p.Age))
		age = &v
	}
	return entities.NewPatientRecord(deref(p.Name), age, p.ChiefComplaint, deref(p.Duration), p.Symptoms, p.Confidence)
}

// ExtractPatientRecord builds a minimal low-confidence record from raw text using
// simple patterns for name, age and duration. The complaint is the input itself.
func ExtractPatientRecord(input string) (*entities.PatientRecord, error) {
	text := normalizeApostrophes(strings.TrimSpace(input))

	var name string
	if m := namePattern.FindStringSubmatch(text); m != nil {
		name = m[1]
	}

	var age *int
	for _, p := range agePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v >= 1 && v <= entities.MaxPatientAge {
			age = &v
			break
		}
	}

	var duration string
	if m := durationPattern.FindStringSubmatch(text); m != nil {
		duration = strings.Join(strings.Fields(m[1]), " ")
	}

	record, err := entities.NewPatientRecord(name, age, text, duration, nil, fallbackConfidence)
	if err != nil {
		return nil, err
	}
	record.FallbackUsed = true
	return record, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
