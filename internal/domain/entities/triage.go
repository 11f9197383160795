package entities

import (
	"fmt"
	"strings"

	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

// UrgencyLevel is an ordinal classification, 1 being the most urgent.
type UrgencyLevel int

const (
	UrgencyEmergency  UrgencyLevel = 1 // immediate attention
	UrgencyUrgent     UrgencyLevel = 2 // same day
	UrgencySemiUrgent UrgencyLevel = 3 // within 24-48 hours
	UrgencyRoutine    UrgencyLevel = 4 // within a week
	UrgencyPreventive UrgencyLevel = 5 // scheduled preventive care
)

// IsValid checks the level is within 1..5.
func (u UrgencyLevel) IsValid() bool {
	return u >= UrgencyEmergency && u <= UrgencyPreventive
}

// MoreUrgentThan reports whether u demands faster care than other.
func (u UrgencyLevel) MoreUrgentThan(other UrgencyLevel) bool {
	return u < other
}

// CareType is the setting of care recommended for the patient.
type CareType string

const (
	CareTypeEmergency CareType = "emergency"
	CareTypeUrgent    CareType = "urgent"
	CareTypeRoutine   CareType = "routine"
)

// IsValid checks if the care type is one of the defined constants.
func (c CareType) IsValid() bool {
	switch c {
	case CareTypeEmergency, CareTypeUrgent, CareTypeRoutine:
		return true
	}
	return false
}

// TriageSource records which path produced the final triage decision.
type TriageSource string

const (
	SourceReasoningEngine   TriageSource = "reasoning-engine"
	SourceHeuristicFallback TriageSource = "heuristic-fallback"
)

// TriageResult is the urgency classification for a case.
type TriageResult struct {
	UrgencyLevel  UrgencyLevel `json:"urgency_level"`
	Specialty     string       `json:"specialty"`
	CareType      CareType     `json:"care_type"`
	RedFlags      []string     `json:"red_flags"`
	Confidence    float64      `json:"confidence"`
	Source        TriageSource `json:"source"`
	Reasoning     string       `json:"reasoning,omitempty"`
	ReviewReasons []string     `json:"review_reasons,omitempty"`
}

// Validate checks field ranges and required fields.
func (t *TriageResult) Validate() error {
	if t == nil {
		return apperrors.NewSchemaViolation("triage result is missing")
	}
	if !t.UrgencyLevel.IsValid() {
		return apperrors.NewSchemaViolation(fmt.Sprintf("urgency_level %d outside 1..5", t.UrgencyLevel))
	}
	if strings.TrimSpace(t.Specialty) == "" {
		return apperrors.NewSchemaViolation("specialty is required")
	}
	if !t.CareType.IsValid() {
		return apperrors.NewSchemaViolation(fmt.Sprintf("care_type %q is not one of emergency, urgent, routine", t.CareType))
	}
	return validateConfidence(t.Confidence)
}

// Clone returns a deep copy.
func (t *TriageResult) Clone() *TriageResult {
	if t == nil {
		return nil
	}
	c := *t
	c.RedFlags = append([]string(nil), t.RedFlags...)
	c.ReviewReasons = append([]string(nil), t.ReviewReasons...)
	return &c
}

// HeuristicAssessment is the keyword engine's view of a case.
type HeuristicAssessment struct {
	UrgencyLevel    UrgencyLevel `json:"urgency_level"`
	CareType        CareType     `json:"care_type"`
	Specialty       string       `json:"specialty"`
	RedFlags        []string     `json:"red_flags"`
	MatchedKeywords []string     `json:"matched_keywords"`
	Confidence      float64      `json:"confidence"`
	Matched         bool         `json:"matched"`
}
