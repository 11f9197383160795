package evaluation

import (
	"time"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// Category groups golden cases by the kind of care they call for.
type Category string

const (
	CategoryEmergency  Category = "emergency"
	CategoryUrgent     Category = "urgent"
	CategoryRoutine    Category = "routine"
	CategoryPreventive Category = "preventive"
)

// IsValid checks if the category value is one of the defined constants.
func (c Category) IsValid() bool {
	switch c {
	case CategoryEmergency, CategoryUrgent, CategoryRoutine, CategoryPreventive:
		return true
	}
	return false
}

// GoldenCase is a labeled patient message with the triage a clinician expects.
type GoldenCase struct {
	ID                string                `json:"id"`
	Input             string                `json:"input"`
	Category          Category              `json:"category"`
	ExpectedUrgency   entities.UrgencyLevel `json:"expected_urgency"`
	ExpectedSpecialty string                `json:"expected_specialty"`
	ExpectRedFlag     bool                  `json:"expect_red_flag"`
	Difficulty        string                `json:"difficulty"` // easy, medium, hard
}

// EvalResult holds the evaluation outcome for a single case.
type EvalResult struct {
	CaseID          string
	GoldenID        string
	Category        Category
	Status          entities.CaseStatus
	Expected        entities.UrgencyLevel
	Predicted       entities.UrgencyLevel
	SpecialtyMatch  bool
	ExpectRedFlag   bool
	RedFlagDetected bool
	ReviewFlagged   bool
	Cost            float64
	Latency         time.Duration
}

// UnderTriaged reports whether the predicted level is less urgent than expected.
// A case without a triage result counts as under-triaged.
func (r EvalResult) UnderTriaged() bool {
	return r.Predicted == 0 || r.Predicted > r.Expected
}

// OverTriaged reports whether the predicted level is more urgent than expected.
func (r EvalResult) OverTriaged() bool {
	return r.Predicted != 0 && r.Predicted < r.Expected
}

// EvalSummary holds aggregate metrics across all golden cases.
type EvalSummary struct {
	TotalCases        int
	FailedCases       int
	UrgencyAccuracy   float64
	UnderTriageRate   float64
	OverTriageRate    float64
	SpecialtyAccuracy float64
	RedFlagRecall     float64
	ReviewRate        float64
	TotalCost         float64
	AvgLatency        time.Duration
	ByCategory        map[Category]*CategorySummary
	Results           []EvalResult `json:"-"`
}

// CategorySummary holds metrics grouped by category.
type CategorySummary struct {
	Count           int
	UrgencyAccuracy float64
	UnderTriageRate float64
}
