package services

import (
	"fmt"
	"strings"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/pkg/config"
)

// ReviewGate decides whether a clinician must look at a case before it is acted on.
type ReviewGate struct {
	urgencyThreshold    entities.UrgencyLevel
	confidenceThreshold float64
}

// NewReviewGate creates a gate from the triage thresholds.
func NewReviewGate(cfg config.TriageConfig) *ReviewGate {
	return &ReviewGate{
		urgencyThreshold:    entities.UrgencyLevel(cfg.HumanReviewUrgencyThreshold),
		confidenceThreshold: cfg.ConfidenceThreshold,
	}
}

// Evaluate returns the review reasons that apply to the case, in a fixed order.
// An empty result means no review is required by the gate.
func (g *ReviewGate) Evaluate(c entities.CaseRecord) []string {
	var reasons []string

	if c.Triage == nil {
		reasons = append(reasons, "triage result unavailable")
	} else {
		if c.Triage.UrgencyLevel <= g.urgencyThreshold {
			reasons = append(reasons, fmt.Sprintf("high urgency level: %d", c.Triage.UrgencyLevel))
		}
		if len(c.Triage.RedFlags) > 0 {
			reasons = append(reasons, "red flags detected: "+strings.Join(c.Triage.RedFlags, ", "))
		}
	}

	if c.Patient != nil && c.Patient.Confidence < g.confidenceThreshold {
		reasons = append(reasons, fmt.Sprintf("low intake confidence: %.2f", c.Patient.Confidence))
	}
	if c.Triage != nil && c.Triage.Confidence < g.confidenceThreshold {
		reasons = append(reasons, fmt.Sprintf("low triage confidence: %.2f", c.Triage.Confidence))
	}
	if c.Match != nil && c.Match.Confidence < g.confidenceThreshold {
		reasons = append(reasons, fmt.Sprintf("low routing confidence: %.2f", c.Match.Confidence))
	}

	if stages := c.FallbackStages(); len(stages) > 0 {
		names := make([]string, len(stages))
		for i, s := range stages {
			names[i] = string(s)
		}
		reasons = append(reasons, "fallback used: "+strings.Join(names, ", "))
	}

	return reasons
}
