package entities

import (
	"math"
	"time"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageIntake  StageName = "intake"
	StageTriage  StageName = "triage"
	StageRouting StageName = "routing"
)

// CaseStatus is the overall outcome of a case.
type CaseStatus string

const (
	CaseStatusCompleted CaseStatus = "completed"
	CaseStatusPartial   CaseStatus = "partial"
	CaseStatusFailed    CaseStatus = "failed"
)

// CaseState is the orchestrator's position in the pipeline.
type CaseState string

const (
	CaseStateStarted     CaseState = "started"
	CaseStateIntakeDone  CaseState = "intake_done"
	CaseStateTriageDone  CaseState = "triage_done"
	CaseStateRoutingDone CaseState = "routing_done"
	CaseStateGated       CaseState = "gated"
	CaseStateFinalized   CaseState = "finalized"
	CaseStateFailed      CaseState = "failed"
)

// StageEvent is one audit-trail entry.
type StageEvent struct {
	Stage         StageName `json:"stage"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
	DurationMs    float64   `json:"duration_ms"`
	Success       bool      `json:"success"`
	Confidence    float64   `json:"confidence"`
	FallbackUsed  bool      `json:"fallback_used"`
	Attempts      int       `json:"attempts"`
	EstimatedCost float64   `json:"estimated_cost"`
	Error         string    `json:"error,omitempty"`
}

// CaseRecord is the aggregate built across the pipeline. Methods return updated
// copies so each orchestrator step hands the next one a fresh snapshot.
type CaseRecord struct {
	CaseID              string
	PatientInput        string
	Patient             *PatientRecord
	Triage              *TriageResult
	Match               *ProviderMatch
	State               CaseState
	Status              CaseStatus
	StartedAt           time.Time
	FinishedAt          time.Time
	EstimatedCost       float64
	RequiresHumanReview bool
	ReviewReasons       []string
	AuditTrail          []StageEvent
}

// NewCaseRecord starts a case in the started state.
func NewCaseRecord(caseID, input string, startedAt time.Time) CaseRecord {
	return CaseRecord{
		CaseID:       caseID,
		PatientInput: input,
		State:        CaseStateStarted,
		StartedAt:    startedAt,
	}
}

// Clone returns a deep copy.
func (c CaseRecord) Clone() CaseRecord {
	out := c
	out.Patient = c.Patient.Clone()
	out.Triage = c.Triage.Clone()
	out.Match = c.Match.Clone()
	out.ReviewReasons = append([]string(nil), c.ReviewReasons...)
	out.AuditTrail = append([]StageEvent(nil), c.AuditTrail...)
	return out
}

// WithEvent appends an audit entry and adds its cost to the running total.
func (c CaseRecord) WithEvent(e StageEvent) CaseRecord {
	out := c.Clone()
	out.AuditTrail = append(out.AuditTrail, e)
	out.EstimatedCost = RoundUpMicroUSD(out.EstimatedCost + e.EstimatedCost)
	return out
}

// RoundUpMicroUSD rounds a USD amount up to the nearest micro-dollar.
// Sums already on a micro-dollar boundary are left unchanged despite float noise.
func RoundUpMicroUSD(usd float64) float64 {
	if usd <= 0 {
		return 0
	}
	return math.Ceil(usd*1e6-1e-6) / 1e6
}

// FlagForReview marks the case for human review. The flag never clears and
// reasons are only appended, skipping duplicates.
func (c CaseRecord) FlagForReview(reasons ...string) CaseRecord {
	if len(reasons) == 0 {
		return c
	}
	out := c.Clone()
	out.RequiresHumanReview = true
	for _, r := range reasons {
		if r == "" || containsString(out.ReviewReasons, r) {
			continue
		}
		out.ReviewReasons = append(out.ReviewReasons, r)
	}
	return out
}

// FallbackStages lists stages whose audit entry records a fallback.
func (c CaseRecord) FallbackStages() []StageName {
	var stages []StageName
	for _, e := range c.AuditTrail {
		if e.FallbackUsed {
			stages = append(stages, e.Stage)
		}
	}
	return stages
}

// Duration is the wall-clock span of the case.
func (c CaseRecord) Duration() time.Duration {
	if c.FinishedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}

// Outcome projects the record onto the egress contract.
func (c CaseRecord) Outcome() CaseOutcome {
	out := CaseOutcome{
		CaseID:              c.CaseID,
		Status:              c.Status,
		Duration:            float64(c.Duration().Microseconds()) / 1000,
		EstimatedCost:       c.EstimatedCost,
		RequiresHumanReview: c.RequiresHumanReview,
		Reasons:             append([]string{}, c.ReviewReasons...),
		AuditTrail:          append([]StageEvent{}, c.AuditTrail...),
		CreatedAt:           c.StartedAt,
	}
	if c.Triage != nil {
		out.UrgencyLevel = c.Triage.UrgencyLevel
		out.Specialty = c.Triage.Specialty
		out.CareType = c.Triage.CareType
		out.RedFlags = append([]string{}, c.Triage.RedFlags...)
		out.TriageSource = c.Triage.Source
	}
	if c.Match != nil {
		out.RecommendedProvider = c.Match.Clone()
	}
	return out
}

// CaseOutcome is the egress contract other systems depend on. Field names are stable.
type CaseOutcome struct {
	CaseID              string         `json:"case_id"`
	Status              CaseStatus     `json:"status"`
	Duration            float64        `json:"duration"` // milliseconds
	EstimatedCost       float64        `json:"estimated_cost"`
	UrgencyLevel        UrgencyLevel   `json:"urgency_level,omitempty"`
	Specialty           string         `json:"specialty,omitempty"`
	CareType            CareType       `json:"care_type,omitempty"`
	RecommendedProvider *ProviderMatch `json:"recommended_provider,omitempty"`
	RequiresHumanReview bool           `json:"requires_human_review"`
	Reasons             []string       `json:"reasons"`
	AuditTrail          []StageEvent   `json:"audit_trail"`
	RedFlags            []string       `json:"red_flags,omitempty"`
	TriageSource        TriageSource   `json:"triage_source,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
