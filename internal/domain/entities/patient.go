package entities

import (
	"fmt"
	"strings"

	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

// MaxPatientAge bounds extracted ages; anything above is treated as an extraction error.
const MaxPatientAge = 150

// PatientRecord is the structured view of a patient's free-text description.
type PatientRecord struct {
	Name           string   `json:"name,omitempty"`
	Age            *int     `json:"age,omitempty"`
	ChiefComplaint string   `json:"chief_complaint"`
	Duration       string   `json:"duration,omitempty"`
	Symptoms       []string `json:"symptoms"`
	Confidence     float64  `json:"confidence"`
	FallbackUsed   bool     `json:"fallback_used"`
}

// NewPatientRecord builds a validated record. Symptoms are normalised before validation.
func NewPatientRecord(name string, age *int, complaint, duration string, symptoms []string, confidence float64) (*PatientRecord, error) {
	p := &PatientRecord{
		Name:           strings.TrimSpace(name),
		Age:            age,
		ChiefComplaint: strings.TrimSpace(complaint),
		Duration:       strings.TrimSpace(duration),
		Symptoms:       NormalizeTerms(symptoms),
		Confidence:     confidence,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks field ranges and required fields.
func (p *PatientRecord) Validate() error {
	if p == nil {
		return apperrors.NewSchemaViolation("patient record is missing")
	}
	if strings.TrimSpace(p.ChiefComplaint) == "" {
		return apperrors.NewSchemaViolation("chief_complaint is required")
	}
	if p.Age != nil && (*p.Age < 1 || *p.Age > MaxPatientAge) {
		return apperrors.NewSchemaViolation(fmt.Sprintf("age %d outside 1..%d", *p.Age, MaxPatientAge))
	}
	if err := validateConfidence(p.Confidence); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy.
func (p *PatientRecord) Clone() *PatientRecord {
	if p == nil {
		return nil
	}
	c := *p
	if p.Age != nil {
		age := *p.Age
		c.Age = &age
	}
	c.Symptoms = append([]string(nil), p.Symptoms...)
	return &c
}

// NormalizeTerms lowercases, trims and de-duplicates terms, keeping first-seen order.
func NormalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.Join(strings.Fields(t), " "))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func validateConfidence(c float64) error {
	if c < 0 || c > 1 {
		return apperrors.NewSchemaViolation(fmt.Sprintf("confidence %.2f outside 0..1", c))
	}
	return nil
}
