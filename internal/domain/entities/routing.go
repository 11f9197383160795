package entities

import (
	"encoding/json"
	"strings"
	"time"

	apperrors "github.com/zatekoja/caretriage/pkg/errors"
	"gopkg.in/yaml.v3"
)

// GeneralPracticeSpecialty is the specialty used when nothing more specific applies.
const GeneralPracticeSpecialty = "general_practice"

// Provider is an entry of the provider directory.
type Provider struct {
	ID                   string   `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	Specialty            string   `json:"specialty" yaml:"specialty"`
	Availability         Duration `json:"availability" yaml:"availability"`
	Location             string   `json:"location,omitempty" yaml:"location"`
	Languages            []string `json:"languages,omitempty" yaml:"languages"`
	AcceptingNewPatients bool     `json:"accepting_new_patients" yaml:"accepting_new_patients"`
	Default              bool     `json:"default,omitempty" yaml:"default"`
}

// ProviderMatch is the routing decision for a case.
type ProviderMatch struct {
	ProviderID            string   `json:"provider_id"`
	Name                  string   `json:"name"`
	Specialty             string   `json:"specialty"`
	EstimatedAvailability Duration `json:"estimated_availability"`
	Rationale             string   `json:"rationale"`
	Confidence            float64  `json:"confidence"`
	FallbackUsed          bool     `json:"fallback_used"`
}

// Validate checks required fields.
func (m *ProviderMatch) Validate() error {
	if m == nil {
		return apperrors.NewSchemaViolation("provider match is missing")
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return apperrors.NewSchemaViolation("provider_id is required")
	}
	if strings.TrimSpace(m.Rationale) == "" {
		return apperrors.NewSchemaViolation("rationale is required")
	}
	return validateConfidence(m.Confidence)
}

// Clone returns a copy.
func (m *ProviderMatch) Clone() *ProviderMatch {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Duration is a time.Duration that reads and writes human duration strings ("2h30m").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(data, &secs); err != nil {
		return apperrors.NewSchemaViolation("duration must be a string or number of seconds")
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return apperrors.NewSchemaViolation("invalid duration " + s)
	}
	*d = Duration(parsed)
	return nil
}
