package evaluation

import "fmt"

// GuardrailConfig sets the release bar for a triage configuration.
type GuardrailConfig struct {
	MaxUnderTriageRate   float64
	MinRedFlagRecall     float64
	MinSpecialtyAccuracy float64
}

// DefaultGuardrails returns the bar used by cmd/evaluate.
func DefaultGuardrails() GuardrailConfig {
	return GuardrailConfig{
		MaxUnderTriageRate:   0.10,
		MinRedFlagRecall:     0.90,
		MinSpecialtyAccuracy: 0.70,
	}
}

type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	return &Guardrails{config: config}
}

// Check returns one message per violated guardrail.
func (g *Guardrails) Check(s *EvalSummary) []string {
	var violations []string
	if s.UnderTriageRate > g.config.MaxUnderTriageRate {
		violations = append(violations, fmt.Sprintf("under-triage rate %.2f exceeds %.2f", s.UnderTriageRate, g.config.MaxUnderTriageRate))
	}
	if s.RedFlagRecall < g.config.MinRedFlagRecall {
		violations = append(violations, fmt.Sprintf("red-flag recall %.2f below %.2f", s.RedFlagRecall, g.config.MinRedFlagRecall))
	}
	if s.SpecialtyAccuracy < g.config.MinSpecialtyAccuracy {
		violations = append(violations, fmt.Sprintf("specialty accuracy %.2f below %.2f", s.SpecialtyAccuracy, g.config.MinSpecialtyAccuracy))
	}
	return violations
}
