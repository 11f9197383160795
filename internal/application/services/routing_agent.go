package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
	apperrors "github.com/zatekoja/caretriage/pkg/errors"
)

// RoutingAgent matches a triaged case to a provider from the directory.
type RoutingAgent struct {
	gateway   *ReasoningGateway
	directory providers.ProviderDirectory
	cfg       config.TriageConfig
}

// NewRoutingAgent creates a new routing agent
func NewRoutingAgent(gateway *ReasoningGateway, directory providers.ProviderDirectory, cfg config.TriageConfig) *RoutingAgent {
	return &RoutingAgent{gateway: gateway, directory: directory, cfg: cfg}
}

type routingPayload struct {
	ProviderID string  `json:"provider_id"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// Run selects a provider for the triage result.
func (a *RoutingAgent) Run(ctx context.Context, triage *entities.TriageResult) (*entities.ProviderMatch, StageReport, error) {
	var report StageReport
	if triage == nil {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageRouting), "triage result is missing", nil)
	}
	if a.directory == nil {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageRouting), "provider directory is not configured", nil)
	}
	all := a.directory.All()
	if len(all) == 0 {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageRouting), "provider directory is empty", nil)
	}

	var match *entities.ProviderMatch
	prompt := buildRoutingPrompt(triage, all)
	err := invokeWithRetry(ctx, entities.StageRouting, a.cfg.RoutingMaxAttempts, &report, func() (Invocation, error) {
		var payload routingPayload
		inv, err := a.gateway.Invoke(ctx, prompt, entities.ProviderMatchSchema, &payload)
		if err != nil {
			return inv, err
		}
		provider, ok := findProvider(all, payload.ProviderID)
		if !ok {
			return inv, schemaViolation(inv.Raw, apperrors.NewSchemaViolation(fmt.Sprintf("provider_id %q is not in the directory", payload.ProviderID)))
		}
		candidate := &entities.ProviderMatch{
			ProviderID:            provider.ID,
			Name:                  provider.Name,
			Specialty:             provider.Specialty,
			EstimatedAvailability: provider.Availability,
			Rationale:             strings.TrimSpace(payload.Rationale),
			Confidence:            payload.Confidence,
		}
		if err := candidate.Validate(); err != nil {
			return inv, schemaViolation(inv.Raw, err)
		}
		match = candidate
		return inv, nil
	})
	if err == nil {
		return match, report, nil
	}

	report.Err = err
	if !a.cfg.FallbackEnabled {
		return nil, report, apperrors.NewUnrecoverableStageFailure(string(entities.StageRouting), "no usable provider match and fallback disabled", err)
	}

	observability.LoggerFromContext(ctx).Warn().
		Err(err).
		Str("stage", string(entities.StageRouting)).
		Str("specialty", triage.Specialty).
		Msg("routing falling back to directory lookup")

	report.FallbackUsed = true
	return a.fallbackMatch(triage.Specialty, all), report, nil
}

// fallbackMatch picks the first provider of the requested specialty, then the designated
// default, then the first generalist, then the first entry.
func (a *RoutingAgent) fallbackMatch(specialty string, all []entities.Provider) *entities.ProviderMatch {
	var (
		chosen entities.Provider
		why    string
	)
	if matches := a.directory.BySpecialty(specialty); len(matches) > 0 {
		chosen = matches[0]
		why = fmt.Sprintf("first %s provider in directory", specialty)
	} else if def, ok := a.directory.Default(); ok {
		chosen = def
		why = fmt.Sprintf("no %s provider listed, routed to default provider", specialty)
	} else if gps := a.directory.BySpecialty(entities.GeneralPracticeSpecialty); len(gps) > 0 {
		chosen = gps[0]
		why = fmt.Sprintf("no %s provider listed, routed to general practice", specialty)
	} else {
		chosen = all[0]
		why = fmt.Sprintf("no %s provider or default listed, routed to first directory entry", specialty)
	}

	return &entities.ProviderMatch{
		ProviderID:            chosen.ID,
		Name:                  chosen.Name,
		Specialty:             chosen.Specialty,
		EstimatedAvailability: chosen.Availability,
		Rationale:             "automated matching failed; " + why,
		Confidence:            fallbackConfidence,
		FallbackUsed:          true,
	}
}

func findProvider(all []entities.Provider, id string) (entities.Provider, bool) {
	id = strings.TrimSpace(id)
	for _, p := range all {
		if p.ID == id {
			return p, true
		}
	}
	return entities.Provider{}, false
}
