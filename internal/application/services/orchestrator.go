package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"github.com/zatekoja/caretriage/internal/domain/providers"
	"github.com/zatekoja/caretriage/internal/infrastructure/observability"
	"github.com/zatekoja/caretriage/pkg/config"
	"go.opentelemetry.io/otel/attribute"
)

// Failure reasons recorded on failed cases.
const (
	ReasonCaseIDGenerationFailed = "case-id-generation-failed"
	ReasonMissingCollaborator    = "missing-collaborator"
	ReasonInternalError          = "internal-error"
)

type pipelineStep struct {
	stage entities.StageName
	run   func(ctx context.Context, c entities.CaseRecord) (entities.CaseRecord, error)
}

// Orchestrator drives a case through intake, triage, routing and the review gate.
// It holds no per-case state and can process cases concurrently.
type Orchestrator struct {
	ids     providers.CaseIDGenerator
	intake  *IntakeAgent
	triage  *TriageAgent
	routing *RoutingAgent
	gate    *ReviewGate
	missing string
	now     func() time.Time
}

// NewOrchestrator wires the stage agents. A nil id generator falls back to random UUIDs;
// a nil engine or directory makes every case fail with a missing-collaborator reason.
func NewOrchestrator(cfg config.TriageConfig, engine providers.ReasoningEngine, directory providers.ProviderDirectory, ids providers.CaseIDGenerator) *Orchestrator {
	o := &Orchestrator{
		ids:  ids,
		gate: NewReviewGate(cfg),
		now:  time.Now,
	}
	if o.ids == nil {
		o.ids = UUIDCaseIDGenerator{}
	}

	switch {
	case engine == nil:
		o.missing = "reasoning engine"
	case directory == nil:
		o.missing = "provider directory"
	default:
		gateway := NewReasoningGateway(engine, cfg)
		o.intake = NewIntakeAgent(gateway, cfg)
		o.triage = NewTriageAgent(gateway, NewHeuristicEngine(), cfg)
		o.routing = NewRoutingAgent(gateway, directory, cfg)
	}
	return o
}

// Process runs the pipeline and returns the egress view of the case.
func (o *Orchestrator) Process(ctx context.Context, input string) entities.CaseOutcome {
	return o.Run(ctx, input).Outcome()
}

// Run runs the pipeline and returns the final case record. It never panics and never
// returns an unfinished record; the caller's cancellation does not interrupt a case.
func (o *Orchestrator) Run(ctx context.Context, input string) (record entities.CaseRecord) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := observability.StartSpan(ctx, "orchestrator.Process")
	defer span.End()

	start := o.now()
	caseID, err := o.ids.NewCaseID()
	if err != nil || caseID == "" {
		record = entities.NewCaseRecord(builtinCaseID(start), input, start)
		ctx = observability.WithCaseID(ctx, record.CaseID)
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("case id generation failed")
		return o.fail(ctx, record, ReasonCaseIDGenerationFailed)
	}

	record = entities.NewCaseRecord(caseID, input, start)
	ctx = observability.WithCaseID(ctx, caseID)
	span.SetAttributes(attribute.String("case.id", caseID))

	defer func() {
		if r := recover(); r != nil {
			observability.LoggerFromContext(ctx).Error().
				Interface("panic", r).
				Str("state", string(record.State)).
				Msg("pipeline panicked")
			record = o.fail(ctx, record, ReasonInternalError)
		}
	}()

	if o.missing != "" {
		return o.fail(ctx, record, ReasonMissingCollaborator+": "+o.missing)
	}

	observability.LoggerFromContext(ctx).Info().
		Int("input_length", len(input)).
		Msg("case started")

	steps := []pipelineStep{
		{stage: entities.StageIntake, run: o.intakeStep},
		{stage: entities.StageTriage, run: o.triageStep},
		{stage: entities.StageRouting, run: o.routingStep},
	}
	for _, step := range steps {
		next, err := o.runStep(ctx, step, record)
		record = next
		var panicked stagePanic
		if errors.As(err, &panicked) {
			observability.RecordError(span, err)
			observability.LoggerFromContext(ctx).Error().
				Interface("panic", panicked.value).
				Str("stage", string(step.stage)).
				Msg("stage panicked")
			return o.fail(ctx, record, ReasonInternalError)
		}
		if err != nil {
			observability.RecordError(span, err)
			observability.LoggerFromContext(ctx).Error().
				Err(err).
				Str("stage", string(step.stage)).
				Msg("stage unrecoverable")
			return o.fail(ctx, record, fmt.Sprintf("%s-unrecoverable", step.stage))
		}
	}

	record = o.gateStep(record)
	return o.finalize(ctx, record)
}

// stagePanic is returned by runStep when a stage panicked.
type stagePanic struct {
	value any
}

func (p stagePanic) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}

// runStep runs one stage, turning a panic into a failed audit entry for that stage.
func (o *Orchestrator) runStep(ctx context.Context, step pipelineStep, c entities.CaseRecord) (next entities.CaseRecord, err error) {
	started := o.now()
	defer func() {
		if r := recover(); r != nil {
			perr := stagePanic{value: r}
			next = c.WithEvent(o.stageEvent(ctx, step.stage, started, StageReport{}, perr, 0))
			err = perr
		}
	}()
	return step.run(ctx, c)
}

func (o *Orchestrator) intakeStep(ctx context.Context, c entities.CaseRecord) (entities.CaseRecord, error) {
	ctx, span := observability.StartSpan(ctx, "stage.intake")
	defer span.End()

	started := o.now()
	patient, report, err := o.intake.Run(ctx, c.PatientInput)
	confidence := 0.0
	if patient != nil {
		confidence = patient.Confidence
	}
	c = c.WithEvent(o.stageEvent(ctx, entities.StageIntake, started, report, err, confidence))
	if err != nil {
		return c, err
	}
	c.Patient = patient
	c.State = entities.CaseStateIntakeDone
	return c, nil
}

func (o *Orchestrator) triageStep(ctx context.Context, c entities.CaseRecord) (entities.CaseRecord, error) {
	ctx, span := observability.StartSpan(ctx, "stage.triage")
	defer span.End()

	started := o.now()
	result, report, err := o.triage.Run(ctx, c.PatientInput, c.Patient)
	confidence := 0.0
	if result != nil {
		confidence = result.Confidence
	}
	c = c.WithEvent(o.stageEvent(ctx, entities.StageTriage, started, report, err, confidence))
	if err != nil {
		return c, err
	}
	c.Triage = result
	c = c.FlagForReview(result.ReviewReasons...)
	c.State = entities.CaseStateTriageDone
	return c, nil
}

func (o *Orchestrator) routingStep(ctx context.Context, c entities.CaseRecord) (entities.CaseRecord, error) {
	ctx, span := observability.StartSpan(ctx, "stage.routing")
	defer span.End()

	started := o.now()
	match, report, err := o.routing.Run(ctx, c.Triage)
	confidence := 0.0
	if match != nil {
		confidence = match.Confidence
	}
	c = c.WithEvent(o.stageEvent(ctx, entities.StageRouting, started, report, err, confidence))
	if err != nil {
		return c, err
	}
	c.Match = match
	c.State = entities.CaseStateRoutingDone
	return c, nil
}

func (o *Orchestrator) gateStep(c entities.CaseRecord) entities.CaseRecord {
	c = c.FlagForReview(o.gate.Evaluate(c)...)
	c.State = entities.CaseStateGated
	return c
}

func (o *Orchestrator) finalize(ctx context.Context, c entities.CaseRecord) entities.CaseRecord {
	c.FinishedAt = o.now()
	c.State = entities.CaseStateFinalized
	c.Status = entities.CaseStatusCompleted
	if len(c.FallbackStages()) > 0 {
		c.Status = entities.CaseStatusPartial
	}

	outcome := c.Outcome()
	recordCase(ctx, outcome)
	observability.LoggerFromContext(ctx).Info().
		Str("status", string(c.Status)).
		Int("urgency_level", int(outcome.UrgencyLevel)).
		Bool("requires_human_review", c.RequiresHumanReview).
		Float64("estimated_cost", c.EstimatedCost).
		Dur("duration", c.Duration()).
		Msg("case finalized")
	return c
}

func (o *Orchestrator) fail(ctx context.Context, c entities.CaseRecord, reason string) entities.CaseRecord {
	c = c.FlagForReview(reason)
	c.FinishedAt = o.now()
	c.State = entities.CaseStateFailed
	c.Status = entities.CaseStatusFailed

	recordCase(ctx, c.Outcome())
	observability.LoggerFromContext(ctx).Warn().
		Str("reason", reason).
		Dur("duration", c.Duration()).
		Msg("case failed")
	return c
}

func (o *Orchestrator) stageEvent(ctx context.Context, stage entities.StageName, started time.Time, report StageReport, err error, confidence float64) entities.StageEvent {
	ended := o.now()
	event := entities.StageEvent{
		Stage:         stage,
		StartedAt:     started,
		EndedAt:       ended,
		DurationMs:    float64(ended.Sub(started).Microseconds()) / 1000,
		Success:       err == nil,
		Confidence:    confidence,
		FallbackUsed:  report.FallbackUsed,
		Attempts:      report.Attempts,
		EstimatedCost: report.Cost,
	}
	switch {
	case err != nil:
		event.Error = err.Error()
	case report.Err != nil:
		event.Error = report.Err.Error()
	}

	recordStage(ctx, event)
	observability.LoggerFromContext(ctx).Info().
		Str("stage", string(stage)).
		Bool("success", event.Success).
		Bool("fallback_used", event.FallbackUsed).
		Int("attempts", event.Attempts).
		Float64("duration_ms", event.DurationMs).
		Msg("stage finished")
	return event
}

func builtinCaseID(at time.Time) string {
	if id, err := (UUIDCaseIDGenerator{}).NewCaseID(); err == nil {
		return id
	}
	return fmt.Sprintf("CASE-%08X", uint32(at.UnixNano()))
}
