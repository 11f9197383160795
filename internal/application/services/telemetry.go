package services

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/caretriage/internal/domain/entities"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type pipelineInstruments struct {
	gatewayCalls    metric.Int64Counter
	gatewayFailures metric.Int64Counter
	gatewayDuration metric.Float64Histogram
	stageDuration   metric.Float64Histogram
	stageFallbacks  metric.Int64Counter
	caseCount       metric.Int64Counter
	caseReviews     metric.Int64Counter
	caseCost        metric.Float64Histogram
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *pipelineInstruments
)

func initPipelineMetrics() {
	meter := otel.Meter("github.com/zatekoja/caretriage/pipeline")

	gatewayCalls, err := meter.Int64Counter("triage.gateway.call.count",
		metric.WithDescription("Reasoning gateway invocations"))
	if err != nil {
		return
	}
	gatewayFailures, err := meter.Int64Counter("triage.gateway.failure.count",
		metric.WithDescription("Reasoning gateway parse failures by reason"))
	if err != nil {
		return
	}
	gatewayDuration, err := meter.Float64Histogram("triage.gateway.duration",
		metric.WithDescription("Reasoning gateway call duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return
	}
	stageDuration, err := meter.Float64Histogram("triage.stage.duration",
		metric.WithDescription("Pipeline stage duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return
	}
	stageFallbacks, err := meter.Int64Counter("triage.stage.fallback.count",
		metric.WithDescription("Stages completed through a fallback path"))
	if err != nil {
		return
	}
	caseCount, err := meter.Int64Counter("triage.case.count",
		metric.WithDescription("Finalized cases by status"))
	if err != nil {
		return
	}
	caseReviews, err := meter.Int64Counter("triage.case.review.count",
		metric.WithDescription("Cases flagged for human review"))
	if err != nil {
		return
	}
	caseCost, err := meter.Float64Histogram("triage.case.cost",
		metric.WithDescription("Estimated reasoning cost per case in USD"),
		metric.WithUnit("USD"))
	if err != nil {
		return
	}

	pipelineMetrics = &pipelineInstruments{
		gatewayCalls:    gatewayCalls,
		gatewayFailures: gatewayFailures,
		gatewayDuration: gatewayDuration,
		stageDuration:   stageDuration,
		stageFallbacks:  stageFallbacks,
		caseCount:       caseCount,
		caseReviews:     caseReviews,
		caseCost:        caseCost,
	}
}

func instruments() *pipelineInstruments {
	pipelineMetricsOnce.Do(initPipelineMetrics)
	return pipelineMetrics
}

func recordGatewayCall(ctx context.Context, engine string, duration time.Duration, reason string) {
	m := instruments()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("ai.engine", engine))
	m.gatewayCalls.Add(ctx, 1, attrs)
	m.gatewayDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if reason != "" {
		m.gatewayFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("ai.engine", engine),
			attribute.String("failure.reason", reason),
		))
	}
}

func recordStage(ctx context.Context, event entities.StageEvent) {
	m := instruments()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", string(event.Stage)),
		attribute.Bool("success", event.Success),
	)
	m.stageDuration.Record(ctx, event.DurationMs, attrs)
	if event.FallbackUsed {
		m.stageFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(event.Stage))))
	}
}

func recordCase(ctx context.Context, outcome entities.CaseOutcome) {
	m := instruments()
	if m == nil {
		return
	}
	m.caseCount.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(outcome.Status))))
	m.caseCost.Record(ctx, outcome.EstimatedCost)
	if outcome.RequiresHumanReview {
		m.caseReviews.Add(ctx, 1)
	}
}
