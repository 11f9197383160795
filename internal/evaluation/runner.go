package evaluation

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/caretriage/internal/domain/entities"
)

// CaseProcessor runs one patient message through the pipeline.
type CaseProcessor interface {
	Process(ctx context.Context, input string) entities.CaseOutcome
}

// Runner runs evaluation across a set of golden cases.
type Runner struct {
	processor CaseProcessor
}

func NewRunner(processor CaseProcessor) *Runner {
	return &Runner{processor: processor}
}

// Run processes every golden case in order and aggregates the results.
func (r *Runner) Run(ctx context.Context, cases []GoldenCase) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalCases: len(cases),
		ByCategory: make(map[Category]*CategorySummary),
		Results:    make([]EvalResult, 0, len(cases)),
	}

	for _, gc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		outcome := r.processor.Process(ctx, gc.Input)
		summary.Results = append(summary.Results, EvalResult{
			CaseID:          outcome.CaseID,
			GoldenID:        gc.ID,
			Category:        gc.Category,
			Status:          outcome.Status,
			Expected:        gc.ExpectedUrgency,
			Predicted:       outcome.UrgencyLevel,
			SpecialtyMatch:  strings.EqualFold(outcome.Specialty, gc.ExpectedSpecialty),
			ExpectRedFlag:   gc.ExpectRedFlag,
			RedFlagDetected: len(outcome.RedFlags) > 0,
			ReviewFlagged:   outcome.RequiresHumanReview,
			Cost:            outcome.EstimatedCost,
			Latency:         time.Since(start),
		})
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	res := s.Results
	s.UrgencyAccuracy = UrgencyAccuracy(res)
	s.UnderTriageRate = UnderTriageRate(res)
	s.OverTriageRate = OverTriageRate(res)
	s.SpecialtyAccuracy = SpecialtyAccuracy(res)
	s.RedFlagRecall = RedFlagRecall(res)
	s.ReviewRate = ReviewRate(res)

	byCategory := make(map[Category][]EvalResult)
	for _, e := range res {
		if e.Status == entities.CaseStatusFailed {
			s.FailedCases++
		}
		s.TotalCost += e.Cost
		s.AvgLatency += e.Latency
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}
	if len(res) > 0 {
		s.AvgLatency /= time.Duration(len(res))
	}

	for category, group := range byCategory {
		s.ByCategory[category] = &CategorySummary{
			Count:           len(group),
			UrgencyAccuracy: UrgencyAccuracy(group),
			UnderTriageRate: UnderTriageRate(group),
		}
	}
}
