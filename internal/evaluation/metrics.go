package evaluation

// UrgencyAccuracy is the fraction of results whose predicted level equals the expected one.
func UrgencyAccuracy(results []EvalResult) float64 {
	return fraction(results, func(r EvalResult) bool { return r.Predicted == r.Expected })
}

// UnderTriageRate is the fraction of results triaged as less urgent than expected.
// This is the safety metric: an under-triaged emergency waits in the wrong queue.
func UnderTriageRate(results []EvalResult) float64 {
	return fraction(results, EvalResult.UnderTriaged)
}

// OverTriageRate is the fraction of results triaged as more urgent than expected.
func OverTriageRate(results []EvalResult) float64 {
	return fraction(results, EvalResult.OverTriaged)
}

// SpecialtyAccuracy is the fraction of results routed to the expected specialty.
func SpecialtyAccuracy(results []EvalResult) float64 {
	return fraction(results, func(r EvalResult) bool { return r.SpecialtyMatch })
}

// RedFlagRecall is the fraction of cases expected to carry a red flag that did.
// Returns 1.0 when no case expects one.
func RedFlagRecall(results []EvalResult) float64 {
	expected, detected := 0, 0
	for _, r := range results {
		if !r.ExpectRedFlag {
			continue
		}
		expected++
		if r.RedFlagDetected {
			detected++
		}
	}
	if expected == 0 {
		return 1.0
	}
	return float64(detected) / float64(expected)
}

// ReviewRate is the fraction of results flagged for human review.
func ReviewRate(results []EvalResult) float64 {
	return fraction(results, func(r EvalResult) bool { return r.ReviewFlagged })
}

func fraction(results []EvalResult, pred func(EvalResult) bool) float64 {
	if len(results) == 0 {
		return 0.0
	}
	n := 0
	for _, r := range results {
		if pred(r) {
			n++
		}
	}
	return float64(n) / float64(len(results))
}
