package judge

import "github.com/joescharf/rebuttal/internal/models"

// Aggregate reduces one comment's trials by strict majority over the trials
// that produced a usable verdict. Failed trials are counted in Trials but not
// in the denominator. No usable verdict at all is undetermined; a tie fails.
func Aggregate(verdicts []models.Verdict) models.Aggregate {
	agg := models.Aggregate{Trials: len(verdicts)}
	for _, v := range verdicts {
		if !v.Valid() {
			continue
		}
		agg.Valid++
		if v.Addressed {
			agg.Passes++
		}
	}

	switch {
	case agg.Valid == 0:
		agg.Outcome = models.OutcomeUndetermined
	case 2*agg.Passes > agg.Valid:
		agg.Outcome = models.OutcomePass
	default:
		agg.Outcome = models.OutcomeFail
	}
	if agg.Valid > 0 {
		agg.Score = 100 * float64(agg.Passes) / float64(agg.Valid)
	}
	return agg
}

// Combine reduces per-comment results to a pairing outcome: any failing
// comment fails the pairing; otherwise any undetermined comment (or having no
// comments at all) leaves it undetermined.
func Combine(comments []models.CommentResult) models.Aggregate {
	agg := models.Aggregate{Outcome: models.OutcomePass}
	if len(comments) == 0 {
		agg.Outcome = models.OutcomeUndetermined
		return agg
	}

	undetermined := false
	for _, c := range comments {
		agg.Passes += c.Aggregate.Passes
		agg.Valid += c.Aggregate.Valid
		agg.Trials += c.Aggregate.Trials
		switch c.Aggregate.Outcome {
		case models.OutcomeFail:
			agg.Outcome = models.OutcomeFail
		case models.OutcomeUndetermined:
			undetermined = true
		}
	}
	if agg.Outcome != models.OutcomeFail && undetermined {
		agg.Outcome = models.OutcomeUndetermined
	}
	if agg.Valid > 0 {
		agg.Score = 100 * float64(agg.Passes) / float64(agg.Valid)
	}
	return agg
}
