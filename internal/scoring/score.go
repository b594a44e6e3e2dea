// Package scoring grades assessments. Results are always recomputed from the
// answer key and never taken from client input.
package scoring

import "time"

// Result is the graded outcome of one submission.
type Result struct {
	Percentage       float64 `json:"percentage"`
	Passed           bool    `json:"passed"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
}

// Fraction returns the earned share of q's weight for answer. Questions that
// cannot be graded (no points, empty key) earn 0.
func Fraction(q Question, answer Answer) float64 {
	f, _ := q.fraction(answer)
	return f
}

// Score grades sub against a. Answers to unknown questions are ignored,
// unanswered questions earn nothing, and ungradable questions are left out of
// both the earned and the possible totals. timeSpent is clamped to
// [0, a.TimeLimit].
func Score(a Assessment, sub Submission, timeSpent time.Duration) Result {
	var earned, possible float64
	for _, q := range a.Questions {
		answer := sub[q.QuestionID()]
		f, gradable := q.fraction(answer)
		if !gradable {
			continue
		}
		earned += f * q.Weight()
		possible += q.Weight()
	}

	var pct float64
	if possible > 0 {
		pct = 100 * earned / possible
	}

	return Result{
		Percentage:       pct,
		Passed:           pct >= a.PassingScore,
		TimeSpentSeconds: int(clampElapsed(timeSpent, a.TimeLimit) / time.Second),
	}
}

func clampElapsed(d, limit time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
