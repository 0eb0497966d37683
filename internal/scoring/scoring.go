// Package scoring turns a submitted run into a penalty, a final time and a
// disqualification flag. It performs no I/O.
package scoring

import "card-quiz/internal/domain"

// Result is the outcome of scoring one run.
type Result struct {
	Penalty      int
	FinalTime    float64
	Disqualified bool
}

// Score applies the answer key to a run.
//
// Disqualification only checks completeness against the key; penalties count
// both unanswered and wrong answers. A question without a key entry is only
// penalised when it is unanswered.
func Score(answers domain.Answers, originalTime float64, category domain.CategoryID, key domain.AnswerKey) Result {
	correct := key.Categories[category]
	defined := len(correct)

	expected := defined
	if expected == 0 {
		expected = domain.MaxQuestions
	}

	var disqualified bool
	if defined > 0 {
		answeredDefined := 0
		for q := range correct {
			if _, ok := answers[q]; ok {
				answeredDefined++
			}
		}
		disqualified = answeredDefined < defined
	} else {
		disqualified = len(answers) < expected
	}

	unit := key.PenaltyPerIncorrect
	if unit < 0 {
		unit = 0
	}

	penalty := 0
	for i := 1; i <= expected; i++ {
		q := domain.QuestionNumber(i)
		submitted, answered := answers[q]
		if !answered {
			penalty += unit
			continue
		}
		if want, ok := correct[q]; ok && submitted != want {
			penalty += unit
		}
	}

	return Result{
		Penalty:      penalty,
		FinalTime:    originalTime + float64(penalty),
		Disqualified: disqualified,
	}
}

// Apply returns entry rescored from its raw answers. Entries without raw
// answers are returned unchanged.
func Apply(entry domain.LeaderboardEntry, key domain.AnswerKey) domain.LeaderboardEntry {
	if entry.Answers == nil {
		return entry
	}
	r := Score(entry.Answers, entry.OriginalTime, entry.Category, key)
	entry.Penalty = r.Penalty
	entry.FinalTime = r.FinalTime
	entry.Disqualified = r.Disqualified
	return entry
}
