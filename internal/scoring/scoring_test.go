package scoring

import (
	"testing"

	"card-quiz/internal/domain"
)

func twoQuestionKey() domain.AnswerKey {
	return domain.AnswerKey{
		PenaltyPerIncorrect: 60,
		Categories: map[domain.CategoryID]domain.Answers{
			domain.Category1: {1: domain.AnswerA, 2: domain.AnswerB},
		},
	}
}

func TestScoreAllCorrect(t *testing.T) {
	r := Score(domain.Answers{1: "A", 2: "B"}, 100, domain.Category1, twoQuestionKey())
	if r.Penalty != 0 || r.Disqualified || r.FinalTime != 100 {
		t.Fatalf("expected clean run, got %+v", r)
	}
}

func TestScoreCompleteWithOneWrong(t *testing.T) {
	r := Score(domain.Answers{1: "A", 2: "C"}, 100, domain.Category1, twoQuestionKey())
	if r.Penalty != 60 || r.FinalTime != 160 || r.Disqualified {
		t.Fatalf("expected penalty 60, final 160, qualified; got %+v", r)
	}
}

func TestScoreIncompleteIsDisqualified(t *testing.T) {
	r := Score(domain.Answers{1: "A"}, 100, domain.Category1, twoQuestionKey())
	if !r.Disqualified {
		t.Fatalf("expected disqualification, got %+v", r)
	}
	if r.Penalty != 60 || r.FinalTime != 160 {
		t.Fatalf("expected penalty for unanswered question, got %+v", r)
	}
}

func TestScoreDisqualificationIgnoresCorrectness(t *testing.T) {
	// Every answer wrong but complete: penalised, still ranked.
	r := Score(domain.Answers{1: "D", 2: "D"}, 50, domain.Category1, twoQuestionKey())
	if r.Disqualified {
		t.Fatalf("complete run must not be disqualified")
	}
	if r.Penalty != 120 {
		t.Fatalf("expected 120s penalty, got %d", r.Penalty)
	}
}

func TestScoreFallbackWithoutKey(t *testing.T) {
	key := domain.AnswerKey{PenaltyPerIncorrect: 10}

	full := domain.Answers{}
	for q := 1; q <= domain.MaxQuestions; q++ {
		full[domain.QuestionNumber(q)] = domain.AnswerC
	}
	r := Score(full, 30, domain.Category2, key)
	if r.Disqualified || r.Penalty != 0 {
		t.Fatalf("answered every question without key: expected no penalty, got %+v", r)
	}

	delete(full, 7)
	r = Score(full, 30, domain.Category2, key)
	if !r.Disqualified || r.Penalty != 10 || r.FinalTime != 40 {
		t.Fatalf("missing one question: expected disqualified with 10s, got %+v", r)
	}
}

func TestScoreUnkeyedQuestionOnlyPenalisedWhenUnanswered(t *testing.T) {
	key := domain.AnswerKey{
		PenaltyPerIncorrect: 5,
		Categories: map[domain.CategoryID]domain.Answers{
			domain.Category3: {1: "A", 3: "C"},
		},
	}
	// expected_n = 2, so questions 1..2 are walked; 2 has no key entry.
	r := Score(domain.Answers{1: "A", 2: "D", 3: "C"}, 0, domain.Category3, key)
	if r.Penalty != 0 || r.Disqualified {
		t.Fatalf("expected no penalty, got %+v", r)
	}
	r = Score(domain.Answers{1: "A", 3: "C"}, 0, domain.Category3, key)
	if r.Penalty != 5 || r.Disqualified {
		t.Fatalf("expected unanswered penalty only, got %+v", r)
	}
}

func TestScoreInvariants(t *testing.T) {
	key := twoQuestionKey()
	runs := []domain.Answers{nil, {}, {1: "A"}, {2: "B"}, {1: "B", 2: "A"}, {1: "A", 2: "B", 3: "C"}}
	for _, answers := range runs {
		r := Score(answers, 42.5, domain.Category1, key)
		if r.FinalTime != 42.5+float64(r.Penalty) {
			t.Fatalf("final time invariant broken for %v: %+v", answers, r)
		}
		if r.Penalty < 0 || r.Penalty%key.PenaltyPerIncorrect != 0 {
			t.Fatalf("penalty must be a non-negative multiple of the unit: %+v", r)
		}
	}
}

func TestApplyKeepsLegacyEntries(t *testing.T) {
	legacy := domain.LeaderboardEntry{Name: "Old", Category: domain.Category1, OriginalTime: 90, Penalty: 30, FinalTime: 120}
	got := Apply(legacy, twoQuestionKey())
	if got.Penalty != 30 || got.FinalTime != 120 || got.Disqualified || got.Answers != nil {
		t.Fatalf("legacy entry changed: %+v", got)
	}

	scored := Apply(domain.LeaderboardEntry{
		Name: "New", Category: domain.Category1, OriginalTime: 90,
		Answers: domain.Answers{1: "A", 2: "C"},
	}, twoQuestionKey())
	if scored.Penalty != 60 || scored.FinalTime != 150 || scored.Disqualified {
		t.Fatalf("unexpected rescored entry %+v", scored)
	}
}
