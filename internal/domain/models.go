package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxQuestions is the number of question cards per category. It is also the
// expected question count when a category has no answer key.
const MaxQuestions = 15

// CategoryID identifies a quiz track. Zero means the category UID was not recognised.
type CategoryID uint8

const (
	CategoryUnassigned CategoryID = 0
	Category1          CategoryID = 1
	Category2          CategoryID = 2
	Category3          CategoryID = 3
)

// Categories lists the playable categories in display order.
var Categories = []CategoryID{Category1, Category2, Category3}

func (c CategoryID) String() string {
	if c == CategoryUnassigned {
		return "All Categories"
	}
	return fmt.Sprintf("Category%d", uint8(c))
}

// Valid reports whether c is one of the playable categories.
func (c CategoryID) Valid() bool {
	return c >= Category1 && c <= Category3
}

// QuestionNumber is a 1-based question index within a category.
type QuestionNumber uint8

// Valid reports whether q is within 1..MaxQuestions.
func (q QuestionNumber) Valid() bool {
	return q >= 1 && q <= MaxQuestions
}

// Answer is one of the four options on the button panel.
type Answer string

const (
	AnswerA Answer = "A"
	AnswerB Answer = "B"
	AnswerC Answer = "C"
	AnswerD Answer = "D"
)

// ParseAnswer accepts A-D in either case.
func ParseAnswer(raw string) (Answer, error) {
	a := Answer(strings.ToUpper(strings.TrimSpace(raw)))
	if !a.Valid() {
		return "", fmt.Errorf("answer %q: %w", raw, ErrInvalidAnswer)
	}
	return a, nil
}

func (a Answer) Valid() bool {
	switch a {
	case AnswerA, AnswerB, AnswerC, AnswerD:
		return true
	}
	return false
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("answer: %w", ErrInvalidAnswer)
	}
	parsed, err := ParseAnswer(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Answers maps question numbers to the selected option. Keys are unique by construction.
type Answers map[QuestionNumber]Answer

// Clone returns a copy; a nil receiver stays nil so legacy entries remain distinguishable.
func (a Answers) Clone() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for q, ans := range a {
		out[q] = ans
	}
	return out
}

// Validate checks every key is a known question and every value a known option.
func (a Answers) Validate() error {
	for q, ans := range a {
		if !q.Valid() {
			return fmt.Errorf("question %d: %w", q, ErrInvalidQuestion)
		}
		if !ans.Valid() {
			return fmt.Errorf("question %d answer %q: %w", q, ans, ErrInvalidAnswer)
		}
	}
	return nil
}

// SubmittedRun is the payload a device sends to the collector after a run.
type SubmittedRun struct {
	Name        string  `json:"name"`
	Time        float64 `json:"time"`
	Answers     Answers `json:"answers"`
	CategoryUID string  `json:"category_uid"`
}

// AnswerKey holds the penalty unit and the correct answers per category.
type AnswerKey struct {
	PenaltyPerIncorrect int                    `json:"penalty_per_incorrect"`
	Categories          map[CategoryID]Answers `json:"categories"`
	Version             uint64                 `json:"version"`
}

// DefaultPenaltySeconds is applied when no answer key has been configured.
const DefaultPenaltySeconds = 60

// DefaultAnswerKey is the fallback used when the persisted key is missing or unreadable.
func DefaultAnswerKey() AnswerKey {
	return AnswerKey{
		PenaltyPerIncorrect: DefaultPenaltySeconds,
		Categories:          map[CategoryID]Answers{},
	}
}

// Clone deep-copies the key so callers cannot mutate the collector's copy.
func (k AnswerKey) Clone() AnswerKey {
	out := AnswerKey{
		PenaltyPerIncorrect: k.PenaltyPerIncorrect,
		Categories:          make(map[CategoryID]Answers, len(k.Categories)),
		Version:             k.Version,
	}
	for c, answers := range k.Categories {
		out.Categories[c] = answers.Clone()
	}
	return out
}

// Validate rejects negative penalties, unknown categories and malformed answers.
func (k AnswerKey) Validate() error {
	if k.PenaltyPerIncorrect < 0 {
		return fmt.Errorf("penalty %d: %w", k.PenaltyPerIncorrect, ErrInvalidAnswerKey)
	}
	for c, answers := range k.Categories {
		if !c.Valid() && c != CategoryUnassigned {
			return fmt.Errorf("category %d: %w", c, ErrInvalidAnswerKey)
		}
		if err := answers.Validate(); err != nil {
			return fmt.Errorf("category %d: %w", c, err)
		}
	}
	return nil
}

// LeaderboardEntry is the best run stored for one participant in one category.
type LeaderboardEntry struct {
	Name         string     `json:"name"`
	Category     CategoryID `json:"category"`
	OriginalTime float64    `json:"original_time"`
	Penalty      int        `json:"penalty"`
	FinalTime    float64    `json:"final_time"`
	Disqualified bool       `json:"disqualified"`
	Answers      Answers    `json:"answers"`
	RunID        string     `json:"run_id,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}

// Better reports whether e ranks strictly ahead of other on (disqualified, final_time, penalty).
func (e LeaderboardEntry) Better(other LeaderboardEntry) bool {
	if e.Disqualified != other.Disqualified {
		return !e.Disqualified
	}
	if e.FinalTime != other.FinalTime {
		return e.FinalTime < other.FinalTime
	}
	return e.Penalty < other.Penalty
}

// SameParticipant reports whether both entries share the (name, category) key.
func (e LeaderboardEntry) SameParticipant(other LeaderboardEntry) bool {
	return e.Name == other.Name && e.Category == other.Category
}

// Leaderboard is an ordered snapshot handed to readers.
type Leaderboard struct {
	Category  CategoryID         `json:"category"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}
