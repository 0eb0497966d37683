package http

import (
	"fmt"

	"card-quiz/internal/domain"
)

// runPayload is the wire form of a submitted run. Pointer fields tell an
// absent field apart from its zero value.
type runPayload struct {
	Name        *string        `json:"name"`
	Time        *float64       `json:"time"`
	Answers     domain.Answers `json:"answers"`
	CategoryUID *string        `json:"category_uid"`
}

// run checks every field is present and returns the domain run.
func (p runPayload) run() (domain.SubmittedRun, error) {
	var missing string
	switch {
	case p.Name == nil:
		missing = "name"
	case p.Time == nil:
		missing = "time"
	case p.Answers == nil:
		missing = "answers"
	case p.CategoryUID == nil:
		missing = "category_uid"
	}
	if missing != "" {
		return domain.SubmittedRun{}, fmt.Errorf("%s missing: %w", missing, domain.ErrInvalidRun)
	}
	return domain.SubmittedRun{
		Name:        *p.Name,
		Time:        *p.Time,
		Answers:     p.Answers,
		CategoryUID: *p.CategoryUID,
	}, nil
}
