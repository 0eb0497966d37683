package domain

import "errors"

var (
	// ErrInvalidTransition is returned when a card is not allowed in the current session state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNoCategory is returned when the timer is started before a category card was scanned.
	ErrNoCategory = errors.New("no category selected")
	// ErrNotRunning is returned for penalty cards scanned while the timer is not running.
	ErrNotRunning = errors.New("timer not running")
	// ErrStorage wraps failures of the durable answer medium.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidRun rejects submissions with missing or malformed fields.
	ErrInvalidRun = errors.New("invalid run submission")
	// ErrInvalidAnswer indicates an option outside A-D.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrInvalidQuestion indicates a question number outside 1..MaxQuestions.
	ErrInvalidQuestion = errors.New("invalid question number")
	// ErrInvalidAnswerKey rejects answer key replacements that fail validation.
	ErrInvalidAnswerKey = errors.New("invalid answer key")
	// ErrUnauthorized is returned for admin operations with a wrong password.
	ErrUnauthorized = errors.New("unauthorized")
)
