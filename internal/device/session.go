// Package device runs the card-driven quiz session on the game device.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"card-quiz/internal/cards"
	"card-quiz/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State is the session lifecycle position.
type State uint8

const (
	StateIdle State = iota
	StateCategoryChosen
	StateRunning
	StateStopped
	StateSent
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCategoryChosen:
		return "category-chosen"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateSent:
		return "sent"
	default:
		return "unknown"
	}
}

// Prompt collects the answer to one question.
type Prompt interface {
	Await(ctx context.Context, q domain.QuestionNumber) (domain.Answer, bool, error)
}

// Submitter delivers a finished run to the collector.
type Submitter interface {
	Submit(ctx context.Context, run domain.SubmittedRun) error
}

// SessionSnapshot is a read-only view of the session.
type SessionSnapshot struct {
	State    State
	Category domain.CategoryID
	Elapsed  int
	Answers  domain.Answers
}

// Session is the per-device quiz state machine. Handle calls are serialized;
// the prompt and the submitter run without holding the state lock.
type Session struct {
	name      string
	store     AnswerStore
	prompt    Prompt
	submitter Submitter
	clock     clockwork.Clock
	indicator Indicator

	handleMu sync.Mutex

	mu       sync.RWMutex
	state    State
	category domain.CategoryID
	start    time.Time
	elapsed  int
	answers  domain.Answers
}

type SessionOption func(*Session)

func WithClock(c clockwork.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

func WithIndicator(i Indicator) SessionOption {
	return func(s *Session) { s.indicator = i }
}

// NewSession builds a session for the device called name. A stopped run that
// was never delivered is restored from the store.
func NewSession(name string, store AnswerStore, prompt Prompt, submitter Submitter, opts ...SessionOption) *Session {
	s := &Session{
		name:      name,
		store:     store,
		prompt:    prompt,
		submitter: submitter,
		clock:     clockwork.NewRealClock(),
		indicator: LogIndicator{},
		answers:   domain.Answers{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recover()
	return s
}

func (s *Session) recover() {
	run, err := s.store.Snapshot()
	if err != nil {
		log.Warn().Err(err).Msg("answer store unreadable, starting idle")
		s.indicator.Signal(SignalStorageError)
		return
	}
	if !run.Category.Valid() || !run.HasElapsed {
		return
	}
	s.state = StateStopped
	s.category = run.Category
	s.elapsed = run.Elapsed
	s.answers = run.Answers.Clone()
	if s.answers == nil {
		s.answers = domain.Answers{}
	}
	log.Info().
		Str("category", s.category.String()).
		Int("elapsed", s.elapsed).
		Int("answers", len(s.answers)).
		Msg("restored unsent run")
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{
		State:    s.state,
		Category: s.category,
		Elapsed:  s.elapsed,
		Answers:  s.answers.Clone(),
	}
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Handle applies one card action.
func (s *Session) Handle(ctx context.Context, action domain.CardAction) error {
	s.handleMu.Lock()
	defer s.handleMu.Unlock()

	var err error
	switch action.Kind {
	case domain.ActionSelectCategory:
		err = s.selectCategory(action.Category)
	case domain.ActionStartTimer:
		err = s.startTimer()
	case domain.ActionAnswerQuestion:
		err = s.answerQuestion(ctx, action.Question)
	case domain.ActionStopTimer:
		err = s.stopTimer()
	case domain.ActionAddPenalty:
		err = s.addPenalty(action.PenaltyMinutes)
	case domain.ActionSendData:
		err = s.sendData(ctx)
	default:
		log.Debug().Msg("unknown card ignored")
		return nil
	}

	switch {
	case err == nil:
		s.indicator.Signal(SignalOK)
	case errors.Is(err, domain.ErrStorage):
		s.indicator.Signal(SignalStorageError)
	default:
		s.indicator.Signal(SignalFailure)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func (s *Session) selectCategory(c domain.CategoryID) error {
	s.mu.Lock()
	if s.state == StateRunning {
		log.Warn().
			Str("from", s.category.String()).
			Str("to", c.String()).
			Msg("category scanned while running, discarding run")
	}
	s.state = StateCategoryChosen
	s.category = c
	s.elapsed = 0
	s.start = time.Time{}
	s.answers = domain.Answers{}
	s.mu.Unlock()

	log.Info().Str("category", c.String()).Msg("category selected")
	return s.store.Reset(c)
}

func (s *Session) startTimer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateCategoryChosen:
	case StateIdle, StateSent:
		return domain.ErrNoCategory
	default:
		return fmt.Errorf("start timer in state %s: %w", s.state, domain.ErrInvalidTransition)
	}
	s.state = StateRunning
	s.start = s.clock.Now()
	log.Info().Str("category", s.category.String()).Msg("timer started")
	return nil
}

func (s *Session) answerQuestion(ctx context.Context, q domain.QuestionNumber) error {
	s.mu.RLock()
	state := s.state
	_, answered := s.answers[q]
	s.mu.RUnlock()

	if state != StateRunning {
		return fmt.Errorf("answer question in state %s: %w", state, domain.ErrInvalidTransition)
	}
	if answered {
		log.Info().Uint8("question", uint8(q)).Msg("question already answered")
		return nil
	}

	s.indicator.Signal(SignalBusy)
	answer, ok, err := s.prompt.Await(ctx, q)
	if err != nil {
		return fmt.Errorf("await answer: %w", err)
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return fmt.Errorf("answer question in state %s: %w", s.state, domain.ErrInvalidTransition)
	}
	s.answers[q] = answer
	s.mu.Unlock()

	log.Info().Uint8("question", uint8(q)).Str("answer", string(answer)).Msg("answer recorded")
	return s.store.Record(q, answer)
}

func (s *Session) stopTimer() error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
	case StateStopped:
		s.mu.Unlock()
		log.Debug().Msg("timer already stopped")
		return nil
	default:
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("stop timer in state %s: %w", state, domain.ErrInvalidTransition)
	}
	elapsed := int(s.clock.Since(s.start) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	s.state = StateStopped
	s.elapsed = elapsed
	s.mu.Unlock()

	log.Info().Int("elapsed", elapsed).Msg("timer stopped")
	return s.store.SaveElapsed(elapsed)
}

func (s *Session) addPenalty(minutes uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return domain.ErrNotRunning
	}
	s.start = s.start.Add(-time.Duration(minutes) * time.Minute)
	log.Info().Uint8("minutes", minutes).Msg("penalty added")
	return nil
}

func (s *Session) sendData(ctx context.Context) error {
	s.mu.RLock()
	if s.state != StateStopped {
		state := s.state
		s.mu.RUnlock()
		return fmt.Errorf("send data in state %s: %w", state, domain.ErrInvalidTransition)
	}
	run := domain.SubmittedRun{
		Name:        s.name,
		Time:        float64(s.elapsed),
		Answers:     s.answers.Clone(),
		CategoryUID: cards.CategoryUID(s.category),
	}
	s.mu.RUnlock()

	s.indicator.Signal(SignalBusy)
	if err := s.submitter.Submit(ctx, run); err != nil {
		log.Error().Err(err).Msg("run not delivered, keeping it for another attempt")
		return err
	}

	s.mu.Lock()
	s.state = StateSent
	s.category = domain.CategoryUnassigned
	s.mu.Unlock()

	log.Info().Str("name", run.Name).Float64("time", run.Time).Msg("run delivered")
	return s.store.MarkSent()
}
