package device

import (
	"context"
	"time"

	"card-quiz/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Button is one key of the answer panel.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonA
	ButtonB
	ButtonC
	ButtonD
	ButtonConfirm
)

func (b Button) answer() (domain.Answer, bool) {
	switch b {
	case ButtonA:
		return domain.AnswerA, true
	case ButtonB:
		return domain.AnswerB, true
	case ButtonC:
		return domain.AnswerC, true
	case ButtonD:
		return domain.AnswerD, true
	}
	return "", false
}

// ButtonPanel samples the answer buttons. Pressed must not block.
type ButtonPanel interface {
	Pressed() (Button, error)
}

// Drainer is implemented by panels that queue presses. Await drains the
// queue so presses made before the prompt opened are not applied to it.
type Drainer interface {
	Drain()
}

type PromptConfig struct {
	PollInterval time.Duration
	// Debounce ignores selection changes for this long after a change.
	Debounce time.Duration
	// MaxWait skips the question when no confirm arrives in time; zero waits forever.
	MaxWait time.Duration
}

func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		PollInterval: 50 * time.Millisecond,
		Debounce:     200 * time.Millisecond,
		MaxWait:      2 * time.Minute,
	}
}

// AnswerPrompt waits for an answer selection followed by confirm.
type AnswerPrompt struct {
	panel ButtonPanel
	clock clockwork.Clock
	cfg   PromptConfig
}

func NewAnswerPrompt(panel ButtonPanel, clock clockwork.Clock, cfg PromptConfig) *AnswerPrompt {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPromptConfig().PollInterval
	}
	return &AnswerPrompt{panel: panel, clock: clock, cfg: cfg}
}

// Await returns the confirmed answer for q. ok is false when the participant
// confirmed without a selection or the wait expired.
func (p *AnswerPrompt) Await(ctx context.Context, q domain.QuestionNumber) (domain.Answer, bool, error) {
	if d, ok := p.panel.(Drainer); ok {
		d.Drain()
	}

	ticker := p.clock.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	var expired <-chan time.Time
	if p.cfg.MaxWait > 0 {
		timer := p.clock.NewTimer(p.cfg.MaxWait)
		defer timer.Stop()
		expired = timer.Chan()
	}

	var (
		selected   domain.Answer
		lastChange time.Time
		changed    bool
	)
	for {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-expired:
			log.Info().Uint8("question", uint8(q)).Msg("answer wait expired, question skipped")
			return "", false, nil
		case <-ticker.Chan():
			b, err := p.panel.Pressed()
			if err != nil {
				return "", false, err
			}
			if b == ButtonConfirm {
				if selected == "" {
					log.Info().Uint8("question", uint8(q)).Msg("confirmed without selection, question skipped")
					return "", false, nil
				}
				return selected, true, nil
			}
			a, ok := b.answer()
			if !ok || a == selected {
				continue
			}
			now := p.clock.Now()
			if changed && now.Sub(lastChange) < p.cfg.Debounce {
				continue
			}
			selected, lastChange, changed = a, now, true
			log.Debug().Uint8("question", uint8(q)).Str("answer", string(a)).Msg("answer selected")
		}
	}
}
