package device

import (
	"bytes"
	"context"
	"errors"
	"time"

	"card-quiz/internal/cards"
	"card-quiz/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// CardReader polls the RFID reader. ReadUID returns nil when no card is present.
type CardReader interface {
	ReadUID(ctx context.Context) ([]byte, error)
}

// Handler consumes classified card actions.
type Handler interface {
	Handle(ctx context.Context, action domain.CardAction) error
}

type RunnerConfig struct {
	PollInterval time.Duration
	// RescanGuard drops repeated reads of the same card within this window.
	RescanGuard time.Duration
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PollInterval: 100 * time.Millisecond,
		RescanGuard:  1500 * time.Millisecond,
	}
}

// Runner is the device main loop.
type Runner struct {
	reader    CardReader
	handler   Handler
	clock     clockwork.Clock
	indicator Indicator
	cfg       RunnerConfig

	lastUID  []byte
	lastSeen time.Time
}

func NewRunner(reader CardReader, handler Handler, clock clockwork.Clock, indicator Indicator, cfg RunnerConfig) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultRunnerConfig().PollInterval
	}
	if indicator == nil {
		indicator = LogIndicator{}
	}
	return &Runner{reader: reader, handler: handler, clock: clock, indicator: indicator, cfg: cfg}
}

// Run polls until ctx is done. Read and handling errors are logged and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	log.Info().Dur("poll_interval", r.cfg.PollInterval).Msg("device loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("device loop stopped")
			return nil
		case <-ticker.Chan():
			r.poll(ctx)
		}
	}
}

func (r *Runner) poll(ctx context.Context) {
	uid, err := r.reader.ReadUID(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("card read failed")
			r.indicator.Signal(SignalFailure)
		}
		return
	}
	if len(uid) == 0 {
		return
	}

	now := r.clock.Now()
	if r.cfg.RescanGuard > 0 && bytes.Equal(uid, r.lastUID) && now.Sub(r.lastSeen) < r.cfg.RescanGuard {
		r.lastSeen = now
		return
	}
	r.lastUID = append(r.lastUID[:0], uid...)
	r.lastSeen = now

	action := cards.Classify(uid)
	log.Debug().Str("uid", cards.FormatUID(uid)).Str("action", action.String()).Msg("card scanned")

	if err := r.handler.Handle(ctx, action); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Warn().Err(err).Str("uid", cards.FormatUID(uid)).Msg("card rejected")
	}
}
