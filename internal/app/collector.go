package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"card-quiz/internal/cards"
	"card-quiz/internal/domain"
	"card-quiz/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SubmitResult reports how a submission was merged.
type SubmitResult struct {
	Entry  domain.LeaderboardEntry `json:"entry"`
	Stored bool                    `json:"stored"`
}

// Collector owns the leaderboard and the current answer key and is shared by
// every request handler. Mutations are serialized.
type Collector struct {
	board  *Leaderboard
	keys   AnswerKeyStore
	events EventPublisher
	now    func() time.Time
	newID  func() string

	mu sync.Mutex

	keyMu sync.RWMutex
	key   domain.AnswerKey
}

// CollectorOption customises a Collector.
type CollectorOption func(*Collector)

// WithEvents sets the publisher used for run and recompute events.
func WithEvents(p EventPublisher) CollectorOption {
	return func(c *Collector) { c.events = p }
}

// WithClock overrides the time source for submitted_at stamps.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

// WithIDs overrides the run id generator.
func WithIDs(newID func() string) CollectorOption {
	return func(c *Collector) { c.newID = newID }
}

func NewCollector(board *Leaderboard, keys AnswerKeyStore, opts ...CollectorOption) *Collector {
	c := &Collector{
		board:  board,
		keys:   keys,
		events: NopPublisher{},
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		key:    domain.DefaultAnswerKey(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the answer key and the leaderboard. A missing or unreadable key
// falls back to the default key.
func (c *Collector) Load(ctx context.Context) error {
	key, err := c.keys.Load(ctx)
	switch {
	case err == nil:
		if verr := key.Validate(); verr != nil {
			log.Warn().Err(verr).Msg("answer key invalid, falling back to default")
			key = domain.DefaultAnswerKey()
		}
	case errors.Is(err, ErrNoData):
		log.Warn().Int("penalty", domain.DefaultPenaltySeconds).Msg("answer key not found, falling back to default")
		key = domain.DefaultAnswerKey()
	case errors.Is(err, ErrCorrupt):
		log.Warn().Err(err).Int("penalty", domain.DefaultPenaltySeconds).Msg("answer key unreadable, falling back to default")
		key = domain.DefaultAnswerKey()
	default:
		return fmt.Errorf("load answer key: %w", err)
	}
	if key.Categories == nil {
		key.Categories = map[domain.CategoryID]domain.Answers{}
	}

	c.keyMu.Lock()
	c.key = key
	c.keyMu.Unlock()

	return c.board.Load(ctx)
}

// AnswerKey returns a copy of the current key.
func (c *Collector) AnswerKey() domain.AnswerKey {
	c.keyMu.RLock()
	defer c.keyMu.RUnlock()
	return c.key.Clone()
}

// Leaderboard returns the ordered ranking for a category filter.
func (c *Collector) Leaderboard(category domain.CategoryID) domain.Leaderboard {
	return c.board.List(category)
}

// Subscribe streams full rankings after every change.
func (c *Collector) Subscribe() (<-chan domain.Leaderboard, func()) {
	return c.board.Subscribe()
}

// Submit validates and scores a run, then merges it into the leaderboard.
func (c *Collector) Submit(ctx context.Context, run domain.SubmittedRun) (SubmitResult, error) {
	entry, err := c.prepare(run)
	if err != nil {
		return SubmitResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.AnswerKey()
	scored := scoring.Score(entry.Answers, entry.OriginalTime, entry.Category, key)
	entry.Penalty = scored.Penalty
	entry.FinalTime = scored.FinalTime
	entry.Disqualified = scored.Disqualified

	stored, err := c.board.Upsert(ctx, entry)
	if err != nil {
		return SubmitResult{}, err
	}

	logEvent := log.Info()
	if !stored {
		logEvent = log.Debug()
	}
	logEvent.
		Str("run_id", entry.RunID).
		Str("name", entry.Name).
		Str("category", entry.Category.String()).
		Float64("final_time", entry.FinalTime).
		Int("penalty", entry.Penalty).
		Bool("disqualified", entry.Disqualified).
		Bool("stored", stored).
		Msg("run scored")

	if err := c.events.PublishRunAccepted(ctx, RunAccepted{
		RunID:        entry.RunID,
		Name:         entry.Name,
		Category:     entry.Category,
		OriginalTime: entry.OriginalTime,
		Penalty:      entry.Penalty,
		FinalTime:    entry.FinalTime,
		Disqualified: entry.Disqualified,
		Stored:       stored,
		At:           entry.SubmittedAt,
	}); err != nil {
		log.Warn().Err(err).Str("run_id", entry.RunID).Msg("publish run event failed")
	}

	return SubmitResult{Entry: entry, Stored: stored}, nil
}

// SaveAnswerKey persists a replacement key and rescores every stored run
// against it. The version is assigned here. If rescoring fails the previous
// key stays in effect.
func (c *Collector) SaveAnswerKey(ctx context.Context, key domain.AnswerKey) (domain.AnswerKey, error) {
	if err := key.Validate(); err != nil {
		return domain.AnswerKey{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.AnswerKey()
	next := key.Clone()
	next.Version = prev.Version + 1

	if err := c.keys.Save(ctx, next); err != nil {
		return domain.AnswerKey{}, fmt.Errorf("persist answer key: %w", err)
	}

	// The new key only goes live once the leaderboard is rescored with it.
	if err := c.board.RecomputeAll(ctx, next); err != nil {
		if rerr := c.keys.Save(ctx, prev); rerr != nil {
			log.Error().Err(rerr).Uint64("version", prev.Version).Msg("restore previous answer key failed")
		}
		return domain.AnswerKey{}, fmt.Errorf("recompute leaderboard: %w", err)
	}

	c.keyMu.Lock()
	c.key = next
	c.keyMu.Unlock()

	log.Info().
		Uint64("version", next.Version).
		Int("penalty", next.PenaltyPerIncorrect).
		Int("categories", len(next.Categories)).
		Msg("answer key replaced")

	if err := c.events.PublishLeaderboardRecomputed(ctx, LeaderboardRecomputed{
		KeyVersion: next.Version,
		Entries:    c.board.Len(),
		At:         c.now(),
	}); err != nil {
		log.Warn().Err(err).Msg("publish recompute event failed")
	}
	return next.Clone(), nil
}

// Reset clears the leaderboard.
func (c *Collector) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.board.Reset(ctx); err != nil {
		return err
	}
	log.Info().Msg("leaderboard reset")
	return nil
}

func (c *Collector) prepare(run domain.SubmittedRun) (domain.LeaderboardEntry, error) {
	name := strings.TrimSpace(run.Name)
	if name == "" {
		return domain.LeaderboardEntry{}, fmt.Errorf("empty name: %w", domain.ErrInvalidRun)
	}
	if run.Time < 0 || math.IsNaN(run.Time) || math.IsInf(run.Time, 0) {
		return domain.LeaderboardEntry{}, fmt.Errorf("time %v: %w", run.Time, domain.ErrInvalidRun)
	}
	if strings.TrimSpace(run.CategoryUID) == "" {
		return domain.LeaderboardEntry{}, fmt.Errorf("empty category_uid: %w", domain.ErrInvalidRun)
	}
	if err := run.Answers.Validate(); err != nil {
		return domain.LeaderboardEntry{}, fmt.Errorf("%w: %v", domain.ErrInvalidRun, err)
	}

	category, ok := cards.CategoryForUID(run.CategoryUID)
	if !ok {
		log.Warn().Str("category_uid", run.CategoryUID).Msg("unknown category card, filing under all categories")
	}

	answers := run.Answers.Clone()
	if answers == nil {
		answers = domain.Answers{}
	}

	return domain.LeaderboardEntry{
		Name:         name,
		Category:     category,
		OriginalTime: run.Time,
		Answers:      answers,
		RunID:        c.newID(),
		SubmittedAt:  c.now().UTC(),
	}, nil
}
